// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package models defines the data structures shared across Fieldmap.

  - Device: a registered field sensor as returned by the telemetry API
  - TelemetryReading: one log entry from a device, optionally geolocated
  - DeviceLocation: the last known coordinates remembered for a device
  - OverlayStyleFlags: which reading-derived rings the map draws

Models carry JSON tags matching the telemetry API's snake_case fields and
validate tags consumed by internal/validation.
*/
package models

import "strconv"

// Device is a sensor registered to the current account.
type Device struct {
	ID           int64   `json:"id"`
	DeviceType   string  `json:"device_type"`
	SerialNumber string  `json:"serial_number"`
	Name         string  `json:"name"`
	Location     string  `json:"location"`
	Status       string  `json:"status"`
	Battery      float64 `json:"battery"`
	Signal       float64 `json:"signal"`
	LastReading  string  `json:"last_reading"`
	UserID       int64   `json:"user_id"`
	CreatedAt    string  `json:"created_at"`
	UpdatedAt    string  `json:"updated_at"`
}

// Key returns the device id in the string form used for cache keys and
// selection.
func (d *Device) Key() string {
	return strconv.FormatInt(d.ID, 10)
}

// DisplayName falls back to the serial number when the device is unnamed.
func (d *Device) DisplayName() string {
	if d.Name != "" {
		return d.Name
	}
	return d.SerialNumber
}
