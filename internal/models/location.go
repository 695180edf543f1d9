// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package models

import "fmt"

// DeviceLocation is the last known position of one device.
type DeviceLocation struct {
	DeviceID  string  `json:"device_id" validate:"deviceid"`
	Longitude float64 `json:"longitude" validate:"finite,longitude"`
	Latitude  float64 `json:"latitude" validate:"finite,latitude"`
}

// String formats the location the way marker popups show it.
func (l DeviceLocation) String() string {
	return fmt.Sprintf("%.5f, %.5f", l.Longitude, l.Latitude)
}

// OverlayStyleFlags selects which reading-derived rings are drawn.
type OverlayStyleFlags struct {
	ShowTemperature bool `json:"show_temperature"`
	ShowMoisture    bool `json:"show_moisture"`
	ShowNutrients   bool `json:"show_nutrients"`
}

// DefaultOverlayStyleFlags shows temperature and moisture rings.
func DefaultOverlayStyleFlags() OverlayStyleFlags {
	return OverlayStyleFlags{
		ShowTemperature: true,
		ShowMoisture:    true,
		ShowNutrients:   false,
	}
}
