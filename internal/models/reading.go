// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package models

import (
	"math"
	"time"
)

// TelemetryReading is a single device log entry. Longitude and Latitude are
// nil when the device reported no position.
type TelemetryReading struct {
	ID              int64    `json:"id"`
	DeviceID        int64    `json:"device_id"`
	SerialNumber    string   `json:"serial_number"`
	Temperature     float64  `json:"temperature"`
	Humidity        float64  `json:"humidity"`
	Nitrogen        float64  `json:"nitrogen"`
	Phosphorous     float64  `json:"phosphorous"`
	Potassium       float64  `json:"potassium"`
	PH              float64  `json:"ph"`
	SoilMoisture    float64  `json:"soil_moisture"`
	SoilTemperature float64  `json:"soil_temperature"`
	SoilHumidity    float64  `json:"soil_humidity"`
	NutrientLevel   float64  `json:"nutrient_level"`
	Longitude       *float64 `json:"longitude,omitempty"`
	Latitude        *float64 `json:"latitude,omitempty"`
	CreatedAt       string   `json:"created_at"`
}

// HasCoordinates reports whether the reading carries a usable position.
// A 0,0 pair is what unconfigured GPS modules report and is treated as absent.
func (r *TelemetryReading) HasCoordinates() bool {
	if r == nil || r.Longitude == nil || r.Latitude == nil {
		return false
	}
	lon, lat := *r.Longitude, *r.Latitude
	if math.IsNaN(lon) || math.IsNaN(lat) {
		return false
	}
	return lon != 0 || lat != 0
}

// Coordinates returns lon, lat. Callers check HasCoordinates first.
func (r *TelemetryReading) Coordinates() (lon, lat float64) {
	return *r.Longitude, *r.Latitude
}

// timestampLayouts are the formats the telemetry API has been seen to emit.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

// ObservedAt parses CreatedAt. The zero time and false are returned when the
// field is empty or in an unknown format.
func (r *TelemetryReading) ObservedAt() (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, r.CreatedAt); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
