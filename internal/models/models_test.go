// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package models

import (
	"math"
	"testing"

	"github.com/goccy/go-json"
)

func ptr(f float64) *float64 { return &f }

func TestTelemetryReading_HasCoordinates(t *testing.T) {
	tests := []struct {
		name    string
		reading *TelemetryReading
		want    bool
	}{
		{"nil reading", nil, false},
		{"no coordinates", &TelemetryReading{}, false},
		{"longitude only", &TelemetryReading{Longitude: ptr(10)}, false},
		{"zero pair", &TelemetryReading{Longitude: ptr(0), Latitude: ptr(0)}, false},
		{"zero longitude on meridian", &TelemetryReading{Longitude: ptr(0), Latitude: ptr(51.5)}, true},
		{"nan", &TelemetryReading{Longitude: ptr(math.NaN()), Latitude: ptr(1)}, false},
		{"normal", &TelemetryReading{Longitude: ptr(-98.2), Latitude: ptr(39.4)}, true},
	}
	for _, tt := range tests {
		if got := tt.reading.HasCoordinates(); got != tt.want {
			t.Errorf("%s: HasCoordinates() = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestTelemetryReading_DecodeMissingCoordinates(t *testing.T) {
	var r TelemetryReading
	if err := json.Unmarshal([]byte(`{"device_id":3,"temperature":21.5,"soil_moisture":0.4}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if r.Longitude != nil || r.Latitude != nil {
		t.Error("coordinates should stay nil when absent")
	}
	if r.Temperature != 21.5 || r.SoilMoisture != 0.4 {
		t.Errorf("unexpected values %+v", r)
	}
}

func TestDevice_KeyAndDisplayName(t *testing.T) {
	d := Device{ID: 42, SerialNumber: "SN-42"}
	if d.Key() != "42" {
		t.Errorf("Key() = %q", d.Key())
	}
	if d.DisplayName() != "SN-42" {
		t.Errorf("DisplayName() = %q", d.DisplayName())
	}
	d.Name = "North field"
	if d.DisplayName() != "North field" {
		t.Errorf("DisplayName() = %q", d.DisplayName())
	}
}

func TestDefaultOverlayStyleFlags(t *testing.T) {
	f := DefaultOverlayStyleFlags()
	if !f.ShowTemperature || !f.ShowMoisture || f.ShowNutrients {
		t.Errorf("DefaultOverlayStyleFlags() = %+v", f)
	}
}

func TestDeviceLocation_String(t *testing.T) {
	l := DeviceLocation{DeviceID: "1", Longitude: -98.123456, Latitude: 39.5}
	if got := l.String(); got != "-98.12346, 39.50000" {
		t.Errorf("String() = %q", got)
	}
}

func TestTelemetryReading_ObservedAt(t *testing.T) {
	for _, in := range []string{"2025-06-01T10:00:00Z", "2025-06-01T10:00:00", "2025-06-01 10:00:00"} {
		r := TelemetryReading{CreatedAt: in}
		ts, ok := r.ObservedAt()
		if !ok {
			t.Errorf("ObservedAt(%q) not parsed", in)
			continue
		}
		if ts.Hour() != 10 || ts.Day() != 1 {
			t.Errorf("ObservedAt(%q) = %v", in, ts)
		}
	}
	if _, ok := (&TelemetryReading{CreatedAt: "yesterday"}).ObservedAt(); ok {
		t.Error("unknown format should not parse")
	}
}
