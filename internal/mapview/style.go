// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package mapview

import "github.com/tomtom215/fieldmap/internal/geometry"

// Color is RGB or RGBA with alpha in [0, 1].
type Color []float64

// Style is the symbol used to draw an overlay.
type Style struct {
	Color        Color   `json:"color"`
	Size         float64 `json:"size,omitempty"`
	OutlineColor Color   `json:"outline_color"`
	OutlineWidth float64 `json:"outline_width"`
}

var white = Color{255, 255, 255}

// DeviceMarkerStyle marks the selected device.
func DeviceMarkerStyle() Style {
	return Style{Color: Color{98, 168, 0}, Size: 12, OutlineColor: white, OutlineWidth: 2}
}

// LocationMarkerStyle marks remembered devices when nothing is selected.
func LocationMarkerStyle() Style {
	return Style{Color: Color{0, 120, 255}, Size: 12, OutlineColor: white, OutlineWidth: 2}
}

// RingStyle returns the translucent fill for a metric ring.
func RingStyle(m geometry.Metric) Style {
	var rgb Color
	switch m {
	case geometry.MetricTemperature:
		rgb = Color{255, 0, 0}
	case geometry.MetricMoisture:
		rgb = Color{0, 0, 255}
	default:
		rgb = Color{0, 255, 0}
	}
	return Style{
		Color:        Color{rgb[0], rgb[1], rgb[2], 0.2},
		OutlineColor: Color{rgb[0], rgb[1], rgb[2], 0.5},
		OutlineWidth: 1,
	}
}

func ringKind(m geometry.Metric) OverlayKind {
	switch m {
	case geometry.MetricTemperature:
		return KindTemperatureRing
	case geometry.MetricMoisture:
		return KindMoistureRing
	default:
		return KindNutrientRing
	}
}
