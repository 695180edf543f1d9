// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package geometry

// Metric names a reading value that can be drawn as a ring.
type Metric string

const (
	MetricTemperature Metric = "temperature"
	MetricMoisture    Metric = "moisture"
	MetricNutrient    Metric = "nutrient"
)

// RadiusScale converts reading values to ring radii with one linear factor
// per metric.
type RadiusScale struct {
	Temperature float64
	Moisture    float64
	Nutrient    float64
}

// DefaultRadiusScale is the scale used by the dashboard: temperature x2,
// soil moisture x5, nutrient level x3.
func DefaultRadiusScale() RadiusScale {
	return RadiusScale{Temperature: 2, Moisture: 5, Nutrient: 3}
}

// Radius returns the ring radius for value. Negative or non-finite results
// are reported as 0, which callers treat as "no ring".
func (s RadiusScale) Radius(m Metric, value float64) float64 {
	var factor float64
	switch m {
	case MetricTemperature:
		factor = s.Temperature
	case MetricMoisture:
		factor = s.Moisture
	case MetricNutrient:
		factor = s.Nutrient
	}
	r := factor * value
	if !isFinite(r) || r < 0 {
		return 0
	}
	return r
}
