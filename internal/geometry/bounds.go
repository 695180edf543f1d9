// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package geometry

// Bounds is an axis-aligned lon/lat box.
type Bounds struct {
	MinLongitude float64 `json:"min_longitude"`
	MinLatitude  float64 `json:"min_latitude"`
	MaxLongitude float64 `json:"max_longitude"`
	MaxLatitude  float64 `json:"max_latitude"`
}

// BoundsOf returns the smallest box containing every valid point. ok is false
// when no point is valid.
func BoundsOf(points []Point) (b Bounds, ok bool) {
	for i := range points {
		p := &points[i]
		if !p.Valid() {
			continue
		}
		if !ok {
			b = Bounds{p.Longitude, p.Latitude, p.Longitude, p.Latitude}
			ok = true
			continue
		}
		b.MinLongitude = min(b.MinLongitude, p.Longitude)
		b.MinLatitude = min(b.MinLatitude, p.Latitude)
		b.MaxLongitude = max(b.MaxLongitude, p.Longitude)
		b.MaxLatitude = max(b.MaxLatitude, p.Latitude)
	}
	return b, ok
}

// Center returns the midpoint of b.
func (b Bounds) Center() Point {
	return Point{
		Longitude: (b.MinLongitude + b.MaxLongitude) / 2,
		Latitude:  (b.MinLatitude + b.MaxLatitude) / 2,
	}
}

// IsPoint reports whether b has zero extent.
func (b Bounds) IsPoint() bool {
	return b.MinLongitude == b.MaxLongitude && b.MinLatitude == b.MaxLatitude
}
