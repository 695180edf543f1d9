// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

// Package geometry builds the planar shapes drawn on the sensor map: radius
// rings around a device, marker points, and the bounds used to fit a set of
// points into view. Coordinates are [longitude, latitude] pairs in degrees;
// rings are planar and not geodesically correct.
package geometry

import (
	"math"

	geojson "github.com/paulmach/go.geojson"
)

// DefaultSegments is the number of vertices in a ring when the caller passes
// a non-positive segment count.
const DefaultSegments = 64

// Point is a WGS84 position.
type Point struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Valid reports whether both coordinates are finite numbers.
func (p *Point) Valid() bool {
	if p == nil {
		return false
	}
	return isFinite(p.Longitude) && isFinite(p.Latitude)
}

// Coordinates returns p as a GeoJSON position.
func (p Point) Coordinates() []float64 {
	return []float64{p.Longitude, p.Latitude}
}

// Ring is a closed sequence of positions; the last equals the first.
type Ring [][]float64

// degenerateRing is returned for an unusable center so callers always get a
// structurally valid polygon.
func degenerateRing() Ring {
	return Ring{{0, 0}, {0, 0}, {0, 0}}
}

// BuildCircleRing approximates a circle of the given radius (in degrees)
// around center with segments evenly spaced vertices, then repeats the first
// vertex to close the ring, so the result has segments+1 points.
func BuildCircleRing(center *Point, radius float64, segments int) Ring {
	if !center.Valid() {
		return degenerateRing()
	}
	if segments <= 0 {
		segments = DefaultSegments
	}

	ring := make(Ring, 0, segments+1)
	for i := 0; i < segments; i++ {
		angle := float64(i) * 2 * math.Pi / float64(segments)
		ring = append(ring, []float64{
			center.Longitude + radius*math.Cos(angle),
			center.Latitude + radius*math.Sin(angle),
		})
	}
	first := ring[0]
	ring = append(ring, []float64{first[0], first[1]})
	return ring
}

// Closed reports whether the ring's last vertex equals its first.
func (r Ring) Closed() bool {
	if len(r) < 2 {
		return false
	}
	first, last := r[0], r[len(r)-1]
	return first[0] == last[0] && first[1] == last[1]
}

// CirclePolygon wraps BuildCircleRing as a single-ring GeoJSON polygon.
func CirclePolygon(center *Point, radius float64, segments int) *geojson.Geometry {
	return geojson.NewPolygonGeometry([][][]float64{BuildCircleRing(center, radius, segments)})
}

// PointGeometry returns p as a GeoJSON point.
func PointGeometry(p Point) *geojson.Geometry {
	return geojson.NewPointGeometry(p.Coordinates())
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
