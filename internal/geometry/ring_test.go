// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package geometry

import (
	"math"
	"testing"

	geojson "github.com/paulmach/go.geojson"
)

const epsilon = 1e-9

func TestBuildCircleRing_PointCountAndClosure(t *testing.T) {
	center := &Point{Longitude: -98, Latitude: 39}

	for _, n := range []int{3, 8, 64, 100} {
		ring := BuildCircleRing(center, 2.5, n)
		if len(ring) != n+1 {
			t.Errorf("segments=%d: len = %d, want %d", n, len(ring), n+1)
		}
		if !ring.Closed() {
			t.Errorf("segments=%d: ring not closed", n)
		}
	}
}

func TestBuildCircleRing_DefaultSegments(t *testing.T) {
	center := &Point{Longitude: 1, Latitude: 1}
	for _, n := range []int{0, -5} {
		if got := len(BuildCircleRing(center, 1, n)); got != DefaultSegments+1 {
			t.Errorf("segments=%d: len = %d, want %d", n, got, DefaultSegments+1)
		}
	}
}

func TestBuildCircleRing_VerticesOnCircle(t *testing.T) {
	center := &Point{Longitude: 10, Latitude: -20}
	const r = 3.0

	ring := BuildCircleRing(center, r, 64)
	for i, v := range ring {
		d := math.Hypot(v[0]-center.Longitude, v[1]-center.Latitude)
		if math.Abs(d-r) > epsilon {
			t.Errorf("vertex %d at distance %v, want %v", i, d, r)
		}
	}

	// First vertex sits at angle 0, due east of the center.
	if math.Abs(ring[0][0]-13) > epsilon || math.Abs(ring[0][1]+20) > epsilon {
		t.Errorf("first vertex = %v, want [13 -20]", ring[0])
	}
	// Quarter turn lands due north.
	if math.Abs(ring[16][0]-10) > epsilon || math.Abs(ring[16][1]+17) > epsilon {
		t.Errorf("vertex 16 = %v, want [10 -17]", ring[16])
	}
}

func TestBuildCircleRing_ZeroRadius(t *testing.T) {
	center := &Point{Longitude: 5, Latitude: 6}
	for _, v := range BuildCircleRing(center, 0, 16) {
		if v[0] != 5 || v[1] != 6 {
			t.Fatalf("zero radius vertex = %v, want center", v)
		}
	}
}

func TestBuildCircleRing_InvalidCenter(t *testing.T) {
	tests := []struct {
		name   string
		center *Point
	}{
		{"nil", nil},
		{"nan longitude", &Point{Longitude: math.NaN(), Latitude: 1}},
		{"nan latitude", &Point{Longitude: 1, Latitude: math.NaN()}},
		{"infinite", &Point{Longitude: math.Inf(-1), Latitude: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ring := BuildCircleRing(tt.center, 5, 64)
			if len(ring) != 3 {
				t.Fatalf("len = %d, want degenerate 3", len(ring))
			}
			for _, v := range ring {
				if v[0] != 0 || v[1] != 0 {
					t.Errorf("degenerate vertex = %v, want [0 0]", v)
				}
			}
		})
	}
}

func TestCirclePolygon(t *testing.T) {
	g := CirclePolygon(&Point{Longitude: 1, Latitude: 2}, 1, 32)
	if g.Type != geojson.GeometryPolygon {
		t.Fatalf("Type = %s, want Polygon", g.Type)
	}
	if len(g.Polygon) != 1 || len(g.Polygon[0]) != 33 {
		t.Errorf("polygon rings = %d, vertices = %d", len(g.Polygon), len(g.Polygon[0]))
	}
}

func TestPointGeometry(t *testing.T) {
	g := PointGeometry(Point{Longitude: -98, Latitude: 39})
	if !g.IsPoint() || g.Point[0] != -98 || g.Point[1] != 39 {
		t.Errorf("PointGeometry() = %+v", g)
	}
}

// ===================================================================================================
// Radius scale
// ===================================================================================================

func TestRadiusScale(t *testing.T) {
	s := DefaultRadiusScale()

	tests := []struct {
		metric Metric
		value  float64
		want   float64
	}{
		{MetricTemperature, 21.5, 43},
		{MetricMoisture, 0.4, 2},
		{MetricNutrient, 10, 30},
		{MetricTemperature, -5, 0},
		{MetricMoisture, math.NaN(), 0},
		{MetricNutrient, math.Inf(1), 0},
		{Metric("unknown"), 10, 0},
	}
	for _, tt := range tests {
		if got := s.Radius(tt.metric, tt.value); math.Abs(got-tt.want) > epsilon {
			t.Errorf("Radius(%s, %v) = %v, want %v", tt.metric, tt.value, got, tt.want)
		}
	}
}

// ===================================================================================================
// Bounds
// ===================================================================================================

func TestBoundsOf(t *testing.T) {
	if _, ok := BoundsOf(nil); ok {
		t.Error("BoundsOf(nil) should report false")
	}

	b, ok := BoundsOf([]Point{
		{Longitude: -100, Latitude: 40},
		{Longitude: math.NaN(), Latitude: 0},
		{Longitude: -90, Latitude: 30},
		{Longitude: -95, Latitude: 45},
	})
	if !ok {
		t.Fatal("BoundsOf() should report true")
	}
	want := Bounds{MinLongitude: -100, MinLatitude: 30, MaxLongitude: -90, MaxLatitude: 45}
	if b != want {
		t.Errorf("BoundsOf() = %+v, want %+v", b, want)
	}
	if c := b.Center(); c.Longitude != -95 || c.Latitude != 37.5 {
		t.Errorf("Center() = %+v", c)
	}
	if b.IsPoint() {
		t.Error("IsPoint() = true for a box")
	}

	single, _ := BoundsOf([]Point{{Longitude: 1, Latitude: 2}})
	if !single.IsPoint() {
		t.Error("IsPoint() = false for one point")
	}
}
