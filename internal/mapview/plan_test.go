// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package mapview

import (
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/geometry"
	"github.com/tomtom215/fieldmap/internal/models"
)

func TestBuildPlan_ZeroRadiusSkipsRing(t *testing.T) {
	reading := &models.TelemetryReading{Longitude: ptr(1), Latitude: ptr(1), Temperature: -5, SoilMoisture: 0}
	plan := BuildPlan(Scene{
		DeviceID: "1",
		Reading:  reading,
		Flags:    models.OverlayStyleFlags{ShowTemperature: true, ShowMoisture: true},
	}, newCache(t), DefaultOptions())

	if len(plan.Overlays) != 1 || plan.Overlays[0].Kind != KindDeviceMarker {
		t.Errorf("overlays = %+v, want marker only", plan.Overlays)
	}
}

func TestBuildPlan_RingGeometry(t *testing.T) {
	opts := DefaultOptions()
	opts.Segments = 8
	reading := &models.TelemetryReading{Longitude: ptr(10), Latitude: ptr(20), SoilMoisture: 1}
	plan := BuildPlan(Scene{
		DeviceID: "1",
		Reading:  reading,
		Flags:    models.OverlayStyleFlags{ShowMoisture: true},
	}, newCache(t), opts)

	if len(plan.Overlays) != 2 {
		t.Fatalf("overlays = %d, want 2", len(plan.Overlays))
	}
	ring := plan.Overlays[1]
	if !ring.Geometry.IsPolygon() {
		t.Fatalf("ring geometry type = %s", ring.Geometry.Type)
	}
	pts := ring.Geometry.Polygon[0]
	if len(pts) != 9 {
		t.Errorf("ring points = %d, want 9", len(pts))
	}
	// moisture 1 x scale 5 = radius 5
	if pts[0][0] != 15 || pts[0][1] != 20 {
		t.Errorf("first vertex = %v, want [15 20]", pts[0])
	}
	if ring.Style.Color[3] != 0.2 || ring.Style.OutlineColor[3] != 0.5 {
		t.Errorf("ring style = %+v", ring.Style)
	}
}

func TestBuildPlan_NoSelectionEmptyCache(t *testing.T) {
	plan := BuildPlan(Scene{}, newCache(t), DefaultOptions())
	if plan.Mode != ModeEmpty || len(plan.Overlays) != 0 || len(plan.Pan) != 0 {
		t.Errorf("plan = %+v, want empty", plan)
	}
}

func TestFitViewport(t *testing.T) {
	if _, ok := FitViewport(nil, 12); ok {
		t.Error("FitViewport(nil) ok = true")
	}

	v, ok := FitViewport([]geometry.Point{{Longitude: 3, Latitude: 4}}, 12)
	if !ok || v.Bounds != nil || v.Zoom != 12 || v.Center.Longitude != 3 {
		t.Errorf("single point viewport = %+v", v)
	}

	v, ok = FitViewport([]geometry.Point{{Longitude: 0, Latitude: 0}, {Longitude: 10, Latitude: 20}}, 12)
	if !ok || v.Bounds == nil {
		t.Fatalf("multi point viewport = %+v", v)
	}
	if v.Center.Longitude != 5 || v.Center.Latitude != 10 {
		t.Errorf("center = %+v, want (5, 10)", v.Center)
	}
}

func TestPlanFeatureCollection(t *testing.T) {
	reading := &models.TelemetryReading{Longitude: ptr(1), Latitude: ptr(2), Temperature: 1}
	plan := BuildPlan(Scene{
		DeviceID: "9",
		Reading:  reading,
		Flags:    models.OverlayStyleFlags{ShowTemperature: true},
	}, newCache(t), DefaultOptions())

	fc := plan.FeatureCollection()
	if len(fc.Features) != 2 {
		t.Fatalf("features = %d, want 2", len(fc.Features))
	}
	if kind, _ := fc.Features[1].PropertyString("kind"); kind != string(KindTemperatureRing) {
		t.Errorf("kind = %q", kind)
	}
	if id, _ := fc.Features[0].PropertyString("device_id"); id != "9" {
		t.Errorf("device_id = %q", id)
	}

	raw, err := fc.MarshalJSON()
	if err != nil {
		t.Fatalf("MarshalJSON() error = %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("invalid GeoJSON: %v", err)
	}
	if decoded["type"] != "FeatureCollection" {
		t.Errorf("type = %v", decoded["type"])
	}
}

func TestOptionsFromConfig(t *testing.T) {
	cfg := &config.MapConfig{
		DefaultLongitude: 1, DefaultLatitude: 2, DefaultZoom: 3,
		LocatedZoom: 9, FocusZoom: 13, RingSegments: 32,
		RadiusScale: config.RadiusScaleConfig{Temperature: 1, Moisture: 2, Nutrient: 4},
	}
	opts := OptionsFromConfig(cfg)
	if opts.Segments != 32 || opts.FocusZoom != 13 || opts.Scale.Nutrient != 4 {
		t.Errorf("opts = %+v", opts)
	}
	if opts.DefaultCenter.Longitude != 1 || opts.DefaultCenter.Latitude != 2 {
		t.Errorf("DefaultCenter = %+v", opts.DefaultCenter)
	}
}
