// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package mapview

import (
	"context"

	geojson "github.com/paulmach/go.geojson"

	"github.com/tomtom215/fieldmap/internal/geometry"
)

// Handle identifies one view created by a Surface.
type Handle string

// Viewport positions the camera. Bounds, when set, takes precedence over
// Center and Zoom.
type Viewport struct {
	Center geometry.Point   `json:"center"`
	Zoom   float64          `json:"zoom"`
	Bounds *geometry.Bounds `json:"bounds,omitempty"`
}

// OverlayKind identifies what an overlay depicts.
type OverlayKind string

const (
	KindDeviceMarker    OverlayKind = "device_marker"
	KindLocationMarker  OverlayKind = "location_marker"
	KindTemperatureRing OverlayKind = "temperature_ring"
	KindMoistureRing    OverlayKind = "moisture_ring"
	KindNutrientRing    OverlayKind = "nutrient_ring"
)

// Overlay is one graphic on the map's overlay layer.
type Overlay struct {
	Kind       OverlayKind       `json:"kind"`
	Geometry   *geojson.Geometry `json:"geometry"`
	Style      Style             `json:"style"`
	Attributes map[string]string `json:"attributes,omitempty"`
}

// Surface is the map rendering engine. Implementations must tolerate Destroy
// being called for a handle with pending operations.
type Surface interface {
	// Create builds a view bound to container and blocks until the engine
	// reports it ready or ctx ends.
	Create(ctx context.Context, container string, view Viewport) (Handle, error)
	AddOverlay(h Handle, o Overlay) error
	RemoveAllOverlays(h Handle) error
	PanTo(h Handle, view Viewport) error
	Destroy(h Handle) error
}
