// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package mapview

import (
	"strconv"
	"time"

	geojson "github.com/paulmach/go.geojson"

	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/geometry"
	"github.com/tomtom215/fieldmap/internal/models"
)

// LocationReader is the read side of the location cache.
type LocationReader interface {
	Get(deviceID string) (models.DeviceLocation, bool)
	All() []models.DeviceLocation
	First() (models.DeviceLocation, bool)
}

// Options sizes and positions what the controller draws.
type Options struct {
	DefaultCenter geometry.Point
	DefaultZoom   float64
	LocatedZoom   float64
	FocusZoom     float64
	Segments      int
	Scale         geometry.RadiusScale
	CreateTimeout time.Duration
}

// DefaultOptions matches the dashboard's original map.
func DefaultOptions() Options {
	return Options{
		DefaultCenter: geometry.Point{Longitude: -98, Latitude: 39},
		DefaultZoom:   4,
		LocatedZoom:   10,
		FocusZoom:     12,
		Segments:      geometry.DefaultSegments,
		Scale:         geometry.DefaultRadiusScale(),
		CreateTimeout: 30 * time.Second,
	}
}

// OptionsFromConfig converts the map configuration section.
func OptionsFromConfig(cfg *config.MapConfig) Options {
	return Options{
		DefaultCenter: geometry.Point{Longitude: cfg.DefaultLongitude, Latitude: cfg.DefaultLatitude},
		DefaultZoom:   cfg.DefaultZoom,
		LocatedZoom:   cfg.LocatedZoom,
		FocusZoom:     cfg.FocusZoom,
		Segments:      cfg.RingSegments,
		Scale: geometry.RadiusScale{
			Temperature: cfg.RadiusScale.Temperature,
			Moisture:    cfg.RadiusScale.Moisture,
			Nutrient:    cfg.RadiusScale.Nutrient,
		},
		CreateTimeout: cfg.CreateTimeout,
	}
}

// Scene is the input to one render: the selection, its latest reading and
// the enabled rings. An empty DeviceID means nothing is selected.
type Scene struct {
	DeviceID string                   `json:"device_id,omitempty"`
	Reading  *models.TelemetryReading `json:"reading,omitempty"`
	Flags    models.OverlayStyleFlags `json:"flags"`
}

// Mode says which point set a plan was drawn from.
type Mode string

const (
	// ModeReading draws the live reading's coordinates.
	ModeReading Mode = "reading"
	// ModeCached draws the selected device's remembered location.
	ModeCached Mode = "cached"
	// ModeAll draws every remembered location.
	ModeAll Mode = "all"
	// ModeEmpty draws nothing.
	ModeEmpty Mode = "empty"
)

// Plan is the full set of overlays for a scene plus where to move the camera.
type Plan struct {
	Mode     Mode
	Overlays []Overlay

	// Pan lists the points to fit into view; empty leaves the camera alone.
	Pan []geometry.Point
}

// BuildPlan decides what a scene looks like:
//   - a selected device whose reading has coordinates gets a marker and the
//     enabled rings at the reading position
//   - otherwise a selected device with a remembered location gets a marker
//     there, rings when a reading is present, and the camera is moved to it
//   - with no selection every remembered location gets a marker and the
//     camera fits them all
func BuildPlan(scene Scene, locations LocationReader, opts Options) Plan {
	if scene.DeviceID == "" {
		return planAll(locations.All())
	}

	if scene.Reading != nil && scene.Reading.HasCoordinates() {
		lon, lat := scene.Reading.Coordinates()
		loc := models.DeviceLocation{DeviceID: scene.DeviceID, Longitude: lon, Latitude: lat}
		return Plan{
			Mode:     ModeReading,
			Overlays: deviceOverlays(loc, scene, opts),
		}
	}

	if loc, ok := locations.Get(scene.DeviceID); ok {
		return Plan{
			Mode:     ModeCached,
			Overlays: deviceOverlays(loc, scene, opts),
			Pan:      []geometry.Point{{Longitude: loc.Longitude, Latitude: loc.Latitude}},
		}
	}

	return Plan{Mode: ModeEmpty}
}

func planAll(all []models.DeviceLocation) Plan {
	if len(all) == 0 {
		return Plan{Mode: ModeEmpty}
	}
	plan := Plan{
		Mode:     ModeAll,
		Overlays: make([]Overlay, 0, len(all)),
		Pan:      make([]geometry.Point, 0, len(all)),
	}
	for _, loc := range all {
		p := geometry.Point{Longitude: loc.Longitude, Latitude: loc.Latitude}
		plan.Overlays = append(plan.Overlays, Overlay{
			Kind:       KindLocationMarker,
			Geometry:   geometry.PointGeometry(p),
			Style:      LocationMarkerStyle(),
			Attributes: markerAttributes(loc),
		})
		plan.Pan = append(plan.Pan, p)
	}
	return plan
}

func deviceOverlays(loc models.DeviceLocation, scene Scene, opts Options) []Overlay {
	center := geometry.Point{Longitude: loc.Longitude, Latitude: loc.Latitude}
	overlays := []Overlay{{
		Kind:       KindDeviceMarker,
		Geometry:   geometry.PointGeometry(center),
		Style:      DeviceMarkerStyle(),
		Attributes: markerAttributes(loc),
	}}

	r := scene.Reading
	if r == nil {
		return overlays
	}

	rings := []struct {
		enabled bool
		metric  geometry.Metric
		value   float64
	}{
		{scene.Flags.ShowTemperature, geometry.MetricTemperature, r.Temperature},
		{scene.Flags.ShowMoisture, geometry.MetricMoisture, r.SoilMoisture},
		{scene.Flags.ShowNutrients, geometry.MetricNutrient, r.NutrientLevel},
	}
	for _, ring := range rings {
		if !ring.enabled {
			continue
		}
		radius := opts.Scale.Radius(ring.metric, ring.value)
		if radius == 0 {
			continue
		}
		overlays = append(overlays, Overlay{
			Kind:     ringKind(ring.metric),
			Geometry: geometry.CirclePolygon(&center, radius, opts.Segments),
			Style:    RingStyle(ring.metric),
			Attributes: map[string]string{
				"device_id": loc.DeviceID,
				"metric":    string(ring.metric),
				"value":     strconv.FormatFloat(ring.value, 'f', -1, 64),
				"radius":    strconv.FormatFloat(radius, 'f', -1, 64),
			},
		})
	}
	return overlays
}

// markerAttributes carries the popup text: "Device ID: <id>" and
// "Location: <lon>, <lat>".
func markerAttributes(loc models.DeviceLocation) map[string]string {
	return map[string]string{
		"device_id": loc.DeviceID,
		"title":     "Device ID: " + loc.DeviceID,
		"location":  loc.String(),
	}
}

// FitViewport returns the camera position that shows points: one point is
// centred at focusZoom, several are fitted by bounds. ok is false when no
// point is valid.
func FitViewport(points []geometry.Point, focusZoom float64) (Viewport, bool) {
	b, ok := geometry.BoundsOf(points)
	if !ok {
		return Viewport{}, false
	}
	if b.IsPoint() {
		return Viewport{Center: b.Center(), Zoom: focusZoom}, true
	}
	return Viewport{Center: b.Center(), Zoom: focusZoom, Bounds: &b}, true
}

// FeatureCollection renders the plan as GeoJSON with the kind, style and
// attributes of each overlay as feature properties.
func (p Plan) FeatureCollection() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, o := range p.Overlays {
		f := geojson.NewFeature(o.Geometry)
		f.SetProperty("kind", string(o.Kind))
		f.SetProperty("color", []float64(o.Style.Color))
		f.SetProperty("outline_color", []float64(o.Style.OutlineColor))
		f.SetProperty("outline_width", o.Style.OutlineWidth)
		if o.Style.Size > 0 {
			f.SetProperty("size", o.Style.Size)
		}
		for k, v := range o.Attributes {
			f.SetProperty(k, v)
		}
		fc.AddFeature(f)
	}
	return fc
}
