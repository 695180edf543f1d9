// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"image/color"
	"io"
	"net/http"
	"time"

	"github.com/twpayne/go-kml/v3"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/models"
)

const (
	kmlContentType   = "application/vnd.google-earth.kml+xml"
	kmlLocationStyle = "device-location"
)

// locationMarkerColor matches the marker colour of the all-devices map view.
var locationMarkerColor = color.RGBA{R: 0, G: 120, B: 255, A: 255}

// writeLocationsKML renders remembered locations as one placemark each.
func writeLocationsKML(w io.Writer, locations []models.DeviceLocation, generated time.Time) error {
	elements := []kml.Element{
		kml.Name("Fieldmap device locations"),
		kml.Description("Generated " + generated.UTC().Format(time.RFC3339)),
		kml.SharedStyle(kmlLocationStyle,
			kml.IconStyle(
				kml.Color(locationMarkerColor),
			),
		),
	}

	for _, loc := range locations {
		elements = append(elements, kml.Placemark(
			kml.Name("Device "+loc.DeviceID),
			kml.Description("Device ID: "+loc.DeviceID+"\nLocation: "+loc.String()),
			kml.StyleURL("#"+kmlLocationStyle),
			kml.Point(
				kml.Coordinates(kml.Coordinate{Lon: loc.Longitude, Lat: loc.Latitude}),
			),
		))
	}

	return kml.KML(kml.Document(elements...)).WriteIndent(w, "", "  ")
}

// ExportKML downloads every remembered location as a KML document.
func (h *Handler) ExportKML(w http.ResponseWriter, r *http.Request) {
	locations := h.svc.Cache().All()

	w.Header().Set("Content-Type", kmlContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="fieldmap-locations.kml"`)
	if err := writeLocationsKML(w, locations, time.Now()); err != nil {
		// Headers are gone; all we can do is log.
		logging.Ctx(r.Context()).Error().Err(err).Int("devices", len(locations)).Msg("Failed to write KML export")
	}
}
