// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/tomtom215/fieldmap/internal/dashboard"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/models"
)

const geoJSONContentType = "application/geo+json"

// parseStyleFlags reads temperature, moisture and nutrients booleans from
// the query string on top of the default flags.
func parseStyleFlags(q url.Values) (models.OverlayStyleFlags, error) {
	flags := models.DefaultOverlayStyleFlags()
	fields := []struct {
		name string
		dst  *bool
	}{
		{"temperature", &flags.ShowTemperature},
		{"moisture", &flags.ShowMoisture},
		{"nutrients", &flags.ShowNutrients},
	}
	for _, f := range fields {
		raw := q.Get(f.name)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return flags, fmt.Errorf("%s must be a boolean", f.name)
		}
		*f.dst = v
	}
	return flags, nil
}

// MapOverlays returns the overlays a map session would draw for the latest
// reading of {deviceID} as a GeoJSON FeatureCollection.
//
// When the telemetry fetch fails but the device has a remembered location,
// the marker is still returned with X-Fieldmap-Stale: true. The response
// carries the plan mode (reading, cached, empty) in X-Fieldmap-Mode.
func (h *Handler) MapOverlays(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	deviceID, ok := deviceIDFromPath(rw, r)
	if !ok {
		return
	}
	flags, err := parseStyleFlags(r.URL.Query())
	if err != nil {
		rw.BadRequest(err.Error())
		return
	}

	plan, err := h.svc.Overlays(r.Context(), deviceID, flags)
	switch {
	case errors.Is(err, dashboard.ErrUnknownDevice):
		rw.NotFound("Unknown device " + deviceID)
		return
	case err != nil && len(plan.Overlays) == 0:
		writeTelemetryError(rw, err)
		return
	case err != nil:
		logging.Ctx(r.Context()).Warn().Err(err).Str("device_id", deviceID).Msg("Serving remembered location after failed fetch")
		w.Header().Set("X-Fieldmap-Stale", "true")
	}

	body, err := plan.FeatureCollection().MarshalJSON()
	if err != nil {
		rw.InternalError("Failed to encode overlays")
		return
	}

	w.Header().Set("Content-Type", geoJSONContentType)
	w.Header().Set("X-Fieldmap-Mode", string(plan.Mode))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		logging.Ctx(r.Context()).Debug().Err(err).Msg("Client went away during overlay response")
	}
}
