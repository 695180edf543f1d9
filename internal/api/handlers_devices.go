// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/telemetry"
	"github.com/tomtom215/fieldmap/internal/validation"
)

// deviceParam is the validated {deviceID} path parameter.
type deviceParam struct {
	DeviceID string `validate:"deviceid"`
}

// deviceIDFromPath returns the {deviceID} URL parameter, or writes a 400 and
// returns false.
func deviceIDFromPath(rw *ResponseWriter, r *http.Request) (string, bool) {
	p := deviceParam{DeviceID: chi.URLParam(r, "deviceID")}
	if err := validation.ValidateStruct(&p); err != nil {
		rw.ValidationError("Invalid device id", err.Error())
		return "", false
	}
	return p.DeviceID, true
}

// writeTelemetryError maps telemetry failures to HTTP: an open breaker is
// 503, everything else 502.
func writeTelemetryError(rw *ResponseWriter, err error) {
	if errors.Is(err, telemetry.ErrCircuitOpen) {
		rw.ServiceUnavailable("Telemetry service temporarily unavailable")
		return
	}
	rw.ExternalServiceError("telemetry", err)
}

// Devices proxies the telemetry device list.
func (h *Handler) Devices(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)

	devices, err := h.svc.Devices(r.Context())
	if err != nil {
		writeTelemetryError(rw, err)
		return
	}
	if devices == nil {
		devices = []models.Device{}
	}
	rw.SuccessList(devices, len(devices))
}

// Locations returns every remembered device location ordered by device id.
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request) {
	all := h.svc.Cache().All()
	NewResponseWriter(w, r).SuccessList(all, len(all))
}

// Location returns the remembered location of one device.
func (h *Handler) Location(w http.ResponseWriter, r *http.Request) {
	rw := NewResponseWriter(w, r)
	deviceID, ok := deviceIDFromPath(rw, r)
	if !ok {
		return
	}

	loc, found := h.svc.Cache().Get(deviceID)
	if !found {
		rw.NotFound("No remembered location for device " + deviceID)
		return
	}
	rw.Success(loc)
}
