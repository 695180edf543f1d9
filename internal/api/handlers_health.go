// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"net/http"
	"time"
)

// HealthLive handles liveness probes. It never touches dependencies.
func (h *Handler) HealthLive(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(w, r, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	})
}

// HealthReady handles readiness probes. The service is not ready while the
// telemetry circuit breaker is open, since no device data can be fetched.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	breakerState := "disabled"
	if h.breaker != nil {
		breakerState = h.breaker.State()
	}
	ready := h.svc != nil && h.wsHub != nil && breakerState != "open"

	data := map[string]interface{}{
		"ready_to_serve":    ready,
		"telemetry_breaker": breakerState,
		"uptime":            time.Since(h.startTime).Seconds(),
	}
	if h.svc != nil {
		data["remembered_devices"] = h.svc.Cache().Len()
	}
	if h.wsHub != nil {
		data["map_sessions"] = h.wsHub.GetClientCount()
	}

	rw := NewResponseWriter(w, r)
	if !ready {
		rw.ErrorWithDetails(http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service is not ready", data)
		return
	}
	rw.Success(data)
}
