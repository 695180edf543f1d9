// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/dashboard"
	"github.com/tomtom215/fieldmap/internal/logging"
	ws "github.com/tomtom215/fieldmap/internal/websocket"
)

// BreakerState reports the telemetry circuit breaker state: "closed",
// "half-open" or "open".
type BreakerState interface {
	State() string
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers.go: Handler struct, constructor, WebSocket origin checks
//   - handlers_health.go: liveness and readiness probes
//   - handlers_devices.go: device list and remembered locations
//   - handlers_export.go: KML export
//   - handlers_map.go: GeoJSON overlay preview
//   - handlers_websocket.go: map session upgrade
type Handler struct {
	svc       *dashboard.Service
	wsHub     *ws.Hub
	config    *config.Config
	breaker   BreakerState
	startTime time.Time
}

// NewHandler creates a handler. cfg may be nil in tests; WebSocket origins
// are then not restricted.
//
//	handler := api.NewHandler(svc, hub, cfg)
//	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
//	http.ListenAndServe(cfg.Server.Addr(), router.SetupChi())
func NewHandler(svc *dashboard.Service, wsHub *ws.Hub, cfg *config.Config) *Handler {
	return &Handler{
		svc:       svc,
		wsHub:     wsHub,
		config:    cfg,
		startTime: time.Now(),
	}
}

// SetTelemetryBreaker lets the readiness probe report an open breaker.
func (h *Handler) SetTelemetryBreaker(b BreakerState) {
	h.breaker = b
}

func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin only admits browsers from configured origins.
// Browsers always send Origin on WebSocket handshakes.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		logging.Warn().Msg("WebSocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowed := range h.config.Security.CORSOrigins {
		if allowed == "*" || allowed == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("WebSocket connection rejected from unauthorized origin")
	return false
}

// sanitizeLogValue strips control characters and bounds the length of
// client-supplied values before they reach the logs.
func sanitizeLogValue(s string) string {
	const maxLen = 200
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	if len(s) > maxLen {
		s = s[:maxLen] + "..."
	}
	return s
}
