// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package api

import (
	"context"
	"net/http"

	"github.com/tomtom215/fieldmap/internal/logging"
	ws "github.com/tomtom215/fieldmap/internal/websocket"
)

// WebSocket upgrades the connection and starts a map session on it. The
// browser then drives the session with mount, select_device and set_style
// messages.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	if h.wsHub == nil {
		logging.Warn().Msg("WebSocket connection rejected: hub not initialized")
		NewResponseWriter(w, r).ServiceUnavailable("WebSocket service unavailable")
		return
	}

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Ctx(r.Context()).Error().Err(err).Msg("WebSocket upgrade error")
		return
	}

	// The session outlives this handler; keep the request's log values only.
	ctx := logging.ContextWithSessionID(context.WithoutCancel(r.Context()), logging.GenerateSessionID())

	client := ws.NewClient(ctx, h.wsHub, conn)
	h.svc.Attach(ctx, client)
	h.wsHub.Register <- client
	client.Start()

	logging.Ctx(ctx).Debug().Uint64("client_id", client.ID()).Msg("Map session connected")
}
