// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package dashboard

import (
	"context"
	"errors"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/mapview"
	"github.com/tomtom215/fieldmap/internal/validation"
	"github.com/tomtom215/fieldmap/internal/websocket"
)

// messageSender is the part of websocket.Client the bridge writes to.
type messageSender interface {
	Send(msg websocket.Message) error
}

// WSBridge turns browser messages into Session calls and session state into
// session_state messages.
type WSBridge struct {
	session *Session
	out     messageSender
}

var _ websocket.Handler = (*WSBridge)(nil)

// Attach creates a session for client and installs the bridge as its
// handler. Call before client.Start.
func (s *Service) Attach(ctx context.Context, client *websocket.Client) *Session {
	b := &WSBridge{out: client}
	b.session = s.NewSession(ctx, client.Surface(), b.publishState)
	client.SetHandler(b)
	return b.session
}

func (b *WSBridge) publishState(state State) {
	if err := b.out.Send(websocket.Message{Type: websocket.MessageTypeSessionState, Data: state}); err != nil {
		logging.Debug().Err(err).Str("session_id", state.SessionID).Msg("Dropped session_state")
	}
}

func (b *WSBridge) sendError(code, message string, retryable bool) {
	_ = b.out.Send(websocket.Message{
		Type: websocket.MessageTypeError,
		Data: websocket.ErrorData{Code: code, Message: message, Retryable: retryable},
	})
}

// selectDeviceRequest validates select_device; an empty id deselects.
type selectDeviceRequest struct {
	DeviceID string `json:"device_id" validate:"omitempty,deviceid"`
}

// HandleMessage implements websocket.Handler.
func (b *WSBridge) HandleMessage(ctx context.Context, msg websocket.Inbound) {
	switch msg.Type {
	case websocket.MessageTypeMount:
		var data websocket.MountData
		if err := msg.Decode(&data); err != nil || data.Container == "" {
			b.sendError("INVALID_MESSAGE", "mount requires a container", false)
			return
		}
		if err := b.session.Mount(data.Container); err != nil {
			if errors.Is(err, mapview.ErrInvalidPhase) {
				b.sendError("ALREADY_MOUNTED", "this session already has a map", false)
				return
			}
			b.sendError("MOUNT_FAILED", err.Error(), false)
			return
		}
		go func() {
			if _, err := b.session.LoadDevices(ctx); err != nil {
				logging.Ctx(ctx).Warn().Err(err).Msg("Failed to load devices for session")
			}
		}()

	case websocket.MessageTypeSelectDevice:
		var req selectDeviceRequest
		if err := msg.Decode(&req); err != nil {
			b.sendError("INVALID_MESSAGE", "select_device payload is invalid", false)
			return
		}
		if err := validation.ValidateStruct(&req); err != nil {
			b.sendError("VALIDATION_ERROR", err.Error(), false)
			return
		}
		b.session.SelectDevice(req.DeviceID)

	case websocket.MessageTypeSetStyle:
		flags := b.session.State().Flags
		if err := msg.Decode(&flags); err != nil {
			b.sendError("INVALID_MESSAGE", "set_style payload is invalid", false)
			return
		}
		b.session.SetStyleFlags(flags)

	default:
		b.sendError("UNKNOWN_MESSAGE", "unknown message type "+msg.Type, false)
	}
}

// Closed implements websocket.Handler.
func (b *WSBridge) Closed() {
	b.session.Unmount()
}
