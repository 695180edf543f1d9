// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package websocket

import (
	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/mapview"
)

// Browser to server.
const (
	MessageTypeMount        = "mount"
	MessageTypeMapReady     = "map_ready"
	MessageTypeMapError     = "map_error"
	MessageTypeSelectDevice = "select_device"
	MessageTypeSetStyle     = "set_style"
	MessageTypePing         = "ping"
)

// Server to browser.
const (
	MessageTypePong            = "pong"
	MessageTypeMapCreate       = "map_create"
	MessageTypeOverlaysClear   = "overlays_clear"
	MessageTypeOverlayAdd      = "overlay_add"
	MessageTypePanTo           = "pan_to"
	MessageTypeMapDestroy      = "map_destroy"
	MessageTypeSessionState    = "session_state"
	MessageTypeLocationUpdated = "location_updated"
	MessageTypeError           = "error"
)

// Message is an outbound frame.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

// Inbound is a frame received from the browser. Data is decoded by whoever
// handles Type.
type Inbound struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// Decode unmarshals Data into v. Missing data leaves v untouched.
func (m Inbound) Decode(v interface{}) error {
	if len(m.Data) == 0 {
		return nil
	}
	return json.Unmarshal(m.Data, v)
}

// MountData is the payload of mount.
type MountData struct {
	Container string `json:"container"`
}

// SelectDeviceData is the payload of select_device.
type SelectDeviceData struct {
	DeviceID string `json:"device_id"`
}

// MapReadyData is the payload of map_ready and map_error.
type MapReadyData struct {
	Handle mapview.Handle `json:"handle"`
	Error  string         `json:"error,omitempty"`
}

// MapCreateData is the payload of map_create.
type MapCreateData struct {
	Handle    mapview.Handle   `json:"handle"`
	Container string           `json:"container"`
	View      mapview.Viewport `json:"view"`
}

// HandleData carries just a handle (overlays_clear, map_destroy).
type HandleData struct {
	Handle mapview.Handle `json:"handle"`
}

// OverlayAddData is the payload of overlay_add.
type OverlayAddData struct {
	Handle  mapview.Handle  `json:"handle"`
	Overlay mapview.Overlay `json:"overlay"`
}

// PanToData is the payload of pan_to.
type PanToData struct {
	Handle mapview.Handle   `json:"handle"`
	View   mapview.Viewport `json:"view"`
}

// ErrorData is the payload of error.
type ErrorData struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable"`
}
