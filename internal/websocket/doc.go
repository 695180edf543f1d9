// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package websocket carries map sessions between the server and browsers.

Key Components:

  - Hub: tracks connected clients and broadcasts location updates to all
  - Client: one connection with a read goroutine and a write goroutine
  - Surface: a mapview.Surface that drives the browser's map engine over the
    client's connection

Architecture:

	┌──────────┐
	│   Hub    │ ← location_updated broadcasts
	└────┬─────┘
	     │
	┌────┴─────┬─────────┐
	│ Client1  │ Client2 │  ← each owns one Surface and one dashboard session
	└──────────┴─────────┘

Message Types:

Browser to server:

  - mount: attach a map to a DOM container ({"container": "..."})
  - map_ready / map_error: answer to map_create for a handle
  - select_device: {"device_id": "17"}, empty id deselects
  - set_style: overlay flags
  - ping

Server to browser:

  - map_create, overlays_clear, overlay_add, pan_to, map_destroy: surface
    operations, all keyed by handle
  - session_state: selection, reading, flags, phase and banner error
  - location_updated: a device's remembered location changed
  - error, pong

Every frame is a JSON object {"type": "...", "data": {...}}.

Thread Safety:

Client.Send may be called from any goroutine and never blocks; a full send
buffer drops the message and reports an error. The hub is the only closer
of a client's send channel.
*/
package websocket
