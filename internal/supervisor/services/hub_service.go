// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package services

import (
	"context"
)

// SessionHub is satisfied by *websocket.Hub. Declared here so the supervisor
// does not import the websocket package.
type SessionHub interface {
	RunWithContext(ctx context.Context) error
}

// MapHubService runs the map session hub under supervision.
type MapHubService struct {
	hub  SessionHub
	name string
}

// NewMapHubService wraps hub.
func NewMapHubService(hub SessionHub) *MapHubService {
	return &MapHubService{
		hub:  hub,
		name: "map-session-hub",
	}
}

// Serve implements suture.Service. The hub closes every connected session
// before returning.
func (m *MapHubService) Serve(ctx context.Context) error {
	return m.hub.RunWithContext(ctx)
}

// String names the service in supervisor logs.
func (m *MapHubService) String() string {
	return m.name
}
