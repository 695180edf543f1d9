// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package websocket

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/tomtom215/fieldmap/internal/mapview"
)

// sender is the part of Client a Surface needs.
type sender interface {
	Send(msg Message) error
	Done() <-chan struct{}
}

// Surface drives the browser's map engine. Create sends map_create and waits
// for the browser to answer map_ready (or map_error) for the same handle.
// Every other operation is a fire-and-forget message.
type Surface struct {
	conn sender

	mu      sync.Mutex
	pending map[mapview.Handle]chan error
}

var _ mapview.Surface = (*Surface)(nil)

func newSurface(conn sender) *Surface {
	return &Surface{
		conn:    conn,
		pending: make(map[mapview.Handle]chan error),
	}
}

// Create asks the browser to build a map in container.
func (s *Surface) Create(ctx context.Context, container string, view mapview.Viewport) (mapview.Handle, error) {
	h := mapview.Handle(uuid.NewString())
	result := make(chan error, 1)

	s.mu.Lock()
	s.pending[h] = result
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.pending, h)
		s.mu.Unlock()
	}()

	if err := s.conn.Send(Message{Type: MessageTypeMapCreate, Data: MapCreateData{Handle: h, Container: container, View: view}}); err != nil {
		return "", fmt.Errorf("send map_create: %w", err)
	}

	select {
	case err := <-result:
		if err != nil {
			return "", err
		}
		return h, nil
	case <-ctx.Done():
		// The browser may still finish; make it drop the map.
		_ = s.conn.Send(Message{Type: MessageTypeMapDestroy, Data: HandleData{Handle: h}})
		return "", ctx.Err()
	case <-s.conn.Done():
		return "", ErrClientClosed
	}
}

// resolve completes a pending Create. It reports false when no Create is
// waiting for h.
func (s *Surface) resolve(h mapview.Handle, errMsg string) bool {
	s.mu.Lock()
	result, ok := s.pending[h]
	delete(s.pending, h)
	s.mu.Unlock()
	if !ok {
		return false
	}

	if errMsg != "" {
		result <- errors.New(errMsg)
	} else {
		result <- nil
	}
	return true
}

// AddOverlay sends overlay_add.
func (s *Surface) AddOverlay(h mapview.Handle, o mapview.Overlay) error {
	return s.conn.Send(Message{Type: MessageTypeOverlayAdd, Data: OverlayAddData{Handle: h, Overlay: o}})
}

// RemoveAllOverlays sends overlays_clear.
func (s *Surface) RemoveAllOverlays(h mapview.Handle) error {
	return s.conn.Send(Message{Type: MessageTypeOverlaysClear, Data: HandleData{Handle: h}})
}

// PanTo sends pan_to.
func (s *Surface) PanTo(h mapview.Handle, view mapview.Viewport) error {
	return s.conn.Send(Message{Type: MessageTypePanTo, Data: PanToData{Handle: h, View: view}})
}

// Destroy sends map_destroy.
func (s *Surface) Destroy(h mapview.Handle) error {
	return s.conn.Send(Message{Type: MessageTypeMapDestroy, Data: HandleData{Handle: h}})
}
