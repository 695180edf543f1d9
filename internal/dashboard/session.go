// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package dashboard

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog"

	"github.com/tomtom215/fieldmap/internal/fetch"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/mapview"
	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/telemetry"
)

// BannerKind classifies the error shown above the map.
type BannerKind string

const (
	// BannerTransport is a retryable telemetry failure.
	BannerTransport BannerKind = "transport"
	// BannerInit means the map could not be created; the user must reload.
	BannerInit BannerKind = "init"
)

// Banner is the error surfaced to the user.
type Banner struct {
	Kind      BannerKind `json:"kind"`
	Message   string     `json:"message"`
	Retryable bool       `json:"retryable"`
}

// State is a snapshot of a session for the browser.
type State struct {
	SessionID        string                   `json:"session_id"`
	SelectedDeviceID string                   `json:"selected_device_id,omitempty"`
	Loading          bool                     `json:"loading"`
	Reading          *models.TelemetryReading `json:"reading,omitempty"`
	Flags            models.OverlayStyleFlags `json:"flags"`
	Phase            mapview.Phase            `json:"phase"`
	Mode             mapview.Mode             `json:"mode,omitempty"`
	Error            *Banner                  `json:"error,omitempty"`
}

// Session is one user's view: a selection, style flags, one fetch
// coordinator and one map controller. Only SelectDevice, SetStyleFlags,
// Mount, Unmount and LoadDevices drive it.
type Session struct {
	id          string
	svc         *Service
	controller  *mapview.Controller
	coordinator *fetch.Coordinator
	publish     func(State)
	log         zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// mu is taken before the controller's lock, never after.
	mu       sync.Mutex
	selected string
	reading  *models.TelemetryReading
	loading  bool
	flags    models.OverlayStyleFlags
	banner   *Banner
	closed   bool

	// requestID is the fetch whose result the session waits for.
	requestID string
}

// NewSession creates a session drawing on surface. publish receives a state
// snapshot after every change; it must not block.
func (s *Service) NewSession(ctx context.Context, surface mapview.Surface, publish func(State)) *Session {
	id := logging.SessionIDFromContext(ctx)
	if id == "" {
		id = logging.GenerateSessionID()
		ctx = logging.ContextWithSessionID(ctx, id)
	}
	sctx, cancel := context.WithCancel(ctx)

	sess := &Session{
		id:         id,
		svc:        s,
		controller: mapview.NewController(surface, s.cache, s.mapOpts),
		publish:    publish,
		log:        *logging.Ctx(ctx),
		ctx:        sctx,
		cancel:     cancel,
		flags:      models.DefaultOverlayStyleFlags(),
	}
	sess.coordinator = fetch.NewCoordinator(s.LatestReading, s.cache, s.fetchTimeout)
	sess.coordinator.SetListener(sess.onFetchResult)
	return sess
}

// ID returns the session id.
func (sess *Session) ID() string {
	return sess.id
}

// Controller exposes the map controller for inspection.
func (sess *Session) Controller() *mapview.Controller {
	return sess.controller
}

// State returns the current snapshot.
func (sess *Session) State() State {
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.stateLocked()
}

func (sess *Session) stateLocked() State {
	return State{
		SessionID:        sess.id,
		SelectedDeviceID: sess.selected,
		Loading:          sess.loading,
		Reading:          sess.reading,
		Flags:            sess.flags,
		Phase:            sess.controller.Phase(),
		Mode:             sess.controller.LastPlan().Mode,
		Error:            sess.banner,
	}
}

func (sess *Session) notify(state State) {
	if sess.publish != nil {
		sess.publish(state)
	}
}

// Mount starts the map for container. The session renders as soon as the
// map is ready, or raises an init banner if it cannot be created.
func (sess *Session) Mount(container string) error {
	if err := sess.controller.Mount(sess.ctx, container); err != nil {
		return err
	}
	sess.notify(sess.State())

	go func() {
		select {
		case <-sess.controller.Settled():
		case <-sess.ctx.Done():
			return
		}

		sess.mu.Lock()
		if initErr := sess.controller.InitErr(); initErr != nil {
			sess.banner = &Banner{Kind: BannerInit, Message: "The map failed to load. Please reload the page."}
		} else {
			sess.renderLocked()
		}
		state := sess.stateLocked()
		sess.mu.Unlock()
		sess.notify(state)
	}()
	return nil
}

// Unmount stops any fetch and tears the map down. Safe to call repeatedly.
func (sess *Session) Unmount() {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}
	sess.closed = true
	sess.mu.Unlock()

	sess.cancel()
	sess.coordinator.Cancel()
	sess.controller.Unmount()
	sess.log.Debug().Msg("Map session closed")
}

// SelectDevice selects deviceID, or clears the selection when deviceID is
// empty. Selecting a new device shows its remembered location right away
// and fetches its latest reading; deselecting shows every remembered device.
func (sess *Session) SelectDevice(deviceID string) {
	sess.mu.Lock()
	if sess.closed {
		sess.mu.Unlock()
		return
	}

	if deviceID == "" {
		sess.coordinator.Cancel()
		sess.selected = ""
		sess.requestID = ""
		sess.reading = nil
		sess.loading = false
		sess.clearTransportBannerLocked()
		sess.renderLocked()
		state := sess.stateLocked()
		sess.mu.Unlock()
		sess.notify(state)
		return
	}

	if deviceID != sess.selected {
		sess.selected = deviceID
		sess.reading = nil
		sess.clearTransportBannerLocked()
		sess.renderLocked()
	}
	sess.loading = true
	req := sess.coordinator.Select(sess.ctx, deviceID)
	sess.requestID = req.ID
	state := sess.stateLocked()
	sess.mu.Unlock()
	sess.notify(state)
}

// SetStyleFlags changes which rings are drawn and redraws.
func (sess *Session) SetStyleFlags(flags models.OverlayStyleFlags) {
	sess.mu.Lock()
	sess.flags = flags
	sess.renderLocked()
	state := sess.stateLocked()
	sess.mu.Unlock()
	sess.notify(state)
}

// LoadDevices fetches the device list and selects the first device when
// nothing is selected yet.
func (sess *Session) LoadDevices(ctx context.Context) ([]models.Device, error) {
	devices, err := sess.svc.Devices(ctx)
	if err != nil {
		sess.mu.Lock()
		sess.banner = transportBanner(err)
		state := sess.stateLocked()
		sess.mu.Unlock()
		sess.notify(state)
		return nil, err
	}

	sess.mu.Lock()
	autoSelect := sess.selected == "" && len(devices) > 0
	sess.mu.Unlock()
	if autoSelect {
		sess.SelectDevice(devices[0].Key())
	}
	return devices, nil
}

func (sess *Session) onFetchResult(res fetch.Result) {
	sess.mu.Lock()
	// Results are matched by request, not device: an older request for the
	// same device can still report after a newer one started.
	if sess.closed || res.RequestID != sess.requestID {
		sess.mu.Unlock()
		return
	}
	sess.requestID = ""

	switch res.State {
	case fetch.StateCancelled:
		// Superseded requests are followed by a newer one for the current
		// selection; only a timeout or explicit cancel ends loading.
		if res.Reason != fetch.ReasonSuperseded {
			sess.loading = false
		}
	case fetch.StateFailed:
		sess.loading = false
		sess.banner = transportBanner(res.Err)
	case fetch.StateSucceeded:
		sess.loading = false
		sess.reading = res.Reading
		sess.clearTransportBannerLocked()
		sess.renderLocked()
	}
	state := sess.stateLocked()
	sess.mu.Unlock()
	sess.notify(state)
}

func (sess *Session) clearTransportBannerLocked() {
	if sess.banner != nil && sess.banner.Kind == BannerTransport {
		sess.banner = nil
	}
}

func (sess *Session) renderLocked() {
	scene := mapview.Scene{DeviceID: sess.selected, Reading: sess.reading, Flags: sess.flags}
	if err := sess.controller.Render(scene); err != nil && !errors.Is(err, mapview.ErrNotReady) {
		sess.log.Warn().Err(err).Str("device_id", sess.selected).Msg("Failed to update map")
	}
}

func transportBanner(err error) *Banner {
	retryable := true
	var fe *telemetry.FetchError
	if errors.As(err, &fe) {
		retryable = fe.Retryable()
	}
	msg := "Failed to load device data. Please try again."
	if errors.Is(err, ErrUnknownDevice) {
		msg = "This device is no longer available."
		retryable = false
	}
	return &Banner{Kind: BannerTransport, Message: msg, Retryable: retryable}
}
