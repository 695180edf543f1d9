// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package mapview owns the lifecycle of one map view and its overlay layer.

A Controller moves through

	Uninitialized -> Initializing -> Ready -> Destroyed

where Destroyed is terminal and reachable from every phase. Mount asks the
Surface to create a view in the background; if Unmount wins the race, the
handle that Create eventually returns is destroyed instead of adopted.
Render and PanTo touch the surface only while Ready, and every surface call
is made under the controller lock after the phase has been checked, so no
call reaches a handle after Unmount has released it.

What gets drawn for a Scene is decided by BuildPlan, a pure function shared
with the GeoJSON overlays endpoint.
*/
package mapview

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/tomtom215/fieldmap/internal/geometry"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
)

// Phase is the lifecycle position of a Controller.
type Phase string

const (
	PhaseUninitialized Phase = "uninitialized"
	PhaseInitializing  Phase = "initializing"
	PhaseReady         Phase = "ready"
	PhaseDestroyed     Phase = "destroyed"
)

var (
	// ErrInvalidPhase is returned by Mount outside PhaseUninitialized.
	ErrInvalidPhase = errors.New("map session: invalid phase")

	// ErrNotReady is returned by Render and PanTo outside PhaseReady. No
	// surface call is made.
	ErrNotReady = errors.New("map session: not ready")
)

// InitError reports that the surface failed to create a view. The session is
// Destroyed and cannot render; the user has to reload.
type InitError struct {
	Container string
	Err       error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("map surface init failed for %q: %v", e.Container, e.Err)
}

func (e *InitError) Unwrap() error {
	return e.Err
}

// Controller is one map session.
type Controller struct {
	surface   Surface
	locations LocationReader
	opts      Options

	mu           sync.Mutex
	phase        Phase
	handle       Handle
	cancelCreate context.CancelFunc
	settled      chan struct{}
	initErr      error
	lastPlan     Plan
	onPhase      func(from, to Phase)
}

// NewController creates an Uninitialized controller.
func NewController(surface Surface, locations LocationReader, opts Options) *Controller {
	if opts.Segments <= 0 {
		opts.Segments = geometry.DefaultSegments
	}
	return &Controller{
		surface:   surface,
		locations: locations,
		opts:      opts,
		phase:     PhaseUninitialized,
		settled:   make(chan struct{}),
	}
}

// OnPhaseChange registers fn to observe transitions. fn is called with the
// controller lock held and must not call back into the Controller.
func (c *Controller) OnPhaseChange(fn func(from, to Phase)) {
	c.mu.Lock()
	c.onPhase = fn
	c.mu.Unlock()
}

// Phase returns the current phase.
func (c *Controller) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// Settled is closed once Mount has resolved into Ready or Destroyed.
func (c *Controller) Settled() <-chan struct{} {
	return c.settled
}

// InitErr returns the *InitError from a failed mount, or nil.
func (c *Controller) InitErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initErr
}

// LastPlan returns the most recently rendered plan.
func (c *Controller) LastPlan() Plan {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastPlan
}

func (c *Controller) setPhaseLocked(to Phase) {
	from := c.phase
	if from == to {
		return
	}
	c.phase = to
	metrics.RecordMapTransition(string(from), string(to))
	if to == PhaseReady || to == PhaseDestroyed {
		select {
		case <-c.settled:
		default:
			close(c.settled)
		}
	}
	if c.onPhase != nil {
		c.onPhase(from, to)
	}
}

// initialViewport centres on the first remembered device, or the default
// view when nothing is remembered.
func (c *Controller) initialViewport() Viewport {
	if loc, ok := c.locations.First(); ok {
		return Viewport{
			Center: geometry.Point{Longitude: loc.Longitude, Latitude: loc.Latitude},
			Zoom:   c.opts.LocatedZoom,
		}
	}
	return Viewport{Center: c.opts.DefaultCenter, Zoom: c.opts.DefaultZoom}
}

// Mount starts creating the view for container and returns immediately.
// Watch Settled and InitErr for the result.
func (c *Controller) Mount(ctx context.Context, container string) error {
	c.mu.Lock()
	if c.phase != PhaseUninitialized {
		phase := c.phase
		c.mu.Unlock()
		return fmt.Errorf("%w: mount in phase %s", ErrInvalidPhase, phase)
	}

	// The view outlives the mounting request; only Unmount or the create
	// timeout may abort Create.
	base := context.WithoutCancel(ctx)
	var (
		createCtx context.Context
		cancel    context.CancelFunc
	)
	if c.opts.CreateTimeout > 0 {
		createCtx, cancel = context.WithTimeout(base, c.opts.CreateTimeout)
	} else {
		createCtx, cancel = context.WithCancel(base)
	}
	c.cancelCreate = cancel
	c.setPhaseLocked(PhaseInitializing)
	view := c.initialViewport()
	c.mu.Unlock()

	log := logging.Ctx(ctx)
	go func() {
		defer cancel()

		h, err := c.surface.Create(createCtx, container, view)

		c.mu.Lock()
		defer c.mu.Unlock()

		if c.phase != PhaseInitializing {
			// Unmounted while Create was pending.
			if err == nil {
				metrics.MapLateHandlesDestroyed.Inc()
				if derr := c.surface.Destroy(h); derr != nil {
					log.Warn().Err(derr).Str("handle", string(h)).Msg("Failed to destroy late map handle")
				}
				log.Debug().Str("handle", string(h)).Msg("Destroyed map handle created after unmount")
			}
			return
		}

		if err != nil {
			c.initErr = &InitError{Container: container, Err: err}
			log.Error().Err(err).Str("container", container).Msg("Map surface failed to initialize")
			c.setPhaseLocked(PhaseDestroyed)
			return
		}

		c.handle = h
		c.setPhaseLocked(PhaseReady)
		log.Debug().Str("handle", string(h)).Str("container", container).Msg("Map session ready")
	}()
	return nil
}

// Render clears the overlay layer and draws scene. Outside PhaseReady it is a
// logged no-op returning ErrNotReady.
func (c *Controller) Render(scene Scene) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseReady {
		logging.Debug().Str("phase", string(c.phase)).Str("device_id", scene.DeviceID).Msg("Render skipped, map not ready")
		return ErrNotReady
	}

	plan := BuildPlan(scene, c.locations, c.opts)

	if err := c.surface.RemoveAllOverlays(c.handle); err != nil {
		return fmt.Errorf("clear overlays: %w", err)
	}
	// lastPlan always describes what the surface shows.
	c.lastPlan = Plan{Mode: plan.Mode}
	for i, o := range plan.Overlays {
		if err := c.surface.AddOverlay(c.handle, o); err != nil {
			c.lastPlan.Overlays = plan.Overlays[:i]
			return fmt.Errorf("add %s overlay: %w", o.Kind, err)
		}
		metrics.MapOverlaysRendered.WithLabelValues(string(o.Kind)).Inc()
	}
	c.lastPlan = plan

	if len(plan.Pan) > 0 {
		return c.panToLocked(plan.Pan)
	}
	return nil
}

// PanTo moves the camera to fit points. An empty or entirely invalid set is
// a no-op.
func (c *Controller) PanTo(points []geometry.Point) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase != PhaseReady {
		return ErrNotReady
	}
	return c.panToLocked(points)
}

func (c *Controller) panToLocked(points []geometry.Point) error {
	view, ok := FitViewport(points, c.opts.FocusZoom)
	if !ok {
		return nil
	}
	if err := c.surface.PanTo(c.handle, view); err != nil {
		return fmt.Errorf("pan: %w", err)
	}
	return nil
}

// Unmount destroys the session from any phase. A pending Create is
// cancelled and its handle destroyed when it arrives. A live view has its
// overlays removed before the handle is released. Calling Unmount again does
// nothing. Surface errors are logged only.
func (c *Controller) Unmount() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.phase == PhaseDestroyed {
		return
	}
	prev := c.phase
	h := c.handle
	c.handle = ""
	c.setPhaseLocked(PhaseDestroyed)

	if c.cancelCreate != nil {
		c.cancelCreate()
	}

	if prev != PhaseReady {
		return
	}
	if err := c.surface.RemoveAllOverlays(h); err != nil {
		logging.Warn().Err(err).Str("handle", string(h)).Msg("Failed to clear overlays during unmount")
	}
	if err := c.surface.Destroy(h); err != nil {
		logging.Warn().Err(err).Str("handle", string(h)).Msg("Failed to destroy map handle")
	}
}
