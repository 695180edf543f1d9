// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package fetch coordinates telemetry requests triggered by device selection.

At most one request is active at a time. Selecting a different device cancels
the active request before starting the next one, and only the request that is
still current when its fetch returns may write to the location cache. Each
request has a fixed timeout; expiry cancels it through the same path as an
explicit cancel.

	Idle -> Fetching -> Succeeded | Cancelled | Failed

Cancellation is an expected outcome and never carries an error.
*/
package fetch

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/telemetry"
)

// State is the lifecycle position of a Request.
type State string

const (
	StateFetching  State = "fetching"
	StateSucceeded State = "succeeded"
	StateCancelled State = "cancelled"
	StateFailed    State = "failed"
)

// CancelReason explains a StateCancelled outcome.
type CancelReason string

const (
	ReasonNone       CancelReason = ""
	ReasonTimeout    CancelReason = "timeout"
	ReasonSuperseded CancelReason = "superseded"
	ReasonExplicit   CancelReason = "explicit"
)

var (
	errSuperseded = errors.New("superseded by a newer selection")
	errExplicit   = errors.New("cancelled by caller")
	errTimeout    = errors.New("fetch timed out")
)

// Fetcher retrieves the latest reading for a device. It should honour ctx,
// but the coordinator does not rely on it.
type Fetcher func(ctx context.Context, deviceID string) (*models.TelemetryReading, error)

// LocationWriter receives coordinates from successful fetches.
type LocationWriter interface {
	Put(deviceID string, lon, lat float64) error
}

// Result is the terminal outcome of a Request.
type Result struct {
	RequestID string
	DeviceID  string
	State     State
	Reason    CancelReason

	// Reading is set only for StateSucceeded and may be nil when the device
	// has never reported.
	Reading *models.TelemetryReading

	// Err is a *telemetry.FetchError, set only for StateFailed.
	Err error

	Duration time.Duration
}

// Request is one fetch started by Select.
type Request struct {
	ID        string
	DeviceID  string
	StartedAt time.Time

	ctx    context.Context
	cancel context.CancelCauseFunc
	done   chan struct{}

	// result is written once before done is closed.
	result Result
}

// Done is closed once the request reaches a terminal state.
func (r *Request) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until the request finishes or ctx ends.
func (r *Request) Wait(ctx context.Context) (Result, error) {
	select {
	case <-r.done:
		return r.result, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

// Result returns the outcome if the request has finished.
func (r *Request) Result() (Result, bool) {
	select {
	case <-r.done:
		return r.result, true
	default:
		return Result{}, false
	}
}

// Coordinator owns the single active fetch.
type Coordinator struct {
	mu       sync.Mutex
	fetch    Fetcher
	cache    LocationWriter
	timeout  time.Duration
	listener func(Result)
	active   *Request
	wg       sync.WaitGroup
}

// NewCoordinator creates a coordinator. cache may be nil.
func NewCoordinator(fetch Fetcher, cache LocationWriter, timeout time.Duration) *Coordinator {
	return &Coordinator{
		fetch:   fetch,
		cache:   cache,
		timeout: timeout,
	}
}

// SetListener registers fn to receive every terminal Result, including
// cancellations. fn runs on the request goroutine without the coordinator
// lock held.
func (c *Coordinator) SetListener(fn func(Result)) {
	c.mu.Lock()
	c.listener = fn
	c.mu.Unlock()
}

// Select starts fetching deviceID. If deviceID is already being fetched the
// active request is returned unchanged. Any other active request is
// cancelled first. ctx bounds the request in addition to the timeout.
func (c *Coordinator) Select(ctx context.Context, deviceID string) *Request {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.active != nil {
		if c.active.DeviceID == deviceID {
			return c.active
		}
		c.active.cancel(errSuperseded)
		c.active = nil
	}

	reqCtx, cancel := context.WithCancelCause(ctx)
	reqCtx, cancelTimeout := context.WithTimeoutCause(reqCtx, c.timeout, errTimeout)

	req := &Request{
		ID:        uuid.NewString(),
		DeviceID:  deviceID,
		StartedAt: time.Now(),
		ctx:       reqCtx,
		cancel: func(cause error) {
			cancel(cause)
			cancelTimeout()
		},
		done: make(chan struct{}),
	}
	c.active = req

	logging.Ctx(ctx).Debug().Str("device_id", deviceID).Str("request_id", req.ID).Msg("Fetching latest reading")

	c.wg.Add(1)
	go c.run(req)
	return req
}

// Cancel cancels the active request, if any.
func (c *Coordinator) Cancel() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.active != nil {
		c.active.cancel(errExplicit)
		c.active = nil
	}
}

// Active returns the in-flight request, or nil.
func (c *Coordinator) Active() *Request {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.active
}

// Close cancels the active request and waits for request goroutines to
// report. Fetchers that ignore cancellation are not waited for.
func (c *Coordinator) Close() {
	c.Cancel()
	c.wg.Wait()
}

type fetchResult struct {
	reading *models.TelemetryReading
	err     error
}

func (c *Coordinator) run(req *Request) {
	defer c.wg.Done()

	// Buffered so a fetcher that returns after we gave up does not block.
	ch := make(chan fetchResult, 1)
	go func() {
		reading, err := c.fetch(req.ctx, req.DeviceID)
		ch <- fetchResult{reading: reading, err: err}
	}()

	var fr fetchResult
	select {
	case fr = <-ch:
	case <-req.ctx.Done():
	}

	res, listener := c.commit(req, fr)
	req.cancel(nil)

	req.result = res
	close(req.done)

	metrics.RecordDeviceFetch(string(res.State), string(res.Reason), res.Duration)
	logEvent := logging.Debug()
	if res.State == StateFailed {
		logEvent = logging.Warn().Err(res.Err)
	}
	logEvent.Str("device_id", res.DeviceID).Str("request_id", res.RequestID).
		Str("state", string(res.State)).Str("reason", string(res.Reason)).
		Dur("duration", res.Duration).Msg("Device fetch finished")

	if listener != nil {
		listener(res)
	}
}

// commit decides the outcome and applies it under the lock. Cancellation is
// checked here rather than when the fetch returned so that a Select racing
// with a late success still wins.
func (c *Coordinator) commit(req *Request, fr fetchResult) (Result, func(Result)) {
	c.mu.Lock()
	defer c.mu.Unlock()

	res := Result{
		RequestID: req.ID,
		DeviceID:  req.DeviceID,
		Duration:  time.Since(req.StartedAt),
	}

	if c.active == req {
		c.active = nil
	}

	if req.ctx.Err() != nil {
		res.State = StateCancelled
		res.Reason = reasonFor(req.ctx)
		return res, c.listener
	}

	if fr.err != nil {
		res.State = StateFailed
		res.Err = asFetchError(fr.err)
		return res, c.listener
	}

	res.State = StateSucceeded
	res.Reading = fr.reading
	if c.cache != nil && fr.reading != nil && fr.reading.HasCoordinates() {
		lon, lat := fr.reading.Coordinates()
		if err := c.cache.Put(req.DeviceID, lon, lat); err != nil {
			logging.Warn().Err(err).Str("device_id", req.DeviceID).Msg("Reading coordinates not cached")
		}
	}
	return res, c.listener
}

func reasonFor(ctx context.Context) CancelReason {
	cause := context.Cause(ctx)
	switch {
	case errors.Is(cause, errTimeout):
		return ReasonTimeout
	case errors.Is(cause, errSuperseded):
		return ReasonSuperseded
	default:
		return ReasonExplicit
	}
}

func asFetchError(err error) error {
	var fe *telemetry.FetchError
	if errors.As(err, &fe) {
		return err
	}
	return &telemetry.FetchError{Op: "fetch", Err: err}
}
