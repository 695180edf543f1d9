// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package fetch

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/telemetry"
)

// recordingCache captures Put calls.
type recordingCache struct {
	mu   sync.Mutex
	puts map[string][2]float64
	err  error
}

func newRecordingCache() *recordingCache {
	return &recordingCache{puts: make(map[string][2]float64)}
}

func (r *recordingCache) Put(deviceID string, lon, lat float64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puts[deviceID] = [2]float64{lon, lat}
	return r.err
}

func (r *recordingCache) get(deviceID string) ([2]float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.puts[deviceID]
	return v, ok
}

func (r *recordingCache) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.puts)
}

// gatedFetcher blocks each device's fetch until its gate is released.
type gatedFetcher struct {
	mu       sync.Mutex
	gates    map[string]chan struct{}
	readings map[string]*models.TelemetryReading
	errs     map[string]error
	calls    map[string]int
	obeyCtx  bool
}

func newGatedFetcher(obeyCtx bool) *gatedFetcher {
	return &gatedFetcher{
		gates:    make(map[string]chan struct{}),
		readings: make(map[string]*models.TelemetryReading),
		errs:     make(map[string]error),
		calls:    make(map[string]int),
		obeyCtx:  obeyCtx,
	}
}

func (g *gatedFetcher) gate(deviceID string) chan struct{} {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.gates[deviceID]
	if !ok {
		ch = make(chan struct{})
		g.gates[deviceID] = ch
	}
	return ch
}

func (g *gatedFetcher) fetch(ctx context.Context, deviceID string) (*models.TelemetryReading, error) {
	g.mu.Lock()
	g.calls[deviceID]++
	g.mu.Unlock()

	gate := g.gate(deviceID)
	if g.obeyCtx {
		select {
		case <-gate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	} else {
		<-gate
	}

	g.mu.Lock()
	defer g.mu.Unlock()
	return g.readings[deviceID], g.errs[deviceID]
}

func (g *gatedFetcher) callCount(deviceID string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls[deviceID]
}

func readingAt(lon, lat float64) *models.TelemetryReading {
	return &models.TelemetryReading{Longitude: &lon, Latitude: &lat, Temperature: 20}
}

func waitResult(t *testing.T, req *Request) Result {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	res, err := req.Wait(ctx)
	if err != nil {
		t.Fatalf("request %s for %s did not finish: %v", req.ID, req.DeviceID, err)
	}
	return res
}

// ===================================================================================================
// Outcomes
// ===================================================================================================

func TestSelect_Succeeded(t *testing.T) {
	f := newGatedFetcher(true)
	f.readings["A"] = readingAt(-98.5, 39.1)
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	close(f.gate("A"))
	res := waitResult(t, req)

	if res.State != StateSucceeded {
		t.Fatalf("State = %s, want succeeded", res.State)
	}
	if res.Reading == nil || res.Reading.Temperature != 20 {
		t.Errorf("Reading = %+v", res.Reading)
	}
	if got, ok := cache.get("A"); !ok || got != [2]float64{-98.5, 39.1} {
		t.Errorf("cache A = %v, %v", got, ok)
	}
	if c.Active() != nil {
		t.Error("no request should be active after completion")
	}
}

func TestSelect_SucceededWithoutCoordinates(t *testing.T) {
	f := newGatedFetcher(true)
	f.readings["A"] = &models.TelemetryReading{Temperature: 18}
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	close(f.gate("A"))
	res := waitResult(t, req)

	if res.State != StateSucceeded {
		t.Fatalf("State = %s", res.State)
	}
	if cache.count() != 0 {
		t.Error("reading without coordinates must not touch the cache")
	}
}

func TestSelect_CacheErrorNotSurfaced(t *testing.T) {
	f := newGatedFetcher(true)
	f.readings["A"] = readingAt(1, 2)
	cache := newRecordingCache()
	cache.err = errors.New("disk full")
	c := NewCoordinator(f.fetch, cache, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	close(f.gate("A"))
	res := waitResult(t, req)
	if res.State != StateSucceeded || res.Err != nil {
		t.Errorf("result = %+v, want success without error", res)
	}
}

func TestSelect_Failed(t *testing.T) {
	f := newGatedFetcher(true)
	f.errs["A"] = errors.New("connection refused")
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	close(f.gate("A"))
	res := waitResult(t, req)

	if res.State != StateFailed {
		t.Fatalf("State = %s, want failed", res.State)
	}
	var fe *telemetry.FetchError
	if !errors.As(res.Err, &fe) {
		t.Fatalf("Err = %v, want *telemetry.FetchError", res.Err)
	}
	if !fe.Retryable() {
		t.Error("network error should be retryable")
	}
	if cache.count() != 0 {
		t.Error("failed fetch must not touch the cache")
	}
}

func TestSelect_FailedKeepsFetchError(t *testing.T) {
	orig := &telemetry.FetchError{Op: "/get-device-logs", StatusCode: 404}
	f := newGatedFetcher(true)
	f.errs["A"] = orig
	c := NewCoordinator(f.fetch, nil, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	close(f.gate("A"))
	res := waitResult(t, req)
	if res.Err != orig {
		t.Errorf("Err = %v, want the original FetchError", res.Err)
	}
}

// ===================================================================================================
// Supersede and idempotence
// ===================================================================================================

// A is slow, B is fast. Only B may reach the cache, and A's late response is
// discarded.
func TestSelect_SupersedeDiscardsStaleResult(t *testing.T) {
	f := newGatedFetcher(false) // A ignores cancellation and answers late
	f.readings["A"] = readingAt(10, 10)
	f.readings["B"] = readingAt(20, 20)
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, 5*time.Second)
	defer c.Close()

	var mu sync.Mutex
	var results []Result
	c.SetListener(func(r Result) {
		mu.Lock()
		results = append(results, r)
		mu.Unlock()
	})

	reqA := c.Select(context.Background(), "A")
	reqB := c.Select(context.Background(), "B")

	resA := waitResult(t, reqA)
	if resA.State != StateCancelled || resA.Reason != ReasonSuperseded {
		t.Errorf("A = %s/%s, want cancelled/superseded", resA.State, resA.Reason)
	}

	close(f.gate("B"))
	resB := waitResult(t, reqB)
	if resB.State != StateSucceeded {
		t.Fatalf("B = %s, want succeeded", resB.State)
	}

	// A answers after B has been applied.
	close(f.gate("A"))
	time.Sleep(50 * time.Millisecond)

	if _, ok := cache.get("A"); ok {
		t.Error("stale response for A reached the cache")
	}
	if got, _ := cache.get("B"); got != [2]float64{20, 20} {
		t.Errorf("cache B = %v", got)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(results) != 2 {
		t.Fatalf("listener saw %d results, want 2", len(results))
	}
}

func TestSelect_SameDeviceIsNoop(t *testing.T) {
	f := newGatedFetcher(true)
	f.readings["A"] = readingAt(1, 1)
	c := NewCoordinator(f.fetch, nil, time.Second)
	defer c.Close()

	first := c.Select(context.Background(), "A")
	second := c.Select(context.Background(), "A")
	if first != second {
		t.Error("re-selecting an in-flight device should return the active request")
	}

	close(f.gate("A"))
	if res := waitResult(t, first); res.State != StateSucceeded {
		t.Errorf("State = %s", res.State)
	}
	if n := f.callCount("A"); n != 1 {
		t.Errorf("fetch called %d times, want 1", n)
	}
}

func TestSelect_AfterCompletionStartsNewRequest(t *testing.T) {
	f := newGatedFetcher(true)
	close(f.gate("A"))
	c := NewCoordinator(f.fetch, nil, time.Second)
	defer c.Close()

	first := c.Select(context.Background(), "A")
	waitResult(t, first)
	second := c.Select(context.Background(), "A")
	waitResult(t, second)

	if first == second {
		t.Error("a finished request must not be reused")
	}
}

// ===================================================================================================
// Cancellation and timeout
// ===================================================================================================

func TestCancel_Explicit(t *testing.T) {
	f := newGatedFetcher(true)
	f.readings["A"] = readingAt(1, 1)
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	c.Cancel()
	res := waitResult(t, req)

	if res.State != StateCancelled || res.Reason != ReasonExplicit {
		t.Errorf("result = %s/%s, want cancelled/explicit", res.State, res.Reason)
	}
	if res.Err != nil {
		t.Errorf("cancellation must not carry an error, got %v", res.Err)
	}
	if cache.count() != 0 {
		t.Error("cancelled fetch must not touch the cache")
	}
}

func TestCancel_NoActiveRequest(t *testing.T) {
	c := NewCoordinator(newGatedFetcher(true).fetch, nil, time.Second)
	c.Cancel()
	c.Cancel()
	if c.Active() != nil {
		t.Error("Active() should be nil")
	}
}

func TestSelect_ParentContextCancelled(t *testing.T) {
	f := newGatedFetcher(true)
	c := NewCoordinator(f.fetch, nil, time.Second)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	req := c.Select(ctx, "A")
	cancel()
	res := waitResult(t, req)
	if res.State != StateCancelled || res.Reason != ReasonExplicit {
		t.Errorf("result = %s/%s, want cancelled/explicit", res.State, res.Reason)
	}
}

// A fetch that never resolves ends as Cancelled after the timeout instead of
// hanging.
func TestSelect_TimeoutOnHungFetcher(t *testing.T) {
	f := newGatedFetcher(false) // never released, ignores ctx
	cache := newRecordingCache()
	c := NewCoordinator(f.fetch, cache, 30*time.Millisecond)

	start := time.Now()
	req := c.Select(context.Background(), "A")
	res := waitResult(t, req)

	if res.State != StateCancelled || res.Reason != ReasonTimeout {
		t.Errorf("result = %s/%s, want cancelled/timeout", res.State, res.Reason)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("timeout took %v", elapsed)
	}
	if cache.count() != 0 {
		t.Error("timed-out fetch must not touch the cache")
	}

	// Close must not wait for the hung fetcher.
	done := make(chan struct{})
	go func() {
		c.Close()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Close blocked on a hung fetcher")
	}
	close(f.gate("A"))
}

func TestRequestResult(t *testing.T) {
	f := newGatedFetcher(true)
	c := NewCoordinator(f.fetch, nil, time.Second)
	defer c.Close()

	req := c.Select(context.Background(), "A")
	if _, ok := req.Result(); ok {
		t.Error("Result() should report not finished while fetching")
	}
	close(f.gate("A"))
	waitResult(t, req)
	if res, ok := req.Result(); !ok || res.State != StateSucceeded {
		t.Errorf("Result() = %+v, %v", res, ok)
	}
}
