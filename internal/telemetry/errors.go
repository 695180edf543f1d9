// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrCircuitOpen is wrapped by FetchError when the circuit breaker rejects a
// call without contacting the API.
var ErrCircuitOpen = errors.New("telemetry API circuit open")

// FetchError is a transport-level failure talking to the telemetry API:
// network errors, non-2xx statuses, undecodable bodies and circuit rejection.
type FetchError struct {
	// Op is the API path, e.g. "/get-device-logs".
	Op string

	// StatusCode is the HTTP status, or 0 when no response was received.
	StatusCode int

	// Body holds at most maxErrorBodySize bytes of an error response.
	Body string

	Err error
}

func (e *FetchError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("telemetry %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("telemetry %s: %v", e.Op, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retryable reports whether repeating the request may succeed. Client errors
// other than 408 and 429 are permanent.
func (e *FetchError) Retryable() bool {
	switch {
	case e.StatusCode == 0:
		return !errors.Is(e.Err, context.Canceled)
	case e.StatusCode == http.StatusRequestTimeout, e.StatusCode == http.StatusTooManyRequests:
		return true
	case e.StatusCode >= 500:
		return true
	default:
		return false
	}
}

// IsCancellation reports whether err came from the caller's context rather
// than from the API.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
