// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package telemetry

import (
	"context"
	"errors"
	"fmt"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
	"github.com/tomtom215/fieldmap/internal/models"
)

const breakerName = "telemetry-api"

// CircuitBreakerClient wraps an API with a gobreaker circuit breaker.
//
// The breaker uses real time for its interval and timeout. Tests should drive
// the wrapped client directly or trip the breaker with enough failures.
type CircuitBreakerClient struct {
	client API
	cb     *gobreaker.CircuitBreaker[any]
	name   string
}

// NewCircuitBreakerClient creates an HTTPClient from cfg and wraps it.
func NewCircuitBreakerClient(cfg *config.TelemetryConfig) *CircuitBreakerClient {
	return WrapWithCircuitBreaker(NewHTTPClient(cfg))
}

// WrapWithCircuitBreaker protects client with a breaker that:
//   - allows 3 requests while half-open
//   - resets counts every minute while closed
//   - waits 2 minutes before probing after opening
//   - opens at a 60% failure rate over at least 10 requests
//
// Caller cancellations are not counted as failures.
func WrapWithCircuitBreaker(client API) *CircuitBreakerClient {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(breakerName).Set(0)

	cb := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     2 * time.Minute,

		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 10 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			shouldTrip := failureRatio >= 0.6
			if shouldTrip {
				logging.Warn().Uint32("failures", counts.TotalFailures).Float64("failure_rate", failureRatio*100).Msg("[CIRCUIT BREAKER] Opening circuit")
			}
			return shouldTrip
		},

		OnStateChange: func(name string, from, to gobreaker.State) {
			fromStr := stateToString(from)
			toStr := stateToString(to)
			logging.Info().Str("breaker", name).Str("from", fromStr).Str("to", toStr).Msg("[CIRCUIT BREAKER] State transition")

			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateToFloat(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, fromStr, toStr).Inc()
			if to == gobreaker.StateClosed {
				metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(name).Set(0)
			}
		},

		IsSuccessful: func(err error) bool {
			return err == nil || IsCancellation(err)
		},
	})

	return &CircuitBreakerClient{
		client: client,
		cb:     cb,
		name:   breakerName,
	}
}

// State returns the current breaker state as "closed", "half-open" or "open".
func (cbc *CircuitBreakerClient) State() string {
	return stateToString(cbc.cb.State())
}

func (cbc *CircuitBreakerClient) execute(op string, fn func() (any, error)) (any, error) {
	result, err := cbc.cb.Execute(fn)
	if err == nil {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "success").Inc()
		metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(0)
		return result, nil
	}

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "rejected").Inc()
		logging.Warn().Err(err).Str("op", op).Msg("[CIRCUIT BREAKER] Request rejected")
		return nil, &FetchError{Op: op, Err: fmt.Errorf("%w: %w", ErrCircuitOpen, err)}
	}

	if IsCancellation(err) {
		metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "cancelled").Inc()
		return nil, err
	}

	metrics.CircuitBreakerRequests.WithLabelValues(cbc.name, "failure").Inc()
	counts := cbc.cb.Counts()
	metrics.CircuitBreakerConsecutiveFailures.WithLabelValues(cbc.name).Set(float64(counts.ConsecutiveFailures))
	return nil, err
}

// castResult type-asserts a breaker result, returning the zero T on error.
func castResult[T any](result any, err error) (T, error) {
	var zero T
	if err != nil {
		return zero, err
	}
	typed, ok := result.(T)
	if !ok {
		return zero, fmt.Errorf("circuit breaker: unexpected result type %T", result)
	}
	return typed, nil
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateToString(state gobreaker.State) string {
	switch state {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// GetDevices lists devices with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetDevices(ctx context.Context) ([]models.Device, error) {
	return castResult[[]models.Device](cbc.execute(devicesPath, func() (any, error) {
		return cbc.client.GetDevices(ctx)
	}))
}

// GetLatestReading fetches the newest reading with circuit breaker protection.
func (cbc *CircuitBreakerClient) GetLatestReading(ctx context.Context, serialNumber string) (*models.TelemetryReading, error) {
	return castResult[*models.TelemetryReading](cbc.execute(deviceLogsPath, func() (any, error) {
		return cbc.client.GetLatestReading(ctx, serialNumber)
	}))
}
