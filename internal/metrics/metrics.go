// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

// Package metrics declares Fieldmap's Prometheus instruments. All collectors
// register on the default registry through promauto and are served by the
// /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Location Cache Metrics
	LocationCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "location_cache_entries",
			Help: "Number of devices with a remembered location",
		},
	)

	LocationCacheWrites = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "location_cache_writes_total",
			Help: "Location cache writes by result",
		},
		[]string{"result"}, // "ok", "invalid", "persist_error"
	)

	LocationCacheLoadFailures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "location_cache_load_failures_total",
			Help: "Startup loads that found unreadable or corrupt saved locations",
		},
	)

	// Fetch Coordinator Metrics
	DeviceFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "device_fetches_total",
			Help: "Device telemetry fetches by outcome",
		},
		[]string{"outcome", "reason"}, // outcome: succeeded, cancelled, failed
	)

	DeviceFetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "device_fetch_duration_seconds",
			Help:    "Time from device selection to fetch outcome",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"outcome"},
	)

	// Map Session Metrics
	MapSessionsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "map_sessions_active",
			Help: "Map sessions currently in the Ready phase",
		},
	)

	MapSessionTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_session_transitions_total",
			Help: "Map session phase transitions",
		},
		[]string{"from_phase", "to_phase"},
	)

	MapLateHandlesDestroyed = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "map_late_handles_destroyed_total",
			Help: "Surfaces that finished creating after their session was torn down",
		},
	)

	MapOverlaysRendered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "map_overlays_rendered_total",
			Help: "Overlays added to map surfaces by kind",
		},
		[]string{"kind"}, // "marker", "temperature", "moisture", "nutrient"
	)

	// Telemetry API Metrics
	TelemetryRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "telemetry_api_requests_total",
			Help: "Requests made to the telemetry API",
		},
		[]string{"endpoint", "status"},
	)

	TelemetryRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "telemetry_api_request_duration_seconds",
			Help:    "Telemetry API request duration in seconds",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 15},
		},
		[]string{"endpoint"},
	)

	// API Endpoint Metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "endpoint", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "endpoint"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "api_active_requests",
			Help: "Current number of active API requests",
		},
	)

	// WebSocket Metrics
	WSConnections = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connections",
			Help: "Current number of active WebSocket connections",
		},
	)

	WSMessagesSent = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_sent_total",
			Help: "Total number of WebSocket messages sent",
		},
	)

	WSMessagesReceived = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_messages_received_total",
			Help: "Total number of WebSocket messages received",
		},
	)

	WSErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "websocket_errors_total",
			Help: "Total number of WebSocket errors",
		},
		[]string{"error_type"},
	)

	// Circuit Breaker Metrics
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_requests_total",
			Help: "Total number of requests through circuit breaker",
		},
		[]string{"name", "result"}, // result: "success", "failure", "rejected"
	)

	CircuitBreakerConsecutiveFailures = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "circuit_breaker_consecutive_failures",
			Help: "Current number of consecutive failures",
		},
		[]string{"name"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "circuit_breaker_state_transitions_total",
			Help: "Total number of circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)

	// Storage Maintenance Metrics
	StorageGCRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "storage_gc_runs_total",
			Help: "Value-log garbage collection passes by result",
		},
		[]string{"result"}, // "rewritten", "nothing", "error"
	)

	// System Metrics
	AppInfo = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "app_info",
			Help: "Application version and build information",
		},
		[]string{"version", "go_version"},
	)
)

// RecordAPIRequest records an API request metric.
func RecordAPIRequest(method, endpoint, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, endpoint, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, endpoint).Observe(duration.Seconds())
}

// TrackActiveRequest tracks in-flight API requests.
func TrackActiveRequest(inc bool) {
	if inc {
		APIActiveRequests.Inc()
	} else {
		APIActiveRequests.Dec()
	}
}

// RecordTelemetryRequest records one call to the telemetry API.
func RecordTelemetryRequest(endpoint, status string, duration time.Duration) {
	TelemetryRequestsTotal.WithLabelValues(endpoint, status).Inc()
	TelemetryRequestDuration.WithLabelValues(endpoint).Observe(duration.Seconds())
}

// RecordDeviceFetch records the outcome of one coordinator fetch. reason is
// empty for succeeded and failed outcomes.
func RecordDeviceFetch(outcome, reason string, duration time.Duration) {
	DeviceFetchesTotal.WithLabelValues(outcome, reason).Inc()
	DeviceFetchDuration.WithLabelValues(outcome).Observe(duration.Seconds())
}

// RecordMapTransition records a map session phase change and keeps the
// active-session gauge in step with it.
func RecordMapTransition(from, to string) {
	MapSessionTransitions.WithLabelValues(from, to).Inc()
	if to == "ready" {
		MapSessionsActive.Inc()
	}
	if from == "ready" {
		MapSessionsActive.Dec()
	}
}
