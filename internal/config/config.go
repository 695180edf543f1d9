// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

// Package config loads Fieldmap configuration from defaults, an optional
// YAML file and environment variables, in that order of precedence.
//
//	cfg, err := config.Load()
//	if err != nil {
//	    logging.Fatal().Err(err).Msg("Failed to load configuration")
//	}
//
// Config is immutable after Load and safe for concurrent reads.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Telemetry TelemetryConfig `koanf:"telemetry"`
	Fetch     FetchConfig     `koanf:"fetch"`
	Storage   StorageConfig   `koanf:"storage"`
	Map       MapConfig       `koanf:"map"`
	Server    ServerConfig    `koanf:"server"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// TelemetryConfig points at the sensor telemetry REST API.
type TelemetryConfig struct {
	BaseURL string        `koanf:"base_url" validate:"required,url"`
	Token   string        `koanf:"token"`
	Timeout time.Duration `koanf:"timeout"`

	// RetryAttempts bounds 429 backoff retries per request.
	RetryAttempts int           `koanf:"retry_attempts"`
	RetryDelay    time.Duration `koanf:"retry_delay"`

	CircuitBreakerEnabled bool `koanf:"circuit_breaker_enabled"`
}

// FetchConfig controls the per-selection telemetry fetch.
type FetchConfig struct {
	// Timeout is applied to every device fetch; expiry counts as cancellation.
	Timeout time.Duration `koanf:"timeout"`
}

// StorageConfig selects where remembered device locations are kept.
type StorageConfig struct {
	// Backend is "badger" (durable) or "memory".
	Backend    string        `koanf:"backend"`
	Path       string        `koanf:"path"`
	GCInterval time.Duration `koanf:"gc_interval"`
}

// MapConfig holds view defaults and overlay sizing.
type MapConfig struct {
	DefaultLongitude float64 `koanf:"default_longitude" validate:"longitude"`
	DefaultLatitude  float64 `koanf:"default_latitude" validate:"latitude"`
	DefaultZoom      float64 `koanf:"default_zoom"`

	// LocatedZoom is used at mount when a remembered location exists.
	LocatedZoom float64 `koanf:"located_zoom"`

	// FocusZoom is used when panning to a single device.
	FocusZoom float64 `koanf:"focus_zoom"`

	RingSegments int               `koanf:"ring_segments"`
	RadiusScale  RadiusScaleConfig `koanf:"radius_scale"`

	// CreateTimeout bounds how long a surface may take to report ready.
	CreateTimeout time.Duration `koanf:"create_timeout"`
}

// RadiusScaleConfig maps a reading value to a ring radius in map units.
type RadiusScaleConfig struct {
	Temperature float64 `koanf:"temperature"`
	Moisture    float64 `koanf:"moisture"`
	Nutrient    float64 `koanf:"nutrient"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"`

	// ShutdownTimeout bounds graceful HTTP shutdown.
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// SecurityConfig holds browser-facing protections.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Addr returns the host:port the HTTP server listens on.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// Load reads configuration from defaults, the optional config file and the
// environment. See LoadWithKoanf.
func Load() (*Config, error) {
	return LoadWithKoanf()
}
