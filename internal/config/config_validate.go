// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package config

import (
	"fmt"
	"time"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/validation"
)

const (
	minRateLimitRequests = 1
	maxRateLimitRequests = 100000
	minRateLimitWindow   = time.Second
	maxRateLimitWindow   = time.Hour
)

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if err := validation.ValidateStruct(c); err != nil {
		return err
	}
	if err := c.validateTelemetry(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateMap(); err != nil {
		return err
	}
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateRateLimits(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateTelemetry() error {
	if c.Telemetry.Timeout <= 0 {
		return fmt.Errorf("TELEMETRY_TIMEOUT must be positive")
	}
	if c.Telemetry.RetryAttempts < 0 {
		return fmt.Errorf("TELEMETRY_RETRY_ATTEMPTS must not be negative")
	}
	if c.Fetch.Timeout <= 0 {
		return fmt.Errorf("FETCH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Storage.Backend {
	case "memory":
		return nil
	case "badger":
		if c.Storage.Path == "" {
			return fmt.Errorf("STORAGE_PATH is required when STORAGE_BACKEND=badger")
		}
		return nil
	default:
		return fmt.Errorf("STORAGE_BACKEND must be one of: badger, memory")
	}
}

func (c *Config) validateMap() error {
	if c.Map.RingSegments < 3 {
		return fmt.Errorf("MAP_RING_SEGMENTS must be at least 3")
	}
	scales := map[string]float64{
		"RADIUS_SCALE_TEMPERATURE": c.Map.RadiusScale.Temperature,
		"RADIUS_SCALE_MOISTURE":    c.Map.RadiusScale.Moisture,
		"RADIUS_SCALE_NUTRIENT":    c.Map.RadiusScale.Nutrient,
	}
	for name, v := range scales {
		if v < 0 {
			return fmt.Errorf("%s must not be negative", name)
		}
	}
	for name, z := range map[string]float64{
		"MAP_DEFAULT_ZOOM": c.Map.DefaultZoom,
		"MAP_LOCATED_ZOOM": c.Map.LocatedZoom,
		"MAP_FOCUS_ZOOM":   c.Map.FocusZoom,
	} {
		if z < 0 || z > 24 {
			return fmt.Errorf("%s must be between 0 and 24", name)
		}
	}
	if c.Map.CreateTimeout <= 0 {
		return fmt.Errorf("MAP_CREATE_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535")
	}
	return nil
}

func (c *Config) validateRateLimits() error {
	if c.Security.RateLimitDisabled {
		return nil
	}
	if c.Security.RateLimitReqs < minRateLimitRequests || c.Security.RateLimitReqs > maxRateLimitRequests {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be between %d and %d", minRateLimitRequests, maxRateLimitRequests)
	}
	if c.Security.RateLimitWindow < minRateLimitWindow || c.Security.RateLimitWindow > maxRateLimitWindow {
		return fmt.Errorf("RATE_LIMIT_WINDOW must be between %v and %v", minRateLimitWindow, maxRateLimitWindow)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if !logging.ValidLevel(c.Logging.Level) {
		return fmt.Errorf("LOG_LEVEL must be one of: trace, debug, info, warn, error")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "console" {
		return fmt.Errorf("LOG_FORMAT must be one of: json, console")
	}
	return nil
}
