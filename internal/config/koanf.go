// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order; the first existing file wins.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/fieldmap/config.yaml",
	"/etc/fieldmap/config.yml",
}

// ConfigPathEnvVar overrides the config file location.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Telemetry: TelemetryConfig{
			BaseURL:               "http://localhost:8086/api",
			Token:                 "",
			Timeout:               15 * time.Second,
			RetryAttempts:         3,
			RetryDelay:            time.Second,
			CircuitBreakerEnabled: true,
		},
		Fetch: FetchConfig{
			Timeout: 10 * time.Second,
		},
		Storage: StorageConfig{
			Backend:    "badger",
			Path:       "/data/locations",
			GCInterval: 10 * time.Minute,
		},
		Map: MapConfig{
			DefaultLongitude: -98,
			DefaultLatitude:  39,
			DefaultZoom:      4,
			LocatedZoom:      10,
			FocusZoom:        12,
			RingSegments:     64,
			RadiusScale: RadiusScaleConfig{
				Temperature: 2,
				Moisture:    5,
				Nutrient:    3,
			},
			CreateTimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			Timeout:         30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Security: SecurityConfig{
			RateLimitReqs:     100,
			RateLimitWindow:   time.Minute,
			RateLimitDisabled: false,
			CORSOrigins:       []string{"*"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// LoadWithKoanf loads configuration in three layers:
//  1. Built-in defaults
//  2. Optional YAML file (CONFIG_PATH or DefaultConfigPaths)
//  3. Mapped environment variables
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}
	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}
		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	// Telemetry API
	"telemetry_url":             "telemetry.base_url",
	"telemetry_token":           "telemetry.token",
	"telemetry_timeout":         "telemetry.timeout",
	"telemetry_retry_attempts":  "telemetry.retry_attempts",
	"telemetry_retry_delay":     "telemetry.retry_delay",
	"telemetry_circuit_breaker": "telemetry.circuit_breaker_enabled",
	"fetch_timeout":             "fetch.timeout",

	// Storage
	"storage_backend":     "storage.backend",
	"storage_path":        "storage.path",
	"storage_gc_interval": "storage.gc_interval",

	// Map
	"map_default_longitude":    "map.default_longitude",
	"map_default_latitude":     "map.default_latitude",
	"map_default_zoom":         "map.default_zoom",
	"map_located_zoom":         "map.located_zoom",
	"map_focus_zoom":           "map.focus_zoom",
	"map_ring_segments":        "map.ring_segments",
	"map_create_timeout":       "map.create_timeout",
	"radius_scale_temperature": "map.radius_scale.temperature",
	"radius_scale_moisture":    "map.radius_scale.moisture",
	"radius_scale_nutrient":    "map.radius_scale.nutrient",

	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_timeout":          "server.timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Security
	"rate_limit_requests": "security.rate_limit_reqs",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",
	"cors_origins":        "security.cors_origins",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps known environment variables to koanf paths and
// drops everything else, e.g. TELEMETRY_URL -> telemetry.base_url.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
