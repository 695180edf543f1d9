// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package main is the entry point for the fieldmap server.

Fieldmap puts field sensors on a map. It reads the device list and latest
readings from a telemetry API, remembers each device's last known
coordinates, and drives browser map sessions over a websocket: device
markers, temperature, moisture and nutrient rings, and camera moves.

# Startup

 1. Configuration: koanf v2 (defaults, optional YAML, environment)
 2. Logging: zerolog, bridged to slog for the supervisor
 3. Location store: BadgerDB or memory, loaded into the location cache
 4. Telemetry client: HTTP with retries, behind a gobreaker circuit breaker
 5. Dashboard service and map session hub
 6. Chi router and HTTP server
 7. Suture supervisor tree

The supervisor tree:

	fieldmap
	├── storage-layer
	│   └── storage-gc (badger only)
	├── messaging-layer
	│   └── map-session-hub
	└── api-layer
	    └── http-server

# Configuration

Common environment variables:

	TELEMETRY_URL        base URL of the sensor API
	TELEMETRY_TOKEN      bearer token for the sensor API
	FETCH_TIMEOUT        deadline for one reading fetch (default 10s)
	STORAGE_BACKEND      badger or memory (default badger)
	STORAGE_PATH         badger directory (default /data/locations)
	HTTP_PORT            listen port (default 8080)
	CORS_ORIGINS         comma-separated allowed origins
	LOG_LEVEL            trace, debug, info, warn, error

CONFIG_PATH points at a YAML file; see internal/config for every key.

# Signals

SIGINT and SIGTERM cancel the supervisor tree. The HTTP server drains for
HTTP_SHUTDOWN_TIMEOUT, the hub closes every map session, and the location
store is closed last.
*/
package main
