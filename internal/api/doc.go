// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package api provides the HTTP layer of Fieldmap.

Routes:

	GET /api/v1/health/live              liveness probe
	GET /api/v1/health/ready             readiness (503 while the telemetry breaker is open)
	GET /api/v1/devices                  device list from the telemetry API
	GET /api/v1/locations                every remembered device location
	GET /api/v1/locations/{deviceID}     one remembered location
	GET /api/v1/locations/export.kml     remembered locations as KML
	GET /api/v1/map/overlays/{deviceID}  GeoJSON of what the map draws for a device
	GET /api/v1/ws                       map session over WebSocket
	GET /metrics                         Prometheus

JSON endpoints answer with the APIResponse envelope:

	{"success": true, "data": [...], "meta": {"request_id": "...", "count": 2}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

The overlay and KML endpoints return raw GeoJSON and KML documents.

Middleware, outermost first: request id with logging context, RealIP,
panic recovery, CORS (go-chi/cors), per-IP rate limits (go-chi/httprate),
security headers and Prometheus request metrics.
*/
package api
