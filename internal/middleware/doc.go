// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package middleware provides infrastructure HTTP middleware for the API router.

  - PrometheusMetrics: request count, latency and in-flight gauge, labelled by
    chi route pattern so path parameters do not explode label cardinality
  - Compression: gzip for export responses (KML, GeoJSON) when the client
    accepts it; WebSocket upgrades pass through untouched

Both have the chi signature func(http.Handler) http.Handler:

	r.Route("/api/v1", func(r chi.Router) {
	    r.Use(middleware.PrometheusMetrics)
	    r.With(middleware.Compression).Get("/locations/export.kml", h.ExportKML)
	})
*/
package middleware
