// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package services adapts fieldmap's long-running components to suture v4.

Each wrapper implements suture.Service and fmt.Stringer:

	HTTPServerService  ListenAndServe / Shutdown          api layer
	MapHubService      websocket.Hub.RunWithContext       messaging layer
	StorageGCService   badger value-log GC on a ticker    storage layer

The wrappers depend on small interfaces (HTTPServer, SessionHub,
ValueLogCollector) rather than the concrete types so they can be tested
with fakes.

Returning nil or ctx.Err() after cancellation is a clean stop; any other
error makes the supervisor restart the service with backoff.
*/
package services
