// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

/*
Package supervisor runs fieldmap's long-lived services under a suture v4 tree.

	fieldmap
	├── storage-layer
	│   └── storage-gc        (badger backend only)
	├── messaging-layer
	│   └── map-session-hub
	└── api-layer
	    └── http-server

Crashed services restart with backoff; failures are counted per layer so a
misbehaving GC pass cannot exhaust the restart budget of the HTTP server.
Supervisor events are logged through sutureslog with the slog bridge from
internal/logging.

Usage in main:

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	if err != nil {
	    return err
	}
	tree.AddMessagingService(services.NewMapHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	return tree.Serve(ctx)
*/
package supervisor
