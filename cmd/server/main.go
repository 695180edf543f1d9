// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/tomtom215/fieldmap/internal/api"
	"github.com/tomtom215/fieldmap/internal/config"
	"github.com/tomtom215/fieldmap/internal/dashboard"
	"github.com/tomtom215/fieldmap/internal/locationcache"
	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/mapview"
	"github.com/tomtom215/fieldmap/internal/metrics"
	"github.com/tomtom215/fieldmap/internal/supervisor"
	"github.com/tomtom215/fieldmap/internal/supervisor/services"
	"github.com/tomtom215/fieldmap/internal/telemetry"
	ws "github.com/tomtom215/fieldmap/internal/websocket"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Output:    os.Stderr,
	})
	metrics.AppInfo.WithLabelValues(version, runtime.Version()).Set(1)

	logging.Info().
		Str("version", version).
		Str("telemetry_url", cfg.Telemetry.BaseURL).
		Str("storage", cfg.Storage.Backend).
		Msg("Starting fieldmap")

	stores, err := locationcache.NewStoreFactory(locationcache.StoreType(cfg.Storage.Backend), cfg.Storage.Path)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to open location store")
	}
	defer func() {
		if err := stores.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing location store")
		}
	}()
	cache := locationcache.New(stores.CreateStore())
	logging.Info().Int("devices", cache.Len()).Msg("Location cache loaded")

	hub := ws.NewHub()
	cache.SetOnChange(hub.BroadcastLocationUpdated)

	telemetryAPI, breaker := newTelemetryClient(&cfg.Telemetry)

	svc := dashboard.NewService(telemetryAPI, cache, mapview.OptionsFromConfig(&cfg.Map), cfg.Fetch.Timeout)

	handler := api.NewHandler(svc, hub, cfg)
	if breaker != nil {
		handler.SetTelemetryBreaker(breaker)
	}

	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is DISABLED (DISABLE_RATE_LIMIT=true)")
	}
	for _, origin := range cfg.Security.CORSOrigins {
		if origin == "*" {
			logging.Warn().Msg("CORS allows any origin (CORS_ORIGINS=*); set explicit origins in production")
			break
		}
	}

	router := api.NewRouter(handler, api.ChiMiddlewareConfigFromSecurity(&cfg.Security))
	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           router.SetupChi(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       60 * time.Second,
	}

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if db := stores.DB(); db != nil {
		tree.AddStorageService(services.NewStorageGCService(db, cfg.Storage.GCInterval))
	}
	tree.AddMessagingService(services.NewMapHubService(hub))
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := tree.ServeBackground(ctx)
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutdown signal received, stopping services")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
	}
	stop()

	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("Supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, s := range unstopped {
		logging.Warn().Str("service", s.Name).Msg("Service failed to stop")
	}

	logging.Info().Msg("Fieldmap stopped")
}

// newTelemetryClient builds the sensor API client. The breaker is nil when
// the circuit breaker is disabled.
func newTelemetryClient(cfg *config.TelemetryConfig) (telemetry.API, api.BreakerState) {
	if !cfg.CircuitBreakerEnabled {
		logging.Warn().Msg("Telemetry circuit breaker disabled")
		return telemetry.NewHTTPClient(cfg), nil
	}
	cb := telemetry.NewCircuitBreakerClient(cfg)
	return cb, cb
}
