// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

// Package dashboard wires device selection to the fetch coordinator and the
// map session controller. A Service is shared by all connections; each
// connected browser gets its own Session.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/tomtom215/fieldmap/internal/locationcache"
	"github.com/tomtom215/fieldmap/internal/mapview"
	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/telemetry"
)

// ErrUnknownDevice is returned for a device id missing from the device list.
var ErrUnknownDevice = errors.New("unknown device")

// Service holds what sessions share: the telemetry client, the location
// cache, map options and the last device list.
type Service struct {
	api          telemetry.API
	cache        *locationcache.Cache
	mapOpts      mapview.Options
	fetchTimeout time.Duration

	mu      sync.RWMutex
	devices []models.Device
	byID    map[string]models.Device
}

// NewService creates a Service.
func NewService(api telemetry.API, cache *locationcache.Cache, mapOpts mapview.Options, fetchTimeout time.Duration) *Service {
	return &Service{
		api:          api,
		cache:        cache,
		mapOpts:      mapOpts,
		fetchTimeout: fetchTimeout,
		byID:         make(map[string]models.Device),
	}
}

// Cache returns the shared location cache.
func (s *Service) Cache() *locationcache.Cache {
	return s.cache
}

// MapOptions returns the map options sessions are created with.
func (s *Service) MapOptions() mapview.Options {
	return s.mapOpts
}

// Devices fetches the device list from the telemetry API and remembers it
// for serial-number lookups.
func (s *Service) Devices(ctx context.Context) ([]models.Device, error) {
	devices, err := s.api.GetDevices(ctx)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]models.Device, len(devices))
	for _, d := range devices {
		byID[d.Key()] = d
	}
	s.mu.Lock()
	s.devices = devices
	s.byID = byID
	s.mu.Unlock()
	return devices, nil
}

// Device returns a device from the last fetched list.
func (s *Service) Device(deviceID string) (models.Device, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	d, ok := s.byID[deviceID]
	return d, ok
}

// serialFor maps a device id to the serial number the logs endpoint wants.
// The list is refreshed once for an unknown id.
func (s *Service) serialFor(ctx context.Context, deviceID string) (string, error) {
	if d, ok := s.Device(deviceID); ok {
		return d.SerialNumber, nil
	}
	if _, err := s.Devices(ctx); err != nil {
		return "", err
	}
	if d, ok := s.Device(deviceID); ok {
		return d.SerialNumber, nil
	}
	return "", fmt.Errorf("%w: %s", ErrUnknownDevice, deviceID)
}

// LatestReading fetches the newest reading for deviceID.
func (s *Service) LatestReading(ctx context.Context, deviceID string) (*models.TelemetryReading, error) {
	serial, err := s.serialFor(ctx, deviceID)
	if err != nil {
		return nil, err
	}
	return s.api.GetLatestReading(ctx, serial)
}

// Overlays fetches the latest reading for deviceID and returns what a map
// session would draw for it with flags. A failed fetch falls back to the
// remembered location without rings.
func (s *Service) Overlays(ctx context.Context, deviceID string, flags models.OverlayStyleFlags) (mapview.Plan, error) {
	ctx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	reading, err := s.LatestReading(ctx, deviceID)
	if err != nil {
		if errors.Is(err, ErrUnknownDevice) {
			return mapview.Plan{}, err
		}
		// A failed fetch never contributes overlays.
		reading = nil
	}

	plan := mapview.BuildPlan(mapview.Scene{DeviceID: deviceID, Reading: reading, Flags: flags}, s.cache, s.mapOpts)
	return plan, err
}
