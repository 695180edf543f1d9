// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

// Package locationcache remembers the last known coordinates of every device.
//
// The whole map is kept in memory and serialized as one JSON object under a
// single Store key on every Put, so a restart sees exactly what the last
// successful Put wrote:
//
//	{"17": {"longitude": -98.5, "latitude": 39.1}, "23": {...}}
//
// A missing or unreadable blob yields an empty cache; it is never an error.
package locationcache

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
	"github.com/tomtom215/fieldmap/internal/models"
	"github.com/tomtom215/fieldmap/internal/validation"
)

// StorageKey is the Store key holding the serialized location map.
const StorageKey = "fieldmap:device_locations"

var (
	// ErrInvalidLocation is returned by Put for out-of-range coordinates or
	// an unusable device id. Nothing is written.
	ErrInvalidLocation = errors.New("invalid device location")

	// ErrPersist is returned by Put when the in-memory update succeeded but
	// the Store write failed.
	ErrPersist = errors.New("persist device locations")
)

// storedLocation is the per-device value in the persisted blob.
type storedLocation struct {
	Longitude float64 `json:"longitude"`
	Latitude  float64 `json:"latitude"`
}

// Cache is a write-through map of device id to last known location.
type Cache struct {
	mu       sync.RWMutex
	store    Store
	entries  map[string]models.DeviceLocation
	onChange func(models.DeviceLocation)
}

// New creates a Cache and loads any previously persisted locations from store.
func New(store Store) *Cache {
	c := &Cache{
		store:   store,
		entries: make(map[string]models.DeviceLocation),
	}
	c.load()
	return c
}

// load must only be called from New.
func (c *Cache) load() {
	blob, found, err := c.store.Get(StorageKey)
	if err != nil {
		logging.Warn().Err(err).Msg("Failed to read saved device locations, starting empty")
		metrics.LocationCacheLoadFailures.Inc()
		return
	}
	if !found || len(blob) == 0 {
		return
	}

	var stored map[string]storedLocation
	if err := json.Unmarshal(blob, &stored); err != nil {
		logging.Warn().Err(err).Int("bytes", len(blob)).Msg("Saved device locations are corrupt, starting empty")
		metrics.LocationCacheLoadFailures.Inc()
		return
	}

	skipped := 0
	for id, s := range stored {
		loc := models.DeviceLocation{DeviceID: id, Longitude: s.Longitude, Latitude: s.Latitude}
		if verr := validation.ValidateStruct(&loc); verr != nil {
			skipped++
			continue
		}
		c.entries[id] = loc
	}
	if skipped > 0 {
		logging.Warn().Int("skipped", skipped).Msg("Ignored invalid saved device locations")
	}
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
	logging.Debug().Int("devices", len(c.entries)).Msg("Loaded saved device locations")
}

// SetOnChange registers fn to run after every successful Put. fn runs outside
// the cache lock and may call back into the Cache.
func (c *Cache) SetOnChange(fn func(models.DeviceLocation)) {
	c.mu.Lock()
	c.onChange = fn
	c.mu.Unlock()
}

// Get returns the remembered location of deviceID.
func (c *Cache) Get(deviceID string) (models.DeviceLocation, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	loc, ok := c.entries[deviceID]
	return loc, ok
}

// Put records the location of deviceID and writes the full map through to
// the Store. The in-memory value is kept even when the write fails; the
// error then wraps ErrPersist.
func (c *Cache) Put(deviceID string, lon, lat float64) error {
	loc := models.DeviceLocation{DeviceID: deviceID, Longitude: lon, Latitude: lat}
	if verr := validation.ValidateStruct(&loc); verr != nil {
		metrics.LocationCacheWrites.WithLabelValues("invalid").Inc()
		return fmt.Errorf("%w: %v", ErrInvalidLocation, verr)
	}

	c.mu.Lock()
	c.entries[deviceID] = loc
	metrics.LocationCacheEntries.Set(float64(len(c.entries)))
	err := c.persistLocked()
	onChange := c.onChange
	c.mu.Unlock()

	if err != nil {
		metrics.LocationCacheWrites.WithLabelValues("persist_error").Inc()
		logging.Error().Err(err).Str("device_id", deviceID).Msg("Failed to persist device locations")
		err = fmt.Errorf("%w: %v", ErrPersist, err)
	} else {
		metrics.LocationCacheWrites.WithLabelValues("ok").Inc()
	}

	if onChange != nil {
		onChange(loc)
	}
	return err
}

func (c *Cache) persistLocked() error {
	stored := make(map[string]storedLocation, len(c.entries))
	for id, loc := range c.entries {
		stored[id] = storedLocation{Longitude: loc.Longitude, Latitude: loc.Latitude}
	}
	blob, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal locations: %w", err)
	}
	return c.store.Set(StorageKey, blob)
}

// All returns every remembered location ordered by device id.
func (c *Cache) All() []models.DeviceLocation {
	c.mu.RLock()
	out := make([]models.DeviceLocation, 0, len(c.entries))
	for _, loc := range c.entries {
		out = append(out, loc)
	}
	c.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].DeviceID < out[j].DeviceID })
	return out
}

// First returns the location with the lowest device id, used to centre a
// freshly mounted map.
func (c *Cache) First() (models.DeviceLocation, bool) {
	all := c.All()
	if len(all) == 0 {
		return models.DeviceLocation{}, false
	}
	return all[0], true
}

// Len returns the number of remembered devices.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
