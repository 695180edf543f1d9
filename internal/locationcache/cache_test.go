// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package locationcache

import (
	"errors"
	"math"
	"sync"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/fieldmap/internal/models"
)

// failingStore returns the configured errors from Get and Set.
type failingStore struct {
	*MemoryStore
	getErr error
	setErr error
}

func (s *failingStore) Get(key string) ([]byte, bool, error) {
	if s.getErr != nil {
		return nil, false, s.getErr
	}
	return s.MemoryStore.Get(key)
}

func (s *failingStore) Set(key string, value []byte) error {
	if s.setErr != nil {
		return s.setErr
	}
	return s.MemoryStore.Set(key, value)
}

// ===================================================================================================
// Put / Get
// ===================================================================================================

func TestCache_PutThenGet(t *testing.T) {
	c := New(NewMemoryStore())

	if err := c.Put("d1", -98.5, 39.1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	loc, ok := c.Get("d1")
	if !ok {
		t.Fatal("Get() found = false")
	}
	if loc.Longitude != -98.5 || loc.Latitude != 39.1 || loc.DeviceID != "d1" {
		t.Errorf("Get() = %+v", loc)
	}
}

func TestCache_PutOverwrites(t *testing.T) {
	c := New(NewMemoryStore())

	_ = c.Put("d1", 1, 2)
	if err := c.Put("d1", 3, 4); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	loc, _ := c.Get("d1")
	if loc.Longitude != 3 || loc.Latitude != 4 {
		t.Errorf("Get() = %+v, want overwritten (3, 4)", loc)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestCache_GetMissing(t *testing.T) {
	c := New(NewMemoryStore())
	if _, ok := c.Get("nope"); ok {
		t.Error("Get() on unknown device should report not found")
	}
}

func TestCache_PutRejectsInvalid(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)

	tests := []struct {
		name     string
		id       string
		lon, lat float64
	}{
		{"longitude too large", "d1", 181, 0},
		{"longitude too small", "d1", -180.5, 0},
		{"latitude too large", "d1", 0, 90.01},
		{"nan", "d1", math.NaN(), 10},
		{"empty id", "", 1, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Put(tt.id, tt.lon, tt.lat)
			if !errors.Is(err, ErrInvalidLocation) {
				t.Errorf("Put() error = %v, want ErrInvalidLocation", err)
			}
		})
	}

	if c.Len() != 0 {
		t.Errorf("Len() = %d, invalid puts must not be stored", c.Len())
	}
	if _, found, _ := store.Get(StorageKey); found {
		t.Error("invalid puts must not write to the store")
	}
}

func TestCache_BoundaryValuesAccepted(t *testing.T) {
	c := New(NewMemoryStore())
	for _, p := range [][2]float64{{180, 90}, {-180, -90}, {0, 0}} {
		if err := c.Put("edge", p[0], p[1]); err != nil {
			t.Errorf("Put(%v) error = %v", p, err)
		}
	}
}

// ===================================================================================================
// Persistence
// ===================================================================================================

func TestCache_WriteThroughRoundTrip(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	_ = c.Put("17", -98.5, 39.1)
	_ = c.Put("23", 2.35, 48.85)

	// A second cache over the same store simulates a restart.
	reloaded := New(store)
	if reloaded.Len() != 2 {
		t.Fatalf("reloaded Len() = %d, want 2", reloaded.Len())
	}
	loc, ok := reloaded.Get("23")
	if !ok || loc.Longitude != 2.35 || loc.Latitude != 48.85 {
		t.Errorf("reloaded Get(23) = %+v, %v", loc, ok)
	}
}

func TestCache_BlobFormat(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)
	_ = c.Put("7", 10.5, -20.25)

	blob, found, err := store.Get(StorageKey)
	if err != nil || !found {
		t.Fatalf("store.Get() = found %v, err %v", found, err)
	}
	var decoded map[string]map[string]float64
	if err := json.Unmarshal(blob, &decoded); err != nil {
		t.Fatalf("blob is not JSON: %v", err)
	}
	if decoded["7"]["longitude"] != 10.5 || decoded["7"]["latitude"] != -20.25 {
		t.Errorf("blob = %s", blob)
	}
}

func TestCache_CorruptBlobIsEmpty(t *testing.T) {
	for _, blob := range []string{"not json", `{"a":`, `[1,2,3]`, `"string"`} {
		store := NewMemoryStore()
		_ = store.Set(StorageKey, []byte(blob))

		c := New(store)
		if c.Len() != 0 {
			t.Errorf("blob %q: Len() = %d, want 0", blob, c.Len())
		}
		if err := c.Put("d1", 1, 1); err != nil {
			t.Errorf("blob %q: Put() after corrupt load error = %v", blob, err)
		}
	}
}

func TestCache_StoreReadErrorIsEmpty(t *testing.T) {
	c := New(&failingStore{MemoryStore: NewMemoryStore(), getErr: errors.New("disk gone")})
	if c.Len() != 0 {
		t.Errorf("Len() = %d, want 0", c.Len())
	}
}

func TestCache_LoadSkipsInvalidEntries(t *testing.T) {
	store := NewMemoryStore()
	_ = store.Set(StorageKey, []byte(`{"ok":{"longitude":1,"latitude":2},"bad":{"longitude":500,"latitude":2}}`))

	c := New(store)
	if c.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", c.Len())
	}
	if _, ok := c.Get("bad"); ok {
		t.Error("out-of-range entry should be skipped on load")
	}
}

func TestCache_PersistFailureKeepsMemory(t *testing.T) {
	store := &failingStore{MemoryStore: NewMemoryStore(), setErr: errors.New("quota exceeded")}
	c := New(store)

	err := c.Put("d1", 5, 6)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("Put() error = %v, want ErrPersist", err)
	}
	if loc, ok := c.Get("d1"); !ok || loc.Longitude != 5 {
		t.Errorf("in-memory value should be kept, got %+v %v", loc, ok)
	}
}

// ===================================================================================================
// Listing / change hook
// ===================================================================================================

func TestCache_AllSortedAndFirst(t *testing.T) {
	c := New(NewMemoryStore())
	if _, ok := c.First(); ok {
		t.Error("First() on empty cache should report false")
	}
	_ = c.Put("b", 2, 2)
	_ = c.Put("a", 1, 1)
	_ = c.Put("c", 3, 3)

	all := c.All()
	if len(all) != 3 || all[0].DeviceID != "a" || all[2].DeviceID != "c" {
		t.Errorf("All() = %+v", all)
	}
	first, ok := c.First()
	if !ok || first.DeviceID != "a" {
		t.Errorf("First() = %+v, %v", first, ok)
	}
}

func TestCache_OnChange(t *testing.T) {
	c := New(NewMemoryStore())
	var got []models.DeviceLocation
	c.SetOnChange(func(loc models.DeviceLocation) {
		got = append(got, loc)
		// Re-entrant reads must not deadlock.
		_ = c.Len()
	})

	_ = c.Put("d1", 1, 1)
	_ = c.Put("d1", 999, 1)

	if len(got) != 1 || got[0].DeviceID != "d1" {
		t.Errorf("onChange calls = %+v, want one for the valid put", got)
	}
}

func TestCache_ConcurrentPuts(t *testing.T) {
	store := NewMemoryStore()
	c := New(store)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = c.Put(string(rune('a'+i%26)), float64(i%180), float64(i%90))
		}(i)
	}
	wg.Wait()

	reloaded := New(store)
	if reloaded.Len() != c.Len() {
		t.Errorf("persisted %d entries, memory has %d", reloaded.Len(), c.Len())
	}
}
