// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package locationcache

import (
	"os"
	"testing"

	"github.com/dgraph-io/badger/v4"
)

func createTestBadgerDB(t *testing.T) (*badger.DB, func()) {
	t.Helper()

	dir, err := os.MkdirTemp("", "badger-locations-test-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	opts := badger.DefaultOptions(dir)
	opts.Logger = nil
	db, err := badger.Open(opts)
	if err != nil {
		os.RemoveAll(dir)
		t.Fatalf("Failed to open BadgerDB: %v", err)
	}

	return db, func() {
		db.Close()
		os.RemoveAll(dir)
	}
}

func TestBadgerStore_GetMissing(t *testing.T) {
	db, cleanup := createTestBadgerDB(t)
	defer cleanup()

	store := NewBadgerStore(db)
	v, found, err := store.Get("absent")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found || v != nil {
		t.Errorf("Get() = %q, %v; want nil, false", v, found)
	}
}

func TestBadgerStore_SetGet(t *testing.T) {
	db, cleanup := createTestBadgerDB(t)
	defer cleanup()

	store := NewBadgerStore(db)
	if err := store.Set("k", []byte("v1")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if err := store.Set("k", []byte("v2")); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	v, found, err := store.Get("k")
	if err != nil || !found || string(v) != "v2" {
		t.Errorf("Get() = %q, %v, %v", v, found, err)
	}
}

func TestBadgerStore_CacheSurvivesReopen(t *testing.T) {
	dir, err := os.MkdirTemp("", "badger-locations-reopen-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}
	defer os.RemoveAll(dir)

	f, err := NewStoreFactory(StoreBadger, dir)
	if err != nil {
		t.Fatalf("NewStoreFactory() error = %v", err)
	}
	c := New(f.CreateStore())
	if err := c.Put("17", -98.5, 39.1); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	f2, err := NewStoreFactory(StoreBadger, dir)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer f2.Close()

	loc, ok := New(f2.CreateStore()).Get("17")
	if !ok || loc.Longitude != -98.5 || loc.Latitude != 39.1 {
		t.Errorf("after reopen Get() = %+v, %v", loc, ok)
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	s := NewMemoryStore()
	in := []byte("abc")
	_ = s.Set("k", in)
	in[0] = 'z'

	out, _, _ := s.Get("k")
	if string(out) != "abc" {
		t.Errorf("Get() = %q, store must copy on Set", out)
	}
	out[1] = 'z'
	again, _, _ := s.Get("k")
	if string(again) != "abc" {
		t.Errorf("Get() = %q, store must copy on Get", again)
	}
}

func TestNewStoreFactory(t *testing.T) {
	f, err := NewStoreFactory(StoreMemory, "")
	if err != nil {
		t.Fatalf("memory factory error = %v", err)
	}
	if f.DB() != nil {
		t.Error("memory factory should not open a database")
	}
	if _, ok := f.CreateStore().(*MemoryStore); !ok {
		t.Error("memory factory should create a MemoryStore")
	}
	if err := f.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	if _, err := NewStoreFactory("etcd", ""); err == nil {
		t.Error("unknown store type should fail")
	}
}
