// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package locationcache

import (
	"fmt"
	"sync"

	"github.com/dgraph-io/badger/v4"
)

// Store is synchronous string-keyed blob storage.
type Store interface {
	// Get returns the blob for key; found is false when nothing was stored.
	Get(key string) (value []byte, found bool, err error)
	Set(key string, value []byte) error
}

// StoreType names a Store backend.
type StoreType string

const (
	// StoreMemory keeps blobs in process memory only.
	StoreMemory StoreType = "memory"

	// StoreBadger persists blobs in BadgerDB.
	StoreBadger StoreType = "badger"
)

// MemoryStore is a map-backed Store.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

// Get implements Store.
func (s *MemoryStore) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Set implements Store.
func (s *MemoryStore) Set(key string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)
	s.mu.Lock()
	s.data[key] = v
	s.mu.Unlock()
	return nil
}

// StoreFactory opens the Store selected by configuration and owns the
// underlying database handle.
type StoreFactory struct {
	db *badger.DB
}

// NewStoreFactory opens BadgerDB at path for StoreBadger. StoreMemory opens
// nothing.
func NewStoreFactory(storeType StoreType, path string) (*StoreFactory, error) {
	f := &StoreFactory{}
	switch storeType {
	case StoreBadger:
		opts := badger.DefaultOptions(path)
		opts.Logger = nil

		db, err := badger.Open(opts)
		if err != nil {
			return nil, fmt.Errorf("open badger db for locations: %w", err)
		}
		f.db = db
	case StoreMemory, "":
	default:
		return nil, fmt.Errorf("unknown store type %q", storeType)
	}
	return f, nil
}

// CreateStore returns a BadgerStore when a database is open, else a MemoryStore.
func (f *StoreFactory) CreateStore() Store {
	if f.db != nil {
		return NewBadgerStore(f.db)
	}
	return NewMemoryStore()
}

// DB returns the BadgerDB handle, or nil for the memory backend.
func (f *StoreFactory) DB() *badger.DB {
	return f.db
}

// Close closes the database if one was opened.
func (f *StoreFactory) Close() error {
	if f.db != nil {
		return f.db.Close()
	}
	return nil
}
