// Fieldmap - Field Sensor Monitoring and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/fieldmap

package services

import (
	"context"
	"errors"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/tomtom215/fieldmap/internal/logging"
	"github.com/tomtom215/fieldmap/internal/metrics"
)

// DefaultDiscardRatio is the share of stale data a value-log file must hold
// before it is rewritten.
const DefaultDiscardRatio = 0.5

// maxRewritesPerPass bounds one pass so a large backlog cannot stall
// shutdown for long.
const maxRewritesPerPass = 8

// ValueLogCollector is satisfied by *badger.DB.
type ValueLogCollector interface {
	RunValueLogGC(discardRatio float64) error
}

// StorageGCService periodically reclaims space in the badger value log that
// backs the location cache. Every Put rewrites the whole location blob, so
// the log accumulates stale versions quickly.
type StorageGCService struct {
	db           ValueLogCollector
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewStorageGCService creates the GC service. A non-positive interval means
// 10 minutes.
func NewStorageGCService(db ValueLogCollector, interval time.Duration) *StorageGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	return &StorageGCService{
		db:           db,
		interval:     interval,
		discardRatio: DefaultDiscardRatio,
		name:         "storage-gc",
	}
}

// Serve implements suture.Service.
func (s *StorageGCService) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	logging.Info().Dur("interval", s.interval).Msg("Location store GC started")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.collect(ctx)
		}
	}
}

// collect rewrites value-log files until badger reports nothing left to do.
func (s *StorageGCService) collect(ctx context.Context) {
	start := time.Now()
	rewritten := 0
	for rewritten < maxRewritesPerPass && ctx.Err() == nil {
		err := s.db.RunValueLogGC(s.discardRatio)
		if errors.Is(err, badger.ErrNoRewrite) || errors.Is(err, badger.ErrRejected) {
			break
		}
		if err != nil {
			metrics.StorageGCRuns.WithLabelValues("error").Inc()
			logging.Error().Err(err).Msg("Location store GC failed")
			return
		}
		rewritten++
	}

	if rewritten == 0 {
		metrics.StorageGCRuns.WithLabelValues("nothing").Inc()
		return
	}
	metrics.StorageGCRuns.WithLabelValues("rewritten").Inc()
	logging.Debug().Int("files", rewritten).Dur("duration", time.Since(start)).Msg("Location store GC rewrote value log")
}

// String names the service in supervisor logs.
func (s *StorageGCService) String() string {
	return s.name
}
