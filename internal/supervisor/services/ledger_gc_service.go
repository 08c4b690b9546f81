// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package services

import (
	"context"
	"time"

	"github.com/tomtom215/tourbook/internal/logging"
)

// GarbageCollector reclaims storage. *ledger.Badger satisfies it.
type GarbageCollector interface {
	RunGC(discardRatio float64) error
}

// LedgerGCService runs value log GC on the badger ledger at a fixed
// interval. GC errors are logged; the loop keeps going.
type LedgerGCService struct {
	gc           GarbageCollector
	interval     time.Duration
	discardRatio float64
	name         string
}

// NewLedgerGCService creates the service. Zero values use a 10 minute
// interval and a 0.5 discard ratio.
func NewLedgerGCService(gc GarbageCollector, interval time.Duration, discardRatio float64) *LedgerGCService {
	if interval <= 0 {
		interval = 10 * time.Minute
	}
	if discardRatio <= 0 || discardRatio >= 1 {
		discardRatio = 0.5
	}
	return &LedgerGCService{
		gc:           gc,
		interval:     interval,
		discardRatio: discardRatio,
		name:         "ledger-gc",
	}
}

// Serve implements suture.Service.
func (s *LedgerGCService) Serve(ctx context.Context) error {
	log := logging.WithComponent(s.name)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			start := time.Now()
			if err := s.gc.RunGC(s.discardRatio); err != nil {
				log.Warn().Err(err).Msg("ledger gc failed")
				continue
			}
			log.Debug().Dur("took", time.Since(start)).Msg("ledger gc complete")
		}
	}
}

// String implements fmt.Stringer for supervisor logs.
func (s *LedgerGCService) String() string {
	return s.name
}
