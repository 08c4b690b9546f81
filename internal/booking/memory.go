// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package booking

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/tomtom215/tourbook/internal/models"
)

// MemoryStore keeps bookings in process.
type MemoryStore struct {
	mu    sync.RWMutex
	rows  map[string]*models.Booking
	clock func() time.Time
}

// NewMemoryStore returns an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		rows:  make(map[string]*models.Booking),
		clock: func() time.Time { return time.Now().UTC() },
	}
}

// Upsert implements Store.
func (s *MemoryStore) Upsert(_ context.Context, b *models.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.rows[b.StripeSessionID]; ok {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
	}
	if err := prepare(b, s.clock()); err != nil {
		return err
	}
	cp := *b
	s.rows[b.StripeSessionID] = &cp
	return nil
}

// GetBySessionID implements Store.
func (s *MemoryStore) GetBySessionID(_ context.Context, sessionID string) (*models.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	b, ok := s.rows[sessionID]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

// SetStatus implements Store.
func (s *MemoryStore) SetStatus(_ context.Context, sessionID string, status models.BookingStatus) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.rows[sessionID]
	if !ok {
		return false, nil
	}
	b.Status = status
	b.UpdatedAt = s.clock()
	return true, nil
}

// List implements Store.
func (s *MemoryStore) List(_ context.Context, f ListFilter) ([]models.Booking, error) {
	s.mu.RLock()
	out := make([]models.Booking, 0, len(s.rows))
	for _, b := range s.rows {
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Email != "" && !strings.EqualFold(b.CustomerEmail, f.Email) {
			continue
		}
		out = append(out, *b)
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b models.Booking) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(b.ID, a.ID)
	})
	if f.Offset >= len(out) {
		return []models.Booking{}, nil
	}
	out = out[f.Offset:]
	return out[:min(len(out), f.limit())], nil
}
