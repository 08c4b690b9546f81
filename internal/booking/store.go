// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package booking persists the booking row of each paid or pending checkout
// session. A booking is keyed by its provider session id: writing the same
// session twice updates the row instead of adding one.
package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tourbook/internal/models"
)

// ErrNotFound is returned when no booking has the session id.
var ErrNotFound = errors.New("booking not found")

// Store persists bookings.
type Store interface {
	// Upsert inserts b or updates the row with the same StripeSessionID.
	// On return b carries the stored ID and timestamps.
	Upsert(ctx context.Context, b *models.Booking) error

	GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error)

	// SetStatus changes the status of an existing booking. It reports false
	// when no booking has the session id.
	SetStatus(ctx context.Context, sessionID string, status models.BookingStatus) (bool, error)

	List(ctx context.Context, filter ListFilter) ([]models.Booking, error)
}

// ListFilter selects bookings, newest first.
type ListFilter struct {
	Status models.BookingStatus
	Email  string
	Limit  int
	Offset int
}

// MaxListLimit caps one page.
const MaxListLimit = 200

func (f ListFilter) limit() int {
	if f.Limit <= 0 {
		return 50
	}
	return min(f.Limit, MaxListLimit)
}

// prepare validates b and fills the fields the store owns.
func prepare(b *models.Booking, now time.Time) error {
	if b.StripeSessionID == "" {
		return errors.New("booking has no session id")
	}
	if !b.Status.Valid() {
		return fmt.Errorf("invalid booking status %q", b.Status)
	}
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	if b.CreatedAt.IsZero() {
		b.CreatedAt = now
	}
	b.UpdatedAt = now
	return nil
}
