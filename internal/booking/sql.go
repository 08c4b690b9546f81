// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/tourbook/internal/database"
	"github.com/tomtom215/tourbook/internal/models"
)

// SQLStore stores bookings in the bookings table of DuckDB or Postgres.
type SQLStore struct {
	db    *sqlx.DB
	clock func() time.Time
}

// NewSQLStore returns a store over a migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, clock: func() time.Time { return time.Now().UTC() }}
}

const bookingColumns = `id, stripe_session_id, status, tour_id, tour_slug, tour_title, date, persons,
	total, currency, customer_email, customer_name, customer_phone, created_at, updated_at`

// Upsert implements Store. created_at and id of an existing row are kept.
func (s *SQLStore) Upsert(ctx context.Context, b *models.Booking) error {
	if err := prepare(b, s.clock()); err != nil {
		return err
	}

	var err error
	for attempt := 0; attempt < conflictRetries; attempt++ {
		err = s.upsertOnce(ctx, b)
		if !database.IsTransactionConflict(err) {
			break
		}
	}
	if err != nil {
		return fmt.Errorf("upsert booking %s: %w", b.StripeSessionID, err)
	}
	normalizeTimes(b)
	return nil
}

// conflictRetries bounds retries of DuckDB optimistic write conflicts.
const conflictRetries = 3

func (s *SQLStore) upsertOnce(ctx context.Context, b *models.Booking) error {
	return s.db.GetContext(ctx, b, `
		INSERT INTO bookings (`+bookingColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (stripe_session_id) DO UPDATE SET
			status = excluded.status,
			tour_id = excluded.tour_id,
			tour_slug = excluded.tour_slug,
			tour_title = excluded.tour_title,
			date = excluded.date,
			persons = excluded.persons,
			total = excluded.total,
			currency = excluded.currency,
			customer_email = excluded.customer_email,
			customer_name = excluded.customer_name,
			customer_phone = excluded.customer_phone,
			updated_at = excluded.updated_at
		RETURNING `+bookingColumns,
		b.ID, b.StripeSessionID, string(b.Status), b.TourID, b.TourSlug, b.TourTitle, b.Date, b.Persons,
		b.Total, b.Currency, b.CustomerEmail, b.CustomerName, b.CustomerPhone, b.CreatedAt.UTC(), b.UpdatedAt.UTC())
}

// GetBySessionID implements Store.
func (s *SQLStore) GetBySessionID(ctx context.Context, sessionID string) (*models.Booking, error) {
	var b models.Booking
	err := s.db.GetContext(ctx, &b, `SELECT `+bookingColumns+` FROM bookings WHERE stripe_session_id = $1`, sessionID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", sessionID, err)
	}
	normalizeTimes(&b)
	return &b, nil
}

// SetStatus implements Store.
func (s *SQLStore) SetStatus(ctx context.Context, sessionID string, status models.BookingStatus) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("invalid booking status %q", status)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE bookings SET status = $1, updated_at = $2 WHERE stripe_session_id = $3`,
		string(status), s.clock(), sessionID)
	if err != nil {
		return false, fmt.Errorf("set booking %s status: %w", sessionID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// List implements Store.
func (s *SQLStore) List(ctx context.Context, f ListFilter) ([]models.Booking, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if f.Status != "" {
		conds = append(conds, "status = "+arg(string(f.Status)))
	}
	if f.Email != "" {
		conds = append(conds, "lower(customer_email) = "+arg(strings.ToLower(f.Email)))
	}

	query := `SELECT ` + bookingColumns + ` FROM bookings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(f.limit()) + " OFFSET " + arg(max(f.Offset, 0))

	out := []models.Booking{}
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	for i := range out {
		normalizeTimes(&out[i])
	}
	return out, nil
}

func normalizeTimes(b *models.Booking) {
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
}
