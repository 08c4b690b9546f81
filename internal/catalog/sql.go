// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/tomtom215/tourbook/internal/models"
)

// SQLSource reads tours from a Postgres tours table.
type SQLSource struct {
	db *sqlx.DB
}

// NewSQLSource returns a source backed by db.
func NewSQLSource(db *sqlx.DB) *SQLSource {
	return &SQLSource{db: db}
}

const tourColumns = `id::text AS id, slug, title, base_price, COALESCE(duration_hours, 0) AS duration_hours, COALESCE(city, '') AS city`

// BySlug implements Source.
func (s *SQLSource) BySlug(ctx context.Context, slug string) (*models.Tour, error) {
	var t models.Tour
	err := s.db.GetContext(ctx, &t, `SELECT `+tourColumns+` FROM tours WHERE slug = $1 LIMIT 1`, slug)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrTourNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query tour by slug: %w", err)
	}
	return &t, nil
}

// ByTitle implements Source.
func (s *SQLSource) ByTitle(ctx context.Context, title string) (*models.Tour, error) {
	var ts []models.Tour
	err := s.db.SelectContext(ctx, &ts, `SELECT `+tourColumns+` FROM tours WHERE lower(title) = lower($1) LIMIT 2`, title)
	if err != nil {
		return nil, fmt.Errorf("query tour by title: %w", err)
	}
	if len(ts) != 1 {
		return nil, ErrTourNotFound
	}
	return &ts[0], nil
}
