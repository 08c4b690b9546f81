// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package audit

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// SQLStore writes to the events table.
type SQLStore struct {
	db *sqlx.DB
}

// NewSQLStore returns a store over a migrated database.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db}
}

// Save implements Store.
func (s *SQLStore) Save(ctx context.Context, e *Event) error {
	var payload *string
	if len(e.Payload) > 0 {
		p := string(e.Payload)
		payload = &p
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, type, outcome, session_id, actor, description, payload, request_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		e.ID, string(e.Type), string(e.Outcome), e.SessionID, e.Actor, e.Description, payload, e.RequestID, e.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

type eventRow struct {
	Event
	Payload *string `db:"payload"`
}

// Query implements Store.
func (s *SQLStore) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	if filter.SessionID != "" {
		conds = append(conds, "session_id = "+arg(filter.SessionID))
	}
	if !filter.Since.IsZero() {
		conds = append(conds, "created_at >= "+arg(filter.Since.UTC()))
	}
	if len(filter.Types) > 0 {
		ph := make([]string, len(filter.Types))
		for i, t := range filter.Types {
			ph[i] = arg(string(t))
		}
		conds = append(conds, "type IN ("+strings.Join(ph, ", ")+")")
	}

	query := `SELECT id, type, outcome, session_id, actor, description, payload, request_id, created_at FROM events`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC LIMIT " + arg(filter.limit())

	var rows []eventRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("query audit events: %w", err)
	}
	out := make([]Event, len(rows))
	for i, r := range rows {
		out[i] = r.Event
		if r.Payload != nil {
			out[i].Payload = []byte(*r.Payload)
		}
		out[i].Timestamp = r.Timestamp.UTC()
	}
	return out, nil
}
