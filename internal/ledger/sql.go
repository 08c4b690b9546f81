// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// SQL stores the ledger in the processed_events and invoice_sends tables.
type SQL struct {
	db *sqlx.DB
}

// NewSQL returns a ledger over a migrated database.
func NewSQL(db *sqlx.DB) *SQL {
	return &SQL{db: db}
}

// Seen implements EventLedger.
func (s *SQL) Seen(ctx context.Context, eventID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM processed_events WHERE event_id = $1`, eventID)
}

// MarkSeen implements EventLedger.
func (s *SQL) MarkSeen(ctx context.Context, eventID, eventType string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_events (event_id, event_type, processed_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING`,
		eventID, eventType, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("mark event %s seen: %w", eventID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark event %s seen: %w", eventID, err)
	}
	return n > 0, nil
}

// InvoiceSent implements InvoiceMarkers.
func (s *SQL) InvoiceSent(ctx context.Context, sessionID string) (bool, error) {
	return s.exists(ctx, `SELECT 1 FROM invoice_sends WHERE stripe_session_id = $1`, sessionID)
}

// MarkInvoiceSent implements InvoiceMarkers.
func (s *SQL) MarkInvoiceSent(ctx context.Context, sessionID, messageID string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO invoice_sends (stripe_session_id, message_id, sent_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (stripe_session_id) DO NOTHING`,
		sessionID, messageID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark invoice sent for %s: %w", sessionID, err)
	}
	return nil
}

// ClearInvoiceSent implements InvoiceMarkers.
func (s *SQL) ClearInvoiceSent(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM invoice_sends WHERE stripe_session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("clear invoice marker for %s: %w", sessionID, err)
	}
	return nil
}

// Close implements Ledger. The database is owned by the caller.
func (s *SQL) Close() error { return nil }

func (s *SQL) exists(ctx context.Context, query string, arg string) (bool, error) {
	var one int
	err := s.db.GetContext(ctx, &one, query, arg)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
