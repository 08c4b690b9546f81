// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package ledger remembers which provider events were already processed and
// which bookings already received their confirmation email.
//
// Seen events make webhook handling idempotent across provider retries.
// Invoice markers make the confirmation email exactly-once per session.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/jmoiron/sqlx"
)

// ErrClosed is returned after Close.
var ErrClosed = errors.New("ledger is closed")

// Backend names.
const (
	BackendSQL    = "sql"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// EventLedger deduplicates provider events.
type EventLedger interface {
	// Seen reports whether eventID was already processed.
	Seen(ctx context.Context, eventID string) (bool, error)

	// MarkSeen records eventID if absent. It reports whether this call
	// recorded it.
	MarkSeen(ctx context.Context, eventID, eventType string) (bool, error)
}

// InvoiceMarkers records confirmation deliveries.
type InvoiceMarkers interface {
	InvoiceSent(ctx context.Context, sessionID string) (bool, error)

	// MarkInvoiceSent records a delivery. Recording twice is not an error.
	MarkInvoiceSent(ctx context.Context, sessionID, messageID string) error

	// ClearInvoiceSent forgets a delivery so it can be sent again.
	ClearInvoiceSent(ctx context.Context, sessionID string) error
}

// Ledger is both.
type Ledger interface {
	EventLedger
	InvoiceMarkers
	Close() error
}

// Options selects and configures a backend.
type Options struct {
	Backend string

	// DB is required for BackendSQL.
	DB *sqlx.DB

	// BadgerPath is the badger directory; empty runs badger in memory.
	BadgerPath string

	// EventTTL expires seen-event ids in badger. Zero keeps them forever.
	EventTTL time.Duration
}

// Open builds the configured ledger.
func Open(opts Options) (Ledger, error) {
	switch opts.Backend {
	case BackendSQL:
		if opts.DB == nil {
			return nil, errors.New("sql ledger requires a database")
		}
		return NewSQL(opts.DB), nil
	case BackendBadger:
		bopts := badger.DefaultOptions(opts.BadgerPath).WithLogger(nil)
		if opts.BadgerPath == "" {
			bopts = bopts.WithInMemory(true)
		}
		db, err := badger.Open(bopts)
		if err != nil {
			return nil, fmt.Errorf("open badger ledger: %w", err)
		}
		return NewBadger(db, opts.EventTTL, true), nil
	case BackendMemory, "":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown ledger backend %q", opts.Backend)
	}
}
