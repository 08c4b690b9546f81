// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package database

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tomtom215/tourbook/internal/logging"
)

// Migration is one append-only schema change. SQL may use the {{timestamp}}
// token, which becomes the dialect's timestamp-with-zone type.
type Migration struct {
	Version   int
	Name      string
	SQL       string
	AppliedAt time.Time `db:"applied_at"`
}

const schemaMigrationsTable = `
CREATE TABLE IF NOT EXISTS schema_migrations (
	version INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	applied_at {{timestamp}} NOT NULL
)`

// migrations must never be edited once released; add new versions instead.
var migrations = []Migration{
	{Version: 1, Name: "tours", SQL: `
CREATE TABLE IF NOT EXISTS tours (
	id TEXT PRIMARY KEY,
	slug TEXT NOT NULL UNIQUE,
	title TEXT NOT NULL,
	base_price BIGINT NOT NULL CHECK (base_price >= 0),
	duration_hours DOUBLE PRECISION,
	city TEXT
)`},
	{Version: 2, Name: "bookings", SQL: `
CREATE TABLE IF NOT EXISTS bookings (
	id TEXT PRIMARY KEY,
	stripe_session_id TEXT NOT NULL UNIQUE,
	status TEXT NOT NULL,
	tour_id TEXT,
	tour_slug TEXT NOT NULL,
	tour_title TEXT NOT NULL,
	date TEXT NOT NULL,
	persons INTEGER NOT NULL,
	total BIGINT NOT NULL,
	currency TEXT NOT NULL,
	customer_email TEXT NOT NULL,
	customer_name TEXT NOT NULL,
	customer_phone TEXT NOT NULL,
	created_at {{timestamp}} NOT NULL,
	updated_at {{timestamp}} NOT NULL
)`},
	{Version: 3, Name: "processed_events", SQL: `
CREATE TABLE IF NOT EXISTS processed_events (
	event_id TEXT PRIMARY KEY,
	event_type TEXT NOT NULL,
	processed_at {{timestamp}} NOT NULL
)`},
	{Version: 4, Name: "invoice_sends", SQL: `
CREATE TABLE IF NOT EXISTS invoice_sends (
	stripe_session_id TEXT PRIMARY KEY,
	message_id TEXT NOT NULL,
	sent_at {{timestamp}} NOT NULL
)`},
	{Version: 5, Name: "events", SQL: `
CREATE TABLE IF NOT EXISTS events (
	id TEXT PRIMARY KEY,
	type TEXT NOT NULL,
	outcome TEXT NOT NULL,
	session_id TEXT NOT NULL,
	actor TEXT NOT NULL,
	description TEXT NOT NULL,
	payload TEXT,
	request_id TEXT NOT NULL,
	created_at {{timestamp}} NOT NULL
)`},
	{Version: 6, Name: "events_session_index", SQL: `
CREATE INDEX IF NOT EXISTS idx_events_session ON events (session_id, created_at)`},
}

// Migrations returns a copy of the schema history.
func Migrations() []Migration {
	return append([]Migration(nil), migrations...)
}

func (db *DB) dialect(sql string) string {
	ts := "TIMESTAMPTZ"
	if db.driver == DriverDuckDB {
		// Stored as UTC; TIMESTAMPTZ arithmetic in DuckDB needs the ICU extension.
		ts = "TIMESTAMP"
	}
	return strings.ReplaceAll(sql, "{{timestamp}}", ts)
}

// migrate applies every migration not yet recorded in schema_migrations.
func (db *DB) migrate(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	if _, err := db.conn.ExecContext(ctx, db.dialect(schemaMigrationsTable)); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var applied []int
	if err := db.conn.SelectContext(ctx, &applied, `SELECT version FROM schema_migrations`); err != nil {
		return fmt.Errorf("failed to query applied migrations: %w", err)
	}
	done := make(map[int]bool, len(applied))
	for _, v := range applied {
		done[v] = true
	}

	count := 0
	for _, m := range migrations {
		if done[m.Version] {
			continue
		}
		tx, err := db.conn.BeginTxx(ctx, nil)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, db.dialect(m.SQL)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to execute migration v%d (%s): %w", m.Version, m.Name, err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO schema_migrations (version, name, applied_at) VALUES ($1, $2, $3)`,
			m.Version, m.Name, time.Now().UTC()); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration v%d: %w", m.Version, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration v%d: %w", m.Version, err)
		}
		count++
	}

	if count > 0 {
		logging.Info().Int("applied", count).Int("version", db.latest()).Msg("Applied database migrations")
	}
	return nil
}

func (db *DB) latest() int {
	return migrations[len(migrations)-1].Version
}

// SchemaVersion returns the highest applied migration.
func (db *DB) SchemaVersion(ctx context.Context) (int, error) {
	var v int
	if err := db.conn.GetContext(ctx, &v, `SELECT COALESCE(MAX(version), 0) FROM schema_migrations`); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return v, nil
}

// History returns the applied migrations in order.
func (db *DB) History(ctx context.Context) ([]Migration, error) {
	var out []Migration
	err := db.conn.SelectContext(ctx, &out,
		`SELECT version, name, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, fmt.Errorf("failed to query migration history: %w", err)
	}
	return out, nil
}
