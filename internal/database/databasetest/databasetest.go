// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package databasetest opens throwaway databases for tests.
package databasetest

import (
	"context"
	"testing"

	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/database"
)

// duckSemaphore serializes in-memory DuckDB use across parallel tests in one
// package; concurrent CGO-heavy databases starve CI runners.
var duckSemaphore = make(chan struct{}, 1)

// NewDuckDB returns a migrated in-memory DuckDB database closed at test end.
// The database is held exclusively until the test completes.
func NewDuckDB(tb testing.TB) *database.DB {
	tb.Helper()

	duckSemaphore <- struct{}{}
	tb.Cleanup(func() { <-duckSemaphore })

	db, err := database.Open(context.Background(), &config.DatabaseConfig{
		Driver:       database.DriverDuckDB,
		Path:         ":memory:",
		MaxOpenConns: 4,
	})
	if err != nil {
		tb.Fatalf("open duckdb: %v", err)
	}
	tb.Cleanup(func() { _ = db.Close() })
	return db
}
