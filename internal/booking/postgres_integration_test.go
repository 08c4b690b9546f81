// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

//go:build integration

package booking_test

import (
	"context"
	"testing"

	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/database"
	"github.com/tomtom215/tourbook/internal/testinfra"
)

func TestPostgresStore(t *testing.T) {
	pg := testinfra.NewPostgres(t)

	db, err := database.Open(context.Background(), &config.DatabaseConfig{
		Driver: database.DriverPostgres,
		DSN:    pg.DSN,
	})
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	runStoreContract(t, booking.NewSQLStore(db.Conn()))
}
