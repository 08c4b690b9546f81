// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package testinfra starts real backing services in Docker for integration
// tests. Everything here is behind the integration build tag:
//
//	go test -tags integration ./...
//
// # Postgres
//
//	func TestStore(t *testing.T) {
//	    testinfra.SkipIfNoDocker(t)
//	    pg := testinfra.NewPostgres(t)
//	    db, err := database.Open(ctx, &config.DatabaseConfig{
//	        Driver: database.DriverPostgres,
//	        DSN:    pg.DSN,
//	    })
//	    // ...
//	}
//
// Containers are terminated through t.Cleanup. Tests skip instead of failing
// when no Docker daemon is reachable.
package testinfra
