// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package database opens the relational store shared by the booking store,
// the event ledger, the audit trail and the catalog.
//
// Two drivers are supported:
//   - duckdb: embedded, the default for single-node deployments
//   - postgres: via lib/pq, for deployments that already run Postgres
//
// Both speak the same SQL for everything the application issues: numbered
// placeholders ($1), INSERT ... ON CONFLICT and the :: cast. The only schema
// difference is the timestamp column type, handled by the migrations.
package database
