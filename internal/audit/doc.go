// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package audit keeps an append-only trail of everything that touched a
// booking: provider events as received, state changes, refused transitions,
// invoice deliveries and admin actions.
//
// Events are written asynchronously through a buffered Logger so the webhook
// path never waits on the trail. A full buffer drops the event with a warning
// rather than blocking.
//
// Stores:
//   - SQLStore: the events table of the shared database (DuckDB or Postgres)
//   - MemoryStore: bounded, for development and tests
package audit
