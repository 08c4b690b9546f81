// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

/*
Package main is the entry point for the Tourbook server.

Tourbook takes tour bookings from a public site, opens a hosted payment
session with the card processor, and confirms paid bookings with a PDF
invoice sent by email.

# Application Architecture

Long-running components run under a Suture v4 supervision tree:

	RootSupervisor ("tourbook")
	├── DataSupervisor ("tourbook/data")
	│   └── Ledger GC (badger ledger only)
	├── MessagingSupervisor ("tourbook/messaging")
	│   └── Event bus router (gochannel or NATS JetStream)
	└── APISupervisor ("tourbook/api")
	    └── HTTP server

Startup order:

 1. Configuration: .env, defaults, YAML file, environment (Koanf v2)
 2. Logging: zerolog, with slog bridged for the supervisor
 3. Storage: DuckDB or Postgres via sqlx, plus the event ledger
 4. Payments pipeline: catalog, currency, checkout, webhook processor
 5. Notifications: PDF renderer and mailer behind the dispatcher
 6. Supervision tree, then the HTTP listener

# Signals

SIGINT and SIGTERM cancel the root context. /readyz turns 503 for
server.drain_delay, then the HTTP server drains in-flight requests for
server.shutdown_timeout. Only after the API layer has stopped does the event
bus stop, and storage is closed last.

# Usage

	STRIPE_SECRET_KEY=sk_test_... STRIPE_WEBHOOK_SECRET=whsec_... ./tourbook

See internal/config for every setting. The OpenAPI document is served at
/swagger/index.html; regenerate docs/ with swag init -g cmd/server/docs.go
after changing handler annotations.
*/
package main
