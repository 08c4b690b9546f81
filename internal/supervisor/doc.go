// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package supervisor runs the long-lived parts of the server under a
// suture supervisor tree.
//
// The tree has three layers so a crash in one does not take down the
// others:
//
//	tourbook
//	├── data-layer       ledger maintenance
//	├── messaging-layer  event bus router
//	└── api-layer        HTTP server
//
// Supervisor events are logged through sutureslog, which the logging
// package bridges into zerolog.
package supervisor
