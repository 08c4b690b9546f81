// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package services adapts long-running components to suture.Service.
//
// Each wrapper turns a component's own lifecycle (ListenAndServe/Shutdown,
// a blocking Serve, a periodic job) into Serve(ctx) that returns when ctx
// is canceled, and names itself through String for supervisor logs.
package services
