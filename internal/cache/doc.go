// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package cache provides a bounded, expiring LRU map.
//
// It fronts slow lookups whose answers change rarely, such as catalog rows
// read from Postgres. Entries expire lazily on read and the least recently
// used entry is evicted when capacity is reached.
package cache
