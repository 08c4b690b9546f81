// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package auth protects the back-office API.
//
// There is a single operator account configured with a bcrypt password
// hash. A successful login returns an HS256 JWT that is presented as a
// Bearer token on every admin request. Repeated failures lock the account
// (and the caller's IP) out for a while.
package auth
