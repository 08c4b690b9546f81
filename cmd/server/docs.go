// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// @title Tourbook API
// @version 1.0
// @description Tour booking checkout, payment webhooks and booking administration.
// @description
// @description Prices always come from the tour catalog; amounts are in minor units of the settlement currency.
// @description Admin endpoints take a bearer token from POST /admin/token.
//
// @contact.name Tom F.
// @contact.url https://github.com/tomtom215/tourbook
//
// @license.name AGPL-3.0-or-later
// @license.url https://www.gnu.org/licenses/agpl-3.0.html
//
// @BasePath /
//
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and the admin token.

package main
