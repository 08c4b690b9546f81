// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

/*
Package api exposes the booking pipeline over HTTP using the Chi router.

Public routes:

	POST /checkout                 create a hosted checkout session
	GET  /checkout/session/{id}    booking status for the success page
	POST /webhooks/payments        payment provider events

Operator routes (mounted only when admin credentials are configured):

	POST /admin/token                                   exchange credentials for a bearer token
	GET  /admin/bookings                                list bookings
	GET  /admin/bookings/{sessionId}                    one booking
	POST /admin/bookings/{sessionId}/resend-invoice     send the confirmation again

Probes: /healthz, /readyz and /metrics.

# Response Shapes

The checkout endpoints answer with the small bodies the booking widget
expects: {url, sessionId} on success, {error} for client mistakes and
{error, code} for server-side failures. The webhook endpoint answers
{received: true}.

Operator endpoints use the envelope

	{"success": true, "data": ..., "meta": {...}}
	{"success": false, "error": {"code": "NOT_FOUND", "message": "..."}}

# Webhook Failures

A processing failure returns 500 in production so the provider redelivers
the event. In development it returns 200 with the error in the body, so a
missing downstream (email key, catalog) does not stall local testing.
*/
package api
