// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package metrics defines the Prometheus collectors exported on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP

	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status_code"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tourbook_api_request_duration_seconds",
			Help:    "API request duration in seconds",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route"},
	)

	// Checkout

	CheckoutSessionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_checkout_sessions_total",
			Help: "Checkout attempts by outcome (created, reused, invalid, not_found, provider_error, error)",
		},
		[]string{"outcome"},
	)

	CatalogFallbackTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_catalog_fallback_total",
			Help: "Catalog lookups answered by the static dataset, by reason",
		},
		[]string{"reason"},
	)

	// Webhooks

	WebhookEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_webhook_events_total",
			Help: "Webhook deliveries by event type and outcome",
		},
		[]string{"type", "outcome"},
	)

	WebhookProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "tourbook_webhook_processing_duration_seconds",
			Help:    "Time spent processing a verified webhook event",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"type"},
	)

	TransitionsRejectedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_booking_transitions_rejected_total",
			Help: "Status changes refused by the booking state machine",
		},
		[]string{"from", "trigger"},
	)

	BookingStatusChanges = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_booking_status_changes_total",
			Help: "Booking status changes observed on the event bus",
		},
		[]string{"status"},
	)

	// Notifications

	InvoicesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_invoices_total",
			Help: "Confirmation emails by outcome (sent, sent_without_pdf, skipped, failed)",
		},
		[]string{"outcome"},
	)

	// Circuit breakers

	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "tourbook_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	CircuitBreakerRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_circuit_breaker_requests_total",
			Help: "Requests through a circuit breaker by result (success, failure, rejected)",
		},
		[]string{"name", "result"},
	)

	CircuitBreakerTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tourbook_circuit_breaker_state_transitions_total",
			Help: "Circuit breaker state transitions",
		},
		[]string{"name", "from_state", "to_state"},
	)
)

// RecordAPIRequest records one HTTP request.
func RecordAPIRequest(method, route, statusCode string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, statusCode).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordWebhookEvent records the outcome of one webhook delivery.
func RecordWebhookEvent(eventType, outcome string) {
	if eventType == "" {
		eventType = "unknown"
	}
	WebhookEventsTotal.WithLabelValues(eventType, outcome).Inc()
}
