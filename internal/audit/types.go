// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package audit

import (
	"context"
	"time"

	"github.com/goccy/go-json"
)

// EventType names what happened.
type EventType string

const (
	EventTypeWebhookReceived    EventType = "webhook.received"
	EventTypeWebhookFailed      EventType = "webhook.failed"
	EventTypeBookingUpserted    EventType = "booking.upserted"
	EventTypeBookingCanceled    EventType = "booking.canceled"
	EventTypePaymentFailed      EventType = "payment.failed"
	EventTypeTransitionRejected EventType = "transition.rejected"
	EventTypeInvoiceSent        EventType = "invoice.sent"
	EventTypeInvoiceFailed      EventType = "invoice.failed"
	EventTypeAdminLogin         EventType = "admin.login"
	EventTypeAdminLoginFailed   EventType = "admin.login_failed"
	EventTypeAdminResend        EventType = "admin.resend_invoice"
)

// Outcome of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
	OutcomeIgnored Outcome = "ignored"
)

// Well-known actors.
const (
	ActorProvider = "provider"
	ActorSystem   = "system"
)

// Event is one audit record.
type Event struct {
	ID          string          `json:"id" db:"id"`
	Timestamp   time.Time       `json:"timestamp" db:"created_at"`
	Type        EventType       `json:"type" db:"type"`
	Outcome     Outcome         `json:"outcome" db:"outcome"`
	SessionID   string          `json:"sessionId,omitempty" db:"session_id"`
	Actor       string          `json:"actor" db:"actor"`
	Description string          `json:"description" db:"description"`
	Payload     json.RawMessage `json:"payload,omitempty" db:"-"`
	RequestID   string          `json:"requestId,omitempty" db:"request_id"`
}

// Store persists audit events.
type Store interface {
	Save(ctx context.Context, event *Event) error
	Query(ctx context.Context, filter QueryFilter) ([]Event, error)
}

// QueryFilter selects events, newest first.
type QueryFilter struct {
	SessionID string
	Types     []EventType
	Since     time.Time
	Limit     int
}

func (f QueryFilter) limit() int {
	if f.Limit <= 0 || f.Limit > 1000 {
		return 100
	}
	return f.Limit
}

func (f QueryFilter) hasType(t EventType) bool {
	if len(f.Types) == 0 {
		return true
	}
	for _, want := range f.Types {
		if want == t {
			return true
		}
	}
	return false
}
