// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package payments is the boundary to the payment provider. Callers work
// with the provider-neutral types in this file; stripe.go adapts them to
// stripe-go.
package payments

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidSignature is returned when a webhook payload fails verification.
	ErrInvalidSignature = errors.New("invalid webhook signature")

	// ErrSessionNotFound is returned when no checkout session matches a lookup.
	ErrSessionNotFound = errors.New("checkout session not found")
)

// Payment statuses reported on a session.
const (
	PaymentStatusPaid              = "paid"
	PaymentStatusUnpaid            = "unpaid"
	PaymentStatusNoPaymentRequired = "no_payment_required"
)

// Event types the webhook receiver dispatches on.
const (
	EventCheckoutCompleted           = "checkout.session.completed"
	EventCheckoutAsyncPaymentSucceed = "checkout.session.async_payment_succeeded"
	EventCheckoutAsyncPaymentFailed  = "checkout.session.async_payment_failed"
	EventCheckoutExpired             = "checkout.session.expired"
	EventPaymentIntentSucceeded      = "payment_intent.succeeded"
	EventChargeRefunded              = "charge.refunded"
)

// Gateway creates and looks up checkout sessions and verifies webhooks.
type Gateway interface {
	CreateSession(ctx context.Context, p SessionParams) (*Session, error)
	GetSession(ctx context.Context, id string) (*Session, error)
	// SessionByPaymentIntent returns the session that created the payment
	// intent, or ErrSessionNotFound.
	SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error)
	// VerifyEvent checks the signature header over the raw payload and
	// decodes the event envelope.
	VerifyEvent(payload []byte, signatureHeader string) (*Event, error)
}

// LineItem is one priced row on the hosted payment page.
type LineItem struct {
	Name        string
	Description string
	Currency    string
	UnitAmount  int64
	Quantity    int64
}

// SessionParams is everything needed to open a hosted checkout session.
type SessionParams struct {
	IdempotencyKey  string
	SuccessURL      string
	CancelURL       string
	CustomerEmail   string
	Locale          string
	LineItems       []LineItem
	Metadata        Metadata
	ExpiresAt       time.Time
	RecoveryEnabled bool
}

// AmountTotal sums the line items.
func (p SessionParams) AmountTotal() int64 {
	var total int64
	for _, li := range p.LineItems {
		total += li.UnitAmount * li.Quantity
	}
	return total
}

// Session is a provider checkout session.
type Session struct {
	ID              string
	URL             string
	Status          string
	PaymentStatus   string
	AmountTotal     int64
	Currency        string
	CustomerEmail   string
	CustomerName    string
	CustomerPhone   string
	PaymentIntentID string
	Metadata        Metadata
	// RawMetadata keeps the provider bag for audit; code reads Metadata.
	RawMetadata map[string]string
}

// Paid reports whether the provider considers the session settled.
func (s *Session) Paid() bool {
	return s.PaymentStatus == PaymentStatusPaid || s.PaymentStatus == PaymentStatusNoPaymentRequired
}

// Event is a verified webhook event. Object is the raw JSON of data.object.
type Event struct {
	ID       string
	Type     string
	Created  time.Time
	Livemode bool
	Object   []byte
	Payload  []byte
}

// ProviderError is a rejection reported by the payment provider.
type ProviderError struct {
	Status  int
	Type    string
	Code    string
	Message string
	Err     error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("payment provider error %s: %s", e.Code, e.Message)
	}
	return "payment provider error: " + e.Message
}

func (e *ProviderError) Unwrap() error { return e.Err }

// ClientFault reports whether the provider blamed the request itself.
// Rate limiting is not a client fault; retrying later succeeds.
func (e *ProviderError) ClientFault() bool {
	return e.Status >= 400 && e.Status < 500 && e.Status != 429
}
