// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/auth"
	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/checkout"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/notify"
	"github.com/tomtom215/tourbook/internal/payments"
	"github.com/tomtom215/tourbook/internal/webhook"
)

// Body size limits.
const (
	maxCheckoutBody = 64 << 10
	maxWebhookBody  = 1 << 20
	maxLoginBody    = 4 << 10
)

// CheckoutService opens and reads checkout sessions.
type CheckoutService interface {
	Create(ctx context.Context, req checkout.Request, acceptLanguage string) (*checkout.Result, error)
	Lookup(ctx context.Context, sessionID string) (*checkout.Status, error)
}

// WebhookHandler verifies and applies provider events.
type WebhookHandler interface {
	Handle(ctx context.Context, payload []byte, signature string) (*payments.Event, webhook.Outcome, error)
}

// InvoiceResender sends the confirmation email again on operator request.
type InvoiceResender interface {
	Resend(ctx context.Context, b *models.Booking) (notify.Outcome, error)
}

// Pinger reports whether a dependency is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// AdminAuth groups what the operator endpoints need. A nil *AdminAuth
// leaves them unmounted.
type AdminAuth struct {
	Tokens      *auth.JWTManager
	Credentials *auth.Credentials
	Lockout     *auth.Lockout
}

// Deps are the handler dependencies. Checkout, Webhooks and Bookings are
// required.
type Deps struct {
	Checkout CheckoutService
	Webhooks WebhookHandler
	Bookings booking.Store
	Resender InvoiceResender
	Audit    *audit.Logger
	Admin    *AdminAuth

	// Ready probes, keyed by name. A failing probe makes /readyz 503.
	Ready map[string]Pinger

	// Production switches webhook failures from soft 200 to 500.
	Production bool
}

// Handler serves the HTTP API.
type Handler struct {
	deps      Deps
	startTime time.Time
	draining  atomic.Bool
}

// NewHandler validates deps and returns a Handler.
func NewHandler(deps Deps) (*Handler, error) {
	if deps.Checkout == nil || deps.Webhooks == nil || deps.Bookings == nil {
		return nil, errors.New("api: checkout, webhooks and bookings are required")
	}
	if deps.Admin != nil && (deps.Admin.Tokens == nil || deps.Admin.Credentials == nil) {
		return nil, errors.New("api: admin auth needs a token manager and credentials")
	}
	if deps.Admin != nil && deps.Admin.Lockout == nil {
		deps.Admin.Lockout = auth.NewLockout(auth.DefaultLockoutConfig())
	}
	return &Handler{deps: deps, startTime: time.Now()}, nil
}

func (h *Handler) record(ctx context.Context, typ audit.EventType, outcome audit.Outcome, sessionID, description string, payload any) {
	if h.deps.Audit != nil {
		h.deps.Audit.Record(ctx, typ, outcome, sessionID, description, payload)
	}
}
