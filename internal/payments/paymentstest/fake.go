// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package paymentstest provides an in-memory payments.Gateway and helpers
// for signing webhook payloads in tests.
package paymentstest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tomtom215/tourbook/internal/payments"
)

// Gateway is a fake provider. Like the real one it returns the same session
// for a repeated idempotency key.
type Gateway struct {
	WebhookSecret string

	// CreateErr, when set, is returned by CreateSession.
	CreateErr error
	// LookupErr, when set, is returned by GetSession and SessionByPaymentIntent.
	LookupErr error

	mu       sync.Mutex
	seq      int
	sessions map[string]*payments.Session
	byKey    map[string]string
	byIntent map[string]string
	params   []payments.SessionParams
}

// New returns a fake gateway verifying webhooks with secret.
func New(secret string) *Gateway {
	return &Gateway{
		WebhookSecret: secret,
		sessions:      make(map[string]*payments.Session),
		byKey:         make(map[string]string),
		byIntent:      make(map[string]string),
	}
}

// CreateSession implements payments.Gateway.
func (g *Gateway) CreateSession(_ context.Context, p payments.SessionParams) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.params = append(g.params, p)
	if g.CreateErr != nil {
		return nil, g.CreateErr
	}
	if id, ok := g.byKey[p.IdempotencyKey]; ok {
		cp := *g.sessions[id]
		return &cp, nil
	}

	g.seq++
	id := fmt.Sprintf("cs_test_%04d", g.seq)
	currency := ""
	if len(p.LineItems) > 0 {
		currency = strings.ToUpper(p.LineItems[0].Currency)
	}
	s := &payments.Session{
		ID:            id,
		URL:           "https://checkout.stripe.test/c/pay/" + id,
		Status:        "open",
		PaymentStatus: payments.PaymentStatusUnpaid,
		AmountTotal:   p.AmountTotal(),
		Currency:      currency,
		CustomerEmail: p.CustomerEmail,
		Metadata:      p.Metadata,
		RawMetadata:   p.Metadata.ToMap(),
	}
	g.sessions[id] = s
	g.byKey[p.IdempotencyKey] = id
	cp := *s
	return &cp, nil
}

// GetSession implements payments.Gateway.
func (g *Gateway) GetSession(_ context.Context, id string) (*payments.Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.LookupErr != nil {
		return nil, g.LookupErr
	}
	s, ok := g.sessions[id]
	if !ok {
		return nil, payments.ErrSessionNotFound
	}
	cp := *s
	return &cp, nil
}

// SessionByPaymentIntent implements payments.Gateway.
func (g *Gateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*payments.Session, error) {
	g.mu.Lock()
	if g.LookupErr != nil {
		g.mu.Unlock()
		return nil, g.LookupErr
	}
	id, ok := g.byIntent[paymentIntentID]
	g.mu.Unlock()
	if !ok {
		return nil, payments.ErrSessionNotFound
	}
	return g.GetSession(ctx, id)
}

// VerifyEvent implements payments.Gateway with the real Stripe scheme.
func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (*payments.Event, error) {
	return payments.VerifyStripeEvent(payload, signatureHeader, g.WebhookSecret)
}

// PutSession stores s, replacing any session with the same id, and indexes
// its payment intent.
func (g *Gateway) PutSession(s *payments.Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	cp := *s
	if cp.RawMetadata == nil {
		cp.RawMetadata = cp.Metadata.ToMap()
	}
	g.sessions[s.ID] = &cp
	if s.PaymentIntentID != "" {
		g.byIntent[s.PaymentIntentID] = s.ID
	}
}

// CreateCalls returns the parameters of every CreateSession call.
func (g *Gateway) CreateCalls() []payments.SessionParams {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]payments.SessionParams(nil), g.params...)
}

// SessionCount returns the number of distinct sessions created or stored.
func (g *Gateway) SessionCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.sessions)
}

// SessionObject renders s the way the provider sends it in data.object.
func SessionObject(s *payments.Session) map[string]any {
	meta := s.RawMetadata
	if meta == nil {
		meta = s.Metadata.ToMap()
	}
	obj := map[string]any{
		"id":             s.ID,
		"object":         "checkout.session",
		"status":         s.Status,
		"payment_status": s.PaymentStatus,
		"amount_total":   s.AmountTotal,
		"currency":       strings.ToLower(s.Currency),
		"customer_email": s.CustomerEmail,
		"customer_details": map[string]any{
			"email": s.CustomerEmail,
			"name":  s.CustomerName,
			"phone": s.CustomerPhone,
		},
		"metadata": meta,
	}
	if s.PaymentIntentID != "" {
		obj["payment_intent"] = s.PaymentIntentID
	}
	return obj
}

// SignedEvent builds an event envelope around object and signs it with
// secret. It returns the raw body and the Stripe-Signature header value.
func SignedEvent(tb testing.TB, secret, id, eventType string, object any) ([]byte, string) {
	tb.Helper()

	body, err := json.Marshal(map[string]any{
		"id":          id,
		"object":      "event",
		"type":        eventType,
		"created":     time.Now().Unix(),
		"livemode":    false,
		"api_version": "2024-06-20",
		"data":        map[string]any{"object": object},
	})
	if err != nil {
		tb.Fatalf("marshal event: %v", err)
	}
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   body,
		Secret:    secret,
		Timestamp: time.Now(),
		Scheme:    "v1",
	})
	return body, signed.Header
}
