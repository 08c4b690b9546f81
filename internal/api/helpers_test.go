// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/crypto/bcrypt"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/auth"
	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/catalog"
	"github.com/tomtom215/tourbook/internal/checkout"
	"github.com/tomtom215/tourbook/internal/currency"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/notify"
	"github.com/tomtom215/tourbook/internal/payments"
	"github.com/tomtom215/tourbook/internal/payments/paymentstest"
	"github.com/tomtom215/tourbook/internal/webhook"
)

const (
	testJWTSecret = "0123456789abcdef0123456789abcdef"
	testPassword  = "correct horse battery"
)

// fakeCheckout returns a fixed error from Create and Lookup when set.
type fakeCheckout struct {
	createErr error
	lookup    *checkout.Status
	lookupErr error
}

func (f *fakeCheckout) Create(context.Context, checkout.Request, string) (*checkout.Result, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	return &checkout.Result{URL: "https://pay.example/c/1", SessionID: "cs_1"}, nil
}

func (f *fakeCheckout) Lookup(context.Context, string) (*checkout.Status, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	if f.lookup == nil {
		return nil, payments.ErrSessionNotFound
	}
	return f.lookup, nil
}

type fakeWebhooks struct {
	outcome webhook.Outcome
	err     error
	calls   int
}

func (f *fakeWebhooks) Handle(context.Context, []byte, string) (*payments.Event, webhook.Outcome, error) {
	f.calls++
	return &payments.Event{ID: "evt_1", Type: payments.EventCheckoutCompleted}, f.outcome, f.err
}

type fakeResender struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeResender) Resend(_ context.Context, b *models.Booking) (notify.Outcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, b.StripeSessionID)
	if f.err != nil {
		return notify.OutcomeFailed, f.err
	}
	if b.Status != models.StatusPaid {
		return notify.OutcomeSkipped, notify.ErrNotPaid
	}
	return notify.OutcomeSent, nil
}

type pingFunc func(context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

type testServer struct {
	api      *Handler
	handler  http.Handler
	gateway  *paymentstest.Gateway
	bookings *booking.MemoryStore
	audit    *audit.MemoryStore
	resender *fakeResender

	processor *webhook.Processor
}

// newTestServer wires a real checkout service against the fake gateway.
func newTestServer(t *testing.T, mutate func(*Deps)) *testServer {
	t.Helper()

	static, err := catalog.NewStaticSource(catalog.DefaultTours())
	if err != nil {
		t.Fatal(err)
	}
	gw := paymentstest.New("whsec_test")
	builder := checkout.NewBuilder(checkout.BuilderConfig{
		BaseURL:            "https://tours.example.com",
		ExpiryMinutes:      60,
		DefaultLocale:      "es",
		ReferenceCurrency:  "COP",
		SettlementCurrency: "EUR",
	})
	svc := checkout.NewService(catalog.NewResolver(nil, static, time.Second),
		currency.NewConverter("COP", "EUR", 4500, nil), gw, builder)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	creds, err := auth.NewCredentials("operator", string(hash))
	if err != nil {
		t.Fatal(err)
	}
	tokens, err := auth.NewJWTManager(testJWTSecret, time.Hour)
	if err != nil {
		t.Fatal(err)
	}

	auditStore := audit.NewMemoryStore(100)
	auditLog := audit.NewLogger(auditStore, &audit.Config{})
	t.Cleanup(func() { _ = auditLog.Close() })

	ts := &testServer{
		gateway:  gw,
		bookings: booking.NewMemoryStore(),
		audit:    auditStore,
		resender: &fakeResender{},
	}
	deps := Deps{
		Checkout: svc,
		Webhooks: &fakeWebhooks{outcome: webhook.OutcomeProcessed},
		Bookings: ts.bookings,
		Resender: ts.resender,
		Audit:    auditLog,
		Admin: &AdminAuth{
			Tokens:      tokens,
			Credentials: creds,
			Lockout:     auth.NewLockout(auth.LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Minute}),
		},
		Ready: map[string]Pinger{"database": pingFunc(func(context.Context) error { return nil })},
	}
	if mutate != nil {
		mutate(&deps)
	}
	h, err := NewHandler(deps)
	if err != nil {
		t.Fatalf("NewHandler() error = %v", err)
	}
	cfg := DefaultChiMiddlewareConfig()
	cfg.RateLimitDisabled = true
	ts.api = h
	ts.handler = NewRouter(h, NewChiMiddleware(cfg)).SetupChi()
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any, header http.Header) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	case string:
		buf.WriteString(b)
	default:
		if err := json.NewEncoder(&buf).Encode(b); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	ts.handler.ServeHTTP(rec, req)
	return rec
}

func (ts *testServer) token(t *testing.T) string {
	t.Helper()
	rec := ts.do(t, http.MethodPost, "/admin/token", map[string]string{"username": "operator", "password": testPassword}, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /admin/token = %d %s", rec.Code, rec.Body.String())
	}
	var resp tokenResponse
	decode(t, rec, &resp)
	return resp.Token
}

func bearer(token string) http.Header {
	return http.Header{"Authorization": {"Bearer " + token}}
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}
