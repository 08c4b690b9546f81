// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package api

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/goccy/go-json"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/notify"
)

func seedBookings(t *testing.T, ts *testServer) {
	t.Helper()
	for _, b := range []models.Booking{
		{StripeSessionID: "cs_a", Status: models.StatusPaid, CustomerEmail: "ana@example.com", Total: 8000, Currency: "EUR"},
		{StripeSessionID: "cs_b", Status: models.StatusPending, CustomerEmail: "bo@example.com", Total: 4000, Currency: "EUR"},
		{StripeSessionID: "cs_c", Status: models.StatusCanceled, CustomerEmail: "ana@example.com", Total: 4000, Currency: "EUR"},
	} {
		if err := ts.bookings.Upsert(context.Background(), &b); err != nil {
			t.Fatal(err)
		}
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *APIError       `json:"error"`
	Meta    *APIMeta        `json:"meta"`
}

func TestAdminToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	if tok := ts.token(t); tok == "" {
		t.Fatal("empty token")
	}

	rec := ts.do(t, http.MethodPost, "/admin/token", map[string]string{"username": "operator", "password": "nope"}, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong password: status = %d, want 401", rec.Code)
	}
	var env envelope
	decode(t, rec, &env)
	if env.Success || env.Error == nil || env.Error.Code != ErrCodeUnauthorized {
		t.Errorf("envelope = %+v", env)
	}

	rec = ts.do(t, http.MethodPost, "/admin/token", map[string]string{"username": "operator"}, nil)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("missing password: status = %d, want 400", rec.Code)
	}

	events, _ := ts.audit.Query(context.Background(), audit.QueryFilter{
		Types: []audit.EventType{audit.EventTypeAdminLogin, audit.EventTypeAdminLoginFailed},
	})
	if len(events) != 2 {
		t.Errorf("audit events = %d, want 2", len(events))
	}
}

func TestAdminTokenLockout(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	bad := map[string]string{"username": "operator", "password": "wrong-password"}
	for range 3 {
		if rec := ts.do(t, http.MethodPost, "/admin/token", bad, nil); rec.Code != http.StatusUnauthorized {
			t.Fatalf("status = %d, want 401", rec.Code)
		}
	}

	// Locked even with the right password.
	good := map[string]string{"username": "operator", "password": testPassword}
	rec := ts.do(t, http.MethodPost, "/admin/token", good, nil)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After")
	}
}

func TestAdminRoutesRequireToken(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)

	for _, tc := range []struct{ method, path string }{
		{http.MethodGet, "/admin/bookings"},
		{http.MethodGet, "/admin/bookings/cs_a"},
		{http.MethodPost, "/admin/bookings/cs_a/resend-invoice"},
	} {
		rec := ts.do(t, tc.method, tc.path, nil, nil)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("%s %s = %d, want 401", tc.method, tc.path, rec.Code)
		}
	}
}

func TestAdminRoutesAbsentWithoutCredentials(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, func(d *Deps) { d.Admin = nil })

	rec := ts.do(t, http.MethodPost, "/admin/token", map[string]string{"username": "operator", "password": testPassword}, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAdminListBookings(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	seedBookings(t, ts)
	auth := bearer(ts.token(t))

	tests := []struct {
		query     string
		wantCode  int
		wantCount int
	}{
		{"", http.StatusOK, 3},
		{"?status=paid", http.StatusOK, 1},
		{"?email=ANA@example.com", http.StatusOK, 2},
		{"?limit=2", http.StatusOK, 2},
		{"?status=refunded", http.StatusBadRequest, 0},
		{"?limit=abc", http.StatusBadRequest, 0},
		{"?limit=1000", http.StatusBadRequest, 0},
	}
	for _, tt := range tests {
		rec := ts.do(t, http.MethodGet, "/admin/bookings"+tt.query, nil, auth)
		if rec.Code != tt.wantCode {
			t.Errorf("%q: status = %d, want %d", tt.query, rec.Code, tt.wantCode)
			continue
		}
		if tt.wantCode != http.StatusOK {
			continue
		}
		var env envelope
		decode(t, rec, &env)
		var list []models.Booking
		if err := json.Unmarshal(env.Data, &list); err != nil {
			t.Fatal(err)
		}
		if !env.Success || len(list) != tt.wantCount {
			t.Errorf("%q: success=%v count=%d, want %d", tt.query, env.Success, len(list), tt.wantCount)
		}
		if env.Meta == nil || env.Meta.Pagination == nil || env.Meta.Pagination.Count != len(list) {
			t.Errorf("%q: meta = %+v", tt.query, env.Meta)
		}
	}
}

func TestAdminGetBooking(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	seedBookings(t, ts)
	auth := bearer(ts.token(t))

	rec := ts.do(t, http.MethodGet, "/admin/bookings/cs_a", nil, auth)
	var env envelope
	decode(t, rec, &env)
	var b models.Booking
	if err := json.Unmarshal(env.Data, &b); err != nil {
		t.Fatal(err)
	}
	if rec.Code != http.StatusOK || b.StripeSessionID != "cs_a" || b.Status != models.StatusPaid {
		t.Errorf("GET = %d %+v", rec.Code, b)
	}

	rec = ts.do(t, http.MethodGet, "/admin/bookings/cs_missing", nil, auth)
	decode(t, rec, &env)
	if rec.Code != http.StatusNotFound || env.Error == nil || env.Error.Code != ErrCodeNotFound {
		t.Errorf("missing: %d %+v", rec.Code, env.Error)
	}
}

func TestAdminResendInvoice(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	seedBookings(t, ts)
	auth := bearer(ts.token(t))

	rec := ts.do(t, http.MethodPost, "/admin/bookings/cs_a/resend-invoice", nil, auth)
	if rec.Code != http.StatusOK {
		t.Fatalf("paid: status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var env envelope
	decode(t, rec, &env)
	var res resendResult
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatal(err)
	}
	if res.Outcome != notify.OutcomeSent {
		t.Errorf("outcome = %s, want sent", res.Outcome)
	}

	if rec := ts.do(t, http.MethodPost, "/admin/bookings/cs_b/resend-invoice", nil, auth); rec.Code != http.StatusConflict {
		t.Errorf("pending: status = %d, want 409", rec.Code)
	}
	if rec := ts.do(t, http.MethodPost, "/admin/bookings/cs_zzz/resend-invoice", nil, auth); rec.Code != http.StatusNotFound {
		t.Errorf("unknown: status = %d, want 404", rec.Code)
	}

	events, _ := ts.audit.Query(context.Background(), audit.QueryFilter{
		SessionID: "cs_a",
		Types:     []audit.EventType{audit.EventTypeAdminResend},
	})
	if len(events) != 1 || events[0].Actor != "admin:operator" {
		t.Errorf("audit = %+v, want one admin:operator resend", events)
	}
}

func TestAdminResendInvoiceSendFailure(t *testing.T) {
	t.Parallel()
	ts := newTestServer(t, nil)
	seedBookings(t, ts)
	ts.resender.err = errors.New("provider down")

	rec := ts.do(t, http.MethodPost, "/admin/bookings/cs_a/resend-invoice", nil, bearer(ts.token(t)))
	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", rec.Code)
	}
}
