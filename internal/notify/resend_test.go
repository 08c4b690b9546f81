// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"context"
	"encoding/base64"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/goccy/go-json"
)

type resendServer struct {
	mu       sync.Mutex
	requests []resendEmail
	headers  []http.Header
	handler  func(w http.ResponseWriter, body resendEmail)
}

func (s *resendServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var body resendEmail
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.mu.Lock()
	s.requests = append(s.requests, body)
	s.headers = append(s.headers, r.Header.Clone())
	s.mu.Unlock()
	if s.handler != nil {
		s.handler(w, body)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"id":"msg_123"}`))
}

func newResendClient(t *testing.T, srv *httptest.Server, fallback string) *ResendClient {
	t.Helper()
	c, err := NewResendClient(ResendConfig{
		APIKey:       "re_test",
		APIBase:      srv.URL,
		From:         "Tours <bookings@tours.example.com>",
		FallbackFrom: fallback,
		BCC:          "ops@tours.example.com",
		HTTPClient:   srv.Client(),
	})
	if err != nil {
		t.Fatalf("NewResendClient() error = %v", err)
	}
	return c
}

func TestResendClientSend(t *testing.T) {
	t.Parallel()
	rs := &resendServer{}
	srv := httptest.NewServer(rs)
	defer srv.Close()

	c := newResendClient(t, srv, "")
	id, err := c.Send(context.Background(), &Message{
		To:             "ana@example.com",
		Subject:        "Booking confirmation",
		HTML:           "<p>hi</p>",
		Text:           "hi",
		IdempotencyKey: "invoice-cs_1",
		Attachments:    []Attachment{{Filename: "invoice.pdf", ContentType: "application/pdf", Content: []byte("%PDF-1.3")}},
	})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "msg_123" {
		t.Errorf("id = %q", id)
	}

	h := rs.headers[0]
	if got := h.Get("Authorization"); got != "Bearer re_test" {
		t.Errorf("Authorization = %q", got)
	}
	if got := h.Get("Idempotency-Key"); got != "invoice-cs_1" {
		t.Errorf("Idempotency-Key = %q", got)
	}
	req := rs.requests[0]
	if len(req.To) != 1 || req.To[0] != "ana@example.com" {
		t.Errorf("to = %v", req.To)
	}
	if len(req.BCC) != 1 || req.BCC[0] != "ops@tours.example.com" {
		t.Errorf("bcc = %v", req.BCC)
	}
	if len(req.Attachments) != 1 {
		t.Fatalf("attachments = %d", len(req.Attachments))
	}
	raw, err := base64.StdEncoding.DecodeString(req.Attachments[0].Content)
	if err != nil || string(raw) != "%PDF-1.3" {
		t.Errorf("attachment content = %q, %v", raw, err)
	}
}

func TestResendClientFallbackSender(t *testing.T) {
	t.Parallel()
	rs := &resendServer{}
	rs.handler = func(w http.ResponseWriter, body resendEmail) {
		if body.From == "onboarding@resend.dev" {
			_, _ = w.Write([]byte(`{"id":"msg_fallback"}`))
			return
		}
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"name":"validation_error","message":"The tours.example.com domain is not verified."}`))
	}
	srv := httptest.NewServer(rs)
	defer srv.Close()

	c := newResendClient(t, srv, "onboarding@resend.dev")
	id, err := c.Send(context.Background(), &Message{To: "ana@example.com", Subject: "s", HTML: "h"})
	if err != nil {
		t.Fatalf("Send() error = %v", err)
	}
	if id != "msg_fallback" {
		t.Errorf("id = %q, want msg_fallback", id)
	}
	if len(rs.requests) != 2 {
		t.Errorf("requests = %d, want 2", len(rs.requests))
	}
}

func TestResendClientErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		status    int
		body      string
		code      string
		transient bool
	}{
		{"unauthorized", 401, `{"message":"API key is invalid"}`, ErrorCodeAuthFailed, false},
		{"rate limited", 429, `{"message":"Too many requests"}`, ErrorCodeRateLimited, true},
		{"server error", 503, ``, ErrorCodeServerError, true},
		{"invalid recipient", 422, `{"message":"Invalid to field"}`, ErrorCodeInvalidRecipient, false},
		{"too large", 413, ``, ErrorCodeContentTooLarge, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			rs := &resendServer{handler: func(w http.ResponseWriter, _ resendEmail) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}}
			srv := httptest.NewServer(rs)
			defer srv.Close()

			_, err := newResendClient(t, srv, "").Send(context.Background(), &Message{To: "ana@example.com"})
			var se *SendError
			if !errors.As(err, &se) {
				t.Fatalf("error = %v, want *SendError", err)
			}
			if se.Code != tt.code || se.Transient != tt.transient || se.Status != tt.status {
				t.Errorf("SendError = %+v, want code %s transient %v", se, tt.code, tt.transient)
			}
		})
	}
}

func TestNewResendClientValidates(t *testing.T) {
	t.Parallel()
	if _, err := NewResendClient(ResendConfig{From: "a@b.c"}); err == nil {
		t.Error("missing api key accepted")
	}
	if _, err := NewResendClient(ResendConfig{APIKey: "k"}); err == nil {
		t.Error("missing sender accepted")
	}
}

func TestLogMailer(t *testing.T) {
	t.Parallel()
	m := NewLogMailer()
	id, err := m.Send(context.Background(), &Message{To: "ana@example.com", IdempotencyKey: "invoice-cs_1"})
	if err != nil || id != "log-invoice-cs_1" {
		t.Errorf("Send() = %q, %v", id, err)
	}
	if _, err := m.Send(context.Background(), &Message{}); err == nil {
		t.Error("Send() without recipient should fail")
	}
}
