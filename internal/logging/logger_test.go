// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want zerolog.Level
	}{
		{"debug", zerolog.DebugLevel},
		{"INFO", zerolog.InfoLevel},
		{"warning", zerolog.WarnLevel},
		{"error", zerolog.ErrorLevel},
		{" off ", zerolog.Disabled},
		{"nonsense", zerolog.InfoLevel},
		{"", zerolog.InfoLevel},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// capture swaps the global logger for one writing to a buffer.
func capture(t *testing.T) *bytes.Buffer {
	t.Helper()
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	var buf bytes.Buffer
	SetLogger(NewTestLogger(&buf))
	zerolog.SetGlobalLevel(zerolog.DebugLevel)
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	line := strings.TrimSpace(buf.String())
	var m map[string]any
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("log output is not JSON: %v (%q)", err, line)
	}
	return m
}

func TestCtxAddsIDs(t *testing.T) {
	buf := capture(t)

	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCorrelationID(ctx, "evt_123")
	ctx = ContextWithSessionID(ctx, "cs_test_1")

	Ctx(ctx).Info().Msg("hello")

	m := decodeLine(t, buf)
	for key, want := range map[string]string{
		"request_id":     "req-1",
		"correlation_id": "evt_123",
		"session_id":     "cs_test_1",
		"message":        "hello",
	} {
		if m[key] != want {
			t.Errorf("%s = %v, want %q", key, m[key], want)
		}
	}
}

func TestCtxWithoutIDs(t *testing.T) {
	buf := capture(t)

	Ctx(context.Background()).Warn().Msg("plain")

	m := decodeLine(t, buf)
	if _, ok := m["request_id"]; ok {
		t.Error("request_id should be absent")
	}
	if m["level"] != "warn" {
		t.Errorf("level = %v, want warn", m["level"])
	}
}

func TestCtxPrefersStoredLogger(t *testing.T) {
	buf := capture(t)

	l := Ctx(ContextWithRequestID(context.Background(), "req-2")).With().Str("event_id", "evt_9").Logger()
	ctx := ContextWithLogger(context.Background(), l)
	Ctx(ctx).Info().Msg("stored")

	m := decodeLine(t, buf)
	if m["event_id"] != "evt_9" || m["request_id"] != "req-2" {
		t.Errorf("fields = %v, want event_id and request_id from stored logger", m)
	}
}

func TestSlogHandlerRoutesToZerolog(t *testing.T) {
	buf := capture(t)

	logger := slog.New(NewSlogHandler()).With("service", "checkout").WithGroup("breaker")
	logger.Error("state changed", "from", "closed", "err", errors.New("boom"))

	m := decodeLine(t, buf)
	if m["message"] != "state changed" {
		t.Errorf("message = %v", m["message"])
	}
	if m["level"] != "error" {
		t.Errorf("level = %v, want error", m["level"])
	}
	if m["service"] != "checkout" {
		t.Errorf("service = %v", m["service"])
	}
	if m["breaker.from"] != "closed" {
		t.Errorf("breaker.from = %v", m["breaker.from"])
	}
	if m["breaker.err"] != "boom" {
		t.Errorf("breaker.err = %v", m["breaker.err"])
	}
}

func TestWithComponent(t *testing.T) {
	buf := capture(t)

	l := WithComponent("webhook")
	l.Info().Msg("x")

	if m := decodeLine(t, buf); m["component"] != "webhook" {
		t.Errorf("component = %v, want webhook", m["component"])
	}
}
