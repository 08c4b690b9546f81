// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
)

func TestRequestID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		incoming string
		wantSame bool
	}{
		{"propagates valid id", "abc-123", true},
		{"replaces missing id", "", false},
		{"replaces id with spaces", "bad id\n", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var seen string
			h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
				seen = logging.RequestIDFromContext(r.Context())
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.incoming != "" {
				req.Header.Set(RequestIDHeader, tt.incoming)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)

			if seen == "" {
				t.Fatal("request id not on context")
			}
			if got := rec.Header().Get(RequestIDHeader); got != seen {
				t.Errorf("header %q != context %q", got, seen)
			}
			if (seen == tt.incoming) != tt.wantSame {
				t.Errorf("id = %q, incoming %q, wantSame %v", seen, tt.incoming, tt.wantSame)
			}
		})
	}
}

func TestPrometheusMetricsUsesRoutePattern(t *testing.T) {
	r := chi.NewRouter()
	r.Use(PrometheusMetrics)
	r.Get("/checkout/session/{id}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	c := metrics.APIRequestsTotal.WithLabelValues(http.MethodGet, "/checkout/session/{id}", "404")
	before := testutil.ToFloat64(c)

	req := httptest.NewRequest(http.MethodGet, "/checkout/session/cs_test_123", nil)
	r.ServeHTTP(httptest.NewRecorder(), req)

	if got := testutil.ToFloat64(c); got != before+1 {
		t.Errorf("counter = %v, want %v", got, before+1)
	}
}
