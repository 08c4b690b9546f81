// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	io_prometheus_client "github.com/prometheus/client_model/go"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m io_prometheus_client.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("write metric: %v", err)
	}
	return m.GetCounter().GetValue()
}

func TestRecordAPIRequest(t *testing.T) {
	c := APIRequestsTotal.WithLabelValues("POST", "/checkout", "200")
	before := counterValue(t, c)

	RecordAPIRequest("POST", "/checkout", "200", 25*time.Millisecond)

	if got := counterValue(t, c); got != before+1 {
		t.Errorf("api_requests_total = %v, want %v", got, before+1)
	}
}

func TestRecordWebhookEventUnknownType(t *testing.T) {
	c := WebhookEventsTotal.WithLabelValues("unknown", "invalid_signature")
	before := counterValue(t, c)

	RecordWebhookEvent("", "invalid_signature")

	if got := counterValue(t, c); got != before+1 {
		t.Errorf("webhook_events_total{type=unknown} = %v, want %v", got, before+1)
	}
}
