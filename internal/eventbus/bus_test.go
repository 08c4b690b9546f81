// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package eventbus

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
)

func TestGoChannelDelivers(t *testing.T) {
	t.Parallel()

	bus, err := New(config.EventBusConfig{Backend: BackendGoChannel})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer bus.Close()

	got := make(chan models.BookingEvent, 1)
	bus.Subscribe("collect", func(_ context.Context, ev models.BookingEvent) error {
		got <- ev
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- bus.Serve(ctx) }()

	select {
	case <-bus.Running():
	case <-time.After(5 * time.Second):
		t.Fatal("router did not start")
	}

	want := models.BookingEvent{
		ID:        "evt-1",
		Type:      models.BookingEventPaid,
		SessionID: "cs_test_1",
		Status:    models.StatusPaid,
		Previous:  models.StatusPending,
		Total:     12000,
		Currency:  "EUR",
	}
	if err := bus.PublishBooking(context.Background(), want); err != nil {
		t.Fatalf("PublishBooking() error = %v", err)
	}

	select {
	case ev := <-got:
		if ev.SessionID != want.SessionID || ev.Status != want.Status || ev.Total != want.Total {
			t.Errorf("received %+v, want %+v", ev, want)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("event not delivered")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil && !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() error = %v", err)
		}
	case <-time.After(15 * time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}

func TestPublishAfterClose(t *testing.T) {
	t.Parallel()
	bus, err := New(config.EventBusConfig{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if bus.Backend() != BackendGoChannel {
		t.Errorf("Backend() = %q, want gochannel", bus.Backend())
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := bus.PublishBooking(context.Background(), models.BookingEvent{}); !errors.Is(err, ErrClosed) {
		t.Errorf("PublishBooking() after Close = %v, want ErrClosed", err)
	}
	if err := bus.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}

func TestNewRejectsUnknownBackend(t *testing.T) {
	t.Parallel()
	if _, err := New(config.EventBusConfig{Backend: "kafka"}); err == nil {
		t.Error("New(kafka) should fail")
	}
}

func TestStatusMetrics(t *testing.T) {
	t.Parallel()
	c := metrics.BookingStatusChanges.WithLabelValues("canceled")
	before := testutil.ToFloat64(c)
	if err := StatusMetrics(context.Background(), models.BookingEvent{Status: models.StatusCanceled}); err != nil {
		t.Fatalf("StatusMetrics() error = %v", err)
	}
	if got := testutil.ToFloat64(c) - before; got != 1 {
		t.Errorf("counter delta = %v, want 1", got)
	}
}
