// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

//go:build nats

package eventbus

import (
	"context"
	"testing"
	"time"

	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/models"
)

func TestEmbeddedNATSDelivers(t *testing.T) {
	bus, err := New(config.EventBusConfig{
		Backend:        BackendNATS,
		EmbeddedServer: true,
		StoreDir:       t.TempDir(),
		Stream:         "BOOKINGS_TEST",
	})
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
	defer cancel()
	go func() { _ = bus.Serve(ctx) }()
	<-bus.Running()

	if err := bus.PublishBooking(context.Background(), models.BookingEvent{ID: "evt-n1", SessionID: "cs_n1", Status: models.StatusPaid}); err != nil {
		t.Fatalf("PublishBooking() error = %v", err)
	}
	select {
	case ev := <-got:
		if ev.SessionID != "cs_n1" {
			t.Errorf("SessionID = %q", ev.SessionID)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("event not delivered over JetStream")
	}
}
