// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package booking_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/database/databasetest"
	"github.com/tomtom215/tourbook/internal/models"
)

func sample(sessionID string, status models.BookingStatus) *models.Booking {
	tourID := "tour-1"
	return &models.Booking{
		StripeSessionID: sessionID,
		Status:          status,
		TourID:          &tourID,
		TourSlug:        "coffee-farm-experience",
		TourTitle:       "Coffee Farm Experience",
		Date:            "2026-05-01",
		Persons:         2,
		Total:           8000,
		Currency:        "EUR",
		CustomerEmail:   "ana@example.com",
		CustomerName:    "Ana",
	}
}

func stores(t *testing.T) map[string]booking.Store {
	return map[string]booking.Store{
		"memory": booking.NewMemoryStore(),
		"duckdb": booking.NewSQLStore(databasetest.NewDuckDB(t).Conn()),
	}
}

// runStoreContract exercises the behavior every backend shares.
func runStoreContract(t *testing.T, s booking.Store) {
	ctx := context.Background()

	t.Run("upsert keeps one row per session", func(t *testing.T) {
		first := sample("cs_upsert", models.StatusPending)
		if err := s.Upsert(ctx, first); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		if first.ID == "" || first.CreatedAt.IsZero() {
			t.Fatalf("Upsert() did not fill ID/CreatedAt: %+v", first)
		}

		second := sample("cs_upsert", models.StatusPaid)
		second.CustomerPhone = "+57 300"
		if err := s.Upsert(ctx, second); err != nil {
			t.Fatalf("Upsert(again) error = %v", err)
		}
		if second.ID != first.ID {
			t.Errorf("ID changed from %s to %s", first.ID, second.ID)
		}
		if !second.CreatedAt.Equal(first.CreatedAt) {
			t.Errorf("CreatedAt changed from %v to %v", first.CreatedAt, second.CreatedAt)
		}

		got, err := s.GetBySessionID(ctx, "cs_upsert")
		if err != nil {
			t.Fatalf("GetBySessionID() error = %v", err)
		}
		if got.Status != models.StatusPaid || got.CustomerPhone != "+57 300" || got.TourID == nil || *got.TourID != "tour-1" {
			t.Errorf("GetBySessionID() = %+v", got)
		}

		all, err := s.List(ctx, booking.ListFilter{Email: "ANA@example.com"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		count := 0
		for _, b := range all {
			if b.StripeSessionID == "cs_upsert" {
				count++
			}
		}
		if count != 1 {
			t.Errorf("session stored %d times, want 1", count)
		}
	})

	t.Run("missing session", func(t *testing.T) {
		if _, err := s.GetBySessionID(ctx, "cs_nope"); !errors.Is(err, booking.ErrNotFound) {
			t.Errorf("GetBySessionID() error = %v, want ErrNotFound", err)
		}
		ok, err := s.SetStatus(ctx, "cs_nope", models.StatusCanceled)
		if err != nil || ok {
			t.Errorf("SetStatus(missing) = %v, %v; want false, nil", ok, err)
		}
	})

	t.Run("set status", func(t *testing.T) {
		if err := s.Upsert(ctx, sample("cs_status", models.StatusPending)); err != nil {
			t.Fatalf("Upsert() error = %v", err)
		}
		ok, err := s.SetStatus(ctx, "cs_status", models.StatusCanceled)
		if err != nil || !ok {
			t.Fatalf("SetStatus() = %v, %v", ok, err)
		}
		got, _ := s.GetBySessionID(ctx, "cs_status")
		if got.Status != models.StatusCanceled {
			t.Errorf("status = %s, want canceled", got.Status)
		}
	})

	t.Run("rejects invalid rows", func(t *testing.T) {
		if err := s.Upsert(ctx, sample("", models.StatusPaid)); err == nil {
			t.Error("Upsert() accepted an empty session id")
		}
		if err := s.Upsert(ctx, sample("cs_bad", "refunded")); err == nil {
			t.Error("Upsert() accepted an unknown status")
		}
	})

	t.Run("list filters and pages", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			b := sample(fmt.Sprintf("cs_list_%d", i), models.StatusPaid)
			b.CustomerEmail = "list@example.com"
			if err := s.Upsert(ctx, b); err != nil {
				t.Fatalf("Upsert() error = %v", err)
			}
		}
		page, err := s.List(ctx, booking.ListFilter{Email: "list@example.com", Limit: 2})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(page) != 2 {
			t.Errorf("List(limit 2) returned %d", len(page))
		}
		rest, _ := s.List(ctx, booking.ListFilter{Email: "list@example.com", Limit: 10, Offset: 4})
		if len(rest) != 1 {
			t.Errorf("List(offset 4) returned %d, want 1", len(rest))
		}
		paid, _ := s.List(ctx, booking.ListFilter{Status: models.StatusPaid, Limit: 100})
		for _, b := range paid {
			if b.Status != models.StatusPaid {
				t.Errorf("status filter leaked %s", b.Status)
			}
		}
		empty, _ := s.List(ctx, booking.ListFilter{Email: "list@example.com", Offset: 50})
		if empty == nil || len(empty) != 0 {
			t.Errorf("List(past end) = %v, want empty slice", empty)
		}
	})

	t.Run("concurrent upserts", func(t *testing.T) {
		var wg sync.WaitGroup
		errs := make(chan error, 8)
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.Upsert(ctx, sample("cs_concurrent", models.StatusPaid))
			}()
		}
		wg.Wait()
		close(errs)
		failures := 0
		for err := range errs {
			if err != nil {
				failures++
			}
		}
		if failures == 8 {
			t.Fatal("every concurrent upsert failed")
		}
		if _, err := s.GetBySessionID(ctx, "cs_concurrent"); err != nil {
			t.Errorf("GetBySessionID() error = %v", err)
		}
	})
}

func TestStores(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			runStoreContract(t, s)
		})
	}
}
