// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package checkout

import (
	"strings"
	"testing"
	"time"

	"github.com/tomtom215/tourbook/internal/models"
)

var fixedNow = time.Date(2026, 3, 14, 15, 4, 5, 0, time.UTC)

func testBuilder() *Builder {
	return NewBuilder(BuilderConfig{
		BaseURL:            "https://tours.example.com/",
		ExpiryMinutes:      60,
		DefaultLocale:      "es",
		ReferenceCurrency:  "COP",
		SettlementCurrency: "EUR",
		Now:                func() time.Time { return fixedNow },
	})
}

func TestURLs(t *testing.T) {
	t.Parallel()
	b := testBuilder()

	if got, want := b.SuccessURL(), "https://tours.example.com/checkout/success?session_id={CHECKOUT_SESSION_ID}"; got != want {
		t.Errorf("SuccessURL() = %q, want %q", got, want)
	}
	if got, want := b.CancelURL("guatape-day-trip"), "https://tours.example.com/tours/guatape-day-trip?canceled=1"; got != want {
		t.Errorf("CancelURL() = %q, want %q", got, want)
	}
	if got, want := b.ManageURL("cs_test_1"), "https://tours.example.com/booking/cs_test_1"; got != want {
		t.Errorf("ManageURL() = %q, want %q", got, want)
	}
}

func TestClampExpiry(t *testing.T) {
	t.Parallel()
	tests := []struct {
		minutes int
		want    time.Duration
	}{
		{0, 30 * time.Minute},
		{10, 30 * time.Minute},
		{60, time.Hour},
		{1430, 1430 * time.Minute},
		{5000, 1430 * time.Minute},
	}
	for _, tt := range tests {
		if got := ClampExpiry(tt.minutes); got != tt.want {
			t.Errorf("ClampExpiry(%d) = %v, want %v", tt.minutes, got, tt.want)
		}
	}
}

func TestIdempotencyKey(t *testing.T) {
	t.Parallel()
	w := fixedNow.Truncate(DedupWindow)
	base := IdempotencyKey("a", "2026-05-01", 2, "Ana@Example.com", 8000, "s", "c", w)

	if !strings.HasPrefix(base, "checkout-") {
		t.Errorf("key %q lacks prefix", base)
	}
	if got := IdempotencyKey("a", "2026-05-01", 2, " ana@example.com ", 8000, "s", "c", w); got != base {
		t.Error("email case and whitespace changed the key")
	}

	variants := map[string]string{
		"slug":     IdempotencyKey("b", "2026-05-01", 2, "ana@example.com", 8000, "s", "c", w),
		"date":     IdempotencyKey("a", "2026-05-02", 2, "ana@example.com", 8000, "s", "c", w),
		"quantity": IdempotencyKey("a", "2026-05-01", 3, "ana@example.com", 8000, "s", "c", w),
		"email":    IdempotencyKey("a", "2026-05-01", 2, "bob@example.com", 8000, "s", "c", w),
		"amount":   IdempotencyKey("a", "2026-05-01", 2, "ana@example.com", 8001, "s", "c", w),
		"cancel":   IdempotencyKey("a", "2026-05-01", 2, "ana@example.com", 8000, "s", "x", w),
		"window":   IdempotencyKey("a", "2026-05-01", 2, "ana@example.com", 8000, "s", "c", w.Add(DedupWindow)),
	}
	for field, k := range variants {
		if k == base {
			t.Errorf("changing %s did not change the key", field)
		}
	}
}

func TestAttemptKeyIgnoresWindow(t *testing.T) {
	t.Parallel()
	tour := &models.Tour{Slug: "coffee-farm-experience", Price: 180000}
	req := &Request{Quantity: 2, Customer: Customer{Email: "ana@example.com"}, Date: "2026-05-01"}

	at := func(ts time.Time) *Builder {
		return NewBuilder(BuilderConfig{BaseURL: "https://tours.example.com", Now: func() time.Time { return ts }})
	}
	before := at(time.Date(2026, 3, 14, 12, 9, 59, 500_000_000, time.UTC))
	after := at(time.Date(2026, 3, 14, 12, 10, 0, 500_000_000, time.UTC))

	if before.AttemptKey(req, tour, 8000) != after.AttemptKey(req, tour, 8000) {
		t.Error("attempt key changed across a window edge")
	}
	if before.Build(req, tour, 8000, "").IdempotencyKey == after.Build(req, tour, 8000, "").IdempotencyKey {
		t.Error("idempotency key did not change across a window edge")
	}
	if before.AttemptKey(req, tour, 8000) == before.AttemptKey(req, tour, 8001) {
		t.Error("amount did not change the attempt key")
	}
}

func TestBuild(t *testing.T) {
	t.Parallel()
	b := testBuilder()
	tour := &models.Tour{Slug: "coffee-farm-experience", Title: "Coffee Farm Experience", Price: 180000, City: "Salento"}
	req := &Request{
		Quantity: 3,
		Customer: Customer{Name: "Ana", Email: "ana@example.com"},
		Date:     "2026-05-01",
		Phone:    "+57 300",
		Currency: "USD",
	}

	p := b.Build(req, tour, 12000, "de-DE,de;q=0.9")

	if p.AmountTotal() != 12000 {
		t.Errorf("AmountTotal() = %d, want 12000", p.AmountTotal())
	}
	if len(p.LineItems) != 1 || p.LineItems[0].Currency != "EUR" || p.LineItems[0].Quantity != 1 {
		t.Errorf("LineItems = %+v", p.LineItems)
	}
	if got, want := p.LineItems[0].Description, "Salento · 2026-05-01 · 3 persons"; got != want {
		t.Errorf("Description = %q, want %q", got, want)
	}
	if p.Locale != "de" {
		t.Errorf("Locale = %q, want de", p.Locale)
	}
	wantExpiry := time.Date(2026, 3, 14, 16, 10, 0, 0, time.UTC)
	if !p.ExpiresAt.Equal(wantExpiry) {
		t.Errorf("ExpiresAt = %v, want %v", p.ExpiresAt, wantExpiry)
	}
	if !p.RecoveryEnabled {
		t.Error("recovery not enabled")
	}
	m := p.Metadata
	if m.TourSlug != tour.Slug || m.Quantity != 3 || m.OriginalPrice != 180000 ||
		m.OriginCurrency != "COP" || m.ProviderCurrency != "EUR" || m.RequestedCurrency != "USD" || m.Phone != "+57 300" {
		t.Errorf("Metadata = %+v", m)
	}

	again := b.Build(req, tour, 12000, "")
	if again.IdempotencyKey != p.IdempotencyKey {
		t.Error("same request in the same window produced a different key")
	}
	if !again.ExpiresAt.Equal(p.ExpiresAt) {
		t.Error("same request in the same window produced a different expiry")
	}
}

func TestResolveLocale(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, override, accept, fallback, want string
	}{
		{"override wins", "fr", "de", "es", "fr"},
		{"override underscore", "pt_BR", "", "es", "pt-BR"},
		{"regional variant kept", "", "en-GB,en;q=0.8", "es", "en-GB"},
		{"region dropped when unsupported", "", "es-CO,es;q=0.9", "en", "es"},
		{"quality order", "", "xx;q=0.9,it;q=0.8", "es", "it"},
		{"unsupported falls back", "", "sw", "es", "es"},
		{"garbage header", "", ";;;", "es", "es"},
		{"nothing usable", "klingon", "", "", "auto"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := ResolveLocale(tt.override, tt.accept, tt.fallback); got != tt.want {
				t.Errorf("ResolveLocale(%q, %q, %q) = %q, want %q", tt.override, tt.accept, tt.fallback, got, tt.want)
			}
		})
	}
}

func TestNormalize(t *testing.T) {
	t.Parallel()
	price := int64(1)
	r := Request{
		Tour:     TourRef{Slug: "  a  "},
		Customer: Customer{Email: " Ana@Example.COM "},
		Currency: "usd",
		Price:    &price,
	}
	r.Normalize()
	if r.Tour.Slug != "a" || r.Customer.Email != "ana@example.com" || r.Currency != "USD" || r.Price != nil {
		t.Errorf("Normalize() = %+v", r)
	}
}
