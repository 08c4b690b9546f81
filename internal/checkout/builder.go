// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package checkout

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/payments"
)

const (
	// DedupWindow is how long a created session is handed back to repeats of
	// the same booking attempt. The provider idempotency key is bucketed by
	// it as a second line of defense.
	DedupWindow = 10 * time.Minute

	minExpiry = 30 * time.Minute
	// maxExpiry leaves room for the window offset under the provider's 24h cap.
	maxExpiry = 24*time.Hour - DedupWindow
)

// BuilderConfig configures session construction.
type BuilderConfig struct {
	BaseURL            string
	ExpiryMinutes      int
	DefaultLocale      string
	ReferenceCurrency  string
	SettlementCurrency string
	Now                func() time.Time
}

// Builder turns a validated request and its catalog entry into provider
// session parameters.
type Builder struct {
	cfg BuilderConfig
}

// NewBuilder returns a builder. BaseURL loses any trailing slash.
func NewBuilder(cfg BuilderConfig) *Builder {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Builder{cfg: cfg}
}

// SuccessURL is where the provider sends the customer after paying. The
// provider substitutes the session id placeholder.
func (b *Builder) SuccessURL() string {
	return b.cfg.BaseURL + "/checkout/success?session_id={CHECKOUT_SESSION_ID}"
}

// CancelURL returns the customer to the tour page.
func (b *Builder) CancelURL(slug string) string {
	return b.cfg.BaseURL + "/tours/" + url.PathEscape(slug) + "?canceled=1"
}

// ManageURL is the "manage your booking" link printed as a QR code.
func (b *Builder) ManageURL(sessionID string) string {
	return b.cfg.BaseURL + "/booking/" + url.PathEscape(sessionID)
}

// ClampExpiry bounds the configured session lifetime to what the provider
// accepts.
func ClampExpiry(minutes int) time.Duration {
	d := time.Duration(minutes) * time.Minute
	return min(max(d, minExpiry), maxExpiry)
}

// AttemptKey identifies one booking attempt regardless of when it is made.
// The email is compared case-insensitively.
func AttemptKey(slug, date string, quantity int, email string, amount int64, successURL, cancelURL string) string {
	return hashParts(attemptParts(slug, date, quantity, email, amount, successURL, cancelURL))
}

// IdempotencyKey is the attempt key scoped to one DedupWindow bucket and is
// what the provider deduplicates on.
func IdempotencyKey(slug, date string, quantity int, email string, amount int64, successURL, cancelURL string, window time.Time) string {
	parts := append(attemptParts(slug, date, quantity, email, amount, successURL, cancelURL),
		strconv.FormatInt(window.Unix(), 10))
	return "checkout-" + hashParts(parts)
}

func attemptParts(slug, date string, quantity int, email string, amount int64, successURL, cancelURL string) []string {
	return []string{
		slug,
		date,
		strconv.Itoa(quantity),
		strings.ToLower(strings.TrimSpace(email)),
		strconv.FormatInt(amount, 10),
		successURL,
		cancelURL,
	}
}

func hashParts(parts []string) string {
	h := sha256.New()
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{'\n'})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// AttemptKey returns the window-free key for req priced at amount.
func (b *Builder) AttemptKey(req *Request, tour *models.Tour, amount int64) string {
	return AttemptKey(tour.Slug, req.Date, req.Quantity, req.Customer.Email, amount, b.SuccessURL(), b.CancelURL(tour.Slug))
}

// Build assembles the session parameters. amount is the converted total for
// the whole party in settlement minor units. It is sent as a single line of
// quantity one so the provider charges exactly that amount; the party size
// travels in the description and metadata.
func (b *Builder) Build(req *Request, tour *models.Tour, amount int64, acceptLanguage string) payments.SessionParams {
	window := b.cfg.Now().UTC().Truncate(DedupWindow)
	success := b.SuccessURL()
	cancel := b.CancelURL(tour.Slug)

	name := tour.Title
	if name == "" {
		name = tour.Slug
	}

	locale := ResolveLocale(req.Locale, acceptLanguage, b.cfg.DefaultLocale)

	return payments.SessionParams{
		IdempotencyKey: IdempotencyKey(tour.Slug, req.Date, req.Quantity, req.Customer.Email, amount, success, cancel, window),
		SuccessURL:     success,
		CancelURL:      cancel,
		CustomerEmail:  req.Customer.Email,
		Locale:         locale,
		LineItems: []payments.LineItem{{
			Name:        name,
			Description: describe(tour, req),
			Currency:    b.cfg.SettlementCurrency,
			UnitAmount:  amount,
			Quantity:    1,
		}},
		Metadata: payments.Metadata{
			TourSlug:          tour.Slug,
			TourTitle:         tour.Title,
			Date:              req.Date,
			Quantity:          req.Quantity,
			CustomerName:      req.Customer.Name,
			Phone:             req.Phone,
			OriginCurrency:    b.cfg.ReferenceCurrency,
			ProviderCurrency:  b.cfg.SettlementCurrency,
			RequestedCurrency: req.Currency,
			OriginalPrice:     tour.Price,
			Locale:            locale,
		},
		ExpiresAt:       window.Add(DedupWindow + ClampExpiry(b.cfg.ExpiryMinutes)),
		RecoveryEnabled: true,
	}
}

func describe(tour *models.Tour, req *Request) string {
	persons := "person"
	if req.Quantity != 1 {
		persons = "persons"
	}
	desc := fmt.Sprintf("%s · %d %s", req.Date, req.Quantity, persons)
	if tour.City != "" {
		desc = tour.City + " · " + desc
	}
	return desc
}
