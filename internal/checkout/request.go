// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package checkout

import (
	"strings"

	"github.com/tomtom215/tourbook/internal/catalog"
)

// MaxQuantity is the largest party size one session can book.
const MaxQuantity = 20

// TourRef names the tour by slug, title, or both.
type TourRef struct {
	Slug  string `json:"slug,omitempty" validate:"required_without=Title,max=200"`
	Title string `json:"title,omitempty" validate:"max=200"`
}

// Customer is the payer's contact.
type Customer struct {
	Name  string `json:"name" validate:"max=120"`
	Email string `json:"email" validate:"required,email,max=254"`
}

// Request is the body of POST /checkout.
type Request struct {
	Tour     TourRef  `json:"tour"`
	Quantity int      `json:"quantity" validate:"gte=1,lte=20"`
	Customer Customer `json:"customer"`
	Date     string   `json:"date" validate:"required,datetime=2006-01-02,notpast"`
	Phone    string   `json:"phone,omitempty" validate:"max=40"`
	Currency string   `json:"currency" validate:"required,iso4217"`
	Locale   string   `json:"locale,omitempty" validate:"max=35"`

	// Price is accepted for compatibility with older clients and ignored.
	Price *int64 `json:"price,omitempty" validate:"-"`
}

// Normalize trims whitespace and canonicalizes case. It runs before
// validation so the idempotency key sees the same bytes for equivalent input.
func (r *Request) Normalize() {
	r.Tour.Slug = strings.TrimSpace(r.Tour.Slug)
	r.Tour.Title = strings.TrimSpace(r.Tour.Title)
	r.Customer.Name = strings.TrimSpace(r.Customer.Name)
	r.Customer.Email = strings.ToLower(strings.TrimSpace(r.Customer.Email))
	r.Date = strings.TrimSpace(r.Date)
	r.Phone = strings.TrimSpace(r.Phone)
	r.Currency = strings.ToUpper(strings.TrimSpace(r.Currency))
	r.Locale = strings.TrimSpace(r.Locale)
	r.Price = nil
}

// Ref returns the catalog reference of the request.
func (r *Request) Ref() catalog.Ref {
	return catalog.Ref{Slug: r.Tour.Slug, Title: r.Tour.Title}
}
