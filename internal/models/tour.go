// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package models holds the domain records shared across Tourbook packages.
package models

// Tour is a sellable catalog entry. Price is an integer amount in the
// catalog reference currency and is the only price the pipeline trusts.
type Tour struct {
	ID            string   `json:"id,omitempty" db:"id" koanf:"id"`
	Slug          string   `json:"slug" db:"slug" koanf:"slug"`
	Title         string   `json:"title" db:"title" koanf:"title"`
	Price         int64    `json:"price" db:"base_price" koanf:"price"`
	DurationHours float64  `json:"durationHours" db:"duration_hours" koanf:"duration_hours"`
	City          string   `json:"city" db:"city" koanf:"city"`
	Tags          []string `json:"tags,omitempty" db:"-" koanf:"tags"`
}
