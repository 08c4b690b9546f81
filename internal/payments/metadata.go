// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package payments

import (
	"fmt"
	"strconv"
	"unicode/utf8"
)

// Metadata is the typed form of the session metadata bag. It carries every
// field needed to rebuild a booking from the webhook payload alone.
type Metadata struct {
	TourSlug          string
	TourTitle         string
	Date              string
	Quantity          int
	CustomerName      string
	Phone             string
	OriginCurrency    string
	ProviderCurrency  string
	RequestedCurrency string
	OriginalPrice     int64
	Locale            string
}

const (
	keyTourSlug          = "tourSlug"
	keyTourTitle         = "tourTitle"
	keyDate              = "date"
	keyQuantity          = "quantity"
	keyCustomerName      = "customerName"
	keyPhone             = "phone"
	keyOriginCurrency    = "originCurrency"
	keyProviderCurrency  = "providerCurrency"
	keyRequestedCurrency = "requestedCurrency"
	keyOriginalPrice     = "originalPrice"
	keyLocale            = "locale"

	// maxMetadataValue is the provider limit on a metadata value.
	maxMetadataValue = 500
)

// ToMap renders the metadata for the provider. Empty values are omitted.
func (m Metadata) ToMap() map[string]string {
	out := make(map[string]string, 11)
	set := func(k, v string) {
		if v != "" {
			out[k] = truncate(v, maxMetadataValue)
		}
	}
	set(keyTourSlug, m.TourSlug)
	set(keyTourTitle, m.TourTitle)
	set(keyDate, m.Date)
	if m.Quantity > 0 {
		set(keyQuantity, strconv.Itoa(m.Quantity))
	}
	set(keyCustomerName, m.CustomerName)
	set(keyPhone, m.Phone)
	set(keyOriginCurrency, m.OriginCurrency)
	set(keyProviderCurrency, m.ProviderCurrency)
	set(keyRequestedCurrency, m.RequestedCurrency)
	set(keyOriginalPrice, strconv.FormatInt(m.OriginalPrice, 10))
	set(keyLocale, m.Locale)
	return out
}

// ParseMetadata reads the provider bag. Missing keys leave zero values;
// malformed numbers are errors.
func ParseMetadata(raw map[string]string) (Metadata, error) {
	m := Metadata{
		TourSlug:          raw[keyTourSlug],
		TourTitle:         raw[keyTourTitle],
		Date:              raw[keyDate],
		CustomerName:      raw[keyCustomerName],
		Phone:             raw[keyPhone],
		OriginCurrency:    raw[keyOriginCurrency],
		ProviderCurrency:  raw[keyProviderCurrency],
		RequestedCurrency: raw[keyRequestedCurrency],
		Locale:            raw[keyLocale],
	}
	if v := raw[keyQuantity]; v != "" {
		q, err := strconv.Atoi(v)
		if err != nil {
			return m, fmt.Errorf("metadata %s=%q: %w", keyQuantity, v, err)
		}
		m.Quantity = q
	}
	if v := raw[keyOriginalPrice]; v != "" {
		p, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return m, fmt.Errorf("metadata %s=%q: %w", keyOriginalPrice, v, err)
		}
		m.OriginalPrice = p
	}
	return m, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	s = s[:n]
	for !utf8.ValidString(s) {
		s = s[:len(s)-1]
	}
	return s
}
