// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package currency converts catalog prices into the minor-unit amounts the
// payment provider charges. Rates are static configuration; there is no
// live FX lookup.
package currency

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// ErrNoRate is returned when no rate is configured for a currency pair.
var ErrNoRate = errors.New("no exchange rate configured")

// Converter holds rates keyed "FROM_TO". A rate is how many FROM units buy
// one TO unit, e.g. COP_EUR = 4500.
type Converter struct {
	rates map[string]float64
}

// NewConverter builds a converter with the reference→settlement rate and any
// extra pairs.
func NewConverter(reference, settlement string, rate float64, extra map[string]float64) *Converter {
	c := &Converter{rates: make(map[string]float64, len(extra)+1)}
	for pair, r := range extra {
		c.rates[strings.ToUpper(pair)] = r
	}
	if rate > 0 {
		c.rates[pairKey(reference, settlement)] = rate
	}
	return c
}

func pairKey(from, to string) string {
	return strings.ToUpper(from) + "_" + strings.ToUpper(to)
}

// Rate returns the configured rate for from→to.
func (c *Converter) Rate(from, to string) (float64, error) {
	r, ok := c.rates[pairKey(from, to)]
	if !ok || r <= 0 {
		return 0, fmt.Errorf("%w for %s", ErrNoRate, pairKey(from, to))
	}
	return r, nil
}

// ToMinorUnits returns the provider amount for a line of quantity units.
// When from equals to the catalog integer is taken as minor units as-is.
// Otherwise the whole line is converted once, round(price × quantity / rate
// × 100), and the result is never less than 1 so the provider is not asked
// for a zero-amount line.
func (c *Converter) ToMinorUnits(price int64, from, to string, quantity int) (int64, error) {
	if quantity < 1 {
		return 0, fmt.Errorf("quantity must be positive, got %d", quantity)
	}
	if price < 0 {
		return 0, fmt.Errorf("price must not be negative, got %d", price)
	}
	line := price * int64(quantity)
	if strings.EqualFold(from, to) {
		return line, nil
	}
	rate, err := c.Rate(from, to)
	if err != nil {
		return 0, err
	}
	amount := int64(math.Round(float64(line) / rate * 100))
	return max(amount, 1), nil
}
