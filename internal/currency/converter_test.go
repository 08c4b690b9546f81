// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package currency

import (
	"errors"
	"strings"
	"testing"
)

func TestToMinorUnits(t *testing.T) {
	t.Parallel()

	c := NewConverter("COP", "USD", 4000, map[string]float64{"cop_eur": 4500})

	tests := []struct {
		name     string
		price    int64
		from, to string
		qty      int
		want     int64
		wantErr  error
	}{
		{"three persons at 100000", 100000, "COP", "USD", 3, 7500, nil},
		{"single person", 180000, "COP", "USD", 1, 4500, nil},
		{"rounds half up", 20, "COP", "USD", 1, 1, nil},
		{"floor of one minor unit", 1, "COP", "USD", 1, 1, nil},
		{"zero price floors once per line", 0, "COP", "USD", 2, 1, nil},
		{"sub-cent unit price", 10, "COP", "USD", 20, 5, nil},
		{"extra pair, lower-case key", 90000, "cop", "eur", 2, 4000, nil},
		{"same currency passes through", 95000, "COP", "cop", 2, 190000, nil},
		{"missing pair", 1000, "COP", "GBP", 1, 0, ErrNoRate},
		{"line rounded once, not per person", 4100, "COP", "USD", 3, 308, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := c.ToMinorUnits(tt.price, tt.from, tt.to, tt.qty)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ToMinorUnits(%d, %s, %s, %d) = %d, want %d", tt.price, tt.from, tt.to, tt.qty, got, tt.want)
			}
		})
	}
}

func TestToMinorUnitsRejectsBadInput(t *testing.T) {
	t.Parallel()

	c := NewConverter("COP", "USD", 4000, nil)
	if _, err := c.ToMinorUnits(100, "COP", "USD", 0); err == nil {
		t.Error("quantity 0 should fail")
	}
	if _, err := c.ToMinorUnits(-1, "COP", "USD", 1); err == nil {
		t.Error("negative price should fail")
	}
}

func TestFormat(t *testing.T) {
	t.Parallel()

	tests := []struct {
		minor  int64
		code   string
		locale string
		want   string
	}{
		{12000, "EUR", "en", "120"},
		{12000, "EUR", "es", "120"},
		{7500, "USD", "", "75"},
		{990, "XYZ", "en", "9.90 XYZ"},
	}
	for _, tt := range tests {
		got := Format(tt.minor, tt.code, tt.locale)
		if !strings.Contains(got, tt.want) {
			t.Errorf("Format(%d, %q, %q) = %q, want it to contain %q", tt.minor, tt.code, tt.locale, got, tt.want)
		}
	}
}
