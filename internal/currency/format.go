// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package currency

import (
	"fmt"
	"strings"

	xcurrency "golang.org/x/text/currency"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Format renders a minor-unit amount for display in locale, e.g.
// "€ 120.00". Unknown codes fall back to "120.00 XYZ".
func Format(minor int64, code, locale string) string {
	major := float64(minor) / 100
	unit, err := xcurrency.ParseISO(code)
	if err != nil {
		return fmt.Sprintf("%.2f %s", major, strings.ToUpper(code))
	}
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return message.NewPrinter(tag).Sprint(xcurrency.Symbol(unit.Amount(major)))
}
