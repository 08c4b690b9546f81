// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package checkout

import (
	"strings"

	"golang.org/x/text/language"
)

// providerLocales are the hosted checkout page languages.
var providerLocales = map[string]bool{
	"bg": true, "cs": true, "da": true, "de": true, "el": true, "en": true,
	"en-GB": true, "es": true, "es-419": true, "et": true, "fi": true,
	"fil": true, "fr": true, "fr-CA": true, "hr": true, "hu": true, "id": true,
	"it": true, "ja": true, "ko": true, "lt": true, "lv": true, "ms": true,
	"mt": true, "nb": true, "nl": true, "pl": true, "pt": true, "pt-BR": true,
	"ro": true, "ru": true, "sk": true, "sl": true, "sv": true, "th": true,
	"tr": true, "vi": true, "zh": true, "zh-HK": true, "zh-TW": true,
}

// LocaleAuto lets the provider pick from the browser.
const LocaleAuto = "auto"

// ResolveLocale picks the checkout page language: an explicit override,
// else the best Accept-Language match, else fallback, else auto.
func ResolveLocale(override, acceptLanguage, fallback string) string {
	if l, ok := mapLocale(override); ok {
		return l
	}
	if tags, _, err := language.ParseAcceptLanguage(acceptLanguage); err == nil {
		for _, t := range tags {
			if l, ok := mapLocale(t.String()); ok {
				return l
			}
		}
	}
	if l, ok := mapLocale(fallback); ok {
		return l
	}
	return LocaleAuto
}

// mapLocale reduces a BCP 47 tag to a provider locale, keeping the region
// only when the provider has a regional variant.
func mapLocale(tag string) (string, bool) {
	tag = strings.ReplaceAll(strings.TrimSpace(tag), "_", "-")
	if tag == "" {
		return "", false
	}
	t, err := language.Parse(tag)
	if err != nil {
		return "", false
	}
	base, _ := t.Base()
	region, conf := t.Region()
	if conf != language.No && conf != language.Low {
		if full := base.String() + "-" + region.String(); providerLocales[full] {
			return full, true
		}
	}
	if providerLocales[base.String()] {
		return base.String(), true
	}
	return "", false
}
