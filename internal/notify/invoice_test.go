// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"bytes"
	"testing"
	"time"

	"github.com/tomtom215/tourbook/internal/config"
)

func TestParseHexColor(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in      string
		r, g, b int
		wantErr bool
	}{
		{"#0F766E", 15, 118, 110, false},
		{"ffffff", 255, 255, 255, false},
		{"#abc", 170, 187, 204, false},
		{"#12345", 0, 0, 0, true},
		{"zzzzzz", 0, 0, 0, true},
	}
	for _, tt := range tests {
		r, g, b, err := parseHexColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("parseHexColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && (r != tt.r || g != tt.g || b != tt.b) {
			t.Errorf("parseHexColor(%q) = %d,%d,%d", tt.in, r, g, b)
		}
	}
}

func TestPDFRendererRender(t *testing.T) {
	t.Parallel()

	r := NewPDFRenderer(config.InvoiceConfig{
		BrandName:  "Tourbook Medellín",
		BrandColor: "not-a-color",
		LogoPath:   "/nonexistent/logo.png",
		Disclaimer: "Documento equivalente a factura.",
		TaxID:      "NIT 900.123.456-7",
	})
	pdf, err := r.Render(&InvoiceData{
		Lang:          LangES,
		Number:        InvoiceNumber(time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC), "cs_test_a1b2c3d4e5f6"),
		SessionID:     "cs_test_a1b2c3d4e5f6",
		IssuedAt:      time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		CustomerName:  "Ana Gómez",
		CustomerEmail: "ana@example.com",
		TourTitle:     "Guatapé and El Peñol Day Trip",
		Date:          "2026-04-02",
		Persons:       2,
		UnitPrice:     "€ 40.00",
		Total:         "€ 80.00",
		ManageURL:     "https://tours.example.com/booking/cs_test_a1b2c3d4e5f6",
	})
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Errorf("output does not look like a PDF: %q", pdf[:min(len(pdf), 16)])
	}

	if _, err := r.Render(&InvoiceData{}); err == nil {
		t.Error("Render() without session id should fail")
	}
}

func TestInvoiceNumber(t *testing.T) {
	t.Parallel()
	got := InvoiceNumber(time.Date(2026, 3, 20, 23, 0, 0, 0, time.UTC), "cs_test_a1b2c3d4e5f6")
	if got != "20260320-B2C3D4E5F6" {
		t.Errorf("InvoiceNumber() = %q", got)
	}
}
