// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/tomtom215/tourbook/internal/config"
)

// DefaultBrandColor is used when the configured color does not parse.
const DefaultBrandColor = "#0F766E"

// InvoiceData is everything printed on one invoice.
type InvoiceData struct {
	Lang          string
	Number        string
	SessionID     string
	IssuedAt      time.Time
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	TourTitle     string
	Date          string
	Persons       int
	UnitPrice     string
	Total         string
	ManageURL     string
}

// Renderer produces an invoice document.
type Renderer interface {
	Render(d *InvoiceData) ([]byte, error)
}

// PDFRenderer lays invoices out as a single A4 page.
type PDFRenderer struct {
	cfg     config.InvoiceConfig
	r, g, b int
}

// NewPDFRenderer returns a renderer. A missing logo is skipped at render
// time rather than rejected here.
func NewPDFRenderer(cfg config.InvoiceConfig) *PDFRenderer {
	if cfg.BrandName == "" {
		cfg.BrandName = "Tourbook"
	}
	r, g, b, err := parseHexColor(cfg.BrandColor)
	if err != nil {
		r, g, b, _ = parseHexColor(DefaultBrandColor)
	}
	return &PDFRenderer{cfg: cfg, r: r, g: g, b: b}
}

// parseHexColor accepts #RGB and #RRGGBB.
func parseHexColor(s string) (r, g, b int, err error) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(s) == 3 {
		s = string([]byte{s[0], s[0], s[1], s[1], s[2], s[2]})
	}
	if len(s) != 6 {
		return 0, 0, 0, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(s, 16, 32)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return int(v >> 16 & 0xFF), int(v >> 8 & 0xFF), int(v & 0xFF), nil
}

// Render implements Renderer.
func (p *PDFRenderer) Render(d *InvoiceData) ([]byte, error) {
	if d == nil || d.SessionID == "" {
		return nil, errors.New("invoice data requires a session id")
	}
	lang := d.Lang
	if lang == "" {
		lang = LangEN
	}
	t := func(key string) string { return translate(lang, key) }

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()

	// Header band
	pdf.SetFillColor(p.r, p.g, p.b)
	pdf.Rect(0, 0, 210, 38, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(15, 12)
	pdf.SetFont("Helvetica", "B", 22)
	pdf.Cell(120, 10, tr(p.cfg.BrandName))
	pdf.SetXY(15, 23)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(120, 6, tr(t("invoice")+" "+d.Number))

	if p.cfg.LogoPath != "" {
		if _, err := os.Stat(p.cfg.LogoPath); err == nil {
			info := pdf.RegisterImageOptions(p.cfg.LogoPath, gofpdf.ImageOptions{})
			if info != nil {
				w, h := info.Extent()
				scale := 1.0
				if w > 40 {
					scale = 40 / w
				}
				if h*scale > 26 {
					scale = 26 / h
				}
				pdf.ImageOptions(p.cfg.LogoPath, 195-w*scale, 6, w*scale, h*scale, false, gofpdf.ImageOptions{}, 0, "")
			}
		}
	}

	pdf.SetTextColor(34, 34, 34)
	pdf.SetXY(15, 48)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, tr(t("billed_to")))
	pdf.Ln(6)
	pdf.SetFont("Helvetica", "", 11)
	for _, line := range []string{d.CustomerName, d.CustomerEmail, d.CustomerPhone} {
		if line == "" {
			continue
		}
		pdf.Cell(0, 6, tr(line))
		pdf.Ln(5)
	}

	pdf.SetXY(120, 48)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.Cell(0, 6, tr(t("issued")))
	pdf.SetXY(120, 54)
	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 6, formatDate(d.IssuedAt.Format("2006-01-02"), lang))
	pdf.SetXY(120, 60)
	pdf.Cell(0, 6, tr(t("reference")+": "+shortRef(d.SessionID)))

	// Items
	y := 82.0
	pdf.SetDrawColor(220, 220, 220)
	pdf.Line(15, y-4, 195, y-4)
	rows := [][2]string{
		{t("tour"), d.TourTitle},
		{t("date"), formatDate(d.Date, lang)},
		{t("persons"), strconv.Itoa(d.Persons)},
		{t("unit_price"), d.UnitPrice},
	}
	pdf.SetFillColor(245, 245, 245)
	for i, row := range rows {
		pdf.SetXY(15, y)
		pdf.SetFont("Helvetica", "B", 11)
		pdf.CellFormat(55, 9, tr(row[0]), "", 0, "L", i%2 == 0, 0, "")
		pdf.SetFont("Helvetica", "", 11)
		pdf.CellFormat(125, 9, tr(row[1]), "", 0, "L", i%2 == 0, 0, "")
		y += 9
	}

	// Total
	y += 6
	pdf.SetFillColor(p.r, p.g, p.b)
	pdf.Rect(105, y, 90, 16, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetXY(110, y+4)
	pdf.SetFont("Helvetica", "B", 13)
	pdf.CellFormat(40, 8, tr(t("total")), "", 0, "L", false, 0, "")
	pdf.CellFormat(40, 8, tr(d.Total), "", 0, "R", false, 0, "")
	pdf.SetTextColor(34, 34, 34)

	// QR
	if d.ManageURL != "" {
		png, err := qrcode.Encode(d.ManageURL, qrcode.Medium, 256)
		if err != nil {
			return nil, fmt.Errorf("encode qr code: %w", err)
		}
		pdf.RegisterImageOptionsReader("qr", gofpdf.ImageOptions{ImageType: "png"}, bytes.NewReader(png))
		qy := y + 28
		pdf.ImageOptions("qr", 15, qy, 40, 0, false, gofpdf.ImageOptions{ImageType: "png"}, 0, "")
		pdf.SetXY(60, qy+14)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.MultiCell(120, 5, tr(t("qr_hint")+"\n"+d.ManageURL), "", "L", false)
	}

	// Footer
	pdf.SetDrawColor(200, 200, 200)
	pdf.Line(15, 272, 195, 272)
	pdf.SetXY(15, 275)
	pdf.SetFont("Helvetica", "", 8)
	footer := p.cfg.Disclaimer
	if p.cfg.TaxID != "" {
		footer = strings.TrimSpace(footer + " " + p.cfg.TaxID)
	}
	pdf.MultiCell(180, 4, tr(footer), "", "C", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render invoice pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// InvoiceNumber derives a stable printable number from the paid date and
// session id.
func InvoiceNumber(issued time.Time, sessionID string) string {
	return fmt.Sprintf("%s-%s", issued.UTC().Format("20060102"), strings.ToUpper(shortRef(sessionID)))
}

func shortRef(sessionID string) string {
	ref := sessionID
	if i := strings.LastIndex(ref, "_"); i >= 0 {
		ref = ref[i+1:]
	}
	if len(ref) > 10 {
		ref = ref[len(ref)-10:]
	}
	return ref
}
