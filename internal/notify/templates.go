// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"bytes"
	"fmt"
	htmltemplate "html/template"
	"strings"
	texttemplate "text/template"
	"time"
)

// Email languages. Anything that is not Spanish gets English.
const (
	LangES = "es"
	LangEN = "en"
)

// EmailData is the view model for the confirmation email.
type EmailData struct {
	Lang          string
	BrandName     string
	CustomerName  string
	TourTitle     string
	Date          string
	Persons       int
	Total         string
	SessionID     string
	ManageURL     string
	HasAttachment bool
}

// Email is a rendered confirmation email.
type Email struct {
	Subject string
	HTML    string
	Text    string
}

// LanguageFor maps a session locale (es, es-419, en-GB, auto) to an email
// language.
func LanguageFor(locale string) string {
	if strings.HasPrefix(strings.ToLower(locale), "es") {
		return LangES
	}
	return LangEN
}

var messages = map[string]map[string]string{
	LangES: {
		"subject":    "Confirmación de reserva: %s",
		"greeting":   "Hola %s,",
		"intro":      "Tu pago fue recibido y tu reserva está confirmada.",
		"tour":       "Tour",
		"date":       "Fecha",
		"persons":    "Personas",
		"total":      "Total pagado",
		"reference":  "Referencia",
		"attachment": "Adjuntamos tu factura en PDF.",
		"noattach":   "Tu factura estará disponible en la página de tu reserva.",
		"manage":     "Gestionar mi reserva",
		"closing":    "¡Nos vemos pronto!",
		"invoice":    "FACTURA",
		"issued":     "Fecha de emisión",
		"billed_to":  "Facturado a",
		"unit_price": "Precio por persona",
		"qr_hint":    "Escanea el código para gestionar tu reserva.",
	},
	LangEN: {
		"subject":    "Booking confirmation: %s",
		"greeting":   "Hi %s,",
		"intro":      "We received your payment and your booking is confirmed.",
		"tour":       "Tour",
		"date":       "Date",
		"persons":    "Persons",
		"total":      "Total paid",
		"reference":  "Reference",
		"attachment": "Your invoice is attached as a PDF.",
		"noattach":   "Your invoice will be available on your booking page.",
		"manage":     "Manage my booking",
		"closing":    "See you soon!",
		"invoice":    "INVOICE",
		"issued":     "Issued",
		"billed_to":  "Billed to",
		"unit_price": "Price per person",
		"qr_hint":    "Scan the code to manage your booking.",
	},
}

func translate(lang, key string) string {
	if m, ok := messages[lang]; ok {
		if s, ok := m[key]; ok {
			return s
		}
	}
	return messages[LangEN][key]
}

const htmlBody = `<!DOCTYPE html>
<html lang="{{.Lang}}">
<body style="font-family: Helvetica, Arial, sans-serif; color: #222;">
  <h2>{{.BrandName}}</h2>
  <p>{{t "greeting" .CustomerName}}</p>
  <p>{{t "intro"}}</p>
  <table cellpadding="6" style="border-collapse: collapse;">
    <tr><td><strong>{{t "tour"}}</strong></td><td>{{.TourTitle}}</td></tr>
    <tr><td><strong>{{t "date"}}</strong></td><td>{{.Date}}</td></tr>
    <tr><td><strong>{{t "persons"}}</strong></td><td>{{.Persons}}</td></tr>
    <tr><td><strong>{{t "total"}}</strong></td><td>{{.Total}}</td></tr>
    <tr><td><strong>{{t "reference"}}</strong></td><td>{{.SessionID}}</td></tr>
  </table>
  <p>{{if .HasAttachment}}{{t "attachment"}}{{else}}{{t "noattach"}}{{end}}</p>
  <p><a href="{{.ManageURL}}">{{t "manage"}}</a></p>
  <p>{{t "closing"}}</p>
</body>
</html>
`

const textBody = `{{t "greeting" .CustomerName}}

{{t "intro"}}

{{t "tour"}}: {{.TourTitle}}
{{t "date"}}: {{.Date}}
{{t "persons"}}: {{.Persons}}
{{t "total"}}: {{.Total}}
{{t "reference"}}: {{.SessionID}}

{{if .HasAttachment}}{{t "attachment"}}{{else}}{{t "noattach"}}{{end}}
{{t "manage"}}: {{.ManageURL}}

{{t "closing"}}
{{.BrandName}}
`

// TemplateEngine renders confirmation emails.
type TemplateEngine struct {
	html map[string]*htmltemplate.Template
	text map[string]*texttemplate.Template
}

// NewTemplateEngine parses the built-in templates for every language.
func NewTemplateEngine() (*TemplateEngine, error) {
	te := &TemplateEngine{
		html: make(map[string]*htmltemplate.Template),
		text: make(map[string]*texttemplate.Template),
	}
	for lang := range messages {
		tr := func(key string, args ...any) string {
			if len(args) == 0 {
				return translate(lang, key)
			}
			return fmt.Sprintf(translate(lang, key), args...)
		}
		h, err := htmltemplate.New("html_" + lang).Funcs(htmltemplate.FuncMap{"t": tr}).Parse(htmlBody)
		if err != nil {
			return nil, fmt.Errorf("parse html template (%s): %w", lang, err)
		}
		x, err := texttemplate.New("text_" + lang).Funcs(texttemplate.FuncMap{"t": tr}).Parse(textBody)
		if err != nil {
			return nil, fmt.Errorf("parse text template (%s): %w", lang, err)
		}
		te.html[lang] = h
		te.text[lang] = x
	}
	return te, nil
}

// Render produces the subject and both bodies.
func (te *TemplateEngine) Render(data *EmailData) (*Email, error) {
	lang := data.Lang
	if _, ok := te.html[lang]; !ok {
		lang = LangEN
		data.Lang = LangEN
	}

	var hb, tb bytes.Buffer
	if err := te.html[lang].Execute(&hb, data); err != nil {
		return nil, fmt.Errorf("render html body: %w", err)
	}
	if err := te.text[lang].Execute(&tb, data); err != nil {
		return nil, fmt.Errorf("render text body: %w", err)
	}
	return &Email{
		Subject: fmt.Sprintf(translate(lang, "subject"), data.TourTitle),
		HTML:    hb.String(),
		Text:    tb.String(),
	}, nil
}

// formatDate renders an ISO date the way each language writes it.
func formatDate(iso, lang string) string {
	d, err := time.Parse("2006-01-02", iso)
	if err != nil {
		return iso
	}
	if lang == LangES {
		return fmt.Sprintf("%d de %s de %d", d.Day(), monthsES[d.Month()-1], d.Year())
	}
	return d.Format("January 2, 2006")
}

var monthsES = [12]string{
	"enero", "febrero", "marzo", "abril", "mayo", "junio",
	"julio", "agosto", "septiembre", "octubre", "noviembre", "diciembre",
}
