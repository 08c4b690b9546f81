// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package notify

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/currency"
	"github.com/tomtom215/tourbook/internal/ledger"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/payments"
)

// Outcome is the result of one dispatch.
type Outcome string

// Dispatch outcomes, also used as metric labels.
const (
	OutcomeSent           Outcome = "sent"
	OutcomeSentWithoutPDF Outcome = "sent_without_pdf"
	OutcomeSkipped        Outcome = "skipped"
	OutcomeFailed         Outcome = "failed"
)

// ErrNotPaid is returned by Resend for bookings that are not paid.
var ErrNotPaid = errors.New("booking is not paid")

// DispatcherConfig configures a Dispatcher.
type DispatcherConfig struct {
	BrandName string

	// ManageURL returns the customer-facing booking page for a session.
	ManageURL func(sessionID string) string

	// Timeout bounds one render+send. It is detached from the caller's
	// context so a dropped webhook connection does not abort a send in flight.
	Timeout time.Duration

	Now func() time.Time
}

// Dispatcher sends one confirmation per paid session.
type Dispatcher struct {
	markers   ledger.InvoiceMarkers
	mailer    Mailer
	renderer  Renderer
	templates *TemplateEngine
	audit     *audit.Logger
	cfg       DispatcherConfig

	group singleflight.Group
}

// NewDispatcher wires a dispatcher. auditLog may be nil.
func NewDispatcher(markers ledger.InvoiceMarkers, mailer Mailer, renderer Renderer, auditLog *audit.Logger, cfg DispatcherConfig) (*Dispatcher, error) {
	if markers == nil || mailer == nil {
		return nil, errors.New("notify: markers and mailer are required")
	}
	templates, err := NewTemplateEngine()
	if err != nil {
		return nil, err
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.ManageURL == nil {
		cfg.ManageURL = func(string) string { return "" }
	}
	if cfg.BrandName == "" {
		cfg.BrandName = "Tourbook"
	}
	return &Dispatcher{
		markers:   markers,
		mailer:    mailer,
		renderer:  renderer,
		templates: templates,
		audit:     auditLog,
		cfg:       cfg,
	}, nil
}

// BookingPaid sends the confirmation for b unless one was already sent.
// session supplies the customer locale and may be nil.
//
// Concurrent calls for the same session share one attempt. A returned error
// means nothing was delivered; the caller must not treat it as a reason to
// undo the booking.
func (d *Dispatcher) BookingPaid(ctx context.Context, b *models.Booking, session *payments.Session) (Outcome, error) {
	if b == nil || b.Status != models.StatusPaid {
		return OutcomeSkipped, nil
	}
	return d.do(ctx, b, session, "invoice-"+b.StripeSessionID, false)
}

// Resend clears the marker for b and sends the confirmation again.
func (d *Dispatcher) Resend(ctx context.Context, b *models.Booking) (Outcome, error) {
	if b == nil || b.Status != models.StatusPaid {
		return OutcomeSkipped, ErrNotPaid
	}
	if err := d.markers.ClearInvoiceSent(ctx, b.StripeSessionID); err != nil {
		return OutcomeFailed, fmt.Errorf("clear invoice marker: %w", err)
	}
	key := "invoice-" + b.StripeSessionID + "-" + strconv.FormatInt(d.cfg.Now().Unix(), 10)
	return d.do(ctx, b, nil, key, true)
}

type flightResult struct {
	outcome Outcome
}

func (d *Dispatcher) do(ctx context.Context, b *models.Booking, session *payments.Session, key string, manual bool) (Outcome, error) {
	v, err, _ := d.group.Do(b.StripeSessionID, func() (any, error) {
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), d.cfg.Timeout)
		defer cancel()
		o, err := d.dispatch(sendCtx, b, session, key, manual)
		return flightResult{outcome: o}, err
	})
	res, _ := v.(flightResult)
	if res.outcome == "" {
		res.outcome = OutcomeFailed
	}
	return res.outcome, err
}

func (d *Dispatcher) dispatch(ctx context.Context, b *models.Booking, session *payments.Session, key string, manual bool) (Outcome, error) {
	log := logging.Ctx(ctx).With().Str("session_id", b.StripeSessionID).Logger()

	sent, err := d.markers.InvoiceSent(ctx, b.StripeSessionID)
	if err != nil {
		metrics.InvoicesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
		log.Error().Err(err).Msg("invoice marker check failed, not sending")
		return OutcomeFailed, fmt.Errorf("check invoice marker: %w", err)
	}
	if sent {
		metrics.InvoicesTotal.WithLabelValues(string(OutcomeSkipped)).Inc()
		log.Debug().Msg("confirmation already sent")
		return OutcomeSkipped, nil
	}

	locale := ""
	if session != nil {
		locale = session.Metadata.Locale
	}
	lang := LanguageFor(locale)
	now := d.cfg.Now().UTC()
	manage := d.cfg.ManageURL(b.StripeSessionID)

	unit := b.Total
	if b.Persons > 0 {
		unit = b.Total / int64(b.Persons)
	}

	msg := &Message{
		To:             b.CustomerEmail,
		IdempotencyKey: key,
		Tags:           map[string]string{"category": "booking_confirmation"},
	}

	attached := false
	if d.renderer != nil {
		pdf, rerr := d.renderer.Render(&InvoiceData{
			Lang:          lang,
			Number:        InvoiceNumber(now, b.StripeSessionID),
			SessionID:     b.StripeSessionID,
			IssuedAt:      now,
			CustomerName:  b.CustomerName,
			CustomerEmail: b.CustomerEmail,
			CustomerPhone: b.CustomerPhone,
			TourTitle:     b.TourTitle,
			Date:          b.Date,
			Persons:       b.Persons,
			UnitPrice:     currency.Format(unit, b.Currency, lang),
			Total:         currency.Format(b.Total, b.Currency, lang),
			ManageURL:     manage,
		})
		if rerr != nil {
			log.Warn().Err(rerr).Msg("invoice render failed, sending email without attachment")
		} else {
			msg.Attachments = []Attachment{{
				Filename:    "invoice-" + shortRef(b.StripeSessionID) + ".pdf",
				ContentType: "application/pdf",
				Content:     pdf,
			}}
			attached = true
		}
	}

	email, err := d.templates.Render(&EmailData{
		Lang:          lang,
		BrandName:     d.cfg.BrandName,
		CustomerName:  b.CustomerName,
		TourTitle:     b.TourTitle,
		Date:          formatDate(b.Date, lang),
		Persons:       b.Persons,
		Total:         currency.Format(b.Total, b.Currency, lang),
		SessionID:     b.StripeSessionID,
		ManageURL:     manage,
		HasAttachment: attached,
	})
	if err != nil {
		return d.failed(ctx, b, fmt.Errorf("render email: %w", err))
	}
	msg.Subject, msg.HTML, msg.Text = email.Subject, email.HTML, email.Text

	messageID, err := d.mailer.Send(ctx, msg)
	if err != nil {
		return d.failed(ctx, b, err)
	}

	if err := d.markers.MarkInvoiceSent(ctx, b.StripeSessionID, messageID); err != nil {
		// The email went out; a later event may send a duplicate.
		log.Error().Err(err).Str("message_id", messageID).Msg("failed to record invoice marker")
	}

	outcome := OutcomeSent
	if !attached {
		outcome = OutcomeSentWithoutPDF
	}
	metrics.InvoicesTotal.WithLabelValues(string(outcome)).Inc()
	log.Info().Str("message_id", messageID).Bool("attachment", attached).Bool("manual", manual).Msg("confirmation email sent")
	if d.audit != nil {
		d.audit.Record(ctx, audit.EventTypeInvoiceSent, audit.OutcomeSuccess, b.StripeSessionID,
			"confirmation email sent", map[string]any{
				"message_id": messageID,
				"attachment": attached,
				"manual":     manual,
				"lang":       lang,
			})
	}
	return outcome, nil
}

func (d *Dispatcher) failed(ctx context.Context, b *models.Booking, err error) (Outcome, error) {
	metrics.InvoicesTotal.WithLabelValues(string(OutcomeFailed)).Inc()
	ev := logging.Ctx(ctx).Error().Err(err).Str("session_id", b.StripeSessionID)
	var se *SendError
	if errors.As(err, &se) {
		ev = ev.Str("code", se.Code).Bool("transient", se.Transient)
	}
	ev.Msg("confirmation email failed")
	if d.audit != nil {
		d.audit.Record(ctx, audit.EventTypeInvoiceFailed, audit.OutcomeFailure, b.StripeSessionID, err.Error(), nil)
	}
	return OutcomeFailed, err
}
