// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package webhook reconciles payment provider events into booking state.
//
// Every delivery is verified, deduplicated by event id, audited and then
// applied through the Transition table. Work for one checkout session is
// serialized; different sessions proceed in parallel.
package webhook

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/catalog"
	"github.com/tomtom215/tourbook/internal/ledger"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/notify"
	"github.com/tomtom215/tourbook/internal/payments"
)

// ErrInvalidSignature is returned for payloads that fail verification.
var ErrInvalidSignature = payments.ErrInvalidSignature

// Outcome describes what a delivery did.
type Outcome string

// Delivery outcomes, also used as metric labels.
const (
	OutcomeProcessed Outcome = "processed"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
	OutcomeRejected  Outcome = "rejected"
	OutcomeInvalid   Outcome = "invalid_signature"
	OutcomeFailed    Outcome = "failed"
)

// TourResolver finds the catalog tour named in session metadata.
type TourResolver interface {
	Resolve(ctx context.Context, ref catalog.Ref) (*models.Tour, error)
}

// Notifier sends the paid confirmation.
type Notifier interface {
	BookingPaid(ctx context.Context, b *models.Booking, session *payments.Session) (notify.Outcome, error)
}

// Publisher announces booking status changes.
type Publisher interface {
	PublishBooking(ctx context.Context, ev models.BookingEvent) error
}

// Deps are the collaborators of a Processor. Tours, Notifier, Publisher and
// Audit are optional.
type Deps struct {
	Gateway   payments.Gateway
	Bookings  booking.Store
	Events    ledger.EventLedger
	Tours     TourResolver
	Notifier  Notifier
	Publisher Publisher
	Audit     *audit.Logger

	// TourTimeout bounds the catalog lookup for the tour id.
	TourTimeout time.Duration
}

// Processor applies verified events.
type Processor struct {
	deps  Deps
	locks *keyedLocks
}

// NewProcessor validates deps and returns a processor.
func NewProcessor(deps Deps) (*Processor, error) {
	if deps.Gateway == nil || deps.Bookings == nil || deps.Events == nil {
		return nil, errors.New("webhook: gateway, bookings and event ledger are required")
	}
	if deps.TourTimeout <= 0 {
		deps.TourTimeout = 2 * time.Second
	}
	return &Processor{deps: deps, locks: newKeyedLocks()}, nil
}

// Handle verifies payload against the signature header and processes it.
// Signature failures return an error wrapping ErrInvalidSignature and
// change nothing.
func (p *Processor) Handle(ctx context.Context, payload []byte, signature string) (*payments.Event, Outcome, error) {
	ev, err := p.deps.Gateway.VerifyEvent(payload, signature)
	if err != nil {
		metrics.RecordWebhookEvent("", string(OutcomeInvalid))
		logging.Ctx(ctx).Warn().Err(err).Msg("webhook signature verification failed")
		if !errors.Is(err, ErrInvalidSignature) {
			err = fmt.Errorf("%w: %v", ErrInvalidSignature, err)
		}
		return nil, OutcomeInvalid, err
	}
	outcome, err := p.Process(ctx, ev)
	return ev, outcome, err
}

// Process applies a verified event. An error means the event was not
// applied and was not marked seen, so a redelivery retries it.
func (p *Processor) Process(ctx context.Context, ev *payments.Event) (Outcome, error) {
	start := time.Now()
	ctx = audit.WithActor(ctx, audit.ActorProvider)
	log := logging.Ctx(ctx).With().Str("event_id", ev.ID).Str("event_type", ev.Type).Logger()
	ctx = logging.ContextWithLogger(ctx, log)

	seen, err := p.deps.Events.Seen(ctx, ev.ID)
	if err != nil {
		metrics.RecordWebhookEvent(ev.Type, string(OutcomeFailed))
		log.Error().Err(err).Msg("event ledger lookup failed")
		return OutcomeFailed, fmt.Errorf("check event ledger: %w", err)
	}
	if seen {
		metrics.RecordWebhookEvent(ev.Type, string(OutcomeDuplicate))
		log.Info().Msg("duplicate webhook event ignored")
		return OutcomeDuplicate, nil
	}

	p.record(ctx, audit.EventTypeWebhookReceived, audit.OutcomeSuccess, "", ev.Type, ev.Payload)

	outcome, err := p.dispatch(ctx, ev)
	metrics.WebhookProcessingDuration.WithLabelValues(ev.Type).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecordWebhookEvent(ev.Type, string(OutcomeFailed))
		log.Error().Err(err).Msg("webhook processing failed")
		p.record(ctx, audit.EventTypeWebhookFailed, audit.OutcomeFailure, "", err.Error(), map[string]string{
			"event_id": ev.ID, "event_type": ev.Type,
		})
		return OutcomeFailed, err
	}

	if outcome == OutcomeDuplicate {
		metrics.RecordWebhookEvent(ev.Type, string(OutcomeDuplicate))
		log.Info().Msg("duplicate webhook event ignored after waiting for session")
		return OutcomeDuplicate, nil
	}

	// Session paths already marked under their lock; MarkSeen is a no-op then.
	p.markSeen(ctx, ev)
	metrics.RecordWebhookEvent(ev.Type, string(outcome))
	log.Info().Str("outcome", string(outcome)).Dur("duration", time.Since(start)).Msg("webhook event processed")
	return outcome, nil
}

func (p *Processor) dispatch(ctx context.Context, ev *payments.Event) (Outcome, error) {
	switch ev.Type {
	case payments.EventCheckoutCompleted, payments.EventCheckoutAsyncPaymentSucceed:
		session, err := payments.SessionFromEvent(ev)
		if err != nil {
			return OutcomeFailed, err
		}
		return p.applySession(ctx, ev, session)

	case payments.EventCheckoutAsyncPaymentFailed:
		session, err := payments.SessionFromEvent(ev)
		if err != nil {
			return OutcomeFailed, err
		}
		logging.Ctx(ctx).Warn().Str("session_id", session.ID).Msg("async payment failed")
		p.record(ctx, audit.EventTypePaymentFailed, audit.OutcomeFailure, session.ID, "async payment failed", nil)
		return OutcomeProcessed, nil

	case payments.EventCheckoutExpired:
		session, err := payments.SessionFromEvent(ev)
		if err != nil {
			return OutcomeFailed, err
		}
		return p.applyTrigger(ctx, ev, session.ID, TriggerExpired)

	case payments.EventPaymentIntentSucceeded:
		piID, err := payments.PaymentIntentIDFromEvent(ev)
		if err != nil {
			return OutcomeFailed, err
		}
		session, err := p.deps.Gateway.SessionByPaymentIntent(ctx, piID)
		if errors.Is(err, payments.ErrSessionNotFound) {
			logging.Ctx(ctx).Debug().Str("payment_intent", piID).Msg("payment intent has no checkout session")
			return OutcomeIgnored, nil
		}
		if err != nil {
			return OutcomeFailed, fmt.Errorf("find session for payment intent %s: %w", piID, err)
		}
		return p.applySession(ctx, ev, session)

	case payments.EventChargeRefunded:
		piID, err := payments.ChargePaymentIntentID(ev)
		if err != nil {
			return OutcomeFailed, err
		}
		if piID == "" {
			return OutcomeIgnored, nil
		}
		session, err := p.deps.Gateway.SessionByPaymentIntent(ctx, piID)
		if errors.Is(err, payments.ErrSessionNotFound) {
			return OutcomeIgnored, nil
		}
		if err != nil {
			return OutcomeFailed, fmt.Errorf("find session for payment intent %s: %w", piID, err)
		}
		return p.applyTrigger(ctx, ev, session.ID, TriggerRefunded)

	default:
		return OutcomeIgnored, nil
	}
}

// applySession runs upsertSession under the session lock. The event ledger
// is checked again and written while the lock is held, so concurrent
// deliveries of one event apply it once.
func (p *Processor) applySession(ctx context.Context, ev *payments.Event, session *payments.Session) (Outcome, error) {
	unlock := p.locks.Lock(session.ID)
	defer unlock()
	return p.locked(ctx, ev, func() (Outcome, error) {
		return p.upsertSession(ctx, ev, session)
	})
}

// applyTrigger runs moveBooking under the session lock, like applySession.
func (p *Processor) applyTrigger(ctx context.Context, ev *payments.Event, sessionID string, trigger Trigger) (Outcome, error) {
	unlock := p.locks.Lock(sessionID)
	defer unlock()
	return p.locked(ctx, ev, func() (Outcome, error) {
		return p.moveBooking(ctx, ev, sessionID, trigger)
	})
}

func (p *Processor) locked(ctx context.Context, ev *payments.Event, apply func() (Outcome, error)) (Outcome, error) {
	seen, err := p.deps.Events.Seen(ctx, ev.ID)
	if err != nil {
		return OutcomeFailed, fmt.Errorf("check event ledger: %w", err)
	}
	if seen {
		return OutcomeDuplicate, nil
	}
	outcome, err := apply()
	if err != nil {
		return outcome, err
	}
	p.markSeen(ctx, ev)
	return outcome, nil
}

func (p *Processor) markSeen(ctx context.Context, ev *payments.Event) {
	if _, err := p.deps.Events.MarkSeen(ctx, ev.ID, ev.Type); err != nil {
		// Applied but not recorded; a redelivery re-applies idempotently.
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to record processed event")
	}
}

// upsertSession writes the booking described by a completed session and
// notifies when it is paid.
func (p *Processor) upsertSession(ctx context.Context, ev *payments.Event, session *payments.Session) (Outcome, error) {
	log := logging.Ctx(ctx).With().Str("session_id", session.ID).Logger()
	ctx = logging.ContextWithLogger(ctx, log)

	current, existing, err := p.currentStatus(ctx, session.ID)
	if err != nil {
		return OutcomeFailed, err
	}
	trigger := completionTrigger(session.Paid())
	next, ok := Transition(current, trigger)
	if !ok {
		p.rejected(ctx, ev, session.ID, current, trigger)
		return OutcomeRejected, nil
	}

	b := p.bookingFromSession(ctx, session, next, existing)
	if err := p.deps.Bookings.Upsert(ctx, b); err != nil {
		return OutcomeFailed, fmt.Errorf("upsert booking: %w", err)
	}
	log.Info().Str("status", string(b.Status)).Str("booking_id", b.ID).Msg("booking upserted")
	p.record(ctx, audit.EventTypeBookingUpserted, audit.OutcomeSuccess, session.ID,
		fmt.Sprintf("booking %s", b.Status), map[string]any{
			"event_id": ev.ID, "status": b.Status, "previous": current, "total": b.Total, "currency": b.Currency,
		})
	if current != next {
		p.publish(ctx, ev, b, current)
	}

	if b.Status == models.StatusPaid && p.deps.Notifier != nil {
		if _, err := p.deps.Notifier.BookingPaid(ctx, b, session); err != nil {
			log.Warn().Err(err).Msg("confirmation not delivered, booking kept")
		}
	}
	return OutcomeProcessed, nil
}

// moveBooking moves an existing booking. Sessions without a row are left
// alone.
func (p *Processor) moveBooking(ctx context.Context, ev *payments.Event, sessionID string, trigger Trigger) (Outcome, error) {
	log := logging.Ctx(ctx).With().Str("session_id", sessionID).Logger()
	ctx = logging.ContextWithLogger(ctx, log)

	current, existing, err := p.currentStatus(ctx, sessionID)
	if err != nil {
		return OutcomeFailed, err
	}
	next, ok := Transition(current, trigger)
	if !ok {
		p.rejected(ctx, ev, sessionID, current, trigger)
		return OutcomeRejected, nil
	}
	if next == StatusNone {
		log.Debug().Str("trigger", string(trigger)).Msg("no booking for session, nothing to do")
		return OutcomeIgnored, nil
	}
	if next == current {
		return OutcomeProcessed, nil
	}

	if _, err := p.deps.Bookings.SetStatus(ctx, sessionID, next); err != nil {
		return OutcomeFailed, fmt.Errorf("set booking status: %w", err)
	}
	existing.Status = next
	log.Info().Str("status", string(next)).Str("trigger", string(trigger)).Msg("booking status changed")
	if next == models.StatusCanceled {
		p.record(ctx, audit.EventTypeBookingCanceled, audit.OutcomeSuccess, sessionID,
			"booking canceled by "+string(trigger), map[string]any{"event_id": ev.ID, "previous": current})
	}
	p.publish(ctx, ev, existing, current)
	return OutcomeProcessed, nil
}

func (p *Processor) currentStatus(ctx context.Context, sessionID string) (models.BookingStatus, *models.Booking, error) {
	b, err := p.deps.Bookings.GetBySessionID(ctx, sessionID)
	if errors.Is(err, booking.ErrNotFound) {
		return StatusNone, nil, nil
	}
	if err != nil {
		return StatusNone, nil, fmt.Errorf("load booking: %w", err)
	}
	return b.Status, b, nil
}

func (p *Processor) rejected(ctx context.Context, ev *payments.Event, sessionID string, current models.BookingStatus, trigger Trigger) {
	from := string(current)
	if from == "" {
		from = "none"
	}
	metrics.TransitionsRejectedTotal.WithLabelValues(from, string(trigger)).Inc()
	logging.Ctx(ctx).Warn().Str("from", from).Str("trigger", string(trigger)).Msg("booking transition rejected")
	p.record(ctx, audit.EventTypeTransitionRejected, audit.OutcomeIgnored, sessionID,
		fmt.Sprintf("%s refused for %s booking", trigger, from), map[string]string{"event_id": ev.ID})
}

// bookingFromSession builds the row for session. Fields the session lacks
// are kept from the existing row.
func (p *Processor) bookingFromSession(ctx context.Context, s *payments.Session, status models.BookingStatus, existing *models.Booking) *models.Booking {
	m := s.Metadata
	b := &models.Booking{
		StripeSessionID: s.ID,
		Status:          status,
		TourSlug:        m.TourSlug,
		TourTitle:       m.TourTitle,
		Date:            m.Date,
		Persons:         m.Quantity,
		Total:           s.AmountTotal,
		Currency:        s.Currency,
		CustomerEmail:   s.CustomerEmail,
		CustomerName:    firstNonEmpty(s.CustomerName, m.CustomerName),
		CustomerPhone:   firstNonEmpty(s.CustomerPhone, m.Phone),
	}
	if existing != nil {
		b.ID = existing.ID
		b.CreatedAt = existing.CreatedAt
		b.TourID = existing.TourID
		b.TourSlug = firstNonEmpty(b.TourSlug, existing.TourSlug)
		b.TourTitle = firstNonEmpty(b.TourTitle, existing.TourTitle)
		b.Date = firstNonEmpty(b.Date, existing.Date)
		b.CustomerEmail = firstNonEmpty(b.CustomerEmail, existing.CustomerEmail)
		b.CustomerName = firstNonEmpty(b.CustomerName, existing.CustomerName)
		b.CustomerPhone = firstNonEmpty(b.CustomerPhone, existing.CustomerPhone)
		if b.Persons == 0 {
			b.Persons = existing.Persons
		}
	}
	if b.Persons == 0 {
		b.Persons = 1
	}
	if b.TourID == nil {
		b.TourID = p.resolveTourID(ctx, m)
	}
	return b
}

func (p *Processor) resolveTourID(ctx context.Context, m payments.Metadata) *string {
	if p.deps.Tours == nil || (m.TourSlug == "" && m.TourTitle == "") {
		return nil
	}
	ctx, cancel := context.WithTimeout(ctx, p.deps.TourTimeout)
	defer cancel()
	tour, err := p.deps.Tours.Resolve(ctx, catalog.Ref{Slug: m.TourSlug, Title: m.TourTitle})
	if err != nil || tour.ID == "" {
		logging.Ctx(ctx).Debug().Err(err).Str("slug", m.TourSlug).Msg("tour id not resolved")
		return nil
	}
	id := tour.ID
	return &id
}

func (p *Processor) publish(ctx context.Context, ev *payments.Event, b *models.Booking, previous models.BookingStatus) {
	if p.deps.Publisher == nil {
		return
	}
	err := p.deps.Publisher.PublishBooking(ctx, models.BookingEvent{
		ID:         uuid.NewString(),
		Type:       models.EventTypeFor(b.Status),
		SessionID:  b.StripeSessionID,
		BookingID:  b.ID,
		Status:     b.Status,
		Previous:   previous,
		Total:      b.Total,
		Currency:   b.Currency,
		TriggerID:  ev.ID,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).Msg("failed to publish booking event")
	}
}

func (p *Processor) record(ctx context.Context, typ audit.EventType, outcome audit.Outcome, sessionID, description string, payload any) {
	if p.deps.Audit == nil {
		return
	}
	p.deps.Audit.Record(ctx, typ, outcome, sessionID, description, payload)
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
