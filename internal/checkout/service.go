// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/tomtom215/tourbook/internal/cache"
	"github.com/tomtom215/tourbook/internal/catalog"
	"github.com/tomtom215/tourbook/internal/currency"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
	"github.com/tomtom215/tourbook/internal/payments"
	"github.com/tomtom215/tourbook/internal/validation"
)

// ErrMisconfigured means the server cannot price the tour, e.g. a missing
// exchange rate. Clients see a generic 500.
var ErrMisconfigured = errors.New("checkout misconfigured")

// TourResolver finds the authoritative catalog entry for a reference.
type TourResolver interface {
	Resolve(ctx context.Context, ref catalog.Ref) (*models.Tour, error)
}

// Result is returned to the browser.
type Result struct {
	URL       string `json:"url"`
	SessionID string `json:"sessionId"`
}

// recentCapacity bounds how many created sessions are remembered.
const recentCapacity = 10000

// recentSession is a created session remembered by attempt key.
type recentSession struct {
	result    Result
	createdAt time.Time
}

// Service runs the checkout pipeline.
type Service struct {
	tours      TourResolver
	converter  *currency.Converter
	gateway    payments.Gateway
	builder    *Builder
	reference  string
	settlement string

	recent   *cache.LRU[recentSession]
	inflight singleflight.Group
}

// NewService wires the pipeline.
func NewService(tours TourResolver, converter *currency.Converter, gateway payments.Gateway, builder *Builder) *Service {
	return &Service{
		tours:      tours,
		converter:  converter,
		gateway:    gateway,
		builder:    builder,
		reference:  builder.cfg.ReferenceCurrency,
		settlement: builder.cfg.SettlementCurrency,
		recent:     cache.NewLRU[recentSession](recentCapacity, DedupWindow),
	}
}

// Create validates the request, prices it from the catalog and opens a
// hosted checkout session. Errors are *validation.RequestValidationError,
// catalog.ErrTourNotFound, ErrMisconfigured, *payments.ProviderError or a
// context error.
func (s *Service) Create(ctx context.Context, req Request, acceptLanguage string) (*Result, error) {
	req.Normalize()
	if verr := validation.ValidateStruct(&req); verr != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("invalid").Inc()
		return nil, verr
	}

	tour, err := s.tours.Resolve(ctx, req.Ref())
	if err != nil {
		if errors.Is(err, catalog.ErrTourNotFound) {
			metrics.CheckoutSessionsTotal.WithLabelValues("not_found").Inc()
		} else {
			metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		}
		return nil, err
	}

	amount, err := s.converter.ToMinorUnits(tour.Price, s.reference, s.settlement, req.Quantity)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("%w: %w", ErrMisconfigured, err)
	}

	// A repeat of the same attempt within DedupWindow gets the session that
	// was already opened, even when it lands in the next key bucket.
	key := s.builder.AttemptKey(&req, tour, amount)
	v, err, _ := s.inflight.Do(key, func() (any, error) {
		return s.open(ctx, key, &req, tour, amount, acceptLanguage)
	})
	if err != nil {
		return nil, err
	}
	res := v.(Result)
	return &res, nil
}

func (s *Service) open(ctx context.Context, key string, req *Request, tour *models.Tour, amount int64, acceptLanguage string) (Result, error) {
	now := s.builder.cfg.Now()
	if prev, ok := s.recent.Get(key); ok && now.Sub(prev.createdAt) < DedupWindow {
		metrics.CheckoutSessionsTotal.WithLabelValues("reused").Inc()
		logging.Ctx(ctx).Info().
			Str("session_id", prev.result.SessionID).
			Str("tour", tour.Slug).
			Msg("checkout session reused for repeated request")
		return prev.result, nil
	}

	params := s.builder.Build(req, tour, amount, acceptLanguage)
	session, err := s.gateway.CreateSession(ctx, params)
	if err != nil {
		metrics.CheckoutSessionsTotal.WithLabelValues("provider_error").Inc()
		logging.Ctx(ctx).Warn().Err(err).
			Str("tour", tour.Slug).
			Str("idempotency_key", params.IdempotencyKey).
			Msg("checkout session creation failed")
		return Result{}, err
	}

	res := Result{URL: session.URL, SessionID: session.ID}
	s.recent.Add(key, recentSession{result: res, createdAt: now})

	metrics.CheckoutSessionsTotal.WithLabelValues("created").Inc()
	logging.Ctx(ctx).Info().
		Str("session_id", session.ID).
		Str("tour", tour.Slug).
		Int("quantity", req.Quantity).
		Int64("amount", amount).
		Str("currency", s.settlement).
		Msg("checkout session created")

	return res, nil
}

// Status is the public view of a session for the success page.
type Status struct {
	SessionID     string `json:"sessionId"`
	Status        string `json:"status"`
	PaymentStatus string `json:"paymentStatus"`
	AmountTotal   int64  `json:"amountTotal"`
	Currency      string `json:"currency"`
	TourTitle     string `json:"tourTitle,omitempty"`
	Date          string `json:"date,omitempty"`
	Quantity      int    `json:"quantity,omitempty"`
}

// Lookup reads a session back from the provider.
func (s *Service) Lookup(ctx context.Context, sessionID string) (*Status, error) {
	sess, err := s.gateway.GetSession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	return &Status{
		SessionID:     sess.ID,
		Status:        sess.Status,
		PaymentStatus: sess.PaymentStatus,
		AmountTotal:   sess.AmountTotal,
		Currency:      sess.Currency,
		TourTitle:     sess.Metadata.TourTitle,
		Date:          sess.Metadata.Date,
		Quantity:      sess.Metadata.Quantity,
	}, nil
}
