// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package payments

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/tomtom215/tourbook/internal/breaker"
	"github.com/tomtom215/tourbook/internal/logging"
)

// StripeConfig configures the Stripe gateway.
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	APIBase       string
	Timeout       time.Duration
}

// StripeGateway implements Gateway with stripe-go. The API client is built
// once at startup and shared across requests.
type StripeGateway struct {
	api           *client.API
	webhookSecret string
	cb            *breaker.Breaker[*stripe.CheckoutSession]
}

// NewStripeGateway builds the gateway.
func NewStripeGateway(cfg StripeConfig) *StripeGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	hc := &http.Client{Timeout: cfg.Timeout}
	logger := &stripeLogger{l: logging.WithComponent("stripe")}

	apiCfg := &stripe.BackendConfig{
		HTTPClient:        hc,
		LeveledLogger:     logger,
		MaxNetworkRetries: stripe.Int64(2),
	}
	if cfg.APIBase != "" {
		apiCfg.URL = stripe.String(strings.TrimRight(cfg.APIBase, "/"))
	}
	backends := &stripe.Backends{
		API:     stripe.GetBackendWithConfig(stripe.APIBackend, apiCfg),
		Connect: stripe.GetBackendWithConfig(stripe.ConnectBackend, &stripe.BackendConfig{HTTPClient: hc, LeveledLogger: logger}),
		Uploads: stripe.GetBackendWithConfig(stripe.UploadsBackend, &stripe.BackendConfig{HTTPClient: hc, LeveledLogger: logger}),
	}

	return &StripeGateway{
		api:           client.New(cfg.SecretKey, backends),
		webhookSecret: cfg.WebhookSecret,
		cb: breaker.New[*stripe.CheckoutSession]("stripe-api", breaker.Settings{
			IsSuccessful: isClientFault,
		}),
	}
}

// isClientFault keeps request-shape rejections from opening the breaker.
func isClientFault(err error) bool {
	var se *stripe.Error
	return errors.As(err, &se) && se.HTTPStatusCode >= 400 && se.HTTPStatusCode < 500 && se.HTTPStatusCode != 429
}

// CreateSession implements Gateway.
func (g *StripeGateway) CreateSession(ctx context.Context, p SessionParams) (*Session, error) {
	meta := p.Metadata.ToMap()

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(p.SuccessURL),
		CancelURL:     stripe.String(p.CancelURL),
		CustomerEmail: stripe.String(p.CustomerEmail),
		Locale:        stripe.String(p.Locale),
		ExpiresAt:     stripe.Int64(p.ExpiresAt.Unix()),
		PaymentIntentData: &stripe.CheckoutSessionPaymentIntentDataParams{
			Metadata: meta,
		},
	}
	for _, li := range p.LineItems {
		product := &stripe.CheckoutSessionLineItemPriceDataProductDataParams{Name: stripe.String(li.Name)}
		if li.Description != "" {
			product.Description = stripe.String(li.Description)
		}
		params.LineItems = append(params.LineItems, &stripe.CheckoutSessionLineItemParams{
			Quantity: stripe.Int64(li.Quantity),
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:    stripe.String(strings.ToLower(li.Currency)),
				UnitAmount:  stripe.Int64(li.UnitAmount),
				ProductData: product,
			},
		})
	}
	if p.RecoveryEnabled {
		params.AfterExpiration = &stripe.CheckoutSessionAfterExpirationParams{
			Recovery: &stripe.CheckoutSessionAfterExpirationRecoveryParams{Enabled: stripe.Bool(true)},
		}
	}
	for k, v := range meta {
		params.AddMetadata(k, v)
	}
	params.SetIdempotencyKey(p.IdempotencyKey)
	params.Context = ctx

	cs, err := g.cb.Execute(func() (*stripe.CheckoutSession, error) {
		return g.api.CheckoutSessions.New(params)
	})
	if err != nil {
		return nil, providerError(err)
	}
	return convertSession(cs)
}

// GetSession implements Gateway.
func (g *StripeGateway) GetSession(ctx context.Context, id string) (*Session, error) {
	params := &stripe.CheckoutSessionParams{}
	params.Context = ctx

	cs, err := g.cb.Execute(func() (*stripe.CheckoutSession, error) {
		return g.api.CheckoutSessions.Get(id, params)
	})
	if err != nil {
		var se *stripe.Error
		if errors.As(err, &se) && se.HTTPStatusCode == http.StatusNotFound {
			return nil, ErrSessionNotFound
		}
		return nil, providerError(err)
	}
	return convertSession(cs)
}

// SessionByPaymentIntent implements Gateway.
func (g *StripeGateway) SessionByPaymentIntent(ctx context.Context, paymentIntentID string) (*Session, error) {
	cs, err := g.cb.Execute(func() (*stripe.CheckoutSession, error) {
		lp := &stripe.CheckoutSessionListParams{PaymentIntent: stripe.String(paymentIntentID)}
		lp.Context = ctx
		lp.Limit = stripe.Int64(1)
		it := g.api.CheckoutSessions.List(lp)
		if it.Next() {
			return it.CheckoutSession(), nil
		}
		return nil, it.Err()
	})
	if err != nil {
		return nil, providerError(err)
	}
	if cs == nil {
		return nil, ErrSessionNotFound
	}
	return convertSession(cs)
}

// VerifyEvent implements Gateway.
func (g *StripeGateway) VerifyEvent(payload []byte, signatureHeader string) (*Event, error) {
	return VerifyStripeEvent(payload, signatureHeader, g.webhookSecret)
}

// VerifyStripeEvent checks a Stripe-Signature header against secret over
// the raw payload. API version mismatches are tolerated; the handlers read
// only fields stable across versions.
func VerifyStripeEvent(payload []byte, signatureHeader, secret string) (*Event, error) {
	if secret == "" {
		return nil, fmt.Errorf("%w: webhook secret not configured", ErrInvalidSignature)
	}
	if signatureHeader == "" {
		return nil, fmt.Errorf("%w: missing signature header", ErrInvalidSignature)
	}
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, secret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidSignature, err)
	}
	if ev.ID == "" || ev.Type == "" {
		return nil, fmt.Errorf("%w: event envelope missing id or type", ErrInvalidSignature)
	}
	out := &Event{
		ID:       ev.ID,
		Type:     string(ev.Type),
		Created:  time.Unix(ev.Created, 0).UTC(),
		Livemode: ev.Livemode,
		Payload:  payload,
	}
	if ev.Data != nil {
		out.Object = ev.Data.Raw
	}
	return out, nil
}

// SessionFromEvent decodes a checkout session event object.
func SessionFromEvent(ev *Event) (*Session, error) {
	var cs stripe.CheckoutSession
	if err := json.Unmarshal(ev.Object, &cs); err != nil {
		return nil, fmt.Errorf("decode checkout session: %w", err)
	}
	if cs.ID == "" {
		return nil, fmt.Errorf("decode checkout session: missing id")
	}
	return convertSession(&cs)
}

// PaymentIntentIDFromEvent returns the id of a payment_intent.* event object.
func PaymentIntentIDFromEvent(ev *Event) (string, error) {
	var pi stripe.PaymentIntent
	if err := json.Unmarshal(ev.Object, &pi); err != nil {
		return "", fmt.Errorf("decode payment intent: %w", err)
	}
	if pi.ID == "" {
		return "", fmt.Errorf("decode payment intent: missing id")
	}
	return pi.ID, nil
}

// ChargePaymentIntentID returns the payment intent of a charge.* event
// object, or "" for charges created without one.
func ChargePaymentIntentID(ev *Event) (string, error) {
	var ch stripe.Charge
	if err := json.Unmarshal(ev.Object, &ch); err != nil {
		return "", fmt.Errorf("decode charge: %w", err)
	}
	if ch.PaymentIntent == nil {
		return "", nil
	}
	return ch.PaymentIntent.ID, nil
}

func convertSession(cs *stripe.CheckoutSession) (*Session, error) {
	meta, err := ParseMetadata(cs.Metadata)
	if err != nil {
		return nil, fmt.Errorf("session %s: %w", cs.ID, err)
	}
	s := &Session{
		ID:            cs.ID,
		URL:           cs.URL,
		Status:        string(cs.Status),
		PaymentStatus: string(cs.PaymentStatus),
		AmountTotal:   cs.AmountTotal,
		Currency:      strings.ToUpper(string(cs.Currency)),
		CustomerEmail: cs.CustomerEmail,
		Metadata:      meta,
		RawMetadata:   cs.Metadata,
	}
	if d := cs.CustomerDetails; d != nil {
		if d.Email != "" {
			s.CustomerEmail = d.Email
		}
		s.CustomerName = d.Name
		s.CustomerPhone = d.Phone
	}
	if cs.PaymentIntent != nil {
		s.PaymentIntentID = cs.PaymentIntent.ID
	}
	return s, nil
}

// providerError converts stripe-go errors into ProviderError. Breaker
// rejections surface as a 503 with code circuit_open.
func providerError(err error) error {
	if errors.Is(err, breaker.ErrUnavailable) {
		return &ProviderError{Status: http.StatusServiceUnavailable, Code: "circuit_open", Message: "payment provider temporarily unavailable", Err: err}
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		return &ProviderError{
			Status:  se.HTTPStatusCode,
			Type:    string(se.Type),
			Code:    string(se.Code),
			Message: se.Msg,
			Err:     err,
		}
	}
	return &ProviderError{Status: http.StatusBadGateway, Code: "provider_unreachable", Message: err.Error(), Err: err}
}

// stripeLogger routes stripe-go's leveled logging into zerolog.
type stripeLogger struct {
	l zerolog.Logger
}

func (s *stripeLogger) Debugf(format string, v ...interface{}) { s.l.Debug().Msgf(format, v...) }
func (s *stripeLogger) Infof(format string, v ...interface{})  { s.l.Debug().Msgf(format, v...) }
func (s *stripeLogger) Warnf(format string, v ...interface{})  { s.l.Warn().Msgf(format, v...) }
func (s *stripeLogger) Errorf(format string, v ...interface{}) { s.l.Error().Msgf(format, v...) }
