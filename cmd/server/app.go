// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/tomtom215/tourbook/internal/api"
	"github.com/tomtom215/tourbook/internal/audit"
	"github.com/tomtom215/tourbook/internal/auth"
	"github.com/tomtom215/tourbook/internal/booking"
	"github.com/tomtom215/tourbook/internal/catalog"
	"github.com/tomtom215/tourbook/internal/checkout"
	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/currency"
	"github.com/tomtom215/tourbook/internal/database"
	"github.com/tomtom215/tourbook/internal/eventbus"
	"github.com/tomtom215/tourbook/internal/ledger"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/notify"
	"github.com/tomtom215/tourbook/internal/payments"
	"github.com/tomtom215/tourbook/internal/webhook"
)

// app holds everything main wires together. Closers run in reverse order.
type app struct {
	router  http.Handler
	api     *api.Handler
	bus     *eventbus.Bus
	ledger  ledger.Ledger
	closers []io.Closer
}

// options lets tests swap the payment gateway and mailer.
type options struct {
	gateway payments.Gateway
	mailer  notify.Mailer
}

// buildApp constructs storage, the payment pipeline and the HTTP router.
// On error everything opened so far is closed.
func buildApp(ctx context.Context, cfg *config.Config, opts options) (_ *app, err error) {
	a := &app{}
	defer func() {
		if err != nil {
			_ = a.Close()
		}
	}()

	ready := map[string]api.Pinger{}

	// Storage
	var db *database.DB
	if cfg.Database.Driver != "memory" {
		db, err = database.Open(ctx, &cfg.Database)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.closers = append(a.closers, db)
		ready["database"] = db
		logging.Info().Str("driver", db.Driver()).Msg("Database opened")
	}

	ledgerOpts := ledger.Options{
		Backend:    cfg.Ledger.Backend,
		BadgerPath: cfg.Ledger.BadgerPath,
		EventTTL:   cfg.Ledger.EventTTL,
	}
	var bookings booking.Store
	var auditStore audit.Store
	if db != nil {
		ledgerOpts.DB = db.Conn()
		bookings = booking.NewSQLStore(db.Conn())
		auditStore = audit.NewSQLStore(db.Conn())
	} else {
		bookings = booking.NewMemoryStore()
		auditStore = audit.NewMemoryStore(10000)
	}
	if ledgerOpts.Backend == ledger.BackendSQL && db == nil {
		ledgerOpts.Backend = ledger.BackendMemory
	}
	a.ledger, err = ledger.Open(ledgerOpts)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, a.ledger)

	auditLog := audit.NewLogger(auditStore, audit.DefaultConfig())
	a.closers = append(a.closers, auditLog)

	// Catalog and pricing
	tours := catalog.DefaultTours()
	if cfg.Catalog.File != "" {
		tours, err = catalog.LoadFile(cfg.Catalog.File)
		if err != nil {
			return nil, err
		}
	}
	static, err := catalog.NewStaticSource(tours)
	if err != nil {
		return nil, fmt.Errorf("static catalog: %w", err)
	}
	var primary catalog.Source
	if cfg.Catalog.Source == "database" && db != nil {
		primary = catalog.NewCachedSource(catalog.NewSQLSource(db.Conn()), 500, 5*time.Minute)
	}
	resolver := catalog.NewResolver(primary, static, cfg.Catalog.LookupTimeout)
	converter := currency.NewConverter(cfg.Currency.Reference, cfg.Currency.Settlement, cfg.Currency.Rate, cfg.Currency.Rates)

	gateway := opts.gateway
	if gateway == nil {
		gateway = payments.NewStripeGateway(payments.StripeConfig{
			SecretKey:     cfg.Stripe.SecretKey,
			WebhookSecret: cfg.Stripe.WebhookSecret,
			APIBase:       cfg.Stripe.APIBase,
			Timeout:       cfg.Stripe.Timeout,
		})
	}
	builder := checkout.NewBuilder(checkout.BuilderConfig{
		BaseURL:            cfg.Checkout.BaseURL,
		ExpiryMinutes:      cfg.Checkout.ExpiryMinutes,
		DefaultLocale:      cfg.Checkout.DefaultLocale,
		ReferenceCurrency:  cfg.Currency.Reference,
		SettlementCurrency: cfg.Currency.Settlement,
	})
	checkoutSvc := checkout.NewService(resolver, converter, gateway, builder)

	// Notifications
	mailer := opts.mailer
	if mailer == nil {
		mailer, err = newMailer(&cfg.Email)
		if err != nil {
			return nil, err
		}
	}
	dispatcher, err := notify.NewDispatcher(a.ledger, mailer, notify.NewPDFRenderer(cfg.Invoice), auditLog, notify.DispatcherConfig{
		BrandName: cfg.Invoice.BrandName,
		ManageURL: builder.ManageURL,
		Timeout:   cfg.Email.Timeout + 15*time.Second,
	})
	if err != nil {
		return nil, fmt.Errorf("notification dispatcher: %w", err)
	}

	// Event bus
	a.bus, err = eventbus.New(cfg.EventBus)
	if err != nil {
		return nil, fmt.Errorf("event bus: %w", err)
	}
	a.closers = append(a.closers, a.bus)
	a.bus.Subscribe("status-metrics", eventbus.StatusMetrics)

	processor, err := webhook.NewProcessor(webhook.Deps{
		Gateway:     gateway,
		Bookings:    bookings,
		Events:      a.ledger,
		Tours:       resolver,
		Notifier:    dispatcher,
		Publisher:   a.bus,
		Audit:       auditLog,
		TourTimeout: cfg.Catalog.LookupTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("webhook processor: %w", err)
	}

	// HTTP
	var admin *api.AdminAuth
	if cfg.Admin.Enabled() {
		admin, err = newAdminAuth(&cfg.Admin)
		if err != nil {
			return nil, err
		}
	} else {
		logging.Warn().Msg("Admin API disabled: ADMIN_USERNAME or ADMIN_PASSWORD_HASH not set")
	}

	handler, err := api.NewHandler(api.Deps{
		Checkout:   checkoutSvc,
		Webhooks:   processor,
		Bookings:   bookings,
		Resender:   dispatcher,
		Audit:      auditLog,
		Admin:      admin,
		Ready:      ready,
		Production: cfg.IsProduction(),
	})
	if err != nil {
		return nil, err
	}
	a.api = handler
	mw := api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(cfg.Security))
	a.router = api.NewRouter(handler, mw).SetupChi()
	return a, nil
}

func newMailer(cfg *config.EmailConfig) (notify.Mailer, error) {
	if cfg.Provider != "resend" {
		logging.Warn().Msg("Email provider is log: confirmations are logged, not sent")
		return notify.NewLogMailer(), nil
	}
	m, err := notify.NewResendClient(notify.ResendConfig{
		APIKey:        cfg.APIKey,
		APIBase:       cfg.APIBase,
		From:          cfg.From,
		FallbackFrom:  cfg.FallbackFrom,
		ReplyTo:       cfg.ReplyTo,
		BCC:           cfg.BCC,
		Timeout:       cfg.Timeout,
		RatePerSecond: cfg.RatePerSecond,
	})
	if err != nil {
		return nil, fmt.Errorf("resend client: %w", err)
	}
	return m, nil
}

func newAdminAuth(cfg *config.AdminConfig) (*api.AdminAuth, error) {
	tokens, err := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return nil, fmt.Errorf("admin tokens: %w", err)
	}
	creds, err := auth.NewCredentials(cfg.Username, cfg.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("admin credentials: %w", err)
	}
	return &api.AdminAuth{
		Tokens:      tokens,
		Credentials: creds,
		Lockout:     auth.NewLockout(auth.DefaultLockoutConfig()),
	}, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
