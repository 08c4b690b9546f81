// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/tomtom215/tourbook/docs" // OpenAPI document for /swagger/
	"github.com/tomtom215/tourbook/internal/config"
	"github.com/tomtom215/tourbook/internal/ledger"
	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/supervisor"
	"github.com/tomtom215/tourbook/internal/supervisor/services"
	"github.com/tomtom215/tourbook/internal/validation"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Logger is not configured yet; the default one still writes JSON to stderr.
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Caller: cfg.Logging.Caller,
	})

	logging.Info().
		Str("environment", cfg.Server.Environment).
		Str("database", cfg.Database.Driver).
		Str("ledger", cfg.Ledger.Backend).
		Str("eventbus", cfg.EventBus.Backend).
		Msg("Starting Tourbook")

	loc, err := time.LoadLocation(cfg.Checkout.Timezone)
	if err != nil {
		logging.Fatal().Err(err).Str("timezone", cfg.Checkout.Timezone).Msg("Invalid checkout timezone")
	}
	validation.SetClock(loc, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a, err := buildApp(ctx, cfg, options{})
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer func() {
		if err := a.Close(); err != nil {
			logging.Error().Err(err).Msg("Error releasing resources")
		}
	}()

	// Each layer gets the whole drain plus graceful shutdown of the HTTP server.
	treeCfg := supervisor.DefaultTreeConfig()
	treeCfg.ShutdownTimeout = cfg.Server.DrainDelay + cfg.Server.ShutdownTimeout + time.Second
	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), treeCfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to create supervisor tree")
	}

	if gc, ok := a.ledger.(*ledger.Badger); ok {
		tree.AddDataService(services.NewLedgerGCService(gc, 0, 0))
		logging.Info().Msg("Ledger GC service added to supervisor tree")
	}
	tree.AddMessagingService(services.NewEventBusService(a.bus))

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      a.router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}
	tree.AddAPIService(services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout).
		WithDrain(a.api.BeginDrain, cfg.Server.DrainDelay))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		sig := <-sigChan
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", server.Addr).Msg("Starting supervisor tree")
	errCh := tree.ServeBackground(ctx)

	stopped := false
	select {
	case <-ctx.Done():
		logging.Info().Msg("Shutting down...")
	case err := <-errCh:
		stopped = true
		if err != nil {
			logging.Error().Err(err).Msg("Supervisor tree error")
		}
		cancel()
	}

	// Drain errCh so the supervisor goroutine can exit.
	if !stopped {
		select {
		case err := <-errCh:
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error().Err(err).Msg("Supervisor tree stopped with error")
			}
		case <-time.After(3*treeCfg.ShutdownTimeout + 5*time.Second):
			logging.Warn().Msg("Timed out waiting for supervisor tree to stop")
		}
	}

	if report, err := tree.UnstoppedServiceReport(); err == nil && len(report) > 0 {
		logging.Warn().Int("count", len(report)).Msg("Services did not stop cleanly")
		for _, svc := range report {
			logging.Warn().Str("service", svc.Name).Msg("Unstopped service")
		}
	}

	logging.Info().Msg("Application stopped gracefully")
}
