// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateStripe(); err != nil {
		return err
	}
	if err := c.validateCheckout(); err != nil {
		return err
	}
	if err := c.validateCurrency(); err != nil {
		return err
	}
	if err := c.validateStorage(); err != nil {
		return err
	}
	if err := c.validateEmail(); err != nil {
		return err
	}
	if err := c.validateEventBus(); err != nil {
		return err
	}
	return c.validateAdmin()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", c.Server.Port)
	}
	switch strings.ToLower(c.Server.Environment) {
	case "", "development", "dev", "production", "prod", "test":
	default:
		return fmt.Errorf("server.environment %q is not one of development, production, test", c.Server.Environment)
	}
	return nil
}

func (c *Config) validateStripe() error {
	if !c.IsProduction() {
		return nil
	}
	if c.Stripe.SecretKey == "" {
		return fmt.Errorf("STRIPE_SECRET_KEY is required in production")
	}
	if !strings.HasPrefix(c.Stripe.SecretKey, "sk_") && !strings.HasPrefix(c.Stripe.SecretKey, "rk_") {
		return fmt.Errorf("STRIPE_SECRET_KEY must be a secret (sk_) or restricted (rk_) key")
	}
	if c.Stripe.WebhookSecret == "" {
		return fmt.Errorf("STRIPE_WEBHOOK_SECRET is required in production")
	}
	return nil
}

func (c *Config) validateCheckout() error {
	u, err := url.Parse(c.Checkout.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("checkout.base_url must be an absolute http(s) URL, got %q", c.Checkout.BaseURL)
	}
	if c.IsProduction() && u.Scheme != "https" {
		return fmt.Errorf("checkout.base_url must use https in production")
	}
	if c.Checkout.ExpiryMinutes <= 0 {
		return fmt.Errorf("checkout.expiry_minutes must be positive")
	}
	if _, err := time.LoadLocation(c.Checkout.Timezone); err != nil {
		return fmt.Errorf("checkout.timezone %q: %w", c.Checkout.Timezone, err)
	}
	return nil
}

func (c *Config) validateCurrency() error {
	if len(c.Currency.Reference) != 3 || len(c.Currency.Settlement) != 3 {
		return fmt.Errorf("currency.reference and currency.settlement must be ISO 4217 codes")
	}
	if !strings.EqualFold(c.Currency.Reference, c.Currency.Settlement) && c.Currency.Rate <= 0 {
		return fmt.Errorf("currency.rate must be positive when reference and settlement currencies differ")
	}
	for pair, rate := range c.Currency.Rates {
		if rate <= 0 {
			return fmt.Errorf("currency.rates.%s must be positive", pair)
		}
	}
	return nil
}

func (c *Config) validateStorage() error {
	switch c.Database.Driver {
	case "duckdb":
		if c.Database.Path == "" {
			return fmt.Errorf("database.path is required for duckdb")
		}
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("DATABASE_URL is required for postgres")
		}
	case "memory":
		if c.IsProduction() {
			return fmt.Errorf("database.driver memory is not allowed in production")
		}
	default:
		return fmt.Errorf("database.driver %q is not one of duckdb, postgres, memory", c.Database.Driver)
	}

	switch c.Ledger.Backend {
	case "sql":
		if c.Database.Driver == "memory" {
			return fmt.Errorf("ledger.backend sql requires a SQL database driver")
		}
	case "badger":
		if c.Ledger.BadgerPath == "" {
			return fmt.Errorf("ledger.badger_path is required for the badger ledger")
		}
	case "memory":
	default:
		return fmt.Errorf("ledger.backend %q is not one of sql, badger, memory", c.Ledger.Backend)
	}

	switch c.Catalog.Source {
	case "static":
	case "database":
		if c.Database.Driver != "postgres" {
			return fmt.Errorf("catalog.source database requires database.driver postgres")
		}
	default:
		return fmt.Errorf("catalog.source %q is not one of static, database", c.Catalog.Source)
	}
	return nil
}

func (c *Config) validateEmail() error {
	switch c.Email.Provider {
	case "log":
		return nil
	case "resend":
		if c.Email.APIKey == "" {
			return fmt.Errorf("RESEND_API_KEY is required when email.provider is resend")
		}
		if c.Email.From == "" {
			return fmt.Errorf("email.from is required when email.provider is resend")
		}
		return nil
	default:
		return fmt.Errorf("email.provider %q is not one of resend, log", c.Email.Provider)
	}
}

func (c *Config) validateEventBus() error {
	switch c.EventBus.Backend {
	case "gochannel":
		return nil
	case "nats":
		if c.EventBus.NATSURL == "" && !c.EventBus.EmbeddedServer {
			return fmt.Errorf("eventbus.nats_url is required unless the embedded server is enabled")
		}
		return nil
	default:
		return fmt.Errorf("eventbus.backend %q is not one of gochannel, nats", c.EventBus.Backend)
	}
}

func (c *Config) validateAdmin() error {
	if !c.Admin.Enabled() {
		return nil
	}
	if len(c.Admin.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters when the admin API is enabled")
	}
	if !strings.HasPrefix(c.Admin.PasswordHash, "$2") {
		return fmt.Errorf("ADMIN_PASSWORD_HASH must be a bcrypt hash")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode.
func (c *Config) IsProduction() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "production" || env == "prod"
}

// IsDevelopment reports whether the service runs in development mode.
func (c *Config) IsDevelopment() bool {
	env := strings.ToLower(c.Server.Environment)
	return env == "" || env == "development" || env == "dev"
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
