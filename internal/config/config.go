// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package config loads Tourbook configuration from defaults, an optional YAML
// file and environment variables, in that order of precedence (lowest first).
package config

import "time"

// Config is the root configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Logging  LoggingConfig  `koanf:"logging"`
	Stripe   StripeConfig   `koanf:"stripe"`
	Checkout CheckoutConfig `koanf:"checkout"`
	Currency CurrencyConfig `koanf:"currency"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Database DatabaseConfig `koanf:"database"`
	Ledger   LedgerConfig   `koanf:"ledger"`
	Email    EmailConfig    `koanf:"email"`
	Invoice  InvoiceConfig  `koanf:"invoice"`
	EventBus EventBusConfig `koanf:"eventbus"`
	Admin    AdminConfig    `koanf:"admin"`
	Security SecurityConfig `koanf:"security"`
}

// ServerConfig holds HTTP listener settings.
type ServerConfig struct {
	Port            int           `koanf:"port"`
	Host            string        `koanf:"host"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	IdleTimeout     time.Duration `koanf:"idle_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
	// DrainDelay is how long /readyz reports draining before the listener
	// stops, so load balancers route away first.
	DrainDelay time.Duration `koanf:"drain_delay"`

	// Environment is development or production. Production turns webhook
	// processing failures into 5xx so the provider retries delivery.
	Environment string `koanf:"environment"`
}

// LoggingConfig mirrors logging.Config.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	SecretKey     string `koanf:"secret_key"`
	WebhookSecret string `koanf:"webhook_secret"`

	// APIBase overrides the API endpoint (stripe-mock in CI).
	APIBase string `koanf:"api_base"`

	// Timeout bounds a single provider call.
	Timeout time.Duration `koanf:"timeout"`
}

// CheckoutConfig controls how payment sessions are built.
type CheckoutConfig struct {
	// BaseURL is the public site origin used for success/cancel/manage links.
	BaseURL string `koanf:"base_url"`

	// ExpiryMinutes is clamped to the provider window of 30..1440.
	ExpiryMinutes int `koanf:"expiry_minutes"`

	DefaultLocale string `koanf:"default_locale"`

	// Timezone decides what "today" means for date validation.
	Timezone string `koanf:"timezone"`
}

// CurrencyConfig holds the static exchange rates used for conversion.
type CurrencyConfig struct {
	// Reference is the catalog price currency.
	Reference string `koanf:"reference"`

	// Settlement is the single currency the provider account charges in.
	Settlement string `koanf:"settlement"`

	// Rate is how many Reference units buy one Settlement unit.
	Rate float64 `koanf:"rate"`

	// Rates holds additional pairs keyed FROM_TO, same orientation as Rate.
	Rates map[string]float64 `koanf:"rates"`
}

// CatalogConfig selects the tour catalog source.
type CatalogConfig struct {
	// Source is static or database.
	Source string `koanf:"source"`

	// File optionally replaces the built-in static dataset.
	File string `koanf:"file"`

	// LookupTimeout bounds primary source reads before falling back.
	LookupTimeout time.Duration `koanf:"lookup_timeout"`
}

// DatabaseConfig selects the booking store backend.
type DatabaseConfig struct {
	// Driver is duckdb, postgres or memory.
	Driver string `koanf:"driver"`

	// Path is the DuckDB file; ":memory:" keeps it in process.
	Path string `koanf:"path"`

	// DSN is the Postgres connection string.
	DSN string `koanf:"dsn"`

	MaxOpenConns int `koanf:"max_open_conns"`
}

// LedgerConfig selects where seen-event ids and invoice markers live.
type LedgerConfig struct {
	// Backend is sql (same database as bookings), badger or memory.
	Backend string `koanf:"backend"`

	BadgerPath string `koanf:"badger_path"`

	// EventTTL expires seen-event ids in the badger backend. The provider
	// stops retrying after three days, so anything longer is enough.
	EventTTL time.Duration `koanf:"event_ttl"`
}

// EmailConfig configures confirmation email delivery.
type EmailConfig struct {
	// Provider is resend or log.
	Provider string `koanf:"provider"`

	APIKey       string        `koanf:"api_key"`
	APIBase      string        `koanf:"api_base"`
	From         string        `koanf:"from"`
	FallbackFrom string        `koanf:"fallback_from"`
	ReplyTo      string        `koanf:"reply_to"`
	BCC          string        `koanf:"bcc"`
	Timeout      time.Duration `koanf:"timeout"`

	// RatePerSecond caps outbound sends; Resend allows 2/s on most plans.
	RatePerSecond float64 `koanf:"rate_per_second"`
}

// InvoiceConfig controls PDF invoice branding.
type InvoiceConfig struct {
	BrandName  string `koanf:"brand_name"`
	BrandColor string `koanf:"brand_color"`
	LogoPath   string `koanf:"logo_path"`
	Disclaimer string `koanf:"disclaimer"`
	TaxID      string `koanf:"tax_id"`
}

// EventBusConfig selects the booking event transport.
type EventBusConfig struct {
	// Backend is gochannel or nats. nats requires the nats build tag.
	Backend string `koanf:"backend"`

	NATSURL        string `koanf:"nats_url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	Stream         string `koanf:"stream"`
}

// AdminConfig holds credentials for the back-office booking API.
type AdminConfig struct {
	Username     string        `koanf:"username"`
	PasswordHash string        `koanf:"password_hash"`
	JWTSecret    string        `koanf:"jwt_secret"`
	TokenTTL     time.Duration `koanf:"token_ttl"`
}

// Enabled reports whether the admin API should be mounted.
func (a AdminConfig) Enabled() bool {
	return a.Username != "" && a.PasswordHash != ""
}

// SecurityConfig holds CORS and rate limit settings.
type SecurityConfig struct {
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}
