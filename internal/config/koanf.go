// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths are searched in order when CONFIG_PATH is unset.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/tourbook/config.yaml",
}

// ConfigPathEnvVar names the variable that points at a YAML config file.
const ConfigPathEnvVar = "CONFIG_PATH"

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			Host:            "0.0.0.0",
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			IdleTimeout:     60 * time.Second,
			ShutdownTimeout: 10 * time.Second,
			DrainDelay:      2 * time.Second,
			Environment:     "development",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Stripe: StripeConfig{
			Timeout: 20 * time.Second,
		},
		Checkout: CheckoutConfig{
			BaseURL:       "http://localhost:3000",
			ExpiryMinutes: 60,
			DefaultLocale: "es",
			Timezone:      "America/Bogota",
		},
		Currency: CurrencyConfig{
			Reference:  "COP",
			Settlement: "EUR",
			Rate:       4500,
		},
		Catalog: CatalogConfig{
			Source:        "static",
			LookupTimeout: 1500 * time.Millisecond,
		},
		Database: DatabaseConfig{
			Driver:       "duckdb",
			Path:         "/data/tourbook.duckdb",
			MaxOpenConns: 10,
		},
		Ledger: LedgerConfig{
			Backend:    "sql",
			BadgerPath: "/data/ledger",
			EventTTL:   7 * 24 * time.Hour,
		},
		Email: EmailConfig{
			Provider:      "log",
			APIBase:       "https://api.resend.com",
			From:          "Tourbook <bookings@tourbook.example>",
			FallbackFrom:  "Tourbook <onboarding@resend.dev>",
			Timeout:       15 * time.Second,
			RatePerSecond: 2,
		},
		Invoice: InvoiceConfig{
			BrandName:  "Tourbook",
			BrandColor: "#0D5BD7",
			Disclaimer: "This document is a payment receipt, not a tax invoice. " +
				"A fiscal invoice is issued on request.",
		},
		EventBus: EventBusConfig{
			Backend:  "gochannel",
			NATSURL:  "nats://127.0.0.1:4222",
			StoreDir: "/data/nats",
			Stream:   "BOOKINGS",
		},
		Admin: AdminConfig{
			TokenTTL: 8 * time.Hour,
		},
		Security: SecurityConfig{
			CORSOrigins:     []string{"*"},
			RateLimitReqs:   30,
			RateLimitWindow: time.Minute,
		},
	}
}

// Load reads .env (if present), then layers defaults, the YAML file and the
// environment, and validates the result.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to read .env: %w", err)
	}
	return LoadWithKoanf(findConfigFile())
}

// LoadWithKoanf builds the configuration from defaults, the YAML file at
// configPath (skipped when empty) and the environment.
func LoadWithKoanf(configPath string) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return cfg, nil
}

func findConfigFile() string {
	if p := os.Getenv(ConfigPathEnvVar); p != "" {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	for _, p := range DefaultConfigPaths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}
	return ""
}

var sliceConfigPaths = []string{
	"security.cors_origins",
}

// processSliceFields splits comma-separated env values for slice fields.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		s, ok := k.Get(path).(string)
		if !ok || s == "" {
			continue
		}
		var parts []string
		for _, p := range strings.Split(s, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(path, parts); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

var envMappings = map[string]string{
	"http_port":        "server.port",
	"http_host":        "server.host",
	"read_timeout":     "server.read_timeout",
	"write_timeout":    "server.write_timeout",
	"shutdown_timeout": "server.shutdown_timeout",
	"drain_delay":      "server.drain_delay",
	"environment":      "server.environment",

	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",

	"stripe_secret_key":     "stripe.secret_key",
	"stripe_webhook_secret": "stripe.webhook_secret",
	"stripe_api_base":       "stripe.api_base",
	"stripe_timeout":        "stripe.timeout",

	"site_url":                "checkout.base_url",
	"checkout_expiry_minutes": "checkout.expiry_minutes",
	"checkout_default_locale": "checkout.default_locale",
	"checkout_timezone":       "checkout.timezone",
	"catalog_currency":        "currency.reference",
	"stripe_currency":         "currency.settlement",
	"exchange_rate":           "currency.rate",
	"catalog_source":          "catalog.source",
	"catalog_file":            "catalog.file",
	"catalog_lookup_timeout":  "catalog.lookup_timeout",
	"database_driver":         "database.driver",
	"duckdb_path":             "database.path",
	"database_url":            "database.dsn",
	"database_max_open_conns": "database.max_open_conns",
	"ledger_backend":          "ledger.backend",
	"ledger_badger_path":      "ledger.badger_path",
	"ledger_event_ttl":        "ledger.event_ttl",
	"email_provider":          "email.provider",
	"resend_api_key":          "email.api_key",
	"resend_api_base":         "email.api_base",
	"email_from":              "email.from",
	"email_fallback_from":     "email.fallback_from",
	"email_reply_to":          "email.reply_to",
	"email_bcc":               "email.bcc",
	"email_rate_per_second":   "email.rate_per_second",
	"invoice_brand_name":      "invoice.brand_name",
	"invoice_brand_color":     "invoice.brand_color",
	"invoice_logo_path":       "invoice.logo_path",
	"invoice_disclaimer":      "invoice.disclaimer",
	"invoice_tax_id":          "invoice.tax_id",
	"eventbus_backend":        "eventbus.backend",
	"nats_url":                "eventbus.nats_url",
	"nats_embedded":           "eventbus.embedded_server",
	"nats_store_dir":          "eventbus.store_dir",
	"nats_stream":             "eventbus.stream",
	"admin_username":          "admin.username",
	"admin_password_hash":     "admin.password_hash",
	"jwt_secret":              "admin.jwt_secret",
	"admin_token_ttl":         "admin.token_ttl",
	"cors_origins":            "security.cors_origins",
	"rate_limit_requests":     "security.rate_limit_reqs",
	"rate_limit_window":       "security.rate_limit_window",
	"disable_rate_limit":      "security.rate_limit_disabled",
}

// envTransformFunc maps environment variable names to config paths.
// Unmapped variables return "" so koanf skips them.
//
//	STRIPE_SECRET_KEY -> stripe.secret_key
//	SITE_URL          -> checkout.base_url
//	DATABASE_URL      -> database.dsn
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
