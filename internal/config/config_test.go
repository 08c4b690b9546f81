// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultConfigIsValid(t *testing.T) {
	t.Parallel()

	cfg := defaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
	if !cfg.IsDevelopment() {
		t.Error("default environment should be development")
	}
	if cfg.Checkout.ExpiryMinutes != 60 {
		t.Errorf("Checkout.ExpiryMinutes = %d, want 60", cfg.Checkout.ExpiryMinutes)
	}
	if cfg.Catalog.LookupTimeout != 1500*time.Millisecond {
		t.Errorf("Catalog.LookupTimeout = %v, want 1.5s", cfg.Catalog.LookupTimeout)
	}
	if cfg.Server.DrainDelay != 2*time.Second {
		t.Errorf("Server.DrainDelay = %v, want 2s", cfg.Server.DrainDelay)
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "production with keys",
			mutate: productionReady,
		},
		{
			name: "production without stripe key",
			mutate: func(c *Config) {
				productionReady(c)
				c.Stripe.SecretKey = ""
			},
			wantErr: "STRIPE_SECRET_KEY",
		},
		{
			name: "production with publishable key",
			mutate: func(c *Config) {
				productionReady(c)
				c.Stripe.SecretKey = "pk_live_123"
			},
			wantErr: "secret (sk_)",
		},
		{
			name: "production without webhook secret",
			mutate: func(c *Config) {
				productionReady(c)
				c.Stripe.WebhookSecret = ""
			},
			wantErr: "STRIPE_WEBHOOK_SECRET",
		},
		{
			name: "production over http",
			mutate: func(c *Config) {
				productionReady(c)
				c.Checkout.BaseURL = "http://tours.example"
			},
			wantErr: "https",
		},
		{
			name:    "relative base url",
			mutate:  func(c *Config) { c.Checkout.BaseURL = "/tours" },
			wantErr: "checkout.base_url",
		},
		{
			name:    "zero rate across currencies",
			mutate:  func(c *Config) { c.Currency.Rate = 0 },
			wantErr: "currency.rate",
		},
		{
			name: "zero rate same currency",
			mutate: func(c *Config) {
				c.Currency.Settlement = "COP"
				c.Currency.Rate = 0
			},
		},
		{
			name:    "unknown driver",
			mutate:  func(c *Config) { c.Database.Driver = "mysql" },
			wantErr: "database.driver",
		},
		{
			name:    "postgres without dsn",
			mutate:  func(c *Config) { c.Database.Driver = "postgres" },
			wantErr: "DATABASE_URL",
		},
		{
			name: "sql ledger on memory store",
			mutate: func(c *Config) {
				c.Database.Driver = "memory"
			},
			wantErr: "ledger.backend sql",
		},
		{
			name:    "database catalog on duckdb",
			mutate:  func(c *Config) { c.Catalog.Source = "database" },
			wantErr: "catalog.source",
		},
		{
			name:    "resend without key",
			mutate:  func(c *Config) { c.Email.Provider = "resend" },
			wantErr: "RESEND_API_KEY",
		},
		{
			name: "admin with short secret",
			mutate: func(c *Config) {
				c.Admin.Username = "ops"
				c.Admin.PasswordHash = "$2a$10$abcdefghijklmnopqrstuv"
				c.Admin.JWTSecret = "short"
			},
			wantErr: "JWT_SECRET",
		},
		{
			name:    "bad timezone",
			mutate:  func(c *Config) { c.Checkout.Timezone = "Mars/Olympus" },
			wantErr: "checkout.timezone",
		},
		{
			name:    "unknown environment",
			mutate:  func(c *Config) { c.Server.Environment = "staging-ish" },
			wantErr: "server.environment",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := defaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func productionReady(c *Config) {
	c.Server.Environment = "production"
	c.Stripe.SecretKey = "sk_live_abc"
	c.Stripe.WebhookSecret = "whsec_abc"
	c.Checkout.BaseURL = "https://tours.example"
}

func TestLoadWithKoanfLayers(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
server:
  port: 9090
checkout:
  base_url: https://yaml.example
  expiry_minutes: 45
currency:
  rate: 4200
  rates:
    COP_USD: 4000
security:
  cors_origins:
    - https://a.example
`
	if err := os.WriteFile(path, []byte(yamlDoc), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SITE_URL", "https://env.example")
	t.Setenv("STRIPE_WEBHOOK_SECRET", "whsec_env")
	t.Setenv("UNRELATED_VARIABLE", "ignored")

	cfg, err := LoadWithKoanf(path)
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("Server.Port = %d, want 9090 (yaml)", cfg.Server.Port)
	}
	if cfg.Checkout.BaseURL != "https://env.example" {
		t.Errorf("Checkout.BaseURL = %q, want env override", cfg.Checkout.BaseURL)
	}
	if cfg.Checkout.ExpiryMinutes != 45 {
		t.Errorf("Checkout.ExpiryMinutes = %d, want 45", cfg.Checkout.ExpiryMinutes)
	}
	if cfg.Currency.Rate != 4200 {
		t.Errorf("Currency.Rate = %v, want 4200", cfg.Currency.Rate)
	}
	if cfg.Currency.Rates["COP_USD"] != 4000 {
		t.Errorf("Currency.Rates[COP_USD] = %v, want 4000", cfg.Currency.Rates["COP_USD"])
	}
	if cfg.Stripe.WebhookSecret != "whsec_env" {
		t.Errorf("Stripe.WebhookSecret = %q", cfg.Stripe.WebhookSecret)
	}
	if cfg.Database.Driver != "duckdb" {
		t.Errorf("Database.Driver = %q, want default duckdb", cfg.Database.Driver)
	}
}

func TestLoadWithKoanfCommaSeparatedOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example,")

	cfg, err := LoadWithKoanf("")
	if err != nil {
		t.Fatalf("LoadWithKoanf() error = %v", err)
	}
	want := []string{"https://a.example", "https://b.example"}
	if len(cfg.Security.CORSOrigins) != len(want) {
		t.Fatalf("CORSOrigins = %v, want %v", cfg.Security.CORSOrigins, want)
	}
	for i := range want {
		if cfg.Security.CORSOrigins[i] != want[i] {
			t.Errorf("CORSOrigins[%d] = %q, want %q", i, cfg.Security.CORSOrigins[i], want[i])
		}
	}
}

func TestLoadWithKoanfRejectsInvalid(t *testing.T) {
	t.Setenv("ENVIRONMENT", "production")

	if _, err := LoadWithKoanf(""); err == nil {
		t.Fatal("expected validation error for production without Stripe keys")
	}
}

func TestEnvTransformFunc(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"STRIPE_SECRET_KEY": "stripe.secret_key",
		"DATABASE_URL":      "database.dsn",
		"exchange_rate":     "currency.rate",
		"PATH":              "",
	}
	for in, want := range tests {
		if got := envTransformFunc(in); got != want {
			t.Errorf("envTransformFunc(%q) = %q, want %q", in, got, want)
		}
	}
}
