// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	t.Parallel()

	m, err := NewJWTManager(testSecret, 30*time.Minute)
	if err != nil {
		t.Fatalf("NewJWTManager() error = %v", err)
	}
	token, expires, err := m.GenerateToken("operator")
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}
	if d := time.Until(expires); d < 29*time.Minute || d > 31*time.Minute {
		t.Errorf("expiry in %v, want ~30m", d)
	}
	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken() error = %v", err)
	}
	if claims.Username != "operator" || claims.Role != RoleAdmin || claims.ID == "" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestJWTRejects(t *testing.T) {
	t.Parallel()

	m, _ := NewJWTManager(testSecret, time.Minute)
	other, _ := NewJWTManager(strings.Repeat("x", 40), time.Minute)
	foreign, _, _ := other.GenerateToken("operator")

	expired, _ := NewJWTManager(testSecret, time.Minute)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	stale, _, _ := expired.GenerateToken("operator")

	none, _ := jwt.NewWithClaims(jwt.SigningMethodNone, &Claims{Username: "operator", Role: RoleAdmin}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)

	viewer, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{
		Username: "operator",
		Role:     "viewer",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}).SignedString([]byte(testSecret))

	tests := map[string]string{
		"garbage":     "not.a.token",
		"wrong key":   foreign,
		"expired":     stale,
		"alg none":    none,
		"wrong role":  viewer,
		"empty token": "",
	}
	for name, token := range tests {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := m.ValidateToken(token); err == nil {
				t.Error("ValidateToken() accepted the token")
			}
		})
	}
}

func TestNewJWTManagerShortSecret(t *testing.T) {
	t.Parallel()
	if _, err := NewJWTManager("short", time.Hour); err == nil {
		t.Error("short secret accepted")
	}
}

func TestCredentials(t *testing.T) {
	t.Parallel()

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	c, err := NewCredentials("operator", string(hash))
	if err != nil {
		t.Fatalf("NewCredentials() error = %v", err)
	}

	if err := c.Verify("operator", "correct horse"); err != nil {
		t.Errorf("Verify(valid) error = %v", err)
	}
	for _, tc := range [][2]string{{"operator", "wrong"}, {"intruder", "correct horse"}, {"", ""}} {
		if err := c.Verify(tc[0], tc[1]); !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("Verify(%q, %q) = %v, want ErrInvalidCredentials", tc[0], tc[1], err)
		}
	}

	if _, err := NewCredentials("operator", "plaintext"); err == nil {
		t.Error("non-bcrypt hash accepted")
	}
	if _, err := NewCredentials("", string(hash)); err == nil {
		t.Error("empty username accepted")
	}
}

func TestHashPassword(t *testing.T) {
	t.Parallel()
	if _, err := HashPassword("short"); err == nil {
		t.Error("short password accepted")
	}
}

func TestLockout(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	l := NewLockout(LockoutConfig{MaxAttempts: 3, LockoutDuration: time.Minute, MaxLockoutDuration: 3 * time.Minute})
	l.now = func() time.Time { return now }

	for range 2 {
		l.Fail("operator", "10.0.0.1")
	}
	if locked, _ := l.Locked("operator"); locked {
		t.Fatal("locked before reaching MaxAttempts")
	}
	l.Fail("operator", "10.0.0.1")
	locked, until := l.Locked("10.0.0.9", "operator")
	if !locked || !until.Equal(now.Add(time.Minute)) {
		t.Fatalf("Locked() = %v, %v; want locked for 1m", locked, until)
	}

	now = now.Add(2 * time.Minute)
	if locked, _ := l.Locked("operator"); locked {
		t.Fatal("still locked after the lockout expired")
	}

	// Second lockout doubles.
	for range 3 {
		l.Fail("operator")
	}
	if _, until := l.Locked("operator"); !until.Equal(now.Add(2 * time.Minute)) {
		t.Errorf("second lockout until %v, want %v", until, now.Add(2*time.Minute))
	}

	l.Succeed("operator")
	if locked, _ := l.Locked("operator"); locked {
		t.Error("Succeed() did not clear the lockout")
	}
}

func TestRequireAdmin(t *testing.T) {
	t.Parallel()

	m, _ := NewJWTManager(testSecret, time.Minute)
	token, _, _ := m.GenerateToken("operator")

	var seen *Claims
	h := RequireAdmin(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = ClaimsFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"valid", "Bearer " + token, http.StatusNoContent},
		{"missing", "", http.StatusUnauthorized},
		{"basic", "Basic b3BlcmF0b3I6eA==", http.StatusUnauthorized},
		{"tampered", "Bearer " + token + "x", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/admin/bookings", nil)
		if tt.header != "" {
			req.Header.Set("Authorization", tt.header)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != tt.want {
			t.Errorf("%s: status = %d, want %d", tt.name, rec.Code, tt.want)
		}
		if tt.want == http.StatusUnauthorized && !strings.Contains(rec.Body.String(), "UNAUTHORIZED") {
			t.Errorf("%s: body = %s", tt.name, rec.Body.String())
		}
	}
	if seen == nil || seen.Username != "operator" {
		t.Errorf("claims in context = %+v", seen)
	}
}
