// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned for a wrong username or password.
var ErrInvalidCredentials = errors.New("invalid username or password")

// dummyHash is compared against when the username is wrong so both paths
// cost one bcrypt comparison.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("tourbook-dummy-password"), bcrypt.MinCost)

// Credentials verifies the operator login.
type Credentials struct {
	username     string
	passwordHash []byte
}

// NewCredentials takes the configured username and bcrypt hash.
func NewCredentials(username, passwordHash string) (*Credentials, error) {
	if username == "" {
		return nil, errors.New("admin username is required")
	}
	if _, err := bcrypt.Cost([]byte(passwordHash)); err != nil {
		return nil, fmt.Errorf("admin password hash is not a bcrypt hash: %w", err)
	}
	return &Credentials{username: username, passwordHash: []byte(passwordHash)}, nil
}

// Verify checks username and password in constant time with respect to
// the username.
func (c *Credentials) Verify(username, password string) error {
	userOK := subtle.ConstantTimeCompare([]byte(strings.TrimSpace(username)), []byte(c.username)) == 1
	hash := c.passwordHash
	if !userOK {
		hash = dummyHash
	}
	passErr := bcrypt.CompareHashAndPassword(hash, []byte(password))
	if !userOK || passErr != nil {
		return ErrInvalidCredentials
	}
	return nil
}

// HashPassword returns a bcrypt hash suitable for admin.password_hash.
func HashPassword(password string) (string, error) {
	if len(password) < 8 {
		return "", errors.New("password must be at least 8 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}
