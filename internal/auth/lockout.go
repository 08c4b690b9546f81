// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package auth

import (
	"sync"
	"time"
)

// LockoutConfig controls failed-login lockout.
type LockoutConfig struct {
	MaxAttempts     int
	LockoutDuration time.Duration

	// MaxLockoutDuration caps the doubling of repeated lockouts.
	MaxLockoutDuration time.Duration
}

// DefaultLockoutConfig returns sensible defaults.
func DefaultLockoutConfig() LockoutConfig {
	return LockoutConfig{
		MaxAttempts:        5,
		LockoutDuration:    15 * time.Minute,
		MaxLockoutDuration: 24 * time.Hour,
	}
}

type lockoutEntry struct {
	failures    int
	lockouts    int
	lockedUntil time.Time
	lastAttempt time.Time
}

// Lockout tracks failed logins per subject (a username or an IP).
type Lockout struct {
	cfg     LockoutConfig
	mu      sync.Mutex
	entries map[string]*lockoutEntry
	now     func() time.Time
}

// NewLockout returns an in-memory lockout tracker.
func NewLockout(cfg LockoutConfig) *Lockout {
	def := DefaultLockoutConfig()
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.LockoutDuration <= 0 {
		cfg.LockoutDuration = def.LockoutDuration
	}
	if cfg.MaxLockoutDuration < cfg.LockoutDuration {
		cfg.MaxLockoutDuration = max(def.MaxLockoutDuration, cfg.LockoutDuration)
	}
	return &Lockout{cfg: cfg, entries: make(map[string]*lockoutEntry), now: time.Now}
}

// Locked reports whether any of subjects is locked and until when.
func (l *Lockout) Locked(subjects ...string) (bool, time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	for _, s := range subjects {
		if e, ok := l.entries[s]; ok && now.Before(e.lockedUntil) {
			return true, e.lockedUntil
		}
	}
	return false, time.Time{}
}

// Fail records a failed attempt for each subject. Each lockout of a
// subject doubles the next one up to MaxLockoutDuration.
func (l *Lockout) Fail(subjects ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	for _, s := range subjects {
		if s == "" {
			continue
		}
		e, ok := l.entries[s]
		if !ok {
			e = &lockoutEntry{}
			l.entries[s] = e
		}
		e.failures++
		e.lastAttempt = now
		if e.failures >= l.cfg.MaxAttempts {
			d := l.cfg.LockoutDuration << e.lockouts
			if d <= 0 || d > l.cfg.MaxLockoutDuration {
				d = l.cfg.MaxLockoutDuration
			}
			e.lockedUntil = now.Add(d)
			e.lockouts++
			e.failures = 0
		}
	}
}

// Succeed clears the failure count for subjects.
func (l *Lockout) Succeed(subjects ...string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, s := range subjects {
		delete(l.entries, s)
	}
}

// sweep drops entries idle for longer than the maximum lockout.
func (l *Lockout) sweep(now time.Time) {
	for s, e := range l.entries {
		if now.After(e.lockedUntil) && now.Sub(e.lastAttempt) > l.cfg.MaxLockoutDuration {
			delete(l.entries, s)
		}
	}
}
