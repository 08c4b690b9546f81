// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package breaker wraps sony/gobreaker with Tourbook logging and metrics.
// Outbound clients (payment provider, email API) run every call through a
// Breaker so a failing dependency is shed quickly instead of holding
// webhook deliveries open.
package breaker

import (
	"errors"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
)

// ErrUnavailable is returned when the breaker rejects a call.
var ErrUnavailable = errors.New("dependency temporarily unavailable")

// Settings tunes a breaker. Zero values take the defaults below.
type Settings struct {
	// MinRequests is the sample size before the failure ratio is considered.
	MinRequests uint32
	// FailureRatio in (0,1] opens the breaker.
	FailureRatio float64
	// OpenTimeout is how long the breaker stays open before probing.
	OpenTimeout time.Duration
	// IsSuccessful classifies errors that should not count as failures,
	// such as a provider rejecting a malformed request.
	IsSuccessful func(error) bool
}

// Breaker is a named circuit breaker returning values of type T.
type Breaker[T any] struct {
	name string
	cb   *gobreaker.CircuitBreaker[T]
}

// New creates a breaker and registers its initial state.
func New[T any](name string, s Settings) *Breaker[T] {
	if s.MinRequests == 0 {
		s.MinRequests = 10
	}
	if s.FailureRatio <= 0 || s.FailureRatio > 1 {
		s.FailureRatio = 0.6
	}
	if s.OpenTimeout <= 0 {
		s.OpenTimeout = 30 * time.Second
	}

	metrics.CircuitBreakerState.WithLabelValues(name).Set(0)
	log := logging.WithComponent("breaker")

	st := gobreaker.Settings{
		Name:        name,
		MaxRequests: 3,
		Interval:    time.Minute,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			if c.Requests < s.MinRequests {
				return false
			}
			return float64(c.TotalFailures)/float64(c.Requests) >= s.FailureRatio
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", stateName(from)).Str("to", stateName(to)).
				Msg("circuit breaker state change")
			metrics.CircuitBreakerState.WithLabelValues(name).Set(stateValue(to))
			metrics.CircuitBreakerTransitions.WithLabelValues(name, stateName(from), stateName(to)).Inc()
		},
	}
	if s.IsSuccessful != nil {
		st.IsSuccessful = func(err error) bool { return err == nil || s.IsSuccessful(err) }
	}

	return &Breaker[T]{name: name, cb: gobreaker.NewCircuitBreaker[T](st)}
}

// Execute runs fn through the breaker. Rejections are returned wrapped in
// ErrUnavailable; errors from fn are returned unchanged.
func (b *Breaker[T]) Execute(fn func() (T, error)) (T, error) {
	v, err := b.cb.Execute(fn)
	switch {
	case err == nil:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "success").Inc()
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "rejected").Inc()
		return v, errors.Join(ErrUnavailable, err)
	default:
		metrics.CircuitBreakerRequests.WithLabelValues(b.name, "failure").Inc()
	}
	return v, err
}

// State returns closed, half-open or open.
func (b *Breaker[T]) State() string {
	return stateName(b.cb.State())
}

// Name returns the breaker name used in metrics.
func (b *Breaker[T]) Name() string { return b.name }

func stateValue(s gobreaker.State) float64 {
	switch s {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

func stateName(s gobreaker.State) string {
	switch s {
	case gobreaker.StateClosed:
		return "closed"
	case gobreaker.StateHalfOpen:
		return "half-open"
	case gobreaker.StateOpen:
		return "open"
	default:
		return "unknown"
	}
}
