// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package breaker

import (
	"errors"
	"testing"
	"time"
)

var errBoom = errors.New("boom")

func TestBreakerOpensAfterFailures(t *testing.T) {
	t.Parallel()

	b := New[int]("test-open", Settings{MinRequests: 3, FailureRatio: 0.5, OpenTimeout: time.Minute})

	for i := 0; i < 3; i++ {
		if _, err := b.Execute(func() (int, error) { return 0, errBoom }); !errors.Is(err, errBoom) {
			t.Fatalf("call %d: err = %v, want errBoom", i, err)
		}
	}

	if b.State() != "open" {
		t.Fatalf("State() = %s, want open", b.State())
	}

	called := false
	_, err := b.Execute(func() (int, error) { called = true; return 1, nil })
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
	if called {
		t.Error("fn must not run while open")
	}
}

func TestBreakerIsSuccessfulKeepsClosed(t *testing.T) {
	t.Parallel()

	errClient := errors.New("invalid request")
	b := New[string]("test-client-errors", Settings{
		MinRequests:  2,
		FailureRatio: 0.5,
		IsSuccessful: func(err error) bool { return errors.Is(err, errClient) },
	})

	for i := 0; i < 5; i++ {
		if _, err := b.Execute(func() (string, error) { return "", errClient }); !errors.Is(err, errClient) {
			t.Fatalf("err = %v, want errClient", err)
		}
	}
	if b.State() != "closed" {
		t.Errorf("State() = %s, want closed", b.State())
	}
}

func TestBreakerReturnsValue(t *testing.T) {
	t.Parallel()

	b := New[int]("test-value", Settings{})
	v, err := b.Execute(func() (int, error) { return 42, nil })
	if err != nil || v != 42 {
		t.Errorf("Execute() = %d, %v; want 42, nil", v, err)
	}
}
