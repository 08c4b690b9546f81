// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package services

import (
	"context"
	"errors"
	"fmt"
)

// Router is a message router that blocks in Serve until ctx is canceled.
// *eventbus.Bus satisfies it.
type Router interface {
	Serve(ctx context.Context) error
}

// EventBusService supervises the event bus consumers. A router that stops
// on its own is reported as a failure so suture restarts it.
type EventBusService struct {
	router Router
	name   string
}

// NewEventBusService wraps router.
func NewEventBusService(router Router) *EventBusService {
	return &EventBusService{router: router, name: "event-bus"}
}

// Serve implements suture.Service.
func (s *EventBusService) Serve(ctx context.Context) error {
	err := s.router.Serve(ctx)
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if err == nil {
		err = errors.New("router stopped")
	}
	return fmt.Errorf("event bus: %w", err)
}

// String implements fmt.Stringer for supervisor logs.
func (s *EventBusService) String() string {
	return s.name
}
