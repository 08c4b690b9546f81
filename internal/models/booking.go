// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package models

import "time"

// BookingStatus is the reconciled payment state of a booking.
type BookingStatus string

// Booking statuses. Paid and canceled are terminal apart from a refund
// moving paid to canceled.
const (
	StatusPending  BookingStatus = "pending"
	StatusPaid     BookingStatus = "paid"
	StatusCanceled BookingStatus = "canceled"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case StatusPending, StatusPaid, StatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether s is paid or canceled.
func (s BookingStatus) Terminal() bool {
	return s == StatusPaid || s == StatusCanceled
}

// Booking is the persisted reconciliation record. StripeSessionID is unique;
// every write is an upsert on it.
type Booking struct {
	ID              string        `json:"id" db:"id"`
	StripeSessionID string        `json:"stripeSessionId" db:"stripe_session_id"`
	Status          BookingStatus `json:"status" db:"status"`
	TourID          *string       `json:"tourId,omitempty" db:"tour_id"`
	TourSlug        string        `json:"tourSlug" db:"tour_slug"`
	TourTitle       string        `json:"tourTitle" db:"tour_title"`
	Date            string        `json:"date" db:"date"`
	Persons         int           `json:"persons" db:"persons"`
	Total           int64         `json:"total" db:"total"`
	Currency        string        `json:"currency" db:"currency"`
	CustomerEmail   string        `json:"customerEmail" db:"customer_email"`
	CustomerName    string        `json:"customerName" db:"customer_name"`
	CustomerPhone   string        `json:"customerPhone,omitempty" db:"customer_phone"`
	CreatedAt       time.Time     `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time     `json:"updatedAt" db:"updated_at"`
}

// Booking event types published on the event bus.
const (
	BookingEventPaid     = "booking.paid"
	BookingEventPending  = "booking.pending"
	BookingEventCanceled = "booking.canceled"
)

// BookingEvent announces a booking status change.
type BookingEvent struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	SessionID  string        `json:"sessionId"`
	BookingID  string        `json:"bookingId"`
	Status     BookingStatus `json:"status"`
	Previous   BookingStatus `json:"previous,omitempty"`
	Total      int64         `json:"total"`
	Currency   string        `json:"currency"`
	TriggerID  string        `json:"triggerId"`
	OccurredAt time.Time     `json:"occurredAt"`
}

// EventTypeFor returns the bus event type announcing status.
func EventTypeFor(status BookingStatus) string {
	switch status {
	case StatusPaid:
		return BookingEventPaid
	case StatusCanceled:
		return BookingEventCanceled
	default:
		return BookingEventPending
	}
}
