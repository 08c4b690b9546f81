// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package webhook

import "github.com/tomtom215/tourbook/internal/models"

// Trigger is a provider fact that may move a booking.
type Trigger string

// Triggers derived from provider events.
const (
	TriggerCompletedPaid   Trigger = "completed_paid"
	TriggerCompletedUnpaid Trigger = "completed_unpaid"
	TriggerExpired         Trigger = "expired"
	TriggerRefunded        Trigger = "refunded"
)

// StatusNone is the current status of a session without a booking row.
const StatusNone models.BookingStatus = ""

type transitionKey struct {
	from    models.BookingStatus
	trigger Trigger
}

type transitionRule struct {
	next models.BookingStatus
	ok   bool
}

// transitions is the complete table. A missing pair is rejected.
var transitions = map[transitionKey]transitionRule{
	{StatusNone, TriggerCompletedPaid}:   {models.StatusPaid, true},
	{StatusNone, TriggerCompletedUnpaid}: {models.StatusPending, true},
	{StatusNone, TriggerExpired}:         {StatusNone, true},
	{StatusNone, TriggerRefunded}:        {StatusNone, true},

	{models.StatusPending, TriggerCompletedPaid}:   {models.StatusPaid, true},
	{models.StatusPending, TriggerCompletedUnpaid}: {models.StatusPending, true},
	{models.StatusPending, TriggerExpired}:         {models.StatusCanceled, true},
	{models.StatusPending, TriggerRefunded}:        {models.StatusCanceled, true},

	{models.StatusPaid, TriggerCompletedPaid}:   {models.StatusPaid, true},
	{models.StatusPaid, TriggerCompletedUnpaid}: {models.StatusPaid, false},
	{models.StatusPaid, TriggerExpired}:         {models.StatusPaid, false},
	{models.StatusPaid, TriggerRefunded}:        {models.StatusCanceled, true},

	{models.StatusCanceled, TriggerCompletedPaid}:   {models.StatusCanceled, false},
	{models.StatusCanceled, TriggerCompletedUnpaid}: {models.StatusCanceled, false},
	{models.StatusCanceled, TriggerExpired}:         {models.StatusCanceled, true},
	{models.StatusCanceled, TriggerRefunded}:        {models.StatusCanceled, true},
}

// Transition returns the status a booking in current moves to on trigger.
// ok is false when the move is refused; next is then current. A next of
// StatusNone means there is no row to write.
func Transition(current models.BookingStatus, trigger Trigger) (next models.BookingStatus, ok bool) {
	rule, found := transitions[transitionKey{current, trigger}]
	if !found {
		return current, false
	}
	return rule.next, rule.ok
}

// completionTrigger maps a session's own payment status to a trigger.
func completionTrigger(paid bool) Trigger {
	if paid {
		return TriggerCompletedPaid
	}
	return TriggerCompletedUnpaid
}
