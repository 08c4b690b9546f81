// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package eventbus

import (
	"context"

	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
)

// StatusMetrics counts booking status changes seen on the bus.
func StatusMetrics(ctx context.Context, ev models.BookingEvent) error {
	status := string(ev.Status)
	if status == "" {
		status = "unknown"
	}
	metrics.BookingStatusChanges.WithLabelValues(status).Inc()
	logging.Ctx(ctx).Debug().
		Str("session_id", ev.SessionID).
		Str("status", status).
		Str("previous", string(ev.Previous)).
		Msg("booking status changed")
	return nil
}
