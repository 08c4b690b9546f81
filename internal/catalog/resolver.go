// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/tomtom215/tourbook/internal/logging"
	"github.com/tomtom215/tourbook/internal/metrics"
	"github.com/tomtom215/tourbook/internal/models"
)

// Resolver looks tours up in a primary source under a short deadline and
// falls back to a static dataset when the primary is slow, failing,
// unconfigured, or does not know the tour.
type Resolver struct {
	primary  Source
	fallback *StaticSource
	timeout  time.Duration
}

// NewResolver builds a resolver. primary may be nil.
func NewResolver(primary Source, fallback *StaticSource, timeout time.Duration) *Resolver {
	if timeout <= 0 {
		timeout = 1500 * time.Millisecond
	}
	return &Resolver{primary: primary, fallback: fallback, timeout: timeout}
}

// Resolve returns the catalog entry for ref or ErrTourNotFound.
func (r *Resolver) Resolve(ctx context.Context, ref Ref) (*models.Tour, error) {
	if ref.Empty() {
		return nil, ErrTourNotFound
	}

	reason := "unconfigured"
	if r.primary != nil {
		pctx, cancel := context.WithTimeout(ctx, r.timeout)
		t, err := lookup(pctx, r.primary, ref)
		cancel()
		switch {
		case err == nil:
			return t, nil
		case errors.Is(err, ErrTourNotFound):
			reason = "not_found"
		case errors.Is(err, context.DeadlineExceeded):
			reason = "timeout"
		default:
			reason = "error"
		}
		if reason != "not_found" {
			logging.Ctx(ctx).Warn().Err(err).Str("slug", ref.Slug).Msg("catalog primary lookup failed, using static dataset")
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}

	if r.fallback == nil {
		return nil, ErrTourNotFound
	}
	metrics.CatalogFallbackTotal.WithLabelValues(reason).Inc()
	return lookup(ctx, r.fallback, ref)
}
