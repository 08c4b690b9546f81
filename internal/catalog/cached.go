// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/tomtom215/tourbook/internal/cache"
	"github.com/tomtom215/tourbook/internal/models"
)

// CachedSource keeps recent hits from a slower source. Misses and errors
// are never cached, so a newly published tour is visible on the next read.
type CachedSource struct {
	src   Source
	tours *cache.LRU[models.Tour]
}

// NewCachedSource wraps src with an LRU of the given size and TTL.
func NewCachedSource(src Source, capacity int, ttl time.Duration) *CachedSource {
	return &CachedSource{src: src, tours: cache.NewLRU[models.Tour](capacity, ttl)}
}

// BySlug implements Source.
func (c *CachedSource) BySlug(ctx context.Context, slug string) (*models.Tour, error) {
	return c.get(ctx, "slug:"+slug, func() (*models.Tour, error) { return c.src.BySlug(ctx, slug) })
}

// ByTitle implements Source.
func (c *CachedSource) ByTitle(ctx context.Context, title string) (*models.Tour, error) {
	return c.get(ctx, "title:"+strings.ToLower(title), func() (*models.Tour, error) { return c.src.ByTitle(ctx, title) })
}

func (c *CachedSource) get(_ context.Context, key string, load func() (*models.Tour, error)) (*models.Tour, error) {
	if t, ok := c.tours.Get(key); ok {
		return &t, nil
	}
	t, err := load()
	if err != nil {
		return nil, err
	}
	c.tours.Add(key, *t)
	cp := *t
	return &cp, nil
}
