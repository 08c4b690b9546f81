// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

// Package catalog resolves tour references to the authoritative catalog
// entry. The resolved record is the only source of price and title for a
// payment session; nothing the client sends overrides it.
package catalog

import (
	"context"
	"errors"
	"strings"

	"github.com/tomtom215/tourbook/internal/models"
)

// ErrTourNotFound is returned when a reference matches no single tour.
var ErrTourNotFound = errors.New("tour not found")

// Ref identifies a tour by slug, title, or both.
type Ref struct {
	Slug  string
	Title string
}

// Empty reports whether neither slug nor title is set.
func (r Ref) Empty() bool {
	return strings.TrimSpace(r.Slug) == "" && strings.TrimSpace(r.Title) == ""
}

// Source is a tour lookup backend.
type Source interface {
	// BySlug returns the tour with exactly this slug.
	BySlug(ctx context.Context, slug string) (*models.Tour, error)
	// ByTitle returns the only tour whose title equals title ignoring case.
	ByTitle(ctx context.Context, title string) (*models.Tour, error)
}

// lookup applies slug-then-title resolution against one source.
func lookup(ctx context.Context, src Source, ref Ref) (*models.Tour, error) {
	if slug := strings.TrimSpace(ref.Slug); slug != "" {
		t, err := src.BySlug(ctx, slug)
		if err == nil || !errors.Is(err, ErrTourNotFound) {
			return t, err
		}
	}
	if title := strings.TrimSpace(ref.Title); title != "" {
		return src.ByTitle(ctx, title)
	}
	return nil, ErrTourNotFound
}
