// Tourbook - Tour Booking Payments and Invoicing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tourbook

package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/tomtom215/tourbook/internal/models"
)

// StaticSource serves tours from memory. It is read-only after construction
// and safe for concurrent use.
type StaticSource struct {
	bySlug  map[string]*models.Tour
	byTitle map[string][]*models.Tour
}

// NewStaticSource indexes tours. Duplicate slugs are rejected.
func NewStaticSource(tours []models.Tour) (*StaticSource, error) {
	s := &StaticSource{
		bySlug:  make(map[string]*models.Tour, len(tours)),
		byTitle: make(map[string][]*models.Tour, len(tours)),
	}
	for i := range tours {
		t := tours[i]
		if t.Slug == "" {
			return nil, fmt.Errorf("catalog entry %d has no slug", i)
		}
		if t.Price < 0 {
			return nil, fmt.Errorf("catalog entry %q has a negative price", t.Slug)
		}
		if _, dup := s.bySlug[t.Slug]; dup {
			return nil, fmt.Errorf("duplicate catalog slug %q", t.Slug)
		}
		s.bySlug[t.Slug] = &t
		key := strings.ToLower(t.Title)
		s.byTitle[key] = append(s.byTitle[key], &t)
	}
	return s, nil
}

// BySlug implements Source.
func (s *StaticSource) BySlug(_ context.Context, slug string) (*models.Tour, error) {
	if t, ok := s.bySlug[slug]; ok {
		cp := *t
		return &cp, nil
	}
	return nil, ErrTourNotFound
}

// ByTitle implements Source. An ambiguous title resolves to nothing.
func (s *StaticSource) ByTitle(_ context.Context, title string) (*models.Tour, error) {
	matches := s.byTitle[strings.ToLower(title)]
	if len(matches) != 1 {
		return nil, ErrTourNotFound
	}
	cp := *matches[0]
	return &cp, nil
}

// Len returns the number of tours.
func (s *StaticSource) Len() int { return len(s.bySlug) }

// LoadFile reads a YAML catalog of the form
//
//	tours:
//	  - slug: coffee-farm
//	    title: Coffee Farm Experience
//	    price: 180000
func LoadFile(path string) ([]models.Tour, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("load catalog %s: %w", path, err)
	}
	var doc struct {
		Tours []models.Tour `koanf:"tours"`
	}
	if err := k.Unmarshal("", &doc); err != nil {
		return nil, fmt.Errorf("decode catalog %s: %w", path, err)
	}
	if len(doc.Tours) == 0 {
		return nil, fmt.Errorf("catalog %s has no tours", path)
	}
	return doc.Tours, nil
}

// DefaultTours is the built-in dataset used when no primary source answers.
// Prices are in the reference currency (COP).
func DefaultTours() []models.Tour {
	return []models.Tour{
		{
			Slug:          "coffee-farm-experience",
			Title:         "Coffee Farm Experience",
			Price:         180000,
			DurationHours: 6,
			City:          "Salento",
			Tags:          []string{"coffee", "nature", "culture"},
		},
		{
			Slug:          "bogota-historic-center",
			Title:         "Bogotá Historic Center Walk",
			Price:         95000,
			DurationHours: 4,
			City:          "Bogotá",
			Tags:          []string{"history", "walking"},
		},
		{
			Slug:          "cartagena-walled-city",
			Title:         "Cartagena Walled City",
			Price:         120000,
			DurationHours: 3,
			City:          "Cartagena",
			Tags:          []string{"history", "walking", "colonial"},
		},
		{
			Slug:          "medellin-comuna-13",
			Title:         "Medellín Comuna 13 Graffiti Tour",
			Price:         110000,
			DurationHours: 4,
			City:          "Medellín",
			Tags:          []string{"art", "culture"},
		},
		{
			Slug:          "guatape-day-trip",
			Title:         "Guatapé and El Peñol Day Trip",
			Price:         260000,
			DurationHours: 10,
			City:          "Medellín",
			Tags:          []string{"nature", "day-trip"},
		},
	}
}
