/*
Copyright © 2025 Acronis International GmbH.

Released under MIT license.
*/

// Package masterdata provides cached access to plants and production lines.
package masterdata

import (
	"context"
	"errors"
	"fmt"

	"github.com/inspecta/inspecta/backend"
	"github.com/inspecta/inspecta/lrucache"
)

// Backend tables.
const (
	TablePlants = "plants"
	TableLines  = "lines"
)

// ErrNotFound is returned when a plant or a line with the given code does not exist.
var ErrNotFound = errors.New("not found")

// Plant is a manufacturing plant.
type Plant struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// Line is a production line of a plant.
type Line struct {
	Code  string `json:"code"`
	Plant string `json:"plant"`
	Name  string `json:"name"`
}

// Store reads master data rows. It's implemented by *backend.Client.
type Store interface {
	Select(ctx context.Context, table string, q backend.Query, dst interface{}) (int, error)
	SelectOne(ctx context.Context, table string, filters []backend.Filter, dst interface{}) error
}

// Opts represents options for the Service.
type Opts struct {
	PlantsMetrics lrucache.MetricsCollector
	LinesMetrics  lrucache.MetricsCollector
}

// Service resolves plants and lines, caching them in LRU caches.
// Missing codes are cached as well, so repeated validation of a wrong code does not hit the backend.
type Service struct {
	store  Store
	plants *lrucache.LRUCache[string, *Plant]
	lines  *lrucache.LRUCache[string, []Line]
}

// New creates a new master data Service.
func New(cfg *Config, store Store) (*Service, error) {
	return NewWithOpts(cfg, store, Opts{})
}

// NewWithOpts is a more configurable version of New.
func NewWithOpts(cfg *Config, store Store, opts Opts) (*Service, error) {
	plants, err := lrucache.NewWithOpts[string, *Plant](cfg.Cache.MaxEntries, lrucache.Opts[string, *Plant]{
		TTL:              cfg.Cache.TTL,
		MetricsCollector: opts.PlantsMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create plants cache: %w", err)
	}
	lines, err := lrucache.NewWithOpts[string, []Line](cfg.Cache.MaxEntries, lrucache.Opts[string, []Line]{
		TTL:              cfg.Cache.TTL,
		MetricsCollector: opts.LinesMetrics,
	})
	if err != nil {
		return nil, fmt.Errorf("create lines cache: %w", err)
	}
	return &Service{store: store, plants: plants, lines: lines}, nil
}

// Plant returns the plant with the given code.
func (s *Service) Plant(ctx context.Context, code string) (Plant, error) {
	plant, err := s.plants.GetOrLoad(ctx, code, func(ctx context.Context) (*Plant, error) {
		var p Plant
		if err := s.store.SelectOne(ctx, TablePlants, []backend.Filter{backend.Eq("code", code)}, &p); err != nil {
			if errors.Is(err, backend.ErrNoRows) {
				return nil, nil
			}
			return nil, err
		}
		return &p, nil
	})
	if err != nil {
		return Plant{}, fmt.Errorf("load plant %q: %w", code, err)
	}
	if plant == nil {
		return Plant{}, fmt.Errorf("plant %q: %w", code, ErrNotFound)
	}
	return *plant, nil
}

// Lines returns all lines of the plant ordered by code.
func (s *Service) Lines(ctx context.Context, plant string) ([]Line, error) {
	if _, err := s.Plant(ctx, plant); err != nil {
		return nil, err
	}
	lines, err := s.lines.GetOrLoad(ctx, plant, func(ctx context.Context) ([]Line, error) {
		var rows []Line
		if _, err := s.store.Select(ctx, TableLines, backend.Query{
			Filters: []backend.Filter{backend.Eq("plant", plant)},
			Order:   []string{"code.asc"},
		}, &rows); err != nil {
			return nil, err
		}
		return rows, nil
	})
	if err != nil {
		return nil, fmt.Errorf("load lines of plant %q: %w", plant, err)
	}
	return append([]Line(nil), lines...), nil
}

// Line returns the line with the given code of the plant.
func (s *Service) Line(ctx context.Context, plant, code string) (Line, error) {
	lines, err := s.Lines(ctx, plant)
	if err != nil {
		return Line{}, err
	}
	for _, line := range lines {
		if line.Code == code {
			return line, nil
		}
	}
	return Line{}, fmt.Errorf("line %q of plant %q: %w", code, plant, ErrNotFound)
}

// Invalidate drops all cached master data.
func (s *Service) Invalidate() {
	s.plants.Purge()
	s.lines.Purge()
}
