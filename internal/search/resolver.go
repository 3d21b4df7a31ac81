// Package search resolves a free-text query to a region or to an entity
// currently shown on the map.
package search

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/joeblew999/daurin/internal/boundary"
	"github.com/joeblew999/daurin/internal/entity"
)

// Mode selects what a query is matched against.
type Mode string

const (
	ModeLocation Mode = "location"
	ModeEntity   Mode = "entity"
)

var (
	ErrEmptyQuery  = errors.New("empty search query")
	ErrNotFound    = errors.New("no match")
	ErrUnknownMode = errors.New("unknown search mode")
)

// ParseMode validates a mode string. Empty means entity search.
func ParseMode(s string) (Mode, error) {
	switch Mode(strings.ToLower(strings.TrimSpace(s))) {
	case "", ModeEntity:
		return ModeEntity, nil
	case ModeLocation:
		return ModeLocation, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownMode, s)
}

// Normalize trims and lowercases a query.
func Normalize(query string) (string, error) {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return "", ErrEmptyQuery
	}
	return q, nil
}

// Resolver matches regions. Regions are read from the source on first use;
// a failed read is retried by the next search.
type Resolver struct {
	src boundary.Source
	log *slog.Logger

	mu      sync.Mutex
	loaded  bool
	regions []boundary.Region
}

// NewResolver creates a resolver over src. A nil src knows no regions.
func NewResolver(src boundary.Source, log *slog.Logger) *Resolver {
	if src == nil {
		src = boundary.Static(nil)
	}
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{src: src, log: log}
}

func (r *Resolver) load(ctx context.Context) ([]boundary.Region, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.loaded {
		return r.regions, nil
	}
	regions, err := r.src.Regions(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading regions: %w", err)
	}
	r.regions = regions
	r.loaded = true
	r.log.Info("regions loaded", "count", len(regions))
	return regions, nil
}

// Location returns the region whose name contains query. An exact name
// match wins over the first substring match.
func (r *Resolver) Location(ctx context.Context, query string) (boundary.Region, error) {
	q, err := Normalize(query)
	if err != nil {
		return boundary.Region{}, err
	}
	regions, err := r.load(ctx)
	if err != nil {
		return boundary.Region{}, err
	}

	first := -1
	for i, reg := range regions {
		name := strings.ToLower(reg.Name)
		if name == q {
			return reg, nil
		}
		if first < 0 && strings.Contains(name, q) {
			first = i
		}
	}
	if first < 0 {
		return boundary.Region{}, fmt.Errorf("%w: %q", ErrNotFound, query)
	}
	return regions[first], nil
}

// Entity scans groups in order and returns the first entry whose name
// contains query. Callers pass collectors, crafters, then offers; that order
// decides ties and carries no ranking meaning.
func Entity(query string, groups ...[]entity.Entry) (entity.Entry, error) {
	q, err := Normalize(query)
	if err != nil {
		return entity.Entry{}, err
	}
	for _, g := range groups {
		for _, e := range g {
			if strings.Contains(strings.ToLower(e.Name), q) {
				return e, nil
			}
		}
	}
	return entity.Entry{}, fmt.Errorf("%w: %q", ErrNotFound, query)
}
