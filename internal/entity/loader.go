// Package entity loads marketplace entities (pengepul, pengrajin, waste
// offers) onto their marker groups.
//
// Each loader tracks a single phase value instead of separate loading and
// visible flags, and a monotonic request sequence: a response that arrives
// after a newer load (or a cancel) started is dropped.
package entity

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/metrics"
)

// Kind names an entity category. It doubles as the marker group name.
type Kind string

const (
	KindPengepul    Kind = "pengepul"
	KindPengrajin   Kind = "pengrajin"
	KindWasteOffers Kind = "waste-offers"
)

// Kinds lists the entity kinds in search scan order.
var Kinds = []Kind{KindPengepul, KindPengrajin, KindWasteOffers}

// Phase is the loader state.
type Phase int

const (
	PhaseNotLoaded Phase = iota
	PhaseLoading
	PhaseHidden
	PhaseVisible
)

func (p Phase) String() string {
	switch p {
	case PhaseLoading:
		return "loading"
	case PhaseHidden:
		return "loaded-hidden"
	case PhaseVisible:
		return "loaded-visible"
	}
	return "not-loaded"
}

// Outcome is how a Load or Toggle call ended.
type Outcome string

const (
	OutcomeShown     Outcome = "shown"
	OutcomeHidden    Outcome = "hidden"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeStale     Outcome = "stale"
	OutcomeFailed    Outcome = "failed"
)

// Result reports a Load or Toggle call.
type Result struct {
	Kind     Kind
	Outcome  Outcome
	Rendered int
	Skipped  int
	Err      error
}

// Entry is a rendered entity, kept for search.
type Entry struct {
	MarkerID string
	Name     string
	Position orb.Point
}

// Canvas is the part of the map a loader draws on.
type Canvas interface {
	AddMarker(mapview.Marker)
	ClearGroup(name string) int
}

// BuildFunc turns a record into a marker. ok is false for records that
// cannot be placed (no coordinates).
type BuildFunc[T any] func(rec T) (mk mapview.Marker, e Entry, ok bool, err error)

// Runner is the kind-independent view of a Loader.
type Runner interface {
	Kind() Kind
	Phase() Phase
	Visible() []Entry
	Load(ctx context.Context, c Canvas) Result
	Toggle(ctx context.Context, c Canvas) Result
}

// Loader loads one entity kind. It is safe for concurrent use.
type Loader[T any] struct {
	kind  Kind
	fetch func(ctx context.Context) ([]T, error)
	build BuildFunc[T]
	log   *slog.Logger

	mu    sync.Mutex
	seq   uint64
	phase Phase
	prev  Phase
	shown []Entry
}

// NewLoader creates a loader for kind.
func NewLoader[T any](kind Kind, fetch func(ctx context.Context) ([]T, error), build BuildFunc[T], log *slog.Logger) *Loader[T] {
	if log == nil {
		log = slog.Default()
	}
	return &Loader[T]{kind: kind, fetch: fetch, build: build, log: log.With("kind", string(kind))}
}

// Kind returns the loader's entity kind.
func (l *Loader[T]) Kind() Kind { return l.kind }

// Phase returns the current phase.
func (l *Loader[T]) Phase() Phase {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.phase
}

// Visible returns the entries currently drawn on the map.
func (l *Loader[T]) Visible() []Entry {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Entry, len(l.shown))
	copy(out, l.shown)
	return out
}

// Load fetches the records and replaces the group's markers. On failure the
// markers already drawn are left untouched.
func (l *Loader[T]) Load(ctx context.Context, c Canvas) Result {
	l.mu.Lock()
	l.seq++
	seq := l.seq
	if l.phase != PhaseLoading {
		l.prev = l.phase
	}
	l.phase = PhaseLoading
	l.mu.Unlock()

	recs, err := l.fetch(ctx)

	l.mu.Lock()
	defer l.mu.Unlock()

	if seq != l.seq {
		metrics.StaleResponses.WithLabelValues(string(l.kind)).Inc()
		l.log.Debug("dropping stale response", "seq", seq, "current", l.seq)
		return Result{Kind: l.kind, Outcome: OutcomeStale}
	}
	if err != nil {
		l.phase = l.prev
		return Result{Kind: l.kind, Outcome: OutcomeFailed, Err: fmt.Errorf("loading %s: %w", l.kind, err)}
	}

	markers := make([]mapview.Marker, 0, len(recs))
	entries := make([]Entry, 0, len(recs))
	skipped := 0
	for _, rec := range recs {
		mk, e, ok, err := l.build(rec)
		if err != nil {
			l.log.Warn("skipping record", "error", err)
			skipped++
			continue
		}
		if !ok {
			skipped++
			continue
		}
		mk.Group = string(l.kind)
		markers = append(markers, mk)
		entries = append(entries, e)
	}

	c.ClearGroup(string(l.kind))
	for _, mk := range markers {
		c.AddMarker(mk)
	}
	l.shown = entries
	l.phase = PhaseVisible

	return Result{Kind: l.kind, Outcome: OutcomeShown, Rendered: len(markers), Skipped: skipped}
}

// Toggle hides a visible group, cancels a load in flight, or loads a hidden
// group.
func (l *Loader[T]) Toggle(ctx context.Context, c Canvas) Result {
	l.mu.Lock()
	switch l.phase {
	case PhaseVisible:
		l.hideLocked(c)
		l.mu.Unlock()
		return Result{Kind: l.kind, Outcome: OutcomeHidden}
	case PhaseLoading:
		l.seq++
		if l.prev == PhaseVisible {
			l.hideLocked(c)
		} else {
			l.phase = l.prev
		}
		l.mu.Unlock()
		return Result{Kind: l.kind, Outcome: OutcomeCancelled}
	}
	l.mu.Unlock()
	return l.Load(ctx, c)
}

// Hide clears the group if it is drawn.
func (l *Loader[T]) Hide(c Canvas) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.phase == PhaseVisible || (l.phase == PhaseLoading && l.prev == PhaseVisible) {
		l.seq++
		l.hideLocked(c)
	}
}

func (l *Loader[T]) hideLocked(c Canvas) {
	c.ClearGroup(string(l.kind))
	l.shown = nil
	l.phase = PhaseHidden
}
