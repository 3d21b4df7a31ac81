package routing

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/daurin/internal/metrics"
)

var (
	ErrDisabled = errors.New("routing is disabled")
	ErrStale    = errors.New("superseded by a newer route request")
)

// Canvas is the part of the map routes are drawn on.
type Canvas interface {
	DrawRoute(orb.LineString)
	ClearRoutes()
}

// Destination is where the active route ends.
type Destination struct {
	Name  string    `json:"name"`
	Point orb.Point `json:"point"`
}

// State is the route state of a map.
type State struct {
	Enabled     bool           `json:"isEnabled"`
	Active      orb.LineString `json:"activePath,omitempty"`
	Destination *Destination   `json:"destination,omitempty"`
	DistanceM   float64        `json:"distanceM,omitempty"`
}

// Adapter keeps at most one active route.
type Adapter struct {
	engine Engine

	mu    sync.Mutex
	seq   uint64
	state State
}

// NewAdapter wraps engine. A nil engine disables routing.
func NewAdapter(engine Engine) *Adapter {
	return &Adapter{engine: engine, state: State{Enabled: engine != nil}}
}

// State returns the current route state.
func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.stateLocked()
}

func (a *Adapter) stateLocked() State {
	s := a.state
	if s.Destination != nil {
		d := *s.Destination
		s.Destination = &d
	}
	return s
}

// Show computes a route and, on success, replaces the drawn one. On failure
// the state and the drawn path stay as they were.
func (a *Adapter) Show(ctx context.Context, c Canvas, from, to orb.Point, name string) (State, error) {
	if a.engine == nil {
		return a.State(), ErrDisabled
	}

	a.mu.Lock()
	a.seq++
	seq := a.seq
	a.mu.Unlock()

	path, err := a.engine.Route(ctx, from, to)
	if err != nil {
		metrics.Routes.WithLabelValues(a.engine.Name(), "error").Inc()
		return a.State(), fmt.Errorf("route to %s: %w", name, err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if seq != a.seq {
		metrics.Routes.WithLabelValues(a.engine.Name(), "stale").Inc()
		return a.stateLocked(), ErrStale
	}
	c.ClearRoutes()
	c.DrawRoute(path.Line)
	a.state.Active = path.Line
	a.state.Destination = &Destination{Name: name, Point: to}
	a.state.DistanceM = path.DistanceM
	metrics.Routes.WithLabelValues(a.engine.Name(), "ok").Inc()
	return a.stateLocked(), nil
}

// Clear removes the active route. It is safe to call with no route.
func (a *Adapter) Clear(c Canvas) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	c.ClearRoutes()
	a.state.Active = nil
	a.state.Destination = nil
	a.state.DistanceM = 0
}
