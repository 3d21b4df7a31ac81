// Package session keeps one map controller per open page and expires the
// ones nobody has touched for a while.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/metrics"
)

// ErrNotFound is returned for unknown or expired session ids.
var ErrNotFound = errors.New("map session not found")

// Factory builds the controller for a new session.
type Factory func(id string) (*controller.Controller, error)

type entry struct {
	ctrl     *controller.Controller
	lastSeen time.Time
	streams  int
}

// Manager is safe for concurrent use.
type Manager struct {
	factory Factory
	ttl     time.Duration
	log     *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*entry
}

// NewManager creates a manager. Sessions idle for longer than ttl with no
// open event stream are closed by Sweep.
func NewManager(factory Factory, ttl time.Duration, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		factory:  factory,
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*entry),
	}
}

// Create opens a new session.
func (m *Manager) Create() (*controller.Controller, error) {
	id := uuid.NewString()
	c, err := m.factory(id)
	if err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = &entry{ctrl: c, lastSeen: m.now()}
	n := len(m.sessions)
	m.mu.Unlock()

	metrics.Sessions.Set(float64(n))
	m.log.Info("map session created", "session", id, "open", n)
	return c, nil
}

// Get returns a session and marks it as used.
func (m *Manager) Get(id string) (*controller.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// Acquire returns a session and pins it while an event stream is open.
// Every Acquire must be paired with Release.
func (m *Manager) Acquire(id string) (*controller.Controller, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	e.streams++
	e.lastSeen = m.now()
	return e.ctrl, nil
}

// Release unpins a session acquired for streaming.
func (m *Manager) Release(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.sessions[id]; ok {
		if e.streams > 0 {
			e.streams--
		}
		e.lastSeen = m.now()
	}
}

// Delete closes a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	e, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()

	if !ok {
		return ErrNotFound
	}
	e.ctrl.Close()
	metrics.Sessions.Set(float64(n))
	return nil
}

// Len returns the number of open sessions.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep closes idle sessions and returns how many it closed.
func (m *Manager) Sweep() int {
	if m.ttl <= 0 {
		return 0
	}
	cutoff := m.now().Add(-m.ttl)

	m.mu.Lock()
	var expired []*entry
	for id, e := range m.sessions {
		if e.streams == 0 && e.lastSeen.Before(cutoff) {
			expired = append(expired, e)
			delete(m.sessions, id)
		}
	}
	n := len(m.sessions)
	m.mu.Unlock()

	for _, e := range expired {
		e.ctrl.Close()
	}
	if len(expired) > 0 {
		metrics.Sessions.Set(float64(n))
		m.log.Info("expired idle map sessions", "expired", len(expired), "open", n)
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done, then closes every session.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 2
	if interval <= 0 {
		interval = time.Minute
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			m.Close()
			return
		case <-t.C:
			m.Sweep()
		}
	}
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	all := m.sessions
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, e := range all {
		e.ctrl.Close()
	}
	metrics.Sessions.Set(0)
}
