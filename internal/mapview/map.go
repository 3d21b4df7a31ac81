// Package mapview is the headless map a session draws on: named marker
// groups, the viewport, the open popup and the route path.
//
// Every mutation is published on the map's Bus so the page can mirror it.
package mapview

import (
	"errors"
	"html/template"
	"sync"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/maptile"
)

// ErrNoMarker is returned when a popup is requested for an unknown marker.
var ErrNoMarker = errors.New("marker not on map")

// EventKind names a map mutation.
type EventKind string

const (
	EventMarkerAdded  EventKind = "marker-added"
	EventGroupCleared EventKind = "group-cleared"
	EventView         EventKind = "view"
	EventFitBounds    EventKind = "fit-bounds"
	EventPopupOpened  EventKind = "popup-opened"
	EventRouteDrawn   EventKind = "route-drawn"
	EventRouteCleared EventKind = "route-cleared"
	EventNotify       EventKind = "notify"
	EventGeolocate    EventKind = "geolocate"
	EventTour         EventKind = "tour"
	EventState        EventKind = "state"
)

// Level is a notification severity.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a short-lived toast.
type Notification struct {
	Level   Level  `json:"level"`
	Message string `json:"message"`
}

// Marker is one pin on the map.
type Marker struct {
	ID       string        `json:"id"`
	Group    string        `json:"group"`
	Position orb.Point     `json:"position"`
	Icon     string        `json:"icon"`
	Title    string        `json:"title"`
	Popup    template.HTML `json:"popup"`
}

// Event is a map mutation published to subscribers.
type Event struct {
	Kind         EventKind      `json:"kind"`
	Group        string         `json:"group,omitempty"`
	Marker       *Marker        `json:"marker,omitempty"`
	MarkerID     string         `json:"markerId,omitempty"`
	Center       orb.Point      `json:"center,omitempty"`
	Zoom         float64        `json:"zoom,omitempty"`
	Bound        orb.Bound      `json:"bound,omitempty"`
	Path         orb.LineString `json:"path,omitempty"`
	Notification *Notification  `json:"notification,omitempty"`
	Payload      any            `json:"payload,omitempty"`
}

// Snapshot is the full drawable state, sent to a page when it connects.
type Snapshot struct {
	Center    orb.Point      `json:"center"`
	Zoom      float64        `json:"zoom"`
	Markers   []Marker       `json:"markers"`
	OpenPopup string         `json:"openPopup,omitempty"`
	Route     orb.LineString `json:"route,omitempty"`
}

type group struct {
	order   []string
	markers map[string]Marker
}

// Map is safe for concurrent use.
type Map struct {
	mu        sync.RWMutex
	groups    map[string]*group
	center    orb.Point
	zoom      float64
	openPopup string
	paths     []orb.LineString
	bus       *Bus
}

// New creates an empty map centered on center.
func New(center orb.Point, zoom float64) *Map {
	return &Map{
		groups: make(map[string]*group),
		center: center,
		zoom:   zoom,
		bus:    NewBus(),
	}
}

// Bus returns the map's event bus.
func (m *Map) Bus() *Bus { return m.bus }

// AddMarker places a marker in its group. A marker with the same ID in the
// group is replaced rather than duplicated.
func (m *Map) AddMarker(mk Marker) {
	m.mu.Lock()
	g, ok := m.groups[mk.Group]
	if !ok {
		g = &group{markers: make(map[string]Marker)}
		m.groups[mk.Group] = g
	}
	if _, exists := g.markers[mk.ID]; !exists {
		g.order = append(g.order, mk.ID)
	}
	g.markers[mk.ID] = mk
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventMarkerAdded, Group: mk.Group, Marker: &mk})
}

// ClearGroup removes every marker of a group and returns how many were
// removed. Clearing an empty or unknown group is a no-op.
func (m *Map) ClearGroup(name string) int {
	m.mu.Lock()
	g, ok := m.groups[name]
	if !ok || len(g.order) == 0 {
		m.mu.Unlock()
		return 0
	}
	n := len(g.order)
	if _, open := g.markers[m.openPopup]; open {
		m.openPopup = ""
	}
	delete(m.groups, name)
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventGroupCleared, Group: name})
	return n
}

// MarkerCount returns the number of markers in a group.
func (m *Map) MarkerCount(name string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if g, ok := m.groups[name]; ok {
		return len(g.order)
	}
	return 0
}

// Markers returns a group's markers in insertion order.
func (m *Map) Markers(name string) []Marker {
	m.mu.RLock()
	defer m.mu.RUnlock()
	g, ok := m.groups[name]
	if !ok {
		return nil
	}
	out := make([]Marker, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.markers[id])
	}
	return out
}

// Marker looks a marker up by ID across all groups.
func (m *Map) Marker(id string) (Marker, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, g := range m.groups {
		if mk, ok := g.markers[id]; ok {
			return mk, true
		}
	}
	return Marker{}, false
}

// SetView centers the map.
func (m *Map) SetView(center orb.Point, zoom float64) {
	m.mu.Lock()
	m.center = center
	if zoom > 0 {
		m.zoom = zoom
	}
	zoom = m.zoom
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventView, Center: center, Zoom: zoom})
}

// Reference viewport for FitZoom, in pixels.
const (
	viewportWidth  = 1024
	viewportHeight = 768
	tileSize       = 256
	maxFitZoom     = 17
)

// FitZoom returns the highest zoom at which b fits the reference viewport.
func FitZoom(b orb.Bound) float64 {
	for z := maptile.Zoom(maxFitZoom); z > 0; z-- {
		nw := maptile.Fraction(orb.Point{b.Min[0], b.Max[1]}, z)
		se := maptile.Fraction(orb.Point{b.Max[0], b.Min[1]}, z)
		if (se[0]-nw[0])*tileSize <= viewportWidth && (se[1]-nw[1])*tileSize <= viewportHeight {
			return float64(z)
		}
	}
	return 0
}

// FitBounds pans and zooms to a bound.
func (m *Map) FitBounds(b orb.Bound) {
	center, zoom := b.Center(), FitZoom(b)
	m.mu.Lock()
	m.center = center
	m.zoom = zoom
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventFitBounds, Bound: b, Center: center, Zoom: zoom})
}

// Center returns the current view center.
func (m *Map) Center() orb.Point {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.center
}

// Zoom returns the current zoom level.
func (m *Map) Zoom() float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.zoom
}

// OpenPopup opens the popup of a marker already on the map.
func (m *Map) OpenPopup(markerID string) error {
	m.mu.Lock()
	found := false
	for _, g := range m.groups {
		if _, ok := g.markers[markerID]; ok {
			found = true
			break
		}
	}
	if !found {
		m.mu.Unlock()
		return ErrNoMarker
	}
	m.openPopup = markerID
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventPopupOpened, MarkerID: markerID})
	return nil
}

// OpenPopupID returns the marker whose popup is open, if any.
func (m *Map) OpenPopupID() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.openPopup
}

// DrawRoute adds a path to the map.
func (m *Map) DrawRoute(path orb.LineString) {
	m.mu.Lock()
	m.paths = append(m.paths, path)
	m.mu.Unlock()

	m.bus.Publish(Event{Kind: EventRouteDrawn, Path: path})
}

// ClearRoutes removes every drawn path.
func (m *Map) ClearRoutes() {
	m.mu.Lock()
	had := len(m.paths) > 0
	m.paths = nil
	m.mu.Unlock()

	if had {
		m.bus.Publish(Event{Kind: EventRouteCleared})
	}
}

// Paths returns the drawn paths.
func (m *Map) Paths() []orb.LineString {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]orb.LineString, len(m.paths))
	copy(out, m.paths)
	return out
}

// Notify publishes a toast.
func (m *Map) Notify(level Level, msg string) {
	m.bus.Publish(Event{Kind: EventNotify, Notification: &Notification{Level: level, Message: msg}})
}

// Publish forwards a custom event to subscribers.
func (m *Map) Publish(e Event) {
	m.bus.Publish(e)
}

// Snapshot returns everything currently drawn.
func (m *Map) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s := Snapshot{Center: m.center, Zoom: m.zoom, OpenPopup: m.openPopup}
	for _, g := range m.groups {
		for _, id := range g.order {
			s.Markers = append(s.Markers, g.markers[id])
		}
	}
	if len(m.paths) > 0 {
		s.Route = m.paths[len(m.paths)-1]
	}
	return s
}
