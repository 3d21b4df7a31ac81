// Package controller drives one map session: it owns the headless map and
// every component that draws on it, and exposes the operations the page
// invokes.
//
// Network calls (facility and entity fetches, routing, geolocation) run
// outside the controller lock; only the resulting map mutations are
// serialized.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/sync/errgroup"

	"github.com/joeblew999/daurin/internal/directory"
	"github.com/joeblew999/daurin/internal/entity"
	"github.com/joeblew999/daurin/internal/facility"
	"github.com/joeblew999/daurin/internal/layers"
	"github.com/joeblew999/daurin/internal/locate"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/popup"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/search"
	"github.com/joeblew999/daurin/internal/templates"
)

var (
	// ErrMapNotReady is returned by operations that need an attached page.
	ErrMapNotReady   = errors.New("map not attached")
	ErrClosed        = errors.New("map session closed")
	ErrUnknownKind   = errors.New("unknown entity kind")
	ErrUnknownMarker = errors.New("unknown marker")
	ErrUnknownAction = errors.New("unknown marker action")
)

// Default viewport: Surabaya.
var (
	DefaultCenter = orb.Point{112.7521, -7.2575}
	DefaultZoom   = 12.0
)

const (
	locateZoom = 15
	entityZoom = 16
)

// Outcome names how an operation ended.
type Outcome string

const (
	OutcomeShown     Outcome = "shown"
	OutcomeHidden    Outcome = "hidden"
	OutcomeQueued    Outcome = "queued"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeStale     Outcome = "stale"
	OutcomeFailed    Outcome = "failed"
	OutcomeNotFound  Outcome = "not-found"
	OutcomeInvalid   Outcome = "invalid"
	OutcomeFound     Outcome = "found"
	OutcomeLocated   Outcome = "located"
	OutcomeRouted    Outcome = "routed"
	OutcomeCleared   Outcome = "cleared"
	OutcomeDisabled  Outcome = "disabled"
	OutcomeLink      Outcome = "link"
	OutcomeStarted   Outcome = "started"
	OutcomeReported  Outcome = "reported"
)

// OperationStatus is the result of every page-facing operation. Expected
// failures are reported here and as a toast, never as an error.
type OperationStatus struct {
	OK      bool    `json:"ok" doc:"Whether the operation succeeded"`
	Outcome Outcome `json:"outcome" doc:"How the operation ended"`
	Message string  `json:"message,omitempty" doc:"Human readable detail"`
	Count   int     `json:"count,omitempty" doc:"Markers drawn, when relevant"`
}

func succeeded(o Outcome, msg string) OperationStatus {
	return OperationStatus{OK: true, Outcome: o, Message: msg}
}

func failure(o Outcome, msg string) OperationStatus {
	return OperationStatus{Outcome: o, Message: msg}
}

// Options configures a controller.
type Options struct {
	ID        string
	Source    directory.Source
	Layers    *layers.Registry // cloned, so every session starts from the configured flags
	Templates *templates.Renderer
	Regions   *search.Resolver
	Engine    routing.Engine

	// Locator overrides the page-reported geolocation.
	Locator       locate.Locator
	LocateTimeout time.Duration

	Center   orb.Point
	Zoom     float64
	BasePath string // action URLs are built under it
	Logger   *slog.Logger
}

// Controller is safe for concurrent use.
type Controller struct {
	id      string
	log     *slog.Logger
	m       *mapview.Map
	layers  *layers.Registry
	cache   *facility.Cache
	popups  *popup.Renderer
	regions *search.Resolver
	routes  *routing.Adapter
	locator *locate.Service
	client  *locate.Client
	loaders map[entity.Kind]entity.Runner
	actions *actionRegistry
	created time.Time

	mu       sync.Mutex
	attached bool
	closed   bool
	layerSeq map[string]uint64
	pending  map[entity.Kind]bool
}

// New creates a detached controller.
func New(opts Options) (*Controller, error) {
	if opts.Source == nil {
		return nil, fmt.Errorf("controller: data source is required")
	}
	if opts.Templates == nil {
		tmpl, err := templates.Default()
		if err != nil {
			return nil, err
		}
		opts.Templates = tmpl
	}
	if opts.Layers == nil {
		reg, err := layers.New(layers.Defaults())
		if err != nil {
			return nil, err
		}
		opts.Layers = reg
	}
	if opts.Regions == nil {
		opts.Regions = search.NewResolver(nil, opts.Logger)
	}
	if opts.Center == (orb.Point{}) {
		opts.Center = DefaultCenter
	}
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultZoom
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}

	c := &Controller{
		id:       opts.ID,
		log:      log.With("session", opts.ID),
		m:        mapview.New(opts.Center, opts.Zoom),
		layers:   opts.Layers.Clone(),
		cache:    facility.NewCache(opts.Source.Facilities),
		popups:   popup.NewRenderer(opts.Templates, opts.BasePath),
		regions:  opts.Regions,
		routes:   routing.NewAdapter(opts.Engine),
		actions:  newActionRegistry(),
		created:  time.Now(),
		layerSeq: make(map[string]uint64),
		pending:  make(map[entity.Kind]bool),
	}

	loc := opts.Locator
	if loc == nil {
		c.client = locate.NewClient(func() {
			c.m.Publish(mapview.Event{Kind: mapview.EventGeolocate})
			c.publishState()
		})
		loc = c.client
	}
	c.locator = locate.NewService(loc, opts.LocateTimeout)
	c.loaders = c.newLoaders(opts.Source)
	return c, nil
}

// ID returns the session id.
func (c *Controller) ID() string { return c.id }

// Map returns the headless map. Callers read and subscribe; they must not
// mutate it.
func (c *Controller) Map() *mapview.Map { return c.m }

// Attached reports whether a page has attached.
func (c *Controller) Attached() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.attached
}

// Attach marks the map ready and draws everything toggled on before it was:
// active layers and queued entity kinds. Later calls are no-ops.
func (c *Controller) Attach(ctx context.Context) {
	c.mu.Lock()
	if c.attached || c.closed {
		c.mu.Unlock()
		return
	}
	c.attached = true

	active := c.layers.Active()
	seqs := make(map[string]uint64, len(active))
	for _, l := range active {
		c.layerSeq[l.ID]++
		seqs[l.ID] = c.layerSeq[l.ID]
	}
	var kinds []entity.Kind
	for _, k := range entity.Kinds {
		if c.pending[k] {
			kinds = append(kinds, k)
		}
	}
	c.pending = make(map[entity.Kind]bool)
	c.mu.Unlock()

	c.log.Info("map attached", "layers", len(active), "entities", len(kinds))

	var g errgroup.Group
	for _, l := range active {
		g.Go(func() error {
			c.showLayer(ctx, l, seqs[l.ID])
			return nil
		})
	}
	for _, k := range kinds {
		g.Go(func() error {
			c.entityStatus(c.loaders[k].Load(ctx, c.lockedCanvas()))
			return nil
		})
	}
	_ = g.Wait()
	c.publishState()
}

// Close detaches every subscriber. The controller is unusable afterwards.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	c.attached = false
	c.mu.Unlock()

	c.m.Bus().Close()
	c.log.Info("map closed", "age", time.Since(c.created).Round(time.Second))
}

func (c *Controller) ready() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrClosed
	}
	if !c.attached {
		return ErrMapNotReady
	}
	return nil
}

func (c *Controller) notify(level mapview.Level, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	c.m.Notify(level, msg)
	return msg
}

func (c *Controller) publishState() {
	c.m.Publish(mapview.Event{Kind: mapview.EventState, Payload: c.GetState()})
}

// EntityState is the UI view of one loader.
type EntityState struct {
	Phase   string `json:"phase"`
	Loading bool   `json:"loading"`
	Visible bool   `json:"visible"`
	Count   int    `json:"count"`
}

// State is everything the page needs to render its controls.
type State struct {
	ID         string                      `json:"id"`
	Attached   bool                        `json:"attached"`
	Center     orb.Point                   `json:"center"`
	Zoom       float64                     `json:"zoom"`
	OpenPopup  string                      `json:"openPopup,omitempty"`
	Layers     []layers.Config             `json:"layers"`
	Facilities string                      `json:"facilities"`
	Entities   map[entity.Kind]EntityState `json:"entities"`
	Route      routing.State               `json:"route"`
	Location   locate.Status               `json:"location"`
}

// GetState returns the current session state.
func (c *Controller) GetState() State {
	st := State{
		ID:         c.id,
		Attached:   c.Attached(),
		Center:     c.m.Center(),
		Zoom:       c.m.Zoom(),
		OpenPopup:  c.m.OpenPopupID(),
		Layers:     c.layers.List(),
		Facilities: c.cache.State().String(),
		Entities:   make(map[entity.Kind]EntityState, len(c.loaders)),
		Route:      c.routes.State(),
		Location:   c.locator.Status(),
	}
	for k, l := range c.loaders {
		p := l.Phase()
		st.Entities[k] = EntityState{
			Phase:   p.String(),
			Loading: p == entity.PhaseLoading,
			Visible: p == entity.PhaseVisible,
			Count:   c.m.MarkerCount(string(k)),
		}
	}
	if err := c.locator.Err(); err != nil {
		st.Location.Error = locateMessage(err)
	}
	return st
}

// MarkerID builds the id of a record's marker in a group.
func MarkerID(group, recordID string) string {
	return group + ":" + recordID
}
