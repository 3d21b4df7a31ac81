// Package mapui contains the Datastar SSE handlers behind the map page.
package mapui

import (
	"context"
	"log/slog"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/humastar"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/session"
)

// Custom DOM events the page glue listens for.
const (
	EventSnapshot = "daurin:snapshot"
	EventMap      = "daurin:map"
)

// EventHandler streams a session's map mutations to the page via SSE.
type EventHandler struct {
	humastar.Handler
	sessions *session.Manager
	log      *slog.Logger
}

// NewEventHandler creates a new event handler.
func NewEventHandler(sessions *session.Manager, h humastar.Handler, log *slog.Logger) *EventHandler {
	if log == nil {
		log = slog.Default()
	}
	return &EventHandler{Handler: h, sessions: sessions, log: log}
}

type EventsInput struct {
	ID string `path:"id" doc:"Map session ID"`
}

func (h *EventHandler) RegisterEvents(api huma.API) {
	huma.Get(api, "/api/v1/maps/{id}/events", h.Events,
		huma.OperationTags("maps"),
	)
}

// Events sends a snapshot of everything drawn, attaches the map, then
// forwards every mutation until the client goes away or the session closes.
func (h *EventHandler) Events(ctx context.Context, input *EventsInput) (*huma.StreamResponse, error) {
	c, err := h.sessions.Acquire(input.ID)
	if err != nil {
		return nil, huma.Error404NotFound("map session not found")
	}

	return &huma.StreamResponse{
		Body: func(humaCtx huma.Context) {
			defer h.sessions.Release(input.ID)
			ctx := humaCtx.Context()
			sse := humastar.NewSSE(humaCtx)

			bus := c.Map().Bus()
			ch := bus.Subscribe()
			defer func() { bus.Unsubscribe(ch) }()

			if err := h.sync(sse, c); err != nil {
				return
			}
			// Attach outlives this request: a reconnecting page must not
			// cancel the initial loads.
			go c.Attach(context.WithoutCancel(ctx))

			for {
				select {
				case <-ctx.Done():
					return
				case ev, ok := <-ch:
					if !ok {
						if bus.Closed() {
							return
						}
						// Cut off for falling behind: start over from a snapshot.
						h.log.Warn("event stream resync", "map", input.ID)
						ch = bus.Subscribe()
						if err := h.sync(sse, c); err != nil {
							return
						}
						continue
					}
					if err := h.send(sse, ev); err != nil {
						h.log.Debug("event stream closed", "map", input.ID, "error", err)
						return
					}
				}
			}
		},
	}, nil
}

// sync sends everything drawn so far plus the control state. A geolocation
// request still waiting for the page is asked for again.
func (h *EventHandler) sync(sse humastar.SSE, c *controller.Controller) error {
	if err := sse.DispatchCustomEvent(EventSnapshot, c.Map().Snapshot()); err != nil {
		return err
	}
	st := c.GetState()
	if err := h.sendState(sse, st); err != nil {
		return err
	}
	if st.Location.Locating {
		return sse.DispatchCustomEvent(EventMap, mapview.Event{Kind: mapview.EventGeolocate})
	}
	return nil
}

func (h *EventHandler) send(sse humastar.SSE, ev mapview.Event) error {
	switch ev.Kind {
	case mapview.EventNotify:
		return sse.Toast(h.Renderer, string(ev.Notification.Level), ev.Notification.Message)
	case mapview.EventState:
		if st, ok := ev.Payload.(controller.State); ok {
			return h.sendState(sse, st)
		}
		return nil
	}
	return sse.DispatchCustomEvent(EventMap, ev)
}

// sendState re-renders the layer checkboxes and patches the "map" signal the
// page binds its controls to.
func (h *EventHandler) sendState(sse humastar.SSE, st controller.State) error {
	html, err := h.Renderer.Render("layer-list", map[string]any{
		"Base":   "/api/v1/maps/" + st.ID,
		"Layers": st.Layers,
	})
	if err != nil {
		return err
	}
	if err := sse.Patch(html, "#layer-list"); err != nil {
		return err
	}
	return sse.MarshalAndPatchSignals(map[string]any{"map": st})
}
