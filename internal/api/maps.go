package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/entity"
	"github.com/joeblew999/daurin/internal/humastar"
	"github.com/joeblew999/daurin/internal/locate"
	"github.com/joeblew999/daurin/internal/session"
)

// MapPath is the API path of a map session.
func MapPath(id string) string { return "/api/v1/maps/" + id }

var sessionActions = []humastar.ActionDef{
	{Rel: "events", Pattern: "/api/v1/maps/%s/events", Method: http.MethodGet, Title: "Event stream"},
	{Rel: "state", Pattern: "/api/v1/maps/%s/state", Method: http.MethodGet},
	{Rel: "search", Pattern: "/api/v1/maps/%s/search", Method: http.MethodPost, Title: "Cari"},
	{Rel: "locate", Pattern: "/api/v1/maps/%s/location", Method: http.MethodPost, Title: "Lokasi saya"},
	{Rel: "tour", Pattern: "/api/v1/maps/%s/tour", Method: http.MethodPost, Title: "Tur"},
	{Rel: "delete", Pattern: "/api/v1/maps/%s", Method: http.MethodDelete},
}

// SessionBody describes a map session.
type SessionBody struct {
	ID     string `json:"id" doc:"Map session ID"`
	Href   string `json:"href" doc:"Session API path"`
	Events string `json:"events" doc:"Datastar SSE stream of map events"`
}

// Actions implements humastar.Actor.
func (b SessionBody) Actions() []humastar.Action {
	return humastar.ActionsFor(b.ID, sessionActions)
}

// StateBody wraps a session state so it can carry route-dependent links.
type StateBody struct {
	controller.State
}

// Actions implements humastar.Actor.
func (b StateBody) Actions() []humastar.Action {
	actions := humastar.ActionsFor(b.ID, sessionActions)
	if b.Route.Active != nil {
		actions = append(actions, humastar.Action{
			Rel: "clear-route", Href: MapPath(b.ID) + "/route", Method: http.MethodDelete, Title: "Hapus rute",
		})
	}
	return actions
}

type MapInput struct {
	ID string `path:"id" doc:"Map session ID"`
}

type LayerToggleInput struct {
	MapInput
	Layer string `path:"layer" doc:"Layer ID" example:"bank-sampah"`
}

type EntityToggleInput struct {
	MapInput
	Kind string `path:"kind" enum:"pengepul,pengrajin,waste-offers" doc:"Entity kind"`
}

type MarkerActionInput struct {
	MapInput
	Marker string `path:"marker" doc:"Marker ID" example:"pengepul:p1"`
	Action string `path:"action" enum:"profile,whatsapp,route" doc:"Popup action"`
}

// SignalsMapInput is a session operation whose body is the page's Datastar
// signals.
type SignalsMapInput struct {
	MapInput
	humastar.SignalsInput
}

type StatusOutput struct {
	Body controller.OperationStatus
}

// MapHandler exposes the map controller operations.
type MapHandler struct {
	sessions *session.Manager
}

// NewMapHandler creates a map handler.
func NewMapHandler(sessions *session.Manager) *MapHandler {
	return &MapHandler{sessions: sessions}
}

// RegisterMaps registers the session routes.
func (h *MapHandler) RegisterMaps(api huma.API) {
	tags := huma.OperationTags("maps")
	huma.Post(api, "/api/v1/maps", h.CreateMap, tags, func(o *huma.Operation) {
		o.DefaultStatus = http.StatusCreated
	})
	huma.Delete(api, "/api/v1/maps/{id}", h.DeleteMap, tags)
	huma.Get(api, "/api/v1/maps/{id}/state", h.GetState, tags)
	huma.Post(api, "/api/v1/maps/{id}/layers/{layer}/toggle", h.ToggleLayer, tags)
	huma.Post(api, "/api/v1/maps/{id}/entities/{kind}/toggle", h.ToggleEntity, tags)
	huma.Post(api, "/api/v1/maps/{id}/search", h.Search, tags)
	huma.Post(api, "/api/v1/maps/{id}/location", h.Locate, tags)
	huma.Post(api, "/api/v1/maps/{id}/location/fix", h.ReportLocation, tags)
	huma.Post(api, "/api/v1/maps/{id}/route", h.ShowRoute, tags)
	huma.Delete(api, "/api/v1/maps/{id}/route", h.ClearRoute, tags)
	huma.Post(api, "/api/v1/maps/{id}/markers/{marker}/actions/{action}", h.InvokeAction, tags)
	huma.Post(api, "/api/v1/maps/{id}/tour", h.StartTour, tags)
}

// mapError turns controller and session errors into HTTP errors.
func mapError(err error) error {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return huma.Error404NotFound("map session not found")
	case errors.Is(err, controller.ErrMapNotReady):
		return huma.Error409Conflict("map not attached: open the event stream first")
	case errors.Is(err, controller.ErrClosed):
		return huma.Error410Gone("map session closed")
	case errors.Is(err, controller.ErrUnknownKind),
		errors.Is(err, controller.ErrUnknownMarker),
		errors.Is(err, controller.ErrUnknownAction):
		return huma.Error404NotFound(err.Error())
	case errors.Is(err, locate.ErrNoRequest):
		return huma.Error409Conflict(err.Error())
	}
	return huma.Error500InternalServerError("map operation failed", err)
}

func (h *MapHandler) get(id string) (*controller.Controller, error) {
	c, err := h.sessions.Get(id)
	if err != nil {
		return nil, mapError(err)
	}
	return c, nil
}

func status(st controller.OperationStatus, err error) (*StatusOutput, error) {
	if err != nil {
		return nil, mapError(err)
	}
	return &StatusOutput{Body: st}, nil
}

// CreateMap opens a map session. The page attaches by opening its event
// stream.
func (h *MapHandler) CreateMap(ctx context.Context, input *struct{}) (*struct{ Body SessionBody }, error) {
	c, err := h.sessions.Create()
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to create map session", err)
	}
	return &struct{ Body SessionBody }{Body: SessionBody{
		ID:     c.ID(),
		Href:   MapPath(c.ID()),
		Events: MapPath(c.ID()) + "/events",
	}}, nil
}

func (h *MapHandler) DeleteMap(ctx context.Context, input *MapInput) (*struct{}, error) {
	if err := h.sessions.Delete(input.ID); err != nil {
		return nil, mapError(err)
	}
	return nil, nil
}

func (h *MapHandler) GetState(ctx context.Context, input *MapInput) (*struct{ Body StateBody }, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return &struct{ Body StateBody }{Body: StateBody{c.GetState()}}, nil
}

func (h *MapHandler) ToggleLayer(ctx context.Context, input *LayerToggleInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return status(c.ToggleLayer(ctx, input.Layer))
}

func (h *MapHandler) ToggleEntity(ctx context.Context, input *EntityToggleInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return status(c.ToggleEntity(ctx, entity.Kind(input.Kind)))
}

// Search reads the query and mode signals.
func (h *MapHandler) Search(ctx context.Context, input *SignalsMapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	signals, err := input.Parse()
	if err != nil {
		return nil, err
	}
	return status(c.Search(ctx, signals.String("query"), signals.String("mode")))
}

func (h *MapHandler) Locate(ctx context.Context, input *MapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return status(c.GetUserLocation(ctx))
}

// ReportLocation receives the browser geolocation result: lat, lng and
// accuracy on success, or a non-zero code and message on failure.
func (h *MapHandler) ReportLocation(ctx context.Context, input *SignalsMapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	signals, err := input.Parse()
	if err != nil {
		return nil, err
	}

	code := signals.Int("code")
	if code == 0 && (!signals.Has("lat") || !signals.Has("lng")) {
		return nil, huma.Error422UnprocessableEntity("lat and lng are required")
	}
	fix := locate.Fix{
		Lat:      signals.Float("lat"),
		Lng:      signals.Float("lng"),
		Accuracy: signals.Float("accuracy"),
	}
	if err := c.ReportLocation(fix, code, signals.String("message")); err != nil {
		return nil, mapError(err)
	}
	return &StatusOutput{Body: controller.OperationStatus{OK: true, Outcome: controller.OutcomeReported}}, nil
}

// ShowRoute reads the lat, lng and name signals.
func (h *MapHandler) ShowRoute(ctx context.Context, input *SignalsMapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	signals, err := input.Parse()
	if err != nil {
		return nil, err
	}
	if !signals.Has("lat") || !signals.Has("lng") {
		return nil, huma.Error422UnprocessableEntity("lat and lng are required")
	}
	return status(c.ShowRoute(ctx, signals.Float("lat"), signals.Float("lng"), signals.String("name")))
}

func (h *MapHandler) ClearRoute(ctx context.Context, input *MapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return &StatusOutput{Body: c.ClearRoutes()}, nil
}

func (h *MapHandler) InvokeAction(ctx context.Context, input *MarkerActionInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return status(c.InvokeAction(ctx, input.Marker, input.Action))
}

func (h *MapHandler) StartTour(ctx context.Context, input *MapInput) (*StatusOutput, error) {
	c, err := h.get(input.ID)
	if err != nil {
		return nil, err
	}
	return &StatusOutput{Body: c.StartTour()}, nil
}
