// Package api defines the Huma API routes and handlers.
package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/daurin/internal/layers"
	"github.com/joeblew999/daurin/internal/session"
	"github.com/joeblew999/daurin/internal/store"
)

// Services holds the dependencies for API handlers.
type Services struct {
	Sessions *session.Manager
	Layers   *layers.Registry
	Store    *store.Store // nil when collaborator data comes from a remote API
	Routing  string       // routing engine name, empty when disabled
	DataDir  string
}

// Types

type HealthBody struct {
	Status  string `json:"status" doc:"Health status" example:"ok"`
	Version string `json:"version" doc:"API version" example:"1.0.0"`
}

type LayersOutput struct {
	Body []layers.Config
}

// APIHandler holds the REST API handlers. Methods named Register* are
// auto-discovered by huma.AutoRegister.
type APIHandler struct {
	svc     *Services
	version string
}

func NewAPIHandler(svc *Services, version string) *APIHandler {
	return &APIHandler{svc: svc, version: version}
}

// RegisterRoutes registers every REST route.
func RegisterRoutes(api huma.API, svc *Services, version string) {
	huma.AutoRegister(api, NewAPIHandler(svc, version))
	huma.AutoRegister(api, NewInfoHandler(svc, version))
	huma.AutoRegister(api, NewMapHandler(svc.Sessions))
	if svc.Store != nil {
		huma.AutoRegister(api, NewDataHandler(svc.Store))
	}
}

// RegisterHealth registers health check routes.
func (h *APIHandler) RegisterHealth(api huma.API) {
	huma.Get(api, "/health", h.GetHealth, huma.OperationTags("health"))
}

// RegisterLayers registers the read-only layer registry.
func (h *APIHandler) RegisterLayers(api huma.API) {
	huma.Get(api, "/api/v1/layers", h.GetLayers, huma.OperationTags("layers"))
}

// Handlers

func (h *APIHandler) GetHealth(ctx context.Context, input *struct{}) (*struct{ Body HealthBody }, error) {
	return &struct{ Body HealthBody }{Body: HealthBody{Status: "ok", Version: h.version}}, nil
}

// GetLayers lists the configured layers with their default flags.
func (h *APIHandler) GetLayers(ctx context.Context, input *struct{}) (*LayersOutput, error) {
	if h.svc == nil || h.svc.Layers == nil {
		return &LayersOutput{Body: []layers.Config{}}, nil
	}
	return &LayersOutput{Body: h.svc.Layers.List()}, nil
}
