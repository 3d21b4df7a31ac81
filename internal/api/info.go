package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"
)

type InfoHandler struct {
	svc     *Services
	version string
}

func NewInfoHandler(svc *Services, version string) *InfoHandler {
	return &InfoHandler{svc: svc, version: version}
}

func (h *InfoHandler) RegisterInfo(api huma.API) {
	huma.Get(api, "/api/v1/info", h.GetInfo, huma.OperationTags("health"))
}

type InfoBody struct {
	Name     string   `json:"name" doc:"Service name"`
	Version  string   `json:"version" doc:"Service version"`
	DataDir  string   `json:"data_dir,omitempty" doc:"Data directory path"`
	Store    bool     `json:"store" doc:"Whether the local collaborator store is served"`
	Routing  string   `json:"routing" doc:"Routing engine, empty when routing is disabled"`
	Sessions int      `json:"sessions" doc:"Open map sessions"`
	Features []string `json:"features" doc:"Available features"`
}

func (h *InfoHandler) GetInfo(ctx context.Context, input *struct{}) (*struct{ Body InfoBody }, error) {
	body := InfoBody{
		Name:     "daurin",
		Version:  h.version,
		DataDir:  h.svc.DataDir,
		Store:    h.svc.Store != nil,
		Routing:  h.svc.Routing,
		Features: []string{"layers", "entities", "search", "geolocation", "tour"},
	}
	if h.svc.Sessions != nil {
		body.Sessions = h.svc.Sessions.Len()
	}
	if body.Routing != "" {
		body.Features = append(body.Features, "routing")
	}
	if body.Store {
		body.Features = append(body.Features, "duckdb")
	}
	return &struct{ Body InfoBody }{Body: body}, nil
}
