package api

import (
	"context"

	"github.com/danielgtaylor/huma/v2"

	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/store"
)

// DataHandler serves the collaborator records the map consumes.
type DataHandler struct {
	store *store.Store
}

// NewDataHandler creates a new data handler.
func NewDataHandler(s *store.Store) *DataHandler {
	return &DataHandler{store: s}
}

// RegisterData registers the collaborator endpoints.
func (h *DataHandler) RegisterData(api huma.API) {
	huma.Get(api, "/api/facilities", h.GetFacilities, huma.OperationTags("data"))
	huma.Get(api, "/api/pengepuls", h.GetPengepuls, huma.OperationTags("data"))
	huma.Get(api, "/api/pengrajins", h.GetPengrajins, huma.OperationTags("data"))
	huma.Get(api, "/api/waste-offers", h.GetWasteOffers, huma.OperationTags("data"))
}

// GetFacilities returns every facility keyed by category.
func (h *DataHandler) GetFacilities(ctx context.Context, input *struct{}) (*struct{ Body *model.Facilities }, error) {
	f, err := h.store.Facilities(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load facilities", err)
	}
	return &struct{ Body *model.Facilities }{Body: f}, nil
}

// GetPengepuls returns approved collectors.
func (h *DataHandler) GetPengepuls(ctx context.Context, input *struct{}) (*struct{ Body []model.CollectorRecord }, error) {
	recs, err := h.store.Pengepuls(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load pengepuls", err)
	}
	return &struct{ Body []model.CollectorRecord }{Body: recs}, nil
}

// GetPengrajins returns approved crafters.
func (h *DataHandler) GetPengrajins(ctx context.Context, input *struct{}) (*struct{ Body []model.CrafterRecord }, error) {
	recs, err := h.store.Pengrajins(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load pengrajins", err)
	}
	return &struct{ Body []model.CrafterRecord }{Body: recs}, nil
}

// GetWasteOffers returns available waste offers.
func (h *DataHandler) GetWasteOffers(ctx context.Context, input *struct{}) (*struct{ Body []model.WasteOfferRecord }, error) {
	recs, err := h.store.WasteOffers(ctx)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to load waste offers", err)
	}
	return &struct{ Body []model.WasteOfferRecord }{Body: recs}, nil
}
