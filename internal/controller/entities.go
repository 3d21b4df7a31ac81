package controller

import (
	"context"
	"fmt"
	"maps"

	"github.com/joeblew999/daurin/internal/directory"
	"github.com/joeblew999/daurin/internal/entity"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/popup"
)

var entityIcons = map[entity.Kind]string{
	entity.KindPengepul:    "/static/icons/pengepul.svg",
	entity.KindPengrajin:   "/static/icons/pengrajin.svg",
	entity.KindWasteOffers: "/static/icons/waste-offer.svg",
}

// EntityIcons returns the marker icon URL of each entity kind.
func EntityIcons() map[entity.Kind]string {
	return maps.Clone(entityIcons)
}

func (c *Controller) newLoaders(src directory.Source) map[entity.Kind]entity.Runner {
	return map[entity.Kind]entity.Runner{
		entity.KindPengepul: entity.NewLoader(entity.KindPengepul, src.Pengepuls,
			func(rec model.CollectorRecord) (mapview.Marker, entity.Entry, bool, error) {
				return c.place(entity.KindPengepul, rec.ID, rec.CompanyName, rec.Coordinates, func(id string) (popup.Popup, error) {
					return c.popups.Collector(id, rec)
				})
			}, c.log),
		entity.KindPengrajin: entity.NewLoader(entity.KindPengrajin, src.Pengrajins,
			func(rec model.CrafterRecord) (mapview.Marker, entity.Entry, bool, error) {
				return c.place(entity.KindPengrajin, rec.ID, rec.Name, rec.Coordinates, func(id string) (popup.Popup, error) {
					return c.popups.Crafter(id, rec)
				})
			}, c.log),
		entity.KindWasteOffers: entity.NewLoader(entity.KindWasteOffers, src.WasteOffers,
			func(rec model.WasteOfferRecord) (mapview.Marker, entity.Entry, bool, error) {
				return c.place(entity.KindWasteOffers, rec.ID, rec.Title, rec.Coordinates, func(id string) (popup.Popup, error) {
					return c.popups.WasteOffer(id, rec)
				})
			}, c.log),
	}
}

func (c *Controller) place(kind entity.Kind, recID, name string, at model.Coordinates, render func(id string) (popup.Popup, error)) (mapview.Marker, entity.Entry, bool, error) {
	pos, has := at.Location()
	if !has {
		return mapview.Marker{}, entity.Entry{}, false, nil
	}
	id := MarkerID(string(kind), recID)
	pop, err := render(id)
	if err != nil {
		return mapview.Marker{}, entity.Entry{}, false, err
	}
	c.registerActions(id, pop, name, pos)
	mk := mapview.Marker{
		ID:       id,
		Group:    string(kind),
		Position: pos,
		Icon:     entityIcons[kind],
		Title:    name,
		Popup:    pop.HTML,
	}
	return mk, entity.Entry{MarkerID: id, Name: name, Position: pos}, true, nil
}

// TogglePengepul shows or hides collectors.
func (c *Controller) TogglePengepul(ctx context.Context) (OperationStatus, error) {
	return c.ToggleEntity(ctx, entity.KindPengepul)
}

// TogglePengrajin shows or hides crafters.
func (c *Controller) TogglePengrajin(ctx context.Context) (OperationStatus, error) {
	return c.ToggleEntity(ctx, entity.KindPengrajin)
}

// ToggleWasteOffers shows or hides waste offers.
func (c *Controller) ToggleWasteOffers(ctx context.Context) (OperationStatus, error) {
	return c.ToggleEntity(ctx, entity.KindWasteOffers)
}

// ToggleEntity toggles one entity kind. Before the map is attached the
// toggle is queued and replayed on Attach.
func (c *Controller) ToggleEntity(ctx context.Context, kind entity.Kind) (OperationStatus, error) {
	l, found := c.loaders[kind]
	if !found {
		return OperationStatus{}, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OperationStatus{}, ErrClosed
	}
	if !c.attached {
		c.pending[kind] = !c.pending[kind]
		c.mu.Unlock()
		return succeeded(OutcomeQueued, kindLabels[kind]), nil
	}
	c.mu.Unlock()

	st := c.entityStatus(l.Toggle(ctx, c.lockedCanvas()))
	c.publishState()
	return st, nil
}

func (c *Controller) entityStatus(res entity.Result) OperationStatus {
	label := kindLabels[res.Kind]
	switch res.Outcome {
	case entity.OutcomeFailed:
		c.log.Warn("entity load failed", "kind", res.Kind, "error", res.Err)
		return failure(OutcomeFailed, c.notify(mapview.LevelError, msgEntityFailed, label))
	case entity.OutcomeShown:
		st := succeeded(OutcomeShown, c.notify(mapview.LevelSuccess, msgEntityShown, res.Rendered, label))
		st.Count = res.Rendered
		return st
	case entity.OutcomeHidden:
		return succeeded(OutcomeHidden, label)
	case entity.OutcomeCancelled:
		return succeeded(OutcomeCancelled, label)
	}
	return succeeded(OutcomeStale, label)
}
