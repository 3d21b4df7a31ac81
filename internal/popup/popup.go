// Package popup renders the info window bound to each map marker.
//
// Every renderer is a pure function of one record. Text is interpolated by
// html/template, and action buttons only ever reference the marker id: the
// record's display name never ends up inside an action handler.
package popup

import (
	"fmt"
	"html/template"

	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/templates"
)

// Popup is a rendered info window plus its actions.
type Popup struct {
	MarkerID string        `json:"markerId"`
	Title    string        `json:"title"`
	HTML     template.HTML `json:"html"`
	Actions  []Action      `json:"actions"`
}

// Has reports whether the popup carries an action with the given rel.
func (p Popup) Has(rel string) bool {
	for _, a := range p.Actions {
		if a.Rel == rel {
			return true
		}
	}
	return false
}

// Renderer renders popups for one map session. Base is the session's API
// path, used to address marker actions.
type Renderer struct {
	tmpl *templates.Renderer
	base string
}

// NewRenderer creates a popup renderer.
func NewRenderer(tmpl *templates.Renderer, base string) *Renderer {
	return &Renderer{tmpl: tmpl, base: base}
}

// ActionURL is the endpoint the page posts to for a marker action.
func (r *Renderer) ActionURL(markerID, rel string) string {
	return fmt.Sprintf("%s/markers/%s/actions/%s", r.base, markerID, rel)
}

type ratedView struct {
	MarkerID string
	Rating   string
	Reviews  int
	Actions  []Action
}

// RatingLabel is the score shown on a popup: one decimal, or N/A when the
// record has no valid rating or no reviews behind it.
func RatingLabel(r model.Rating, reviews int) string {
	if reviews <= 0 {
		return "N/A"
	}
	return r.String()
}

// Collector renders a pengepul popup.
func (r *Renderer) Collector(markerID string, rec model.CollectorRecord) (Popup, error) {
	actions := r.actions(markerID, "/pengepul/%s", rec.ID, rec.WhatsApp, rec.Coordinates)
	view := struct {
		ratedView
		Rec model.CollectorRecord
	}{ratedView{markerID, RatingLabel(rec.Rating, rec.ReviewCount), rec.ReviewCount, actions}, rec}
	return r.render("popup-pengepul", markerID, rec.CompanyName, actions, view)
}

// Crafter renders a pengrajin popup.
func (r *Renderer) Crafter(markerID string, rec model.CrafterRecord) (Popup, error) {
	actions := r.actions(markerID, "/pengrajin/%s", rec.ID, rec.WhatsApp, rec.Coordinates)
	view := struct {
		ratedView
		Rec model.CrafterRecord
	}{ratedView{markerID, RatingLabel(rec.Rating, rec.ReviewCount), rec.ReviewCount, actions}, rec}
	return r.render("popup-pengrajin", markerID, rec.Name, actions, view)
}

// WasteOffer renders a waste offer popup. The price is shown only for SELL
// offers that carry one.
func (r *Renderer) WasteOffer(markerID string, rec model.WasteOfferRecord) (Popup, error) {
	actions := r.actions(markerID, "/waste-offers/%s", rec.ID, rec.WhatsApp, rec.Coordinates)
	view := struct {
		MarkerID string
		Kind     string
		Badge    string
		Price    string
		Actions  []Action
		Rec      model.WasteOfferRecord
	}{MarkerID: markerID, Actions: actions, Rec: rec}

	if rec.OfferType == model.OfferSell {
		view.Kind, view.Badge = "sell", "Dijual"
		if rec.Price != nil {
			view.Price = templates.Rupiah(*rec.Price)
		}
	} else {
		view.Kind, view.Badge = "donate", "Donasi"
	}
	return r.render("popup-waste-offer", markerID, rec.Title, actions, view)
}

// Facility renders a facility popup for the named layer.
func (r *Renderer) Facility(markerID, layerName string, rec model.FacilityRecord) (Popup, error) {
	actions := r.actions(markerID, "/facilities/%s", rec.ID, "", rec.Coordinates)
	view := struct {
		MarkerID string
		Layer    string
		Actions  []Action
		Rec      model.FacilityRecord
	}{markerID, layerName, actions, rec}
	return r.render("popup-facility", markerID, rec.Name, actions, view)
}

func (r *Renderer) actions(markerID, profilePattern, id, whatsapp string, at model.Coordinates) []Action {
	actions := []Action{profileAction(profilePattern, id)}
	if n := WhatsAppNumber(whatsapp); n != "" {
		actions = append(actions, whatsAppAction.For(n))
	}
	if _, ok := at.Location(); ok {
		actions = append(actions, routeAction.For(r.ActionURL(markerID, RelRoute)))
	}
	return actions
}

func (r *Renderer) render(tmpl, markerID, title string, actions []Action, view any) (Popup, error) {
	html, err := r.tmpl.Render(tmpl, view)
	if err != nil {
		return Popup{}, fmt.Errorf("rendering %s: %w", tmpl, err)
	}
	return Popup{
		MarkerID: markerID,
		Title:    title,
		HTML:     template.HTML(html),
		Actions:  actions,
	}, nil
}
