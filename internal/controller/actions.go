package controller

import (
	"context"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/popup"
)

// ActionFunc is a typed marker callback.
type ActionFunc func(ctx context.Context) (OperationStatus, error)

// actionRegistry maps marker ids to their popup callbacks. Entries outlive
// their markers; InvokeAction only runs callbacks of markers on the map.
type actionRegistry struct {
	mu       sync.RWMutex
	byMarker map[string]map[string]ActionFunc
}

func newActionRegistry() *actionRegistry {
	return &actionRegistry{byMarker: make(map[string]map[string]ActionFunc)}
}

func (r *actionRegistry) set(markerID string, fns map[string]ActionFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byMarker[markerID] = fns
}

func (r *actionRegistry) get(markerID, rel string) (ActionFunc, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, found := r.byMarker[markerID][rel]
	return fn, found
}

// registerActions binds a popup's actions to callbacks. The destination
// name is captured here, so the markup never has to carry it.
func (c *Controller) registerActions(markerID string, pop popup.Popup, name string, pos orb.Point) {
	fns := make(map[string]ActionFunc, len(pop.Actions))
	for _, a := range pop.Actions {
		switch a.Rel {
		case popup.RelRoute:
			fns[a.Rel] = func(ctx context.Context) (OperationStatus, error) {
				return c.ShowRoute(ctx, pos.Lat(), pos.Lon(), name)
			}
		default:
			href := a.Href
			fns[a.Rel] = func(context.Context) (OperationStatus, error) {
				return succeeded(OutcomeLink, href), nil
			}
		}
	}
	c.actions.set(markerID, fns)
}

// InvokeAction runs a popup action of a marker currently on the map.
func (c *Controller) InvokeAction(ctx context.Context, markerID, rel string) (OperationStatus, error) {
	if err := c.ready(); err != nil {
		return OperationStatus{}, err
	}
	if _, onMap := c.m.Marker(markerID); !onMap {
		return OperationStatus{}, fmt.Errorf("%w: %s", ErrUnknownMarker, markerID)
	}
	fn, found := c.actions.get(markerID, rel)
	if !found {
		return OperationStatus{}, fmt.Errorf("%w: %s on %s", ErrUnknownAction, rel, markerID)
	}
	return fn(ctx)
}

// TourStep is one stop of the guided tour.
type TourStep struct {
	Target string `json:"target" doc:"CSS selector of the highlighted element"`
	Title  string `json:"title"`
	Body   string `json:"body"`
}

// TourSteps is the guided tour of the map controls.
var TourSteps = []TourStep{
	{Target: "#layer-panel", Title: "Layer fasilitas", Body: "Tampilkan bank sampah, TPA, dan TPST 3R di peta."},
	{Target: "#entity-toggles", Title: "Mitra Daurin", Body: "Lihat pengepul, pengrajin, dan penawaran sampah terdekat."},
	{Target: "#map-search", Title: "Pencarian", Body: "Cari kecamatan atau nama mitra yang sedang tampil."},
	{Target: "#locate-btn", Title: "Lokasi saya", Body: "Pusatkan peta ke posisi Anda."},
	{Target: ".popup-btn-route", Title: "Rute", Body: "Tekan Rute pada popup untuk melihat jalur ke lokasi."},
}

// StartTour sends the tour steps to the page.
func (c *Controller) StartTour() OperationStatus {
	c.m.Publish(mapview.Event{Kind: mapview.EventTour, Payload: TourSteps})
	return succeeded(OutcomeStarted, "")
}
