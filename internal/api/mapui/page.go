package mapui

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/entity"
	"github.com/joeblew999/daurin/internal/session"
	"github.com/joeblew999/daurin/internal/templates"
)

var entityButtons = []struct {
	Kind  entity.Kind
	Label string
}{
	{entity.KindPengepul, "Pengepul"},
	{entity.KindPengrajin, "Pengrajin"},
	{entity.KindWasteOffers, "Penawaran Sampah"},
}

// PageData is what the map page template renders.
type PageData struct {
	Base          string
	Events        string
	Lat, Lng      float64
	Zoom          float64
	Signals       string
	Entities      any
	SnapshotEvent string
	MapEvent      string
}

// PageHandler serves the map page. Every page load opens a new session.
type PageHandler struct {
	sessions *session.Manager
	renderer *templates.Renderer
	log      *slog.Logger
}

// NewPageHandler creates a page handler.
func NewPageHandler(sessions *session.Manager, renderer *templates.Renderer, log *slog.Logger) *PageHandler {
	if log == nil {
		log = slog.Default()
	}
	return &PageHandler{sessions: sessions, renderer: renderer, log: log}
}

func (h *PageHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	c, err := h.sessions.Create()
	if err != nil {
		h.log.Error("creating map session", "error", err)
		http.Error(w, "Failed to create map session", http.StatusInternalServerError)
		return
	}

	data, err := pageData(c)
	if err != nil {
		h.log.Error("building page data", "map", c.ID(), "error", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	html, err := h.renderer.Render("page-map", data)
	if err != nil {
		h.log.Error("rendering map page", "map", c.ID(), "error", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	_, _ = w.Write([]byte(html))
}

func pageData(c *controller.Controller) (PageData, error) {
	st := c.GetState()
	signals, err := json.Marshal(map[string]any{
		"query": "",
		"mode":  "entity",
		"map":   st,
	})
	if err != nil {
		return PageData{}, err
	}
	base := "/api/v1/maps/" + c.ID()
	return PageData{
		Base:          base,
		Events:        base + "/events",
		Lat:           st.Center.Lat(),
		Lng:           st.Center.Lon(),
		Zoom:          st.Zoom,
		Signals:       string(signals),
		Entities:      entityButtons,
		SnapshotEvent: EventSnapshot,
		MapEvent:      EventMap,
	}, nil
}
