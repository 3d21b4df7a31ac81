// Package daurinclient is a small Go client for the daurin map API.
//
// It drives a map session the way the page does: create a session, toggle
// layers and entities, search, route and read back the state.
package daurinclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Status is the result of a map operation.
type Status struct {
	OK      bool   `json:"ok"`
	Outcome string `json:"outcome"`
	Message string `json:"message,omitempty"`
	Count   int    `json:"count,omitempty"`
}

// Session identifies a map session.
type Session struct {
	ID     string `json:"id"`
	Href   string `json:"href"`
	Events string `json:"events"`
}

// Health is the health check body.
type Health struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// Info describes the server.
type Info struct {
	Name     string   `json:"name"`
	Version  string   `json:"version"`
	Store    bool     `json:"store"`
	Routing  string   `json:"routing"`
	Sessions int      `json:"sessions"`
	Features []string `json:"features"`
}

// Layer is one facility layer toggle.
type Layer struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Source   string `json:"source"`
	IsActive bool   `json:"isActive"`
}

// EntityState is one collaborator loader.
type EntityState struct {
	Phase   string `json:"phase"`
	Loading bool   `json:"loading"`
	Visible bool   `json:"visible"`
	Count   int    `json:"count"`
}

// State is a map session's state.
type State struct {
	ID         string                 `json:"id"`
	Attached   bool                   `json:"attached"`
	Center     [2]float64             `json:"center"`
	Zoom       float64                `json:"zoom"`
	OpenPopup  string                 `json:"openPopup,omitempty"`
	Layers     []Layer                `json:"layers"`
	Facilities string                 `json:"facilities"`
	Entities   map[string]EntityState `json:"entities"`
	Route      Route                  `json:"route"`
}

// Route is the active route of a session.
type Route struct {
	Enabled     bool         `json:"isEnabled"`
	Path        [][2]float64 `json:"activePath,omitempty"`
	Destination *struct {
		Name  string     `json:"name"`
		Point [2]float64 `json:"point"`
	} `json:"destination,omitempty"`
	DistanceM float64 `json:"distanceM,omitempty"`
}

// Error is a non-2xx API response.
type Error struct {
	Status int    `json:"status"`
	Title  string `json:"title"`
	Detail string `json:"detail"`
}

func (e *Error) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%d %s: %s", e.Status, e.Title, e.Detail)
	}
	return fmt.Sprintf("%d %s", e.Status, e.Title)
}

// Client talks to one daurin server.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the server at baseURL.
func New(baseURL string) *Client {
	return &Client{base: baseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(h *http.Client) *Client {
	c.http = h
	return c
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, r)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		e := &Error{Status: resp.StatusCode, Title: http.StatusText(resp.StatusCode)}
		_ = json.NewDecoder(resp.Body).Decode(e)
		return e
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func mapPath(id string) string { return "/api/v1/maps/" + url.PathEscape(id) }

// Health checks the server.
func (c *Client) Health(ctx context.Context) (Health, error) {
	var h Health
	return h, c.do(ctx, http.MethodGet, "/health", nil, &h)
}

// Info describes the server.
func (c *Client) Info(ctx context.Context) (Info, error) {
	var i Info
	return i, c.do(ctx, http.MethodGet, "/api/v1/info", nil, &i)
}

// Layers lists the configured layers.
func (c *Client) Layers(ctx context.Context) ([]Layer, error) {
	var l []Layer
	return l, c.do(ctx, http.MethodGet, "/api/v1/layers", nil, &l)
}

// CreateMap opens a map session.
func (c *Client) CreateMap(ctx context.Context) (Session, error) {
	var s Session
	return s, c.do(ctx, http.MethodPost, "/api/v1/maps", nil, &s)
}

// DeleteMap closes a map session.
func (c *Client) DeleteMap(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, mapPath(id), nil, nil)
}

// State reads a session's state.
func (c *Client) State(ctx context.Context, id string) (State, error) {
	var s State
	return s, c.do(ctx, http.MethodGet, mapPath(id)+"/state", nil, &s)
}

// ToggleLayer flips a facility layer.
func (c *Client) ToggleLayer(ctx context.Context, id, layer string) (Status, error) {
	var s Status
	return s, c.do(ctx, http.MethodPost, mapPath(id)+"/layers/"+url.PathEscape(layer)+"/toggle", nil, &s)
}

// ToggleEntity flips a collaborator kind: pengepul, pengrajin or waste-offers.
func (c *Client) ToggleEntity(ctx context.Context, id, kind string) (Status, error) {
	var s Status
	return s, c.do(ctx, http.MethodPost, mapPath(id)+"/entities/"+url.PathEscape(kind)+"/toggle", nil, &s)
}

// Search looks up a region (mode "location") or a visible collaborator
// (mode "entity").
func (c *Client) Search(ctx context.Context, id, query, mode string) (Status, error) {
	var s Status
	body := map[string]string{"query": query, "mode": mode}
	return s, c.do(ctx, http.MethodPost, mapPath(id)+"/search", body, &s)
}

// ShowRoute draws a route to the destination.
func (c *Client) ShowRoute(ctx context.Context, id string, lat, lng float64, name string) (Status, error) {
	var s Status
	body := map[string]any{"lat": lat, "lng": lng, "name": name}
	return s, c.do(ctx, http.MethodPost, mapPath(id)+"/route", body, &s)
}

// ClearRoute removes the route.
func (c *Client) ClearRoute(ctx context.Context, id string) (Status, error) {
	var s Status
	return s, c.do(ctx, http.MethodDelete, mapPath(id)+"/route", nil, &s)
}

// StartTour sends the guided tour to the page.
func (c *Client) StartTour(ctx context.Context, id string) (Status, error) {
	var s Status
	return s, c.do(ctx, http.MethodPost, mapPath(id)+"/tour", nil, &s)
}
