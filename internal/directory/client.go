// Package directory fetches marketplace records from the Daurin
// collaborator API.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/joeblew999/daurin/internal/metrics"
	"github.com/joeblew999/daurin/internal/model"
)

// Source is what the map needs from the collaborator API.
type Source interface {
	Facilities(ctx context.Context) (*model.Facilities, error)
	Pengepuls(ctx context.Context) ([]model.CollectorRecord, error)
	Pengrajins(ctx context.Context) ([]model.CrafterRecord, error)
	WasteOffers(ctx context.Context) ([]model.WasteOfferRecord, error)
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Path string
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: unexpected status code %d", e.Path, e.Code)
}

// Client implements Source over HTTP.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Facilities returns all facility records keyed by category.
func (c *Client) Facilities(ctx context.Context) (*model.Facilities, error) {
	var out model.Facilities
	if err := c.get(ctx, "/facilities", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Pengepuls returns approved collectors.
func (c *Client) Pengepuls(ctx context.Context) ([]model.CollectorRecord, error) {
	var out []model.CollectorRecord
	if err := c.get(ctx, "/pengepuls", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pengrajins returns approved crafters.
func (c *Client) Pengrajins(ctx context.Context) ([]model.CrafterRecord, error) {
	var out []model.CrafterRecord
	if err := c.get(ctx, "/pengrajins", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// WasteOffers returns visible waste offers.
func (c *Client) WasteOffers(ctx context.Context) ([]model.WasteOfferRecord, error) {
	var out []model.WasteOfferRecord
	if err := c.get(ctx, "/waste-offers", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) get(ctx context.Context, path string, into any) (err error) {
	start := time.Now()
	defer func() { metrics.ObserveFetch(strings.TrimPrefix(path, "/"), start, err) }()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return &StatusError{Path: path, Code: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(into); err != nil {
		return fmt.Errorf("decoding %s: %w", path, err)
	}
	return nil
}
