// Package routing computes paths between two points and keeps the single
// active route of a map.
package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
	"github.com/paulmach/orb/geojson"
)

// Path is a computed route.
type Path struct {
	Line      orb.LineString `json:"line"`
	DistanceM float64        `json:"distanceM"`
	DurationS float64        `json:"durationS,omitempty"`
}

// Engine computes a path from one point to another.
type Engine interface {
	Name() string
	Route(ctx context.Context, from, to orb.Point) (Path, error)
}

// StraightLine draws the great-circle segment between the two points.
type StraightLine struct{}

func (StraightLine) Name() string { return "straight" }

func (StraightLine) Route(_ context.Context, from, to orb.Point) (Path, error) {
	return Path{
		Line:      orb.LineString{from, to},
		DistanceM: geo.Distance(from, to),
	}, nil
}

// OSRM talks to an OSRM-compatible /route/v1 service.
type OSRM struct {
	baseURL string
	profile string
	client  *http.Client
}

// NewOSRM creates an OSRM engine. profile defaults to driving.
func NewOSRM(baseURL, profile string, timeout time.Duration) *OSRM {
	if profile == "" {
		profile = "driving"
	}
	return &OSRM{
		baseURL: strings.TrimRight(baseURL, "/"),
		profile: profile,
		client:  &http.Client{Timeout: timeout},
	}
}

func (o *OSRM) Name() string { return "osrm" }

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Geometry geojson.Geometry `json:"geometry"`
		Distance float64          `json:"distance"`
		Duration float64          `json:"duration"`
	} `json:"routes"`
}

// Route requests the full geometry as GeoJSON.
func (o *OSRM) Route(ctx context.Context, from, to orb.Point) (Path, error) {
	reqURL := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f?overview=full&geometries=geojson",
		o.baseURL, o.profile, from.Lon(), from.Lat(), to.Lon(), to.Lat())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return Path{}, err
	}
	resp, err := o.client.Do(req)
	if err != nil {
		return Path{}, fmt.Errorf("routing request: %w", err)
	}
	defer resp.Body.Close()

	var out osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Path{}, fmt.Errorf("decoding route (status %d): %w", resp.StatusCode, err)
	}
	if out.Code != "Ok" {
		return Path{}, fmt.Errorf("routing failed: %s %s", out.Code, out.Message)
	}
	if len(out.Routes) == 0 {
		return Path{}, fmt.Errorf("routing failed: no route")
	}

	r := out.Routes[0]
	line, ok := r.Geometry.Geometry().(orb.LineString)
	if !ok || len(line) < 2 {
		return Path{}, fmt.Errorf("routing failed: unexpected geometry")
	}
	return Path{Line: line, DistanceM: r.Distance, DurationS: r.Duration}, nil
}
