package boundary

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"time"

	"github.com/paulmach/orb"
	"github.com/serjvanilla/go-overpass"
)

// Overpass loads administrative boundaries inside a named area from an
// Overpass API endpoint.
type Overpass struct {
	client      *overpass.Client
	area        string
	adminLevels string
	timeout     time.Duration
}

// NewOverpass creates an Overpass source. area is an OSM area name, e.g.
// "Kota Surabaya"; adminLevels is a regex over admin_level, e.g. "6|7|8".
func NewOverpass(endpoint, area, adminLevels string, timeout time.Duration) *Overpass {
	httpClient := &http.Client{
		Timeout: timeout,
	}
	client := overpass.NewWithSettings(endpoint, 1, httpClient)
	if adminLevels == "" {
		adminLevels = "6|7|8"
	}
	return &Overpass{
		client:      &client,
		area:        area,
		adminLevels: adminLevels,
		timeout:     timeout,
	}
}

func (o *Overpass) query() string {
	return fmt.Sprintf(`
		[out:json];
		area["name"="%s"]->.searchArea;
		(
			relation["boundary"="administrative"]["admin_level"~"^(%s)$"](area.searchArea);
		);
		out body;
		>;
		out skel qt;
	`, o.area, o.adminLevels)
}

// Regions runs the query. The client has no context support, so ctx only
// bounds how long the caller waits.
func (o *Overpass) Regions(ctx context.Context) ([]Region, error) {
	type result struct {
		res overpass.Result
		err error
	}
	ch := make(chan result, 1)
	go func() {
		res, err := o.client.Query(o.query())
		ch <- result{res, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		if r.err != nil {
			return nil, fmt.Errorf("overpass query failed: %w", r.err)
		}
		return convertRelations(&r.res), nil
	}
}

func convertRelations(res *overpass.Result) []Region {
	var regions []Region
	for _, rel := range res.Relations {
		name := rel.Tags["name"]
		if name == "" {
			continue
		}

		var bound orb.Bound
		seeded := false
		extend := func(lat, lon float64) {
			p := orb.Point{lon, lat}
			if !seeded {
				bound = p.Bound()
				seeded = true
				return
			}
			bound = bound.Extend(p)
		}

		if rel.Bounds != nil {
			extend(rel.Bounds.Min.Lat, rel.Bounds.Min.Lon)
			extend(rel.Bounds.Max.Lat, rel.Bounds.Max.Lon)
		} else {
			for _, m := range rel.Members {
				if m.Way == nil {
					continue
				}
				for _, n := range m.Way.Nodes {
					if n != nil {
						extend(n.Lat, n.Lon)
					}
				}
			}
		}
		if !seeded {
			continue
		}

		regions = append(regions, Region{
			Name:  name,
			Level: rel.Tags["admin_level"],
			Bound: bound,
		})
	}
	sort.Slice(regions, func(i, j int) bool { return regions[i].Name < regions[j].Name })
	return regions
}
