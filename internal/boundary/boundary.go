// Package boundary provides named administrative regions (kecamatan,
// kelurahan, kota) used by location search.
package boundary

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Region is a named area and its bounding box.
type Region struct {
	Name  string    `json:"name"`
	Level string    `json:"level,omitempty"`
	Bound orb.Bound `json:"bound"`
}

// Source lists known regions.
type Source interface {
	Regions(ctx context.Context) ([]Region, error)
}

// Static is a fixed region list.
type Static []Region

// Regions returns the list.
func (s Static) Regions(context.Context) ([]Region, error) { return s, nil }

// GeoJSONFile reads regions from a FeatureCollection on disk. The region
// name comes from the first non-empty property in NameProps.
type GeoJSONFile struct {
	Path      string
	NameProps []string
}

// DefaultNameProps are tried in order when NameProps is empty.
var DefaultNameProps = []string{"name", "NAMOBJ", "WADMKC", "WADMKD", "kecamatan", "kelurahan"}

// Regions parses the file.
func (f GeoJSONFile) Regions(ctx context.Context) ([]Region, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("reading boundaries: %w", err)
	}
	return ParseGeoJSON(data, f.NameProps)
}

// ParseGeoJSON extracts regions from a FeatureCollection. Features without
// a name or geometry are skipped.
func ParseGeoJSON(data []byte, nameProps []string) ([]Region, error) {
	fc, err := geojson.UnmarshalFeatureCollection(data)
	if err != nil {
		return nil, fmt.Errorf("parsing boundaries: %w", err)
	}
	if len(nameProps) == 0 {
		nameProps = DefaultNameProps
	}

	regions := make([]Region, 0, len(fc.Features))
	for _, feat := range fc.Features {
		if feat.Geometry == nil {
			continue
		}
		name := ""
		for _, p := range nameProps {
			if v := strings.TrimSpace(feat.Properties.MustString(p, "")); v != "" {
				name = v
				break
			}
		}
		if name == "" {
			continue
		}
		regions = append(regions, Region{
			Name:  name,
			Level: feat.Properties.MustString("level", ""),
			Bound: feat.Geometry.Bound(),
		})
	}
	return regions, nil
}
