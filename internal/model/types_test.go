package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRatingWireForms(t *testing.T) {
	for in, want := range map[string]Rating{
		`4.5`:   RatingOf(4.5),
		`"4.2"`: RatingOf(4.2),
		`"N/A"`: {},
		`"n/a"`: {},
		`""`:    {},
		`null`:  {},
	} {
		var r Rating
		require.NoError(t, json.Unmarshal([]byte(in), &r), in)
		assert.Equal(t, want, r, in)
	}

	var r Rating
	assert.Error(t, json.Unmarshal([]byte(`"lima"`), &r))
}

func TestRatingString(t *testing.T) {
	assert.Equal(t, "4.5", RatingOf(4.5).String())
	assert.Equal(t, "N/A", Rating{}.String())
	assert.Equal(t, "N/A", RatingOf(0).String())

	b, err := json.Marshal(Rating{})
	require.NoError(t, err)
	assert.JSONEq(t, `"N/A"`, string(b))
}

func TestCoordinatesLocation(t *testing.T) {
	p, ok := At(-7.25, 112.75).Location()
	require.True(t, ok)
	assert.Equal(t, 112.75, p.Lon())
	assert.Equal(t, -7.25, p.Lat())

	lat := -7.25
	_, ok = Coordinates{Latitude: &lat}.Location()
	assert.False(t, ok)
}

func TestFacilitiesByCategory(t *testing.T) {
	var f Facilities
	require.NoError(t, f.Put(CategoryTPA, FacilityRecord{ID: "t1"}))
	assert.Error(t, f.Put("pasar", FacilityRecord{ID: "x"}))

	recs, ok := f.ByCategory(CategoryTPA)
	require.True(t, ok)
	assert.Len(t, recs, 1)

	_, ok = f.ByCategory("pasar")
	assert.False(t, ok)
}
