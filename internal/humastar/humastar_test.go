package humastar

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSignals(t *testing.T) {
	s, err := ParseSignals([]byte(`{"query":"gubeng","mode":"location","lat":-7.25,"zoom":13}`))
	require.NoError(t, err)
	assert.Equal(t, "gubeng", s.String("query"))
	assert.Equal(t, -7.25, s.Float("lat"))
	assert.Equal(t, 13, s.Int("zoom"))
	assert.True(t, s.Has("mode"))
	assert.Empty(t, s.String("missing"))

	s, err = ParseSignals(nil)
	require.NoError(t, err)
	assert.Empty(t, s)

	in := SignalsInput{RawBody: []byte("{")}
	_, err = in.Parse()
	assert.Error(t, err)
}

func TestActionsFor(t *testing.T) {
	actions := ActionsFor("42", []ActionDef{
		{Rel: "events", Pattern: "/api/v1/maps/%s/events", Method: "GET"},
		{Rel: "clear-route", Pattern: "/api/v1/maps/%s/route", Method: "DELETE", Title: "Hapus rute"},
	})
	require.Len(t, actions, 2)
	assert.Equal(t, `</api/v1/maps/42/events>; rel="events"; method="GET"`, actions[0].LinkHeader())
	assert.Equal(t, `</api/v1/maps/42/route>; rel="clear-route"; method="DELETE"; title="Hapus rute"`, actions[1].LinkHeader())
}

func TestActionCallback(t *testing.T) {
	assert.False(t, Action{Rel: "profile", Href: "/pengepul/1", Method: "GET"}.Callback())
	assert.False(t, Action{Rel: "self", Href: "/health"}.Callback())
	assert.True(t, Action{Rel: "route", Href: "/api/v1/maps/1/markers/x/actions/route", Method: "POST"}.Callback())
}
