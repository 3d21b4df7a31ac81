package daurinclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/server"
)

func newTestServer(t *testing.T) *Client {
	t.Helper()
	srv, err := server.New(server.Config{Host: "localhost", Port: "0"})
	require.NoError(t, err)
	ts := httptest.NewServer(srv)
	t.Cleanup(func() {
		ts.Close()
		srv.Close()
	})
	return New(ts.URL).WithHTTPClient(ts.Client())
}

func TestHealthAndInfo(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	h, err := c.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", h.Status)

	info, err := c.Info(ctx)
	require.NoError(t, err)
	assert.Equal(t, "daurin", info.Name)
	assert.True(t, info.Store)
	assert.Equal(t, "straight", info.Routing)
	assert.Contains(t, info.Features, "routing")
}

func TestLayers(t *testing.T) {
	c := newTestServer(t)

	ls, err := c.Layers(context.Background())
	require.NoError(t, err)
	require.Len(t, ls, 4)
	for _, l := range ls {
		assert.False(t, l.IsActive, l.ID)
	}
}

func TestSessionLifecycle(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	s, err := c.CreateMap(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	assert.Equal(t, "/api/v1/maps/"+s.ID+"/events", s.Events)

	st, err := c.State(ctx, s.ID)
	require.NoError(t, err)
	assert.False(t, st.Attached)
	assert.Equal(t, "empty", st.Facilities)
	assert.True(t, st.Route.Enabled)

	// Before the page attaches, toggles only queue.
	res, err := c.ToggleLayer(ctx, s.ID, "tpa")
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, "queued", res.Outcome)

	res, err = c.ToggleEntity(ctx, s.ID, "pengepul")
	require.NoError(t, err)
	assert.Equal(t, "queued", res.Outcome)

	st, err = c.State(ctx, s.ID)
	require.NoError(t, err)
	for _, l := range st.Layers {
		assert.Equal(t, l.ID == "tpa", l.IsActive, l.ID)
	}

	res, err = c.ToggleLayer(ctx, s.ID, "nope")
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, "not-found", res.Outcome)

	require.NoError(t, c.DeleteMap(ctx, s.ID))

	_, err = c.State(ctx, s.ID)
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.Status)
}

func TestSearchBeforeAttach(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	s, err := c.CreateMap(ctx)
	require.NoError(t, err)

	// Validation runs before the readiness check.
	res, err := c.Search(ctx, s.ID, "  ", "entity")
	require.NoError(t, err)
	assert.Equal(t, "invalid", res.Outcome)

	_, err = c.Search(ctx, s.ID, "Gubeng", "location")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
}

func TestUnknownEntityKind(t *testing.T) {
	c := newTestServer(t)
	ctx := context.Background()

	s, err := c.CreateMap(ctx)
	require.NoError(t, err)

	_, err = c.ToggleEntity(ctx, s.ID, "dragons")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusUnprocessableEntity, apiErr.Status)
}
