package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/model"
)

type emptySource struct{}

func (emptySource) Facilities(context.Context) (*model.Facilities, error) {
	return &model.Facilities{}, nil
}

func (emptySource) Pengepuls(context.Context) ([]model.CollectorRecord, error) {
	return nil, nil
}

func (emptySource) Pengrajins(context.Context) ([]model.CrafterRecord, error) {
	return nil, nil
}

func (emptySource) WasteOffers(context.Context) ([]model.WasteOfferRecord, error) {
	return nil, nil
}

func factory(id string) (*controller.Controller, error) {
	return controller.New(controller.Options{ID: id, Source: emptySource{}})
}

func TestCreateGetDelete(t *testing.T) {
	m := NewManager(factory, time.Minute, nil)

	c, err := m.Create()
	require.NoError(t, err)
	assert.Len(t, c.ID(), 36)

	got, err := m.Get(c.ID())
	require.NoError(t, err)
	assert.Same(t, c, got)

	require.NoError(t, m.Delete(c.ID()))
	_, err = m.Get(c.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, m.Delete(c.ID()), ErrNotFound)
}

func TestSweepExpiresIdleSessions(t *testing.T) {
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	m := NewManager(factory, 10*time.Minute, nil)
	m.now = func() time.Time { return now }

	idle, err := m.Create()
	require.NoError(t, err)
	streaming, err := m.Create()
	require.NoError(t, err)
	_, err = m.Acquire(streaming.ID())
	require.NoError(t, err)

	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, m.Sweep())

	_, err = m.Get(idle.ID())
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.Get(streaming.ID())
	assert.NoError(t, err)

	m.Release(streaming.ID())
	now = now.Add(11 * time.Minute)
	assert.Equal(t, 1, m.Sweep())
	assert.Zero(t, m.Len())
}

func TestCloseClosesControllers(t *testing.T) {
	m := NewManager(factory, time.Minute, nil)
	c, err := m.Create()
	require.NoError(t, err)

	m.Close()
	assert.Zero(t, m.Len())
	_, err = c.ToggleLayer(context.Background(), "tpa")
	assert.ErrorIs(t, err, controller.ErrClosed)
}
