package mapui

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/starfederation/datastar-go/datastar"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/humastar"
	"github.com/joeblew999/daurin/internal/locate"
	"github.com/joeblew999/daurin/internal/mapview"
	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/session"
	"github.com/joeblew999/daurin/internal/templates"
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

func newSessions(t *testing.T) (*session.Manager, *templates.Renderer) {
	t.Helper()
	tmpl, err := templates.Default()
	require.NoError(t, err)
	m := session.NewManager(func(id string) (*controller.Controller, error) {
		return controller.New(controller.Options{ID: id, Source: emptySource{}, Templates: tmpl})
	}, time.Hour, nil)
	t.Cleanup(m.Close)
	return m, tmpl
}

func newSSE(rec *httptest.ResponseRecorder) humastar.SSE {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/maps/x/events", nil)
	return humastar.SSE{ServerSentEventGenerator: datastar.NewSSE(rec, req)}
}

func TestPageCreatesSession(t *testing.T) {
	sessions, tmpl := newSessions(t)
	h := NewPageHandler(sessions, tmpl, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, sessions.Len())
	body := rec.Body.String()
	assert.Contains(t, body, `id="layer-list"`)
	assert.Contains(t, body, "/events")
	assert.Contains(t, body, "Penawaran Sampah")
}

func TestPageUnknownPath(t *testing.T) {
	sessions, tmpl := newSessions(t)
	h := NewPageHandler(sessions, tmpl, nil)

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, 0, sessions.Len())
}

func TestSendStatePatchesLayerList(t *testing.T) {
	sessions, tmpl := newSessions(t)
	c, err := sessions.Create()
	require.NoError(t, err)
	h := NewEventHandler(sessions, humastar.Handler{Renderer: tmpl}, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, h.sendState(newSSE(rec), c.GetState()))

	out := rec.Body.String()
	assert.Contains(t, out, "datastar-patch-elements")
	assert.Contains(t, out, "#layer-list")
	assert.Contains(t, out, "/api/v1/maps/"+c.ID()+"/layers/tpa/toggle")
	assert.Contains(t, out, "datastar-patch-signals")
}

func TestSendNotifyAppendsToast(t *testing.T) {
	sessions, tmpl := newSessions(t)
	h := NewEventHandler(sessions, humastar.Handler{Renderer: tmpl}, nil)

	rec := httptest.NewRecorder()
	err := h.send(newSSE(rec), mapview.Event{
		Kind:         mapview.EventNotify,
		Notification: &mapview.Notification{Level: mapview.LevelError, Message: "Gagal memuat"},
	})
	require.NoError(t, err)

	out := rec.Body.String()
	assert.Contains(t, out, "#toasts")
	assert.Contains(t, out, "toast-error")
	assert.Contains(t, out, "Gagal memuat")
}

func TestSendMapEventDispatches(t *testing.T) {
	sessions, tmpl := newSessions(t)
	h := NewEventHandler(sessions, humastar.Handler{Renderer: tmpl}, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, h.send(newSSE(rec), mapview.Event{Kind: mapview.EventGroupCleared, Group: "tpa"}))

	out := rec.Body.String()
	assert.Contains(t, out, EventMap)
	assert.Contains(t, out, "group-cleared")
}

func TestSyncSendsSnapshotAndState(t *testing.T) {
	sessions, tmpl := newSessions(t)
	c, err := sessions.Create()
	require.NoError(t, err)
	c.Map().AddMarker(mapview.Marker{ID: "tpa:t1", Group: "tpa", Title: "TPA Benowo"})
	h := NewEventHandler(sessions, humastar.Handler{Renderer: tmpl}, nil)

	rec := httptest.NewRecorder()
	require.NoError(t, h.sync(newSSE(rec), c))

	out := rec.Body.String()
	assert.Contains(t, out, EventSnapshot)
	assert.Contains(t, out, "tpa:t1")
	assert.Contains(t, out, "#layer-list")
	assert.NotContains(t, out, "geolocate")
}

func TestSyncRepeatsPendingGeolocation(t *testing.T) {
	sessions, tmpl := newSessions(t)
	c, err := sessions.Create()
	require.NoError(t, err)
	c.Attach(context.Background())
	h := NewEventHandler(sessions, humastar.Handler{Renderer: tmpl}, nil)

	done := make(chan controller.OperationStatus, 1)
	go func() {
		st, _ := c.GetUserLocation(context.Background())
		done <- st
	}()
	require.Eventually(t, func() bool { return c.GetState().Location.Locating }, time.Second, 5*time.Millisecond)

	rec := httptest.NewRecorder()
	require.NoError(t, h.sync(newSSE(rec), c))
	assert.Contains(t, rec.Body.String(), "geolocate")

	require.Eventually(t, func() bool {
		return c.ReportLocation(locate.Fix{Lat: -7.25, Lng: 112.75}, 0, "") == nil
	}, time.Second, 5*time.Millisecond)
	select {
	case st := <-done:
		assert.Equal(t, controller.OutcomeLocated, st.Outcome)
	case <-time.After(time.Second):
		t.Fatal("location request did not finish")
	}
}
