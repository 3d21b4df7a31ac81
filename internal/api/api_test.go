package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/humatest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/db"
	"github.com/joeblew999/daurin/internal/layers"
	"github.com/joeblew999/daurin/internal/model"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/session"
	"github.com/joeblew999/daurin/internal/store"
)

func seed() *store.Seed {
	return &store.Seed{
		Facilities: model.Facilities{
			TPA: []model.FacilityRecord{{ID: "t1", Name: "TPA Benowo", Coordinates: model.At(-7.2275, 112.6190)}},
		},
		Pengepuls: []store.SeedCollector{
			{CollectorRecord: model.CollectorRecord{ID: "p1", CompanyName: "CV Sumber Rejeki", WhatsApp: "0812", Coordinates: model.At(-7.26, 112.75)}},
			{CollectorRecord: model.CollectorRecord{ID: "p2", CompanyName: "Belum Disetujui", Coordinates: model.At(-7.27, 112.76)}, Status: store.StatusPending},
		},
	}
}

type testEnv struct {
	api      humatest.TestAPI
	sessions *session.Manager
	store    *store.Store
}

func newEnv(t *testing.T) testEnv {
	t.Helper()
	conn, err := db.Open(db.Config{})
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	st := store.New(conn, nil)
	require.NoError(t, st.Migrate(context.Background()))
	_, err = st.Load(context.Background(), seed())
	require.NoError(t, err)

	reg, err := layers.New(layers.Defaults())
	require.NoError(t, err)

	sessions := session.NewManager(func(id string) (*controller.Controller, error) {
		return controller.New(controller.Options{
			ID:       id,
			Source:   st,
			Layers:   reg,
			Engine:   routing.StraightLine{},
			BasePath: MapPath(id),
		})
	}, time.Hour, nil)
	t.Cleanup(sessions.Close)

	cfg := huma.DefaultConfig("daurin test", "test")
	cfg.CreateHooks = nil
	cfg.Transformers = append(cfg.Transformers, LinkTransformer())
	_, api := humatest.New(t, cfg)
	RegisterRoutes(api, &Services{Sessions: sessions, Layers: reg, Store: st, Routing: "straight"}, "test")
	return testEnv{api: api, sessions: sessions, store: st}
}

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func hasLink(resp http.Header, fragment string) bool {
	for _, l := range resp.Values("Link") {
		if strings.Contains(l, fragment) {
			return true
		}
	}
	return false
}

func (e testEnv) create(t *testing.T) SessionBody {
	t.Helper()
	resp := e.api.Post("/api/v1/maps")
	require.Equal(t, http.StatusCreated, resp.Code, resp.Body.String())
	return decode[SessionBody](t, resp.Body.Bytes())
}

func (e testEnv) attach(t *testing.T, id string) *controller.Controller {
	t.Helper()
	c, err := e.sessions.Get(id)
	require.NoError(t, err)
	c.Attach(context.Background())
	return c
}

func TestHealth(t *testing.T) {
	env := newEnv(t)

	resp := env.api.Get("/health")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, "ok", decode[HealthBody](t, resp.Body.Bytes()).Status)
	assert.True(t, hasLink(resp.Header(), `rel="maps"`))
}

func TestInfo(t *testing.T) {
	env := newEnv(t)

	resp := env.api.Get("/api/v1/info")
	require.Equal(t, http.StatusOK, resp.Code)
	info := decode[InfoBody](t, resp.Body.Bytes())
	assert.Equal(t, "daurin", info.Name)
	assert.True(t, info.Store)
	assert.Contains(t, info.Features, "routing")
	assert.Contains(t, info.Features, "duckdb")
}

func TestLayers(t *testing.T) {
	env := newEnv(t)

	resp := env.api.Get("/api/v1/layers")
	require.Equal(t, http.StatusOK, resp.Code)
	ls := decode[[]layers.Config](t, resp.Body.Bytes())
	assert.Len(t, ls, 4)
}

func TestDataEndpointsFilterByStatus(t *testing.T) {
	env := newEnv(t)

	resp := env.api.Get("/api/pengepuls")
	require.Equal(t, http.StatusOK, resp.Code)
	recs := decode[[]model.CollectorRecord](t, resp.Body.Bytes())
	require.Len(t, recs, 1)
	assert.Equal(t, "p1", recs[0].ID)

	resp = env.api.Get("/api/facilities")
	require.Equal(t, http.StatusOK, resp.Code)
	f := decode[model.Facilities](t, resp.Body.Bytes())
	assert.Len(t, f.TPA, 1)
}

func TestCreateMapLinks(t *testing.T) {
	env := newEnv(t)

	resp := env.api.Post("/api/v1/maps")
	require.Equal(t, http.StatusCreated, resp.Code)
	s := decode[SessionBody](t, resp.Body.Bytes())
	assert.Equal(t, MapPath(s.ID), s.Href)
	assert.True(t, hasLink(resp.Header(), `</api/v1/maps/`+s.ID+`/events>; rel="events"; method="GET"`))
	assert.True(t, hasLink(resp.Header(), `rel="delete"; method="DELETE"`))
}

func TestUnknownSession(t *testing.T) {
	env := newEnv(t)

	assert.Equal(t, http.StatusNotFound, env.api.Get("/api/v1/maps/missing/state").Code)
	assert.Equal(t, http.StatusNotFound, env.api.Post("/api/v1/maps/missing/layers/tpa/toggle").Code)
	assert.Equal(t, http.StatusNotFound, env.api.Delete("/api/v1/maps/missing").Code)
}

func TestToggleFlow(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)

	resp := env.api.Post(MapPath(s.ID) + "/layers/tpa/toggle")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, controller.OutcomeQueued, decode[controller.OperationStatus](t, resp.Body.Bytes()).Outcome)

	env.attach(t, s.ID)

	resp = env.api.Post(MapPath(s.ID) + "/entities/pengepul/toggle")
	require.Equal(t, http.StatusOK, resp.Code)
	st := decode[controller.OperationStatus](t, resp.Body.Bytes())
	assert.Equal(t, controller.OutcomeShown, st.Outcome)
	assert.Equal(t, 1, st.Count)

	resp = env.api.Get(MapPath(s.ID) + "/state")
	require.Equal(t, http.StatusOK, resp.Code)
	state := decode[controller.State](t, resp.Body.Bytes())
	assert.True(t, state.Attached)
	assert.Equal(t, "populated", state.Facilities)
	assert.True(t, state.Entities["pengepul"].Visible)
}

func TestNotAttachedConflicts(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)

	resp := env.api.Post(MapPath(s.ID)+"/search", map[string]any{"query": "Gubeng", "mode": "location"})
	assert.Equal(t, http.StatusConflict, resp.Code)

	resp = env.api.Post(MapPath(s.ID)+"/route", map[string]any{"lat": -7.26, "lng": 112.75})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestRouteRequiresCoordinates(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)
	env.attach(t, s.ID)

	resp := env.api.Post(MapPath(s.ID)+"/route", map[string]any{"name": "TPA Benowo"})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.Code)
}

func TestRouteAndClear(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)
	env.attach(t, s.ID)

	resp := env.api.Post(MapPath(s.ID)+"/route", map[string]any{"lat": -7.2275, "lng": 112.6190, "name": "TPA Benowo"})
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, controller.OutcomeRouted, decode[controller.OperationStatus](t, resp.Body.Bytes()).Outcome)

	resp = env.api.Get(MapPath(s.ID) + "/state")
	assert.True(t, hasLink(resp.Header(), `rel="clear-route"; method="DELETE"`))

	resp = env.api.Delete(MapPath(s.ID) + "/route")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, controller.OutcomeCleared, decode[controller.OperationStatus](t, resp.Body.Bytes()).Outcome)

	resp = env.api.Get(MapPath(s.ID) + "/state")
	assert.False(t, hasLink(resp.Header(), `rel="clear-route"`))
}

func TestMarkerActions(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)
	env.attach(t, s.ID)

	require.Equal(t, http.StatusOK, env.api.Post(MapPath(s.ID)+"/entities/pengepul/toggle").Code)

	marker := controller.MarkerID("pengepul", "p1")
	resp := env.api.Post(MapPath(s.ID) + "/markers/" + marker + "/actions/route")
	require.Equal(t, http.StatusOK, resp.Code, resp.Body.String())
	assert.Equal(t, controller.OutcomeRouted, decode[controller.OperationStatus](t, resp.Body.Bytes()).Outcome)

	resp = env.api.Post(MapPath(s.ID) + "/markers/pengepul:zz/actions/route")
	assert.Equal(t, http.StatusNotFound, resp.Code)
}

func TestReportLocationFailure(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)
	env.attach(t, s.ID)

	// No pending request: the page report has nobody to deliver to.
	resp := env.api.Post(MapPath(s.ID)+"/location/fix", map[string]any{"code": 1, "message": "denied"})
	assert.Equal(t, http.StatusConflict, resp.Code)
}

func TestTourAndDelete(t *testing.T) {
	env := newEnv(t)
	s := env.create(t)

	resp := env.api.Post(MapPath(s.ID) + "/tour")
	require.Equal(t, http.StatusOK, resp.Code)
	assert.Equal(t, controller.OutcomeStarted, decode[controller.OperationStatus](t, resp.Body.Bytes()).Outcome)

	assert.Equal(t, http.StatusNoContent, env.api.Delete(MapPath(s.ID)).Code)
	assert.Equal(t, 0, env.sessions.Len())
}
