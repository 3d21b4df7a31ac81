package server

import (
	"io/fs"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/templates"
)

func newServer(t *testing.T, cfg Config) *Server {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServesMapPage(t *testing.T) {
	s := newServer(t, Config{})

	rec := get(s, "/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Equal(t, 1, s.Sessions().Len())
}

func TestMetricsAndOpenAPI(t *testing.T) {
	s := newServer(t, Config{})

	assert.Equal(t, http.StatusOK, get(s, "/metrics").Code)

	paths := s.OpenAPI().Paths
	for _, p := range []string{
		"/health",
		"/api/v1/info",
		"/api/v1/layers",
		"/api/v1/maps",
		"/api/v1/maps/{id}/events",
		"/api/v1/maps/{id}/search",
		"/api/facilities",
	} {
		assert.Contains(t, paths, p)
	}
}

func TestRemoteDataHasNoStore(t *testing.T) {
	s := newServer(t, Config{DataURL: "http://collab.invalid/api"})

	assert.Nil(t, s.Store())
	assert.NotContains(t, s.OpenAPI().Paths, "/api/pengepuls")
}

func TestCORSPreflight(t *testing.T) {
	s := newServer(t, Config{AllowedOrigins: []string{"https://daurin.id"}})

	req := httptest.NewRequest(http.MethodOptions, "/api/v1/maps", nil)
	req.Header.Set("Origin", "https://daurin.id")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	assert.Equal(t, "https://daurin.id", rec.Header().Get("Access-Control-Allow-Origin"))
}

func TestLayersFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
layers:
  - id: tpa
    name: TPA
    icon: /static/icons/tpa.png
    source: tpa
    active: true
`), 0o644))

	s := newServer(t, Config{LayersFile: path})
	rec := get(s, "/api/v1/layers")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"isActive":true`)
}

func TestRoutingEngine(t *testing.T) {
	assert.Nil(t, routingEngine(Config{RouterURL: RouterNone}))
	assert.Equal(t, routing.StraightLine{}, routingEngine(Config{}))
	assert.Equal(t, "osrm", routingEngine(Config{RouterURL: "http://osrm.local"}).Name())
}

func TestEveryMarkerIconIsServed(t *testing.T) {
	s := newServer(t, Config{})

	icons := []string{}
	for _, l := range s.services.Layers.List() {
		icons = append(icons, l.Icon)
	}
	for _, icon := range controller.EntityIcons() {
		icons = append(icons, icon)
	}
	require.NotEmpty(t, icons)
	for _, icon := range icons {
		assert.Equal(t, http.StatusOK, get(s, icon).Code, icon)
	}
}

func TestTemplatesDirReload(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, fs.WalkDir(templates.Files, ".", func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		data, err := fs.ReadFile(templates.Files, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dir, path)
		if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
			return err
		}
		return os.WriteFile(target, data, 0o644)
	}))

	s := newServer(t, Config{TemplatesDir: dir})
	require.Equal(t, http.StatusOK, get(s, "/").Code)

	toast := `{{define "toast"}}<p class="toast-{{.Level}}">baru: {{.Message}}</p>{{end}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "fragments", "toast.html"), []byte(toast), 0o644))
	require.NoError(t, s.ReloadTemplates())

	out, err := s.renderer.Render("toast", map[string]string{"Level": "info", "Message": "ok"})
	require.NoError(t, err)
	assert.Contains(t, out, "baru: ok")

	embedded := newServer(t, Config{})
	assert.Error(t, embedded.ReloadTemplates())
}
