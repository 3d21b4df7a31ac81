package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humago"
	"github.com/gorilla/handlers"
	"github.com/jmoiron/sqlx"
	"github.com/paulmach/orb"

	"github.com/joeblew999/daurin/internal/api"
	"github.com/joeblew999/daurin/internal/api/mapui"
	"github.com/joeblew999/daurin/internal/boundary"
	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/db"
	"github.com/joeblew999/daurin/internal/directory"
	"github.com/joeblew999/daurin/internal/humastar"
	"github.com/joeblew999/daurin/internal/layers"
	"github.com/joeblew999/daurin/internal/metrics"
	"github.com/joeblew999/daurin/internal/routing"
	"github.com/joeblew999/daurin/internal/search"
	"github.com/joeblew999/daurin/internal/session"
	"github.com/joeblew999/daurin/internal/store"
	"github.com/joeblew999/daurin/internal/templates"
	"github.com/joeblew999/daurin/internal/web"
)

// RouterNone disables routing.
const RouterNone = "none"

// Config holds the server configuration.
type Config struct {
	Host    string
	Port    string
	DataDir string
	WebDir  string // web/ directory whose static/ files override the built-in icons

	TemplatesDir string // load templates from disk instead of the embedded ones

	DB           db.Config
	DataURL      string // collaborator API base URL; empty reads the local store
	FetchTimeout time.Duration

	RouterURL     string // OSRM base URL; empty draws straight lines, "none" disables routing
	RouterProfile string

	Boundaries   string // region GeoJSON file
	OverpassURL  string
	OverpassArea string

	LayersFile string
	Center     orb.Point
	Zoom       float64

	LocateTimeout  time.Duration
	SessionTTL     time.Duration
	AllowedOrigins []string

	Version string
	Logger  *slog.Logger
}

// Server is the map HTTP server.
type Server struct {
	config   Config
	log      *slog.Logger
	mux      *http.ServeMux
	handler  http.Handler
	humaAPI  huma.API
	db       *sqlx.DB
	services *api.Services
	renderer *templates.Renderer
}

// New creates a new map server.
func New(cfg Config) (*Server, error) {
	if cfg.Version == "" {
		cfg.Version = "0.1.0"
	}
	log := cfg.Logger
	if log == nil {
		log = slog.Default()
	}

	renderer, err := loadTemplates(cfg.TemplatesDir)
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}

	reg, err := loadLayers(cfg.LayersFile)
	if err != nil {
		return nil, err
	}

	s := &Server{
		config:   cfg,
		log:      log,
		mux:      http.NewServeMux(),
		renderer: renderer,
	}

	var source directory.Source
	var st *store.Store
	if cfg.DataURL != "" {
		source = directory.NewClient(cfg.DataURL, cfg.FetchTimeout)
	} else {
		conn, err := db.Open(cfg.DB)
		if err != nil {
			return nil, err
		}
		s.db = conn
		st = store.New(conn, log)
		if err := st.Migrate(context.Background()); err != nil {
			conn.Close()
			return nil, err
		}
		source = st
	}

	regions := search.NewResolver(regionSource(cfg), log)
	engine := routingEngine(cfg)

	sessions := session.NewManager(func(id string) (*controller.Controller, error) {
		return controller.New(controller.Options{
			ID:            id,
			Source:        source,
			Layers:        reg,
			Templates:     renderer,
			Regions:       regions,
			Engine:        engine,
			LocateTimeout: cfg.LocateTimeout,
			Center:        cfg.Center,
			Zoom:          cfg.Zoom,
			BasePath:      api.MapPath(id),
			Logger:        log,
		})
	}, cfg.SessionTTL, log)

	s.services = &api.Services{
		Sessions: sessions,
		Layers:   reg,
		Store:    st,
		DataDir:  cfg.DataDir,
	}
	if engine != nil {
		s.services.Routing = engine.Name()
	}

	humaConfig := huma.DefaultConfig("daurin map API", cfg.Version)
	humaConfig.Info.Description = "Server-driven recycling map: facility layers, collaborator markers, search, routing and geolocation."
	humaConfig.Servers = []*huma.Server{
		{URL: fmt.Sprintf("http://%s:%s", cfg.Host, cfg.Port), Description: "Local server"},
	}
	// Disable $schema property in responses (cleaner JSON)
	humaConfig.CreateHooks = []func(huma.Config) huma.Config{}
	humaConfig.Transformers = append(humaConfig.Transformers, api.LinkTransformer())
	s.humaAPI = humago.New(s.mux, humaConfig)

	s.routes()
	s.handler = handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{log}),
	)(handlers.CORS(
		handlers.AllowedOrigins(allowedOrigins(cfg.AllowedOrigins)),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Datastar-Request"}),
		handlers.ExposedHeaders([]string{"Link"}),
	)(s.mux))
	return s, nil
}

func loadTemplates(dir string) (*templates.Renderer, error) {
	if dir == "" {
		return templates.Default()
	}
	return templates.New(os.DirFS(dir), templates.Patterns...)
}

func loadLayers(path string) (*layers.Registry, error) {
	reg, err := layers.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("loading layers: %w", err)
	}
	return reg, nil
}

func regionSource(cfg Config) boundary.Source {
	switch {
	case cfg.Boundaries != "":
		return boundary.GeoJSONFile{Path: cfg.Boundaries}
	case cfg.OverpassURL != "" && cfg.OverpassArea != "":
		return boundary.NewOverpass(cfg.OverpassURL, cfg.OverpassArea, "", cfg.FetchTimeout)
	}
	return nil
}

func routingEngine(cfg Config) routing.Engine {
	switch cfg.RouterURL {
	case RouterNone:
		return nil
	case "":
		return routing.StraightLine{}
	}
	return routing.NewOSRM(cfg.RouterURL, cfg.RouterProfile, cfg.FetchTimeout)
}

func allowedOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"*"}
	}
	return origins
}

type recoveryLogger struct{ log *slog.Logger }

func (l recoveryLogger) Println(v ...any) {
	l.log.Error("panic recovered", "error", strings.TrimSpace(fmt.Sprintln(v...)))
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// OpenAPI returns the generated OpenAPI document.
func (s *Server) OpenAPI() *huma.OpenAPI {
	return s.humaAPI.OpenAPI()
}

// Store returns the local collaborator store, or nil when data comes from a
// remote API.
func (s *Server) Store() *store.Store {
	return s.services.Store
}

// ReloadTemplates re-reads the templates from TemplatesDir. Open pages pick
// up the new fragments on their next update.
func (s *Server) ReloadTemplates() error {
	if s.config.TemplatesDir == "" {
		return errors.New("templates are embedded; set a templates directory to reload")
	}
	if err := s.renderer.Reload(os.DirFS(s.config.TemplatesDir), templates.Patterns...); err != nil {
		return fmt.Errorf("reloading templates: %w", err)
	}
	s.log.Info("templates reloaded", "dir", s.config.TemplatesDir)
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *session.Manager {
	return s.services.Sessions
}

// Start expires idle sessions until ctx is done.
func (s *Server) Start(ctx context.Context) {
	go s.services.Sessions.Run(ctx)
}

// Close closes server resources.
func (s *Server) Close() error {
	s.services.Sessions.Close()
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// ListenAndServe serves until ctx is done, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%s", s.config.Host, s.config.Port),
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.Start(ctx)

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdown, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		// SSE streams end when their sessions close.
		s.services.Sessions.Close()
		return srv.Shutdown(shutdown)
	}
}

func (s *Server) routes() {
	// Register Huma REST API routes (OpenAPI-documented JSON endpoints)
	api.RegisterRoutes(s.humaAPI, s.services, s.config.Version)

	// Map page SSE stream using Huma + Datastar SDK
	huma.AutoRegister(s.humaAPI, mapui.NewEventHandler(
		s.services.Sessions, humastar.Handler{Renderer: s.renderer}, s.log,
	))

	s.mux.Handle("/metrics", metrics.Handler())

	// Static files (marker icons)
	s.mux.Handle("/static/", http.StripPrefix("/static/", web.Handler(s.config.WebDir)))

	// Page routes
	s.mux.Handle("/", mapui.NewPageHandler(s.services.Sessions, s.renderer, s.log))
}
