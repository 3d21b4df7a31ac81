package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/paulmach/orb"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/joeblew999/daurin/internal/controller"
	"github.com/joeblew999/daurin/internal/db"
	"github.com/joeblew999/daurin/internal/logging"
	"github.com/joeblew999/daurin/internal/server"
	"github.com/joeblew999/daurin/internal/store"
)

const version = "0.1.0"

// Options defines all CLI flags and env vars for the map server.
// Flags: --host, --port, --data-dir, --data-url, --router-url, ...
// Env vars: SERVICE_HOST, SERVICE_PORT, SERVICE_DATA_DIR, SERVICE_DATA_URL, ...
type Options struct {
	Host    string `doc:"Host to bind to" default:"0.0.0.0"`
	Port    int    `doc:"Port to listen on" short:"p" default:"8086"`
	DataDir string `doc:"Directory for the embedded database" default:".data"`
	WebDir  string `doc:"web/ directory whose static/ files override the built-in icons"`

	TemplatesDir string `doc:"Load templates from this directory (fragments/, pages/); SIGHUP reloads them"`

	DBDriver string `name:"db-driver" doc:"Store driver: duckdb or postgres" default:"duckdb"`
	DBDSN    string `name:"db-dsn" doc:"Postgres connection string, or an explicit duckdb file"`

	DataURL      string `doc:"Collaborator API base URL; empty serves the local store"`
	FetchTimeout string `doc:"Timeout for collaborator, routing and boundary requests" default:"10s"`

	RouterURL     string `doc:"OSRM base URL; empty draws straight lines, none disables routing"`
	RouterProfile string `doc:"OSRM profile" default:"driving"`

	Boundaries   string `doc:"GeoJSON file with named region boundaries"`
	OverpassURL  string `doc:"Overpass API endpoint for region boundaries"`
	OverpassArea string `doc:"OSM area name queried on Overpass" default:"Kota Surabaya"`

	LayersFile string `doc:"YAML layer registry overriding the built-in layers"`
	Center     string `doc:"Initial map center as lat,lng" default:"-7.2575,112.7521"`
	Zoom       int    `doc:"Initial map zoom" default:"12"`

	LocateTimeout  string `doc:"How long to wait for the browser's location" default:"10s"`
	SessionTTL     string `doc:"Idle time before a map session expires" default:"30m"`
	AllowedOrigins string `doc:"Comma-separated CORS origins, empty allows any"`
	LogLevel       string `doc:"Log level: debug, info, warn, error" default:"info"`
	LogJSON        bool   `doc:"Log as JSON"`
}

func parseCenter(s string) (orb.Point, error) {
	lat, lng, ok := strings.Cut(s, ",")
	if !ok {
		return orb.Point{}, fmt.Errorf("center %q: want lat,lng", s)
	}
	la, err := strconv.ParseFloat(strings.TrimSpace(lat), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center latitude: %w", err)
	}
	ln, err := strconv.ParseFloat(strings.TrimSpace(lng), 64)
	if err != nil {
		return orb.Point{}, fmt.Errorf("center longitude: %w", err)
	}
	return orb.Point{ln, la}, nil
}

func parseDuration(name, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return d, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func serverConfig(opts *Options) (server.Config, error) {
	logger, err := logging.New(os.Stderr, opts.LogLevel, opts.LogJSON)
	if err != nil {
		return server.Config{}, err
	}
	center := controller.DefaultCenter
	if opts.Center != "" {
		if center, err = parseCenter(opts.Center); err != nil {
			return server.Config{}, err
		}
	}
	fetch, err := parseDuration("fetch-timeout", opts.FetchTimeout)
	if err != nil {
		return server.Config{}, err
	}
	locate, err := parseDuration("locate-timeout", opts.LocateTimeout)
	if err != nil {
		return server.Config{}, err
	}
	ttl, err := parseDuration("session-ttl", opts.SessionTTL)
	if err != nil {
		return server.Config{}, err
	}

	return server.Config{
		Host:    opts.Host,
		Port:    fmt.Sprintf("%d", opts.Port),
		DataDir: opts.DataDir,
		WebDir:  opts.WebDir,

		TemplatesDir: opts.TemplatesDir,
		DB: db.Config{
			Driver:  opts.DBDriver,
			DSN:     opts.DBDSN,
			DataDir: opts.DataDir,
			DBName:  "daurin",
		},
		DataURL:        opts.DataURL,
		FetchTimeout:   fetch,
		RouterURL:      opts.RouterURL,
		RouterProfile:  opts.RouterProfile,
		Boundaries:     opts.Boundaries,
		OverpassURL:    opts.OverpassURL,
		OverpassArea:   opts.OverpassArea,
		LayersFile:     opts.LayersFile,
		Center:         center,
		Zoom:           float64(opts.Zoom),
		LocateTimeout:  locate,
		SessionTTL:     ttl,
		AllowedOrigins: splitList(opts.AllowedOrigins),
		Version:        version,
		Logger:         logger,
	}, nil
}

func newServer(opts *Options) *server.Server {
	cfg, err := serverConfig(opts)
	if err != nil {
		log.Fatalf("Invalid options: %v", err)
	}
	srv, err := server.New(cfg)
	if err != nil {
		log.Fatalf("Server setup failed: %v", err)
	}
	return srv
}

// reloadOnHangup re-reads the templates directory on every SIGHUP.
func reloadOnHangup(ctx context.Context, srv *server.Server) {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)
	for {
		select {
		case <-ctx.Done():
			return
		case <-hup:
			if err := srv.ReloadTemplates(); err != nil {
				fmt.Fprintf(os.Stderr, "Template reload failed: %v\n", err)
			}
		}
	}
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

		hooks.OnStart(func() {
			defer cancel()
			srv := newServer(opts)
			defer srv.Close()
			if opts.TemplatesDir != "" {
				go reloadOnHangup(ctx, srv)
			}

			displayHost := opts.Host
			if displayHost == "0.0.0.0" {
				displayHost = "localhost"
			}
			baseURL := fmt.Sprintf("http://%s:%d", displayHost, opts.Port)
			data := opts.DataURL
			if data == "" {
				data = fmt.Sprintf("local %s store (%s)", opts.DBDriver, opts.DataDir)
			}

			fmt.Println()
			fmt.Printf("daurin map server starting...\n")
			fmt.Printf("  Server:  %s\n", baseURL)
			fmt.Printf("  Data:    %s\n", data)
			fmt.Println()
			fmt.Printf("  Map:     %s/\n", baseURL)
			fmt.Printf("  Docs:    %s/docs\n", baseURL)
			fmt.Printf("  OpenAPI: %s/openapi.json\n", baseURL)
			fmt.Printf("  Metrics: %s/metrics\n", baseURL)
			fmt.Println()

			if err := srv.ListenAndServe(ctx); err != nil {
				log.Fatalf("Server error: %v", err)
			}
		})

		hooks.OnStop(cancel)
	})

	cli.Root().Use = "daurin"
	cli.Root().Short = "Recycling map server: facilities, collectors, crafters and waste offers"
	cli.Root().Version = version

	// spec subcommand: export OpenAPI spec
	specCmd := &cobra.Command{
		Use:   "spec",
		Short: "Export OpenAPI spec (JSON by default, --yaml for YAML)",
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			srv := newServer(opts)
			defer srv.Close()
			spec := srv.OpenAPI()

			useYAML, _ := cmd.Flags().GetBool("yaml")

			var output []byte
			var err error
			if useYAML {
				output, err = yaml.Marshal(spec)
			} else {
				output, err = json.MarshalIndent(spec, "", "  ")
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error marshaling spec: %v\n", err)
				os.Exit(1)
			}
			fmt.Println(string(output))
		}),
	}
	specCmd.Flags().BoolP("yaml", "y", false, "Output as YAML instead of JSON")
	cli.Root().AddCommand(specCmd)

	// seed subcommand: load collaborator records into the local store
	seedCmd := &cobra.Command{
		Use:   "seed FILE",
		Short: "Load a YAML or JSON seed file into the local store",
		Args:  cobra.ExactArgs(1),
		Run: humacli.WithOptions(func(cmd *cobra.Command, args []string, opts *Options) {
			if opts.DataURL != "" {
				fmt.Fprintln(os.Stderr, "Error: seed writes the local store; unset --data-url")
				os.Exit(1)
			}
			seed, err := store.ReadSeed(args[0])
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error reading seed: %v\n", err)
				os.Exit(1)
			}

			srv := newServer(opts)
			defer srv.Close()
			counts, err := srv.Store().Load(context.Background(), seed)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading seed: %v\n", err)
				os.Exit(1)
			}
			fmt.Printf("Seeded %d facilities, %d pengepuls, %d pengrajins, %d waste offers\n",
				counts.Facilities, counts.Pengepuls, counts.Pengrajins, counts.WasteOffers)
		}),
	}
	cli.Root().AddCommand(seedCmd)

	cli.Run()
}
