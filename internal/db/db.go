// Package db opens the collaborator data store: an embedded DuckDB file by
// default, or Postgres in production.
package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/marcboeker/go-duckdb"
)

// Supported drivers.
const (
	DriverDuckDB   = "duckdb"
	DriverPostgres = "postgres"
)

// Config holds database configuration.
type Config struct {
	Driver  string
	DSN     string // postgres connection string, or an explicit duckdb path
	DataDir string // duckdb files live under DataDir/duckdb
	DBName  string
}

// Open connects to the configured database. A duckdb config with neither
// DSN nor DataDir opens an in-memory database.
func Open(cfg Config) (*sqlx.DB, error) {
	switch cfg.Driver {
	case "", DriverDuckDB:
		dsn, err := duckDBPath(cfg)
		if err != nil {
			return nil, err
		}
		db, err := sqlx.Open(DriverDuckDB, dsn)
		if err != nil {
			return nil, fmt.Errorf("opening duckdb: %w", err)
		}
		return db, nil
	case DriverPostgres:
		if cfg.DSN == "" {
			return nil, fmt.Errorf("postgres requires a DSN")
		}
		db, err := sqlx.Connect(DriverPostgres, cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("connecting to postgres: %w", err)
		}
		return db, nil
	}
	return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
}

func duckDBPath(cfg Config) (string, error) {
	if cfg.DSN != "" {
		return cfg.DSN, nil
	}
	if cfg.DataDir == "" {
		return "", nil
	}
	dir := filepath.Join(cfg.DataDir, "duckdb")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create duckdb directory: %w", err)
	}
	name := cfg.DBName
	if name == "" {
		name = "daurin"
	}
	return filepath.Join(dir, name+".duckdb"), nil
}
