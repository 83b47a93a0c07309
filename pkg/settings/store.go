// Package settings provides plugin settings helpers: display names, a
// persistence shim with pluggable drivers, typed load/save with config-file
// overrides, and override file watching.
package settings

import (
	"context"
	"fmt"
	"io"
	"os"

	"pluginkit/internal/infra/persistence"
	"pluginkit/internal/infra/persistence/memory"
	"pluginkit/internal/infra/persistence/postgres"
	"pluginkit/internal/infra/persistence/sqlite"
)

// Store persists one settings document per plugin handle.
type Store interface {
	// Load returns the stored settings or an error wrapping ErrNotFound.
	Load(ctx context.Context, handle string) (map[string]any, error)
	Save(ctx context.Context, handle string, values map[string]any) error
	// Delete removes stored settings; returns true if they existed.
	Delete(ctx context.Context, handle string) (bool, error)
}

// ClosableStore is a Store holding external resources.
type ClosableStore interface {
	Store
	io.Closer
	Handles(ctx context.Context) ([]string, error)
	Driver() persistence.Driver
}

// ErrNotFound is returned by Store.Load when no settings exist.
var ErrNotFound = persistence.ErrNotFound

// Environment variables read by OpenStore.
const (
	EnvStoreDriver = "PLUGINKIT_SETTINGS_DRIVER"
	EnvSQLitePath  = "PLUGINKIT_SQLITE_PATH"
	EnvPostgresDSN = "PLUGINKIT_POSTGRES_DSN"
)

// NewMemoryStore returns an in-process store.
func NewMemoryStore() ClosableStore { return memory.NewStore() }

// OpenStore selects a backend using environment variables.
// Defaults to sqlite when unset.
//
//	PLUGINKIT_SETTINGS_DRIVER: memory|sqlite|postgres (default sqlite)
//	PLUGINKIT_SQLITE_PATH: path to sqlite file (default ./pluginkit.db)
//	PLUGINKIT_POSTGRES_DSN: postgres DSN when driver=postgres
func OpenStore(ctx context.Context) (ClosableStore, error) {
	driver := os.Getenv(EnvStoreDriver)
	if driver == "" {
		driver = string(persistence.DriverSQLite)
	}
	switch persistence.Driver(driver) {
	case persistence.DriverMemory:
		return memory.NewStore(), nil
	case persistence.DriverSQLite:
		return sqlite.NewStore(os.Getenv(EnvSQLitePath))
	case persistence.DriverPostgres:
		return postgres.NewStore(ctx, os.Getenv(EnvPostgresDSN))
	default:
		return nil, fmt.Errorf("unknown settings driver %s", driver)
	}
}
