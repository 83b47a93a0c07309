// Package postgres persists plugin settings to PostgreSQL as JSONB documents.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver

	"pluginkit/internal/infra/persistence"
)

const (
	defaultDriver = "pgx"
	defaultDSN    = "postgres://localhost/pluginkit?sslmode=disable"
)

var (
	sqlOpen = sql.Open
	openMu  sync.Mutex
)

// OverrideSQLOpen swaps the sql.Open hook for tests and returns a restore func.
func OverrideSQLOpen(fn func(driverName, dsn string) (*sql.DB, error)) func() {
	openMu.Lock()
	prev := sqlOpen
	sqlOpen = fn
	openMu.Unlock()
	return func() {
		openMu.Lock()
		sqlOpen = prev
		openMu.Unlock()
	}
}

// Store keeps one JSONB row per plugin handle.
type Store struct {
	db *sql.DB
}

// NewStore opens a Postgres-backed store using dsn (falls back to defaultDSN),
// verifies connectivity and ensures the settings table exists.
func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		dsn = defaultDSN
	}
	openMu.Lock()
	db, err := sqlOpen(defaultDriver, dsn)
	openMu.Unlock()
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if err := ensureTable(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func ensureTable(ctx context.Context, db *sql.DB) error {
	ddl := `CREATE TABLE IF NOT EXISTS plugin_settings (
		handle TEXT PRIMARY KEY,
		payload JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL
	)`
	if _, err := db.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("ensure settings table: %w", err)
	}
	return nil
}

// Load returns the settings for handle.
func (s *Store) Load(ctx context.Context, handle string) (map[string]any, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM plugin_settings WHERE handle = $1`, handle).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", handle, persistence.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("select settings %s: %w", handle, err)
	}
	return persistence.Decode(payload)
}

// Save upserts the settings for handle.
func (s *Store) Save(ctx context.Context, handle string, values map[string]any) error {
	if err := persistence.ValidateHandle(handle); err != nil {
		return err
	}
	data, err := persistence.Encode(values)
	if err != nil {
		return err
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO plugin_settings (handle, payload, updated_at) VALUES ($1, $2, $3)
		ON CONFLICT (handle) DO UPDATE SET payload = EXCLUDED.payload, updated_at = EXCLUDED.updated_at`,
		handle, data, time.Now().UTC()); err != nil {
		return fmt.Errorf("upsert settings %s: %w", handle, err)
	}
	return nil
}

// Delete removes the settings for handle; returns true if a row existed.
func (s *Store) Delete(ctx context.Context, handle string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plugin_settings WHERE handle = $1`, handle)
	if err != nil {
		return false, fmt.Errorf("delete settings %s: %w", handle, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Handles lists plugin handles with stored settings.
func (s *Store) Handles(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT handle FROM plugin_settings ORDER BY handle`)
	if err != nil {
		return nil, fmt.Errorf("select handles: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []string
	for rows.Next() {
		var h string
		if err := rows.Scan(&h); err != nil {
			return nil, fmt.Errorf("scan: %w", err)
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// Driver reports the storage driver.
func (s *Store) Driver() persistence.Driver { return persistence.DriverPostgres }

// Close closes the database pool.
func (s *Store) Close() error { return s.db.Close() }
