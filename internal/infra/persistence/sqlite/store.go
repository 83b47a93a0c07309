// Package sqlite persists plugin settings to an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"pluginkit/internal/infra/persistence"
)

// DefaultPath is used when NewStore receives an empty path.
const DefaultPath = "pluginkit.db"

// Store keeps one JSON row per plugin handle.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore opens (creating if needed) the SQLite database at path.
func NewStore(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil && !errors.Is(err, os.ErrExist) {
		return nil, fmt.Errorf("create dirs: %w", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS plugin_settings (
		handle TEXT PRIMARY KEY,
		payload BLOB NOT NULL,
		updated_at TEXT NOT NULL
	)`); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create settings table: %w", err)
	}
	return &Store{db: db, path: path}, nil
}

// Load returns the settings for handle.
func (s *Store) Load(ctx context.Context, handle string) (map[string]any, error) {
	var payload []byte
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM plugin_settings WHERE handle = ?`, handle).Scan(&payload)
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
		`INSERT INTO plugin_settings(handle,payload,updated_at) VALUES(?,?,?)
		ON CONFLICT(handle) DO UPDATE SET payload=excluded.payload, updated_at=excluded.updated_at`,
		handle, data, time.Now().UTC().Format(time.RFC3339Nano)); err != nil {
		return fmt.Errorf("upsert settings %s: %w", handle, err)
	}
	return nil
}

// Delete removes the settings for handle; returns true if a row existed.
func (s *Store) Delete(ctx context.Context, handle string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM plugin_settings WHERE handle = ?`, handle)
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

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Driver reports the storage driver.
func (s *Store) Driver() persistence.Driver { return persistence.DriverSQLite }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }
