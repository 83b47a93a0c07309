// Package persistence holds the shared contract for plugin settings stores.
// Each driver keeps one JSON document per plugin handle.
package persistence

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Driver identifies a concrete settings storage implementation.
type Driver string

const (
	DriverMemory   Driver = "memory"   // in-memory only (tests / ephemeral)
	DriverSQLite   Driver = "sqlite"   // embedded sqlite file
	DriverPostgres Driver = "postgres" // PostgreSQL server
)

// ErrNotFound is returned by Load when no settings exist for a handle.
var ErrNotFound = errors.New("settings: not found")

// ValidateHandle rejects empty plugin handles.
func ValidateHandle(handle string) error {
	if strings.TrimSpace(handle) == "" {
		return fmt.Errorf("settings: plugin handle required")
	}
	return nil
}

// Encode marshals a settings document. A nil map is stored as {}.
func Encode(values map[string]any) ([]byte, error) {
	if values == nil {
		values = map[string]any{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	return data, nil
}

// Decode unmarshals a stored settings document.
func Decode(data []byte) (map[string]any, error) {
	out := map[string]any{}
	if len(data) == 0 {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode settings: %w", err)
	}
	return out, nil
}
