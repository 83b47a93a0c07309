// Package memory provides an in-memory settings store used for tests and
// ephemeral environments.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"pluginkit/internal/infra/persistence"
)

// Store keeps encoded settings documents in process memory. Documents are
// stored as JSON so callers never share maps with the store.
type Store struct {
	mu   sync.RWMutex
	docs map[string][]byte
}

// NewStore constructs an empty in-memory store.
func NewStore() *Store {
	return &Store{docs: make(map[string][]byte)}
}

// Load returns the settings for handle.
func (s *Store) Load(_ context.Context, handle string) (map[string]any, error) {
	s.mu.RLock()
	data, ok := s.docs[handle]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%s: %w", handle, persistence.ErrNotFound)
	}
	return persistence.Decode(data)
}

// Save replaces the settings for handle.
func (s *Store) Save(_ context.Context, handle string, values map[string]any) error {
	if err := persistence.ValidateHandle(handle); err != nil {
		return err
	}
	data, err := persistence.Encode(values)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.docs[handle] = data
	s.mu.Unlock()
	return nil
}

// Delete removes the settings for handle; returns true if they existed.
func (s *Store) Delete(_ context.Context, handle string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[handle]
	delete(s.docs, handle)
	return ok, nil
}

// Handles lists plugin handles with stored settings.
func (s *Store) Handles(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.docs))
	for h := range s.docs {
		out = append(out, h)
	}
	sort.Strings(out)
	return out, nil
}

// Driver reports the storage driver.
func (s *Store) Driver() persistence.Driver { return persistence.DriverMemory }

// Close is a no-op.
func (s *Store) Close() error { return nil }
