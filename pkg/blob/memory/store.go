// Package memory keeps export artifacts in process memory. It backs tests
// and short-lived CLI runs.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"pluginkit/pkg/blob/core"
)

type artifact struct {
	obj  core.Object
	data []byte
}

// Store is a core.Store over a map. Stored bytes are never mutated, so
// readers share them.
type Store struct {
	mu    sync.Mutex
	items map[string]artifact
	clock func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the creation timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.clock = now }
}

func New(opts ...Option) *Store {
	s := &Store{items: map[string]artifact{}, clock: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Len reports the number of stored artifacts.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.WriteOptions) (core.Object, error) {
	if err := core.ValidateKey(key); err != nil {
		return core.Object{}, err
	}
	sum := sha256.New()
	data, err := io.ReadAll(io.TeeReader(r, sum))
	if err != nil {
		return core.Object{}, fmt.Errorf("read artifact %s: %w", key, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.items[key]; taken {
		return core.Object{}, fmt.Errorf("%w: %s", core.ErrExists, key)
	}
	obj := core.Object{
		Key:         key,
		Size:        int64(len(data)),
		ContentType: opts.ContentType,
		Checksum:    hex.EncodeToString(sum.Sum(nil)),
		Metadata:    maps.Clone(opts.Metadata),
		Created:     s.clock().UTC(),
		URL:         "memory://artifacts/" + key,
	}
	s.items[key] = artifact{obj: obj, data: data}
	return detach(obj), nil
}

func (s *Store) Open(_ context.Context, key string) (core.Object, io.ReadCloser, error) {
	a, err := s.lookup(key)
	if err != nil {
		return core.Object{}, nil, err
	}
	return detach(a.obj), io.NopCloser(bytes.NewReader(a.data)), nil
}

func (s *Store) Stat(_ context.Context, key string) (core.Object, error) {
	a, err := s.lookup(key)
	if err != nil {
		return core.Object{}, err
	}
	return detach(a.obj), nil
}

func (s *Store) Remove(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[key]; !ok {
		return fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	delete(s.items, key)
	return nil
}

func (s *Store) List(_ context.Context, prefix string) ([]core.Object, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.items))
	for k := range s.items {
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)
	out := make([]core.Object, len(keys))
	for i, k := range keys {
		out[i] = detach(s.items[k].obj)
	}
	return out, nil
}

func (s *Store) lookup(key string) (artifact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.items[key]
	if !ok {
		return artifact{}, fmt.Errorf("%w: %s", core.ErrNotFound, key)
	}
	return a, nil
}

// detach copies the metadata map so callers cannot reach stored state.
func detach(o core.Object) core.Object {
	o.Metadata = maps.Clone(o.Metadata)
	return o
}
