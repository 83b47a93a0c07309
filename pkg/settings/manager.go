package settings

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/v2"
)

// Manager loads and saves a plugin's typed settings model T. Values
// resolve as defaults, then stored values, then config overrides.
// Fields map by their json tag names.
type Manager[T any] struct {
	Handle    string
	Store     Store
	Defaults  T
	Overrides *Overrides
}

// NewManager returns a Manager for handle.
func NewManager[T any](handle string, store Store, defaults T, overrides *Overrides) *Manager[T] {
	return &Manager[T]{Handle: handle, Store: store, Defaults: defaults, Overrides: overrides}
}

// Load resolves the effective settings.
func (m *Manager[T]) Load(ctx context.Context) (T, error) {
	var out T
	values, err := m.resolve(ctx)
	if err != nil {
		return out, err
	}
	if err := decode(values, &out); err != nil {
		return out, fmt.Errorf("decode %s settings: %w", m.Handle, err)
	}
	return out, nil
}

// Values returns the effective settings as a map keyed by json name.
func (m *Manager[T]) Values(ctx context.Context) (map[string]any, error) {
	return m.resolve(ctx)
}

func (m *Manager[T]) resolve(ctx context.Context) (map[string]any, error) {
	if m.Handle == "" {
		return nil, ErrNoHandle
	}
	defaults, err := toMap(m.Defaults)
	if err != nil {
		return nil, err
	}
	stored, err := m.stored(ctx)
	if err != nil {
		return nil, err
	}
	k := koanf.New(".")
	for _, layer := range []map[string]any{defaults, stored} {
		if err := k.Load(confmap.Provider(layer, ""), nil); err != nil {
			return nil, fmt.Errorf("merge %s settings: %w", m.Handle, err)
		}
	}
	return m.Overrides.Apply(k.Raw()), nil
}

// Save persists value. Keys pinned by config keep their previously
// stored value so removing the override restores what was saved.
func (m *Manager[T]) Save(ctx context.Context, value T) error {
	if m.Handle == "" {
		return ErrNoHandle
	}
	if m.Store == nil {
		return ErrNoStore
	}
	next, err := toMap(value)
	if err != nil {
		return err
	}
	stored, err := m.stored(ctx)
	if err != nil {
		return err
	}
	if m.Overrides != nil {
		for _, k := range m.Overrides.Keys() {
			parts := strings.Split(k, ".")
			if prev, ok := lookupPath(stored, parts); ok {
				setPath(next, parts, prev)
			} else {
				deletePath(next, parts)
			}
		}
	}
	if err := m.Store.Save(ctx, m.Handle, next); err != nil {
		return fmt.Errorf("save %s settings: %w", m.Handle, err)
	}
	return nil
}

// Reset deletes the stored settings so Load falls back to defaults.
func (m *Manager[T]) Reset(ctx context.Context) error {
	if m.Handle == "" {
		return ErrNoHandle
	}
	if m.Store == nil {
		return ErrNoStore
	}
	_, err := m.Store.Delete(ctx, m.Handle)
	return err
}

func (m *Manager[T]) stored(ctx context.Context) (map[string]any, error) {
	if m.Store == nil {
		return map[string]any{}, nil
	}
	stored, err := m.Store.Load(ctx, m.Handle)
	if errors.Is(err, ErrNotFound) {
		return map[string]any{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s settings: %w", m.Handle, err)
	}
	if stored == nil {
		stored = map[string]any{}
	}
	return stored, nil
}

func toMap(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encode settings: %w", err)
	}
	out := map[string]any{}
	if string(data) == "null" {
		return out, nil
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("settings model must encode to an object: %w", err)
	}
	return out, nil
}

func decode(values map[string]any, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "json",
		WeaklyTypedInput: true,
		MatchName: func(mapKey, fieldName string) bool {
			return normalizeKey(mapKey) == normalizeKey(fieldName)
		},
		DecodeHook: mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		),
		Result: out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(values)
}
