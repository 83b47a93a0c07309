package settings

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// AllEnvironments is the multi-environment section applied to every env.
const AllEnvironments = "*"

// configExtensions are tried in order; the first existing file wins.
var configExtensions = []string{".yaml", ".yml", ".toml"}

// Overrides holds the settings a plugin's config file or environment
// pins, which the control panel must treat as read-only.
type Overrides struct {
	values  *koanf.Koanf
	source  string
	envVars map[string]string
	index   map[string]string
}

// LoadOverrides reads <dir>/<handle>.yaml|.yml|.toml and <HANDLE>_*
// environment variables. A missing file is not an error.
//
// Files whose top level holds a "*" key are multi-environment: the "*"
// section is applied first and the section named env on top of it.
// Environment variables win over the file.
func LoadOverrides(dir, handle, environment string) (*Overrides, error) {
	o := &Overrides{values: koanf.New("."), envVars: map[string]string{}}

	if path, ok := ConfigFile(dir, handle); ok {
		fk := koanf.New(".")
		if err := fk.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("load overrides %s: %w", path, err)
		}
		if _, multi := fk.Raw()[AllEnvironments]; multi {
			if err := o.values.Merge(fk.Cut(AllEnvironments)); err != nil {
				return nil, err
			}
			if environment != "" {
				if err := o.values.Merge(fk.Cut(environment)); err != nil {
					return nil, err
				}
			}
		} else if err := o.values.Merge(fk); err != nil {
			return nil, err
		}
		o.source = path
	}

	o.reindex()

	prefix := EnvPrefix(handle)
	if prefix != "" {
		ek := koanf.New(".")
		cb := func(name string) string {
			key := strings.ToLower(strings.TrimPrefix(name, prefix))
			key = strings.ReplaceAll(key, "__", ".")
			if key == "" {
				return ""
			}
			if existing, ok := o.index[normalizePath(key)]; ok {
				key = existing
			}
			o.envVars[key] = name
			return key
		}
		if err := ek.Load(env.Provider(prefix, ".", cb), nil); err != nil {
			return nil, fmt.Errorf("load overrides from env: %w", err)
		}
		if err := o.values.Merge(ek); err != nil {
			return nil, err
		}
	}

	o.reindex()
	return o, nil
}

func (o *Overrides) reindex() {
	o.index = make(map[string]string)
	for _, k := range o.values.Keys() {
		o.index[normalizePath(k)] = k
	}
}

// ConfigFile returns the first existing override file for handle in dir.
func ConfigFile(dir, handle string) (string, bool) {
	if dir == "" || handle == "" {
		return "", false
	}
	for _, ext := range configExtensions {
		path := filepath.Join(dir, handle+ext)
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			return path, true
		}
	}
	return "", false
}

// EnvPrefix returns the environment variable prefix for handle, e.g.
// "seo-tools" → "SEO_TOOLS_".
func EnvPrefix(handle string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(handle) {
		switch {
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return ""
	}
	return b.String() + "_"
}

func parserFor(path string) koanf.Parser {
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		return toml.Parser()
	}
	return yaml.Parser()
}

// IsOverridden reports whether key, or any key nested under it, is set
// by config. Matching ignores case and underscores so "site_name"
// matches "siteName".
func (o *Overrides) IsOverridden(key string) bool {
	if o == nil || key == "" {
		return false
	}
	n := normalizePath(key)
	if _, ok := o.index[n]; ok {
		return true
	}
	for k := range o.index {
		if strings.HasPrefix(k, n+".") || strings.HasPrefix(n, k+".") {
			return true
		}
	}
	return false
}

// Keys returns the overridden leaf keys, sorted.
func (o *Overrides) Keys() []string {
	if o == nil {
		return nil
	}
	keys := o.values.Keys()
	sort.Strings(keys)
	return keys
}

// Source returns the config file path, or "" when none was found.
func (o *Overrides) Source() string {
	if o == nil {
		return ""
	}
	return o.source
}

// SourceOf names where key was overridden: "$VAR" for environment
// variables, the file path otherwise.
func (o *Overrides) SourceOf(key string) string {
	if !o.IsOverridden(key) {
		return ""
	}
	n := normalizePath(key)
	for k, name := range o.envVars {
		nk := normalizePath(k)
		if nk == n || strings.HasPrefix(nk, n+".") || strings.HasPrefix(n, nk+".") {
			return "$" + name
		}
	}
	return o.source
}

// Value returns the override for key.
func (o *Overrides) Value(key string) (any, bool) {
	if o == nil {
		return nil, false
	}
	if k, ok := o.index[normalizePath(key)]; ok {
		return o.values.Get(k), true
	}
	if o.values.Exists(key) {
		return o.values.Get(key), true
	}
	return nil, false
}

// Empty reports whether nothing is overridden.
func (o *Overrides) Empty() bool { return o == nil || len(o.index) == 0 }

// Apply returns a deep copy of values with every override written over
// it. Override keys are matched to the existing keys of values so the
// original spelling is kept.
func (o *Overrides) Apply(values map[string]any) map[string]any {
	out := deepCopy(values)
	if o == nil {
		return out
	}
	for _, k := range o.values.Keys() {
		setPath(out, strings.Split(k, "."), o.values.Get(k))
	}
	return out
}

// ErrNoHandle is returned when an operation needs a plugin handle.
var ErrNoHandle = errors.New("settings: handle required")

// ErrNoStore is returned when a Manager without a Store is asked to write.
var ErrNoStore = errors.New("settings: no store configured")

func normalizeKey(s string) string {
	s = strings.ToLower(s)
	return strings.NewReplacer("_", "", "-", "").Replace(s)
}

func normalizePath(path string) string {
	parts := strings.Split(path, ".")
	for i, p := range parts {
		parts[i] = normalizeKey(p)
	}
	return strings.Join(parts, ".")
}

// matchKey finds the key in m equal to want after normalization.
func matchKey(m map[string]any, want string) (string, bool) {
	if _, ok := m[want]; ok {
		return want, true
	}
	n := normalizeKey(want)
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		if normalizeKey(k) == n {
			return k, true
		}
	}
	return want, false
}

func lookupPath(m map[string]any, parts []string) (any, bool) {
	cur := m
	for i, p := range parts {
		k, ok := matchKey(cur, p)
		if !ok {
			return nil, false
		}
		if i == len(parts)-1 {
			return cur[k], true
		}
		next, ok := cur[k].(map[string]any)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return nil, false
}

func setPath(m map[string]any, parts []string, v any) {
	cur := m
	for i, p := range parts {
		k, _ := matchKey(cur, p)
		if i == len(parts)-1 {
			cur[k] = deepCopyValue(v)
			return
		}
		next, ok := cur[k].(map[string]any)
		if !ok {
			next = map[string]any{}
			cur[k] = next
		}
		cur = next
	}
}

func deletePath(m map[string]any, parts []string) {
	cur := m
	for i, p := range parts {
		k, ok := matchKey(cur, p)
		if !ok {
			return
		}
		if i == len(parts)-1 {
			delete(cur, k)
			return
		}
		next, ok := cur[k].(map[string]any)
		if !ok {
			return
		}
		cur = next
	}
}

func deepCopy(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = deepCopyValue(v)
	}
	return out
}

func deepCopyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return deepCopy(t)
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = deepCopyValue(e)
		}
		return out
	default:
		return v
	}
}
