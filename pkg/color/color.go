// Package color provides the control-panel colour palette, named colour sets
// used for badges and filters, and runtime registration of custom sets.
package color

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Badge is a fully resolved badge colouring for a set value.
type Badge struct {
	Label      string `json:"label"`
	Color      string `json:"color"`
	Hex        string `json:"hex"`
	Background string `json:"background"`
	Text       string `json:"text"`
}

// Registry holds named colour sets. The zero value is not usable; call NewRegistry.
type Registry struct {
	mu   sync.RWMutex
	sets map[string]map[string]string
}

// NewRegistry returns a registry seeded with the built-in sets.
func NewRegistry() *Registry {
	return &Registry{sets: builtinSets()}
}

// Default is the process-wide registry used by the package-level helpers.
var Default = NewRegistry()

// RegisterSet adds or replaces a set. Values are matched case-insensitively.
// Colours may be palette names or #rrggbb literals.
func (r *Registry) RegisterSet(name string, values map[string]string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("color set name required")
	}
	set := make(map[string]string, len(values))
	for value, c := range values {
		if _, err := Hex(c); err != nil {
			return fmt.Errorf("color set %s value %s: %w", name, value, err)
		}
		set[strings.ToLower(value)] = strings.ToLower(c)
	}
	r.mu.Lock()
	r.sets[name] = set
	r.mu.Unlock()
	return nil
}

// Set returns a copy of the named set.
func (r *Registry) Set(name string) (map[string]string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set, ok := r.sets[name]
	if !ok {
		return nil, false
	}
	out := make(map[string]string, len(set))
	for k, v := range set {
		out[k] = v
	}
	return out, true
}

// SetNames lists registered set names in order.
func (r *Registry) SetNames() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.sets))
	for name := range r.sets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ColorFor returns the colour assigned to value in set, or Fallback.
// The httpStatus set also accepts concrete codes such as "404".
func (r *Registry) ColorFor(set, value string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	values, ok := r.sets[set]
	if !ok {
		return Fallback
	}
	key := strings.ToLower(strings.TrimSpace(value))
	if c, ok := values[key]; ok {
		return c
	}
	if set == "httpStatus" {
		if code, err := strconv.Atoi(key); err == nil && code >= 100 && code < 600 {
			if c, ok := values[fmt.Sprintf("%dxx", code/100)]; ok {
				return c
			}
		}
	}
	return Fallback
}

// Badge resolves the colour for value in set and derives tint and text shades.
func (r *Registry) Badge(set, value string) Badge {
	name := r.ColorFor(set, value)
	hex, err := Hex(name)
	if err != nil {
		name = Fallback
		hex = Palette[Fallback]
	}
	bg, text := Shades(hex)
	return Badge{Label: value, Color: name, Hex: hex, Background: bg, Text: text}
}

// LoadSets registers every set in a YAML document of the form
// {setName: {value: colour}}.
func (r *Registry) LoadSets(rd io.Reader) error {
	var doc map[string]map[string]string
	if err := yaml.NewDecoder(rd).Decode(&doc); err != nil {
		if err == io.EOF {
			return nil
		}
		return fmt.Errorf("decode color sets: %w", err)
	}
	names := make([]string, 0, len(doc))
	for name := range doc {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		if err := r.RegisterSet(name, doc[name]); err != nil {
			return err
		}
	}
	return nil
}

// Names lists palette colour names in order.
func Names() []string {
	names := make([]string, 0, len(Palette))
	for name := range Palette {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Hex resolves a palette name (or alias) or validates a #rrggbb literal.
func Hex(c string) (string, error) {
	c = strings.ToLower(strings.TrimSpace(c))
	if alias, ok := aliases[c]; ok {
		c = alias
	}
	if hex, ok := Palette[c]; ok {
		return hex, nil
	}
	if strings.HasPrefix(c, "#") {
		if _, err := colorful.Hex(c); err != nil {
			return "", fmt.Errorf("invalid hex colour %q", c)
		}
		return c, nil
	}
	return "", fmt.Errorf("unknown colour %q", c)
}

// Shades returns a light background tint and a dark text shade for hex,
// blended in Lab space so badges keep readable contrast.
func Shades(hex string) (background, text string) {
	base, err := colorful.Hex(hex)
	if err != nil {
		return "#f3f4f6", "#374151"
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	black := colorful.Color{R: 0, G: 0, B: 0}
	return base.BlendLab(white, 0.85).Clamped().Hex(), base.BlendLab(black, 0.45).Clamped().Hex()
}

// RegisterSet registers a set on the Default registry.
func RegisterSet(name string, values map[string]string) error {
	return Default.RegisterSet(name, values)
}

// ColorFor resolves a value on the Default registry.
func ColorFor(set, value string) string { return Default.ColorFor(set, value) }

// BadgeFor resolves a badge on the Default registry.
func BadgeFor(set, value string) Badge { return Default.Badge(set, value) }
