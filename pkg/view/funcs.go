// Package view exposes template helpers and control-panel components
// shared by plugins: a FuncMap for html/template and hand-built templ
// components for layouts, badges and export menus.
package view

import (
	"html/template"
	"time"

	"github.com/dustin/go-humanize"

	"pluginkit/pkg/color"
	"pluginkit/pkg/datetime"
	"pluginkit/pkg/edition"
	"pluginkit/pkg/geo"
	"pluginkit/pkg/settings"
)

// Options binds the helpers to one plugin. Zero values are usable.
type Options struct {
	Handle      string
	DisplayName string
	Formatter   *datetime.Formatter
	Colors      *color.Registry
	Edition     edition.Edition
	Overrides   *settings.Overrides
	Now         func() time.Time
}

func (o Options) formatter() *datetime.Formatter {
	if o.Formatter != nil {
		return o.Formatter
	}
	return datetime.MustNew(datetime.DefaultConfig())
}

func (o Options) colors() *color.Registry {
	if o.Colors != nil {
		return o.Colors
	}
	return color.Default
}

func (o Options) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Funcs returns the template helpers bound to opts.
func Funcs(opts Options) template.FuncMap {
	f := opts.formatter()
	colors := opts.colors()
	current := opts.Edition
	if current == "" {
		current = edition.Standard
	}
	return template.FuncMap{
		"countryName": func(code string) string {
			name, _ := geo.CountryName(code)
			return name
		},
		"dialCode": func(code string) string {
			dial, _ := geo.DialCode(code)
			return dial
		},
		"flag": geo.Flag,
		"formatDate": func(v any) string {
			t, ok := asTime(v)
			if !ok {
				return ""
			}
			return f.FormatDate(t)
		},
		"formatTime": func(v any) string {
			t, ok := asTime(v)
			if !ok {
				return ""
			}
			return f.FormatTime(t)
		},
		"formatDateTime": func(v any) string {
			t, ok := asTime(v)
			if !ok {
				return ""
			}
			return f.FormatDateTime(t)
		},
		"timeAgo": func(v any) string {
			t, ok := asTime(v)
			if !ok {
				return ""
			}
			return datetime.Relative(t, opts.now())
		},
		"colorHex": func(name string) string {
			hex, err := color.Hex(name)
			if err != nil {
				return ""
			}
			return hex
		},
		"colorFor": colors.ColorFor,
		"badge":    colors.Badge,
		"humanBytes": func(v any) string {
			n, ok := asBytes(v)
			if !ok {
				return ""
			}
			return humanize.Bytes(n)
		},
		"displayName": func() string {
			return settings.DisplayName(opts.Handle, opts.DisplayName)
		},
		"editionAtLeast": func(name string) bool {
			required, err := edition.Parse(name)
			if err != nil {
				return false
			}
			return current.AtLeast(required)
		},
		"isOverridden": opts.Overrides.IsOverridden,
	}
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, !t.IsZero()
	case *time.Time:
		if t == nil || t.IsZero() {
			return time.Time{}, false
		}
		return *t, true
	default:
		return time.Time{}, false
	}
}

func asBytes(v any) (uint64, bool) {
	switch n := v.(type) {
	case int:
		return uint64(max(n, 0)), true
	case int64:
		return uint64(max(n, 0)), true
	case uint64:
		return n, true
	case uint:
		return uint64(n), true
	case float64:
		return uint64(max(n, 0)), true
	default:
		return 0, false
	}
}
