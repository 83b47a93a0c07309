// Package plugin bootstraps a plugin once per handle: template root,
// globals, translations, logger, display name and edition gate.
package plugin

import (
	"io/fs"

	"golang.org/x/text/language"
)

// Plugin identifies a plugin to the host.
type Plugin interface {
	Handle() string
	Name() string
	Version() string
}

// TemplateProvider supplies the plugin's *.html templates.
type TemplateProvider interface {
	Templates() fs.FS
}

// TranslationProvider supplies message catalogs keyed by language.
type TranslationProvider interface {
	Translations() map[language.Tag]map[string]string
}

// GlobalsProvider supplies values exposed to templates through the
// global func.
type GlobalsProvider interface {
	Globals() map[string]any
}
