package plugin

import (
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"path"
	"sort"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"

	"pluginkit/pkg/blob"
	"pluginkit/pkg/edition"
	"pluginkit/pkg/export"
	"pluginkit/pkg/settings"
)

// Context is what a bootstrapped plugin works with.
type Context struct {
	Plugin    Plugin
	Handle    string
	Logger    zerolog.Logger
	Edition   edition.Gate
	Overrides *settings.Overrides

	name      string
	globals   map[string]any
	catalog   *catalog.Builder
	keys      map[language.Tag]map[string]struct{}
	templates *template.Template
	closer    io.Closer
}

// DisplayName returns the configured name, else the plugin's Name, else
// the title-cased handle.
func (c *Context) DisplayName() string {
	return settings.DisplayName(c.Handle, c.name)
}

// NewExportWorker returns an export worker for this plugin. Jobs default to
// the plugin handle and lifecycle transitions are audited to c.Logger;
// opts are applied after these defaults.
func (c *Context) NewExportWorker(store blob.Store, opts ...export.WorkerOption) *export.Worker {
	base := []export.WorkerOption{
		export.WithLogger(c.Logger),
		export.WithAudit(export.LogAuditLog{Logger: c.Logger}),
		export.WithOptions(export.Options{Plugin: c.Handle}),
	}
	return export.NewWorker(store, append(base, opts...)...)
}

// Global returns a template global.
func (c *Context) Global(name string) (any, bool) {
	v, ok := c.globals[name]
	return v, ok
}

// T translates key for tag. Keys missing from every catalog are returned
// unchanged; keys missing only from tag fall back to English.
func (c *Context) T(tag language.Tag, key string, args ...any) string {
	if c.catalog == nil {
		return key
	}
	resolved, ok := c.resolve(tag, key)
	if !ok {
		return key
	}
	return message.NewPrinter(resolved, message.Catalog(c.catalog)).Sprintf(key, args...)
}

// resolve walks tag's parents for a catalog holding key, then English.
func (c *Context) resolve(tag language.Tag, key string) (language.Tag, bool) {
	for t := tag; ; t = t.Parent() {
		if _, ok := c.keys[t][key]; ok {
			return t, true
		}
		if t == language.Und {
			break
		}
	}
	if _, ok := c.keys[language.English][key]; ok {
		return language.English, true
	}
	return language.Und, false
}

// Languages returns the tags with translations.
func (c *Context) Languages() []language.Tag {
	if c.catalog == nil {
		return nil
	}
	return c.catalog.Languages()
}

// Render executes template name with data.
func (c *Context) Render(w io.Writer, name string, data any) error {
	if c.templates == nil {
		return fmt.Errorf("%s has no templates", c.Handle)
	}
	t := c.templates.Lookup(name)
	if t == nil {
		return fmt.Errorf("template %s not found in %s", name, c.Handle)
	}
	return t.Execute(w, data)
}

// Templates returns the names of the parsed templates, sorted.
func (c *Context) Templates() []string {
	if c.templates == nil {
		return nil
	}
	var out []string
	for _, t := range c.templates.Templates() {
		if strings.HasSuffix(t.Name(), ".html") {
			out = append(out, t.Name())
		}
	}
	sort.Strings(out)
	return out
}

// Close releases the plugin log file.
func (c *Context) Close() error { return c.closer.Close() }

func (c *Context) loadTranslations(messages map[language.Tag]map[string]string) error {
	c.catalog = catalog.NewBuilder(catalog.Fallback(language.English))
	c.keys = make(map[language.Tag]map[string]struct{}, len(messages))
	for tag, entries := range messages {
		keys := make(map[string]struct{}, len(entries))
		for key, msg := range entries {
			if err := c.catalog.SetString(tag, key, msg); err != nil {
				return fmt.Errorf("translation %s/%s: %w", tag, key, err)
			}
			keys[key] = struct{}{}
		}
		c.keys[tag] = keys
	}
	return nil
}

// loadTemplates parses every *.html file in fsys, named by its slash path.
func (c *Context) loadTemplates(fsys fs.FS, funcs template.FuncMap) error {
	if fsys == nil {
		return nil
	}
	root := template.New(c.Handle).Funcs(funcs).Funcs(template.FuncMap{
		"global": func(name string) any { return c.globals[name] },
		"t": func(key string, args ...any) string {
			return c.T(language.English, key, args...)
		},
	})
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || path.Ext(p) != ".html" {
			return nil
		}
		src, err := fs.ReadFile(fsys, p)
		if err != nil {
			return err
		}
		if _, err := root.New(p).Parse(string(src)); err != nil {
			return fmt.Errorf("parse template %s: %w", p, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	c.templates = root
	return nil
}
