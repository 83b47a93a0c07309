package plugin

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"pluginkit/internal/logging"
	"pluginkit/pkg/datetime"
	"pluginkit/pkg/edition"
	"pluginkit/pkg/settings"
	"pluginkit/pkg/view"
)

// ErrInvalidPlugin is returned for nil plugins or empty handles.
var ErrInvalidPlugin = errors.New("plugin: invalid plugin")

type config struct {
	logger      *zerolog.Logger
	logOptions  *logging.Options
	edition     edition.Edition
	displayName string
	overrides   *settings.Overrides
	formatter   *datetime.Formatter
}

// Option customizes Bootstrap.
type Option func(*config)

// WithLogger uses logger instead of a per-plugin log file.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = &logger }
}

// WithLogOptions writes the plugin's log to a dated file per opts.
func WithLogOptions(opts logging.Options) Option {
	return func(c *config) { c.logOptions = &opts }
}

// WithEdition sets the licensed edition; defaults to standard.
func WithEdition(e edition.Edition) Option {
	return func(c *config) { c.edition = e }
}

// WithDisplayName overrides the name shown in the control panel.
func WithDisplayName(name string) Option {
	return func(c *config) { c.displayName = name }
}

// WithOverrides exposes config overrides to templates.
func WithOverrides(o *settings.Overrides) Option {
	return func(c *config) { c.overrides = o }
}

// WithFormatter sets the date formatter used by template helpers.
func WithFormatter(f *datetime.Formatter) Option {
	return func(c *config) { c.formatter = f }
}

// Registry tracks bootstrapped plugins. The zero value is not usable;
// call NewRegistry.
type Registry struct {
	mu       sync.Mutex
	contexts map[string]*Context
	logger   zerolog.Logger
}

// NewRegistry constructs an empty registry.
func NewRegistry(logger zerolog.Logger) *Registry {
	return &Registry{contexts: make(map[string]*Context), logger: logger}
}

// Bootstrap wires p once. Later calls for the same handle return the
// existing Context and ignore opts.
func (r *Registry) Bootstrap(p Plugin, opts ...Option) (*Context, error) {
	if p == nil || p.Handle() == "" {
		return nil, ErrInvalidPlugin
	}
	handle := p.Handle()

	r.mu.Lock()
	defer r.mu.Unlock()
	if ctx, ok := r.contexts[handle]; ok {
		return ctx, nil
	}

	cfg := config{edition: edition.Standard}
	for _, opt := range opts {
		opt(&cfg)
	}

	ctx := &Context{
		Plugin:    p,
		Handle:    handle,
		Edition:   edition.Gate{Current: cfg.edition},
		Overrides: cfg.overrides,
		name:      cfg.displayName,
		closer:    nopCloser{},
	}
	if ctx.name == "" {
		ctx.name = p.Name()
	}

	switch {
	case cfg.logger != nil:
		ctx.Logger = cfg.logger.With().Str("plugin", handle).Logger()
	case cfg.logOptions != nil:
		logger, closer, err := logging.ForPlugin(handle, *cfg.logOptions)
		if err != nil {
			return nil, fmt.Errorf("bootstrap %s: %w", handle, err)
		}
		ctx.Logger, ctx.closer = logger, closer
	default:
		ctx.Logger = zerolog.Nop()
	}

	if gp, ok := p.(GlobalsProvider); ok {
		ctx.globals = cloneGlobals(gp.Globals())
	}
	if tp, ok := p.(TranslationProvider); ok {
		if err := ctx.loadTranslations(tp.Translations()); err != nil {
			_ = ctx.closer.Close()
			return nil, fmt.Errorf("bootstrap %s: %w", handle, err)
		}
	}
	funcs := view.Funcs(view.Options{
		Handle:      handle,
		DisplayName: ctx.name,
		Formatter:   cfg.formatter,
		Edition:     cfg.edition,
		Overrides:   cfg.overrides,
	})
	if tp, ok := p.(TemplateProvider); ok {
		if err := ctx.loadTemplates(tp.Templates(), funcs); err != nil {
			_ = ctx.closer.Close()
			return nil, fmt.Errorf("bootstrap %s: %w", handle, err)
		}
	}

	r.contexts[handle] = ctx
	r.logger.Debug().Str("plugin", handle).Str("version", p.Version()).Msg("plugin bootstrapped")
	ctx.Logger.Info().Str("version", p.Version()).Str("edition", cfg.edition.String()).Msg("bootstrapped")
	return ctx, nil
}

// Plugins returns bootstrapped handles, sorted.
func (r *Registry) Plugins() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.contexts))
	for handle := range r.contexts {
		out = append(out, handle)
	}
	sort.Strings(out)
	return out
}

// Context returns the Context for a bootstrapped handle.
func (r *Registry) Context(handle string) (*Context, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	ctx, ok := r.contexts[handle]
	return ctx, ok
}

// Close releases every plugin's log file.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	var errs []error
	for _, ctx := range r.contexts {
		if err := ctx.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func cloneGlobals(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

var _ io.Closer = nopCloser{}
