package extension

import (
	"time"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/plugin"
	"github.com/xraph/salesdoc/store"
)

// Option configures the salesdoc Forge extension.
type Option func(*Extension)

// WithStore sets the store for the engine.
func WithStore(s store.Store) Option {
	return func(e *Extension) {
		e.store = s
	}
}

// WithEngineOption passes a salesdoc.Option through to the underlying engine.
func WithEngineOption(opt salesdoc.Option) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, opt)
	}
}

// WithPlugin registers an engine plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Extension) {
		e.engineOpts = append(e.engineOpts, salesdoc.WithPlugin(p))
	}
}

// WithConfig sets the Forge extension configuration.
func WithConfig(cfg Config) Option {
	return func(e *Extension) { e.config = cfg }
}

// WithDisableRoutes skips building the HTTP handler.
func WithDisableRoutes() Option {
	return func(e *Extension) { e.config.DisableRoutes = true }
}

// WithDisableMigrate prevents auto-migration on start.
func WithDisableMigrate() Option {
	return func(e *Extension) { e.config.DisableMigrate = true }
}

// WithBasePath sets the URL prefix for document routes.
func WithBasePath(path string) Option {
	return func(e *Extension) { e.config.BasePath = path }
}

// WithRequireConfig requires config to be present in YAML files.
// If true and no config is found, Register returns an error.
func WithRequireConfig(require bool) Option {
	return func(e *Extension) { e.config.RequireConfig = require }
}

// WithConflictRetries sets how many times a write is attempted on a
// version conflict.
func WithConflictRetries(n int) Option {
	return func(e *Extension) { e.config.ConflictRetries = n }
}

// WithNumberWidth sets the zero-padded width of document sequences.
func WithNumberWidth(width int) Option {
	return func(e *Extension) { e.config.NumberWidth = width }
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Extension) { e.config.PluginTimeout = d }
}
