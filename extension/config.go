package extension

import "time"

// Config holds the salesdoc extension configuration.
// Fields can be set programmatically via Option functions or loaded from
// YAML configuration files (under "extensions.salesdoc" or "salesdoc" keys).
type Config struct {
	// DisableRoutes skips building the HTTP handler.
	DisableRoutes bool `json:"disable_routes" mapstructure:"disable_routes" yaml:"disable_routes"`

	// DisableMigrate prevents auto-migration on start.
	DisableMigrate bool `json:"disable_migrate" mapstructure:"disable_migrate" yaml:"disable_migrate"`

	// BasePath is the URL prefix for document routes (default: "/salesdoc").
	BasePath string `json:"base_path" mapstructure:"base_path" yaml:"base_path"`

	// ConflictRetries is how many times a write is attempted after losing
	// an optimistic concurrency race (default: 3).
	ConflictRetries int `json:"conflict_retries" mapstructure:"conflict_retries" yaml:"conflict_retries"`

	// NumberWidth is the zero-padded width of document sequences (default: 4).
	NumberWidth int `json:"number_width" mapstructure:"number_width" yaml:"number_width"`

	// PluginTimeout bounds each plugin hook call (default: 5s).
	PluginTimeout time.Duration `json:"plugin_timeout" mapstructure:"plugin_timeout" yaml:"plugin_timeout"`

	// RequireConfig requires config to be present in YAML files.
	// If true and no config is found, Register returns an error.
	RequireConfig bool `json:"-" yaml:"-"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		BasePath:        "/salesdoc",
		ConflictRetries: 3,
		NumberWidth:     4,
		PluginTimeout:   5 * time.Second,
	}
}
