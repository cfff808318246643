// Package extension provides the Forge extension adapter for salesdoc.
//
// It implements the forge.Extension interface to integrate the document
// lifecycle engine into a Forge application with DI registration and
// lifecycle management.
//
// Configuration can be provided programmatically via Option functions
// or via YAML configuration files under "extensions.salesdoc" or "salesdoc" keys.
package extension

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/xraph/forge"
	"github.com/xraph/vessel"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/api"
	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/store/memory"
)

// ExtensionName is the name registered with Forge.
const ExtensionName = "salesdoc"

// ExtensionDescription is the human-readable description.
const ExtensionDescription = "Estimate, contract and invoice lifecycle engine"

// ExtensionVersion is the semantic version.
const ExtensionVersion = "0.1.0"

// Ensure Extension implements forge.Extension at compile time.
var _ forge.Extension = (*Extension)(nil)

// Extension adapts the salesdoc engine as a Forge extension.
type Extension struct {
	*forge.BaseExtension

	config     Config
	engine     *salesdoc.Engine
	store      store.Store
	handler    http.Handler
	engineOpts []salesdoc.Option
}

// New creates a new salesdoc Forge extension with the given options.
func New(opts ...Option) *Extension {
	e := &Extension{
		BaseExtension: forge.NewBaseExtension(ExtensionName, ExtensionVersion, ExtensionDescription),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Engine returns the underlying engine.
// This is nil until Register is called.
func (e *Extension) Engine() *salesdoc.Engine { return e.engine }

// Handler returns the HTTP handler serving the document routes under
// BasePath. It is nil until Register is called, and stays nil when
// routes are disabled.
func (e *Extension) Handler() http.Handler { return e.handler }

// Register implements [forge.Extension]. It loads configuration,
// initializes the engine, and registers it in the DI container.
func (e *Extension) Register(fapp forge.App) error {
	if err := e.BaseExtension.Register(fapp); err != nil {
		return err
	}

	if err := e.loadConfiguration(); err != nil {
		return err
	}

	if e.store == nil {
		e.store = memory.New()
	}

	e.engine = salesdoc.New(e.store, e.buildEngineOpts()...)

	if err := vessel.Provide(fapp.Container(), func() (*salesdoc.Engine, error) {
		return e.engine, nil
	}); err != nil {
		return err
	}

	if e.config.DisableRoutes {
		return nil
	}
	e.handler = e.buildHandler()
	return vessel.Provide(fapp.Container(), func() (http.Handler, error) {
		return e.handler, nil
	})
}

// Start implements [forge.Extension].
func (e *Extension) Start(ctx context.Context) error {
	if e.engine == nil {
		return errors.New("salesdoc: extension not initialized")
	}

	if !e.config.DisableMigrate {
		if err := e.engine.Start(ctx); err != nil {
			return err
		}
	}

	e.MarkStarted()
	return nil
}

// Stop implements [forge.Extension].
func (e *Extension) Stop(_ context.Context) error {
	if e.engine != nil {
		if err := e.engine.Stop(); err != nil {
			e.MarkStopped()
			return err
		}
	}
	e.MarkStopped()
	return nil
}

// Health implements [forge.Extension].
func (e *Extension) Health(ctx context.Context) error {
	if e.store == nil {
		return errors.New("salesdoc: store not initialized")
	}
	return e.store.Ping(ctx)
}

// buildEngineOpts constructs salesdoc.Option values from the resolved config.
// Pass-through options come last so they win over file config.
func (e *Extension) buildEngineOpts() []salesdoc.Option {
	opts := make([]salesdoc.Option, 0, len(e.engineOpts)+3)
	opts = append(opts,
		salesdoc.WithConflictRetries(e.config.ConflictRetries),
		salesdoc.WithNumberWidth(e.config.NumberWidth),
		salesdoc.WithPluginTimeout(e.config.PluginTimeout),
	)
	return append(opts, e.engineOpts...)
}

func (e *Extension) buildHandler() http.Handler {
	h := api.NewHandler(e.engine)
	logger := e.engine.Logger()

	r := gin.New()
	r.Use(api.RequestID(), api.Recovery(logger), api.RequestLogger(logger))
	r.GET(e.config.BasePath+"/healthz", h.Health)
	h.Routes(r.Group(e.config.BasePath, api.Authenticate()))
	return r
}

// --- Config Loading ---

// loadConfiguration loads config from YAML files or programmatic sources.
func (e *Extension) loadConfiguration() error {
	programmaticConfig := e.config

	fileConfig, configLoaded := e.tryLoadFromConfigFile()

	if !configLoaded {
		if programmaticConfig.RequireConfig {
			return errors.New("salesdoc: configuration is required but not found in config files; " +
				"ensure 'extensions.salesdoc' or 'salesdoc' key exists in your config")
		}
		e.config = e.mergeWithDefaults(programmaticConfig)
	} else {
		e.config = e.mergeConfigurations(fileConfig, programmaticConfig)
	}

	e.Logger().Debug("salesdoc: configuration loaded",
		forge.F("disable_routes", e.config.DisableRoutes),
		forge.F("disable_migrate", e.config.DisableMigrate),
		forge.F("base_path", e.config.BasePath),
		forge.F("conflict_retries", e.config.ConflictRetries),
		forge.F("number_width", e.config.NumberWidth),
		forge.F("plugin_timeout", e.config.PluginTimeout),
	)

	return nil
}

// tryLoadFromConfigFile attempts to load config from YAML files.
func (e *Extension) tryLoadFromConfigFile() (Config, bool) {
	cm := e.App().Config()

	for _, key := range []string{"extensions.salesdoc", "salesdoc"} {
		if !cm.IsSet(key) {
			continue
		}
		var cfg Config
		if err := cm.Bind(key, &cfg); err != nil {
			e.Logger().Warn("salesdoc: failed to bind config",
				forge.F("key", key),
				forge.F("error", err.Error()),
			)
			continue
		}
		e.Logger().Debug("salesdoc: loaded config from file", forge.F("key", key))
		return cfg, true
	}

	return Config{}, false
}

// mergeWithDefaults fills zero-valued fields with defaults.
func (e *Extension) mergeWithDefaults(cfg Config) Config {
	defaults := DefaultConfig()
	if cfg.BasePath == "" {
		cfg.BasePath = defaults.BasePath
	}
	if cfg.ConflictRetries == 0 {
		cfg.ConflictRetries = defaults.ConflictRetries
	}
	if cfg.NumberWidth == 0 {
		cfg.NumberWidth = defaults.NumberWidth
	}
	if cfg.PluginTimeout == 0 {
		cfg.PluginTimeout = defaults.PluginTimeout
	}
	return cfg
}

// mergeConfigurations merges YAML config with programmatic options.
// YAML config takes precedence; programmatic values fill gaps and bool
// flags override when true.
func (e *Extension) mergeConfigurations(yamlConfig, programmaticConfig Config) Config {
	if programmaticConfig.DisableRoutes {
		yamlConfig.DisableRoutes = true
	}
	if programmaticConfig.DisableMigrate {
		yamlConfig.DisableMigrate = true
	}

	if yamlConfig.BasePath == "" {
		yamlConfig.BasePath = programmaticConfig.BasePath
	}
	if yamlConfig.ConflictRetries == 0 {
		yamlConfig.ConflictRetries = programmaticConfig.ConflictRetries
	}
	if yamlConfig.NumberWidth == 0 {
		yamlConfig.NumberWidth = programmaticConfig.NumberWidth
	}
	if yamlConfig.PluginTimeout == 0 {
		yamlConfig.PluginTimeout = programmaticConfig.PluginTimeout
	}

	return e.mergeWithDefaults(yamlConfig)
}
