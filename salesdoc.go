package salesdoc

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/plugin"
	"github.com/xraph/salesdoc/store"
)

// TracerName is the instrumentation scope used for facade spans.
const TracerName = "github.com/xraph/salesdoc"

// Engine is the lifecycle facade. Every estimate, contract, invoice and
// payment change goes through it.
type Engine struct {
	store   store.Store
	plugins *plugin.Registry
	logger  *slog.Logger
	tracer  trace.Tracer

	numbers *numbering.Service
	backend numbering.Backend
	clock   func() time.Time

	// Configuration
	conflictRetries int
	numberWidth     int
}

// New creates a new Engine on top of s.
func New(s store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:           s,
		plugins:         plugin.NewRegistry(),
		logger:          slog.Default(),
		clock:           time.Now,
		conflictRetries: 3,
		numberWidth:     4,
	}

	for _, opt := range opts {
		opt(e)
	}

	if e.tracer == nil {
		e.tracer = otel.Tracer(TracerName)
	}
	if e.backend == nil {
		e.backend = numbering.BackendFunc(s.NextSequence)
	}
	e.numbers = numbering.New(e.backend,
		numbering.WithClock(e.now),
		numbering.WithWidth(e.numberWidth),
	)

	return e
}

// Option configures an Engine instance.
type Option func(*Engine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = logger
		e.plugins.WithLogger(logger)
	}
}

// WithPlugin registers a plugin.
func WithPlugin(p plugin.Plugin) Option {
	return func(e *Engine) {
		_ = e.plugins.Register(p) //nolint:errcheck // best-effort plugin registration during init
	}
}

// WithNumbering replaces the store counters with backend, e.g. redis.
func WithNumbering(backend numbering.Backend) Option {
	return func(e *Engine) {
		e.backend = backend
	}
}

// WithNumberWidth sets the zero-padded width of document sequences.
func WithNumberWidth(width int) Option {
	return func(e *Engine) {
		e.numberWidth = width
	}
}

// WithClock sets the clock used for timestamps, numbering years and
// overdue evaluation.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.clock = now
	}
}

// WithConflictRetries sets how many times a write is attempted when it
// loses an optimistic concurrency race.
func WithConflictRetries(n int) Option {
	return func(e *Engine) {
		if n > 0 {
			e.conflictRetries = n
		}
	}
}

// WithPluginTimeout bounds each plugin hook call.
func WithPluginTimeout(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.plugins.WithTimeout(d)
		}
	}
}

// WithTracer sets the tracer used for facade spans.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) {
		e.tracer = t
	}
}

// Start migrates the store and initialises plugins.
func (e *Engine) Start(ctx context.Context) error {
	// Migrate database
	if err := e.store.Migrate(ctx); err != nil {
		return err
	}

	// Initialize plugins
	e.plugins.EmitInit(ctx, e)

	e.logger.Info("salesdoc engine started",
		"plugins", e.plugins.Count(),
		"conflict_retries", e.conflictRetries,
	)

	return nil
}

// Stop shuts down plugins and closes the store.
func (e *Engine) Stop() error {
	ctx := context.Background()
	e.plugins.EmitShutdown(ctx)

	return e.store.Close()
}

// Store returns the underlying store.
func (e *Engine) Store() store.Store { return e.store }

// Plugins returns the plugin registry.
func (e *Engine) Plugins() *plugin.Registry { return e.plugins }

// Logger returns the engine logger.
func (e *Engine) Logger() *slog.Logger { return e.logger }

// Now returns the engine clock reading in UTC.
func (e *Engine) Now() time.Time { return e.now() }

func (e *Engine) now() time.Time { return e.clock().UTC() }
