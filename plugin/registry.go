package plugin

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout bounds a single hook call.
const DefaultTimeout = 5 * time.Second

// Registry manages all registered plugins and provides efficient dispatch.
// Hook implementations are discovered once at registration time.
type Registry struct {
	mu      sync.RWMutex
	plugins []Plugin
	logger  *slog.Logger
	timeout time.Duration

	// Type-cached plugin lists for efficient dispatch
	onInit              []OnInit
	onShutdown          []OnShutdown
	onDocumentCreated   []OnDocumentCreated
	onStatusChanged     []OnStatusChanged
	onDocumentConverted []OnDocumentConverted
	onPaymentRecorded   []OnPaymentRecorded
	onOperationFailed   []OnOperationFailed
}

// NewRegistry creates a new plugin registry.
func NewRegistry() *Registry {
	return &Registry{
		logger:  slog.Default(),
		timeout: DefaultTimeout,
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// WithTimeout sets the per-hook timeout.
func (r *Registry) WithTimeout(d time.Duration) *Registry {
	if d > 0 {
		r.timeout = d
	}
	return r
}

// Register adds a plugin. Plugin names must be unique.
func (r *Registry) Register(p Plugin) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.plugins {
		if existing.Name() == p.Name() {
			return fmt.Errorf("plugin: duplicate registration: %s", p.Name())
		}
	}
	r.plugins = append(r.plugins, p)

	var hooks []string
	if h, ok := p.(OnInit); ok {
		r.onInit = append(r.onInit, h)
		hooks = append(hooks, "OnInit")
	}
	if h, ok := p.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, h)
		hooks = append(hooks, "OnShutdown")
	}
	if h, ok := p.(OnDocumentCreated); ok {
		r.onDocumentCreated = append(r.onDocumentCreated, h)
		hooks = append(hooks, "OnDocumentCreated")
	}
	if h, ok := p.(OnStatusChanged); ok {
		r.onStatusChanged = append(r.onStatusChanged, h)
		hooks = append(hooks, "OnStatusChanged")
	}
	if h, ok := p.(OnDocumentConverted); ok {
		r.onDocumentConverted = append(r.onDocumentConverted, h)
		hooks = append(hooks, "OnDocumentConverted")
	}
	if h, ok := p.(OnPaymentRecorded); ok {
		r.onPaymentRecorded = append(r.onPaymentRecorded, h)
		hooks = append(hooks, "OnPaymentRecorded")
	}
	if h, ok := p.(OnOperationFailed); ok {
		r.onOperationFailed = append(r.onOperationFailed, h)
		hooks = append(hooks, "OnOperationFailed")
	}

	r.logger.Debug("plugin registered",
		"plugin", p.Name(),
		"hooks", hooks,
	)

	return nil
}

// Get returns a plugin by name.
func (r *Registry) Get(name string) Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, p := range r.plugins {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

// List returns all registered plugins.
func (r *Registry) List() []Plugin {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Plugin, len(r.plugins))
	copy(result, r.plugins)
	return result
}

// Count returns the number of registered plugins.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.plugins)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all plugins that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine interface{}) {
	r.mu.RLock()
	plugins := r.onInit
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnInit(ctx, engine)
		}); err != nil {
			r.logger.Warn("plugin OnInit failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitShutdown calls OnShutdown for all plugins that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	plugins := r.onShutdown
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnShutdown(ctx)
		}); err != nil {
			r.logger.Warn("plugin OnShutdown failed",
				"plugin", p.Name(),
				"error", err,
			)
		}
	}
}

// EmitDocumentCreated emits a document created event.
func (r *Registry) EmitDocumentCreated(ctx context.Context, doc Document) {
	r.mu.RLock()
	plugins := r.onDocumentCreated
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnDocumentCreated(ctx, doc)
		}); err != nil {
			r.logger.Warn("plugin OnDocumentCreated failed",
				"plugin", p.Name(),
				"document_id", doc.ID,
				"error", err,
			)
		}
	}
}

// EmitStatusChanged emits a status changed event.
func (r *Registry) EmitStatusChanged(ctx context.Context, t Transition) {
	r.mu.RLock()
	plugins := r.onStatusChanged
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnStatusChanged(ctx, t)
		}); err != nil {
			r.logger.Warn("plugin OnStatusChanged failed",
				"plugin", p.Name(),
				"document_id", t.Document.ID,
				"operation", t.Operation,
				"error", err,
			)
		}
	}
}

// EmitDocumentConverted emits a conversion event.
func (r *Registry) EmitDocumentConverted(ctx context.Context, c Conversion) {
	r.mu.RLock()
	plugins := r.onDocumentConverted
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnDocumentConverted(ctx, c)
		}); err != nil {
			r.logger.Warn("plugin OnDocumentConverted failed",
				"plugin", p.Name(),
				"source_id", c.Source.ID,
				"target_id", c.Target.ID,
				"error", err,
			)
		}
	}
}

// EmitPaymentRecorded emits a payment recorded event.
func (r *Registry) EmitPaymentRecorded(ctx context.Context, e PaymentEvent) {
	r.mu.RLock()
	plugins := r.onPaymentRecorded
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnPaymentRecorded(ctx, e)
		}); err != nil {
			r.logger.Warn("plugin OnPaymentRecorded failed",
				"plugin", p.Name(),
				"payment_id", e.PaymentID,
				"error", err,
			)
		}
	}
}

// EmitOperationFailed emits an operation failed event.
func (r *Registry) EmitOperationFailed(ctx context.Context, f Failure) {
	r.mu.RLock()
	plugins := r.onOperationFailed
	r.mu.RUnlock()

	for _, p := range plugins {
		if err := r.callWithTimeout(ctx, p.Name(), func(ctx context.Context) error {
			return p.OnOperationFailed(ctx, f)
		}); err != nil {
			r.logger.Warn("plugin OnOperationFailed failed",
				"plugin", p.Name(),
				"operation", f.Operation,
				"error", err,
			)
		}
	}
}

// callWithTimeout calls a plugin function with a timeout.
// Plugins should never block the document pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, pluginName string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	done := make(chan error, 1)

	go func() {
		defer func() {
			if rec := recover(); rec != nil {
				done <- fmt.Errorf("plugin panic: %s: %v", pluginName, rec)
			}
		}()
		done <- fn(ctx)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if ctx.Err() == context.DeadlineExceeded {
			return fmt.Errorf("plugin timeout: %s", pluginName)
		}
		return ctx.Err()
	}
}
