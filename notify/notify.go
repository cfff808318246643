// Package notify turns committed lifecycle events into background
// notification tasks. The Notifier plugin enqueues asynq tasks; a worker
// registered with Register renders them into Messages for a Sender.
// Delivery (e-mail, SMS) stays outside the engine behind Sender.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/xraph/salesdoc/plugin"
)

// Task types.
const (
	TypeStatusChanged   = "salesdoc:status_changed"
	TypePaymentRecorded = "salesdoc:payment_recorded"
)

// DefaultQueue is the asynq queue notifications go to.
const DefaultQueue = "notifications"

// Compile-time interface checks.
var (
	_ plugin.Plugin            = (*Notifier)(nil)
	_ plugin.OnStatusChanged   = (*Notifier)(nil)
	_ plugin.OnPaymentRecorded = (*Notifier)(nil)
)

// Enqueuer is the part of *asynq.Client the notifier uses.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Notifier is a plugin that enqueues one task per state change and per
// payment.
type Notifier struct {
	client   Enqueuer
	queue    string
	maxRetry int
	timeout  time.Duration
	logger   *slog.Logger
}

// Option configures a Notifier.
type Option func(*Notifier)

// WithQueue sets the target queue.
func WithQueue(queue string) Option {
	return func(n *Notifier) { n.queue = queue }
}

// WithMaxRetry sets how often a failed delivery is retried.
func WithMaxRetry(n int) Option {
	return func(no *Notifier) { no.maxRetry = n }
}

// WithTaskTimeout bounds one delivery attempt.
func WithTaskTimeout(d time.Duration) Option {
	return func(n *Notifier) { n.timeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(n *Notifier) { n.logger = logger }
}

// NewNotifier creates a Notifier enqueueing through client, usually an
// *asynq.Client.
func NewNotifier(client Enqueuer, opts ...Option) *Notifier {
	n := &Notifier{
		client:   client,
		queue:    DefaultQueue,
		maxRetry: 5,
		timeout:  30 * time.Second,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

// Name implements plugin.Plugin.
func (n *Notifier) Name() string { return "notify" }

// OnStatusChanged implements plugin.OnStatusChanged. Edits and partial
// signatures that keep the state are not announced.
func (n *Notifier) OnStatusChanged(ctx context.Context, t plugin.Transition) error {
	if t.From == t.To {
		return nil
	}
	return n.enqueue(ctx, TypeStatusChanged, t, t.Document.ID)
}

// OnPaymentRecorded implements plugin.OnPaymentRecorded.
func (n *Notifier) OnPaymentRecorded(ctx context.Context, p plugin.PaymentEvent) error {
	return n.enqueue(ctx, TypePaymentRecorded, p, p.PaymentID)
}

func (n *Notifier) enqueue(ctx context.Context, typ string, payload any, key string) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("notify: marshal %s: %w", typ, err)
	}

	info, err := n.client.EnqueueContext(ctx, asynq.NewTask(typ, data),
		asynq.Queue(n.queue),
		asynq.MaxRetry(n.maxRetry),
		asynq.Timeout(n.timeout),
	)
	if err != nil {
		return fmt.Errorf("notify: enqueue %s for %s: %w", typ, key, err)
	}

	n.logger.Debug("notification enqueued",
		"type", typ,
		"key", key,
		"task_id", info.ID,
	)
	return nil
}
