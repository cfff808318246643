// Package plugin provides an extensible plugin system for the lifecycle
// engine. Plugins hook into document events after they commit; a failing or
// slow plugin never rolls back or blocks a document change.
package plugin

import (
	"context"
	"time"

	"github.com/xraph/salesdoc/types"
)

// Plugin is the base interface that all plugins must implement.
type Plugin interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Plugin
	OnInit(ctx context.Context, engine interface{}) error
}

// OnShutdown is called when the engine stops.
type OnShutdown interface {
	Plugin
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Document hooks
// ──────────────────────────────────────────────────

// OnDocumentCreated is called after an estimate, contract or invoice is
// first stored.
type OnDocumentCreated interface {
	Plugin
	OnDocumentCreated(ctx context.Context, doc Document) error
}

// OnStatusChanged is called after a document moves between states. Edits
// and signatures that keep the state are reported too, with From == To.
type OnStatusChanged interface {
	Plugin
	OnStatusChanged(ctx context.Context, t Transition) error
}

// OnDocumentConverted is called after an estimate becomes a contract or a
// contract produces an invoice.
type OnDocumentConverted interface {
	Plugin
	OnDocumentConverted(ctx context.Context, c Conversion) error
}

// ──────────────────────────────────────────────────
// Payment hooks
// ──────────────────────────────────────────────────

// OnPaymentRecorded is called after a payment or reversal is appended.
type OnPaymentRecorded interface {
	Plugin
	OnPaymentRecorded(ctx context.Context, p PaymentEvent) error
}

// ──────────────────────────────────────────────────
// Failure hooks
// ──────────────────────────────────────────────────

// OnOperationFailed is called when a facade operation returns an error.
type OnOperationFailed interface {
	Plugin
	OnOperationFailed(ctx context.Context, f Failure) error
}

// ──────────────────────────────────────────────────
// Event payloads
// ──────────────────────────────────────────────────

// Document identifies a document in an event.
type Document struct {
	ID        string      `json:"id"`
	Kind      string      `json:"kind"`
	Number    string      `json:"number"`
	ContactID string      `json:"contact_id"`
	Status    string      `json:"status"`
	Total     types.Money `json:"total"`
}

// Transition describes a committed state change.
type Transition struct {
	Document  Document  `json:"document"`
	Operation string    `json:"operation"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ActorID   string    `json:"actor_id"`
	ActorRole string    `json:"actor_role"`
	At        time.Time `json:"at"`
}

// Conversion links a source document to the one created from it.
type Conversion struct {
	Source  Document  `json:"source"`
	Target  Document  `json:"target"`
	ActorID string    `json:"actor_id"`
	At      time.Time `json:"at"`
}

// PaymentEvent describes an appended ledger entry and the resulting balance.
type PaymentEvent struct {
	PaymentID string      `json:"payment_id"`
	InvoiceID string      `json:"invoice_id"`
	ContactID string      `json:"contact_id"`
	Amount    types.Money `json:"amount"`
	Method    string      `json:"method"`
	Reversal  bool        `json:"reversal"`
	Paid      types.Money `json:"paid"`
	Due       types.Money `json:"due"`
	ActorID   string      `json:"actor_id"`
	At        time.Time   `json:"at"`
}

// Failure describes a rejected operation.
type Failure struct {
	Operation  string `json:"operation"`
	DocumentID string `json:"document_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Kind       string `json:"kind"`
	Err        error  `json:"-"`
}
