// Package audit defines the entry written alongside every document mutation.
// Entries are persisted in the same transaction as the change they describe.
package audit

import (
	"context"
	"time"

	"github.com/xraph/salesdoc/id"
)

// Entry records who did what to which document.
type Entry struct {
	ID         id.AuditID `json:"id"`
	DocumentID id.ID      `json:"document_id"`
	Operation  string     `json:"operation"`
	ActorID    string     `json:"actor_id"`
	ActorRole  string     `json:"actor_role"`
	From       string     `json:"from,omitempty"`
	To         string     `json:"to,omitempty"`
	Detail     string     `json:"detail,omitempty"`
	At         time.Time  `json:"at"`
}

// Store reads the audit trail. Writes happen through the document stores.
type Store interface {
	ListAudit(ctx context.Context, documentID id.ID) ([]*Entry, error)
}
