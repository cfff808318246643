// Package store defines the persistence contract for the lifecycle engine.
//
// Every mutating method is atomic: the document write, any related insert
// and the audit entries either all commit or none do. Updates are
// optimistic. The caller passes the document with the Version it was read
// at; the store rejects the write with salesdoc.ErrVersionConflict if the
// stored version has moved on, and otherwise bumps Version on the passed
// value.
package store

import (
	"context"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
)

// Store is the unified storage interface for all document types.
type Store interface {
	estimate.Store
	contract.Store
	invoice.Store
	payment.Store
	audit.Store

	// ConvertEstimate flips est (version-checked) and inserts c in one
	// transaction. A second contract for the same estimate is rejected with
	// salesdoc.ErrAlreadyExists.
	ConvertEstimate(ctx context.Context, est *estimate.Estimate, c *contract.Contract, entries ...*audit.Entry) error

	// AppendPayment inserts p and updates inv (version-checked) in one
	// transaction.
	AppendPayment(ctx context.Context, inv *invoice.Invoice, p *payment.Payment, entry *audit.Entry) error

	// NextSequence atomically increments the counter named key and returns
	// the new value, starting at 1.
	NextSequence(ctx context.Context, key string) (int64, error)

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
