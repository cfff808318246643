package estimate

import (
	"context"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/id"
)

// Store persists estimates. Create and Update write entry in the same
// transaction; Update fails with a version conflict if e.Version is stale.
type Store interface {
	CreateEstimate(ctx context.Context, e *Estimate, entry *audit.Entry) error
	GetEstimate(ctx context.Context, estID id.EstimateID) (*Estimate, error)
	ListEstimates(ctx context.Context, opts ListOpts) ([]*Estimate, error)
	UpdateEstimate(ctx context.Context, e *Estimate, entry *audit.Entry) error
}

// ListOpts filters ListEstimates.
type ListOpts struct {
	ContactID string
	Status    Status
	Limit     int
	Offset    int
}
