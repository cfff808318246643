package contract

import (
	"context"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/id"
)

// Store persists contracts. Contracts converted from an estimate are
// unique per EstimateID.
type Store interface {
	CreateContract(ctx context.Context, c *Contract, entry *audit.Entry) error
	GetContract(ctx context.Context, ctrID id.ContractID) (*Contract, error)
	ListContracts(ctx context.Context, opts ListOpts) ([]*Contract, error)
	UpdateContract(ctx context.Context, c *Contract, entry *audit.Entry) error
}

// ListOpts filters ListContracts.
type ListOpts struct {
	ContactID  string
	EstimateID id.EstimateID
	Status     Status
	Limit      int
	Offset     int
}
