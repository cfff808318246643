package salesdoc

import (
	"context"
	"fmt"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/id"
)

// CancelDocument cancels the estimate, contract or invoice named by docID,
// dispatching on the id prefix. The result is an *estimate.Estimate,
// *contract.Contract or *invoice.Invoice.
func (e *Engine) CancelDocument(ctx context.Context, actor Actor, docID id.ID, reason string) (any, error) {
	switch docID.Prefix() {
	case id.PrefixEstimate:
		est, err := e.CancelEstimate(ctx, actor, docID, reason)
		if err != nil {
			return nil, err
		}
		return est, nil
	case id.PrefixContract:
		c, err := e.CancelContract(ctx, actor, docID, reason)
		if err != nil {
			return nil, err
		}
		return c, nil
	case id.PrefixInvoice:
		inv, err := e.CancelInvoice(ctx, actor, docID, reason)
		if err != nil {
			return nil, err
		}
		return inv, nil
	default:
		return nil, fmt.Errorf("%w: %q is not a document id", ErrNotFound, docID.String())
	}
}

// DocumentHistory returns the audit trail of a document visible to actor,
// oldest first. Payments appear on their invoice.
func (e *Engine) DocumentHistory(ctx context.Context, actor Actor, docID id.ID) (_ []*audit.Entry, err error) {
	ctx, done := e.trace(ctx, "DocumentHistory", actor, docID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}

	switch docID.Prefix() {
	case id.PrefixEstimate:
		_, err = e.loadEstimate(ctx, actor, docID)
	case id.PrefixContract:
		_, err = e.loadContract(ctx, actor, docID)
	case id.PrefixInvoice:
		_, err = e.loadInvoice(ctx, actor, docID)
	default:
		err = fmt.Errorf("%w: %q is not a document id", ErrNotFound, docID.String())
	}
	if err != nil {
		return nil, err
	}

	return e.store.ListAudit(ctx, docID)
}
