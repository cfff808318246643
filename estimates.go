package salesdoc

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/types"
)

// EstimateInput is the editable content of an estimate.
type EstimateInput struct {
	ContactID     string           `json:"contact_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description,omitempty"`
	LineItems     []lineitem.Input `json:"line_items"`
	Tax           types.Money      `json:"tax"`
	Discount      types.Money      `json:"discount"`
	ValidUntil    *time.Time       `json:"valid_until,omitempty"`
	Terms         string           `json:"terms_and_conditions,omitempty"`
	Notes         string           `json:"notes,omitempty"`
	CustomerNotes string           `json:"customer_notes,omitempty"`
}

func (in EstimateInput) validate() error {
	if in.ContactID == "" {
		return types.Invalid("contact_id", "is required")
	}
	if in.Title == "" {
		return types.Invalid("title", "is required")
	}
	return nil
}

// ──────────────────────────────────────────────────
// Staff operations
// ──────────────────────────────────────────────────

// CreateEstimate numbers and stores a new draft estimate.
func (e *Engine) CreateEstimate(ctx context.Context, actor Actor, in EstimateInput) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "CreateEstimate", actor, id.Nil)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	items, totals, err := price(in.LineItems, in.Tax, in.Discount)
	if err != nil {
		return nil, err
	}

	number, err := e.numbers.Issue(ctx, numbering.KindEstimate)
	if err != nil {
		return nil, err
	}

	now := e.now()
	est := &estimate.Estimate{
		Entity:        types.NewEntityAt(now),
		ID:            id.NewEstimateID(),
		Number:        number,
		ContactID:     in.ContactID,
		Title:         in.Title,
		Description:   in.Description,
		Status:        estimate.StatusDraft,
		LineItems:     items,
		Totals:        totals,
		ValidUntil:    in.ValidUntil,
		Terms:         in.Terms,
		Notes:         in.Notes,
		CustomerNotes: in.CustomerNotes,
		CreatedBy:     actor.ID,
	}

	entry := e.entry(est.ID, "create", actor, "", string(est.Status), number)
	if err := e.store.CreateEstimate(ctx, est, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitDocumentCreated(ctx, estimateDoc(est))
	return est, nil
}

// UpdateEstimate replaces the content of a draft estimate. The contact is
// fixed at creation.
func (e *Engine) UpdateEstimate(ctx context.Context, actor Actor, estID id.EstimateID, in EstimateInput) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "UpdateEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, types.Invalid("title", "is required")
	}
	items, totals, err := price(in.LineItems, in.Tax, in.Discount)
	if err != nil {
		return nil, err
	}

	return e.mutateEstimate(ctx, actor, estID, "edit", "", func(est *estimate.Estimate) error {
		if err := est.Revise(items, totals, e.now()); err != nil {
			return err
		}
		est.Title = in.Title
		est.Description = in.Description
		est.ValidUntil = in.ValidUntil
		est.Terms = in.Terms
		est.Notes = in.Notes
		est.CustomerNotes = in.CustomerNotes
		return nil
	})
}

// SendEstimate moves a draft estimate to sent.
func (e *Engine) SendEstimate(ctx context.Context, actor Actor, estID id.EstimateID) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "SendEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyEstimate(ctx, actor, estID, estimate.EventSend, "")
}

// CancelEstimate cancels an estimate that has not been decided or converted.
func (e *Engine) CancelEstimate(ctx context.Context, actor Actor, estID id.EstimateID, reason string) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "CancelEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyEstimate(ctx, actor, estID, estimate.EventCancel, reason)
}

// ──────────────────────────────────────────────────
// Customer operations
// ──────────────────────────────────────────────────

// MarkEstimateViewed records that the customer opened a sent estimate. In
// any other state it returns the estimate unchanged.
func (e *Engine) MarkEstimateViewed(ctx context.Context, actor Actor, estID id.EstimateID) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "MarkEstimateViewed", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleCustomer); err != nil {
		return nil, err
	}
	return e.mutateEstimate(ctx, actor, estID, string(estimate.EventView), "", func(est *estimate.Estimate) error {
		if est.Status != estimate.StatusSent {
			return errUnchanged
		}
		return est.Apply(estimate.EventView, e.now())
	})
}

// ApproveEstimate accepts a sent or viewed estimate.
func (e *Engine) ApproveEstimate(ctx context.Context, actor Actor, estID id.EstimateID) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "ApproveEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleCustomer); err != nil {
		return nil, err
	}
	return e.applyEstimate(ctx, actor, estID, estimate.EventApprove, "")
}

// RejectEstimate declines a sent or viewed estimate. reason is kept in the
// audit trail.
func (e *Engine) RejectEstimate(ctx context.Context, actor Actor, estID id.EstimateID, reason string) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "RejectEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleCustomer); err != nil {
		return nil, err
	}
	return e.applyEstimate(ctx, actor, estID, estimate.EventReject, reason)
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// GetEstimate returns an estimate visible to actor.
func (e *Engine) GetEstimate(ctx context.Context, actor Actor, estID id.EstimateID) (_ *estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "GetEstimate", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	return e.loadEstimate(ctx, actor, estID)
}

// ListEstimates lists estimates. Customers only see their own.
func (e *Engine) ListEstimates(ctx context.Context, actor Actor, opts estimate.ListOpts) (_ []*estimate.Estimate, err error) {
	ctx, done := e.trace(ctx, "ListEstimates", actor, id.Nil)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	if actor.IsCustomer() {
		opts.ContactID = actor.ID
	}
	return e.store.ListEstimates(ctx, opts)
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) loadEstimate(ctx context.Context, actor Actor, estID id.EstimateID) (*estimate.Estimate, error) {
	est, err := e.store.GetEstimate(ctx, estID)
	if err != nil {
		return nil, err
	}
	if !actor.sees(est.ContactID) {
		return nil, ErrNotFound
	}
	return est, nil
}

func (e *Engine) applyEstimate(ctx context.Context, actor Actor, estID id.EstimateID, ev estimate.Event, detail string) (*estimate.Estimate, error) {
	return e.mutateEstimate(ctx, actor, estID, string(ev), detail, func(est *estimate.Estimate) error {
		return est.Apply(ev, e.now())
	})
}

// mutateEstimate loads, changes and stores an estimate under the version
// check, retrying on conflict.
func (e *Engine) mutateEstimate(ctx context.Context, actor Actor, estID id.EstimateID, operation, detail string, mutate func(*estimate.Estimate) error) (*estimate.Estimate, error) {
	var (
		out     *estimate.Estimate
		from    estimate.Status
		changed bool
	)
	err := e.retry(ctx, func() error {
		est, err := e.loadEstimate(ctx, actor, estID)
		if err != nil {
			return err
		}
		from = est.Status

		if err := mutate(est); err != nil {
			if errors.Is(err, errUnchanged) {
				out, changed = est, false
				return nil
			}
			return err
		}

		entry := e.entry(est.ID, operation, actor, string(from), string(est.Status), detail)
		if err := e.store.UpdateEstimate(ctx, est, entry); err != nil {
			return err
		}
		out, changed = est, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if changed {
		e.emitTransition(ctx, estimateDoc(out), operation, string(from), string(out.Status), actor)
	}
	return out, nil
}
