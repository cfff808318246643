package salesdoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/types"
)

// ContractInput is the editable content of a contract created directly by
// staff.
type ContractInput struct {
	ContactID       string                 `json:"contact_id"`
	Title           string                 `json:"title"`
	Description     string                 `json:"description,omitempty"`
	LineItems       []lineitem.Input       `json:"line_items"`
	Tax             types.Money            `json:"tax"`
	Discount        types.Money            `json:"discount"`
	StartDate       *time.Time             `json:"start_date,omitempty"`
	EndDate         *time.Time             `json:"end_date,omitempty"`
	PaymentTerms    string                 `json:"payment_terms,omitempty"`
	PaymentSchedule []contract.Installment `json:"payment_schedule,omitempty"`
	Body            string                 `json:"contract_body,omitempty"`
}

func (in ContractInput) validate() error {
	if in.ContactID == "" {
		return types.Invalid("contact_id", "is required")
	}
	if in.Title == "" {
		return types.Invalid("title", "is required")
	}
	return validDates(in.StartDate, in.EndDate)
}

func validDates(start, end *time.Time) error {
	if start != nil && end != nil && end.Before(*start) {
		return types.Invalid("end_date", "must not be before start_date")
	}
	return nil
}

// schedule copies caller installments; status is always derived.
func schedule(in []contract.Installment) []contract.Installment {
	if len(in) == 0 {
		return nil
	}
	out := make([]contract.Installment, len(in))
	for i, inst := range in {
		inst.Status = contract.InstallmentScheduled
		out[i] = inst
	}
	return out
}

// ──────────────────────────────────────────────────
// Staff operations
// ──────────────────────────────────────────────────

// CreateContract numbers and stores a draft contract with no estimate
// lineage.
func (e *Engine) CreateContract(ctx context.Context, actor Actor, in ContractInput) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "CreateContract", actor, id.Nil)
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
	sched := schedule(in.PaymentSchedule)
	if err := contract.ValidateSchedule(sched, totals.Total); err != nil {
		return nil, err
	}

	number, err := e.numbers.Issue(ctx, numbering.KindContract)
	if err != nil {
		return nil, err
	}

	now := e.now()
	c := &contract.Contract{
		Entity:          types.NewEntityAt(now),
		ID:              id.NewContractID(),
		Number:          number,
		ContactID:       in.ContactID,
		Title:           in.Title,
		Description:     in.Description,
		Status:          contract.StatusDraft,
		LineItems:       items,
		Totals:          totals,
		StartDate:       in.StartDate,
		EndDate:         in.EndDate,
		PaymentTerms:    in.PaymentTerms,
		PaymentSchedule: sched,
		Body:            in.Body,
		CreatedBy:       actor.ID,
	}

	entry := e.entry(c.ID, "create", actor, "", string(c.Status), number)
	if err := e.store.CreateContract(ctx, c, entry); err != nil {
		return nil, err
	}

	e.plugins.EmitDocumentCreated(ctx, contractDoc(c))
	return c, nil
}

// UpdateContract replaces the content of a draft contract.
func (e *Engine) UpdateContract(ctx context.Context, actor Actor, ctrID id.ContractID, in ContractInput) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "UpdateContract", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	if in.Title == "" {
		return nil, types.Invalid("title", "is required")
	}
	if err := validDates(in.StartDate, in.EndDate); err != nil {
		return nil, err
	}
	items, totals, err := price(in.LineItems, in.Tax, in.Discount)
	if err != nil {
		return nil, err
	}
	sched := schedule(in.PaymentSchedule)

	return e.mutateContract(ctx, actor, ctrID, "edit", "", func(c *contract.Contract) error {
		if err := c.Revise(items, totals, sched, e.now()); err != nil {
			return err
		}
		c.Title = in.Title
		c.Description = in.Description
		c.StartDate = in.StartDate
		c.EndDate = in.EndDate
		c.PaymentTerms = in.PaymentTerms
		c.Body = in.Body
		return nil
	})
}

// SendContract moves a draft contract to sent.
func (e *Engine) SendContract(ctx context.Context, actor Actor, ctrID id.ContractID) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "SendContract", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyContract(ctx, actor, ctrID, contract.EventSend, "")
}

// CancelContract cancels an unsigned contract.
func (e *Engine) CancelContract(ctx context.Context, actor Actor, ctrID id.ContractID, reason string) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "CancelContract", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyContract(ctx, actor, ctrID, contract.EventCancel, reason)
}

// ──────────────────────────────────────────────────
// Customer operations
// ──────────────────────────────────────────────────

// MarkContractViewed records that the customer opened a sent contract. In
// any other state it returns the contract unchanged.
func (e *Engine) MarkContractViewed(ctx context.Context, actor Actor, ctrID id.ContractID) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "MarkContractViewed", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleCustomer); err != nil {
		return nil, err
	}
	return e.mutateContract(ctx, actor, ctrID, string(contract.EventView), "", func(c *contract.Contract) error {
		if c.Status != contract.StatusSent {
			return errUnchanged
		}
		return c.Apply(contract.EventView, e.now())
	})
}

// SignContract records one party's signature. Staff sign for the company
// and customers for themselves. The contract becomes signed once both
// signatures are present.
func (e *Engine) SignContract(ctx context.Context, actor Actor, ctrID id.ContractID, party contract.Party, signature string) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "SignContract", actor, ctrID)
	defer func() { done(err) }()

	switch party {
	case contract.PartyCompany:
		err = actor.allow(RoleStaff)
	case contract.PartyCustomer:
		err = actor.allow(RoleCustomer)
	default:
		err = types.Invalid("party", "unknown party %q", party)
	}
	if err != nil {
		return nil, err
	}

	return e.mutateContract(ctx, actor, ctrID, string(contract.EventSign), string(party), func(c *contract.Contract) error {
		_, err := c.Sign(party, signature, e.now())
		return err
	})
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// GetContract returns a contract visible to actor with its installment
// statuses derived from the invoices billed against it.
func (e *Engine) GetContract(ctx context.Context, actor Actor, ctrID id.ContractID) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "GetContract", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	c, err := e.loadContract(ctx, actor, ctrID)
	if err != nil {
		return nil, err
	}
	if err := e.projectSchedule(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// ListContracts lists contracts. Customers only see their own.
func (e *Engine) ListContracts(ctx context.Context, actor Actor, opts contract.ListOpts) (_ []*contract.Contract, err error) {
	ctx, done := e.trace(ctx, "ListContracts", actor, id.Nil)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	if actor.IsCustomer() {
		opts.ContactID = actor.ID
	}
	out, err := e.store.ListContracts(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, c := range out {
		if err := e.projectSchedule(ctx, c); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) loadContract(ctx context.Context, actor Actor, ctrID id.ContractID) (*contract.Contract, error) {
	c, err := e.store.GetContract(ctx, ctrID)
	if err != nil {
		return nil, err
	}
	if !actor.sees(c.ContactID) {
		return nil, ErrNotFound
	}
	return c, nil
}

// projectSchedule derives installment statuses. Cancelled invoices free
// their installment.
func (e *Engine) projectSchedule(ctx context.Context, c *contract.Contract) error {
	if len(c.PaymentSchedule) == 0 {
		return nil
	}
	invoices, err := e.store.ListInvoices(ctx, invoice.ListOpts{ContractID: c.ID})
	if err != nil {
		return fmt.Errorf("salesdoc: project schedule: %w", err)
	}

	billed := make(map[int]contract.InstallmentStatus)
	for _, inv := range invoices {
		if inv.Installment == nil || inv.Status == invoice.StatusCancelled {
			continue
		}
		if inv.Status == invoice.StatusPaid {
			billed[*inv.Installment] = contract.InstallmentPaid
		} else {
			billed[*inv.Installment] = contract.InstallmentInvoiced
		}
	}
	c.ProjectSchedule(billed)
	return nil
}

func (e *Engine) applyContract(ctx context.Context, actor Actor, ctrID id.ContractID, ev contract.Event, detail string) (*contract.Contract, error) {
	return e.mutateContract(ctx, actor, ctrID, string(ev), detail, func(c *contract.Contract) error {
		return c.Apply(ev, e.now())
	})
}

// mutateContract loads, changes and stores a contract under the version
// check, retrying on conflict.
func (e *Engine) mutateContract(ctx context.Context, actor Actor, ctrID id.ContractID, operation, detail string, mutate func(*contract.Contract) error) (*contract.Contract, error) {
	var (
		out     *contract.Contract
		from    contract.Status
		changed bool
	)
	err := e.retry(ctx, func() error {
		c, err := e.loadContract(ctx, actor, ctrID)
		if err != nil {
			return err
		}
		from = c.Status

		if err := mutate(c); err != nil {
			if errors.Is(err, errUnchanged) {
				out, changed = c, false
				return nil
			}
			return err
		}

		entry := e.entry(c.ID, operation, actor, string(from), string(c.Status), detail)
		if err := e.store.UpdateContract(ctx, c, entry); err != nil {
			return err
		}
		out, changed = c, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.projectSchedule(ctx, out); err != nil {
		e.logger.Warn("salesdoc: schedule projection failed", "contract_id", out.ID.String(), "error", err)
	}
	if changed {
		e.emitTransition(ctx, contractDoc(out), operation, string(from), string(out.Status), actor)
	}
	return out, nil
}
