package salesdoc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/plugin"
	"github.com/xraph/salesdoc/types"
)

// ContractOptions fills the contract-only fields at conversion time. Empty
// Title and Body fall back to the estimate's title and terms.
type ContractOptions struct {
	Title           string                 `json:"title,omitempty"`
	StartDate       *time.Time             `json:"start_date,omitempty"`
	EndDate         *time.Time             `json:"end_date,omitempty"`
	PaymentTerms    string                 `json:"payment_terms,omitempty"`
	PaymentSchedule []contract.Installment `json:"payment_schedule,omitempty"`
	Body            string                 `json:"contract_body,omitempty"`
}

// InvoiceOptions fills the invoice-only fields when billing a contract.
// Without DueDate the due date comes from the contract payment terms, or
// from the installment when billing one.
type InvoiceOptions struct {
	Title   string     `json:"title,omitempty"`
	DueDate *time.Time `json:"due_date,omitempty"`
	Notes   string     `json:"notes,omitempty"`
}

// ConvertEstimateToContract turns an approved estimate into a draft
// contract. The estimate flips to converted in the same transaction that
// inserts the contract, so an estimate yields at most one contract no
// matter how many callers race.
func (e *Engine) ConvertEstimateToContract(ctx context.Context, actor Actor, estID id.EstimateID, opts ContractOptions) (_ *contract.Contract, err error) {
	ctx, done := e.trace(ctx, "ConvertEstimateToContract", actor, estID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	if err := validDates(opts.StartDate, opts.EndDate); err != nil {
		return nil, err
	}

	var (
		est    *estimate.Estimate
		c      *contract.Contract
		from   estimate.Status
		number string
	)
	err = e.retry(ctx, func() error {
		var err error
		est, err = e.loadEstimate(ctx, actor, estID)
		if err != nil {
			return err
		}
		if err := convertible(est); err != nil {
			return err
		}
		sched := schedule(opts.PaymentSchedule)
		if err := contract.ValidateSchedule(sched, est.Total); err != nil {
			return err
		}

		if number == "" {
			if number, err = e.numbers.Issue(ctx, numbering.KindContract); err != nil {
				return err
			}
		}

		c = contractFromEstimate(est, opts, sched, number, actor, e.now())

		from = est.Status
		if err := est.Apply(estimate.EventConvert, e.now()); err != nil {
			return err
		}

		estEntry := e.entry(est.ID, string(estimate.EventConvert), actor, string(from), string(est.Status), c.ID.String())
		ctrEntry := e.entry(c.ID, "create", actor, "", string(c.Status), est.ID.String())
		err = e.store.ConvertEstimate(ctx, est, c, estEntry, ctrEntry)
		if errors.Is(err, ErrAlreadyExists) {
			return fmt.Errorf("%w: %s", ErrAlreadyConverted, estID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}

	ctrDoc := contractDoc(c)
	e.plugins.EmitDocumentCreated(ctx, ctrDoc)
	e.emitTransition(ctx, estimateDoc(est), string(estimate.EventConvert), string(from), string(est.Status), actor)
	e.plugins.EmitDocumentConverted(ctx, plugin.Conversion{
		Source:  estimateDoc(est),
		Target:  ctrDoc,
		ActorID: actor.ID,
		At:      e.now(),
	})
	return c, nil
}

func convertible(est *estimate.Estimate) error {
	switch {
	case est.Status == estimate.StatusConverted:
		return fmt.Errorf("%w: %s", ErrAlreadyConverted, est.ID)
	case !estimate.Machine.Can(est.Status, estimate.EventConvert):
		return fmt.Errorf("%w: estimate %s is %s", ErrNotConvertible, est.ID, est.Status)
	default:
		return nil
	}
}

func contractFromEstimate(est *estimate.Estimate, opts ContractOptions, sched []contract.Installment, number string, actor Actor, now time.Time) *contract.Contract {
	title := opts.Title
	if title == "" {
		title = est.Title
	}
	body := opts.Body
	if body == "" {
		body = est.Terms
	}

	return &contract.Contract{
		Entity:          types.NewEntityAt(now),
		ID:              id.NewContractID(),
		Number:          number,
		ContactID:       est.ContactID,
		EstimateID:      est.ID,
		Title:           title,
		Description:     est.Description,
		Status:          contract.StatusDraft,
		LineItems:       est.LineItems.Carry(),
		Totals:          est.Totals,
		StartDate:       opts.StartDate,
		EndDate:         opts.EndDate,
		PaymentTerms:    opts.PaymentTerms,
		PaymentSchedule: sched,
		Body:            body,
		CreatedBy:       actor.ID,
	}
}

// ConvertContractToInvoice bills a signed contract in full with a new draft
// invoice. A contract may be billed any number of times.
func (e *Engine) ConvertContractToInvoice(ctx context.Context, actor Actor, ctrID id.ContractID, opts InvoiceOptions) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "ConvertContractToInvoice", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	c, err := e.signedContract(ctx, actor, ctrID)
	if err != nil {
		return nil, err
	}

	number, err := e.numbers.Issue(ctx, numbering.KindInvoice)
	if err != nil {
		return nil, err
	}

	now := e.now()
	due := opts.DueDate
	if due == nil {
		due = invoice.DueFromTerms(c.PaymentTerms, now)
	}
	title := opts.Title
	if title == "" {
		title = c.Title
	}

	inv := &invoice.Invoice{
		Entity:       types.NewEntityAt(now),
		ID:           id.NewInvoiceID(),
		Number:       number,
		ContactID:    c.ContactID,
		ContractID:   c.ID,
		Title:        title,
		Status:       invoice.StatusDraft,
		LineItems:    c.LineItems.Carry(),
		Totals:       c.Totals,
		DueDate:      due,
		PaymentTerms: c.PaymentTerms,
		Notes:        opts.Notes,
		CreatedBy:    actor.ID,
	}
	if err := e.insertInvoice(ctx, actor, inv); err != nil {
		return nil, err
	}

	e.emitConverted(ctx, c, inv, actor)
	return inv, nil
}

// InvoiceInstallment bills one entry of a signed contract's payment
// schedule. Each installment is billed at most once unless its invoice is
// cancelled.
func (e *Engine) InvoiceInstallment(ctx context.Context, actor Actor, ctrID id.ContractID, index int, opts InvoiceOptions) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "InvoiceInstallment", actor, ctrID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	c, err := e.signedContract(ctx, actor, ctrID)
	if err != nil {
		return nil, err
	}
	inst, ok := c.Installment(index)
	if !ok {
		return nil, types.Invalid("installment", "contract %s has no installment %d", c.Number, index)
	}

	items, err := lineitem.Build([]lineitem.Input{{
		Description: inst.Description,
		Quantity:    types.Units(1),
		UnitPrice:   inst.Amount,
	}})
	if err != nil {
		return nil, err
	}
	totals, err := lineitem.Compute(items, types.Zero(), types.Zero())
	if err != nil {
		return nil, err
	}

	number, err := e.numbers.Issue(ctx, numbering.KindInvoice)
	if err != nil {
		return nil, err
	}

	now := e.now()
	due := opts.DueDate
	if due == nil {
		due = inst.DueDate
	}
	if due == nil {
		due = invoice.DueFromTerms(c.PaymentTerms, now)
	}
	title := opts.Title
	if title == "" {
		title = fmt.Sprintf("%s: %s", c.Title, inst.Description)
	}

	idx := index
	inv := &invoice.Invoice{
		Entity:       types.NewEntityAt(now),
		ID:           id.NewInvoiceID(),
		Number:       number,
		ContactID:    c.ContactID,
		ContractID:   c.ID,
		Installment:  &idx,
		Title:        title,
		Status:       invoice.StatusDraft,
		LineItems:    items,
		Totals:       totals,
		DueDate:      due,
		PaymentTerms: c.PaymentTerms,
		Notes:        opts.Notes,
		CreatedBy:    actor.ID,
	}
	if err := e.insertInvoice(ctx, actor, inv); err != nil {
		if errors.Is(err, ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: %s installment %d", ErrAlreadyInvoiced, c.Number, index)
		}
		return nil, err
	}

	e.emitConverted(ctx, c, inv, actor)
	return inv, nil
}

func (e *Engine) signedContract(ctx context.Context, actor Actor, ctrID id.ContractID) (*contract.Contract, error) {
	c, err := e.loadContract(ctx, actor, ctrID)
	if err != nil {
		return nil, err
	}
	if c.Status != contract.StatusSigned {
		return nil, fmt.Errorf("%w: contract %s is %s", ErrNotConvertible, c.ID, c.Status)
	}
	return c, nil
}

func (e *Engine) emitConverted(ctx context.Context, c *contract.Contract, inv *invoice.Invoice, actor Actor) {
	e.plugins.EmitDocumentConverted(ctx, plugin.Conversion{
		Source:  contractDoc(c),
		Target:  invoiceDoc(inv),
		ActorID: actor.ID,
		At:      e.now(),
	})
}
