package salesdoc

import (
	"context"
	"errors"
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/types"
)

// InvoiceInput is the editable content of an invoice created directly by
// staff.
type InvoiceInput struct {
	ContactID    string           `json:"contact_id"`
	Title        string           `json:"title"`
	LineItems    []lineitem.Input `json:"line_items"`
	Tax          types.Money      `json:"tax"`
	Discount     types.Money      `json:"discount"`
	DueDate      *time.Time       `json:"due_date,omitempty"`
	PaymentTerms string           `json:"payment_terms,omitempty"`
	Notes        string           `json:"notes,omitempty"`
}

func (in InvoiceInput) validate() error {
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

// CreateInvoice numbers and stores a draft invoice with no contract
// lineage. Without an explicit due date one is derived from PaymentTerms.
func (e *Engine) CreateInvoice(ctx context.Context, actor Actor, in InvoiceInput) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "CreateInvoice", actor, id.Nil)
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

	number, err := e.numbers.Issue(ctx, numbering.KindInvoice)
	if err != nil {
		return nil, err
	}

	now := e.now()
	due := in.DueDate
	if due == nil {
		due = invoice.DueFromTerms(in.PaymentTerms, now)
	}

	inv := &invoice.Invoice{
		Entity:       types.NewEntityAt(now),
		ID:           id.NewInvoiceID(),
		Number:       number,
		ContactID:    in.ContactID,
		Title:        in.Title,
		Status:       invoice.StatusDraft,
		LineItems:    items,
		Totals:       totals,
		DueDate:      due,
		PaymentTerms: in.PaymentTerms,
		Notes:        in.Notes,
		CreatedBy:    actor.ID,
	}
	if err := e.insertInvoice(ctx, actor, inv); err != nil {
		return nil, err
	}
	return inv, nil
}

// UpdateInvoice replaces the content of a draft invoice.
func (e *Engine) UpdateInvoice(ctx context.Context, actor Actor, invID id.InvoiceID, in InvoiceInput) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "UpdateInvoice", actor, invID)
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

	return e.mutateInvoice(ctx, actor, invID, "edit", "", func(inv *invoice.Invoice) error {
		now := e.now()
		if err := inv.Revise(items, totals, now); err != nil {
			return err
		}
		inv.Title = in.Title
		inv.PaymentTerms = in.PaymentTerms
		inv.Notes = in.Notes
		inv.DueDate = in.DueDate
		if inv.DueDate == nil {
			inv.DueDate = invoice.DueFromTerms(in.PaymentTerms, now)
		}
		return nil
	})
}

// SendInvoice moves a draft invoice to sent.
func (e *Engine) SendInvoice(ctx context.Context, actor Actor, invID id.InvoiceID) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "SendInvoice", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyInvoice(ctx, actor, invID, invoice.EventSend, "")
}

// CancelInvoice cancels an invoice that is not fully paid. Payments already
// recorded stay in the ledger.
func (e *Engine) CancelInvoice(ctx context.Context, actor Actor, invID id.InvoiceID, reason string) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "CancelInvoice", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	return e.applyInvoice(ctx, actor, invID, invoice.EventCancel, reason)
}

// ──────────────────────────────────────────────────
// Customer operations
// ──────────────────────────────────────────────────

// MarkInvoiceViewed records that the customer opened a sent invoice. In any
// other state it returns the invoice unchanged.
func (e *Engine) MarkInvoiceViewed(ctx context.Context, actor Actor, invID id.InvoiceID) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "MarkInvoiceViewed", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleCustomer); err != nil {
		return nil, err
	}
	return e.mutateInvoice(ctx, actor, invID, string(invoice.EventView), "", func(inv *invoice.Invoice) error {
		if inv.Status != invoice.StatusSent {
			return errUnchanged
		}
		return inv.Apply(invoice.EventView, e.now())
	})
}

// ──────────────────────────────────────────────────
// Reads
// ──────────────────────────────────────────────────

// GetInvoice returns an invoice visible to actor with AmountPaid, AmountDue
// and Overdue computed from the payment ledger as of now.
func (e *Engine) GetInvoice(ctx context.Context, actor Actor, invID id.InvoiceID) (_ *invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "GetInvoice", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	inv, err := e.loadInvoice(ctx, actor, invID)
	if err != nil {
		return nil, err
	}
	if err := e.project(ctx, inv, e.now()); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices lists invoices with balances projected. Customers only see
// their own.
func (e *Engine) ListInvoices(ctx context.Context, actor Actor, opts invoice.ListOpts) (_ []*invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "ListInvoices", actor, id.Nil)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	if actor.IsCustomer() {
		opts.ContactID = actor.ID
	}
	out, err := e.store.ListInvoices(ctx, opts)
	if err != nil {
		return nil, err
	}
	now := e.now()
	for _, inv := range out {
		if err := e.project(ctx, inv, now); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// ──────────────────────────────────────────────────
// Helpers
// ──────────────────────────────────────────────────

func (e *Engine) loadInvoice(ctx context.Context, actor Actor, invID id.InvoiceID) (*invoice.Invoice, error) {
	inv, err := e.store.GetInvoice(ctx, invID)
	if err != nil {
		return nil, err
	}
	if !actor.sees(inv.ContactID) {
		return nil, ErrNotFound
	}
	return inv, nil
}

// balance reads the payment ledger of inv.
func (e *Engine) balance(ctx context.Context, inv *invoice.Invoice) (payment.Balance, []*payment.Payment, error) {
	entries, err := e.store.ListPayments(ctx, inv.ID)
	if err != nil {
		return payment.Balance{}, nil, err
	}
	return payment.Summarize(inv.Total, entries), entries, nil
}

// project fills the read-time fields of inv.
func (e *Engine) project(ctx context.Context, inv *invoice.Invoice, now time.Time) error {
	bal, _, err := e.balance(ctx, inv)
	if err != nil {
		return err
	}
	inv.Project(bal.Paid, now)
	return nil
}

func (e *Engine) insertInvoice(ctx context.Context, actor Actor, inv *invoice.Invoice) error {
	entry := e.entry(inv.ID, "create", actor, "", string(inv.Status), inv.Number)
	if err := e.store.CreateInvoice(ctx, inv, entry); err != nil {
		return err
	}
	inv.Project(types.Zero(), e.now())

	e.plugins.EmitDocumentCreated(ctx, invoiceDoc(inv))
	return nil
}

func (e *Engine) applyInvoice(ctx context.Context, actor Actor, invID id.InvoiceID, ev invoice.Event, detail string) (*invoice.Invoice, error) {
	return e.mutateInvoice(ctx, actor, invID, string(ev), detail, func(inv *invoice.Invoice) error {
		return inv.Apply(ev, e.now())
	})
}

// mutateInvoice loads, changes and stores an invoice under the version
// check, retrying on conflict. The result is projected.
func (e *Engine) mutateInvoice(ctx context.Context, actor Actor, invID id.InvoiceID, operation, detail string, mutate func(*invoice.Invoice) error) (*invoice.Invoice, error) {
	var (
		out     *invoice.Invoice
		from    invoice.Status
		changed bool
	)
	err := e.retry(ctx, func() error {
		inv, err := e.loadInvoice(ctx, actor, invID)
		if err != nil {
			return err
		}
		from = inv.Status

		if err := mutate(inv); err != nil {
			if errors.Is(err, errUnchanged) {
				out, changed = inv, false
				return nil
			}
			return err
		}

		entry := e.entry(inv.ID, operation, actor, string(from), string(inv.Status), detail)
		if err := e.store.UpdateInvoice(ctx, inv, entry); err != nil {
			return err
		}
		out, changed = inv, true
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := e.project(ctx, out, e.now()); err != nil {
		return nil, err
	}
	if changed {
		e.emitTransition(ctx, invoiceDoc(out), operation, string(from), string(out.Status), actor)
	}
	return out, nil
}
