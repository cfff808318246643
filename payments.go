package salesdoc

import (
	"context"
	"fmt"
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/plugin"
	"github.com/xraph/salesdoc/types"
)

// PaymentInput describes a payment confirmed by the payment processor.
type PaymentInput struct {
	Amount    types.Money    `json:"amount"`
	Method    payment.Method `json:"method"`
	Reference string         `json:"reference,omitempty"`
	Notes     string         `json:"notes,omitempty"`
}

// RecordPayment appends a payment to the invoice ledger and moves the
// invoice to partially_paid or paid.
//
// The amount must be positive and no larger than the amount due when the
// write commits; the balance is re-read on every retry so racing payments
// cannot overpay together. A zero amount against a zero-total invoice marks
// it paid without a ledger entry, in which case the returned payment is nil.
func (e *Engine) RecordPayment(ctx context.Context, actor Actor, invID id.InvoiceID, in PaymentInput) (_ *invoice.Invoice, _ *payment.Payment, err error) {
	ctx, done := e.trace(ctx, "RecordPayment", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, nil, err
	}
	if in.Method == "" {
		in.Method = payment.MethodOther
	}
	if !in.Method.Valid() {
		return nil, nil, types.Invalid("method", "unknown payment method %q", in.Method)
	}

	var (
		out  *invoice.Invoice
		rec  *payment.Payment
		from invoice.Status
		bal  payment.Balance
	)
	err = e.retry(ctx, func() error {
		inv, err := e.loadInvoice(ctx, actor, invID)
		if err != nil {
			return err
		}
		bal, _, err = e.balance(ctx, inv)
		if err != nil {
			return err
		}
		from = inv.Status
		now := e.now()

		if in.Amount.IsZero() && inv.Total.IsZero() && bal.Due.IsZero() {
			if err := inv.Apply(invoice.EventPayFull, now); err != nil {
				return err
			}
			entry := e.entry(inv.ID, "record_payment", actor, string(from), string(inv.Status), "zero total")
			if err := e.store.UpdateInvoice(ctx, inv, entry); err != nil {
				return err
			}
			out, rec = inv, nil
			return nil
		}

		if !in.Amount.IsPositive() {
			return fmt.Errorf("%w: got %s", ErrInvalidAmount, in.Amount)
		}
		if in.Amount.GreaterThan(bal.Due) {
			return fmt.Errorf("%w: %s exceeds amount due %s", ErrOverpaymentRejected, in.Amount, bal.Due)
		}

		paid := bal.Paid.Add(in.Amount)
		if err := inv.Apply(invoice.PaymentEvent(paid, inv.Total), now); err != nil {
			return err
		}

		p := &payment.Payment{
			ID:         id.NewPaymentID(),
			InvoiceID:  inv.ID,
			ContactID:  inv.ContactID,
			Amount:     in.Amount,
			Method:     in.Method,
			Reference:  in.Reference,
			Notes:      in.Notes,
			RecordedAt: now,
			RecordedBy: actor.ID,
		}
		entry := e.entry(inv.ID, "record_payment", actor, string(from), string(inv.Status), p.ID.String()+" "+p.Amount.String())
		if err := e.store.AppendPayment(ctx, inv, p, entry); err != nil {
			return err
		}
		bal = payment.Balance{Total: inv.Total, Paid: paid, Due: inv.Total.Subtract(paid)}
		out, rec = inv, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	now := e.now()
	out.Project(bal.Paid, now)

	if rec != nil {
		e.emitPayment(ctx, rec, bal, actor)
	}
	e.emitTransition(ctx, invoiceDoc(out), "record_payment", string(from), string(out.Status), actor)
	return out, rec, nil
}

// ReversePayment appends a negative entry offsetting payID, for refunds and
// chargebacks. A payment can be reversed once and reversals cannot be
// reversed. The invoice falls back to partially_paid, or to sent when
// nothing remains paid; a cancelled invoice keeps its status.
func (e *Engine) ReversePayment(ctx context.Context, actor Actor, payID id.PaymentID, reason string) (_ *invoice.Invoice, _ *payment.Payment, err error) {
	ctx, done := e.trace(ctx, "ReversePayment", actor, payID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, nil, err
	}
	orig, err := e.store.GetPayment(ctx, payID)
	if err != nil {
		return nil, nil, err
	}
	if orig.IsReversal() {
		return nil, nil, fmt.Errorf("%w: %s is itself a reversal", ErrInvalidTransition, payID)
	}

	var (
		out  *invoice.Invoice
		rec  *payment.Payment
		from invoice.Status
		bal  payment.Balance
	)
	err = e.retry(ctx, func() error {
		inv, err := e.loadInvoice(ctx, actor, orig.InvoiceID)
		if err != nil {
			return err
		}
		var entries []*payment.Payment
		bal, entries, err = e.balance(ctx, inv)
		if err != nil {
			return err
		}
		if payment.Reversed(entries)[orig.ID.String()] {
			return fmt.Errorf("%w: %s", ErrAlreadyReversed, payID)
		}

		from = inv.Status
		now := e.now()
		paid := bal.Paid.Subtract(orig.Amount)
		if inv.Status != invoice.StatusCancelled {
			if err := inv.Apply(invoice.ReversalEvent(paid), now); err != nil {
				return err
			}
		} else {
			inv.Touch(now)
		}

		p := &payment.Payment{
			ID:         id.NewPaymentID(),
			InvoiceID:  inv.ID,
			ContactID:  inv.ContactID,
			Amount:     orig.Amount.Negate(),
			Method:     orig.Method,
			Reference:  orig.Reference,
			Notes:      reason,
			Reverses:   orig.ID,
			RecordedAt: now,
			RecordedBy: actor.ID,
		}
		entry := e.entry(inv.ID, "reverse_payment", actor, string(from), string(inv.Status), orig.ID.String()+" "+reason)
		if err := e.store.AppendPayment(ctx, inv, p, entry); err != nil {
			return err
		}
		bal = payment.Balance{Total: inv.Total, Paid: paid, Due: inv.Total.Subtract(paid)}
		out, rec = inv, p
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	out.Project(bal.Paid, e.now())

	e.emitPayment(ctx, rec, bal, actor)
	e.emitTransition(ctx, invoiceDoc(out), "reverse_payment", string(from), string(out.Status), actor)
	return out, rec, nil
}

// GetPayment returns a ledger entry visible to actor.
func (e *Engine) GetPayment(ctx context.Context, actor Actor, payID id.PaymentID) (_ *payment.Payment, err error) {
	ctx, done := e.trace(ctx, "GetPayment", actor, payID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	p, err := e.store.GetPayment(ctx, payID)
	if err != nil {
		return nil, err
	}
	if !actor.sees(p.ContactID) {
		return nil, ErrNotFound
	}
	return p, nil
}

// ListPayments returns the ledger of an invoice in append order.
func (e *Engine) ListPayments(ctx context.Context, actor Actor, invID id.InvoiceID) (_ []*payment.Payment, err error) {
	ctx, done := e.trace(ctx, "ListPayments", actor, invID)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff, RoleCustomer); err != nil {
		return nil, err
	}
	inv, err := e.loadInvoice(ctx, actor, invID)
	if err != nil {
		return nil, err
	}
	return e.store.ListPayments(ctx, inv.ID)
}

// ListOverdueInvoices returns the invoices overdue as of asOf (now when
// zero), with balances projected at that instant.
func (e *Engine) ListOverdueInvoices(ctx context.Context, actor Actor, asOf time.Time) (_ []*invoice.Invoice, err error) {
	ctx, done := e.trace(ctx, "ListOverdueInvoices", actor, id.Nil)
	defer func() { done(err) }()

	if err := actor.allow(RoleStaff); err != nil {
		return nil, err
	}
	if asOf.IsZero() {
		asOf = e.now()
	}

	candidates, err := e.store.ListInvoices(ctx, invoice.ListOpts{DueBefore: &asOf})
	if err != nil {
		return nil, err
	}

	var out []*invoice.Invoice
	for _, inv := range candidates {
		if !invoice.IsOverdue(inv, asOf) {
			continue
		}
		if err := e.project(ctx, inv, asOf); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, nil
}

func (e *Engine) emitPayment(ctx context.Context, p *payment.Payment, bal payment.Balance, actor Actor) {
	e.plugins.EmitPaymentRecorded(ctx, plugin.PaymentEvent{
		PaymentID: p.ID.String(),
		InvoiceID: p.InvoiceID.String(),
		ContactID: p.ContactID,
		Amount:    p.Amount,
		Method:    string(p.Method),
		Reversal:  p.IsReversal(),
		Paid:      bal.Paid,
		Due:       bal.Due,
		ActorID:   actor.ID,
		At:        p.RecordedAt,
	})
}
