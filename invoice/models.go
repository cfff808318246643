// Package invoice models a bill for work, its payment-driven state machine and
// the read-time overdue projection.
package invoice

import (
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/types"
)

// Status is the stored lifecycle state. Overdue is not a status; see IsOverdue.
type Status string

const (
	StatusDraft         Status = "draft"
	StatusSent          Status = "sent"
	StatusViewed        Status = "viewed"
	StatusPartiallyPaid Status = "partially_paid"
	StatusPaid          Status = "paid"
	StatusCancelled     Status = "cancelled"
)

// Invoice is a bill. AmountPaid, AmountDue and Overdue are derived when the
// invoice is read and are never written to storage.
type Invoice struct {
	types.Entity
	ID          id.InvoiceID  `json:"id"`
	Number      string        `json:"number"`
	ContactID   string        `json:"contact_id"`
	ContractID  id.ContractID `json:"contract_id,omitempty"`
	Installment *int          `json:"installment,omitempty"`
	Title       string        `json:"title"`
	Status      Status        `json:"status"`

	LineItems lineitem.Items `json:"line_items"`
	lineitem.Totals

	AmountPaid types.Money `json:"amount_paid"`
	AmountDue  types.Money `json:"amount_due"`
	Overdue    bool        `json:"overdue"`

	DueDate      *time.Time `json:"due_date,omitempty"`
	PaymentTerms string     `json:"payment_terms,omitempty"`
	Notes        string     `json:"notes,omitempty"`

	SentAt      *time.Time `json:"sent_at,omitempty"`
	ViewedAt    *time.Time `json:"viewed_at,omitempty"`
	PaidAt      *time.Time `json:"paid_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedBy   string     `json:"created_by"`
}

// Clone returns a deep copy.
func (inv *Invoice) Clone() *Invoice {
	c := *inv
	c.LineItems = inv.LineItems.Clone()
	if inv.Installment != nil {
		n := *inv.Installment
		c.Installment = &n
	}
	c.DueDate = cloneTime(inv.DueDate)
	c.SentAt = cloneTime(inv.SentAt)
	c.ViewedAt = cloneTime(inv.ViewedAt)
	c.PaidAt = cloneTime(inv.PaidAt)
	c.CancelledAt = cloneTime(inv.CancelledAt)
	return &c
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
