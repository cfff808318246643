// Package payment is the append-only payment ledger. Balances are always
// recomputed from the full list of entries for an invoice; nothing keeps a
// running total.
package payment

import (
	"context"
	"time"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/types"
)

// Method is how the customer paid. The engine records the result of a
// payment; it never captures funds.
type Method string

const (
	MethodCash         Method = "cash"
	MethodCheck        Method = "check"
	MethodCard         Method = "card"
	MethodBankTransfer Method = "bank_transfer"
	MethodFinancing    Method = "financing"
	MethodOther        Method = "other"
)

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	switch m {
	case MethodCash, MethodCheck, MethodCard, MethodBankTransfer, MethodFinancing, MethodOther:
		return true
	default:
		return false
	}
}

// Payment is one ledger entry. A reversal carries a negative Amount and the
// ID of the entry it offsets in Reverses.
type Payment struct {
	ID         id.PaymentID `json:"id"`
	InvoiceID  id.InvoiceID `json:"invoice_id"`
	ContactID  string       `json:"contact_id"`
	Amount     types.Money  `json:"amount"`
	Method     Method       `json:"method"`
	Reference  string       `json:"reference,omitempty"`
	Notes      string       `json:"notes,omitempty"`
	Reverses   id.PaymentID `json:"reverses,omitempty"`
	RecordedAt time.Time    `json:"recorded_at"`
	RecordedBy string       `json:"recorded_by"`
}

// IsReversal reports whether p offsets an earlier payment.
func (p *Payment) IsReversal() bool { return !p.Reverses.IsNil() }

// Balance is the settlement position of an invoice.
type Balance struct {
	Total types.Money `json:"total"`
	Paid  types.Money `json:"paid"`
	Due   types.Money `json:"due"`
}

// Summarize recomputes the balance of an invoice with the given total from
// its ledger entries.
func Summarize(total types.Money, entries []*Payment) Balance {
	var paid types.Money
	for _, p := range entries {
		paid = paid.Add(p.Amount)
	}
	return Balance{Total: total, Paid: paid, Due: total.Subtract(paid)}
}

// Reversed returns the IDs of entries that have already been offset.
func Reversed(entries []*Payment) map[string]bool {
	out := make(map[string]bool)
	for _, p := range entries {
		if p.IsReversal() {
			out[p.Reverses.String()] = true
		}
	}
	return out
}

// Store reads ledger entries. Appends go through the aggregate store so the
// invoice version check and the insert share a transaction.
type Store interface {
	GetPayment(ctx context.Context, payID id.PaymentID) (*Payment, error)
	ListPayments(ctx context.Context, invID id.InvoiceID) ([]*Payment, error)
}
