package invoice

import (
	"context"
	"time"

	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/id"
)

// Store persists invoices. Invoices billed against a contract installment
// are unique per (ContractID, Installment).
type Store interface {
	CreateInvoice(ctx context.Context, inv *Invoice, entry *audit.Entry) error
	GetInvoice(ctx context.Context, invID id.InvoiceID) (*Invoice, error)
	ListInvoices(ctx context.Context, opts ListOpts) ([]*Invoice, error)
	UpdateInvoice(ctx context.Context, inv *Invoice, entry *audit.Entry) error
}

// ListOpts filters ListInvoices. DueBefore selects invoices with a due date
// strictly before the given time.
type ListOpts struct {
	ContactID  string
	ContractID id.ContractID
	Status     Status
	DueBefore  *time.Time
	Limit      int
	Offset     int
}
