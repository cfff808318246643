package salesdoc_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/store/memory"
	"github.com/xraph/salesdoc/types"
)

var (
	staff    = salesdoc.Staff("staff_1")
	customer = salesdoc.Customer("contact_1")
	stranger = salesdoc.Customer("contact_2")
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newEngine(t *testing.T, opts ...salesdoc.Option) (*salesdoc.Engine, *clock) {
	t.Helper()

	clk := &clock{t: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	opts = append([]salesdoc.Option{salesdoc.WithClock(clk.Now)}, opts...)
	e := salesdoc.New(memory.New(), opts...)
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })
	return e, clk
}

func estimateInput() salesdoc.EstimateInput {
	return salesdoc.EstimateInput{
		ContactID: customer.ID,
		Title:     "Oak flooring, living room",
		LineItems: []lineitem.Input{
			{Description: "Oak plank, installed", Quantity: types.Units(10), Unit: "sqft", UnitPrice: types.MustParse("100.00")},
		},
		Tax:   types.MustParse("80.00"),
		Terms: "Net 30",
	}
}

func invoiceInput(total string) salesdoc.InvoiceInput {
	return salesdoc.InvoiceInput{
		ContactID: customer.ID,
		Title:     "Repair visit",
		LineItems: []lineitem.Input{
			{Description: "Board replacement", Quantity: types.Units(1), UnitPrice: types.MustParse(total)},
		},
	}
}

func contractInput(schedule ...string) salesdoc.ContractInput {
	in := salesdoc.ContractInput{
		ContactID: customer.ID,
		Title:     "Kitchen tile",
		LineItems: []lineitem.Input{
			{Description: "Porcelain tile", Quantity: types.Units(1), UnitPrice: types.MustParse("1080.00")},
		},
		PaymentTerms: "Net 15",
		Body:         "The contractor will install the tile.",
	}
	for i, amount := range schedule {
		in.PaymentSchedule = append(in.PaymentSchedule, contractInstallment(i, amount))
	}
	return in
}

// approvedEstimate runs an estimate to approved.
func approvedEstimate(t *testing.T, e *salesdoc.Engine) salesdoc.ID {
	t.Helper()
	ctx := context.Background()

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)
	_, err = e.SendEstimate(ctx, staff, est.ID)
	require.NoError(t, err)
	_, err = e.ApproveEstimate(ctx, customer, est.ID)
	require.NoError(t, err)
	return est.ID
}

// sentInvoice creates and sends an invoice for total.
func sentInvoice(t *testing.T, e *salesdoc.Engine, total string) salesdoc.ID {
	t.Helper()
	ctx := context.Background()

	inv, err := e.CreateInvoice(ctx, staff, invoiceInput(total))
	require.NoError(t, err)
	_, err = e.SendInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)
	return inv.ID
}

// signedContract runs a contract to signed.
func signedContract(t *testing.T, e *salesdoc.Engine, schedule ...string) salesdoc.ID {
	t.Helper()
	ctx := context.Background()

	c, err := e.CreateContract(ctx, staff, contractInput(schedule...))
	require.NoError(t, err)
	_, err = e.SendContract(ctx, staff, c.ID)
	require.NoError(t, err)
	_, err = e.SignContract(ctx, customer, c.ID, "customer", "J. Customer")
	require.NoError(t, err)
	_, err = e.SignContract(ctx, staff, c.ID, "company", "A. Contractor")
	require.NoError(t, err)
	return c.ID
}
