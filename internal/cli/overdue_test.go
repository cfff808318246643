package cli

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store/memory"
	"github.com/xraph/salesdoc/types"
)

var now = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

func overdueEngine(t *testing.T) *salesdoc.Engine {
	t.Helper()
	ctx := context.Background()
	staff := salesdoc.Staff("staff_1")

	e := salesdoc.New(memory.New(), salesdoc.WithClock(func() time.Time { return now }))
	require.NoError(t, e.Start(ctx))
	t.Cleanup(func() { _ = e.Stop() })

	issue := func(total string, due time.Time) salesdoc.ID {
		inv, err := e.CreateInvoice(ctx, staff, salesdoc.InvoiceInput{
			ContactID: "contact_1",
			Title:     "Flooring",
			LineItems: []lineitem.Input{
				{Description: "Work", Quantity: types.Units(1), UnitPrice: types.MustParse(total)},
			},
			DueDate: &due,
		})
		require.NoError(t, err)
		_, err = e.SendInvoice(ctx, staff, inv.ID)
		require.NoError(t, err)
		return inv.ID
	}

	issue("500.00", now.AddDate(0, 0, -1))
	partial := issue("1200.00", now.AddDate(0, 0, -14))
	issue("50.00", now.AddDate(0, 0, 6))

	_, _, err := e.RecordPayment(ctx, staff, partial, salesdoc.PaymentInput{
		Amount: types.MustParse("200.00"),
		Method: payment.MethodCard,
	})
	require.NoError(t, err)
	return e
}

func goldenFor(t *testing.T) *goldie.Goldie {
	return goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
}

func TestOverdueReportGolden(t *testing.T) {
	e := overdueEngine(t)
	invs, err := e.ListOverdueInvoices(context.Background(), reportActor, now)
	require.NoError(t, err)
	require.Len(t, invs, 2)

	for _, format := range ValidFormats {
		t.Run(format, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, writeOverdue(&buf, format, now, invs))
			goldenFor(t).Assert(t, "overdue_"+format, buf.Bytes())
		})
	}
}

func TestOverdueReportEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, writeOverdue(&buf, "text", now, nil))
	goldenFor(t).Assert(t, "overdue_empty", buf.Bytes())
}
