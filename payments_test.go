package salesdoc_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/types"
)

func pay(amount string) salesdoc.PaymentInput {
	return salesdoc.PaymentInput{Amount: types.MustParse(amount), Method: payment.MethodCard, Reference: "ch_123"}
}

// A partial payment leaves the invoice partially paid; paying the rest marks it paid.
func TestRecordPaymentPartialThenFull(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	invID := sentInvoice(t, e, "500.00")

	inv, p, err := e.RecordPayment(ctx, staff, invID, pay("300.00"))
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, invoice.StatusPartiallyPaid, inv.Status)
	assert.Equal(t, "300.00", inv.AmountPaid.String())
	assert.Equal(t, "200.00", inv.AmountDue.String())
	assert.Nil(t, inv.PaidAt)

	inv, _, err = e.RecordPayment(ctx, customer, invID, pay("200.00"))
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
	assert.Equal(t, "0.00", inv.AmountDue.String())
	assert.NotNil(t, inv.PaidAt)

	_, _, err = e.RecordPayment(ctx, staff, invID, pay("0.01"))
	assert.ErrorIs(t, err, salesdoc.ErrOverpaymentRejected)

	entries, err := e.ListPayments(ctx, customer, invID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "300.00", entries[0].Amount.String())
	assert.Equal(t, "200.00", entries[1].Amount.String())

	got, err := e.GetInvoice(ctx, customer, invID)
	require.NoError(t, err)
	assert.Equal(t, "500.00", got.AmountPaid.String())
}

func TestRecordPaymentGuards(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	invID := sentInvoice(t, e, "500.00")

	_, _, err := e.RecordPayment(ctx, staff, invID, pay("0.00"))
	assert.ErrorIs(t, err, salesdoc.ErrInvalidAmount)

	_, _, err = e.RecordPayment(ctx, staff, invID, pay("-5.00"))
	assert.ErrorIs(t, err, salesdoc.ErrInvalidAmount)

	_, _, err = e.RecordPayment(ctx, staff, invID, pay("500.01"))
	assert.ErrorIs(t, err, salesdoc.ErrOverpaymentRejected)

	_, _, err = e.RecordPayment(ctx, staff, invID, salesdoc.PaymentInput{Amount: types.MustParse("1.00"), Method: "bitcoin"})
	assert.ErrorIs(t, err, salesdoc.ErrInvalidInput)

	_, _, err = e.RecordPayment(ctx, stranger, invID, pay("1.00"))
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)

	draft, err := e.CreateInvoice(ctx, staff, invoiceInput("100.00"))
	require.NoError(t, err)
	_, _, err = e.RecordPayment(ctx, staff, draft.ID, pay("100.00"))
	assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition, "drafts cannot be paid")

	entries, err := e.ListPayments(ctx, staff, invID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestZeroTotalInvoice(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	invID := sentInvoice(t, e, "0.00")

	inv, p, err := e.RecordPayment(ctx, staff, invID, pay("0.00"))
	require.NoError(t, err)
	assert.Nil(t, p)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
	assert.NotNil(t, inv.PaidAt)
	assert.True(t, inv.AmountDue.IsZero())

	entries, err := e.ListPayments(ctx, staff, invID)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

// Overdue is derived from the due date and clock, never stored.
func TestOverdueIsDerived(t *testing.T) {
	e, clk := newEngine(t)
	ctx := context.Background()

	in := invoiceInput("500.00")
	yesterday := clk.Now().Add(-24 * time.Hour)
	in.DueDate = &yesterday
	inv, err := e.CreateInvoice(ctx, staff, in)
	require.NoError(t, err)
	_, err = e.SendInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)

	got, err := e.GetInvoice(ctx, customer, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Overdue)
	assert.Equal(t, invoice.StatusSent, got.Status)

	overdue, err := e.ListOverdueInvoices(ctx, staff, time.Time{})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "500.00", overdue[0].AmountDue.String())

	got, _, err = e.RecordPayment(ctx, customer, inv.ID, pay("500.00"))
	require.NoError(t, err)
	assert.False(t, got.Overdue)
	assert.Equal(t, invoice.StatusPaid, got.Status)

	overdue, err = e.ListOverdueInvoices(ctx, staff, time.Time{})
	require.NoError(t, err)
	assert.Empty(t, overdue)

	_, err = e.ListOverdueInvoices(ctx, customer, time.Time{})
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)
}

func TestOverdueAsOf(t *testing.T) {
	e, clk := newEngine(t)
	ctx := context.Background()

	in := invoiceInput("120.00")
	in.PaymentTerms = "Net 30"
	inv, err := e.CreateInvoice(ctx, staff, in)
	require.NoError(t, err)
	require.NotNil(t, inv.DueDate)
	_, err = e.SendInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)

	overdue, err := e.ListOverdueInvoices(ctx, staff, clk.Now().AddDate(0, 0, 29))
	require.NoError(t, err)
	assert.Empty(t, overdue)

	overdue, err = e.ListOverdueInvoices(ctx, staff, clk.Now().AddDate(0, 0, 31))
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	clk.Advance(31 * 24 * time.Hour)
	got, err := e.GetInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)
	assert.True(t, got.Overdue)
}

func TestReversePayment(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()
	invID := sentInvoice(t, e, "500.00")

	_, first, err := e.RecordPayment(ctx, staff, invID, pay("200.00"))
	require.NoError(t, err)
	_, second, err := e.RecordPayment(ctx, staff, invID, pay("300.00"))
	require.NoError(t, err)

	_, _, err = e.ReversePayment(ctx, customer, second.ID, "chargeback")
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	inv, rev, err := e.ReversePayment(ctx, staff, second.ID, "chargeback")
	require.NoError(t, err)
	assert.Equal(t, "-300.00", rev.Amount.String())
	assert.Equal(t, second.ID.String(), rev.Reverses.String())
	assert.Equal(t, invoice.StatusPartiallyPaid, inv.Status)
	assert.Nil(t, inv.PaidAt)
	assert.Equal(t, "200.00", inv.AmountPaid.String())
	assert.Equal(t, "300.00", inv.AmountDue.String())

	_, _, err = e.ReversePayment(ctx, staff, second.ID, "again")
	assert.ErrorIs(t, err, salesdoc.ErrAlreadyReversed)

	_, _, err = e.ReversePayment(ctx, staff, rev.ID, "undo")
	assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition)

	inv, _, err = e.ReversePayment(ctx, staff, first.ID, "refund")
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusSent, inv.Status)
	assert.Equal(t, "500.00", inv.AmountDue.String())

	entries, err := e.ListPayments(ctx, staff, invID)
	require.NoError(t, err)
	assert.Len(t, entries, 4)
	assert.True(t, payment.Summarize(inv.Total, entries).Paid.IsZero())

	inv, _, err = e.RecordPayment(ctx, staff, invID, pay("500.00"))
	require.NoError(t, err)
	assert.Equal(t, invoice.StatusPaid, inv.Status)
}

func TestCancelDocument(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	estID := approvedEstimate(t, e)
	out, err := e.CancelDocument(ctx, staff, estID, "customer went elsewhere")
	require.NoError(t, err)
	est, ok := out.(*estimate.Estimate)
	require.True(t, ok)
	assert.Equal(t, estimate.StatusCancelled, est.Status)
	assert.NotNil(t, est.CancelledAt)

	invID := sentInvoice(t, e, "500.00")
	_, _, err = e.RecordPayment(ctx, staff, invID, pay("100.00"))
	require.NoError(t, err)
	out, err = e.CancelDocument(ctx, staff, invID, "dispute")
	require.NoError(t, err)
	inv, ok := out.(*invoice.Invoice)
	require.True(t, ok)
	assert.Equal(t, invoice.StatusCancelled, inv.Status)
	assert.Equal(t, "100.00", inv.AmountPaid.String(), "payments stay in the ledger")
	assert.False(t, inv.Overdue)

	paidID := sentInvoice(t, e, "50.00")
	_, _, err = e.RecordPayment(ctx, staff, paidID, pay("50.00"))
	require.NoError(t, err)
	_, err = e.CancelDocument(ctx, staff, paidID, "too late")
	assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition)

	_, err = e.CancelDocument(ctx, customer, invID, "")
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	_, p, err := e.RecordPayment(ctx, staff, sentInvoice(t, e, "10.00"), pay("5.00"))
	require.NoError(t, err)
	_, err = e.CancelDocument(ctx, staff, p.ID, "")
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)
}
