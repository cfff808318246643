// Package storetest is a conformance suite for store.Store implementations.
// Backends call Run from their own tests with a factory that returns a
// fresh, migrated store.
package storetest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/audit"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/invoice"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store"
	"github.com/xraph/salesdoc/types"
)

// Factory returns an empty, migrated store. Run closes it.
type Factory func(t *testing.T) store.Store

var epoch = time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

// Run exercises every store.Store guarantee the engine relies on.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(*testing.T, store.Store)
	}{
		{"EstimateRoundTrip", testEstimateRoundTrip},
		{"VersionConflict", testVersionConflict},
		{"ListFilters", testListFilters},
		{"ConvertEstimate", testConvertEstimate},
		{"ContractPerEstimate", testContractPerEstimate},
		{"InstallmentUniqueness", testInstallmentUniqueness},
		{"AppendPayment", testAppendPayment},
		{"AuditOrder", testAuditOrder},
		{"NextSequence", testNextSequence},
		{"NotFound", testNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := open(t)
			t.Cleanup(func() { _ = s.Close() })
			tt.fn(t, s)
		})
	}
}

// ──────────────────────────────────────────────────
// Fixtures
// ──────────────────────────────────────────────────

func items(t *testing.T, prices ...string) (lineitem.Items, lineitem.Totals) {
	t.Helper()
	var in []lineitem.Input
	for _, p := range prices {
		in = append(in, lineitem.Input{Description: "Labor", Quantity: types.MustQuantity("1.5"), Unit: "hr", UnitPrice: types.MustParse(p)})
	}
	li, err := lineitem.Build(in)
	require.NoError(t, err)
	totals, err := lineitem.Compute(li, types.MustParse("5.00"), types.Zero())
	require.NoError(t, err)
	return li, totals
}

func newEstimate(t *testing.T, number, contact string) *estimate.Estimate {
	li, totals := items(t, "100.00", "20.00")
	valid := epoch.AddDate(0, 1, 0)
	return &estimate.Estimate{
		Entity:     types.NewEntityAt(epoch),
		ID:         id.NewEstimateID(),
		Number:     number,
		ContactID:  contact,
		Title:      "Deck repair",
		Status:     estimate.StatusDraft,
		LineItems:  li,
		Totals:     totals,
		ValidUntil: &valid,
		Terms:      "Net 30",
		CreatedBy:  "staff_1",
	}
}

func newContract(t *testing.T, number, contact string, estID id.ID) *contract.Contract {
	li, totals := items(t, "100.00")
	due := epoch.AddDate(0, 0, 14)
	return &contract.Contract{
		Entity:     types.NewEntityAt(epoch),
		ID:         id.NewContractID(),
		Number:     number,
		ContactID:  contact,
		EstimateID: estID,
		Title:      "Deck repair",
		Status:     contract.StatusDraft,
		LineItems:  li,
		Totals:     totals,
		PaymentSchedule: []contract.Installment{
			{Description: "Deposit", Amount: types.MustParse("50.00"), DueDate: &due},
			{Description: "Balance", Amount: types.MustParse("105.00")},
		},
		PaymentTerms: "Net 15",
		Body:         "Terms apply.",
		CreatedBy:    "staff_1",
	}
}

func newInvoice(t *testing.T, number, contact string) *invoice.Invoice {
	li, totals := items(t, "60.00")
	due := epoch.AddDate(0, 0, 30)
	return &invoice.Invoice{
		Entity:    types.NewEntityAt(epoch),
		ID:        id.NewInvoiceID(),
		Number:    number,
		ContactID: contact,
		Title:     "Repair visit",
		Status:    invoice.StatusDraft,
		LineItems: li,
		Totals:    totals,
		DueDate:   &due,
		CreatedBy: "staff_1",
	}
}

func entry(docID id.ID, op, from, to string) *audit.Entry {
	return &audit.Entry{
		ID:         id.NewAuditID(),
		DocumentID: docID,
		Operation:  op,
		ActorID:    "staff_1",
		ActorRole:  "staff",
		From:       from,
		To:         to,
		At:         epoch,
	}
}

// ──────────────────────────────────────────────────
// Cases
// ──────────────────────────────────────────────────

func testEstimateRoundTrip(t *testing.T, s store.Store) {
	ctx := context.Background()
	est := newEstimate(t, "EST-2024-0001", "contact_1")

	require.NoError(t, s.CreateEstimate(ctx, est, entry(est.ID, "create", "", "draft")))
	assert.Equal(t, int64(1), est.Version)

	got, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, est.ID.String(), got.ID.String())
	assert.Equal(t, est.Number, got.Number)
	assert.Equal(t, est.Status, got.Status)
	assert.Equal(t, est.Totals, got.Totals)
	assert.Equal(t, int64(1), got.Version)
	require.Len(t, got.LineItems, 2)
	assert.Equal(t, est.LineItems[0].ID.String(), got.LineItems[0].ID.String())
	assert.Equal(t, "150.00", got.LineItems[0].Total.String())
	assert.True(t, got.LineItems[0].Quantity.Equal(types.MustQuantity("1.5")))
	require.NotNil(t, got.ValidUntil)
	assert.True(t, est.ValidUntil.Equal(*got.ValidUntil))
	assert.Nil(t, got.SentAt)

	sent := epoch.Add(time.Hour)
	got.Status = estimate.StatusSent
	got.SentAt = &sent
	require.NoError(t, s.UpdateEstimate(ctx, got, entry(est.ID, "send", "draft", "sent")))
	assert.Equal(t, int64(2), got.Version)

	again, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusSent, again.Status)
	require.NotNil(t, again.SentAt)
	assert.True(t, sent.Equal(*again.SentAt))
	assert.Equal(t, int64(2), again.Version)
}

func testVersionConflict(t *testing.T, s store.Store) {
	ctx := context.Background()
	est := newEstimate(t, "EST-2024-0001", "contact_1")
	require.NoError(t, s.CreateEstimate(ctx, est, nil))

	a, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	b, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)

	a.Title = "first"
	require.NoError(t, s.UpdateEstimate(ctx, a, nil))

	b.Title = "second"
	err = s.UpdateEstimate(ctx, b, entry(est.ID, "edit", "draft", "draft"))
	require.ErrorIs(t, err, salesdoc.ErrVersionConflict)

	got, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", got.Title)

	history, err := s.ListAudit(ctx, est.ID)
	require.NoError(t, err)
	assert.Empty(t, history, "a rejected update writes no audit entry")
}

func testListFilters(t *testing.T, s store.Store) {
	ctx := context.Background()

	for i, contact := range []string{"contact_1", "contact_1", "contact_2"} {
		inv := newInvoice(t, "INV-2024-000"+string(rune('1'+i)), contact)
		due := epoch.AddDate(0, 0, 10*(i+1))
		inv.DueDate = &due
		require.NoError(t, s.CreateInvoice(ctx, inv, nil))
	}

	mine, err := s.ListInvoices(ctx, invoice.ListOpts{ContactID: "contact_1"})
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	cutoff := epoch.AddDate(0, 0, 25)
	due, err := s.ListInvoices(ctx, invoice.ListOpts{DueBefore: &cutoff})
	require.NoError(t, err)
	assert.Len(t, due, 2)

	paged, err := s.ListInvoices(ctx, invoice.ListOpts{Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 2)

	drafts, err := s.ListInvoices(ctx, invoice.ListOpts{Status: invoice.StatusSent})
	require.NoError(t, err)
	assert.Empty(t, drafts)
}

func testConvertEstimate(t *testing.T, s store.Store) {
	ctx := context.Background()
	est := newEstimate(t, "EST-2024-0001", "contact_1")
	require.NoError(t, s.CreateEstimate(ctx, est, nil))

	est.Status = estimate.StatusConverted
	c := newContract(t, "CTR-2024-0001", "contact_1", est.ID)
	require.NoError(t, s.ConvertEstimate(ctx, est, c,
		entry(est.ID, "convert", "approved", "converted"),
		entry(c.ID, "create", "", "draft"),
	))
	assert.Equal(t, int64(2), est.Version)
	assert.Equal(t, int64(1), c.Version)

	got, err := s.GetContract(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, est.ID.String(), got.EstimateID.String())
	require.Len(t, got.PaymentSchedule, 2)
	assert.Equal(t, "50.00", got.PaymentSchedule[0].Amount.String())
	require.NotNil(t, got.PaymentSchedule[0].DueDate)
	assert.Nil(t, got.PaymentSchedule[1].DueDate)

	byEstimate, err := s.ListContracts(ctx, contract.ListOpts{EstimateID: est.ID})
	require.NoError(t, err)
	assert.Len(t, byEstimate, 1)

	estHistory, err := s.ListAudit(ctx, est.ID)
	require.NoError(t, err)
	assert.Len(t, estHistory, 1)
	ctrHistory, err := s.ListAudit(ctx, c.ID)
	require.NoError(t, err)
	assert.Len(t, ctrHistory, 1)
}

func testContractPerEstimate(t *testing.T, s store.Store) {
	ctx := context.Background()
	est := newEstimate(t, "EST-2024-0001", "contact_1")
	require.NoError(t, s.CreateEstimate(ctx, est, nil))

	first, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	second, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)

	first.Status = estimate.StatusConverted
	require.NoError(t, s.ConvertEstimate(ctx, first, newContract(t, "CTR-2024-0001", "contact_1", est.ID)))

	second.Status = estimate.StatusConverted
	loser := newContract(t, "CTR-2024-0002", "contact_1", est.ID)
	err = s.ConvertEstimate(ctx, second, loser)
	require.Error(t, err)
	assert.True(t, errors.Is(err, salesdoc.ErrVersionConflict) || errors.Is(err, salesdoc.ErrAlreadyExists))
	assert.Equal(t, int64(1), second.Version, "a failed conversion leaves the caller's version alone")

	_, err = s.GetContract(ctx, loser.ID)
	require.ErrorIs(t, err, salesdoc.ErrNotFound)

	// A fresh read still cannot add a second contract.
	fresh, err := s.GetEstimate(ctx, est.ID)
	require.NoError(t, err)
	err = s.ConvertEstimate(ctx, fresh, newContract(t, "CTR-2024-0003", "contact_1", est.ID))
	require.ErrorIs(t, err, salesdoc.ErrAlreadyExists)
}

func testInstallmentUniqueness(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := newContract(t, "CTR-2024-0001", "contact_1", id.Nil)
	require.NoError(t, s.CreateContract(ctx, c, nil))

	zero := 0
	first := newInvoice(t, "INV-2024-0001", "contact_1")
	first.ContractID = c.ID
	first.Installment = &zero
	require.NoError(t, s.CreateInvoice(ctx, first, nil))

	dup := newInvoice(t, "INV-2024-0002", "contact_1")
	dup.ContractID = c.ID
	dup.Installment = &zero
	require.ErrorIs(t, s.CreateInvoice(ctx, dup, nil), salesdoc.ErrAlreadyExists)

	first.Status = invoice.StatusCancelled
	require.NoError(t, s.UpdateInvoice(ctx, first, nil))

	dup.Number = "INV-2024-0003"
	require.NoError(t, s.CreateInvoice(ctx, dup, nil), "cancelled invoices free the installment")

	got, err := s.GetInvoice(ctx, dup.ID)
	require.NoError(t, err)
	require.NotNil(t, got.Installment)
	assert.Equal(t, 0, *got.Installment)
	assert.Equal(t, c.ID.String(), got.ContractID.String())

	billed, err := s.ListInvoices(ctx, invoice.ListOpts{ContractID: c.ID})
	require.NoError(t, err)
	assert.Len(t, billed, 2)
}

func testAppendPayment(t *testing.T, s store.Store) {
	ctx := context.Background()
	inv := newInvoice(t, "INV-2024-0001", "contact_1")
	inv.Status = invoice.StatusSent
	require.NoError(t, s.CreateInvoice(ctx, inv, nil))

	stale, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)

	amounts := []string{"40.00", "30.00", "-30.00"}
	var ids []id.ID
	for i, amount := range amounts {
		cur, err := s.GetInvoice(ctx, inv.ID)
		require.NoError(t, err)
		p := &payment.Payment{
			ID:         id.NewPaymentID(),
			InvoiceID:  inv.ID,
			ContactID:  "contact_1",
			Amount:     types.MustParse(amount),
			Method:     payment.MethodCheck,
			Reference:  "chk",
			RecordedAt: epoch.Add(time.Duration(i) * time.Minute),
			RecordedBy: "staff_1",
		}
		if i == 2 {
			p.Reverses = ids[1]
		}
		cur.Status = invoice.StatusPartiallyPaid
		require.NoError(t, s.AppendPayment(ctx, cur, p, entry(inv.ID, "record_payment", "sent", "partially_paid")))
		ids = append(ids, p.ID)
	}

	lost := &payment.Payment{ID: id.NewPaymentID(), InvoiceID: inv.ID, Amount: types.MustParse("1.00"), Method: payment.MethodCash, RecordedAt: epoch}
	require.ErrorIs(t, s.AppendPayment(ctx, stale, lost, nil), salesdoc.ErrVersionConflict)
	assert.Equal(t, int64(1), stale.Version)

	entries, err := s.ListPayments(ctx, inv.ID)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i := range amounts {
		assert.Equal(t, ids[i].String(), entries[i].ID.String(), "append order")
	}
	assert.Equal(t, ids[1].String(), entries[2].Reverses.String())
	assert.True(t, entries[0].Reverses.IsNil())
	assert.Equal(t, "40.00", payment.Summarize(inv.Total, entries).Paid.String())

	p, err := s.GetPayment(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, payment.MethodCheck, p.Method)
	assert.Equal(t, "contact_1", p.ContactID)

	got, err := s.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.Version)
	assert.True(t, got.AmountPaid.IsZero(), "balances are projected by the engine, not stored")
}

func testAuditOrder(t *testing.T, s store.Store) {
	ctx := context.Background()
	est := newEstimate(t, "EST-2024-0001", "contact_1")
	require.NoError(t, s.CreateEstimate(ctx, est, entry(est.ID, "create", "", "draft")))

	steps := [][2]string{{"draft", "sent"}, {"sent", "viewed"}, {"viewed", "approved"}}
	for _, step := range steps {
		est.Status = estimate.Status(step[1])
		require.NoError(t, s.UpdateEstimate(ctx, est, entry(est.ID, "step", step[0], step[1])))
	}

	history, err := s.ListAudit(ctx, est.ID)
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "create", history[0].Operation)
	for i, step := range steps {
		assert.Equal(t, step[0], history[i+1].From)
		assert.Equal(t, step[1], history[i+1].To)
	}

	none, err := s.ListAudit(ctx, id.NewInvoiceID())
	require.NoError(t, err)
	assert.Empty(t, none)
}

func testNextSequence(t *testing.T, s store.Store) {
	ctx := context.Background()

	n, err := s.NextSequence(ctx, "EST-2024")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = s.NextSequence(ctx, "INV-2024")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "counters are independent per key")

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		seen = map[int64]bool{}
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextSequence(ctx, "EST-2024")
			if !assert.NoError(t, err) {
				return
			}
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers)
	for i := int64(2); i <= workers+1; i++ {
		assert.True(t, seen[i], "sequence %d issued", i)
	}
}

func testNotFound(t *testing.T, s store.Store) {
	ctx := context.Background()

	_, err := s.GetEstimate(ctx, id.NewEstimateID())
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)
	_, err = s.GetContract(ctx, id.NewContractID())
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)
	_, err = s.GetInvoice(ctx, id.NewInvoiceID())
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)
	_, err = s.GetPayment(ctx, id.NewPaymentID())
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)

	ghost := newEstimate(t, "EST-2024-0009", "contact_1")
	ghost.Version = 1
	assert.ErrorIs(t, s.UpdateEstimate(ctx, ghost, nil), salesdoc.ErrNotFound)

	require.NoError(t, s.Ping(ctx))
}
