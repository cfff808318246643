package audithook_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	audithook "github.com/xraph/salesdoc/audit_hook"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/store/memory"
	"github.com/xraph/salesdoc/types"
)

type sink struct {
	mu     sync.Mutex
	events []*audithook.AuditEvent
}

func (s *sink) Record(_ context.Context, evt *audithook.AuditEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, evt)
	return nil
}

func (s *sink) actions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]string, len(s.events))
	for i, evt := range s.events {
		out[i] = evt.Action
	}
	return out
}

func newEngine(t *testing.T, ext *audithook.Extension) *salesdoc.Engine {
	t.Helper()
	e := salesdoc.New(memory.New(), salesdoc.WithPlugin(ext))
	require.NoError(t, e.Start(context.Background()))
	t.Cleanup(func() { _ = e.Stop() })
	return e
}

func invoiceInput() salesdoc.InvoiceInput {
	return salesdoc.InvoiceInput{
		ContactID: "contact_1",
		Title:     "Repair visit",
		LineItems: []lineitem.Input{
			{Description: "Board replacement", Quantity: types.Units(1), UnitPrice: types.MustParse("120.00")},
		},
	}
}

func TestExtensionRecordsLifecycle(t *testing.T) {
	s := &sink{}
	e := newEngine(t, audithook.New(s))
	ctx := context.Background()
	staff := salesdoc.Staff("staff_1")

	inv, err := e.CreateInvoice(ctx, staff, invoiceInput())
	require.NoError(t, err)
	_, err = e.SendInvoice(ctx, staff, inv.ID)
	require.NoError(t, err)
	_, p, err := e.RecordPayment(ctx, staff, inv.ID, salesdoc.PaymentInput{
		Amount: types.MustParse("120.00"),
		Method: payment.MethodCash,
	})
	require.NoError(t, err)
	_, _, err = e.RecordPayment(ctx, staff, inv.ID, salesdoc.PaymentInput{
		Amount: types.MustParse("1.00"),
		Method: payment.MethodCash,
	})
	require.Error(t, err)

	assert.Equal(t, []string{
		audithook.ActionInvoiceCreated,
		audithook.ActionInvoiceSent,
		audithook.ActionPaymentRecorded,
		audithook.ActionInvoicePaymentApplied,
		audithook.ActionOperationFailed,
	}, s.actions())

	paid := s.events[2]
	assert.Equal(t, audithook.ResourcePayment, paid.Resource)
	assert.Equal(t, p.ID.String(), paid.ResourceID)
	assert.Equal(t, "0.00", paid.Metadata["due"])

	failed := s.events[4]
	assert.Equal(t, audithook.OutcomeFailure, failed.Outcome)
	assert.Equal(t, audithook.CategoryPayment, failed.Category)
	assert.Equal(t, audithook.ResourceInvoice, failed.Resource)
	assert.Equal(t, "OverpaymentRejected", failed.Metadata["kind"])
	assert.NotEmpty(t, failed.Reason)
}

func TestExtensionActionFilters(t *testing.T) {
	s := &sink{}
	e := newEngine(t, audithook.New(s,
		audithook.WithDisabledActions(audithook.ActionInvoiceCreated, audithook.ActionOperationFailed),
	))
	ctx := context.Background()

	inv, err := e.CreateInvoice(ctx, salesdoc.Staff("staff_1"), invoiceInput())
	require.NoError(t, err)
	_, err = e.SendInvoice(ctx, salesdoc.Customer("contact_1"), inv.ID)
	require.ErrorIs(t, err, salesdoc.ErrUnauthorized)
	_, err = e.SendInvoice(ctx, salesdoc.Staff("staff_1"), inv.ID)
	require.NoError(t, err)

	assert.Equal(t, []string{audithook.ActionInvoiceSent}, s.actions())

	only := &sink{}
	e = newEngine(t, audithook.New(only, audithook.WithEnabledActions(audithook.ActionInvoiceCreated)))
	_, err = e.CreateInvoice(ctx, salesdoc.Staff("staff_1"), invoiceInput())
	require.NoError(t, err)
	assert.Equal(t, []string{audithook.ActionInvoiceCreated}, only.actions())
}

func TestRecorderErrorsAreSwallowed(t *testing.T) {
	calls := 0
	ext := audithook.New(audithook.RecorderFunc(func(context.Context, *audithook.AuditEvent) error {
		calls++
		return errors.New("audit backend down")
	}))
	e := newEngine(t, ext)

	_, err := e.CreateInvoice(context.Background(), salesdoc.Staff("staff_1"), invoiceInput())
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}
