package salesdoc_test

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/plugin"
)

type hookRecorder struct {
	mu          sync.Mutex
	created     []plugin.Document
	transitions []plugin.Transition
	conversions []plugin.Conversion
	payments    []plugin.PaymentEvent
	failures    []plugin.Failure
}

func (r *hookRecorder) Name() string { return "recorder" }

func (r *hookRecorder) OnDocumentCreated(_ context.Context, doc plugin.Document) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.created = append(r.created, doc)
	return nil
}

func (r *hookRecorder) OnStatusChanged(_ context.Context, t plugin.Transition) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.transitions = append(r.transitions, t)
	return nil
}

func (r *hookRecorder) OnDocumentConverted(_ context.Context, c plugin.Conversion) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conversions = append(r.conversions, c)
	return nil
}

func (r *hookRecorder) OnPaymentRecorded(_ context.Context, p plugin.PaymentEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payments = append(r.payments, p)
	return nil
}

func (r *hookRecorder) OnOperationFailed(_ context.Context, f plugin.Failure) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, f)
	return nil
}

func TestHooksFollowCommits(t *testing.T) {
	rec := &hookRecorder{}
	e, _ := newEngine(t, salesdoc.WithPlugin(rec))
	ctx := context.Background()

	estID := approvedEstimate(t, e)
	c, err := e.ConvertEstimateToContract(ctx, staff, estID, salesdoc.ContractOptions{})
	require.NoError(t, err)

	_, err = e.ConvertEstimateToContract(ctx, staff, estID, salesdoc.ContractOptions{})
	require.ErrorIs(t, err, salesdoc.ErrAlreadyConverted)

	invID := sentInvoice(t, e, "80.00")
	_, _, err = e.RecordPayment(ctx, customer, invID, pay("80.00"))
	require.NoError(t, err)

	rec.mu.Lock()
	defer rec.mu.Unlock()

	require.Len(t, rec.created, 3)
	assert.Equal(t, salesdoc.DocumentEstimate, rec.created[0].Kind)
	assert.Equal(t, salesdoc.DocumentContract, rec.created[1].Kind)
	assert.Equal(t, salesdoc.DocumentInvoice, rec.created[2].Kind)

	var ops []string
	for _, tr := range rec.transitions {
		ops = append(ops, tr.Document.Kind+":"+tr.Operation+":"+tr.From+">"+tr.To)
	}
	assert.Equal(t, []string{
		"estimate:send:draft>sent",
		"estimate:approve:sent>approved",
		"estimate:convert:approved>converted",
		"invoice:send:draft>sent",
		"invoice:record_payment:sent>paid",
	}, ops)

	require.Len(t, rec.conversions, 1)
	assert.Equal(t, estID.String(), rec.conversions[0].Source.ID)
	assert.Equal(t, c.ID.String(), rec.conversions[0].Target.ID)

	require.Len(t, rec.payments, 1)
	assert.Equal(t, "80.00", rec.payments[0].Amount.String())
	assert.True(t, rec.payments[0].Due.IsZero())
	assert.False(t, rec.payments[0].Reversal)

	require.Len(t, rec.failures, 1)
	assert.Equal(t, "ConvertEstimateToContract", rec.failures[0].Operation)
	assert.Equal(t, "AlreadyConverted", rec.failures[0].Kind)
}
