package salesdoc_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xraph/salesdoc"
	"github.com/xraph/salesdoc/contract"
	"github.com/xraph/salesdoc/estimate"
	"github.com/xraph/salesdoc/lineitem"
	"github.com/xraph/salesdoc/numbering"
	"github.com/xraph/salesdoc/types"
)

func TestCreateEstimate(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)

	assert.Equal(t, "EST-2024-0001", est.Number)
	assert.Equal(t, estimate.StatusDraft, est.Status)
	assert.Equal(t, "1000.00", est.Subtotal.String())
	assert.Equal(t, "80.00", est.Tax.String())
	assert.Equal(t, "1080.00", est.Total.String())
	assert.Equal(t, int64(1), est.Version)
	assert.Equal(t, staff.ID, est.CreatedBy)

	next, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)
	assert.Equal(t, "EST-2024-0002", next.Number)
}

func TestCreateEstimateValidation(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*salesdoc.EstimateInput)
	}{
		{"missing contact", func(in *salesdoc.EstimateInput) { in.ContactID = "" }},
		{"missing title", func(in *salesdoc.EstimateInput) { in.Title = "" }},
		{"blank description", func(in *salesdoc.EstimateInput) { in.LineItems[0].Description = "  " }},
		{"negative tax", func(in *salesdoc.EstimateInput) { in.Tax = types.MustParse("-1.00") }},
		{"discount above total", func(in *salesdoc.EstimateInput) { in.Discount = types.MustParse("5000.00") }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := estimateInput()
			tt.mutate(&in)
			_, err := e.CreateEstimate(ctx, staff, in)
			assert.ErrorIs(t, err, salesdoc.ErrInvalidInput)
		})
	}

	list, err := e.ListEstimates(ctx, staff, estimate.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestNumberingFailureCreatesNothing(t *testing.T) {
	calls := 0
	down := numbering.BackendFunc(func(context.Context, string) (int64, error) {
		calls++
		return 0, errors.New("dial tcp: connection refused")
	})
	e, _ := newEngine(t, salesdoc.WithNumbering(down))
	ctx := context.Background()

	_, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.ErrorIs(t, err, salesdoc.ErrNumberingBackendUnavailable)
	assert.Equal(t, "NumberingBackendUnavailable", salesdoc.Kind(err))
	assert.Equal(t, 1, calls)

	list, err := e.ListEstimates(ctx, staff, estimate.ListOpts{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestEstimateEditOnlyInDraft(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)

	in := estimateInput()
	in.Title = "Oak flooring, living room and hall"
	in.LineItems = append(in.LineItems, lineitem.Input{
		Description: "Trim", Quantity: types.MustQuantity("12.5"), Unit: "ft", UnitPrice: types.MustParse("3.49"),
	})
	est, err = e.UpdateEstimate(ctx, staff, est.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "1043.63", est.Subtotal.String())
	assert.Equal(t, "1123.63", est.Total.String())
	assert.Equal(t, int64(2), est.Version)

	_, err = e.SendEstimate(ctx, staff, est.ID)
	require.NoError(t, err)

	_, err = e.UpdateEstimate(ctx, staff, est.ID, in)
	assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition)
}

func TestEstimateDecisions(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	t.Run("approve without viewing", func(t *testing.T) {
		id := approvedEstimate(t, e)
		est, err := e.GetEstimate(ctx, customer, id)
		require.NoError(t, err)
		assert.Equal(t, estimate.StatusApproved, est.Status)
		assert.NotNil(t, est.ApprovedAt)
		assert.Nil(t, est.ViewedAt)
	})

	t.Run("view then reject", func(t *testing.T) {
		est, err := e.CreateEstimate(ctx, staff, estimateInput())
		require.NoError(t, err)
		_, err = e.SendEstimate(ctx, staff, est.ID)
		require.NoError(t, err)

		est, err = e.MarkEstimateViewed(ctx, customer, est.ID)
		require.NoError(t, err)
		assert.Equal(t, estimate.StatusViewed, est.Status)

		est, err = e.RejectEstimate(ctx, customer, est.ID, "over budget")
		require.NoError(t, err)
		assert.Equal(t, estimate.StatusRejected, est.Status)

		_, err = e.ApproveEstimate(ctx, customer, est.ID)
		assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition)

		history, err := e.DocumentHistory(ctx, staff, est.ID)
		require.NoError(t, err)
		require.Len(t, history, 4)
		assert.Equal(t, "reject", history[3].Operation)
		assert.Equal(t, "over budget", history[3].Detail)
		assert.Equal(t, "viewed", history[3].From)
		assert.Equal(t, "rejected", history[3].To)
	})

	t.Run("approve from draft", func(t *testing.T) {
		est, err := e.CreateEstimate(ctx, staff, estimateInput())
		require.NoError(t, err)
		_, err = e.ApproveEstimate(ctx, customer, est.ID)
		assert.ErrorIs(t, err, salesdoc.ErrInvalidTransition)
	})
}

func TestViewOutsideSentIsNoop(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	id := approvedEstimate(t, e)
	before, err := e.DocumentHistory(ctx, staff, id)
	require.NoError(t, err)

	est, err := e.MarkEstimateViewed(ctx, customer, id)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusApproved, est.Status)
	assert.Nil(t, est.ViewedAt)

	after, err := e.DocumentHistory(ctx, staff, id)
	require.NoError(t, err)
	assert.Len(t, after, len(before))
}

func TestEstimateRoles(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	_, err := e.CreateEstimate(ctx, customer, estimateInput())
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	_, err = e.CreateEstimate(ctx, salesdoc.Actor{}, estimateInput())
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)

	_, err = e.SendEstimate(ctx, customer, est.ID)
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	_, err = e.SendEstimate(ctx, staff, est.ID)
	require.NoError(t, err)

	_, err = e.ApproveEstimate(ctx, staff, est.ID)
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)
}

func TestCustomerScope(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)
	_, err = e.SendEstimate(ctx, staff, est.ID)
	require.NoError(t, err)

	_, err = e.GetEstimate(ctx, stranger, est.ID)
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)

	_, err = e.ApproveEstimate(ctx, stranger, est.ID)
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)

	_, err = e.DocumentHistory(ctx, stranger, est.ID)
	assert.ErrorIs(t, err, salesdoc.ErrNotFound)

	mine, err := e.ListEstimates(ctx, customer, estimate.ListOpts{})
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	theirs, err := e.ListEstimates(ctx, stranger, estimate.ListOpts{ContactID: customer.ID})
	require.NoError(t, err)
	assert.Empty(t, theirs)
}

// An approved estimate converts into a draft contract that carries its line items and totals.
func TestConvertEstimateToContract(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	estID := approvedEstimate(t, e)

	c, err := e.ConvertEstimateToContract(ctx, staff, estID, salesdoc.ContractOptions{PaymentTerms: "Net 30"})
	require.NoError(t, err)
	assert.Equal(t, contract.StatusDraft, c.Status)
	assert.Equal(t, "CTR-2024-0001", c.Number)
	assert.Equal(t, "1080.00", c.Total.String())
	assert.Equal(t, estID.String(), c.EstimateID.String())
	assert.Equal(t, customer.ID, c.ContactID)
	assert.Equal(t, "Net 30", c.Body, "body falls back to the estimate terms")

	est, err := e.GetEstimate(ctx, staff, estID)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusConverted, est.Status)
	assert.NotNil(t, est.ConvertedAt)
	require.Len(t, c.LineItems, len(est.LineItems))
	assert.NotEqual(t, est.LineItems[0].ID.String(), c.LineItems[0].ID.String())
	assert.Equal(t, est.LineItems[0].Total, c.LineItems[0].Total)

	_, err = e.ConvertEstimateToContract(ctx, staff, estID, salesdoc.ContractOptions{})
	assert.ErrorIs(t, err, salesdoc.ErrAlreadyConverted)
	assert.True(t, salesdoc.IsRecoverable(err))

	contracts, err := e.ListContracts(ctx, staff, contract.ListOpts{EstimateID: estID})
	require.NoError(t, err)
	assert.Len(t, contracts, 1)
}

func TestConvertRequiresApproval(t *testing.T) {
	e, _ := newEngine(t)
	ctx := context.Background()

	est, err := e.CreateEstimate(ctx, staff, estimateInput())
	require.NoError(t, err)

	_, err = e.ConvertEstimateToContract(ctx, staff, est.ID, salesdoc.ContractOptions{})
	assert.ErrorIs(t, err, salesdoc.ErrNotConvertible)

	id := approvedEstimate(t, e)
	_, err = e.ConvertEstimateToContract(ctx, customer, id, salesdoc.ContractOptions{})
	assert.ErrorIs(t, err, salesdoc.ErrUnauthorized)

	over := []contract.Installment{{Description: "All", Amount: types.MustParse("2000.00")}}
	_, err = e.ConvertEstimateToContract(ctx, staff, id, salesdoc.ContractOptions{PaymentSchedule: over})
	assert.ErrorIs(t, err, salesdoc.ErrInvalidInput)

	est, err = e.GetEstimate(ctx, staff, id)
	require.NoError(t, err)
	assert.Equal(t, estimate.StatusApproved, est.Status, "a rejected conversion leaves the estimate untouched")

	c, err := e.ConvertEstimateToContract(ctx, staff, id, salesdoc.ContractOptions{})
	require.NoError(t, err)
	assert.Equal(t, "CTR-2024-0001", c.Number, "a rejected schedule does not use up a contract number")
}
