package payment_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/payment"
	"github.com/xraph/salesdoc/types"
)

func TestSummarize(t *testing.T) {
	total := types.MustParse("500.00")
	first := &payment.Payment{ID: id.NewPaymentID(), Amount: types.MustParse("300.00")}
	second := &payment.Payment{ID: id.NewPaymentID(), Amount: types.MustParse("200.00")}
	reversal := &payment.Payment{ID: id.NewPaymentID(), Amount: types.MustParse("-200.00"), Reverses: second.ID}

	tests := []struct {
		name    string
		entries []*payment.Payment
		paid    string
		due     string
	}{
		{"no payments", nil, "0.00", "500.00"},
		{"partial", []*payment.Payment{first}, "300.00", "200.00"},
		{"settled", []*payment.Payment{first, second}, "500.00", "0.00"},
		{"reversed", []*payment.Payment{first, second, reversal}, "300.00", "200.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bal := payment.Summarize(total, tt.entries)
			assert.Equal(t, tt.paid, bal.Paid.String())
			assert.Equal(t, tt.due, bal.Due.String())
			assert.Equal(t, total, bal.Total)
		})
	}

	reversed := payment.Reversed([]*payment.Payment{first, second, reversal})
	assert.True(t, reversed[second.ID.String()])
	assert.False(t, reversed[first.ID.String()])
	assert.True(t, reversal.IsReversal())
	assert.False(t, first.IsReversal())
}

func TestMethodValid(t *testing.T) {
	assert.True(t, payment.MethodCard.Valid())
	assert.True(t, payment.MethodFinancing.Valid())
	assert.False(t, payment.Method("barter").Valid())
}
