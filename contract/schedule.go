package contract

import (
	"time"

	"github.com/xraph/salesdoc/types"
)

// InstallmentStatus is derived when a contract is read: it reflects the
// invoices billed against the installment, not a stored flag.
type InstallmentStatus string

const (
	InstallmentScheduled InstallmentStatus = "scheduled"
	InstallmentInvoiced  InstallmentStatus = "invoiced"
	InstallmentPaid      InstallmentStatus = "paid"
)

// Installment is one entry of a progress-billing schedule.
type Installment struct {
	Description string            `json:"description"`
	Amount      types.Money       `json:"amount"`
	DueDate     *time.Time        `json:"due_date,omitempty"`
	Status      InstallmentStatus `json:"status"`
}

// ValidateSchedule checks every installment is positive and that together
// they do not exceed the contract amount.
func ValidateSchedule(schedule []Installment, amount types.Money) error {
	var sum types.Money
	for _, in := range schedule {
		if in.Description == "" {
			return types.Invalid("payment_schedule", "installment description must not be empty")
		}
		if !in.Amount.IsPositive() {
			return types.Invalid("payment_schedule", "installment amount must be positive")
		}
		next, err := sum.CheckedAdd(in.Amount)
		if err != nil {
			return types.Invalid("payment_schedule", "installments total is out of range")
		}
		sum = next
	}
	if sum.GreaterThan(amount) {
		return types.Invalid("payment_schedule", "installments total %s exceeds contract amount %s", sum, amount)
	}
	return nil
}

// Installment returns schedule entry i.
func (c *Contract) Installment(i int) (Installment, bool) {
	if i < 0 || i >= len(c.PaymentSchedule) {
		return Installment{}, false
	}
	return c.PaymentSchedule[i], true
}

// ProjectSchedule sets each installment's Status from billed, keyed by
// installment index. Missing indexes are scheduled.
func (c *Contract) ProjectSchedule(billed map[int]InstallmentStatus) {
	for i := range c.PaymentSchedule {
		st, ok := billed[i]
		if !ok {
			st = InstallmentScheduled
		}
		c.PaymentSchedule[i].Status = st
	}
}
