package invoice

import (
	"time"

	"github.com/xraph/salesdoc/types"
)

// IsOverdue reports whether inv is past due at now. It depends only on the
// stored status and due date, so any reader can evaluate it without a
// background sweep.
func IsOverdue(inv *Invoice, now time.Time) bool {
	return Overdue(inv.Status, inv.DueDate, now)
}

// Overdue is IsOverdue over its raw inputs.
func Overdue(status Status, due *time.Time, now time.Time) bool {
	if due == nil {
		return false
	}
	if status == StatusPaid || status == StatusCancelled {
		return false
	}
	return due.Before(now)
}

// Project fills the derived fields of inv for a reader at now.
func (inv *Invoice) Project(paid types.Money, now time.Time) {
	inv.AmountPaid = paid
	inv.AmountDue = inv.Total.Subtract(paid)
	inv.Overdue = IsOverdue(inv, now)
}

// DaysOverdue returns whole days past the due date, or 0 when not overdue.
func DaysOverdue(inv *Invoice, now time.Time) int {
	if !IsOverdue(inv, now) {
		return 0
	}
	return int(now.Sub(*inv.DueDate).Hours() / 24)
}
