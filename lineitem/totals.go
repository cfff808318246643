package lineitem

import "github.com/xraph/salesdoc/types"

// Totals is the money summary of a document: Total = Subtotal + Tax − Discount.
type Totals struct {
	Subtotal types.Money `json:"subtotal"`
	Tax      types.Money `json:"tax"`
	Discount types.Money `json:"discount"`
	Total    types.Money `json:"total"`
}

// Compute derives totals from the items and the flat tax and discount
// amounts. Tax is supplied by the caller; the engine does not compute it.
func Compute(items Items, tax, discount types.Money) (Totals, error) {
	if tax.IsNegative() {
		return Totals{}, types.Invalid("tax", "must not be negative")
	}
	if discount.IsNegative() {
		return Totals{}, types.Invalid("discount", "must not be negative")
	}

	subtotal, err := items.Subtotal()
	if err != nil {
		return Totals{}, types.Invalid("line_items", "subtotal is out of range")
	}
	total, err := subtotal.CheckedAdd(tax)
	if err != nil {
		return Totals{}, types.Invalid("tax", "total is out of range")
	}
	// Both operands are non-negative here, so this cannot overflow.
	total = total.Subtract(discount)
	if total.IsNegative() {
		return Totals{}, types.Invalid("discount", "exceeds subtotal plus tax")
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Discount: discount,
		Total:    total,
	}, nil
}
