// Package lineitem holds the ordered charges attached to a document snapshot
// and the subtotal/tax/discount arithmetic built on them.
package lineitem

import (
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/xraph/salesdoc/id"
	"github.com/xraph/salesdoc/types"
)

// LineItem is a single charge. Total is always UnitPrice × Quantity rounded
// to the cent; it is computed here and never accepted from callers.
type LineItem struct {
	ID          id.LineItemID  `json:"id"`
	Description string         `json:"description"`
	Quantity    types.Quantity `json:"quantity"`
	Unit        string         `json:"unit,omitempty"`
	UnitPrice   types.Money    `json:"unit_price"`
	Total       types.Money    `json:"total"`
}

// Input is the caller-supplied part of a line item.
type Input struct {
	Description string         `json:"description"`
	Quantity    types.Quantity `json:"quantity"`
	Unit        string         `json:"unit,omitempty"`
	UnitPrice   types.Money    `json:"unit_price"`
}

// New validates in and returns a priced line item with a fresh ID.
func New(in Input) (LineItem, error) {
	desc := cleanText(in.Description)
	if desc == "" {
		return LineItem{}, types.Invalid("description", "must not be empty")
	}
	if !in.Quantity.IsPositive() {
		return LineItem{}, types.Invalid("quantity", "must be positive")
	}
	if in.UnitPrice.IsNegative() {
		return LineItem{}, types.Invalid("unit_price", "must not be negative")
	}

	total, err := in.UnitPrice.MulQuantity(in.Quantity)
	if err != nil {
		return LineItem{}, types.Invalid("quantity", "line total is out of range")
	}

	return LineItem{
		ID:          id.NewLineItemID(),
		Description: desc,
		Quantity:    in.Quantity,
		Unit:        cleanText(in.Unit),
		UnitPrice:   in.UnitPrice,
		Total:       total,
	}, nil
}

// Items is an ordered list of line items.
type Items []LineItem

// Build prices every input in order.
func Build(inputs []Input) (Items, error) {
	items := make(Items, 0, len(inputs))
	for _, in := range inputs {
		li, err := New(in)
		if err != nil {
			return nil, err
		}
		items = append(items, li)
	}
	return items, nil
}

// Subtotal sums the line totals. A sum that overflows Money is
// types.ErrOutOfRange.
func (it Items) Subtotal() (types.Money, error) {
	var sum types.Money
	for _, li := range it {
		next, err := sum.CheckedAdd(li.Total)
		if err != nil {
			return types.Money{}, err
		}
		sum = next
	}
	return sum, nil
}

// Carry copies the items onto a new document. Each copy gets a new ID
// because a line item belongs to exactly one document snapshot.
func (it Items) Carry() Items {
	if it == nil {
		return nil
	}
	out := make(Items, len(it))
	for i, li := range it {
		li.ID = id.NewLineItemID()
		out[i] = li
	}
	return out
}

// Clone copies the slice, keeping IDs. LineItem has no reference fields, so a
// slice copy is a deep copy.
func (it Items) Clone() Items {
	if it == nil {
		return nil
	}
	out := make(Items, len(it))
	copy(out, it)
	return out
}

func cleanText(s string) string {
	return strings.TrimSpace(norm.NFC.String(s))
}
