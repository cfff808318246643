package types

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// Quantity is a positive decimal count of units (square feet, hours, boxes).
type Quantity struct {
	d decimal.Decimal
}

// NewQuantity parses a decimal quantity. Zero and negative values are rejected.
func NewQuantity(s string) (Quantity, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Quantity{}, fmt.Errorf("quantity: parse %q: %w", s, err)
	}
	return QuantityFromDecimal(d)
}

// QuantityFromDecimal wraps d after checking it is positive.
func QuantityFromDecimal(d decimal.Decimal) (Quantity, error) {
	if !d.IsPositive() {
		return Quantity{}, fmt.Errorf("quantity: %s must be positive", d.String())
	}
	return Quantity{d: d}, nil
}

// Units returns a whole-number quantity.
func Units(n int64) Quantity {
	return Quantity{d: decimal.NewFromInt(n)}
}

// MustQuantity is NewQuantity that panics on error.
func MustQuantity(s string) Quantity {
	q, err := NewQuantity(s)
	if err != nil {
		panic(err)
	}
	return q
}

// Decimal returns the underlying decimal value.
func (q Quantity) Decimal() decimal.Decimal { return q.d }

// IsPositive reports whether q is a usable quantity.
func (q Quantity) IsPositive() bool { return q.d.IsPositive() }

// Equal reports whether two quantities are numerically equal.
func (q Quantity) Equal(other Quantity) bool { return q.d.Equal(other.d) }

func (q Quantity) String() string { return q.d.String() }

// MarshalJSON encodes the quantity as a decimal string.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.d.String())
}

// UnmarshalJSON accepts a decimal string or a bare number.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("quantity: %w", err)
	}
	parsed, err := QuantityFromDecimal(d)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
