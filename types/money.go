// Package types provides the value types shared by every sales document.
package types

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// ErrOutOfRange is returned when an amount does not fit in int64 cents.
var ErrOutOfRange = errors.New("money: amount out of range")

var (
	maxCents = decimal.NewFromInt(math.MaxInt64)
	minCents = decimal.NewFromInt(math.MinInt64)
)

// Money is an amount in minor units (cents). The engine works in a single
// currency, so Money carries no currency code.
//
// Examples:
//   - Cents(4900)       = 49.00
//   - MustParse("1080") = 1080.00
type Money struct {
	Amount int64 // cents
}

// Cents creates a Money value from a count of cents.
func Cents(cents int64) Money { return Money{Amount: cents} }

// Zero returns a zero Money value.
func Zero() Money { return Money{} }

// ParseMoney parses a major-unit decimal string such as "1080.00" or "0.5".
// More than two fractional digits is an error rather than a silent rounding.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, fmt.Errorf("money: parse %q: %w", s, err)
	}
	return FromDecimal(d)
}

// MustParse is ParseMoney that panics on error. Intended for tests and constants.
func MustParse(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		panic(err)
	}
	return m
}

// FromDecimal converts a major-unit decimal to Money. The value must already be
// at cent precision.
func FromDecimal(d decimal.Decimal) (Money, error) {
	if !d.Equal(d.Round(2)) {
		return Money{}, fmt.Errorf("money: %s has sub-cent precision", d.String())
	}
	return fromCents(d.Shift(2))
}

func fromCents(cents decimal.Decimal) (Money, error) {
	if cents.GreaterThan(maxCents) || cents.LessThan(minCents) {
		return Money{}, fmt.Errorf("%w: %s", ErrOutOfRange, cents.Shift(-2).String())
	}
	return Money{Amount: cents.IntPart()}, nil
}

// Arithmetic operations

// Add adds two Money values.
func (m Money) Add(other Money) Money {
	return Money{Amount: m.Amount + other.Amount}
}

// Subtract subtracts another Money value.
func (m Money) Subtract(other Money) Money {
	return Money{Amount: m.Amount - other.Amount}
}

// CheckedAdd is Add that reports ErrOutOfRange instead of wrapping.
func (m Money) CheckedAdd(other Money) (Money, error) {
	sum := m.Amount + other.Amount
	if (other.Amount > 0 && sum < m.Amount) || (other.Amount < 0 && sum > m.Amount) {
		return Money{}, fmt.Errorf("%w: %s + %s", ErrOutOfRange, m, other)
	}
	return Money{Amount: sum}, nil
}

// CheckedSubtract is Subtract that reports ErrOutOfRange instead of wrapping.
func (m Money) CheckedSubtract(other Money) (Money, error) {
	diff := m.Amount - other.Amount
	if (other.Amount > 0 && diff > m.Amount) || (other.Amount < 0 && diff < m.Amount) {
		return Money{}, fmt.Errorf("%w: %s - %s", ErrOutOfRange, m, other)
	}
	return Money{Amount: diff}, nil
}

// Negate returns the negative of the Money value.
func (m Money) Negate() Money {
	return Money{Amount: -m.Amount}
}

// Abs returns the absolute value.
func (m Money) Abs() Money {
	if m.Amount < 0 {
		return Money{Amount: -m.Amount}
	}
	return m
}

// MulQuantity multiplies a unit price by a quantity and rounds the result
// half away from zero to the nearest cent. A product that does not fit in
// Money is ErrOutOfRange.
func (m Money) MulQuantity(q Quantity) (Money, error) {
	return fromCents(m.Decimal().Mul(q.Decimal()).Round(2).Shift(2))
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (m Money) IsZero() bool { return m.Amount == 0 }

// IsPositive returns true if the amount is greater than zero.
func (m Money) IsPositive() bool { return m.Amount > 0 }

// IsNegative returns true if the amount is less than zero.
func (m Money) IsNegative() bool { return m.Amount < 0 }

// Equal returns true if both Money values are equal.
func (m Money) Equal(other Money) bool { return m.Amount == other.Amount }

// LessThan returns true if this Money is less than other.
func (m Money) LessThan(other Money) bool { return m.Amount < other.Amount }

// GreaterThan returns true if this Money is greater than other.
func (m Money) GreaterThan(other Money) bool { return m.Amount > other.Amount }

// Min returns the smaller of two Money values.
func (m Money) Min(other Money) Money {
	if m.Amount < other.Amount {
		return m
	}
	return other
}

// Max returns the larger of two Money values.
func (m Money) Max(other Money) Money {
	if m.Amount > other.Amount {
		return m
	}
	return other
}

// Formatting methods

// Decimal returns the value in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Amount, -2)
}

// FormatMajor returns the major unit string, e.g. "49.00" for Cents(4900).
func (m Money) FormatMajor() string {
	return m.Decimal().StringFixed(2)
}

// String implements fmt.Stringer.
func (m Money) String() string {
	return m.FormatMajor()
}

// MarshalJSON encodes Money as a decimal string so clients never see floats.
func (m Money) MarshalJSON() ([]byte, error) {
	return json.Marshal(m.FormatMajor())
}

// UnmarshalJSON accepts either a decimal string ("12.50") or a bare number.
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	parsed, err := ParseMoney(string(data))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// Sum calculates the sum of multiple Money values.
func Sum(values ...Money) Money {
	var result Money
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}
