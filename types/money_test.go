package types

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

func TestParseMoney(t *testing.T) {
	tests := []struct {
		input   string
		amount  int64
		display string
		wantErr bool
	}{
		{"1080.00", 108000, "1080.00", false},
		{"1080", 108000, "1080.00", false},
		{"0.5", 50, "0.50", false},
		{"0.01", 1, "0.01", false},
		{"-12.34", -1234, "-12.34", false},
		{"0", 0, "0.00", false},
		{"1.005", 0, "", true},
		{"abc", 0, "", true},
		{"", 0, "", true},
		{"92233720368547758.07", math.MaxInt64, "92233720368547758.07", false},
		{"-92233720368547758.08", math.MinInt64, "-92233720368547758.08", false},
		{"92233720368547758.08", 0, "", true},
		{"184467440737095516.17", 0, "", true},
		{"100000000000000000000", 0, "", true},
		{"-92233720368547758.09", 0, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseMoney(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Errorf("ParseMoney(%q): expected error, got %v", tt.input, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMoney(%q): unexpected error: %v", tt.input, err)
			}
			if got.Amount != tt.amount {
				t.Errorf("Amount: got %d, want %d", got.Amount, tt.amount)
			}
			if got.String() != tt.display {
				t.Errorf("Display: got %s, want %s", got.String(), tt.display)
			}
		})
	}
}

func TestMoneyArithmetic(t *testing.T) {
	tests := []struct {
		name     string
		op       func() Money
		expected Money
	}{
		{"Add", func() Money { return Cents(100).Add(Cents(200)) }, Cents(300)},
		{"Subtract", func() Money { return Cents(500).Subtract(Cents(200)) }, Cents(300)},
		{"Negate", func() Money { return Cents(100).Negate() }, Cents(-100)},
		{"Abs positive", func() Money { return Cents(100).Abs() }, Cents(100)},
		{"Abs negative", func() Money { return Cents(-100).Abs() }, Cents(100)},
		{"Sum", func() Money { return Sum(Cents(100), Cents(250), Cents(-50)) }, Cents(300)},
		{"Sum empty", func() Money { return Sum() }, Zero()},
		{"Total", func() Money {
			return MustParse("1000.00").Add(MustParse("80.00")).Subtract(Zero())
		}, MustParse("1080.00")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := tt.op()
			if !result.Equal(tt.expected) {
				t.Errorf("Got %v, want %v", result, tt.expected)
			}
		})
	}
}

func TestMoneyMulQuantity(t *testing.T) {
	tests := []struct {
		name     string
		price    Money
		qty      Quantity
		expected Money
	}{
		{"whole units", MustParse("12.50"), Units(4), MustParse("50.00")},
		{"fractional area", MustParse("3.49"), MustQuantity("212.5"), MustParse("741.63")},
		{"rounds half up", MustParse("0.05"), MustQuantity("0.5"), MustParse("0.03")},
		{"rounds down", MustParse("0.10"), MustQuantity("0.33"), MustParse("0.03")},
		{"free item", Zero(), Units(10), Zero()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.price.MulQuantity(tt.qty)
			if err != nil {
				t.Fatalf("MulQuantity: unexpected error: %v", err)
			}
			if !got.Equal(tt.expected) {
				t.Errorf("MulQuantity: got %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestMoneyOutOfRange(t *testing.T) {
	maxMoney := Cents(math.MaxInt64)
	minMoney := Cents(math.MinInt64)

	tests := []struct {
		name string
		op   func() (Money, error)
	}{
		{"product above max", func() (Money, error) { return MustParse("100.00").MulQuantity(MustQuantity("100000000000000000")) }},
		{"product of max", func() (Money, error) { return maxMoney.MulQuantity(MustQuantity("1.01")) }},
		{"add past max", func() (Money, error) { return maxMoney.CheckedAdd(Cents(1)) }},
		{"add past min", func() (Money, error) { return minMoney.CheckedAdd(Cents(-1)) }},
		{"subtract past min", func() (Money, error) { return minMoney.CheckedSubtract(Cents(1)) }},
		{"subtract past max", func() (Money, error) { return maxMoney.CheckedSubtract(Cents(-1)) }},
		{"unmarshal huge", func() (Money, error) {
			var m Money
			err := json.Unmarshal([]byte(`"184467440737095516.17"`), &m)
			return m, err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.op()
			if !errors.Is(err, ErrOutOfRange) {
				t.Fatalf("expected ErrOutOfRange, got %v (value %v)", err, got)
			}
		})
	}

	sum, err := maxMoney.Subtract(Cents(1)).CheckedAdd(Cents(1))
	if err != nil || !sum.Equal(maxMoney) {
		t.Errorf("CheckedAdd at the boundary: got %v, %v", sum, err)
	}
	diff, err := Cents(100).CheckedSubtract(Cents(250))
	if err != nil || diff.Amount != -150 {
		t.Errorf("CheckedSubtract: got %v, %v", diff, err)
	}
}

func TestMoneyComparison(t *testing.T) {
	tests := []struct {
		name    string
		a, b    Money
		less    bool
		greater bool
		equal   bool
	}{
		{"Equal", Cents(100), Cents(100), false, false, true},
		{"Less", Cents(50), Cents(100), true, false, false},
		{"Greater", Cents(200), Cents(100), false, true, false},
		{"Zero equal", Cents(0), Zero(), false, false, true},
		{"Negative less", Cents(-100), Cents(100), true, false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.a.LessThan(tt.b); got != tt.less {
				t.Errorf("LessThan: got %v, want %v", got, tt.less)
			}
			if got := tt.a.GreaterThan(tt.b); got != tt.greater {
				t.Errorf("GreaterThan: got %v, want %v", got, tt.greater)
			}
			if got := tt.a.Equal(tt.b); got != tt.equal {
				t.Errorf("Equal: got %v, want %v", got, tt.equal)
			}
		})
	}
}

func TestMoneyMinMax(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Money
		min, max Money
	}{
		{"First smaller", Cents(50), Cents(100), Cents(50), Cents(100)},
		{"Second smaller", Cents(100), Cents(50), Cents(50), Cents(100)},
		{"Equal", Cents(100), Cents(100), Cents(100), Cents(100)},
		{"Negative", Cents(-50), Cents(50), Cents(-50), Cents(50)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if minVal := tt.a.Min(tt.b); !minVal.Equal(tt.min) {
				t.Errorf("Min: got %v, want %v", minVal, tt.min)
			}
			if maxVal := tt.a.Max(tt.b); !maxVal.Equal(tt.max) {
				t.Errorf("Max: got %v, want %v", maxVal, tt.max)
			}
		})
	}
}

func TestMoneyPredicates(t *testing.T) {
	tests := []struct {
		name       string
		money      Money
		isZero     bool
		isPositive bool
		isNegative bool
	}{
		{"Zero", Cents(0), true, false, false},
		{"Positive", Cents(100), false, true, false},
		{"Negative", Cents(-100), false, false, true},
		{"Large positive", Cents(999999999), false, true, false},
		{"Large negative", Cents(-999999999), false, false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.money.IsZero(); got != tt.isZero {
				t.Errorf("IsZero: got %v, want %v", got, tt.isZero)
			}
			if got := tt.money.IsPositive(); got != tt.isPositive {
				t.Errorf("IsPositive: got %v, want %v", got, tt.isPositive)
			}
			if got := tt.money.IsNegative(); got != tt.isNegative {
				t.Errorf("IsNegative: got %v, want %v", got, tt.isNegative)
			}
		})
	}
}

func TestMoneyJSON(t *testing.T) {
	data, err := json.Marshal(MustParse("1080.00"))
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"1080.00"` {
		t.Errorf("Marshal: got %s, want %q", data, "1080.00")
	}

	for _, raw := range []string{`"200.00"`, `200`, `"200"`} {
		var m Money
		if err := json.Unmarshal([]byte(raw), &m); err != nil {
			t.Fatalf("Unmarshal(%s): %v", raw, err)
		}
		if m.Amount != 20000 {
			t.Errorf("Unmarshal(%s): got %d, want 20000", raw, m.Amount)
		}
	}

	var m Money
	if err := json.Unmarshal([]byte(`"12.345"`), &m); err == nil {
		t.Error("Unmarshal: expected error for sub-cent value")
	}
}

func TestQuantity(t *testing.T) {
	for _, bad := range []string{"0", "-1", "x"} {
		if _, err := NewQuantity(bad); err == nil {
			t.Errorf("NewQuantity(%q): expected error", bad)
		}
	}

	q := MustQuantity("2.75")
	data, err := json.Marshal(q)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `"2.75"` {
		t.Errorf("Marshal: got %s", data)
	}

	var back Quantity
	if err := json.Unmarshal([]byte(`3.5`), &back); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if !back.Equal(MustQuantity("3.5")) {
		t.Errorf("Unmarshal: got %s, want 3.5", back)
	}
	if err := json.Unmarshal([]byte(`"0"`), &back); err == nil {
		t.Error("Unmarshal: expected error for zero quantity")
	}
}
