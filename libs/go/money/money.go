// Package money is the single entry point for monetary arithmetic. Every
// dollar figure in the valuation engine is an Amount; raw floats never touch
// deal math. Amounts are immutable value types backed by arbitrary-precision
// decimals, parsed from and serialized to decimal strings.
package money

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func init() {
	// Intermediate quotients keep 28 significant digits before any
	// display rounding is applied.
	decimal.DivisionPrecision = 28
}

// Amount is an immutable arbitrary-precision monetary value.
type Amount struct {
	d decimal.Decimal
}

// Parse converts a decimal string into an Amount. Malformed input is
// rejected, never coerced.
func Parse(s string) (Amount, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" {
		return Amount{}, fmt.Errorf("empty amount string")
	}
	d, err := decimal.NewFromString(trimmed)
	if err != nil {
		return Amount{}, fmt.Errorf("invalid decimal string %q: %w", s, err)
	}
	return Amount{d: d}, nil
}

// MustParse is Parse for trusted literals (seed data, tests). It panics on
// malformed input.
func MustParse(s string) Amount {
	a, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return a
}

// Zero returns the zero amount.
func Zero() Amount {
	return Amount{d: decimal.Zero}
}

// FromInt builds an Amount from a whole number.
func FromInt(n int64) Amount {
	return Amount{d: decimal.NewFromInt(n)}
}

// FromDecimal wraps an existing decimal value.
func FromDecimal(d decimal.Decimal) Amount {
	return Amount{d: d}
}

// Decimal exposes the underlying decimal value.
func (a Amount) Decimal() decimal.Decimal {
	return a.d
}

// Add returns a + b.
func (a Amount) Add(b Amount) Amount {
	return Amount{d: a.d.Add(b.d)}
}

// Sub returns a - b.
func (a Amount) Sub(b Amount) Amount {
	return Amount{d: a.d.Sub(b.d)}
}

// Mul returns a * b.
func (a Amount) Mul(b Amount) Amount {
	return Amount{d: a.d.Mul(b.d)}
}

// Div returns a / b at full division precision.
func (a Amount) Div(b Amount) Amount {
	return Amount{d: a.d.Div(b.d)}
}

// Neg returns -a.
func (a Amount) Neg() Amount {
	return Amount{d: a.d.Neg()}
}

// PowInt returns a raised to a non-negative integer exponent. The result is
// exact: it is produced by repeated multiplication, not logarithms.
func (a Amount) PowInt(n int32) Amount {
	return Amount{d: a.d.Pow(decimal.NewFromInt32(n))}
}

// Cmp compares two amounts: -1 if a < b, 0 if equal, 1 if a > b.
func (a Amount) Cmp(b Amount) int {
	return a.d.Cmp(b.d)
}

// Equal reports whether two amounts are numerically equal.
func (a Amount) Equal(b Amount) bool {
	return a.d.Equal(b.d)
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool {
	return a.d.IsZero()
}

// IsNegative reports whether the amount is below zero.
func (a Amount) IsNegative() bool {
	return a.d.IsNegative()
}

// IsPositive reports whether the amount is above zero.
func (a Amount) IsPositive() bool {
	return a.d.IsPositive()
}

// RoundCents rounds half-up to 2 decimal places. This is the only rounding
// the engine performs; it is applied to each displayed line item, never to
// intermediate sums.
func (a Amount) RoundCents() Amount {
	return Amount{d: a.d.Round(2)}
}

// StringFixed renders the amount with exactly 2 decimal places, rounding
// half-up.
func (a Amount) StringFixed() string {
	return a.d.StringFixed(2)
}

// String renders the amount at full precision.
func (a Amount) String() string {
	return a.d.String()
}

// MarshalJSON serializes the amount as a decimal string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.d.String())
}

// UnmarshalJSON parses a decimal string, rejecting malformed input and bare
// JSON numbers (which would have passed through binary floats upstream).
func (a *Amount) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("amount must be a decimal string: %w", err)
	}
	parsed, err := Parse(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// Max returns the larger of a and b.
func Max(a, b Amount) Amount {
	if a.Cmp(b) >= 0 {
		return a
	}
	return b
}

// Min returns the smaller of a and b.
func Min(a, b Amount) Amount {
	if a.Cmp(b) <= 0 {
		return a
	}
	return b
}

// Sum adds a list of amounts.
func Sum(amounts ...Amount) Amount {
	total := Zero()
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}
