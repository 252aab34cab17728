// Package money holds the currency boundary helpers shared by every calculator.
// Amounts are computed as decimals and persisted as int64 minor units.
package money

import (
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// MinorUnits is the number of decimal places kept at the storage/display boundary.
const MinorUnits int32 = 2

var ErrInvalidAmount = errors.New("invalid_amount")

var (
	hundred = decimal.NewFromInt(100)
	cent    = decimal.New(1, -MinorUnits)
)

// Hundred is 100 as a decimal, used by the percentage math.
func Hundred() decimal.Decimal { return hundred }

// OneCent is the smallest representable amount.
func OneCent() decimal.Decimal { return cent }

// Round applies half-up rounding to two decimals. Inputs are non-negative
// amounts, so half-away-from-zero and half-up agree.
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MinorUnits)
}

func ToCents(d decimal.Decimal) int64 {
	return Round(d).Shift(MinorUnits).IntPart()
}

func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -MinorUnits)
}

// Parse reads a decimal amount such as "121.00".
func Parse(value string) (decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %s", ErrInvalidAmount, value)
	}
	return d, nil
}

// Fixed renders d rounded to exactly two decimals, e.g. "100.00".
func Fixed(d decimal.Decimal) string {
	return d.StringFixed(MinorUnits)
}

// Format renders cents as "EUR 12.34".
func Format(cents int64, currency string) string {
	amount := FromCents(cents).StringFixed(MinorUnits)
	currency = strings.ToUpper(strings.TrimSpace(currency))
	if currency == "" {
		return amount
	}
	return currency + " " + amount
}

// FitsScale reports whether d has at most places decimal digits, i.e. whether
// a NUMERIC(p, places) column stores it unchanged.
func FitsScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Truncate(places))
}

// WithinOneCent reports whether a and b differ by at most one minor unit.
func WithinOneCent(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(cent)
}
