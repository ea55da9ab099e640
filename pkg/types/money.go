package types

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// All monetary amounts move through the system as integer cents. Decimal
// conversion happens only at the display and parse boundaries.

var centsPerDollar = decimal.NewFromInt(100)

// FormatCents renders integer cents as a plain dollar string, e.g. 1999 -> "19.99".
func FormatCents(cents int64) string {
	return decimal.NewFromInt(cents).Div(centsPerDollar).StringFixed(2)
}

// ParseDollars converts a decimal dollar string into integer cents. Fractions
// of a cent are rejected rather than rounded.
func ParseDollars(value string) (int64, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return 0, fmt.Errorf("money: parse %q: %w", value, err)
	}

	cents := d.Mul(centsPerDollar)
	if !cents.IsInteger() {
		return 0, fmt.Errorf("money: %q has sub-cent precision", value)
	}
	return cents.IntPart(), nil
}
