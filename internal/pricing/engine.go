// Package pricing converts between decimal major-unit prices and the integer
// minor units the card processor works in, and computes order totals.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// minorPerMajor is the number of minor units in one major unit for the
// two-decimal currencies the checkout supports.
const minorPerMajor = 100

var hundred = decimal.NewFromInt(minorPerMajor)

// Line is a priced quantity used for totals.
type Line struct {
	UnitPrice decimal.Decimal
	Qty       int64
}

// Summary aggregates computed pricing components in major units.
type Summary struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Subtotal returns Σ unit price × quantity. Lines with a non-positive quantity are skipped.
func Subtotal(lines []Line) decimal.Decimal {
	sum := decimal.Zero
	for _, l := range lines {
		if l.Qty <= 0 {
			continue
		}
		sum = sum.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Qty)))
	}
	return sum
}

// Compute builds the order summary. The total equals the recomputed subtotal;
// tax and shipping are carried for reporting only.
func Compute(lines []Line, tax, shipping decimal.Decimal) Summary {
	subtotal := Subtotal(lines)
	return Summary{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal,
	}
}

// ToMinor converts a major-unit amount into minor units, rounding half away
// from zero to the nearest cent.
func ToMinor(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("pricing: negative amount %s", amount.String())
	}
	minor := amount.Mul(hundred).Round(0)
	if !minor.IsInteger() || minor.GreaterThan(decimal.NewFromInt(1<<53)) {
		return 0, fmt.Errorf("pricing: amount %s out of range", amount.String())
	}
	return minor.IntPart(), nil
}

// FromMinor converts minor units into a two-decimal major-unit amount.
func FromMinor(minor int64) decimal.Decimal {
	return decimal.New(minor, -2)
}

// Parse reads a numeric column rendered as text.
func Parse(value string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(value)
	if err != nil {
		return decimal.Zero, fmt.Errorf("pricing: parse %q: %w", value, err)
	}
	return d, nil
}

// Format renders an amount with exactly two decimals for storage and JSON.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
