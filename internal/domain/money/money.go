// Package money implements the marketplace rounding rule applied to every
// amount before it is displayed, charged, or persisted.
package money

import "github.com/shopspring/decimal"

var (
	cutoff = decimal.New(4, -1) // 0.4
	one    = decimal.NewFromInt(1)
)

// Round rounds a shilling amount to a whole unit. A fractional remainder of
// 0.4 or less rounds down, anything above rounds up. The cutoff sits at 0.4
// rather than the conventional 0.5: shilling prices carry no subunit in
// practice, so the rule deliberately biases toward the floor.
//
// Round is idempotent: Round(Round(x)) == Round(x).
func Round(v decimal.Decimal) decimal.Decimal {
	floor := v.Floor()
	if v.Sub(floor).LessThanOrEqual(cutoff) {
		return floor
	}
	return floor.Add(one)
}

// FloorAtZero clamps negative amounts to zero.
func FloorAtZero(v decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	return v
}
