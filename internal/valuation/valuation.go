// Package valuation turns holdings and quotes into per-holding figures and
// portfolio-wide metrics. Every function here is pure: it reads its
// arguments, allocates its result and never touches shared state, so it is
// safe to call from any number of goroutines.
package valuation

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// safeDiv returns a/b, or zero when b is zero
func safeDiv(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.Div(b)
}

// percentOf applies a signed percent change to v, e.g. percentOf(1000, 5) = 50
func percentOf(v, pct decimal.Decimal) decimal.Decimal {
	return v.Mul(pct).Div(hundred)
}
