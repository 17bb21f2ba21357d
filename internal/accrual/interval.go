package accrual

import (
	"time"

	"github.com/shopspring/decimal"
)

// OverlapSeconds returns the length, in whole seconds, of the intersection of
// the grant interval [gStart, gEnd) and the settlement window [wStart, wEnd).
// Truncation to whole seconds is deliberate: rounding up would let fractional
// seconds accumulate into overpayment across repeated runs, and identical
// inputs must always price to the identical amount.
func OverlapSeconds(gStart, gEnd, wStart, wEnd time.Time) int64 {
	effStart := gStart
	if wStart.After(effStart) {
		effStart = wStart
	}
	effEnd := gEnd
	if wEnd.Before(effEnd) {
		effEnd = wEnd
	}
	if !effStart.Before(effEnd) {
		return 0
	}
	return int64(effEnd.Sub(effStart) / time.Second)
}

// Amount prices a grant's contribution to a window: rate × overlap seconds.
// Stateless; bit-identical output for identical inputs.
func Amount(rate decimal.Decimal, gStart, gEnd, wStart, wEnd time.Time) decimal.Decimal {
	secs := OverlapSeconds(gStart, gEnd, wStart, wEnd)
	if secs == 0 || rate.Sign() <= 0 {
		return decimal.Zero
	}
	return rate.Mul(decimal.NewFromInt(secs))
}
