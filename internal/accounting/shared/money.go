package shared

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tolerance is the largest debit/credit difference accepted as balanced.
var Tolerance = decimal.New(1, -2)

// BalancedWithinCent reports whether debit and credit differ by strictly less than one cent.
func BalancedWithinCent(debit, credit decimal.Decimal) bool {
	return debit.Sub(credit).Abs().LessThan(Tolerance)
}

// Sum adds amounts exactly.
func Sum(values ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, v := range values {
		total = total.Add(v)
	}
	return total
}

// Round2 rounds half away from zero to two places for presentation.
func Round2(v decimal.Decimal) decimal.Decimal {
	return v.Round(2)
}

// DateOnly truncates t to its UTC calendar day.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// WithinDates reports whether day lies in [from, to] at day granularity. Zero bounds are open.
func WithinDates(day, from, to time.Time) bool {
	day = DateOnly(day)
	if !from.IsZero() && day.Before(DateOnly(from)) {
		return false
	}
	if !to.IsZero() && day.After(DateOnly(to)) {
		return false
	}
	return true
}
