package overtime

import (
	"time"

	"github.com/shopspring/decimal"
)

// ComputeHours returns the compensable hours between actualStart and the earlier of
// actualEnd and approvedEnd, floored at zero.
func ComputeHours(actualStart, actualEnd, approvedEnd time.Time) decimal.Decimal {
	effectiveEnd := EffectiveEnd(actualEnd, approvedEnd)
	return WindowHours(actualStart, effectiveEnd)
}

func EffectiveEnd(actualEnd, approvedEnd time.Time) time.Time {
	if !approvedEnd.IsZero() && approvedEnd.Before(actualEnd) {
		return approvedEnd
	}
	return actualEnd
}

// ComputeAmount converts hours into money as
// hours * (baseSalary / daysPerMonth / hoursPerDay) * rate, rounded half away from zero to
// two decimals. It returns nil when the salary is missing or not positive, or when either
// divisor is not positive.
func ComputeAmount(hours, rate decimal.Decimal, baseSalary *decimal.Decimal, hoursPerDay, daysPerMonth decimal.Decimal) *decimal.Decimal {
	if baseSalary == nil || !baseSalary.IsPositive() {
		return nil
	}
	if !hoursPerDay.IsPositive() || !daysPerMonth.IsPositive() {
		return nil
	}

	// Multiply before dividing so exact hourly rates stay exact.
	amount := hours.Mul(*baseSalary).Mul(rate).Div(daysPerMonth.Mul(hoursPerDay)).Round(2)
	return &amount
}
