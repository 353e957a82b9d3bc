package overtime

import (
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// ResolveRate classifies date and returns the multiplier configured for its day type.
// Holidays take precedence over weekends.
func ResolveRate(date time.Time, isHoliday bool, opts settings.OvertimeOptions) (overtime.DayType, decimal.Decimal) {
	switch {
	case isHoliday:
		return overtime.DayTypeHoliday, positiveRate(opts.Rate2x, opts)
	case !opts.IsWorkingDay(date):
		return overtime.DayTypeWeekend, positiveRate(opts.Rate2x, opts)
	default:
		return overtime.DayTypeWorkday, positiveRate(opts.Rate1_5x, opts)
	}
}

// positiveRate falls back to the base multiplier, then to 1, for a misconfigured rate.
func positiveRate(rate decimal.Decimal, opts settings.OvertimeOptions) decimal.Decimal {
	if rate.IsPositive() {
		return rate
	}
	if opts.Rate1x.IsPositive() {
		return opts.Rate1x
	}
	return decimal.NewFromInt(1)
}
