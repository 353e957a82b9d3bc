package overtime

import (
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/shopspring/decimal"
)

// RequestInput is everything the constraint check needs about a proposed window.
type RequestInput struct {
	Reason string
	Start  time.Time
	End    time.Time

	// WorkEnd is when the employee's scheduled work ends on the request date.
	WorkEnd time.Time

	// Hours already logged in the day, ISO week and calendar month of the request date,
	// not counting this request.
	LoggedDay   decimal.Decimal
	LoggedWeek  decimal.Decimal
	LoggedMonth decimal.Decimal
}

// Validation is an accepted request plus the soft caps it exceeds.
type Validation struct {
	Hours    decimal.Decimal
	Warnings []overtime.Warning
}

// ValidateRequest applies the hard creation rules in order and returns the first violation.
// Caps only produce warnings.
func ValidateRequest(in RequestInput, opts settings.OvertimeOptions) (Validation, error) {
	if strings.TrimSpace(in.Reason) == "" {
		return Validation{}, overtime.ErrReasonRequired
	}
	if !in.End.After(in.Start) {
		return Validation{}, overtime.ErrInvalidWindow
	}

	hours := WindowHours(in.Start, in.End)

	if hours.LessThan(opts.MinHours) {
		return Validation{}, overtime.NewRuleViolation(overtime.CodeMinDuration,
			"overtime must be at least %s hours, requested %s", opts.MinHours, hours.StringFixed(2))
	}
	if opts.MaxHours.IsPositive() && hours.GreaterThan(opts.MaxHours) {
		return Validation{}, overtime.NewRuleViolation(overtime.CodeMaxDuration,
			"overtime must not exceed %s hours, requested %s", opts.MaxHours, hours.StringFixed(2))
	}

	if opts.StartAfterWorkEnd && !in.WorkEnd.IsZero() {
		earliest := in.WorkEnd.Add(-opts.EarlyStartBuffer)
		if in.Start.Before(earliest) {
			return Validation{}, overtime.NewRuleViolation(overtime.CodeStartBeforeWorkEnd,
				"overtime cannot start before %s", earliest.In(opts.Location).Format("15:04"))
		}
	}

	v := Validation{Hours: hours, Warnings: []overtime.Warning{}}
	caps := []struct {
		code   overtime.WarningCode
		period string
		limit  decimal.Decimal
		logged decimal.Decimal
	}{
		{overtime.WarningDailyCap, "day", opts.MaxPerDay, in.LoggedDay},
		{overtime.WarningWeeklyCap, "week", opts.MaxPerWeek, in.LoggedWeek},
		{overtime.WarningMonthlyCap, "month", opts.MaxPerMonth, in.LoggedMonth},
	}
	for _, c := range caps {
		if !c.limit.IsPositive() {
			continue
		}
		total := c.logged.Add(hours)
		if total.GreaterThan(c.limit) {
			v.Warnings = append(v.Warnings, overtime.Warning{
				Code:        c.code,
				Message:     "overtime this " + c.period + " would reach " + total.StringFixed(2) + " hours, above the " + c.limit.String() + " hour limit",
				LimitHours:  c.limit,
				LoggedHours: c.logged,
			})
		}
	}

	return v, nil
}

// WindowHours is the whole minutes between start and end expressed in hours, rounded to
// two decimals. Negative windows count as zero.
func WindowHours(start, end time.Time) decimal.Decimal {
	minutes := int64(end.Sub(start) / time.Minute)
	if minutes <= 0 {
		return decimal.Zero
	}
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Round(2)
}

// BuildWindow places start and end clocks on date. An end earlier than the start falls on
// the next day; an end equal to the start is rejected.
func BuildWindow(date time.Time, start, end settings.Clock, loc *time.Location) (time.Time, time.Time, error) {
	if start == end {
		return time.Time{}, time.Time{}, overtime.ErrInvalidWindow
	}
	s := start.On(date, loc)
	e := end.On(date, loc)
	if e.Before(s) {
		e = e.AddDate(0, 0, 1)
	}
	return s, e, nil
}

// capPeriods returns [from, to) for the day, ISO week and calendar month containing date.
func capPeriods(date time.Time) (dayFrom, dayTo, weekFrom, weekTo, monthFrom, monthTo time.Time) {
	y, m, d := date.Date()
	loc := date.Location()

	dayFrom = time.Date(y, m, d, 0, 0, 0, 0, loc)
	dayTo = dayFrom.AddDate(0, 0, 1)

	offset := (int(dayFrom.Weekday()) + 6) % 7 // Monday = 0
	weekFrom = dayFrom.AddDate(0, 0, -offset)
	weekTo = weekFrom.AddDate(0, 0, 7)

	monthFrom = time.Date(y, m, 1, 0, 0, 0, 0, loc)
	monthTo = monthFrom.AddDate(0, 1, 0)
	return
}
