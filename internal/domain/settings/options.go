package settings

import (
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
)

// OvertimeOptions is the resolved overtime configuration for one company. It is built once
// per operation and passed by value into the pure validation, rate and amount functions.
type OvertimeOptions struct {
	RequireApproval    bool
	AutoApprove        bool
	MinHours           decimal.Decimal
	MaxHours           decimal.Decimal
	StartAfterWorkEnd  bool
	EarlyStartBuffer   time.Duration
	RequireBeforePhoto bool
	RequireAfterPhoto  bool

	// Zero disables the cap.
	MaxPerDay   decimal.Decimal
	MaxPerWeek  decimal.Decimal
	MaxPerMonth decimal.Decimal

	Rate1x   decimal.Decimal
	Rate1_5x decimal.Decimal
	Rate2x   decimal.Decimal

	WorkHoursPerDay decimal.Decimal
	DaysPerMonth    decimal.Decimal

	WorkingDays map[time.Weekday]bool
	WorkEndTime Clock
	Location    *time.Location
}

// DefaultOvertimeOptions returns the values used for missing or unparseable keys.
func DefaultOvertimeOptions() OvertimeOptions {
	loc, err := time.LoadLocation("Asia/Bangkok")
	if err != nil {
		loc = time.FixedZone("ICT", 7*60*60)
	}
	return OvertimeOptions{
		RequireApproval:    true,
		AutoApprove:        false,
		MinHours:           decimal.NewFromInt(1),
		MaxHours:           decimal.NewFromInt(4),
		StartAfterWorkEnd:  true,
		EarlyStartBuffer:   0,
		RequireBeforePhoto: true,
		RequireAfterPhoto:  true,
		MaxPerDay:          decimal.NewFromInt(4),
		MaxPerWeek:         decimal.NewFromInt(20),
		MaxPerMonth:        decimal.NewFromInt(60),
		Rate1x:             decimal.NewFromInt(1),
		Rate1_5x:           decimal.RequireFromString("1.5"),
		Rate2x:             decimal.NewFromInt(2),
		WorkHoursPerDay:    decimal.NewFromInt(8),
		DaysPerMonth:       decimal.NewFromInt(30),
		WorkingDays: map[time.Weekday]bool{
			time.Monday: true, time.Tuesday: true, time.Wednesday: true, time.Thursday: true, time.Friday: true,
		},
		WorkEndTime: Clock{Hour: 17},
		Location:    loc,
	}
}

// ParseOvertimeOptions applies raw key/value settings over the defaults. A value that
// cannot be parsed keeps the default and is logged.
func ParseOvertimeOptions(raw map[string]string) OvertimeOptions {
	opts := DefaultOvertimeOptions()

	parseBool(raw, KeyRequireApproval, &opts.RequireApproval)
	parseBool(raw, KeyAutoApprove, &opts.AutoApprove)
	parseDecimal(raw, KeyMinHours, &opts.MinHours)
	parseDecimal(raw, KeyMaxHours, &opts.MaxHours)
	parseBool(raw, KeyStartAfterWorkEnd, &opts.StartAfterWorkEnd)
	parseBool(raw, KeyRequireBeforePhoto, &opts.RequireBeforePhoto)
	parseBool(raw, KeyRequireAfterPhoto, &opts.RequireAfterPhoto)
	parseDecimal(raw, KeyMaxPerDay, &opts.MaxPerDay)
	parseDecimal(raw, KeyMaxPerWeek, &opts.MaxPerWeek)
	parseDecimal(raw, KeyMaxPerMonth, &opts.MaxPerMonth)
	parseRate(raw, KeyRate1x, &opts.Rate1x)
	parseRate(raw, KeyRate1_5x, &opts.Rate1_5x)
	parseRate(raw, KeyRate2x, &opts.Rate2x)
	parsePositiveDecimal(raw, KeyWorkHoursPerDay, &opts.WorkHoursPerDay)
	parsePositiveDecimal(raw, KeyDaysPerMonth, &opts.DaysPerMonth)

	if v, ok := lookup(raw, KeyEarlyStartBuffer); ok {
		if minutes, err := strconv.Atoi(v); err == nil && minutes >= 0 {
			opts.EarlyStartBuffer = time.Duration(minutes) * time.Minute
		} else {
			logInvalid(KeyEarlyStartBuffer, v)
		}
	}

	if v, ok := lookup(raw, KeyWorkingDays); ok {
		if days, err := ParseWorkingDays(v); err == nil {
			opts.WorkingDays = days
		} else {
			logInvalid(KeyWorkingDays, v)
		}
	}

	if v, ok := lookup(raw, KeyWorkEndTime); ok {
		if c, err := ParseClock(v); err == nil {
			opts.WorkEndTime = c
		} else {
			logInvalid(KeyWorkEndTime, v)
		}
	}

	if v, ok := lookup(raw, KeyTimezone); ok {
		if loc, err := time.LoadLocation(v); err == nil {
			opts.Location = loc
		} else {
			logInvalid(KeyTimezone, v)
		}
	}

	return opts
}

// ParseBool accepts true/false, 1/0, yes/no and on/off in any case.
func ParseBool(s string) (bool, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true, true
	case "false", "0", "no", "off":
		return false, true
	}
	return false, false
}

// ParseWorkingDays reads a comma separated list of ISO weekdays (1 = Monday, 7 = Sunday).
func ParseWorkingDays(s string) (map[time.Weekday]bool, error) {
	days := make(map[time.Weekday]bool)
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil || n < 1 || n > 7 {
			return nil, strconv.ErrSyntax
		}
		days[time.Weekday(n%7)] = true
	}
	return days, nil
}

// IsWorkingDay reports whether date's weekday is in the working-days set.
func (o OvertimeOptions) IsWorkingDay(date time.Time) bool {
	return o.WorkingDays[date.Weekday()]
}

func lookup(raw map[string]string, key string) (string, bool) {
	v, ok := raw[key]
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}

func parseBool(raw map[string]string, key string, dst *bool) {
	v, ok := lookup(raw, key)
	if !ok {
		return
	}
	if b, valid := ParseBool(v); valid {
		*dst = b
		return
	}
	logInvalid(key, v)
}

func parseDecimal(raw map[string]string, key string, dst *decimal.Decimal) {
	v, ok := lookup(raw, key)
	if !ok {
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		logInvalid(key, v)
		return
	}
	*dst = d
}

// parsePositiveDecimal is parseDecimal for divisors, where zero is as invalid as a
// negative value.
func parsePositiveDecimal(raw map[string]string, key string, dst *decimal.Decimal) {
	v, ok := lookup(raw, key)
	if !ok {
		return
	}
	d, err := decimal.NewFromString(v)
	if err != nil || !d.IsPositive() {
		logInvalid(key, v)
		return
	}
	*dst = d
}

// RateScale is the number of decimals kept for a multiplier; ot_rate is NUMERIC(6, 3).
const RateScale = 3

func parseRate(raw map[string]string, key string, dst *decimal.Decimal) {
	parseDecimal(raw, key, dst)
	*dst = dst.Round(RateScale)
}

func logInvalid(key, value string) {
	slog.Warn("Invalid setting value, using default", "key", key, "value", value)
}

// OvertimeOptionsResponse is the read-only view served to clients.
type OvertimeOptionsResponse struct {
	RequireApproval         bool   `json:"ot_require_approval"`
	AutoApprove             bool   `json:"ot_auto_approve"`
	MinHours                string `json:"ot_min_hours"`
	MaxHours                string `json:"ot_max_hours"`
	StartAfterWorkEnd       bool   `json:"ot_start_after_work_end"`
	EarlyStartBufferMinutes int    `json:"ot_early_start_buffer"`
	RequireBeforePhoto      bool   `json:"ot_require_before_photo"`
	RequireAfterPhoto       bool   `json:"ot_require_after_photo"`
	MaxPerDay               string `json:"max_ot_per_day"`
	MaxPerWeek              string `json:"max_ot_per_week"`
	MaxPerMonth             string `json:"max_ot_per_month"`
	Rate1x                  string `json:"default_ot_rate_1x"`
	Rate1_5x                string `json:"default_ot_rate_1_5x"`
	Rate2x                  string `json:"default_ot_rate_2x"`
	WorkHoursPerDay         string `json:"work_hours_per_day"`
	DaysPerMonth            string `json:"days_per_month"`
	WorkingDays             []int  `json:"working_days"`
	WorkEndTime             string `json:"work_end_time"`
	Timezone                string `json:"timezone"`
}

func (o OvertimeOptions) ToResponse() OvertimeOptionsResponse {
	days := make([]int, 0, len(o.WorkingDays))
	for wd, on := range o.WorkingDays {
		if !on {
			continue
		}
		iso := int(wd)
		if wd == time.Sunday {
			iso = 7
		}
		days = append(days, iso)
	}
	sort.Ints(days)

	return OvertimeOptionsResponse{
		RequireApproval:         o.RequireApproval,
		AutoApprove:             o.AutoApprove,
		MinHours:                o.MinHours.String(),
		MaxHours:                o.MaxHours.String(),
		StartAfterWorkEnd:       o.StartAfterWorkEnd,
		EarlyStartBufferMinutes: int(o.EarlyStartBuffer / time.Minute),
		RequireBeforePhoto:      o.RequireBeforePhoto,
		RequireAfterPhoto:       o.RequireAfterPhoto,
		MaxPerDay:               o.MaxPerDay.String(),
		MaxPerWeek:              o.MaxPerWeek.String(),
		MaxPerMonth:             o.MaxPerMonth.String(),
		Rate1x:                  o.Rate1x.String(),
		Rate1_5x:                o.Rate1_5x.String(),
		Rate2x:                  o.Rate2x.String(),
		WorkHoursPerDay:         o.WorkHoursPerDay.String(),
		DaysPerMonth:            o.DaysPerMonth.String(),
		WorkingDays:             days,
		WorkEndTime:             o.WorkEndTime.String(),
		Timezone:                o.Location.String(),
	}
}
