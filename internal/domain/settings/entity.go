package settings

import "time"

// Setting is one company-scoped key/value pair. Values are stored as text and parsed on read.
type Setting struct {
	CompanyID string
	Key       string
	Value     string
	UpdatedAt time.Time
}

const (
	KeyRequireApproval    = "ot_require_approval"
	KeyAutoApprove        = "ot_auto_approve"
	KeyMinHours           = "ot_min_hours"
	KeyMaxHours           = "ot_max_hours"
	KeyStartAfterWorkEnd  = "ot_start_after_work_end"
	KeyEarlyStartBuffer   = "ot_early_start_buffer"
	KeyRequireBeforePhoto = "ot_require_before_photo"
	KeyRequireAfterPhoto  = "ot_require_after_photo"
	KeyMaxPerDay          = "max_ot_per_day"
	KeyMaxPerWeek         = "max_ot_per_week"
	KeyMaxPerMonth        = "max_ot_per_month"
	KeyRate1x             = "default_ot_rate_1x"
	KeyRate1_5x           = "default_ot_rate_1_5x"
	KeyRate2x             = "default_ot_rate_2x"
	KeyWorkHoursPerDay    = "work_hours_per_day"
	KeyDaysPerMonth       = "days_per_month"
	KeyWorkingDays        = "working_days"
	KeyWorkEndTime        = "work_end_time"
	KeyTimezone           = "timezone"
)

// OvertimeKeys lists every key the overtime engine reads.
var OvertimeKeys = []string{
	KeyRequireApproval, KeyAutoApprove, KeyMinHours, KeyMaxHours, KeyStartAfterWorkEnd,
	KeyEarlyStartBuffer, KeyRequireBeforePhoto, KeyRequireAfterPhoto, KeyMaxPerDay,
	KeyMaxPerWeek, KeyMaxPerMonth, KeyRate1x, KeyRate1_5x, KeyRate2x, KeyWorkHoursPerDay,
	KeyDaysPerMonth, KeyWorkingDays, KeyWorkEndTime, KeyTimezone,
}
