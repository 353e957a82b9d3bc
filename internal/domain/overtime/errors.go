package overtime

import (
	"errors"
	"fmt"
)

// State errors. These mean a transition was already applied or is not allowed from the
// current status; clients must not retry them.
var (
	ErrOvertimeNotFound = errors.New("overtime request not found")
	ErrNotApproved      = errors.New("overtime request has not been approved")
	ErrAlreadyStarted   = errors.New("overtime has already been started")
	ErrNotStarted       = errors.New("overtime has not been started")
	ErrAlreadyCompleted = errors.New("overtime has already been completed")
	ErrAlreadyProcessed = errors.New("overtime request has already been processed")
	ErrNotOwner         = errors.New("overtime request belongs to another employee")

	// ErrStaleState is returned by conditional updates that matched no row.
	ErrStaleState = errors.New("overtime request changed concurrently")
)

type RuleCode string

const (
	CodeReasonRequired     RuleCode = "OT_REASON_REQUIRED"
	CodeInvalidWindow      RuleCode = "OT_INVALID_WINDOW"
	CodeMinDuration        RuleCode = "OT_MIN_DURATION"
	CodeMaxDuration        RuleCode = "OT_MAX_DURATION"
	CodeStartBeforeWorkEnd RuleCode = "OT_START_BEFORE_WORK_END"
	CodePhotoRequired      RuleCode = "OT_PHOTO_REQUIRED"
	CodeLocationRequired   RuleCode = "OT_LOCATION_REQUIRED"
	CodePhotoUploadFailed  RuleCode = "OT_PHOTO_UPLOAD_FAILED"
)

// RuleViolation is a caller-correctable business rule failure with a stable code.
type RuleViolation struct {
	Code    RuleCode
	Message string
}

func (e *RuleViolation) Error() string {
	return e.Message
}

// Is matches any RuleViolation with the same code, so errors.Is(err, ErrMinDuration) works
// regardless of the message.
func (e *RuleViolation) Is(target error) bool {
	t, ok := target.(*RuleViolation)
	return ok && t.Code == e.Code
}

func NewRuleViolation(code RuleCode, format string, args ...interface{}) *RuleViolation {
	return &RuleViolation{Code: code, Message: fmt.Sprintf(format, args...)}
}

var (
	ErrReasonRequired     = &RuleViolation{Code: CodeReasonRequired, Message: "reason is required"}
	ErrInvalidWindow      = &RuleViolation{Code: CodeInvalidWindow, Message: "overtime end must be after start"}
	ErrMinDuration        = &RuleViolation{Code: CodeMinDuration, Message: "overtime is shorter than the minimum duration"}
	ErrMaxDuration        = &RuleViolation{Code: CodeMaxDuration, Message: "overtime is longer than the maximum duration"}
	ErrStartBeforeWorkEnd = &RuleViolation{Code: CodeStartBeforeWorkEnd, Message: "overtime must start after work ends"}
	ErrPhotoRequired      = &RuleViolation{Code: CodePhotoRequired, Message: "a proof photo is required"}
	ErrLocationRequired   = &RuleViolation{Code: CodeLocationRequired, Message: "GPS location is required"}
	ErrPhotoUploadFailed  = &RuleViolation{Code: CodePhotoUploadFailed, Message: "failed to upload proof photo, please retry"}
)
