package response

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/validator"
)

// State error codes. Clients treat all of them as final for the request they sent.
const (
	CodeNotApproved       = "OT_NOT_APPROVED"
	CodeAlreadyStarted    = "OT_ALREADY_STARTED"
	CodeNotStarted        = "OT_NOT_STARTED"
	CodeAlreadyCompleted  = "OT_ALREADY_COMPLETED"
	CodeInvalidTransition = "OT_INVALID_TRANSITION"
)

// HandleError maps domain errors to HTTP responses
func HandleError(w http.ResponseWriter, err error) {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) {
		ValidationError(w, validationErrs.ToMap())
		return
	}

	var rule *overtime.RuleViolation
	if errors.As(err, &rule) {
		Error(w, ruleStatus(rule.Code), string(rule.Code), rule.Message, nil)
		return
	}

	switch {
	// Auth
	case errors.Is(err, auth.ErrMissingClaims), errors.Is(err, auth.ErrInvalidToken):
		Unauthorized(w, err.Error())
	case errors.Is(err, auth.ErrCompanyNotFound), errors.Is(err, auth.ErrEmployeeNotFound):
		Forbidden(w, err.Error())
	case errors.Is(err, auth.ErrInsufficientScope):
		Forbidden(w, "Insufficient permissions")

	// Employee
	case errors.Is(err, employee.ErrEmployeeNotFound):
		NotFound(w, "Employee not found")
	case errors.Is(err, employee.ErrEmployeeInactive):
		Forbidden(w, "Employee is not active")

	// Overtime
	case errors.Is(err, overtime.ErrOvertimeNotFound):
		NotFound(w, "Overtime request not found")
	case errors.Is(err, overtime.ErrNotOwner):
		Forbidden(w, "Overtime request belongs to another employee")
	case errors.Is(err, overtime.ErrNotApproved):
		Error(w, http.StatusConflict, CodeNotApproved, "Overtime request has not been approved", nil)
	case errors.Is(err, overtime.ErrAlreadyStarted):
		Error(w, http.StatusConflict, CodeAlreadyStarted, "Overtime has already been started", nil)
	case errors.Is(err, overtime.ErrNotStarted):
		Error(w, http.StatusConflict, CodeNotStarted, "Overtime has not been started", nil)
	case errors.Is(err, overtime.ErrAlreadyCompleted):
		Error(w, http.StatusConflict, CodeAlreadyCompleted, "Overtime has already been completed", nil)
	case errors.Is(err, overtime.ErrAlreadyProcessed), errors.Is(err, overtime.ErrStaleState):
		Error(w, http.StatusConflict, CodeInvalidTransition, "Overtime request has already been processed", nil)

	// Notification
	case errors.Is(err, notification.ErrNotificationNotFound):
		NotFound(w, "Notification not found")
	case errors.Is(err, notification.ErrServiceStopped):
		ServiceUnavailable(w, "Notification service is shutting down")

	default:
		slog.Error("unhandled error", "error", err)
		InternalServerError(w, "An unexpected error occurred")
	}
}

func ruleStatus(code overtime.RuleCode) int {
	switch code {
	case overtime.CodePhotoRequired, overtime.CodeLocationRequired:
		return http.StatusBadRequest
	case overtime.CodePhotoUploadFailed:
		return http.StatusBadGateway
	}
	return http.StatusUnprocessableEntity
}
