package overtime

import (
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
)

// CheckStart reports whether o may be started. implicitApproval is true when a pending
// request is approved by the Start itself.
func CheckStart(o overtime.Overtime, opts settings.OvertimeOptions) (implicitApproval bool, err error) {
	if o.ActualStart != nil {
		return false, overtime.ErrAlreadyStarted
	}

	switch o.Status {
	case overtime.StatusApproved:
		return false, nil
	case overtime.StatusPending:
		if !opts.RequireApproval || opts.AutoApprove {
			return true, nil
		}
		return false, overtime.ErrNotApproved
	case overtime.StatusInProgress, overtime.StatusCompleted:
		return false, overtime.ErrAlreadyStarted
	case overtime.StatusRejected, overtime.StatusCancelled:
		// Under an approval policy the request simply is not approved.
		if opts.RequireApproval {
			return false, overtime.ErrNotApproved
		}
		return false, overtime.ErrAlreadyProcessed
	default:
		return false, overtime.ErrAlreadyProcessed
	}
}

func CheckEnd(o overtime.Overtime) error {
	if o.ActualEnd != nil || o.Status == overtime.StatusCompleted {
		return overtime.ErrAlreadyCompleted
	}
	if o.ActualStart == nil || o.Status != overtime.StatusInProgress {
		return overtime.ErrNotStarted
	}
	return nil
}

// CheckDecision guards Approve and Reject.
func CheckDecision(o overtime.Overtime) error {
	if o.Status != overtime.StatusPending {
		return overtime.ErrAlreadyProcessed
	}
	return nil
}

func CheckCancel(o overtime.Overtime, employeeID string) error {
	if o.EmployeeID != employeeID {
		return overtime.ErrNotOwner
	}
	if !o.Status.CanTransitionTo(overtime.StatusCancelled) {
		return overtime.ErrAlreadyProcessed
	}
	return nil
}
