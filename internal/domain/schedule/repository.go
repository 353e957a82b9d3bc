package schedule

import (
	"context"
	"time"
)

type WorkScheduleRepository interface {
	// GetActiveSchedule returns ErrScheduleNotFound when the employee has no working time on date.
	GetActiveSchedule(ctx context.Context, employeeID string, date time.Time, companyID string) (ActiveSchedule, error)
}
