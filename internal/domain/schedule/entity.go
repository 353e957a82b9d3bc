package schedule

import (
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
)

// ActiveSchedule is the employee's working time for one calendar day, resolved from a
// dated assignment first and the employee's default schedule second.
type ActiveSchedule struct {
	ScheduleID        string
	ScheduleName      string
	ClockIn           settings.Clock
	ClockOut          settings.Clock
	IsNextDayCheckout bool
}

// WorkEndOn returns the instant work ends for a shift starting on date.
func (s ActiveSchedule) WorkEndOn(date time.Time, loc *time.Location) time.Time {
	end := s.ClockOut.On(date, loc)
	if s.IsNextDayCheckout {
		end = end.AddDate(0, 0, 1)
	}
	return end
}
