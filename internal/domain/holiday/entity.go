package holiday

import "time"

// Holiday is a company or public holiday spanning StartDate..EndDate inclusive.
// A nil CompanyID marks a public holiday that applies to every company.
type Holiday struct {
	ID                string
	CompanyID         *string
	Name              string
	StartDate         time.Time
	EndDate           time.Time
	IsRecurringYearly bool
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Covers reports whether the calendar day of date falls within the holiday.
// Recurring holidays match on month and day in any year.
func (h Holiday) Covers(date time.Time) bool {
	if !h.IsActive {
		return false
	}
	d := dayOf(date)
	start, end := dayOf(h.StartDate), dayOf(h.EndDate)

	if !h.IsRecurringYearly {
		return !d.Before(start) && !d.After(end)
	}

	// Shift the range into date's year, keeping ranges that wrap over New Year.
	years := end.Year() - start.Year()
	start = start.AddDate(d.Year()-start.Year(), 0, 0)
	end = end.AddDate(d.Year()-end.Year()+years, 0, 0)
	if !d.Before(start) && !d.After(end) {
		return true
	}
	start, end = start.AddDate(-1, 0, 0), end.AddDate(-1, 0, 0)
	return !d.Before(start) && !d.After(end)
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
