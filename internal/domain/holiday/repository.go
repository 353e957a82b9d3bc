package holiday

import (
	"context"
	"time"
)

type HolidayRepository interface {
	// IsHoliday reports whether date is a public or company holiday for companyID.
	IsHoliday(ctx context.Context, companyID string, date time.Time) (bool, error)
}
