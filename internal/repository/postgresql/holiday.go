package postgresql

import (
	"context"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
)

type holidayRepositoryImpl struct {
	db *database.DB
}

func NewHolidayRepository(db *database.DB) holiday.HolidayRepository {
	return &holidayRepositoryImpl{db: db}
}

// IsHoliday implements holiday.HolidayRepository. SQL narrows to rows that can cover date;
// recurring ranges are matched in Go by Holiday.Covers.
func (r *holidayRepositoryImpl) IsHoliday(ctx context.Context, companyID string, date time.Time) (bool, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT id, company_id, name, start_date, end_date, is_recurring_yearly, is_active
		FROM holidays
		WHERE (company_id = $1 OR company_id IS NULL)
		  AND is_active = true
		  AND (
			($2::date BETWEEN start_date AND end_date)
			OR is_recurring_yearly = true
		  )
	`

	rows, err := q.Query(ctx, query, companyID, date.Format("2006-01-02"))
	if err != nil {
		return false, fmt.Errorf("query holidays: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var h holiday.Holiday
		if err := rows.Scan(&h.ID, &h.CompanyID, &h.Name, &h.StartDate, &h.EndDate, &h.IsRecurringYearly, &h.IsActive); err != nil {
			return false, fmt.Errorf("scan holiday: %w", err)
		}
		if h.Covers(date) {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, err
	}

	return false, nil
}
