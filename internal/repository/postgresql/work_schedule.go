package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type workScheduleRepositoryImpl struct {
	db *database.DB
}

func NewWorkScheduleRepository(db *database.DB) schedule.WorkScheduleRepository {
	return &workScheduleRepositoryImpl{db: db}
}

// GetActiveSchedule implements schedule.WorkScheduleRepository. A dated assignment wins
// over the employee's default schedule; days without a time row have no schedule.
func (w *workScheduleRepositoryImpl) GetActiveSchedule(ctx context.Context, employeeID string, date time.Time, companyID string) (schedule.ActiveSchedule, error) {
	q := GetQuerier(ctx, w.db)

	query := `
		WITH target_schedule AS (
			SELECT COALESCE(
				(
					SELECT work_schedule_id
					FROM employee_schedule_assignments
					WHERE employee_id = $1
					  AND $2::date BETWEEN start_date AND end_date
					ORDER BY start_date DESC
					LIMIT 1
				),
				(
					SELECT work_schedule_id
					FROM employees
					WHERE id = $1 AND company_id = $3
				)
			) AS id
		)
		SELECT
			ws.id,
			ws.name,
			to_char(wst.clock_in_time, 'HH24:MI'),
			to_char(wst.clock_out_time, 'HH24:MI'),
			wst.is_next_day_checkout
		FROM target_schedule ts
		JOIN work_schedules ws ON ws.id = ts.id
		JOIN work_schedule_times wst ON wst.work_schedule_id = ws.id
			AND wst.day_of_week = EXTRACT(ISODOW FROM $2::date)::int
		WHERE ws.company_id = $3
		  AND ws.deleted_at IS NULL
	`

	var active schedule.ActiveSchedule
	var clockIn, clockOut string
	err := q.QueryRow(ctx, query, employeeID, date.Format("2006-01-02"), companyID).Scan(
		&active.ScheduleID,
		&active.ScheduleName,
		&clockIn,
		&clockOut,
		&active.IsNextDayCheckout,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return schedule.ActiveSchedule{}, schedule.ErrScheduleNotFound
		}
		return schedule.ActiveSchedule{}, fmt.Errorf("get active schedule: %w", err)
	}

	if active.ClockIn, err = settings.ParseClock(clockIn); err != nil {
		return schedule.ActiveSchedule{}, err
	}
	if active.ClockOut, err = settings.ParseClock(clockOut); err != nil {
		return schedule.ActiveSchedule{}, err
	}

	return active, nil
}
