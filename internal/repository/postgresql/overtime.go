package postgresql

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/geo"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

type overtimeRepositoryImpl struct {
	db *database.DB
}

func NewOvertimeRepository(db *database.DB) overtime.OvertimeRepository {
	return &overtimeRepositoryImpl{db: db}
}

var overtimeColumnNames = []string{
	"id", "company_id", "employee_id",
	"request_date", "requested_start", "requested_end", "reason", "status",
	"approved_start", "approved_end", "approved_by", "approved_at",
	"rejected_by", "rejected_at", "rejection_reason", "cancelled_at",
	"actual_start", "actual_end", "before_photo_url", "after_photo_url",
	"start_latitude", "start_longitude", "end_latitude", "end_longitude",
	"ot_rate", "ot_type", "actual_hours", "amount",
	"created_at", "updated_at",
}

func overtimeColumns(alias string) string {
	if alias == "" {
		return strings.Join(overtimeColumnNames, ", ")
	}
	cols := make([]string, len(overtimeColumnNames))
	for i, c := range overtimeColumnNames {
		cols[i] = alias + "." + c
	}
	return strings.Join(cols, ", ")
}

// scanOvertime reads overtimeColumns followed by extra destinations.
func scanOvertime(row pgx.Row, extra ...interface{}) (overtime.Overtime, error) {
	var o overtime.Overtime
	var startLat, startLng, endLat, endLng *float64
	var otType *string

	dest := []interface{}{
		&o.ID, &o.CompanyID, &o.EmployeeID,
		&o.RequestDate, &o.RequestedStart, &o.RequestedEnd, &o.Reason, &o.Status,
		&o.ApprovedStart, &o.ApprovedEnd, &o.ApprovedBy, &o.ApprovedAt,
		&o.RejectedBy, &o.RejectedAt, &o.RejectionReason, &o.CancelledAt,
		&o.ActualStart, &o.ActualEnd, &o.BeforePhotoURL, &o.AfterPhotoURL,
		&startLat, &startLng, &endLat, &endLng,
		&o.OTRate, &otType, &o.ActualHours, &o.Amount,
		&o.CreatedAt, &o.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return overtime.Overtime{}, err
	}

	o.StartLocation = point(startLat, startLng)
	o.EndLocation = point(endLat, endLng)
	if otType != nil {
		t := overtime.DayType(*otType)
		o.OTType = &t
	}
	return o, nil
}

func point(lat, lng *float64) *geo.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Point{Latitude: *lat, Longitude: *lng}
}

// Create implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) Create(ctx context.Context, o overtime.Overtime) (overtime.Overtime, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO overtime_requests (
			id, company_id, employee_id,
			request_date, requested_start, requested_end, reason, status,
			approved_start, approved_end, approved_by, approved_at,
			created_at, updated_at
		) VALUES (
			uuidv7(), $1, $2,
			$3::date, $4, $5, $6, $7,
			$8, $9, $10, $11,
			NOW(), NOW()
		) RETURNING id, created_at, updated_at
	`

	err := q.QueryRow(ctx, query,
		o.CompanyID, o.EmployeeID,
		o.RequestDate.Format("2006-01-02"), o.RequestedStart, o.RequestedEnd, o.Reason, o.Status,
		o.ApprovedStart, o.ApprovedEnd, o.ApprovedBy, o.ApprovedAt,
	).Scan(&o.ID, &o.CreatedAt, &o.UpdatedAt)
	if err != nil {
		return overtime.Overtime{}, fmt.Errorf("insert overtime request: %w", err)
	}

	return o, nil
}

// GetByID implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) GetByID(ctx context.Context, id string, companyID string) (overtime.Overtime, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		SELECT %s, e.full_name
		FROM overtime_requests ot
		JOIN employees e ON e.id = ot.employee_id
		WHERE ot.id = $1 AND ot.company_id = $2
	`, overtimeColumns("ot"))

	var employeeName string
	o, err := scanOvertime(q.QueryRow(ctx, query, id, companyID), &employeeName)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return overtime.Overtime{}, overtime.ErrOvertimeNotFound
		}
		return overtime.Overtime{}, fmt.Errorf("get overtime request: %w", err)
	}
	o.EmployeeName = &employeeName
	return o, nil
}

var overtimeSortColumns = map[string]string{
	"request_date": "ot.request_date",
	"created_at":   "ot.created_at",
	"status":       "ot.status",
}

// List implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) List(ctx context.Context, filter overtime.OvertimeFilter, companyID string) ([]overtime.Overtime, int64, error) {
	q := GetQuerier(ctx, r.db)

	whereClause := "WHERE ot.company_id = $1"
	args := []interface{}{companyID}
	argIndex := 2

	if filter.EmployeeID != nil && *filter.EmployeeID != "" {
		whereClause += fmt.Sprintf(" AND ot.employee_id = $%d", argIndex)
		args = append(args, *filter.EmployeeID)
		argIndex++
	}
	if filter.Status != nil && *filter.Status != "" {
		whereClause += fmt.Sprintf(" AND ot.status = $%d", argIndex)
		args = append(args, *filter.Status)
		argIndex++
	}
	if filter.StartDate != nil && *filter.StartDate != "" {
		whereClause += fmt.Sprintf(" AND ot.request_date >= $%d::date", argIndex)
		args = append(args, *filter.StartDate)
		argIndex++
	}
	if filter.EndDate != nil && *filter.EndDate != "" {
		whereClause += fmt.Sprintf(" AND ot.request_date <= $%d::date", argIndex)
		args = append(args, *filter.EndDate)
		argIndex++
	}

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM overtime_requests ot %s`, whereClause)
	var total int64
	if err := q.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count overtime requests: %w", err)
	}

	sortColumn, ok := overtimeSortColumns[filter.SortBy]
	if !ok {
		sortColumn = "ot.request_date"
	}
	sortOrder := "DESC"
	if strings.EqualFold(filter.SortOrder, "asc") {
		sortOrder = "ASC"
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 20
	}
	offset := (filter.Page - 1) * filter.Limit

	query := fmt.Sprintf(`
		SELECT %s, e.full_name
		FROM overtime_requests ot
		JOIN employees e ON e.id = ot.employee_id
		%s
		ORDER BY %s %s, ot.created_at DESC
		LIMIT $%d OFFSET $%d
	`, overtimeColumns("ot"), whereClause, sortColumn, sortOrder, argIndex, argIndex+1)
	args = append(args, filter.Limit, offset)

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list overtime requests: %w", err)
	}
	defer rows.Close()

	var overtimes []overtime.Overtime
	for rows.Next() {
		var employeeName string
		o, err := scanOvertime(rows, &employeeName)
		if err != nil {
			return nil, 0, fmt.Errorf("scan overtime request: %w", err)
		}
		o.EmployeeName = &employeeName
		overtimes = append(overtimes, o)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return overtimes, total, nil
}

// SumLoggedHours implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) SumLoggedHours(ctx context.Context, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT COALESCE(SUM(COALESCE(
			actual_hours,
			ROUND(FLOOR(EXTRACT(EPOCH FROM (requested_end - requested_start)) / 60) / 60, 2)
		)), 0)
		FROM overtime_requests
		WHERE employee_id = $1
		  AND request_date >= $2::date
		  AND request_date < $3::date
		  AND status NOT IN ('rejected', 'cancelled')
	`

	var total decimal.Decimal
	err := q.QueryRow(ctx, query, employeeID, from.Format("2006-01-02"), to.Format("2006-01-02")).Scan(&total)
	if err != nil {
		return decimal.Zero, fmt.Errorf("sum logged overtime: %w", err)
	}
	return total, nil
}

// Approve implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) Approve(ctx context.Context, id, companyID string, patch overtime.ApprovalPatch) (overtime.Overtime, error) {
	query := fmt.Sprintf(`
		UPDATE overtime_requests
		SET status = 'approved',
			approved_start = $3,
			approved_end = $4,
			approved_by = $5,
			approved_at = $6,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'pending'
		RETURNING %s
	`, overtimeColumns(""))

	return r.conditionalUpdate(ctx, id, companyID, query,
		id, companyID, patch.ApprovedStart, patch.ApprovedEnd, patch.ApprovedBy, patch.ApprovedAt)
}

// Reject implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) Reject(ctx context.Context, id, companyID, rejectedBy, reason string, at time.Time) (overtime.Overtime, error) {
	query := fmt.Sprintf(`
		UPDATE overtime_requests
		SET status = 'rejected',
			rejected_by = $3,
			rejection_reason = $4,
			rejected_at = $5,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'pending'
		RETURNING %s
	`, overtimeColumns(""))

	return r.conditionalUpdate(ctx, id, companyID, query, id, companyID, rejectedBy, reason, at)
}

// Cancel implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) Cancel(ctx context.Context, id, companyID string, from overtime.Status, at time.Time) (overtime.Overtime, error) {
	query := fmt.Sprintf(`
		UPDATE overtime_requests
		SET status = 'cancelled',
			cancelled_at = $4,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $3
		  AND status IN ('pending', 'approved')
		  AND actual_start IS NULL
		RETURNING %s
	`, overtimeColumns(""))

	return r.conditionalUpdate(ctx, id, companyID, query, id, companyID, from, at)
}

// MarkStarted implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) MarkStarted(ctx context.Context, id, companyID string, from overtime.Status, patch overtime.StartPatch) (overtime.Overtime, error) {
	var approvedStart, approvedEnd, approvedAt *time.Time
	if patch.Approval != nil {
		approvedStart = &patch.Approval.ApprovedStart
		approvedEnd = &patch.Approval.ApprovedEnd
		approvedAt = &patch.Approval.ApprovedAt
	}

	query := fmt.Sprintf(`
		UPDATE overtime_requests
		SET status = 'in_progress',
			actual_start = $4,
			before_photo_url = $5,
			start_latitude = $6,
			start_longitude = $7,
			ot_rate = $8,
			ot_type = $9,
			approved_start = COALESCE($10::timestamptz, approved_start),
			approved_end = COALESCE($11::timestamptz, approved_end),
			approved_at = COALESCE($12::timestamptz, approved_at),
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = $3
		  AND actual_start IS NULL
		RETURNING %s
	`, overtimeColumns(""))

	return r.conditionalUpdate(ctx, id, companyID, query,
		id, companyID, from,
		patch.ActualStart, patch.BeforePhotoURL, patch.StartLocation.Latitude, patch.StartLocation.Longitude,
		patch.OTRate, string(patch.OTType),
		approvedStart, approvedEnd, approvedAt,
	)
}

// MarkCompleted implements overtime.OvertimeRepository.
func (r *overtimeRepositoryImpl) MarkCompleted(ctx context.Context, id, companyID string, patch overtime.EndPatch) (overtime.Overtime, error) {
	query := fmt.Sprintf(`
		UPDATE overtime_requests
		SET status = 'completed',
			actual_end = $3,
			after_photo_url = $4,
			end_latitude = $5,
			end_longitude = $6,
			actual_hours = $7,
			amount = $8,
			updated_at = NOW()
		WHERE id = $1 AND company_id = $2 AND status = 'in_progress'
		  AND actual_start IS NOT NULL
		  AND actual_end IS NULL
		RETURNING %s
	`, overtimeColumns(""))

	return r.conditionalUpdate(ctx, id, companyID, query,
		id, companyID,
		patch.ActualEnd, patch.AfterPhotoURL, patch.EndLocation.Latitude, patch.EndLocation.Longitude,
		patch.ActualHours, patch.Amount,
	)
}

// conditionalUpdate runs an UPDATE ... RETURNING guarded by the expected state. No row
// means either the request does not exist or its state moved on.
func (r *overtimeRepositoryImpl) conditionalUpdate(ctx context.Context, id, companyID, query string, args ...interface{}) (overtime.Overtime, error) {
	q := GetQuerier(ctx, r.db)

	o, err := scanOvertime(q.QueryRow(ctx, query, args...))
	if err == nil {
		return o, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return overtime.Overtime{}, fmt.Errorf("update overtime request: %w", err)
	}

	var exists bool
	err = q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM overtime_requests WHERE id = $1 AND company_id = $2)`, id, companyID).Scan(&exists)
	if err != nil {
		return overtime.Overtime{}, fmt.Errorf("check overtime request: %w", err)
	}
	if !exists {
		return overtime.Overtime{}, overtime.ErrOvertimeNotFound
	}
	return overtime.Overtime{}, overtime.ErrStaleState
}
