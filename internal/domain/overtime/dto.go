package overtime

import (
	"mime/multipart"
	"strings"

	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/geo"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
)

const maxPhotoSize = 10 << 20 // 10MB

// ========================================
// REQUEST DTOs
// ========================================

// CreateOvertimeRequest describes a window on Date. An EndTime before StartTime ends
// on the following day. Equal times are rejected.
type CreateOvertimeRequest struct {
	Date      string `json:"date"`       // YYYY-MM-DD
	StartTime string `json:"start_time"` // HH:MM
	EndTime   string `json:"end_time"`   // HH:MM
	Reason    string `json:"reason"`
}

func (r *CreateOvertimeRequest) Validate() error {
	var errs validator.ValidationErrors

	if _, ok := validator.IsValidDate(r.Date); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "date",
			Message: "date must be in YYYY-MM-DD format",
		})
	}
	if _, ok := validator.IsValidClock(r.StartTime); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time must be in HH:MM format",
		})
	}
	if _, ok := validator.IsValidClock(r.EndTime); !ok {
		errs = append(errs, validator.ValidationError{
			Field:   "end_time",
			Message: "end_time must be in HH:MM format",
		})
	}
	if len(r.Reason) > 1000 {
		errs = append(errs, validator.ValidationError{
			Field:   "reason",
			Message: "reason must not exceed 1000 characters",
		})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ApproveOvertimeRequest optionally overrides the approved window.
type ApproveOvertimeRequest struct {
	ID        string  `json:"-"`
	StartTime *string `json:"start_time,omitempty"` // HH:MM on the request date
	EndTime   *string `json:"end_time,omitempty"`
}

func (r *ApproveOvertimeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if (r.StartTime == nil) != (r.EndTime == nil) {
		errs = append(errs, validator.ValidationError{
			Field:   "start_time",
			Message: "start_time and end_time must be provided together",
		})
	}
	if r.StartTime != nil {
		if _, ok := validator.IsValidClock(*r.StartTime); !ok {
			errs = append(errs, validator.ValidationError{Field: "start_time", Message: "start_time must be in HH:MM format"})
		}
	}
	if r.EndTime != nil {
		if _, ok := validator.IsValidClock(*r.EndTime); !ok {
			errs = append(errs, validator.ValidationError{Field: "end_time", Message: "end_time must be in HH:MM format"})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// HasOverride reports whether the approver supplied a window.
func (r *ApproveOvertimeRequest) HasOverride() bool {
	return r.StartTime != nil && r.EndTime != nil
}

type RejectOvertimeRequest struct {
	ID     string `json:"-"`
	Reason string `json:"reason"`
}

func (r *RejectOvertimeRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if validator.IsEmpty(r.Reason) {
		errs = append(errs, validator.ValidationError{Field: "reason", Message: "rejection reason is required"})
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ExecutionRequest carries the photo and GPS captured at Start or End.
// Missing values are checked by the service against the company settings.
type ExecutionRequest struct {
	ID         string                `json:"-"`
	Latitude   *float64              `json:"latitude"`
	Longitude  *float64              `json:"longitude"`
	File       multipart.File        `json:"-"`
	FileHeader *multipart.FileHeader `json:"-"`
}

func (r *ExecutionRequest) Validate() error {
	var errs validator.ValidationErrors

	if validator.IsEmpty(r.ID) {
		errs = append(errs, validator.ValidationError{Field: "id", Message: "id is required"})
	}
	if r.Latitude != nil && !validator.IsValidLatitude(*r.Latitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "latitude",
			Message: "latitude must be between -90 and 90",
		})
	}
	if r.Longitude != nil && !validator.IsValidLongitude(*r.Longitude) {
		errs = append(errs, validator.ValidationError{
			Field:   "longitude",
			Message: "longitude must be between -180 and 180",
		})
	}
	if r.FileHeader != nil {
		if !validator.IsAllowedImage(r.FileHeader.Filename) {
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "invalid file type: only jpg, jpeg, png allowed",
			})
		} else if r.FileHeader.Size > maxPhotoSize {
			errs = append(errs, validator.ValidationError{
				Field:   "photo",
				Message: "proof photo size must not exceed 10MB",
			})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

// Location returns the captured point, or nil when either coordinate is missing.
func (r *ExecutionRequest) Location() *geo.Point {
	if r.Latitude == nil || r.Longitude == nil {
		return nil
	}
	return &geo.Point{Latitude: *r.Latitude, Longitude: *r.Longitude}
}

func (r *ExecutionRequest) HasPhoto() bool {
	return r.File != nil && r.FileHeader != nil
}

type OvertimeFilter struct {
	EmployeeID *string `json:"employee_id,omitempty"`
	Status     *string `json:"status,omitempty"`
	StartDate  *string `json:"start_date,omitempty"` // YYYY-MM-DD
	EndDate    *string `json:"end_date,omitempty"`   // YYYY-MM-DD

	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortBy    string `json:"sort_by"`    // request_date, created_at, status
	SortOrder string `json:"sort_order"` // asc, desc
}

func (f *OvertimeFilter) Validate() error {
	errs := validateListParams(&f.Page, &f.Limit, &f.SortBy, &f.SortOrder, f.Status, f.StartDate, f.EndDate)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// MyOvertimeFilter is OvertimeFilter without the employee selector.
type MyOvertimeFilter struct {
	Status    *string `json:"status,omitempty"`
	StartDate *string `json:"start_date,omitempty"`
	EndDate   *string `json:"end_date,omitempty"`

	Page  int `json:"page"`
	Limit int `json:"limit"`

	SortBy    string `json:"sort_by"`
	SortOrder string `json:"sort_order"`
}

func (f *MyOvertimeFilter) Validate() error {
	errs := validateListParams(&f.Page, &f.Limit, &f.SortBy, &f.SortOrder, f.Status, f.StartDate, f.EndDate)
	if len(errs) > 0 {
		return errs
	}
	return nil
}

// ToFilter scopes the filter to one employee.
func (f MyOvertimeFilter) ToFilter(employeeID string) OvertimeFilter {
	return OvertimeFilter{
		EmployeeID: &employeeID,
		Status:     f.Status,
		StartDate:  f.StartDate,
		EndDate:    f.EndDate,
		Page:       f.Page,
		Limit:      f.Limit,
		SortBy:     f.SortBy,
		SortOrder:  f.SortOrder,
	}
}

func validateListParams(page, limit *int, sortBy, sortOrder *string, status, startDate, endDate *string) validator.ValidationErrors {
	var errs validator.ValidationErrors

	if *page < 0 {
		errs = append(errs, validator.ValidationError{Field: "page", Message: "page must be a positive number"})
	}
	if *page == 0 {
		*page = 1
	}
	if *limit < 0 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "limit must be a positive number"})
	}
	if *limit == 0 {
		*limit = 20
	}
	if *limit > 100 {
		errs = append(errs, validator.ValidationError{Field: "limit", Message: "limit must not exceed 100"})
	}

	if status != nil && !validator.IsInSlice(*status, StatusValues) {
		errs = append(errs, validator.ValidationError{
			Field:   "status",
			Message: "status must be one of: " + strings.Join(StatusValues, ", "),
		})
	}
	if startDate != nil && *startDate != "" {
		if _, ok := validator.IsValidDate(*startDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "start_date", Message: "start_date must be in YYYY-MM-DD format"})
		}
	}
	if endDate != nil && *endDate != "" {
		if _, ok := validator.IsValidDate(*endDate); !ok {
			errs = append(errs, validator.ValidationError{Field: "end_date", Message: "end_date must be in YYYY-MM-DD format"})
		}
	}

	if *sortBy != "" {
		validSortFields := []string{"request_date", "created_at", "status"}
		if !validator.IsInSlice(*sortBy, validSortFields) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_by",
				Message: "sort_by must be one of: request_date, created_at, status",
			})
		}
	} else {
		*sortBy = "request_date"
	}

	if *sortOrder != "" {
		*sortOrder = strings.ToLower(*sortOrder)
		if !validator.IsInSlice(*sortOrder, []string{"asc", "desc"}) {
			errs = append(errs, validator.ValidationError{
				Field:   "sort_order",
				Message: "sort_order must be one of: asc, desc",
			})
		}
	} else {
		*sortOrder = "desc"
	}

	return errs
}

// ========================================
// RESPONSE DTOs
// ========================================

type WarningCode string

const (
	WarningDailyCap   WarningCode = "OT_DAILY_CAP"
	WarningWeeklyCap  WarningCode = "OT_WEEKLY_CAP"
	WarningMonthlyCap WarningCode = "OT_MONTHLY_CAP"
)

// Warning reports a soft cap the request exceeds. It never blocks creation.
type Warning struct {
	Code        WarningCode     `json:"code"`
	Message     string          `json:"message"`
	LimitHours  decimal.Decimal `json:"limit_hours"`
	LoggedHours decimal.Decimal `json:"logged_hours"`
}

type OvertimeResponse struct {
	ID              string     `json:"id"`
	EmployeeID      string     `json:"employee_id"`
	EmployeeName    *string    `json:"employee_name,omitempty"`
	RequestDate     string     `json:"request_date"`
	RequestedStart  string     `json:"requested_start"`
	RequestedEnd    string     `json:"requested_end"`
	RequestedHours  string     `json:"requested_hours"`
	Reason          string     `json:"reason"`
	Status          Status     `json:"status"`
	ApprovedStart   *string    `json:"approved_start,omitempty"`
	ApprovedEnd     *string    `json:"approved_end,omitempty"`
	ApprovedBy      *string    `json:"approved_by,omitempty"`
	ApprovedAt      *string    `json:"approved_at,omitempty"`
	RejectedBy      *string    `json:"rejected_by,omitempty"`
	RejectionReason *string    `json:"rejection_reason,omitempty"`
	CancelledAt     *string    `json:"cancelled_at,omitempty"`
	ActualStart     *string    `json:"actual_start,omitempty"`
	ActualEnd       *string    `json:"actual_end,omitempty"`
	BeforePhotoURL  *string    `json:"before_photo_url,omitempty"`
	AfterPhotoURL   *string    `json:"after_photo_url,omitempty"`
	StartLocation   *geo.Point `json:"start_location,omitempty"`
	EndLocation     *geo.Point `json:"end_location,omitempty"`
	OTRate          *string    `json:"ot_rate,omitempty"`
	OTType          *DayType   `json:"ot_type,omitempty"`
	ActualHours     *string    `json:"actual_hours,omitempty"`
	Amount          *string    `json:"amount"`
	CreatedAt       string     `json:"created_at"`
	UpdatedAt       string     `json:"updated_at"`
}

type CreateOvertimeResponse struct {
	Overtime OvertimeResponse `json:"overtime"`
	Warnings []Warning        `json:"warnings"`
}

type ListOvertimeResponse struct {
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalPages int                `json:"total_pages"`
	Showing    string             `json:"showing"`
	Overtimes  []OvertimeResponse `json:"overtimes"`
}
