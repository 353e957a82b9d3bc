package overtime

import (
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/shopspring/decimal"
)

// mapOvertimeToResponse renders o with times in loc and photo keys resolved to URLs.
func mapOvertimeToResponse(o overtime.Overtime, loc *time.Location, fileURL func(string) string) overtime.OvertimeResponse {
	resp := overtime.OvertimeResponse{
		ID:              o.ID,
		EmployeeID:      o.EmployeeID,
		EmployeeName:    o.EmployeeName,
		RequestDate:     o.RequestDate.Format("2006-01-02"),
		RequestedStart:  o.RequestedStart.In(loc).Format(time.RFC3339),
		RequestedEnd:    o.RequestedEnd.In(loc).Format(time.RFC3339),
		RequestedHours:  o.RequestedHours().StringFixed(2),
		Reason:          o.Reason,
		Status:          o.Status,
		ApprovedStart:   formatTime(o.ApprovedStart, loc),
		ApprovedEnd:     formatTime(o.ApprovedEnd, loc),
		ApprovedBy:      o.ApprovedBy,
		ApprovedAt:      formatTime(o.ApprovedAt, loc),
		RejectedBy:      o.RejectedBy,
		RejectionReason: o.RejectionReason,
		CancelledAt:     formatTime(o.CancelledAt, loc),
		ActualStart:     formatTime(o.ActualStart, loc),
		ActualEnd:       formatTime(o.ActualEnd, loc),
		StartLocation:   o.StartLocation,
		EndLocation:     o.EndLocation,
		OTType:          o.OTType,
		OTRate:          formatDecimal(o.OTRate),
		ActualHours:     formatDecimal(o.ActualHours),
		Amount:          formatDecimal(o.Amount),
		CreatedAt:       o.CreatedAt.In(loc).Format(time.RFC3339),
		UpdatedAt:       o.UpdatedAt.In(loc).Format(time.RFC3339),
	}

	if o.BeforePhotoURL != nil && fileURL != nil {
		url := fileURL(*o.BeforePhotoURL)
		resp.BeforePhotoURL = &url
	}
	if o.AfterPhotoURL != nil && fileURL != nil {
		url := fileURL(*o.AfterPhotoURL)
		resp.AfterPhotoURL = &url
	}

	return resp
}

func formatTime(t *time.Time, loc *time.Location) *string {
	if t == nil {
		return nil
	}
	s := t.In(loc).Format(time.RFC3339)
	return &s
}

func formatDecimal(d *decimal.Decimal) *string {
	if d == nil {
		return nil
	}
	s := d.StringFixed(2)
	return &s
}

func buildListResponse(items []overtime.OvertimeResponse, total int64, page, limit int) overtime.ListOvertimeResponse {
	totalPages := int(math.Ceil(float64(total) / float64(limit)))
	showing := fmt.Sprintf("%d-%d of %d", (page-1)*limit+1, min(page*limit, int(total)), total)
	if total == 0 {
		showing = "0 of 0"
	}

	return overtime.ListOvertimeResponse{
		TotalCount: total,
		Page:       page,
		Limit:      limit,
		TotalPages: totalPages,
		Showing:    showing,
		Overtimes:  items,
	}
}
