package overtime

import (
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/geo"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusApproved   Status = "approved"
	StatusInProgress Status = "in_progress"
	StatusCompleted  Status = "completed"
	StatusRejected   Status = "rejected"
	StatusCancelled  Status = "cancelled"
)

var StatusValues = []string{
	string(StatusPending),
	string(StatusApproved),
	string(StatusInProgress),
	string(StatusCompleted),
	string(StatusRejected),
	string(StatusCancelled),
}

// transitions lists every legal status change. pending -> in_progress is the implicit
// approval taken by Start when approval is no longer required.
var transitions = map[Status][]Status{
	StatusPending:    {StatusApproved, StatusRejected, StatusCancelled, StatusInProgress},
	StatusApproved:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusCompleted},
}

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusInProgress, StatusCompleted, StatusRejected, StatusCancelled:
		return true
	}
	return false
}

func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusCancelled
}

func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// DayType classifies the request date for rate resolution.
type DayType string

const (
	DayTypeWorkday DayType = "workday"
	DayTypeWeekend DayType = "weekend"
	DayTypeHoliday DayType = "holiday"
)

type Overtime struct {
	ID         string
	CompanyID  string
	EmployeeID string

	RequestDate    time.Time // calendar date in the company timezone
	RequestedStart time.Time
	RequestedEnd   time.Time
	Reason         string

	Status Status

	ApprovedStart *time.Time
	ApprovedEnd   *time.Time
	ApprovedBy    *string // NULL when auto-approved
	ApprovedAt    *time.Time

	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	CancelledAt     *time.Time

	ActualStart    *time.Time
	ActualEnd      *time.Time
	BeforePhotoURL *string
	AfterPhotoURL  *string
	StartLocation  *geo.Point
	EndLocation    *geo.Point

	// Frozen at Start.
	OTRate *decimal.Decimal
	OTType *DayType

	ActualHours *decimal.Decimal
	Amount      *decimal.Decimal

	CreatedAt time.Time
	UpdatedAt time.Time

	// Join
	EmployeeName *string
}

// RequestedHours is the requested window length in hours.
func (o Overtime) RequestedHours() decimal.Decimal {
	minutes := int64(o.RequestedEnd.Sub(o.RequestedStart) / time.Minute)
	return decimal.NewFromInt(minutes).Div(decimal.NewFromInt(60)).Round(2)
}

// ApprovalPatch is written by Approve and by the implicit approval paths.
type ApprovalPatch struct {
	ApprovedStart time.Time
	ApprovedEnd   time.Time
	ApprovedBy    *string
	ApprovedAt    time.Time
}

type StartPatch struct {
	ActualStart    time.Time
	BeforePhotoURL *string
	StartLocation  geo.Point
	OTRate         decimal.Decimal
	OTType         DayType
	// Set when Start approves a pending request on the fly.
	Approval *ApprovalPatch
}

type EndPatch struct {
	ActualEnd     time.Time
	AfterPhotoURL *string
	EndLocation   geo.Point
	ActualHours   decimal.Decimal
	Amount        *decimal.Decimal
}
