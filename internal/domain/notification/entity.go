package notification

import (
	"time"
)

type NotificationType string

const (
	TypeOvertimeRequested NotificationType = "ot_requested"
	TypeOvertimeApproved  NotificationType = "ot_approved"
	TypeOvertimeRejected  NotificationType = "ot_rejected"
	TypeOvertimeCancelled NotificationType = "ot_cancelled"
	TypeOvertimeStarted   NotificationType = "ot_start"
	TypeOvertimeEnded     NotificationType = "ot_end"
)

func AllNotificationTypes() []NotificationType {
	return []NotificationType{
		TypeOvertimeRequested,
		TypeOvertimeApproved,
		TypeOvertimeRejected,
		TypeOvertimeCancelled,
		TypeOvertimeStarted,
		TypeOvertimeEnded,
	}
}

// Notification is an in-app message addressed to a user.
type Notification struct {
	ID          string
	CompanyID   string
	RecipientID string // user id
	SenderID    *string
	Type        NotificationType
	Title       string
	Message     string
	Data        map[string]interface{}
	IsRead      bool
	ReadAt      *time.Time
	CreatedAt   time.Time
}
