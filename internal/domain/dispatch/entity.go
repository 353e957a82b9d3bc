package dispatch

import (
	"encoding/json"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/geo"
)

type EventType string

const (
	EventOvertimeRequested EventType = "ot_requested"
	EventOvertimeApproved  EventType = "ot_approved"
	EventOvertimeRejected  EventType = "ot_rejected"
	EventOvertimeCancelled EventType = "ot_cancelled"
	EventOvertimeStarted   EventType = "ot_start"
	EventOvertimeEnded     EventType = "ot_end"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusDelivered  Status = "delivered"
	StatusFailed     Status = "failed"
)

// Event is an outbox row written in the same transaction as the overtime state change
// it describes. Handlers run after commit and may run more than once for the same event.
type Event struct {
	ID          string
	CompanyID   string
	EventType   EventType
	AggregateID string // overtime request id
	Payload     json.RawMessage
	Status      Status
	Attempts    int
	LastError   *string
	LockedUntil *time.Time
	DeliveredAt *time.Time
	// Handlers that already succeeded for this event; retries skip them.
	DeliveredHandlers []string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// HandledBy reports whether handler already succeeded for e.
func (e Event) HandledBy(handler string) bool {
	for _, h := range e.DeliveredHandlers {
		if h == handler {
			return true
		}
	}
	return false
}

// OvertimePayload is the snapshot of a transition, captured when it commits so that
// replays describe the same facts.
type OvertimePayload struct {
	OvertimeID     string     `json:"overtime_id"`
	EmployeeID     string     `json:"employee_id"`
	EmployeeUserID *string    `json:"employee_user_id,omitempty"`
	EmployeeName   string     `json:"employee_name"`
	ActorUserID    *string    `json:"actor_user_id,omitempty"`
	RequestDate    string     `json:"request_date"` // YYYY-MM-DD
	OccurredAt     time.Time  `json:"occurred_at"`
	Timezone       string     `json:"timezone"`
	WindowStart    *time.Time `json:"window_start,omitempty"`
	WindowEnd      *time.Time `json:"window_end,omitempty"`
	Hours          *string    `json:"hours,omitempty"`
	Amount         *string    `json:"amount,omitempty"`
	OTRate         *string    `json:"ot_rate,omitempty"`
	OTType         *string    `json:"ot_type,omitempty"`
	Location       *geo.Point `json:"location,omitempty"`
	StartLocation  *geo.Point `json:"start_location,omitempty"`
	Reason         *string    `json:"reason,omitempty"`
}

func (e Event) DecodeOvertime() (OvertimePayload, error) {
	var p OvertimePayload
	err := json.Unmarshal(e.Payload, &p)
	return p, err
}
