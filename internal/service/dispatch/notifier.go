package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/geo"
)

// Message is the formatted view of an overtime event shared by in-app notifications and
// the external notification webhook.
type Message struct {
	EventID      string             `json:"event_id"`
	Type         dispatch.EventType `json:"type"`
	OvertimeID   string             `json:"overtime_id"`
	EmployeeName string             `json:"employee_name"`
	Date         string             `json:"date"`
	Time         string             `json:"time"`
	Hours        *string            `json:"hours,omitempty"`
	Amount       *string            `json:"amount,omitempty"`
	Reason       *string            `json:"reason,omitempty"`
	GPS          *GPS               `json:"gps,omitempty"`
}

type GPS struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	MapsLink  string  `json:"maps_link"`
	// Distance from the start location, on ot_end only.
	DistanceMeters *float64 `json:"distance_meters,omitempty"`
}

// FormatMessage renders payload with times in the company timezone.
func FormatMessage(event dispatch.Event, p dispatch.OvertimePayload) Message {
	loc, err := time.LoadLocation(p.Timezone)
	if err != nil {
		loc = time.UTC
	}

	msg := Message{
		EventID:      event.ID,
		Type:         event.EventType,
		OvertimeID:   p.OvertimeID,
		EmployeeName: p.EmployeeName,
		Date:         p.RequestDate,
		Hours:        p.Hours,
		Amount:       p.Amount,
		Reason:       p.Reason,
	}

	switch {
	case p.WindowStart != nil && p.WindowEnd != nil && event.EventType != dispatch.EventOvertimeStarted:
		msg.Time = p.WindowStart.In(loc).Format("15:04") + "-" + p.WindowEnd.In(loc).Format("15:04")
	case p.WindowStart != nil:
		msg.Time = p.WindowStart.In(loc).Format("15:04")
	default:
		msg.Time = p.OccurredAt.In(loc).Format("15:04")
	}

	if p.Location != nil {
		msg.GPS = &GPS{
			Latitude:  p.Location.Latitude,
			Longitude: p.Location.Longitude,
			MapsLink:  geo.MapsLink(*p.Location),
		}
		if event.EventType == dispatch.EventOvertimeEnded && p.StartLocation != nil {
			distance := math.Round(geo.DistanceMeters(*p.StartLocation, *p.Location)*10) / 10
			msg.GPS.DistanceMeters = &distance
		}
	}

	return msg
}

func isOvertimeEvent(t dispatch.EventType) bool {
	switch t {
	case dispatch.EventOvertimeRequested, dispatch.EventOvertimeApproved, dispatch.EventOvertimeRejected,
		dispatch.EventOvertimeCancelled, dispatch.EventOvertimeStarted, dispatch.EventOvertimeEnded:
		return true
	}
	return false
}

// Notifier queues in-app notifications for an event.
type Notifier struct {
	notifications notification.Service
	employees     employee.EmployeeRepository
}

func NewNotifier(notifications notification.Service, employees employee.EmployeeRepository) *Notifier {
	return &Notifier{
		notifications: notifications,
		employees:     employees,
	}
}

func (n *Notifier) Name() string { return "notifier" }

func (n *Notifier) Handles(t dispatch.EventType) bool { return isOvertimeEvent(t) }

func (n *Notifier) Handle(ctx context.Context, event dispatch.Event, p dispatch.OvertimePayload) error {
	msg := FormatMessage(event, p)

	recipients, err := n.recipients(ctx, event, p)
	if err != nil {
		return err
	}

	if len(recipients) == 0 {
		return nil
	}

	title, text := describe(msg)
	data, err := toData(msg)
	if err != nil {
		return err
	}

	reqs := make([]notification.CreateNotificationRequest, 0, len(recipients))
	for _, userID := range recipients {
		reqs = append(reqs, notification.CreateNotificationRequest{
			CompanyID:   event.CompanyID,
			RecipientID: userID,
			SenderID:    p.ActorUserID,
			Type:        notification.NotificationType(event.EventType),
			Title:       title,
			Message:     text,
			Data:        data,
		})
	}
	if err := n.notifications.QueueBulkNotification(ctx, reqs); err != nil {
		return fmt.Errorf("queue notifications: %w", err)
	}
	return nil
}

// recipients returns the users to notify. Decisions go to the employee; everything else
// goes to the company's approvers. The actor is never notified of their own action.
func (n *Notifier) recipients(ctx context.Context, event dispatch.Event, p dispatch.OvertimePayload) ([]string, error) {
	var candidates []string

	switch event.EventType {
	case dispatch.EventOvertimeApproved, dispatch.EventOvertimeRejected:
		if p.EmployeeUserID != nil {
			candidates = append(candidates, *p.EmployeeUserID)
		}
	default:
		approvers, err := n.employees.GetApproverUserIDs(ctx, event.CompanyID)
		if err != nil {
			return nil, fmt.Errorf("get approvers: %w", err)
		}
		candidates = approvers
	}

	seen := make(map[string]bool, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, id := range candidates {
		if id == "" || seen[id] {
			continue
		}
		if p.ActorUserID != nil && *p.ActorUserID == id {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

func describe(m Message) (title, text string) {
	switch m.Type {
	case dispatch.EventOvertimeRequested:
		return "New overtime request", fmt.Sprintf("%s requested overtime on %s, %s", m.EmployeeName, m.Date, m.Time)
	case dispatch.EventOvertimeApproved:
		return "Overtime approved", fmt.Sprintf("Your overtime on %s, %s was approved", m.Date, m.Time)
	case dispatch.EventOvertimeRejected:
		text = fmt.Sprintf("Your overtime on %s was rejected", m.Date)
		if m.Reason != nil && *m.Reason != "" {
			text += ": " + *m.Reason
		}
		return "Overtime rejected", text
	case dispatch.EventOvertimeCancelled:
		return "Overtime cancelled", fmt.Sprintf("%s cancelled overtime on %s", m.EmployeeName, m.Date)
	case dispatch.EventOvertimeStarted:
		return "Overtime started", fmt.Sprintf("%s started overtime at %s on %s", m.EmployeeName, m.Time, m.Date)
	case dispatch.EventOvertimeEnded:
		text = fmt.Sprintf("%s finished overtime on %s, %s", m.EmployeeName, m.Date, m.Time)
		if m.Hours != nil {
			text += fmt.Sprintf(" (%s hours)", *m.Hours)
		}
		return "Overtime completed", text
	}
	return "Overtime update", fmt.Sprintf("Overtime on %s was updated", m.Date)
}

func toData(m Message) (map[string]interface{}, error) {
	raw, err := json.Marshal(m)
	if err != nil {
		return nil, err
	}
	var data map[string]interface{}
	if err := json.Unmarshal(raw, &data); err != nil {
		return nil, err
	}
	return data, nil
}
