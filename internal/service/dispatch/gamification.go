package dispatch

import (
	"context"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/webhook"
)

// GamificationTrigger tells the points service that an overtime was completed.
type GamificationTrigger struct {
	client *webhook.Client
}

type gamificationPayload struct {
	EmployeeID  string `json:"employee_id"`
	OTRequestID string `json:"ot_request_id"`
}

func NewGamificationTrigger(client *webhook.Client) *GamificationTrigger {
	return &GamificationTrigger{client: client}
}

func (g *GamificationTrigger) Name() string { return "gamification" }

func (g *GamificationTrigger) Handles(t dispatch.EventType) bool {
	return t == dispatch.EventOvertimeEnded && g.client.Enabled()
}

func (g *GamificationTrigger) Handle(ctx context.Context, event dispatch.Event, p dispatch.OvertimePayload) error {
	return g.client.Post(ctx, "overtime.completed", event.ID, gamificationPayload{
		EmployeeID:  p.EmployeeID,
		OTRequestID: p.OvertimeID,
	})
}
