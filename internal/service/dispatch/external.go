package dispatch

import (
	"context"
	"fmt"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/webhook"
)

// ExternalNotifier forwards the formatted message of every overtime event to the external
// notification webhook. The receiver deduplicates on the event id header.
type ExternalNotifier struct {
	client *webhook.Client
}

func NewExternalNotifier(client *webhook.Client) *ExternalNotifier {
	return &ExternalNotifier{client: client}
}

func (e *ExternalNotifier) Name() string { return "external_notifier" }

func (e *ExternalNotifier) Handles(t dispatch.EventType) bool {
	return isOvertimeEvent(t) && e.client.Enabled()
}

func (e *ExternalNotifier) Handle(ctx context.Context, event dispatch.Event, p dispatch.OvertimePayload) error {
	if err := e.client.Post(ctx, string(event.EventType), event.ID, FormatMessage(event, p)); err != nil {
		return fmt.Errorf("external notify: %w", err)
	}
	return nil
}
