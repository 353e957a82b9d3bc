package dispatch

import "context"

// Handler performs one side effect for an event. Handlers must tolerate redelivery.
type Handler interface {
	Name() string
	Handles(t EventType) bool
	Handle(ctx context.Context, event Event, payload OvertimePayload) error
}

// Dispatcher delivers committed outbox events to handlers in the background.
type Dispatcher interface {
	// Enqueue never blocks. Events it cannot accept stay pending for the replay job.
	Enqueue(eventID string)
	// Replay re-enqueues stuck events and returns how many it found.
	Replay(ctx context.Context) (int, error)
	// Purge deletes delivered events older than the retention window.
	Purge(ctx context.Context) (int64, error)
	Start()
	Stop()
}
