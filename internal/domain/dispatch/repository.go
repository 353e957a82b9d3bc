package dispatch

import (
	"context"
	"time"
)

type Repository interface {
	// Insert joins the transaction carried by ctx, if any.
	Insert(ctx context.Context, event Event) error

	// Claim leases a pending (or lease-expired processing) event for lease.
	Claim(ctx context.Context, id string, lease time.Duration) (Event, error)

	// MarkHandlerDelivered records that handler succeeded for the event. Recording the
	// same handler twice is a no-op.
	MarkHandlerDelivered(ctx context.Context, id string, handler string) error

	MarkDelivered(ctx context.Context, id string, at time.Time) error

	// MarkAttemptFailed records err and returns the event to pending, or to failed once
	// attempts reach maxAttempts.
	MarkAttemptFailed(ctx context.Context, id string, errMsg string, maxAttempts int) (Status, error)

	// ListReplayable returns ids of pending events created before olderThan and of
	// processing events whose lease has expired.
	ListReplayable(ctx context.Context, olderThan time.Time, limit int) ([]string, error)

	PurgeDelivered(ctx context.Context, before time.Time) (int64, error)
}
