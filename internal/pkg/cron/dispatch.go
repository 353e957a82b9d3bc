package cron

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
)

// DispatchJobs keeps the side-effect outbox moving after crashes and restarts.
type DispatchJobs struct {
	dispatcher     dispatch.Dispatcher
	replayInterval time.Duration
	purgeInterval  time.Duration
}

func NewDispatchJobs(dispatcher dispatch.Dispatcher, replayInterval, purgeInterval time.Duration) *DispatchJobs {
	return &DispatchJobs{
		dispatcher:     dispatcher,
		replayInterval: replayInterval,
		purgeInterval:  purgeInterval,
	}
}

// RegisterJobs registers the outbox replay and purge jobs
func (j *DispatchJobs) RegisterJobs(scheduler *Scheduler) {
	scheduler.AddJob("replay_dispatch_events", j.replayInterval, j.ReplayDispatchEvents)
	scheduler.AddJob("purge_dispatch_events", j.purgeInterval, j.PurgeDispatchEvents)
}

// ReplayDispatchEvents re-enqueues events whose post-commit hand-off was lost.
func (j *DispatchJobs) ReplayDispatchEvents(ctx context.Context) error {
	n, err := j.dispatcher.Replay(ctx)
	if err != nil {
		return fmt.Errorf("failed to replay dispatch events: %w", err)
	}
	if n > 0 {
		slog.Info("Cron: Replayed dispatch events", "count", n)
	}
	return nil
}

func (j *DispatchJobs) PurgeDispatchEvents(ctx context.Context) error {
	n, err := j.dispatcher.Purge(ctx)
	if err != nil {
		return fmt.Errorf("failed to purge dispatch events: %w", err)
	}
	slog.Info("Cron: Purged delivered dispatch events", "count", n)
	return nil
}
