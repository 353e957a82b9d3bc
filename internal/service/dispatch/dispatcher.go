package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
)

// Config holds dispatcher configuration
type Config struct {
	WorkerCount    int           // default: 2
	QueueSize      int           // default: 256
	Lease          time.Duration // default: 1 minute
	HandlerTimeout time.Duration // default: 15 seconds
	MaxAttempts    int           // default: 5
	ReplayAfter    time.Duration // default: 1 minute
	ReplayBatch    int           // default: 100
	Retention      time.Duration // default: 7 days
}

type dispatcher struct {
	repo     dispatch.Repository
	handlers []dispatch.Handler
	config   Config
	now      func() time.Time

	queue  chan string
	wg     sync.WaitGroup
	stopCh chan struct{}

	mu      sync.RWMutex
	started bool
	stopped bool
}

// NewDispatcher returns a dispatcher that runs handlers for committed outbox events.
// Workers start with Start.
func NewDispatcher(repo dispatch.Repository, cfg Config, handlers ...dispatch.Handler) dispatch.Dispatcher {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 2
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}
	if cfg.Lease <= 0 {
		cfg.Lease = time.Minute
	}
	if cfg.HandlerTimeout <= 0 {
		cfg.HandlerTimeout = 15 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.ReplayAfter <= 0 {
		cfg.ReplayAfter = time.Minute
	}
	if cfg.ReplayBatch <= 0 {
		cfg.ReplayBatch = 100
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 7 * 24 * time.Hour
	}

	return &dispatcher{
		repo:     repo,
		handlers: handlers,
		config:   cfg,
		now:      time.Now,
		queue:    make(chan string, cfg.QueueSize),
		stopCh:   make(chan struct{}),
	}
}

func (d *dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.config.WorkerCount; i++ {
		d.wg.Add(1)
		go d.worker(i)
	}

	slog.Info("Dispatcher started", "workers", d.config.WorkerCount, "handlers", len(d.handlers))
}

// Stop waits for in-flight events. Queued ids that were not picked up stay pending in the
// outbox and are replayed later.
func (d *dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.stopCh)
	d.mu.Unlock()

	d.wg.Wait()
	slog.Info("Dispatcher stopped")
}

func (d *dispatcher) Enqueue(eventID string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		return
	}

	select {
	case d.queue <- eventID:
	default:
		slog.Warn("Dispatch queue full, event left for replay", "event_id", eventID)
	}
}

func (d *dispatcher) Replay(ctx context.Context) (int, error) {
	ids, err := d.repo.ListReplayable(ctx, d.now().Add(-d.config.ReplayAfter), d.config.ReplayBatch)
	if err != nil {
		return 0, fmt.Errorf("failed to list replayable events: %w", err)
	}
	for _, id := range ids {
		d.Enqueue(id)
	}
	return len(ids), nil
}

func (d *dispatcher) Purge(ctx context.Context) (int64, error) {
	return d.repo.PurgeDelivered(ctx, d.now().Add(-d.config.Retention))
}

func (d *dispatcher) worker(id int) {
	defer d.wg.Done()

	for {
		select {
		case eventID := <-d.queue:
			d.process(eventID)
		case <-d.stopCh:
			return
		}
	}
}

// process claims the event, runs every interested handler that has not already succeeded
// for it and records the outcome. Handler failures never escape; they only schedule
// another attempt, which reruns the failed handlers alone.
func (d *dispatcher) process(eventID string) {
	ctx, cancel := context.WithTimeout(context.Background(), d.config.HandlerTimeout)
	defer cancel()

	event, err := d.repo.Claim(ctx, eventID, d.config.Lease)
	if err != nil {
		if errors.Is(err, dispatch.ErrNotClaimed) || errors.Is(err, dispatch.ErrEventNotFound) {
			slog.Debug("Dispatch event skipped", "event_id", eventID, "reason", err)
			return
		}
		slog.Error("Failed to claim dispatch event", "event_id", eventID, "error", err)
		return
	}

	payload, err := event.DecodeOvertime()
	if err != nil {
		// An undecodable payload will never succeed.
		d.recordFailure(ctx, event, fmt.Errorf("decode payload: %w", err), 1)
		return
	}

	var errs []error
	for _, h := range d.handlers {
		if !h.Handles(event.EventType) || event.HandledBy(h.Name()) {
			continue
		}
		if err := d.runHandler(ctx, h, event, payload); err != nil {
			slog.Warn("Dispatch handler failed",
				"event_id", event.ID,
				"event_type", event.EventType,
				"handler", h.Name(),
				"attempt", event.Attempts+1,
				"error", err,
			)
			errs = append(errs, fmt.Errorf("%s: %w", h.Name(), err))
			continue
		}
		if err := d.repo.MarkHandlerDelivered(ctx, event.ID, h.Name()); err != nil {
			// The handler will run again on the next attempt.
			slog.Error("Failed to record dispatch handler delivery", "event_id", event.ID, "handler", h.Name(), "error", err)
		}
	}

	if len(errs) > 0 {
		d.recordFailure(ctx, event, errors.Join(errs...), d.config.MaxAttempts)
		return
	}

	if err := d.repo.MarkDelivered(ctx, event.ID, d.now()); err != nil {
		slog.Error("Failed to mark dispatch event delivered", "event_id", event.ID, "error", err)
		return
	}
	slog.Debug("Dispatch event delivered", "event_id", event.ID, "event_type", event.EventType)
}

func (d *dispatcher) runHandler(ctx context.Context, h dispatch.Handler, event dispatch.Event, payload dispatch.OvertimePayload) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Handle(ctx, event, payload)
}

func (d *dispatcher) recordFailure(ctx context.Context, event dispatch.Event, cause error, maxAttempts int) {
	status, err := d.repo.MarkAttemptFailed(ctx, event.ID, cause.Error(), maxAttempts)
	if err != nil {
		slog.Error("Failed to record dispatch failure", "event_id", event.ID, "error", err)
		return
	}
	if status == dispatch.StatusFailed {
		slog.Error("Dispatch event abandoned", "event_id", event.ID, "event_type", event.EventType, "error", cause)
	}
}
