package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

type dispatchRepositoryImpl struct {
	db *database.DB
}

func NewDispatchRepository(db *database.DB) dispatch.Repository {
	return &dispatchRepositoryImpl{db: db}
}

const dispatchColumns = `id, company_id, event_type, aggregate_id, payload, status, attempts,
	last_error, locked_until, delivered_at, delivered_handlers, created_at, updated_at`

func scanDispatchEvent(row pgx.Row) (dispatch.Event, error) {
	var ev dispatch.Event
	err := row.Scan(
		&ev.ID, &ev.CompanyID, &ev.EventType, &ev.AggregateID, &ev.Payload, &ev.Status, &ev.Attempts,
		&ev.LastError, &ev.LockedUntil, &ev.DeliveredAt, &ev.DeliveredHandlers, &ev.CreatedAt, &ev.UpdatedAt,
	)
	return ev, err
}

// Insert implements dispatch.Repository.
func (r *dispatchRepositoryImpl) Insert(ctx context.Context, event dispatch.Event) error {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO dispatch_events (id, company_id, event_type, aggregate_id, payload, status, attempts, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, 'pending', 0, NOW(), NOW())
	`
	_, err := q.Exec(ctx, query, event.ID, event.CompanyID, string(event.EventType), event.AggregateID, []byte(event.Payload))
	if err != nil {
		return fmt.Errorf("insert dispatch event: %w", err)
	}
	return nil
}

// Claim implements dispatch.Repository.
func (r *dispatchRepositoryImpl) Claim(ctx context.Context, id string, lease time.Duration) (dispatch.Event, error) {
	q := GetQuerier(ctx, r.db)

	query := fmt.Sprintf(`
		UPDATE dispatch_events
		SET status = 'processing',
			locked_until = NOW() + make_interval(secs => $2),
			updated_at = NOW()
		WHERE id = $1
		  AND (status = 'pending' OR (status = 'processing' AND locked_until < NOW()))
		RETURNING %s
	`, dispatchColumns)

	ev, err := scanDispatchEvent(q.QueryRow(ctx, query, id, lease.Seconds()))
	if err == nil {
		return ev, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return dispatch.Event{}, fmt.Errorf("claim dispatch event: %w", err)
	}

	var exists bool
	if err := q.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM dispatch_events WHERE id = $1)`, id).Scan(&exists); err != nil {
		return dispatch.Event{}, fmt.Errorf("check dispatch event: %w", err)
	}
	if !exists {
		return dispatch.Event{}, dispatch.ErrEventNotFound
	}
	return dispatch.Event{}, dispatch.ErrNotClaimed
}

// MarkHandlerDelivered implements dispatch.Repository.
func (r *dispatchRepositoryImpl) MarkHandlerDelivered(ctx context.Context, id string, handler string) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE dispatch_events
		SET delivered_handlers = CASE
				WHEN $2::text = ANY(delivered_handlers) THEN delivered_handlers
				ELSE array_append(delivered_handlers, $2::text)
			END,
			updated_at = NOW()
		WHERE id = $1
	`, id, handler)
	if err != nil {
		return fmt.Errorf("mark dispatch handler delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dispatch.ErrEventNotFound
	}
	return nil
}

// MarkDelivered implements dispatch.Repository.
func (r *dispatchRepositoryImpl) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `
		UPDATE dispatch_events
		SET status = 'delivered', delivered_at = $2, locked_until = NULL, last_error = NULL, updated_at = NOW()
		WHERE id = $1
	`, id, at)
	if err != nil {
		return fmt.Errorf("mark dispatch event delivered: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return dispatch.ErrEventNotFound
	}
	return nil
}

// MarkAttemptFailed implements dispatch.Repository.
func (r *dispatchRepositoryImpl) MarkAttemptFailed(ctx context.Context, id string, errMsg string, maxAttempts int) (dispatch.Status, error) {
	q := GetQuerier(ctx, r.db)

	var status dispatch.Status
	err := q.QueryRow(ctx, `
		UPDATE dispatch_events
		SET attempts = attempts + 1,
			last_error = $2,
			locked_until = NULL,
			status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
			updated_at = NOW()
		WHERE id = $1
		RETURNING status
	`, id, errMsg, maxAttempts).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", dispatch.ErrEventNotFound
		}
		return "", fmt.Errorf("mark dispatch attempt failed: %w", err)
	}
	return status, nil
}

// ListReplayable implements dispatch.Repository.
func (r *dispatchRepositoryImpl) ListReplayable(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	q := GetQuerier(ctx, r.db)

	rows, err := q.Query(ctx, `
		SELECT id
		FROM dispatch_events
		WHERE (status = 'pending' AND created_at < $1)
		   OR (status = 'processing' AND locked_until < NOW())
		ORDER BY created_at
		LIMIT $2
	`, olderThan, limit)
	if err != nil {
		return nil, fmt.Errorf("list replayable dispatch events: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// PurgeDelivered implements dispatch.Repository.
func (r *dispatchRepositoryImpl) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	q := GetQuerier(ctx, r.db)

	tag, err := q.Exec(ctx, `DELETE FROM dispatch_events WHERE status = 'delivered' AND delivered_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("purge dispatch events: %w", err)
	}
	return tag.RowsAffected(), nil
}
