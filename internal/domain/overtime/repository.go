package overtime

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OvertimeRepository persists overtime requests. Every state change is a conditional
// update on the expected source status and returns ErrStaleState when no row matched.
type OvertimeRepository interface {
	Create(ctx context.Context, o Overtime) (Overtime, error)
	GetByID(ctx context.Context, id string, companyID string) (Overtime, error)
	List(ctx context.Context, filter OvertimeFilter, companyID string) ([]Overtime, int64, error)

	// SumLoggedHours totals actual hours (or requested hours when not completed) of the
	// employee's non-rejected, non-cancelled requests with from <= request_date < to.
	SumLoggedHours(ctx context.Context, employeeID string, from, to time.Time) (decimal.Decimal, error)

	Approve(ctx context.Context, id, companyID string, patch ApprovalPatch) (Overtime, error)
	Reject(ctx context.Context, id, companyID, rejectedBy, reason string, at time.Time) (Overtime, error)
	Cancel(ctx context.Context, id, companyID string, from Status, at time.Time) (Overtime, error)
	MarkStarted(ctx context.Context, id, companyID string, from Status, patch StartPatch) (Overtime, error)
	MarkCompleted(ctx context.Context, id, companyID string, patch EndPatch) (Overtime, error)
}
