package overtime

import (
	"context"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
)

type OvertimeService interface {
	// Create validates the window against company rules and stores the request,
	// approving it immediately when approval is not required.
	Create(ctx context.Context, req CreateOvertimeRequest) (CreateOvertimeResponse, error)

	Approve(ctx context.Context, req ApproveOvertimeRequest) (OvertimeResponse, error)
	Reject(ctx context.Context, req RejectOvertimeRequest) (OvertimeResponse, error)
	Cancel(ctx context.Context, id string) (OvertimeResponse, error)

	// Start stamps the actual start and freezes the rate for the request date.
	Start(ctx context.Context, req ExecutionRequest) (OvertimeResponse, error)
	// End stamps the actual end and computes hours and amount.
	End(ctx context.Context, req ExecutionRequest) (OvertimeResponse, error)

	Get(ctx context.Context, id string) (OvertimeResponse, error)
	ListMine(ctx context.Context, filter MyOvertimeFilter) (ListOvertimeResponse, error)
	List(ctx context.Context, filter OvertimeFilter) (ListOvertimeResponse, error)

	GetSettings(ctx context.Context) (settings.OvertimeOptionsResponse, error)
}
