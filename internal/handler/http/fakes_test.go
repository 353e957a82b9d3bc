package http

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/notification"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/idempotency"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/jwt"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

const handlerTestSecret = "test-secret-key-for-jwt"

type fakeOvertimeService struct {
	mu    sync.Mutex
	calls map[string]int
	err   error

	created  overtime.CreateOvertimeRequest
	approved overtime.ApproveOvertimeRequest
	rejected overtime.RejectOvertimeRequest
	executed overtime.ExecutionRequest
	photo    []byte
	listed   overtime.OvertimeFilter
	mine     overtime.MyOvertimeFilter
}

func newFakeOvertimeService() *fakeOvertimeService {
	return &fakeOvertimeService{calls: map[string]int{}}
}

func (f *fakeOvertimeService) record(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeOvertimeService) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeOvertimeService) response(id string, status overtime.Status) overtime.OvertimeResponse {
	return overtime.OvertimeResponse{ID: id, Status: status}
}

func (f *fakeOvertimeService) Create(ctx context.Context, req overtime.CreateOvertimeRequest) (overtime.CreateOvertimeResponse, error) {
	f.record("Create")
	f.created = req
	if f.err != nil {
		return overtime.CreateOvertimeResponse{}, f.err
	}
	return overtime.CreateOvertimeResponse{Overtime: f.response("ot-1", overtime.StatusPending), Warnings: []overtime.Warning{}}, nil
}

func (f *fakeOvertimeService) Approve(ctx context.Context, req overtime.ApproveOvertimeRequest) (overtime.OvertimeResponse, error) {
	f.record("Approve")
	f.approved = req
	if f.err != nil {
		return overtime.OvertimeResponse{}, f.err
	}
	return f.response(req.ID, overtime.StatusApproved), nil
}

func (f *fakeOvertimeService) Reject(ctx context.Context, req overtime.RejectOvertimeRequest) (overtime.OvertimeResponse, error) {
	f.record("Reject")
	f.rejected = req
	if f.err != nil {
		return overtime.OvertimeResponse{}, f.err
	}
	return f.response(req.ID, overtime.StatusRejected), nil
}

func (f *fakeOvertimeService) Cancel(ctx context.Context, id string) (overtime.OvertimeResponse, error) {
	f.record("Cancel")
	if f.err != nil {
		return overtime.OvertimeResponse{}, f.err
	}
	return f.response(id, overtime.StatusCancelled), nil
}

func (f *fakeOvertimeService) execute(name string, req overtime.ExecutionRequest, status overtime.Status) (overtime.OvertimeResponse, error) {
	f.record(name)
	f.mu.Lock()
	f.executed = req
	if req.File != nil {
		f.photo, _ = io.ReadAll(req.File)
	}
	f.mu.Unlock()
	if f.err != nil {
		return overtime.OvertimeResponse{}, f.err
	}
	return f.response(req.ID, status), nil
}

func (f *fakeOvertimeService) Start(ctx context.Context, req overtime.ExecutionRequest) (overtime.OvertimeResponse, error) {
	return f.execute("Start", req, overtime.StatusInProgress)
}

func (f *fakeOvertimeService) End(ctx context.Context, req overtime.ExecutionRequest) (overtime.OvertimeResponse, error) {
	return f.execute("End", req, overtime.StatusCompleted)
}

func (f *fakeOvertimeService) Get(ctx context.Context, id string) (overtime.OvertimeResponse, error) {
	f.record("Get")
	if f.err != nil {
		return overtime.OvertimeResponse{}, f.err
	}
	return f.response(id, overtime.StatusPending), nil
}

func (f *fakeOvertimeService) ListMine(ctx context.Context, filter overtime.MyOvertimeFilter) (overtime.ListOvertimeResponse, error) {
	f.record("ListMine")
	f.mine = filter
	return overtime.ListOvertimeResponse{Overtimes: []overtime.OvertimeResponse{}}, f.err
}

func (f *fakeOvertimeService) List(ctx context.Context, filter overtime.OvertimeFilter) (overtime.ListOvertimeResponse, error) {
	f.record("List")
	f.listed = filter
	return overtime.ListOvertimeResponse{Overtimes: []overtime.OvertimeResponse{}}, f.err
}

func (f *fakeOvertimeService) GetSettings(ctx context.Context) (settings.OvertimeOptionsResponse, error) {
	f.record("GetSettings")
	return settings.OvertimeOptionsResponse{}, f.err
}

type fakeNotificationService struct {
	events  chan notification.SSEEvent
	marked  notification.MarkAsReadRequest
	userIDs []string
}

func (f *fakeNotificationService) QueueNotification(ctx context.Context, req notification.CreateNotificationRequest) error {
	return nil
}

func (f *fakeNotificationService) QueueBulkNotification(ctx context.Context, reqs []notification.CreateNotificationRequest) error {
	return nil
}

func (f *fakeNotificationService) GetNotifications(ctx context.Context, userID string, page, pageSize int, unreadOnly bool) (*notification.NotificationListResponse, error) {
	f.userIDs = append(f.userIDs, userID)
	return &notification.NotificationListResponse{Notifications: []notification.NotificationResponse{}, Page: page, PageSize: pageSize}, nil
}

func (f *fakeNotificationService) GetUnreadCount(ctx context.Context, userID string) (int, error) {
	return 3, nil
}

func (f *fakeNotificationService) MarkAsRead(ctx context.Context, userID string, req notification.MarkAsReadRequest) error {
	f.marked = req
	return req.Validate()
}

func (f *fakeNotificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return nil
}

func (f *fakeNotificationService) Subscribe(ctx context.Context, userID string) (<-chan notification.SSEEvent, func()) {
	f.userIDs = append(f.userIDs, userID)
	return f.events, func() {}
}

func (f *fakeNotificationService) Stop() {}

type testEnv struct {
	router  *chi.Mux
	jwt     jwt.Service
	ot      *fakeOvertimeService
	notif   *fakeNotificationService
	handler *notificationHandlerImpl
}

func newTestEnv(t *testing.T, store *idempotency.Store) *testEnv {
	t.Helper()

	jwtService, err := jwt.NewJWTService(handlerTestSecret, "1h")
	require.NoError(t, err)

	ot := newFakeOvertimeService()
	notif := &fakeNotificationService{events: make(chan notification.SSEEvent, 4)}
	nh := NewNotificationHandler(notif, jwtService).(*notificationHandlerImpl)

	router := NewRouter(RouterConfig{
		Env:            "test",
		AllowedOrigins: []string{"http://localhost:3000"},
		Idempotency:    store,
	}, jwtService, NewOvertimeHandler(ot), nh)

	return &testEnv{router: router, jwt: jwtService, ot: ot, notif: notif, handler: nh}
}

func (e *testEnv) token(t *testing.T, role user.Role) string {
	t.Helper()
	employeeID, companyID := "emp-1", "company-1"
	userID := "user-1"
	if role.CanApprove() {
		employeeID, userID = "emp-9", "manager-1"
	}
	token, _, err := e.jwt.GenerateAccessToken(userID, &employeeID, &companyID, role)
	require.NoError(t, err)
	return token
}
