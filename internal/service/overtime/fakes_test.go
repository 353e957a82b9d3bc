package overtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-overtime-go/internal/service/file"
	"github.com/go-chi/jwtauth/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

const (
	testCompanyID  = "company-1"
	testEmployeeID = "employee-1"
	testUserID     = "user-1"
	testManagerID  = "manager-1"
)

var testAuth = jwtauth.New("HS256", []byte("test-secret"), nil)

func ctxAs(t *testing.T, userID, employeeID string, role user.Role) context.Context {
	t.Helper()
	claims := map[string]interface{}{
		"user_id":    userID,
		"company_id": testCompanyID,
		"role":       string(role),
	}
	if employeeID != "" {
		claims["employee_id"] = employeeID
	}
	_, tokenString, err := testAuth.Encode(claims)
	require.NoError(t, err)
	token, err := testAuth.Decode(tokenString)
	require.NoError(t, err)
	return jwtauth.NewContext(context.Background(), token, nil)
}

func employeeCtx(t *testing.T) context.Context {
	return ctxAs(t, testUserID, testEmployeeID, user.RoleEmployee)
}

func managerCtx(t *testing.T) context.Context {
	return ctxAs(t, testManagerID, "employee-manager", user.RoleManager)
}

// ---- transaction ----

type fakeTx struct{}

func (fakeTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// ---- overtime repository ----

type fakeOvertimeRepo struct {
	mu      sync.Mutex
	seq     int
	records map[string]overtime.Overtime
	logged  decimal.Decimal
	now     func() time.Time
}

func newFakeOvertimeRepo(now func() time.Time) *fakeOvertimeRepo {
	return &fakeOvertimeRepo{records: map[string]overtime.Overtime{}, now: now}
}

func (r *fakeOvertimeRepo) Create(ctx context.Context, o overtime.Overtime) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.seq++
	o.ID = fmt.Sprintf("ot-%d", r.seq)
	o.CreatedAt = r.now()
	o.UpdatedAt = o.CreatedAt
	r.records[o.ID] = o
	return o, nil
}

func (r *fakeOvertimeRepo) put(o overtime.Overtime) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records[o.ID] = o
}

func (r *fakeOvertimeRepo) get(id string) overtime.Overtime {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.records[id]
}

func (r *fakeOvertimeRepo) GetByID(ctx context.Context, id string, companyID string) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.CompanyID != companyID {
		return overtime.Overtime{}, overtime.ErrOvertimeNotFound
	}
	return o, nil
}

func (r *fakeOvertimeRepo) List(ctx context.Context, filter overtime.OvertimeFilter, companyID string) ([]overtime.Overtime, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []overtime.Overtime
	for _, o := range r.records {
		if o.CompanyID != companyID {
			continue
		}
		if filter.EmployeeID != nil && o.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && string(o.Status) != *filter.Status {
			continue
		}
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

func (r *fakeOvertimeRepo) SumLoggedHours(ctx context.Context, employeeID string, from, to time.Time) (decimal.Decimal, error) {
	return r.logged, nil
}

func (r *fakeOvertimeRepo) Approve(ctx context.Context, id, companyID string, patch overtime.ApprovalPatch) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.Status != overtime.StatusPending {
		return overtime.Overtime{}, overtime.ErrStaleState
	}
	applyApproval(&o, patch)
	o.Status = overtime.StatusApproved
	r.records[id] = o
	return o, nil
}

func (r *fakeOvertimeRepo) Reject(ctx context.Context, id, companyID, rejectedBy, reason string, at time.Time) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.Status != overtime.StatusPending {
		return overtime.Overtime{}, overtime.ErrStaleState
	}
	o.Status = overtime.StatusRejected
	o.RejectedBy = &rejectedBy
	o.RejectedAt = &at
	o.RejectionReason = &reason
	r.records[id] = o
	return o, nil
}

func (r *fakeOvertimeRepo) Cancel(ctx context.Context, id, companyID string, from overtime.Status, at time.Time) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.Status != from {
		return overtime.Overtime{}, overtime.ErrStaleState
	}
	o.Status = overtime.StatusCancelled
	o.CancelledAt = &at
	r.records[id] = o
	return o, nil
}

func (r *fakeOvertimeRepo) MarkStarted(ctx context.Context, id, companyID string, from overtime.Status, patch overtime.StartPatch) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.Status != from || o.ActualStart != nil {
		return overtime.Overtime{}, overtime.ErrStaleState
	}
	if patch.Approval != nil {
		applyApproval(&o, *patch.Approval)
	}
	o.Status = overtime.StatusInProgress
	o.ActualStart = &patch.ActualStart
	o.BeforePhotoURL = patch.BeforePhotoURL
	loc := patch.StartLocation
	o.StartLocation = &loc
	rate := patch.OTRate
	o.OTRate = &rate
	dayType := patch.OTType
	o.OTType = &dayType
	r.records[id] = o
	return o, nil
}

func (r *fakeOvertimeRepo) MarkCompleted(ctx context.Context, id, companyID string, patch overtime.EndPatch) (overtime.Overtime, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	o, ok := r.records[id]
	if !ok || o.Status != overtime.StatusInProgress || o.ActualEnd != nil {
		return overtime.Overtime{}, overtime.ErrStaleState
	}
	o.Status = overtime.StatusCompleted
	o.ActualEnd = &patch.ActualEnd
	o.AfterPhotoURL = patch.AfterPhotoURL
	loc := patch.EndLocation
	o.EndLocation = &loc
	hours := patch.ActualHours
	o.ActualHours = &hours
	o.Amount = patch.Amount
	r.records[id] = o
	return o, nil
}

func applyApproval(o *overtime.Overtime, p overtime.ApprovalPatch) {
	start, end, at := p.ApprovedStart, p.ApprovedEnd, p.ApprovedAt
	o.ApprovedStart = &start
	o.ApprovedEnd = &end
	o.ApprovedAt = &at
	o.ApprovedBy = p.ApprovedBy
}

// ---- collaborators ----

type fakeSettingsRepo struct {
	values map[string]string
}

func (f *fakeSettingsRepo) GetAll(ctx context.Context, companyID string, keys []string) (map[string]string, error) {
	out := make(map[string]string, len(f.values))
	for k, v := range f.values {
		out[k] = v
	}
	return out, nil
}

type fakeEmployeeRepo struct {
	employees map[string]employee.Employee
}

func (f *fakeEmployeeRepo) GetByID(ctx context.Context, id string, companyID string) (employee.Employee, error) {
	e, ok := f.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (f *fakeEmployeeRepo) GetApproverUserIDs(ctx context.Context, companyID string) ([]string, error) {
	return []string{testManagerID}, nil
}

type fakeScheduleRepo struct {
	active *schedule.ActiveSchedule
}

func (f *fakeScheduleRepo) GetActiveSchedule(ctx context.Context, employeeID string, date time.Time, companyID string) (schedule.ActiveSchedule, error) {
	if f.active == nil {
		return schedule.ActiveSchedule{}, schedule.ErrScheduleNotFound
	}
	return *f.active, nil
}

type fakeHolidayRepo struct {
	dates map[string]bool
}

func (f *fakeHolidayRepo) IsHoliday(ctx context.Context, companyID string, date time.Time) (bool, error) {
	return f.dates[date.Format("2006-01-02")], nil
}

type fakeDispatchRepo struct {
	mu     sync.Mutex
	events []dispatch.Event
}

func (f *fakeDispatchRepo) Insert(ctx context.Context, event dispatch.Event) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.events = append(f.events, event)
	return nil
}

func (f *fakeDispatchRepo) Claim(ctx context.Context, id string, lease time.Duration) (dispatch.Event, error) {
	return dispatch.Event{}, dispatch.ErrNotClaimed
}

func (f *fakeDispatchRepo) MarkHandlerDelivered(ctx context.Context, id string, handler string) error {
	return nil
}

func (f *fakeDispatchRepo) MarkDelivered(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (f *fakeDispatchRepo) MarkAttemptFailed(ctx context.Context, id string, errMsg string, maxAttempts int) (dispatch.Status, error) {
	return dispatch.StatusPending, nil
}

func (f *fakeDispatchRepo) ListReplayable(ctx context.Context, olderThan time.Time, limit int) ([]string, error) {
	return nil, nil
}

func (f *fakeDispatchRepo) PurgeDelivered(ctx context.Context, before time.Time) (int64, error) {
	return 0, nil
}

func (f *fakeDispatchRepo) types() []dispatch.EventType {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]dispatch.EventType, 0, len(f.events))
	for _, e := range f.events {
		out = append(out, e.EventType)
	}
	return out
}

type fakeDispatcher struct {
	enqueued []string
}

func (f *fakeDispatcher) Enqueue(eventID string) { f.enqueued = append(f.enqueued, eventID) }
func (f *fakeDispatcher) Replay(ctx context.Context) (int, error) { return 0, nil }
func (f *fakeDispatcher) Purge(ctx context.Context) (int64, error) { return 0, nil }
func (f *fakeDispatcher) Start() {}
func (f *fakeDispatcher) Stop() {}

type fakeFileService struct {
	uploads []string
	deleted []string
	failure error
}

func (f *fakeFileService) UploadOvertimeProof(ctx context.Context, employeeID string, date time.Time, r io.Reader, filename string, kind file.ProofKind) (string, error) {
	if f.failure != nil {
		return "", f.failure
	}
	key := fmt.Sprintf("overtime/%s/%s-%s.jpg", date.Format("2006-01-02"), employeeID, kind)
	f.uploads = append(f.uploads, key)
	return key, nil
}

func (f *fakeFileService) DeleteFile(ctx context.Context, key string) error {
	f.deleted = append(f.deleted, key)
	return nil
}

func (f *fakeFileService) GetFileURL(key string) string {
	return "http://files.test/" + key
}

var errStorageDown = errors.New("storage unavailable")

type nopFile struct {
	*bytes.Reader
}

func (nopFile) Close() error { return nil }

func photo() (multipart.File, *multipart.FileHeader) {
	data := []byte("fake-jpeg")
	return nopFile{bytes.NewReader(data)}, &multipart.FileHeader{Filename: "proof.jpg", Size: int64(len(data))}
}

// ---- harness ----

type harness struct {
	svc        *OvertimeServiceImpl
	clock      time.Time
	loc        *time.Location
	overtimes  *fakeOvertimeRepo
	settings   *fakeSettingsRepo
	employees  *fakeEmployeeRepo
	schedules  *fakeScheduleRepo
	holidays   *fakeHolidayRepo
	events     *fakeDispatchRepo
	dispatcher *fakeDispatcher
	files      *fakeFileService
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Bangkok")
	require.NoError(t, err)

	salary := decimal.NewFromInt(26000)
	userID := testUserID
	h := &harness{
		loc:   loc,
		clock: time.Date(2025, 1, 6, 12, 0, 0, 0, loc), // Monday
		settings: &fakeSettingsRepo{values: map[string]string{
			"days_per_month":     "26",
			"work_hours_per_day": "8",
		}},
		employees: &fakeEmployeeRepo{employees: map[string]employee.Employee{
			testEmployeeID: {
				ID:               testEmployeeID,
				UserID:           &userID,
				CompanyID:        testCompanyID,
				FullName:         "Somchai P.",
				EmploymentStatus: employee.EmploymentStatusActive,
				BaseSalary:       &salary,
			},
		}},
		schedules:  &fakeScheduleRepo{},
		holidays:   &fakeHolidayRepo{dates: map[string]bool{}},
		events:     &fakeDispatchRepo{},
		dispatcher: &fakeDispatcher{},
		files:      &fakeFileService{},
	}
	now := func() time.Time { return h.clock }
	h.overtimes = newFakeOvertimeRepo(now)

	h.svc = NewOvertimeService(fakeTx{}, h.overtimes, h.settings, h.employees, h.schedules,
		h.holidays, h.events, h.files, h.dispatcher).(*OvertimeServiceImpl)
	h.svc.now = now
	return h
}

func (h *harness) at(hour, minute int) time.Time {
	return time.Date(2025, 1, 6, hour, minute, 0, 0, h.loc)
}

// seedApproved stores an approved request for 18:00-20:00 on Monday 2025-01-06.
func (h *harness) seedApproved(id string) overtime.Overtime {
	start, end := h.at(18, 0), h.at(20, 0)
	approvedAt := h.at(9, 0)
	o := overtime.Overtime{
		ID:             id,
		CompanyID:      testCompanyID,
		EmployeeID:     testEmployeeID,
		RequestDate:    time.Date(2025, 1, 6, 0, 0, 0, 0, h.loc),
		RequestedStart: start,
		RequestedEnd:   end,
		Reason:         "release",
		Status:         overtime.StatusApproved,
		ApprovedStart:  &start,
		ApprovedEnd:    &end,
		ApprovedAt:     &approvedAt,
	}
	h.overtimes.put(o)
	return o
}

func (h *harness) seedPending(id string) overtime.Overtime {
	o := h.seedApproved(id)
	o.Status = overtime.StatusPending
	o.ApprovedStart, o.ApprovedEnd, o.ApprovedAt = nil, nil, nil
	h.overtimes.put(o)
	return o
}

func executionRequest(id string, withPhoto bool) overtime.ExecutionRequest {
	lat, lng := 13.7563, 100.5018
	req := overtime.ExecutionRequest{ID: id, Latitude: &lat, Longitude: &lng}
	if withPhoto {
		req.File, req.FileHeader = photo()
	}
	return req
}
