package overtime

import (
	"context"
	"errors"
	"testing"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/validator"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreate(t *testing.T) {
	t.Run("pending request is stored and announced", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "20:00", Reason: "  quarterly close ",
		})
		require.NoError(t, err)

		assert.Equal(t, overtime.StatusPending, resp.Overtime.Status)
		assert.Equal(t, "2.00", resp.Overtime.RequestedHours)
		assert.Equal(t, "quarterly close", resp.Overtime.Reason)
		assert.Equal(t, "2025-01-06T18:00:00+07:00", resp.Overtime.RequestedStart)
		assert.Nil(t, resp.Overtime.ApprovedAt)
		assert.Empty(t, resp.Warnings)

		assert.Equal(t, []dispatch.EventType{dispatch.EventOvertimeRequested}, h.events.types())
		assert.Len(t, h.dispatcher.enqueued, 1)
		assert.Equal(t, h.events.events[0].ID, h.dispatcher.enqueued[0])
	})

	t.Run("end before start rolls over midnight", func(t *testing.T) {
		h := newHarness(t)
		h.settings.values[settings.KeyMaxHours] = "6"

		resp, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "22:00", EndTime: "01:30", Reason: "migration",
		})
		require.NoError(t, err)
		assert.Equal(t, "2025-01-07T01:30:00+07:00", resp.Overtime.RequestedEnd)
		assert.Equal(t, "3.50", resp.Overtime.RequestedHours)
	})

	t.Run("equal start and end is not a full day", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "18:00", Reason: "migration",
		})
		assert.ErrorIs(t, err, overtime.ErrInvalidWindow)
		assert.Empty(t, h.overtimes.records)
	})

	t.Run("half an hour is below the one hour minimum", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "18:30", Reason: "hotfix",
		})
		require.Error(t, err)
		assert.True(t, errors.Is(err, overtime.ErrMinDuration))

		var violation *overtime.RuleViolation
		require.True(t, errors.As(err, &violation))
		assert.Equal(t, overtime.CodeMinDuration, violation.Code)

		assert.Empty(t, h.overtimes.records)
		assert.Empty(t, h.events.events)
		assert.Empty(t, h.dispatcher.enqueued)
	})

	t.Run("missing reason", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "20:00", Reason: "   ",
		})
		assert.ErrorIs(t, err, overtime.ErrReasonRequired)
	})

	t.Run("malformed input is a validation error", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "06/01/2025", StartTime: "6pm", EndTime: "20:00", Reason: "x",
		})
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs))
		assert.Len(t, verrs, 2)
	})

	t.Run("start before the default work end", func(t *testing.T) {
		h := newHarness(t)

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "16:30", EndTime: "18:30", Reason: "audit",
		})
		assert.ErrorIs(t, err, overtime.ErrStartBeforeWorkEnd)
	})

	t.Run("early start buffer admits a slightly early start", func(t *testing.T) {
		h := newHarness(t)
		h.settings.values[settings.KeyEarlyStartBuffer] = "30"

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "16:30", EndTime: "18:30", Reason: "audit",
		})
		assert.NoError(t, err)
	})

	t.Run("employee schedule overrides the default work end", func(t *testing.T) {
		h := newHarness(t)
		h.schedules.active = &schedule.ActiveSchedule{
			ScheduleName: "Late shift",
			ClockIn:      settings.Clock{Hour: 11},
			ClockOut:     settings.Clock{Hour: 19},
		}

		_, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "20:00", Reason: "audit",
		})
		assert.ErrorIs(t, err, overtime.ErrStartBeforeWorkEnd)
	})

	t.Run("caps warn but still admit", func(t *testing.T) {
		h := newHarness(t)
		h.overtimes.logged = decimal.NewFromInt(3)

		resp, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "20:00", Reason: "audit",
		})
		require.NoError(t, err)
		require.Len(t, resp.Warnings, 1)
		assert.Equal(t, overtime.WarningDailyCap, resp.Warnings[0].Code)
		assert.Len(t, h.overtimes.records, 1)
	})

	t.Run("auto approve admits the request as approved", func(t *testing.T) {
		h := newHarness(t)
		h.settings.values[settings.KeyAutoApprove] = "true"

		resp, err := h.svc.Create(employeeCtx(t), overtime.CreateOvertimeRequest{
			Date: "2025-01-06", StartTime: "18:00", EndTime: "20:00", Reason: "audit",
		})
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusApproved, resp.Overtime.Status)
		assert.Nil(t, resp.Overtime.ApprovedBy)
		assert.Equal(t, resp.Overtime.RequestedEnd, *resp.Overtime.ApprovedEnd)
		assert.Equal(t, []dispatch.EventType{dispatch.EventOvertimeApproved}, h.events.types())
	})
}

func TestApproveAndReject(t *testing.T) {
	t.Run("approve copies the requested window", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")

		resp, err := h.svc.Approve(managerCtx(t), overtime.ApproveOvertimeRequest{ID: "ot-1"})
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusApproved, resp.Status)
		assert.Equal(t, "2025-01-06T20:00:00+07:00", *resp.ApprovedEnd)
		require.NotNil(t, resp.ApprovedBy)
		assert.Equal(t, testManagerID, *resp.ApprovedBy)
		assert.Equal(t, []dispatch.EventType{dispatch.EventOvertimeApproved}, h.events.types())
	})

	t.Run("approve with an override window", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")
		start, end := "18:30", "19:30"

		resp, err := h.svc.Approve(managerCtx(t), overtime.ApproveOvertimeRequest{ID: "ot-1", StartTime: &start, EndTime: &end})
		require.NoError(t, err)
		assert.Equal(t, "2025-01-06T18:30:00+07:00", *resp.ApprovedStart)
		assert.Equal(t, "2025-01-06T19:30:00+07:00", *resp.ApprovedEnd)
		assert.Equal(t, "2025-01-06T18:00:00+07:00", resp.RequestedStart)
	})

	t.Run("approved window is frozen", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		_, err := h.svc.Approve(managerCtx(t), overtime.ApproveOvertimeRequest{ID: "ot-1"})
		assert.ErrorIs(t, err, overtime.ErrAlreadyProcessed)
		assert.Empty(t, h.events.events)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")

		_, err := h.svc.Reject(managerCtx(t), overtime.RejectOvertimeRequest{ID: "ot-1"})
		var verrs validator.ValidationErrors
		assert.True(t, errors.As(err, &verrs))
	})

	t.Run("reject a pending request", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")

		resp, err := h.svc.Reject(managerCtx(t), overtime.RejectOvertimeRequest{ID: "ot-1", Reason: "no budget"})
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusRejected, resp.Status)
		assert.Equal(t, "no budget", *resp.RejectionReason)

		_, err = h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrNotApproved)
	})
}

func TestCancel(t *testing.T) {
	t.Run("owner cancels an approved request", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		resp, err := h.svc.Cancel(employeeCtx(t), "ot-1")
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusCancelled, resp.Status)
		assert.NotNil(t, resp.CancelledAt)
	})

	t.Run("another employee cannot cancel", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")

		_, err := h.svc.Cancel(managerCtx(t), "ot-1")
		assert.ErrorIs(t, err, overtime.ErrNotOwner)
	})

	t.Run("in progress cannot be cancelled", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.clock = h.at(18, 0)
		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)

		_, err = h.svc.Cancel(employeeCtx(t), "ot-1")
		assert.ErrorIs(t, err, overtime.ErrAlreadyProcessed)
		assert.Equal(t, overtime.StatusInProgress, h.overtimes.get("ot-1").Status)
	})
}

func TestStart(t *testing.T) {
	t.Run("freezes the workday rate", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.clock = h.at(18, 0)

		resp, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)

		assert.Equal(t, overtime.StatusInProgress, resp.Status)
		assert.Equal(t, "2025-01-06T18:00:00+07:00", *resp.ActualStart)
		assert.Equal(t, "1.50", *resp.OTRate)
		assert.Equal(t, overtime.DayTypeWorkday, *resp.OTType)
		assert.Equal(t, "http://files.test/overtime/2025-01-06/employee-1-before.jpg", *resp.BeforePhotoURL)
		require.NotNil(t, resp.StartLocation)
		assert.InDelta(t, 13.7563, resp.StartLocation.Latitude, 1e-9)
		assert.Equal(t, []dispatch.EventType{dispatch.EventOvertimeStarted}, h.events.types())
	})

	t.Run("holiday rate", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.holidays.dates["2025-01-06"] = true

		resp, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		assert.Equal(t, overtime.DayTypeHoliday, *resp.OTType)
		assert.Equal(t, "2.00", *resp.OTRate)
	})

	t.Run("not approved", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")
		h.settings.values[settings.KeyRequireApproval] = "true"
		h.settings.values[settings.KeyAutoApprove] = "false"

		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrNotApproved)
		assert.Equal(t, overtime.StatusPending, h.overtimes.get("ot-1").Status)
		assert.Empty(t, h.files.uploads)
	})

	t.Run("start approves implicitly when approval is not required", func(t *testing.T) {
		h := newHarness(t)
		h.seedPending("ot-1")
		h.settings.values[settings.KeyRequireApproval] = "false"

		resp, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusInProgress, resp.Status)
		assert.Nil(t, resp.ApprovedBy)
		assert.Equal(t, resp.RequestedEnd, *resp.ApprovedEnd)
	})

	t.Run("already started", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		_, err = h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrAlreadyStarted)
		assert.Len(t, h.events.events, 1)
	})

	t.Run("photo required", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", false))
		assert.ErrorIs(t, err, overtime.ErrPhotoRequired)
	})

	t.Run("photo optional when disabled", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.settings.values[settings.KeyRequireBeforePhoto] = "false"

		resp, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", false))
		require.NoError(t, err)
		assert.Nil(t, resp.BeforePhotoURL)
	})

	t.Run("location always required", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.settings.values[settings.KeyRequireBeforePhoto] = "false"
		req := executionRequest("ot-1", false)
		req.Longitude = nil

		_, err := h.svc.Start(employeeCtx(t), req)
		assert.ErrorIs(t, err, overtime.ErrLocationRequired)
	})

	t.Run("upload failure leaves the record untouched", func(t *testing.T) {
		h := newHarness(t)
		before := h.seedApproved("ot-1")
		h.files.failure = errStorageDown

		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrPhotoUploadFailed)
		assert.Equal(t, before, h.overtimes.get("ot-1"))
		assert.Empty(t, h.events.events)
	})

	t.Run("losing a concurrent start discards the photo", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		h.svc.overtimeRepo = staleStartRepo{h.overtimes}

		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrAlreadyStarted)
		assert.Equal(t, h.files.uploads, h.files.deleted)
		assert.Empty(t, h.dispatcher.enqueued)
	})

	t.Run("only the owner starts", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		_, err := h.svc.Start(managerCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrNotOwner)
	})
}

type staleStartRepo struct {
	*fakeOvertimeRepo
}

func (staleStartRepo) MarkStarted(ctx context.Context, id, companyID string, from overtime.Status, patch overtime.StartPatch) (overtime.Overtime, error) {
	return overtime.Overtime{}, overtime.ErrStaleState
}

func TestEnd(t *testing.T) {
	start := func(t *testing.T, h *harness) {
		t.Helper()
		h.seedApproved("ot-1")
		h.clock = h.at(18, 0)
		_, err := h.svc.Start(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
	}

	t.Run("computes hours and amount", func(t *testing.T) {
		h := newHarness(t)
		start(t, h)
		h.clock = h.at(20, 0)

		resp, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)

		assert.Equal(t, overtime.StatusCompleted, resp.Status)
		assert.Equal(t, "2.00", *resp.ActualHours)
		// 26000 / 26 / 8 = 125 per hour, 2h at 1.5x
		assert.Equal(t, "375.00", *resp.Amount)
		assert.Equal(t, []dispatch.EventType{dispatch.EventOvertimeStarted, dispatch.EventOvertimeEnded}, h.events.types())

		payload, err := h.events.events[1].DecodeOvertime()
		require.NoError(t, err)
		assert.Equal(t, "375.00", *payload.Amount)
		assert.NotNil(t, payload.StartLocation)
	})

	t.Run("rate frozen at start survives a settings change", func(t *testing.T) {
		h := newHarness(t)
		start(t, h)
		h.settings.values[settings.KeyRate1_5x] = "3"
		h.clock = h.at(20, 0)

		resp, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		assert.Equal(t, "1.50", *resp.OTRate)
		assert.Equal(t, overtime.DayTypeWorkday, *resp.OTType)
		assert.Equal(t, "375.00", *resp.Amount)
	})

	t.Run("time past the approved end is not paid", func(t *testing.T) {
		h := newHarness(t)
		start(t, h)
		h.clock = h.at(20, 30)

		resp, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		assert.Equal(t, "2025-01-06T20:30:00+07:00", *resp.ActualEnd)
		assert.Equal(t, "2.00", *resp.ActualHours)
		assert.Equal(t, "375.00", *resp.Amount)
	})

	t.Run("second end fails and changes nothing", func(t *testing.T) {
		h := newHarness(t)
		start(t, h)
		h.clock = h.at(20, 0)
		_, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		completed := h.overtimes.get("ot-1")

		h.clock = h.at(21, 0)
		_, err = h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrAlreadyCompleted)
		assert.Equal(t, completed, h.overtimes.get("ot-1"))
		assert.Len(t, h.events.events, 2)
	})

	t.Run("not started", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")

		_, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		assert.ErrorIs(t, err, overtime.ErrNotStarted)
	})

	t.Run("no salary means no amount", func(t *testing.T) {
		h := newHarness(t)
		emp := h.employees.employees[testEmployeeID]
		zero := decimal.Zero
		emp.BaseSalary = &zero
		h.employees.employees[testEmployeeID] = emp
		start(t, h)
		h.clock = h.at(19, 0)

		resp, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", true))
		require.NoError(t, err)
		assert.Equal(t, overtime.StatusCompleted, resp.Status)
		assert.Equal(t, "1.00", *resp.ActualHours)
		assert.Nil(t, resp.Amount)
	})

	t.Run("after photo required", func(t *testing.T) {
		h := newHarness(t)
		start(t, h)

		_, err := h.svc.End(employeeCtx(t), executionRequest("ot-1", false))
		assert.ErrorIs(t, err, overtime.ErrPhotoRequired)
		assert.Equal(t, overtime.StatusInProgress, h.overtimes.get("ot-1").Status)
	})
}

func TestReadOperations(t *testing.T) {
	t.Run("employees only see their own requests", func(t *testing.T) {
		h := newHarness(t)
		other := h.seedApproved("ot-2")
		other.EmployeeID = "employee-2"
		h.overtimes.put(other)

		_, err := h.svc.Get(employeeCtx(t), "ot-2")
		assert.ErrorIs(t, err, overtime.ErrNotOwner)

		resp, err := h.svc.Get(managerCtx(t), "ot-2")
		require.NoError(t, err)
		assert.Equal(t, "ot-2", resp.ID)
	})

	t.Run("list mine is scoped and paginated", func(t *testing.T) {
		h := newHarness(t)
		h.seedApproved("ot-1")
		other := h.seedApproved("ot-2")
		other.EmployeeID = "employee-2"
		h.overtimes.put(other)

		resp, err := h.svc.ListMine(employeeCtx(t), overtime.MyOvertimeFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(1), resp.TotalCount)
		assert.Equal(t, "1-1 of 1", resp.Showing)
		assert.Equal(t, 20, resp.Limit)

		all, err := h.svc.List(managerCtx(t), overtime.OvertimeFilter{})
		require.NoError(t, err)
		assert.Equal(t, int64(2), all.TotalCount)
	})

	t.Run("settings view", func(t *testing.T) {
		h := newHarness(t)

		resp, err := h.svc.GetSettings(employeeCtx(t))
		require.NoError(t, err)
		assert.Equal(t, "26", resp.DaysPerMonth)
		assert.Equal(t, "Asia/Bangkok", resp.Timezone)
		assert.Equal(t, []int{1, 2, 3, 4, 5}, resp.WorkingDays)
	})
}
