package overtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/auth"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/dispatch"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/employee"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/holiday"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/overtime"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/schedule"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/settings"
	"github.com/cmlabs-hris/hris-overtime-go/internal/domain/user"
	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-overtime-go/internal/service/file"
	"github.com/google/uuid"
)

type OvertimeServiceImpl struct {
	db           database.TxManager
	overtimeRepo overtime.OvertimeRepository
	settingsRepo settings.SettingsRepository
	employeeRepo employee.EmployeeRepository
	scheduleRepo schedule.WorkScheduleRepository
	holidayRepo  holiday.HolidayRepository
	dispatchRepo dispatch.Repository
	fileService  file.FileService
	dispatcher   dispatch.Dispatcher
	now          func() time.Time
}

func NewOvertimeService(
	db database.TxManager,
	overtimeRepo overtime.OvertimeRepository,
	settingsRepo settings.SettingsRepository,
	employeeRepo employee.EmployeeRepository,
	scheduleRepo schedule.WorkScheduleRepository,
	holidayRepo holiday.HolidayRepository,
	dispatchRepo dispatch.Repository,
	fileService file.FileService,
	dispatcher dispatch.Dispatcher,
) overtime.OvertimeService {
	return &OvertimeServiceImpl{
		db:           db,
		overtimeRepo: overtimeRepo,
		settingsRepo: settingsRepo,
		employeeRepo: employeeRepo,
		scheduleRepo: scheduleRepo,
		holidayRepo:  holidayRepo,
		dispatchRepo: dispatchRepo,
		fileService:  fileService,
		dispatcher:   dispatcher,
		now:          time.Now,
	}
}

// Create implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Create(ctx context.Context, req overtime.CreateOvertimeRequest) (overtime.CreateOvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}
	if err := claims.RequireEmployee(); err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}

	emp, err := s.employeeRepo.GetByID(ctx, claims.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}
	if !emp.IsActive() {
		return overtime.CreateOvertimeResponse{}, employee.ErrEmployeeInactive
	}

	date, err := time.ParseInLocation("2006-01-02", req.Date, opts.Location)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, fmt.Errorf("invalid date: %w", err)
	}
	startClock, _ := settings.ParseClock(req.StartTime)
	endClock, _ := settings.ParseClock(req.EndTime)
	start, end, err := BuildWindow(date, startClock, endClock, opts.Location)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}

	workEnd, err := s.workEnd(ctx, emp.ID, date, claims.CompanyID, opts)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}

	dayFrom, dayTo, weekFrom, weekTo, monthFrom, monthTo := capPeriods(date)
	loggedDay, err := s.overtimeRepo.SumLoggedHours(ctx, emp.ID, dayFrom, dayTo)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, fmt.Errorf("failed to sum daily overtime: %w", err)
	}
	loggedWeek, err := s.overtimeRepo.SumLoggedHours(ctx, emp.ID, weekFrom, weekTo)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, fmt.Errorf("failed to sum weekly overtime: %w", err)
	}
	loggedMonth, err := s.overtimeRepo.SumLoggedHours(ctx, emp.ID, monthFrom, monthTo)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, fmt.Errorf("failed to sum monthly overtime: %w", err)
	}

	validation, err := ValidateRequest(RequestInput{
		Reason:      req.Reason,
		Start:       start,
		End:         end,
		WorkEnd:     workEnd,
		LoggedDay:   loggedDay,
		LoggedWeek:  loggedWeek,
		LoggedMonth: loggedMonth,
	}, opts)
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}

	now := s.now()
	newOT := overtime.Overtime{
		CompanyID:      claims.CompanyID,
		EmployeeID:     emp.ID,
		RequestDate:    date,
		RequestedStart: start,
		RequestedEnd:   end,
		Reason:         strings.TrimSpace(req.Reason),
		Status:         overtime.StatusPending,
	}
	eventType := dispatch.EventOvertimeRequested

	if !opts.RequireApproval || opts.AutoApprove {
		newOT.Status = overtime.StatusApproved
		newOT.ApprovedStart = &start
		newOT.ApprovedEnd = &end
		newOT.ApprovedAt = &now
		eventType = dispatch.EventOvertimeApproved
	}

	var created overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		created, err = s.overtimeRepo.Create(ctx, newOT)
		if err != nil {
			return fmt.Errorf("failed to create overtime request: %w", err)
		}

		eventID, err = s.recordEvent(ctx, eventType, created, emp, nil, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = &created.RequestedStart
			p.WindowEnd = &created.RequestedEnd
			hours := created.RequestedHours().StringFixed(2)
			p.Hours = &hours
			p.Reason = &created.Reason
		})
		return err
	})
	if err != nil {
		return overtime.CreateOvertimeResponse{}, err
	}
	s.enqueue(eventID)

	created.EmployeeName = &emp.FullName

	slog.Info("Overtime requested",
		"overtime_id", created.ID,
		"employee_id", emp.ID,
		"status", created.Status,
		"hours", validation.Hours.String(),
		"warnings", len(validation.Warnings),
	)

	return overtime.CreateOvertimeResponse{
		Overtime: mapOvertimeToResponse(created, opts.Location, s.fileService.GetFileURL),
		Warnings: validation.Warnings,
	}, nil
}

// Approve implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Approve(ctx context.Context, req overtime.ApproveOvertimeRequest) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, req.ID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := CheckDecision(ot); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	start, end := ot.RequestedStart, ot.RequestedEnd
	if req.HasOverride() {
		startClock, _ := settings.ParseClock(*req.StartTime)
		endClock, _ := settings.ParseClock(*req.EndTime)
		start, end, err = BuildWindow(ot.RequestDate, startClock, endClock, opts.Location)
		if err != nil {
			return overtime.OvertimeResponse{}, err
		}
	}

	emp, err := s.employeeRepo.GetByID(ctx, ot.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	now := s.now()
	approver := claims.UserID
	patch := overtime.ApprovalPatch{
		ApprovedStart: start,
		ApprovedEnd:   end,
		ApprovedBy:    &approver,
		ApprovedAt:    now,
	}

	var updated overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		updated, err = s.overtimeRepo.Approve(ctx, ot.ID, claims.CompanyID, patch)
		if err != nil {
			return stateError(err, overtime.ErrAlreadyProcessed)
		}

		eventID, err = s.recordEvent(ctx, dispatch.EventOvertimeApproved, updated, emp, &approver, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = &start
			p.WindowEnd = &end
			hours := WindowHours(start, end).StringFixed(2)
			p.Hours = &hours
		})
		return err
	})
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	s.enqueue(eventID)

	slog.Info("Overtime approved", "overtime_id", ot.ID, "approved_by", approver, "override", req.HasOverride())

	updated.EmployeeName = &emp.FullName
	return mapOvertimeToResponse(updated, opts.Location, s.fileService.GetFileURL), nil
}

// Reject implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Reject(ctx context.Context, req overtime.RejectOvertimeRequest) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, req.ID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := CheckDecision(ot); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	emp, err := s.employeeRepo.GetByID(ctx, ot.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	now := s.now()
	rejector := claims.UserID
	reason := strings.TrimSpace(req.Reason)

	var updated overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		updated, err = s.overtimeRepo.Reject(ctx, ot.ID, claims.CompanyID, rejector, reason, now)
		if err != nil {
			return stateError(err, overtime.ErrAlreadyProcessed)
		}

		eventID, err = s.recordEvent(ctx, dispatch.EventOvertimeRejected, updated, emp, &rejector, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = &updated.RequestedStart
			p.WindowEnd = &updated.RequestedEnd
			p.Reason = &reason
		})
		return err
	})
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	s.enqueue(eventID)

	slog.Info("Overtime rejected", "overtime_id", ot.ID, "rejected_by", rejector)

	updated.EmployeeName = &emp.FullName
	return mapOvertimeToResponse(updated, opts.Location, s.fileService.GetFileURL), nil
}

// Cancel implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Cancel(ctx context.Context, id string) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := claims.RequireEmployee(); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, id, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := CheckCancel(ot, claims.EmployeeID); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	emp, err := s.employeeRepo.GetByID(ctx, ot.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	now := s.now()
	actor := claims.UserID

	var updated overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		updated, err = s.overtimeRepo.Cancel(ctx, ot.ID, claims.CompanyID, ot.Status, now)
		if err != nil {
			return stateError(err, overtime.ErrAlreadyProcessed)
		}

		eventID, err = s.recordEvent(ctx, dispatch.EventOvertimeCancelled, updated, emp, &actor, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = &updated.RequestedStart
			p.WindowEnd = &updated.RequestedEnd
		})
		return err
	})
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	s.enqueue(eventID)

	slog.Info("Overtime cancelled", "overtime_id", ot.ID, "previous_status", ot.Status)

	updated.EmployeeName = &emp.FullName
	return mapOvertimeToResponse(updated, opts.Location, s.fileService.GetFileURL), nil
}

// Start implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Start(ctx context.Context, req overtime.ExecutionRequest) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := claims.RequireEmployee(); err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, req.ID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if ot.EmployeeID != claims.EmployeeID {
		return overtime.OvertimeResponse{}, overtime.ErrNotOwner
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	implicitApproval, err := CheckStart(ot, opts)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	if opts.RequireBeforePhoto && !req.HasPhoto() {
		return overtime.OvertimeResponse{}, overtime.ErrPhotoRequired
	}
	location := req.Location()
	if location == nil {
		return overtime.OvertimeResponse{}, overtime.ErrLocationRequired
	}

	emp, err := s.employeeRepo.GetByID(ctx, ot.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	isHoliday, err := s.holidayRepo.IsHoliday(ctx, claims.CompanyID, ot.RequestDate)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to check holiday: %w", err)
	}
	dayType, rate := ResolveRate(ot.RequestDate, isHoliday, opts)

	photoKey, err := s.uploadProof(ctx, ot, req, file.ProofBefore)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	now := s.now()
	patch := overtime.StartPatch{
		ActualStart:    now,
		BeforePhotoURL: photoKey,
		StartLocation:  *location,
		OTRate:         rate,
		OTType:         dayType,
	}
	if implicitApproval {
		patch.Approval = &overtime.ApprovalPatch{
			ApprovedStart: ot.RequestedStart,
			ApprovedEnd:   ot.RequestedEnd,
			ApprovedAt:    now,
		}
	}

	var updated overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		updated, err = s.overtimeRepo.MarkStarted(ctx, ot.ID, claims.CompanyID, ot.Status, patch)
		if err != nil {
			return stateError(err, overtime.ErrAlreadyStarted)
		}

		actor := claims.UserID
		eventID, err = s.recordEvent(ctx, dispatch.EventOvertimeStarted, updated, emp, &actor, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = &now
			p.WindowEnd = updated.ApprovedEnd
			rateStr := rate.String()
			p.OTRate = &rateStr
			typeStr := string(dayType)
			p.OTType = &typeStr
			p.Location = location
		})
		return err
	})
	if err != nil {
		s.discardProof(ctx, photoKey)
		return overtime.OvertimeResponse{}, err
	}
	s.enqueue(eventID)

	slog.Info("Overtime started",
		"overtime_id", ot.ID,
		"employee_id", ot.EmployeeID,
		"ot_type", dayType,
		"ot_rate", rate.String(),
		"implicit_approval", implicitApproval,
	)

	updated.EmployeeName = &emp.FullName
	return mapOvertimeToResponse(updated, opts.Location, s.fileService.GetFileURL), nil
}

// End implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) End(ctx context.Context, req overtime.ExecutionRequest) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := claims.RequireEmployee(); err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if err := req.Validate(); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, req.ID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if ot.EmployeeID != claims.EmployeeID {
		return overtime.OvertimeResponse{}, overtime.ErrNotOwner
	}
	if err := CheckEnd(ot); err != nil {
		return overtime.OvertimeResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	if opts.RequireAfterPhoto && !req.HasPhoto() {
		return overtime.OvertimeResponse{}, overtime.ErrPhotoRequired
	}
	location := req.Location()
	if location == nil {
		return overtime.OvertimeResponse{}, overtime.ErrLocationRequired
	}

	emp, err := s.employeeRepo.GetByID(ctx, ot.EmployeeID, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, fmt.Errorf("failed to get employee: %w", err)
	}

	photoKey, err := s.uploadProof(ctx, ot, req, file.ProofAfter)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	now := s.now()
	actualEnd := now
	if actualEnd.Before(*ot.ActualStart) {
		actualEnd = *ot.ActualStart
	}

	approvedEnd := ot.RequestedEnd
	if ot.ApprovedEnd != nil {
		approvedEnd = *ot.ApprovedEnd
	}

	// The rate frozen at Start is authoritative; current settings are not consulted.
	rate := opts.Rate1x
	if ot.OTRate != nil {
		rate = *ot.OTRate
	} else {
		slog.Warn("Started overtime has no frozen rate, using base rate", "overtime_id", ot.ID)
	}

	hours := ComputeHours(*ot.ActualStart, actualEnd, approvedEnd)
	amount := ComputeAmount(hours, rate, emp.BaseSalary, opts.WorkHoursPerDay, opts.DaysPerMonth)
	if amount == nil {
		slog.Info("Overtime amount not computed", "overtime_id", ot.ID, "employee_id", emp.ID, "reason", "no payable base salary")
	}

	patch := overtime.EndPatch{
		ActualEnd:     actualEnd,
		AfterPhotoURL: photoKey,
		EndLocation:   *location,
		ActualHours:   hours,
		Amount:        amount,
	}

	var updated overtime.Overtime
	var eventID string
	err = s.db.WithinTx(ctx, func(ctx context.Context) error {
		updated, err = s.overtimeRepo.MarkCompleted(ctx, ot.ID, claims.CompanyID, patch)
		if err != nil {
			return stateError(err, overtime.ErrAlreadyCompleted)
		}

		actor := claims.UserID
		eventID, err = s.recordEvent(ctx, dispatch.EventOvertimeEnded, updated, emp, &actor, opts, now, func(p *dispatch.OvertimePayload) {
			p.WindowStart = updated.ActualStart
			p.WindowEnd = &actualEnd
			hoursStr := hours.StringFixed(2)
			p.Hours = &hoursStr
			if amount != nil {
				amountStr := amount.StringFixed(2)
				p.Amount = &amountStr
			}
			rateStr := rate.String()
			p.OTRate = &rateStr
			if updated.OTType != nil {
				typeStr := string(*updated.OTType)
				p.OTType = &typeStr
			}
			p.Location = location
			p.StartLocation = updated.StartLocation
		})
		return err
	})
	if err != nil {
		s.discardProof(ctx, photoKey)
		return overtime.OvertimeResponse{}, err
	}
	s.enqueue(eventID)

	slog.Info("Overtime completed",
		"overtime_id", ot.ID,
		"employee_id", ot.EmployeeID,
		"hours", hours.StringFixed(2),
		"amount_computed", amount != nil,
	)

	updated.EmployeeName = &emp.FullName
	return mapOvertimeToResponse(updated, opts.Location, s.fileService.GetFileURL), nil
}

// Get implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) Get(ctx context.Context, id string) (overtime.OvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	ot, err := s.overtimeRepo.GetByID(ctx, id, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}
	if ot.EmployeeID != claims.EmployeeID && !user.HasPermission(claims.Role, user.PermissionOvertimeViewAll) {
		return overtime.OvertimeResponse{}, overtime.ErrNotOwner
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return overtime.OvertimeResponse{}, err
	}

	return mapOvertimeToResponse(ot, opts.Location, s.fileService.GetFileURL), nil
}

// ListMine implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) ListMine(ctx context.Context, filter overtime.MyOvertimeFilter) (overtime.ListOvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.ListOvertimeResponse{}, err
	}
	if err := claims.RequireEmployee(); err != nil {
		return overtime.ListOvertimeResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return overtime.ListOvertimeResponse{}, err
	}

	return s.list(ctx, filter.ToFilter(claims.EmployeeID), claims.CompanyID)
}

// List implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) List(ctx context.Context, filter overtime.OvertimeFilter) (overtime.ListOvertimeResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return overtime.ListOvertimeResponse{}, err
	}
	if err := filter.Validate(); err != nil {
		return overtime.ListOvertimeResponse{}, err
	}

	return s.list(ctx, filter, claims.CompanyID)
}

// GetSettings implements overtime.OvertimeService.
func (s *OvertimeServiceImpl) GetSettings(ctx context.Context) (settings.OvertimeOptionsResponse, error) {
	claims, err := auth.FromContext(ctx)
	if err != nil {
		return settings.OvertimeOptionsResponse{}, err
	}

	opts, err := s.loadOptions(ctx, claims.CompanyID)
	if err != nil {
		return settings.OvertimeOptionsResponse{}, err
	}
	return opts.ToResponse(), nil
}

func (s *OvertimeServiceImpl) list(ctx context.Context, filter overtime.OvertimeFilter, companyID string) (overtime.ListOvertimeResponse, error) {
	opts, err := s.loadOptions(ctx, companyID)
	if err != nil {
		return overtime.ListOvertimeResponse{}, err
	}

	overtimes, total, err := s.overtimeRepo.List(ctx, filter, companyID)
	if err != nil {
		return overtime.ListOvertimeResponse{}, fmt.Errorf("failed to list overtime requests: %w", err)
	}

	responses := make([]overtime.OvertimeResponse, 0, len(overtimes))
	for _, ot := range overtimes {
		responses = append(responses, mapOvertimeToResponse(ot, opts.Location, s.fileService.GetFileURL))
	}

	return buildListResponse(responses, total, filter.Page, filter.Limit), nil
}

func (s *OvertimeServiceImpl) loadOptions(ctx context.Context, companyID string) (settings.OvertimeOptions, error) {
	raw, err := s.settingsRepo.GetAll(ctx, companyID, settings.OvertimeKeys)
	if err != nil {
		return settings.OvertimeOptions{}, fmt.Errorf("failed to load overtime settings: %w", err)
	}
	return settings.ParseOvertimeOptions(raw), nil
}

// workEnd resolves when scheduled work ends on date, falling back to the company-wide
// work end time when the employee has no schedule for that day.
func (s *OvertimeServiceImpl) workEnd(ctx context.Context, employeeID string, date time.Time, companyID string, opts settings.OvertimeOptions) (time.Time, error) {
	active, err := s.scheduleRepo.GetActiveSchedule(ctx, employeeID, date, companyID)
	if err != nil {
		if errors.Is(err, schedule.ErrScheduleNotFound) {
			return opts.WorkEndTime.On(date, opts.Location), nil
		}
		return time.Time{}, fmt.Errorf("failed to get active schedule: %w", err)
	}
	return active.WorkEndOn(date, opts.Location), nil
}

// uploadProof stores the request photo, if any, and returns its storage key.
func (s *OvertimeServiceImpl) uploadProof(ctx context.Context, ot overtime.Overtime, req overtime.ExecutionRequest, kind file.ProofKind) (*string, error) {
	if !req.HasPhoto() {
		return nil, nil
	}
	key, err := s.fileService.UploadOvertimeProof(ctx, ot.EmployeeID, ot.RequestDate, req.File, req.FileHeader.Filename, kind)
	if err != nil {
		slog.Error("Failed to upload overtime proof", "overtime_id", ot.ID, "kind", kind, "error", err)
		return nil, fmt.Errorf("%w: %v", overtime.ErrPhotoUploadFailed, err)
	}
	return &key, nil
}

func (s *OvertimeServiceImpl) discardProof(ctx context.Context, key *string) {
	if key == nil {
		return
	}
	if err := s.fileService.DeleteFile(ctx, *key); err != nil {
		slog.Warn("Failed to delete orphaned overtime proof", "key", *key, "error", err)
	}
}

// recordEvent writes the outbox row for a transition inside the caller's transaction.
func (s *OvertimeServiceImpl) recordEvent(
	ctx context.Context,
	eventType dispatch.EventType,
	ot overtime.Overtime,
	emp employee.Employee,
	actor *string,
	opts settings.OvertimeOptions,
	at time.Time,
	fill func(*dispatch.OvertimePayload),
) (string, error) {
	payload := dispatch.OvertimePayload{
		OvertimeID:     ot.ID,
		EmployeeID:     ot.EmployeeID,
		EmployeeUserID: emp.UserID,
		EmployeeName:   emp.FullName,
		ActorUserID:    actor,
		RequestDate:    ot.RequestDate.Format("2006-01-02"),
		OccurredAt:     at,
		Timezone:       opts.Location.String(),
	}
	if fill != nil {
		fill(&payload)
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	event := dispatch.Event{
		ID:          uuid.New().String(),
		CompanyID:   ot.CompanyID,
		EventType:   eventType,
		AggregateID: ot.ID,
		Payload:     raw,
		Status:      dispatch.StatusPending,
		CreatedAt:   at,
		UpdatedAt:   at,
	}
	if err := s.dispatchRepo.Insert(ctx, event); err != nil {
		return "", fmt.Errorf("failed to record %s event: %w", eventType, err)
	}
	return event.ID, nil
}

func (s *OvertimeServiceImpl) enqueue(eventID string) {
	if s.dispatcher == nil || eventID == "" {
		return
	}
	s.dispatcher.Enqueue(eventID)
}

// stateError maps a lost conditional update to the caller-facing state error.
func stateError(err error, lost error) error {
	if errors.Is(err, overtime.ErrStaleState) {
		return lost
	}
	return err
}

var _ overtime.OvertimeService = (*OvertimeServiceImpl)(nil)
