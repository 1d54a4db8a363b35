package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

type scheduleRepository interface {
	ReplaceActive(ctx context.Context, schedule *models.Schedule) error
	FindByID(ctx context.Context, id int) (*models.Schedule, error)
	FindLatest(ctx context.Context) (*models.Schedule, error)
	LatestID(ctx context.Context) (int, error)
	Update(ctx context.Context, schedule *models.Schedule) error
	UpdateFields(ctx context.Context, id int, fields map[string]any) error
}

type taRoster interface {
	List(ctx context.Context) ([]models.TA, error)
	UpdatePreferences(ctx context.Context, taID string, prefs []models.PreferenceEntry) error
	UpdateConfirmedShifts(ctx context.Context, taID string, shiftIDs []string) error
}

type scheduleCache interface {
	GetSchedule(ctx context.Context, id int) (*models.Schedule, error)
	SetSchedule(ctx context.Context, schedule *models.Schedule) error
	InvalidateSchedule(ctx context.Context, id int) error
}

// InitScheduleRequest creates a fresh schedule generation, replacing whatever
// schedule is currently active.
type InitScheduleRequest struct {
	StartIntervalTime string          `json:"start_interval_time" validate:"required"`
	EndIntervalTime   string          `json:"end_interval_time" validate:"required"`
	ShiftDuration     int             `json:"shift_duration" validate:"required,gt=0"`
	StaffingCapacity  models.Staffing `json:"staffing_capacity"`
}

// UpdateScheduleRequest merges changes into an existing schedule. Nil fields
// are left untouched; day arrays, when present, replace that day wholesale.
type UpdateScheduleRequest struct {
	ScheduleID        int             `json:"schedule_id" validate:"required,gt=0"`
	StartIntervalTime *string         `json:"start_interval_time,omitempty"`
	EndIntervalTime   *string         `json:"end_interval_time,omitempty"`
	ShiftDuration     *int            `json:"shift_duration,omitempty" validate:"omitempty,gt=0"`
	Monday            *[]models.Shift `json:"monday,omitempty"`
	Tuesday           *[]models.Shift `json:"tuesday,omitempty"`
	Wednesday         *[]models.Shift `json:"wednesday,omitempty"`
	Thursday          *[]models.Shift `json:"thursday,omitempty"`
	Friday            *[]models.Shift `json:"friday,omitempty"`
	Saturday          *[]models.Shift `json:"saturday,omitempty"`
	Sunday            *[]models.Shift `json:"sunday,omitempty"`
}

// ApplyTemplateRequest assigns role demand per slot. Keys are canonical slot
// keys ("m-7:00"); slots not listed become empty.
type ApplyTemplateRequest struct {
	ScheduleID int                         `json:"schedule_id" validate:"required,gt=0"`
	SlotRoles  map[string]models.ShiftRole `json:"slot_roles" validate:"required,dive,oneof=LAB OFFICE_HOURS"`
}

// ScheduleService owns the schedule lifecycle: generation, template demand,
// merge updates, the algorithm dispatch and publication.
type ScheduleService struct {
	repo      scheduleRepository
	tas       taRoster
	cache     scheduleCache
	runner    AlgorithmRunner
	validator *validator.Validate
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService. The cache may be nil when
// Redis is disabled.
func NewScheduleService(repo scheduleRepository, tas taRoster, cache scheduleCache, runner AlgorithmRunner, validate *validator.Validate, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, tas: tas, cache: cache, runner: runner, validator: validate, logger: logger}
}

// Init generates and activates a new schedule from the configured interval.
// The replacement is transactional: readers never observe a moment with no
// active schedule.
func (s *ScheduleService) Init(ctx context.Context, req InitScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	interval := models.WorkInterval{
		Start:        req.StartIntervalTime,
		End:          req.EndIntervalTime,
		SlotDuration: req.ShiftDuration,
	}
	staffing := req.StaffingCapacity
	if staffing.Count == 0 {
		staffing.Count = 1
	}

	latest, err := s.repo.LatestID(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read latest schedule id")
	}

	schedule, err := GenerateSchedule(latest+1, interval, staffing)
	if err != nil {
		return nil, err
	}

	if err := s.repo.ReplaceActive(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to activate schedule")
	}
	s.invalidate(ctx, schedule.ScheduleID)

	s.logger.Info("schedule initialised",
		zap.Int("schedule_id", schedule.ScheduleID),
		zap.String("start", interval.Start),
		zap.String("end", interval.End),
		zap.Int("shift_duration", interval.SlotDuration),
	)
	return schedule, nil
}

// Get returns a schedule by ID, or the latest one when id is zero. Reads go
// through the cache when one is configured.
func (s *ScheduleService) Get(ctx context.Context, id int) (*models.Schedule, error) {
	if id == 0 {
		latest, err := s.repo.LatestID(ctx)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "no schedule exists")
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read latest schedule id")
		}
		id = latest
	}

	if s.cache != nil {
		if cached, err := s.cache.GetSchedule(ctx, id); err == nil && cached != nil {
			return cached, nil
		}
	}

	schedule, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	if s.cache != nil {
		if err := s.cache.SetSchedule(ctx, schedule); err != nil {
			s.logger.Warn("schedule cache write failed", zap.Int("schedule_id", id), zap.Error(err))
		}
	}
	return schedule, nil
}

// LatestID returns the ID of the active schedule.
func (s *ScheduleService) LatestID(ctx context.Context) (int, error) {
	id, err := s.repo.LatestID(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, appErrors.Clone(appErrors.ErrNotFound, "no schedule exists")
		}
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read latest schedule id")
	}
	return id, nil
}

// Update merges the provided fields into an existing schedule. Fields left
// nil keep their stored values; supplied day arrays replace that weekday
// wholesale. An interval change is validated as a whole after the merge.
func (s *ScheduleService) Update(ctx context.Context, req UpdateScheduleRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.repo.FindByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %d not found", req.ScheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	fields := map[string]any{}
	if req.StartIntervalTime != nil {
		existing.Start = *req.StartIntervalTime
		fields["start_interval_time"] = *req.StartIntervalTime
	}
	if req.EndIntervalTime != nil {
		existing.End = *req.EndIntervalTime
		fields["end_interval_time"] = *req.EndIntervalTime
	}
	if req.ShiftDuration != nil {
		existing.SlotDuration = *req.ShiftDuration
		fields["shift_duration"] = *req.ShiftDuration
	}
	if len(fields) > 0 {
		if _, _, err := intervalBounds(existing.WorkInterval); err != nil {
			return nil, err
		}
	}

	for _, day := range models.Weekdays {
		if shifts := dayField(&req, day); shifts != nil {
			existing.SetDay(day, *shifts)
			fields[day.Name()] = *shifts
		}
	}

	if len(fields) == 0 {
		return existing, nil
	}

	if err := s.repo.UpdateFields(ctx, req.ScheduleID, fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.invalidate(ctx, req.ScheduleID)
	existing.UpdatedAt = time.Now().UTC()
	return existing, nil
}

// ApplyTemplate sets per-slot role demand and moves a drafted schedule to
// POPULATED. Re-templating a populated schedule is allowed; later states are
// not.
func (s *ScheduleService) ApplyTemplate(ctx context.Context, req ApplyTemplateRequest) (*models.Schedule, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid template payload")
	}

	schedule, err := s.repo.FindByID(ctx, req.ScheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %d not found", req.ScheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	switch schedule.State {
	case models.ScheduleStateDrafted, models.ScheduleStatePopulated:
	default:
		return nil, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("cannot apply template to schedule in state %s", schedule.State))
	}

	ApplyTemplate(schedule, req.SlotRoles)
	schedule.State = models.ScheduleStatePopulated

	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist template")
	}
	s.invalidate(ctx, schedule.ScheduleID)
	return schedule, nil
}

// BuildAlgorithmPayload assembles the full payload the assignment algorithm
// consumes and persists each TA's preference entries with resolved shift IDs
// as a side effect, so the algorithm can read them from the shared store.
func (s *ScheduleService) BuildAlgorithmPayload(ctx context.Context, scheduleID int) (*models.AssignmentRequest, error) {
	schedule, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	tas, err := s.tas.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tas")
	}

	for i := range tas {
		resolved := ResolvePreferences(schedule, tas[i].Preferences)
		if err := s.tas.UpdatePreferences(ctx, tas[i].TAID, resolved); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist resolved preferences")
		}
		tas[i].Preferences = resolved
	}

	request, err := BuildRequest(schedule, tas)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

// RunAlgorithm executes the full dispatch lifecycle on the active schedule:
// snapshot the shift state, mark the schedule DISPATCHED, run the external
// algorithm, validate what it wrote back through the shared store, and
// publish. Any failure restores the snapshot and returns the schedule to
// POPULATED.
func (s *ScheduleService) RunAlgorithm(ctx context.Context) (*models.Schedule, RunResult, error) {
	schedule, err := s.Get(ctx, 0)
	if err != nil {
		return nil, RunResult{}, err
	}
	if schedule.State != models.ScheduleStatePopulated {
		return nil, RunResult{}, appErrors.Clone(appErrors.ErrIllegalTransition,
			fmt.Sprintf("schedule %d is %s, dispatch requires POPULATED", schedule.ScheduleID, schedule.State))
	}

	snapshot := schedule.WeekShifts.Clone()

	schedule.State = models.ScheduleStateDispatched
	if err := s.repo.Update(ctx, schedule); err != nil {
		return nil, RunResult{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark schedule dispatched")
	}
	s.invalidate(ctx, schedule.ScheduleID)

	result, runErr := s.runner.Run(ctx)
	if runErr != nil {
		s.rollback(ctx, schedule.ScheduleID, snapshot, result.RunID)
		return nil, result, runErr
	}

	// The algorithm writes occupants into the shared store; reload to see
	// its result.
	updated, err := s.repo.FindByID(ctx, schedule.ScheduleID)
	if err != nil {
		s.rollback(ctx, schedule.ScheduleID, snapshot, result.RunID)
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload schedule after dispatch")
	}

	tas, err := s.tas.List(ctx)
	if err != nil {
		s.rollback(ctx, schedule.ScheduleID, snapshot, result.RunID)
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tas")
	}

	validated, err := ValidateAssignment(updated, tas)
	if err != nil {
		s.rollback(ctx, schedule.ScheduleID, snapshot, result.RunID)
		return nil, result, err
	}

	WriteBack(updated, validated)
	updated.State = models.ScheduleStatePublished
	if err := s.repo.Update(ctx, updated); err != nil {
		s.rollback(ctx, schedule.ScheduleID, snapshot, result.RunID)
		return nil, result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule")
	}

	confirmed := ConfirmedShiftsByTA(validated)
	for _, ta := range tas {
		if err := s.tas.UpdateConfirmedShifts(ctx, ta.TAID, confirmed[ta.TAID]); err != nil {
			s.logger.Warn("failed to record confirmed shifts",
				zap.String("ta_id", ta.TAID), zap.Error(err))
		}
	}

	s.invalidate(ctx, updated.ScheduleID)
	s.logger.Info("schedule published",
		zap.Int("schedule_id", updated.ScheduleID),
		zap.String("run_id", result.RunID),
		zap.Duration("duration", result.Duration),
	)
	return updated, result, nil
}

// rollback restores the pre-dispatch shift state and returns the schedule to
// POPULATED.
func (s *ScheduleService) rollback(ctx context.Context, scheduleID int, snapshot models.WeekShifts, runID string) {
	schedule, err := s.repo.FindByID(ctx, scheduleID)
	if err != nil {
		s.logger.Error("rollback failed to load schedule",
			zap.Int("schedule_id", scheduleID), zap.String("run_id", runID), zap.Error(err))
		return
	}
	schedule.WeekShifts = snapshot
	schedule.State = models.ScheduleStatePopulated
	if err := s.repo.Update(ctx, schedule); err != nil {
		s.logger.Error("rollback failed to restore schedule",
			zap.Int("schedule_id", scheduleID), zap.String("run_id", runID), zap.Error(err))
		return
	}
	s.invalidate(ctx, scheduleID)
	s.logger.Warn("dispatch rolled back",
		zap.Int("schedule_id", scheduleID), zap.String("run_id", runID))
}

func (s *ScheduleService) invalidate(ctx context.Context, id int) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateSchedule(ctx, id); err != nil {
		s.logger.Warn("schedule cache invalidation failed", zap.Int("schedule_id", id), zap.Error(err))
	}
}

func dayField(req *UpdateScheduleRequest, day models.Weekday) *[]models.Shift {
	switch day {
	case models.Monday:
		return req.Monday
	case models.Tuesday:
		return req.Tuesday
	case models.Wednesday:
		return req.Wednesday
	case models.Thursday:
		return req.Thursday
	case models.Friday:
		return req.Friday
	case models.Saturday:
		return req.Saturday
	case models.Sunday:
		return req.Sunday
	}
	return nil
}
