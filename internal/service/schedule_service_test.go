package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

func cloneSchedule(s *models.Schedule) *models.Schedule {
	cp := *s
	cp.WeekShifts = s.WeekShifts.Clone()
	return &cp
}

type fakeScheduleRepo struct {
	schedules    map[int]*models.Schedule
	fieldUpdates []map[string]any
}

func newFakeScheduleRepo() *fakeScheduleRepo {
	return &fakeScheduleRepo{schedules: map[int]*models.Schedule{}}
}

func (f *fakeScheduleRepo) ReplaceActive(ctx context.Context, schedule *models.Schedule) error {
	f.schedules = map[int]*models.Schedule{schedule.ScheduleID: cloneSchedule(schedule)}
	return nil
}

func (f *fakeScheduleRepo) FindByID(ctx context.Context, id int) (*models.Schedule, error) {
	stored, ok := f.schedules[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return cloneSchedule(stored), nil
}

func (f *fakeScheduleRepo) FindLatest(ctx context.Context) (*models.Schedule, error) {
	id, err := f.LatestID(context.Background())
	if err != nil {
		return nil, err
	}
	return f.FindByID(ctx, id)
}

func (f *fakeScheduleRepo) LatestID(ctx context.Context) (int, error) {
	latest := 0
	for id := range f.schedules {
		if id > latest {
			latest = id
		}
	}
	if latest == 0 {
		return 0, sql.ErrNoRows
	}
	return latest, nil
}

func (f *fakeScheduleRepo) Update(ctx context.Context, schedule *models.Schedule) error {
	if _, ok := f.schedules[schedule.ScheduleID]; !ok {
		return sql.ErrNoRows
	}
	f.schedules[schedule.ScheduleID] = cloneSchedule(schedule)
	return nil
}

func (f *fakeScheduleRepo) UpdateFields(ctx context.Context, id int, fields map[string]any) error {
	if _, ok := f.schedules[id]; !ok {
		return sql.ErrNoRows
	}
	f.fieldUpdates = append(f.fieldUpdates, fields)
	stored := f.schedules[id]
	for column, value := range fields {
		switch column {
		case "start_interval_time":
			stored.Start = value.(string)
		case "end_interval_time":
			stored.End = value.(string)
		case "shift_duration":
			stored.SlotDuration = value.(int)
		default:
			for _, day := range models.Weekdays {
				if day.Name() == column {
					stored.SetDay(day, value.([]models.Shift))
				}
			}
		}
	}
	return nil
}

type fakeRoster struct {
	tas       []models.TA
	prefs     map[string][]models.PreferenceEntry
	confirmed map[string][]string
}

func newFakeRoster(tas ...models.TA) *fakeRoster {
	return &fakeRoster{
		tas:       tas,
		prefs:     map[string][]models.PreferenceEntry{},
		confirmed: map[string][]string{},
	}
}

func (f *fakeRoster) List(ctx context.Context) ([]models.TA, error) {
	out := make([]models.TA, len(f.tas))
	copy(out, f.tas)
	return out, nil
}

func (f *fakeRoster) UpdatePreferences(ctx context.Context, taID string, prefs []models.PreferenceEntry) error {
	f.prefs[taID] = prefs
	return nil
}

func (f *fakeRoster) UpdateConfirmedShifts(ctx context.Context, taID string, shiftIDs []string) error {
	f.confirmed[taID] = shiftIDs
	return nil
}

type fakeRunner struct {
	result RunResult
	err    error
	onRun  func()
}

func (f *fakeRunner) Run(ctx context.Context) (RunResult, error) {
	if f.onRun != nil {
		f.onRun()
	}
	return f.result, f.err
}

type fakeCache struct {
	entries       map[int]*models.Schedule
	invalidations int
}

func newFakeCache() *fakeCache {
	return &fakeCache{entries: map[int]*models.Schedule{}}
}

func (f *fakeCache) GetSchedule(ctx context.Context, id int) (*models.Schedule, error) {
	if s, ok := f.entries[id]; ok {
		return cloneSchedule(s), nil
	}
	return nil, appErrors.Clone(appErrors.ErrCacheMiss, "miss")
}

func (f *fakeCache) SetSchedule(ctx context.Context, schedule *models.Schedule) error {
	f.entries[schedule.ScheduleID] = cloneSchedule(schedule)
	return nil
}

func (f *fakeCache) InvalidateSchedule(ctx context.Context, id int) error {
	delete(f.entries, id)
	f.invalidations++
	return nil
}

func populatedSchedule(t *testing.T, repo *fakeScheduleRepo) *models.Schedule {
	t.Helper()
	interval := models.WorkInterval{Start: "7:00", End: "10:00", SlotDuration: 90}
	schedule, err := GenerateSchedule(1, interval, models.Staffing{Count: 1})
	require.NoError(t, err)
	ApplyTemplate(schedule, map[string]models.ShiftRole{
		"m-7:00": models.ShiftRoleOfficeHours,
		"m-8:30": models.ShiftRoleOfficeHours,
	})
	schedule.State = models.ScheduleStatePopulated
	require.NoError(t, repo.ReplaceActive(context.Background(), schedule))
	return schedule
}

func TestScheduleServiceInit(t *testing.T) {
	repo := newFakeScheduleRepo()
	svc := NewScheduleService(repo, newFakeRoster(), nil, nil, nil, zap.NewNop())

	schedule, err := svc.Init(context.Background(), InitScheduleRequest{
		StartIntervalTime: "7:00",
		EndIntervalTime:   "00:00",
		ShiftDuration:     90,
		StaffingCapacity:  models.Staffing{MinRole: models.RoleOfficeHours, Count: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, schedule.ScheduleID)
	assert.Equal(t, models.ScheduleStateDrafted, schedule.State)
	assert.Len(t, schedule.Monday, 11)

	// A second init replaces the schedule and bumps the generation ID.
	again, err := svc.Init(context.Background(), InitScheduleRequest{
		StartIntervalTime: "9:00",
		EndIntervalTime:   "12:00",
		ShiftDuration:     60,
		StaffingCapacity:  models.Staffing{Count: 1},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, again.ScheduleID)
	assert.Len(t, repo.schedules, 1)
	_, err = repo.FindByID(context.Background(), 1)
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestScheduleServiceInitRejectsBadInterval(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleRepo(), newFakeRoster(), nil, nil, nil, zap.NewNop())

	_, err := svc.Init(context.Background(), InitScheduleRequest{
		StartIntervalTime: "7:00",
		EndIntervalTime:   "26:00",
		ShiftDuration:     90,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidInterval))
}

func TestScheduleServiceGetUsesCache(t *testing.T) {
	repo := newFakeScheduleRepo()
	cache := newFakeCache()
	populatedSchedule(t, repo)
	svc := NewScheduleService(repo, newFakeRoster(), cache, nil, nil, zap.NewNop())

	first, err := svc.Get(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, first.ScheduleID)
	assert.Contains(t, cache.entries, 1)

	// Mutate the repo behind the cache; the cached copy is served.
	repo.schedules[1].State = models.ScheduleStatePublished
	second, err := svc.Get(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatePopulated, second.State)
}

func TestScheduleServiceGetNotFound(t *testing.T) {
	svc := NewScheduleService(newFakeScheduleRepo(), newFakeRoster(), nil, nil, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), 0)
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrNotFound))
}

func TestScheduleServiceUpdateMergesFields(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	svc := NewScheduleService(repo, newFakeRoster(), nil, nil, nil, zap.NewNop())

	duration := 60
	updated, err := svc.Update(context.Background(), UpdateScheduleRequest{
		ScheduleID:    1,
		ShiftDuration: &duration,
	})
	require.NoError(t, err)
	assert.Equal(t, 60, updated.SlotDuration)
	// Untouched fields keep stored values.
	assert.Equal(t, "7:00", updated.Start)
	assert.Equal(t, "10:00", updated.End)

	require.Len(t, repo.fieldUpdates, 1)
	assert.Equal(t, map[string]any{"shift_duration": 60}, repo.fieldUpdates[0])
}

func TestScheduleServiceUpdateReplacesDayWholesale(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	svc := NewScheduleService(repo, newFakeRoster(), nil, nil, nil, zap.NewNop())

	monday := []models.Shift{{
		ID:        models.ShiftID{Day: models.Monday, Ordinal: 1},
		StartTime: "7:00",
		EndTime:   "8:30",
		Role:      models.ShiftRoleLab,
		Capacity:  models.Staffing{MinRole: models.RoleLabAssistant, Count: 3},
		Occupants: []string{},
	}}
	updated, err := svc.Update(context.Background(), UpdateScheduleRequest{
		ScheduleID: 1,
		Monday:     &monday,
	})
	require.NoError(t, err)
	assert.Len(t, updated.Monday, 1)
	// Other days untouched.
	assert.Len(t, updated.Tuesday, 2)
}

func TestScheduleServiceUpdateRejectsBrokenInterval(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	svc := NewScheduleService(repo, newFakeRoster(), nil, nil, nil, zap.NewNop())

	start := "26:00"
	_, err := svc.Update(context.Background(), UpdateScheduleRequest{
		ScheduleID:        1,
		StartIntervalTime: &start,
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrInvalidInterval))
	assert.Empty(t, repo.fieldUpdates)
}

func TestScheduleServiceApplyTemplateLifecycle(t *testing.T) {
	repo := newFakeScheduleRepo()
	interval := models.WorkInterval{Start: "7:00", End: "10:00", SlotDuration: 90}
	schedule, err := GenerateSchedule(1, interval, models.Staffing{Count: 1})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceActive(context.Background(), schedule))

	svc := NewScheduleService(repo, newFakeRoster(), nil, nil, nil, zap.NewNop())

	populated, err := svc.ApplyTemplate(context.Background(), ApplyTemplateRequest{
		ScheduleID: 1,
		SlotRoles:  map[string]models.ShiftRole{"m-7:00": models.ShiftRoleLab},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatePopulated, populated.State)

	// Published schedules cannot be re-templated.
	repo.schedules[1].State = models.ScheduleStatePublished
	_, err = svc.ApplyTemplate(context.Background(), ApplyTemplateRequest{
		ScheduleID: 1,
		SlotRoles:  map[string]models.ShiftRole{"m-7:00": models.ShiftRoleLab},
	})
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIllegalTransition))
}

func TestScheduleServiceRunAlgorithmPublishes(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	roster := newFakeRoster(models.TA{TAID: "ta-001", RoleLevel: models.RoleOfficeHours})

	runner := &fakeRunner{
		result: RunResult{RunID: "run-1"},
		onRun: func() {
			// Simulate the algorithm writing occupants through the shared store.
			stored := repo.schedules[1]
			stored.Monday[0].Occupants = []string{"ta-001", "ta-001"}
		},
	}

	svc := NewScheduleService(repo, roster, nil, runner, nil, zap.NewNop())

	published, result, err := svc.RunAlgorithm(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "run-1", result.RunID)
	assert.Equal(t, models.ScheduleStatePublished, published.State)
	// Occupant sets are normalised on write-back.
	assert.Equal(t, []string{"ta-001"}, published.Monday[0].Occupants)
	assert.Equal(t, []string{"m1"}, roster.confirmed["ta-001"])

	stored, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatePublished, stored.State)
}

func TestScheduleServiceRunAlgorithmRequiresPopulated(t *testing.T) {
	repo := newFakeScheduleRepo()
	interval := models.WorkInterval{Start: "7:00", End: "10:00", SlotDuration: 90}
	schedule, err := GenerateSchedule(1, interval, models.Staffing{Count: 1})
	require.NoError(t, err)
	require.NoError(t, repo.ReplaceActive(context.Background(), schedule))

	svc := NewScheduleService(repo, newFakeRoster(), nil, &fakeRunner{}, nil, zap.NewNop())

	_, _, err = svc.RunAlgorithm(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrIllegalTransition))
}

func TestScheduleServiceRunAlgorithmRollsBackOnFailure(t *testing.T) {
	repo := newFakeScheduleRepo()
	original := populatedSchedule(t, repo)
	roster := newFakeRoster()

	runner := &fakeRunner{
		result: RunResult{RunID: "run-2", ExitCode: 1},
		err:    appErrors.Clone(appErrors.ErrDispatchFailure, "exit 1"),
		onRun: func() {
			repo.schedules[1].Monday[0].Occupants = []string{"ta-garbage"}
		},
	}

	svc := NewScheduleService(repo, roster, nil, runner, nil, zap.NewNop())

	_, result, err := svc.RunAlgorithm(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrDispatchFailure))
	assert.Equal(t, "run-2", result.RunID)

	stored, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatePopulated, stored.State)
	assert.Equal(t, original.Monday[0].Occupants, stored.Monday[0].Occupants)
}

func TestScheduleServiceRunAlgorithmRollsBackOnContractViolation(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	roster := newFakeRoster(models.TA{TAID: "ta-001", RoleLevel: models.RoleOfficeHours})

	runner := &fakeRunner{
		result: RunResult{RunID: "run-3"},
		onRun: func() {
			// Over capacity: two TAs on a count-1 shift.
			repo.schedules[1].Monday[0].Occupants = []string{"ta-001", "ta-002"}
		},
	}

	svc := NewScheduleService(repo, roster, nil, runner, nil, zap.NewNop())

	_, _, err := svc.RunAlgorithm(context.Background())
	require.Error(t, err)
	assert.True(t, appErrors.HasCode(err, appErrors.ErrContractViolation))

	stored, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, models.ScheduleStatePopulated, stored.State)
	assert.Empty(t, stored.Monday[0].Occupants)
}

func TestScheduleServiceBuildAlgorithmPayload(t *testing.T) {
	repo := newFakeScheduleRepo()
	populatedSchedule(t, repo)
	roster := newFakeRoster(models.TA{
		TAID:      "ta-001",
		RoleLevel: models.RoleLabLead,
		Preferences: []models.PreferenceEntry{
			{TimeSlot: "m:7:00-8:30", Level: models.PreferencePreferred},
		},
	})

	svc := NewScheduleService(repo, roster, nil, nil, nil, zap.NewNop())

	payload, err := svc.BuildAlgorithmPayload(context.Background(), 0)
	require.NoError(t, err)
	assert.Equal(t, 1, payload.ScheduleID)
	assert.Len(t, payload.Shifts, 7*2)
	require.Len(t, payload.TAs, 1)
	assert.Len(t, payload.TAs[0].Preferences, 7*2)

	// Resolved preferences were persisted for the algorithm's side-channel read.
	stored := roster.prefs["ta-001"]
	require.Len(t, stored, 1)
	assert.Equal(t, "m1", stored[0].ShiftID)
}
