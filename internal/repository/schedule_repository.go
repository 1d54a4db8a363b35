package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
)

// ScheduleRepository persists the weekly schedule document. The schedules
// table holds at most one row per generation; activation replaces all prior
// rows in one transaction.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

type scheduleRow struct {
	ScheduleID    int            `db:"schedule_id"`
	State         string         `db:"state"`
	StartInterval string         `db:"start_interval_time"`
	EndInterval   string         `db:"end_interval_time"`
	ShiftDuration int            `db:"shift_duration"`
	Monday        types.JSONText `db:"monday"`
	Tuesday       types.JSONText `db:"tuesday"`
	Wednesday     types.JSONText `db:"wednesday"`
	Thursday      types.JSONText `db:"thursday"`
	Friday        types.JSONText `db:"friday"`
	Saturday      types.JSONText `db:"saturday"`
	Sunday        types.JSONText `db:"sunday"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
}

const scheduleColumns = `schedule_id, state, start_interval_time, end_interval_time, shift_duration,
monday, tuesday, wednesday, thursday, friday, saturday, sunday, created_at, updated_at`

var scheduleDayColumns = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

var scheduleScalarColumns = map[string]bool{
	"state": true, "start_interval_time": true, "end_interval_time": true, "shift_duration": true,
}

func newScheduleRow(schedule *models.Schedule) (*scheduleRow, error) {
	row := &scheduleRow{
		ScheduleID:    schedule.ScheduleID,
		State:         string(schedule.State),
		StartInterval: schedule.Start,
		EndInterval:   schedule.End,
		ShiftDuration: schedule.SlotDuration,
		CreatedAt:     schedule.CreatedAt,
		UpdatedAt:     schedule.UpdatedAt,
	}
	for _, day := range models.Weekdays {
		shifts := schedule.Day(day)
		if shifts == nil {
			shifts = []models.Shift{}
		}
		data, err := json.Marshal(shifts)
		if err != nil {
			return nil, fmt.Errorf("marshal %s shifts: %w", day.Name(), err)
		}
		row.setDay(day, data)
	}
	return row, nil
}

func (r *scheduleRow) setDay(day models.Weekday, data types.JSONText) {
	switch day {
	case models.Monday:
		r.Monday = data
	case models.Tuesday:
		r.Tuesday = data
	case models.Wednesday:
		r.Wednesday = data
	case models.Thursday:
		r.Thursday = data
	case models.Friday:
		r.Friday = data
	case models.Saturday:
		r.Saturday = data
	case models.Sunday:
		r.Sunday = data
	}
}

func (r *scheduleRow) day(day models.Weekday) types.JSONText {
	switch day {
	case models.Monday:
		return r.Monday
	case models.Tuesday:
		return r.Tuesday
	case models.Wednesday:
		return r.Wednesday
	case models.Thursday:
		return r.Thursday
	case models.Friday:
		return r.Friday
	case models.Saturday:
		return r.Saturday
	case models.Sunday:
		return r.Sunday
	}
	return nil
}

func (r *scheduleRow) toModel() (*models.Schedule, error) {
	schedule := &models.Schedule{
		ScheduleID: r.ScheduleID,
		WorkInterval: models.WorkInterval{
			Start:        r.StartInterval,
			End:          r.EndInterval,
			SlotDuration: r.ShiftDuration,
		},
		State:     models.ScheduleState(r.State),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	for _, day := range models.Weekdays {
		data := r.day(day)
		if len(data) == 0 {
			schedule.SetDay(day, []models.Shift{})
			continue
		}
		var shifts []models.Shift
		if err := json.Unmarshal(data, &shifts); err != nil {
			return nil, fmt.Errorf("unmarshal %s shifts: %w", day.Name(), err)
		}
		schedule.SetDay(day, shifts)
	}
	return schedule, nil
}

// ReplaceActive activates a new schedule generation, removing every previous
// one in the same transaction so readers never see an empty table.
func (r *ScheduleRepository) ReplaceActive(ctx context.Context, schedule *models.Schedule) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now

	row, err := newScheduleRow(schedule)
	if err != nil {
		return err
	}

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schedule replace tx: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM schedules`); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("clear schedules: %w", err)
	}

	const insertQuery = `
INSERT INTO schedules (` + scheduleColumns + `)
VALUES (:schedule_id, :state, :start_interval_time, :end_interval_time, :shift_duration,
        :monday, :tuesday, :wednesday, :thursday, :friday, :saturday, :sunday, :created_at, :updated_at)`
	if _, err := tx.NamedExecContext(ctx, insertQuery, row); err != nil {
		_ = tx.Rollback()
		return fmt.Errorf("insert schedule: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schedule replace tx: %w", err)
	}
	return nil
}

// FindByID loads a schedule by its generation ID.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules WHERE schedule_id = $1`
	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// FindLatest loads the newest schedule generation.
func (r *ScheduleRepository) FindLatest(ctx context.Context) (*models.Schedule, error) {
	const query = `SELECT ` + scheduleColumns + ` FROM schedules ORDER BY schedule_id DESC LIMIT 1`
	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, query); err != nil {
		return nil, err
	}
	return row.toModel()
}

// LatestID returns the newest schedule generation ID.
func (r *ScheduleRepository) LatestID(ctx context.Context) (int, error) {
	const query = `SELECT schedule_id FROM schedules ORDER BY schedule_id DESC LIMIT 1`
	var id int
	if err := r.db.GetContext(ctx, &id, query); err != nil {
		return 0, err
	}
	return id, nil
}

// Update rewrites a schedule row in full.
func (r *ScheduleRepository) Update(ctx context.Context, schedule *models.Schedule) error {
	schedule.UpdatedAt = time.Now().UTC()
	row, err := newScheduleRow(schedule)
	if err != nil {
		return err
	}

	const query = `
UPDATE schedules
SET state = :state, start_interval_time = :start_interval_time, end_interval_time = :end_interval_time,
    shift_duration = :shift_duration, monday = :monday, tuesday = :tuesday, wednesday = :wednesday,
    thursday = :thursday, friday = :friday, saturday = :saturday, sunday = :sunday, updated_at = :updated_at
WHERE schedule_id = :schedule_id`
	result, err := r.db.NamedExecContext(ctx, query, row)
	if err != nil {
		return fmt.Errorf("update schedule: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %d not found", schedule.ScheduleID)
	}
	return nil
}

// UpdateFields applies a partial update: only whitelisted columns are
// touched, day arrays are marshalled to JSONB.
func (r *ScheduleRepository) UpdateFields(ctx context.Context, id int, fields map[string]any) error {
	if len(fields) == 0 {
		return nil
	}

	columns := make([]string, 0, len(fields))
	for column := range fields {
		columns = append(columns, column)
	}
	sort.Strings(columns)

	setClauses := make([]string, 0, len(fields)+1)
	args := make([]any, 0, len(fields)+2)
	idx := 1
	for _, column := range columns {
		value := fields[column]
		switch {
		case scheduleDayColumns[column]:
			shifts, ok := value.([]models.Shift)
			if !ok {
				return fmt.Errorf("column %s expects a shift array", column)
			}
			data, err := json.Marshal(shifts)
			if err != nil {
				return fmt.Errorf("marshal %s shifts: %w", column, err)
			}
			value = types.JSONText(data)
		case scheduleScalarColumns[column]:
		default:
			return fmt.Errorf("column %s is not updatable", column)
		}
		setClauses = append(setClauses, fmt.Sprintf("%s = $%d", column, idx))
		args = append(args, value)
		idx++
	}
	setClauses = append(setClauses, fmt.Sprintf("updated_at = $%d", idx))
	args = append(args, time.Now().UTC())
	idx++

	query := fmt.Sprintf(`UPDATE schedules SET %s WHERE schedule_id = $%d`, strings.Join(setClauses, ", "), idx)
	args = append(args, id)

	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update schedule fields: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("schedule %d not found", id)
	}
	return nil
}
