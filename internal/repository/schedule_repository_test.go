package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func sampleSchedule() *models.Schedule {
	schedule := &models.Schedule{
		ScheduleID: 1,
		WorkInterval: models.WorkInterval{
			Start:        "7:00",
			End:          "00:00",
			SlotDuration: 90,
		},
		State: models.ScheduleStateDrafted,
	}
	for _, day := range models.Weekdays {
		schedule.SetDay(day, []models.Shift{{
			ID:        models.ShiftID{Day: day, Ordinal: 1},
			StartTime: "7:00",
			EndTime:   "8:30",
			IsEmpty:   true,
			Capacity:  models.Staffing{Count: 1},
			Occupants: []string{},
		}})
	}
	return schedule
}

func scheduleRows(schedule *models.Schedule) *sqlmock.Rows {
	row, _ := newScheduleRow(schedule)
	return sqlmock.NewRows([]string{
		"schedule_id", "state", "start_interval_time", "end_interval_time", "shift_duration",
		"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday",
		"created_at", "updated_at",
	}).AddRow(
		row.ScheduleID, row.State, row.StartInterval, row.EndInterval, row.ShiftDuration,
		row.Monday, row.Tuesday, row.Wednesday, row.Thursday, row.Friday, row.Saturday, row.Sunday,
		time.Now(), time.Now(),
	)
}

func TestScheduleRepositoryReplaceActive(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	err := repo.ReplaceActive(context.Background(), sampleSchedule())
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryReplaceActiveRollsBackOnInsertFailure(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM schedules")).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WillReturnError(sql.ErrConnDone)
	mock.ExpectRollback()

	err := repo.ReplaceActive(context.Background(), sampleSchedule())
	require.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	schedule := sampleSchedule()
	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE schedule_id").
		WithArgs(1).
		WillReturnRows(scheduleRows(schedule))

	found, err := repo.FindByID(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, 1, found.ScheduleID)
	assert.Equal(t, "7:00", found.Start)
	require.Len(t, found.Monday, 1)
	assert.Equal(t, models.ShiftID{Day: models.Monday, Ordinal: 1}, found.Monday[0].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryFindByIDNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery("SELECT (.+) FROM schedules WHERE schedule_id").
		WithArgs(9).
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), 9)
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryLatestID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT schedule_id FROM schedules ORDER BY schedule_id DESC LIMIT 1")).
		WillReturnRows(sqlmock.NewRows([]string{"schedule_id"}).AddRow(4))

	id, err := repo.LatestID(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 4, id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateFields(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	monday := []models.Shift{{
		ID:        models.ShiftID{Day: models.Monday, Ordinal: 1},
		StartTime: "7:00",
		EndTime:   "8:30",
		Occupants: []string{},
	}}

	// Columns are applied in sorted order: monday, shift_duration, then updated_at.
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET monday = $1, shift_duration = $2, updated_at = $3 WHERE schedule_id = $4")).
		WithArgs(sqlmock.AnyArg(), 60, sqlmock.AnyArg(), 1).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateFields(context.Background(), 1, map[string]any{
		"shift_duration": 60,
		"monday":         monday,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryUpdateFieldsRejectsUnknownColumn(t *testing.T) {
	db, _, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	err := repo.UpdateFields(context.Background(), 1, map[string]any{"schedule_id": 9})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not updatable")
}

func TestScheduleRepositoryUpdateNotFound(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()
	repo := NewScheduleRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Update(context.Background(), sampleSchedule())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}
