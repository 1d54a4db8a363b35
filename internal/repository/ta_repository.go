package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
)

// TARepository persists the teaching-assistant roster. Preferences and
// confirmed shifts live as JSONB documents on the ta row.
type TARepository struct {
	db *sqlx.DB
}

// NewTARepository constructs the repository.
func NewTARepository(db *sqlx.DB) *TARepository {
	return &TARepository{db: db}
}

type taRow struct {
	TAID            string         `db:"ta_id"`
	FirstName       string         `db:"first_name"`
	LastName        string         `db:"last_name"`
	IsTF            bool           `db:"is_tf"`
	LabPerm         int            `db:"lab_perm"`
	Preferences     types.JSONText `db:"preferences"`
	ConfirmedShifts types.JSONText `db:"confirmed_shifts"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

const taColumns = `ta_id, first_name, last_name, is_tf, lab_perm, preferences, confirmed_shifts, created_at, updated_at`

func (r *taRow) toModel() (*models.TA, error) {
	ta := &models.TA{
		TAID:      r.TAID,
		FirstName: r.FirstName,
		LastName:  r.LastName,
		IsTF:      r.IsTF,
		RoleLevel: models.RoleLevel(r.LabPerm),
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
	}
	if len(r.Preferences) > 0 {
		if err := json.Unmarshal(r.Preferences, &ta.Preferences); err != nil {
			return nil, fmt.Errorf("unmarshal ta preferences: %w", err)
		}
	}
	if len(r.ConfirmedShifts) > 0 {
		if err := json.Unmarshal(r.ConfirmedShifts, &ta.ConfirmedShifts); err != nil {
			return nil, fmt.Errorf("unmarshal ta confirmed shifts: %w", err)
		}
	}
	return ta, nil
}

// List returns the full roster ordered by TA ID.
func (r *TARepository) List(ctx context.Context) ([]models.TA, error) {
	const query = `SELECT ` + taColumns + ` FROM tas ORDER BY ta_id ASC`
	var rows []taRow
	if err := r.db.SelectContext(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("list tas: %w", err)
	}
	tas := make([]models.TA, 0, len(rows))
	for i := range rows {
		ta, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		tas = append(tas, *ta)
	}
	return tas, nil
}

// FindByID loads one TA.
func (r *TARepository) FindByID(ctx context.Context, taID string) (*models.TA, error) {
	const query = `SELECT ` + taColumns + ` FROM tas WHERE ta_id = $1`
	var row taRow
	if err := r.db.GetContext(ctx, &row, query, taID); err != nil {
		return nil, err
	}
	return row.toModel()
}

// Upsert inserts a TA or updates identity fields and role level. Stored
// preferences and confirmed shifts are preserved on conflict.
func (r *TARepository) Upsert(ctx context.Context, ta *models.TA) error {
	now := time.Now().UTC()
	if ta.CreatedAt.IsZero() {
		ta.CreatedAt = now
	}
	ta.UpdatedAt = now

	prefs, err := marshalJSONB(ta.Preferences)
	if err != nil {
		return fmt.Errorf("marshal ta preferences: %w", err)
	}
	confirmed, err := marshalJSONB(ta.ConfirmedShifts)
	if err != nil {
		return fmt.Errorf("marshal ta confirmed shifts: %w", err)
	}

	row := &taRow{
		TAID:            ta.TAID,
		FirstName:       ta.FirstName,
		LastName:        ta.LastName,
		IsTF:            ta.IsTF,
		LabPerm:         int(ta.RoleLevel),
		Preferences:     prefs,
		ConfirmedShifts: confirmed,
		CreatedAt:       ta.CreatedAt,
		UpdatedAt:       ta.UpdatedAt,
	}

	const query = `
INSERT INTO tas (` + taColumns + `)
VALUES (:ta_id, :first_name, :last_name, :is_tf, :lab_perm, :preferences, :confirmed_shifts, :created_at, :updated_at)
ON CONFLICT (ta_id)
DO UPDATE SET first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
              is_tf = EXCLUDED.is_tf, lab_perm = EXCLUDED.lab_perm, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("upsert ta: %w", err)
	}
	return nil
}

// UpdatePreferences replaces a TA's stored preference list wholesale.
func (r *TARepository) UpdatePreferences(ctx context.Context, taID string, prefs []models.PreferenceEntry) error {
	data, err := marshalJSONB(prefs)
	if err != nil {
		return fmt.Errorf("marshal ta preferences: %w", err)
	}
	const query = `UPDATE tas SET preferences = $1, updated_at = $2 WHERE ta_id = $3`
	result, err := r.db.ExecContext(ctx, query, data, time.Now().UTC(), taID)
	if err != nil {
		return fmt.Errorf("update ta preferences: %w", err)
	}
	return requireOneRow(result, taID)
}

// UpdateConfirmedShifts replaces the shift list a TA ended up assigned to.
func (r *TARepository) UpdateConfirmedShifts(ctx context.Context, taID string, shiftIDs []string) error {
	data, err := marshalJSONB(shiftIDs)
	if err != nil {
		return fmt.Errorf("marshal ta confirmed shifts: %w", err)
	}
	const query = `UPDATE tas SET confirmed_shifts = $1, updated_at = $2 WHERE ta_id = $3`
	result, err := r.db.ExecContext(ctx, query, data, time.Now().UTC(), taID)
	if err != nil {
		return fmt.Errorf("update ta confirmed shifts: %w", err)
	}
	return requireOneRow(result, taID)
}

func marshalJSONB(v any) (types.JSONText, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(data) == "null" {
		data = []byte(`[]`)
	}
	return types.JSONText(data), nil
}

func requireOneRow(result interface{ RowsAffected() (int64, error) }, taID string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("ta rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("ta %s not found", taID)
	}
	return nil
}
