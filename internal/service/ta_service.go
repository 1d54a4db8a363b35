package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
)

type taRepository interface {
	List(ctx context.Context) ([]models.TA, error)
	FindByID(ctx context.Context, taID string) (*models.TA, error)
	Upsert(ctx context.Context, ta *models.TA) error
	UpdatePreferences(ctx context.Context, taID string, prefs []models.PreferenceEntry) error
}

type activeScheduleReader interface {
	FindLatest(ctx context.Context) (*models.Schedule, error)
}

// CreateTARequest registers a teaching assistant on the roster.
type CreateTARequest struct {
	TAID      string `json:"ta_id" validate:"required"`
	FirstName string `json:"first_name" validate:"required"`
	LastName  string `json:"last_name" validate:"required"`
	IsTF      bool   `json:"is_tf"`
	RoleLevel int    `json:"lab_perm" validate:"min=0,max=2"`
}

// SubmitPreferencesRequest replaces a TA's stored weekly preferences with the
// given wire-form strings ("<day>:<HH:MM>-<HH:MM>:<level>"). The submission
// is all-or-nothing: one bad entry rejects the whole batch.
type SubmitPreferencesRequest struct {
	TAID        string   `json:"ta_id" validate:"required"`
	Preferences []string `json:"preferences" validate:"required,min=1,dive,required"`
}

// TAService manages the TA roster and preference submissions.
type TAService struct {
	repo      taRepository
	schedules activeScheduleReader
	validator *validator.Validate
	logger    *zap.Logger
}

// NewTAService instantiates TAService.
func NewTAService(repo taRepository, schedules activeScheduleReader, validate *validator.Validate, logger *zap.Logger) *TAService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TAService{repo: repo, schedules: schedules, validator: validate, logger: logger}
}

// Create registers a TA. Re-creating an existing TA updates identity fields
// and role level but keeps stored preferences.
func (s *TAService) Create(ctx context.Context, req CreateTARequest) (*models.TA, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid ta payload")
	}

	ta := &models.TA{
		TAID:      req.TAID,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		IsTF:      req.IsTF,
		RoleLevel: models.RoleLevel(req.RoleLevel),
	}
	if err := s.repo.Upsert(ctx, ta); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save ta")
	}

	s.logger.Info("ta registered", zap.String("ta_id", ta.TAID), zap.Int("lab_perm", req.RoleLevel))
	return ta, nil
}

// Get returns one TA by ID.
func (s *TAService) Get(ctx context.Context, taID string) (*models.TA, error) {
	ta, err := s.repo.FindByID(ctx, taID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("ta %s not found", taID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ta")
	}
	return ta, nil
}

// List returns the full roster.
func (s *TAService) List(ctx context.Context) ([]models.TA, error) {
	tas, err := s.repo.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list tas")
	}
	return tas, nil
}

// SubmitPreferences decodes and stores a TA's weekly preferences, replacing
// any previous submission wholesale. Every entry must decode and, when an
// active schedule exists, line up with its slot grid; otherwise nothing is
// stored. Duplicate slots keep the last stated level.
func (s *TAService) SubmitPreferences(ctx context.Context, req SubmitPreferencesRequest) (*models.TA, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferences payload")
	}

	ta, err := s.repo.FindByID(ctx, req.TAID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("ta %s not found", req.TAID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load ta")
	}

	schedule, err := s.schedules.FindLatest(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active schedule")
	}

	decoded := make([]models.PreferenceEntry, 0, len(req.Preferences))
	bySlot := make(map[string]int, len(req.Preferences))
	for _, raw := range req.Preferences {
		entry, err := DecodePreference(raw)
		if err != nil {
			return nil, err
		}
		if schedule != nil {
			if err := ValidateAgainstGrid(entry, schedule.WorkInterval); err != nil {
				return nil, err
			}
		}
		if i, seen := bySlot[entry.TimeSlot]; seen {
			decoded[i] = entry
			continue
		}
		bySlot[entry.TimeSlot] = len(decoded)
		decoded = append(decoded, entry)
	}

	if schedule != nil {
		decoded = ResolvePreferences(schedule, decoded)
	}

	if err := s.repo.UpdatePreferences(ctx, req.TAID, decoded); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save preferences")
	}

	ta.Preferences = decoded
	s.logger.Info("preferences submitted",
		zap.String("ta_id", req.TAID),
		zap.Int("entries", len(decoded)),
	)
	return ta, nil
}
