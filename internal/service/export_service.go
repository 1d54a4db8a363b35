package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/campus-hq/ta-scheduler-api/internal/models"
	appErrors "github.com/campus-hq/ta-scheduler-api/pkg/errors"
	"github.com/campus-hq/ta-scheduler-api/pkg/export"
)

// ExportFormat selects the rendered file type.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult is a rendered roster ready to be served as a download.
type ExportResult struct {
	FileName    string
	ContentType string
	Payload     []byte
}

// ExportService renders the published weekly roster as CSV or PDF.
type ExportService struct {
	schedules *ScheduleService
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(schedules *ScheduleService, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger}
}

// Generate renders the roster of the given schedule (latest when id is zero)
// in the requested format.
func (s *ExportService) Generate(ctx context.Context, scheduleID int, format ExportFormat) (*ExportResult, error) {
	schedule, err := s.schedules.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}

	dataset := buildRosterDataset(schedule)
	title := fmt.Sprintf("Weekly TA Roster - Schedule %d", schedule.ScheduleID)

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, title)
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render roster")
	}

	s.logger.Info("roster exported",
		zap.Int("schedule_id", schedule.ScheduleID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(payload)),
	)
	return &ExportResult{
		FileName:    fmt.Sprintf("roster-schedule-%d.%s", schedule.ScheduleID, format),
		ContentType: contentType,
		Payload:     payload,
	}, nil
}

// buildRosterDataset flattens a schedule into one row per shift.
func buildRosterDataset(schedule *models.Schedule) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"Day", "Shift", "Start", "End", "Role", "Capacity", "Assigned TAs"},
	}
	for _, day := range models.Weekdays {
		for _, shift := range schedule.Day(day) {
			if shift.IsEmpty {
				continue
			}
			dataset.Rows = append(dataset.Rows, map[string]string{
				"Day":          day.Name(),
				"Shift":        shift.ID.String(),
				"Start":        shift.StartTime,
				"End":          shift.EndTime,
				"Role":         string(shift.Role),
				"Capacity":     fmt.Sprintf("%d", shift.Capacity.Count),
				"Assigned TAs": strings.Join(shift.Occupants, ", "),
			})
		}
	}
	return dataset
}
