package service

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"go.uber.org/zap"

	"github.com/evan-hart/studyplan-api/internal/models"
	appErrors "github.com/evan-hart/studyplan-api/pkg/errors"
	"github.com/evan-hart/studyplan-api/pkg/export"
)

// ExportFormat selects an export rendering.
type ExportFormat string

const (
	ExportCSV ExportFormat = "csv"
	ExportPDF ExportFormat = "pdf"
)

type scheduleReader interface {
	GetSchedule(ctx context.Context, timetableID string) (*ScheduleDocument, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportService renders a stored schedule as a downloadable document.
type ExportService struct {
	schedules scheduleReader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService.
func NewExportService(schedules scheduleReader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	return &ExportService{schedules: schedules, csv: csv, pdf: pdf, logger: logger}
}

var exportHeaders = []string{"Date", "Start", "Minutes", "Subject", "Topic", "Type", "Completed"}

// Render produces the export payload and its content type.
func (s *ExportService) Render(ctx context.Context, timetableID string, format ExportFormat) ([]byte, string, error) {
	doc, err := s.schedules.GetSchedule(ctx, timetableID)
	if err != nil {
		return nil, "", err
	}

	dataset := buildScheduleDataset(doc.Schedule)

	switch format {
	case ExportCSV:
		payload, err := s.csv.Render(dataset)
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return payload, "text/csv", nil
	case ExportPDF:
		payload, err := s.pdf.Render(dataset, fmt.Sprintf("Study plan %s", timetableID))
		if err != nil {
			return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return payload, "application/pdf", nil
	default:
		return nil, "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

func buildScheduleDataset(schedule models.ScheduleMap) export.Dataset {
	dates := make([]string, 0, len(schedule))
	for date := range schedule {
		dates = append(dates, date)
	}
	sort.Strings(dates)

	rows := make([]map[string]string, 0)
	for _, date := range dates {
		for _, sess := range schedule[date] {
			rows = append(rows, map[string]string{
				"Date":      date,
				"Start":     sess.StartTime,
				"Minutes":   strconv.Itoa(sess.DurationMin),
				"Subject":   sess.Subject,
				"Topic":     sess.Topic,
				"Type":      string(sess.Type),
				"Completed": strconv.FormatBool(sess.Completed),
			})
		}
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}
