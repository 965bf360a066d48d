package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evan-hart/studyplan-api/internal/models"
	appErrors "github.com/evan-hart/studyplan-api/pkg/errors"
)

func TestExportServiceRenderCSV(t *testing.T) {
	svc := NewExportService(exportScheduleStub(), nil, nil, nil)

	payload, contentType, err := svc.Render(context.Background(), "tt-1", ExportCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", contentType)

	lines := strings.Split(strings.TrimSpace(string(payload)), "\n")
	require.Len(t, lines, 3, "header plus one row per session across sorted dates")
	assert.Equal(t, "Date,Start,Minutes,Subject,Topic,Type,Completed", lines[0])
	assert.Contains(t, lines[1], "2025-03-03")
	assert.Contains(t, lines[1], "Algebra")
	assert.Contains(t, lines[2], "2025-03-04")
}

func TestExportServiceRenderPDF(t *testing.T) {
	svc := NewExportService(exportScheduleStub(), nil, nil, nil)

	payload, contentType, err := svc.Render(context.Background(), "tt-1", ExportPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(payload), "%PDF"))
}

func TestExportServiceRejectsUnknownFormat(t *testing.T) {
	svc := NewExportService(exportScheduleStub(), nil, nil, nil)

	_, _, err := svc.Render(context.Background(), "tt-1", ExportFormat("xlsx"))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestExportServicePropagatesScheduleErrors(t *testing.T) {
	svc := NewExportService(&scheduleReaderStub{err: appErrors.Clone(appErrors.ErrNotFound, "timetable not found")}, nil, nil, nil)

	_, _, err := svc.Render(context.Background(), "tt-1", ExportCSV)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

// --- Fixtures ---

type scheduleReaderStub struct {
	doc *ScheduleDocument
	err error
}

func (s *scheduleReaderStub) GetSchedule(context.Context, string) (*ScheduleDocument, error) {
	return s.doc, s.err
}

func exportScheduleStub() *scheduleReaderStub {
	return &scheduleReaderStub{doc: &ScheduleDocument{
		Version: 2,
		Schedule: models.ScheduleMap{
			"2025-03-04": {{ID: "b", Date: "2025-03-04", StartTime: "10:00", DurationMin: 30, Subject: "English", Topic: "Essay", Type: models.SessionHomework}},
			"2025-03-03": {{ID: "a", Date: "2025-03-03", StartTime: "09:00", DurationMin: 45, Subject: "Maths", Topic: "Algebra", Type: models.SessionRevision, Completed: true}},
		},
	}}
}
