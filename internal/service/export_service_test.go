package service

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/schedule-api/internal/models"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
)

func exportFixture(groups *groupStoreMock) *ExportService {
	return NewExportService(newScheduleFixture(groups, nil, nil), nil, nil, nil)
}

func TestGroupScheduleCSVOrdersByDayThenStart(t *testing.T) {
	group := testGroup()
	group.Schedule = models.ScheduleEntries{
		{ID: "h2", Day: "TUESDAY", StartTime: "08:00", EndTime: "09:00", SubjectName: "Physics", TeacherName: "Prof. Soto", Modality: models.ModalityOnSite, RoomName: "B200"},
		{ID: "h1", Day: "MONDAY", StartTime: "10:00", EndTime: "11:00", SubjectName: "Algebra", TeacherName: "Prof. Rivas", Modality: models.ModalityRemote},
		{ID: "h3", Day: "MONDAY", StartTime: "08:00", EndTime: "09:30", SubjectName: "History", TeacherName: "Prof. Vega", Modality: models.ModalityOnSite, RoomName: "A101"},
	}
	svc := exportFixture(&groupStoreMock{group: group})

	result, err := svc.GroupSchedule(context.Background(), "g1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "text/csv", result.ContentType)
	assert.Equal(t, "schedule-SYS-3A.csv", result.Filename)

	lines := strings.Split(strings.TrimSpace(string(result.Content)), "\n")
	require.Len(t, lines, 4, "header plus one row per entry")
	assert.Equal(t, "Day,Start,End,Subject,Teacher,Modality,Room", lines[0])
	assert.True(t, strings.HasPrefix(lines[1], "Monday,08:00,09:30,History"))
	assert.True(t, strings.HasPrefix(lines[2], "Monday,10:00,11:00,Algebra"))
	assert.True(t, strings.HasPrefix(lines[3], "Tuesday,08:00"))
	assert.Contains(t, lines[2], ",REMOTE,-", "remote entries export a dash for the room")
}

func TestGroupSchedulePDFRenders(t *testing.T) {
	group := testGroup()
	group.Schedule = models.ScheduleEntries{
		{ID: "h1", Day: "MONDAY", StartTime: "10:00", EndTime: "11:00", SubjectName: "Algebra", TeacherName: "Prof. Rivas", Modality: models.ModalityOnSite, RoomName: "A101"},
	}
	svc := exportFixture(&groupStoreMock{group: group})

	result, err := svc.GroupSchedule(context.Background(), "g1", FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", result.ContentType)
	assert.True(t, strings.HasPrefix(string(result.Content), "%PDF"))
}

func TestTeacherScheduleExportUsesTeacherName(t *testing.T) {
	entry := venueEntry("h1", "g1", "MONDAY", "09:00", "11:00", "A101")
	entry.TeacherID = "t-1"
	entry.TeacherName = "Prof. Rivas"
	svc := exportFixture(&groupStoreMock{view: []models.VenueEntry{entry}})

	result, err := svc.TeacherSchedule(context.Background(), "site-1", "t-1", FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, "schedule-teacher-t-1.csv", result.Filename)
	assert.Contains(t, string(result.Content), "Prof. Rivas")
}

func TestExportRejectsUnknownFormat(t *testing.T) {
	svc := exportFixture(&groupStoreMock{group: testGroup()})

	_, err := svc.GroupSchedule(context.Background(), "g1", ExportFormat("xlsx"))
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}
