package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/timegrid"
	"github.com/campushq/schedule-api/pkg/export"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
)

// ExportFormat selects the download encoding.
type ExportFormat string

const (
	FormatCSV ExportFormat = "csv"
	FormatPDF ExportFormat = "pdf"
)

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered download.
type ExportResult struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ExportService renders weekly schedules into downloadable documents.
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

var exportHeaders = []string{"Day", "Start", "End", "Subject", "Teacher", "Modality", "Room"}

// GroupSchedule renders one group's weekly schedule.
func (s *ExportService) GroupSchedule(ctx context.Context, groupID string, format ExportFormat) (*ExportResult, error) {
	group, err := s.schedules.GroupSchedule(ctx, groupID)
	if err != nil {
		return nil, err
	}

	dataset := scheduleDataset(group.Schedule)
	title := fmt.Sprintf("Weekly schedule %s", group.Code)
	return s.render(dataset, title, fmt.Sprintf("schedule-%s", group.Code), format)
}

// TeacherSchedule renders one teacher's weekly schedule across a venue.
func (s *ExportService) TeacherSchedule(ctx context.Context, siteID, teacherID string, format ExportFormat) (*ExportResult, error) {
	taught, err := s.schedules.TeacherSchedule(ctx, siteID, teacherID)
	if err != nil {
		return nil, err
	}

	entries := make(models.ScheduleEntries, 0, len(taught))
	teacherName := teacherID
	for _, venueEntry := range taught {
		entries = append(entries, venueEntry.ScheduleEntry)
		if venueEntry.TeacherName != "" {
			teacherName = venueEntry.TeacherName
		}
	}

	dataset := scheduleDataset(entries)
	title := fmt.Sprintf("Weekly schedule %s", teacherName)
	return s.render(dataset, title, fmt.Sprintf("schedule-teacher-%s", teacherID), format)
}

func (s *ExportService) render(dataset export.Dataset, title, basename string, format ExportFormat) (*ExportResult, error) {
	switch format {
	case FormatCSV:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{Content: content, ContentType: "text/csv", Filename: basename + ".csv"}, nil
	case FormatPDF:
		content, err := s.pdf.Render(dataset, title)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{Content: content, ContentType: "application/pdf", Filename: basename + ".pdf"}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
}

// scheduleDataset flattens entries into the tabular export contract,
// ordered by day column then start time.
func scheduleDataset(entries models.ScheduleEntries) export.Dataset {
	sorted := make(models.ScheduleEntries, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		di, _ := timegrid.DayIndex(sorted[i].Day)
		dj, _ := timegrid.DayIndex(sorted[j].Day)
		if di != dj {
			return di < dj
		}
		return sorted[i].StartTime < sorted[j].StartTime
	})

	rows := make([]map[string]string, 0, len(sorted))
	for _, entry := range sorted {
		room := entry.RoomName
		if room == "" {
			room = entry.RoomID
		}
		if entry.Modality == models.ModalityRemote {
			room = "-"
		}
		rows = append(rows, map[string]string{
			"Day":      titleDay(entry.Day),
			"Start":    entry.StartTime,
			"End":      entry.EndTime,
			"Subject":  entry.SubjectName,
			"Teacher":  entry.TeacherName,
			"Modality": string(entry.Modality),
			"Room":     room,
		})
	}
	return export.Dataset{Headers: exportHeaders, Rows: rows}
}

func titleDay(day string) string {
	lower := strings.ToLower(strings.TrimSpace(day))
	if lower == "" {
		return lower
	}
	return strings.ToUpper(lower[:1]) + lower[1:]
}
