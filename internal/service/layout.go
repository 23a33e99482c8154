package service

import (
	"context"

	"github.com/campushq/schedule-api/internal/dto"
	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/timegrid"
)

// GroupLayout positions a group's entries on the requested grid. Entries
// on an unrenderable day are skipped silently; malformed times clamp.
func (s *ScheduleService) GroupLayout(ctx context.Context, groupID string, grid timegrid.Grid) (*dto.ScheduleLayout, error) {
	group, err := s.GroupSchedule(ctx, groupID)
	if err != nil {
		return nil, err
	}

	layout := newScheduleLayout(grid)
	for _, entry := range group.Schedule {
		if block, ok := layoutBlock(entry, "", "", grid); ok {
			layout.Blocks = append(layout.Blocks, block)
		}
	}
	return layout, nil
}

// TeacherLayout positions every venue entry taught by one teacher, for
// the per-teacher weekly view.
func (s *ScheduleService) TeacherLayout(ctx context.Context, siteID, teacherID string, grid timegrid.Grid) (*dto.ScheduleLayout, error) {
	taught, err := s.TeacherSchedule(ctx, siteID, teacherID)
	if err != nil {
		return nil, err
	}

	layout := newScheduleLayout(grid)
	for _, entry := range taught {
		if block, ok := layoutBlock(entry.ScheduleEntry, entry.GroupID, entry.GroupCode, grid); ok {
			layout.Blocks = append(layout.Blocks, block)
		}
	}
	return layout, nil
}

func newScheduleLayout(grid timegrid.Grid) *dto.ScheduleLayout {
	return &dto.ScheduleLayout{
		Days:       timegrid.Days,
		SlotLabels: grid.SlotLabels(),
		TotalSlots: grid.TotalSlots(),
		Blocks:     []dto.LayoutBlock{},
	}
}

func layoutBlock(entry models.ScheduleEntry, groupID, groupCode string, grid timegrid.Grid) (dto.LayoutBlock, bool) {
	box, ok := grid.Layout(entry.Day, entry.StartTime, entry.EndTime)
	if !ok {
		return dto.LayoutBlock{}, false
	}
	return dto.LayoutBlock{
		EntryID:     entry.ID,
		GroupID:     groupID,
		GroupCode:   groupCode,
		Day:         entry.Day,
		StartTime:   entry.StartTime,
		EndTime:     entry.EndTime,
		SubjectName: entry.SubjectName,
		TeacherName: entry.TeacherName,
		RoomName:    entry.RoomName,
		Remote:      entry.Modality == models.ModalityRemote,
		Box:         box,
		FillColor:   timegrid.FillColor(entry.SubjectName),
		BorderColor: timegrid.BorderColor(entry.SubjectName),
	}, true
}
