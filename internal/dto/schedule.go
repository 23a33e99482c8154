package dto

import "github.com/campushq/schedule-api/internal/timegrid"

// LayoutBlock is one positioned entry in the rendered week grid.
type LayoutBlock struct {
	EntryID     string       `json:"entry_id"`
	GroupID     string       `json:"group_id,omitempty"`
	GroupCode   string       `json:"group_code,omitempty"`
	Day         string       `json:"day"`
	StartTime   string       `json:"start_time"`
	EndTime     string       `json:"end_time"`
	SubjectName string       `json:"subject_name"`
	TeacherName string       `json:"teacher_name"`
	RoomName    string       `json:"room_name,omitempty"`
	Remote      bool         `json:"remote"`
	Box         timegrid.Box `json:"box"`
	FillColor   string       `json:"fill_color"`
	BorderColor string       `json:"border_color"`
}

// ScheduleLayout is the full grid geometry for one week view: the day
// columns, the time axis labels, and the positioned blocks.
type ScheduleLayout struct {
	Days       []string      `json:"days"`
	SlotLabels []string      `json:"slot_labels"`
	TotalSlots int           `json:"total_slots"`
	Blocks     []LayoutBlock `json:"blocks"`
}
