package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// Modality states whether an entry needs a physical room.
type Modality string

const (
	ModalityOnSite Modality = "ONSITE"
	ModalityRemote Modality = "REMOTE"
)

// ScheduleEntry is one weekly class occurrence owned by a single group.
// Site and room fields are populated iff the modality is on-site.
type ScheduleEntry struct {
	ID            string   `json:"id"`
	Day           string   `json:"day"`
	StartTime     string   `json:"start_time"`
	EndTime       string   `json:"end_time"`
	DurationHours float64  `json:"duration_hours"`
	SubjectID     string   `json:"subject_id"`
	SubjectName   string   `json:"subject_name"`
	TeacherID     string   `json:"teacher_id"`
	TeacherName   string   `json:"teacher_name"`
	Modality      Modality `json:"modality"`
	SiteID        string   `json:"site_id,omitempty"`
	SiteName      string   `json:"site_name,omitempty"`
	RoomID        string   `json:"room_id,omitempty"`
	RoomName      string   `json:"room_name,omitempty"`
}

// ScheduleEntries is the schedule document column of a group. The whole
// array is read and replaced as a unit.
type ScheduleEntries []ScheduleEntry

// Value marshals the entry set for storage.
func (s ScheduleEntries) Value() (driver.Value, error) {
	if s == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s)
}

// Scan unmarshals the stored entry set, treating NULL as empty.
func (s *ScheduleEntries) Scan(src interface{}) error {
	if src == nil {
		*s = ScheduleEntries{}
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("unsupported schedule column type %T", src)
	}
	if len(raw) == 0 {
		*s = ScheduleEntries{}
		return nil
	}
	return json.Unmarshal(raw, s)
}

// CandidateSlot describes the day/time window being edited, before the
// entry itself exists. EntryID is empty for new entries and set when an
// existing entry is being moved, so it never conflicts with itself.
type CandidateSlot struct {
	EntryID   string   `json:"entry_id,omitempty"`
	Day       string   `json:"day"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Modality  Modality `json:"modality"`
}

// RoomConflict describes an existing booking that blocks a room.
type RoomConflict struct {
	RoomID      string `json:"room_id"`
	GroupID     string `json:"group_id"`
	GroupCode   string `json:"group_code"`
	Day         string `json:"day"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	SubjectName string `json:"subject_name"`
}

// RoomOccupiedError is returned when a save races into an occupied room.
type RoomOccupiedError struct {
	Message  string       `json:"message"`
	Conflict RoomConflict `json:"conflict"`
}

// Error implements the error interface for occupancy errors.
func (e *RoomOccupiedError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return e.Message
}
