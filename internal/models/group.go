package models

import "time"

// Group is a student cohort enrolled in one career/cycle at one site. Its
// schedule is held as a single document column and always rewritten whole;
// the version column guards against concurrent edits.
type Group struct {
	ID          string          `db:"id" json:"id"`
	Code        string          `db:"code" json:"code"`
	SiteID      string          `db:"site_id" json:"site_id"`
	CareerID    string          `db:"career_id" json:"career_id"`
	CycleNumber int             `db:"cycle_number" json:"cycle_number"`
	Schedule    ScheduleEntries `db:"schedule" json:"schedule"`
	Version     int             `db:"version" json:"version"`
	CreatedAt   time.Time       `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `db:"updated_at" json:"updated_at"`
}

// GroupFilter describes query params for listing groups.
type GroupFilter struct {
	SiteID      string
	CareerID    string
	CycleNumber int
}

// VenueEntry is one schedule entry tagged with its owning group. It is a
// derived view over every group of a site, never persisted.
type VenueEntry struct {
	GroupID   string `json:"group_id"`
	GroupCode string `json:"group_code"`
	ScheduleEntry
}
