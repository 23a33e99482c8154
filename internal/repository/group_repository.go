package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campushq/schedule-api/internal/models"
)

// Sentinel errors surfaced by the schedule store; the service layer maps
// them onto the API error taxonomy.
var (
	// ErrVersionMismatch signals the group document changed between the
	// read and the conditional write.
	ErrVersionMismatch = errors.New("group schedule version mismatch")
	// ErrEntryMissing signals a delete/update referencing an id that is
	// no longer in the group's entry set.
	ErrEntryMissing = errors.New("schedule entry not found in group")
)

// GroupRepository is the schedule store adapter. A group's schedule is a
// JSONB document column that is always read and replaced whole, guarded
// by an integer version so concurrent editors fail instead of clobbering
// each other.
type GroupRepository struct {
	db *sqlx.DB
}

// NewGroupRepository creates a new group repository.
func NewGroupRepository(db *sqlx.DB) *GroupRepository {
	return &GroupRepository{db: db}
}

const groupColumns = "id, code, site_id, career_id, cycle_number, schedule, version, created_at, updated_at"

// FindByID loads a group by id.
func (r *GroupRepository) FindByID(ctx context.Context, id string) (*models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE id = $1", groupColumns)
	var group models.Group
	if err := r.db.GetContext(ctx, &group, query, id); err != nil {
		return nil, err
	}
	return &group, nil
}

// List returns groups matching the filter, ordered by code.
func (r *GroupRepository) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	base := fmt.Sprintf("SELECT %s FROM groups WHERE 1=1", groupColumns)
	var conditions []string
	var args []interface{}

	if filter.SiteID != "" {
		conditions = append(conditions, fmt.Sprintf("site_id = $%d", len(args)+1))
		args = append(args, filter.SiteID)
	}
	if filter.CareerID != "" {
		conditions = append(conditions, fmt.Sprintf("career_id = $%d", len(args)+1))
		args = append(args, filter.CareerID)
	}
	if filter.CycleNumber > 0 {
		conditions = append(conditions, fmt.Sprintf("cycle_number = $%d", len(args)+1))
		args = append(args, filter.CycleNumber)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}
	base += " ORDER BY code ASC"

	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, base, args...); err != nil {
		return nil, fmt.Errorf("list groups: %w", err)
	}
	return groups, nil
}

// ListBySite returns every group of a venue; NULL schedule columns scan
// as empty sets.
func (r *GroupRepository) ListBySite(ctx context.Context, siteID string) ([]models.Group, error) {
	query := fmt.Sprintf("SELECT %s FROM groups WHERE site_id = $1 ORDER BY code ASC", groupColumns)
	var groups []models.Group
	if err := r.db.SelectContext(ctx, &groups, query, siteID); err != nil {
		return nil, fmt.Errorf("list groups by site: %w", err)
	}
	return groups, nil
}

// LoadVenueView flattens the schedules of every group sharing a site,
// tagging each entry with its owning group. Derived on demand, never
// persisted.
func (r *GroupRepository) LoadVenueView(ctx context.Context, siteID string) ([]models.VenueEntry, error) {
	groups, err := r.ListBySite(ctx, siteID)
	if err != nil {
		return nil, err
	}

	var view []models.VenueEntry
	for _, group := range groups {
		for _, entry := range group.Schedule {
			view = append(view, models.VenueEntry{
				GroupID:       group.ID,
				GroupCode:     group.Code,
				ScheduleEntry: entry,
			})
		}
	}
	return view, nil
}

// UpsertEntry replaces-or-appends one entry in the group's set by id and
// writes the whole set back. Remove-then-add, never a field merge, so a
// modality switch cannot leave stale room fields behind. Returns the new
// entry set.
func (r *GroupRepository) UpsertEntry(ctx context.Context, groupID string, entry models.ScheduleEntry) (models.ScheduleEntries, error) {
	group, err := r.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	next := make(models.ScheduleEntries, 0, len(group.Schedule)+1)
	for _, existing := range group.Schedule {
		if existing.ID == entry.ID {
			continue
		}
		next = append(next, existing)
	}
	next = append(next, entry)

	if err := r.replaceSchedule(ctx, groupID, next, group.Version); err != nil {
		return nil, err
	}
	return next, nil
}

// RemoveEntry deletes the entry with the matching id. A stale id yields
// ErrEntryMissing without touching the stored set.
func (r *GroupRepository) RemoveEntry(ctx context.Context, groupID, entryID string) (models.ScheduleEntries, error) {
	group, err := r.FindByID(ctx, groupID)
	if err != nil {
		return nil, err
	}

	next := make(models.ScheduleEntries, 0, len(group.Schedule))
	found := false
	for _, existing := range group.Schedule {
		if existing.ID == entryID {
			found = true
			continue
		}
		next = append(next, existing)
	}
	if !found {
		return nil, ErrEntryMissing
	}

	if err := r.replaceSchedule(ctx, groupID, next, group.Version); err != nil {
		return nil, err
	}
	return next, nil
}

// replaceSchedule writes the full entry set conditioned on the version
// read alongside it. Zero rows affected means a concurrent writer won.
func (r *GroupRepository) replaceSchedule(ctx context.Context, groupID string, entries models.ScheduleEntries, expectedVersion int) error {
	const query = `UPDATE groups SET schedule = $1, version = version + 1, updated_at = $2 WHERE id = $3 AND version = $4`
	res, err := r.db.ExecContext(ctx, query, entries, time.Now().UTC(), groupID, expectedVersion)
	if err != nil {
		return fmt.Errorf("replace group schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("replace group schedule rows: %w", err)
	}
	if affected == 0 {
		return ErrVersionMismatch
	}
	return nil
}
