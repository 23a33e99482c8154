package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/repository"
	"github.com/campushq/schedule-api/internal/timegrid"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
)

type groupStore interface {
	FindByID(ctx context.Context, id string) (*models.Group, error)
	List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	LoadVenueView(ctx context.Context, siteID string) ([]models.VenueEntry, error)
	UpsertEntry(ctx context.Context, groupID string, entry models.ScheduleEntry) (models.ScheduleEntries, error)
	RemoveEntry(ctx context.Context, groupID, entryID string) (models.ScheduleEntries, error)
}

type roomStore interface {
	ListBySite(ctx context.Context, siteID string) ([]models.Room, error)
	FindByID(ctx context.Context, id string) (*models.Room, error)
	FindSite(ctx context.Context, id string) (*models.Site, error)
}

type venueCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// UpsertEntryRequest is the editor save payload for one entry. EntryID is
// empty on create; on edit it preserves the existing identity.
type UpsertEntryRequest struct {
	EntryID     string          `json:"entry_id"`
	Day         string          `json:"day" validate:"required"`
	StartTime   string          `json:"start_time" validate:"required"`
	EndTime     string          `json:"end_time" validate:"required"`
	SubjectID   string          `json:"subject_id" validate:"required"`
	SubjectName string          `json:"subject_name" validate:"required"`
	TeacherID   string          `json:"teacher_id" validate:"required"`
	TeacherName string          `json:"teacher_name" validate:"required"`
	Modality    models.Modality `json:"modality" validate:"required,oneof=ONSITE REMOTE"`
	SiteName    string          `json:"site_name"`
	RoomID      string          `json:"room_id"`
	RoomName    string          `json:"room_name"`
}

// RoomOption is one selectable room in the editor, flagged when the
// requested window already books it.
type RoomOption struct {
	Room       models.Room          `json:"room"`
	Occupied   bool                 `json:"occupied"`
	Selectable bool                 `json:"selectable"`
	Conflict   *models.RoomConflict `json:"conflict,omitempty"`
}

// Availability is the live occupancy answer the editor refreshes on
// every day/time/modality change.
type Availability struct {
	OccupiedRoomIDs []string     `json:"occupied_room_ids"`
	Rooms           []RoomOption `json:"rooms"`
}

// ScheduleService coordinates the assignment editor: validation,
// conflict detection, and the group schedule store.
type ScheduleService struct {
	groups    groupStore
	rooms     roomStore
	cache     venueCache
	cacheTTL  time.Duration
	validator *validator.Validate
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewScheduleService instantiates ScheduleService.
func NewScheduleService(groups groupStore, rooms roomStore, cache venueCache, cacheTTL time.Duration, validate *validator.Validate, metrics *MetricsService, logger *zap.Logger) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{
		groups:    groups,
		rooms:     rooms,
		cache:     cache,
		cacheTTL:  cacheTTL,
		validator: validate,
		metrics:   metrics,
		logger:    logger,
	}
}

func venueCacheKey(siteID string) string {
	return fmt.Sprintf("venue:%s", siteID)
}

// VenueView returns every entry booked across a site, tagged with its
// owning group. Served from a short-lived cache that every write busts.
func (s *ScheduleService) VenueView(ctx context.Context, siteID string) ([]models.VenueEntry, error) {
	key := venueCacheKey(siteID)
	if s.cache != nil {
		start := time.Now()
		var cached []models.VenueEntry
		err := s.cache.Get(ctx, key, &cached)
		s.metrics.RecordCacheOperation(err == nil, time.Since(start))
		if err == nil {
			return cached, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("venue cache read failed", zap.String("site_id", siteID), zap.Error(err))
		}
	}

	view, err := s.groups.LoadVenueView(ctx, siteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load venue schedule")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, view, s.cacheTTL); err != nil {
			s.logger.Warn("venue cache write failed", zap.String("site_id", siteID), zap.Error(err))
		}
	}
	return view, nil
}

// Groups lists the group catalog matching the equality filter.
func (s *ScheduleService) Groups(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	groups, err := s.groups.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to list groups")
	}
	return groups, nil
}

// RoomAvailability computes the occupied-room set for a candidate slot
// and flags the venue's rooms accordingly. A room in the occupied set is
// still selectable when it is the one currently assigned to the entry
// being edited.
func (s *ScheduleService) RoomAvailability(ctx context.Context, siteID string, cand models.CandidateSlot, currentRoomID string) (*Availability, error) {
	if _, err := s.rooms.FindSite(ctx, siteID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "site not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to resolve site")
	}
	if !timegrid.IsValidDay(cand.Day) {
		return nil, appErrors.Clone(appErrors.ErrInvalidDay, fmt.Sprintf("day %q is not schedulable", cand.Day))
	}
	if _, err := timegrid.ParseClock(cand.StartTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	if _, err := timegrid.ParseClock(cand.EndTime); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}

	view, err := s.VenueView(ctx, siteID)
	if err != nil {
		return nil, err
	}
	occupied := occupiedRooms(view, cand)
	s.metrics.ObserveConflictCheck(len(occupied))

	rooms, err := s.rooms.ListBySite(ctx, siteID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load rooms")
	}

	options := make([]RoomOption, 0, len(rooms))
	for _, room := range rooms {
		conflict, taken := occupied[room.ID]
		option := RoomOption{Room: room, Occupied: taken, Selectable: !taken || room.ID == currentRoomID}
		if taken {
			c := conflict
			option.Conflict = &c
		}
		options = append(options, option)
	}

	return &Availability{OccupiedRoomIDs: sortedRoomIDs(occupied), Rooms: options}, nil
}

// GroupSchedule returns one group's entry set with its metadata.
func (s *ScheduleService) GroupSchedule(ctx context.Context, groupID string) (*models.Group, error) {
	group, err := s.groups.FindByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "group not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to load group")
	}
	return group, nil
}

// TeacherSchedule returns the venue entries taught by one teacher.
func (s *ScheduleService) TeacherSchedule(ctx context.Context, siteID, teacherID string) ([]models.VenueEntry, error) {
	view, err := s.VenueView(ctx, siteID)
	if err != nil {
		return nil, err
	}
	var taught []models.VenueEntry
	for _, entry := range view {
		if entry.TeacherID == teacherID {
			taught = append(taught, entry)
		}
	}
	return taught, nil
}

// UpsertEntry is the editor save path: validate the payload, build the
// entry, re-run the conflict check as the final authority, then persist
// through the store adapter and bust the venue cache.
func (s *ScheduleService) UpsertEntry(ctx context.Context, groupID string, req UpsertEntryRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule entry payload")
	}

	group, err := s.GroupSchedule(ctx, groupID)
	if err != nil {
		return nil, err
	}

	entry, err := buildEntry(req, group)
	if err != nil {
		return nil, err
	}

	if entry.Modality == models.ModalityOnSite {
		room, err := s.rooms.FindByID(ctx, entry.RoomID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s does not exist", entry.RoomID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to resolve room")
		}
		if room.SiteID != group.SiteID {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s belongs to a different site", entry.RoomID))
		}
		if !room.Active {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("room %s is not bookable", entry.RoomID))
		}
		// The catalog name wins over whatever the client sent.
		entry.RoomName = room.Name

		// Final occupancy guard reads the store directly; the cached view
		// is advisory and may lag a concurrent save.
		view, err := s.groups.LoadVenueView(ctx, group.SiteID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, "failed to verify room availability")
		}
		cand := models.CandidateSlot{
			EntryID:   entry.ID,
			Day:       entry.Day,
			StartTime: entry.StartTime,
			EndTime:   entry.EndTime,
			Modality:  entry.Modality,
		}
		occupied := occupiedRooms(view, cand)
		s.metrics.ObserveConflictCheck(len(occupied))
		if conflict, taken := occupied[entry.RoomID]; taken {
			domainErr := &models.RoomOccupiedError{
				Message:  fmt.Sprintf("room %s is already booked %s %s-%s", entry.RoomID, conflict.Day, conflict.StartTime, conflict.EndTime),
				Conflict: conflict,
			}
			return nil, appErrors.Wrap(domainErr, appErrors.ErrRoomOccupied.Code, appErrors.ErrRoomOccupied.Status, domainErr.Message)
		}
	}

	if _, err := s.groups.UpsertEntry(ctx, groupID, entry); err != nil {
		return nil, s.mapWriteError(err, "failed to save schedule entry")
	}

	s.invalidateVenue(ctx, group.SiteID)
	s.logger.Info("schedule entry saved",
		zap.String("group_id", groupID),
		zap.String("entry_id", entry.ID),
		zap.String("day", entry.Day),
		zap.String("window", entry.StartTime+"-"+entry.EndTime),
		zap.String("modality", string(entry.Modality)),
	)
	return &entry, nil
}

// RemoveEntry deletes one entry by identity. A stale id is reported as a
// recoverable not-found so the client reloads its view.
func (s *ScheduleService) RemoveEntry(ctx context.Context, groupID, entryID string) error {
	group, err := s.GroupSchedule(ctx, groupID)
	if err != nil {
		return err
	}

	if _, err := s.groups.RemoveEntry(ctx, groupID, entryID); err != nil {
		if errors.Is(err, repository.ErrEntryMissing) {
			return appErrors.Clone(appErrors.ErrNotFound, "schedule entry not found, reload the schedule")
		}
		return s.mapWriteError(err, "failed to delete schedule entry")
	}

	s.invalidateVenue(ctx, group.SiteID)
	s.logger.Info("schedule entry removed", zap.String("group_id", groupID), zap.String("entry_id", entryID))
	return nil
}

func (s *ScheduleService) mapWriteError(err error, message string) error {
	if errors.Is(err, repository.ErrVersionMismatch) {
		return appErrors.Wrap(err, appErrors.ErrVersionConflict.Code, appErrors.ErrVersionConflict.Status, appErrors.ErrVersionConflict.Message)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "group not found")
	}
	return appErrors.Wrap(err, appErrors.ErrStoreUnavailable.Code, appErrors.ErrStoreUnavailable.Status, message)
}

func (s *ScheduleService) invalidateVenue(ctx context.Context, siteID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, venueCacheKey(siteID)); err != nil {
		s.logger.Warn("venue cache invalidation failed", zap.String("site_id", siteID), zap.Error(err))
	}
}

// buildEntry validates the slot and modality rules and produces the
// entry to persist. Identity is preserved on edit and freshly generated
// on create.
func buildEntry(req UpsertEntryRequest, group *models.Group) (models.ScheduleEntry, error) {
	day := strings.ToUpper(strings.TrimSpace(req.Day))
	if !timegrid.IsValidDay(day) {
		return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrInvalidDay, fmt.Sprintf("day %q is not schedulable", req.Day))
	}

	start, err := timegrid.ParseClock(req.StartTime)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start time")
	}
	end, err := timegrid.ParseClock(req.EndTime)
	if err != nil {
		return models.ScheduleEntry{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end time")
	}
	if end <= start {
		return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrInvalidTimeRange, "")
	}

	entry := models.ScheduleEntry{
		ID:            req.EntryID,
		Day:           day,
		StartTime:     req.StartTime,
		EndTime:       req.EndTime,
		DurationHours: float64(end-start) / 60.0,
		SubjectID:     req.SubjectID,
		SubjectName:   req.SubjectName,
		TeacherID:     req.TeacherID,
		TeacherName:   req.TeacherName,
		Modality:      req.Modality,
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}

	switch req.Modality {
	case models.ModalityOnSite:
		if strings.TrimSpace(req.RoomID) == "" {
			return models.ScheduleEntry{}, appErrors.Clone(appErrors.ErrMissingRoom, "")
		}
		entry.SiteID = group.SiteID
		entry.SiteName = req.SiteName
		entry.RoomID = req.RoomID
		entry.RoomName = req.RoomName
	case models.ModalityRemote:
		// Room and site fields stay zero so nothing stale survives a
		// modality switch.
	}

	return entry, nil
}
