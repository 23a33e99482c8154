package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/repository"
	"github.com/campushq/schedule-api/internal/timegrid"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
)

type groupStoreMock struct {
	group      *models.Group
	findErr    error
	listResp   []models.Group
	listErr    error
	lastFilter models.GroupFilter
	view       []models.VenueEntry
	viewErr    error
	viewCalls  int
	upserted   []models.ScheduleEntry
	upsertErr  error
	removedIDs []string
	removeErr  error
}

func (m *groupStoreMock) FindByID(ctx context.Context, id string) (*models.Group, error) {
	if m.findErr != nil {
		return nil, m.findErr
	}
	return m.group, nil
}

func (m *groupStoreMock) List(ctx context.Context, filter models.GroupFilter) ([]models.Group, error) {
	m.lastFilter = filter
	return m.listResp, m.listErr
}

func (m *groupStoreMock) LoadVenueView(ctx context.Context, siteID string) ([]models.VenueEntry, error) {
	m.viewCalls++
	return m.view, m.viewErr
}

func (m *groupStoreMock) UpsertEntry(ctx context.Context, groupID string, entry models.ScheduleEntry) (models.ScheduleEntries, error) {
	if m.upsertErr != nil {
		return nil, m.upsertErr
	}
	m.upserted = append(m.upserted, entry)
	return models.ScheduleEntries{entry}, nil
}

func (m *groupStoreMock) RemoveEntry(ctx context.Context, groupID, entryID string) (models.ScheduleEntries, error) {
	if m.removeErr != nil {
		return nil, m.removeErr
	}
	m.removedIDs = append(m.removedIDs, entryID)
	return models.ScheduleEntries{}, nil
}

type roomStoreMock struct {
	rooms   []models.Room
	err     error
	room    *models.Room
	roomErr error
	site    *models.Site
	siteErr error
}

func (m *roomStoreMock) ListBySite(ctx context.Context, siteID string) ([]models.Room, error) {
	return m.rooms, m.err
}

func (m *roomStoreMock) FindByID(ctx context.Context, id string) (*models.Room, error) {
	if m.roomErr != nil {
		return nil, m.roomErr
	}
	if m.room != nil && m.room.ID == id {
		return m.room, nil
	}
	return nil, sql.ErrNoRows
}

func (m *roomStoreMock) FindSite(ctx context.Context, id string) (*models.Site, error) {
	if m.siteErr != nil {
		return nil, m.siteErr
	}
	if m.site != nil {
		return m.site, nil
	}
	return &models.Site{ID: id, Name: "Main Campus"}, nil
}

type venueCacheMock struct {
	cached      interface{}
	deletedKeys []string
	setKeys     []string
}

func (m *venueCacheMock) Get(ctx context.Context, key string, dest interface{}) error {
	if m.cached == nil {
		return appErrors.ErrCacheMiss
	}
	raw, err := json.Marshal(m.cached)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

func (m *venueCacheMock) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	m.setKeys = append(m.setKeys, key)
	return nil
}

func (m *venueCacheMock) Delete(ctx context.Context, keys ...string) error {
	m.deletedKeys = append(m.deletedKeys, keys...)
	return nil
}

func testGroup() *models.Group {
	return &models.Group{
		ID:          "g1",
		Code:        "SYS-3A",
		SiteID:      "site-1",
		CareerID:    "career-1",
		CycleNumber: 3,
		Version:     4,
	}
}

func validUpsert() UpsertEntryRequest {
	return UpsertEntryRequest{
		Day:         "Monday",
		StartTime:   "09:00",
		EndTime:     "10:30",
		SubjectID:   "sub-1",
		SubjectName: "Algebra",
		TeacherID:   "t-1",
		TeacherName: "Prof. Rivas",
		Modality:    models.ModalityOnSite,
		RoomID:      "A101",
		RoomName:    "Room A101",
	}
}

func catalogRoom() *models.Room {
	return &models.Room{ID: "A101", SiteID: "site-1", Name: "Room A101", Active: true}
}

func newScheduleFixture(groups *groupStoreMock, rooms *roomStoreMock, cache *venueCacheMock) *ScheduleService {
	var vc venueCache
	if cache != nil {
		vc = cache
	}
	if rooms == nil {
		rooms = &roomStoreMock{room: catalogRoom()}
	}
	return NewScheduleService(groups, rooms, vc, time.Minute, nil, nil, nil)
}

func TestUpsertEntryCreatesWithGeneratedIdentity(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	cache := &venueCacheMock{}
	svc := newScheduleFixture(groups, nil, cache)

	entry, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.Equal(t, "MONDAY", entry.Day)
	assert.InDelta(t, 1.5, entry.DurationHours, 1e-9)
	assert.Equal(t, "site-1", entry.SiteID, "on-site entries inherit the group's site")
	require.Len(t, groups.upserted, 1)
	assert.Equal(t, []string{"venue:site-1"}, cache.deletedKeys, "a save must bust the venue view cache")
}

func TestUpsertEntryPreservesIdentityOnEdit(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	svc := newScheduleFixture(groups, nil, nil)

	req := validUpsert()
	req.EntryID = "h1"
	entry, err := svc.UpsertEntry(context.Background(), "g1", req)
	require.NoError(t, err)
	assert.Equal(t, "h1", entry.ID)
}

func TestUpsertEntryRejectsInvalidTimeRange(t *testing.T) {
	svc := newScheduleFixture(&groupStoreMock{group: testGroup()}, nil, nil)

	req := validUpsert()
	req.StartTime = "10:00"
	req.EndTime = "10:00"
	_, err := svc.UpsertEntry(context.Background(), "g1", req)
	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrInvalidTimeRange.Code, appErr.Code)

	req.EndTime = "09:00"
	_, err = svc.UpsertEntry(context.Background(), "g1", req)
	assert.Equal(t, appErrors.ErrInvalidTimeRange.Code, appErrors.FromError(err).Code)
}

func TestUpsertEntryRejectsSunday(t *testing.T) {
	svc := newScheduleFixture(&groupStoreMock{group: testGroup()}, nil, nil)

	req := validUpsert()
	req.Day = "SUNDAY"
	_, err := svc.UpsertEntry(context.Background(), "g1", req)
	assert.Equal(t, appErrors.ErrInvalidDay.Code, appErrors.FromError(err).Code)
}

func TestUpsertEntryOnSiteRequiresRoom(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	svc := newScheduleFixture(groups, nil, nil)

	req := validUpsert()
	req.RoomID = "  "
	_, err := svc.UpsertEntry(context.Background(), "g1", req)
	assert.Equal(t, appErrors.ErrMissingRoom.Code, appErrors.FromError(err).Code)
	assert.Empty(t, groups.upserted, "validation errors never reach the store")
}

func TestUpsertEntryRejectsUnknownRoom(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	rooms := &roomStoreMock{}
	svc := newScheduleFixture(groups, rooms, nil)

	_, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, groups.upserted)
}

func TestUpsertEntryRejectsRoomFromAnotherSite(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	room := catalogRoom()
	room.SiteID = "site-2"
	svc := newScheduleFixture(groups, &roomStoreMock{room: room}, nil)

	_, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, groups.upserted)
}

func TestUpsertEntryRejectsInactiveRoom(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	room := catalogRoom()
	room.Active = false
	svc := newScheduleFixture(groups, &roomStoreMock{room: room}, nil)

	_, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
	assert.Empty(t, groups.upserted)
}

func TestUpsertEntryResolvesRoomNameFromCatalog(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	svc := newScheduleFixture(groups, nil, nil)

	req := validUpsert()
	req.RoomName = "stale client label"
	entry, err := svc.UpsertEntry(context.Background(), "g1", req)
	require.NoError(t, err)
	assert.Equal(t, "Room A101", entry.RoomName, "the catalog name wins over the client's")
}

func TestUpsertEntryRemoteClearsRoomFields(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	svc := newScheduleFixture(groups, nil, nil)

	req := validUpsert()
	req.Modality = models.ModalityRemote
	entry, err := svc.UpsertEntry(context.Background(), "g1", req)
	require.NoError(t, err)
	assert.Empty(t, entry.RoomID)
	assert.Empty(t, entry.RoomName)
	assert.Empty(t, entry.SiteID)
	assert.Zero(t, groups.viewCalls, "remote saves skip the occupancy guard")
}

func TestUpsertEntryFinalGuardBlocksOccupiedRoom(t *testing.T) {
	groups := &groupStoreMock{
		group: testGroup(),
		view:  []models.VenueEntry{venueEntry("h9", "g2", "MONDAY", "10:00", "12:00", "A101")},
	}
	svc := newScheduleFixture(groups, nil, nil)

	_, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrRoomOccupied.Code, appErrors.FromError(err).Code)
	assert.Empty(t, groups.upserted)
}

func TestUpsertEntryUnchangedResubmitDoesNotSelfConflict(t *testing.T) {
	existing := venueEntry("h1", "g1", "MONDAY", "09:00", "10:30", "A101")
	groups := &groupStoreMock{group: testGroup(), view: []models.VenueEntry{existing}}
	svc := newScheduleFixture(groups, nil, nil)

	req := validUpsert()
	req.EntryID = "h1"
	_, err := svc.UpsertEntry(context.Background(), "g1", req)
	assert.NoError(t, err)
}

func TestUpsertEntryMapsVersionConflict(t *testing.T) {
	groups := &groupStoreMock{group: testGroup(), upsertErr: repository.ErrVersionMismatch}
	svc := newScheduleFixture(groups, nil, nil)

	_, err := svc.UpsertEntry(context.Background(), "g1", validUpsert())
	assert.Equal(t, appErrors.ErrVersionConflict.Code, appErrors.FromError(err).Code)
}

func TestUpsertEntryGroupNotFound(t *testing.T) {
	groups := &groupStoreMock{findErr: sql.ErrNoRows}
	svc := newScheduleFixture(groups, nil, nil)

	_, err := svc.UpsertEntry(context.Background(), "ghost", validUpsert())
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestRemoveEntryStaleIdIsRecoverable(t *testing.T) {
	groups := &groupStoreMock{group: testGroup(), removeErr: repository.ErrEntryMissing}
	cache := &venueCacheMock{}
	svc := newScheduleFixture(groups, nil, cache)

	err := svc.RemoveEntry(context.Background(), "g1", "ghost")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
	assert.Empty(t, cache.deletedKeys)
}

func TestRemoveEntryBustsVenueCache(t *testing.T) {
	groups := &groupStoreMock{group: testGroup()}
	cache := &venueCacheMock{}
	svc := newScheduleFixture(groups, nil, cache)

	require.NoError(t, svc.RemoveEntry(context.Background(), "g1", "h1"))
	assert.Equal(t, []string{"h1"}, groups.removedIDs)
	assert.Equal(t, []string{"venue:site-1"}, cache.deletedKeys)
}

func TestVenueViewUsesCacheWhenWarm(t *testing.T) {
	warm := []models.VenueEntry{venueEntry("h1", "g1", "FRIDAY", "18:00", "20:00", "C300")}
	groups := &groupStoreMock{}
	cache := &venueCacheMock{cached: warm}
	svc := newScheduleFixture(groups, nil, cache)

	view, err := svc.VenueView(context.Background(), "site-1")
	require.NoError(t, err)
	require.Len(t, view, 1)
	assert.Equal(t, "h1", view[0].ID)
	assert.Zero(t, groups.viewCalls, "warm cache avoids the store read")
}

func TestVenueViewPopulatesCacheOnMiss(t *testing.T) {
	groups := &groupStoreMock{view: []models.VenueEntry{venueEntry("h1", "g1", "FRIDAY", "18:00", "20:00", "C300")}}
	cache := &venueCacheMock{}
	svc := newScheduleFixture(groups, nil, cache)

	_, err := svc.VenueView(context.Background(), "site-1")
	require.NoError(t, err)
	assert.Equal(t, 1, groups.viewCalls)
	assert.Equal(t, []string{"venue:site-1"}, cache.setKeys)
}

func TestRoomAvailabilityFlagsOccupiedRooms(t *testing.T) {
	groups := &groupStoreMock{view: []models.VenueEntry{venueEntry("h1", "g2", "MONDAY", "09:00", "11:00", "A101")}}
	rooms := &roomStoreMock{rooms: []models.Room{
		{ID: "A101", SiteID: "site-1", Name: "Room A101", Active: true},
		{ID: "A102", SiteID: "site-1", Name: "Room A102", Active: true},
	}}
	svc := newScheduleFixture(groups, rooms, nil)

	avail, err := svc.RoomAvailability(context.Background(), "site-1", models.CandidateSlot{
		Day: "MONDAY", StartTime: "10:00", EndTime: "12:00", Modality: models.ModalityOnSite,
	}, "")
	require.NoError(t, err)
	assert.Equal(t, []string{"A101"}, avail.OccupiedRoomIDs)
	require.Len(t, avail.Rooms, 2)
	assert.True(t, avail.Rooms[0].Occupied)
	assert.False(t, avail.Rooms[0].Selectable)
	assert.False(t, avail.Rooms[1].Occupied)
	assert.True(t, avail.Rooms[1].Selectable)
}

func TestRoomAvailabilityCurrentRoomStaysSelectable(t *testing.T) {
	groups := &groupStoreMock{view: []models.VenueEntry{venueEntry("h9", "g2", "MONDAY", "09:00", "11:00", "A101")}}
	rooms := &roomStoreMock{rooms: []models.Room{{ID: "A101", SiteID: "site-1", Name: "Room A101", Active: true}}}
	svc := newScheduleFixture(groups, rooms, nil)

	avail, err := svc.RoomAvailability(context.Background(), "site-1", models.CandidateSlot{
		EntryID: "h1", Day: "MONDAY", StartTime: "10:00", EndTime: "12:00", Modality: models.ModalityOnSite,
	}, "A101")
	require.NoError(t, err)
	require.Len(t, avail.Rooms, 1)
	assert.True(t, avail.Rooms[0].Occupied)
	assert.True(t, avail.Rooms[0].Selectable, "the currently assigned room is always selectable")
}

func TestRoomAvailabilityUnknownSite(t *testing.T) {
	svc := newScheduleFixture(&groupStoreMock{}, &roomStoreMock{siteErr: sql.ErrNoRows}, nil)

	_, err := svc.RoomAvailability(context.Background(), "ghost", models.CandidateSlot{
		Day: "MONDAY", StartTime: "09:00", EndTime: "10:00", Modality: models.ModalityOnSite,
	}, "")
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestGroupsAppliesCatalogFilter(t *testing.T) {
	groups := &groupStoreMock{listResp: []models.Group{{ID: "g1", Code: "SYS-3A"}}}
	svc := newScheduleFixture(groups, nil, nil)

	listed, err := svc.Groups(context.Background(), models.GroupFilter{SiteID: "site-1", CycleNumber: 3})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, "site-1", groups.lastFilter.SiteID)
	assert.Equal(t, 3, groups.lastFilter.CycleNumber)
}

func TestTeacherScheduleFiltersVenueView(t *testing.T) {
	e1 := venueEntry("h1", "g1", "MONDAY", "09:00", "11:00", "A101")
	e1.TeacherID = "t-1"
	e2 := venueEntry("h2", "g2", "TUESDAY", "09:00", "11:00", "A102")
	e2.TeacherID = "t-2"
	groups := &groupStoreMock{view: []models.VenueEntry{e1, e2}}
	svc := newScheduleFixture(groups, nil, nil)

	taught, err := svc.TeacherSchedule(context.Background(), "site-1", "t-1")
	require.NoError(t, err)
	require.Len(t, taught, 1)
	assert.Equal(t, "h1", taught[0].ID)
}

func TestGroupLayoutMatchesGridGeometry(t *testing.T) {
	group := testGroup()
	group.Schedule = models.ScheduleEntries{
		{ID: "h1", Day: "TUESDAY", StartTime: "08:00", EndTime: "09:30", SubjectName: "Algebra", Modality: models.ModalityOnSite, RoomID: "A101"},
		{ID: "h2", Day: "SUNDAY", StartTime: "08:00", EndTime: "09:00", SubjectName: "Ghost", Modality: models.ModalityRemote},
	}
	svc := newScheduleFixture(&groupStoreMock{group: group}, nil, nil)

	layout, err := svc.GroupLayout(context.Background(), "g1", timegrid.Default())
	require.NoError(t, err)
	require.Len(t, layout.Blocks, 1, "entries on unknown days are skipped silently")

	block := layout.Blocks[0]
	assert.InDelta(t, 6.25, block.Box.TopPct, 1e-9)
	assert.InDelta(t, 9.375, block.Box.HeightPct, 1e-9)
	assert.InDelta(t, 100.0/6.0, block.Box.LeftPct, 1e-9)
	assert.Equal(t, 32, layout.TotalSlots)
	assert.NotEmpty(t, block.FillColor)
	assert.NotEqual(t, block.FillColor, block.BorderColor)
}
