package service

import (
	"sort"
	"strings"

	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/timegrid"
)

// occupiedRooms computes which rooms cannot take the candidate slot,
// given every entry booked across the venue. Only on-site entries can
// occupy a room; a remote candidate occupies nothing. The candidate's
// own prior occurrence is excluded by id so an entry never conflicts
// with itself. Intervals are half-open: an entry ending at 10:00 does
// not collide with one starting at 10:00.
func occupiedRooms(view []models.VenueEntry, cand models.CandidateSlot) map[string]models.RoomConflict {
	occupied := make(map[string]models.RoomConflict)
	if cand.Modality == models.ModalityRemote {
		return occupied
	}

	candStart, err := timegrid.ParseClock(cand.StartTime)
	if err != nil {
		return occupied
	}
	candEnd, err := timegrid.ParseClock(cand.EndTime)
	if err != nil {
		return occupied
	}
	candDay := strings.ToUpper(strings.TrimSpace(cand.Day))

	for _, entry := range view {
		if entry.Modality != models.ModalityOnSite || entry.RoomID == "" {
			continue
		}
		if cand.EntryID != "" && entry.ID == cand.EntryID {
			continue
		}
		if !strings.EqualFold(entry.Day, candDay) {
			continue
		}

		start, err := timegrid.ParseClock(entry.StartTime)
		if err != nil {
			continue
		}
		end, err := timegrid.ParseClock(entry.EndTime)
		if err != nil {
			continue
		}

		if !intervalsOverlap(candStart, candEnd, start, end) {
			continue
		}
		if _, seen := occupied[entry.RoomID]; seen {
			continue
		}
		occupied[entry.RoomID] = models.RoomConflict{
			RoomID:      entry.RoomID,
			GroupID:     entry.GroupID,
			GroupCode:   entry.GroupCode,
			Day:         entry.Day,
			StartTime:   entry.StartTime,
			EndTime:     entry.EndTime,
			SubjectName: entry.SubjectName,
		}
	}
	return occupied
}

// intervalsOverlap tests [aStart, aEnd) against [bStart, bEnd).
func intervalsOverlap(aStart, aEnd, bStart, bEnd int) bool {
	return max(aStart, bStart) < min(aEnd, bEnd)
}

// sortedRoomIDs returns the occupied room ids in a stable order for
// responses and logs.
func sortedRoomIDs(occupied map[string]models.RoomConflict) []string {
	ids := make([]string, 0, len(occupied))
	for id := range occupied {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
