package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/campushq/schedule-api/internal/dto"
	"github.com/campushq/schedule-api/internal/models"
	"github.com/campushq/schedule-api/internal/service"
	"github.com/campushq/schedule-api/internal/timegrid"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
	"github.com/campushq/schedule-api/pkg/response"
)

type scheduleService interface {
	Groups(ctx context.Context, filter models.GroupFilter) ([]models.Group, error)
	VenueView(ctx context.Context, siteID string) ([]models.VenueEntry, error)
	RoomAvailability(ctx context.Context, siteID string, cand models.CandidateSlot, currentRoomID string) (*service.Availability, error)
	GroupSchedule(ctx context.Context, groupID string) (*models.Group, error)
	GroupLayout(ctx context.Context, groupID string, grid timegrid.Grid) (*dto.ScheduleLayout, error)
	TeacherSchedule(ctx context.Context, siteID, teacherID string) ([]models.VenueEntry, error)
	TeacherLayout(ctx context.Context, siteID, teacherID string, grid timegrid.Grid) (*dto.ScheduleLayout, error)
	UpsertEntry(ctx context.Context, groupID string, req service.UpsertEntryRequest) (*models.ScheduleEntry, error)
	RemoveEntry(ctx context.Context, groupID, entryID string) error
}

// ScheduleHandler manages the schedule editor endpoints.
type ScheduleHandler struct {
	service scheduleService
	grid    timegrid.Grid
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(svc scheduleService, grid timegrid.Grid) *ScheduleHandler {
	return &ScheduleHandler{service: svc, grid: grid}
}

// gridFromQuery picks the coarse hourly grid when requested, otherwise
// the configured fine grid.
func (h *ScheduleHandler) gridFromQuery(c *gin.Context) timegrid.Grid {
	if c.Query("slot") == "60" {
		return timegrid.Hourly()
	}
	return h.grid
}

// VenueSchedule godoc
// @Summary Venue-wide schedule view
// @Tags Schedules
// @Produce json
// @Param siteId path string true "Site ID"
// @Success 200 {object} response.Envelope
// @Router /sites/{siteId}/venue-schedule [get]
func (h *ScheduleHandler) VenueSchedule(c *gin.Context) {
	view, err := h.service.VenueView(c.Request.Context(), c.Param("siteId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Availability godoc
// @Summary Occupied rooms for a candidate slot
// @Tags Schedules
// @Produce json
// @Param siteId path string true "Site ID"
// @Param day query string true "Weekday"
// @Param start query string true "Start HH:MM"
// @Param end query string true "End HH:MM"
// @Param modality query string false "ONSITE or REMOTE"
// @Param entryId query string false "Entry being edited"
// @Param currentRoomId query string false "Room currently assigned to the entry"
// @Success 200 {object} response.Envelope
// @Router /sites/{siteId}/availability [get]
func (h *ScheduleHandler) Availability(c *gin.Context) {
	modality := models.Modality(strings.ToUpper(c.DefaultQuery("modality", string(models.ModalityOnSite))))
	cand := models.CandidateSlot{
		EntryID:   c.Query("entryId"),
		Day:       c.Query("day"),
		StartTime: c.Query("start"),
		EndTime:   c.Query("end"),
		Modality:  modality,
	}

	availability, err := h.service.RoomAvailability(c.Request.Context(), c.Param("siteId"), cand, c.Query("currentRoomId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}

// ListGroups godoc
// @Summary List groups
// @Tags Schedules
// @Produce json
// @Param siteId query string false "Filter by site"
// @Param careerId query string false "Filter by career"
// @Param cycle query int false "Filter by cycle number"
// @Success 200 {object} response.Envelope
// @Router /groups [get]
func (h *ScheduleHandler) ListGroups(c *gin.Context) {
	var filter models.GroupFilter
	filter.SiteID = c.Query("siteId")
	filter.CareerID = c.Query("careerId")
	if cycle, err := strconv.Atoi(c.DefaultQuery("cycle", "0")); err == nil {
		filter.CycleNumber = cycle
	}

	groups, err := h.service.Groups(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, groups, nil)
}

// GroupSchedule godoc
// @Summary One group's schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/schedule [get]
func (h *ScheduleHandler) GroupSchedule(c *gin.Context) {
	group, err := h.service.GroupSchedule(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, group, nil)
}

// GroupLayout godoc
// @Summary Positioned week-grid layout for a group
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Param slot query int false "Slot size in minutes (30 or 60)"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/schedule/layout [get]
func (h *ScheduleHandler) GroupLayout(c *gin.Context) {
	layout, err := h.service.GroupLayout(c.Request.Context(), c.Param("id"), h.gridFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, layout, nil)
}

// TeacherSchedule godoc
// @Summary One teacher's weekly schedule across a venue
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param siteId query string true "Site ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule [get]
func (h *ScheduleHandler) TeacherSchedule(c *gin.Context) {
	siteID := c.Query("siteId")
	if siteID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "siteId is required"))
		return
	}
	entries, err := h.service.TeacherSchedule(c.Request.Context(), siteID, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// TeacherLayout godoc
// @Summary Positioned week-grid layout for a teacher
// @Tags Schedules
// @Produce json
// @Param id path string true "Teacher ID"
// @Param siteId query string true "Site ID"
// @Param slot query int false "Slot size in minutes (30 or 60)"
// @Success 200 {object} response.Envelope
// @Router /teachers/{id}/schedule/layout [get]
func (h *ScheduleHandler) TeacherLayout(c *gin.Context) {
	siteID := c.Query("siteId")
	if siteID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "siteId is required"))
		return
	}
	layout, err := h.service.TeacherLayout(c.Request.Context(), siteID, c.Param("id"), h.gridFromQuery(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, layout, nil)
}

// UpsertEntry godoc
// @Summary Create or replace one schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Group ID"
// @Param payload body service.UpsertEntryRequest true "Entry payload"
// @Success 200 {object} response.Envelope
// @Router /groups/{id}/schedule/entries [put]
func (h *ScheduleHandler) UpsertEntry(c *gin.Context) {
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only administrators may edit schedules"))
		return
	}
	var req service.UpsertEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	entry, err := h.service.UpsertEntry(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// RemoveEntry godoc
// @Summary Delete one schedule entry
// @Tags Schedules
// @Produce json
// @Param id path string true "Group ID"
// @Param entryId path string true "Entry ID"
// @Success 204
// @Router /groups/{id}/schedule/entries/{entryId} [delete]
func (h *ScheduleHandler) RemoveEntry(c *gin.Context) {
	if claims := claimsFromContext(c); claims != nil && claims.Role != models.RoleAdmin {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only administrators may edit schedules"))
		return
	}
	if err := h.service.RemoveEntry(c.Request.Context(), c.Param("id"), c.Param("entryId")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
