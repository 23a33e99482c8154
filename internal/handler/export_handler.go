package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campushq/schedule-api/internal/service"
	appErrors "github.com/campushq/schedule-api/pkg/errors"
	"github.com/campushq/schedule-api/pkg/response"
)

type exportService interface {
	GroupSchedule(ctx context.Context, groupID string, format service.ExportFormat) (*service.ExportResult, error)
	TeacherSchedule(ctx context.Context, siteID, teacherID string, format service.ExportFormat) (*service.ExportResult, error)
}

// ExportHandler serves downloadable schedule documents.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs handler.
func NewExportHandler(svc exportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// GroupSchedule godoc
// @Summary Download a group schedule as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Group ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /groups/{id}/schedule/export [get]
func (h *ExportHandler) GroupSchedule(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.GroupSchedule(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, result)
}

// TeacherSchedule godoc
// @Summary Download a teacher schedule as CSV or PDF
// @Tags Exports
// @Produce text/csv
// @Produce application/pdf
// @Param id path string true "Teacher ID"
// @Param siteId query string true "Site ID"
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} file
// @Router /teachers/{id}/schedule/export [get]
func (h *ExportHandler) TeacherSchedule(c *gin.Context) {
	siteID := c.Query("siteId")
	if siteID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "siteId is required"))
		return
	}
	format := service.ExportFormat(c.DefaultQuery("format", string(service.FormatCSV)))
	result, err := h.service.TeacherSchedule(c.Request.Context(), siteID, c.Param("id"), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	serveDownload(c, result)
}

func serveDownload(c *gin.Context, result *service.ExportResult) {
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
