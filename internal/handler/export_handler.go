package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
	"github.com/noah-isme/faculty-scheduler-api/pkg/response"
)

type timetableExporter interface {
	Export(ctx context.Context, scheduleID string, req dto.ExportScheduleRequest) (*dto.ExportResponse, error)
	Download(token string) (*service.ExportDownload, error)
}

// ExportHandler serves timetable exports.
type ExportHandler struct {
	service timetableExporter
}

// NewExportHandler constructs the handler.
func NewExportHandler(svc *service.TimetableExportService) *ExportHandler {
	return &ExportHandler{service: svc}
}

// Export godoc
// @Summary Export a schedule timetable
// @Description Renders the schedule to CSV or PDF and returns a signed download URL.
// @Tags Exports
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body dto.ExportScheduleRequest false "Export options"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/export [post]
func (h *ExportHandler) Export(c *gin.Context) {
	var req dto.ExportScheduleRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export payload"))
			return
		}
	}
	result, err := h.service.Export(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an export through its signed token
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed token"
// @Success 200
// @Failure 410 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	result, err := h.service.Download(c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"%s\"", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.ContentType, result.File, nil)
}
