package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	internalmiddleware "github.com/noah-isme/faculty-scheduler-api/internal/middleware"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
	"github.com/noah-isme/faculty-scheduler-api/pkg/response"
)

type scheduleGenerator interface {
	Generate(ctx context.Context, horizonID, actor string) (*models.Schedule, error)
	Enqueue(ctx context.Context, horizonID, actor string) (*dto.GenerationJobResponse, error)
	JobStatus(id string) (*dto.GenerationJobResponse, error)
	Publish(ctx context.Context, scheduleID, actor string) (*dto.PublishResponse, error)
	Get(ctx context.Context, id string) (*models.Schedule, error)
	Published(ctx context.Context, horizonID string) (*models.Schedule, bool, error)
	List(ctx context.Context, query dto.ScheduleQuery) ([]models.Schedule, *models.Pagination, error)
	Delete(ctx context.Context, id string) error
}

// ScheduleGeneratorHandler exposes schedule generation and publication endpoints.
type ScheduleGeneratorHandler struct {
	service   scheduleGenerator
	apiPrefix string
}

// NewScheduleGeneratorHandler constructs the handler.
func NewScheduleGeneratorHandler(svc *service.ScheduleGeneratorService, apiPrefix string) *ScheduleGeneratorHandler {
	return &ScheduleGeneratorHandler{service: svc, apiPrefix: apiPrefix}
}

// Generate godoc
// @Summary Generate a candidate schedule for a horizon
// @Description Runs allocation and optimisation and stores the result as a private candidate. With async=true the run is queued and 202 is returned.
// @Tags Scheduler
// @Produce json
// @Param id path string true "Horizon ID"
// @Param async query bool false "Queue the run in the background"
// @Success 201 {object} response.Envelope
// @Success 202 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /horizons/{id}/schedules/generate [post]
func (h *ScheduleGeneratorHandler) Generate(c *gin.Context) {
	horizonID := c.Param("id")
	actor := actorID(c)

	async, _ := strconv.ParseBool(c.Query("async"))
	if async {
		job, err := h.service.Enqueue(c.Request.Context(), horizonID, actor)
		if err != nil {
			response.Error(c, err)
			return
		}
		response.Accepted(c, job, h.apiPrefix+"/generation-jobs/"+job.JobID)
		return
	}

	schedule, err := h.service.Generate(c.Request.Context(), horizonID, actor)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, schedule)
}

// JobStatus godoc
// @Summary Get the state of a background generation run
// @Tags Scheduler
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /generation-jobs/{id} [get]
func (h *ScheduleGeneratorHandler) JobStatus(c *gin.Context) {
	status, err := h.service.JobStatus(c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, status, nil)
}

// Publish godoc
// @Summary Publish a candidate schedule
// @Description Supersedes the horizon's current published schedule. Fails with SCHEDULING_CONFLICT when the candidate has hard violations.
// @Tags Scheduler
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id}/publish [post]
func (h *ScheduleGeneratorHandler) Publish(c *gin.Context) {
	result, err := h.service.Publish(c.Request.Context(), c.Param("id"), actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a schedule with its assignments
// @Tags Scheduler
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleGeneratorHandler) Get(c *gin.Context) {
	schedule, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedule, nil)
}

// Published godoc
// @Summary Get the published schedule of a horizon
// @Tags Scheduler
// @Produce json
// @Param id path string true "Horizon ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /horizons/{id}/schedules/published [get]
func (h *ScheduleGeneratorHandler) Published(c *gin.Context) {
	schedule, hit, err := h.service.Published(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	internalmiddleware.SetCacheHit(c, hit)
	response.JSON(c, http.StatusOK, schedule, nil, internalmiddleware.ExtractMeta(c))
}

// List godoc
// @Summary List schedules of a horizon
// @Tags Scheduler
// @Produce json
// @Param id path string true "Horizon ID"
// @Param status query []string false "Status filter" collectionFormat(multi)
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /horizons/{id}/schedules [get]
func (h *ScheduleGeneratorHandler) List(c *gin.Context) {
	var query dto.ScheduleQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	query.HorizonID = c.Param("id")
	schedules, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, schedules, pagination)
}

// Delete godoc
// @Summary Delete a candidate schedule
// @Tags Scheduler
// @Param id path string true "Schedule ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [delete]
func (h *ScheduleGeneratorHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
