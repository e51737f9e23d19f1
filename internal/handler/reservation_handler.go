package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/internal/service"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
	"github.com/noah-isme/faculty-scheduler-api/pkg/response"
)

type reservationWorkflow interface {
	Submit(ctx context.Context, input dto.SubmitReservationRequest, actor string) (*dto.SubmitResult, error)
	Validate(ctx context.Context, id string, input dto.ValidateRequest, actor string) (*dto.ValidationResult, error)
	Preview(ctx context.Context, input dto.ConflictPreviewRequest) (*dto.ConflictPreviewResult, error)
	Get(ctx context.Context, id string) (*models.ReservationRequest, error)
	List(ctx context.Context, query dto.ReservationQuery) ([]models.ReservationRequest, *models.Pagination, error)
}

// ReservationHandler exposes the reservation validation workflow.
type ReservationHandler struct {
	service reservationWorkflow
}

// NewReservationHandler constructs the handler.
func NewReservationHandler(svc *service.ReservationService) *ReservationHandler {
	return &ReservationHandler{service: svc}
}

// Submit godoc
// @Summary Submit a reservation or schedule-change request
// @Description Conflicts found at submission are advisory; the request is stored as PENDING.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.SubmitReservationRequest true "Reservation payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /reservations [post]
func (h *ReservationHandler) Submit(c *gin.Context) {
	var req dto.SubmitReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reservation payload"))
		return
	}
	result, err := h.service.Submit(c.Request.Context(), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Validate godoc
// @Summary Approve, reject, defer or resubmit a request
// @Description A blocked approval returns 200 with status PENDING and the blocking conflicts.
// @Tags Reservations
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ValidateRequest true "Validation payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /reservations/{id}/validate [post]
func (h *ReservationHandler) Validate(c *gin.Context) {
	var req dto.ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid validation payload"))
		return
	}
	if !mayValidate(c, models.ValidationAction(req.Action)) {
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "only approvers can "+req.Action+" requests"))
		return
	}
	result, err := h.service.Validate(c.Request.Context(), c.Param("id"), req, actorID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Preview godoc
// @Summary Report conflicts for a candidate booking
// @Tags Reservations
// @Accept json
// @Produce json
// @Param payload body dto.ConflictPreviewRequest true "Candidate booking"
// @Success 200 {object} response.Envelope
// @Router /conflicts/preview [post]
func (h *ReservationHandler) Preview(c *gin.Context) {
	var req dto.ConflictPreviewRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid conflict preview payload"))
		return
	}
	result, err := h.service.Preview(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Get godoc
// @Summary Get a reservation request
// @Tags Reservations
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /reservations/{id} [get]
func (h *ReservationHandler) Get(c *gin.Context) {
	req, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, req, nil)
}

// List godoc
// @Summary List reservation requests
// @Tags Reservations
// @Produce json
// @Param horizonId query string false "Horizon ID"
// @Param spaceId query string false "Space ID"
// @Param requesterId query string false "Requester ID"
// @Param status query []string false "Status filter" collectionFormat(multi)
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {object} response.Envelope
// @Router /reservations [get]
func (h *ReservationHandler) List(c *gin.Context) {
	var query dto.ReservationQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid query parameters"))
		return
	}
	requests, pagination, err := h.service.List(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, pagination)
}

// mayValidate lets anyone resubmit; the other actions need an approving role.
func mayValidate(c *gin.Context, action models.ValidationAction) bool {
	if action == models.ActionResubmit {
		return true
	}
	claims := claimsFromContext(c)
	if claims == nil {
		return false
	}
	switch claims.Role {
	case models.RoleAdmin, models.RoleApprover, models.RoleScheduler:
		return true
	}
	return false
}
