package handler

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/dto"
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	appErrors "github.com/noah-isme/faculty-scheduler-api/pkg/errors"
)

type reservationWorkflowMock struct {
	submitted dto.SubmitReservationRequest
	validated dto.ValidateRequest
	actor     string
	calls     int
}

func (m *reservationWorkflowMock) Submit(ctx context.Context, input dto.SubmitReservationRequest, actor string) (*dto.SubmitResult, error) {
	m.submitted = input
	m.actor = actor
	return &dto.SubmitResult{
		Request:   &models.ReservationRequest{ID: "req-1", Status: models.ReservationPending},
		Conflicts: []models.Conflict{},
	}, nil
}

func (m *reservationWorkflowMock) Validate(ctx context.Context, id string, input dto.ValidateRequest, actor string) (*dto.ValidationResult, error) {
	m.calls++
	m.validated = input
	m.actor = actor
	if id == "stale" {
		return nil, appErrors.Clone(appErrors.ErrConcurrentModification, "schedule moved on")
	}
	return &dto.ValidationResult{
		Request: &models.ReservationRequest{ID: id, Status: models.ReservationPending},
		Status:  models.ReservationPending,
		Conflicts: []models.Conflict{{
			Kind:     models.ConflictSpaceDoubleBooking,
			SpaceID:  "amphi-a",
			Blocking: true,
		}},
		ScheduleVersion: 4,
	}, nil
}

func (m *reservationWorkflowMock) Preview(ctx context.Context, input dto.ConflictPreviewRequest) (*dto.ConflictPreviewResult, error) {
	return &dto.ConflictPreviewResult{Conflicts: []models.Conflict{}, Admissible: true, ScheduleVersion: 4}, nil
}

func (m *reservationWorkflowMock) Get(ctx context.Context, id string) (*models.ReservationRequest, error) {
	return nil, appErrors.Clone(appErrors.ErrNotFound, "reservation request not found")
}

func (m *reservationWorkflowMock) List(ctx context.Context, query dto.ReservationQuery) ([]models.ReservationRequest, *models.Pagination, error) {
	return []models.ReservationRequest{}, &models.Pagination{Limit: 20}, nil
}

func newReservationRouter(mock *reservationWorkflowMock, role models.UserRole) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := &ReservationHandler{service: mock}
	router := gin.New()
	router.Use(withClaims(role))
	router.POST("/reservations", h.Submit)
	router.GET("/reservations/:id", h.Get)
	router.POST("/reservations/:id/validate", h.Validate)
	router.POST("/conflicts/preview", h.Preview)
	return router
}

func postJSON(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

func TestReservationHandlerSubmit(t *testing.T) {
	mock := &reservationWorkflowMock{}
	router := newReservationRouter(mock, models.RoleStaff)

	w := postJSON(router, "/reservations", `{"horizonId":"horizon-1","spaceId":"amphi-a","slots":[{"dayOfWeek":1,"start":"09:00","end":"11:00"}],"headcount":30}`)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "amphi-a", mock.submitted.SpaceID)
	require.Equal(t, "09:00", mock.submitted.Slots[0].Start)
	require.Equal(t, "user-1", mock.actor)
}

func TestReservationHandlerSubmitMalformed(t *testing.T) {
	router := newReservationRouter(&reservationWorkflowMock{}, models.RoleStaff)

	w := postJSON(router, "/reservations", `{"horizonId":`)

	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, appErrors.ErrValidation.Code, decodeError(t, w))
}

func TestReservationHandlerBlockedApprovalReturnsPending(t *testing.T) {
	mock := &reservationWorkflowMock{}
	router := newReservationRouter(mock, models.RoleApprover)

	w := postJSON(router, "/reservations/req-1/validate", `{"action":"approve","comment":"ok","expectedVersion":4}`)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"status":"PENDING"`)
	require.Contains(t, w.Body.String(), `"SPACE_DOUBLE_BOOKING"`)
	require.NotNil(t, mock.validated.ExpectedVersion)
	require.Equal(t, 4, *mock.validated.ExpectedVersion)
}

func TestReservationHandlerValidateRoleGate(t *testing.T) {
	mock := &reservationWorkflowMock{}
	router := newReservationRouter(mock, models.RoleTeacher)

	w := postJSON(router, "/reservations/req-1/validate", `{"action":"reject"}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Zero(t, mock.calls)

	w = postJSON(router, "/reservations/req-1/validate", `{"action":"resubmit"}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, 1, mock.calls)
}

func TestReservationHandlerConcurrentModification(t *testing.T) {
	router := newReservationRouter(&reservationWorkflowMock{}, models.RoleScheduler)

	w := postJSON(router, "/reservations/stale/validate", `{"action":"approve"}`)

	require.Equal(t, http.StatusConflict, w.Code)
	require.Equal(t, appErrors.ErrConcurrentModification.Code, decodeError(t, w))
}

func TestReservationHandlerPreviewAndGet(t *testing.T) {
	router := newReservationRouter(&reservationWorkflowMock{}, models.RoleStaff)

	w := postJSON(router, "/conflicts/preview", `{"horizonId":"horizon-1","spaceId":"room-c","slots":[{"dayOfWeek":2,"start":"14:00","end":"15:00"}]}`)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"admissible":true`)

	w = httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/reservations/missing", nil)
	router.ServeHTTP(w, req)
	require.Equal(t, http.StatusNotFound, w.Code)
}
