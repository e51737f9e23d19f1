package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrStateChanged is returned when a guarded request update finds a different status than expected.
var ErrStateChanged = errors.New("reservation state changed")

const reservationColumns = `id, horizon_id, kind, space_id, slots, target_assignment_id, requester_id, teacher_id,
purpose, headcount, required_equipment, priority_class, status, history, last_conflicts, submitted_at, updated_at`

type reservationRow struct {
	ID                 string         `db:"id"`
	HorizonID          string         `db:"horizon_id"`
	Kind               string         `db:"kind"`
	SpaceID            string         `db:"space_id"`
	Slots              types.JSONText `db:"slots"`
	TargetAssignmentID sql.NullString `db:"target_assignment_id"`
	RequesterID        string         `db:"requester_id"`
	TeacherID          string         `db:"teacher_id"`
	Purpose            string         `db:"purpose"`
	Headcount          int            `db:"headcount"`
	RequiredEquipment  pq.StringArray `db:"required_equipment"`
	PriorityClass      string         `db:"priority_class"`
	Status             string         `db:"status"`
	History            types.JSONText `db:"history"`
	LastConflicts      types.JSONText `db:"last_conflicts"`
	SubmittedAt        time.Time      `db:"submitted_at"`
	UpdatedAt          time.Time      `db:"updated_at"`
}

func encodeJSON(value interface{}, empty string) (types.JSONText, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, err
	}
	if string(raw) == "null" {
		return types.JSONText(empty), nil
	}
	return types.JSONText(raw), nil
}

func reservationRowFrom(req *models.ReservationRequest) (reservationRow, error) {
	slots, err := encodeJSON(req.Slots, "[]")
	if err != nil {
		return reservationRow{}, fmt.Errorf("encode slots: %w", err)
	}
	history, err := encodeJSON(req.History, "[]")
	if err != nil {
		return reservationRow{}, fmt.Errorf("encode history: %w", err)
	}
	conflicts, err := encodeJSON(req.LastConflicts, "[]")
	if err != nil {
		return reservationRow{}, fmt.Errorf("encode conflicts: %w", err)
	}
	row := reservationRow{
		ID:                req.ID,
		HorizonID:         req.HorizonID,
		Kind:              string(req.Kind),
		SpaceID:           req.SpaceID,
		Slots:             slots,
		RequesterID:       req.RequesterID,
		TeacherID:         req.TeacherID,
		Purpose:           req.Purpose,
		Headcount:         req.Headcount,
		RequiredEquipment: pq.StringArray(req.RequiredEquipment),
		PriorityClass:     string(req.PriorityClass),
		Status:            string(req.Status),
		History:           history,
		LastConflicts:     conflicts,
		SubmittedAt:       req.SubmittedAt,
		UpdatedAt:         req.UpdatedAt,
	}
	if row.RequiredEquipment == nil {
		row.RequiredEquipment = pq.StringArray{}
	}
	if req.TargetAssignmentID != nil {
		row.TargetAssignmentID = sql.NullString{String: *req.TargetAssignmentID, Valid: true}
	}
	return row, nil
}

func (row reservationRow) toModel() (*models.ReservationRequest, error) {
	req := &models.ReservationRequest{
		ID:                row.ID,
		HorizonID:         row.HorizonID,
		Kind:              models.ReservationKind(row.Kind),
		SpaceID:           row.SpaceID,
		RequesterID:       row.RequesterID,
		TeacherID:         row.TeacherID,
		Purpose:           row.Purpose,
		Headcount:         row.Headcount,
		RequiredEquipment: []string(row.RequiredEquipment),
		PriorityClass:     models.PriorityClass(row.PriorityClass),
		Status:            models.ReservationStatus(row.Status),
		SubmittedAt:       row.SubmittedAt,
		UpdatedAt:         row.UpdatedAt,
	}
	if row.TargetAssignmentID.Valid {
		target := row.TargetAssignmentID.String
		req.TargetAssignmentID = &target
	}
	if len(row.Slots) > 0 {
		if err := row.Slots.Unmarshal(&req.Slots); err != nil {
			return nil, fmt.Errorf("decode slots for %s: %w", row.ID, err)
		}
	}
	if len(row.History) > 0 {
		if err := row.History.Unmarshal(&req.History); err != nil {
			return nil, fmt.Errorf("decode history for %s: %w", row.ID, err)
		}
	}
	if len(row.LastConflicts) > 0 {
		if err := row.LastConflicts.Unmarshal(&req.LastConflicts); err != nil {
			return nil, fmt.Errorf("decode conflicts for %s: %w", row.ID, err)
		}
	}
	return req, nil
}

func reservationsFromRows(rows []reservationRow) ([]models.ReservationRequest, error) {
	out := make([]models.ReservationRequest, 0, len(rows))
	for _, row := range rows {
		req, err := row.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, *req)
	}
	return out, nil
}

// ReservationRepository persists reservation and schedule-change requests.
type ReservationRepository struct {
	db *sqlx.DB
}

// NewReservationRepository constructs the repository.
func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a new request.
func (r *ReservationRepository) Create(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.SubmittedAt.IsZero() {
		req.SubmittedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.SubmittedAt
	}
	row, err := reservationRowFrom(req)
	if err != nil {
		return err
	}
	const query = `INSERT INTO reservation_requests (` + reservationColumns + `)
VALUES (:id, :horizon_id, :kind, :space_id, :slots, :target_assignment_id, :requester_id, :teacher_id,
:purpose, :headcount, :required_equipment, :priority_class, :status, :history, :last_conflicts, :submitted_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, row); err != nil {
		return fmt.Errorf("insert reservation request: %w", err)
	}
	return nil
}

// FindByID loads a single request.
func (r *ReservationRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.ReservationRequest, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservation_requests WHERE id = $1`
	var row reservationRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// ListActive returns every pending or approved request of the horizon in submission order.
func (r *ReservationRepository) ListActive(ctx context.Context, exec sqlx.ExtContext, horizonID string) ([]models.ReservationRequest, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservation_requests
WHERE horizon_id = $1 AND status IN ('PENDING', 'APPROVED') ORDER BY submitted_at, id`
	var rows []reservationRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, horizonID); err != nil {
		return nil, fmt.Errorf("list active reservations: %w", err)
	}
	return reservationsFromRows(rows)
}

// List returns requests matching the filter together with the total count.
func (r *ReservationRepository) List(ctx context.Context, filter models.ReservationFilter) ([]models.ReservationRequest, int, error) {
	conditions := make([]string, 0, 4)
	args := make([]interface{}, 0, 4)
	if filter.HorizonID != "" {
		args = append(args, filter.HorizonID)
		conditions = append(conditions, fmt.Sprintf("horizon_id = $%d", len(args)))
	}
	if filter.SpaceID != "" {
		args = append(args, filter.SpaceID)
		conditions = append(conditions, fmt.Sprintf("space_id = $%d", len(args)))
	}
	if filter.RequesterID != "" {
		args = append(args, filter.RequesterID)
		conditions = append(conditions, fmt.Sprintf("requester_id = $%d", len(args)))
	}
	if len(filter.Status) > 0 {
		statuses := make([]string, 0, len(filter.Status))
		for _, status := range filter.Status {
			statuses = append(statuses, string(status))
		}
		args = append(args, pq.Array(statuses))
		conditions = append(conditions, fmt.Sprintf("status = ANY($%d)", len(args)))
	}
	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}

	query := fmt.Sprintf(`SELECT %s FROM reservation_requests%s ORDER BY submitted_at DESC, id LIMIT %d OFFSET %d`,
		reservationColumns, where, limit, offset)
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list reservations: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM reservation_requests`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count reservations: %w", err)
	}
	requests, err := reservationsFromRows(rows)
	if err != nil {
		return nil, 0, err
	}
	return requests, total, nil
}

// UpdateState persists status, history, last conflicts and req.UpdatedAt when the
// stored status still equals expected. Callers stamp UpdatedAt.
func (r *ReservationRepository) UpdateState(ctx context.Context, exec sqlx.ExtContext, req *models.ReservationRequest, expected models.ReservationStatus) error {
	row, err := reservationRowFrom(req)
	if err != nil {
		return err
	}
	const query = `UPDATE reservation_requests SET status = $2, history = $3, last_conflicts = $4, updated_at = $5
WHERE id = $1 AND status = $6`
	res, err := r.exec(exec).ExecContext(ctx, query, row.ID, row.Status, row.History, row.LastConflicts, row.UpdatedAt, string(expected))
	if err != nil {
		return fmt.Errorf("update reservation state: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update reservation rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStateChanged
	}
	return nil
}
