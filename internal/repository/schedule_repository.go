package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrVersionConflict signals that a compare-and-swap on a schedule version lost the race.
var ErrVersionConflict = errors.New("schedule version conflict")

const scheduleColumns = `id, horizon_id, status, version, score, stats, unplaced, created_at, updated_at, published_at`

const assignmentColumns = `schedule_id, id, demand_id, section_id, teacher_id, space_id, slot_id, day_of_week,
start_minute, end_minute, parity, occurrence, headcount, equipment, source, reservation_id`

type scheduleRow struct {
	ID          string         `db:"id"`
	HorizonID   string         `db:"horizon_id"`
	Status      string         `db:"status"`
	Version     int            `db:"version"`
	Score       float64        `db:"score"`
	Stats       types.JSONText `db:"stats"`
	Unplaced    types.JSONText `db:"unplaced"`
	CreatedAt   time.Time      `db:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at"`
	PublishedAt sql.NullTime   `db:"published_at"`
}

func scheduleRowFrom(s *models.Schedule) (scheduleRow, error) {
	stats, err := json.Marshal(s.Stats)
	if err != nil {
		return scheduleRow{}, fmt.Errorf("encode schedule stats: %w", err)
	}
	unplaced := s.Unplaced
	if unplaced == nil {
		unplaced = []models.UnplacedDemand{}
	}
	encodedUnplaced, err := json.Marshal(unplaced)
	if err != nil {
		return scheduleRow{}, fmt.Errorf("encode unplaced demands: %w", err)
	}
	row := scheduleRow{
		ID:        s.ID,
		HorizonID: s.HorizonID,
		Status:    string(s.Status),
		Version:   s.Version,
		Score:     s.Score,
		Stats:     types.JSONText(stats),
		Unplaced:  types.JSONText(encodedUnplaced),
		CreatedAt: s.CreatedAt,
		UpdatedAt: s.UpdatedAt,
	}
	if s.PublishedAt != nil {
		row.PublishedAt = sql.NullTime{Time: *s.PublishedAt, Valid: true}
	}
	return row, nil
}

func (row scheduleRow) toModel() (*models.Schedule, error) {
	s := &models.Schedule{
		ID:        row.ID,
		HorizonID: row.HorizonID,
		Status:    models.ScheduleStatus(row.Status),
		Version:   row.Version,
		Score:     row.Score,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
	if len(row.Stats) > 0 {
		if err := row.Stats.Unmarshal(&s.Stats); err != nil {
			return nil, fmt.Errorf("decode schedule stats: %w", err)
		}
	}
	if len(row.Unplaced) > 0 {
		if err := row.Unplaced.Unmarshal(&s.Unplaced); err != nil {
			return nil, fmt.Errorf("decode unplaced demands: %w", err)
		}
	}
	if row.PublishedAt.Valid {
		published := row.PublishedAt.Time
		s.PublishedAt = &published
	}
	return s, nil
}

type assignmentRow struct {
	ScheduleID    string         `db:"schedule_id"`
	ID            string         `db:"id"`
	DemandID      string         `db:"demand_id"`
	SectionID     string         `db:"section_id"`
	TeacherID     string         `db:"teacher_id"`
	SpaceID       string         `db:"space_id"`
	SlotID        string         `db:"slot_id"`
	DayOfWeek     int            `db:"day_of_week"`
	StartMinute   int            `db:"start_minute"`
	EndMinute     int            `db:"end_minute"`
	Parity        string         `db:"parity"`
	Occurrence    int            `db:"occurrence"`
	Headcount     int            `db:"headcount"`
	Equipment     pq.StringArray `db:"equipment"`
	Source        string         `db:"source"`
	ReservationID sql.NullString `db:"reservation_id"`
}

func assignmentRowFrom(scheduleID string, a models.Assignment) assignmentRow {
	parity := a.Slot.Parity
	if parity == "" {
		parity = models.ParityEvery
	}
	row := assignmentRow{
		ScheduleID:  scheduleID,
		ID:          a.ID,
		DemandID:    a.DemandID,
		SectionID:   a.SectionID,
		TeacherID:   a.TeacherID,
		SpaceID:     a.SpaceID,
		SlotID:      a.Slot.ID,
		DayOfWeek:   a.Slot.DayOfWeek,
		StartMinute: int(a.Slot.Start),
		EndMinute:   int(a.Slot.End),
		Parity:      string(parity),
		Occurrence:  a.Occurrence,
		Headcount:   a.Headcount,
		Equipment:   pq.StringArray(a.Equipment),
		Source:      string(a.Source),
	}
	if row.Equipment == nil {
		row.Equipment = pq.StringArray{}
	}
	if a.ReservationID != nil {
		row.ReservationID = sql.NullString{String: *a.ReservationID, Valid: true}
	}
	return row
}

func (row assignmentRow) toModel() models.Assignment {
	a := models.Assignment{
		ID:         row.ID,
		ScheduleID: row.ScheduleID,
		DemandID:   row.DemandID,
		SectionID:  row.SectionID,
		TeacherID:  row.TeacherID,
		SpaceID:    row.SpaceID,
		Slot: models.TimeSlot{
			ID:        row.SlotID,
			DayOfWeek: row.DayOfWeek,
			Start:     models.Clock(row.StartMinute),
			End:       models.Clock(row.EndMinute),
			Parity:    models.WeekParity(row.Parity),
		},
		Occurrence: row.Occurrence,
		Headcount:  row.Headcount,
		Equipment:  []string(row.Equipment),
		Source:     models.AssignmentSource(row.Source),
	}
	if row.ReservationID.Valid {
		id := row.ReservationID.String
		a.ReservationID = &id
	}
	return a
}

// ScheduleRepository persists schedules and their assignments.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs the repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

func (r *ScheduleRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Create inserts a schedule header followed by every assignment.
func (r *ScheduleRepository) Create(ctx context.Context, exec sqlx.ExtContext, schedule *models.Schedule) error {
	now := time.Now().UTC()
	if schedule.CreatedAt.IsZero() {
		schedule.CreatedAt = now
	}
	schedule.UpdatedAt = now
	if schedule.Status == "" {
		schedule.Status = models.ScheduleStatusCandidate
	}
	row, err := scheduleRowFrom(schedule)
	if err != nil {
		return err
	}
	target := r.exec(exec)
	const query = `INSERT INTO schedules (` + scheduleColumns + `)
VALUES (:id, :horizon_id, :status, :version, :score, :stats, :unplaced, :created_at, :updated_at, :published_at)`
	if _, err := sqlx.NamedExecContext(ctx, target, query, row); err != nil {
		return fmt.Errorf("insert schedule: %w", err)
	}
	return r.InsertAssignments(ctx, target, schedule.ID, schedule.Assignments)
}

// InsertAssignments adds assignments to an existing schedule.
func (r *ScheduleRepository) InsertAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignments []models.Assignment) error {
	const query = `INSERT INTO schedule_assignments (` + assignmentColumns + `)
VALUES (:schedule_id, :id, :demand_id, :section_id, :teacher_id, :space_id, :slot_id, :day_of_week,
:start_minute, :end_minute, :parity, :occurrence, :headcount, :equipment, :source, :reservation_id)`
	target := r.exec(exec)
	for i := range assignments {
		if _, err := sqlx.NamedExecContext(ctx, target, query, assignmentRowFrom(scheduleID, assignments[i])); err != nil {
			return fmt.Errorf("insert assignment %s: %w", assignments[i].ID, err)
		}
	}
	return nil
}

// MoveAssignment rewrites the placement of an existing assignment.
func (r *ScheduleRepository) MoveAssignment(ctx context.Context, exec sqlx.ExtContext, scheduleID string, assignment models.Assignment) error {
	const query = `UPDATE schedule_assignments SET space_id = :space_id, slot_id = :slot_id, day_of_week = :day_of_week,
start_minute = :start_minute, end_minute = :end_minute, parity = :parity
WHERE schedule_id = :schedule_id AND id = :id`
	res, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, assignmentRowFrom(scheduleID, assignment))
	if err != nil {
		return fmt.Errorf("move assignment: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("move assignment rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// FindByID loads the schedule header without assignments.
func (r *ScheduleRepository) FindByID(ctx context.Context, exec sqlx.ExtContext, id string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE id = $1`
	var row scheduleRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, id); err != nil {
		return nil, err
	}
	return row.toModel()
}

// FindPublished loads the published schedule header of a horizon.
func (r *ScheduleRepository) FindPublished(ctx context.Context, exec sqlx.ExtContext, horizonID string) (*models.Schedule, error) {
	query := `SELECT ` + scheduleColumns + ` FROM schedules WHERE horizon_id = $1 AND status = 'PUBLISHED'`
	var row scheduleRow
	if err := sqlx.GetContext(ctx, r.exec(exec), &row, query, horizonID); err != nil {
		return nil, err
	}
	return row.toModel()
}

// ListAssignments returns a schedule's assignments ordered by day, start, space, and ID.
func (r *ScheduleRepository) ListAssignments(ctx context.Context, exec sqlx.ExtContext, scheduleID string) ([]models.Assignment, error) {
	query := `SELECT ` + assignmentColumns + ` FROM schedule_assignments WHERE schedule_id = $1
ORDER BY day_of_week, start_minute, space_id, id`
	var rows []assignmentRow
	if err := sqlx.SelectContext(ctx, r.exec(exec), &rows, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	assignments := make([]models.Assignment, 0, len(rows))
	for _, row := range rows {
		assignments = append(assignments, row.toModel())
	}
	return assignments, nil
}

// Get loads a schedule together with its assignments.
func (r *ScheduleRepository) Get(ctx context.Context, id string) (*models.Schedule, error) {
	schedule, err := r.FindByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	assignments, err := r.ListAssignments(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	schedule.Assignments = assignments
	return schedule, nil
}

// List returns schedule headers matching the filter along with the total count.
func (r *ScheduleRepository) List(ctx context.Context, filter models.ScheduleFilter) ([]models.Schedule, int, error) {
	conditions := make([]string, 0, 2)
	args := make([]interface{}, 0, 2)
	if filter.HorizonID != "" {
		args = append(args, filter.HorizonID)
		conditions = append(conditions, fmt.Sprintf("horizon_id = $%d", len(args)))
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

	query := fmt.Sprintf(`SELECT %s FROM schedules%s ORDER BY created_at DESC, id LIMIT %d OFFSET %d`, scheduleColumns, where, limit, offset)
	var rows []scheduleRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list schedules: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM schedules`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count schedules: %w", err)
	}

	schedules := make([]models.Schedule, 0, len(rows))
	for _, row := range rows {
		schedule, err := row.toModel()
		if err != nil {
			return nil, 0, err
		}
		schedules = append(schedules, *schedule)
	}
	return schedules, total, nil
}

// Delete removes a candidate schedule. Published and superseded schedules are kept.
func (r *ScheduleRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM schedules WHERE id = $1 AND status = 'CANDIDATE'`, id)
	if err != nil {
		return fmt.Errorf("delete schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Supersede retires the published schedule when its version still matches expected.
func (r *ScheduleRepository) Supersede(ctx context.Context, exec sqlx.ExtContext, id string, expected int) error {
	const query = `UPDATE schedules SET status = 'SUPERSEDED', updated_at = $3
WHERE id = $1 AND version = $2 AND status = 'PUBLISHED'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, expected, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("supersede schedule: %w", err)
	}
	return versionGuard(res)
}

// Publish promotes a candidate to published with the given version.
func (r *ScheduleRepository) Publish(ctx context.Context, exec sqlx.ExtContext, id string, version int, at time.Time) error {
	const query = `UPDATE schedules SET status = 'PUBLISHED', version = $2, published_at = $3, updated_at = $3
WHERE id = $1 AND status = 'CANDIDATE'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, version, at)
	if err != nil {
		return fmt.Errorf("publish schedule: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("publish schedule rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// BumpVersion increments the published schedule version if it still equals expected
// and returns the new version. A lost race yields ErrVersionConflict.
func (r *ScheduleRepository) BumpVersion(ctx context.Context, exec sqlx.ExtContext, id string, expected int) (int, error) {
	const query = `UPDATE schedules SET version = version + 1, updated_at = $3
WHERE id = $1 AND version = $2 AND status = 'PUBLISHED'`
	res, err := r.exec(exec).ExecContext(ctx, query, id, expected, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("bump schedule version: %w", err)
	}
	if err := versionGuard(res); err != nil {
		return 0, err
	}
	return expected + 1, nil
}

func versionGuard(res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("schedule version rows affected: %w", err)
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	return nil
}
