package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// DemandRepository reads teaching demand units and teacher availability for a horizon.
type DemandRepository struct {
	db *sqlx.DB
}

// NewDemandRepository constructs repository.
func NewDemandRepository(db *sqlx.DB) *DemandRepository {
	return &DemandRepository{db: db}
}

// ListByHorizon returns the horizon's demand units ordered by ID.
func (r *DemandRepository) ListByHorizon(ctx context.Context, horizonID string) ([]models.DemandUnit, error) {
	const query = `SELECT id, horizon_id, section_id, course_code, teacher_id, expected_headcount, required_equipment,
weekly_occurrences, priority, biweekly, preferred_slots, created_at
FROM demand_units WHERE horizon_id = $1 ORDER BY id`
	var demands []models.DemandUnit
	if err := r.db.SelectContext(ctx, &demands, query, horizonID); err != nil {
		return nil, fmt.Errorf("list demand units: %w", err)
	}
	return demands, nil
}

// UpsertDemands replaces demand units by ID inside the caller's transaction when exec is set.
func (r *DemandRepository) UpsertDemands(ctx context.Context, exec sqlx.ExtContext, demands []models.DemandUnit) error {
	if len(demands) == 0 {
		return nil
	}
	target := exec
	if target == nil {
		target = r.db
	}
	now := time.Now().UTC()
	for i := range demands {
		if demands[i].RequiredEquipment == nil {
			demands[i].RequiredEquipment = pq.StringArray{}
		}
		if demands[i].PreferredSlots == nil {
			demands[i].PreferredSlots = pq.StringArray{}
		}
		if demands[i].CreatedAt.IsZero() {
			demands[i].CreatedAt = now
		}
	}
	const query = `
INSERT INTO demand_units (id, horizon_id, section_id, course_code, teacher_id, expected_headcount, required_equipment,
    weekly_occurrences, priority, biweekly, preferred_slots, created_at)
VALUES (:id, :horizon_id, :section_id, :course_code, :teacher_id, :expected_headcount, :required_equipment,
    :weekly_occurrences, :priority, :biweekly, :preferred_slots, :created_at)
ON CONFLICT (id) DO UPDATE SET section_id = EXCLUDED.section_id, course_code = EXCLUDED.course_code,
    teacher_id = EXCLUDED.teacher_id, expected_headcount = EXCLUDED.expected_headcount,
    required_equipment = EXCLUDED.required_equipment, weekly_occurrences = EXCLUDED.weekly_occurrences,
    priority = EXCLUDED.priority, biweekly = EXCLUDED.biweekly, preferred_slots = EXCLUDED.preferred_slots`
	for i := range demands {
		if _, err := sqlx.NamedExecContext(ctx, target, query, demands[i]); err != nil {
			return fmt.Errorf("upsert demand unit %s: %w", demands[i].ID, err)
		}
	}
	return nil
}

// ListAvailability returns teacher availability rules for the horizon.
func (r *DemandRepository) ListAvailability(ctx context.Context, horizonID string) ([]models.TeacherAvailability, error) {
	const query = `SELECT teacher_id, horizon_id, blocked_slots, max_load_per_day, updated_at
FROM teacher_availability WHERE horizon_id = $1 ORDER BY teacher_id`
	var availability []models.TeacherAvailability
	if err := r.db.SelectContext(ctx, &availability, query, horizonID); err != nil {
		return nil, fmt.Errorf("list teacher availability: %w", err)
	}
	return availability, nil
}

// UpsertAvailability stores one teacher's availability rules.
func (r *DemandRepository) UpsertAvailability(ctx context.Context, availability *models.TeacherAvailability) error {
	if availability.BlockedSlots == nil {
		availability.BlockedSlots = pq.StringArray{}
	}
	availability.UpdatedAt = time.Now().UTC()
	const query = `
INSERT INTO teacher_availability (teacher_id, horizon_id, blocked_slots, max_load_per_day, updated_at)
VALUES (:teacher_id, :horizon_id, :blocked_slots, :max_load_per_day, :updated_at)
ON CONFLICT (teacher_id, horizon_id) DO UPDATE SET blocked_slots = EXCLUDED.blocked_slots,
    max_load_per_day = EXCLUDED.max_load_per_day, updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("upsert teacher availability: %w", err)
	}
	return nil
}
