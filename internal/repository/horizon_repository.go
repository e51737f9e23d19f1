package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

const dateLayout = "2006-01-02"

type horizonRow struct {
	ID            string         `db:"id"`
	Name          string         `db:"name"`
	StartDate     time.Time      `db:"start_date"`
	EndDate       time.Time      `db:"end_date"`
	Days          pq.Int64Array  `db:"days"`
	DayStart      int            `db:"day_start"`
	PeriodMinutes int            `db:"period_minutes"`
	PeriodsPerDay int            `db:"periods_per_day"`
	BreakMinutes  int            `db:"break_minutes"`
	BlackoutDates pq.StringArray `db:"blackout_dates"`
	AllowBiweekly bool           `db:"allow_biweekly"`
	CreatedAt     time.Time      `db:"created_at"`
}

func (row horizonRow) toModel() (models.Horizon, error) {
	h := models.Horizon{
		ID:            row.ID,
		Name:          row.Name,
		StartDate:     row.StartDate,
		EndDate:       row.EndDate,
		Days:          row.Days,
		DayStart:      models.Clock(row.DayStart),
		PeriodMinutes: row.PeriodMinutes,
		PeriodsPerDay: row.PeriodsPerDay,
		BreakMinutes:  row.BreakMinutes,
		AllowBiweekly: row.AllowBiweekly,
		CreatedAt:     row.CreatedAt,
	}
	for _, raw := range row.BlackoutDates {
		d, err := time.Parse(dateLayout, raw)
		if err != nil {
			return models.Horizon{}, fmt.Errorf("horizon %s blackout date %q: %w", row.ID, raw, err)
		}
		h.BlackoutDates = append(h.BlackoutDates, d)
	}
	return h, nil
}

func horizonRowFrom(h models.Horizon) horizonRow {
	row := horizonRow{
		ID:            h.ID,
		Name:          h.Name,
		StartDate:     h.StartDate,
		EndDate:       h.EndDate,
		Days:          h.Days,
		DayStart:      int(h.DayStart),
		PeriodMinutes: h.PeriodMinutes,
		PeriodsPerDay: h.PeriodsPerDay,
		BreakMinutes:  h.BreakMinutes,
		BlackoutDates: pq.StringArray{},
		AllowBiweekly: h.AllowBiweekly,
		CreatedAt:     h.CreatedAt,
	}
	for _, d := range h.BlackoutDates {
		row.BlackoutDates = append(row.BlackoutDates, d.Format(dateLayout))
	}
	return row
}

// HorizonRepository persists scheduling horizons.
type HorizonRepository struct {
	db *sqlx.DB
}

// NewHorizonRepository constructs repository.
func NewHorizonRepository(db *sqlx.DB) *HorizonRepository {
	return &HorizonRepository{db: db}
}

// FindByID loads a horizon and decodes its blackout dates.
func (r *HorizonRepository) FindByID(ctx context.Context, id string) (*models.Horizon, error) {
	const query = `SELECT id, name, start_date, end_date, days, day_start, period_minutes, periods_per_day,
break_minutes, blackout_dates, allow_biweekly, created_at FROM horizons WHERE id = $1`
	var row horizonRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		return nil, err
	}
	h, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// Create inserts a horizon.
func (r *HorizonRepository) Create(ctx context.Context, h *models.Horizon) error {
	if h.CreatedAt.IsZero() {
		h.CreatedAt = time.Now().UTC()
	}
	const query = `
INSERT INTO horizons (id, name, start_date, end_date, days, day_start, period_minutes, periods_per_day,
    break_minutes, blackout_dates, allow_biweekly, created_at)
VALUES (:id, :name, :start_date, :end_date, :days, :day_start, :period_minutes, :periods_per_day,
    :break_minutes, :blackout_dates, :allow_biweekly, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, horizonRowFrom(*h)); err != nil {
		return fmt.Errorf("insert horizon: %w", err)
	}
	return nil
}
