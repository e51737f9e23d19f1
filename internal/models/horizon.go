package models

import (
	"time"

	"github.com/lib/pq"
)

// Horizon is a scheduling period (typically a semester) and its time grid settings.
type Horizon struct {
	ID            string        `db:"id" json:"id"`
	Name          string        `db:"name" json:"name"`
	StartDate     time.Time     `db:"start_date" json:"startDate"`
	EndDate       time.Time     `db:"end_date" json:"endDate"`
	Days          pq.Int64Array `db:"days" json:"days"`
	DayStart      Clock         `db:"day_start" json:"dayStart"`
	PeriodMinutes int           `db:"period_minutes" json:"periodMinutes"`
	PeriodsPerDay int           `db:"periods_per_day" json:"periodsPerDay"`
	BreakMinutes  int           `db:"break_minutes" json:"breakMinutes"`
	BlackoutDates []time.Time   `db:"-" json:"blackoutDates,omitempty"`
	AllowBiweekly bool          `db:"allow_biweekly" json:"allowBiweekly"`
	CreatedAt     time.Time     `db:"created_at" json:"createdAt"`
}
