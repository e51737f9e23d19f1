package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrInvalidHorizon marks a structurally malformed horizon.
var ErrInvalidHorizon = errors.New("invalid horizon")

const minutesPerDay = 24 * 60

var dayAbbrev = map[int]string{1: "MON", 2: "TUE", 3: "WED", 4: "THU", 5: "FRI", 6: "SAT", 7: "SUN"}

// Grid is the ordered universe of bookable slots for a horizon.
type Grid struct {
	horizon models.Horizon
	slots   []models.TimeSlot
	index   map[string]int
	dates   map[int][]time.Time
	days    []int
}

// BuildGrid enumerates slots for every teaching day that has at least one
// non-blackout date inside the horizon.
func BuildGrid(h models.Horizon) (*Grid, error) {
	if err := validateHorizon(h); err != nil {
		return nil, err
	}
	blackout := make(map[string]struct{}, len(h.BlackoutDates))
	for _, d := range h.BlackoutDates {
		blackout[d.Format("2006-01-02")] = struct{}{}
	}

	requested := make(map[int]struct{}, len(h.Days))
	for _, d := range h.Days {
		requested[int(d)] = struct{}{}
	}

	dates := make(map[int][]time.Time)
	start := truncateDate(h.StartDate)
	end := truncateDate(h.EndDate)
	for day := start; !day.After(end); day = day.AddDate(0, 0, 1) {
		dow := isoWeekday(day)
		if _, ok := requested[dow]; !ok {
			continue
		}
		if _, skip := blackout[day.Format("2006-01-02")]; skip {
			continue
		}
		dates[dow] = append(dates[dow], day)
	}

	days := make([]int, 0, len(dates))
	for dow := range dates {
		days = append(days, dow)
	}
	sort.Ints(days)

	parities := []models.WeekParity{models.ParityEvery}
	if h.AllowBiweekly {
		parities = append(parities, models.ParityOdd, models.ParityEven)
	}

	grid := &Grid{horizon: h, index: make(map[string]int), dates: dates, days: days}
	for _, dow := range days {
		for period := 1; period <= h.PeriodsPerDay; period++ {
			begin := h.DayStart + models.Clock((period-1)*(h.PeriodMinutes+h.BreakMinutes))
			for _, parity := range parities {
				id := fmt.Sprintf("%s-P%d", dayAbbrev[dow], period)
				if parity != models.ParityEvery {
					id = fmt.Sprintf("%s-%s", id, parity)
				}
				grid.index[id] = len(grid.slots)
				grid.slots = append(grid.slots, models.TimeSlot{
					ID:        id,
					DayOfWeek: dow,
					Start:     begin,
					End:       begin + models.Clock(h.PeriodMinutes),
					Parity:    parity,
				})
			}
		}
	}
	return grid, nil
}

func validateHorizon(h models.Horizon) error {
	switch {
	case h.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidHorizon)
	case h.StartDate.IsZero() || h.EndDate.IsZero():
		return fmt.Errorf("%w: start and end dates are required", ErrInvalidHorizon)
	case h.EndDate.Before(h.StartDate):
		return fmt.Errorf("%w: end date precedes start date", ErrInvalidHorizon)
	case len(h.Days) == 0:
		return fmt.Errorf("%w: at least one teaching day is required", ErrInvalidHorizon)
	case h.PeriodMinutes <= 0:
		return fmt.Errorf("%w: period length must be positive", ErrInvalidHorizon)
	case h.PeriodsPerDay <= 0:
		return fmt.Errorf("%w: periods per day must be positive", ErrInvalidHorizon)
	case h.BreakMinutes < 0:
		return fmt.Errorf("%w: break length must not be negative", ErrInvalidHorizon)
	case h.DayStart < 0:
		return fmt.Errorf("%w: day start must not be negative", ErrInvalidHorizon)
	}
	for _, d := range h.Days {
		if d < 1 || d > 7 {
			return fmt.Errorf("%w: day %d outside 1-7", ErrInvalidHorizon, d)
		}
	}
	last := int(h.DayStart) + h.PeriodsPerDay*h.PeriodMinutes + (h.PeriodsPerDay-1)*h.BreakMinutes
	if last > minutesPerDay {
		return fmt.Errorf("%w: periods run past midnight", ErrInvalidHorizon)
	}
	return nil
}

// Slots returns the ordered slots. The slice must not be modified.
func (g *Grid) Slots() []models.TimeSlot {
	return g.slots
}

// Days returns the teaching weekdays that survived blackout filtering.
func (g *Grid) Days() []int {
	return g.days
}

// Slot resolves a slot by identifier.
func (g *Grid) Slot(id string) (models.TimeSlot, bool) {
	idx, ok := g.index[id]
	if !ok {
		return models.TimeSlot{}, false
	}
	return g.slots[idx], true
}

// SessionDates lists the concrete dates a slot occurs on, honouring parity and blackouts.
func (g *Grid) SessionDates(slot models.TimeSlot) []time.Time {
	all := g.dates[slot.DayOfWeek]
	if slot.Parity == "" || slot.Parity == models.ParityEvery {
		return append([]time.Time(nil), all...)
	}
	anchor := weekStart(truncateDate(g.horizon.StartDate))
	var result []time.Time
	for _, d := range all {
		week := int(d.Sub(anchor).Hours()/24)/7 + 1
		odd := week%2 == 1
		if (slot.Parity == models.ParityOdd) == odd {
			result = append(result, d)
		}
	}
	return result
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isoWeekday(t time.Time) int {
	if t.Weekday() == time.Sunday {
		return 7
	}
	return int(t.Weekday())
}

func weekStart(t time.Time) time.Time {
	return t.AddDate(0, 0, -(isoWeekday(t) - 1))
}
