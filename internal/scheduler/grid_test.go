package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

func TestBuildGridEnumeratesPeriods(t *testing.T) {
	grid, err := BuildGrid(testHorizon(2, 1, 3))
	require.NoError(t, err)

	slots := grid.Slots()
	require.Len(t, slots, 4)
	assert.Equal(t, "MON-P1", slots[0].ID)
	assert.Equal(t, "08:00", slots[0].Start.String())
	assert.Equal(t, "09:30", slots[0].End.String())
	assert.Equal(t, "MON-P2", slots[1].ID)
	assert.Equal(t, "09:45", slots[1].Start.String())
	assert.Equal(t, "WED-P1", slots[2].ID)
	assert.Equal(t, []int{1, 3}, grid.Days())
	_, ok := grid.Slot("FRI-P1")
	assert.False(t, ok)
}

func TestBuildGridDropsFullyBlackedOutDays(t *testing.T) {
	h := testHorizon(1, 1, 3)
	for _, day := range []int{7, 14, 21, 28} {
		h.BlackoutDates = append(h.BlackoutDates, time.Date(2026, 1, day, 0, 0, 0, 0, time.UTC))
	}
	grid, err := BuildGrid(h)
	require.NoError(t, err)

	assert.Equal(t, []int{1}, grid.Days())
	_, ok := grid.Slot("WED-P1")
	assert.False(t, ok)
}

func TestBuildGridBiweeklySessionDates(t *testing.T) {
	h := testHorizon(1, 1)
	h.AllowBiweekly = true
	grid, err := BuildGrid(h)
	require.NoError(t, err)
	require.Len(t, grid.Slots(), 3)

	odd, ok := grid.Slot("MON-P1-ODD")
	require.True(t, ok)
	dates := grid.SessionDates(odd)
	require.Len(t, dates, 2)
	assert.Equal(t, 5, dates[0].Day())
	assert.Equal(t, 19, dates[1].Day())

	every, _ := grid.Slot("MON-P1")
	assert.Len(t, grid.SessionDates(every), 4)
	assert.True(t, odd.Overlaps(every))
	even, _ := grid.Slot("MON-P1-EVEN")
	assert.False(t, odd.Overlaps(even))
}

func TestBuildGridRejectsInvalidHorizon(t *testing.T) {
	cases := map[string]func(h *models.Horizon){
		"missing id":     func(h *models.Horizon) { h.ID = "" },
		"reversed dates": func(h *models.Horizon) { h.EndDate = h.StartDate.AddDate(0, 0, -1) },
		"no days":        func(h *models.Horizon) { h.Days = nil },
		"bad day":        func(h *models.Horizon) { h.Days = []int64{8} },
		"zero period":    func(h *models.Horizon) { h.PeriodMinutes = 0 },
		"past midnight":  func(h *models.Horizon) { h.PeriodsPerDay = 12 },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			h := testHorizon(2, 1)
			mutate(&h)
			_, err := BuildGrid(h)
			assert.ErrorIs(t, err, ErrInvalidHorizon)
		})
	}
}
