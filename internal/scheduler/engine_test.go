package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

func newTestEngine() *Engine {
	engine := NewEngine(DefaultConfig())
	fixed := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	engine.now = func() time.Time { return fixed }
	return engine
}

func TestGenerateSingleLargeRoomLeavesOneDemandUnplaced(t *testing.T) {
	first := testDemand("d-a", "t1", 55, 1)
	first.Priority = 2
	second := testDemand("d-b", "t2", 52, 1)

	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID: "sched-1",
		Horizon:    testHorizon(1, 1),
		Spaces:     []models.Space{testSpace("big", 60), testSpace("small", 30)},
		Demands:    []models.DemandUnit{second, first},
	})
	require.NoError(t, err)

	require.Len(t, out.Assignments, 1)
	assert.Equal(t, "d-a", out.Assignments[0].DemandID)
	assert.Equal(t, "big", out.Assignments[0].SpaceID)
	assert.Equal(t, "sched-1", out.Assignments[0].ScheduleID)
	require.Len(t, out.Unplaced, 1)
	assert.Equal(t, "d-b", out.Unplaced[0].DemandID)
	assert.Equal(t, models.UnplacedNoCapacity, out.Unplaced[0].Reason)
	assert.Equal(t, 0, out.Unplaced[0].Placed)
	assert.Equal(t, 2, out.Stats.Requested)
	assert.Equal(t, 1, out.Stats.Placed)
}

func TestGenerateReportsTeacherClash(t *testing.T) {
	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID: "sched-1",
		Horizon:    testHorizon(1, 1),
		Spaces:     []models.Space{testSpace("big-1", 60), testSpace("big-2", 60)},
		Demands:    []models.DemandUnit{testDemand("d-a", "t1", 55, 1), testDemand("d-b", "t1", 52, 1)},
	})
	require.NoError(t, err)

	require.Len(t, out.Assignments, 1)
	require.Len(t, out.Unplaced, 1)
	assert.Equal(t, models.UnplacedNoSlotWithoutTeacherClash, out.Unplaced[0].Reason)
}

func TestGenerateReportsDailyLoadCap(t *testing.T) {
	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID:   "sched-1",
		Horizon:      testHorizon(2, 1),
		Spaces:       []models.Space{testSpace("room", 40)},
		Demands:      []models.DemandUnit{testDemand("d-a", "t1", 20, 2)},
		Availability: []models.TeacherAvailability{{TeacherID: "t1", MaxLoadPerDay: 1}},
	})
	require.NoError(t, err)

	require.Len(t, out.Assignments, 1)
	require.Len(t, out.Unplaced, 1)
	assert.Equal(t, models.UnplacedTeacherDailyLoad, out.Unplaced[0].Reason)
	assert.Equal(t, 1, out.Unplaced[0].Placed)
	assert.Equal(t, 2, out.Unplaced[0].Requested)
}

func TestGenerateReportsInfeasibleDomain(t *testing.T) {
	d := testDemand("d-a", "t1", 20, 1)
	d.RequiredEquipment = []string{"fume-hood"}
	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID: "sched-1",
		Horizon:    testHorizon(2, 1),
		Spaces:     []models.Space{testSpace("room", 40)},
		Demands:    []models.DemandUnit{d},
	})
	require.NoError(t, err)

	assert.Empty(t, out.Assignments)
	require.Len(t, out.Unplaced, 1)
	assert.Equal(t, models.UnplacedNoFeasibleDomain, out.Unplaced[0].Reason)
	assert.Contains(t, out.Unplaced[0].Detail, "fume-hood")
}

func generationFixture() Input {
	lab := testSpace("lab", 30, "projector", "fume-hood")
	demands := []models.DemandUnit{
		testDemand("algebra", "t1", 40, 3),
		testDemand("calculus", "t1", 35, 2),
		testDemand("chemistry", "t2", 25, 2),
		testDemand("history", "t3", 90, 2),
		testDemand("physics", "t2", 28, 2),
		testDemand("seminar", "t4", 12, 1),
	}
	demands[2].RequiredEquipment = []string{"fume-hood"}
	demands[3].Priority = 3
	demands[5].PreferredSlots = []string{"WED-P3"}
	return Input{
		ScheduleID: "sched-1",
		Horizon:    testHorizon(3, 1, 2, 3),
		Spaces: []models.Space{
			testSpace("hall", 120, "projector"),
			testSpace("room-1", 45),
			testSpace("room-2", 45, "projector"),
			lab,
		},
		Demands: demands,
		Availability: []models.TeacherAvailability{
			{TeacherID: "t1", BlockedSlots: []string{"MON-P1"}, MaxLoadPerDay: 2},
			{TeacherID: "t3", BlockedSlots: []string{"TUE-P1", "TUE-P2", "TUE-P3"}},
		},
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	engine := newTestEngine()
	first, err := engine.Generate(context.Background(), generationFixture())
	require.NoError(t, err)
	second, err := engine.Generate(context.Background(), generationFixture())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestGenerateProducesConflictFreeSchedule(t *testing.T) {
	in := generationFixture()
	out, err := newTestEngine().Generate(context.Background(), in)
	require.NoError(t, err)

	assert.Empty(t, out.Unplaced)
	assert.Equal(t, out.Stats.Requested, out.Stats.Placed)

	violations, err := Audit(in.Spaces, out.Assignments)
	require.NoError(t, err)
	assert.Empty(t, violations)

	perDemand := map[string]int{}
	load := map[string]map[int]int{}
	for _, a := range out.Assignments {
		perDemand[a.DemandID]++
		if a.TeacherID == "t1" {
			assert.NotEqual(t, "MON-P1", a.Slot.ID)
		}
		if a.TeacherID == "t3" {
			assert.NotEqual(t, 2, a.Slot.DayOfWeek)
		}
		if load[a.TeacherID] == nil {
			load[a.TeacherID] = map[int]int{}
		}
		load[a.TeacherID][a.Slot.DayOfWeek]++
	}
	for _, d := range in.Demands {
		assert.Equal(t, d.WeeklyOccurrences, perDemand[d.ID], d.ID)
	}
	for _, count := range load["t1"] {
		assert.LessOrEqual(t, count, 2)
	}
	assert.LessOrEqual(t, out.Score.Total, out.Stats.InitialScore)
}

func TestGenerateSpreadsOccurrencesAcrossDays(t *testing.T) {
	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID: "sched-1",
		Horizon:    testHorizon(2, 1, 2),
		Spaces:     []models.Space{testSpace("room", 40)},
		Demands:    []models.DemandUnit{testDemand("d-a", "t1", 20, 2)},
	})
	require.NoError(t, err)
	require.Len(t, out.Assignments, 2)
	assert.NotEqual(t, out.Assignments[0].Slot.DayOfWeek, out.Assignments[1].Slot.DayOfWeek)
}

func TestGenerateHonoursFixedAssignments(t *testing.T) {
	reservation := "req-9"
	grid, err := BuildGrid(testHorizon(2, 1))
	require.NoError(t, err)
	monP1, _ := grid.Slot("MON-P1")

	out, err := newTestEngine().Generate(context.Background(), Input{
		ScheduleID: "sched-2",
		Horizon:    testHorizon(2, 1),
		Spaces:     []models.Space{testSpace("room", 40)},
		Demands:    []models.DemandUnit{testDemand("d-a", "t1", 20, 1)},
		Fixed: []models.Assignment{{
			ID:            "res-req-9-1",
			ScheduleID:    "sched-1",
			SpaceID:       "room",
			Slot:          monP1,
			Source:        models.AssignmentSourceReservation,
			ReservationID: &reservation,
		}},
	})
	require.NoError(t, err)

	require.Len(t, out.Assignments, 2)
	assert.Equal(t, "res-req-9-1", out.Assignments[0].ID)
	assert.Equal(t, "sched-2", out.Assignments[0].ScheduleID)
	assert.Equal(t, "MON-P2", out.Assignments[1].Slot.ID)
}

func TestGenerateHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestEngine().Generate(ctx, generationFixture())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestGenerateRejectsInvalidInput(t *testing.T) {
	h := testHorizon(1, 1)
	h.PeriodMinutes = 0
	_, err := newTestEngine().Generate(context.Background(), Input{Horizon: h})
	assert.ErrorIs(t, err, ErrInvalidHorizon)

	_, err = newTestEngine().Generate(context.Background(), Input{
		Horizon: testHorizon(1, 1),
		Spaces:  []models.Space{testSpace("a", 10), testSpace("a", 10)},
	})
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestAuditFindsDoubleBooking(t *testing.T) {
	spaces := []models.Space{testSpace("room", 40)}
	violations, err := Audit(spaces, []models.Assignment{
		{ID: "a1", TeacherID: "t1", SpaceID: "room", Slot: slotAt(1, "08:00", "09:30"), Headcount: 10},
		{ID: "a2", TeacherID: "t1", SpaceID: "room", Slot: slotAt(1, "09:00", "10:00"), Headcount: 50},
	})
	require.NoError(t, err)

	kinds := map[models.ConflictKind]int{}
	for _, v := range violations {
		kinds[v.Kind]++
	}
	assert.Equal(t, 1, kinds[models.ConflictSpaceDoubleBooking])
	assert.Equal(t, 1, kinds[models.ConflictTeacherDoubleBooking])
	assert.Equal(t, 1, kinds[models.ConflictCapacityExceeded])
}
