package scheduler

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// testHorizon spans four weeks starting Monday 2026-01-05.
func testHorizon(periods int, days ...int64) models.Horizon {
	return models.Horizon{
		ID:            "horizon-1",
		Name:          "Spring",
		StartDate:     time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC),
		EndDate:       time.Date(2026, 1, 30, 0, 0, 0, 0, time.UTC),
		Days:          days,
		DayStart:      models.MustClock("08:00"),
		PeriodMinutes: 90,
		PeriodsPerDay: periods,
		BreakMinutes:  15,
	}
}

func testSpace(id string, capacity int, equipment ...string) models.Space {
	return models.Space{
		ID:        id,
		Name:      id,
		Type:      models.SpaceTypeClassroom,
		Capacity:  capacity,
		Equipment: equipment,
		Status:    models.SpaceStatusAvailable,
	}
}

func testDemand(id, teacher string, headcount, occurrences int) models.DemandUnit {
	return models.DemandUnit{
		ID:                id,
		HorizonID:         "horizon-1",
		SectionID:         "section-" + id,
		TeacherID:         teacher,
		ExpectedHeadcount: headcount,
		WeeklyOccurrences: occurrences,
		Priority:          1,
	}
}

func slotAt(day int, start, end string) models.TimeSlot {
	return models.TimeSlot{
		DayOfWeek: day,
		Start:     models.MustClock(start),
		End:       models.MustClock(end),
		Parity:    models.ParityEvery,
	}
}

func buildTestModel(t *testing.T, h models.Horizon, spaces []models.Space, demands []models.DemandUnit, availability []models.TeacherAvailability) (*Model, *Detector) {
	t.Helper()
	grid, err := BuildGrid(h)
	require.NoError(t, err)
	catalog, err := NewCatalog(spaces)
	require.NoError(t, err)
	model, _, err := BuildModel(grid, catalog, demands, availability)
	require.NoError(t, err)
	return model, NewDetector(catalog, grid, 3)
}

func generatedAt(model *Model, demandID string, occurrence int, spaceID, slotID string) models.Assignment {
	demand, _ := model.Demand(demandID)
	slot, _ := model.Grid.Slot(slotID)
	return models.Assignment{
		ID:         fmt.Sprintf("%s#%d", demandID, occurrence),
		DemandID:   demandID,
		SectionID:  demand.SectionID,
		TeacherID:  demand.TeacherID,
		SpaceID:    spaceID,
		Slot:       slot,
		Occurrence: occurrence,
		Headcount:  demand.ExpectedHeadcount,
		Equipment:  demand.RequiredEquipment,
		Source:     models.AssignmentSourceGenerated,
	}
}
