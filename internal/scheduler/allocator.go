package scheduler

import (
	"context"
	"fmt"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// Allocation is the allocator output: placed occurrences and unplaced demands.
type Allocation struct {
	Assignments []models.Assignment
	Unplaced    []models.UnplacedDemand
}

type failureTally struct {
	spaceTaken   int
	teacherClash int
	dailyLoad    int
}

func (f failureTally) reason() models.UnplacedReason {
	switch {
	case f.teacherClash > 0:
		return models.UnplacedNoSlotWithoutTeacherClash
	case f.dailyLoad > 0:
		return models.UnplacedTeacherDailyLoad
	default:
		return models.UnplacedNoCapacity
	}
}

func (f failureTally) detail(missing int) string {
	return fmt.Sprintf("%d occurrence(s) left: %d candidates taken, %d teacher clashes, %d over daily load",
		missing, f.spaceTaken, f.teacherClash, f.dailyLoad)
}

// Allocate places demands greedily in model order. Every placement passes the
// Detector against snap, which is mutated to hold the new assignments.
func Allocate(ctx context.Context, model *Model, detector *Detector, snap *Snapshot, scheduleID string) (*Allocation, error) {
	result := &Allocation{}
	for _, demand := range model.Demands {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		domain := model.Domains[demand.ID]
		usedDays := make(map[int]struct{})
		usedSlots := make(map[string]struct{})
		placed := 0
		var tally failureTally

		for occurrence := 1; occurrence <= demand.WeeklyOccurrences; occurrence++ {
			var chosen *models.Placement
			for pass := 0; pass < 2 && chosen == nil; pass++ {
				tally = failureTally{}
				for i := range domain {
					p := domain[i]
					if _, dup := usedSlots[p.Slot.ID]; dup {
						continue
					}
					if pass == 0 {
						if _, busy := usedDays[p.Slot.DayOfWeek]; busy {
							continue
						}
					}
					if ok := tryPlacement(model, detector, snap, demand, p, &tally); ok {
						chosen = &domain[i]
						break
					}
				}
			}
			if chosen == nil {
				break
			}
			a := models.Assignment{
				ID:         fmt.Sprintf("%s#%d", demand.ID, occurrence),
				ScheduleID: scheduleID,
				DemandID:   demand.ID,
				SectionID:  demand.SectionID,
				TeacherID:  demand.TeacherID,
				SpaceID:    chosen.SpaceID,
				Slot:       chosen.Slot,
				Occurrence: occurrence,
				Headcount:  demand.ExpectedHeadcount,
				Equipment:  append([]string(nil), demand.RequiredEquipment...),
				Source:     models.AssignmentSourceGenerated,
			}
			snap.Add(a)
			result.Assignments = append(result.Assignments, a)
			usedDays[chosen.Slot.DayOfWeek] = struct{}{}
			usedSlots[chosen.Slot.ID] = struct{}{}
			placed++
		}

		if placed < demand.WeeklyOccurrences {
			missing := demand.WeeklyOccurrences - placed
			result.Unplaced = append(result.Unplaced, models.UnplacedDemand{
				DemandID:  demand.ID,
				SectionID: demand.SectionID,
				TeacherID: demand.TeacherID,
				Requested: demand.WeeklyOccurrences,
				Placed:    placed,
				Reason:    tally.reason(),
				Detail:    tally.detail(missing),
			})
		}
	}
	return result, nil
}

// tryPlacement checks a single candidate and records why it failed.
func tryPlacement(model *Model, detector *Detector, snap *Snapshot, demand models.DemandUnit, p models.Placement, tally *failureTally) bool {
	conflicts := detector.Detect(snap, Candidate{
		ID:        demand.ID,
		SpaceID:   p.SpaceID,
		Slot:      p.Slot,
		TeacherID: demand.TeacherID,
		Headcount: demand.ExpectedHeadcount,
		Equipment: demand.RequiredEquipment,
	})
	var spaceTaken, teacherBusy bool
	for _, c := range conflicts {
		switch c.Kind {
		case models.ConflictTeacherDoubleBooking:
			teacherBusy = true
		default:
			spaceTaken = true
		}
	}
	switch {
	case spaceTaken:
		tally.spaceTaken++
		return false
	case teacherBusy:
		tally.teacherClash++
		return false
	}
	if limit := model.DailyCap(demand.TeacherID); limit > 0 && snap.TeacherLoad(demand.TeacherID, p.Slot.DayOfWeek) >= limit {
		tally.dailyLoad++
		return false
	}
	return true
}
