package scheduler

import (
	"context"
	"sort"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

const improvementEpsilon = 1e-9

// Weights balance the soft objectives of the optimization pass.
type Weights struct {
	Utilization float64 `json:"utilization"`
	Load        float64 `json:"load"`
	Preference  float64 `json:"preference"`
}

// Score is the weighted soft-constraint penalty of a schedule; lower is better.
type Score struct {
	Total       float64 `json:"total"`
	Utilization float64 `json:"utilization"`
	Load        float64 `json:"load"`
	Preference  float64 `json:"preference"`
}

// scoreState keeps the counters the score is derived from so moves can be
// evaluated without rescanning every assignment.
type scoreState struct {
	model      *Model
	weights    Weights
	spaces     []string
	teachers   []string
	slotCount  int
	spaceCount map[string]int
	teacherDay map[string]map[int]int
	prefMiss   int
}

func newScoreState(model *Model, weights Weights, assignments []models.Assignment) *scoreState {
	s := &scoreState{
		model:      model,
		weights:    weights,
		slotCount:  len(model.Grid.Slots()),
		spaceCount: make(map[string]int),
		teacherDay: make(map[string]map[int]int),
	}
	for _, space := range model.Catalog.Spaces() {
		if space.Available() {
			s.spaces = append(s.spaces, space.ID)
		}
	}
	teachers := make(map[string]struct{})
	for _, d := range model.Demands {
		teachers[d.TeacherID] = struct{}{}
	}
	for _, a := range assignments {
		if a.TeacherID != "" {
			teachers[a.TeacherID] = struct{}{}
		}
		s.apply(a, 1)
	}
	for t := range teachers {
		s.teachers = append(s.teachers, t)
	}
	sort.Strings(s.teachers)
	return s
}

func (s *scoreState) apply(a models.Assignment, sign int) {
	s.spaceCount[a.SpaceID] += sign
	if a.TeacherID != "" {
		days := s.teacherDay[a.TeacherID]
		if days == nil {
			days = make(map[int]int)
			s.teacherDay[a.TeacherID] = days
		}
		days[a.Slot.DayOfWeek] += sign
	}
	if a.Source == models.AssignmentSourceGenerated && !s.model.Prefers(a.DemandID, a.Slot.ID) {
		s.prefMiss += sign
	}
}

func (s *scoreState) score() Score {
	var result Score
	if s.slotCount > 0 && len(s.spaces) > 0 {
		values := make([]float64, len(s.spaces))
		for i, id := range s.spaces {
			values[i] = float64(s.spaceCount[id]) / float64(s.slotCount)
		}
		result.Utilization = variance(values)
	}
	days := s.model.Grid.Days()
	if len(days) > 0 && len(s.teachers) > 0 {
		var sum float64
		values := make([]float64, len(days))
		for _, t := range s.teachers {
			for i, d := range days {
				values[i] = float64(s.teacherDay[t][d])
			}
			sum += variance(values)
		}
		result.Load = sum / float64(len(s.teachers))
	}
	result.Preference = float64(s.prefMiss)
	result.Total = s.weights.Utilization*result.Utilization +
		s.weights.Load*result.Load +
		s.weights.Preference*result.Preference
	return result
}

func variance(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var mean float64
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))
	var acc float64
	for _, v := range values {
		acc += (v - mean) * (v - mean)
	}
	return acc / float64(len(values))
}

// Evaluate scores a set of assignments under model and weights.
func Evaluate(model *Model, weights Weights, assignments []models.Assignment) Score {
	return newScoreState(model, weights, assignments).score()
}

// Optimization reports the outcome of the improvement pass.
type Optimization struct {
	Initial    Score
	Final      Score
	Iterations int
}

type optimizer struct {
	model    *Model
	detector *Detector
	snap     *Snapshot
	state    *scoreState
	current  Score
}

// Optimize improves the generated assignments held in snap with bounded
// first-improvement local search. Only strictly better moves are accepted, and
// every accepted move keeps the hard constraints satisfied. Assignments that do
// not come from the model's demands stay where they are.
func Optimize(ctx context.Context, model *Model, detector *Detector, snap *Snapshot, weights Weights, maxIterations int) (*Optimization, error) {
	o := &optimizer{
		model:    model,
		detector: detector,
		snap:     snap,
		state:    newScoreState(model, weights, snap.Assignments()),
	}
	o.current = o.state.score()
	result := &Optimization{Initial: o.current}

	for result.Iterations < maxIterations {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !o.improveOnce() {
			break
		}
		result.Iterations++
	}
	result.Final = o.current
	return result, nil
}

func (o *optimizer) movable() []string {
	var ids []string
	for _, a := range o.snap.Assignments() {
		if a.Source != models.AssignmentSourceGenerated {
			continue
		}
		if _, ok := o.model.Demand(a.DemandID); !ok {
			continue
		}
		ids = append(ids, a.ID)
	}
	sort.Strings(ids)
	return ids
}

func (o *optimizer) improveOnce() bool {
	ids := o.movable()
	for i, aid := range ids {
		a, _ := o.snap.Assignment(aid)
		for _, bid := range ids[i+1:] {
			b, _ := o.snap.Assignment(bid)
			if a.Slot.ID != b.Slot.ID {
				movedA, movedB := a, b
				movedA.Slot, movedB.Slot = b.Slot, a.Slot
				if o.attempt(movedA, movedB) {
					return true
				}
			} else if a.SpaceID != b.SpaceID {
				movedA, movedB := a, b
				movedA.SpaceID, movedB.SpaceID = b.SpaceID, a.SpaceID
				if o.attempt(movedA, movedB) {
					return true
				}
			}
		}
		for _, p := range o.model.Domains[a.DemandID] {
			if p.SpaceID == a.SpaceID && p.Slot.ID == a.Slot.ID {
				continue
			}
			moved := a
			moved.SpaceID = p.SpaceID
			moved.Slot = p.Slot
			if o.attempt(moved) {
				return true
			}
		}
	}
	return false
}

// attempt applies changes tentatively and keeps them only when they stay
// feasible and strictly lower the score.
func (o *optimizer) attempt(changes ...models.Assignment) bool {
	originals := make([]models.Assignment, 0, len(changes))
	for _, c := range changes {
		old, ok := o.snap.Remove(c.ID)
		if !ok {
			o.restore(nil, originals)
			return false
		}
		o.state.apply(old, -1)
		originals = append(originals, old)
	}

	applied := make([]models.Assignment, 0, len(changes))
	feasible := true
	for _, c := range changes {
		if !o.admissible(c) {
			feasible = false
			break
		}
		o.snap.Add(c)
		o.state.apply(c, 1)
		applied = append(applied, c)
	}
	if feasible {
		next := o.state.score()
		if next.Total < o.current.Total-improvementEpsilon {
			o.current = next
			return true
		}
	}
	o.restore(applied, originals)
	return false
}

func (o *optimizer) restore(applied, originals []models.Assignment) {
	for _, a := range applied {
		o.snap.Remove(a.ID)
		o.state.apply(a, -1)
	}
	for _, a := range originals {
		o.snap.Add(a)
		o.state.apply(a, 1)
	}
}

func (o *optimizer) admissible(a models.Assignment) bool {
	if !o.model.Allows(a.DemandID, a.SpaceID, a.Slot.ID) {
		return false
	}
	conflicts := o.detector.Detect(o.snap, Candidate{
		ID:           a.ID,
		AssignmentID: a.ID,
		SpaceID:      a.SpaceID,
		Slot:         a.Slot,
		TeacherID:    a.TeacherID,
		Headcount:    a.Headcount,
		Equipment:    a.Equipment,
	})
	if len(conflicts) > 0 {
		return false
	}
	if limit := o.model.DailyCap(a.TeacherID); limit > 0 && o.snap.TeacherLoad(a.TeacherID, a.Slot.DayOfWeek) >= limit {
		return false
	}
	return true
}
