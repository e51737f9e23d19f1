package scheduler

import (
	"context"
	"sort"
	"time"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// Config tunes a generation run.
type Config struct {
	MaxIterations   int
	Weights         Weights
	SuggestionLimit int
}

// DefaultConfig mirrors the service defaults.
func DefaultConfig() Config {
	return Config{
		MaxIterations:   200,
		Weights:         Weights{Utilization: 1, Load: 1, Preference: 0.5},
		SuggestionLimit: 3,
	}
}

// Input bundles everything a generation run reads.
type Input struct {
	ScheduleID   string
	Horizon      models.Horizon
	Spaces       []models.Space
	Demands      []models.DemandUnit
	Availability []models.TeacherAvailability
	// Fixed assignments (materialised reservations) are honoured but never moved.
	Fixed []models.Assignment
}

// Outcome is the result of a generation run.
type Outcome struct {
	Assignments []models.Assignment
	Unplaced    []models.UnplacedDemand
	Score       Score
	Stats       models.ScheduleStats
}

// Engine runs constraint modelling, allocation and optimization in sequence.
type Engine struct {
	cfg Config
	now func() time.Time
}

// NewEngine constructs an Engine; zero-valued settings fall back to defaults.
func NewEngine(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.MaxIterations < 0 {
		cfg.MaxIterations = 0
	}
	if cfg.Weights == (Weights{}) {
		cfg.Weights = def.Weights
	}
	if cfg.SuggestionLimit < 0 {
		cfg.SuggestionLimit = 0
	}
	return &Engine{cfg: cfg, now: time.Now}
}

// Config returns the engine settings.
func (e *Engine) Config() Config {
	return e.cfg
}

// Generate builds a candidate schedule. Identical inputs yield identical output.
func (e *Engine) Generate(ctx context.Context, in Input) (*Outcome, error) {
	started := e.now()

	grid, err := BuildGrid(in.Horizon)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalog(in.Spaces)
	if err != nil {
		return nil, err
	}
	model, infeasible, err := BuildModel(grid, catalog, in.Demands, in.Availability)
	if err != nil {
		return nil, err
	}
	detector := NewDetector(catalog, grid, e.cfg.SuggestionLimit)

	fixed := make([]models.Assignment, len(in.Fixed))
	for i, a := range in.Fixed {
		a.ScheduleID = in.ScheduleID
		fixed[i] = a
	}
	snap := NewSnapshot(fixed, nil)

	alloc, err := Allocate(ctx, model, detector, snap, in.ScheduleID)
	if err != nil {
		return nil, err
	}
	opt, err := Optimize(ctx, model, detector, snap, e.cfg.Weights, e.cfg.MaxIterations)
	if err != nil {
		return nil, err
	}

	assignments := snap.Assignments()
	SortAssignments(assignments)

	unplaced := append(infeasible, alloc.Unplaced...)
	sort.SliceStable(unplaced, func(i, j int) bool { return unplaced[i].DemandID < unplaced[j].DemandID })

	stats := models.ScheduleStats{
		Demands:          len(in.Demands),
		Iterations:       opt.Iterations,
		InitialScore:     opt.Initial.Total,
		UtilizationScore: opt.Final.Utilization,
		LoadScore:        opt.Final.Load,
		PreferenceScore:  opt.Final.Preference,
		DurationMillis:   e.now().Sub(started).Milliseconds(),
	}
	for _, d := range in.Demands {
		stats.Requested += d.WeeklyOccurrences
	}
	for _, a := range assignments {
		if a.Source == models.AssignmentSourceGenerated {
			stats.Placed++
		}
	}

	return &Outcome{
		Assignments: assignments,
		Unplaced:    unplaced,
		Score:       opt.Final,
		Stats:       stats,
	}, nil
}

// SortAssignments orders assignments by day, start time, space and ID.
func SortAssignments(assignments []models.Assignment) {
	sort.SliceStable(assignments, func(i, j int) bool {
		a, b := assignments[i], assignments[j]
		switch {
		case a.Slot.DayOfWeek != b.Slot.DayOfWeek:
			return a.Slot.DayOfWeek < b.Slot.DayOfWeek
		case a.Slot.Start != b.Slot.Start:
			return a.Slot.Start < b.Slot.Start
		case a.SpaceID != b.SpaceID:
			return a.SpaceID < b.SpaceID
		default:
			return a.ID < b.ID
		}
	})
}

// Audit re-checks a full assignment set for hard violations: double bookings of
// spaces and teachers, capacity, equipment and space availability.
func Audit(spaces []models.Space, assignments []models.Assignment) ([]models.Conflict, error) {
	catalog, err := NewCatalog(spaces)
	if err != nil {
		return nil, err
	}
	detector := NewDetector(catalog, nil, 0)
	snap := NewSnapshot(nil, nil)
	var conflicts []models.Conflict
	for _, a := range assignments {
		conflicts = append(conflicts, detector.Detect(snap, Candidate{
			ID:        a.ID,
			SpaceID:   a.SpaceID,
			Slot:      a.Slot,
			TeacherID: a.TeacherID,
			Headcount: a.Headcount,
			Equipment: a.Equipment,
		})...)
		snap.Add(a)
	}
	return conflicts, nil
}
