package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrInvalidDemand marks a structurally malformed demand unit.
var ErrInvalidDemand = errors.New("invalid demand")

// Model is the normalised constraint set handed to the allocator.
type Model struct {
	Grid    *Grid
	Catalog *Catalog
	// Demands holds the schedulable demands in allocation order.
	Demands []models.DemandUnit
	Domains map[string][]models.Placement

	allowed    map[string]map[string]struct{}
	preferred  map[string]map[string]struct{}
	maxPerDay  map[string]int
	demandByID map[string]models.DemandUnit
}

// BuildModel computes the feasible domain of every demand. Demands with an empty
// domain are reported as unplaced and left out of Model.Demands.
func BuildModel(grid *Grid, catalog *Catalog, demands []models.DemandUnit, availability []models.TeacherAvailability) (*Model, []models.UnplacedDemand, error) {
	blocked := make(map[string]map[string]struct{})
	maxPerDay := make(map[string]int)
	for _, a := range availability {
		if a.MaxLoadPerDay < 0 {
			return nil, nil, fmt.Errorf("%w: teacher %s has negative daily load cap", ErrInvalidDemand, a.TeacherID)
		}
		set := blocked[a.TeacherID]
		if set == nil {
			set = make(map[string]struct{})
			blocked[a.TeacherID] = set
		}
		for _, id := range a.BlockedSlots {
			set[id] = struct{}{}
		}
		if a.MaxLoadPerDay > 0 {
			maxPerDay[a.TeacherID] = a.MaxLoadPerDay
		}
	}

	m := &Model{
		Grid:       grid,
		Catalog:    catalog,
		Domains:    make(map[string][]models.Placement, len(demands)),
		allowed:    make(map[string]map[string]struct{}, len(demands)),
		preferred:  make(map[string]map[string]struct{}, len(demands)),
		maxPerDay:  maxPerDay,
		demandByID: make(map[string]models.DemandUnit, len(demands)),
	}

	ordered := make([]models.DemandUnit, len(demands))
	copy(ordered, demands)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].Priority == ordered[j].Priority {
			return ordered[i].ID < ordered[j].ID
		}
		return ordered[i].Priority > ordered[j].Priority
	})

	var unplaced []models.UnplacedDemand
	for _, d := range ordered {
		if err := validateDemand(d); err != nil {
			return nil, nil, err
		}
		if _, dup := m.demandByID[d.ID]; dup {
			return nil, nil, fmt.Errorf("%w: duplicate demand %s", ErrInvalidDemand, d.ID)
		}
		m.demandByID[d.ID] = d

		prefs := make(map[string]struct{}, len(d.PreferredSlots))
		for _, id := range d.PreferredSlots {
			prefs[id] = struct{}{}
		}
		m.preferred[d.ID] = prefs

		domain := m.domainFor(d, blocked[d.TeacherID], prefs)
		if len(domain) == 0 {
			unplaced = append(unplaced, models.UnplacedDemand{
				DemandID:  d.ID,
				SectionID: d.SectionID,
				TeacherID: d.TeacherID,
				Requested: d.WeeklyOccurrences,
				Reason:    models.UnplacedNoFeasibleDomain,
				Detail:    infeasibleDetail(d, catalog),
			})
			continue
		}
		m.Domains[d.ID] = domain
		allowed := make(map[string]struct{}, len(domain))
		for _, p := range domain {
			allowed[placementKey(p.SpaceID, p.Slot.ID)] = struct{}{}
		}
		m.allowed[d.ID] = allowed
		m.Demands = append(m.Demands, d)
	}
	return m, unplaced, nil
}

func validateDemand(d models.DemandUnit) error {
	switch {
	case d.ID == "":
		return fmt.Errorf("%w: id is required", ErrInvalidDemand)
	case d.TeacherID == "":
		return fmt.Errorf("%w: demand %s has no teacher", ErrInvalidDemand, d.ID)
	case d.ExpectedHeadcount < 0:
		return fmt.Errorf("%w: demand %s has negative headcount", ErrInvalidDemand, d.ID)
	case d.WeeklyOccurrences <= 0:
		return fmt.Errorf("%w: demand %s must occur at least once a week", ErrInvalidDemand, d.ID)
	}
	return nil
}

// domainFor orders candidates: preferred slots first, then grid order, then best-fit space.
func (m *Model) domainFor(d models.DemandUnit, blocked, prefs map[string]struct{}) []models.Placement {
	spaces := m.Catalog.BestFit(d.ExpectedHeadcount, d.RequiredEquipment)
	if len(spaces) == 0 {
		return nil
	}
	var slots []models.TimeSlot
	for _, slot := range m.Grid.Slots() {
		if !parityMatches(d, slot) {
			continue
		}
		if _, no := blocked[slot.ID]; no {
			continue
		}
		slots = append(slots, slot)
	}
	sort.SliceStable(slots, func(i, j int) bool {
		_, pi := prefs[slots[i].ID]
		_, pj := prefs[slots[j].ID]
		return pi && !pj
	})
	domain := make([]models.Placement, 0, len(slots)*len(spaces))
	for _, slot := range slots {
		for _, space := range spaces {
			domain = append(domain, models.Placement{SpaceID: space.ID, Slot: slot})
		}
	}
	return domain
}

func parityMatches(d models.DemandUnit, slot models.TimeSlot) bool {
	if d.Biweekly {
		return slot.Parity == models.ParityOdd || slot.Parity == models.ParityEven
	}
	return slot.Parity == "" || slot.Parity == models.ParityEvery
}

func infeasibleDetail(d models.DemandUnit, catalog *Catalog) string {
	var roomy, equipped bool
	for _, space := range catalog.Spaces() {
		if !space.Available() {
			continue
		}
		if space.Capacity >= d.ExpectedHeadcount {
			roomy = true
		}
		if space.HasEquipment(d.RequiredEquipment) {
			equipped = true
		}
	}
	switch {
	case !roomy:
		return fmt.Sprintf("no available space holds %d people", d.ExpectedHeadcount)
	case !equipped:
		return fmt.Sprintf("no available space provides %v", []string(d.RequiredEquipment))
	default:
		return "no slot satisfies capacity, equipment, parity and teacher availability together"
	}
}

// Allows reports whether the placement lies in the demand's feasible domain.
func (m *Model) Allows(demandID, spaceID, slotID string) bool {
	_, ok := m.allowed[demandID][placementKey(spaceID, slotID)]
	return ok
}

// Prefers reports whether the demand expressed a preference for the slot.
// Demands without preferences are indifferent and always satisfied.
func (m *Model) Prefers(demandID, slotID string) bool {
	prefs := m.preferred[demandID]
	if len(prefs) == 0 {
		return true
	}
	_, ok := prefs[slotID]
	return ok
}

// DailyCap returns the teacher's daily load cap (0 = unlimited).
func (m *Model) DailyCap(teacherID string) int {
	return m.maxPerDay[teacherID]
}

// Demand resolves a demand by ID.
func (m *Model) Demand(id string) (models.DemandUnit, bool) {
	d, ok := m.demandByID[id]
	return d, ok
}

func placementKey(spaceID, slotID string) string {
	return spaceID + "|" + slotID
}
