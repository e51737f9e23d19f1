package scheduler

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// Candidate is a prospective booking checked by the Detector.
type Candidate struct {
	// ID names the candidate in reported conflicts.
	ID string
	// AssignmentID is the existing assignment being moved; it never conflicts with itself.
	AssignmentID string
	// RequestID is the reservation being vetted; it is skipped in request overlap checks.
	RequestID   string
	SpaceID     string
	Slot        models.TimeSlot
	TeacherID   string
	Headcount   int
	Equipment   []string
	Reservation bool
	Priority    models.PriorityClass
	SubmittedAt time.Time
}

// Detector checks candidates against a snapshot. It holds only read-only catalog
// data, so one Detector may serve concurrent callers.
type Detector struct {
	catalog         *Catalog
	grid            *Grid
	suggestionLimit int
}

// NewDetector builds a detector; grid may be nil when suggestions are not needed.
func NewDetector(catalog *Catalog, grid *Grid, suggestionLimit int) *Detector {
	if suggestionLimit < 0 {
		suggestionLimit = 0
	}
	return &Detector{catalog: catalog, grid: grid, suggestionLimit: suggestionLimit}
}

// Detect reports every conflict of c against snap in the order: space, teacher,
// capacity/equipment/availability, competing requests. An empty result admits c.
func (d *Detector) Detect(snap *Snapshot, c Candidate) []models.Conflict {
	var conflicts []models.Conflict

	for _, existing := range snap.spaceBookings(c.SpaceID) {
		if existing.ID == c.AssignmentID || !existing.Slot.Overlaps(c.Slot) {
			continue
		}
		conflicts = append(conflicts, d.collision(models.ConflictSpaceDoubleBooking, c, existing,
			fmt.Sprintf("space %s is already booked %s by %s", c.SpaceID, describeSlot(existing.Slot), describeAssignment(existing))))
	}

	if c.TeacherID != "" {
		for _, existing := range snap.teacherBookings(c.TeacherID) {
			if existing.ID == c.AssignmentID || !existing.Slot.Overlaps(c.Slot) {
				continue
			}
			conflicts = append(conflicts, d.collision(models.ConflictTeacherDoubleBooking, c, existing,
				fmt.Sprintf("teacher %s already teaches %s in space %s", c.TeacherID, describeSlot(existing.Slot), existing.SpaceID)))
		}
	}

	conflicts = append(conflicts, d.attributeConflicts(c)...)

	if c.Reservation {
		for _, other := range snap.spaceRequests(c.SpaceID) {
			if other.ID == c.RequestID {
				continue
			}
			for _, slot := range other.Slots {
				if !slot.Overlaps(c.Slot) {
					continue
				}
				blocking := other.Status == models.ReservationApproved ||
					Outranks(RankOf(other), Rank{ID: c.RequestID, Priority: c.Priority, SubmittedAt: c.SubmittedAt})
				existing := slot
				conflicts = append(conflicts, models.Conflict{
					Kind:         models.ConflictSpaceDoubleBooking,
					CandidateID:  c.ID,
					RequestID:    other.ID,
					SpaceID:      c.SpaceID,
					Slot:         c.Slot,
					ExistingSlot: &existing,
					Message: fmt.Sprintf("space %s is %s by request %s %s",
						c.SpaceID, strings.ToLower(string(other.Status)), other.ID, describeSlot(slot)),
					Blocking: blocking,
				})
				break
			}
		}
	}
	return conflicts
}

// DetectWithSuggestions runs Detect and attaches alternate placements to
// booking collisions.
func (d *Detector) DetectWithSuggestions(snap *Snapshot, c Candidate) []models.Conflict {
	conflicts := d.Detect(snap, c)
	if len(conflicts) == 0 || d.suggestionLimit == 0 {
		return conflicts
	}
	var suggestions []models.Placement
	for i := range conflicts {
		switch conflicts[i].Kind {
		case models.ConflictSpaceDoubleBooking, models.ConflictTeacherDoubleBooking,
			models.ConflictCapacityExceeded, models.ConflictMissingEquipment, models.ConflictSpaceUnavailable:
			if suggestions == nil {
				suggestions = d.Suggest(snap, c)
			}
			conflicts[i].Suggestions = suggestions
		}
	}
	return conflicts
}

// Suggest proposes conflict-free alternatives: the same slot in another space,
// then the same space at another grid slot, then any other pair.
func (d *Detector) Suggest(snap *Snapshot, c Candidate) []models.Placement {
	if d.suggestionLimit == 0 {
		return nil
	}
	var result []models.Placement
	seen := make(map[string]struct{})
	try := func(spaceID string, slot models.TimeSlot) bool {
		key := placementKey(spaceID, slot.Key())
		if _, dup := seen[key]; dup {
			return false
		}
		seen[key] = struct{}{}
		if spaceID == c.SpaceID && slot.Key() == c.Slot.Key() {
			return false
		}
		alt := c
		alt.SpaceID = spaceID
		alt.Slot = slot
		if HasBlocking(d.Detect(snap, alt)) {
			return false
		}
		result = append(result, models.Placement{SpaceID: spaceID, Slot: slot})
		return len(result) >= d.suggestionLimit
	}

	fits := d.catalog.BestFit(c.Headcount, c.Equipment)
	for _, space := range fits {
		if try(space.ID, c.Slot) {
			return result
		}
	}
	if d.grid == nil {
		return result
	}
	for _, slot := range d.grid.Slots() {
		if slot.Minutes() < c.Slot.Minutes() || !slot.Parity.Compatible(c.Slot.Parity) {
			continue
		}
		if try(c.SpaceID, slot) {
			return result
		}
	}
	for _, slot := range d.grid.Slots() {
		if slot.Minutes() < c.Slot.Minutes() || !slot.Parity.Compatible(c.Slot.Parity) {
			continue
		}
		for _, space := range fits {
			if try(space.ID, slot) {
				return result
			}
		}
	}
	return result
}

func (d *Detector) attributeConflicts(c Candidate) []models.Conflict {
	space, ok := d.catalog.Space(c.SpaceID)
	if !ok {
		return []models.Conflict{{
			Kind:        models.ConflictSpaceUnavailable,
			CandidateID: c.ID,
			SpaceID:     c.SpaceID,
			Slot:        c.Slot,
			Message:     fmt.Sprintf("space %s is not in the directory", c.SpaceID),
			Blocking:    true,
		}}
	}
	var conflicts []models.Conflict
	if !space.Available() {
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictSpaceUnavailable,
			CandidateID: c.ID,
			SpaceID:     c.SpaceID,
			Slot:        c.Slot,
			Message:     fmt.Sprintf("space %s is under %s", space.Name, strings.ToLower(string(space.Status))),
			Blocking:    true,
		})
	}
	if space.Capacity < c.Headcount {
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictCapacityExceeded,
			CandidateID: c.ID,
			SpaceID:     c.SpaceID,
			Slot:        c.Slot,
			Message:     fmt.Sprintf("space %s seats %d, %d expected", space.Name, space.Capacity, c.Headcount),
			Blocking:    true,
		})
	}
	if missing := models.MissingEquipment(space.Equipment, c.Equipment); len(missing) > 0 {
		conflicts = append(conflicts, models.Conflict{
			Kind:        models.ConflictMissingEquipment,
			CandidateID: c.ID,
			SpaceID:     c.SpaceID,
			Slot:        c.Slot,
			Message:     fmt.Sprintf("space %s lacks %s", space.Name, strings.Join(missing, ", ")),
			Blocking:    true,
		})
	}
	return conflicts
}

func (d *Detector) collision(kind models.ConflictKind, c Candidate, existing models.Assignment, message string) models.Conflict {
	slot := existing.Slot
	return models.Conflict{
		Kind:         kind,
		CandidateID:  c.ID,
		AssignmentID: existing.ID,
		SpaceID:      existing.SpaceID,
		TeacherID:    existing.TeacherID,
		Slot:         c.Slot,
		ExistingSlot: &slot,
		Message:      message,
		Blocking:     true,
	}
}

// HasBlocking reports whether any conflict prevents admission.
func HasBlocking(conflicts []models.Conflict) bool {
	for _, c := range conflicts {
		if c.Blocking {
			return true
		}
	}
	return false
}

// Blocking filters conflicts down to the ones preventing admission.
func Blocking(conflicts []models.Conflict) []models.Conflict {
	var result []models.Conflict
	for _, c := range conflicts {
		if c.Blocking {
			result = append(result, c)
		}
	}
	return result
}

func describeSlot(slot models.TimeSlot) string {
	desc := fmt.Sprintf("%s %s-%s", models.DayName(slot.DayOfWeek), slot.Start, slot.End)
	if slot.Parity == models.ParityOdd || slot.Parity == models.ParityEven {
		desc += " (" + strings.ToLower(string(slot.Parity)) + " weeks)"
	}
	return desc
}

func describeAssignment(a models.Assignment) string {
	switch {
	case a.ReservationID != nil:
		return "reservation " + *a.ReservationID
	case a.SectionID != "":
		return "section " + a.SectionID
	default:
		return "assignment " + a.ID
	}
}
