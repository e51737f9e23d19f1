package scheduler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

func newTestDetector(t *testing.T, spaces ...models.Space) *Detector {
	t.Helper()
	catalog, err := NewCatalog(spaces)
	require.NoError(t, err)
	grid, err := BuildGrid(testHorizon(2, 1, 2))
	require.NoError(t, err)
	return NewDetector(catalog, grid, 3)
}

func TestDetectReservationOverlappingAssignment(t *testing.T) {
	detector := newTestDetector(t, testSpace("amphi-a", 200), testSpace("room-b", 40))
	snap := NewSnapshot([]models.Assignment{{
		ID:        "course-1#1",
		SectionID: "S1",
		TeacherID: "t1",
		SpaceID:   "amphi-a",
		Slot:      slotAt(1, "09:30", "10:30"),
		Source:    models.AssignmentSourceGenerated,
	}}, nil)

	conflicts := detector.DetectWithSuggestions(snap, Candidate{
		ID:          "req-1",
		RequestID:   "req-1",
		SpaceID:     "amphi-a",
		Slot:        slotAt(1, "09:00", "11:00"),
		Headcount:   30,
		Reservation: true,
		Priority:    models.PriorityNormal,
	})

	require.Len(t, conflicts, 1)
	c := conflicts[0]
	assert.Equal(t, models.ConflictSpaceDoubleBooking, c.Kind)
	assert.Equal(t, "course-1#1", c.AssignmentID)
	assert.True(t, c.Blocking)
	require.NotNil(t, c.ExistingSlot)
	assert.Equal(t, "09:30", c.ExistingSlot.Start.String())
	require.NotEmpty(t, c.Suggestions)
	assert.Equal(t, "room-b", c.Suggestions[0].SpaceID)
}

func TestDetectAdjacentIntervalsDoNotConflict(t *testing.T) {
	detector := newTestDetector(t, testSpace("room", 40))
	snap := NewSnapshot([]models.Assignment{{
		ID: "a1", TeacherID: "t1", SpaceID: "room", Slot: slotAt(1, "08:00", "09:30"),
	}}, nil)

	conflicts := detector.Detect(snap, Candidate{ID: "c", SpaceID: "room", TeacherID: "t1", Slot: slotAt(1, "09:30", "11:00")})
	assert.Empty(t, conflicts)
}

func TestDetectTeacherDoubleBooking(t *testing.T) {
	detector := newTestDetector(t, testSpace("room-a", 40), testSpace("room-b", 40))
	snap := NewSnapshot([]models.Assignment{{
		ID: "a1", TeacherID: "t1", SpaceID: "room-a", Slot: slotAt(2, "10:00", "11:00"),
	}}, nil)

	conflicts := detector.Detect(snap, Candidate{ID: "c", SpaceID: "room-b", TeacherID: "t1", Slot: slotAt(2, "10:30", "12:00")})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictTeacherDoubleBooking, conflicts[0].Kind)
	assert.Equal(t, "t1", conflicts[0].TeacherID)
}

func TestDetectMovedAssignmentIgnoresItself(t *testing.T) {
	detector := newTestDetector(t, testSpace("room", 40))
	existing := models.Assignment{ID: "a1", TeacherID: "t1", SpaceID: "room", Slot: slotAt(1, "08:00", "09:30")}
	snap := NewSnapshot([]models.Assignment{existing}, nil)

	conflicts := detector.Detect(snap, Candidate{ID: "a1", AssignmentID: "a1", SpaceID: "room", TeacherID: "t1", Slot: slotAt(1, "08:30", "10:00")})
	assert.Empty(t, conflicts)
}

func TestDetectAttributeViolations(t *testing.T) {
	closed := testSpace("closed", 100)
	closed.Status = models.SpaceStatusMaintenance
	detector := newTestDetector(t, testSpace("lab", 20, "projector"), closed)
	snap := NewSnapshot(nil, nil)

	conflicts := detector.Detect(snap, Candidate{
		ID:        "c",
		SpaceID:   "lab",
		Slot:      slotAt(1, "08:00", "09:00"),
		Headcount: 25,
		Equipment: []string{"projector", "fume-hood"},
	})
	kinds := make([]models.ConflictKind, 0, len(conflicts))
	for _, c := range conflicts {
		kinds = append(kinds, c.Kind)
	}
	assert.Equal(t, []models.ConflictKind{models.ConflictCapacityExceeded, models.ConflictMissingEquipment}, kinds)
	assert.Contains(t, conflicts[1].Message, "fume-hood")

	conflicts = detector.Detect(snap, Candidate{ID: "c", SpaceID: "closed", Slot: slotAt(1, "08:00", "09:00")})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictSpaceUnavailable, conflicts[0].Kind)

	conflicts = detector.Detect(snap, Candidate{ID: "c", SpaceID: "ghost", Slot: slotAt(1, "08:00", "09:00")})
	require.Len(t, conflicts, 1)
	assert.Equal(t, models.ConflictSpaceUnavailable, conflicts[0].Kind)
}

func TestDetectCompetingRequestsFollowRank(t *testing.T) {
	detector := newTestDetector(t, testSpace("room", 40))
	base := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	pending := models.ReservationRequest{
		ID:            "req-early",
		SpaceID:       "room",
		Slots:         []models.TimeSlot{slotAt(3, "14:00", "16:00")},
		PriorityClass: models.PriorityNormal,
		Status:        models.ReservationPending,
		SubmittedAt:   base,
	}
	snap := NewSnapshot(nil, []models.ReservationRequest{pending})

	candidate := Candidate{
		ID:          "req-late",
		RequestID:   "req-late",
		SpaceID:     "room",
		Slot:        slotAt(3, "15:00", "17:00"),
		Reservation: true,
		Priority:    models.PriorityNormal,
		SubmittedAt: base.Add(time.Hour),
	}
	conflicts := detector.Detect(snap, candidate)
	require.Len(t, conflicts, 1)
	assert.Equal(t, "req-early", conflicts[0].RequestID)
	assert.True(t, conflicts[0].Blocking, "earlier request of equal priority wins")

	candidate.Priority = models.PriorityUrgent
	conflicts = detector.Detect(snap, candidate)
	require.Len(t, conflicts, 1)
	assert.False(t, conflicts[0].Blocking, "urgent request outranks pending normal one")
	assert.False(t, HasBlocking(conflicts))

	pending.Status = models.ReservationApproved
	snap = NewSnapshot(nil, []models.ReservationRequest{pending})
	assert.True(t, HasBlocking(detector.Detect(snap, candidate)), "approved requests always block")

	pending.Status = models.ReservationRejected
	snap = NewSnapshot(nil, []models.ReservationRequest{pending})
	assert.Empty(t, detector.Detect(snap, candidate))
}

func TestDetectIgnoresApprovedScheduleChangeRequests(t *testing.T) {
	detector := newTestDetector(t, testSpace("room", 40))
	target := "g1"
	change := models.ReservationRequest{
		ID:                 "req-move",
		Kind:               models.ReservationKindScheduleChange,
		SpaceID:            "room",
		Slots:              []models.TimeSlot{slotAt(1, "14:00", "15:00")},
		TargetAssignmentID: &target,
		PriorityClass:      models.PriorityNormal,
		Status:             models.ReservationApproved,
	}
	candidate := Candidate{
		ID:          "req-2",
		RequestID:   "req-2",
		SpaceID:     "room",
		Slot:        slotAt(1, "14:00", "15:00"),
		Reservation: true,
		Priority:    models.PriorityUrgent,
	}

	snap := NewSnapshot(nil, []models.ReservationRequest{change})
	assert.Empty(t, detector.Detect(snap, candidate), "moved assignment is the only record of an approved change")

	change.Status = models.ReservationPending
	change.PriorityClass = models.PriorityUrgent
	snap = NewSnapshot(nil, []models.ReservationRequest{change})
	assert.Len(t, detector.Detect(snap, candidate), 1, "pending change still claims its target slot")
}

func TestDetectMaterializedRequestCountedOnce(t *testing.T) {
	detector := newTestDetector(t, testSpace("room", 40))
	reqID := "req-1"
	approved := models.ReservationRequest{
		ID:      reqID,
		SpaceID: "room",
		Slots:   []models.TimeSlot{slotAt(1, "08:00", "09:30"), slotAt(2, "08:00", "09:30")},
		Status:  models.ReservationApproved,
	}
	snap := NewSnapshot([]models.Assignment{
		{ID: "res-req-1-1", SpaceID: "room", Slot: approved.Slots[0], Source: models.AssignmentSourceReservation, ReservationID: &reqID},
		{ID: "res-req-1-2", SpaceID: "room", Slot: approved.Slots[1], Source: models.AssignmentSourceReservation, ReservationID: &reqID},
	}, []models.ReservationRequest{approved})

	conflicts := detector.Detect(snap, Candidate{ID: "c", RequestID: "req-2", SpaceID: "room", Slot: slotAt(1, "09:00", "10:00"), Reservation: true})
	require.Len(t, conflicts, 1)
	assert.Equal(t, "res-req-1-1", conflicts[0].AssignmentID)

	snap.Remove("res-req-1-2")
	conflicts = detector.Detect(snap, Candidate{ID: "c", RequestID: "req-2", SpaceID: "room", Slot: slotAt(1, "09:00", "10:00"), Reservation: true})
	assert.Len(t, conflicts, 1, "request stays materialised while any of its assignments remains")
}

func TestSuggestSkipsBlockedAlternatives(t *testing.T) {
	detector := newTestDetector(t, testSpace("room-a", 40), testSpace("room-b", 40))
	monP1, _ := detector.grid.Slot("MON-P1")
	monP2, _ := detector.grid.Slot("MON-P2")
	snap := NewSnapshot([]models.Assignment{
		{ID: "a1", SpaceID: "room-a", Slot: monP1},
		{ID: "a2", SpaceID: "room-b", Slot: monP1},
		{ID: "a3", SpaceID: "room-a", Slot: monP2},
	}, nil)

	suggestions := detector.Suggest(snap, Candidate{ID: "c", SpaceID: "room-a", Slot: monP1, Headcount: 20})
	require.Len(t, suggestions, 3)
	assert.Equal(t, "room-a", suggestions[0].SpaceID)
	assert.Equal(t, "TUE-P1", suggestions[0].Slot.ID)
	for _, s := range suggestions {
		assert.NotEqual(t, "MON-P1", s.Slot.ID)
		assert.False(t, s.SpaceID == "room-a" && s.Slot.ID == "MON-P2")
	}
}
