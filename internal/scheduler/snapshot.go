package scheduler

import (
	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// Snapshot indexes the bookings a candidate is checked against: schedule
// assignments plus active reservation requests.
type Snapshot struct {
	order        []string
	assignments  map[string]models.Assignment
	bySpace      map[string][]string
	byTeacher    map[string][]string
	teacherDay   map[string]map[int]int
	requests     []models.ReservationRequest
	reqBySpace   map[string][]int
	materialized map[string]int
}

// NewSnapshot builds an index over assignments and the requests that still claim a space.
func NewSnapshot(assignments []models.Assignment, requests []models.ReservationRequest) *Snapshot {
	s := &Snapshot{
		assignments:  make(map[string]models.Assignment, len(assignments)),
		bySpace:      make(map[string][]string),
		byTeacher:    make(map[string][]string),
		teacherDay:   make(map[string]map[int]int),
		reqBySpace:   make(map[string][]int),
		materialized: make(map[string]int),
	}
	for _, a := range assignments {
		s.Add(a)
	}
	for _, r := range requests {
		if !r.ClaimsSpace() {
			continue
		}
		s.reqBySpace[r.SpaceID] = append(s.reqBySpace[r.SpaceID], len(s.requests))
		s.requests = append(s.requests, r)
	}
	return s
}

// Add indexes an assignment, replacing any previous one with the same ID.
func (s *Snapshot) Add(a models.Assignment) {
	if _, exists := s.assignments[a.ID]; exists {
		s.Remove(a.ID)
	}
	s.assignments[a.ID] = a
	s.order = append(s.order, a.ID)
	s.bySpace[a.SpaceID] = append(s.bySpace[a.SpaceID], a.ID)
	if a.TeacherID != "" {
		s.byTeacher[a.TeacherID] = append(s.byTeacher[a.TeacherID], a.ID)
		days := s.teacherDay[a.TeacherID]
		if days == nil {
			days = make(map[int]int)
			s.teacherDay[a.TeacherID] = days
		}
		days[a.Slot.DayOfWeek]++
	}
	if a.ReservationID != nil {
		s.materialized[*a.ReservationID]++
	}
}

// Remove drops an assignment from the index and returns it.
func (s *Snapshot) Remove(id string) (models.Assignment, bool) {
	a, ok := s.assignments[id]
	if !ok {
		return models.Assignment{}, false
	}
	delete(s.assignments, id)
	s.order = without(s.order, id)
	s.bySpace[a.SpaceID] = without(s.bySpace[a.SpaceID], id)
	if a.TeacherID != "" {
		s.byTeacher[a.TeacherID] = without(s.byTeacher[a.TeacherID], id)
		if days := s.teacherDay[a.TeacherID]; days != nil && days[a.Slot.DayOfWeek] > 0 {
			days[a.Slot.DayOfWeek]--
		}
	}
	if a.ReservationID != nil {
		if s.materialized[*a.ReservationID] <= 1 {
			delete(s.materialized, *a.ReservationID)
		} else {
			s.materialized[*a.ReservationID]--
		}
	}
	return a, true
}

// Assignment looks up an indexed assignment.
func (s *Snapshot) Assignment(id string) (models.Assignment, bool) {
	a, ok := s.assignments[id]
	return a, ok
}

// Assignments returns indexed assignments in insertion order.
func (s *Snapshot) Assignments() []models.Assignment {
	result := make([]models.Assignment, 0, len(s.order))
	for _, id := range s.order {
		result = append(result, s.assignments[id])
	}
	return result
}

// Len returns the number of indexed assignments.
func (s *Snapshot) Len() int {
	return len(s.order)
}

// TeacherLoad returns how many assignments the teacher holds on a weekday.
func (s *Snapshot) TeacherLoad(teacherID string, day int) int {
	return s.teacherDay[teacherID][day]
}

func (s *Snapshot) spaceBookings(spaceID string) []models.Assignment {
	ids := s.bySpace[spaceID]
	result := make([]models.Assignment, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.assignments[id])
	}
	return result
}

func (s *Snapshot) teacherBookings(teacherID string) []models.Assignment {
	ids := s.byTeacher[teacherID]
	result := make([]models.Assignment, 0, len(ids))
	for _, id := range ids {
		result = append(result, s.assignments[id])
	}
	return result
}

func (s *Snapshot) spaceRequests(spaceID string) []models.ReservationRequest {
	idx := s.reqBySpace[spaceID]
	result := make([]models.ReservationRequest, 0, len(idx))
	for _, i := range idx {
		r := s.requests[i]
		if _, done := s.materialized[r.ID]; done {
			continue
		}
		result = append(result, r)
	}
	return result
}

func without(ids []string, id string) []string {
	for i, v := range ids {
		if v == id {
			return append(ids[:i:i], ids[i+1:]...)
		}
	}
	return ids
}
