package models

// ConflictKind enumerates collision categories.
type ConflictKind string

const (
	ConflictSpaceDoubleBooking   ConflictKind = "SPACE_DOUBLE_BOOKING"
	ConflictTeacherDoubleBooking ConflictKind = "TEACHER_DOUBLE_BOOKING"
	ConflictCapacityExceeded     ConflictKind = "CAPACITY_EXCEEDED"
	ConflictMissingEquipment     ConflictKind = "MISSING_EQUIPMENT"
	ConflictSpaceUnavailable     ConflictKind = "SPACE_UNAVAILABLE"
)

// Placement is a candidate (space, slot) pair.
type Placement struct {
	SpaceID string   `json:"spaceId"`
	Slot    TimeSlot `json:"slot"`
}

// Conflict describes a collision between a candidate and an existing booking.
// Blocking is false only for overlaps with pending requests that the candidate outranks.
type Conflict struct {
	Kind         ConflictKind `json:"kind"`
	CandidateID  string       `json:"candidateId,omitempty"`
	AssignmentID string       `json:"assignmentId,omitempty"`
	RequestID    string       `json:"requestId,omitempty"`
	SpaceID      string       `json:"spaceId,omitempty"`
	TeacherID    string       `json:"teacherId,omitempty"`
	Slot         TimeSlot     `json:"slot"`
	ExistingSlot *TimeSlot    `json:"existingSlot,omitempty"`
	Message      string       `json:"message"`
	Blocking     bool         `json:"blocking"`
	Suggestions  []Placement  `json:"suggestions,omitempty"`
}
