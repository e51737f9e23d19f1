package models

import "time"

// ReservationStatus is the workflow state of a reservation or schedule-change request.
type ReservationStatus string

const (
	ReservationPending  ReservationStatus = "PENDING"
	ReservationApproved ReservationStatus = "APPROVED"
	ReservationRejected ReservationStatus = "REJECTED"
	ReservationDeferred ReservationStatus = "DEFERRED"
)

// Terminal reports whether no further transition is possible.
func (s ReservationStatus) Terminal() bool {
	return s == ReservationApproved || s == ReservationRejected
}

// Active reports whether the request still holds or claims its space.
func (s ReservationStatus) Active() bool {
	return s == ReservationPending || s == ReservationApproved
}

// ReservationKind distinguishes ad-hoc bookings from changes to existing assignments.
type ReservationKind string

const (
	ReservationKindBooking        ReservationKind = "RESERVATION"
	ReservationKindScheduleChange ReservationKind = "SCHEDULE_CHANGE"
)

// PriorityClass orders competing requests.
type PriorityClass string

const (
	PriorityLow    PriorityClass = "LOW"
	PriorityNormal PriorityClass = "NORMAL"
	PriorityHigh   PriorityClass = "HIGH"
	PriorityUrgent PriorityClass = "URGENT"
)

var priorityRanks = map[PriorityClass]int{
	PriorityLow:    1,
	PriorityNormal: 2,
	PriorityHigh:   3,
	PriorityUrgent: 4,
}

// Rank returns the numeric weight of the class; unknown classes rank as NORMAL.
func (p PriorityClass) Rank() int {
	if rank, ok := priorityRanks[p]; ok {
		return rank
	}
	return priorityRanks[PriorityNormal]
}

// Valid reports whether p is a known class.
func (p PriorityClass) Valid() bool {
	_, ok := priorityRanks[p]
	return ok
}

// ValidationAction is an approver or requester action on a request.
type ValidationAction string

const (
	ActionSubmit   ValidationAction = "submit"
	ActionApprove  ValidationAction = "approve"
	ActionReject   ValidationAction = "reject"
	ActionDefer    ValidationAction = "defer"
	ActionResubmit ValidationAction = "resubmit"
)

// ValidationStep is one append-only history entry.
type ValidationStep struct {
	At      time.Time         `json:"at"`
	Actor   string            `json:"actor"`
	Action  ValidationAction  `json:"action"`
	From    ReservationStatus `json:"from,omitempty"`
	To      ReservationStatus `json:"to"`
	Comment string            `json:"comment"`
}

// ReservationRequest is an ad-hoc booking or schedule-change request.
type ReservationRequest struct {
	ID                 string            `json:"id"`
	HorizonID          string            `json:"horizonId"`
	Kind               ReservationKind   `json:"kind"`
	SpaceID            string            `json:"spaceId"`
	Slots              []TimeSlot        `json:"slots"`
	TargetAssignmentID *string           `json:"targetAssignmentId,omitempty"`
	RequesterID        string            `json:"requesterId"`
	TeacherID          string            `json:"teacherId,omitempty"`
	Purpose            string            `json:"purpose"`
	Headcount          int               `json:"headcount"`
	RequiredEquipment  []string          `json:"requiredEquipment,omitempty"`
	PriorityClass      PriorityClass     `json:"priorityClass"`
	Status             ReservationStatus `json:"status"`
	History            []ValidationStep  `json:"history"`
	LastConflicts      []Conflict        `json:"lastConflicts,omitempty"`
	SubmittedAt        time.Time         `json:"submittedAt"`
	UpdatedAt          time.Time         `json:"updatedAt"`
}

// ClaimsSpace reports whether the request still occupies its space and slots on
// its own. An approved schedule change lives on in the moved assignment only.
func (r ReservationRequest) ClaimsSpace() bool {
	if !r.Status.Active() {
		return false
	}
	return !(r.Status == ReservationApproved && r.Kind == ReservationKindScheduleChange)
}

// ReservationFilter constrains request listing.
type ReservationFilter struct {
	HorizonID   string
	SpaceID     string
	Status      []ReservationStatus
	RequesterID string
	Limit       int
	Offset      int
}
