package models

import "time"

// ScheduleStatus captures the schedule lifecycle.
type ScheduleStatus string

const (
	ScheduleStatusCandidate  ScheduleStatus = "CANDIDATE"
	ScheduleStatusPublished  ScheduleStatus = "PUBLISHED"
	ScheduleStatusSuperseded ScheduleStatus = "SUPERSEDED"
)

// AssignmentSource records how an assignment entered the schedule.
type AssignmentSource string

const (
	AssignmentSourceGenerated   AssignmentSource = "GENERATED"
	AssignmentSourceReservation AssignmentSource = "RESERVATION"
)

// Assignment binds one demand occurrence (or an approved reservation) to a space and slot.
type Assignment struct {
	ID            string           `json:"id"`
	ScheduleID    string           `json:"scheduleId"`
	DemandID      string           `json:"demandId,omitempty"`
	SectionID     string           `json:"sectionId,omitempty"`
	TeacherID     string           `json:"teacherId,omitempty"`
	SpaceID       string           `json:"spaceId"`
	Slot          TimeSlot         `json:"slot"`
	Occurrence    int              `json:"occurrence"`
	Headcount     int              `json:"headcount"`
	Equipment     []string         `json:"equipment,omitempty"`
	Source        AssignmentSource `json:"source"`
	ReservationID *string          `json:"reservationId,omitempty"`
}

// UnplacedReason explains why a demand occurrence has no assignment.
type UnplacedReason string

const (
	UnplacedNoFeasibleDomain          UnplacedReason = "NO_FEASIBLE_DOMAIN"
	UnplacedNoCapacity                UnplacedReason = "NO_CAPACITY"
	UnplacedNoSlotWithoutTeacherClash UnplacedReason = "NO_SLOT_WITHOUT_TEACHER_CLASH"
	UnplacedTeacherDailyLoad          UnplacedReason = "TEACHER_DAILY_LOAD"
)

// UnplacedDemand reports a demand that could not be fully placed.
type UnplacedDemand struct {
	DemandID  string         `json:"demandId"`
	SectionID string         `json:"sectionId"`
	TeacherID string         `json:"teacherId"`
	Requested int            `json:"requested"`
	Placed    int            `json:"placed"`
	Reason    UnplacedReason `json:"reason"`
	Detail    string         `json:"detail,omitempty"`
}

// ScheduleStats summarises how a schedule was produced.
type ScheduleStats struct {
	Demands          int     `json:"demands"`
	Requested        int     `json:"requested"`
	Placed           int     `json:"placed"`
	Iterations       int     `json:"iterations"`
	InitialScore     float64 `json:"initialScore"`
	UtilizationScore float64 `json:"utilizationScore"`
	LoadScore        float64 `json:"loadScore"`
	PreferenceScore  float64 `json:"preferenceScore"`
	DurationMillis   int64   `json:"durationMillis"`
}

// Schedule is the set of assignments for a horizon.
type Schedule struct {
	ID          string           `json:"id"`
	HorizonID   string           `json:"horizonId"`
	Status      ScheduleStatus   `json:"status"`
	Version     int              `json:"version"`
	Score       float64          `json:"score"`
	Stats       ScheduleStats    `json:"stats"`
	Assignments []Assignment     `json:"assignments"`
	Unplaced    []UnplacedDemand `json:"unplaced"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
	PublishedAt *time.Time       `json:"publishedAt,omitempty"`
}

// ScheduleFilter constrains schedule listing.
type ScheduleFilter struct {
	HorizonID string
	Status    []ScheduleStatus
	Limit     int
	Offset    int
}
