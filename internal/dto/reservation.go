package dto

import "github.com/noah-isme/faculty-scheduler-api/internal/models"

// SlotInput is a wall-clock interval supplied by clients.
type SlotInput struct {
	DayOfWeek int    `json:"dayOfWeek" validate:"required,min=1,max=7"`
	Start     string `json:"start" validate:"required"`
	End       string `json:"end" validate:"required"`
	Parity    string `json:"parity" validate:"omitempty,oneof=EVERY ODD EVEN"`
}

// SubmitReservationRequest creates an ad-hoc booking or a schedule change.
type SubmitReservationRequest struct {
	HorizonID          string      `json:"horizonId" validate:"required"`
	Kind               string      `json:"kind" validate:"omitempty,oneof=RESERVATION SCHEDULE_CHANGE"`
	SpaceID            string      `json:"spaceId" validate:"required"`
	Slots              []SlotInput `json:"slots" validate:"required,min=1,max=32,dive"`
	TargetAssignmentID string      `json:"targetAssignmentId" validate:"required_if=Kind SCHEDULE_CHANGE"`
	TeacherID          string      `json:"teacherId"`
	Purpose            string      `json:"purpose" validate:"max=500"`
	Headcount          int         `json:"headcount" validate:"min=0"`
	RequiredEquipment  []string    `json:"requiredEquipment" validate:"omitempty,dive,required"`
	PriorityClass      string      `json:"priorityClass" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
}

// ConflictPreviewRequest checks a candidate booking without persisting anything.
type ConflictPreviewRequest struct {
	HorizonID          string      `json:"horizonId" validate:"required"`
	SpaceID            string      `json:"spaceId" validate:"required"`
	Slots              []SlotInput `json:"slots" validate:"required,min=1,max=32,dive"`
	TeacherID          string      `json:"teacherId"`
	Headcount          int         `json:"headcount" validate:"min=0"`
	RequiredEquipment  []string    `json:"requiredEquipment" validate:"omitempty,dive,required"`
	PriorityClass      string      `json:"priorityClass" validate:"omitempty,oneof=LOW NORMAL HIGH URGENT"`
	TargetAssignmentID string      `json:"targetAssignmentId"`
}

// ValidateRequest is an approver or requester action on a request.
type ValidateRequest struct {
	Action          string `json:"action" validate:"required,oneof=approve reject defer resubmit"`
	Comment         string `json:"comment" validate:"max=1000"`
	ExpectedVersion *int   `json:"expectedVersion" validate:"omitempty,min=1"`
}

// ValidationResult is the outcome of a validation action.
type ValidationResult struct {
	Request         *models.ReservationRequest `json:"request"`
	Status          models.ReservationStatus   `json:"status"`
	Conflicts       []models.Conflict          `json:"conflicts"`
	ScheduleVersion int                        `json:"scheduleVersion,omitempty"`
	AllowedActions  []models.ValidationAction  `json:"allowedActions"`
}

// SubmitResult returns the created request and advisory conflicts found at submission.
type SubmitResult struct {
	Request   *models.ReservationRequest `json:"request"`
	Conflicts []models.Conflict          `json:"conflicts"`
	// Sessions counts the dated occurrences of all slots within the horizon.
	Sessions int `json:"sessions"`
}

// ConflictPreviewResult lists conflicts for a previewed booking.
type ConflictPreviewResult struct {
	Conflicts       []models.Conflict `json:"conflicts"`
	Admissible      bool              `json:"admissible"`
	ScheduleVersion int               `json:"scheduleVersion"`
}

// ReservationQuery filters request listings.
type ReservationQuery struct {
	HorizonID   string   `form:"horizonId"`
	SpaceID     string   `form:"spaceId"`
	RequesterID string   `form:"requesterId"`
	Status      []string `form:"status" validate:"omitempty,dive,oneof=PENDING APPROVED REJECTED DEFERRED"`
	Limit       int      `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset      int      `form:"offset" validate:"omitempty,min=0"`
}
