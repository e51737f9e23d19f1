package models

import (
	"encoding/json"
	"time"
)

// Event actions emitted for audit and notification collaborators.
const (
	EventActionSchedulePublish     = "SCHEDULE_PUBLISH"
	EventActionReservationSubmit   = "RESERVATION_SUBMIT"
	EventActionReservationApprove  = "RESERVATION_APPROVE"
	EventActionReservationReject   = "RESERVATION_REJECT"
	EventActionReservationDefer    = "RESERVATION_DEFER"
	EventActionReservationResubmit = "RESERVATION_RESUBMIT"
)

// Event is an outbound record describing a state change in the core.
type Event struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	Resource   string          `json:"resource"`
	ResourceID string          `json:"resourceId"`
	Actor      string          `json:"actor"`
	RequestID  string          `json:"requestId,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}
