package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrInvalidTransition is returned when an action is not legal from the current status.
var ErrInvalidTransition = errors.New("invalid transition")

var transitions = map[models.ReservationStatus]map[models.ValidationAction]models.ReservationStatus{
	models.ReservationPending: {
		models.ActionApprove: models.ReservationApproved,
		models.ActionReject:  models.ReservationRejected,
		models.ActionDefer:   models.ReservationDeferred,
	},
	models.ReservationDeferred: {
		models.ActionResubmit: models.ReservationPending,
	},
}

// NextStatus resolves the target status for action taken from status.
func NextStatus(from models.ReservationStatus, action models.ValidationAction) (models.ReservationStatus, error) {
	to, ok := transitions[from][action]
	if !ok {
		return from, fmt.Errorf("%w: cannot %s a %s request", ErrInvalidTransition, action, from)
	}
	return to, nil
}

// Allowed lists the actions available from status.
func Allowed(from models.ReservationStatus) []models.ValidationAction {
	var actions []models.ValidationAction
	for _, action := range []models.ValidationAction{models.ActionApprove, models.ActionReject, models.ActionDefer, models.ActionResubmit} {
		if _, ok := transitions[from][action]; ok {
			actions = append(actions, action)
		}
	}
	return actions
}

// Transition applies action to req, appending exactly one history entry.
// The request is left untouched when the transition is illegal.
func Transition(req *models.ReservationRequest, action models.ValidationAction, actor, comment string, at time.Time) error {
	to, err := NextStatus(req.Status, action)
	if err != nil {
		return err
	}
	req.History = append(req.History, models.ValidationStep{
		At:      at.UTC(),
		Actor:   actor,
		Action:  action,
		From:    req.Status,
		To:      to,
		Comment: comment,
	})
	req.Status = to
	req.UpdatedAt = at.UTC()
	if to != models.ReservationPending {
		req.LastConflicts = nil
	}
	return nil
}

// Rank orders competing requests: higher priority class first, then earlier
// submission, then lower identifier.
type Rank struct {
	ID          string
	Priority    models.PriorityClass
	SubmittedAt time.Time
}

// RankOf extracts the rank of a request.
func RankOf(r models.ReservationRequest) Rank {
	return Rank{ID: r.ID, Priority: r.PriorityClass, SubmittedAt: r.SubmittedAt}
}

// Outranks reports whether a takes precedence over b.
func Outranks(a, b Rank) bool {
	if pa, pb := a.Priority.Rank(), b.Priority.Rank(); pa != pb {
		return pa > pb
	}
	if !a.SubmittedAt.Equal(b.SubmittedAt) {
		return a.SubmittedAt.Before(b.SubmittedAt)
	}
	return a.ID < b.ID
}
