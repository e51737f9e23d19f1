package dto

import (
	"time"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
	"github.com/noah-isme/faculty-scheduler-api/pkg/jobs"
)

// ScheduleQuery filters schedule listings.
type ScheduleQuery struct {
	HorizonID string   `form:"-"`
	Status    []string `form:"status" validate:"omitempty,dive,oneof=CANDIDATE PUBLISHED SUPERSEDED"`
	Limit     int      `form:"limit" validate:"omitempty,min=1,max=100"`
	Offset    int      `form:"offset" validate:"omitempty,min=0"`
}

// GenerationJobResponse describes an asynchronous generation run.
type GenerationJobResponse struct {
	JobID      string     `json:"jobId"`
	HorizonID  string     `json:"horizonId,omitempty"`
	State      jobs.State `json:"state"`
	Attempt    int        `json:"attempt"`
	Error      string     `json:"error,omitempty"`
	ScheduleID string     `json:"scheduleId,omitempty"`
	EnqueuedAt time.Time  `json:"enqueuedAt"`
	UpdatedAt  time.Time  `json:"updatedAt"`
}

// PublishResponse reports the outcome of a publish.
type PublishResponse struct {
	Schedule     *models.Schedule `json:"schedule"`
	SupersededID string           `json:"supersededId,omitempty"`
}
