package dto

import "time"

// ExportScheduleRequest selects the timetable export format and optional filters.
type ExportScheduleRequest struct {
	Format    string `json:"format" validate:"omitempty,oneof=csv pdf"`
	SpaceID   string `json:"spaceId"`
	TeacherID string `json:"teacherId"`
}

// ExportResponse describes a stored export and its signed download link.
type ExportResponse struct {
	ExportID  string    `json:"exportId"`
	Format    string    `json:"format"`
	URL       string    `json:"url"`
	Rows      int       `json:"rows"`
	ExpiresAt time.Time `json:"expiresAt"`
}
