package models

import (
	"time"

	"github.com/lib/pq"
)

// DemandUnit is one recurring teaching need supplied by the teaching-load collaborator.
type DemandUnit struct {
	ID                string         `db:"id" json:"id"`
	HorizonID         string         `db:"horizon_id" json:"horizonId"`
	SectionID         string         `db:"section_id" json:"sectionId"`
	CourseCode        string         `db:"course_code" json:"courseCode"`
	TeacherID         string         `db:"teacher_id" json:"teacherId"`
	ExpectedHeadcount int            `db:"expected_headcount" json:"expectedHeadcount"`
	RequiredEquipment pq.StringArray `db:"required_equipment" json:"requiredEquipment"`
	WeeklyOccurrences int            `db:"weekly_occurrences" json:"weeklyOccurrences"`
	Priority          int            `db:"priority" json:"priority"`
	Biweekly          bool           `db:"biweekly" json:"biweekly"`
	PreferredSlots    pq.StringArray `db:"preferred_slots" json:"preferredSlots"`
	CreatedAt         time.Time      `db:"created_at" json:"createdAt"`
}

// TeacherAvailability carries hard availability rules for one teacher.
type TeacherAvailability struct {
	TeacherID     string         `db:"teacher_id" json:"teacherId"`
	HorizonID     string         `db:"horizon_id" json:"horizonId"`
	BlockedSlots  pq.StringArray `db:"blocked_slots" json:"blockedSlots"`
	MaxLoadPerDay int            `db:"max_load_per_day" json:"maxLoadPerDay"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
}
