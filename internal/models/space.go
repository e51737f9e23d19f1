package models

import (
	"time"

	"github.com/lib/pq"
)

// SpaceType classifies physical rooms.
type SpaceType string

const (
	SpaceTypeLectureHall SpaceType = "LECTURE_HALL"
	SpaceTypeClassroom   SpaceType = "CLASSROOM"
	SpaceTypeLab         SpaceType = "LAB"
)

// SpaceStatus tracks whether a room can be booked.
type SpaceStatus string

const (
	SpaceStatusAvailable   SpaceStatus = "AVAILABLE"
	SpaceStatusMaintenance SpaceStatus = "MAINTENANCE"
)

// Space is a bookable room owned by the facilities collaborator.
type Space struct {
	ID        string         `db:"id" json:"id"`
	Name      string         `db:"name" json:"name"`
	Type      SpaceType      `db:"type" json:"type"`
	Capacity  int            `db:"capacity" json:"capacity"`
	Equipment pq.StringArray `db:"equipment" json:"equipment"`
	Status    SpaceStatus    `db:"status" json:"status"`
	CreatedAt time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time      `db:"updated_at" json:"updatedAt"`
}

// Available reports whether the space accepts bookings.
func (s Space) Available() bool {
	return s.Status == "" || s.Status == SpaceStatusAvailable
}

// HasEquipment reports whether the space carries every required tag.
func (s Space) HasEquipment(required []string) bool {
	return len(MissingEquipment(s.Equipment, required)) == 0
}

// MissingEquipment lists required tags absent from have, preserving order.
func MissingEquipment(have, required []string) []string {
	if len(required) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(have))
	for _, tag := range have {
		set[tag] = struct{}{}
	}
	var missing []string
	for _, tag := range required {
		if _, ok := set[tag]; !ok {
			missing = append(missing, tag)
		}
	}
	return missing
}
