package scheduler

import (
	"errors"
	"fmt"
	"sort"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

// ErrInvalidSpace marks a structurally malformed space record.
var ErrInvalidSpace = errors.New("invalid space")

// Catalog is a read-only view of the spaces taking part in a run.
type Catalog struct {
	spaces map[string]models.Space
	order  []string
}

// NewCatalog indexes spaces by ID. Negative capacities and duplicate IDs are fatal.
func NewCatalog(spaces []models.Space) (*Catalog, error) {
	c := &Catalog{spaces: make(map[string]models.Space, len(spaces))}
	for _, space := range spaces {
		if space.ID == "" {
			return nil, fmt.Errorf("%w: id is required", ErrInvalidSpace)
		}
		if space.Capacity < 0 {
			return nil, fmt.Errorf("%w: space %s has negative capacity", ErrInvalidSpace, space.ID)
		}
		if _, dup := c.spaces[space.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate space %s", ErrInvalidSpace, space.ID)
		}
		c.spaces[space.ID] = space
		c.order = append(c.order, space.ID)
	}
	sort.Strings(c.order)
	return c, nil
}

// Space looks up a space by ID.
func (c *Catalog) Space(id string) (models.Space, bool) {
	s, ok := c.spaces[id]
	return s, ok
}

// Spaces returns all spaces ordered by ID.
func (c *Catalog) Spaces() []models.Space {
	result := make([]models.Space, 0, len(c.order))
	for _, id := range c.order {
		result = append(result, c.spaces[id])
	}
	return result
}

// BestFit returns available spaces that satisfy headcount and equipment, smallest first.
func (c *Catalog) BestFit(headcount int, equipment []string) []models.Space {
	var fits []models.Space
	for _, id := range c.order {
		space := c.spaces[id]
		if !space.Available() || space.Capacity < headcount || !space.HasEquipment(equipment) {
			continue
		}
		fits = append(fits, space)
	}
	sort.SliceStable(fits, func(i, j int) bool {
		if fits[i].Capacity == fits[j].Capacity {
			return fits[i].ID < fits[j].ID
		}
		return fits[i].Capacity < fits[j].Capacity
	})
	return fits
}
