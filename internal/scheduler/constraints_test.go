package scheduler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/faculty-scheduler-api/internal/models"
)

func TestCatalogBestFitOrdersBySmallestCapacity(t *testing.T) {
	broken := testSpace("closed", 40, "projector")
	broken.Status = models.SpaceStatusMaintenance
	catalog, err := NewCatalog([]models.Space{
		testSpace("hall", 200, "projector"),
		testSpace("room-b", 40, "projector"),
		testSpace("room-a", 40, "projector"),
		testSpace("tiny", 10, "projector"),
		testSpace("bare", 60),
		broken,
	})
	require.NoError(t, err)

	fits := catalog.BestFit(35, []string{"projector"})
	ids := make([]string, 0, len(fits))
	for _, s := range fits {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"room-a", "room-b", "hall"}, ids)
}

func TestNewCatalogRejectsDuplicates(t *testing.T) {
	_, err := NewCatalog([]models.Space{testSpace("a", 10), testSpace("a", 20)})
	assert.ErrorIs(t, err, ErrInvalidSpace)

	_, err = NewCatalog([]models.Space{testSpace("a", -1)})
	assert.ErrorIs(t, err, ErrInvalidSpace)
}

func TestBuildModelDomainsHonourHardConstraints(t *testing.T) {
	grid, err := BuildGrid(testHorizon(2, 1, 2))
	require.NoError(t, err)
	catalog, err := NewCatalog([]models.Space{
		testSpace("lab", 30, "fume-hood"),
		testSpace("room", 50),
	})
	require.NoError(t, err)

	chem := testDemand("chem", "t1", 25, 1)
	chem.RequiredEquipment = []string{"fume-hood"}
	chem.PreferredSlots = []string{"TUE-P2"}
	big := testDemand("big", "t2", 45, 1)
	huge := testDemand("huge", "t3", 500, 1)

	model, unplaced, err := BuildModel(grid, catalog, []models.DemandUnit{chem, big, huge}, []models.TeacherAvailability{
		{TeacherID: "t1", BlockedSlots: []string{"MON-P1"}, MaxLoadPerDay: 1},
	})
	require.NoError(t, err)

	require.Len(t, unplaced, 1)
	assert.Equal(t, "huge", unplaced[0].DemandID)
	assert.Equal(t, models.UnplacedNoFeasibleDomain, unplaced[0].Reason)
	assert.Contains(t, unplaced[0].Detail, "500")

	domain := model.Domains["chem"]
	require.Len(t, domain, 3)
	assert.Equal(t, "TUE-P2", domain[0].Slot.ID, "preferred slot comes first")
	for _, p := range domain {
		assert.Equal(t, "lab", p.SpaceID)
		assert.NotEqual(t, "MON-P1", p.Slot.ID)
	}
	assert.True(t, model.Allows("chem", "lab", "TUE-P1"))
	assert.False(t, model.Allows("chem", "lab", "MON-P1"))
	assert.False(t, model.Allows("chem", "room", "TUE-P1"))
	assert.True(t, model.Prefers("chem", "TUE-P2"))
	assert.False(t, model.Prefers("chem", "TUE-P1"))
	assert.True(t, model.Prefers("big", "MON-P1"))
	assert.Equal(t, 1, model.DailyCap("t1"))
	assert.Equal(t, 0, model.DailyCap("t2"))

	for _, p := range model.Domains["big"] {
		assert.Equal(t, "room", p.SpaceID)
	}
}

func TestBuildModelOrdersDemandsByPriorityThenID(t *testing.T) {
	grid, err := BuildGrid(testHorizon(1, 1))
	require.NoError(t, err)
	catalog, err := NewCatalog([]models.Space{testSpace("room", 50)})
	require.NoError(t, err)

	low := testDemand("a-low", "t1", 10, 1)
	highB := testDemand("b-high", "t2", 10, 1)
	highB.Priority = 5
	highA := testDemand("a-high", "t3", 10, 1)
	highA.Priority = 5

	model, _, err := BuildModel(grid, catalog, []models.DemandUnit{low, highB, highA}, nil)
	require.NoError(t, err)
	ids := []string{model.Demands[0].ID, model.Demands[1].ID, model.Demands[2].ID}
	assert.Equal(t, []string{"a-high", "b-high", "a-low"}, ids)
}

func TestBuildModelBiweeklyDemandUsesAlternatingSlots(t *testing.T) {
	h := testHorizon(1, 1)
	h.AllowBiweekly = true
	grid, err := BuildGrid(h)
	require.NoError(t, err)
	catalog, err := NewCatalog([]models.Space{testSpace("room", 50)})
	require.NoError(t, err)

	d := testDemand("seminar", "t1", 10, 1)
	d.Biweekly = true
	model, _, err := BuildModel(grid, catalog, []models.DemandUnit{d}, nil)
	require.NoError(t, err)

	var slots []string
	for _, p := range model.Domains["seminar"] {
		slots = append(slots, p.Slot.ID)
	}
	assert.Equal(t, []string{"MON-P1-ODD", "MON-P1-EVEN"}, slots)
}

func TestBuildModelRejectsMalformedDemand(t *testing.T) {
	grid, err := BuildGrid(testHorizon(1, 1))
	require.NoError(t, err)
	catalog, err := NewCatalog([]models.Space{testSpace("room", 50)})
	require.NoError(t, err)

	_, _, err = BuildModel(grid, catalog, []models.DemandUnit{testDemand("d", "t1", 10, 0)}, nil)
	assert.ErrorIs(t, err, ErrInvalidDemand)

	_, _, err = BuildModel(grid, catalog, []models.DemandUnit{testDemand("d", "t1", 10, 1), testDemand("d", "t2", 10, 1)}, nil)
	assert.ErrorIs(t, err, ErrInvalidDemand)
}
