package grid_test

import (
	"testing"

	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spot(id string, lat, lon float64) domain.Spot {
	return domain.Spot{ID: id, Name: id, Latitude: lat, Longitude: lon}
}

func TestPartition_TilesGlobeWithoutGaps(t *testing.T) {
	cells, err := grid.Partition(nil, 90, 60)
	require.NoError(t, err)
	require.Len(t, cells, 2*6)

	assert.Equal(t, -90.0, cells[0].Bounds.South)
	assert.Equal(t, -180.0, cells[0].Bounds.West)
	assert.Equal(t, 90.0, cells[len(cells)-1].Bounds.North)
	assert.Equal(t, 180.0, cells[len(cells)-1].Bounds.East)

	// Adjacent tiles share their edges.
	assert.Equal(t, cells[0].Bounds.East, cells[1].Bounds.West)
	assert.Equal(t, cells[0].Bounds.North, cells[6].Bounds.South)
}

func TestPartition_AssignmentsExhaustiveAndDisjoint(t *testing.T) {
	spots := []domain.Spot{
		spot("nl", 52.49, 4.56),
		spot("es", 36.01, -5.61),
		spot("br", -22.93, -43.26),
		spot("au", -33.89, 151.27),
		spot("boundary", 0.0, 0.0), // exact tile corner
		spot("pole", 90.0, 10.0),
		spot("antimeridian", 12.0, 180.0),
	}

	cells, err := grid.Partition(spots, 30, 30)
	require.NoError(t, err)

	seen := map[string]int{}
	for _, c := range cells {
		for _, s := range c.Spots {
			seen[s.ID]++
			assert.True(t, c.Bounds.Contains(s.Latitude, s.Longitude),
				"spot %s assigned to a cell that does not contain it", s.ID)
		}
	}
	require.Len(t, seen, len(spots), "every spot assigned")
	for id, n := range seen {
		assert.Equal(t, 1, n, "spot %s assigned to exactly one cell", id)
	}
}

func TestPartition_BoundarySpotSingleTile(t *testing.T) {
	// A spot exactly on a shared edge must land in one tile, never two.
	cells, err := grid.Partition([]domain.Spot{spot("edge", 30.0, 60.0)}, 30, 30)
	require.NoError(t, err)

	var owners int
	for _, c := range cells {
		if c.HasSpots() {
			owners++
		}
	}
	assert.Equal(t, 1, owners)
}

func TestPartition_InvalidCellSize(t *testing.T) {
	_, err := grid.Partition(nil, 0, 30)
	assert.Error(t, err)
}

func TestNonEmpty(t *testing.T) {
	cells, err := grid.Partition([]domain.Spot{spot("nl", 52.49, 4.56)}, 90, 60)
	require.NoError(t, err)

	nonEmpty := grid.NonEmpty(cells)
	require.Len(t, nonEmpty, 1)
	assert.Equal(t, "nl", nonEmpty[0].Spots[0].ID)
}

func TestCell_DownloadBounds(t *testing.T) {
	cells, err := grid.Partition([]domain.Spot{spot("nl", 52.49, 4.56)}, 90, 60)
	require.NoError(t, err)
	cell := grid.NonEmpty(cells)[0]

	buffered := cell.DownloadBounds(5)
	assert.Less(t, buffered.South, cell.Bounds.South)
	assert.GreaterOrEqual(t, buffered.North, cell.Bounds.North) // clamped at the pole
	assert.Less(t, buffered.West, cell.Bounds.West)
	assert.Greater(t, buffered.East, cell.Bounds.East)
}

func TestCell_CacheKeyEncodesGeometry(t *testing.T) {
	coarse, err := grid.Partition([]domain.Spot{spot("nl", 52.49, 4.56)}, 90, 60)
	require.NoError(t, err)
	fine, err := grid.Partition([]domain.Spot{spot("nl", 52.49, 4.56)}, 45, 60)
	require.NoError(t, err)

	a := grid.NonEmpty(coarse)[0]
	b := grid.NonEmpty(fine)[0]
	// Same spot, different tiling: the artifacts must never collide.
	assert.NotEqual(t, a.CacheKey(), b.CacheKey())
	assert.Contains(t, a.CacheKey(), a.ID())
}

func TestCell_ID(t *testing.T) {
	cells, err := grid.Partition(nil, 90, 60)
	require.NoError(t, err)
	assert.Equal(t, "cell_0000", cells[0].ID())
	assert.Equal(t, "cell_0011", cells[11].ID())
}
