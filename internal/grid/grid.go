// Package grid tiles the globe into fixed-size cells and assigns catalog
// spots to them. Each cell is the unit of download from the wind provider,
// so cells without spots are never fetched.
package grid

import (
	"fmt"
	"math"

	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/geo"
)

// Cell is one tile of the global grid plus the spots inside it.
type Cell struct {
	Index  int
	Bounds geo.BoundingBox
	Spots  []domain.Spot
}

// ID returns the stable cell identifier used in logs and reports.
func (c Cell) ID() string {
	return fmt.Sprintf("cell_%04d", c.Index)
}

// CacheKey returns the raw-artifact name for the cell. It encodes the cell
// geometry, so a grid cached under one cell-size configuration is never
// mistaken for the same region after the configuration changes.
func (c Cell) CacheKey() string {
	return fmt.Sprintf("%s_n%g_s%g_e%g_w%g",
		c.ID(), c.Bounds.North, c.Bounds.South, c.Bounds.East, c.Bounds.West)
}

// HasSpots reports whether the cell contains at least one spot.
func (c Cell) HasSpots() bool { return len(c.Spots) > 0 }

// DownloadBounds returns the cell bounds expanded by bufferKm on every side.
// The buffer guarantees spots near a tile edge still have surrounding
// lattice points for interpolation.
func (c Cell) DownloadBounds(bufferKm float64) geo.BoundingBox {
	return c.Bounds.ExpandByKm(bufferKm)
}

// Partition tiles the whole globe into latSize × lonSize degree cells and
// assigns every spot to exactly one cell. Assignment is arithmetic, so a
// spot sitting exactly on a tile boundary lands in the tile to its
// north-east (and the globe's edges clamp into the last row/column). Pure
// computation: a catalog that leaves every tile empty is valid.
func Partition(spots []domain.Spot, latSize, lonSize float64) ([]Cell, error) {
	if latSize <= 0 || lonSize <= 0 {
		return nil, fmt.Errorf("cell size must be positive, got %.1f x %.1f", latSize, lonSize)
	}

	rows := int(math.Ceil(180 / latSize))
	cols := int(math.Ceil(360 / lonSize))

	cells := make([]Cell, rows*cols)
	for r := 0; r < rows; r++ {
		south := -90 + float64(r)*latSize
		north := math.Min(90, south+latSize)
		for col := 0; col < cols; col++ {
			west := -180 + float64(col)*lonSize
			east := math.Min(180, west+lonSize)
			idx := r*cols + col
			cells[idx] = Cell{
				Index:  idx,
				Bounds: geo.BoundingBox{North: north, South: south, East: east, West: west},
			}
		}
	}

	for _, s := range spots {
		r := int(math.Floor((s.Latitude + 90) / latSize))
		if r >= rows {
			r = rows - 1 // latitude 90 belongs to the top row
		}
		col := int(math.Floor((s.Longitude + 180) / lonSize))
		if col >= cols {
			col = cols - 1 // longitude 180 belongs to the last column
		}
		idx := r*cols + col
		cells[idx].Spots = append(cells[idx].Spots, s)
	}

	return cells, nil
}

// NonEmpty filters to the cells that contain spots, preserving order.
func NonEmpty(cells []Cell) []Cell {
	out := make([]Cell, 0, len(cells))
	for _, c := range cells {
		if c.HasSpots() {
			out = append(out, c)
		}
	}
	return out
}
