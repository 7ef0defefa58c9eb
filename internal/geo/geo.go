// Package geo provides bounding-box math and great-circle helpers for the
// global wind grid.
package geo

import (
	"fmt"
	"math"

	"github.com/umahmood/haversine"
)

// kmPerDegreeLat is the approximate surface distance of one degree of
// latitude. Longitude degrees shrink with cos(latitude).
const kmPerDegreeLat = 111.0

// BoundingBox is a geographic rectangle in WGS-84 degrees.
type BoundingBox struct {
	North float64 `json:"north"` // max latitude
	South float64 `json:"south"` // min latitude
	East  float64 `json:"east"`  // max longitude
	West  float64 `json:"west"`  // min longitude
}

// Contains reports whether the point lies inside the box, borders included.
func (b BoundingBox) Contains(lat, lon float64) bool {
	return b.South <= lat && lat <= b.North &&
		b.West <= lon && lon <= b.East
}

// Validate returns an error if the box is not a well-formed region on the globe.
func (b BoundingBox) Validate() error {
	if b.South > b.North {
		return fmt.Errorf("bounding box south %.4f exceeds north %.4f", b.South, b.North)
	}
	if b.West > b.East {
		return fmt.Errorf("bounding box west %.4f exceeds east %.4f", b.West, b.East)
	}
	if b.North > 90 || b.South < -90 || b.East > 180 || b.West < -180 {
		return fmt.Errorf("bounding box %+v outside globe", b)
	}
	return nil
}

// ExpandByKm grows the box outward by roughly km on every side, clamped to
// the globe. The longitude delta is scaled by the cosine of the mean latitude.
func (b BoundingBox) ExpandByKm(km float64) BoundingBox {
	latDelta := km / kmPerDegreeLat

	meanLat := (b.North + b.South) / 2
	cosLat := math.Abs(math.Cos(meanLat * math.Pi / 180))
	// Near the poles a longitude degree covers almost no distance; cap the
	// expansion instead of dividing by zero.
	if cosLat < 0.01 {
		cosLat = 0.01
	}
	lonDelta := km / (kmPerDegreeLat * cosLat)

	return BoundingBox{
		North: math.Min(90, b.North+latDelta),
		South: math.Max(-90, b.South-latDelta),
		East:  math.Min(180, b.East+lonDelta),
		West:  math.Max(-180, b.West-lonDelta),
	}
}

// DistanceKm returns the great-circle distance between two points in kilometers.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	_, km := haversine.Distance(
		haversine.Coord{Lat: lat1, Lon: lon1},
		haversine.Coord{Lat: lat2, Lon: lon2},
	)
	return km
}

// NearestIndex returns the index of the coordinate in coords closest to v.
// coords must be non-empty.
func NearestIndex(coords []float64, v float64) int {
	best := 0
	bestDist := math.Abs(coords[0] - v)
	for i, c := range coords[1:] {
		if d := math.Abs(c - v); d < bestDist {
			best = i + 1
			bestDist = d
		}
	}
	return best
}

// BracketIndices returns the pair of indices (lo, hi) in the ascending slice
// coords such that coords[lo] <= v <= coords[hi] with hi == lo+1. When v lies
// outside the covered extent both indices clamp to the nearest endpoint and
// clamped is true.
func BracketIndices(coords []float64, v float64) (lo, hi int, clamped bool) {
	n := len(coords)
	if n == 1 || v <= coords[0] {
		return 0, 0, v < coords[0] || n == 1
	}
	if v >= coords[n-1] {
		return n - 1, n - 1, v > coords[n-1]
	}
	for i := 1; i < n; i++ {
		if v <= coords[i] {
			return i - 1, i, false
		}
	}
	return n - 1, n - 1, true // unreachable for ascending input
}

// Fraction returns the position of v between lo and hi as a weight in [0, 1].
// A degenerate interval yields 0.
func Fraction(lo, hi, v float64) float64 {
	if hi == lo {
		return 0
	}
	f := (v - lo) / (hi - lo)
	return math.Max(0, math.Min(1, f))
}
