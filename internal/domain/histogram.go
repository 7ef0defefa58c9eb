package domain

import (
	"fmt"
	"math"
	"time"
)

const (
	speedBinWidth     = 2.5
	speedBinCount     = 15 // last bin unbounded above 35 kn
	directionBinWidth = 10.0
	directionBinCount = 36
)

// SpeedBinEdges returns the shared lower edges of the speed bins in knots:
// 0, 2.5, …, 35. Bin i covers [edge[i], edge[i+1]); the final bin covers
// [35, +inf). Identical for every spot and every run.
func SpeedBinEdges() []float64 {
	edges := make([]float64, speedBinCount)
	for i := range edges {
		edges[i] = float64(i) * speedBinWidth
	}
	return edges
}

// DirectionBinCenters returns the centers of the 36 direction bins:
// 0°, 10°, …, 350°. Bin i covers [center−5°, center+5°) with wraparound,
// so bearings in [355°, 360°) land in the north-centered bin.
func DirectionBinCenters() []float64 {
	centers := make([]float64, directionBinCount)
	for i := range centers {
		centers[i] = float64(i) * directionBinWidth
	}
	return centers
}

// SpeedBin returns the bin index for a speed in knots. Membership is
// half-open [low, high) except the final bin, which is unbounded above.
// The range checks happen in float space before the int conversion, so a
// huge or non-finite speed clamps instead of overflowing into a negative
// index: NaN and negatives count as calm, anything at or above the last
// edge (including +Inf) lands in the top bin.
func SpeedBin(knots float64) int {
	if !(knots >= 0) { // negatives and NaN
		return 0
	}
	if knots >= float64(speedBinCount-1)*speedBinWidth {
		return speedBinCount - 1
	}
	return int(knots / speedBinWidth)
}

// DirectionBin returns the bin index for a bearing in degrees. Shifting by
// half a bin width maps [center−5°, center+5°) onto one index, so any finite
// bearing lands in exactly one of the 36 bins. A non-finite bearing falls
// through math.Mod as NaN and is clamped to the north bin.
func DirectionBin(degrees float64) int {
	shifted := math.Mod(degrees+directionBinWidth/2, 360)
	if shifted < 0 {
		shifted += 360
	}
	idx := int(shifted / directionBinWidth)
	if idx < 0 || idx >= directionBinCount {
		return 0
	}
	return idx
}

// DayKey returns the MM-DD day-of-year key for a timestamp, in UTC.
func DayKey(t time.Time) string {
	return t.UTC().Format("01-02")
}

// DayKeys returns all 366 MM-DD keys in calendar order, including 02-29.
func DayKeys() []string {
	keys := make([]string, 0, 366)
	daysIn := [12]int{31, 29, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}
	for m := 1; m <= 12; m++ {
		for d := 1; d <= daysIn[m-1]; d++ {
			keys = append(keys, fmt.Sprintf("%02d-%02d", m, d))
		}
	}
	return keys
}

// DailyHistogram1D maps day-of-year keys to speed-bin counts aggregated
// across every matching calendar day in the ten-year span.
type DailyHistogram1D struct {
	SpotID      string             `json:"spot_id"`
	Bins        []float64          `json:"bins"` // lower edges, final bin unbounded
	DailyCounts map[string][]int64 `json:"daily_counts"`
}

// DailyHistogram2D maps day-of-year keys to speed × direction count
// matrices, indexed [speed bin][direction bin].
type DailyHistogram2D struct {
	SpotID        string               `json:"spot_id"`
	SpeedBins     []float64            `json:"speed_bins"`
	DirectionBins []float64            `json:"direction_bins"` // bin centers
	DailyCounts   map[string][][]int64 `json:"daily_counts"`
}

// BuildHistograms folds a daylight-filtered wind series into the per-day 1D
// and 2D histograms for one spot. Every sample lands in exactly one bin of
// each histogram, so the two always share per-day totals.
func BuildHistograms(spotID string, w WindSeries) (DailyHistogram1D, DailyHistogram2D, error) {
	if len(w.Speeds) != len(w.Times) || len(w.Directions) != len(w.Times) {
		return DailyHistogram1D{}, DailyHistogram2D{},
			fmt.Errorf("wind series misaligned: %d times, %d speeds, %d directions",
				len(w.Times), len(w.Speeds), len(w.Directions))
	}

	h1 := DailyHistogram1D{
		SpotID:      spotID,
		Bins:        SpeedBinEdges(),
		DailyCounts: make(map[string][]int64),
	}
	h2 := DailyHistogram2D{
		SpotID:        spotID,
		SpeedBins:     SpeedBinEdges(),
		DirectionBins: DirectionBinCenters(),
		DailyCounts:   make(map[string][][]int64),
	}

	for i, ts := range w.Times {
		key := DayKey(ts)
		sb := SpeedBin(w.Speeds[i])
		db := DirectionBin(w.Directions[i])

		counts, ok := h1.DailyCounts[key]
		if !ok {
			counts = make([]int64, speedBinCount)
			h1.DailyCounts[key] = counts
		}
		counts[sb]++

		matrix, ok := h2.DailyCounts[key]
		if !ok {
			matrix = make([][]int64, speedBinCount)
			for s := range matrix {
				matrix[s] = make([]int64, directionBinCount)
			}
			h2.DailyCounts[key] = matrix
		}
		matrix[sb][db]++
	}

	if err := CheckConsistency(h1, h2); err != nil {
		return DailyHistogram1D{}, DailyHistogram2D{}, err
	}
	return h1, h2, nil
}

// CheckConsistency verifies the invariant that for every day key the 1D
// histogram total equals the 2D histogram total: both bin the same hourly
// samples. A violation is a defect and the histograms must not be persisted.
func CheckConsistency(h1 DailyHistogram1D, h2 DailyHistogram2D) error {
	if len(h1.DailyCounts) != len(h2.DailyCounts) {
		return fmt.Errorf("spot %s: 1d has %d day keys, 2d has %d",
			h1.SpotID, len(h1.DailyCounts), len(h2.DailyCounts))
	}
	for key, counts := range h1.DailyCounts {
		matrix, ok := h2.DailyCounts[key]
		if !ok {
			return fmt.Errorf("spot %s day %s: missing from 2d histogram", h1.SpotID, key)
		}
		var sum1, sum2 int64
		for _, c := range counts {
			if c < 0 {
				return fmt.Errorf("spot %s day %s: negative 1d count", h1.SpotID, key)
			}
			sum1 += c
		}
		for _, row := range matrix {
			for _, c := range row {
				if c < 0 {
					return fmt.Errorf("spot %s day %s: negative 2d count", h1.SpotID, key)
				}
				sum2 += c
			}
		}
		if sum1 != sum2 {
			return fmt.Errorf("spot %s day %s: 1d total %d != 2d total %d",
				h1.SpotID, key, sum1, sum2)
		}
	}
	return nil
}
