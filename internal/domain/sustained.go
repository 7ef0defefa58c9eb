package domain

import "math"

// DefaultSustainedHours is the minimum run of consecutive hours a wind
// strength must hold to count as sustained. Two hours is roughly the minimum
// worthwhile session.
const DefaultSustainedHours = 2

// DailySustainedWind records, per day-of-year key, the mean across years of
// the strongest wind that held for at least SustainedHours consecutive
// daylight hours on that calendar day.
type DailySustainedWind struct {
	SpotID         string             `json:"spot_id"`
	SustainedHours int                `json:"sustained_hours"`
	DailyMax       map[string]float64 `json:"daily_max"`
}

// maxOfRollingMin returns the maximum over all windows of the window minimum:
// the strongest wind guaranteed for windowSize consecutive samples. Returns 0
// when there are fewer samples than the window.
func maxOfRollingMin(speeds []float64, windowSize int) float64 {
	if len(speeds) < windowSize || windowSize <= 0 {
		return 0
	}
	best := 0.0
	for i := 0; i+windowSize <= len(speeds); i++ {
		windowMin := math.Inf(1)
		for _, s := range speeds[i : i+windowSize] {
			if s < windowMin {
				windowMin = s
			}
		}
		if windowMin > best {
			best = windowMin
		}
	}
	return best
}

// BuildSustainedWind computes the daily max sustained wind for one spot from
// a daylight-filtered series. Samples are grouped by full calendar date so a
// run of hours never spans two days, then averaged per day-of-year key.
func BuildSustainedWind(spotID string, w WindSeries, sustainedHours int) DailySustainedWind {
	type dayGroup struct {
		key    string
		speeds []float64
	}

	var groups []*dayGroup
	byDate := make(map[string]*dayGroup)
	for i, ts := range w.Times {
		date := ts.UTC().Format("2006-01-02")
		g, ok := byDate[date]
		if !ok {
			g = &dayGroup{key: DayKey(ts)}
			byDate[date] = g
			groups = append(groups, g)
		}
		g.speeds = append(g.speeds, w.Speeds[i])
	}

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, g := range groups {
		sustained := maxOfRollingMin(g.speeds, sustainedHours)
		if sustained <= 0 {
			continue
		}
		sums[g.key] += sustained
		counts[g.key]++
	}

	daily := make(map[string]float64, len(sums))
	for key, sum := range sums {
		daily[key] = sum / float64(counts[key])
	}

	return DailySustainedWind{
		SpotID:         spotID,
		SustainedHours: sustainedHours,
		DailyMax:       daily,
	}
}
