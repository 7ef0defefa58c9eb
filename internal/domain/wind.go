package domain

import (
	"fmt"
	"math"
	"time"
)

// MsToKnots converts meters per second to knots.
const MsToKnots = 1.94384

// WindSeries is a spot's hourly wind after transformation: speed in knots
// and going-to direction in degrees [0, 360), aligned to Times.
type WindSeries struct {
	Times      []time.Time
	Speeds     []float64
	Directions []float64
}

// Len returns the number of hourly samples.
func (w WindSeries) Len() int { return len(w.Times) }

// WindSpeed returns the wind strength in knots for one u/v component pair.
func WindSpeed(u, v float64) float64 {
	return math.Hypot(u, v) * MsToKnots
}

// WindDirection returns the bearing the wind blows toward, in degrees
// normalized to [0, 360). atan2(u, v) measures clockwise from north.
func WindDirection(u, v float64) float64 {
	deg := math.Atan2(u, v) * 180 / math.Pi
	deg = math.Mod(deg+360, 360)
	if deg == 360 {
		return 0
	}
	return deg
}

// TransformSeries converts an interpolated u/v series into speed and
// direction arrays. A length mismatch between the components is a data
// integrity defect and returns an error rather than truncating.
func TransformSeries(s SpotSeries) (WindSeries, error) {
	if len(s.U) != len(s.V) || len(s.U) != len(s.Times) {
		return WindSeries{}, fmt.Errorf("component arrays misaligned: %d times, %d u, %d v",
			len(s.Times), len(s.U), len(s.V))
	}

	w := WindSeries{
		Times:      make([]time.Time, len(s.Times)),
		Speeds:     make([]float64, len(s.Times)),
		Directions: make([]float64, len(s.Times)),
	}
	copy(w.Times, s.Times)
	for i := range s.U {
		w.Speeds[i] = WindSpeed(s.U[i], s.V[i])
		w.Directions[i] = WindDirection(s.U[i], s.V[i])
	}
	return w, nil
}
