package domain_test

import (
	"testing"
	"time"

	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWindSpeed(t *testing.T) {
	// 3-4-5 triangle: 5 m/s converted to knots.
	assert.InDelta(t, 5.0*domain.MsToKnots, domain.WindSpeed(3.0, 4.0), 1e-9)
	assert.Zero(t, domain.WindSpeed(0, 0))
	assert.InDelta(t, domain.MsToKnots, domain.WindSpeed(0, -1), 1e-9)
}

func TestWindDirection_Cardinals(t *testing.T) {
	// Going-to convention: 0° = blowing toward north.
	assert.InDelta(t, 0.0, domain.WindDirection(0, 1), 1e-9)
	assert.InDelta(t, 90.0, domain.WindDirection(1, 0), 1e-9)
	assert.InDelta(t, 180.0, domain.WindDirection(0, -1), 1e-9)
	assert.InDelta(t, 270.0, domain.WindDirection(-1, 0), 1e-9)
}

func TestWindDirection_EastOfNorthBearing(t *testing.T) {
	// u=3, v=4 blows toward a bearing east of north: atan2(3,4) ≈ 36.87°.
	assert.InDelta(t, 36.8699, domain.WindDirection(3, 4), 0.001)
}

func TestWindDirection_AlwaysNormalized(t *testing.T) {
	for _, uv := range [][2]float64{
		{1, 1}, {-1, 1}, {-1, -1}, {1, -1}, {0.001, -5}, {-3, 0.0001}, {0, 0},
	} {
		d := domain.WindDirection(uv[0], uv[1])
		assert.GreaterOrEqual(t, d, 0.0, "u=%v v=%v", uv[0], uv[1])
		assert.Less(t, d, 360.0, "u=%v v=%v", uv[0], uv[1])
	}
}

func TestTransformSeries(t *testing.T) {
	base := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := domain.SpotSeries{
		Times: []time.Time{base, base.Add(time.Hour)},
		U:     []float64{3.0, 0.0},
		V:     []float64{4.0, -2.0},
	}

	w, err := domain.TransformSeries(s)
	require.NoError(t, err)
	require.Equal(t, 2, w.Len())
	assert.InDelta(t, 5.0*domain.MsToKnots, w.Speeds[0], 1e-9)
	assert.InDelta(t, 36.8699, w.Directions[0], 0.001)
	assert.InDelta(t, 180.0, w.Directions[1], 1e-9)
}

func TestTransformSeries_MisalignedComponents(t *testing.T) {
	base := time.Date(2020, time.June, 1, 12, 0, 0, 0, time.UTC)
	s := domain.SpotSeries{
		Times: []time.Time{base, base.Add(time.Hour)},
		U:     []float64{3.0, 1.0},
		V:     []float64{4.0},
	}

	_, err := domain.TransformSeries(s)
	assert.ErrorContains(t, err, "misaligned")
}
