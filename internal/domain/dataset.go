package domain

import (
	"fmt"
	"time"

	"github.com/kitecompass/windatlas-etl/internal/geo"
)

// RawWindDataset is one cell's gridded provider response: hourly u/v wind
// components on a small latitude × longitude lattice. Owned by the pipeline
// run that fetched it and deletable once extraction has been persisted.
type RawWindDataset struct {
	Lats  []float64   `json:"lats"`  // ascending
	Lons  []float64   `json:"lons"`  // ascending
	Times []time.Time `json:"times"` // hourly, UTC
	// U and V are indexed [time][lat][lon], meters per second.
	U [][][]float64 `json:"u"`
	V [][][]float64 `json:"v"`
}

// SpotSeries is the hourly u/v series interpolated at one spot's coordinates.
// Transient: it only exists while a cell is being extracted.
type SpotSeries struct {
	Times []time.Time
	U     []float64
	V     []float64
}

// Validate checks the dataset's dimensional consistency. A dataset that
// fails validation is corrupt and must be skipped, never patched.
func (d *RawWindDataset) Validate() error {
	if len(d.Lats) == 0 || len(d.Lons) == 0 {
		return fmt.Errorf("dataset has empty coordinate axes (%d lats, %d lons)", len(d.Lats), len(d.Lons))
	}
	if len(d.Times) == 0 {
		return fmt.Errorf("dataset has no timestamps")
	}
	if len(d.U) != len(d.Times) || len(d.V) != len(d.Times) {
		return fmt.Errorf("component length mismatch: %d times, %d u slices, %d v slices",
			len(d.Times), len(d.U), len(d.V))
	}
	for t := range d.U {
		if len(d.U[t]) != len(d.Lats) || len(d.V[t]) != len(d.Lats) {
			return fmt.Errorf("timestep %d: latitude dimension mismatch", t)
		}
		for i := range d.U[t] {
			if len(d.U[t][i]) != len(d.Lons) || len(d.V[t][i]) != len(d.Lons) {
				return fmt.Errorf("timestep %d lat %d: longitude dimension mismatch", t, i)
			}
		}
	}
	for i := 1; i < len(d.Lats); i++ {
		if d.Lats[i] <= d.Lats[i-1] {
			return fmt.Errorf("latitudes not strictly ascending at index %d", i)
		}
	}
	for i := 1; i < len(d.Lons); i++ {
		if d.Lons[i] <= d.Lons[i-1] {
			return fmt.Errorf("longitudes not strictly ascending at index %d", i)
		}
	}
	return nil
}

// Interpolate produces the hourly u/v series at the given coordinates by
// bilinear interpolation over the four surrounding lattice points. A point
// outside the lattice extent (should not happen given the download buffer)
// clamps to the nearest lattice edge instead of failing. The result is
// deterministic for identical inputs.
func (d *RawWindDataset) Interpolate(lat, lon float64) (SpotSeries, error) {
	if err := d.Validate(); err != nil {
		return SpotSeries{}, fmt.Errorf("interpolate: %w", err)
	}

	latLo, latHi, _ := geo.BracketIndices(d.Lats, lat)
	lonLo, lonHi, _ := geo.BracketIndices(d.Lons, lon)
	fy := geo.Fraction(d.Lats[latLo], d.Lats[latHi], lat)
	fx := geo.Fraction(d.Lons[lonLo], d.Lons[lonHi], lon)

	series := SpotSeries{
		Times: make([]time.Time, len(d.Times)),
		U:     make([]float64, len(d.Times)),
		V:     make([]float64, len(d.Times)),
	}
	copy(series.Times, d.Times)

	for t := range d.Times {
		series.U[t] = bilinear(
			d.U[t][latLo][lonLo], d.U[t][latLo][lonHi],
			d.U[t][latHi][lonLo], d.U[t][latHi][lonHi],
			fx, fy,
		)
		series.V[t] = bilinear(
			d.V[t][latLo][lonLo], d.V[t][latLo][lonHi],
			d.V[t][latHi][lonLo], d.V[t][latHi][lonHi],
			fx, fy,
		)
	}
	return series, nil
}

// ClampDistanceKm returns how far the point lies from the nearest lattice
// point when it falls outside the covered extent, and zero when it is
// covered. Used for diagnostics on defensive clamps.
func (d *RawWindDataset) ClampDistanceKm(lat, lon float64) float64 {
	_, _, latClamped := geo.BracketIndices(d.Lats, lat)
	_, _, lonClamped := geo.BracketIndices(d.Lons, lon)
	if !latClamped && !lonClamped {
		return 0
	}
	nearestLat := d.Lats[geo.NearestIndex(d.Lats, lat)]
	nearestLon := d.Lons[geo.NearestIndex(d.Lons, lon)]
	return geo.DistanceKm(lat, lon, nearestLat, nearestLon)
}

// bilinear interpolates between the four corner values; fx weights along the
// longitude axis, fy along the latitude axis.
func bilinear(ll, lh, hl, hh, fx, fy float64) float64 {
	low := ll*(1-fx) + lh*fx
	high := hl*(1-fx) + hh*fx
	return low*(1-fy) + high*fy
}
