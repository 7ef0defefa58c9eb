// Package domain models the wind-climatology records produced by the
// extraction pipeline.
//
// # Data Source
//
// Wind observations come from a global hourly reanalysis dataset: for every
// grid point the provider reports the 10 m wind as two components in m/s,
// u (eastward) and v (northward). The pipeline fetches one gridded dataset
// per grid cell covering a fixed ten-year span.
//
// # Conventions
//
// Speed:
//
//	knots = sqrt(u² + v²) · 1.94384
//
// Direction:
//
//	The compass bearing the wind is blowing TOWARD ("going to"), not the
//	meteorological from-direction. 0° = north, 90° = east, computed as
//	atan2(u, v) and normalized into [0, 360). A near-calm sample still gets
//	a numerically defined bearing and is counted like any other sample.
//
// Day-of-year keys:
//
//	"MM-DD" strings, 366 keys including "02-29". February 29 is kept as an
//	independent key; it simply aggregates fewer years than the other keys.
//
// Bins:
//
//	Speed bins are half-open [low, high) over the edges 0, 2.5, …, 35 knots,
//	with the final bin unbounded above — 15 bins. Direction bins are 36 bins
//	of 10° width centered on 0°, 10°, …, 350°; bearings in [355, 360) wrap
//	into the north-centered bin so no sample is ever dropped.
//
// Daylight:
//
//	Histograms only count daytime hours. Daytime is decided by a coarse
//	local-time rule: local solar hour = UTC hour + longitude/15, kept when it
//	falls inside a fixed window. This is deliberately not solar-elevation
//	accurate.
package domain
