package domain

import "math"

// Default daylight window in local solar hours. Kitesurfing happens during
// the day, so night-time samples would skew the histograms toward hours
// nobody rides.
const (
	DefaultDaylightStartHour = 8
	DefaultDaylightEndHour   = 20
)

// DaylightFilter removes night-time samples from a wind series using a
// coarse local-time rule: local solar hour = UTC hour + longitude/15. This
// is a deliberate simplification, not solar-elevation accurate.
type DaylightFilter struct {
	Enabled   bool
	StartHour int // inclusive, local solar hour
	EndHour   int // exclusive, local solar hour
}

// NewDaylightFilter returns a filter with the default daytime window.
func NewDaylightFilter(enabled bool) DaylightFilter {
	return DaylightFilter{
		Enabled:   enabled,
		StartHour: DefaultDaylightStartHour,
		EndHour:   DefaultDaylightEndHour,
	}
}

// IsDaylight reports whether the UTC hour counts as daytime at the given
// longitude.
func (f DaylightFilter) IsDaylight(utcHour int, longitude float64) bool {
	if !f.Enabled {
		return true
	}
	local := math.Mod(float64(utcHour)+longitude/15+24, 24)
	return float64(f.StartHour) <= local && local < float64(f.EndHour)
}

// Apply returns a new series holding only the daytime samples for a spot at
// the given longitude. With the filter disabled the input is returned as is.
func (f DaylightFilter) Apply(w WindSeries, longitude float64) WindSeries {
	if !f.Enabled {
		return w
	}

	out := WindSeries{}
	for i, ts := range w.Times {
		if !f.IsDaylight(ts.UTC().Hour(), longitude) {
			continue
		}
		out.Times = append(out.Times, ts)
		out.Speeds = append(out.Speeds, w.Speeds[i])
		out.Directions = append(out.Directions, w.Directions[i])
	}
	return out
}
