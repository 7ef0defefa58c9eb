// Command mockprovider serves synthetic gridded wind data over the provider
// wire format, for local runs and integration testing without reanalysis
// credentials. Wind is generated from a smooth deterministic field so
// repeated requests for the same window return identical data.
//
// Usage:
//
//	mockprovider -addr :9000 [-resolution 0.25]
package main

import (
	"flag"
	"log"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

func main() {
	addr := flag.String("addr", ":9000", "listen address")
	resolution := flag.Float64("resolution", 0.25, "lattice spacing in degrees")
	flag.Parse()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/wind", handleWind(*resolution))

	log.Printf("mock wind provider listening on %s (resolution %.2f deg)", *addr, *resolution)
	log.Fatal(http.ListenAndServe(*addr, mux))
}

type gridResponse struct {
	Latitudes  []float64     `json:"latitudes"`
	Longitudes []float64     `json:"longitudes"`
	Hours      []int64       `json:"hours"`
	U          [][][]float64 `json:"u10"`
	V          [][][]float64 `json:"v10"`
}

func handleWind(resolution float64) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		north, err1 := strconv.ParseFloat(q.Get("north"), 64)
		south, err2 := strconv.ParseFloat(q.Get("south"), 64)
		east, err3 := strconv.ParseFloat(q.Get("east"), 64)
		west, err4 := strconv.ParseFloat(q.Get("west"), 64)
		start, err5 := time.Parse(time.RFC3339, q.Get("start"))
		end, err6 := time.Parse(time.RFC3339, q.Get("end"))
		for _, err := range []error{err1, err2, err3, err4, err5, err6} {
			if err != nil {
				http.Error(w, "invalid query parameter: "+err.Error(), http.StatusBadRequest)
				return
			}
		}
		if south >= north || west >= east || end.Before(start) {
			http.Error(w, "empty window", http.StatusBadRequest)
			return
		}

		resp := gridResponse{
			Latitudes:  axis(south, north, resolution),
			Longitudes: axis(west, east, resolution),
		}
		for ts := start.UTC().Truncate(time.Hour); !ts.After(end.UTC()); ts = ts.Add(time.Hour) {
			resp.Hours = append(resp.Hours, ts.Unix())
			u := make([][]float64, len(resp.Latitudes))
			v := make([][]float64, len(resp.Latitudes))
			for i, lat := range resp.Latitudes {
				u[i] = make([]float64, len(resp.Longitudes))
				v[i] = make([]float64, len(resp.Longitudes))
				for j, lon := range resp.Longitudes {
					u[i][j], v[i][j] = syntheticWind(lat, lon, ts)
				}
			}
			resp.U = append(resp.U, u)
			resp.V = append(resp.V, v)
		}

		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			log.Printf("encode response: %v", err)
		}
	}
}

func axis(lo, hi, step float64) []float64 {
	var out []float64
	for v := math.Floor(lo/step) * step; v <= hi+step/2; v += step {
		out = append(out, v)
	}
	return out
}

// syntheticWind produces a plausible sea-breeze-like field: a diurnal cycle
// on top of slow spatial variation, stronger in the afternoon.
func syntheticWind(lat, lon float64, ts time.Time) (u, v float64) {
	localHour := math.Mod(float64(ts.Hour())+lon/15+24, 24)
	diurnal := 1 + 0.6*math.Sin((localHour-6)/24*2*math.Pi)
	base := 6 + 3*math.Sin(lat/30) + 2*math.Cos(lon/40)
	speed := base * diurnal
	bearing := math.Mod(200+40*math.Sin(lon/25)+10*math.Sin(float64(ts.YearDay())/58), 360)
	rad := bearing * math.Pi / 180
	return speed * math.Sin(rad), speed * math.Cos(rad)
}
