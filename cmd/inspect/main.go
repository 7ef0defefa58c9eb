// Command inspect prints a persisted spot climatology in a human-readable
// form: per-day sample totals, the busiest speed bin, and the sustained-wind
// summary. Useful for eyeballing pipeline output without loading it into the
// serving stack.
//
// Usage:
//
//	inspect -data-dir ./data -spot abc123 [-day 07-10]
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/jonboulle/clockwork"
	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/observability"
	"github.com/kitecompass/windatlas-etl/internal/store"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	dataDir := flag.String("data-dir", "./data", "pipeline data directory")
	spotID := flag.String("spot", "", "spot identifier")
	day := flag.String("day", "", "optional MM-DD day key to expand")
	flag.Parse()

	if *spotID == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -spot")
	}

	logger := observability.NewLogger("error", "text")
	hists, err := store.NewHistStore(*dataDir, clockwork.NewRealClock(), logger)
	if err != nil {
		return err
	}
	rec, err := hists.Load(*spotID)
	if err != nil {
		return err
	}

	fmt.Printf("spot %s (%s), generated %s\n", rec.SpotID, rec.SpotName,
		rec.GeneratedAt.Format("2006-01-02 15:04 MST"))
	fmt.Printf("days with samples: %d\n\n", len(rec.Histogram1D.DailyCounts))

	if *day != "" {
		return printDay(rec, *day)
	}
	return printSummary(rec)
}

func printSummary(rec store.SpotClimatology) error {
	fmt.Println("day    samples  modal speed   sustained")
	for _, key := range domain.DayKeys() {
		counts, ok := rec.Histogram1D.DailyCounts[key]
		if !ok {
			continue
		}
		var total int64
		modal := 0
		for i, c := range counts {
			total += c
			if c > counts[modal] {
				modal = i
			}
		}
		fmt.Printf("%s  %7d  %4.1f-%4.1f kn  %6.1f kn\n",
			key, total,
			rec.Histogram1D.Bins[modal], rec.Histogram1D.Bins[modal]+2.5,
			rec.SustainedWind.DailyMax[key])
	}
	return nil
}

func printDay(rec store.SpotClimatology, day string) error {
	matrix, ok := rec.Histogram2D.DailyCounts[day]
	if !ok {
		return fmt.Errorf("no samples for day %s", day)
	}

	fmt.Printf("speed x direction counts for %s\n", day)
	fmt.Printf("%12s", "")
	for _, c := range rec.Histogram2D.DirectionBins {
		if int(c)%90 == 0 {
			fmt.Printf("%5.0f", c)
		}
	}
	fmt.Println()
	for s, row := range matrix {
		var total int64
		for _, c := range row {
			total += c
		}
		if total == 0 {
			continue
		}
		fmt.Printf("%5.1f kn: %6d total\n", rec.Histogram1D.Bins[s], total)
	}
	return nil
}
