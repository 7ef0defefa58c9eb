// Command pipeline runs one wind-climatology extraction pass: it partitions
// the spot catalog into grid cells, downloads ten years of hourly wind for
// every cell that has spots, and persists per-spot daily histograms. The run
// is resumable; cached cells and already-persisted spots are skipped unless
// forced.
//
// Usage:
//
//	pipeline -spots spots.json [-max-cells N] [-force-download]
//	  [-force-process] [-cleanup] [-no-daylight-filter]
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/kitecompass/windatlas-etl/internal/adapter/era5"
	"github.com/kitecompass/windatlas-etl/internal/adapter/httpserv"
	"github.com/kitecompass/windatlas-etl/internal/config"
	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/grid"
	"github.com/kitecompass/windatlas-etl/internal/observability"
	"github.com/kitecompass/windatlas-etl/internal/pipeline"
	"github.com/kitecompass/windatlas-etl/internal/store"
)

func main() {
	spotsPath := flag.String("spots", "", "path to the spot catalog JSON")
	maxCells := flag.Int("max-cells", 0, "process at most N cells (0 = all)")
	forceDownload := flag.Bool("force-download", false, "re-download cells even when cached")
	forceProcess := flag.Bool("force-process", false, "recompute spots even when persisted")
	cleanup := flag.Bool("cleanup", false, "delete raw cell grids after all spots are persisted")
	noDaylight := flag.Bool("no-daylight-filter", false, "keep night-time samples")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *spotsPath == "" {
		slog.Error("missing required flag -spots")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()
	clock := clockwork.NewRealClock()

	spots, err := domain.LoadSpots(*spotsPath)
	if err != nil {
		logger.Error("failed to load spot catalog", "error", err)
		os.Exit(1)
	}

	cells, err := grid.Partition(spots, cfg.CellSizeLatDeg, cfg.CellSizeLonDeg)
	if err != nil {
		logger.Error("failed to partition grid", "error", err)
		os.Exit(1)
	}

	raws, err := store.NewRawStore(cfg.DataDir, logger)
	if err != nil {
		logger.Error("failed to open raw store", "error", err)
		os.Exit(1)
	}
	hists, err := store.NewHistStore(cfg.DataDir, clock, logger)
	if err != nil {
		logger.Error("failed to open climatology store", "error", err)
		os.Exit(1)
	}

	fetcher := era5.NewClient(cfg.ProviderBaseURL, cfg.ProviderTimeout, logger)
	start, end := era5.HistoricalRange(clock.Now())

	daylight := domain.DaylightFilter{
		Enabled:   cfg.DaylightFilter && !*noDaylight,
		StartHour: cfg.DaylightStartHour,
		EndHour:   cfg.DaylightEndHour,
	}

	p := pipeline.New(fetcher, era5.IsRetryable, raws, hists, clock, logger, metrics, pipeline.Options{
		Start:          start,
		End:            end,
		BufferKm:       cfg.BufferKm,
		MaxAttempts:    cfg.FetchMaxAttempts,
		MaxCells:       *maxCells,
		ForceDownload:  *forceDownload,
		ForceProcess:   *forceProcess,
		Cleanup:        *cleanup,
		Daylight:       daylight,
		SustainedHours: cfg.SustainedHours,
	})

	srv := httpserv.NewServer(cfg.HTTPAddr, p, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	report, runErr := p.Run(ctx, cells)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	if runErr != nil {
		logger.Error("run failed", "error", runErr)
		os.Exit(1)
	}
	if report.CellsFailed > 0 {
		logger.Error("run finished with failed cells", "cells_failed", report.CellsFailed)
		os.Exit(1)
	}
	logger.Info("done",
		"spots_extracted", report.SpotsExtracted,
		"spots_cached", report.SpotsCached,
		"spots_skipped", report.SpotsSkipped,
	)
}
