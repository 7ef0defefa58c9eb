// Package pipeline orchestrates the extraction run: for every grid cell with
// spots it downloads (or reuses) the cell's raw wind grid, computes each
// spot's climatology, persists it, and optionally cleans the raw cache. Cell
// failures are absorbed so one bad cell never aborts the run.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/geo"
	"github.com/kitecompass/windatlas-etl/internal/grid"
	"github.com/kitecompass/windatlas-etl/internal/observability"
	"github.com/kitecompass/windatlas-etl/internal/store"
)

// Fetcher downloads one cell's gridded wind data from the provider.
type Fetcher interface {
	FetchWindGrid(ctx context.Context, box geo.BoundingBox, start, end time.Time) (*domain.RawWindDataset, error)
}

// Options controls one extraction run.
type Options struct {
	Start time.Time
	End   time.Time

	BufferKm       float64
	MaxAttempts    int
	MaxCells       int // 0 means no limit
	ForceDownload  bool
	ForceProcess   bool
	Cleanup        bool
	Daylight       domain.DaylightFilter
	SustainedHours int
}

// Report summarizes a finished (or in-flight) run. Served by /status.
type Report struct {
	CellsTotal      int   `json:"cells_total"`
	CellsDownloaded int   `json:"cells_downloaded"`
	CellsCached     int   `json:"cells_cached"`
	CellsFailed     int   `json:"cells_failed"`
	SpotsExtracted  int   `json:"spots_extracted"`
	SpotsCached     int   `json:"spots_cached"`
	SpotsSkipped    int   `json:"spots_skipped"`
	BytesFreed      int64 `json:"bytes_freed"`
}

// Pipeline runs the download-extract-persist loop over grid cells.
type Pipeline struct {
	fetcher   Fetcher
	retryable func(error) bool
	raws      *store.RawStore
	hists     *store.HistStore
	clock     clockwork.Clock
	logger    *slog.Logger
	metrics   *observability.Metrics
	opts      Options

	ready atomic.Bool

	mu     sync.Mutex
	report Report
}

// New creates a Pipeline. retryable classifies fetch errors; a nil classifier
// treats every fetch error as terminal.
func New(fetcher Fetcher, retryable func(error) bool, raws *store.RawStore, hists *store.HistStore,
	clock clockwork.Clock, logger *slog.Logger, metrics *observability.Metrics, opts Options) *Pipeline {
	if retryable == nil {
		retryable = func(error) bool { return false }
	}
	return &Pipeline{
		fetcher:   fetcher,
		retryable: retryable,
		raws:      raws,
		hists:     hists,
		clock:     clock,
		logger:    logger,
		metrics:   metrics,
		opts:      opts,
	}
}

// CheckReadiness returns nil once the run has finished at least one cell.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("pipeline has not completed any cells yet")
	}
	return nil
}

// Snapshot returns a copy of the current run report.
func (p *Pipeline) Snapshot() any {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.report
}

// Run processes every non-empty cell in order. The returned error is non-nil
// only when the context was canceled or every cell failed; individual cell
// failures are counted in the report and logged.
func (p *Pipeline) Run(ctx context.Context, cells []grid.Cell) (Report, error) {
	work := grid.NonEmpty(cells)
	if p.opts.MaxCells > 0 && len(work) > p.opts.MaxCells {
		work = work[:p.opts.MaxCells]
	}

	p.mu.Lock()
	p.report = Report{CellsTotal: len(work)}
	p.mu.Unlock()

	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	p.logger.Info("run started",
		"cells", len(work),
		"start", p.opts.Start.Format(time.RFC3339),
		"end", p.opts.End.Format(time.RFC3339),
		"daylight_filter", p.opts.Daylight.Enabled,
	)

	for _, cell := range work {
		if ctx.Err() != nil {
			p.logger.Info("run interrupted", "reason", ctx.Err())
			return p.Snapshot().(Report), ctx.Err()
		}
		p.processCell(ctx, cell)
		p.ready.Store(true)
	}

	report := p.Snapshot().(Report)
	cacheBytes, err := p.raws.SizeBytes()
	if err != nil {
		p.logger.Warn("raw cache size unavailable", "error", err)
	}
	p.logger.Info("run finished",
		"cells_downloaded", report.CellsDownloaded,
		"cells_cached", report.CellsCached,
		"cells_failed", report.CellsFailed,
		"spots_extracted", report.SpotsExtracted,
		"spots_cached", report.SpotsCached,
		"spots_skipped", report.SpotsSkipped,
		"bytes_freed", report.BytesFreed,
		"cache_bytes", cacheBytes,
	)

	if report.CellsTotal > 0 && report.CellsFailed == report.CellsTotal {
		return report, errors.New("every cell failed")
	}
	return report, nil
}

func (p *Pipeline) processCell(ctx context.Context, cell grid.Cell) {
	start := p.clock.Now()
	logger := p.logger.With("cell", cell.ID(), "spots", len(cell.Spots))

	// A cell whose every spot is already persisted needs no grid at all.
	if p.cellComplete(cell) {
		logger.Info("cell already extracted, skipping")
		p.metrics.CellsProcessed.WithLabelValues("cached").Inc()
		p.update(func(r *Report) {
			r.CellsCached++
			r.SpotsCached += len(cell.Spots)
		})
		p.cleanupCell(cell, logger)
		return
	}

	ds, downloaded, err := p.acquireGrid(ctx, cell, logger)
	if err != nil {
		logger.Error("cell failed", "error", err)
		p.metrics.CellsProcessed.WithLabelValues("error").Inc()
		p.update(func(r *Report) { r.CellsFailed++ })
		return
	}
	if downloaded {
		p.metrics.CellsProcessed.WithLabelValues("downloaded").Inc()
		p.update(func(r *Report) { r.CellsDownloaded++ })
	} else {
		p.metrics.CellsProcessed.WithLabelValues("cached").Inc()
		p.update(func(r *Report) { r.CellsCached++ })
	}

	allPersisted := true
	for _, spot := range cell.Spots {
		if !p.opts.ForceProcess && p.hists.Exists(spot.ID) {
			p.update(func(r *Report) { r.SpotsCached++ })
			continue
		}
		if err := p.extractSpot(spot, ds); err != nil {
			logger.Warn("spot extraction failed, skipping", "spot", spot.ID, "error", err)
			p.metrics.SpotsSkipped.Inc()
			p.update(func(r *Report) { r.SpotsSkipped++ })
			allPersisted = false
			continue
		}
		p.metrics.SpotsExtracted.Inc()
		p.update(func(r *Report) { r.SpotsExtracted++ })
	}

	// The raw grid is only expendable once every spot's product is durable.
	if allPersisted {
		p.cleanupCell(cell, logger)
	}

	p.metrics.CellDuration.Observe(p.clock.Since(start).Seconds())
	logger.Info("cell done", "downloaded", downloaded)
}

// cellComplete reports whether the cell can be skipped without touching the
// raw grid: no force flags and every spot's climatology already on disk.
func (p *Pipeline) cellComplete(cell grid.Cell) bool {
	if p.opts.ForceDownload || p.opts.ForceProcess {
		return false
	}
	for _, s := range cell.Spots {
		if !p.hists.Exists(s.ID) {
			return false
		}
	}
	return true
}

func (p *Pipeline) cleanupCell(cell grid.Cell, logger *slog.Logger) {
	if !p.opts.Cleanup {
		return
	}
	freed, err := p.raws.Delete(cell.CacheKey())
	if err != nil {
		logger.Warn("cache cleanup failed", "error", err)
	} else if freed > 0 {
		p.metrics.CacheBytesFreed.Add(float64(freed))
		p.update(func(r *Report) { r.BytesFreed += freed })
	}
}

// acquireGrid returns the cell's raw grid, reusing the cache when allowed.
// A corrupt cache entry is treated as a miss and re-downloaded.
func (p *Pipeline) acquireGrid(ctx context.Context, cell grid.Cell, logger *slog.Logger) (*domain.RawWindDataset, bool, error) {
	if !p.opts.ForceDownload && p.raws.Exists(cell.CacheKey()) {
		ds, err := p.raws.Load(cell.CacheKey())
		if err == nil {
			return ds, false, nil
		}
		logger.Warn("cached grid unusable, re-downloading", "error", err)
	}

	ds, err := p.fetchWithRetry(ctx, cell)
	if err != nil {
		return nil, false, err
	}
	if err := p.raws.Save(cell.CacheKey(), ds); err != nil {
		return nil, false, fmt.Errorf("cache grid: %w", err)
	}
	return ds, true, nil
}

func (p *Pipeline) fetchWithRetry(ctx context.Context, cell grid.Cell) (*domain.RawWindDataset, error) {
	box := cell.DownloadBounds(p.opts.BufferKm)

	// Exponential backoff: start at 2s, double each retry, cap at 60s.
	// Provider queues are slow; tight retry loops only burn quota.
	backoff := 2 * time.Second
	maxBackoff := 60 * time.Second

	var lastErr error
	for attempt := 1; attempt <= p.opts.MaxAttempts; attempt++ {
		p.metrics.FetchAttempts.Inc()
		ds, err := p.fetcher.FetchWindGrid(ctx, box, p.opts.Start, p.opts.End)
		if err == nil {
			return ds, nil
		}
		lastErr = err

		if !p.retryable(err) || attempt == p.opts.MaxAttempts {
			break
		}
		p.logger.Warn("fetch failed, retrying",
			"cell", cell.ID(), "attempt", attempt, "backoff", backoff, "error", err)
		p.metrics.FetchRetries.Inc()
		if !p.sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff, maxBackoff)
	}
	return nil, fmt.Errorf("fetch cell %s: %w", cell.ID(), lastErr)
}

// extractSpot computes and persists one spot's climatology from the cell grid.
func (p *Pipeline) extractSpot(spot domain.Spot, ds *domain.RawWindDataset) error {
	if km := ds.ClampDistanceKm(spot.Latitude, spot.Longitude); km > 0 {
		p.logger.Warn("spot outside grid extent, clamping",
			"spot", spot.ID, "distance_km", km)
	}

	series, err := ds.Interpolate(spot.Latitude, spot.Longitude)
	if err != nil {
		return fmt.Errorf("interpolate: %w", err)
	}
	wind, err := domain.TransformSeries(series)
	if err != nil {
		return fmt.Errorf("transform: %w", err)
	}
	wind = p.opts.Daylight.Apply(wind, spot.Longitude)

	h1, h2, err := domain.BuildHistograms(spot.ID, wind)
	if err != nil {
		return fmt.Errorf("histograms: %w", err)
	}
	sustained := domain.BuildSustainedWind(spot.ID, wind, p.opts.SustainedHours)

	rec := store.SpotClimatology{
		SpotID:        spot.ID,
		SpotName:      spot.Name,
		Histogram1D:   h1,
		Histogram2D:   h2,
		SustainedWind: sustained,
	}
	if err := p.hists.Save(rec); err != nil {
		return fmt.Errorf("persist: %w", err)
	}
	return nil
}

func (p *Pipeline) update(fn func(*Report)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fn(&p.report)
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func (p *Pipeline) sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	select {
	case <-ctx.Done():
		return false
	case <-p.clock.After(d):
		return true
	}
}
