package pipeline_test

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/geo"
	"github.com/kitecompass/windatlas-etl/internal/grid"
	"github.com/kitecompass/windatlas-etl/internal/observability"
	"github.com/kitecompass/windatlas-etl/internal/pipeline"
	"github.com/kitecompass/windatlas-etl/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testLogger = slog.New(slog.NewTextHandler(discard{}, nil))

type discard struct{}

func (discard) Write(p []byte) (int, error) { return len(p), nil }

// mockFetcher returns a fixed dataset or error and counts calls.
type mockFetcher struct {
	calls     atomic.Int64
	err       error // returned on every call
	failFirst error // returned on the first call only
}

func (m *mockFetcher) FetchWindGrid(_ context.Context, _ geo.BoundingBox, _, _ time.Time) (*domain.RawWindDataset, error) {
	n := m.calls.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	if n == 1 && m.failFirst != nil {
		return nil, m.failFirst
	}
	return testDataset(), nil
}

// Daytime hours at longitude ~4.5E on one July day, constant 8 m/s westerly.
func testDataset() *domain.RawWindDataset {
	base := time.Date(2020, time.July, 10, 10, 0, 0, 0, time.UTC)
	ds := &domain.RawWindDataset{
		Lats: []float64{52.0, 53.0},
		Lons: []float64{4.0, 5.0},
	}
	for h := 0; h < 4; h++ {
		ds.Times = append(ds.Times, base.Add(time.Duration(h)*time.Hour))
		ds.U = append(ds.U, [][]float64{{8, 8}, {8, 8}})
		ds.V = append(ds.V, [][]float64{{0, 0}, {0, 0}})
	}
	return ds
}

type harness struct {
	fetcher *mockFetcher
	raws    *store.RawStore
	hists   *store.HistStore
	clock   *clockwork.FakeClock
	dataDir string
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	clock := clockwork.NewFakeClockAt(time.Date(2026, time.March, 1, 9, 0, 0, 0, time.UTC))
	raws, err := store.NewRawStore(dir, testLogger)
	require.NoError(t, err)
	hists, err := store.NewHistStore(dir, clock, testLogger)
	require.NoError(t, err)
	return &harness{fetcher: &mockFetcher{}, raws: raws, hists: hists, clock: clock, dataDir: dir}
}

func (h *harness) pipeline(opts pipeline.Options) *pipeline.Pipeline {
	if opts.Start.IsZero() {
		opts.Start = time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC)
		opts.End = time.Date(2020, time.December, 31, 23, 0, 0, 0, time.UTC)
	}
	if opts.MaxAttempts == 0 {
		opts.MaxAttempts = 1
	}
	if opts.SustainedHours == 0 {
		opts.SustainedHours = domain.DefaultSustainedHours
	}
	retryable := func(err error) bool { return errors.Is(err, errTransient) }
	return pipeline.New(h.fetcher, retryable, h.raws, h.hists, h.clock,
		testLogger, observability.NewMetricsForTesting(), opts)
}

var errTransient = errors.New("provider busy")

func testCells(t *testing.T, spots ...domain.Spot) []grid.Cell {
	t.Helper()
	cells, err := grid.Partition(spots, 90, 60)
	require.NoError(t, err)
	return cells
}

func spot(id string, lat, lon float64) domain.Spot {
	return domain.Spot{ID: id, Name: id, Latitude: lat, Longitude: lon}
}

func TestRun_ExtractsAndPersists(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(pipeline.Options{Daylight: domain.NewDaylightFilter(true)})
	cells := testCells(t, spot("wijk", 52.49, 4.56), spot("ijmuiden", 52.46, 4.55))

	report, err := p.Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Equal(t, 1, report.CellsTotal)
	assert.Equal(t, 1, report.CellsDownloaded)
	assert.Equal(t, 2, report.SpotsExtracted)
	assert.Zero(t, report.SpotsSkipped)
	assert.Equal(t, int64(1), h.fetcher.calls.Load())

	require.True(t, h.hists.Exists("wijk"))
	rec, err := h.hists.Load("wijk")
	require.NoError(t, err)
	// 4 daytime hours of a constant wind land in one day key and one bin.
	require.Contains(t, rec.Histogram1D.DailyCounts, "07-10")
	var total int64
	for _, c := range rec.Histogram1D.DailyCounts["07-10"] {
		total += c
	}
	assert.Equal(t, int64(4), total)
	assert.Positive(t, rec.SustainedWind.DailyMax["07-10"])
	assert.Equal(t, h.clock.Now().UTC(), rec.GeneratedAt)
}

func TestRun_EmptyCellsNeverFetched(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(pipeline.Options{})

	report, err := p.Run(context.Background(), testCells(t))
	require.NoError(t, err)
	assert.Zero(t, report.CellsTotal)
	assert.Zero(t, h.fetcher.calls.Load())
}

func TestRun_ResumeUsesCaches(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	_, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)
	require.Equal(t, int64(1), h.fetcher.calls.Load())

	report, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Equal(t, int64(1), h.fetcher.calls.Load(), "no second download")
	assert.Equal(t, 1, report.CellsCached)
	assert.Equal(t, 1, report.SpotsCached)
	assert.Zero(t, report.SpotsExtracted)
}

func TestRun_ForceFlagsRedoWork(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	_, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)

	report, err := h.pipeline(pipeline.Options{ForceDownload: true, ForceProcess: true}).
		Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Equal(t, int64(2), h.fetcher.calls.Load())
	assert.Equal(t, 1, report.CellsDownloaded)
	assert.Equal(t, 1, report.SpotsExtracted)
}

func TestRun_CorruptCacheRedownloads(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	_, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)

	cacheKey := grid.NonEmpty(cells)[0].CacheKey()
	path := filepath.Join(h.dataDir, "raw", cacheKey+".json.gz")
	require.NoError(t, os.WriteFile(path, []byte("garbage"), 0o644))

	report, err := h.pipeline(pipeline.Options{ForceProcess: true}).Run(context.Background(), cells)
	require.NoError(t, err)
	assert.Equal(t, int64(2), h.fetcher.calls.Load())
	assert.Equal(t, 1, report.CellsDownloaded)
}

func TestRun_TerminalFetchErrorFailsCell(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errors.New("bad request")
	p := h.pipeline(pipeline.Options{MaxAttempts: 5})

	report, err := p.Run(context.Background(), testCells(t, spot("wijk", 52.49, 4.56)))
	require.Error(t, err, "every cell failed")
	assert.Equal(t, 1, report.CellsFailed)
	assert.Equal(t, int64(1), h.fetcher.calls.Load(), "terminal errors are not retried")
}

func TestRun_RetryableFetchErrorExhaustsAttempts(t *testing.T) {
	h := newHarness(t)
	h.fetcher.err = errTransient
	p := h.pipeline(pipeline.Options{MaxAttempts: 3})

	done := make(chan pipeline.Report, 1)
	go func() {
		report, _ := p.Run(context.Background(), testCells(t, spot("wijk", 52.49, 4.56)))
		done <- report
	}()

	// Two backoff sleeps separate the three attempts.
	for i := 0; i < 2; i++ {
		h.clock.BlockUntil(1)
		h.clock.Advance(time.Minute)
	}
	report := <-done

	assert.Equal(t, int64(3), h.fetcher.calls.Load())
	assert.Equal(t, 1, report.CellsFailed)
}

func TestRun_FailedCellDoesNotAbortRun(t *testing.T) {
	h := newHarness(t)
	h.fetcher.failFirst = errors.New("bad request")
	cells := testCells(t, spot("wijk", 52.49, 4.56), spot("cabarete", 19.75, -70.41))

	report, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CellsFailed)
	assert.Equal(t, 1, report.CellsDownloaded)
	assert.Equal(t, 1, report.SpotsExtracted)
}

func TestRun_MaxCellsLimitsWork(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56), spot("cabarete", 19.75, -70.41))

	report, err := h.pipeline(pipeline.Options{MaxCells: 1}).Run(context.Background(), cells)
	require.NoError(t, err)
	assert.Equal(t, 1, report.CellsTotal)
	assert.Equal(t, int64(1), h.fetcher.calls.Load())
}

func TestRun_CleanupDeletesRawAfterPersist(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	report, err := h.pipeline(pipeline.Options{Cleanup: true}).Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Positive(t, report.BytesFreed)
	assert.False(t, h.raws.Exists(grid.NonEmpty(cells)[0].CacheKey()))
	assert.True(t, h.hists.Exists("wijk"))
}

func TestRun_RerunAfterCleanupDoesNotRedownload(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	_, err := h.pipeline(pipeline.Options{Cleanup: true}).Run(context.Background(), cells)
	require.NoError(t, err)
	require.False(t, h.raws.Exists(grid.NonEmpty(cells)[0].CacheKey()))

	report, err := h.pipeline(pipeline.Options{}).Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Equal(t, int64(1), h.fetcher.calls.Load(), "a fully persisted cell needs no grid")
	assert.Equal(t, 1, report.CellsCached)
	assert.Equal(t, 1, report.SpotsCached)
}

func TestRun_ChangedGridGeometryRedownloads(t *testing.T) {
	h := newHarness(t)
	spots := []domain.Spot{spot("wijk", 52.49, 4.56)}

	coarse, err := grid.Partition(spots, 90, 60)
	require.NoError(t, err)
	_, err = h.pipeline(pipeline.Options{}).Run(context.Background(), coarse)
	require.NoError(t, err)

	fine, err := grid.Partition(spots, 45, 60)
	require.NoError(t, err)
	report, err := h.pipeline(pipeline.Options{ForceProcess: true}).Run(context.Background(), fine)
	require.NoError(t, err)

	assert.Equal(t, int64(2), h.fetcher.calls.Load(),
		"a grid cached under different cell bounds is never reused")
	assert.Equal(t, 1, report.CellsDownloaded)
}

func TestRun_CleanupSkippedWhenSpotFails(t *testing.T) {
	h := newHarness(t)
	cells := testCells(t, spot("wijk", 52.49, 4.56))

	// A directory squatting on the spot's output path makes persistence fail.
	require.NoError(t, os.MkdirAll(filepath.Join(h.dataDir, "climatology", "wijk.json"), 0o755))

	report, err := h.pipeline(pipeline.Options{Cleanup: true}).Run(context.Background(), cells)
	require.NoError(t, err)

	assert.Equal(t, 1, report.SpotsSkipped)
	assert.Zero(t, report.BytesFreed)
	assert.True(t, h.raws.Exists(grid.NonEmpty(cells)[0].ID()), "raw grid kept for a retry")
}

func TestRun_CanceledContextStopsRun(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.pipeline(pipeline.Options{}).Run(ctx, testCells(t, spot("wijk", 52.49, 4.56)))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, h.fetcher.calls.Load())
}

func TestCheckReadiness(t *testing.T) {
	h := newHarness(t)
	p := h.pipeline(pipeline.Options{})

	assert.Error(t, p.CheckReadiness(context.Background()))

	_, err := p.Run(context.Background(), testCells(t, spot("wijk", 52.49, 4.56)))
	require.NoError(t, err)
	assert.NoError(t, p.CheckReadiness(context.Background()))
}
