// Package era5 adapts the external reanalysis wind provider: given a
// buffered bounding box and a historical date range it returns a gridded
// hourly u/v wind dataset. It is a thin boundary adapter; deciding whether a
// fetch is needed at all belongs to the orchestrator.
package era5

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/goccy/go-json"
	"github.com/kitecompass/windatlas-etl/internal/domain"
	"github.com/kitecompass/windatlas-etl/internal/geo"
)

// HistoricalYears is the length of the fixed extraction window.
const HistoricalYears = 10

// HistoricalRange returns the ten-year span ending with the last complete
// year before now. Reanalysis data trails the present, so the current year
// is never requested.
func HistoricalRange(now time.Time) (start, end time.Time) {
	endYear := now.UTC().Year() - 1
	start = time.Date(endYear-HistoricalYears+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	end = time.Date(endYear, time.December, 31, 23, 0, 0, 0, time.UTC)
	return start, end
}

// Client fetches gridded wind data over HTTP. Requests are idempotent by
// design: the provider may queue them for a long time and an interrupted run
// will re-issue identical requests.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a provider client. The timeout bounds a single request
// including queue wait; the orchestrator retries around it.
func NewClient(baseURL string, timeout time.Duration, logger *slog.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// FetchWindGrid requests hourly 10 m u/v wind for the bounding box and date
// range. Returns a validated dataset with ascending coordinate axes, or an
// error classified retryable/terminal via IsRetryable.
func (c *Client) FetchWindGrid(ctx context.Context, box geo.BoundingBox, start, end time.Time) (*domain.RawWindDataset, error) {
	if err := box.Validate(); err != nil {
		return nil, &ProviderError{Reason: err.Error()}
	}

	params := url.Values{
		"north": {fmt.Sprintf("%.4f", box.North)},
		"south": {fmt.Sprintf("%.4f", box.South)},
		"east":  {fmt.Sprintf("%.4f", box.East)},
		"west":  {fmt.Sprintf("%.4f", box.West)},
		"start": {start.UTC().Format(time.RFC3339)},
		"end":   {end.UTC().Format(time.RFC3339)},
		"vars":  {"u10,v10"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/wind?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wind grid request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Reason: string(body)}
	}

	var wire gridResponse
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("decode wind grid response: %w", err)
	}

	ds, err := wire.toDataset()
	if err != nil {
		return nil, fmt.Errorf("wind grid response invalid: %w", err)
	}
	return ds, nil
}

// Provider wire format. Hours are unix timestamps; u/v are indexed
// [time][lat][lon] in m/s. Latitude order is provider-defined (reanalysis
// grids commonly run north to south), so axes are normalized here.
type gridResponse struct {
	Latitudes  []float64     `json:"latitudes"`
	Longitudes []float64     `json:"longitudes"`
	Hours      []int64       `json:"hours"`
	U          [][][]float64 `json:"u10"`
	V          [][][]float64 `json:"v10"`
}

func (r gridResponse) toDataset() (*domain.RawWindDataset, error) {
	ds := &domain.RawWindDataset{
		Lats:  append([]float64(nil), r.Latitudes...),
		Lons:  append([]float64(nil), r.Longitudes...),
		Times: make([]time.Time, len(r.Hours)),
		U:     r.U,
		V:     r.V,
	}
	for i, h := range r.Hours {
		ds.Times[i] = time.Unix(h, 0).UTC()
	}

	if descending(ds.Lats) {
		reverseFloats(ds.Lats)
		for t := range ds.U {
			reverseRows(ds.U[t])
			reverseRows(ds.V[t])
		}
	}
	if descending(ds.Lons) {
		reverseFloats(ds.Lons)
		for t := range ds.U {
			for i := range ds.U[t] {
				reverseFloats(ds.U[t][i])
				reverseFloats(ds.V[t][i])
			}
		}
	}

	if err := ds.Validate(); err != nil {
		return nil, err
	}
	if !sort.SliceIsSorted(ds.Times, func(i, j int) bool { return ds.Times[i].Before(ds.Times[j]) }) {
		return nil, fmt.Errorf("timestamps not ascending")
	}
	return ds, nil
}

func descending(v []float64) bool {
	return len(v) > 1 && v[0] > v[len(v)-1]
}

func reverseFloats(v []float64) {
	for i, j := 0, len(v)-1; i < j; i, j = i+1, j-1 {
		v[i], v[j] = v[j], v[i]
	}
}

func reverseRows(rows [][]float64) {
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}
}
