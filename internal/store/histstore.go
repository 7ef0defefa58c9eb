package store

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/jonboulle/clockwork"
	"github.com/kitecompass/windatlas-etl/internal/domain"
)

// SpotClimatology is the durable per-spot product: the daily speed and
// speed × direction histograms plus the sustained-wind summary, stamped with
// when they were generated.
type SpotClimatology struct {
	SpotID        string                    `json:"spot_id"`
	SpotName      string                    `json:"spot_name"`
	GeneratedAt   time.Time                 `json:"generated_at"`
	Histogram1D   domain.DailyHistogram1D   `json:"histogram_1d"`
	Histogram2D   domain.DailyHistogram2D   `json:"histogram_2d"`
	SustainedWind domain.DailySustainedWind `json:"sustained_wind"`
}

// HistStore persists spot climatologies as one JSON file per spot. Presence
// of a spot's file marks its extraction complete, mirroring how the raw
// cache marks downloads.
type HistStore struct {
	dir    string
	clock  clockwork.Clock
	logger *slog.Logger
}

// NewHistStore creates the output directory if needed.
func NewHistStore(dataDir string, clock clockwork.Clock, logger *slog.Logger) (*HistStore, error) {
	dir := filepath.Join(dataDir, "climatology")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create climatology dir: %w", err)
	}
	return &HistStore{dir: dir, clock: clock, logger: logger}, nil
}

func (s *HistStore) path(spotID string) string {
	return filepath.Join(s.dir, spotID+".json")
}

// Exists reports whether a climatology has been persisted for the spot.
func (s *HistStore) Exists(spotID string) bool {
	_, err := os.Stat(s.path(spotID))
	return err == nil
}

// Save stamps the record with the current time and writes it atomically.
// The histograms are re-checked first so an inconsistent pair can never
// reach disk.
func (s *HistStore) Save(rec SpotClimatology) error {
	if err := domain.CheckConsistency(rec.Histogram1D, rec.Histogram2D); err != nil {
		return fmt.Errorf("refusing to persist: %w", err)
	}
	rec.GeneratedAt = s.clock.Now().UTC()

	tmp, err := os.CreateTemp(s.dir, rec.SpotID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rec); err != nil {
		tmp.Close()
		return fmt.Errorf("encode climatology %s: %w", rec.SpotID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(rec.SpotID)); err != nil {
		return fmt.Errorf("publish climatology %s: %w", rec.SpotID, err)
	}
	return nil
}

// Load reads one spot's persisted climatology.
func (s *HistStore) Load(spotID string) (SpotClimatology, error) {
	f, err := os.Open(s.path(spotID))
	if err != nil {
		return SpotClimatology{}, fmt.Errorf("open climatology %s: %w", spotID, err)
	}
	defer f.Close()

	var rec SpotClimatology
	if err := json.NewDecoder(f).Decode(&rec); err != nil {
		return SpotClimatology{}, fmt.Errorf("decode climatology %s: %w", spotID, err)
	}
	return rec, nil
}
