// Package store persists pipeline artifacts on the local filesystem: raw
// per-cell wind grids (a cache, deletable) and per-spot climatology records
// (the product, durable). Writes go through a temp file plus rename so a
// crash never leaves a half-written artifact behind.
package store

import (
	"compress/gzip"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/goccy/go-json"
	"github.com/kitecompass/windatlas-etl/internal/domain"
)

// RawStore caches raw wind grids per cell as gzipped JSON. Presence of a
// cell's file is the resumability marker: an interrupted run skips the
// download for cells already on disk.
type RawStore struct {
	dir    string
	logger *slog.Logger
}

// NewRawStore creates the cache directory if needed.
func NewRawStore(dataDir string, logger *slog.Logger) (*RawStore, error) {
	dir := filepath.Join(dataDir, "raw")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create raw cache dir: %w", err)
	}
	return &RawStore{dir: dir, logger: logger}, nil
}

func (s *RawStore) path(cellID string) string {
	return filepath.Join(s.dir, cellID+".json.gz")
}

// Exists reports whether a cached grid is present for the cell.
func (s *RawStore) Exists(cellID string) bool {
	_, err := os.Stat(s.path(cellID))
	return err == nil
}

// Save writes the dataset atomically. An existing cache entry for the cell
// is replaced.
func (s *RawStore) Save(cellID string, ds *domain.RawWindDataset) error {
	tmp, err := os.CreateTemp(s.dir, cellID+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	zw := gzip.NewWriter(tmp)
	if err := json.NewEncoder(zw).Encode(ds); err != nil {
		tmp.Close()
		return fmt.Errorf("encode raw grid %s: %w", cellID, err)
	}
	if err := zw.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("compress raw grid %s: %w", cellID, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path(cellID)); err != nil {
		return fmt.Errorf("publish raw grid %s: %w", cellID, err)
	}
	return nil
}

// Load reads and validates a cached grid. A corrupt entry returns an error;
// the caller decides whether to re-download.
func (s *RawStore) Load(cellID string) (*domain.RawWindDataset, error) {
	f, err := os.Open(s.path(cellID))
	if err != nil {
		return nil, fmt.Errorf("open raw grid %s: %w", cellID, err)
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("raw grid %s not gzip: %w", cellID, err)
	}
	defer zr.Close()

	var ds domain.RawWindDataset
	if err := json.NewDecoder(zr).Decode(&ds); err != nil {
		return nil, fmt.Errorf("decode raw grid %s: %w", cellID, err)
	}
	if err := ds.Validate(); err != nil {
		return nil, fmt.Errorf("cached raw grid %s corrupt: %w", cellID, err)
	}
	return &ds, nil
}

// Delete removes a cell's cached grid and returns the bytes freed. Deleting
// an absent entry is not an error.
func (s *RawStore) Delete(cellID string) (int64, error) {
	info, err := os.Stat(s.path(cellID))
	if os.IsNotExist(err) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("stat raw grid %s: %w", cellID, err)
	}
	if err := os.Remove(s.path(cellID)); err != nil {
		return 0, fmt.Errorf("delete raw grid %s: %w", cellID, err)
	}
	return info.Size(), nil
}

// SizeBytes returns the total size of the raw cache on disk.
func (s *RawStore) SizeBytes() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.dir, func(path string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		total += info.Size()
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("walk raw cache: %w", err)
	}
	return total, nil
}
