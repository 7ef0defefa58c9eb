package domain

import (
	"fmt"
	"os"

	"github.com/goccy/go-json"
)

// Spot is a kitesurfing location from the enriched catalog. Immutable
// reference data; the enrichment step that adds country metadata runs
// upstream of this pipeline.
type Spot struct {
	ID        string  `json:"spot_id"`
	Name      string  `json:"name"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Country   string  `json:"country,omitempty"`
}

// Validate checks that the spot has an identifier and coordinates on the globe.
func (s Spot) Validate() error {
	if s.ID == "" {
		return fmt.Errorf("spot %q has no id", s.Name)
	}
	if s.Latitude < -90 || s.Latitude > 90 {
		return fmt.Errorf("spot %s: latitude %.4f out of range", s.ID, s.Latitude)
	}
	if s.Longitude < -180 || s.Longitude > 180 {
		return fmt.Errorf("spot %s: longitude %.4f out of range", s.ID, s.Longitude)
	}
	return nil
}

// LoadSpots reads the spot catalog from a JSON file produced by the
// enrichment step.
func LoadSpots(path string) ([]Spot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read spot catalog: %w", err)
	}

	var spots []Spot
	if err := json.Unmarshal(data, &spots); err != nil {
		return nil, fmt.Errorf("parse spot catalog %s: %w", path, err)
	}

	for _, s := range spots {
		if err := s.Validate(); err != nil {
			return nil, fmt.Errorf("spot catalog %s: %w", path, err)
		}
	}
	return spots, nil
}
