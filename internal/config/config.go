// Package config loads service settings from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds all pipeline settings, populated from environment variables.
type Config struct {
	DataDir   string
	HTTPAddr  string
	LogLevel  string
	LogFormat string

	ProviderBaseURL  string
	ProviderTimeout  time.Duration
	FetchMaxAttempts int

	CellSizeLatDeg float64
	CellSizeLonDeg float64
	BufferKm       float64

	DaylightFilter    bool
	DaylightStartHour int
	DaylightEndHour   int
	SustainedHours    int

	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults
// where unset.
func Load() (*Config, error) {
	providerTimeout, err := parseDuration("PROVIDER_TIMEOUT", "10m")
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := parseDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}

	maxAttempts, err := parseInt("FETCH_MAX_ATTEMPTS", 5)
	if err != nil {
		return nil, err
	}
	daylightStart, err := parseInt("DAYLIGHT_START_HOUR", 8)
	if err != nil {
		return nil, err
	}
	daylightEnd, err := parseInt("DAYLIGHT_END_HOUR", 20)
	if err != nil {
		return nil, err
	}
	sustainedHours, err := parseInt("SUSTAINED_HOURS", 2)
	if err != nil {
		return nil, err
	}

	cellLat, err := parseFloat("CELL_SIZE_LAT_DEG", 90)
	if err != nil {
		return nil, err
	}
	cellLon, err := parseFloat("CELL_SIZE_LON_DEG", 60)
	if err != nil {
		return nil, err
	}
	bufferKm, err := parseFloat("BUFFER_KM", 5)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		DataDir:   envOrDefault("DATA_DIR", "./data"),
		HTTPAddr:  envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:  envOrDefault("LOG_LEVEL", "info"),
		LogFormat: envOrDefault("LOG_FORMAT", "json"),

		ProviderBaseURL:  envOrDefault("PROVIDER_BASE_URL", ""),
		ProviderTimeout:  providerTimeout,
		FetchMaxAttempts: maxAttempts,

		CellSizeLatDeg: cellLat,
		CellSizeLonDeg: cellLon,
		BufferKm:       bufferKm,

		DaylightFilter:    envOrDefault("DAYLIGHT_FILTER", "true") != "false",
		DaylightStartHour: daylightStart,
		DaylightEndHour:   daylightEnd,
		SustainedHours:    sustainedHours,

		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.ProviderBaseURL == "" {
		return nil, errors.New("PROVIDER_BASE_URL is required")
	}
	if cfg.FetchMaxAttempts < 1 {
		return nil, errors.New("FETCH_MAX_ATTEMPTS must be at least 1")
	}
	if cfg.CellSizeLatDeg <= 0 || cfg.CellSizeLonDeg <= 0 {
		return nil, errors.New("cell sizes must be positive")
	}
	if cfg.BufferKm < 0 {
		return nil, errors.New("BUFFER_KM must not be negative")
	}
	if cfg.DaylightStartHour < 0 || cfg.DaylightEndHour > 24 || cfg.DaylightStartHour >= cfg.DaylightEndHour {
		return nil, errors.New("daylight window must satisfy 0 <= start < end <= 24")
	}
	if cfg.SustainedHours < 1 {
		return nil, errors.New("SUSTAINED_HOURS must be at least 1")
	}

	return cfg, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDuration(key, def string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, def))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}

func parseInt(key string, def int) (int, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func parseFloat(key string, def float64) (float64, error) {
	s := os.Getenv(key)
	if s == "" {
		return def, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return f, nil
}
