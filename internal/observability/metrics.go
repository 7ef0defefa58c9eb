package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the Prometheus counters, histograms, and gauges for the
// extraction pipeline.
type Metrics struct {
	CellsProcessed *prometheus.CounterVec // label: outcome={downloaded,cached,error}
	FetchAttempts  prometheus.Counter
	FetchRetries   prometheus.Counter

	SpotsExtracted prometheus.Counter
	SpotsSkipped   prometheus.Counter

	CacheBytesFreed prometheus.Counter
	CellDuration    prometheus.Histogram
	PipelineRunning prometheus.Gauge
}

// NewMetrics creates and registers all pipeline metrics with the default
// Prometheus registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		CellsProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "cells_processed_total",
			Help:      "Grid cells processed, by outcome.",
		}, []string{"outcome"}),
		FetchAttempts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "fetch_attempts_total",
			Help:      "Wind grid requests issued to the provider.",
		}),
		FetchRetries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "fetch_retries_total",
			Help:      "Fetch attempts beyond the first for a cell.",
		}),
		SpotsExtracted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "spots_extracted_total",
			Help:      "Spots whose climatology was computed and persisted.",
		}),
		SpotsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "spots_skipped_total",
			Help:      "Spots skipped because extraction or persistence failed.",
		}),
		CacheBytesFreed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "windatlas",
			Name:      "cache_bytes_freed_total",
			Help:      "Raw cache bytes deleted during cleanup.",
		}),
		CellDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "windatlas",
			Name:      "cell_duration_seconds",
			Help:      "Wall time to download and extract one cell.",
			Buckets:   []float64{0.1, 0.5, 1, 5, 15, 60, 300, 900, 3600},
		}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "windatlas",
			Name:      "pipeline_running",
			Help:      "1 while a pipeline run is active, 0 otherwise.",
		}),
	}

	prometheus.MustRegister(
		m.CellsProcessed,
		m.FetchAttempts,
		m.FetchRetries,
		m.SpotsExtracted,
		m.SpotsSkipped,
		m.CacheBytesFreed,
		m.CellDuration,
		m.PipelineRunning,
	)

	return m
}

// NewMetricsForTesting creates Metrics without registering them, avoiding
// "already registered" panics when called from multiple tests.
func NewMetricsForTesting() *Metrics {
	return &Metrics{
		CellsProcessed:  prometheus.NewCounterVec(prometheus.CounterOpts{Namespace: "windatlas", Name: "cells_processed_total"}, []string{"outcome"}),
		FetchAttempts:   prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windatlas", Name: "fetch_attempts_total"}),
		FetchRetries:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windatlas", Name: "fetch_retries_total"}),
		SpotsExtracted:  prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windatlas", Name: "spots_extracted_total"}),
		SpotsSkipped:    prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windatlas", Name: "spots_skipped_total"}),
		CacheBytesFreed: prometheus.NewCounter(prometheus.CounterOpts{Namespace: "windatlas", Name: "cache_bytes_freed_total"}),
		CellDuration:    prometheus.NewHistogram(prometheus.HistogramOpts{Namespace: "windatlas", Name: "cell_duration_seconds"}),
		PipelineRunning: prometheus.NewGauge(prometheus.GaugeOpts{Namespace: "windatlas", Name: "pipeline_running"}),
	}
}
