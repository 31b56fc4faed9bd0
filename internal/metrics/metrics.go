// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors shared by the pipeline stages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// HTTP metrics
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibextract_http_requests_total",
			Help: "Total number of outbound HTTP attempts",
		},
		[]string{"source", "outcome"},
	)

	HTTPRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibextract_http_retries_total",
			Help: "Total number of retried HTTP requests",
		},
		[]string{"source"},
	)

	// Pipeline metrics
	Papers = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibextract_papers_total",
			Help: "Total number of processed papers by outcome",
		},
		[]string{"outcome"},
	)

	Verifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bibextract_verifications_total",
			Help: "Total number of verified bibliography entries by status",
		},
		[]string{"status"},
	)

	StageDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bibextract_stage_duration_seconds",
			Help:    "Pipeline stage duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"stage"},
	)
)

// ObserveStage records the time elapsed since start for a pipeline stage.
func ObserveStage(stage string, start time.Time) {
	StageDuration.WithLabelValues(stage).Observe(time.Since(start).Seconds())
}

// WriteTextfile dumps every registered collector in the text exposition
// format, for node_exporter's textfile collector.
func WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, prometheus.DefaultGatherer)
}
