// Package metrics defines the Prometheus instruments exported by tickerpulse.
package metrics

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Skip reasons used as label values on MessagesSkipped.
const (
	ReasonMalformed = "malformed"
	ReasonPanic     = "panic"
)

var (
	// Extraction metrics
	MessagesProcessed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickerpulse_messages_processed_total",
			Help: "Total number of messages run through mention extraction",
		},
	)

	MessagesSkipped = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerpulse_messages_skipped_total",
			Help: "Messages skipped during extraction",
		},
		[]string{"reason"}, // malformed|panic
	)

	MentionsRecorded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickerpulse_mentions_recorded_total",
			Help: "Total ticker mentions recorded into the aggregate store",
		},
	)

	TrackedTickers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickerpulse_tracked_tickers",
			Help: "Distinct tickers in the aggregate store after the last run",
		},
	)

	// Run metrics
	Runs = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerpulse_runs_total",
			Help: "Batch runs by outcome",
		},
		[]string{"status"}, // success|error
	)

	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "tickerpulse_run_duration_seconds",
			Help:    "Batch run duration in seconds, fetch included",
			Buckets: []float64{0.05, 0.1, 0.5, 1, 2, 5, 10, 30, 60},
		},
	)

	LastRun = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickerpulse_last_run_timestamp",
			Help: "Unix timestamp of the last completed run",
		},
	)

	// Source metrics
	SourceFetches = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "tickerpulse_source_fetches_total",
			Help: "Message source fetches by source and outcome",
		},
		[]string{"source", "status"}, // status: success|error|stale
	)

	// Vocabulary metrics
	VocabularySize = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "tickerpulse_vocabulary_size",
			Help: "Number of known ticker symbols",
		},
	)

	VocabularyLoadFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "tickerpulse_vocabulary_load_failures_total",
			Help: "Failed attempts to load the external ticker list",
		},
	)
)

var registerOnce sync.Once

// Register adds every instrument to the default registry. Safe to call
// more than once.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			MessagesProcessed,
			MessagesSkipped,
			MentionsRecorded,
			TrackedTickers,
			Runs,
			RunDuration,
			LastRun,
			SourceFetches,
			VocabularySize,
			VocabularyLoadFailures,
		)
	})
}

// ObserveRun records the outcome of a batch run.
func ObserveRun(started time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	Runs.WithLabelValues(status).Inc()
	RunDuration.Observe(time.Since(started).Seconds())
	if err == nil {
		LastRun.Set(float64(time.Now().Unix()))
	}
}

// Handler returns the Prometheus exposition handler.
func Handler() http.Handler {
	Register()
	return promhttp.Handler()
}
