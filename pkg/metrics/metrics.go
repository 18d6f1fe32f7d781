// Package metrics provides Prometheus metrics for bintable dataset I/O.
// Metrics are registered automatically via promauto and shared process-wide.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RowsWritten counts rows written to datasets, labeled by storage key
	RowsWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bintable_rows_written_total",
			Help: "Total number of rows written to bintable datasets",
		},
		[]string{"storage_key"},
	)

	// RowsRead counts rows read from datasets, labeled by storage key
	RowsRead = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bintable_rows_read_total",
			Help: "Total number of rows read from bintable datasets",
		},
		[]string{"storage_key"},
	)

	// BytesWritten counts payload bytes written to backing files
	BytesWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bintable_bytes_written_total",
			Help: "Total payload bytes written to bintable backing files",
		},
	)

	// DatasetsWritten counts committed datasets
	DatasetsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "bintable_datasets_written_total",
			Help: "Total number of committed bintable datasets",
		},
	)

	// WriteDuration observes end-to-end write call latency
	WriteDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bintable_write_duration_seconds",
			Help:    "Latency of bintable write calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)

	// ReadDuration observes end-to-end read call latency
	ReadDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "bintable_read_duration_seconds",
			Help:    "Latency of bintable read calls",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 14),
		},
	)
)

// Timer measures the duration of a single operation
type Timer struct {
	start time.Time
	hist  prometheus.Histogram
}

// NewTimer starts a timer that will observe into the given histogram
func NewTimer(hist prometheus.Histogram) *Timer {
	return &Timer{start: time.Now(), hist: hist}
}

// Stop records the elapsed time and returns it
func (t *Timer) Stop() time.Duration {
	d := time.Since(t.start)
	t.hist.Observe(d.Seconds())
	return d
}
