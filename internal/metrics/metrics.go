// Package metrics defines the Prometheus instrumentation for ingestion runs.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Ingest carries the collectors the pipeline reports into.
type Ingest struct {
	Runs          *prometheus.CounterVec
	RowsProcessed prometheus.Counter
	RowErrors     prometheus.Counter
	EventsCreated *prometheus.CounterVec
	BatchFlushes  prometheus.Counter
	RunDuration   prometheus.Histogram
}

// NewIngest builds and registers the ingestion collectors.
func NewIngest(reg prometheus.Registerer) *Ingest {
	m := &Ingest{
		Runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "runs_total",
			Help:      "Ingestion runs by final status.",
		}, []string{"status"}),
		RowsProcessed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "rows_processed_total",
			Help:      "Data rows consumed across all runs.",
		}),
		RowErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "row_errors_total",
			Help:      "Row-level parse failures across all runs.",
		}),
		EventsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "events_created_total",
			Help:      "Persisted events by kind.",
		}, []string{"kind"}),
		BatchFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "batch_flushes_total",
			Help:      "Bulk-insert flushes performed.",
		}),
		RunDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "freezetrack",
			Subsystem: "ingest",
			Name:      "run_duration_seconds",
			Help:      "Wall-clock duration of ingestion runs.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 12),
		}),
	}

	reg.MustRegister(m.Runs, m.RowsProcessed, m.RowErrors, m.EventsCreated, m.BatchFlushes, m.RunDuration)
	return m
}

// ObserveRun records the summary of one finished run. Safe on a nil
// receiver so the pipeline can run uninstrumented in tests.
func (m *Ingest) ObserveRun(status string, rows, rowErrors, readings, probeReadings, transitions, flushes int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.Runs.WithLabelValues(status).Inc()
	m.RowsProcessed.Add(float64(rows))
	m.RowErrors.Add(float64(rowErrors))
	m.EventsCreated.WithLabelValues("temperature_reading").Add(float64(readings))
	m.EventsCreated.WithLabelValues("probe_reading").Add(float64(probeReadings))
	m.EventsCreated.WithLabelValues("phase_transition").Add(float64(transitions))
	m.BatchFlushes.Add(float64(flushes))
	m.RunDuration.Observe(elapsed.Seconds())
}
