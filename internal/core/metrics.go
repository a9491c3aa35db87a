package core

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the run counters on a private registry. When textfile is
// set, Flush writes them in the node-exporter textfile format.
type Metrics struct {
	registry *prometheus.Registry
	textfile string

	rows      *prometheus.CounterVec
	rowErrors *prometheus.CounterVec
	runs      *prometheus.CounterVec
	lastRun   prometheus.Gauge
	duration  prometheus.Gauge
}

// NewMetrics creates and registers the sync metrics.
func NewMetrics(textfile string) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		textfile: textfile,
		rows: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "periop_sync",
			Name:      "rows_total",
			Help:      "Records processed, by entity and outcome.",
		}, []string{"entity", "outcome"}),
		rowErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "periop_sync",
			Name:      "row_errors_total",
			Help:      "Rejected rows and records, by entity and error kind.",
		}, []string{"entity", "kind"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "periop_sync",
			Name:      "runs_total",
			Help:      "Finished runs, by mode and status.",
		}, []string{"mode", "status"}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "periop_sync",
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run finished.",
		}),
		duration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "periop_sync",
			Name:      "last_run_duration_seconds",
			Help:      "Wall time of the last run.",
		}),
	}
	m.registry.MustRegister(m.rows, m.rowErrors, m.runs, m.lastRun, m.duration)
	return m
}

// Observe adds a finished run to the counters.
func (m *Metrics) Observe(r *RunReport) {
	for _, e := range r.Entities {
		m.rows.WithLabelValues(e.Entity, OutcomeCreated.String()).Add(float64(e.Created))
		m.rows.WithLabelValues(e.Entity, OutcomeUpdated.String()).Add(float64(e.Updated))
		m.rows.WithLabelValues(e.Entity, OutcomeSkipped.String()).Add(float64(e.Skipped))
	}
	for _, e := range r.Errors {
		m.rowErrors.WithLabelValues(e.Entity, string(e.Kind)).Inc()
	}

	status := "completed"
	if r.Aborted {
		status = "aborted"
	}
	m.runs.WithLabelValues(string(r.Mode), status).Inc()
	m.lastRun.Set(float64(r.FinishedAt.UnixNano()) / float64(time.Second))
	m.duration.Set(r.Duration().Seconds())
}

// Flush writes the textfile, if one is configured.
func (m *Metrics) Flush() error {
	if m.textfile == "" {
		return nil
	}
	return prometheus.WriteToTextfile(m.textfile, m.registry)
}
