package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the pipeline.
type Metrics struct {
	Registry         *prometheus.Registry
	JobsTotal        *prometheus.CounterVec
	FieldResolutions *prometheus.CounterVec
	ScrapeDuration   prometheus.Histogram
}

// NewMetrics constructs and registers all metrics on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	jobs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propscrape_jobs_total",
			Help: "Scrape jobs by terminal status.",
		},
		[]string{"status"},
	)
	fields := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "propscrape_field_resolutions_total",
			Help: "Field values by the strategy that produced them.",
		},
		[]string{"field", "strategy"},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "propscrape_scrape_duration_seconds",
			Help:    "Time spent in the extraction session.",
			Buckets: []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60},
		},
	)

	registry.MustRegister(jobs, fields, duration)

	return &Metrics{
		Registry:         registry,
		JobsTotal:        jobs,
		FieldResolutions: fields,
		ScrapeDuration:   duration,
	}
}

// IncJob counts a job that reached status.
func (m *Metrics) IncJob(status string) {
	if m == nil {
		return
	}
	m.JobsTotal.WithLabelValues(status).Inc()
}

// ObserveSources counts which strategy resolved each field.
func (m *Metrics) ObserveSources(sources map[string]string) {
	if m == nil {
		return
	}
	for field, strategy := range sources {
		m.FieldResolutions.WithLabelValues(field, strategy).Inc()
	}
}

// ObserveDuration records an extraction session duration.
func (m *Metrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.ScrapeDuration.Observe(d.Seconds())
}
