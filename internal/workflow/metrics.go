package workflow

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels used by the job metrics.
const (
	outcomeDone      = "done"
	outcomeFailed    = "failed"
	outcomeAbandoned = "abandoned"
	outcomeSkipped   = "skipped"
)

// Metrics holds the Prometheus collectors exported by the worker.
type Metrics struct {
	jobDuration *prometheus.HistogramVec
	jobsTotal   *prometheus.CounterVec
	redactions  prometheus.Counter
	queueDepth  prometheus.Gauge
}

// NewMetrics registers the worker collectors with reg. A nil reg uses a fresh
// private registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &Metrics{
		jobDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vidredact_job_duration_seconds",
			Help:    "Wall time of the redaction stage per work order.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800, 3600},
		}, []string{"outcome"}),
		jobsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "vidredact_jobs_total",
			Help: "Work orders handled by the worker, by outcome.",
		}, []string{"outcome"}),
		redactions: factory.NewCounter(prometheus.CounterOpts{
			Name: "vidredact_regions_redacted_total",
			Help: "Detected regions covered with a mosaic.",
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "vidredact_queue_depth",
			Help: "Work orders waiting in the in-memory queue.",
		}),
	}
}

func (m *Metrics) observe(outcome string, seconds float64) {
	m.jobsTotal.WithLabelValues(outcome).Inc()
	if seconds >= 0 {
		m.jobDuration.WithLabelValues(outcome).Observe(seconds)
	}
}
