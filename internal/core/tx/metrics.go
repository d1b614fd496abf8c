package tx

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the engine's Prometheus collectors
type Metrics struct {
	applied   *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	conflicts prometheus.Counter
	retries   prometheus.Counter
}

// NewMetrics registers the engine collectors with reg. A nil reg leaves
// them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		applied: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "engine",
			Name:      "operations_total",
			Help:      "Operations processed, by type and result.",
		}, []string{"type", "result"}),
		duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "custody",
			Subsystem: "engine",
			Name:      "apply_duration_seconds",
			Help:      "Time to apply and commit an operation.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, []string{"type"}),
		conflicts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "engine",
			Name:      "commit_conflicts_total",
			Help:      "Commits rejected because a read entry changed.",
		}),
		retries: f.NewCounter(prometheus.CounterOpts{
			Namespace: "custody",
			Subsystem: "engine",
			Name:      "retries_total",
			Help:      "Operations re-applied after a commit conflict.",
		}),
	}
}

func (m *Metrics) observe(t Type, r Result, d time.Duration) {
	m.applied.WithLabelValues(t.String(), r.String()).Inc()
	m.duration.WithLabelValues(t.String()).Observe(d.Seconds())
}
