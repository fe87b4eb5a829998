package store

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "scriptvault"

// Metrics holds the store's prometheus collectors.
type Metrics struct {
	writes        *prometheus.CounterVec
	pruned        prometheus.Counter
	pruneFailures prometheus.Counter
	duration      *prometheus.HistogramVec
}

// NewMetrics creates the store collectors and registers them with reg.
// A nil reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		writes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "writes_total",
			Help:      "Write attempts by outcome (created, deduplicated, error).",
		}, []string{"outcome"}),
		pruned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "pruned_versions_total",
			Help:      "Versions deleted by retention.",
		}),
		pruneFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "prune_failures_total",
			Help:      "Versions retention failed to delete.",
		}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "store",
			Name:      "operation_duration_seconds",
			Help:      "Store operation latency.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}

	if reg == nil {
		return m, nil
	}
	for _, c := range []prometheus.Collector{m.writes, m.pruned, m.pruneFailures, m.duration} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) observeWrite(outcome string) {
	m.writes.WithLabelValues(outcome).Inc()
}

func (m *Metrics) observePrune(removed, failed int) {
	m.pruned.Add(float64(removed))
	m.pruneFailures.Add(float64(failed))
}

func (m *Metrics) observeDuration(op string, start time.Time) {
	m.duration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}
