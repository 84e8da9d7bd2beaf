package publisher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for audit emission.
type Metrics struct {
	Emitted         prometheus.Counter
	Dropped         prometheus.Counter
	PersistFailures prometheus.Counter
}

func NewMetrics() *Metrics {
	return &Metrics{
		Emitted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_audit_events_emitted_total",
			Help: "Total number of audit events accepted for persistence",
		}),
		Dropped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_audit_events_dropped_total",
			Help: "Total number of audit events dropped because the buffer was full",
		}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_audit_persist_failures_total",
			Help: "Total number of audit event persistence failures",
		}),
	}
}
