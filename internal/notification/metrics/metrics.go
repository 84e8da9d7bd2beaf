package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks in-app notification creation and fan-out failures.
type Metrics struct {
	Created         *prometheus.CounterVec
	PersistFailures prometheus.Counter
	PublishFailures prometheus.Counter
}

func New() *Metrics {
	return &Metrics{
		Created: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_notifications_created_total",
			Help: "Total number of notifications stored, by type",
		}, []string{"type"}),
		PersistFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notification_persist_failures_total",
			Help: "Total number of notifications that could not be stored",
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_notification_publish_failures_total",
			Help: "Total number of stored notifications that failed to publish downstream",
		}),
	}
}

func (m *Metrics) IncrementCreated(notificationType string) {
	m.Created.WithLabelValues(notificationType).Inc()
}

func (m *Metrics) IncrementPersistFailure() {
	m.PersistFailures.Inc()
}

func (m *Metrics) IncrementPublishFailure() {
	m.PublishFailures.Inc()
}
