package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the matching module.
// Tracks match creation, lifecycle transitions and notification fallout.
type Metrics struct {
	MatchesCreated       prometheus.Counter
	Transitions          *prometheus.CounterVec
	NotificationFailures prometheus.Counter
	StatsCacheHits       *prometheus.CounterVec
	FindMatchesDuration  prometheus.Histogram
	TransitionDuration   *prometheus.HistogramVec
}

// New creates a new Metrics instance with all matching module metrics registered.
func New() *Metrics {
	return &Metrics{
		MatchesCreated: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_matches_created_total",
			Help: "Total number of donation matches created",
		}),
		Transitions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_match_transitions_total",
			Help: "Match lifecycle transition attempts by action and outcome",
		}, []string{"action", "outcome"}),
		NotificationFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "bloodlink_match_notification_failures_total",
			Help: "Notifications that could not be delivered after a match change",
		}),
		StatsCacheHits: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "bloodlink_match_stats_cache_total",
			Help: "Statistics cache lookups by result (hit, miss, error)",
		}, []string{"result"}),
		FindMatchesDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "bloodlink_find_matches_duration_seconds",
			Help:    "Duration of FindMatches operations (oracle call plus persistence)",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		TransitionDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bloodlink_match_transition_duration_seconds",
			Help:    "Duration of match lifecycle transitions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}, []string{"action"}),
	}
}

func (m *Metrics) AddMatchesCreated(n int) {
	m.MatchesCreated.Add(float64(n))
}

// ObserveTransition records one transition attempt. outcome is "ok" or the
// domain error code that rejected it.
func (m *Metrics) ObserveTransition(action, outcome string, start time.Time) {
	m.Transitions.WithLabelValues(action, outcome).Inc()
	m.TransitionDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

// ObserveFindMatches records the duration of a FindMatches operation.
// Call with time.Now() at the start of the operation.
func (m *Metrics) ObserveFindMatches(start time.Time) {
	m.FindMatchesDuration.Observe(time.Since(start).Seconds())
}

func (m *Metrics) IncrementNotificationFailure() {
	m.NotificationFailures.Inc()
}

func (m *Metrics) IncrementStatsCache(result string) {
	m.StatsCacheHits.WithLabelValues(result).Inc()
}
