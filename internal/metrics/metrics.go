package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the blackjack engine collectors.
	Registry = prometheus.NewRegistry()

	sessionsActive = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "blackjack",
			Subsystem: "sessions",
			Name:      "active",
			Help:      "Number of sessions currently held in the store.",
		},
	)

	sessionsEvicted = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackjack",
			Subsystem: "sessions",
			Name:      "evicted_total",
			Help:      "Sessions removed from the store, by reason.",
		},
		[]string{"reason"},
	)

	actions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackjack",
			Subsystem: "engine",
			Name:      "actions_total",
			Help:      "Player actions handled by the engine, by action and result.",
		},
		[]string{"action", "result"},
	)

	advisorCalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "blackjack",
			Subsystem: "advisor",
			Name:      "calls_total",
			Help:      "Dealer advisor consultations, by kind and result.",
		},
		[]string{"kind", "result"},
	)

	advisorLatency = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "blackjack",
			Subsystem: "advisor",
			Name:      "oracle_duration_seconds",
			Help:      "Duration of decision oracle round trips.",
			Buckets:   prometheus.ExponentialBuckets(0.05, 2, 9), // 50ms to ~12.8s
		},
		[]string{"kind"},
	)
)

func init() {
	Registry.MustRegister(
		sessionsActive,
		sessionsEvicted,
		actions,
		advisorCalls,
		advisorLatency,
	)
}

// Handler exposes the registry over HTTP.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// SetActiveSessions records the current store size.
func SetActiveSessions(n int) {
	sessionsActive.Set(float64(n))
}

// RecordEviction counts a session removed for the given reason.
func RecordEviction(reason string) {
	sessionsEvicted.WithLabelValues(reason).Inc()
}

// RecordAction counts an engine action and its result code.
func RecordAction(action, result string) {
	actions.WithLabelValues(action, result).Inc()
}

// RecordAdvisorCall counts a consultation and, when the oracle was reached,
// observes its latency.
func RecordAdvisorCall(kind, result string, duration time.Duration) {
	advisorCalls.WithLabelValues(kind, result).Inc()
	if duration > 0 {
		advisorLatency.WithLabelValues(kind).Observe(duration.Seconds())
	}
}
