// Package metrics exposes Prometheus counters for challenge and fan-out outcomes.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "idp"

var (
	// ChallengeOutcomes counts orchestrator results by flow (signup, signin, recovery, stepup) and result.
	ChallengeOutcomes = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "challenge_outcomes_total",
			Help:      "Challenge orchestrator outcomes by flow and result.",
		},
		[]string{"flow", "result"},
	)

	// FanoutResults counts aggregated lifecycle broadcasts.
	FanoutResults = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fanout_results_total",
			Help:      "Lifecycle notification broadcasts by event and aggregate result.",
		},
		[]string{"event", "result"},
	)

	Lockouts = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lockouts_total",
			Help:      "Accounts locked out after repeated failed verification.",
		},
	)

	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route pattern and status.",
		},
		[]string{"method", "route", "status"},
	)
)

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
