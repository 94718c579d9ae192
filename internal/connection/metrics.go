package connection

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Probe outcome labels.
const (
	OutcomeReachable     = "reachable"
	OutcomeAuthFailed    = "auth_failed"
	OutcomeNetworkFailed = "network_failed"
	OutcomeUnknown       = "unknown"
	OutcomeMissingConfig = "missing_config"
	OutcomeCancelled     = "cancelled"
)

type metrics struct {
	probes       *prometheus.CounterVec
	probeSeconds prometheus.Histogram
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &metrics{
		probes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "segment_switch_probe_outcomes_total",
			Help: "Connection attempts by probe outcome",
		}, []string{"outcome"}),
		probeSeconds: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_switch_probe_duration_seconds",
			Help:    "Duration of backend reachability probes in seconds",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func outcomeOf(err error) string {
	switch err.(type) {
	case nil:
		return OutcomeReachable
	case *AuthenticationError:
		return OutcomeAuthFailed
	case *NetworkError:
		return OutcomeNetworkFailed
	default:
		return OutcomeUnknown
	}
}
