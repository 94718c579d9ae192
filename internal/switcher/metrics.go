package switcher

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Switch outcome labels.
const (
	OutcomeSuccess    = "success"
	OutcomeWarning    = "success_with_warning"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

type metrics struct {
	switches   *prometheus.CounterVec
	duration   prometheus.Histogram
	queueDepth prometheus.Gauge
}

func newMetrics(reg prometheus.Registerer) *metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)
	return &metrics{
		switches: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "segment_switch_switches_total",
			Help: "Segment switch attempts by outcome",
		}, []string{"outcome"}),
		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "segment_switch_duration_seconds",
			Help:    "Duration of segment switch attempts in seconds",
			Buckets: prometheus.DefBuckets,
		}),
		queueDepth: factory.NewGauge(prometheus.GaugeOpts{
			Name: "segment_switch_queue_depth",
			Help: "Requests waiting behind the one in flight",
		}),
	}
}
