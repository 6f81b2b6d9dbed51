package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/memeshare/achievement-engine/pkg/domain"
)

// Step labels for StepDuration.
const (
	StepExists    = "exists"
	StepEvaluate  = "evaluate"
	StepCreate    = "create"
	StepIncrement = "increment"
)

// Metrics holds the award engine collectors.
type Metrics struct {
	AwardResults *prometheus.CounterVec
	CounterDrift *prometheus.CounterVec
	StepDuration *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
// A nil reg leaves the collectors unregistered, which is what tests want.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		AwardResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badge",
			Name:      "award_results_total",
			Help:      "Evaluate-and-award calls by result.",
		}, []string{"result"}),
		CounterDrift: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "badge",
			Name:      "counter_drift_total",
			Help:      "Awards created whose holders counter increment failed.",
		}, []string{"achievement_id"}),
		StepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "badge",
			Name:      "engine_step_duration_seconds",
			Help:      "Latency of award engine store calls.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"step"}),
	}

	if reg != nil {
		reg.MustRegister(m.AwardResults, m.CounterDrift, m.StepDuration)
	}
	return m
}

// ObserveResult counts one engine outcome.
func (m *Metrics) ObserveResult(result domain.AwardResult) {
	if m == nil {
		return
	}
	m.AwardResults.WithLabelValues(string(result)).Inc()
}

// ObserveDrift counts one undercounted award.
func (m *Metrics) ObserveDrift(achievementID string) {
	if m == nil {
		return
	}
	m.CounterDrift.WithLabelValues(achievementID).Inc()
}

// ObserveStep records the duration of one engine step started at start.
func (m *Metrics) ObserveStep(step string, start time.Time) {
	if m == nil {
		return
	}
	m.StepDuration.WithLabelValues(step).Observe(time.Since(start).Seconds())
}
