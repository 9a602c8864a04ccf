package metrics

import "github.com/prometheus/client_golang/prometheus"

const namespace = "intel_comb"

var (
	RuleEvaluations = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "rule_evaluations_total",
		Help:      "Rule evaluations by rule and outcome.",
	}, []string{"rule", "outcome"})

	DedupDecisions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "dedup_decisions_total",
		Help:      "Dedup decisions by reason.",
	}, []string{"reason"})

	LLMFailures = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "llm_failures_total",
		Help:      "Failed or unparseable extraction calls by rule.",
	}, []string{"rule"})

	SweepItems = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "sweep_items_total",
		Help:      "Items evaluated by sweeps.",
	})

	SweepDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "sweep_duration_seconds",
		Help:      "Duration of evaluation sweeps.",
		Buckets:   prometheus.DefBuckets,
	})
)

// Outcome labels for RuleEvaluations.
const (
	OutcomeEmitted    = "emitted"
	OutcomeSuppressed = "suppressed"
	OutcomeSkipped    = "skipped"
	OutcomeError      = "error"
)

// Register adds all collectors to reg.
func Register(reg prometheus.Registerer) error {
	for _, c := range []prometheus.Collector{RuleEvaluations, DedupDecisions, LLMFailures, SweepItems, SweepDuration} {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
