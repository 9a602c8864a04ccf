package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestRegister(t *testing.T) {
	reg := prometheus.NewRegistry()
	if err := Register(reg); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if err := Register(reg); err == nil {
		t.Error("Expected error on duplicate registration")
	}
}

func TestRuleEvaluationsCounter(t *testing.T) {
	before := testutil.ToFloat64(RuleEvaluations.WithLabelValues("test_rule", OutcomeEmitted))
	RuleEvaluations.WithLabelValues("test_rule", OutcomeEmitted).Inc()
	after := testutil.ToFloat64(RuleEvaluations.WithLabelValues("test_rule", OutcomeEmitted))

	if after-before != 1 {
		t.Errorf("Expected counter to grow by 1, got %v", after-before)
	}
}
