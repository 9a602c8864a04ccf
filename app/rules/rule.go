package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/metrics"
)

// Rule inspects one item and returns at most one alert.
//
// Matches must be cheap and free of side effects. Evaluate may call the LLM
// and the dedup stores; it checks ctx before every store mutation.
type Rule interface {
	Name() string
	Matches(item Item) bool
	Evaluate(ctx context.Context, run *Run, item Item) (*Alert, error)
}

// admit asks the dedup policy whether key may alert now and commits the
// cooldown when it may.
func admit(ctx context.Context, policy *dedup.Policy, rule string, key dedup.Key, item Item) (dedup.Decision, error) {
	decision, err := policy.Admit(ctx, key, item.ObservedAt)
	if err != nil {
		metrics.RuleEvaluations.WithLabelValues(rule, metrics.OutcomeError).Inc()
		return dedup.Decision{}, fmt.Errorf("dedup %s/%s: %w", key.Type, key.Topic, err)
	}

	if !decision.Emit {
		metrics.RuleEvaluations.WithLabelValues(rule, metrics.OutcomeSuppressed).Inc()
		slog.Debug("Alert suppressed",
			"rule", rule,
			"item_id", item.ID,
			"company", key.CompanyID,
			"type", key.Type,
			"topic", key.Topic,
			"recent_mentions", decision.RecentMentions)
		return decision, nil
	}

	metrics.RuleEvaluations.WithLabelValues(rule, metrics.OutcomeEmitted).Inc()
	return decision, nil
}

func skip(rule string) {
	metrics.RuleEvaluations.WithLabelValues(rule, metrics.OutcomeSkipped).Inc()
}

func newAlert(rule string, item Item, decision dedup.Decision, bucket, chip string, tier Tier, title string) *Alert {
	return &Alert{
		ID:          uuid.NewString(),
		CompanyID:   item.CompanyID,
		CompanyName: item.CompanyName,
		Bucket:      bucket,
		Chip:        chip,
		Tier:        tier,
		Title:       title,
		SourceURL:   item.URL,
		ObservedAt:  item.ObservedAt,
		Evidence: map[string]any{
			"gist":         item.Gist,
			"dedup_reason": string(decision.Reason),
		},
		ItemID: item.ID,
		Rule:   rule,
	}
}

func companyLabel(item Item) string {
	if item.CompanyName != "" {
		return item.CompanyName
	}
	return item.CompanyID
}
