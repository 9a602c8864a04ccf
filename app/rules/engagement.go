package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
)

const (
	EngagementRuleName = "engagement_spike"
	engagementTopic    = "engagement-spike"
)

// EngagementScore weights an item's raw reactions.
func EngagementScore(item Item, w config.EngagementWeights) float64 {
	return float64(item.Likes)*w.Likes + float64(item.Comments)*w.Comments + float64(item.Shares)*w.Shares
}

// EngagementTier maps a score to baseline ratio onto a tier. The second
// result is false when the ratio is below the alerting floor.
func EngagementTier(ratio float64, s config.EngagementSettings) (Tier, bool) {
	switch {
	case ratio >= s.Tier1Ratio:
		return Tier1, true
	case ratio >= s.Tier2Ratio:
		return Tier2, true
	case ratio > s.MinRatio, s.IncludeMinRatio && ratio == s.MinRatio:
		return Tier3, true
	}
	return 0, false
}

type EngagementRule struct {
	settings config.EngagementSettings
	policy   *dedup.Policy
}

func NewEngagementRule(settings config.EngagementSettings, policy *dedup.Policy) *EngagementRule {
	return &EngagementRule{settings: settings, policy: policy}
}

func (r *EngagementRule) Name() string {
	return EngagementRuleName
}

func (r *EngagementRule) Matches(item Item) bool {
	if !r.settings.Enabled {
		return false
	}
	if item.Category != CategorySocialPost && item.Category != CategoryCompanyContent {
		return false
	}
	return item.Likes+item.Comments+item.Shares > 0
}

func (r *EngagementRule) Evaluate(ctx context.Context, run *Run, item Item) (*Alert, error) {
	days := int(r.settings.BaselineWindow() / (24 * time.Hour))
	baseline, err := run.EngagementBaseline(ctx, item.CompanyID, item.SourceType, item.ObservedAt, days)
	if err != nil {
		return nil, fmt.Errorf("engagement baseline for %s/%s: %w", item.CompanyID, item.SourceType, err)
	}
	if baseline <= 0 {
		skip(r.Name())
		return nil, nil
	}

	score := EngagementScore(item, r.settings.Weights)
	ratio := score / baseline
	tier, ok := EngagementTier(ratio, r.settings)
	if !ok {
		skip(r.Name())
		return nil, nil
	}

	key := dedup.Key{CompanyID: item.CompanyID, Type: "engagement", Topic: engagementTopic}
	decision, err := admit(ctx, r.policy, r.Name(), key, item)
	if err != nil || !decision.Emit {
		return nil, err
	}

	alert := newAlert(r.Name(), item, decision, BucketMarketing, engagementTopic, tier,
		fmt.Sprintf("%s post drew %.1fx its usual engagement", companyLabel(item), ratio))
	alert.Evidence["score"] = score
	alert.Evidence["baseline"] = baseline
	alert.Evidence["ratio"] = ratio
	alert.Evidence["source_type"] = item.SourceType
	return alert, nil
}
