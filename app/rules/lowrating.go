package rules

import (
	"context"
	"fmt"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
)

const (
	LowRatingRuleName = "low_rating"

	// LowStarTopic is shared by every low rating alert of a company: it is a
	// standing signal, not one per review.
	LowStarTopic = "low-star-review"
)

// LowRatingKey is the canonical dedup key for the low rating signal. The
// review observation rule records preempted mentions under the same key.
func LowRatingKey(companyID string) dedup.Key {
	return dedup.Key{CompanyID: companyID, Type: "review:" + TypeComplaint, Topic: LowStarTopic}
}

type LowRatingRule struct {
	settings config.LowRatingSettings
	policy   *dedup.Policy
}

func NewLowRatingRule(settings config.LowRatingSettings, policy *dedup.Policy) *LowRatingRule {
	return &LowRatingRule{settings: settings, policy: policy}
}

func (r *LowRatingRule) Name() string {
	return LowRatingRuleName
}

func (r *LowRatingRule) Matches(item Item) bool {
	return r.settings.Enabled && item.Category == CategoryReview && item.Rating != nil
}

// Claims reports whether the rule owns the item's low rating fact.
func (r *LowRatingRule) Claims(item Item) bool {
	return r.Matches(item) && *item.Rating <= r.settings.Threshold
}

func (r *LowRatingRule) Evaluate(ctx context.Context, _ *Run, item Item) (*Alert, error) {
	if !r.Claims(item) {
		skip(r.Name())
		return nil, nil
	}

	decision, err := admit(ctx, r.policy, r.Name(), LowRatingKey(item.CompanyID), item)
	if err != nil || !decision.Emit {
		return nil, err
	}

	alert := newAlert(r.Name(), item, decision, BucketCustomerVoice, LowStarTopic, Tier1,
		fmt.Sprintf("%s received a %.1f-star review", companyLabel(item), *item.Rating))
	alert.Evidence["rating"] = *item.Rating
	alert.Evidence["threshold"] = r.settings.Threshold
	return alert, nil
}
