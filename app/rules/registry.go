package rules

import (
	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
)

// DefaultRules builds every rule of the policy. Disabled rules are left out.
func DefaultRules(p *config.Policy, policy *dedup.Policy, extractor Extractor) []Rule {
	var rules []Rule
	var low *LowRatingRule
	if p.LowRating.Enabled {
		low = NewLowRatingRule(p.LowRating, policy)
		rules = append(rules, low)
	}
	if p.ReviewObservations.Enabled && extractor != nil {
		rules = append(rules, NewObservationRule(ReviewTaxonomy(), p.ReviewObservations, p.LowRating, extractor, policy).DeferTo(low))
	}
	if p.ContentObservations.Enabled && extractor != nil {
		rules = append(rules, NewObservationRule(ContentTaxonomy(), p.ContentObservations, p.LowRating, extractor, policy).DeferTo(low))
	}
	if p.Engagement.Enabled {
		rules = append(rules, NewEngagementRule(p.Engagement, policy))
	}
	if p.Volume.Enabled {
		rules = append(rules, NewVolumeRule(p.Volume, policy))
	}
	return rules
}
