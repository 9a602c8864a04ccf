package rules

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/metrics"
)

// ObservationRule asks the model for typed observations about an item and
// alerts on the most important one. The reviews and the company content
// variants differ only in their Taxonomy.
type ObservationRule struct {
	taxonomy  Taxonomy
	settings  config.ObservationSettings
	lowRating config.LowRatingSettings
	extractor Extractor
	policy    *dedup.Policy
	claimant  *LowRatingRule
}

func NewObservationRule(taxonomy Taxonomy, settings config.ObservationSettings, lowRating config.LowRatingSettings, extractor Extractor, policy *dedup.Policy) *ObservationRule {
	return &ObservationRule{
		taxonomy:  taxonomy,
		settings:  settings,
		lowRating: lowRating,
		extractor: extractor,
		policy:    policy,
	}
}

// DeferTo registers the low rating rule dispatched alongside this one. A
// preempted item is then counted by that rule alone, so the fact lands in
// the ledger once per pass.
func (r *ObservationRule) DeferTo(low *LowRatingRule) *ObservationRule {
	r.claimant = low
	return r
}

func (r *ObservationRule) Name() string {
	return r.taxonomy.Rule
}

func (r *ObservationRule) Matches(item Item) bool {
	return r.settings.Enabled && r.taxonomy.covers(item.Category)
}

func (r *ObservationRule) Evaluate(ctx context.Context, _ *Run, item Item) (*Alert, error) {
	if r.preempted(item) {
		// the low rating rule owns this fact; count it here only when that
		// rule is not dispatched for the item
		if r.claimant == nil || !r.claimant.Claims(item) {
			if err := r.policy.RecordMention(ctx, LowRatingKey(item.CompanyID), item.ObservedAt); err != nil {
				return nil, fmt.Errorf("record preempted mention: %w", err)
			}
		}
		slog.Debug("Observation preempted by low rating", "rule", r.Name(), "item_id", item.ID, "rating", *item.Rating)
		skip(r.Name())
		return nil, nil
	}

	candidates, err := r.extractor.Extract(ctx, ExtractionRequest{
		Taxonomy:        r.taxonomy,
		Item:            item,
		MaxObservations: r.settings.MaxObservations,
		ExcerptChars:    r.settings.ExcerptChars,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		slog.Warn("Observation extraction failed", "rule", r.Name(), "item_id", item.ID, "error", err)
		metrics.LLMFailures.WithLabelValues(r.Name()).Inc()
		skip(r.Name())
		return nil, nil
	}

	candidate, ot, ok := SelectCandidate(r.taxonomy, candidates)
	if !ok {
		skip(r.Name())
		return nil, nil
	}

	tier := AdjustTier(ot.Polarity, candidate.Tier, RatingBucketOf(item.Rating),
		ConfidenceBucketOf(candidate.Confidence, r.settings.HighConfidence))

	topic := dedup.TopicKey(candidate.Topic)
	if topic == "" {
		topic = dedup.TopicKey(ot.Name)
	}
	key := dedup.Key{CompanyID: item.CompanyID, Type: r.taxonomy.Namespace + ":" + ot.Name, Topic: topic}

	decision, err := admit(ctx, r.policy, r.Name(), key, item)
	if err != nil || !decision.Emit {
		return nil, err
	}

	alert := newAlert(r.Name(), item, decision, ot.Bucket, ot.Chip, tier,
		fmt.Sprintf("%s: %s", companyLabel(item), candidate.Blurb))
	alert.Evidence["type"] = ot.Name
	alert.Evidence["topic"] = candidate.Topic
	alert.Evidence["topic_key"] = topic
	alert.Evidence["declared_tier"] = int(candidate.Tier)
	alert.Evidence["confidence"] = candidate.Confidence
	if candidate.Evidence != "" {
		alert.Evidence["quote"] = candidate.Evidence
	}
	if item.Rating != nil {
		alert.Evidence["rating"] = *item.Rating
	}
	return alert, nil
}

func (r *ObservationRule) preempted(item Item) bool {
	return r.taxonomy.Preemptible &&
		r.settings.PreemptLowRating &&
		r.lowRating.Enabled &&
		item.Rating != nil &&
		*item.Rating <= r.lowRating.Threshold
}
