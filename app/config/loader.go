package config

import (
	"fmt"
	"log/slog"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const (
	PeriodWeek  = "week"
	PeriodMonth = "month"
)

// Loader handles loading and validation of the policy file
type Loader struct {
	path string
}

// NewLoader creates a new policy loader
func NewLoader(path string) *Loader {
	return &Loader{path: path}
}

// Defaults returns the policy used when no file is present. Keys missing
// from a policy file keep these values.
func Defaults() *Policy {
	return &Policy{
		Dedup: DedupSettings{
			CooldownHours:     48,
			SurgeWindowDays:   2,
			SurgeBaselineDays: 14,
			SurgeMultiplier:   3.0,
			SurgeMinMentions:  4,
		},
		LowRating: LowRatingSettings{
			Enabled:   true,
			Threshold: 2.0,
		},
		ReviewObservations: ObservationSettings{
			Enabled:          true,
			MaxObservations:  3,
			HighConfidence:   0.8,
			ExcerptChars:     1500,
			PreemptLowRating: true,
		},
		ContentObservations: ObservationSettings{
			Enabled:         true,
			MaxObservations: 3,
			HighConfidence:  0.8,
			ExcerptChars:    1500,
		},
		Engagement: EngagementSettings{
			Enabled:         true,
			Weights:         EngagementWeights{Likes: 1, Comments: 3, Shares: 2},
			BaselineDays:    30,
			MinRatio:        2.0,
			Tier2Ratio:      2.5,
			Tier1Ratio:      4.0,
			IncludeMinRatio: true,
		},
		Volume: VolumeSettings{
			Enabled: true,
			Period:  PeriodWeek,
			Tiers: []VolumeTier{
				{Tier: 1, MinRatio: 3.5, MinPosts: 12},
				{Tier: 2, MinRatio: 2.5, MinPosts: 8},
				{Tier: 3, MinRatio: 1.75, MinPosts: 6},
			},
			SilenceMinPosts: 8,
		},
	}
}

// Load reads the policy file. A missing file yields Defaults.
func (l *Loader) Load() (*Policy, error) {
	policy := Defaults()

	data, err := os.ReadFile(l.path)
	if err != nil {
		if os.IsNotExist(err) {
			slog.Warn("Policy file not found, using defaults", "path", l.path)
			return policy, nil
		}
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, policy); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := Validate(policy); err != nil {
		return nil, fmt.Errorf("invalid policy %s: %w", l.path, err)
	}

	sort.Slice(policy.Volume.Tiers, func(i, j int) bool {
		return policy.Volume.Tiers[i].Tier < policy.Volume.Tiers[j].Tier
	})

	return policy, nil
}

// Validate rejects policies that cannot be evaluated. It is run once at startup.
func Validate(p *Policy) error {
	if p == nil {
		return fmt.Errorf("policy is nil")
	}

	nonNegativeInts := map[string]int{
		"dedup.cooldown_hours":                  p.Dedup.CooldownHours,
		"dedup.surge_window_days":               p.Dedup.SurgeWindowDays,
		"dedup.surge_baseline_days":             p.Dedup.SurgeBaselineDays,
		"dedup.surge_min_mentions":              p.Dedup.SurgeMinMentions,
		"review_observations.max_observations":  p.ReviewObservations.MaxObservations,
		"review_observations.excerpt_chars":     p.ReviewObservations.ExcerptChars,
		"content_observations.max_observations": p.ContentObservations.MaxObservations,
		"content_observations.excerpt_chars":    p.ContentObservations.ExcerptChars,
		"engagement.baseline_days":              p.Engagement.BaselineDays,
		"volume.silence_min_posts":              p.Volume.SilenceMinPosts,
	}
	for name, value := range nonNegativeInts {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	nonNegativeFloats := map[string]float64{
		"dedup.surge_multiplier":               p.Dedup.SurgeMultiplier,
		"low_rating.threshold":                 p.LowRating.Threshold,
		"engagement.weights.likes":             p.Engagement.Weights.Likes,
		"engagement.weights.comments":          p.Engagement.Weights.Comments,
		"engagement.weights.shares":            p.Engagement.Weights.Shares,
		"engagement.min_ratio":                 p.Engagement.MinRatio,
		"review_observations.high_confidence":  p.ReviewObservations.HighConfidence,
		"content_observations.high_confidence": p.ContentObservations.HighConfidence,
	}
	for name, value := range nonNegativeFloats {
		if value < 0 {
			return fmt.Errorf("%s must be non-negative", name)
		}
	}

	for name, conf := range map[string]float64{
		"review_observations.high_confidence":  p.ReviewObservations.HighConfidence,
		"content_observations.high_confidence": p.ContentObservations.HighConfidence,
	} {
		if conf > 1 {
			return fmt.Errorf("%s must be within [0,1]", name)
		}
	}

	e := p.Engagement
	if !(e.MinRatio <= e.Tier2Ratio && e.Tier2Ratio <= e.Tier1Ratio) {
		return fmt.Errorf("engagement ratios must satisfy min_ratio <= tier2_ratio <= tier1_ratio")
	}

	if p.Volume.Period != PeriodWeek && p.Volume.Period != PeriodMonth {
		return fmt.Errorf("invalid volume period: %s", p.Volume.Period)
	}

	seen := make(map[int]bool)
	for i, tier := range p.Volume.Tiers {
		if tier.Tier < 1 || tier.Tier > 3 {
			return fmt.Errorf("volume tier at index %d must be 1, 2 or 3", i)
		}
		if seen[tier.Tier] {
			return fmt.Errorf("duplicate volume tier %d", tier.Tier)
		}
		seen[tier.Tier] = true
		if tier.MinRatio < 0 || tier.MinPosts < 0 {
			return fmt.Errorf("volume tier %d floors must be non-negative", tier.Tier)
		}
	}

	return nil
}
