package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	loader := NewLoader(filepath.Join(t.TempDir(), "missing.yml"))
	policy, err := loader.Load()
	if err != nil {
		t.Fatal(err)
	}

	if policy.Dedup.Cooldown() != 48*time.Hour {
		t.Errorf("Expected 48h cooldown, got %s", policy.Dedup.Cooldown())
	}
	if policy.LowRating.Threshold != 2.0 {
		t.Errorf("Expected threshold 2.0, got %v", policy.LowRating.Threshold)
	}
	if !policy.ReviewObservations.PreemptLowRating {
		t.Error("Expected preemption enabled by default")
	}
	if len(policy.Volume.Tiers) != 3 {
		t.Errorf("Expected 3 volume tiers, got %d", len(policy.Volume.Tiers))
	}
}

func TestLoadValidPolicy(t *testing.T) {
	tempDir := t.TempDir()

	content := `
dedup:
  cooldown_hours: 24
  surge_multiplier: 5
low_rating:
  threshold: 1.5
review_observations:
  preempt_low_rating: false
engagement:
  weights:
    comments: 4
volume:
  period: month
  tiers:
    - tier: 3
      min_ratio: 2
      min_posts: 5
    - tier: 1
      min_ratio: 4
      min_posts: 10
`

	path := filepath.Join(tempDir, "policy.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	policy, err := NewLoader(path).Load()
	if err != nil {
		t.Fatal(err)
	}

	if policy.Dedup.Cooldown() != 24*time.Hour {
		t.Errorf("Expected 24h cooldown, got %s", policy.Dedup.Cooldown())
	}
	if policy.Dedup.SurgeMultiplier != 5 {
		t.Errorf("Expected surge multiplier 5, got %v", policy.Dedup.SurgeMultiplier)
	}
	// keys absent from the file keep their defaults
	if policy.Dedup.SurgeMinMentions != 4 {
		t.Errorf("Expected default surge min mentions 4, got %d", policy.Dedup.SurgeMinMentions)
	}
	if policy.LowRating.Threshold != 1.5 {
		t.Errorf("Expected threshold 1.5, got %v", policy.LowRating.Threshold)
	}
	if !policy.LowRating.Enabled {
		t.Error("Low rating rule should stay enabled")
	}
	if policy.ReviewObservations.PreemptLowRating {
		t.Error("Expected preemption disabled")
	}
	if policy.Engagement.Weights.Comments != 4 || policy.Engagement.Weights.Shares != 2 {
		t.Errorf("Unexpected weights: %+v", policy.Engagement.Weights)
	}
	if policy.Volume.Period != PeriodMonth {
		t.Errorf("Expected month period, got %s", policy.Volume.Period)
	}
	if len(policy.Volume.Tiers) != 2 || policy.Volume.Tiers[0].Tier != 1 {
		t.Errorf("Expected tiers sorted by tier, got %+v", policy.Volume.Tiers)
	}
}

func TestLoadInvalidPolicies(t *testing.T) {
	cases := map[string]string{
		"negative threshold": "low_rating:\n  threshold: -1\n",
		"negative cooldown":  "dedup:\n  cooldown_hours: -2\n",
		"inverted ratios":    "engagement:\n  tier2_ratio: 5\n  tier1_ratio: 4\n",
		"unknown period":     "volume:\n  period: fortnight\n",
		"confidence above 1": "content_observations:\n  high_confidence: 1.5\n",
		"duplicate tier":     "volume:\n  tiers:\n    - tier: 2\n    - tier: 2\n",
		"bad yaml":           "dedup: [",
	}

	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "policy.yml")
			if err := os.WriteFile(path, []byte(content), 0644); err != nil {
				t.Fatal(err)
			}
			if _, err := NewLoader(path).Load(); err == nil {
				t.Errorf("Expected error for %s", name)
			}
		})
	}
}

func TestLoader_ExamplePolicyMatchesDefaults(t *testing.T) {
	policy, err := NewLoader("../../policy.example.yml").Load()
	if err != nil {
		t.Fatalf("Failed to load example policy: %v", err)
	}

	if !reflect.DeepEqual(policy, Defaults()) {
		t.Errorf("Expected example policy to match defaults, got %+v", policy)
	}
}
