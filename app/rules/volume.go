package rules

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
)

const VolumeRuleName = "posting_volume"

// VolumeTier compares current and previous period post counts. A tier
// needs both its ratio and its minimum post count. Activity after a silent
// period never exceeds tier 2 since there is no ratio to speak of.
func VolumeTier(current, previous int, s config.VolumeSettings) (Tier, bool) {
	if current <= 0 {
		return 0, false
	}
	if previous <= 0 {
		if current >= s.SilenceMinPosts {
			return Tier2, true
		}
		return 0, false
	}

	ratio := float64(current) / float64(previous)
	for _, t := range s.Tiers {
		if ratio >= t.MinRatio && current >= t.MinPosts {
			return Tier(t.Tier), true
		}
	}
	return 0, false
}

type VolumeRule struct {
	settings config.VolumeSettings
	policy   *dedup.Policy
}

func NewVolumeRule(settings config.VolumeSettings, policy *dedup.Policy) *VolumeRule {
	return &VolumeRule{settings: settings, policy: policy}
}

func (r *VolumeRule) Name() string {
	return VolumeRuleName
}

func (r *VolumeRule) Matches(item Item) bool {
	return r.settings.Enabled && (item.Category == CategoryCompanyContent || item.Category == CategorySocialPost)
}

func (r *VolumeRule) Evaluate(ctx context.Context, run *Run, item Item) (*Alert, error) {
	window, err := run.PostingWindow(ctx, item.CompanyID, r.settings.Period)
	if err != nil {
		return nil, fmt.Errorf("posting window for %s: %w", item.CompanyID, err)
	}

	tier, ok := VolumeTier(window.CurrentPosts, window.PreviousPosts, r.settings)
	if !ok {
		skip(r.Name())
		return nil, nil
	}

	// one topic per period so every period can alert on its own
	topic := "posting-volume-" + window.WindowStart.UTC().Format(time.DateOnly)
	key := dedup.Key{CompanyID: item.CompanyID, Type: "volume", Topic: topic}
	decision, err := admit(ctx, r.policy, r.Name(), key, item)
	if err != nil || !decision.Emit {
		return nil, err
	}

	title := fmt.Sprintf("%s posted %d times this %s, up from %d", companyLabel(item), window.CurrentPosts, r.settings.Period, window.PreviousPosts)
	if window.PreviousPosts == 0 {
		title = fmt.Sprintf("%s resumed posting: %d posts this %s after a silent one", companyLabel(item), window.CurrentPosts, r.settings.Period)
	}

	alert := newAlert(r.Name(), item, decision, BucketCompanyActivity, "posting-surge", tier, title)
	alert.Evidence["current_posts"] = window.CurrentPosts
	alert.Evidence["previous_posts"] = window.PreviousPosts
	alert.Evidence["window_start"] = window.WindowStart
	alert.Evidence["window_end"] = window.WindowEnd
	if len(window.PerChannel) > 0 {
		alert.Evidence["per_channel"] = window.PerChannel
	}
	return alert, nil
}
