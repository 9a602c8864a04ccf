package config

import (
	"time"
)

// Cooldown returns the cooldown window as time.Duration
func (s DedupSettings) Cooldown() time.Duration {
	if s.CooldownHours <= 0 {
		return 48 * time.Hour // default 2 days
	}
	return time.Duration(s.CooldownHours) * time.Hour
}

// SurgeWindow returns the recent window used for surge detection
func (s DedupSettings) SurgeWindow() time.Duration {
	if s.SurgeWindowDays <= 0 {
		return 2 * 24 * time.Hour
	}
	return time.Duration(s.SurgeWindowDays) * 24 * time.Hour
}

// SurgeBaseline returns the window preceding SurgeWindow that defines the normal rate
func (s DedupSettings) SurgeBaseline() time.Duration {
	if s.SurgeBaselineDays <= 0 {
		return 14 * 24 * time.Hour
	}
	return time.Duration(s.SurgeBaselineDays) * 24 * time.Hour
}

// BaselineWindow returns the engagement baseline lookback
func (s EngagementSettings) BaselineWindow() time.Duration {
	if s.BaselineDays <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(s.BaselineDays) * 24 * time.Hour
}
