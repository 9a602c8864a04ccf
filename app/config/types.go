package config

// Policy is the complete alert policy loaded from the policy file.
type Policy struct {
	Dedup               DedupSettings       `yaml:"dedup"`
	LowRating           LowRatingSettings   `yaml:"low_rating"`
	ReviewObservations  ObservationSettings `yaml:"review_observations"`
	ContentObservations ObservationSettings `yaml:"content_observations"`
	Engagement          EngagementSettings  `yaml:"engagement"`
	Volume              VolumeSettings      `yaml:"volume"`
}

// DedupSettings controls cooldown and surge override
type DedupSettings struct {
	CooldownHours     int     `yaml:"cooldown_hours"`
	SurgeWindowDays   int     `yaml:"surge_window_days"`
	SurgeBaselineDays int     `yaml:"surge_baseline_days"`
	SurgeMultiplier   float64 `yaml:"surge_multiplier"`
	SurgeMinMentions  int     `yaml:"surge_min_mentions"`
}

type LowRatingSettings struct {
	Enabled   bool    `yaml:"enabled"`
	Threshold float64 `yaml:"threshold"` // fires when rating <= threshold
}

// ObservationSettings configures an LLM-assisted observation rule
type ObservationSettings struct {
	Enabled          bool    `yaml:"enabled"`
	MaxObservations  int     `yaml:"max_observations"`
	HighConfidence   float64 `yaml:"high_confidence"`
	ExcerptChars     int     `yaml:"excerpt_chars"`
	PreemptLowRating bool    `yaml:"preempt_low_rating"` // reviews only
}

type EngagementWeights struct {
	Likes    float64 `yaml:"likes"`
	Comments float64 `yaml:"comments"`
	Shares   float64 `yaml:"shares"`
}

type EngagementSettings struct {
	Enabled         bool              `yaml:"enabled"`
	Weights         EngagementWeights `yaml:"weights"`
	BaselineDays    int               `yaml:"baseline_days"`
	MinRatio        float64           `yaml:"min_ratio"`
	Tier2Ratio      float64           `yaml:"tier2_ratio"`
	Tier1Ratio      float64           `yaml:"tier1_ratio"`
	IncludeMinRatio bool              `yaml:"include_min_ratio"` // ratio == min_ratio emits tier 3
}

// VolumeTier is the floor a posting jump has to clear to reach Tier
type VolumeTier struct {
	Tier     int     `yaml:"tier"`
	MinRatio float64 `yaml:"min_ratio"`
	MinPosts int     `yaml:"min_posts"`
}

type VolumeSettings struct {
	Enabled         bool         `yaml:"enabled"`
	Period          string       `yaml:"period"` // week or month
	Tiers           []VolumeTier `yaml:"tiers"`
	SilenceMinPosts int          `yaml:"silence_min_posts"`
}
