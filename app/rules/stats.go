package rules

import (
	"context"
	"time"
)

// BaselineProvider returns the average weighted engagement of a company's
// items of one source type over the given number of days before asOf.
type BaselineProvider interface {
	GetEngagementBaseline(ctx context.Context, companyID, sourceType string, asOf time.Time, days int) (float64, error)
}

type ChannelCounts struct {
	Current  int `json:"current"`
	Previous int `json:"previous"`
}

type PostingWindow struct {
	CurrentPosts  int                      `json:"current_posts"`
	PreviousPosts int                      `json:"previous_posts"`
	WindowStart   time.Time                `json:"window_start"`
	WindowEnd     time.Time                `json:"window_end"`
	PerChannel    map[string]ChannelCounts `json:"per_channel,omitempty"`
}

// PostingStatsProvider compares a company's post count in the current
// period ("week" or "month") with the previous one.
type PostingStatsProvider interface {
	GetPostingWindow(ctx context.Context, companyID, period string, asOf time.Time) (PostingWindow, error)
}
