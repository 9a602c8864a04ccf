package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/rules"
)

// StatsRepository answers the aggregate queries the engagement and volume
// rules need.
type StatsRepository struct {
	db      *DB
	weights config.EngagementWeights
}

func NewStatsRepository(db *DB, weights config.EngagementWeights) *StatsRepository {
	return &StatsRepository{db: db, weights: weights}
}

// GetEngagementBaseline averages weighted engagement over [asOf-days, asOf).
// No history yields 0.
func (r *StatsRepository) GetEngagementBaseline(ctx context.Context, companyID, sourceType string, asOf time.Time, days int) (float64, error) {
	if days <= 0 {
		return 0, fmt.Errorf("baseline window must be positive, got %d days", days)
	}

	from := asOf.AddDate(0, 0, -days)
	var avg float64
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(AVG(likes * ? + comments * ? + shares * ?), 0)
		FROM items
		WHERE company_id = ? AND source_type = ?
		  AND category IN ('company_content', 'social_post')
		  AND observed_at >= ? AND observed_at < ?
	`, r.weights.Likes, r.weights.Comments, r.weights.Shares,
		companyID, sourceType, toMillis(from), toMillis(asOf)).Scan(&avg)
	if err != nil {
		return 0, fmt.Errorf("failed to get engagement baseline: %w", err)
	}

	return avg, nil
}

func (r *StatsRepository) GetPostingWindow(ctx context.Context, companyID, period string, asOf time.Time) (rules.PostingWindow, error) {
	start, end, err := PeriodBounds(period, asOf)
	if err != nil {
		return rules.PostingWindow{}, err
	}
	prevStart, _, err := PeriodBounds(period, start.Add(-time.Millisecond))
	if err != nil {
		return rules.PostingWindow{}, err
	}

	rows, err := r.db.QueryContext(ctx, `
		SELECT source_type,
		       SUM(CASE WHEN observed_at >= ? THEN 1 ELSE 0 END),
		       SUM(CASE WHEN observed_at < ? THEN 1 ELSE 0 END)
		FROM items
		WHERE company_id = ?
		  AND category IN ('company_content', 'social_post')
		  AND observed_at >= ? AND observed_at < ?
		GROUP BY source_type
	`, toMillis(start), toMillis(start), companyID, toMillis(prevStart), toMillis(end))
	if err != nil {
		return rules.PostingWindow{}, fmt.Errorf("failed to get posting window: %w", err)
	}
	defer rows.Close()

	window := rules.PostingWindow{
		WindowStart: start,
		WindowEnd:   end,
		PerChannel:  make(map[string]rules.ChannelCounts),
	}
	for rows.Next() {
		var channel string
		var counts rules.ChannelCounts
		if err := rows.Scan(&channel, &counts.Current, &counts.Previous); err != nil {
			return rules.PostingWindow{}, fmt.Errorf("failed to scan posting row: %w", err)
		}
		window.PerChannel[channel] = counts
		window.CurrentPosts += counts.Current
		window.PreviousPosts += counts.Previous
	}

	if err := rows.Err(); err != nil {
		return rules.PostingWindow{}, fmt.Errorf("error iterating posting rows: %w", err)
	}

	return window, nil
}

// PeriodBounds returns the UTC period containing t. Weeks start on Monday.
func PeriodBounds(period string, t time.Time) (time.Time, time.Time, error) {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)

	switch period {
	case config.PeriodWeek:
		offset := (int(day.Weekday()) + 6) % 7
		start := day.AddDate(0, 0, -offset)
		return start, start.AddDate(0, 0, 7), nil
	case config.PeriodMonth:
		start := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
		return start, start.AddDate(0, 1, 0), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown period %q", period)
	}
}
