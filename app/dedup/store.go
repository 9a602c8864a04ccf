package dedup

import (
	"context"
	"errors"
	"time"
)

var ErrInvalidKey = errors.New("dedup: company, type and topic are required")

// Key identifies one deduplicated topic of one company.
type Key struct {
	CompanyID string
	Type      string
	Topic     string
}

func (k Key) Validate() error {
	if k.CompanyID == "" || k.Type == "" || k.Topic == "" {
		return ErrInvalidKey
	}
	return nil
}

// LedgerEntry is one per-day mention counter.
type LedgerEntry struct {
	Key         Key
	Day         string
	FirstSeenAt time.Time
	LastSeenAt  time.Time
	Count       int
}

// Ledger is the durable per-day mention counter. Implementations must upsert:
// the first mention of a day creates the row, later ones increment it.
type Ledger interface {
	RecordMention(ctx context.Context, key Key, at time.Time) error
	// CountMentions sums counts over the UTC day buckets from..to, both inclusive.
	CountMentions(ctx context.Context, key Key, from, to time.Time) (int, error)
}

// Cooldowns stores the last time an alert was emitted for a key.
// MarkNotified must keep the later of the stored and given times.
type Cooldowns interface {
	LastNotified(ctx context.Context, key Key) (time.Time, bool, error)
	MarkNotified(ctx context.Context, key Key, at time.Time) error
}

// DayBucket is the calendar-day bucket of t in UTC.
func DayBucket(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}
