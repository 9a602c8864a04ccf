package database

import (
	"context"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/dedup"
)

// LedgerRepository keeps per-day mention counters in observation_ledger
type LedgerRepository struct {
	db *DB
}

func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

func (r *LedgerRepository) RecordMention(ctx context.Context, key dedup.Key, at time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}

	ms := toMillis(at)
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO observation_ledger (
			company_id, observation_type, topic_key, day,
			first_seen_at, last_seen_at, count
		) VALUES (?, ?, ?, ?, ?, ?, 1)
		ON CONFLICT (company_id, observation_type, topic_key, day) DO UPDATE SET
			count = count + 1,
			first_seen_at = MIN(first_seen_at, excluded.first_seen_at),
			last_seen_at = MAX(last_seen_at, excluded.last_seen_at)
	`, key.CompanyID, key.Type, key.Topic, dedup.DayBucket(at), ms, ms)
	if err != nil {
		return fmt.Errorf("failed to record mention: %w", err)
	}

	return nil
}

func (r *LedgerRepository) CountMentions(ctx context.Context, key dedup.Key, from, to time.Time) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(count), 0)
		FROM observation_ledger
		WHERE company_id = ? AND observation_type = ? AND topic_key = ?
		  AND day BETWEEN ? AND ?
	`, key.CompanyID, key.Type, key.Topic, dedup.DayBucket(from), dedup.DayBucket(to)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count mentions: %w", err)
	}

	return count, nil
}

// ListLedger returns a company's ledger rows, newest day first
func (r *LedgerRepository) ListLedger(ctx context.Context, companyID string, limit int) ([]dedup.LedgerEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT company_id, observation_type, topic_key, day,
		       first_seen_at, last_seen_at, count
		FROM observation_ledger
		WHERE company_id = ?
		ORDER BY day DESC, observation_type, topic_key
		LIMIT ?
	`, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger: %w", err)
	}
	defer rows.Close()

	var entries []dedup.LedgerEntry
	for rows.Next() {
		var e dedup.LedgerEntry
		var first, last int64
		if err := rows.Scan(&e.Key.CompanyID, &e.Key.Type, &e.Key.Topic, &e.Day, &first, &last, &e.Count); err != nil {
			return nil, fmt.Errorf("failed to scan ledger row: %w", err)
		}
		e.FirstSeenAt = fromMillis(first)
		e.LastSeenAt = fromMillis(last)
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger rows: %w", err)
	}

	return entries, nil
}

func (r *LedgerRepository) GetLedgerRowCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM observation_ledger`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get ledger row count: %w", err)
	}
	return count, nil
}
