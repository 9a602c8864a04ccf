package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/dedup"
)

// CooldownRepository stores the last-notified watermark per topic
type CooldownRepository struct {
	db *DB
}

func NewCooldownRepository(db *DB) *CooldownRepository {
	return &CooldownRepository{db: db}
}

func (r *CooldownRepository) LastNotified(ctx context.Context, key dedup.Key) (time.Time, bool, error) {
	var last sql.NullInt64
	err := r.db.QueryRowContext(ctx, `
		SELECT last_notified_at
		FROM topic_cooldowns
		WHERE company_id = ? AND observation_type = ? AND topic_key = ?
	`, key.CompanyID, key.Type, key.Topic).Scan(&last)
	if err == sql.ErrNoRows {
		return time.Time{}, false, nil
	}
	if err != nil {
		return time.Time{}, false, fmt.Errorf("failed to get cooldown: %w", err)
	}
	if !last.Valid {
		return time.Time{}, false, nil
	}

	return fromMillis(last.Int64), true, nil
}

// MarkNotified moves the watermark forward; an older time leaves it unchanged.
func (r *CooldownRepository) MarkNotified(ctx context.Context, key dedup.Key, at time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO topic_cooldowns (company_id, observation_type, topic_key, last_notified_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (company_id, observation_type, topic_key) DO UPDATE SET
			last_notified_at = CASE
				WHEN last_notified_at IS NULL OR excluded.last_notified_at > last_notified_at
				THEN excluded.last_notified_at
				ELSE last_notified_at
			END
	`, key.CompanyID, key.Type, key.Topic, toMillis(at))
	if err != nil {
		return fmt.Errorf("failed to mark notified: %w", err)
	}

	return nil
}

type Cooldown struct {
	Key            dedup.Key `json:"-"`
	Type           string    `json:"observation_type"`
	Topic          string    `json:"topic_key"`
	LastNotifiedAt time.Time `json:"last_notified_at"`
}

func (r *CooldownRepository) ListCooldowns(ctx context.Context, companyID string) ([]Cooldown, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT company_id, observation_type, topic_key, last_notified_at
		FROM topic_cooldowns
		WHERE company_id = ? AND last_notified_at IS NOT NULL
		ORDER BY last_notified_at DESC
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cooldowns: %w", err)
	}
	defer rows.Close()

	var cooldowns []Cooldown
	for rows.Next() {
		var c Cooldown
		var last int64
		if err := rows.Scan(&c.Key.CompanyID, &c.Key.Type, &c.Key.Topic, &last); err != nil {
			return nil, fmt.Errorf("failed to scan cooldown row: %w", err)
		}
		c.Type = c.Key.Type
		c.Topic = c.Key.Topic
		c.LastNotifiedAt = fromMillis(last)
		cooldowns = append(cooldowns, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating cooldown rows: %w", err)
	}

	return cooldowns, nil
}
