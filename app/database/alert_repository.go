package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/rules"
)

type AlertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// SaveAlert stores an alert once per (item, rule). It reports whether a new
// row was written.
func (r *AlertRepository) SaveAlert(ctx context.Context, alert rules.Alert) (bool, error) {
	evidence, err := json.Marshal(alert.Evidence)
	if err != nil {
		return false, fmt.Errorf("failed to encode evidence for alert %s: %w", alert.ID, err)
	}
	if alert.Evidence == nil {
		evidence = []byte("{}")
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO alerts (
			id, item_id, rule, company_id, company_name, bucket, chip,
			tier, title, source_url, observed_at, evidence, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, alert.ID, alert.ItemID, alert.Rule, alert.CompanyID, alert.CompanyName, alert.Bucket, alert.Chip,
		int(alert.Tier), alert.Title, alert.SourceURL, toMillis(alert.ObservedAt), string(evidence), toMillis(time.Now()))
	if err != nil {
		return false, fmt.Errorf("failed to save alert: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return n > 0, nil
}

// GetRecentAlerts returns the newest alerts, optionally for one company
func (r *AlertRepository) GetRecentAlerts(ctx context.Context, companyID string, limit int) ([]rules.Alert, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, item_id, rule, company_id, company_name, bucket, chip,
		       tier, title, source_url, observed_at, evidence
		FROM alerts
		WHERE ? = '' OR company_id = ?
		ORDER BY created_at DESC, observed_at DESC
		LIMIT ?
	`, companyID, companyID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}
	defer rows.Close()

	var alerts []rules.Alert
	for rows.Next() {
		var a rules.Alert
		var tier int
		var observedAt int64
		var evidence string
		err := rows.Scan(
			&a.ID, &a.ItemID, &a.Rule, &a.CompanyID, &a.CompanyName, &a.Bucket, &a.Chip,
			&tier, &a.Title, &a.SourceURL, &observedAt, &evidence,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		a.Tier = rules.Tier(tier)
		a.ObservedAt = fromMillis(observedAt)
		if err := json.Unmarshal([]byte(evidence), &a.Evidence); err != nil {
			return nil, fmt.Errorf("failed to decode evidence for alert %s: %w", a.ID, err)
		}
		alerts = append(alerts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating alert rows: %w", err)
	}

	return alerts, nil
}

func (r *AlertRepository) GetAlertCount(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM alerts`).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to get alert count: %w", err)
	}
	return count, nil
}
