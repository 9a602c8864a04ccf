package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/lysyi3m/intel-comb/app/rules"
)

// ItemRepository handles database operations for ingested content items
type ItemRepository struct {
	db *DB
}

func NewItemRepository(db *DB) *ItemRepository {
	return &ItemRepository{db: db}
}

// UpsertItems stores items in one transaction. Re-ingesting an item refreshes
// its content and engagement counts but keeps its evaluation status.
func (r *ItemRepository) UpsertItems(ctx context.Context, items []rules.Item) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO items (
			id, company_id, company_name, category, source_type, gist,
			bullets, rating, url, raw_content, metadata,
			likes, comments, shares, observed_at, ingested_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			company_name = excluded.company_name,
			gist = excluded.gist,
			bullets = excluded.bullets,
			rating = excluded.rating,
			url = excluded.url,
			raw_content = excluded.raw_content,
			metadata = excluded.metadata,
			likes = excluded.likes,
			comments = excluded.comments,
			shares = excluded.shares
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare item upsert: %w", err)
	}
	defer stmt.Close()

	now := toMillis(time.Now())
	for _, item := range items {
		bullets, err := json.Marshal(nonNilSlice(item.Bullets))
		if err != nil {
			return fmt.Errorf("failed to encode bullets for item %s: %w", item.ID, err)
		}
		metadata, err := json.Marshal(nonNilMap(item.Metadata))
		if err != nil {
			return fmt.Errorf("failed to encode metadata for item %s: %w", item.ID, err)
		}

		var rating sql.NullFloat64
		if item.Rating != nil {
			rating = sql.NullFloat64{Float64: *item.Rating, Valid: true}
		}

		_, err = stmt.ExecContext(ctx,
			item.ID, item.CompanyID, item.CompanyName, string(item.Category), item.SourceType, item.Gist,
			string(bullets), rating, item.URL, item.RawContent, string(metadata),
			item.Likes, item.Comments, item.Shares, toMillis(item.ObservedAt), now,
		)
		if err != nil {
			return fmt.Errorf("failed to store item %s: %w", item.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit items: %w", err)
	}

	return nil
}

// GetPendingItems returns items not yet evaluated, oldest observation first
func (r *ItemRepository) GetPendingItems(ctx context.Context, limit int) ([]rules.Item, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, company_name, category, source_type, gist,
		       bullets, rating, url, raw_content, metadata,
		       likes, comments, shares, observed_at
		FROM items
		WHERE evaluated_at IS NULL
		ORDER BY observed_at ASC, id ASC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get pending items: %w", err)
	}
	defer rows.Close()

	var items []rules.Item
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating item rows: %w", err)
	}

	return items, nil
}

func (r *ItemRepository) MarkEvaluated(ctx context.Context, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	ms := toMillis(at)
	for _, id := range ids {
		if _, err := tx.ExecContext(ctx, `UPDATE items SET evaluated_at = ? WHERE id = ?`, ms, id); err != nil {
			return fmt.Errorf("failed to mark item %s evaluated: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit evaluation status: %w", err)
	}

	return nil
}

// GetItemStats returns total and pending item counts
func (r *ItemRepository) GetItemStats(ctx context.Context) (int, int, error) {
	var total, pending int
	err := r.db.QueryRowContext(ctx, `
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN evaluated_at IS NULL THEN 1 ELSE 0 END), 0)
		FROM items
	`).Scan(&total, &pending)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to get item stats: %w", err)
	}

	return total, pending, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItem(row rowScanner) (rules.Item, error) {
	var item rules.Item
	var category, bullets, metadata string
	var rating sql.NullFloat64
	var observedAt int64

	err := row.Scan(
		&item.ID, &item.CompanyID, &item.CompanyName, &category, &item.SourceType, &item.Gist,
		&bullets, &rating, &item.URL, &item.RawContent, &metadata,
		&item.Likes, &item.Comments, &item.Shares, &observedAt,
	)
	if err != nil {
		return rules.Item{}, fmt.Errorf("failed to scan item row: %w", err)
	}

	item.Category = rules.Category(category)
	item.ObservedAt = fromMillis(observedAt)
	if rating.Valid {
		v := rating.Float64
		item.Rating = &v
	}
	if err := json.Unmarshal([]byte(bullets), &item.Bullets); err != nil {
		return rules.Item{}, fmt.Errorf("failed to decode bullets for item %s: %w", item.ID, err)
	}
	if err := json.Unmarshal([]byte(metadata), &item.Metadata); err != nil {
		return rules.Item{}, fmt.Errorf("failed to decode metadata for item %s: %w", item.ID, err)
	}
	if len(item.Bullets) == 0 {
		item.Bullets = nil
	}
	if len(item.Metadata) == 0 {
		item.Metadata = nil
	}

	return item, nil
}

func nonNilSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
