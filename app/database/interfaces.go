package database

import (
	"context"
	"time"

	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/rules"
)

type ItemRepositoryInterface interface {
	UpsertItems(ctx context.Context, items []rules.Item) error
	GetPendingItems(ctx context.Context, limit int) ([]rules.Item, error)
	MarkEvaluated(ctx context.Context, ids []string, at time.Time) error
	GetItemStats(ctx context.Context) (int, int, error)
}

type AlertRepositoryInterface interface {
	SaveAlert(ctx context.Context, alert rules.Alert) (bool, error)
	GetRecentAlerts(ctx context.Context, companyID string, limit int) ([]rules.Alert, error)
	GetAlertCount(ctx context.Context) (int, error)
}

type LedgerRepositoryInterface interface {
	dedup.Ledger
	ListLedger(ctx context.Context, companyID string, limit int) ([]dedup.LedgerEntry, error)
	GetLedgerRowCount(ctx context.Context) (int, error)
}

type CooldownRepositoryInterface interface {
	dedup.Cooldowns
	ListCooldowns(ctx context.Context, companyID string) ([]Cooldown, error)
}

var (
	_ ItemRepositoryInterface     = (*ItemRepository)(nil)
	_ AlertRepositoryInterface    = (*AlertRepository)(nil)
	_ LedgerRepositoryInterface   = (*LedgerRepository)(nil)
	_ CooldownRepositoryInterface = (*CooldownRepository)(nil)
	_ rules.BaselineProvider      = (*StatsRepository)(nil)
	_ rules.PostingStatsProvider  = (*StatsRepository)(nil)
)
