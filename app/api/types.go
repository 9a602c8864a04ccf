package api

import (
	"github.com/lysyi3m/intel-comb/app/database"
	"github.com/lysyi3m/intel-comb/app/rules"
	"github.com/lysyi3m/intel-comb/app/tasks"
	"github.com/prometheus/client_golang/prometheus"
)

const (
	defaultAlertLimit  = 50
	maxAlertLimit      = 500
	defaultLedgerLimit = 100
	maxIngestBatch     = 1000
)

type Handler struct {
	itemRepo     database.ItemRepositoryInterface
	alertRepo    database.AlertRepositoryInterface
	ledgerRepo   database.LedgerRepositoryInterface
	cooldownRepo database.CooldownRepositoryInterface
	scheduler    tasks.TaskSchedulerInterface
	sweeper      tasks.SweeperInterface
	gatherer     prometheus.Gatherer
	ruleNames    []string
}

type ingestRequest struct {
	Items []rules.Item `json:"items"`
}

type ingestError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}
