package api

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/lysyi3m/intel-comb/app/database"
	"github.com/lysyi3m/intel-comb/app/rules"
	"github.com/lysyi3m/intel-comb/app/tasks"
	"github.com/prometheus/client_golang/prometheus"
)

func NewHandler(itemRepo database.ItemRepositoryInterface, alertRepo database.AlertRepositoryInterface,
	ledgerRepo database.LedgerRepositoryInterface, cooldownRepo database.CooldownRepositoryInterface,
	scheduler tasks.TaskSchedulerInterface, sweeper tasks.SweeperInterface,
	gatherer prometheus.Gatherer, ruleSet []rules.Rule) *Handler {
	names := make([]string, 0, len(ruleSet))
	for _, r := range ruleSet {
		names = append(names, r.Name())
	}

	return &Handler{
		itemRepo:     itemRepo,
		alertRepo:    alertRepo,
		ledgerRepo:   ledgerRepo,
		cooldownRepo: cooldownRepo,
		scheduler:    scheduler,
		sweeper:      sweeper,
		gatherer:     gatherer,
		ruleNames:    names,
	}
}

func (h *Handler) GetHealth(c *gin.Context) {
	health := map[string]interface{}{
		"status":    "ok",
		"timestamp": time.Now().In(time.Local).Format(time.RFC3339),
	}

	if _, _, err := h.itemRepo.GetItemStats(c.Request.Context()); err != nil {
		slog.Error("Database error", "operation", "health_check", "error", err)
		health["status"] = "degraded"
		c.JSON(http.StatusServiceUnavailable, health)
		return
	}

	c.JSON(http.StatusOK, health)
}

func (h *Handler) GetStats(c *gin.Context) {
	ctx := c.Request.Context()
	stats := map[string]interface{}{
		"rules": h.ruleNames,
	}

	if total, pending, err := h.itemRepo.GetItemStats(ctx); err == nil {
		stats["items"] = total
		stats["pending_items"] = pending
	} else {
		slog.Warn("Failed to get item stats", "error", err)
	}

	if count, err := h.alertRepo.GetAlertCount(ctx); err == nil {
		stats["alerts"] = count
	} else {
		slog.Warn("Failed to get alert count", "error", err)
	}

	if count, err := h.ledgerRepo.GetLedgerRowCount(ctx); err == nil {
		stats["ledger_rows"] = count
	} else {
		slog.Warn("Failed to get ledger row count", "error", err)
	}

	if last, ok := h.sweeper.LastResult(); ok {
		stats["last_sweep"] = map[string]interface{}{
			"run_id":       last.RunID,
			"started_at":   last.StartedAt.Format(time.RFC3339),
			"duration":     last.Duration.String(),
			"items":        last.Items,
			"evaluated":    last.Evaluated,
			"alerts":       last.Alerts,
			"failed_items": last.FailedItems,
		}
	}

	c.JSON(http.StatusOK, stats)
}

func (h *Handler) APIIngestItems(c *gin.Context) {
	var req ingestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body", "message": err.Error()})
		return
	}

	if len(req.Items) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No items provided"})
		return
	}
	if len(req.Items) > maxIngestBatch {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{
			"error":   "Batch too large",
			"message": "At most " + strconv.Itoa(maxIngestBatch) + " items per request",
		})
		return
	}

	var invalid []ingestError
	for i, item := range req.Items {
		if err := item.Validate(); err != nil {
			invalid = append(invalid, ingestError{Index: i, ID: item.ID, Error: err.Error()})
		}
	}
	if len(invalid) > 0 {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Invalid items", "items": invalid})
		return
	}

	if err := h.itemRepo.UpsertItems(c.Request.Context(), req.Items); err != nil {
		slog.Error("Database error", "operation", "upsert_items", "count", len(req.Items), "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	slog.Info("Items ingested", "count", len(req.Items))

	response := gin.H{"accepted": len(req.Items)}
	if c.Query("sweep") == "true" {
		response["sweep_enqueued"] = h.enqueueSweep()
	}

	c.JSON(http.StatusAccepted, response)
}

func (h *Handler) APIListAlerts(c *gin.Context) {
	limit := defaultAlertLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid limit parameter"})
			return
		}
		limit = min(n, maxAlertLimit)
	}

	company := c.Query("company")
	alerts, err := h.alertRepo.GetRecentAlerts(c.Request.Context(), company, limit)
	if err != nil {
		slog.Error("Database error", "operation", "get_alerts", "company", company, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}
	if alerts == nil {
		alerts = []rules.Alert{}
	}

	c.JSON(http.StatusOK, gin.H{
		"alerts": alerts,
		"total":  len(alerts),
	})
}

func (h *Handler) APIGetLedger(c *gin.Context) {
	company := c.Param("company")
	if company == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing company parameter"})
		return
	}

	ctx := c.Request.Context()
	entries, err := h.ledgerRepo.ListLedger(ctx, company, defaultLedgerLimit)
	if err != nil {
		slog.Error("Database error", "operation", "list_ledger", "company", company, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	cooldowns, err := h.cooldownRepo.ListCooldowns(ctx, company)
	if err != nil {
		slog.Error("Database error", "operation", "list_cooldowns", "company", company, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Database error"})
		return
	}

	ledger := make([]map[string]interface{}, 0, len(entries))
	for _, e := range entries {
		ledger = append(ledger, map[string]interface{}{
			"observation_type": e.Key.Type,
			"topic_key":        e.Key.Topic,
			"day":              e.Day,
			"count":            e.Count,
			"first_seen_at":    e.FirstSeenAt.Format(time.RFC3339),
			"last_seen_at":     e.LastSeenAt.Format(time.RFC3339),
		})
	}
	if cooldowns == nil {
		cooldowns = []database.Cooldown{}
	}

	c.JSON(http.StatusOK, gin.H{
		"company":   company,
		"ledger":    ledger,
		"cooldowns": cooldowns,
	})
}

func (h *Handler) APITriggerSweep(c *gin.Context) {
	if !h.enqueueSweep() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Failed to enqueue sweep"})
		return
	}

	c.JSON(http.StatusAccepted, gin.H{"message": "Sweep enqueued"})
}

func (h *Handler) enqueueSweep() bool {
	if err := h.scheduler.EnqueueTask(tasks.NewEvaluateItemsTask(tasks.ScopeManual, h.sweeper)); err != nil {
		slog.Warn("Failed to enqueue EvaluateItemsTask", "error", err)
		return false
	}
	return true
}
