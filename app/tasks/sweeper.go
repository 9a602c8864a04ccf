package tasks

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"

	"github.com/lysyi3m/intel-comb/app/database"
	"github.com/lysyi3m/intel-comb/app/metrics"
	"github.com/lysyi3m/intel-comb/app/rules"
)

type SweepResult struct {
	RunID       string        `json:"run_id"`
	StartedAt   time.Time     `json:"started_at"`
	Duration    time.Duration `json:"duration"`
	Items       int           `json:"items"`
	Evaluated   int           `json:"evaluated"`
	Alerts      int           `json:"alerts"`
	FailedItems int           `json:"failed_items"`
}

// Sweeper evaluates one batch of pending items per call. Calls are serialized
// so two sweeps never pick up the same items.
type Sweeper struct {
	itemRepo   database.ItemRepositoryInterface
	alertRepo  database.AlertRepositoryInterface
	baselines  rules.BaselineProvider
	postings   rules.PostingStatsProvider
	dispatcher *rules.Dispatcher
	batchSize  int
	now        func() time.Time
	saves      failsafe.Executor[bool]

	sweepMu sync.Mutex

	mu     sync.RWMutex
	last   SweepResult
	hasRun bool
}

func NewSweeper(itemRepo database.ItemRepositoryInterface, alertRepo database.AlertRepositoryInterface,
	baselines rules.BaselineProvider, postings rules.PostingStatsProvider,
	dispatcher *rules.Dispatcher, batchSize int) *Sweeper {
	return &Sweeper{
		itemRepo:   itemRepo,
		alertRepo:  alertRepo,
		baselines:  baselines,
		postings:   postings,
		dispatcher: dispatcher,
		batchSize:  batchSize,
		now:        time.Now,
		saves:      newSaveExecutor(2, 100*time.Millisecond, time.Second),
	}
}

// newSaveExecutor retries alert writes. By the time an alert is saved its
// cooldown is already committed, so a dropped write silences the topic.
func newSaveExecutor(retries int, delay, maxDelay time.Duration) failsafe.Executor[bool] {
	retry := retrypolicy.NewBuilder[bool]().
		WithBackoff(delay, maxDelay).
		WithMaxRetries(retries).
		WithJitterFactor(0.1).
		HandleIf(func(_ bool, err error) bool {
			return err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
		}).
		OnRetry(func(e failsafe.ExecutionEvent[bool]) {
			slog.Warn("Retrying alert save", "attempt", e.Attempts(), "error", e.LastError())
		}).
		Build()
	return failsafe.With[bool](retry)
}

// Sweep loads pending items, dispatches them through the rules and stores the
// alerts. Items whose rules failed stay pending for the next sweep; all other
// items, including invalid ones, are marked evaluated.
func (s *Sweeper) Sweep(ctx context.Context) (SweepResult, error) {
	s.sweepMu.Lock()
	defer s.sweepMu.Unlock()

	start := s.now().UTC()
	result := SweepResult{StartedAt: start}

	items, err := s.itemRepo.GetPendingItems(ctx, s.batchSize)
	if err != nil {
		return result, fmt.Errorf("failed to load pending items: %w", err)
	}
	result.Items = len(items)
	if len(items) == 0 {
		slog.Debug("No pending items to evaluate")
		return s.record(result, start), nil
	}

	run := rules.NewRun(s.baselines, s.postings, start)
	result.RunID = run.ID

	failed := make(map[string]bool)
	var dispatchErr error
	var saveErrs []error

	for alert, err := range s.dispatcher.Dispatch(ctx, run, items) {
		if err != nil {
			dispatchErr = err
			continue
		}

		saved, err := s.saves.WithContext(ctx).Get(func() (bool, error) {
			return s.alertRepo.SaveAlert(ctx, alert)
		})
		if err != nil {
			failed[alert.ItemID] = true
			saveErrs = append(saveErrs, err)
			slog.Error("Failed to save alert", "run_id", run.ID, "item_id", alert.ItemID, "rule", alert.Rule, "error", err)
			continue
		}
		if saved {
			result.Alerts++
			slog.Info("Alert emitted",
				"run_id", run.ID,
				"company", alert.CompanyID,
				"rule", alert.Rule,
				"tier", int(alert.Tier),
				"chip", alert.Chip,
				"title", alert.Title)
		}
	}

	if err := ctx.Err(); err != nil {
		return result, fmt.Errorf("sweep interrupted: %w", err)
	}

	for _, itemErr := range rules.ItemErrors(dispatchErr) {
		if itemErr.Rule == "" {
			slog.Warn("Skipping invalid item", "run_id", run.ID, "item_id", itemErr.ItemID, "error", itemErr.Err)
			continue
		}
		failed[itemErr.ItemID] = true
		slog.Error("Rule evaluation failed", "run_id", run.ID, "item_id", itemErr.ItemID, "rule", itemErr.Rule, "error", itemErr.Err)
	}

	evaluated := make([]string, 0, len(items))
	for _, item := range items {
		if !failed[item.ID] {
			evaluated = append(evaluated, item.ID)
		}
	}
	if err := s.itemRepo.MarkEvaluated(ctx, evaluated, start); err != nil {
		return result, fmt.Errorf("failed to mark items evaluated: %w", err)
	}

	result.Evaluated = len(evaluated)
	result.FailedItems = len(failed)
	metrics.SweepItems.Add(float64(len(evaluated)))
	result = s.record(result, start)

	slog.Info("Sweep completed",
		"run_id", run.ID,
		"items", result.Items,
		"evaluated", result.Evaluated,
		"alerts", result.Alerts,
		"failed_items", result.FailedItems,
		"lookups", run.Lookups(),
		"duration", result.Duration.String())

	if len(failed) > 0 {
		return result, errors.Join(append(saveErrs, fmt.Errorf("%d items left pending after rule failures", len(failed)))...)
	}
	return result, nil
}

func (s *Sweeper) record(result SweepResult, start time.Time) SweepResult {
	result.Duration = s.now().Sub(start)
	metrics.SweepDuration.Observe(result.Duration.Seconds())

	s.mu.Lock()
	s.last = result
	s.hasRun = true
	s.mu.Unlock()

	return result
}

// LastResult returns the result of the most recent completed sweep.
func (s *Sweeper) LastResult() (SweepResult, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last, s.hasRun
}
