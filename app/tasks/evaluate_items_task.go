package tasks

import (
	"context"
	"fmt"
	"log/slog"
)

const (
	ScopeScheduled = "scheduled"
	ScopeManual    = "manual"
)

type EvaluateItemsTask struct {
	Task
	sweeper SweeperInterface
}

func NewEvaluateItemsTask(scope string, sweeper SweeperInterface) *EvaluateItemsTask {
	return &EvaluateItemsTask{
		Task:    NewTask(TaskTypeEvaluateItems, scope),
		sweeper: sweeper,
	}
}

func (t *EvaluateItemsTask) Execute(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	result, err := t.sweeper.Sweep(ctx)
	if err != nil {
		return fmt.Errorf("failed to evaluate items: %w", err)
	}

	slog.Debug("Evaluation task completed", "id", t.ID, "scope", t.Scope, "items", result.Items, "alerts", result.Alerts, "duration", t.GetDuration().String())
	return nil
}
