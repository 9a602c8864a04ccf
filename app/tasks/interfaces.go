package tasks

import "context"

// TaskSchedulerInterface is what the application and the API use to run
// background work.
//
//	scheduler := NewScheduler(sweeper)
//	scheduler.Start()
//	defer scheduler.Stop()
//	scheduler.EnqueueTask(NewEvaluateItemsTask(ScopeManual, sweeper))
type TaskSchedulerInterface interface {
	Start()
	Stop()
	EnqueueTask(task TaskInterface) error
}

// SweeperInterface evaluates pending items.
type SweeperInterface interface {
	Sweep(ctx context.Context) (SweepResult, error)
	LastResult() (SweepResult, bool)
}
