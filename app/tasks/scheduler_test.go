package tasks

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockSweeper counts sweeps and fails a configured number of times
type MockSweeper struct {
	mu       sync.Mutex
	calls    int
	failures int
	done     chan struct{}
}

func (m *MockSweeper) Sweep(ctx context.Context) (SweepResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.done != nil && m.calls == 1 {
		close(m.done)
	}
	if m.failures > 0 {
		m.failures--
		return SweepResult{}, errors.New("temporary failure")
	}
	return SweepResult{Items: 1}, nil
}

func (m *MockSweeper) LastResult() (SweepResult, bool) {
	return SweepResult{}, false
}

func (m *MockSweeper) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func TestNewTask(t *testing.T) {
	task := NewTask(TaskTypeEvaluateItems, ScopeManual)

	if task.ID == "" {
		t.Error("Expected task ID to be set")
	}
	if task.Type != TaskTypeEvaluateItems || task.Scope != ScopeManual {
		t.Errorf("Unexpected task: %+v", task)
	}
	if task.MaxRetries != DefaultMaxRetries {
		t.Errorf("Expected max retries %d, got %d", DefaultMaxRetries, task.MaxRetries)
	}
	if task.GetDuration() != 0 {
		t.Error("Expected zero duration before start")
	}

	for i := 0; i < DefaultMaxRetries; i++ {
		if !task.CanRetry() {
			t.Fatalf("Expected retry %d to be allowed", i+1)
		}
		task.IncrementRetryCount()
	}
	if task.CanRetry() {
		t.Error("Expected retries to be exhausted")
	}
}

func TestRetryDelay(t *testing.T) {
	tests := []struct {
		retry    int
		expected time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{6, 30 * time.Second},
	}

	for _, tt := range tests {
		if got := retryDelay(tt.retry); got != tt.expected {
			t.Errorf("retryDelay(%d): expected %v, got %v", tt.retry, tt.expected, got)
		}
	}
}

func TestScheduler_SweepsOnStart(t *testing.T) {
	sweeper := &MockSweeper{done: make(chan struct{})}
	s := newScheduler(sweeper, time.Hour)

	s.Start()
	defer s.Stop()

	select {
	case <-sweeper.done:
	case <-time.After(5 * time.Second):
		t.Fatal("Expected a sweep right after start")
	}
}

func TestScheduler_RetriesFailedTask(t *testing.T) {
	sweeper := &MockSweeper{failures: 1}
	s := newScheduler(sweeper, time.Hour)
	task := NewEvaluateItemsTask(ScopeManual, sweeper)

	s.executeTask(0, task)
	if task.GetRetryCount() != 1 {
		t.Fatalf("Expected retry count 1, got %d", task.GetRetryCount())
	}

	select {
	case queued := <-s.taskQueue:
		if queued.GetID() != task.GetID() {
			t.Errorf("Expected task %s to be re-enqueued, got %s", task.GetID(), queued.GetID())
		}
	case <-time.After(3 * time.Second):
		t.Fatal("Expected failed task to be re-enqueued")
	}

	s.executeTask(0, task)
	if sweeper.Calls() != 2 {
		t.Errorf("Expected 2 sweeps, got %d", sweeper.Calls())
	}
	s.Stop()
}

func TestScheduler_EnqueueFullQueue(t *testing.T) {
	sweeper := &MockSweeper{}
	s := newScheduler(sweeper, time.Hour)
	s.taskQueue = make(chan TaskInterface, 1)

	if err := s.EnqueueTask(NewEvaluateItemsTask(ScopeManual, sweeper)); err != nil {
		t.Fatalf("Expected first enqueue to succeed, got %v", err)
	}
	if err := s.EnqueueTask(NewEvaluateItemsTask(ScopeManual, sweeper)); err == nil {
		t.Error("Expected error when queue is full")
	}
}

func TestScheduler_EnqueueAfterStop(t *testing.T) {
	sweeper := &MockSweeper{}
	s := newScheduler(sweeper, time.Hour)
	s.Start()
	s.Stop()

	if err := s.EnqueueTask(NewEvaluateItemsTask(ScopeManual, sweeper)); !errors.Is(err, context.Canceled) {
		t.Errorf("Expected context.Canceled after stop, got %v", err)
	}
}
