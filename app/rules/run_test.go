package rules

import (
	"context"
	"errors"
	"sync"
	"testing"
)

func TestRun_CachesBaselinePerKey(t *testing.T) {
	baselines := &fakeBaselines{value: 12}
	run := NewRun(baselines, nil, baseTime)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := run.EngagementBaseline(context.Background(), "acme", "linkedin", baseTime, 30); err != nil {
				t.Errorf("EngagementBaseline failed: %v", err)
			}
		}()
	}
	wg.Wait()

	if _, err := run.EngagementBaseline(context.Background(), "acme", "twitter", baseTime, 30); err != nil {
		t.Fatalf("EngagementBaseline failed: %v", err)
	}

	if baselines.calls != 2 {
		t.Errorf("Expected 2 provider calls, got %d", baselines.calls)
	}
	if run.Lookups() != 2 {
		t.Errorf("Expected 2 lookups, got %d", run.Lookups())
	}
}

func TestRun_CacheIsScopedToRun(t *testing.T) {
	baselines := &fakeBaselines{value: 12}

	for i := 0; i < 2; i++ {
		run := NewRun(baselines, nil, baseTime)
		if _, err := run.EngagementBaseline(context.Background(), "acme", "linkedin", baseTime, 30); err != nil {
			t.Fatalf("EngagementBaseline failed: %v", err)
		}
	}
	if baselines.calls != 2 {
		t.Errorf("Expected a fresh lookup per run, got %d calls", baselines.calls)
	}
}

func TestRun_ErrorsAreNotCached(t *testing.T) {
	postings := &fakePostings{err: errors.New("timeout")}
	run := NewRun(nil, postings, baseTime)

	if _, err := run.PostingWindow(context.Background(), "acme", "week"); err == nil {
		t.Fatal("Expected error")
	}
	postings.err = nil
	postings.window = PostingWindow{CurrentPosts: 3}

	w, err := run.PostingWindow(context.Background(), "acme", "week")
	if err != nil {
		t.Fatalf("PostingWindow failed: %v", err)
	}
	if w.CurrentPosts != 3 {
		t.Errorf("Expected 3 current posts, got %d", w.CurrentPosts)
	}
}

func TestRun_MissingProvider(t *testing.T) {
	run := NewRun(nil, nil, baseTime)
	if _, err := run.EngagementBaseline(context.Background(), "acme", "x", baseTime, 30); err == nil {
		t.Error("Expected error without a baseline provider")
	}
	if _, err := run.PostingWindow(context.Background(), "acme", "week"); err == nil {
		t.Error("Expected error without a posting stats provider")
	}
}
