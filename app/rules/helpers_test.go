package rules

import (
	"context"
	"sync"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/dedup"
	"github.com/lysyi3m/intel-comb/app/llm"
)

var baseTime = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func rating(v float64) *float64 {
	return &v
}

func newTestPolicy() (*config.Policy, *dedup.Policy, *dedup.MemoryStore) {
	p := config.Defaults()
	store := dedup.NewMemoryStore()
	return p, dedup.NewPolicy(store, store, dedup.SettingsFrom(p.Dedup)), store
}

func reviewItem(id string, r *float64, at time.Time) Item {
	return Item{
		ID:          id,
		CompanyID:   "acme",
		CompanyName: "Acme",
		Category:    CategoryReview,
		SourceType:  "g2",
		Gist:        "Customer complains about surprise billing charges",
		Rating:      r,
		URL:         "https://example.com/reviews/" + id,
		ObservedAt:  at,
	}
}

func postItem(id string, likes, comments, shares int, at time.Time) Item {
	return Item{
		ID:          id,
		CompanyID:   "acme",
		CompanyName: "Acme",
		Category:    CategorySocialPost,
		SourceType:  "linkedin",
		Gist:        "Acme announces a partnership",
		Likes:       likes,
		Comments:    comments,
		Shares:      shares,
		ObservedAt:  at,
	}
}

// fakeExtractor returns fixed candidates and counts calls.
type fakeExtractor struct {
	mu         sync.Mutex
	candidates []Candidate
	err        error
	calls      int
}

func (f *fakeExtractor) Extract(ctx context.Context, req ExtractionRequest) ([]Candidate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.candidates, f.err
}

func (f *fakeExtractor) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeBaselines struct {
	mu     sync.Mutex
	value  float64
	err    error
	calls  int
	before time.Time
}

func (f *fakeBaselines) GetEngagementBaseline(ctx context.Context, companyID, sourceType string, asOf time.Time, days int) (float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.before = asOf
	return f.value, f.err
}

type fakePostings struct {
	mu     sync.Mutex
	window PostingWindow
	err    error
	calls  int
}

func (f *fakePostings) GetPostingWindow(ctx context.Context, companyID, period string, asOf time.Time) (PostingWindow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.window, f.err
}

type fakeProvider struct {
	content string
	err     error
	last    llm.Request
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Generate(ctx context.Context, req llm.Request) (llm.Response, error) {
	f.last = req
	if f.err != nil {
		return llm.Response{}, f.err
	}
	return llm.Response{Content: f.content, Model: "fake-model"}, nil
}
