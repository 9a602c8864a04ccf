package rules

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"
)

type baselineKey struct {
	companyID  string
	sourceType string
	before     int64
	days       int
}

type windowKey struct {
	companyID string
	period    string
}

// Run is the state of one evaluation batch. Stats lookups are memoized for
// the lifetime of the Run only; build a new Run for every batch.
type Run struct {
	ID   string
	AsOf time.Time

	baselines BaselineProvider
	postings  PostingStatsProvider

	mu       sync.Mutex
	baseline map[baselineKey]float64
	windows  map[windowKey]PostingWindow
	lookups  singleflight.Group
	calls    int
}

func NewRun(baselines BaselineProvider, postings PostingStatsProvider, asOf time.Time) *Run {
	return &Run{
		ID:        uuid.NewString(),
		AsOf:      asOf,
		baselines: baselines,
		postings:  postings,
		baseline:  make(map[baselineKey]float64),
		windows:   make(map[windowKey]PostingWindow),
	}
}

// EngagementBaseline averages engagement for companyID/sourceType over the
// days before the given instant. The bound is exclusive, so passing an item's
// ObservedAt keeps that item out of its own baseline.
func (r *Run) EngagementBaseline(ctx context.Context, companyID, sourceType string, before time.Time, days int) (float64, error) {
	key := baselineKey{companyID: companyID, sourceType: sourceType, before: before.UnixMilli(), days: days}

	r.mu.Lock()
	if v, ok := r.baseline[key]; ok {
		r.mu.Unlock()
		return v, nil
	}
	r.mu.Unlock()

	if r.baselines == nil {
		return 0, fmt.Errorf("no baseline provider configured")
	}

	v, err, _ := r.lookups.Do(fmt.Sprintf("baseline|%s|%s|%d|%d", companyID, sourceType, key.before, days), func() (any, error) {
		r.mu.Lock()
		if v, ok := r.baseline[key]; ok {
			r.mu.Unlock()
			return v, nil
		}
		r.calls++
		r.mu.Unlock()

		value, err := r.baselines.GetEngagementBaseline(ctx, companyID, sourceType, before, days)
		if err != nil {
			return 0.0, err
		}
		r.mu.Lock()
		r.baseline[key] = value
		r.mu.Unlock()
		return value, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(float64), nil
}

func (r *Run) PostingWindow(ctx context.Context, companyID, period string) (PostingWindow, error) {
	key := windowKey{companyID: companyID, period: period}

	r.mu.Lock()
	if w, ok := r.windows[key]; ok {
		r.mu.Unlock()
		return w, nil
	}
	r.mu.Unlock()

	if r.postings == nil {
		return PostingWindow{}, fmt.Errorf("no posting stats provider configured")
	}

	v, err, _ := r.lookups.Do("window|"+companyID+"|"+period, func() (any, error) {
		r.mu.Lock()
		if w, ok := r.windows[key]; ok {
			r.mu.Unlock()
			return w, nil
		}
		r.calls++
		r.mu.Unlock()

		w, err := r.postings.GetPostingWindow(ctx, companyID, period, r.AsOf)
		if err != nil {
			return PostingWindow{}, err
		}
		r.mu.Lock()
		r.windows[key] = w
		r.mu.Unlock()
		return w, nil
	})
	if err != nil {
		return PostingWindow{}, err
	}
	return v.(PostingWindow), nil
}

// Lookups is the number of provider calls made by this run.
func (r *Run) Lookups() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}
