package rules

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
)

func TestVolumeTier(t *testing.T) {
	s := config.Defaults().Volume
	tests := []struct {
		name              string
		current, previous int
		want              Tier
		wantOK            bool
	}{
		{"nothing posted", 0, 10, 0, false},
		{"nothing at all", 0, 0, 0, false},
		{"from silence", 10, 0, Tier2, true},
		{"from silence below floor", 5, 0, 0, false},
		{"from silence never tier 1", 40, 0, Tier2, true},
		{"strong jump", 15, 4, Tier1, true},
		{"high ratio too few posts", 3, 1, 0, false},
		{"tier 2", 10, 4, Tier2, true},
		{"tier 3", 7, 4, Tier3, true},
		{"flat", 8, 8, 0, false},
		{"ratio without tier 1 floor", 11, 3, Tier2, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := VolumeTier(tt.current, tt.previous, s)
			if ok != tt.wantOK || got != tt.want {
				t.Errorf("Expected (%v, %v), got (%v, %v)", tt.want, tt.wantOK, got, ok)
			}
		})
	}
}

func TestVolumeRule_OneAlertPerWindow(t *testing.T) {
	p, policy, _ := newTestPolicy()
	rule := NewVolumeRule(p.Volume, policy)
	weekStart := time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)
	postings := &fakePostings{window: PostingWindow{
		CurrentPosts:  15,
		PreviousPosts: 4,
		WindowStart:   weekStart,
		WindowEnd:     weekStart.AddDate(0, 0, 7),
	}}
	run := NewRun(nil, postings, baseTime)

	first, err := rule.Evaluate(context.Background(), run, postItem("p1", 0, 0, 0, baseTime))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if first == nil || first.Tier != Tier1 {
		t.Fatalf("Expected tier 1 alert, got %+v", first)
	}

	second, err := rule.Evaluate(context.Background(), run, postItem("p2", 0, 0, 0, baseTime.Add(time.Hour)))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if second != nil {
		t.Errorf("Expected second post of the week to be suppressed, got %+v", second)
	}
	if postings.calls != 1 {
		t.Errorf("Expected 1 posting window lookup, got %d", postings.calls)
	}

	next := NewRun(nil, &fakePostings{window: PostingWindow{
		CurrentPosts:  15,
		PreviousPosts: 4,
		WindowStart:   weekStart.AddDate(0, 0, 7),
	}}, baseTime.AddDate(0, 0, 7))
	third, err := rule.Evaluate(context.Background(), next, postItem("p3", 0, 0, 0, baseTime.Add(24*time.Hour)))
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if third == nil {
		t.Error("Expected a new period to alert independently")
	}
}

func TestVolumeRule_StatsErrorPropagates(t *testing.T) {
	p, policy, _ := newTestPolicy()
	rule := NewVolumeRule(p.Volume, policy)
	boom := errors.New("db down")

	_, err := rule.Evaluate(context.Background(), NewRun(nil, &fakePostings{err: boom}, baseTime), postItem("p1", 0, 0, 0, baseTime))
	if !errors.Is(err, boom) {
		t.Errorf("Expected stats error, got %v", err)
	}
}
