package dedup

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/lysyi3m/intel-comb/app/config"
	"github.com/lysyi3m/intel-comb/app/metrics"
)

type Reason string

const (
	ReasonFirst           Reason = "first"
	ReasonCooldownElapsed Reason = "cooldown_elapsed"
	ReasonSurge           Reason = "surge"
	ReasonSuppressed      Reason = "suppressed"
)

type Settings struct {
	Cooldown         time.Duration
	SurgeWindowDays  int
	SurgeBaseline    int // days preceding the surge window
	SurgeMultiplier  float64
	SurgeMinMentions int
}

func SettingsFrom(d config.DedupSettings) Settings {
	return Settings{
		Cooldown:         d.Cooldown(),
		SurgeWindowDays:  int(d.SurgeWindow() / (24 * time.Hour)),
		SurgeBaseline:    int(d.SurgeBaseline() / (24 * time.Hour)),
		SurgeMultiplier:  d.SurgeMultiplier,
		SurgeMinMentions: d.SurgeMinMentions,
	}
}

type Decision struct {
	Emit           bool
	Reason         Reason
	RecentMentions int
	RecentRate     float64
	NormalRate     float64
}

const lockStripes = 64

// Policy decides whether a mention of a topic becomes an alert.
type Policy struct {
	ledger    Ledger
	cooldowns Cooldowns
	settings  Settings

	locks [lockStripes]sync.Mutex
}

func NewPolicy(ledger Ledger, cooldowns Cooldowns, settings Settings) *Policy {
	if settings.SurgeWindowDays <= 0 {
		settings.SurgeWindowDays = 1
	}
	if settings.SurgeBaseline <= 0 {
		settings.SurgeBaseline = 1
	}
	return &Policy{
		ledger:    ledger,
		cooldowns: cooldowns,
		settings:  settings,
	}
}

func (p *Policy) lockFor(key Key) *sync.Mutex {
	h := fnv.New32a()
	h.Write([]byte(key.CompanyID))
	h.Write([]byte{0})
	h.Write([]byte(key.Type))
	h.Write([]byte{0})
	h.Write([]byte(key.Topic))
	return &p.locks[h.Sum32()%lockStripes]
}

func (p *Policy) Settings() Settings {
	return p.settings
}

// RecordMention counts one mention of key at now. It is called for every
// candidate, emitted or not, so surge statistics see suppressed mentions too.
func (p *Policy) RecordMention(ctx context.Context, key Key, now time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.ledger.RecordMention(ctx, key, now); err != nil {
		return fmt.Errorf("record mention: %w", err)
	}
	return nil
}

// ShouldEmit reads the cooldown watermark and the ledger and returns the
// decision without mutating anything.
func (p *Policy) ShouldEmit(ctx context.Context, key Key, now time.Time) (Decision, error) {
	if err := key.Validate(); err != nil {
		return Decision{}, err
	}

	last, ok, err := p.cooldowns.LastNotified(ctx, key)
	if err != nil {
		return Decision{}, fmt.Errorf("read cooldown: %w", err)
	}
	if !ok {
		return Decision{Emit: true, Reason: ReasonFirst}, nil
	}
	if now.Sub(last) >= p.settings.Cooldown {
		return Decision{Emit: true, Reason: ReasonCooldownElapsed}, nil
	}

	decision, err := p.surge(ctx, key, now)
	if err != nil {
		return Decision{}, err
	}

	// a surge breaks through at most once per day per topic
	if decision.Emit && DayBucket(last) >= DayBucket(now) {
		decision.Emit = false
	}
	if decision.Emit {
		decision.Reason = ReasonSurge
	} else {
		decision.Reason = ReasonSuppressed
	}
	return decision, nil
}

// surge compares the mention rate of the last SurgeWindowDays (today
// included) with the rate over the SurgeBaseline days before them.
func (p *Policy) surge(ctx context.Context, key Key, now time.Time) (Decision, error) {
	day := 24 * time.Hour
	recentFrom := now.Add(-time.Duration(p.settings.SurgeWindowDays-1) * day)
	baselineTo := recentFrom.Add(-day)
	baselineFrom := baselineTo.Add(-time.Duration(p.settings.SurgeBaseline-1) * day)

	recent, err := p.ledger.CountMentions(ctx, key, recentFrom, now)
	if err != nil {
		return Decision{}, fmt.Errorf("count recent mentions: %w", err)
	}
	normal, err := p.ledger.CountMentions(ctx, key, baselineFrom, baselineTo)
	if err != nil {
		return Decision{}, fmt.Errorf("count baseline mentions: %w", err)
	}

	d := Decision{
		RecentMentions: recent,
		RecentRate:     float64(recent) / float64(p.settings.SurgeWindowDays),
		NormalRate:     float64(normal) / float64(p.settings.SurgeBaseline),
	}
	d.Emit = recent >= p.settings.SurgeMinMentions && d.RecentRate > p.settings.SurgeMultiplier*d.NormalRate
	return d, nil
}

// MarkEmitted advances the cooldown watermark. The store keeps the later of
// the two timestamps, so out-of-order items never rewind it.
func (p *Policy) MarkEmitted(ctx context.Context, key Key, now time.Time) error {
	if err := key.Validate(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := p.cooldowns.MarkNotified(ctx, key, now); err != nil {
		return fmt.Errorf("mark notified: %w", err)
	}
	return nil
}

// Check records the mention and decides. The caller commits the emission
// with MarkEmitted once the alert is actually produced.
func (p *Policy) Check(ctx context.Context, key Key, now time.Time) (Decision, error) {
	if err := p.RecordMention(ctx, key, now); err != nil {
		return Decision{}, err
	}
	decision, err := p.ShouldEmit(ctx, key, now)
	if err != nil {
		return Decision{}, err
	}
	metrics.DedupDecisions.WithLabelValues(string(decision.Reason)).Inc()
	return decision, nil
}

// Admit runs Check and, when the decision is to emit, MarkEmitted, holding
// the key's lock so concurrent evaluations of one topic cannot both pass
// the same cooldown.
func (p *Policy) Admit(ctx context.Context, key Key, now time.Time) (Decision, error) {
	if err := key.Validate(); err != nil {
		return Decision{}, err
	}

	mu := p.lockFor(key)
	mu.Lock()
	defer mu.Unlock()

	decision, err := p.Check(ctx, key, now)
	if err != nil || !decision.Emit {
		return decision, err
	}
	if err := p.MarkEmitted(ctx, key, now); err != nil {
		return Decision{}, err
	}
	return decision, nil
}
