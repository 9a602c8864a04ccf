package dedup

import (
	"context"
	"sort"
	"sync"
	"time"
)

var (
	_ Ledger    = (*MemoryStore)(nil)
	_ Cooldowns = (*MemoryStore)(nil)
)

type dayKey struct {
	key Key
	day string
}

// MemoryStore keeps ledger and cooldown state in process. Safe for concurrent use.
type MemoryStore struct {
	mu        sync.Mutex
	ledger    map[dayKey]*LedgerEntry
	cooldowns map[Key]time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		ledger:    make(map[dayKey]*LedgerEntry),
		cooldowns: make(map[Key]time.Time),
	}
}

func (m *MemoryStore) RecordMention(ctx context.Context, key Key, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	dk := dayKey{key: key, day: DayBucket(at)}
	entry, ok := m.ledger[dk]
	if !ok {
		m.ledger[dk] = &LedgerEntry{Key: key, Day: dk.day, FirstSeenAt: at, LastSeenAt: at, Count: 1}
		return nil
	}
	entry.Count++
	if at.Before(entry.FirstSeenAt) {
		entry.FirstSeenAt = at
	}
	if at.After(entry.LastSeenAt) {
		entry.LastSeenAt = at
	}
	return nil
}

func (m *MemoryStore) CountMentions(ctx context.Context, key Key, from, to time.Time) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	fromDay, toDay := DayBucket(from), DayBucket(to)
	total := 0
	for dk, entry := range m.ledger {
		if dk.key == key && dk.day >= fromDay && dk.day <= toDay {
			total += entry.Count
		}
	}
	return total, nil
}

func (m *MemoryStore) LastNotified(ctx context.Context, key Key) (time.Time, bool, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	at, ok := m.cooldowns[key]
	return at, ok, nil
}

func (m *MemoryStore) MarkNotified(ctx context.Context, key Key, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.cooldowns[key]; ok && !at.After(existing) {
		return nil
	}
	m.cooldowns[key] = at
	return nil
}

// Entries returns the ledger rows of key ordered by day.
func (m *MemoryStore) Entries(key Key) []LedgerEntry {
	m.mu.Lock()
	defer m.mu.Unlock()

	var entries []LedgerEntry
	for dk, entry := range m.ledger {
		if dk.key == key {
			entries = append(entries, *entry)
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Day < entries[j].Day })
	return entries
}
