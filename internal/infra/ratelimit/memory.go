package ratelimit

import (
	"context"
	"sync"
	"time"
)

var _ Limiter = (*MemoryLimiter)(nil)

// MemoryLimiter is a sliding-window limiter for single-instance deployments.
// Events older than the window are dropped on every call, so a key's slice
// never outgrows its limit.
type MemoryLimiter struct {
	mu     sync.Mutex
	events map[string][]time.Time
	now    func() time.Time // overridable in tests
}

func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		events: make(map[string][]time.Time),
		now:    time.Now,
	}
}

func (m *MemoryLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 {
		return false, nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	cutoff := now.Add(-window)

	events := m.events[key]
	kept := events[:0]
	for _, ts := range events {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= limit {
		m.events[key] = kept
		return false, nil
	}

	m.events[key] = append(kept, now)
	return true, nil
}
