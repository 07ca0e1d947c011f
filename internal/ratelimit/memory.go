package ratelimit

import (
	"context"
	"sync"
	"time"
)

// DefaultSweepInterval is how often expired windows are dropped.
const DefaultSweepInterval = time.Minute

type bucket struct {
	count   int
	resetAt time.Time
}

// Memory is a process-local fixed-window limiter. Counts are not shared
// between instances and are lost on restart.
type Memory struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu      sync.Mutex
	entries map[string]*bucket
}

// NewMemory creates a limiter allowing limit requests per period.
func NewMemory(limit int, period time.Duration) *Memory {
	if limit <= 0 {
		limit = DefaultMax
	}
	if period <= 0 {
		period = DefaultWindow
	}
	return &Memory{
		max:     limit,
		window:  period,
		now:     time.Now,
		entries: make(map[string]*bucket),
	}
}

// Allow counts one request for key.
func (m *Memory) Allow(_ context.Context, key string) (Result, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok || !now.Before(e.resetAt) {
		e = &bucket{count: 1, resetAt: now.Add(m.window)}
		m.entries[key] = e
		return m.result(true, e), nil
	}

	if e.count >= m.max {
		return m.result(false, e), nil
	}

	e.count++
	return m.result(true, e), nil
}

func (m *Memory) result(allowed bool, e *bucket) Result {
	return Result{
		Allowed:   allowed,
		Limit:     m.max,
		Remaining: max(m.max-e.count, 0),
		ResetAt:   e.resetAt,
	}
}

// Sweep drops windows that have expired and returns how many were removed.
func (m *Memory) Sweep() int {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for key, e := range m.entries {
		if !now.Before(e.resetAt) {
			delete(m.entries, key)
			removed++
		}
	}
	return removed
}

// Len returns the number of tracked keys.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Run sweeps expired windows every interval until ctx is cancelled.
func (m *Memory) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep()
		}
	}
}
