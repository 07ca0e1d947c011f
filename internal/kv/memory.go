package kv

import (
	"context"
	"sync"
)

// Memory is a process-local Store for development and tests.
type Memory struct {
	mu      sync.RWMutex
	strings map[string]string
	lists   map[string][]string
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		strings: make(map[string]string),
		lists:   make(map[string][]string),
	}
}

// Get implements Store.
func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.strings[key]
	return v, ok, nil
}

// Set implements Store.
func (m *Memory) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.lists, key)
	m.strings[key] = value
	return nil
}

// Del implements Store.
func (m *Memory) Del(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.strings, key)
	delete(m.lists, key)
	return nil
}

// LPush implements Store.
func (m *Memory) LPush(_ context.Context, key, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	list = append([]string{value}, list...)
	m.lists[key] = list
	return int64(len(list)), nil
}

// LRange implements Store.
func (m *Memory) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	list := m.lists[key]
	from, to := normalizeRange(start, stop, int64(len(list)))
	out := make([]string, to-from)
	copy(out, list[from:to])
	return out, nil
}

// LRem implements Store.
func (m *Memory) LRem(_ context.Context, key string, count int64, value string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	list := m.lists[key]
	if len(list) == 0 {
		return 0, nil
	}

	limit := count
	if limit < 0 {
		limit = -limit
	}

	remove := make([]bool, len(list))
	var removed int64
	if count >= 0 {
		for i := 0; i < len(list); i++ {
			if list[i] == value && (limit == 0 || removed < limit) {
				remove[i] = true
				removed++
			}
		}
	} else {
		for i := len(list) - 1; i >= 0; i-- {
			if list[i] == value && removed < limit {
				remove[i] = true
				removed++
			}
		}
	}

	kept := list[:0:0]
	for i, v := range list {
		if !remove[i] {
			kept = append(kept, v)
		}
	}
	if len(kept) == 0 {
		delete(m.lists, key)
	} else {
		m.lists[key] = kept
	}
	return removed, nil
}

// Ping implements Store.
func (m *Memory) Ping(context.Context) error { return nil }

// Close implements Store.
func (m *Memory) Close() error { return nil }
