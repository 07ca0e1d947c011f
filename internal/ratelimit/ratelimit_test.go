package ratelimit

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestMemory(limit int, period time.Duration) (*Memory, *fakeClock) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	m := NewMemory(limit, period)
	m.now = clock.Now
	return m, clock
}

func TestMemory_FixedWindow(t *testing.T) {
	t.Parallel()

	m, clock := newTestMemory(5, time.Minute)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		res, err := m.Allow(ctx, "203.0.113.1")
		if err != nil || !res.Allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i+1, res.Allowed, err)
		}
		if res.Remaining != 4-i {
			t.Errorf("request %d: Remaining = %d, want %d", i+1, res.Remaining, 4-i)
		}
	}

	res, _ := m.Allow(ctx, "203.0.113.1")
	if res.Allowed {
		t.Fatal("6th request in window should be denied")
	}
	if res.Remaining != 0 || res.Limit != 5 {
		t.Errorf("denied result = %+v", res)
	}

	// Other clients have their own window.
	if res, _ := m.Allow(ctx, "203.0.113.2"); !res.Allowed {
		t.Error("independent key should be allowed")
	}

	clock.Advance(59 * time.Second)
	if res, _ := m.Allow(ctx, "203.0.113.1"); res.Allowed {
		t.Error("still inside window, should be denied")
	}

	clock.Advance(time.Second)
	if res, _ := m.Allow(ctx, "203.0.113.1"); !res.Allowed {
		t.Error("window reset at resetAt, should be allowed")
	}
}

func TestMemory_Sweep(t *testing.T) {
	t.Parallel()

	m, clock := newTestMemory(5, time.Minute)
	ctx := context.Background()

	_, _ = m.Allow(ctx, "a")
	clock.Advance(30 * time.Second)
	_, _ = m.Allow(ctx, "b")

	clock.Advance(30 * time.Second)
	if removed := m.Sweep(); removed != 1 {
		t.Errorf("Sweep() removed %d, want 1", removed)
	}
	if m.Len() != 1 {
		t.Errorf("Len() = %d, want 1", m.Len())
	}
}

func TestMemory_RunStopsOnCancel(t *testing.T) {
	t.Parallel()

	m := NewMemory(1, time.Millisecond)
	_, _ = m.Allow(context.Background(), "a")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for m.Len() != 0 {
		select {
		case <-deadline:
			t.Fatal("sweeper did not remove expired window")
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestMemory_Concurrent(t *testing.T) {
	t.Parallel()

	m := NewMemory(50, time.Hour)

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := m.Allow(context.Background(), "k")
			if res.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if allowed != 50 {
		t.Errorf("allowed = %d, want 50", allowed)
	}
}

func TestNewMemory_Defaults(t *testing.T) {
	t.Parallel()

	m := NewMemory(0, 0)
	if m.max != DefaultMax || m.window != DefaultWindow {
		t.Errorf("defaults = %d/%s", m.max, m.window)
	}
}

func TestResult_RetryAfter(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tests := []struct {
		reset time.Time
		want  time.Duration
	}{
		{now.Add(-time.Second), 0},
		{now, 0},
		{now.Add(1500 * time.Millisecond), 2 * time.Second},
		{now.Add(59 * time.Second), 60 * time.Second},
	}

	for _, tt := range tests {
		if got := (Result{ResetAt: tt.reset}).RetryAfter(now); got != tt.want {
			t.Errorf("RetryAfter(%s) = %s, want %s", tt.reset.Sub(now), got, tt.want)
		}
	}
}

func TestClientIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{"forwarded for", map[string]string{"X-Forwarded-For": " 203.0.113.9 , 10.0.0.1"}, "203.0.113.9"},
		{"real ip", map[string]string{"X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"forwarded wins", map[string]string{"X-Forwarded-For": "203.0.113.9", "X-Real-IP": "198.51.100.4"}, "203.0.113.9"},
		{"empty first entry falls through", map[string]string{"X-Forwarded-For": " ,10.0.0.1", "X-Real-IP": "198.51.100.4"}, "198.51.100.4"},
		{"none", nil, UnknownClient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := httptest.NewRequest("POST", "/api/lead", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			if got := ClientIP(r); got != tt.want {
				t.Errorf("ClientIP() = %q, want %q", got, tt.want)
			}
		})
	}
}
