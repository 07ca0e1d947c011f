package cache

import (
	"strings"
	"testing"
)

func TestHashIP(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		a, b string
		same bool
	}{
		{"same address", "203.0.113.7", "203.0.113.7", true},
		{"neighbouring addresses", "10.0.0.1", "10.0.0.2", false},
		{"IPv4 vs IPv6", "127.0.0.1", "::1", false},
		{"unknown vs empty", "unknown", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ha, hb := hashIP(tt.a), hashIP(tt.b)
			if len(ha) != 16 || len(hb) != 16 {
				t.Fatalf("expected 16 hex chars, got %q and %q", ha, hb)
			}
			if (ha == hb) != tt.same {
				t.Errorf("hashIP(%q)=%s hashIP(%q)=%s, same=%v", tt.a, ha, tt.b, hb, tt.same)
			}
		})
	}
}

func TestHashIP_KeyHidesAddress(t *testing.T) {
	t.Parallel()

	ip := "198.51.100.23"
	key := rateLimitIPPrefix + hashIP(ip)
	if strings.Contains(key, ip) {
		t.Errorf("rate limit key %q leaks the client address", key)
	}
	if !strings.HasPrefix(key, "ratelimit:ip:") {
		t.Errorf("unexpected key prefix in %q", key)
	}
}

func TestParseOptions(t *testing.T) {
	t.Parallel()

	opt, err := ParseOptions("rediss://:secret@cache.internal:6380/2")
	if err != nil {
		t.Fatalf("ParseOptions: %v", err)
	}
	if opt.Addr != "cache.internal:6380" || opt.DB != 2 || opt.TLSConfig == nil {
		t.Errorf("unexpected connection options addr=%s db=%d tls=%v", opt.Addr, opt.DB, opt.TLSConfig != nil)
	}
	if opt.PoolSize != poolSize || opt.MinIdleConns != minIdleConns || opt.PoolTimeout != poolTimeout {
		t.Errorf("pool defaults not applied: %+v", opt)
	}

	opt, err = ParseOptions("redis://localhost:6379/0?pool_size=3")
	if err != nil {
		t.Fatalf("ParseOptions with query: %v", err)
	}
	if opt.PoolSize != 3 {
		t.Errorf("PoolSize = %d, want the URL value 3", opt.PoolSize)
	}

	_, err = ParseOptions("http://:hunter2@localhost")
	if err == nil {
		t.Fatal("expected an error for a non-redis scheme")
	}
	if strings.Contains(err.Error(), "hunter2") {
		t.Errorf("error leaks the password: %v", err)
	}
}
