package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newTestLimiter(cfg *Config) (*Limiter, *clock) {
	c := &clock{t: time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(cfg)
	l.now = c.now
	return l, c
}

func testConfig() *Config {
	return &Config{
		Enabled:       true,
		DefaultLimit:  100,
		DefaultWindow: time.Minute,
		Whitelist:     map[string]bool{"10.0.0.1": true},
		Blacklist:     map[string]bool{"10.0.0.2": true},
		EndpointConfigs: []EndpointConfig{
			{Path: "/api/stats", Method: "GET", Limit: 6, Window: time.Hour, Burst: 2},
			{Path: "/api/reports/", Method: "GET", Limit: 60, Window: time.Minute, Burst: 3},
		},
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	ok, info := l.Allow("1.2.3.4", "/api/stats", "GET")
	require.True(t, ok)
	assert.Equal(t, 6, info.Limit)
	assert.Equal(t, 1, info.Remaining)

	ok, _ = l.Allow("1.2.3.4", "/api/stats", "GET")
	require.True(t, ok)

	ok, info = l.Allow("1.2.3.4", "/api/stats", "GET")
	assert.False(t, ok)
	assert.Equal(t, 0, info.Remaining)
	assert.Equal(t, 10*time.Minute, info.RetryAfter.Round(time.Second))
	assert.True(t, info.ResetTime.After(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)))
}

func TestLimiter_Refill(t *testing.T) {
	l, c := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		ok, _ := l.Allow("1.2.3.4", "/api/stats", "GET")
		require.True(t, ok)
	}
	ok, _ := l.Allow("1.2.3.4", "/api/stats", "GET")
	require.False(t, ok)

	c.advance(11 * time.Minute)
	ok, _ = l.Allow("1.2.3.4", "/api/stats", "GET")
	assert.True(t, ok, "one token refills every window/limit")
}

func TestLimiter_ClientsAreIndependent(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 2; i++ {
		l.Allow("1.2.3.4", "/api/stats", "GET")
	}
	ok, _ := l.Allow("5.6.7.8", "/api/stats", "GET")
	assert.True(t, ok)
}

func TestLimiter_PrefixSharesBucket(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for _, day := range []string{"2024-03-01", "2024-03-02", "2024-03-03"} {
		ok, _ := l.Allow("1.2.3.4", "/api/reports/"+day, "GET")
		require.True(t, ok)
	}
	ok, _ := l.Allow("1.2.3.4", "/api/reports/2024-03-04", "GET")
	assert.False(t, ok)
}

func TestLimiter_SpecialClients(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	for i := 0; i < 10; i++ {
		ok, _ := l.Allow("10.0.0.1", "/api/stats", "GET")
		require.True(t, ok, "whitelisted")
	}
	ok, _ := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, ok, "blacklisted")
}

func TestLimiter_HealthIsUnlimited(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: true, DefaultLimit: 1, DefaultWindow: time.Hour})
	defer l.Stop()

	for i := 0; i < 5; i++ {
		ok, info := l.Allow("1.2.3.4", "/health", "GET")
		require.True(t, ok)
		assert.Zero(t, info.Limit)
	}
}

func TestLimiter_Disabled(t *testing.T) {
	l, _ := newTestLimiter(&Config{Enabled: false})
	defer l.Stop()

	ok, _ := l.Allow("1.2.3.4", "/api/stats", "GET")
	assert.True(t, ok)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l, c := newTestLimiter(testConfig())
	defer l.Stop()

	l.Allow("1.2.3.4", "/api/results", "GET")
	c.advance(2 * time.Hour)
	l.Allow("5.6.7.8", "/api/results", "GET")

	l.cleanupBuckets(c.now().Add(-time.Hour))
	assert.Len(t, l.buckets, 1)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, CleanupInterval: time.Millisecond})
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestLimiter_Concurrent(t *testing.T) {
	l, _ := newTestLimiter(testConfig())
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("1.2.3.4", "/api/stats", "GET"); ok {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 2, allowed)
}

func TestMatchEndpoint(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/api/stats", Method: "GET", Limit: 1},
		{Path: "/api/reports/", Method: "GET", Limit: 2},
		{Path: "/api/", Limit: 3},
	}

	tests := []struct {
		path   string
		method string
		limit  int
		found  bool
	}{
		{"/api/stats", "GET", 1, true},
		{"/api/reports/2024-03-15", "GET", 2, true},
		{"/api/results", "POST", 3, true},
		{"/health", "GET", 0, true},
		{"/other", "GET", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			got := MatchEndpoint(tt.path, tt.method, configs)
			if !tt.found {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.limit, got.Limit)
		})
	}
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "127.0.0.1, ::1")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.True(t, cfg.Whitelist["127.0.0.1"])
	assert.True(t, cfg.Whitelist["::1"])
	assert.NotEmpty(t, cfg.EndpointConfigs)

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
