package ratelimiter_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"sync"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/biolink/pkg/ratelimiter"
)

type clock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func newClock() *clock {
	return &clock{t: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
}

var cfg = ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Minute, KeyPrefix: "test:"}

func TestNewBucketValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimiter.Config
	}{
		{name: "zero capacity", cfg: ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{name: "zero rate", cfg: ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}},
		{name: "zero interval", cfg: ratelimiter.Config{Capacity: 1, RefillRate: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), tt.cfg)
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func exerciseStore(t *testing.T, store ratelimiter.Store, key string) {
	t.Helper()
	clk := newClock()
	b, err := ratelimiter.NewBucket(store, cfg, ratelimiter.WithClock(clk.Now))
	require.NoError(t, err)
	ctx := context.Background()

	for i := range cfg.Capacity {
		res, err := b.Allow(ctx, key)
		require.NoError(t, err)
		assert.True(t, res.Allowed(), "request %d", i)
		assert.Equal(t, cfg.Capacity-i-1, res.Remaining)
	}

	res, err := b.Allow(ctx, key)
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining, "refused requests do not drive the bucket negative")
	assert.Equal(t, time.Minute, res.RetryAfter(clk.Now()))

	clk.Advance(time.Minute)
	res, err = b.Allow(ctx, key)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Equal(t, 0, res.Remaining)

	_, err = b.AllowN(ctx, key, 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	// A long pause never overfills.
	clk.Advance(24 * time.Hour)
	res, err = b.Allow(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, cfg.Capacity-1, res.Remaining)

	require.NoError(t, b.Reset(ctx, key))
	res, err = b.AllowN(ctx, key, cfg.Capacity)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()
	store := ratelimiter.NewMemoryStore()
	exerciseStore(t, store, "user-1")
	assert.Equal(t, 1, store.Len())
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}
	opts, err := goredis.ParseURL(url)
	require.NoError(t, err)
	client := goredis.NewClient(opts)
	t.Cleanup(func() { _ = client.Close() })

	key := "user-" + time.Now().Format("150405.000000")
	exerciseStore(t, ratelimiter.NewRedisStore(client), key)
	t.Cleanup(func() { client.Del(context.Background(), cfg.KeyPrefix+key) })
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	clk := newClock()
	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(),
		ratelimiter.Config{Capacity: 2, RefillRate: 1, RefillInterval: 30 * time.Second},
		ratelimiter.WithClock(clk.Now),
	)
	require.NoError(t, err)

	key := ratelimiter.FirstKey(
		func(r *http.Request) string { return r.Header.Get("X-User") },
		ratelimiter.RemoteAddr,
	)
	h := ratelimiter.Middleware(b, key, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(user string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/checkout", nil)
		if user != "" {
			req.Header.Set("X-User", user)
		}
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("alice").Code)
	assert.Equal(t, http.StatusNoContent, call("alice").Code)

	rec := call("alice")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	// Separate buckets per key.
	assert.Equal(t, http.StatusNoContent, call("bob").Code)
	assert.Equal(t, http.StatusNoContent, call("").Code)

	clk.Advance(30 * time.Second)
	assert.Equal(t, http.StatusNoContent, call("alice").Code)
}
