package ratelimiter_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrymomot/enginekit/pkg/ratelimiter"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock() *clock { return &clock{now: time.Unix(1_700_000_000, 0)} }

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		cfg  ratelimiter.Config
		ok   bool
	}{
		{name: "per_second", cfg: ratelimiter.PerSecond(10), ok: true},
		{name: "zero_capacity", cfg: ratelimiter.Config{RefillRate: 1, RefillInterval: time.Second}},
		{name: "zero_rate", cfg: ratelimiter.Config{Capacity: 1, RefillInterval: time.Second}},
		{name: "zero_interval", cfg: ratelimiter.Config{Capacity: 1, RefillRate: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
		})
	}
}

func TestNewBucket(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewBucket(nil, ratelimiter.PerSecond(1))
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.PerSecond(3))
	require.NoError(t, err)
	assert.Equal(t, 3, b.Config().Capacity)
}

func TestBucket_AllowAndRefill(t *testing.T) {
	t.Parallel()

	clk := newClock()
	store := ratelimiter.NewMemoryStore(ratelimiter.WithMemoryStoreClock(clk.Now))
	b, err := ratelimiter.NewBucket(store, ratelimiter.Config{Capacity: 3, RefillRate: 1, RefillInterval: time.Second})
	require.NoError(t, err)
	ctx := context.Background()

	for i := range 3 {
		res, err := b.Allow(ctx, "k")
		require.NoError(t, err)
		assert.True(t, res.Allowed())
		assert.Equal(t, 2-i, res.Remaining)
		assert.Equal(t, 3, res.Limit)
	}

	res, err := b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.False(t, res.Allowed())

	// The denied attempt was charged, so one interval only brings the bucket back to zero.
	clk.Advance(time.Second)
	res, err = b.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 0, res.Remaining)

	clk.Advance(10 * time.Second)
	res, err = b.Status(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Remaining, "refill is capped at capacity")

	other, err := b.Allow(ctx, "other")
	require.NoError(t, err)
	assert.Equal(t, 2, other.Remaining)
}

func TestBucket_AllowN(t *testing.T) {
	t.Parallel()

	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.PerSecond(5))
	require.NoError(t, err)
	ctx := context.Background()

	_, err = b.AllowN(ctx, "k", 0)
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidTokenCount)

	res, err := b.AllowN(ctx, "k", 5)
	require.NoError(t, err)
	assert.True(t, res.Allowed())
	assert.Zero(t, res.RetryAfter())

	res, err = b.AllowN(ctx, "k", 1)
	require.NoError(t, err)
	assert.False(t, res.Allowed())
	assert.Greater(t, res.RetryAfter(), time.Duration(0))
	assert.LessOrEqual(t, res.RetryAfter(), time.Second)

	require.NoError(t, b.Reset(ctx, "k"))
	res, err = b.Allow(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, 4, res.Remaining)
}

func TestBucket_CanceledContext(t *testing.T) {
	t.Parallel()

	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.PerSecond(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = b.Allow(ctx, "k")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBucket_Concurrent(t *testing.T) {
	t.Parallel()

	b, err := ratelimiter.NewBucket(ratelimiter.NewMemoryStore(), ratelimiter.Config{
		Capacity:       50,
		RefillRate:     1,
		RefillInterval: time.Hour,
	})
	require.NoError(t, err)

	var allowed atomic.Int64
	var wg sync.WaitGroup
	for range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := b.Allow(context.Background(), "shared")
			if err == nil && res.Allowed() {
				allowed.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(50), allowed.Load())
}

func TestMemoryStore_Cleanup(t *testing.T) {
	t.Parallel()

	clk := newClock()
	store := ratelimiter.NewMemoryStore(
		ratelimiter.WithMemoryStoreClock(clk.Now),
		ratelimiter.WithCleanupInterval(5*time.Millisecond),
		ratelimiter.WithStaleAfter(time.Minute),
	)
	b, err := ratelimiter.NewBucket(store, ratelimiter.PerSecond(1))
	require.NoError(t, err)

	_, err = b.Allow(context.Background(), "idle")
	require.NoError(t, err)
	assert.Equal(t, 1, store.Stats().ActiveBuckets)

	ctx, cancel := context.WithCancel(context.Background())
	g, gctx := errgroup.WithContext(ctx)
	g.Go(store.Run(gctx))

	require.Eventually(t, func() bool { return store.Stats().IsRunning }, time.Second, time.Millisecond)
	clk.Advance(2 * time.Minute)
	require.Eventually(t, func() bool { return store.Stats().ActiveBuckets == 0 }, time.Second, time.Millisecond)

	cancel()
	require.NoError(t, g.Wait())

	stats := store.Stats()
	assert.Equal(t, int64(1), stats.BucketsCreated)
	assert.Equal(t, int64(1), stats.BucketsRemoved)
	assert.False(t, stats.IsRunning)
}

func TestMemoryStore_StartStop(t *testing.T) {
	t.Parallel()

	t.Run("cleanup_disabled", func(t *testing.T) {
		t.Parallel()
		store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(0))
		assert.ErrorIs(t, store.Start(context.Background()), ratelimiter.ErrCleanupDisabled)
	})

	t.Run("stop_without_start", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, ratelimiter.NewMemoryStore().Stop(), ratelimiter.ErrNotStarted)
	})

	t.Run("double_start", func(t *testing.T) {
		t.Parallel()
		store := ratelimiter.NewMemoryStore(ratelimiter.WithCleanupInterval(time.Hour))
		errCh := make(chan error, 1)
		go func() { errCh <- store.Start(context.Background()) }()

		require.Eventually(t, func() bool { return store.Stats().IsRunning }, time.Second, time.Millisecond)
		assert.ErrorIs(t, store.Start(context.Background()), ratelimiter.ErrAlreadyStarted)

		require.NoError(t, store.Stop())
		assert.ErrorIs(t, <-errCh, context.Canceled)
	})
}
