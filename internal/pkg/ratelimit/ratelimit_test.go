package ratelimit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestStore(maxKeys int) (*MemoryStore, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	s := NewMemoryStore(maxKeys)
	s.now = clock.Now
	return s, clock
}

func TestLimiterAllow(t *testing.T) {
	store, clock := newTestStore(0)
	limiter := NewLimiter(store)
	rule := Rule{Name: "pdf", Limit: 3, Window: 15 * time.Minute}
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		res, err := limiter.Allow(ctx, rule, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
		assert.Equal(t, 3-i, res.Remaining)
	}

	clock.Advance(5 * time.Minute)
	res, err := limiter.Allow(ctx, rule, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Equal(t, 0, res.Remaining)
	assert.Equal(t, 10*time.Minute, res.RetryAfter)

	res, err = limiter.Allow(ctx, rule, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "other clients keep their own window")

	clock.Advance(10 * time.Minute)
	res, err = limiter.Allow(ctx, rule, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, res.Allowed, "a new window starts after expiry")
	assert.Equal(t, 2, res.Remaining)
}

func TestRulesAreIndependent(t *testing.T) {
	store, _ := newTestStore(0)
	limiter := NewLimiter(store)
	ctx := context.Background()
	auth := Rule{Name: "auth", Limit: 1, Window: time.Hour}
	api := Rule{Name: "api", Limit: 1, Window: time.Minute}

	res, _ := limiter.Allow(ctx, auth, "ip")
	assert.True(t, res.Allowed)
	res, _ = limiter.Allow(ctx, api, "ip")
	assert.True(t, res.Allowed)
	res, _ = limiter.Allow(ctx, auth, "ip")
	assert.False(t, res.Allowed)
}

func TestMemoryStoreIsBounded(t *testing.T) {
	store, clock := newTestStore(2)
	ctx := context.Background()

	_, _, _ = store.Incr(ctx, "a", time.Minute)
	clock.Advance(time.Second)
	_, _, _ = store.Incr(ctx, "b", time.Minute)
	_, _, _ = store.Incr(ctx, "c", time.Minute)
	assert.Equal(t, 2, store.Len())

	count, _, _ := store.Incr(ctx, "a", time.Minute)
	assert.Equal(t, int64(1), count, "the entry closest to expiry was evicted")

	clock.Advance(2 * time.Minute)
	_, _, _ = store.Incr(ctx, "d", time.Minute)
	assert.Equal(t, 1, store.Len(), "expired windows are swept first")
}

func TestMemoryStoreConcurrentIncr(t *testing.T) {
	store := NewMemoryStore(0)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, _ = store.Incr(context.Background(), "k", time.Minute)
		}()
	}
	wg.Wait()

	count, _, err := store.Incr(context.Background(), "k", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(51), count)
}

type failingStore struct{}

func (failingStore) Incr(context.Context, string, time.Duration) (int64, time.Duration, error) {
	return 0, 0, errors.New("connection refused")
}

func TestLimiterFailsOpen(t *testing.T) {
	res, err := NewLimiter(failingStore{}).Allow(context.Background(), Rule{Name: "x", Limit: 1, Window: time.Minute}, "ip")
	assert.Error(t, err)
	assert.True(t, res.Allowed)
}
