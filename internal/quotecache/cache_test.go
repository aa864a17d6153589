package quotecache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aristath/holdings/internal/domain"
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

func newTestCache(ttl time.Duration) (*Cache, *fakeClock) {
	clock := &fakeClock{t: time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC)}
	return New(ttl, WithClock(clock.Now)), clock
}

func btc(price int64) domain.Quote {
	return domain.Quote{Class: domain.AssetClassCrypto, Symbol: "BTC", Price: decimal.NewFromInt(price), Name: "ビットコイン"}
}

func TestCache_GetSet(t *testing.T) {
	c, _ := newTestCache(time.Minute)

	_, ok := c.Get("crypto:BTC")
	assert.False(t, ok)

	c.Set("crypto:BTC", btc(10_000_000))
	q, ok := c.Get("crypto:BTC")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(10_000_000)))
}

func TestCache_ExpiredOnceStaysExpired(t *testing.T) {
	c, clock := newTestCache(300 * time.Second)
	c.Set("crypto:BTC", btc(1))

	clock.Advance(299 * time.Second)
	_, ok := c.Get("crypto:BTC")
	assert.True(t, ok, "entry must be live before the TTL elapses")

	clock.Advance(time.Second)
	_, ok = c.Get("crypto:BTC")
	assert.False(t, ok, "read at the expiry instant is a miss")
	assert.Equal(t, 0, c.Stats().Entries, "expired entry is evicted on read")

	// Winding the clock back must not resurrect the evicted value.
	clock.Advance(-time.Hour)
	_, ok = c.Get("crypto:BTC")
	assert.False(t, ok)
}

func TestCache_SetRefreshesExpiry(t *testing.T) {
	c, clock := newTestCache(10 * time.Second)
	c.Set("k", btc(1))
	clock.Advance(8 * time.Second)
	c.Set("k", btc(2))
	clock.Advance(8 * time.Second)

	q, ok := c.Get("k")
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.NewFromInt(2)))
}

func TestCache_DeleteAndClear(t *testing.T) {
	c, _ := newTestCache(time.Minute)
	c.Set("a", btc(1))
	c.Set("b", btc(2))
	assert.Equal(t, 2, c.Len())

	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
	_, ok = c.Get("b")
	assert.True(t, ok)

	c.Clear()
	assert.Equal(t, 0, c.Stats().Entries)
}

func TestCache_Sweep(t *testing.T) {
	c, clock := newTestCache(10 * time.Second)
	c.Set("old", btc(1))
	clock.Advance(5 * time.Second)
	c.Set("new", btc(2))
	clock.Advance(6 * time.Second)

	assert.Equal(t, 1, c.Sweep())
	_, ok := c.Get("new")
	assert.True(t, ok)

	job := NewSweepJob(c, zerolog.Nop())
	assert.NoError(t, job.Run())
	assert.Equal(t, "quote_cache_sweep", job.Name())
}

func TestCache_DefaultTTL(t *testing.T) {
	assert.Equal(t, DefaultTTL, New(0).TTL())
}

func TestCache_ConcurrentAccess(t *testing.T) {
	c := New(time.Minute)
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%5)
			for j := 0; j < 200; j++ {
				c.Set(key, btc(int64(j)))
				c.Get(key)
				if j%50 == 0 {
					c.Sweep()
				}
			}
		}(i)
	}
	wg.Wait()
	assert.LessOrEqual(t, c.Stats().Entries, 5)
}
