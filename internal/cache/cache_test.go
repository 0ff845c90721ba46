package cache

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func TestStore_GetSetRoundTrip(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	store.Set("page:https://example.com", "payload", time.Minute)

	got, ok := store.Get("page:https://example.com")
	require.True(t, ok)
	require.Equal(t, "payload", got)
}

func TestStore_ExpiredEntryIsAbsent(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	store.Set("k", 42, time.Minute)
	clock.Advance(time.Minute + time.Second)

	_, ok := store.Get("k")
	require.False(t, ok)
	require.Equal(t, 0, store.Len())
}

func TestStore_SweepRemovesExpired(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	store.Set("stale", 1, time.Second)
	store.Set("fresh", 2, time.Hour)
	clock.Advance(time.Minute)
	store.sweep()

	_, staleOK := store.Get("stale")
	fresh, freshOK := store.Get("fresh")
	require.False(t, staleOK)
	require.True(t, freshOK)
	require.Equal(t, 2, fresh)
}

func TestStore_ClearDropsEverything(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	store.Set("a", 1, time.Hour)
	store.Set("b", 2, time.Hour)
	store.Clear()

	require.Equal(t, 0, store.Len())
}

func TestStore_NonPositiveTTLStoresNothing(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	store.Set("k", 1, 0)

	_, ok := store.Get("k")
	require.False(t, ok)
}

func TestStore_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	clock := &fakeClock{now: time.Unix(1000, 0)}
	store := New(0, clock)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				store.Set("shared", n, time.Hour)
				store.Get("shared")
			}
		}(i)
	}
	wg.Wait()

	_, ok := store.Get("shared")
	require.True(t, ok)
}
