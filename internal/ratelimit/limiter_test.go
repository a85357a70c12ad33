package ratelimit

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a mutable time source used to drive deterministic refill
// tests without sleeping in real time.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock(start time.Time) *fakeClock {
	return &fakeClock{t: start}
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

func TestCheck_GradualRefillScenario(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := New(WithClock(clock.now))
	cfg := Config{RequestsPerWindow: 2, WindowSeconds: 1}

	assert.Equal(t, Allowed, l.Check("1.2.3.4", 1, cfg))
	assert.Equal(t, Allowed, l.Check("1.2.3.4", 1, cfg))
	clock.advance(time.Millisecond)
	assert.Equal(t, Exceeded, l.Check("1.2.3.4", 1, cfg))

	clock.advance(1100 * time.Millisecond) // total 1.101s since last success
	assert.Equal(t, Allowed, l.Check("1.2.3.4", 1, cfg))
}

func TestCheck_FullWindowGrantsFullBucket(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := New(WithClock(clock.now))
	cfg := Config{RequestsPerWindow: 3, WindowSeconds: 2}

	for i := 0; i < 3; i++ {
		require.Equal(t, Allowed, l.Check("5.5.5.5", 9, cfg))
	}
	assert.Equal(t, Exceeded, l.Check("5.5.5.5", 9, cfg))

	clock.advance(2 * time.Second)
	for i := 0; i < 3; i++ {
		require.Equal(t, Allowed, l.Check("5.5.5.5", 9, cfg))
	}
	assert.Equal(t, Exceeded, l.Check("5.5.5.5", 9, cfg))
}

func TestCheck_DistinctKeysDoNotInteract(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := New(WithClock(clock.now))
	cfg := Config{RequestsPerWindow: 1, WindowSeconds: 1}

	assert.Equal(t, Allowed, l.Check("1.1.1.1", 1, cfg))
	assert.Equal(t, Exceeded, l.Check("1.1.1.1", 1, cfg))
	// Same IP, different rule: independent bucket.
	assert.Equal(t, Allowed, l.Check("1.1.1.1", 2, cfg))
	// Different IP, same rule: independent bucket.
	assert.Equal(t, Allowed, l.Check("2.2.2.2", 1, cfg))
}

func TestSweep_RemovesStaleBuckets(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	l := New(WithClock(clock.now))
	cfg := Config{RequestsPerWindow: 1, WindowSeconds: 1}

	l.Check("1.1.1.1", 1, cfg)
	require.Equal(t, 1, l.Len())

	clock.advance(5 * time.Second)
	removed := l.Sweep(2 * time.Second)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, l.Len())
}

func TestCheck_ConcurrentDistinctKeysDoNotRace(t *testing.T) {
	l := New()
	cfg := Config{RequestsPerWindow: 1000000, WindowSeconds: 60}

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				l.Check("10.0.0.1", uint(n), cfg)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, 100, l.Len())
}
