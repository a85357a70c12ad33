package concurrency

import (
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquire_ThreeSimultaneousAgainstCapTwo(t *testing.T) {
	tr := New()

	var mu sync.Mutex
	var allowed, exceeded int
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, _ := tr.Acquire("1.2.3.4", 1, 2)
			mu.Lock()
			defer mu.Unlock()
			if res == Allowed {
				allowed++
			} else {
				exceeded++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, allowed)
	assert.Equal(t, 1, exceeded)
	assert.Equal(t, 2, tr.Active("1.2.3.4", 1))
}

func TestRelease_ThenAcquireSucceeds(t *testing.T) {
	tr := New()
	res1, tok1 := tr.Acquire("1.2.3.4", 1, 1)
	require.Equal(t, Allowed, res1)

	res2, _ := tr.Acquire("1.2.3.4", 1, 1)
	require.Equal(t, Exceeded, res2)

	tr.Release("1.2.3.4", 1, tok1)
	res3, _ := tr.Acquire("1.2.3.4", 1, 1)
	assert.Equal(t, Allowed, res3)
}

func TestRelease_IdempotentOnDuplicateRelease(t *testing.T) {
	tr := New()
	_, tok := tr.Acquire("1.2.3.4", 1, 1)
	tr.Release("1.2.3.4", 1, tok)
	tr.Release("1.2.3.4", 1, tok) // no double-decrement / panic
	assert.Equal(t, 0, tr.Active("1.2.3.4", 1))
}

func TestRelease_UnknownTokenIsNoop(t *testing.T) {
	tr := New()
	tr.Acquire("1.2.3.4", 1, 2)
	tr.Release("1.2.3.4", 1, uuid.New())
	assert.Equal(t, 1, tr.Active("1.2.3.4", 1))
}

func TestCheck_ReadOnlyDoesNotReserve(t *testing.T) {
	tr := New()
	tr.Acquire("1.2.3.4", 1, 1)
	assert.Equal(t, Exceeded, tr.Check("1.2.3.4", 1, 1))
	assert.Equal(t, 1, tr.Active("1.2.3.4", 1))
}

func TestSweep_ReleasesStaleTokens(t *testing.T) {
	start := time.Unix(0, 0)
	cur := start
	tr := New(WithClock(func() time.Time { return cur }))

	tr.Acquire("1.2.3.4", 1, 5)
	cur = start.Add(time.Hour)

	released := tr.Sweep(time.Minute)
	assert.Equal(t, 1, released)
	assert.Equal(t, 0, tr.Active("1.2.3.4", 1))
}

func TestDistinctKeysIndependent(t *testing.T) {
	tr := New()
	tr.Acquire("1.1.1.1", 1, 1)
	res, _ := tr.Acquire("2.2.2.2", 1, 1)
	assert.Equal(t, Allowed, res)
	res2, _ := tr.Acquire("1.1.1.1", 2, 1)
	assert.Equal(t, Allowed, res2)
}
