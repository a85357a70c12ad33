// Package concurrency implements the "E" component of the enforcement data
// plane: a per-(ip, ruleID) in-flight request counter with acquire/release
// semantics. Check-then-acquire is atomic per key, so a burst of concurrent
// requests can never all believe they fit under the cap.
package concurrency

import (
	"hash/fnv"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Result is the outcome of an acquire attempt.
type Result int

const (
	Allowed Result = iota
	Exceeded
)

func (r Result) String() string {
	if r == Allowed {
		return "allowed"
	}
	return "concurrent_limit_exceeded"
}

type record struct {
	tokens map[uuid.UUID]time.Time // issued-at, for the optional stale sweeper
}

type shard struct {
	mu      sync.Mutex
	records map[string]*record
}

const defaultShardCount = 64

// Tracker holds the active-connection maps. The zero value is not usable;
// construct with New.
type Tracker struct {
	shards []*shard
	now    func() time.Time
}

// Option configures a Tracker.
type Option func(*Tracker)

// WithClock overrides the time source, for deterministic tests and for the
// stale-record sweeper.
func WithClock(now func() time.Time) Option {
	return func(t *Tracker) { t.now = now }
}

// New returns an empty Tracker.
func New(opts ...Option) *Tracker {
	t := &Tracker{now: time.Now}
	t.shards = make([]*shard, defaultShardCount)
	for i := range t.shards {
		t.shards[i] = &shard{records: make(map[string]*record)}
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func key(ip string, ruleID uint) string {
	return ip + "|" + strconv.FormatUint(uint64(ruleID), 10)
}

func (t *Tracker) shardFor(k string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k))
	return t.shards[h.Sum32()%uint32(len(t.shards))]
}

// Check is a read-only peek: it returns Exceeded iff active(key) >= max. It
// does not reserve a slot; prefer Acquire for the admission path, since a
// separate Check followed by Acquire is not atomic.
func (t *Tracker) Check(ip string, ruleID uint, max int) Result {
	k := key(ip, ruleID)
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[k]; ok && len(r.tokens) >= max {
		return Exceeded
	}
	return Allowed
}

// Acquire atomically checks-and-increments: if active(key) is already at
// max, it returns Exceeded without reserving a slot. Otherwise it reserves
// a slot and returns Allowed plus an opaque token that must be passed to
// Release.
func (t *Tracker) Acquire(ip string, ruleID uint, max int) (Result, uuid.UUID) {
	k := key(ip, ruleID)
	s := t.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[k]
	if !ok {
		r = &record{tokens: make(map[uuid.UUID]time.Time)}
		s.records[k] = r
	}
	if len(r.tokens) >= max {
		return Exceeded, uuid.UUID{}
	}
	tok := uuid.New()
	r.tokens[tok] = t.now()
	return Allowed, tok
}

// Release decrements the active count for (ip, ruleID) by removing token.
// It is idempotent: releasing a token that is not present (already
// released, or never acquired) is a no-op.
func (t *Tracker) Release(ip string, ruleID uint, token uuid.UUID) {
	k := key(ip, ruleID)
	s := t.shardFor(k)

	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[k]
	if !ok {
		return
	}
	delete(r.tokens, token)
	if len(r.tokens) == 0 {
		delete(s.records, k)
	}
}

// Active reports the current in-flight count for (ip, ruleID), for tests
// and diagnostics.
func (t *Tracker) Active(ip string, ruleID uint) int {
	k := key(ip, ruleID)
	s := t.shardFor(k)
	s.mu.Lock()
	defer s.mu.Unlock()
	if r, ok := s.records[k]; ok {
		return len(r.tokens)
	}
	return 0
}

// Sweep releases any token older than maxAge across every key. This is the
// bounded-lifetime mechanism spec.md §9 asks for: a request that never
// completes (a dropped connection the surrounding framework failed to
// notify the core about) would otherwise hold its slot forever.
func (t *Tracker) Sweep(maxAge time.Duration) (released int) {
	now := t.now()
	for _, s := range t.shards {
		s.mu.Lock()
		for k, r := range s.records {
			for tok, issuedAt := range r.tokens {
				if now.Sub(issuedAt) > maxAge {
					delete(r.tokens, tok)
					released++
				}
			}
			if len(r.tokens) == 0 {
				delete(s.records, k)
			}
		}
		s.mu.Unlock()
	}
	return released
}

// RunCleanup starts a background goroutine that sweeps stale tokens every
// interval using maxAge, until the returned stop func is called.
func (t *Tracker) RunCleanup(interval, maxAge time.Duration) (stop func()) {
	done := make(chan struct{})
	ticker := time.NewTicker(interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				t.Sweep(maxAge)
			case <-done:
				return
			}
		}
	}()
	var once sync.Once
	return func() { once.Do(func() { close(done) }) }
}
