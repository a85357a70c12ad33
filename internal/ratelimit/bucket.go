package ratelimit

import (
	"math"
	"time"
)

// Config is a rule's rate-limit policy: admit at most RequestsPerWindow
// requests per WindowSeconds, refilled gradually rather than in a fixed
// window.
type Config struct {
	RequestsPerWindow int
	WindowSeconds     int
}

// bucketState is the mutable state of one (ip, ruleID) token bucket. All
// access happens under the owning shard's lock (see limiter.go); this type
// has no internal locking of its own.
type bucketState struct {
	tokens        float64
	lastRefill    time.Time
	windowSeconds int
}

// Result is the outcome of a single rate-limit check.
type Result int

const (
	Allowed Result = iota
	Exceeded
)

func (r Result) String() string {
	if r == Allowed {
		return "allowed"
	}
	return "rate_limit_exceeded"
}

// check runs spec.md §4.D's five-step gradual-refill algorithm against an
// existing or freshly-created bucket, mutating it in place.
func check(b *bucketState, cfg Config, now time.Time) Result {
	if b.lastRefill.IsZero() {
		b.tokens = float64(cfg.RequestsPerWindow - 1)
		b.lastRefill = now
		b.windowSeconds = cfg.WindowSeconds
		return Allowed
	}

	elapsed := now.Sub(b.lastRefill).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	window := float64(cfg.WindowSeconds)
	if elapsed >= window {
		b.tokens = float64(cfg.RequestsPerWindow)
	} else {
		refill := math.Floor(elapsed * float64(cfg.RequestsPerWindow) / window)
		b.tokens += refill
		if b.tokens > float64(cfg.RequestsPerWindow) {
			b.tokens = float64(cfg.RequestsPerWindow)
		}
	}

	if b.tokens >= 1 {
		b.tokens--
		b.lastRefill = now
		b.windowSeconds = cfg.WindowSeconds
		return Allowed
	}
	// Exceeded: last_refill is deliberately left untouched, per spec.md §4.D
	// step 6, so the next check's elapsed time is measured from the last
	// successful refill, not from this rejected attempt.
	return Exceeded
}
