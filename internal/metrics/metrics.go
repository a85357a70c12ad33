// Package metrics holds process-wide in-memory counters for enforcement
// decisions. It is a minimal exposition surface — not a Prometheus
// registry — matching the teacher's own atomic-counter style, since
// request logging/analytics as a product is out of scope (spec.md §1).
package metrics

import (
	"sync"
	"sync/atomic"
)

// blockStats holds per-reason block counters and a total allow counter.
// Kept thread-safe for use from the pipeline's hot path and exposition
// from a diagnostics handler.
type blockStats struct {
	allowed  uint64
	mu       sync.Mutex
	byReason map[string]uint64
}

var bs blockStats

// IncAllow increments the total allow counter.
func IncAllow() {
	atomic.AddUint64(&bs.allowed, 1)
}

// IncBlock increments the drop counter for the given block reason.
func IncBlock(reason string) {
	if reason == "" {
		reason = "unknown"
	}
	bs.mu.Lock()
	if bs.byReason == nil {
		bs.byReason = make(map[string]uint64)
	}
	bs.byReason[reason]++
	bs.mu.Unlock()
}

// Snapshot returns a copy of the current counters: total allows, and
// blocks broken down by reason.
func Snapshot() (allowed uint64, byReason map[string]uint64) {
	allowed = atomic.LoadUint64(&bs.allowed)
	bs.mu.Lock()
	defer bs.mu.Unlock()
	byReason = make(map[string]uint64, len(bs.byReason))
	for k, v := range bs.byReason {
		byReason[k] = v
	}
	return allowed, byReason
}

// reset clears all counters. Used only by tests.
func reset() {
	atomic.StoreUint64(&bs.allowed, 0)
	bs.mu.Lock()
	bs.byReason = nil
	bs.mu.Unlock()
}
