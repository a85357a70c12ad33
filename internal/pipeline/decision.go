// Package pipeline is the "G" component of the enforcement data plane: the
// per-request orchestrator that runs the global blacklist, route lookup,
// and per-rule evaluator chain in the order spec.md §4.G fixes, and
// produces either an allow or a block decision.
package pipeline

import "accessguard/internal/rulestore"

// Reason identifies why a request was blocked, matching the string values
// spec.md §6 names exactly.
type Reason string

const (
	ReasonNone                    Reason = ""
	ReasonIPBlacklisted           Reason = "ip_blacklisted"
	ReasonIPNotWhitelisted        Reason = "ip_not_whitelisted"
	ReasonTimeRestricted          Reason = "time_restricted"
	ReasonRateLimitExceeded       Reason = "rate_limit_exceeded"
	ReasonConcurrentLimitExceeded Reason = "concurrent_limit_exceeded"
)

// Decision is the outcome of running the pipeline against one request.
type Decision struct {
	Allowed bool
	Reason  Reason

	// RuleID and RouteID are populated whenever a rule triggered the block,
	// so the caller can look up a CustomResponse. Zero when the block came
	// from the global blacklist (no rule involved) or when the request was
	// allowed.
	RuleID  uint
	RouteID uint

	// CustomResponse, if non-nil, overrides the default status/body mapping
	// for this block (spec.md §6).
	CustomResponse *rulestore.CustomResponse

	// release, if non-nil, must be called exactly once when the surrounding
	// framework has finished with the request — it returns any concurrent-
	// limit slot acquired during rule iteration (spec.md §4.G step 4 / §5's
	// scope-guard requirement). Allowed decisions may still carry a release
	// func even though the request itself is not blocked.
	release func()
}

// Release returns the concurrent-limit slot this decision may have
// acquired. Safe to call on every decision, including ones that never
// acquired anything.
func (d Decision) Release() {
	if d.release != nil {
		d.release()
	}
}

func allow(release func()) Decision {
	return Decision{Allowed: true, release: release}
}

func block(reason Reason, routeID, ruleID uint, custom *rulestore.CustomResponse, release func()) Decision {
	return Decision{Allowed: false, Reason: reason, RouteID: routeID, RuleID: ruleID, CustomResponse: custom, release: release}
}
