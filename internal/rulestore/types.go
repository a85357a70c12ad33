// Package rulestore holds the "B" component of the enforcement data plane:
// the current rule graph per route — rules, their IP filters, rate-limit
// and concurrent-limit configs, time restrictions, custom responses, and
// the global IP blacklist — refreshable atomically from an external
// loader.
//
// The published snapshot is immutable; readers take a single atomic
// pointer load per request and never block a concurrent refresh, and a
// refresh never blocks a concurrent reader (spec.md §4.B, §5).
package rulestore

import (
	"time"

	"accessguard/internal/ipfilter"
	"accessguard/internal/ratelimit"
	"accessguard/internal/timewindow"
)

// Rule is the runtime view of one Rule row, stripped of anything the
// enforcement path doesn't need.
type Rule struct {
	ID          uint
	RouteID     uint
	Priority    int
	Description string
}

// CustomResponse is the runtime view of one CustomResponse row.
type CustomResponse struct {
	StatusCode  int
	Message     string
	ContentType string
}

// RouteInput is one row of the routes the loader returns, handed to the
// route index (component A) by the caller — rulestore itself does not
// store routes, since route matching is a distinct concern (spec.md §4.A).
type RouteInput struct {
	ID         uint
	Method     string
	Pattern    string
	Controller string
	Action     string
	Helper     string
}

// RuleInput is one raw Rule row as the loader returns it.
type RuleInput struct {
	ID          uint
	RouteID     uint
	Enabled     bool
	Priority    int
	Description string
}

// IPFilterInput is one raw IPFilter row.
type IPFilterInput struct {
	ID      uint
	RuleID  uint
	IPSpec  string
	Kind    string // "whitelist" or "blacklist"
	Enabled bool
}

// RateLimitInput is one raw RateLimitConfig row.
type RateLimitInput struct {
	ID                uint
	RuleID            uint
	RequestsPerWindow int
	WindowSeconds     int
	Enabled           bool
}

// ConcurrentLimitInput is one raw ConcurrentLimitConfig row.
type ConcurrentLimitInput struct {
	ID            uint
	RuleID        uint
	MaxConcurrent int
	Enabled       bool
}

// TimeRestrictionInput is one raw TimeRestriction row.
type TimeRestrictionInput struct {
	ID         uint
	RuleID     uint
	StartTime  *int
	EndTime    *int
	DaysOfWeek []int
	Timezone   string
	Enabled    bool
}

// CustomResponseInput is one raw CustomResponse row.
type CustomResponseInput struct {
	ID          uint
	RuleID      uint
	StatusCode  int
	Message     string
	ContentType string
	Enabled     bool
}

// GlobalBlacklistInput is one raw GlobalBlacklistEntry row.
type GlobalBlacklistInput struct {
	ID        uint
	IPSpec    string
	ExpiresAt *time.Time
	Enabled   bool
}

// RawSnapshot is the full control-plane snapshot a Loader produces.
type RawSnapshot struct {
	Routes           []RouteInput
	Rules            []RuleInput
	IPFilters        []IPFilterInput
	RateLimits       []RateLimitInput
	ConcurrentLimits []ConcurrentLimitInput
	TimeRestrictions []TimeRestrictionInput
	CustomResponses  []CustomResponseInput
	GlobalBlacklist  []GlobalBlacklistInput
}

// RuleSubgraph is the selective snapshot for a single rule, used by
// RefreshRule.
type RuleSubgraph struct {
	Rule             RuleInput
	IPFilters        []IPFilterInput
	RateLimit        *RateLimitInput
	ConcurrentLimit  *ConcurrentLimitInput
	TimeRestrictions []TimeRestrictionInput
	CustomResponse   *CustomResponseInput
}

// snapshot is the immutable, internally consistent published view. Every
// slice/map here is built fresh by a refresh and never mutated afterwards;
// once published, readers only ever see a complete snapshot, never a
// partial mixture (spec.md §5's atomicity guarantee).
type snapshot struct {
	rulesByRoute           map[uint][]Rule
	ipFiltersByRule        map[uint][]ipfilter.Filter
	rateLimitByRule        map[uint]ratelimit.Config
	concurrentLimitByRule  map[uint]int
	timeRestrictionsByRule map[uint][]timewindow.Restriction
	customResponseByRule   map[uint]CustomResponse
	globalBlacklist        []ipfilter.Filter
}

func emptySnapshot() *snapshot {
	return &snapshot{
		rulesByRoute:           make(map[uint][]Rule),
		ipFiltersByRule:        make(map[uint][]ipfilter.Filter),
		rateLimitByRule:        make(map[uint]ratelimit.Config),
		concurrentLimitByRule:  make(map[uint]int),
		timeRestrictionsByRule: make(map[uint][]timewindow.Restriction),
		customResponseByRule:   make(map[uint]CustomResponse),
	}
}
