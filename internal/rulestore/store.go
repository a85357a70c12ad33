package rulestore

import (
	"sync"
	"sync/atomic"
	"time"

	"accessguard/internal/ipfilter"
	"accessguard/internal/ratelimit"
	"accessguard/internal/timewindow"
)

// Store is the concurrency-safe holder of the published rule-graph
// snapshot. The zero value is not usable; construct with New.
//
// Reads (RulesForRoute, IPFiltersForRule, ...) take one atomic pointer load
// and are otherwise lock-free. Writes (RefreshAll, RefreshRule) build an
// entirely new snapshot and swap the pointer under a short-lived mutex —
// the mutex only serialises concurrent writers against each other, never
// against readers.
type Store struct {
	ptr atomic.Pointer[snapshot]
	mu  sync.Mutex
	now func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the time source used to evaluate global-blacklist
// expiry, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// New returns a Store with an empty snapshot published.
func New(opts ...Option) *Store {
	s := &Store{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.ptr.Store(emptySnapshot())
	return s
}

// RefreshAll atomically replaces the entire rule graph. On error (e.g. a
// snapshot that would publish two enabled rate-limit configs for one rule)
// the prior snapshot remains in force and is returned unchanged —
// spec.md §7's "loader/storage errors never block a request" guarantee.
func (s *Store) RefreshAll(raw RawSnapshot) error {
	next, err := buildSnapshot(raw, s.now())
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ptr.Store(next)
	return nil
}

// RefreshRule atomically replaces the sub-graph for a single rule, copying
// every other rule's data by reference from the prior snapshot (spec.md
// §9's option (a)).
func (s *Store) RefreshRule(ruleID uint, sub RuleSubgraph) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.ptr.Load()
	next := &snapshot{
		rulesByRoute:           copyRulesByRoute(prev.rulesByRoute),
		ipFiltersByRule:        copyFilterMap(prev.ipFiltersByRule),
		rateLimitByRule:        copyRateLimitMap(prev.rateLimitByRule),
		concurrentLimitByRule:  copyIntMap(prev.concurrentLimitByRule),
		timeRestrictionsByRule: copyRestrictionMap(prev.timeRestrictionsByRule),
		customResponseByRule:   copyResponseMap(prev.customResponseByRule),
		globalBlacklist:        prev.globalBlacklist,
	}

	removeRuleEverywhere(next, ruleID)

	if sub.Rule.Enabled {
		// Copy before appending: the slice may still be shared with the
		// published snapshot.
		routeRules := append([]Rule(nil), next.rulesByRoute[sub.Rule.RouteID]...)
		routeRules = append(routeRules, Rule{
			ID:          sub.Rule.ID,
			RouteID:     sub.Rule.RouteID,
			Priority:    sub.Rule.Priority,
			Description: sub.Rule.Description,
		})
		sortRules(routeRules)
		next.rulesByRoute[sub.Rule.RouteID] = routeRules

		for _, f := range sub.IPFilters {
			if f.Enabled {
				next.ipFiltersByRule[ruleID] = append(next.ipFiltersByRule[ruleID], toFilter(f.IPSpec, f.Kind))
			}
		}
		if sub.RateLimit != nil && sub.RateLimit.Enabled {
			next.rateLimitByRule[ruleID] = toRateLimitConfig(*sub.RateLimit)
		}
		if sub.ConcurrentLimit != nil && sub.ConcurrentLimit.Enabled {
			next.concurrentLimitByRule[ruleID] = sub.ConcurrentLimit.MaxConcurrent
		}
		for _, tr := range sub.TimeRestrictions {
			if tr.Enabled {
				next.timeRestrictionsByRule[ruleID] = append(next.timeRestrictionsByRule[ruleID], toRestriction(tr))
			}
		}
		if sub.CustomResponse != nil && sub.CustomResponse.Enabled {
			next.customResponseByRule[ruleID] = CustomResponse{
				StatusCode:  sub.CustomResponse.StatusCode,
				Message:     sub.CustomResponse.Message,
				ContentType: sub.CustomResponse.ContentType,
			}
		}
	}

	s.ptr.Store(next)
	return nil
}

func removeRuleEverywhere(s *snapshot, ruleID uint) {
	for routeID, rules := range s.rulesByRoute {
		filtered := rules[:0:0]
		for _, r := range rules {
			if r.ID != ruleID {
				filtered = append(filtered, r)
			}
		}
		if len(filtered) == 0 {
			delete(s.rulesByRoute, routeID)
		} else {
			s.rulesByRoute[routeID] = filtered
		}
	}
	delete(s.ipFiltersByRule, ruleID)
	delete(s.rateLimitByRule, ruleID)
	delete(s.concurrentLimitByRule, ruleID)
	delete(s.timeRestrictionsByRule, ruleID)
	delete(s.customResponseByRule, ruleID)
}

func copyRulesByRoute(m map[uint][]Rule) map[uint][]Rule {
	out := make(map[uint][]Rule, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyFilterMap(m map[uint][]ipfilter.Filter) map[uint][]ipfilter.Filter {
	out := make(map[uint][]ipfilter.Filter, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRateLimitMap(m map[uint]ratelimit.Config) map[uint]ratelimit.Config {
	out := make(map[uint]ratelimit.Config, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyIntMap(m map[uint]int) map[uint]int {
	out := make(map[uint]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyRestrictionMap(m map[uint][]timewindow.Restriction) map[uint][]timewindow.Restriction {
	out := make(map[uint][]timewindow.Restriction, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func copyResponseMap(m map[uint]CustomResponse) map[uint]CustomResponse {
	out := make(map[uint]CustomResponse, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// RulesForRoute returns the enabled rules for routeID, priority descending,
// ties broken by ascending id. Returns nil if the route has no rules.
func (s *Store) RulesForRoute(routeID uint) []Rule {
	return s.ptr.Load().rulesByRoute[routeID]
}

// IPFiltersForRule returns the enabled IP filters for ruleID.
func (s *Store) IPFiltersForRule(ruleID uint) []ipfilter.Filter {
	return s.ptr.Load().ipFiltersByRule[ruleID]
}

// RateLimitForRule returns the enabled rate-limit config for ruleID, if any.
func (s *Store) RateLimitForRule(ruleID uint) (ratelimit.Config, bool) {
	cfg, ok := s.ptr.Load().rateLimitByRule[ruleID]
	return cfg, ok
}

// ConcurrentLimitForRule returns the enabled concurrent-limit max for
// ruleID, if any.
func (s *Store) ConcurrentLimitForRule(ruleID uint) (int, bool) {
	max, ok := s.ptr.Load().concurrentLimitByRule[ruleID]
	return max, ok
}

// TimeRestrictionsForRule returns the enabled time restrictions for ruleID.
func (s *Store) TimeRestrictionsForRule(ruleID uint) []timewindow.Restriction {
	return s.ptr.Load().timeRestrictionsByRule[ruleID]
}

// CustomResponseForRule returns the custom response for ruleID, if any.
func (s *Store) CustomResponseForRule(ruleID uint) (CustomResponse, bool) {
	cr, ok := s.ptr.Load().customResponseByRule[ruleID]
	return cr, ok
}

// GlobalBlacklist returns the active (enabled, unexpired, as of the last
// refresh) global blacklist entries.
func (s *Store) GlobalBlacklist() []ipfilter.Filter {
	return s.ptr.Load().globalBlacklist
}
