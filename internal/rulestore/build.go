package rulestore

import (
	"fmt"
	"sort"
	"time"

	"accessguard/internal/ipfilter"
	"accessguard/internal/ratelimit"
	"accessguard/internal/timewindow"
)

// ErrMultipleRateLimits is returned when a snapshot would publish more than
// one enabled RateLimitConfig for the same rule. spec.md §9 treats the
// storage schema as permitting this but pins the enforcement policy to "at
// most one active" — so the core refuses to publish such a snapshot rather
// than silently pick one, leaving the prior (valid) snapshot in force.
var ErrMultipleRateLimits = fmt.Errorf("rulestore: more than one enabled rate limit config for a rule")

func buildSnapshot(raw RawSnapshot, now time.Time) (*snapshot, error) {
	s := emptySnapshot()

	rulesByRoute := make(map[uint][]Rule)
	for _, r := range raw.Rules {
		if !r.Enabled {
			continue
		}
		rulesByRoute[r.RouteID] = append(rulesByRoute[r.RouteID], Rule{
			ID:          r.ID,
			RouteID:     r.RouteID,
			Priority:    r.Priority,
			Description: r.Description,
		})
	}
	for routeID := range rulesByRoute {
		sortRules(rulesByRoute[routeID])
	}
	s.rulesByRoute = rulesByRoute

	enabledRules := make(map[uint]bool, len(raw.Rules))
	for _, r := range raw.Rules {
		enabledRules[r.ID] = r.Enabled
	}

	for _, f := range raw.IPFilters {
		if !f.Enabled || !enabledRules[f.RuleID] {
			continue
		}
		s.ipFiltersByRule[f.RuleID] = append(s.ipFiltersByRule[f.RuleID], toFilter(f.IPSpec, f.Kind))
	}

	for _, rl := range raw.RateLimits {
		if !rl.Enabled || !enabledRules[rl.RuleID] {
			continue
		}
		if _, exists := s.rateLimitByRule[rl.RuleID]; exists {
			return nil, fmt.Errorf("%w: rule %d", ErrMultipleRateLimits, rl.RuleID)
		}
		s.rateLimitByRule[rl.RuleID] = toRateLimitConfig(rl)
	}

	for _, cl := range raw.ConcurrentLimits {
		if !cl.Enabled || !enabledRules[cl.RuleID] {
			continue
		}
		s.concurrentLimitByRule[cl.RuleID] = cl.MaxConcurrent
	}

	for _, tr := range raw.TimeRestrictions {
		if !tr.Enabled || !enabledRules[tr.RuleID] {
			continue
		}
		s.timeRestrictionsByRule[tr.RuleID] = append(s.timeRestrictionsByRule[tr.RuleID], toRestriction(tr))
	}

	for _, cr := range raw.CustomResponses {
		if !cr.Enabled || !enabledRules[cr.RuleID] {
			continue
		}
		s.customResponseByRule[cr.RuleID] = CustomResponse{
			StatusCode:  cr.StatusCode,
			Message:     cr.Message,
			ContentType: cr.ContentType,
		}
	}

	for _, g := range raw.GlobalBlacklist {
		if !g.Enabled || isExpired(g.ExpiresAt, now) {
			continue
		}
		s.globalBlacklist = append(s.globalBlacklist, ipfilter.Filter{
			Spec:    g.IPSpec,
			Kind:    ipfilter.Blacklist,
			Enabled: true,
		})
	}

	return s, nil
}

func sortRules(rules []Rule) {
	sort.Slice(rules, func(i, j int) bool {
		if rules[i].Priority != rules[j].Priority {
			return rules[i].Priority > rules[j].Priority
		}
		return rules[i].ID < rules[j].ID
	})
}

func toFilter(spec, kind string) ipfilter.Filter {
	k := ipfilter.Whitelist
	if kind == "blacklist" {
		k = ipfilter.Blacklist
	}
	return ipfilter.Filter{Spec: spec, Kind: k, Enabled: true}
}

func toRateLimitConfig(rl RateLimitInput) ratelimit.Config {
	return ratelimit.Config{RequestsPerWindow: rl.RequestsPerWindow, WindowSeconds: rl.WindowSeconds}
}

func toRestriction(tr TimeRestrictionInput) timewindow.Restriction {
	return timewindow.Restriction{
		StartTime:  tr.StartTime,
		EndTime:    tr.EndTime,
		DaysOfWeek: tr.DaysOfWeek,
		Timezone:   tr.Timezone,
		Enabled:    true,
	}
}

func isExpired(expiresAt *time.Time, now time.Time) bool {
	return expiresAt != nil && !expiresAt.After(now)
}
