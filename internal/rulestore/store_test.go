package rulestore

import (
	"testing"
	"time"

	"accessguard/internal/ipfilter"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleSnapshot() RawSnapshot {
	return RawSnapshot{
		Rules: []RuleInput{
			{ID: 1, RouteID: 10, Enabled: true, Priority: 5},
			{ID: 2, RouteID: 10, Enabled: true, Priority: 10},
			{ID: 3, RouteID: 10, Enabled: false, Priority: 20},
		},
		IPFilters: []IPFilterInput{
			{ID: 1, RuleID: 1, IPSpec: "10.0.0.0/8", Kind: "blacklist", Enabled: true},
			{ID: 2, RuleID: 3, IPSpec: "0.0.0.0/0", Kind: "blacklist", Enabled: true}, // owning rule disabled
		},
		RateLimits: []RateLimitInput{
			{ID: 1, RuleID: 2, RequestsPerWindow: 10, WindowSeconds: 60, Enabled: true},
		},
	}
}

func TestRefreshAll_PublishesAndIsReadable(t *testing.T) {
	s := New()
	require.NoError(t, s.RefreshAll(sampleSnapshot()))

	rules := s.RulesForRoute(10)
	require.Len(t, rules, 2)
	assert.Equal(t, uint(2), rules[0].ID) // priority 10 first
	assert.Equal(t, uint(1), rules[1].ID)

	filters := s.IPFiltersForRule(1)
	require.Len(t, filters, 1)
	assert.Equal(t, ipfilter.Blacklist, filters[0].Kind)

	// rule 3 is disabled: its filter must not be published under any rule.
	assert.Empty(t, s.IPFiltersForRule(3))

	cfg, ok := s.RateLimitForRule(2)
	require.True(t, ok)
	assert.Equal(t, 10, cfg.RequestsPerWindow)
}

func TestRefreshAll_RejectsDuplicateRateLimit(t *testing.T) {
	s := New()
	raw := RawSnapshot{
		Rules: []RuleInput{{ID: 1, RouteID: 10, Enabled: true}},
		RateLimits: []RateLimitInput{
			{ID: 1, RuleID: 1, RequestsPerWindow: 5, WindowSeconds: 60, Enabled: true},
			{ID: 2, RuleID: 1, RequestsPerWindow: 50, WindowSeconds: 60, Enabled: true},
		},
	}
	err := s.RefreshAll(raw)
	require.ErrorIs(t, err, ErrMultipleRateLimits)

	// the store must still be serving the prior (empty) snapshot, not a
	// half-applied one.
	assert.Empty(t, s.RulesForRoute(10))
}

func TestRefreshAll_GlobalBlacklistSkipsExpired(t *testing.T) {
	now := time.Date(2026, 7, 30, 12, 0, 0, 0, time.UTC)
	s := New(WithClock(func() time.Time { return now }))

	past := now.Add(-time.Hour)
	future := now.Add(time.Hour)
	raw := RawSnapshot{
		GlobalBlacklist: []GlobalBlacklistInput{
			{ID: 1, IPSpec: "1.2.3.4", Enabled: true, ExpiresAt: &past},
			{ID: 2, IPSpec: "5.6.7.8", Enabled: true, ExpiresAt: &future},
			{ID: 3, IPSpec: "9.9.9.9", Enabled: true},
		},
	}
	require.NoError(t, s.RefreshAll(raw))
	bl := s.GlobalBlacklist()
	require.Len(t, bl, 2)
	assert.Equal(t, "5.6.7.8", bl[0].Spec)
	assert.Equal(t, "9.9.9.9", bl[1].Spec)
}

func TestRefreshRule_ReplacesOnlyThatRule(t *testing.T) {
	s := New()
	require.NoError(t, s.RefreshAll(sampleSnapshot()))

	err := s.RefreshRule(1, RuleSubgraph{
		Rule: RuleInput{ID: 1, RouteID: 10, Enabled: true, Priority: 100},
		IPFilters: []IPFilterInput{
			{ID: 9, RuleID: 1, IPSpec: "192.168.0.0/16", Kind: "whitelist", Enabled: true},
		},
	})
	require.NoError(t, err)

	rules := s.RulesForRoute(10)
	require.Len(t, rules, 2)
	assert.Equal(t, uint(1), rules[0].ID) // now priority 100, sorts first
	assert.Equal(t, uint(2), rules[1].ID)

	filters := s.IPFiltersForRule(1)
	require.Len(t, filters, 1)
	assert.Equal(t, ipfilter.Whitelist, filters[0].Kind)

	// rule 2's rate limit must be untouched.
	_, ok := s.RateLimitForRule(2)
	assert.True(t, ok)
}

func TestRefreshRule_DisablingRemovesIt(t *testing.T) {
	s := New()
	require.NoError(t, s.RefreshAll(sampleSnapshot()))

	require.NoError(t, s.RefreshRule(2, RuleSubgraph{
		Rule: RuleInput{ID: 2, RouteID: 10, Enabled: false},
	}))

	rules := s.RulesForRoute(10)
	require.Len(t, rules, 1)
	assert.Equal(t, uint(1), rules[0].ID)
	_, ok := s.RateLimitForRule(2)
	assert.False(t, ok)
}

func TestRefreshRule_MovingRuleToNewRoute(t *testing.T) {
	s := New()
	require.NoError(t, s.RefreshAll(sampleSnapshot()))

	require.NoError(t, s.RefreshRule(1, RuleSubgraph{
		Rule: RuleInput{ID: 1, RouteID: 99, Enabled: true, Priority: 1},
	}))

	assert.Len(t, s.RulesForRoute(10), 1) // only rule 2 left on route 10
	require.Len(t, s.RulesForRoute(99), 1)
	assert.Equal(t, uint(1), s.RulesForRoute(99)[0].ID)
}
