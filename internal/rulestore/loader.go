package rulestore

import (
	"context"
	"fmt"

	"accessguard/internal/models"

	"gorm.io/gorm"
)

// Loader is the control-plane's read side: whatever can produce a full
// snapshot or a single rule's subgraph, for the Store to publish. The
// enforcement path never talks to a Loader directly — only internal/server's
// periodic reload loop and its /admin/reload endpoints (which the reload
// CLI calls) do.
type Loader interface {
	LoadSnapshot(ctx context.Context) (RawSnapshot, error)
	LoadRule(ctx context.Context, ruleID uint) (RuleSubgraph, error)
}

// GORMLoader implements Loader against the models tables via GORM.
type GORMLoader struct {
	db *gorm.DB
}

// NewGORMLoader wraps an already-connected *gorm.DB.
func NewGORMLoader(db *gorm.DB) *GORMLoader {
	return &GORMLoader{db: db}
}

// LoadSnapshot reads every table in full. Called on startup and on a
// periodic refresh interval (spec.md §6's "reload interval or event").
func (l *GORMLoader) LoadSnapshot(ctx context.Context) (RawSnapshot, error) {
	db := l.db.WithContext(ctx)

	var routes []models.Route
	if err := db.Find(&routes).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load routes: %w", err)
	}
	var rules []models.Rule
	if err := db.Find(&rules).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load rules: %w", err)
	}
	var ipFilters []models.IPFilter
	if err := db.Find(&ipFilters).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load ip filters: %w", err)
	}
	var rateLimits []models.RateLimitConfig
	if err := db.Find(&rateLimits).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load rate limits: %w", err)
	}
	var concurrentLimits []models.ConcurrentLimitConfig
	if err := db.Find(&concurrentLimits).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load concurrent limits: %w", err)
	}
	var timeRestrictions []models.TimeRestriction
	if err := db.Find(&timeRestrictions).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load time restrictions: %w", err)
	}
	var customResponses []models.CustomResponse
	if err := db.Find(&customResponses).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load custom responses: %w", err)
	}
	var blacklist []models.GlobalBlacklistEntry
	if err := db.Find(&blacklist).Error; err != nil {
		return RawSnapshot{}, fmt.Errorf("rulestore: load global blacklist: %w", err)
	}

	raw := RawSnapshot{
		Routes:           make([]RouteInput, len(routes)),
		Rules:            make([]RuleInput, len(rules)),
		IPFilters:        make([]IPFilterInput, len(ipFilters)),
		RateLimits:       make([]RateLimitInput, len(rateLimits)),
		ConcurrentLimits: make([]ConcurrentLimitInput, len(concurrentLimits)),
		TimeRestrictions: make([]TimeRestrictionInput, len(timeRestrictions)),
		CustomResponses:  make([]CustomResponseInput, len(customResponses)),
		GlobalBlacklist:  make([]GlobalBlacklistInput, len(blacklist)),
	}
	for i, r := range routes {
		raw.Routes[i] = RouteInput{ID: r.ID, Method: r.Method, Pattern: r.Pattern, Controller: r.Controller, Action: r.Action, Helper: r.Helper}
	}
	for i, r := range rules {
		raw.Rules[i] = RuleInput{ID: r.ID, RouteID: r.RouteID, Enabled: r.Enabled, Priority: r.Priority, Description: r.Description}
	}
	for i, f := range ipFilters {
		raw.IPFilters[i] = IPFilterInput{ID: f.ID, RuleID: f.RuleID, IPSpec: f.IPSpec, Kind: string(f.Kind), Enabled: f.Enabled}
	}
	for i, rl := range rateLimits {
		raw.RateLimits[i] = RateLimitInput{ID: rl.ID, RuleID: rl.RuleID, RequestsPerWindow: rl.RequestsPerWindow, WindowSeconds: rl.WindowSeconds, Enabled: rl.Enabled}
	}
	for i, cl := range concurrentLimits {
		raw.ConcurrentLimits[i] = ConcurrentLimitInput{ID: cl.ID, RuleID: cl.RuleID, MaxConcurrent: cl.MaxConcurrent, Enabled: cl.Enabled}
	}
	for i, tr := range timeRestrictions {
		raw.TimeRestrictions[i] = TimeRestrictionInput{
			ID: tr.ID, RuleID: tr.RuleID, StartTime: tr.StartTime, EndTime: tr.EndTime,
			DaysOfWeek: parseDays(tr.DaysOfWeek), Timezone: tr.Timezone, Enabled: tr.Enabled,
		}
	}
	for i, cr := range customResponses {
		raw.CustomResponses[i] = CustomResponseInput{ID: cr.ID, RuleID: cr.RuleID, StatusCode: cr.StatusCode, Message: cr.Message, ContentType: string(cr.ContentType), Enabled: cr.Enabled}
	}
	for i, g := range blacklist {
		raw.GlobalBlacklist[i] = GlobalBlacklistInput{ID: g.ID, IPSpec: g.IPSpec, ExpiresAt: g.ExpiresAt, Enabled: g.Enabled}
	}
	return raw, nil
}

// LoadRule reads a single rule and everything attached to it, for a
// targeted reload triggered by an operator action on one rule.
func (l *GORMLoader) LoadRule(ctx context.Context, ruleID uint) (RuleSubgraph, error) {
	db := l.db.WithContext(ctx)

	var rule models.Rule
	if err := db.First(&rule, ruleID).Error; err != nil {
		return RuleSubgraph{}, fmt.Errorf("rulestore: load rule %d: %w", ruleID, err)
	}

	var ipFilters []models.IPFilter
	if err := db.Where("rule_id = ?", ruleID).Find(&ipFilters).Error; err != nil {
		return RuleSubgraph{}, fmt.Errorf("rulestore: load ip filters for rule %d: %w", ruleID, err)
	}
	var rateLimit models.RateLimitConfig
	hasRateLimit := db.Where("rule_id = ?", ruleID).First(&rateLimit).Error == nil
	var concurrentLimit models.ConcurrentLimitConfig
	hasConcurrentLimit := db.Where("rule_id = ?", ruleID).First(&concurrentLimit).Error == nil
	var timeRestrictions []models.TimeRestriction
	if err := db.Where("rule_id = ?", ruleID).Find(&timeRestrictions).Error; err != nil {
		return RuleSubgraph{}, fmt.Errorf("rulestore: load time restrictions for rule %d: %w", ruleID, err)
	}
	var customResponse models.CustomResponse
	hasCustomResponse := db.Where("rule_id = ?", ruleID).First(&customResponse).Error == nil

	sub := RuleSubgraph{
		Rule: RuleInput{ID: rule.ID, RouteID: rule.RouteID, Enabled: rule.Enabled, Priority: rule.Priority, Description: rule.Description},
	}
	for _, f := range ipFilters {
		sub.IPFilters = append(sub.IPFilters, IPFilterInput{ID: f.ID, RuleID: f.RuleID, IPSpec: f.IPSpec, Kind: string(f.Kind), Enabled: f.Enabled})
	}
	if hasRateLimit {
		sub.RateLimit = &RateLimitInput{ID: rateLimit.ID, RuleID: rateLimit.RuleID, RequestsPerWindow: rateLimit.RequestsPerWindow, WindowSeconds: rateLimit.WindowSeconds, Enabled: rateLimit.Enabled}
	}
	if hasConcurrentLimit {
		sub.ConcurrentLimit = &ConcurrentLimitInput{ID: concurrentLimit.ID, RuleID: concurrentLimit.RuleID, MaxConcurrent: concurrentLimit.MaxConcurrent, Enabled: concurrentLimit.Enabled}
	}
	for _, tr := range timeRestrictions {
		sub.TimeRestrictions = append(sub.TimeRestrictions, TimeRestrictionInput{
			ID: tr.ID, RuleID: tr.RuleID, StartTime: tr.StartTime, EndTime: tr.EndTime,
			DaysOfWeek: parseDays(tr.DaysOfWeek), Timezone: tr.Timezone, Enabled: tr.Enabled,
		})
	}
	if hasCustomResponse {
		sub.CustomResponse = &CustomResponseInput{ID: customResponse.ID, RuleID: customResponse.RuleID, StatusCode: customResponse.StatusCode, Message: customResponse.Message, ContentType: string(customResponse.ContentType), Enabled: customResponse.Enabled}
	}
	return sub, nil
}

// parseDays turns the model's "1,2,3" storage format into []int.
func parseDays(csv string) []int {
	if csv == "" {
		return nil
	}
	var days []int
	start := 0
	for i := 0; i <= len(csv); i++ {
		if i == len(csv) || csv[i] == ',' {
			if i > start {
				var d int
				for _, c := range csv[start:i] {
					if c < '0' || c > '9' {
						d = -1
						break
					}
					d = d*10 + int(c-'0')
				}
				if d >= 1 && d <= 7 {
					days = append(days, d)
				}
			}
			start = i + 1
		}
	}
	return days
}
