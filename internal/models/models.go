// Package models holds the GORM-backed record types for the control-plane
// data the rule store loads: routes, rules, and the configs attached to
// them. These are the durable shapes of the entities in spec.md §3; the
// hot-path packages (routeindex, ipfilter, ratelimit, concurrency,
// timewindow) never import GORM — they consume the plain runtime structs in
// rulestore, built from these rows by rulestore's GORMLoader, the only
// rulestore code that touches GORM.
package models

import "time"

// Route is a discovered (method, path pattern) pair. Invariant: the pair is
// unique. Routes are read-mostly from the core's point of view; they are
// created by an external discovery process.
type Route struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Method     string `gorm:"size:16;uniqueIndex:uniq_method_pattern;not null" json:"method"`
	Pattern    string `gorm:"size:512;uniqueIndex:uniq_method_pattern;not null" json:"pattern"`
	Controller string `json:"controller,omitempty"`
	Action     string `json:"action,omitempty"`
	Helper     string `json:"helper,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Rule is the unit of protection attached to a route. Only enabled rules are
// considered during enforcement; priority is descending, ties broken by
// ascending id.
type Rule struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	RouteID     uint   `gorm:"index;not null" json:"route_id"`
	Enabled     bool   `gorm:"default:true" json:"enabled"`
	Priority    int    `gorm:"default:0" json:"priority"`
	Description string `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// FilterKind distinguishes a whitelist entry from a blacklist entry.
type FilterKind string

const (
	FilterWhitelist FilterKind = "whitelist"
	FilterBlacklist FilterKind = "blacklist"
)

// IPFilter attaches an allow/deny IP or CIDR spec to a rule. Many filters
// may share a rule.
type IPFilter struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	RuleID    uint       `gorm:"index;not null" json:"rule_id"`
	IPSpec    string     `gorm:"size:64;not null" json:"ip_spec"`
	Kind      FilterKind `gorm:"size:16;not null" json:"kind"`
	Enabled   bool       `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// RateLimitConfig is the token-bucket config attached to a rule. At most one
// enabled config per rule is used (rulestore rejects a snapshot that would
// publish a second active one, per spec.md §9).
type RateLimitConfig struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	RuleID            uint      `gorm:"uniqueIndex;not null" json:"rule_id"`
	RequestsPerWindow int       `gorm:"not null" json:"requests_per_window"`
	WindowSeconds     int       `gorm:"not null" json:"window_seconds"`
	Enabled           bool      `gorm:"default:true" json:"enabled"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}

// ConcurrentLimitConfig caps in-flight requests per (ip, rule). At most one
// per rule.
type ConcurrentLimitConfig struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	RuleID        uint      `gorm:"uniqueIndex;not null" json:"rule_id"`
	MaxConcurrent int       `gorm:"not null" json:"max_concurrent"`
	Enabled       bool      `gorm:"default:true" json:"enabled"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// TimeRestriction windows when a rule is active by day-of-week and
// time-of-day. Many may share a rule; they combine by disjunction.
type TimeRestriction struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	RuleID     uint      `gorm:"index;not null" json:"rule_id"`
	StartTime  *int      `json:"start_time,omitempty"` // seconds since midnight, UTC
	EndTime    *int      `json:"end_time,omitempty"`   // seconds since midnight, UTC
	DaysOfWeek string    `json:"days_of_week,omitempty"` // comma-separated 1=Mon..7=Sun
	Timezone   string    `json:"timezone,omitempty"`     // carried, v1-unused (spec.md §9)
	Enabled    bool      `gorm:"default:true" json:"enabled"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ContentType enumerates the body encodings a CustomResponse may render.
type ContentType string

const (
	ContentJSON  ContentType = "application/json"
	ContentHTML  ContentType = "text/html"
	ContentPlain ContentType = "text/plain"
	ContentXML   ContentType = "application/xml"
)

// CustomResponse overrides the default block status/body for a rule. At
// most one per rule.
type CustomResponse struct {
	ID          uint        `gorm:"primaryKey" json:"id"`
	RuleID      uint        `gorm:"uniqueIndex;not null" json:"rule_id"`
	StatusCode  int         `gorm:"not null" json:"status_code"`
	Message     string      `json:"message,omitempty"`
	ContentType ContentType `gorm:"size:32" json:"content_type"`
	Enabled     bool        `gorm:"default:true" json:"enabled"`
	CreatedAt   time.Time   `json:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at"`
}

// GlobalBlacklistEntry is evaluated before any per-route logic, independent
// of rules.
type GlobalBlacklistEntry struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	IPSpec    string     `gorm:"size:64;not null" json:"ip_spec"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Enabled   bool       `gorm:"default:true" json:"enabled"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// AllTables lists every model for AutoMigrate, in dependency order.
func AllTables() []interface{} {
	return []interface{}{
		&Route{}, &Rule{}, &IPFilter{}, &RateLimitConfig{},
		&ConcurrentLimitConfig{}, &TimeRestriction{}, &CustomResponse{},
		&GlobalBlacklistEntry{},
	}
}
