package server

import (
	"net/http"

	"accessguard/internal/routeindex"
	"accessguard/internal/rulestore"

	"github.com/gin-gonic/gin"
)

// registerAdminRoutes wires the operational surface the CLI's "reload" and
// "inspect" subcommands drive (SPEC_FULL.md §10): a rule-editing UI is
// still out of scope (spec.md §1), so these only trigger a reload from the
// existing loader or render a read-only view of the current snapshot.
func registerAdminRoutes(admin *gin.RouterGroup, loader *rulestore.GORMLoader, store *rulestore.Store, routes *routeindex.Index) {
	admin.POST("/reload", func(c *gin.Context) {
		raw, err := loader.LoadSnapshot(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if err := store.RefreshAll(raw); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded"})
	})

	admin.POST("/reload/rule/:id", func(c *gin.Context) {
		ruleID, ok := parseUintParam(c, "id")
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid rule id"})
			return
		}
		sub, err := loader.LoadRule(c.Request.Context(), ruleID)
		if err != nil {
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
			return
		}
		if err := store.RefreshRule(ruleID, sub); err != nil {
			c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "reloaded", "rule_id": ruleID})
	})

	admin.GET("/inspect/route", func(c *gin.Context) {
		method := c.Query("method")
		path := c.Query("path")
		route, err := routes.Lookup(method, path)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "no route matches"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"route": route, "rules": inspectRules(store, route.ID)})
	})
}

type ruleSummary struct {
	RuleID         uint   `json:"rule_id"`
	Priority       int    `json:"priority"`
	Description    string `json:"description,omitempty"`
	IPFilters      int    `json:"ip_filters"`
	HasRateLimit   bool   `json:"has_rate_limit"`
	HasConcurrency bool   `json:"has_concurrency_limit"`
	TimeWindows    int    `json:"time_windows"`
	HasCustomResp  bool   `json:"has_custom_response"`
}

func inspectRules(store *rulestore.Store, routeID uint) []ruleSummary {
	rules := store.RulesForRoute(routeID)
	out := make([]ruleSummary, 0, len(rules))
	for _, rule := range rules {
		_, hasRateLimit := store.RateLimitForRule(rule.ID)
		_, hasConcurrency := store.ConcurrentLimitForRule(rule.ID)
		_, hasCustom := store.CustomResponseForRule(rule.ID)
		out = append(out, ruleSummary{
			RuleID:         rule.ID,
			Priority:       rule.Priority,
			Description:    rule.Description,
			IPFilters:      len(store.IPFiltersForRule(rule.ID)),
			HasRateLimit:   hasRateLimit,
			HasConcurrency: hasConcurrency,
			TimeWindows:    len(store.TimeRestrictionsForRule(rule.ID)),
			HasCustomResp:  hasCustom,
		})
	}
	return out
}

func parseUintParam(c *gin.Context, name string) (uint, bool) {
	s := c.Param(name)
	var v uint
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		v = v*10 + uint(r-'0')
	}
	if s == "" {
		return 0, false
	}
	return v, true
}
