package pipeline

import (
	"time"

	"accessguard/internal/concurrency"
	"accessguard/internal/ipfilter"
	"accessguard/internal/metrics"
	"accessguard/internal/ratelimit"
	"accessguard/internal/routeindex"
	"accessguard/internal/rulestore"
	"accessguard/internal/timewindow"

	"github.com/sirupsen/logrus"
)

// Pipeline is the per-request orchestrator (spec.md §4.G). The zero value
// is not usable; construct with New.
type Pipeline struct {
	routes     *routeindex.Index
	rules      *rulestore.Store
	rateLimit  *ratelimit.Limiter
	concurrent *concurrency.Tracker
	now        func() time.Time
	log        *logrus.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides the time source, for deterministic tests.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger overrides the logrus logger used for fail-open warnings and
// access-decision logging.
func WithLogger(log *logrus.Logger) Option {
	return func(p *Pipeline) { p.log = log }
}

// New builds a Pipeline wired to the given route index and rule store.
func New(routes *routeindex.Index, rules *rulestore.Store, rl *ratelimit.Limiter, ct *concurrency.Tracker, opts ...Option) *Pipeline {
	p := &Pipeline{
		routes:     routes,
		rules:      rules,
		rateLimit:  rl,
		concurrent: ct,
		now:        time.Now,
		log:        logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handle runs spec.md §4.G's full algorithm for one request and returns a
// Decision. The caller must call Decision.Release() exactly once when the
// request completes, regardless of outcome.
func (p *Pipeline) Handle(method, path, clientIP string) (decision Decision) {
	now := p.now()

	for _, f := range p.rules.GlobalBlacklist() {
		if p.evalIPFilter(clientIP, []ipfilter.Filter{f}) == ipfilter.Blacklisted {
			metrics.IncBlock(string(ReasonIPBlacklisted))
			p.logBlock(ReasonIPBlacklisted, 0, 0, clientIP, method, path)
			return block(ReasonIPBlacklisted, 0, 0, nil, nil)
		}
	}

	route, err := p.routes.Lookup(method, path)
	if err != nil {
		// Pass-through: the core is not an authorizer of unknown paths.
		metrics.IncAllow()
		return allow(nil)
	}

	var releaseFns []func()
	release := func() {
		for _, fn := range releaseFns {
			fn()
		}
	}

	for _, rule := range p.rules.RulesForRoute(route.ID) {
		if reason, custom, ok := p.checkRule(rule, clientIP, now, &releaseFns); !ok {
			metrics.IncBlock(string(reason))
			p.logBlock(reason, route.ID, rule.ID, clientIP, method, path)
			return block(reason, route.ID, rule.ID, custom, release)
		}
	}

	metrics.IncAllow()
	p.logAllow(route.ID, clientIP, method, path)
	return allow(release)
}

// checkRule runs the four evaluators against one rule, in spec.md §4.G's
// fixed order, appending any concurrent-limit release func it acquires.
// Returns ok=false with the triggering reason (and custom response, if
// any) on the first blocking check.
func (p *Pipeline) checkRule(rule rulestore.Rule, clientIP string, now time.Time, releaseFns *[]func()) (Reason, *rulestore.CustomResponse, bool) {
	if out := p.evalIPFilter(clientIP, p.rules.IPFiltersForRule(rule.ID)); out != ipfilter.Allowed {
		reason := ReasonIPNotWhitelisted
		if out == ipfilter.Blacklisted {
			reason = ReasonIPBlacklisted
		}
		return reason, p.customResponse(rule.ID), false
	}

	if p.evalTimeWindow(rule.ID, now) != timewindow.Allowed {
		return ReasonTimeRestricted, p.customResponse(rule.ID), false
	}

	if cfg, ok := p.rules.RateLimitForRule(rule.ID); ok {
		if p.evalRateLimit(clientIP, rule.ID, cfg) != ratelimit.Allowed {
			return ReasonRateLimitExceeded, p.customResponse(rule.ID), false
		}
	}

	if max, ok := p.rules.ConcurrentLimitForRule(rule.ID); ok {
		result, releaseFn := p.acquireConcurrent(clientIP, rule.ID, max)
		if result != concurrency.Allowed {
			return ReasonConcurrentLimitExceeded, p.customResponse(rule.ID), false
		}
		*releaseFns = append(*releaseFns, releaseFn)
	}

	return ReasonNone, nil, true
}

func (p *Pipeline) customResponse(ruleID uint) *rulestore.CustomResponse {
	if cr, ok := p.rules.CustomResponseForRule(ruleID); ok {
		return &cr
	}
	return nil
}

// evalIPFilter, evalTimeWindow, evalRateLimit, and acquireConcurrent each
// wrap their evaluator so any unexpected panic degrades to "allow"
// (fail-open, spec.md §7) rather than taking the hot path down. Malformed
// operator data is already handled as "allowed" inside each evaluator;
// this recover is the backstop for truly unexpected internal faults.
func (p *Pipeline) evalIPFilter(ip string, filters []ipfilter.Filter) (out ipfilter.Outcome) {
	out = ipfilter.Allowed
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Warn("ipfilter evaluator panicked, failing open")
			out = ipfilter.Allowed
		}
	}()
	return ipfilter.Evaluate(ip, filters)
}

func (p *Pipeline) evalTimeWindow(ruleID uint, now time.Time) (out timewindow.Result) {
	out = timewindow.Allowed
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Warn("timewindow evaluator panicked, failing open")
			out = timewindow.Allowed
		}
	}()
	return timewindow.Evaluate(p.rules.TimeRestrictionsForRule(ruleID), now)
}

func (p *Pipeline) evalRateLimit(ip string, ruleID uint, cfg ratelimit.Config) (out ratelimit.Result) {
	out = ratelimit.Allowed
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Warn("ratelimit evaluator panicked, failing open")
			out = ratelimit.Allowed
		}
	}()
	return p.rateLimit.Check(ip, ruleID, cfg)
}

func (p *Pipeline) acquireConcurrent(ip string, ruleID uint, max int) (result concurrency.Result, releaseFn func()) {
	result = concurrency.Allowed
	releaseFn = func() {}
	defer func() {
		if r := recover(); r != nil {
			p.log.WithField("panic", r).Warn("concurrency tracker panicked, failing open")
			result = concurrency.Allowed
		}
	}()
	res, tok := p.concurrent.Acquire(ip, ruleID, max)
	if res != concurrency.Allowed {
		return res, func() {}
	}
	return res, func() { p.concurrent.Release(ip, ruleID, tok) }
}

func (p *Pipeline) logBlock(reason Reason, routeID, ruleID uint, ip, method, path string) {
	p.log.WithFields(logrus.Fields{
		"reason":   string(reason),
		"route_id": routeID,
		"rule_id":  ruleID,
		"ip":       ip,
		"method":   method,
		"path":     path,
	}).Info("request blocked")
}

func (p *Pipeline) logAllow(routeID uint, ip, method, path string) {
	p.log.WithFields(logrus.Fields{
		"route_id": routeID,
		"ip":       ip,
		"method":   method,
		"path":     path,
	}).Debug("request allowed")
}
