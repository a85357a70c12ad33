// Package routeindex maps (method, path) pairs to routes, supporting both
// exact matches and parameterised patterns such as "/users/:id". It is the
// "A" component of the enforcement data plane: a route lookup must never
// allocate or compile a pattern on the hot path, so every pattern is
// compiled once, at Store time.
package routeindex

import (
	"errors"
	"regexp"
	"sort"
	"strings"
	"sync"
)

// ErrNotFound is returned by Lookup when no route matches.
var ErrNotFound = errors.New("routeindex: route not found")

// Route is the runtime view of a discovered route.
type Route struct {
	ID         uint
	Method     string
	Pattern    string
	Controller string
	Action     string
	Helper     string
}

type compiledRoute struct {
	route Route
	re    *regexp.Regexp // nil for patterns with no ":name" placeholders
}

// Index is a concurrency-safe (method, path) -> Route lookup structure.
// Reads hold the read lock for the whole lookup, pattern match included;
// writes take the write lock.
type Index struct {
	mu   sync.RWMutex
	byID map[uint]compiledRoute
	// exact holds routes with no ":name" segments, keyed by "METHOD path".
	exact map[string]compiledRoute
	// patterned holds routes with ":name" segments, in ascending-id order.
	patterned []compiledRoute
}

// New returns an empty Index.
func New() *Index {
	return &Index{
		byID:  make(map[uint]compiledRoute),
		exact: make(map[string]compiledRoute),
	}
}

var paramSegment = regexp.MustCompile(`:[^/]+`)

// compilePattern translates ":name" segments to "[^/]+" and anchors the
// result at both ends. Returns nil if the pattern has no placeholders,
// since those routes are matched by plain string equality.
func compilePattern(pattern string) *regexp.Regexp {
	if !strings.Contains(pattern, ":") {
		return nil
	}
	quoted := regexp.QuoteMeta(pattern)
	// The whole-pattern quote is not used; placeholders are expanded segment
	// by segment against the original pattern instead.
	var b strings.Builder
	b.WriteByte('^')
	segments := strings.Split(pattern, "/")
	for i, seg := range segments {
		if i > 0 {
			b.WriteByte('/')
		}
		if strings.HasPrefix(seg, ":") && len(seg) > 1 {
			b.WriteString(`[^/]+`)
		} else {
			b.WriteString(regexp.QuoteMeta(seg))
		}
	}
	b.WriteByte('$')
	_ = quoted
	return regexp.MustCompile(b.String())
}

// Store inserts or overwrites a route by id and by (method, pattern).
func (x *Index) Store(r Route) {
	cr := compiledRoute{route: r, re: compilePattern(r.Pattern)}

	x.mu.Lock()
	defer x.mu.Unlock()

	if old, ok := x.byID[r.ID]; ok {
		x.removeLocked(old)
	}
	for id, old := range x.byID {
		if id != r.ID && old.route.Method == r.Method && old.route.Pattern == r.Pattern {
			x.removeLocked(old)
			delete(x.byID, id)
		}
	}
	x.byID[r.ID] = cr
	key := exactKey(r.Method, r.Pattern)
	if cr.re == nil {
		x.exact[key] = cr
	} else {
		x.patterned = append(x.patterned, cr)
		sort.Slice(x.patterned, func(i, j int) bool {
			return x.patterned[i].route.ID < x.patterned[j].route.ID
		})
	}
}

// removeLocked removes a previously stored route's secondary index entries.
// Caller must hold x.mu for writing.
func (x *Index) removeLocked(cr compiledRoute) {
	if cr.re == nil {
		delete(x.exact, exactKey(cr.route.Method, cr.route.Pattern))
		return
	}
	for i, p := range x.patterned {
		if p.route.ID == cr.route.ID {
			x.patterned = append(x.patterned[:i], x.patterned[i+1:]...)
			break
		}
	}
}

// Clear removes all routes.
func (x *Index) Clear() {
	x.mu.Lock()
	defer x.mu.Unlock()
	x.byID = make(map[uint]compiledRoute)
	x.exact = make(map[string]compiledRoute)
	x.patterned = nil
}

// List returns all stored routes, in no particular order.
func (x *Index) List() []Route {
	x.mu.RLock()
	defer x.mu.RUnlock()
	out := make([]Route, 0, len(x.byID))
	for _, cr := range x.byID {
		out = append(out, cr.route)
	}
	return out
}

// Lookup returns the route matching method and path. It first tries an
// exact (method, pattern) match, then scans parameterised patterns in
// ascending-id order and returns the first match. Returns ErrNotFound if
// nothing matches.
func (x *Index) Lookup(method, path string) (Route, error) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if cr, ok := x.exact[exactKey(method, path)]; ok {
		return cr.route, nil
	}
	for _, cr := range x.patterned {
		if cr.route.Method != method {
			continue
		}
		if cr.re.MatchString(path) {
			return cr.route, nil
		}
	}
	return Route{}, ErrNotFound
}

func exactKey(method, pattern string) string {
	return method + " " + pattern
}
