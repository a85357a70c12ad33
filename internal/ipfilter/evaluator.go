// Package ipfilter decides allow/deny for a client IP against a rule's set
// of whitelist/blacklist entries, with CIDR support. It is the "C"
// component of the enforcement data plane.
//
// Malformed operator data (an unparseable IP or CIDR string) is never
// treated as an error: per spec, a filter with bad text simply does not
// match, so misconfiguration cannot take the hot path down.
package ipfilter

import "net"

// Outcome is the result of evaluating a rule's filter set against an IP.
type Outcome int

const (
	Allowed Outcome = iota
	Blacklisted
	NotWhitelisted
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allowed"
	case Blacklisted:
		return "ip_blacklisted"
	case NotWhitelisted:
		return "ip_not_whitelisted"
	default:
		return "unknown"
	}
}

// Kind distinguishes a whitelist entry from a blacklist entry.
type Kind int

const (
	Whitelist Kind = iota
	Blacklist
)

// Filter is the runtime view of one IPFilter row: an IP or CIDR spec, a
// kind, and whether it is enabled. Disabled filters should be excluded by
// the caller (the rule store only publishes enabled filters) but Evaluate
// ignores them defensively too.
type Filter struct {
	Spec    string
	Kind    Kind
	Enabled bool
}

// Evaluate runs spec.md §4.C's algorithm: blacklist takes precedence over
// whitelist; an empty or all-disabled filter list allows everything; a
// non-empty whitelist requires an explicit match.
func Evaluate(ip string, filters []Filter) Outcome {
	parsedIP := net.ParseIP(ip)

	var anyWhitelist bool
	for _, f := range filters {
		if !f.Enabled {
			continue
		}
		if f.Kind == Blacklist {
			if matches(f.Spec, ip, parsedIP) {
				return Blacklisted
			}
			continue
		}
		anyWhitelist = true
	}
	if !anyWhitelist {
		return Allowed
	}
	for _, f := range filters {
		if !f.Enabled || f.Kind != Whitelist {
			continue
		}
		if matches(f.Spec, ip, parsedIP) {
			return Allowed
		}
	}
	return NotWhitelisted
}

// matches implements spec.md §4.C's matching semantics: textual equality
// for a bare IP, or 32-bit-prefix containment for a valid IPv4 CIDR. A spec
// with a "/" that fails to parse as CIDR never matches (and never panics);
// likewise an unparseable bare IP string still allows plain textual
// equality to succeed, since that comparison never needs net.ParseIP to
// have worked.
func matches(spec, rawIP string, parsedIP net.IP) bool {
	if spec == "" {
		return false
	}
	if !containsSlash(spec) {
		return spec == rawIP
	}
	_, ipnet, err := net.ParseCIDR(spec)
	if err != nil || ipnet == nil {
		return false
	}
	v4 := ipnet.IP.To4()
	if v4 == nil {
		// CIDR entries that are valid IPv4 never match an IPv6 address and
		// vice versa; v1 only supports IPv4 networks (spec.md §4.C).
		return false
	}
	if parsedIP == nil {
		return false
	}
	ipv4 := parsedIP.To4()
	if ipv4 == nil {
		return false
	}
	return ipnet.Contains(ipv4)
}

func containsSlash(s string) bool {
	for _, c := range s {
		if c == '/' {
			return true
		}
	}
	return false
}
