package pipeline

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP extracts the request's originating IP per spec.md §4.G step 1:
// the first comma-separated token of X-Forwarded-For, trimmed; else
// X-Real-IP; else the transport peer address in dotted form. The pipeline
// does not validate the proxy chain — operators are expected to front it
// with a trusted proxy (grounded on the teacher's X-Forwarded-For
// first-token idiom in RateLimitMiddlewareFromConfig).
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		parts := strings.Split(xff, ",")
		if ip := strings.TrimSpace(parts[0]); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
