package pipeline

import (
	"encoding/json"
	"fmt"
	"html"
	"net/http"

	"accessguard/internal/rulestore"
)

// defaultBody is the status/body mapping spec.md §6 fixes when no
// CustomResponse applies.
var defaultBody = map[Reason]struct {
	status  int
	message string
}{
	ReasonRateLimitExceeded:       {http.StatusTooManyRequests, "Rate limit exceeded"},
	ReasonIPBlacklisted:           {http.StatusForbidden, "IP address is blacklisted"},
	ReasonIPNotWhitelisted:        {http.StatusForbidden, "IP address is not whitelisted"},
	ReasonTimeRestricted:          {http.StatusForbidden, "Access restricted at this time"},
	ReasonConcurrentLimitExceeded: {http.StatusTooManyRequests, "Too many concurrent requests"},
}

// Rendered is a fully-resolved block response ready to write to the wire.
type Rendered struct {
	Status      int
	ContentType string
	Body        []byte
}

// Render resolves a block Decision into a status/content-type/body triple,
// honoring a rule's CustomResponse override per spec.md §6.
func Render(d Decision) Rendered {
	if d.CustomResponse != nil {
		return renderCustom(*d.CustomResponse)
	}
	entry, ok := defaultBody[d.Reason]
	if !ok {
		entry = struct {
			status  int
			message string
		}{http.StatusForbidden, "Access denied"}
	}
	return Rendered{
		Status:      entry.status,
		ContentType: "application/json",
		Body:        jsonError(entry.message),
	}
}

func renderCustom(cr rulestore.CustomResponse) Rendered {
	switch cr.ContentType {
	case "text/html":
		return Rendered{Status: cr.StatusCode, ContentType: "text/html", Body: []byte(renderHTML(cr.Message))}
	case "text/plain":
		return Rendered{Status: cr.StatusCode, ContentType: "text/plain", Body: []byte(cr.Message)}
	case "application/xml":
		return Rendered{Status: cr.StatusCode, ContentType: "application/xml", Body: []byte(renderXML(cr.Message))}
	default: // application/json, or unset
		return Rendered{Status: cr.StatusCode, ContentType: "application/json", Body: renderJSONMessage(cr.Message)}
	}
}

// renderJSONMessage honors spec.md §6: if the message is already valid
// JSON, it is used verbatim; otherwise it is wrapped as {"error": message}.
func renderJSONMessage(message string) []byte {
	if message == "" {
		return jsonError("Access denied")
	}
	if json.Valid([]byte(message)) {
		return []byte(message)
	}
	return jsonError(message)
}

func jsonError(message string) []byte {
	b, _ := json.Marshal(map[string]string{"error": message})
	return b
}

func renderHTML(message string) string {
	if message == "" {
		message = "Access denied"
	}
	return fmt.Sprintf("<!DOCTYPE html><html><head><title>Access denied</title></head><body><p>%s</p></body></html>", html.EscapeString(message))
}

func renderXML(message string) string {
	if message == "" {
		message = "Access denied"
	}
	return fmt.Sprintf("<?xml version=\"1.0\" encoding=\"UTF-8\"?><error>%s</error>", escapeXML(message))
}

func escapeXML(s string) string {
	var b []byte
	for _, r := range s {
		switch r {
		case '&':
			b = append(b, "&amp;"...)
		case '<':
			b = append(b, "&lt;"...)
		case '>':
			b = append(b, "&gt;"...)
		default:
			b = append(b, string(r)...)
		}
	}
	return string(b)
}
