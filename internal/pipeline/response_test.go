package pipeline

import (
	"net/http"
	"testing"

	"accessguard/internal/rulestore"

	"github.com/stretchr/testify/assert"
)

func TestRender_DefaultMapping(t *testing.T) {
	r := Render(Decision{Allowed: false, Reason: ReasonRateLimitExceeded})
	assert.Equal(t, http.StatusTooManyRequests, r.Status)
	assert.Equal(t, "application/json", r.ContentType)
	assert.JSONEq(t, `{"error":"Rate limit exceeded"}`, string(r.Body))
}

func TestRender_UnknownReasonFallsBackToAccessDenied(t *testing.T) {
	r := Render(Decision{Allowed: false, Reason: Reason("something_else")})
	assert.Equal(t, http.StatusForbidden, r.Status)
	assert.JSONEq(t, `{"error":"Access denied"}`, string(r.Body))
}

func TestRender_CustomResponseJSONWrapsNonJSONMessage(t *testing.T) {
	cr := rulestore.CustomResponse{StatusCode: 403, Message: "nope", ContentType: "application/json"}
	r := Render(Decision{Allowed: false, CustomResponse: &cr})
	assert.Equal(t, 403, r.Status)
	assert.JSONEq(t, `{"error":"nope"}`, string(r.Body))
}

func TestRender_CustomResponseJSONPassesThroughValidJSON(t *testing.T) {
	cr := rulestore.CustomResponse{StatusCode: 403, Message: `{"code":"blocked"}`, ContentType: "application/json"}
	r := Render(Decision{Allowed: false, CustomResponse: &cr})
	assert.JSONEq(t, `{"code":"blocked"}`, string(r.Body))
}

func TestRender_CustomResponseHTML(t *testing.T) {
	cr := rulestore.CustomResponse{StatusCode: 403, Message: "<script>", ContentType: "text/html"}
	r := Render(Decision{Allowed: false, CustomResponse: &cr})
	assert.Equal(t, "text/html", r.ContentType)
	assert.Contains(t, string(r.Body), "&lt;script&gt;")
}

func TestRender_CustomResponsePlain(t *testing.T) {
	cr := rulestore.CustomResponse{StatusCode: 418, Message: "no", ContentType: "text/plain"}
	r := Render(Decision{Allowed: false, CustomResponse: &cr})
	assert.Equal(t, "no", string(r.Body))
}

func TestRender_CustomResponseXML(t *testing.T) {
	cr := rulestore.CustomResponse{StatusCode: 403, Message: "a&b", ContentType: "application/xml"}
	r := Render(Decision{Allowed: false, CustomResponse: &cr})
	assert.Equal(t, "application/xml", r.ContentType)
	assert.Contains(t, string(r.Body), "a&amp;b")
}
