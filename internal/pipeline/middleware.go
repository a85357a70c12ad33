package pipeline

import "github.com/gin-gonic/gin"

// Middleware adapts a Pipeline into a gin.HandlerFunc, grounded on the
// teacher's gin.HandlerFunc-returning middleware constructors
// (AuthMiddleware, RateLimitMiddlewareFromConfig). The concurrent-limit
// release, if any was acquired, is deferred to run after the handler chain
// completes — including when a downstream handler panics or the client
// disconnects — via Go's ordinary defer semantics on the wrapping
// goroutine (spec.md §5's scope-guard requirement).
func Middleware(p *Pipeline) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := ClientIP(c.Request)
		decision := p.Handle(c.Request.Method, c.Request.URL.Path, ip)
		defer decision.Release()

		if decision.Allowed {
			c.Next()
			return
		}

		rendered := Render(decision)
		c.Data(rendered.Status, rendered.ContentType, rendered.Body)
		c.Abort()
	}
}
