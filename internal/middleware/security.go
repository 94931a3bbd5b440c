// security.go injects protective response headers. The back office serves
// JSON to its own front ends only, so the policy is fixed: nothing may embed,
// sniff or cache a response.
package middleware

import (
	"github.com/gin-gonic/gin"
)

const hstsValue = "max-age=31536000; includeSubDomains"

// apiSecurityHeaders are sent on every response, errors included.
var apiSecurityHeaders = [][2]string{
	{"X-Content-Type-Options", "nosniff"},
	{"X-Frame-Options", "DENY"},
	{"Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'"},
	{"Referrer-Policy", "no-referrer"},
	{"X-Permitted-Cross-Domain-Policies", "none"},
	{"Cross-Origin-Opener-Policy", "same-origin"},
	{"Cross-Origin-Resource-Policy", "same-site"},
	{"Cache-Control", "no-store"},
}

// SecurityHeadersMiddleware adds the API header set. HSTS is only sent when
// the server terminates TLS itself; behind a proxy the proxy owns it.
func SecurityHeadersMiddleware(tlsEnabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		for _, kv := range apiSecurityHeaders {
			h.Set(kv[0], kv[1])
		}
		if tlsEnabled {
			h.Set("Strict-Transport-Security", hstsValue)
		}
		c.Next()
	}
}
