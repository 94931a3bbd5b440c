package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/servicehub/backoffice/internal/telemetry"
)

const anonymousFrontend = "anonymous"

// MetricsMiddleware records request counts and latency per route template,
// and attributes each request to the front end that issued its token. It
// must run before AuthMiddleware: the session type is read after c.Next(),
// once the auth layer has populated it.
//
// Requests that match no route use the "<no-route>" path label.
func MetricsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "<no-route>"
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		telemetry.HTTPRequestsTotal.WithLabelValues(method, path, status).Inc()
		telemetry.HTTPRequestDuration.WithLabelValues(method, path).Observe(time.Since(start).Seconds())

		frontend := c.GetString(ContextKeySessionType)
		if frontend == "" {
			frontend = anonymousFrontend
		}
		telemetry.FrontendRequestsTotal.WithLabelValues(frontend).Inc()
	}
}
