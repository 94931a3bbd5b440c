// Package middleware (rbac.go) implements role-based authorization. Role tags
// are stored on the account and set on the context by AuthMiddleware.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/servicehub/backoffice/internal/auth"
)

// RequireRole checks that the authenticated user carries role
func RequireRole(role string) gin.HandlerFunc {
	return RequireAnyRole(role)
}

// RequireAnyRole checks that the authenticated user carries at least one of roles
func RequireAnyRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		rolesVal, exists := c.Get(ContextKeyRoles)
		if !exists {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Insufficient permissions",
			})
			return
		}

		userRoles, ok := rolesVal.([]string)
		if !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error": "Invalid roles format",
			})
			return
		}

		if !auth.HasAnyRole(userRoles, roles...) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"error":   "Missing required role",
				"details": "Required role: " + strings.Join(roles, " or "),
			})
			return
		}

		c.Next()
	}
}
