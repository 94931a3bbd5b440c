// Package middleware provides Gin HTTP middleware for authentication, authorization,
// rate limiting, security headers, request logging and metrics.
//
// Middleware ordering matters and is enforced in router.go:
//
//	Security → RateLimit → Auth → RequireRole → Handler
//
// Security headers run first so they appear on all responses including errors.
// Rate limiting runs before auth to block brute-force attempts before any DB work.
// Auth populates the user identity, role tags and session; RequireRole reads them.
package middleware

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/sessions"
)

// gin.Context keys set by AuthMiddleware
const (
	ContextKeyUser        = "user"
	ContextKeyUserID      = "user_id"
	ContextKeyRoles       = "roles"
	ContextKeySessionID   = "session_id"
	ContextKeySessionType = "session_type"
)

// TokenValidator verifies bearer tokens
type TokenValidator interface {
	Validate(token string) (*auth.Claims, error)
}

// UserLookup loads the account a token belongs to
type UserLookup interface {
	GetUserByID(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware validates the bearer token and loads its user. Role tags are
// read from the stored account rather than the token, so a role change takes
// effect on the next request.
func AuthMiddleware(tokens TokenValidator, users UserLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": err.Error(),
			})
			return
		}

		claims, err := tokens.Validate(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "Invalid or expired token",
			})
			return
		}

		user, err := users.GetUserByID(c.Request.Context(), claims.UserID)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "failed to load authenticated user", "user_id", claims.UserID, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"error": "Failed to load user",
			})
			return
		}
		if user == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "User not found",
			})
			return
		}

		c.Set(ContextKeyUser, user)
		c.Set(ContextKeyUserID, user.ID)
		c.Set(ContextKeyRoles, []string(user.Roles))
		c.Set(ContextKeySessionID, claims.SessionID)
		c.Set(ContextKeySessionType, claims.SessionType)

		c.Next()
	}
}

// CurrentUser returns the authenticated user, or nil
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(ContextKeyUser); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}

// ActorID returns the authenticated user's ID for audit entries, or nil
func ActorID(c *gin.Context) *string {
	id := c.GetString(ContextKeyUserID)
	if id == "" {
		return nil
	}
	return &id
}

// SessionID returns the session carried by the bearer token
func SessionID(c *gin.Context) string {
	return c.GetString(ContextKeySessionID)
}

// SessionType returns the front-end the bearer token was issued to
func SessionType(c *gin.Context) string {
	return c.GetString(ContextKeySessionType)
}

// RequestMeta captures the client details recorded on sessions
func RequestMeta(c *gin.Context) sessions.RequestMeta {
	return sessions.RequestMeta{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}
