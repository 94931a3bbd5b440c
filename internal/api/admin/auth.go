// auth.go implements password login, logout and current-user handlers. Login
// opens a tracked session whose id travels inside the issued token; logout ends it.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/servicehub/backoffice/internal/analytics"
	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/middleware"
	"github.com/servicehub/backoffice/internal/sessions"
)

// LoginStore resolves accounts by username or email
type LoginStore interface {
	GetUserByLogin(ctx context.Context, login string) (*models.User, error)
}

// SessionLifecycle opens and closes tracked sessions
type SessionLifecycle interface {
	CreateSession(ctx context.Context, userID string, meta sessions.RequestMeta, sessionType string) (*models.Session, error)
	EndSession(ctx context.Context, userID, sessionID string) (sessions.EndResult, error)
}

// TokenSigner issues bearer tokens
type TokenSigner interface {
	Issue(userID, username string, roles []string, sessionID, sessionType string) (string, time.Time, error)
}

// ActionTracker records analytics events
type ActionTracker interface {
	Track(ctx context.Context, req analytics.TrackRequest) besteffort.Outcome
}

// AuthHandlers handles authentication endpoints
type AuthHandlers struct {
	users     LoginStore
	sessions  SessionLifecycle
	tokens    TokenSigner
	analytics ActionTracker
}

// NewAuthHandlers creates a new AuthHandlers instance
func NewAuthHandlers(users LoginStore, sessions SessionLifecycle, tokens TokenSigner, tracker ActionTracker) *AuthHandlers {
	return &AuthHandlers{
		users:     users,
		sessions:  sessions,
		tokens:    tokens,
		analytics: tracker,
	}
}

// LoginRequest is the login payload. Source names the front end the user
// signs in from (admin or main) and becomes the session type.
type LoginRequest struct {
	Login    string `json:"login" binding:"required"`
	Password string `json:"password" binding:"required"`
	Source   string `json:"source"`
}

// LoginResponse carries the issued token and its session
type LoginResponse struct {
	Token     string       `json:"token"`
	ExpiresAt time.Time    `json:"expires_at"`
	SessionID string       `json:"session_id,omitempty"`
	User      *models.User `json:"user"`
}

// @Summary      Log in
// @Description  Verifies the password, opens a tracked session and returns a bearer token carrying the session id.
// @Tags         Authentication
// @Accept       json
// @Produce      json
// @Param        body  body  LoginRequest  true  "Credentials"
// @Success      200  {object}  LoginResponse
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Failure      401  {object}  map[string]interface{}  "Invalid credentials"
// @Failure      500  {object}  map[string]interface{}  "Internal server error"
// @Router       /api/v1/auth/login [post]
// LoginHandler authenticates a user with username or email and password
// POST /api/v1/auth/login
func (h *AuthHandlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req LoginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		ctx := c.Request.Context()
		user, err := h.users.GetUserByLogin(ctx, strings.TrimSpace(req.Login))
		if err != nil {
			respondError(c, err, "Failed to look up user")
			return
		}
		if user == nil {
			respondError(c, auth.ErrInvalidCredentials, "")
			return
		}
		if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
			respondError(c, err, "Failed to verify credentials")
			return
		}

		source := req.Source
		if source == "" {
			source = models.SessionTypeAdmin
		}
		sessionType := sessions.NormalizeSessionType(source)
		meta := middleware.RequestMeta(c)

		// Session tracking never blocks a valid login.
		var sessionID string
		session, err := h.sessions.CreateSession(ctx, user.ID, meta, sessionType)
		if err != nil {
			slog.WarnContext(ctx, "login session not recorded", "user_id", user.ID, "error", err)
		} else {
			sessionID = session.SessionID
		}

		token, expiresAt, err := h.tokens.Issue(user.ID, user.Username, user.Roles, sessionID, sessionType)
		if err != nil {
			respondError(c, err, "Failed to issue token")
			return
		}

		h.analytics.Track(ctx, analytics.TrackRequest{
			UserID:     user.ID,
			SessionID:  sessionID,
			Page:       c.FullPath(),
			ActionType: "login",
			ActionData: map[string]any{"session_type": sessionType},
			Source:     source,
			Meta:       meta,
		})

		c.JSON(http.StatusOK, LoginResponse{
			Token:     token,
			ExpiresAt: expiresAt,
			SessionID: sessionID,
			User:      user,
		})
	}
}

// @Summary      Log out
// @Description  Ends the session carried by the bearer token. Ending an unknown or already-ended session is not an error, and a session store failure is logged and reported as ended=false.
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  sessions.EndResult
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/logout [post]
// LogoutHandler ends the caller's current session
// POST /api/v1/auth/logout
func (h *AuthHandlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}

		ctx := c.Request.Context()
		sessionID := middleware.SessionID(c)
		result, err := h.sessions.EndSession(ctx, user.ID, sessionID)
		if err != nil {
			slog.WarnContext(ctx, "failed to end session on logout", "error", err, "user_id", user.ID, "session_id", sessionID)
			result = sessions.EndResult{Ended: false}
		}

		h.analytics.Track(ctx, analytics.TrackRequest{
			UserID:     user.ID,
			SessionID:  sessionID,
			Page:       c.FullPath(),
			ActionType: "logout",
			ActionData: map[string]any{"ended": result.Ended, "duration_seconds": result.DurationSeconds},
			Source:     middleware.SessionType(c),
			Meta:       middleware.RequestMeta(c),
		})

		c.JSON(http.StatusOK, result)
	}
}

// @Summary      Current user
// @Tags         Authentication
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "user, session_id, session_type"
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/auth/me [get]
// MeHandler returns the authenticated user and the session the token belongs to
// GET /api/v1/auth/me
func (h *AuthHandlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		user := middleware.CurrentUser(c)
		if user == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"user":         user,
			"session_id":   middleware.SessionID(c),
			"session_type": middleware.SessionType(c),
		})
	}
}
