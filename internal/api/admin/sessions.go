// sessions.go implements session monitoring handlers.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/sessions"
)

// SessionMonitor exposes tracked sessions to administrators
type SessionMonitor interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	EndSession(ctx context.Context, userID, sessionID string) (sessions.EndResult, error)
	GetActiveSessions(ctx context.Context, sessionType *string) ([]*models.SessionWithUser, error)
	GetUserSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error)
	GetSessionStats(ctx context.Context, sessionType *string) sessions.Stats
}

// SessionHandlers handles session monitoring endpoints
type SessionHandlers struct {
	sessions SessionMonitor
}

// NewSessionHandlers creates a new SessionHandlers instance
func NewSessionHandlers(monitor SessionMonitor) *SessionHandlers {
	return &SessionHandlers{sessions: monitor}
}

// @Summary      Active sessions
// @Tags         Sessions
// @Security     Bearer
// @Produce      json
// @Param        type  query  string  false  "Session type (admin, main, web)"
// @Success      200  {object}  map[string]interface{}  "sessions: []models.SessionWithUser, count"
// @Router       /api/v1/admin/sessions/active [get]
// GetActiveSessionsHandler lists active sessions, newest login first
// GET /api/v1/admin/sessions/active?type=admin
func (h *SessionHandlers) GetActiveSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.sessions.GetActiveSessions(c.Request.Context(), optionalQuery(c, "type"))
		if err != nil {
			respondError(c, err, "Failed to list active sessions")
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
	}
}

// @Summary      Session statistics
// @Description  Totals, average ended-session duration and device/browser breakdowns. Aggregates that cannot be computed are reported as zero.
// @Tags         Sessions
// @Security     Bearer
// @Produce      json
// @Param        type  query  string  false  "Session type (admin, main, web)"
// @Success      200  {object}  sessions.Stats
// @Router       /api/v1/admin/sessions/stats [get]
// GetSessionStatsHandler returns session statistics
// GET /api/v1/admin/sessions/stats?type=admin
func (h *SessionHandlers) GetSessionStatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.sessions.GetSessionStats(c.Request.Context(), optionalQuery(c, "type")))
}

// @Summary      Sessions of a user
// @Tags         Sessions
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "User ID"
// @Param        limit  query  int     false  "Maximum sessions (default 100)"
// @Success      200  {object}  map[string]interface{}  "sessions: []models.Session, count"
// @Failure      400  {object}  map[string]interface{}  "Invalid user ID"
// @Router       /api/v1/admin/users/{id}/sessions [get]
// GetUserSessionsHandler lists one user's sessions, newest first
// GET /api/v1/admin/users/:id/sessions
func (h *SessionHandlers) GetUserSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		if _, err := uuid.Parse(userID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		list, err := h.sessions.GetUserSessions(c.Request.Context(), userID, queryLimit(c))
		if err != nil {
			respondError(c, err, "Failed to list user sessions")
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
	}
}

// @Summary      End a session
// @Description  Forces a session to end on behalf of its owner. Ending a session that already ended reports ended=false.
// @Tags         Sessions
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "Session ID"
// @Success      200  {object}  sessions.EndResult
// @Failure      404  {object}  map[string]interface{}  "Session not found"
// @Router       /api/v1/admin/sessions/{id}/end [post]
// EndSessionHandler ends any user's session
// POST /api/v1/admin/sessions/:id/end
func (h *SessionHandlers) EndSessionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionID := c.Param("id")
		if _, err := uuid.Parse(sessionID); err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		ctx := c.Request.Context()
		session, err := h.sessions.GetSession(ctx, sessionID)
		if err != nil {
			respondError(c, err, "Failed to look up session")
			return
		}
		if session == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
			return
		}

		result, err := h.sessions.EndSession(ctx, session.UserID, sessionID)
		if err != nil {
			respondError(c, err, "Failed to end session")
			return
		}
		c.JSON(http.StatusOK, result)
	}
}
