// analytics.go implements action tracking and the analytics read handlers.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/servicehub/backoffice/internal/analytics"
	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/middleware"
)

// AnalyticsService records and aggregates user actions
type AnalyticsService interface {
	Track(ctx context.Context, req analytics.TrackRequest) besteffort.Outcome
	GetUserAnalytics(ctx context.Context, userID string, limit int) ([]*models.AnalyticsEvent, error)
	GetAllSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error)
	Dashboard(ctx context.Context) analytics.Dashboard
}

// AnalyticsHandlers handles analytics endpoints
type AnalyticsHandlers struct {
	analytics AnalyticsService
}

// NewAnalyticsHandlers creates a new AnalyticsHandlers instance
func NewAnalyticsHandlers(svc AnalyticsService) *AnalyticsHandlers {
	return &AnalyticsHandlers{analytics: svc}
}

// TrackActionRequest is the payload a front end sends for one user action.
// SessionID defaults to the session carried by the bearer token.
type TrackActionRequest struct {
	Page       string         `json:"page" binding:"max=2048"`
	ActionType string         `json:"action_type" binding:"required,max=100"`
	ActionData map[string]any `json:"action_data"`
	SessionID  string         `json:"session_id"`
	Source     string         `json:"source" binding:"omitempty,max=50"`
}

// @Summary      Track an action
// @Description  Records one user action. Recording is best effort: the response reports the outcome but a failed write never returns an error status.
// @Tags         Analytics
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  TrackActionRequest  true  "Action"
// @Success      202  {object}  map[string]interface{}  "status"
// @Failure      400  {object}  map[string]interface{}  "Invalid request"
// @Router       /api/v1/analytics/track [post]
// TrackActionHandler records an action for the authenticated user
// POST /api/v1/analytics/track
func (h *AnalyticsHandlers) TrackActionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req TrackActionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
			return
		}

		sessionID := req.SessionID
		if sessionID == "" {
			sessionID = middleware.SessionID(c)
		}
		source := req.Source
		if source == "" {
			source = middleware.SessionType(c)
		}

		var userID string
		if actor := middleware.ActorID(c); actor != nil {
			userID = *actor
		}

		outcome := h.analytics.Track(c.Request.Context(), analytics.TrackRequest{
			UserID:     userID,
			SessionID:  sessionID,
			Page:       req.Page,
			ActionType: req.ActionType,
			ActionData: req.ActionData,
			Source:     source,
			Meta:       middleware.RequestMeta(c),
		})
		c.JSON(http.StatusAccepted, gin.H{"status": outcome.Status})
	}
}

// @Summary      User analytics
// @Tags         Analytics
// @Security     Bearer
// @Produce      json
// @Param        id     path   string  true   "User ID"
// @Param        limit  query  int     false  "Maximum events (default 50)"
// @Success      200  {object}  map[string]interface{}  "events: []models.AnalyticsEvent, count"
// @Failure      400  {object}  map[string]interface{}  "Invalid user ID"
// @Router       /api/v1/admin/analytics/users/{id} [get]
// GetUserAnalyticsHandler lists one user's newest events
// GET /api/v1/admin/analytics/users/:id?limit=50
func (h *AnalyticsHandlers) GetUserAnalyticsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		if _, err := uuid.Parse(userID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		events, err := h.analytics.GetUserAnalytics(c.Request.Context(), userID, queryLimit(c))
		if err != nil {
			respondError(c, err, "Failed to list user analytics")
			return
		}
		c.JSON(http.StatusOK, gin.H{"events": events, "count": len(events)})
	}
}

// @Summary      All sessions
// @Tags         Sessions
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Maximum sessions (default 100)"
// @Success      200  {object}  map[string]interface{}  "sessions: []models.SessionWithUser, count"
// @Router       /api/v1/admin/sessions [get]
// GetAllSessionsHandler lists the newest sessions with their owners
// GET /api/v1/admin/sessions?limit=100
func (h *AnalyticsHandlers) GetAllSessionsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		list, err := h.analytics.GetAllSessions(c.Request.Context(), queryLimit(c))
		if err != nil {
			respondError(c, err, "Failed to list sessions")
			return
		}
		c.JSON(http.StatusOK, gin.H{"sessions": list, "count": len(list)})
	}
}

// @Summary      Analytics dashboard
// @Description  Action type counts, top users and pages, recent events and the per-source breakdown. Aggregates that cannot be computed are empty.
// @Tags         Analytics
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  analytics.Dashboard
// @Router       /api/v1/admin/analytics/dashboard [get]
// GetDashboardHandler returns the analytics overview
// GET /api/v1/admin/analytics/dashboard
func (h *AnalyticsHandlers) GetDashboardHandler(c *gin.Context) {
	c.JSON(http.StatusOK, h.analytics.Dashboard(c.Request.Context()))
}
