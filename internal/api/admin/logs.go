// logs.go implements audit trail read and purge handlers.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/servicehub/backoffice/internal/db/models"
)

// AuditReader reads and purges the audit trail
type AuditReader interface {
	ListRecent(ctx context.Context, limit int) ([]*models.AuditLogWithActor, error)
	ListByTable(ctx context.Context, table string) ([]*models.AuditLogWithActor, error)
	ListByUser(ctx context.Context, userID string) ([]*models.AuditLogWithActor, error)
	DeleteAll(ctx context.Context) (int64, error)
}

// AuditLogHandlers handles audit trail endpoints
type AuditLogHandlers struct {
	logs AuditReader
}

// NewAuditLogHandlers creates a new AuditLogHandlers instance
func NewAuditLogHandlers(logs AuditReader) *AuditLogHandlers {
	return &AuditLogHandlers{logs: logs}
}

// @Summary      Recent audit entries
// @Description  Returns the newest audit entries across all tables with the acting user's display fields. Default limit 100, max 1000.
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        limit  query  int  false  "Maximum entries"
// @Success      200  {object}  map[string]interface{}  "logs: []models.AuditLogWithActor, count"
// @Router       /api/v1/admin/logs [get]
// GetRecentLogsHandler lists the newest audit entries
// GET /api/v1/admin/logs?limit=100
func (h *AuditLogHandlers) GetRecentLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := h.logs.ListRecent(c.Request.Context(), queryLimit(c))
		if err != nil {
			respondError(c, err, "Failed to list audit logs")
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
	}
}

// @Summary      Audit entries for a table
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        table  path  string  true  "Table name"
// @Success      200  {object}  map[string]interface{}  "logs: []models.AuditLogWithActor, count"
// @Router       /api/v1/admin/logs/table/{table} [get]
// GetLogsByTableHandler lists every audit entry for one table
// GET /api/v1/admin/logs/table/:table
func (h *AuditLogHandlers) GetLogsByTableHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		logs, err := h.logs.ListByTable(c.Request.Context(), c.Param("table"))
		if err != nil {
			respondError(c, err, "Failed to list audit logs")
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
	}
}

// @Summary      Audit entries by actor
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "User ID"
// @Success      200  {object}  map[string]interface{}  "logs: []models.AuditLogWithActor, count"
// @Failure      400  {object}  map[string]interface{}  "Invalid user ID"
// @Router       /api/v1/admin/logs/user/{id} [get]
// GetLogsByUserHandler lists every audit entry written by one user
// GET /api/v1/admin/logs/user/:id
func (h *AuditLogHandlers) GetLogsByUserHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.Param("id")
		if _, err := uuid.Parse(userID); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid user ID"})
			return
		}
		logs, err := h.logs.ListByUser(c.Request.Context(), userID)
		if err != nil {
			respondError(c, err, "Failed to list audit logs")
			return
		}
		c.JSON(http.StatusOK, gin.H{"logs": logs, "count": len(logs)})
	}
}

// @Summary      Purge audit trail
// @Tags         Audit
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "deleted"
// @Router       /api/v1/admin/logs [delete]
// DeleteAllLogsHandler removes every audit entry
// DELETE /api/v1/admin/logs
func (h *AuditLogHandlers) DeleteAllLogsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		n, err := h.logs.DeleteAll(c.Request.Context())
		if err != nil {
			respondError(c, err, "Failed to delete audit logs")
			return
		}
		c.JSON(http.StatusOK, gin.H{"deleted": n})
	}
}
