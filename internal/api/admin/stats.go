// stats.go implements the admin dashboard statistics endpoint.
package admin

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
)

// StatsHandler handles statistics endpoints
type StatsHandler struct {
	db *sqlx.DB
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(db *sqlx.DB) *StatsHandler {
	return &StatsHandler{db: db}
}

// DashboardStats represents the dashboard statistics
type DashboardStats struct {
	Users    int64        `json:"users"`
	Services ServiceStats `json:"services"`
	Bookings BookingStats `json:"bookings"`
	Sessions SessionStats `json:"sessions"`
	// AuditEntries is the size of the audit trail
	AuditEntries    int64 `json:"audit_entries"`
	AnalyticsEvents int64 `json:"analytics_events"`
}

// ServiceStats holds catalog counts
type ServiceStats struct {
	Total      int64           `json:"total"`
	Active     int64           `json:"active"`
	ByCategory []CategoryCount `json:"by_category"`
}

// CategoryCount holds the number of catalog entries in one category
type CategoryCount struct {
	Category string `db:"category" json:"category"`
	Count    int64  `db:"count" json:"count"`
}

// BookingStats holds booking counts
type BookingStats struct {
	Total    int64            `json:"total"`
	ByStatus map[string]int64 `json:"by_status"`
	// RevenueCents sums completed bookings
	RevenueCents int64 `json:"revenue_cents"`
}

// SessionStats holds session counts
type SessionStats struct {
	Active int64 `json:"active"`
	Total  int64 `json:"total"`
}

type dashboardCounts struct {
	Users           int64 `db:"user_count"`
	Services        int64 `db:"service_count"`
	ActiveServices  int64 `db:"active_service_count"`
	Bookings        int64 `db:"booking_count"`
	Revenue         int64 `db:"revenue_cents"`
	Sessions        int64 `db:"session_count"`
	ActiveSessions  int64 `db:"active_session_count"`
	AuditEntries    int64 `db:"audit_count"`
	AnalyticsEvents int64 `db:"event_count"`
}

// @Summary      Get dashboard statistics
// @Description  Returns aggregated counts for the admin dashboard: users, catalog, bookings, sessions, audit entries and analytics events. Counts that cannot be computed are reported as zero.
// @Tags         Stats
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  DashboardStats
// @Failure      401  {object}  map[string]interface{}  "Unauthorized"
// @Router       /api/v1/admin/stats/dashboard [get]
// GetDashboardStats returns dashboard statistics using a single round-trip for the core counts.
func (h *StatsHandler) GetDashboardStats(c *gin.Context) {
	ctx := c.Request.Context()

	stats := DashboardStats{
		Services: ServiceStats{ByCategory: []CategoryCount{}},
		Bookings: BookingStats{ByStatus: map[string]int64{}},
	}

	var counts dashboardCounts
	err := h.db.GetContext(ctx, &counts, `
		SELECT
			(SELECT COUNT(*) FROM users) AS user_count,
			(SELECT COUNT(*) FROM services) AS service_count,
			(SELECT COUNT(*) FROM services WHERE is_active) AS active_service_count,
			(SELECT COUNT(*) FROM bookings) AS booking_count,
			(SELECT COALESCE(SUM(amount_cents), 0) FROM bookings WHERE status = 'completed') AS revenue_cents,
			(SELECT COUNT(*) FROM user_sessions) AS session_count,
			(SELECT COUNT(*) FROM user_sessions WHERE is_active) AS active_session_count,
			(SELECT COUNT(*) FROM audit_logs) AS audit_count,
			(SELECT COUNT(*) FROM analytics_events) AS event_count
	`)
	if err != nil {
		slog.WarnContext(ctx, "dashboard counts unavailable", "error", err)
	} else {
		stats.Users = counts.Users
		stats.Services.Total = counts.Services
		stats.Services.Active = counts.ActiveServices
		stats.Bookings.Total = counts.Bookings
		stats.Bookings.RevenueCents = counts.Revenue
		stats.Sessions.Total = counts.Sessions
		stats.Sessions.Active = counts.ActiveSessions
		stats.AuditEntries = counts.AuditEntries
		stats.AnalyticsEvents = counts.AnalyticsEvents
	}

	// Top categories, optional.
	var categories []CategoryCount
	if err := h.db.SelectContext(ctx, &categories, `
		SELECT category, COUNT(*) AS count
		FROM services
		GROUP BY category
		ORDER BY count DESC
		LIMIT 8
	`); err != nil {
		slog.WarnContext(ctx, "dashboard categories unavailable", "error", err)
	} else if categories != nil {
		stats.Services.ByCategory = categories
	}

	var byStatus []struct {
		Status string `db:"status"`
		Count  int64  `db:"count"`
	}
	if err := h.db.SelectContext(ctx, &byStatus, `
		SELECT status, COUNT(*) AS count FROM bookings GROUP BY status
	`); err != nil {
		slog.WarnContext(ctx, "dashboard booking statuses unavailable", "error", err)
	} else {
		for _, s := range byStatus {
			stats.Bookings.ByStatus[s.Status] = s.Count
		}
	}

	c.JSON(http.StatusOK, stats)
}
