// Package api wires together all HTTP routes for the back-office backend.
//
// Route grouping:
//   - /health, /ready and /version are unauthenticated probes.
//   - /api/v1/auth/login is public but held to a strict per-IP rate limit.
//   - /api/v1/auth/* and /api/v1/analytics/track accept any valid bearer token,
//     so both the admin console and the main app can log out and report actions.
//   - /api/v1/admin/* additionally requires the admin role tag.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/servicehub/backoffice/internal/analytics"
	"github.com/servicehub/backoffice/internal/api/admin"
	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/config"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/db/repositories"
	"github.com/servicehub/backoffice/internal/middleware"
	"github.com/servicehub/backoffice/internal/services"
	"github.com/servicehub/backoffice/internal/sessions"
)

// Version is reported by /version. Release builds override it with -ldflags.
var Version = "0.1.0"

// BackgroundServices holds resources that must be released during graceful
// shutdown. The caller (cmd/server) is responsible for calling Shutdown() when
// the process receives a termination signal.
type BackgroundServices struct {
	memoryLimiters []*middleware.MemoryLimiter
	redisClient    *redis.Client
	shipper        *audit.MultiShipper
}

// Shutdown stops all background goroutines and closes shared clients. It should
// be called after the HTTP server has been shut down so that in-flight requests
// are drained first.
func (bg *BackgroundServices) Shutdown() {
	slog.Info("stopping background services")
	for _, rl := range bg.memoryLimiters {
		rl.Stop()
	}
	if bg.shipper != nil {
		if err := bg.shipper.Close(); err != nil {
			slog.Warn("failed to close audit shippers", "error", err)
		}
	}
	if bg.redisClient != nil {
		if err := bg.redisClient.Close(); err != nil {
			slog.Warn("failed to close redis client", "error", err)
		}
	}
	slog.Info("all background services stopped")
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, db *sqlx.DB) (*gin.Engine, *BackgroundServices, error) {
	bg := &BackgroundServices{}

	tokens, err := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	if err != nil {
		return nil, nil, fmt.Errorf("token issuer: %w", err)
	}

	// Repositories
	userRepo := repositories.NewUserRepository(db)
	serviceRepo := repositories.NewServiceRepository(db)
	bookingRepo := repositories.NewBookingRepository(db)
	auditRepo := repositories.NewAuditRepository(db)
	sessionRepo := repositories.NewSessionRepository(db)
	analyticsRepo := repositories.NewAnalyticsRepository(db)

	// Audit trail
	shipper, err := audit.NewMultiShipper(cfg.Audit.Shippers)
	if err != nil {
		return nil, nil, fmt.Errorf("audit shippers: %w", err)
	}
	var recorder *audit.Recorder
	if shipper.Len() > 0 {
		bg.shipper = shipper
		recorder = audit.NewRecorder(auditRepo, shipper)
		slog.Info("audit shipping enabled", "destinations", shipper.Len())
	} else {
		recorder = audit.NewRecorder(auditRepo, nil)
	}
	recorder.SetEnabled(cfg.Audit.Enabled)

	// Sessions and analytics
	tracker := sessions.NewTracker(sessionRepo)
	analyticsRecorder := analytics.NewRecorder(analyticsRepo, tracker, cfg.Analytics.DefaultSource)

	// Audited entity services
	userService := services.NewUserService(userRepo, recorder)
	catalogService := services.NewCatalogService(serviceRepo, recorder)
	bookingService := services.NewBookingService(bookingRepo, recorder)

	// Rate limiters
	generalLimiter, loginLimiter, err := newLimiters(cfg.Security.RateLimiting, bg)
	if err != nil {
		return nil, nil, err
	}

	// Handlers
	authHandlers := admin.NewAuthHandlers(userRepo, tracker, tokens, analyticsRecorder)
	userHandlers := admin.NewUserHandlers(userService)
	catalogHandlers := admin.NewCatalogHandlers(catalogService)
	bookingHandlers := admin.NewBookingHandlers(bookingService)
	logHandlers := admin.NewAuditLogHandlers(recorder)
	sessionHandlers := admin.NewSessionHandlers(tracker)
	analyticsHandlers := admin.NewAnalyticsHandlers(analyticsRecorder)
	statsHandler := admin.NewStatsHandler(db)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.SecurityHeadersMiddleware(cfg.Security.TLS.Enabled))
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.Security.CORS.AllowedOrigins))

	router.GET("/health", healthCheckHandler(db))
	router.GET("/ready", readinessHandler(db, bg.redisClient))
	router.GET("/version", versionHandler())

	apiV1 := router.Group("/api/v1")
	{
		// Public login, rate limited per client IP
		public := apiV1.Group("/auth")
		if loginLimiter != nil {
			public.Use(middleware.RateLimitMiddleware(loginLimiter))
		}
		public.POST("/login", authHandlers.LoginHandler())

		// Any authenticated front end
		authenticated := apiV1.Group("")
		if generalLimiter != nil {
			authenticated.Use(middleware.RateLimitMiddleware(generalLimiter))
		}
		authenticated.Use(middleware.AuthMiddleware(tokens, userRepo))
		{
			authenticated.POST("/auth/logout", authHandlers.LogoutHandler())
			authenticated.GET("/auth/me", authHandlers.MeHandler())
			authenticated.POST("/analytics/track", analyticsHandlers.TrackActionHandler())
		}

		// Back office
		adminGroup := authenticated.Group("/admin")
		adminGroup.Use(middleware.RequireRole(models.RoleAdmin))
		{
			adminGroup.GET("/stats/dashboard", statsHandler.GetDashboardStats)

			adminGroup.GET("/users", userHandlers.ListUsersHandler())
			adminGroup.POST("/users", userHandlers.CreateUserHandler())
			adminGroup.GET("/users/:id", userHandlers.GetUserHandler())
			adminGroup.PUT("/users/:id", userHandlers.UpdateUserHandler())
			adminGroup.DELETE("/users/:id", userHandlers.DeleteUserHandler())
			adminGroup.GET("/users/:id/sessions", sessionHandlers.GetUserSessionsHandler())

			adminGroup.GET("/services", catalogHandlers.ListServicesHandler())
			adminGroup.POST("/services", catalogHandlers.CreateServiceHandler())
			adminGroup.GET("/services/:id", catalogHandlers.GetServiceHandler())
			adminGroup.PUT("/services/:id", catalogHandlers.UpdateServiceHandler())
			adminGroup.DELETE("/services/:id", catalogHandlers.DeleteServiceHandler())

			adminGroup.GET("/bookings", bookingHandlers.ListBookingsHandler())
			adminGroup.GET("/bookings/:id", bookingHandlers.GetBookingHandler())
			adminGroup.PUT("/bookings/:id/status", bookingHandlers.UpdateBookingStatusHandler())

			adminGroup.GET("/logs", logHandlers.GetRecentLogsHandler())
			adminGroup.DELETE("/logs", logHandlers.DeleteAllLogsHandler())
			adminGroup.GET("/logs/table/:table", logHandlers.GetLogsByTableHandler())
			adminGroup.GET("/logs/user/:id", logHandlers.GetLogsByUserHandler())

			adminGroup.GET("/sessions", analyticsHandlers.GetAllSessionsHandler())
			adminGroup.GET("/sessions/active", sessionHandlers.GetActiveSessionsHandler())
			adminGroup.GET("/sessions/stats", sessionHandlers.GetSessionStatsHandler)
			adminGroup.POST("/sessions/:id/end", sessionHandlers.EndSessionHandler())

			adminGroup.GET("/analytics/users/:id", analyticsHandlers.GetUserAnalyticsHandler())
			adminGroup.GET("/analytics/dashboard", analyticsHandlers.GetDashboardHandler)
		}
	}

	return router, bg, nil
}

// newLimiters builds the general and login limiters. Both are nil when rate
// limiting is disabled. With a Redis URL the limits are shared across replicas.
func newLimiters(cfg config.RateLimitingConfig, bg *BackgroundServices) (general, login middleware.Limiter, err error) {
	if !cfg.Enabled {
		slog.Warn("rate limiting disabled")
		return nil, nil, nil
	}

	generalCfg := middleware.DefaultRateLimitConfig()
	if cfg.RequestsPerMinute > 0 {
		generalCfg.RequestsPerMinute = cfg.RequestsPerMinute
	}
	if cfg.Burst > 0 {
		generalCfg.BurstSize = cfg.Burst
	}
	loginCfg := middleware.AuthRateLimitConfig()
	if cfg.LoginPerMinute > 0 {
		loginCfg.RequestsPerMinute = cfg.LoginPerMinute
	}

	if cfg.RedisURL != "" {
		client, err := middleware.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			return nil, nil, fmt.Errorf("rate limiter: %w", err)
		}
		bg.redisClient = client
		slog.Info("rate limiting backed by redis")
		return middleware.NewRedisLimiter(client, generalCfg), middleware.NewRedisLimiter(client, loginCfg), nil
	}

	generalMem := middleware.NewMemoryLimiter(generalCfg)
	loginMem := middleware.NewMemoryLimiter(loginCfg)
	bg.memoryLimiters = append(bg.memoryLimiters, generalMem, loginMem)
	return generalMem, loginMem, nil
}

// @Summary      Health check
// @Description  Returns the health status of the service, including database connectivity.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "status: healthy, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "status: unhealthy, error: database connection failed"
// @Router       /health [get]
// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      Readiness check
// @Description  Returns whether the service is ready to accept traffic. Checks the database and, when configured, the shared rate limiter store.
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "ready: true, checks, time: RFC3339 timestamp"
// @Failure      503  {object}  map[string]interface{}  "ready: false, checks, error"
// @Router       /ready [get]
// readinessHandler returns the readiness status of the service.
func readinessHandler(db *sqlx.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := c.Request.Context()
		checks := gin.H{}

		if err := db.PingContext(ctx); err != nil {
			checks["database"] = "unhealthy"
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"ready":  false,
				"checks": checks,
				"error":  "database not ready",
			})
			return
		}
		checks["database"] = "healthy"

		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				checks["redis"] = "unhealthy"
				c.JSON(http.StatusServiceUnavailable, gin.H{
					"ready":  false,
					"checks": checks,
					"error":  "redis not ready",
				})
				return
			}
			checks["redis"] = "healthy"
		}

		c.JSON(http.StatusOK, gin.H{
			"ready":  true,
			"checks": checks,
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// @Summary      API version
// @Tags         System
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "version, api_version"
// @Router       /version [get]
// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"version":     Version,
			"api_version": "v1",
		})
	}
}
