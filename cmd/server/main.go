// @title           ServiceHub Back-Office API
// @version         0.1.0
// @description     Marketplace back office: audited account, catalog and booking administration, session tracking and usage analytics.
// @basePath        /
// @schemes         http https
// @securityDefinitions.apiKey  Bearer
// @in                          header
// @name                         Authorization
// @description                  "JWT issued by POST /api/v1/auth/login: 'Bearer {token}'"
//
// @tag.name         System
// @tag.description  Health, readiness and version endpoints.
//
// @tag.name         Observability
// @tag.description  Prometheus metrics and profiling are served on a dedicated side-channel port (default: 9090) separate from the API listener. Configure it with BKO_TELEMETRY_METRICS_PROMETHEUS_PORT. pprof (BKO_TELEMETRY_PROFILING_ENABLED=true) listens on BKO_TELEMETRY_PROFILING_PORT (default: 6060).

// Package main is the entry point for the back-office server binary.
// It dispatches its subcommands (serve, migrate, create-admin, version) via a
// switch on os.Args so the whole CLI surface is readable in one place. The
// serve command runs migrations on startup so freshly deployed containers never
// need a separate migration step.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108 -- pprof is only served on the dedicated profiling port.
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/servicehub/backoffice/internal/api"
	"github.com/servicehub/backoffice/internal/audit"
	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/config"
	"github.com/servicehub/backoffice/internal/db"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/db/repositories"
	"github.com/servicehub/backoffice/internal/services"
	"github.com/servicehub/backoffice/internal/telemetry"
)

const dbStatsInterval = 15 * time.Second

func main() {
	if err := run(); err != nil {
		log.Fatalf("Error: %v\n", err)
	}
}

func run() error {
	command := "serve"
	if len(os.Args) > 1 {
		command = os.Args[1]
	}
	if command == "version" {
		fmt.Printf("ServiceHub back office v%s\n", api.Version)
		return nil
	}

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	telemetry.SetupLogger(cfg.Logging.Format, cfg.Logging.Level)

	switch command {
	case "serve":
		return serve(cfg)
	case "migrate":
		if len(os.Args) < 3 {
			return fmt.Errorf("usage: %s migrate <up|down>", os.Args[0])
		}
		return runMigrations(cfg, os.Args[2])
	case "create-admin":
		if len(os.Args) < 4 {
			return fmt.Errorf("usage: BKO_ADMIN_PASSWORD=... %s create-admin <username> <email>", os.Args[0])
		}
		return createAdmin(cfg, os.Args[2], os.Args[3], os.Getenv("BKO_ADMIN_PASSWORD"))
	default:
		return fmt.Errorf("unknown command: %s\nAvailable commands: serve, migrate, create-admin, version", command)
	}
}

func serve(cfg *config.Config) error {
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	secret, err := auth.ResolveJWTSecret(cfg.Auth.JWTSecret, cfg.Server.DevMode)
	if err != nil {
		return fmt.Errorf("security configuration error: %w", err)
	}
	cfg.Auth.JWTSecret = secret

	slog.Info("connecting to database",
		"host", cfg.Database.Host, "port", cfg.Database.Port,
		"name", cfg.Database.Name, "user", cfg.Database.User, "sslmode", cfg.Database.SSLMode)
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	telemetry.StartDBStatsCollector(ctx, database, dbStatsInterval)

	slog.Info("running database migrations")
	if err := db.RunMigrations(database, "up"); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	if version, dirty, err := db.GetMigrationVersion(database); err != nil {
		slog.Warn("failed to get migration version", "error", err)
	} else {
		slog.Info("database schema ready", "version", version, "dirty", dirty)
	}

	if cfg.Telemetry.Metrics.Enabled {
		startSideServer("metrics", cfg.Telemetry.Metrics.PrometheusPort, metricsMux(), 10*time.Second)
	}
	if cfg.Telemetry.Profiling.Enabled {
		// net/http/pprof registers on http.DefaultServeMux at init time.
		startSideServer("pprof", cfg.Telemetry.Profiling.Port, http.DefaultServeMux, 30*time.Second)
	}

	router, bgServices, err := api.NewRouter(cfg, sqlx.NewDb(database, "postgres"))
	if err != nil {
		return fmt.Errorf("failed to build router: %w", err)
	}

	server := &http.Server{
		Addr:         cfg.Server.GetAddress(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	serverErr := make(chan error, 1)
	go func() {
		slog.Info("starting server", "addr", server.Addr, "tls", cfg.Security.TLS.Enabled, "audit", cfg.Audit.Enabled)
		var err error
		if cfg.Security.TLS.Enabled {
			err = server.ListenAndServeTLS(cfg.Security.TLS.CertFile, cfg.Security.TLS.KeyFile)
		} else {
			err = server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serverErr:
		bgServices.Shutdown()
		return fmt.Errorf("server failed: %w", err)
	}

	slog.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}

	bgServices.Shutdown()
	slog.Info("server stopped gracefully")
	return nil
}

func metricsMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return mux
}

// startSideServer serves handler on an internal port outside the Gin router.
func startSideServer(name string, port int, handler http.Handler, timeout time.Duration) {
	addr := fmt.Sprintf(":%d", port)
	go func() {
		slog.Info("starting "+name+" server", "addr", addr)
		srv := &http.Server{
			Addr:         addr,
			Handler:      handler,
			ReadTimeout:  timeout,
			WriteTimeout: timeout,
		}
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error(name+" server error", "error", err)
		}
	}()
}

func runMigrations(cfg *config.Config, direction string) error {
	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	slog.Info("running migrations", "direction", direction)
	if err := db.RunMigrations(database, direction); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	version, dirty, err := db.GetMigrationVersion(database)
	if err != nil {
		return fmt.Errorf("failed to get migration version: %w", err)
	}
	slog.Info("migration completed", "version", version, "dirty", dirty)
	return nil
}

// createAdmin seeds an administrator account. The insert goes through the
// audited user service with no actor, so it shows up as a system action.
func createAdmin(cfg *config.Config, username, email, password string) error {
	if password == "" {
		return fmt.Errorf("BKO_ADMIN_PASSWORD must be set")
	}

	database, err := db.Connect(cfg.Database.GetDSN(), cfg.Database.MaxConnections, cfg.Database.MinIdleConnections)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer database.Close()

	sqlxDB := sqlx.NewDb(database, "postgres")
	recorder := audit.NewRecorder(repositories.NewAuditRepository(sqlxDB), nil)
	recorder.SetEnabled(cfg.Audit.Enabled)
	users := services.NewUserService(repositories.NewUserRepository(sqlxDB), recorder)

	user, err := users.Create(context.Background(), nil, services.CreateUserRequest{
		Username: username,
		Email:    email,
		Password: password,
		Roles:    []string{models.RoleAdmin},
	})
	if err != nil {
		return fmt.Errorf("failed to create admin: %w", err)
	}
	slog.Info("admin account created", "id", user.ID, "username", user.Username)
	return nil
}
