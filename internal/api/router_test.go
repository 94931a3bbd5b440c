package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	"github.com/servicehub/backoffice/internal/auth"
	"github.com/servicehub/backoffice/internal/config"
)

const testSecret = "router-test-jwt-secret-that-is-32chars!!"

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// healthCheckHandler / readinessHandler
// ---------------------------------------------------------------------------

func newHealthDB(t *testing.T, pingOK bool) *sqlx.DB {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if pingOK {
		mock.ExpectPing()
	} else {
		mock.ExpectPing().WillReturnError(sql.ErrConnDone)
	}
	return sqlx.NewDb(db, "sqlmock")
}

func serve(r http.Handler, method, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v (body=%s)", err, w.Body.String())
	}
	return body
}

func TestHealthCheckHandler(t *testing.T) {
	tests := []struct {
		name   string
		pingOK bool
		want   int
		status string
	}{
		{"healthy", true, http.StatusOK, "healthy"},
		{"unhealthy", false, http.StatusServiceUnavailable, "unhealthy"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := gin.New()
			r.GET("/health", healthCheckHandler(newHealthDB(t, tt.pingOK)))

			w := serve(r, http.MethodGet, "/health", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if got := decode(t, w)["status"]; got != tt.status {
				t.Errorf("status field = %v, want %s", got, tt.status)
			}
		})
	}
}

func TestReadinessHandler_DatabaseOnly(t *testing.T) {
	r := gin.New()
	r.GET("/ready", readinessHandler(newHealthDB(t, true), nil))

	w := serve(r, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	checks, _ := decode(t, w)["checks"].(map[string]interface{})
	if checks["database"] != "healthy" {
		t.Errorf("checks = %v", checks)
	}
	if _, ok := checks["redis"]; ok {
		t.Error("redis must not be probed when not configured")
	}
}

func TestReadinessHandler_DatabaseDown(t *testing.T) {
	r := gin.New()
	r.GET("/ready", readinessHandler(newHealthDB(t, false), nil))

	w := serve(r, http.MethodGet, "/ready", "")
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
	if decode(t, w)["ready"] != false {
		t.Errorf("body = %s", w.Body.String())
	}
}

func TestReadinessHandler_Redis(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	r := gin.New()
	r.GET("/ready", readinessHandler(newHealthDB(t, true), rdb))
	w := serve(r, http.MethodGet, "/ready", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}
	checks, _ := decode(t, w)["checks"].(map[string]interface{})
	if checks["redis"] != "healthy" {
		t.Errorf("checks = %v", checks)
	}

	mr.Close()
	r = gin.New()
	r.GET("/ready", readinessHandler(newHealthDB(t, true), rdb))
	if w := serve(r, http.MethodGet, "/ready", ""); w.Code != http.StatusServiceUnavailable {
		t.Errorf("status with redis down = %d, want 503", w.Code)
	}
}

func TestVersionHandler(t *testing.T) {
	r := gin.New()
	r.GET("/version", versionHandler())

	w := serve(r, http.MethodGet, "/version", "")
	body := decode(t, w)
	if body["version"] != Version || body["api_version"] != "v1" {
		t.Errorf("body = %v", body)
	}
}

// ---------------------------------------------------------------------------
// NewRouter
// ---------------------------------------------------------------------------

func testConfig() *config.Config {
	return &config.Config{
		Auth: config.AuthConfig{JWTSecret: testSecret, TokenTTL: time.Hour},
		Security: config.SecurityConfig{
			CORS: config.CORSConfig{AllowedOrigins: []string{"*"}},
			RateLimiting: config.RateLimitingConfig{
				Enabled:           true,
				RequestsPerMinute: 600,
				Burst:             100,
				LoginPerMinute:    10,
			},
		},
		Logging:   config.LoggingConfig{Level: "info", Format: "json"},
		Audit:     config.AuditConfig{Enabled: true},
		Analytics: config.AnalyticsConfig{DefaultSource: "admin"},
	}
}

var userCols = []string{"id", "username", "email", "firstname", "lastname", "password_hash", "roles", "created_at", "updated_at"}

func newTestRouter(t *testing.T, cfg *config.Config) (*gin.Engine, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	router, bg, err := NewRouter(cfg, sqlx.NewDb(db, "sqlmock"))
	if err != nil {
		t.Fatalf("NewRouter: %v", err)
	}
	t.Cleanup(bg.Shutdown)
	return router, mock
}

func tokenFor(t *testing.T, userID string) string {
	t.Helper()
	issuer, err := auth.NewTokenIssuer(testSecret, time.Hour)
	if err != nil {
		t.Fatalf("NewTokenIssuer: %v", err)
	}
	token, _, err := issuer.Issue(userID, "someone", nil, "", "admin")
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return token
}

func TestNewRouter_RequiresSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Auth.JWTSecret = ""

	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	if _, _, err := NewRouter(cfg, sqlx.NewDb(db, "sqlmock")); err == nil {
		t.Error("expected an error without a signing secret")
	}
}

func TestNewRouter_AdminRequiresToken(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	w := serve(router, http.MethodGet, "/api/v1/admin/users", "")
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("security headers must be present on error responses")
	}
}

func TestNewRouter_AdminRequiresAdminRole(t *testing.T) {
	router, mock := newTestRouter(t, testConfig())
	userID := "11111111-1111-1111-1111-111111111111"
	now := time.Now()
	mock.ExpectQuery("FROM users WHERE id").
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userCols).
			AddRow(userID, "pat", "pat@example.com", "Pat", "Lee", "", "{customer}", now, now))

	w := serve(router, http.MethodGet, "/api/v1/admin/logs", tokenFor(t, userID))
	if w.Code != http.StatusForbidden {
		t.Errorf("status = %d, want 403: %s", w.Code, w.Body.String())
	}
}

func TestNewRouter_RateLimitHeaders(t *testing.T) {
	router, _ := newTestRouter(t, testConfig())

	w := serve(router, http.MethodPost, "/api/v1/auth/login", "")
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 for an empty body", w.Code)
	}
	if w.Header().Get("X-RateLimit-Limit") != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", w.Header().Get("X-RateLimit-Limit"))
	}
}

func TestNewRouter_RedisLimiter(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := testConfig()
	cfg.Security.RateLimiting.RedisURL = "redis://" + mr.Addr()

	router, _ := newTestRouter(t, cfg)
	w := serve(router, http.MethodPost, "/api/v1/auth/login", "")
	if w.Header().Get("X-RateLimit-Limit") != "10" {
		t.Errorf("X-RateLimit-Limit = %q, want 10", w.Header().Get("X-RateLimit-Limit"))
	}
	if len(mr.Keys()) == 0 {
		t.Error("limiter state should live in redis")
	}
}

func TestNewRouter_RateLimitingDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Security.RateLimiting.Enabled = false

	router, _ := newTestRouter(t, cfg)
	w := serve(router, http.MethodPost, "/api/v1/auth/login", "")
	if w.Header().Get("X-RateLimit-Limit") != "" {
		t.Error("no rate limit headers expected when disabled")
	}
}
