package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func TestRateLimitConfigs(t *testing.T) {
	if cfg := DefaultRateLimitConfig(); cfg.RequestsPerMinute != 300 || cfg.BurstSize != 50 {
		t.Errorf("DefaultRateLimitConfig() = %+v", cfg)
	}
	if cfg := AuthRateLimitConfig(); cfg.RequestsPerMinute != 10 || cfg.BurstSize != 5 {
		t.Errorf("AuthRateLimitConfig() = %+v", cfg)
	}
}

// ---------------------------------------------------------------------------
// MemoryLimiter
// ---------------------------------------------------------------------------

func newTestLimiter(t *testing.T, rpm, burst int) *MemoryLimiter {
	t.Helper()
	rl := NewMemoryLimiter(RateLimitConfig{
		RequestsPerMinute: rpm,
		BurstSize:         burst,
		CleanupInterval:   time.Hour,
	})
	t.Cleanup(rl.Stop)
	return rl
}

func TestMemoryLimiter_AllowsUpToBurst(t *testing.T) {
	rl := newTestLimiter(t, 60, 3)
	clock := time.Now()
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		d, err := rl.Allow(ctx, "k")
		if err != nil || !d.Allowed {
			t.Fatalf("request %d: allowed = %v, err = %v", i+1, d.Allowed, err)
		}
		if d.Remaining != 2-i {
			t.Errorf("request %d: remaining = %d, want %d", i+1, d.Remaining, 2-i)
		}
	}

	d, _ := rl.Allow(ctx, "k")
	if d.Allowed {
		t.Fatal("request beyond burst allowed")
	}
	if d.RetryAfter <= 0 || d.RetryAfter > time.Second {
		t.Errorf("RetryAfter = %v, want (0, 1s] at 1 token/s", d.RetryAfter)
	}
}

func TestMemoryLimiter_Refills(t *testing.T) {
	rl := newTestLimiter(t, 60, 1)
	clock := time.Now()
	rl.now = func() time.Time { return clock }
	ctx := context.Background()

	if d, _ := rl.Allow(ctx, "k"); !d.Allowed {
		t.Fatal("first request denied")
	}
	if d, _ := rl.Allow(ctx, "k"); d.Allowed {
		t.Fatal("second immediate request allowed")
	}

	clock = clock.Add(1100 * time.Millisecond)
	if d, _ := rl.Allow(ctx, "k"); !d.Allowed {
		t.Error("request after refill denied")
	}
}

func TestMemoryLimiter_KeysAreIndependent(t *testing.T) {
	rl := newTestLimiter(t, 60, 1)
	ctx := context.Background()

	if d, _ := rl.Allow(ctx, "a"); !d.Allowed {
		t.Fatal("a denied")
	}
	if d, _ := rl.Allow(ctx, "b"); !d.Allowed {
		t.Error("b denied after a used its budget")
	}
}

// ---------------------------------------------------------------------------
// RedisLimiter
// ---------------------------------------------------------------------------

func newMiniredisClient(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisLimiter_EnforcesBurst(t *testing.T) {
	_, client := newMiniredisClient(t)
	rl := NewRedisLimiter(client, RateLimitConfig{RequestsPerMinute: 2, BurstSize: 2, Prefix: "test"})
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		d, err := rl.Allow(ctx, "ip:1.2.3.4")
		if err != nil {
			t.Fatalf("Allow: %v", err)
		}
		if !d.Allowed {
			t.Fatalf("request %d denied", i+1)
		}
	}

	d, err := rl.Allow(ctx, "ip:1.2.3.4")
	if err != nil {
		t.Fatalf("Allow: %v", err)
	}
	if d.Allowed {
		t.Error("third request allowed, want denied")
	}
	if d.RetryAfter <= 0 {
		t.Errorf("RetryAfter = %v, want positive", d.RetryAfter)
	}

	if d, _ := rl.Allow(ctx, "ip:5.6.7.8"); !d.Allowed {
		t.Error("other client denied")
	}
}

func TestRedisLimiter_ErrorWhenUnavailable(t *testing.T) {
	mr, client := newMiniredisClient(t)
	rl := NewRedisLimiter(client, RateLimitConfig{RequestsPerMinute: 10, BurstSize: 1})
	mr.Close()

	if _, err := rl.Allow(context.Background(), "k"); err == nil {
		t.Error("expected error with Redis down")
	}
}

func TestNewRedisClient(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(context.Background(), "redis://"+mr.Addr()+"/0")
	if err != nil {
		t.Fatalf("NewRedisClient: %v", err)
	}
	_ = client.Close()

	if _, err := NewRedisClient(context.Background(), "not a url"); err == nil {
		t.Error("expected error for invalid URL")
	}
}

// ---------------------------------------------------------------------------
// RateLimitMiddleware
// ---------------------------------------------------------------------------

type errLimiter struct{}

func (errLimiter) Allow(context.Context, string) (Decision, error) {
	return Decision{}, errors.New("backend down")
}

func newRateLimitRouter(limiter Limiter) *gin.Engine {
	r := gin.New()
	r.Use(RateLimitMiddleware(limiter))
	r.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestRateLimitMiddleware_Returns429(t *testing.T) {
	r := newRateLimitRouter(newTestLimiter(t, 60, 2))

	codes := make([]int, 0, 3)
	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		r.ServeHTTP(w, req)
		codes = append(codes, w.Code)
		last = w
	}

	if codes[0] != http.StatusOK || codes[1] != http.StatusOK || codes[2] != http.StatusTooManyRequests {
		t.Fatalf("status codes = %v, want [200 200 429]", codes)
	}
	retry, err := strconv.Atoi(last.Header().Get("Retry-After"))
	if err != nil || retry < 1 {
		t.Errorf("Retry-After = %q, want a positive integer", last.Header().Get("Retry-After"))
	}
	if last.Header().Get("X-RateLimit-Limit") != "60" {
		t.Errorf("X-RateLimit-Limit = %q, want 60", last.Header().Get("X-RateLimit-Limit"))
	}
}

func TestRateLimitMiddleware_FailsOpen(t *testing.T) {
	r := newRateLimitRouter(errLimiter{})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	if w.Code != http.StatusOK {
		t.Errorf("status = %d, want 200 when the limiter errors", w.Code)
	}
}

func TestGetRateLimitKey(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
	c.Request.RemoteAddr = "192.0.2.7:5555"

	if got := getRateLimitKey(c); got != "ip:192.0.2.7" {
		t.Errorf("anonymous key = %q, want ip:192.0.2.7", got)
	}

	c.Set(ContextKeyUserID, "u-1")
	if got := getRateLimitKey(c); got != "user:u-1" {
		t.Errorf("authenticated key = %q, want user:u-1", got)
	}
}
