package admin

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/servicehub/backoffice/internal/analytics"
	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/middleware"
	"github.com/servicehub/backoffice/internal/sessions"
)

const (
	adminID       = "11111111-1111-1111-1111-111111111111"
	testSessionID = "22222222-2222-2222-2222-222222222222"
)

// withActor installs what AuthMiddleware would put on the context
func withActor(user *models.User, sessionID, sessionType string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.ContextKeyUser, user)
		c.Set(middleware.ContextKeyUserID, user.ID)
		c.Set(middleware.ContextKeyRoles, []string(user.Roles))
		c.Set(middleware.ContextKeySessionID, sessionID)
		c.Set(middleware.ContextKeySessionType, sessionType)
		c.Next()
	}
}

func adminUser() *models.User {
	return &models.User{ID: adminID, Username: "root", Email: "root@example.com", Roles: []string{models.RoleAdmin}}
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Mozilla/5.0 (Windows NT 10.0) Chrome/120.0")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v (body=%s)", err, w.Body.String())
	}
	return out
}

// ---------------------------------------------------------------------------
// Session fake
// ---------------------------------------------------------------------------

type fakeSessions struct {
	created    []*models.Session
	createErr  error
	ended      []string
	endResult  sessions.EndResult
	endErr     error
	byID       map[string]*models.Session
	getErr     error
	active     []*models.SessionWithUser
	userList   []*models.Session
	stats      sessions.Stats
	lastType   *string
	lastUserID string
	lastLimit  int
}

func (f *fakeSessions) CreateSession(_ context.Context, userID string, meta sessions.RequestMeta, sessionType string) (*models.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	s := &models.Session{
		SessionID:   testSessionID,
		UserID:      userID,
		SessionType: sessionType,
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		LoginTime:   time.Now(),
		IsActive:    true,
	}
	f.created = append(f.created, s)
	return s, nil
}

func (f *fakeSessions) EndSession(_ context.Context, userID, id string) (sessions.EndResult, error) {
	f.ended = append(f.ended, userID+"/"+id)
	return f.endResult, f.endErr
}

func (f *fakeSessions) GetSession(_ context.Context, id string) (*models.Session, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.byID[id], nil
}

func (f *fakeSessions) GetActiveSessions(_ context.Context, sessionType *string) ([]*models.SessionWithUser, error) {
	f.lastType = sessionType
	return f.active, nil
}

func (f *fakeSessions) GetUserSessions(_ context.Context, userID string, limit int) ([]*models.Session, error) {
	f.lastUserID, f.lastLimit = userID, limit
	return f.userList, nil
}

func (f *fakeSessions) GetSessionStats(_ context.Context, sessionType *string) sessions.Stats {
	f.lastType = sessionType
	return f.stats
}

// ---------------------------------------------------------------------------
// Analytics fake
// ---------------------------------------------------------------------------

type fakeAnalytics struct {
	tracked   []analytics.TrackRequest
	outcome   besteffort.Outcome
	events    []*models.AnalyticsEvent
	sessions  []*models.SessionWithUser
	dashboard analytics.Dashboard
	lastLimit int
	listErr   error
}

func (f *fakeAnalytics) Track(_ context.Context, req analytics.TrackRequest) besteffort.Outcome {
	f.tracked = append(f.tracked, req)
	if f.outcome.Status == "" {
		return besteffort.Done()
	}
	return f.outcome
}

func (f *fakeAnalytics) GetUserAnalytics(_ context.Context, _ string, limit int) ([]*models.AnalyticsEvent, error) {
	f.lastLimit = limit
	return f.events, f.listErr
}

func (f *fakeAnalytics) GetAllSessions(_ context.Context, limit int) ([]*models.SessionWithUser, error) {
	f.lastLimit = limit
	return f.sessions, f.listErr
}

func (f *fakeAnalytics) Dashboard(context.Context) analytics.Dashboard {
	return f.dashboard
}
