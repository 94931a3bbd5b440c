// Package sessions tracks login sessions per front-end. A session is created
// at login, stays active until logout, and is then ended exactly once with
// its duration recorded. Ended sessions are never reopened.
package sessions

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/telemetry"
)

const (
	// DefaultListLimit applies to session listings without an explicit limit
	DefaultListLimit = 100
	// MaxListLimit caps session listings
	MaxListLimit = 1000
)

// Store persists and queries sessions
type Store interface {
	CreateSession(ctx context.Context, s *models.Session) error
	GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error)
	GetActiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error)
	EndSession(ctx context.Context, sessionID string, logoutTime time.Time, durationSeconds int64) (bool, error)
	ListActiveSessions(ctx context.Context, sessionType *string) ([]*models.SessionWithUser, error)
	ListSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error)
	ListUserSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error)
	SessionTotals(ctx context.Context, sessionType *string) (models.SessionTotals, error)
	CountSessionsByDeviceType(ctx context.Context, sessionType *string) ([]models.GroupCount, error)
	CountSessionsByBrowser(ctx context.Context, sessionType *string) ([]models.GroupCount, error)
}

// RequestMeta carries the client details captured at login
type RequestMeta struct {
	IPAddress string
	UserAgent string
}

// EndResult reports what EndSession did. Ended is false when there was no
// active session to end.
type EndResult struct {
	Ended           bool      `json:"ended"`
	SessionID       string    `json:"session_id,omitempty"`
	DurationSeconds int64     `json:"duration_seconds,omitempty"`
	LogoutTime      time.Time `json:"logout_time,omitempty"`
}

// Stats summarises sessions, optionally for one session type
type Stats struct {
	TotalSessions         int64            `json:"total_sessions"`
	ActiveSessions        int64            `json:"active_sessions"`
	AvgSessionTimeSeconds int64            `json:"avg_session_time_seconds"`
	DeviceTypes           map[string]int64 `json:"device_types"`
	Browsers              map[string]int64 `json:"browsers"`
}

// Tracker opens and closes sessions and reports on them
type Tracker struct {
	store Store
	now   func() time.Time
}

// NewTracker creates a Tracker over store
func NewTracker(store Store) *Tracker {
	return &Tracker{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// NormalizeSessionType maps anything but admin and main onto web
func NormalizeSessionType(sessionType string) string {
	switch sessionType {
	case models.SessionTypeAdmin, models.SessionTypeMain:
		return sessionType
	}
	return models.SessionTypeWeb
}

// CreateSession opens an active session for userID
func (t *Tracker) CreateSession(ctx context.Context, userID string, meta RequestMeta, sessionType string) (*models.Session, error) {
	client := ParseUserAgent(meta.UserAgent)
	s := &models.Session{
		UserID:      userID,
		SessionType: NormalizeSessionType(sessionType),
		IPAddress:   meta.IPAddress,
		UserAgent:   meta.UserAgent,
		DeviceType:  client.DeviceType,
		Browser:     client.Browser,
		OS:          client.OS,
	}
	if err := t.store.CreateSession(ctx, s); err != nil {
		return nil, fmt.Errorf("create session for user %s: %w", userID, err)
	}

	telemetry.SessionsStartedTotal.WithLabelValues(s.SessionType).Inc()
	slog.InfoContext(ctx, "session started",
		"session_id", s.SessionID,
		"user_id", userID,
		"session_type", s.SessionType,
		"device_type", s.DeviceType,
		"browser", s.Browser,
	)
	return s, nil
}

// GetSession returns a session by ID, or nil if it does not exist
func (t *Tracker) GetSession(ctx context.Context, sessionID string) (*models.Session, error) {
	s, err := t.store.GetSessionByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return s, nil
}

// EndSession ends userID's active session sessionID. Ending a session that
// does not exist, belongs to someone else or already ended is a no-op.
func (t *Tracker) EndSession(ctx context.Context, userID, sessionID string) (EndResult, error) {
	if sessionID == "" {
		return EndResult{}, nil
	}

	s, err := t.store.GetActiveSession(ctx, sessionID, userID)
	if err != nil {
		return EndResult{}, fmt.Errorf("look up session %s: %w", sessionID, err)
	}
	if s == nil {
		return EndResult{}, nil
	}

	logout := t.now()
	duration := int64(logout.Sub(s.LoginTime) / time.Second)
	if duration < 0 {
		duration = 0
	}

	ended, err := t.store.EndSession(ctx, sessionID, logout, duration)
	if err != nil {
		return EndResult{}, fmt.Errorf("end session %s: %w", sessionID, err)
	}
	if !ended {
		return EndResult{}, nil
	}

	telemetry.SessionsEndedTotal.WithLabelValues(s.SessionType).Inc()
	slog.InfoContext(ctx, "session ended", "session_id", sessionID, "user_id", userID, "duration_seconds", duration)
	return EndResult{
		Ended:           true,
		SessionID:       sessionID,
		DurationSeconds: duration,
		LogoutTime:      logout,
	}, nil
}

// GetActiveSessions lists active sessions, newest first
func (t *Tracker) GetActiveSessions(ctx context.Context, sessionType *string) ([]*models.SessionWithUser, error) {
	sessions, err := t.store.ListActiveSessions(ctx, sessionType)
	if err != nil {
		return nil, fmt.Errorf("list active sessions: %w", err)
	}
	return sessions, nil
}

// GetAllSessions lists the most recent sessions of every user
func (t *Tracker) GetAllSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error) {
	sessions, err := t.store.ListSessions(ctx, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// GetUserSessions lists one user's most recent sessions
func (t *Tracker) GetUserSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	sessions, err := t.store.ListUserSessions(ctx, userID, normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list sessions for user %s: %w", userID, err)
	}
	return sessions, nil
}

// GetSessionStats aggregates session counts. It never fails: each aggregate
// that cannot be computed is logged and left at its zero value.
func (t *Tracker) GetSessionStats(ctx context.Context, sessionType *string) Stats {
	stats := Stats{
		DeviceTypes: map[string]int64{},
		Browsers:    map[string]int64{},
	}

	totals, err := t.store.SessionTotals(ctx, sessionType)
	if err != nil {
		slog.WarnContext(ctx, "session stats: totals unavailable", "error", err)
	} else {
		stats.TotalSessions = totals.Total
		stats.ActiveSessions = totals.Active
		stats.AvgSessionTimeSeconds = int64(math.Round(totals.AvgDurationSeconds))
	}

	if devices, err := t.store.CountSessionsByDeviceType(ctx, sessionType); err != nil {
		slog.WarnContext(ctx, "session stats: device breakdown unavailable", "error", err)
	} else {
		for _, g := range devices {
			stats.DeviceTypes[g.Key] = g.Count
		}
	}

	if browsers, err := t.store.CountSessionsByBrowser(ctx, sessionType); err != nil {
		slog.WarnContext(ctx, "session stats: browser breakdown unavailable", "error", err)
	} else {
		for _, g := range browsers {
			stats.Browsers[g.Key] = g.Count
		}
	}

	return stats
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
