// Package analytics records user actions against login sessions and builds
// the admin dashboard aggregates from them.
package analytics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/sessions"
	"github.com/servicehub/backoffice/internal/telemetry"
)

const (
	// DefaultUserEventsLimit applies to per-user event listings
	DefaultUserEventsLimit = 50
	// DefaultSessionsLimit applies to session listings
	DefaultSessionsLimit = 100

	maxListLimit       = 1000
	dashboardTopUsers  = 10
	dashboardTopPages  = 10
	dashboardRecentCap = 20
)

// Store persists events and computes aggregates over them
type Store interface {
	CreateEvent(ctx context.Context, e *models.AnalyticsEvent) error
	ListUserEvents(ctx context.Context, userID string, limit int) ([]*models.AnalyticsEvent, error)
	CountByActionType(ctx context.Context) ([]models.ActionTypeCount, error)
	TopUsers(ctx context.Context, limit int) ([]models.UserActivityCount, error)
	TopPages(ctx context.Context, limit int) ([]models.PageVisitCount, error)
	RecentEvents(ctx context.Context, limit int) ([]*models.AnalyticsEventWithActor, error)
	ListActionData(ctx context.Context) ([][]byte, error)
}

// SessionTracker is the part of the session tracker analytics depends on
type SessionTracker interface {
	GetSession(ctx context.Context, sessionID string) (*models.Session, error)
	CreateSession(ctx context.Context, userID string, meta sessions.RequestMeta, sessionType string) (*models.Session, error)
	GetAllSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error)
}

// TrackRequest describes one action to record. Source defaults to the
// recorder's default source. Meta is used only if a session has to be
// synthesized.
type TrackRequest struct {
	UserID     string
	SessionID  string
	Page       string
	ActionType string
	ActionData map[string]any
	Source     string
	Meta       sessions.RequestMeta
}

// Dashboard is the admin analytics overview
type Dashboard struct {
	ActionTypes     []models.ActionTypeCount          `json:"action_types"`
	TopUsers        []models.UserActivityCount        `json:"top_users"`
	TopPages        []models.PageVisitCount           `json:"top_pages"`
	RecentEvents    []*models.AnalyticsEventWithActor `json:"recent_events"`
	SourceBreakdown map[string]int64                  `json:"source_breakdown"`
}

// Recorder tracks analytics events
type Recorder struct {
	store         Store
	sessions      SessionTracker
	defaultSource string
}

// NewRecorder creates a Recorder. An empty defaultSource means admin.
func NewRecorder(store Store, tracker SessionTracker, defaultSource string) *Recorder {
	if defaultSource == "" {
		defaultSource = SourceAdmin
	}
	return &Recorder{store: store, sessions: tracker, defaultSource: defaultSource}
}

// Track records one event. It never fails the caller: problems are logged,
// counted and reported through the returned Outcome. When the referenced
// session does not exist a new one is opened for the user first, so every
// stored event points at a real session.
func (r *Recorder) Track(ctx context.Context, req TrackRequest) besteffort.Outcome {
	source := req.Source
	if source == "" {
		source = r.defaultSource
	}

	out := besteffort.Do("analytics.track", func() (besteffort.Status, error) {
		if req.UserID == "" || req.ActionType == "" {
			return besteffort.StatusSkipped, nil
		}

		sessionID, err := r.resolveSession(ctx, req, source)
		if err != nil {
			return "", err
		}

		event := &models.AnalyticsEvent{
			UserID:      req.UserID,
			SessionID:   &sessionID,
			PageVisited: req.Page,
			ActionType:  req.ActionType,
			ActionData:  withSource(req.ActionData, source),
		}
		if err := r.store.CreateEvent(ctx, event); err != nil {
			return "", fmt.Errorf("store %s event for user %s: %w", req.ActionType, req.UserID, err)
		}
		return besteffort.StatusDone, nil
	})

	telemetry.AnalyticsEventsTotal.WithLabelValues(metricSource(source), string(out.Status)).Inc()
	return out
}

// resolveSession returns req.SessionID when it names a stored session, and
// otherwise the id of a freshly synthesized one tagged with source.
func (r *Recorder) resolveSession(ctx context.Context, req TrackRequest, source string) (string, error) {
	if _, err := uuid.Parse(req.SessionID); err == nil {
		s, err := r.sessions.GetSession(ctx, req.SessionID)
		if err == nil && s != nil {
			return s.SessionID, nil
		}
		if err != nil {
			slog.WarnContext(ctx, "analytics: session lookup failed, opening a new session",
				"session_id", req.SessionID, "error", err)
		}
	}

	meta := req.Meta
	meta.UserAgent = sessions.TagUserAgent(meta.UserAgent, source)
	s, err := r.sessions.CreateSession(ctx, req.UserID, meta, source)
	if err != nil {
		return "", fmt.Errorf("synthesize session: %w", err)
	}
	if s == nil {
		return "", errors.New("synthesize session: no session returned")
	}
	slog.InfoContext(ctx, "analytics: synthesized session",
		"user_id", req.UserID, "requested_session_id", req.SessionID, "session_id", s.SessionID, "source", source)
	return s.SessionID, nil
}

// GetUserAnalytics returns one user's newest events
func (r *Recorder) GetUserAnalytics(ctx context.Context, userID string, limit int) ([]*models.AnalyticsEvent, error) {
	events, err := r.store.ListUserEvents(ctx, userID, clampLimit(limit, DefaultUserEventsLimit))
	if err != nil {
		return nil, fmt.Errorf("list events for user %s: %w", userID, err)
	}
	return events, nil
}

// GetAllSessions returns the newest sessions with their owners' display fields
func (r *Recorder) GetAllSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error) {
	return r.sessions.GetAllSessions(ctx, clampLimit(limit, DefaultSessionsLimit))
}

// Dashboard computes the analytics overview. It never fails: each aggregate
// that cannot be computed is logged and left empty.
func (r *Recorder) Dashboard(ctx context.Context) Dashboard {
	d := Dashboard{
		ActionTypes:     []models.ActionTypeCount{},
		TopUsers:        []models.UserActivityCount{},
		TopPages:        []models.PageVisitCount{},
		RecentEvents:    []*models.AnalyticsEventWithActor{},
		SourceBreakdown: map[string]int64{SourceAdmin: 0, SourceMain: 0},
	}

	if v, err := r.store.CountByActionType(ctx); err != nil {
		slog.WarnContext(ctx, "analytics dashboard: action types unavailable", "error", err)
	} else if v != nil {
		d.ActionTypes = v
	}

	if v, err := r.store.TopUsers(ctx, dashboardTopUsers); err != nil {
		slog.WarnContext(ctx, "analytics dashboard: top users unavailable", "error", err)
	} else if v != nil {
		d.TopUsers = v
	}

	if v, err := r.store.TopPages(ctx, dashboardTopPages); err != nil {
		slog.WarnContext(ctx, "analytics dashboard: top pages unavailable", "error", err)
	} else if v != nil {
		d.TopPages = v
	}

	if v, err := r.store.RecentEvents(ctx, dashboardRecentCap); err != nil {
		slog.WarnContext(ctx, "analytics dashboard: recent events unavailable", "error", err)
	} else if v != nil {
		d.RecentEvents = v
	}

	if payloads, err := r.store.ListActionData(ctx); err != nil {
		slog.WarnContext(ctx, "analytics dashboard: source breakdown unavailable", "error", err)
	} else {
		for _, raw := range payloads {
			d.SourceBreakdown[sourceOf(raw)]++
		}
	}

	return d
}

func clampLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > maxListLimit {
		return maxListLimit
	}
	return limit
}
