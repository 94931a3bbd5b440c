package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servicehub/backoffice/internal/db/models"
)

const sessionColumns = `session_id, user_id, session_type, ip_address, user_agent, device_type, browser, os,
	login_time, logout_time, duration_seconds, is_active`

const sessionWithUserSelect = `
	SELECT s.session_id, s.user_id, s.session_type, s.ip_address, s.user_agent, s.device_type, s.browser, s.os,
	       s.login_time, s.logout_time, s.duration_seconds, s.is_active,
	       u.username, u.email
	FROM user_sessions s
	LEFT JOIN users u ON u.id = s.user_id
`

// SessionRepository handles login session database operations
type SessionRepository struct {
	db *sqlx.DB
}

// NewSessionRepository creates a new SessionRepository
func NewSessionRepository(db *sqlx.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// CreateSession inserts an active session, assigning its ID and login time
func (r *SessionRepository) CreateSession(ctx context.Context, s *models.Session) error {
	s.SessionID = uuid.New().String()
	s.LoginTime = time.Now().UTC()
	s.IsActive = true
	s.LogoutTime = nil
	s.DurationSeconds = nil

	query := `
		INSERT INTO user_sessions (` + sessionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, NULL, NULL, true)
	`
	_, err := r.db.ExecContext(ctx, query,
		s.SessionID,
		s.UserID,
		s.SessionType,
		s.IPAddress,
		s.UserAgent,
		s.DeviceType,
		s.Browser,
		s.OS,
		s.LoginTime,
	)
	return err
}

// GetSessionByID retrieves a session regardless of its state
func (r *SessionRepository) GetSessionByID(ctx context.Context, sessionID string) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.GetContext(ctx, s, `SELECT `+sessionColumns+` FROM user_sessions WHERE session_id = $1`, sessionID)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// GetActiveSession retrieves a session only if it belongs to userID and is still active
func (r *SessionRepository) GetActiveSession(ctx context.Context, sessionID, userID string) (*models.Session, error) {
	s := &models.Session{}
	err := r.db.GetContext(ctx, s,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE session_id = $1 AND user_id = $2 AND is_active = true`,
		sessionID, userID)
	if err != nil {
		return nil, notFound(err)
	}
	return s, nil
}

// EndSession closes an active session. It reports false when the session was
// already ended, which makes concurrent logouts end a session exactly once.
func (r *SessionRepository) EndSession(ctx context.Context, sessionID string, logoutTime time.Time, durationSeconds int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `
		UPDATE user_sessions
		SET logout_time = $2, duration_seconds = $3, is_active = false
		WHERE session_id = $1 AND is_active = true
	`, sessionID, logoutTime, durationSeconds)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListActiveSessions returns active sessions, newest login first, optionally
// restricted to one session type
func (r *SessionRepository) ListActiveSessions(ctx context.Context, sessionType *string) ([]*models.SessionWithUser, error) {
	query := sessionWithUserSelect + ` WHERE s.is_active = true`
	args := make([]interface{}, 0, 1)
	if sessionType != nil {
		query += ` AND s.session_type = $1`
		args = append(args, *sessionType)
	}
	query += ` ORDER BY s.login_time DESC`

	sessions := make([]*models.SessionWithUser, 0)
	err := r.db.SelectContext(ctx, &sessions, query, args...)
	return sessions, err
}

// ListSessions returns the most recent sessions of every user
func (r *SessionRepository) ListSessions(ctx context.Context, limit int) ([]*models.SessionWithUser, error) {
	sessions := make([]*models.SessionWithUser, 0)
	err := r.db.SelectContext(ctx, &sessions, sessionWithUserSelect+` ORDER BY s.login_time DESC LIMIT $1`, limit)
	return sessions, err
}

// ListUserSessions returns one user's most recent sessions
func (r *SessionRepository) ListUserSessions(ctx context.Context, userID string, limit int) ([]*models.Session, error) {
	sessions := make([]*models.Session, 0)
	err := r.db.SelectContext(ctx, &sessions,
		`SELECT `+sessionColumns+` FROM user_sessions WHERE user_id = $1 ORDER BY login_time DESC LIMIT $2`,
		userID, limit)
	return sessions, err
}

// SessionTotals computes total, active and mean ended-session duration. Only
// ended sessions with a recorded duration count towards the average.
func (r *SessionRepository) SessionTotals(ctx context.Context, sessionType *string) (models.SessionTotals, error) {
	query := `
		SELECT COUNT(*) AS total,
		       COUNT(*) FILTER (WHERE is_active) AS active,
		       COALESCE(AVG(duration_seconds) FILTER (WHERE NOT is_active AND duration_seconds IS NOT NULL), 0) AS avg_duration
		FROM user_sessions
	`
	args := make([]interface{}, 0, 1)
	if sessionType != nil {
		query += ` WHERE session_type = $1`
		args = append(args, *sessionType)
	}

	var totals models.SessionTotals
	err := r.db.GetContext(ctx, &totals, query, args...)
	return totals, err
}

// CountSessionsByDeviceType groups sessions by detected device type
func (r *SessionRepository) CountSessionsByDeviceType(ctx context.Context, sessionType *string) ([]models.GroupCount, error) {
	return r.countBy(ctx, "device_type", sessionType)
}

// CountSessionsByBrowser groups sessions by detected browser
func (r *SessionRepository) CountSessionsByBrowser(ctx context.Context, sessionType *string) ([]models.GroupCount, error) {
	return r.countBy(ctx, "browser", sessionType)
}

// countBy must only be called with a fixed column name.
func (r *SessionRepository) countBy(ctx context.Context, column string, sessionType *string) ([]models.GroupCount, error) {
	query := `SELECT ` + column + ` AS key, COUNT(*) AS count FROM user_sessions`
	args := make([]interface{}, 0, 1)
	if sessionType != nil {
		query += ` WHERE session_type = $1`
		args = append(args, *sessionType)
	}
	query += ` GROUP BY ` + column + ` ORDER BY count DESC`

	counts := make([]models.GroupCount, 0)
	err := r.db.SelectContext(ctx, &counts, query, args...)
	return counts, err
}
