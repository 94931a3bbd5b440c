package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servicehub/backoffice/internal/db/models"
)

const eventColumns = `id, user_id, session_id, page_visited, action_type, action_data, created_at`

// AnalyticsRepository handles analytics event database operations
type AnalyticsRepository struct {
	db *sqlx.DB
}

// NewAnalyticsRepository creates a new AnalyticsRepository
func NewAnalyticsRepository(db *sqlx.DB) *AnalyticsRepository {
	return &AnalyticsRepository{db: db}
}

// CreateEvent inserts an event, assigning its ID and timestamp
func (r *AnalyticsRepository) CreateEvent(ctx context.Context, e *models.AnalyticsEvent) error {
	e.ID = uuid.New().String()
	e.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO analytics_events (` + eventColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		e.ID,
		e.UserID,
		e.SessionID,
		e.PageVisited,
		e.ActionType,
		e.ActionData,
		e.CreatedAt,
	)
	return err
}

// ListUserEvents returns one user's newest events
func (r *AnalyticsRepository) ListUserEvents(ctx context.Context, userID string, limit int) ([]*models.AnalyticsEvent, error) {
	events := make([]*models.AnalyticsEvent, 0)
	err := r.db.SelectContext(ctx, &events,
		`SELECT `+eventColumns+` FROM analytics_events WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`,
		userID, limit)
	return events, err
}

// CountByActionType returns event counts per action type, most frequent first
func (r *AnalyticsRepository) CountByActionType(ctx context.Context) ([]models.ActionTypeCount, error) {
	counts := make([]models.ActionTypeCount, 0)
	err := r.db.SelectContext(ctx, &counts, `
		SELECT action_type, COUNT(*) AS count
		FROM analytics_events
		GROUP BY action_type
		ORDER BY count DESC
	`)
	return counts, err
}

// TopUsers returns the most active users by event count
func (r *AnalyticsRepository) TopUsers(ctx context.Context, limit int) ([]models.UserActivityCount, error) {
	users := make([]models.UserActivityCount, 0)
	err := r.db.SelectContext(ctx, &users, `
		SELECT e.user_id, u.username, COUNT(*) AS event_count
		FROM analytics_events e
		LEFT JOIN users u ON u.id = e.user_id
		GROUP BY e.user_id, u.username
		ORDER BY event_count DESC
		LIMIT $1
	`, limit)
	return users, err
}

// TopPages returns the most visited pages
func (r *AnalyticsRepository) TopPages(ctx context.Context, limit int) ([]models.PageVisitCount, error) {
	pages := make([]models.PageVisitCount, 0)
	err := r.db.SelectContext(ctx, &pages, `
		SELECT page_visited, COUNT(*) AS visit_count
		FROM analytics_events
		WHERE page_visited <> ''
		GROUP BY page_visited
		ORDER BY visit_count DESC
		LIMIT $1
	`, limit)
	return pages, err
}

// RecentEvents returns the newest events of every user with display fields
func (r *AnalyticsRepository) RecentEvents(ctx context.Context, limit int) ([]*models.AnalyticsEventWithActor, error) {
	events := make([]*models.AnalyticsEventWithActor, 0)
	err := r.db.SelectContext(ctx, &events, `
		SELECT e.id, e.user_id, e.session_id, e.page_visited, e.action_type, e.action_data, e.created_at,
		       u.username, u.firstname, u.lastname
		FROM analytics_events e
		LEFT JOIN users u ON u.id = e.user_id
		ORDER BY e.created_at DESC
		LIMIT $1
	`, limit)
	return events, err
}

// ListActionData returns the raw action_data payload of every event
func (r *AnalyticsRepository) ListActionData(ctx context.Context) ([][]byte, error) {
	payloads := make([][]byte, 0)
	err := r.db.SelectContext(ctx, &payloads, `SELECT action_data FROM analytics_events`)
	return payloads, err
}
