package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/servicehub/backoffice/internal/db/models"
)

// auditSelect joins every entry with its actor. The join is a LEFT JOIN so
// entries written by since-deleted users keep showing up.
const auditSelect = `
	SELECT a.id, a.table_name, a.action, a.record_id, a.changed_fields, a.user_id, a.created_at,
	       u.username, u.email, u.roles
	FROM audit_logs a
	LEFT JOIN users u ON u.id = a.user_id
`

// AuditRepository handles audit log database operations
type AuditRepository struct {
	db *sqlx.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *sqlx.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// CreateAuditLog appends an entry, assigning its ID and timestamp
func (r *AuditRepository) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	log.ID = uuid.New().String()
	log.CreatedAt = time.Now().UTC()

	query := `
		INSERT INTO audit_logs (id, table_name, action, record_id, changed_fields, user_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := r.db.ExecContext(ctx, query,
		log.ID,
		log.TableName,
		log.Action,
		log.RecordID,
		log.ChangedFields,
		log.UserID,
		log.CreatedAt,
	)
	return err
}

// ListRecentAuditLogs returns the newest entries first
func (r *AuditRepository) ListRecentAuditLogs(ctx context.Context, limit int) ([]*models.AuditLogWithActor, error) {
	logs := make([]*models.AuditLogWithActor, 0)
	err := r.db.SelectContext(ctx, &logs, auditSelect+` ORDER BY a.created_at DESC LIMIT $1`, limit)
	return logs, err
}

// ListAuditLogsByTable returns every entry for one table, newest first
func (r *AuditRepository) ListAuditLogsByTable(ctx context.Context, table string) ([]*models.AuditLogWithActor, error) {
	logs := make([]*models.AuditLogWithActor, 0)
	err := r.db.SelectContext(ctx, &logs, auditSelect+` WHERE a.table_name = $1 ORDER BY a.created_at DESC`, table)
	return logs, err
}

// ListAuditLogsByUser returns every entry written by one actor, newest first
func (r *AuditRepository) ListAuditLogsByUser(ctx context.Context, userID string) ([]*models.AuditLogWithActor, error) {
	logs := make([]*models.AuditLogWithActor, 0)
	err := r.db.SelectContext(ctx, &logs, auditSelect+` WHERE a.user_id = $1 ORDER BY a.created_at DESC`, userID)
	return logs, err
}

// DeleteAllAuditLogs purges the audit trail and reports how many entries were removed
func (r *AuditRepository) DeleteAllAuditLogs(ctx context.Context) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM audit_logs`)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
