// Package models - audit_log.go defines the append-only audit trail entry.
package models

import "time"

// Audit actions
const (
	AuditActionInsert = "insert"
	AuditActionUpdate = "update"
	AuditActionDelete = "delete"
)

// AuditLog is one entry in the audit trail. ChangedFields holds the inserted
// state, the field-level diff of an update, or the deleted state. UserID is
// nil for system actions.
type AuditLog struct {
	ID            string    `db:"id" json:"id"`
	TableName     string    `db:"table_name" json:"table_name"`
	Action        string    `db:"action" json:"action"`
	RecordID      string    `db:"record_id" json:"record_id"`
	ChangedFields JSONMap   `db:"changed_fields" json:"changed_fields"`
	UserID        *string   `db:"user_id" json:"user_id"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}

// AuditLogWithActor is an audit entry joined with the acting user's display fields
type AuditLogWithActor struct {
	AuditLog
	ActorSummary
}
