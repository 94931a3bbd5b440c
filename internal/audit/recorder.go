package audit

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/servicehub/backoffice/internal/besteffort"
	"github.com/servicehub/backoffice/internal/db/models"
	"github.com/servicehub/backoffice/internal/telemetry"
)

const (
	// DefaultListLimit is used when a caller asks for recent entries without a limit
	DefaultListLimit = 100
	// MaxListLimit caps recent-entry listings
	MaxListLimit = 1000

	shipTimeout = 5 * time.Second
)

// Action is the kind of mutation an audit entry describes
type Action string

const (
	ActionInsert Action = models.AuditActionInsert
	ActionUpdate Action = models.AuditActionUpdate
	ActionDelete Action = models.AuditActionDelete
)

// ParseAction maps a raw action name onto a known Action
func ParseAction(s string) (Action, bool) {
	switch a := Action(s); a {
	case ActionInsert, ActionUpdate, ActionDelete:
		return a, true
	}
	return "", false
}

// Mutation describes one completed change to an audited table. OldState is
// required for updates and deletes; NewState for inserts and updates.
type Mutation struct {
	Table    string
	Action   Action
	RecordID string
	NewState Snapshot
	OldState Snapshot
	ActorID  *string
}

// Store persists and queries audit entries
type Store interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
	ListRecentAuditLogs(ctx context.Context, limit int) ([]*models.AuditLogWithActor, error)
	ListAuditLogsByTable(ctx context.Context, table string) ([]*models.AuditLogWithActor, error)
	ListAuditLogsByUser(ctx context.Context, userID string) ([]*models.AuditLogWithActor, error)
	DeleteAllAuditLogs(ctx context.Context) (int64, error)
}

// Recorder turns mutations into audit entries. Writing is best-effort: a
// failed write is logged and counted but never fails the mutation itself.
type Recorder struct {
	store   Store
	shipper Shipper
	enabled bool
}

// NewRecorder creates an enabled Recorder. shipper may be nil.
func NewRecorder(store Store, shipper Shipper) *Recorder {
	return &Recorder{store: store, shipper: shipper, enabled: true}
}

// SetEnabled turns recording on or off. Reads are unaffected.
func (r *Recorder) SetEnabled(enabled bool) {
	r.enabled = enabled
}

// Record writes one audit entry for m. Updates that change nothing but
// bookkeeping fields, unknown actions and empty states are skipped.
func (r *Recorder) Record(ctx context.Context, m Mutation) besteffort.Outcome {
	return besteffort.Do("audit.record", func() (besteffort.Status, error) {
		if !r.enabled {
			return besteffort.StatusSkipped, nil
		}

		detail := detailFor(m)
		if len(detail) == 0 {
			telemetry.AuditEntriesTotal.WithLabelValues(m.Table, string(m.Action), "skipped").Inc()
			return besteffort.StatusSkipped, nil
		}

		entry := &models.AuditLog{
			TableName:     m.Table,
			Action:        string(m.Action),
			RecordID:      m.RecordID,
			ChangedFields: models.JSONMap(detail),
			UserID:        m.ActorID,
		}
		if err := r.store.CreateAuditLog(ctx, entry); err != nil {
			telemetry.AuditEntriesTotal.WithLabelValues(m.Table, string(m.Action), "failed").Inc()
			return besteffort.StatusFailed, fmt.Errorf("write audit log for %s %s %s: %w", m.Table, m.Action, m.RecordID, err)
		}
		telemetry.AuditEntriesTotal.WithLabelValues(m.Table, string(m.Action), "written").Inc()

		r.ship(entry)
		return besteffort.StatusDone, nil
	})
}

// LogDatabaseAction records a mutation described with loosely typed states:
// details is the new state and operationDetails the previous one. Both are
// captured through SnapshotOf.
func (r *Recorder) LogDatabaseAction(ctx context.Context, table, action, recordID string, details, operationDetails any, userID *string) besteffort.Outcome {
	a, ok := ParseAction(action)
	if !ok {
		slog.WarnContext(ctx, "ignoring audit record with unknown action", "table", table, "action", action, "record_id", recordID)
		return besteffort.Skipped()
	}
	return r.Record(ctx, Mutation{
		Table:    table,
		Action:   a,
		RecordID: recordID,
		NewState: SnapshotOf(details),
		OldState: SnapshotOf(operationDetails),
		ActorID:  userID,
	})
}

func detailFor(m Mutation) Changes {
	switch m.Action {
	case ActionInsert:
		return Strip(m.NewState)
	case ActionUpdate:
		changes, ok := Diff(m.OldState, m.NewState)
		if !ok {
			return nil
		}
		return changes
	case ActionDelete:
		if m.OldState != nil {
			return Strip(m.OldState)
		}
		return Strip(m.NewState)
	default:
		slog.Warn("ignoring audit record with unknown action", "table", m.Table, "action", m.Action)
		return nil
	}
}

func (r *Recorder) ship(entry *models.AuditLog) {
	if r.shipper == nil {
		return
	}
	wire := EntryFromLog(entry)
	besteffort.Go("audit.ship", func() {
		ctx, cancel := context.WithTimeout(context.Background(), shipTimeout)
		defer cancel()
		if err := r.shipper.Ship(ctx, wire); err != nil {
			slog.Error("failed to ship audit entry", "entry_id", wire.ID, "error", err)
			telemetry.BestEffortFailuresTotal.WithLabelValues("audit.ship").Inc()
		}
	})
}

// NormalizeLimit applies the listing default and cap
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}

// ListRecent returns the newest entries across all tables
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]*models.AuditLogWithActor, error) {
	logs, err := r.store.ListRecentAuditLogs(ctx, NormalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("list recent audit logs: %w", err)
	}
	return logs, nil
}

// ListByTable returns every entry for one table, newest first
func (r *Recorder) ListByTable(ctx context.Context, table string) ([]*models.AuditLogWithActor, error) {
	logs, err := r.store.ListAuditLogsByTable(ctx, table)
	if err != nil {
		return nil, fmt.Errorf("list audit logs for table %s: %w", table, err)
	}
	return logs, nil
}

// ListByUser returns every entry written by one actor, newest first
func (r *Recorder) ListByUser(ctx context.Context, userID string) ([]*models.AuditLogWithActor, error) {
	logs, err := r.store.ListAuditLogsByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list audit logs for user %s: %w", userID, err)
	}
	return logs, nil
}

// DeleteAll purges the whole audit trail
func (r *Recorder) DeleteAll(ctx context.Context) (int64, error) {
	n, err := r.store.DeleteAllAuditLogs(ctx)
	if err != nil {
		return 0, fmt.Errorf("delete audit logs: %w", err)
	}
	slog.WarnContext(ctx, "audit trail purged", "deleted", n)
	return n, nil
}
