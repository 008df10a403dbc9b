// Package audit persists the outcome of every update task. A record is
// inserted when the task starts and updated in place once it reaches a
// terminal status; records are never deleted.
package audit

import (
	"context"
	"fmt"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
)

// DefaultLimit bounds history queries without an explicit limit
const DefaultLimit = 50

const insertSQL = `INSERT INTO update_audit
	(task_id, source_id, date_bucket, update_type, trigger_kind, status,
	 added, modified, skipped, duration_ms, version_marker, error_message, started_at, ended_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

const finishSQL = `UPDATE update_audit SET
	status = ?, added = ?, modified = ?, skipped = ?, duration_ms = ?,
	version_marker = ?, error_message = ?, ended_at = ?
WHERE task_id = ?`

// Log reads and writes audit records
type Log struct {
	q store.Querier
}

// NewLog creates an audit log over q
func NewLog(q store.Querier) *Log {
	return &Log{q: q}
}

// Begin inserts the in_progress record of a started task
func (l *Log) Begin(ctx context.Context, task *status.UpdateTask) error {
	if err := l.insert(ctx, status.NewAuditRecord(task)); err != nil {
		return fmt.Errorf("failed to record start of task %s: %w", task.ID, err)
	}
	return nil
}

// Finish writes the terminal state of task. When the start record is
// missing the full record is inserted instead.
func (l *Log) Finish(ctx context.Context, task *status.UpdateTask) error {
	rec := status.NewAuditRecord(task)

	res, err := l.q.Run(ctx, finishSQL,
		string(rec.Status), rec.Added, rec.Modified, rec.Skipped, rec.DurationMS,
		rec.VersionMarker, rec.ErrorMessage, rec.EndedAt, rec.TaskID,
	)
	if err != nil {
		return fmt.Errorf("failed to record end of task %s: %w", task.ID, err)
	}
	if res.Changes > 0 {
		return nil
	}

	if err := l.insert(ctx, rec); err != nil {
		return fmt.Errorf("failed to record end of task %s: %w", task.ID, err)
	}
	return nil
}

func (l *Log) insert(ctx context.Context, rec *status.AuditRecord) error {
	_, err := l.q.Run(ctx, insertSQL,
		rec.TaskID, rec.SourceID, rec.DateBucket, rec.UpdateType, string(rec.Trigger), string(rec.Status),
		rec.Added, rec.Modified, rec.Skipped, rec.DurationMS, rec.VersionMarker, rec.ErrorMessage,
		rec.StartedAt, rec.EndedAt,
	)
	return err
}

// LastCompleted returns the most recent completed record of a source
func (l *Log) LastCompleted(ctx context.Context, sourceID string) (*status.AuditRecord, bool, error) {
	var row database.AuditEntry
	found, err := l.q.Get(ctx, &row,
		"SELECT * FROM update_audit WHERE source_id = ? AND status = ? ORDER BY id DESC LIMIT 1",
		sourceID, string(status.TaskStatusCompleted),
	)
	if err != nil {
		return nil, false, fmt.Errorf("failed to read last completed update of %s: %w", sourceID, err)
	}
	if !found {
		return nil, false, nil
	}
	return toRecord(&row), true, nil
}

// History returns the newest records of a source, newest first
func (l *Log) History(ctx context.Context, sourceID string, limit int) ([]*status.AuditRecord, error) {
	var rows []database.AuditEntry
	err := l.q.All(ctx, &rows,
		"SELECT * FROM update_audit WHERE source_id = ? ORDER BY id DESC LIMIT ?",
		sourceID, normalizeLimit(limit),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read update history of %s: %w", sourceID, err)
	}
	return toRecords(rows), nil
}

// Recent returns the newest records across all sources, newest first
func (l *Log) Recent(ctx context.Context, limit int) ([]*status.AuditRecord, error) {
	var rows []database.AuditEntry
	err := l.q.All(ctx, &rows, "SELECT * FROM update_audit ORDER BY id DESC LIMIT ?", normalizeLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("failed to read update history: %w", err)
	}
	return toRecords(rows), nil
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultLimit
	}
	return limit
}

func toRecords(rows []database.AuditEntry) []*status.AuditRecord {
	out := make([]*status.AuditRecord, 0, len(rows))
	for i := range rows {
		out = append(out, toRecord(&rows[i]))
	}
	return out
}

func toRecord(row *database.AuditEntry) *status.AuditRecord {
	return &status.AuditRecord{
		ID:            row.ID,
		TaskID:        row.TaskID,
		SourceID:      row.SourceID,
		DateBucket:    row.DateBucket,
		UpdateType:    row.UpdateType,
		Trigger:       status.Trigger(row.TriggerKind),
		Status:        status.TaskStatus(row.Status),
		Added:         row.Added,
		Modified:      row.Modified,
		Skipped:       row.Skipped,
		DurationMS:    row.DurationMS,
		VersionMarker: row.VersionMarker,
		ErrorMessage:  row.ErrorMessage,
		StartedAt:     row.StartedAt,
		EndedAt:       row.EndedAt,
	}
}
