// Package status defines the update task and audit record types shared by the
// queue, the processor and the audit log.
package status

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle phase of an update task
type TaskStatus string

const (
	// TaskStatusPending means the task is waiting in the queue
	TaskStatusPending TaskStatus = "pending"

	// TaskStatusInProgress means the processor is running the task
	TaskStatusInProgress TaskStatus = "in_progress"

	// TaskStatusCompleted means the task finished successfully
	TaskStatusCompleted TaskStatus = "completed"

	// TaskStatusFailed means the task finished with an error
	TaskStatusFailed TaskStatus = "failed"
)

// IsTerminal reports whether no further transition is allowed from s
func (s TaskStatus) IsTerminal() bool {
	return s == TaskStatusCompleted || s == TaskStatusFailed
}

// Trigger records what caused a task to be enqueued
type Trigger string

const (
	// TriggerScheduled is a task enqueued after a detected change
	TriggerScheduled Trigger = "scheduled"

	// TriggerManual is a task enqueued by a force update
	TriggerManual Trigger = "manual"

	// TriggerBootstrap is a task enqueued because the store was empty at startup
	TriggerBootstrap Trigger = "bootstrap"
)

// UpdateTask is one attempt to refresh local data from one source
type UpdateTask struct {
	ID         uuid.UUID  `json:"id"`
	SourceID   string     `json:"source_id"`
	SourceName string     `json:"source_name"`
	Kind       string     `json:"kind"`
	Priority   int        `json:"priority"`
	Trigger    Trigger    `json:"trigger"`
	Status     TaskStatus `json:"status"`
	EnqueuedAt time.Time  `json:"enqueued_at"`
	StartedAt  *time.Time `json:"started_at,omitempty"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`

	// Result counts, populated on completion
	Added    int `json:"added"`
	Modified int `json:"modified"`
	Skipped  int `json:"skipped"`

	// ErrorMessage is set only when Status is failed
	ErrorMessage string `json:"error_message,omitempty"`

	// VersionMarker is the remote marker fetched alongside the payload
	VersionMarker string `json:"version_marker,omitempty"`
}

// Clone returns a copy of the task that does not share timestamp pointers
func (t *UpdateTask) Clone() *UpdateTask {
	if t == nil {
		return nil
	}
	c := *t
	if t.StartedAt != nil {
		started := *t.StartedAt
		c.StartedAt = &started
	}
	if t.EndedAt != nil {
		ended := *t.EndedAt
		c.EndedAt = &ended
	}
	return &c
}

// Duration returns the time between start and end, or zero if either is unset
func (t *UpdateTask) Duration() time.Duration {
	if t.StartedAt == nil || t.EndedAt == nil {
		return 0
	}
	return t.EndedAt.Sub(*t.StartedAt)
}

// AuditRecord is the durable outcome of one update task
type AuditRecord struct {
	ID            int64      `json:"id"`
	TaskID        string     `json:"task_id"`
	SourceID      string     `json:"source_id"`
	DateBucket    string     `json:"date_bucket"`
	UpdateType    string     `json:"update_type"`
	Trigger       Trigger    `json:"trigger"`
	Status        TaskStatus `json:"status"`
	Added         int        `json:"added"`
	Modified      int        `json:"modified"`
	Skipped       int        `json:"skipped"`
	DurationMS    int64      `json:"duration_ms"`
	VersionMarker string     `json:"version_marker,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	EndedAt       *time.Time `json:"ended_at,omitempty"`
}

// DateBucketFormat is the layout of AuditRecord.DateBucket
const DateBucketFormat = "2006-01-02"

// NewAuditRecord builds the audit record describing the current state of task
func NewAuditRecord(task *UpdateTask) *AuditRecord {
	rec := &AuditRecord{
		TaskID:        task.ID.String(),
		SourceID:      task.SourceID,
		UpdateType:    task.Kind,
		Trigger:       task.Trigger,
		Status:        task.Status,
		Added:         task.Added,
		Modified:      task.Modified,
		Skipped:       task.Skipped,
		VersionMarker: task.VersionMarker,
		ErrorMessage:  task.ErrorMessage,
		DurationMS:    task.Duration().Milliseconds(),
	}
	if task.StartedAt != nil {
		rec.StartedAt = task.StartedAt.UTC()
		rec.DateBucket = rec.StartedAt.Format(DateBucketFormat)
	}
	if task.EndedAt != nil {
		ended := task.EndedAt.UTC()
		rec.EndedAt = &ended
	}
	return rec
}
