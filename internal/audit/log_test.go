package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"

	"github.com/pvpmeta/pvpmeta-server/internal/audit"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/store/storetest"
)

var start = time.Date(2026, 3, 1, 23, 59, 0, 0, time.UTC)

func startedTask(sourceID string) *status.UpdateTask {
	started := start
	return &status.UpdateTask{
		ID:         uuid.New(),
		SourceID:   sourceID,
		SourceName: sourceID,
		Kind:       "rankings",
		Priority:   8,
		Trigger:    status.TriggerScheduled,
		Status:     status.TaskStatusInProgress,
		EnqueuedAt: start.Add(-time.Minute),
		StartedAt:  &started,
	}
}

func finish(task *status.UpdateTask, st status.TaskStatus, marker, msg string) {
	ended := task.StartedAt.Add(1500 * time.Millisecond)
	task.EndedAt = &ended
	task.Status = st
	task.VersionMarker = marker
	task.ErrorMessage = msg
}

func TestLog_BeginFinish(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := audit.NewLog(storetest.New(t))

	task := startedTask("great-league")
	require.NoError(t, log.Begin(ctx, task))

	history, err := log.History(ctx, "great-league", 10)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, status.TaskStatusInProgress, history[0].Status)
	assert.Equal(t, "2026-03-01", history[0].DateBucket)
	assert.Nil(t, history[0].EndedAt)

	task.Added, task.Modified, task.Skipped = 3, 2, 1
	finish(task, status.TaskStatusCompleted, "sha256:abc", "")
	require.NoError(t, log.Finish(ctx, task))

	history, err = log.History(ctx, "great-league", 10)
	require.NoError(t, err)
	require.Len(t, history, 1, "finish updates the start record in place")

	rec := history[0]
	assert.Equal(t, task.ID.String(), rec.TaskID)
	assert.Equal(t, status.TaskStatusCompleted, rec.Status)
	assert.Equal(t, status.TriggerScheduled, rec.Trigger)
	assert.Equal(t, "rankings", rec.UpdateType)
	assert.Equal(t, 3, rec.Added)
	assert.Equal(t, 2, rec.Modified)
	assert.Equal(t, 1, rec.Skipped)
	assert.Equal(t, int64(1500), rec.DurationMS)
	assert.Equal(t, "sha256:abc", rec.VersionMarker)
	require.NotNil(t, rec.EndedAt)
	assert.WithinDuration(t, *task.EndedAt, *rec.EndedAt, time.Millisecond)
}

func TestLog_FinishWithoutBeginInserts(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := audit.NewLog(storetest.New(t))

	task := startedTask("tiers-great")
	finish(task, status.TaskStatusFailed, "", "fetch payload for source tiers-great: timeout")
	require.NoError(t, log.Finish(ctx, task))

	history, err := log.History(ctx, "tiers-great", 0)
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, status.TaskStatusFailed, history[0].Status)
	assert.Contains(t, history[0].ErrorMessage, "timeout")
}

func TestLog_LastCompleted(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := audit.NewLog(storetest.New(t))

	_, found, err := log.LastCompleted(ctx, "gm")
	require.NoError(t, err)
	assert.False(t, found)

	steps := []struct {
		status status.TaskStatus
		marker string
	}{
		{status.TaskStatusCompleted, "v1"},
		{status.TaskStatusCompleted, "v2"},
		{status.TaskStatusFailed, "v3"},
		{status.TaskStatusInProgress, ""},
	}
	for _, s := range steps {
		task := startedTask("gm")
		require.NoError(t, log.Begin(ctx, task))
		if s.status.IsTerminal() {
			finish(task, s.status, s.marker, "")
			require.NoError(t, log.Finish(ctx, task))
		}
	}

	// Other sources do not leak in
	other := startedTask("other")
	finish(other, status.TaskStatusCompleted, "v9", "")
	require.NoError(t, log.Finish(ctx, other))

	rec, found, err := log.LastCompleted(ctx, "gm")
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "v2", rec.VersionMarker)
}

func TestLog_HistoryAndRecent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	log := audit.NewLog(storetest.New(t))

	var ids []string
	for i := 0; i < 4; i++ {
		src := "a"
		if i%2 == 1 {
			src = "b"
		}
		task := startedTask(src)
		finish(task, status.TaskStatusCompleted, "", "")
		require.NoError(t, log.Finish(ctx, task))
		ids = append(ids, task.ID.String())
	}

	history, err := log.History(ctx, "a", 10)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, ids[2], history[0].TaskID, "newest first")
	assert.Equal(t, ids[0], history[1].TaskID)

	recent, err := log.Recent(ctx, 3)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, ids[3], recent[0].TaskID)
	assert.Equal(t, ids[1], recent[2].TaskID)
}

func TestLog_FinishError(t *testing.T) {
	t.Parallel()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	st := store.New(bun.NewDB(sqldb, sqlitedialect.New()))
	t.Cleanup(func() { _ = st.Close() })

	mock.ExpectExec("UPDATE update_audit").WillReturnError(errors.New("database is locked"))

	task := startedTask("gm")
	finish(task, status.TaskStatusCompleted, "v1", "")
	err = audit.NewLog(st).Finish(context.Background(), task)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to record end of task")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestLog_FinishFallsBackToInsert(t *testing.T) {
	t.Parallel()

	sqldb, mock, err := sqlmock.New()
	require.NoError(t, err)
	st := store.New(bun.NewDB(sqldb, sqlitedialect.New()))
	t.Cleanup(func() { _ = st.Close() })

	mock.ExpectExec("UPDATE update_audit").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("INSERT INTO update_audit").WillReturnResult(sqlmock.NewResult(1, 1))

	task := startedTask("gm")
	finish(task, status.TaskStatusFailed, "", "boom")
	require.NoError(t, audit.NewLog(st).Finish(context.Background(), task))
	require.NoError(t, mock.ExpectationsWereMet())
}
