package sync

import (
	"context"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	clocktesting "k8s.io/utils/clock/testing"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
)

func descriptor(id string, kind source.Kind, priority int) *source.Descriptor {
	return &source.Descriptor{
		ID:       id,
		Name:     id,
		Kind:     kind,
		Priority: priority,
		Active:   true,
	}
}

func sourceIDs(tasks []*status.UpdateTask) []string {
	ids := make([]string, 0, len(tasks))
	for _, t := range tasks {
		ids = append(ids, t.SourceID)
	}
	return ids
}

func TestQueue_Enqueue(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	q := NewQueue(WithQueueClock(clocktesting.NewFakePassiveClock(now)))

	task, err := q.Enqueue(descriptor("great-league", source.KindRankings, 0), status.TriggerManual)
	require.NoError(t, err)

	assert.NotEmpty(t, task.ID)
	assert.Equal(t, "great-league", task.SourceID)
	assert.Equal(t, "rankings", task.Kind)
	assert.Equal(t, 8, task.Priority, "kind priority applies without an explicit one")
	assert.Equal(t, status.TriggerManual, task.Trigger)
	assert.Equal(t, status.TaskStatusPending, task.Status)
	assert.Equal(t, now, task.EnqueuedAt)
	assert.Equal(t, 1, q.Len())
}

func TestQueue_Ordering(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		sources []*source.Descriptor
		want    []string
	}{
		{
			name: "higher priority first",
			sources: []*source.Descriptor{
				descriptor("tiers", source.KindTiers, 6),
				descriptor("gm", source.KindGamemaster, 10),
				descriptor("rank", source.KindRankings, 8),
			},
			want: []string{"gm", "rank", "tiers"},
		},
		{
			name: "fifo among equal priorities",
			sources: []*source.Descriptor{
				descriptor("great", source.KindRankings, 8),
				descriptor("ultra", source.KindRankings, 8),
				descriptor("master", source.KindRankings, 8),
			},
			want: []string{"great", "ultra", "master"},
		},
		{
			name: "mixed",
			sources: []*source.Descriptor{
				descriptor("great", source.KindRankings, 8),
				descriptor("tiers", source.KindTiers, 6),
				descriptor("gm", source.KindGamemaster, 10),
				descriptor("ultra", source.KindRankings, 8),
				descriptor("custom", source.KindRankings, 1),
			},
			want: []string{"gm", "great", "ultra", "tiers", "custom"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			q := NewQueue()
			for _, s := range tt.sources {
				_, err := q.Enqueue(s, status.TriggerScheduled)
				require.NoError(t, err)
			}

			assert.Equal(t, tt.want, sourceIDs(q.Snapshot()))

			var got []string
			for {
				task, ok := q.Dequeue()
				if !ok {
					break
				}
				got = append(got, task.SourceID)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestQueue_SnapshotIsCopy(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	_, err := q.Enqueue(descriptor("gm", source.KindGamemaster, 10), status.TriggerScheduled)
	require.NoError(t, err)

	snap := q.Snapshot()
	snap[0].Status = status.TaskStatusFailed

	assert.Equal(t, status.TaskStatusPending, q.Snapshot()[0].Status)
}

func TestQueue_Close(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	_, err := q.Enqueue(descriptor("gm", source.KindGamemaster, 10), status.TriggerScheduled)
	require.NoError(t, err)

	q.Close()

	_, err = q.Enqueue(descriptor("rank", source.KindRankings, 8), status.TriggerScheduled)
	require.ErrorIs(t, err, ErrQueueClosed)

	var drained []string
	assert.True(t, q.Drain(context.Background(), func(_ context.Context, task *status.UpdateTask) {
		drained = append(drained, task.SourceID)
	}))
	assert.Equal(t, []string{"gm"}, drained)
}

func TestQueue_DrainIsExclusive(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	_, err := q.Enqueue(descriptor("gm", source.KindGamemaster, 10), status.TriggerScheduled)
	require.NoError(t, err)

	entered := make(chan struct{})
	release := make(chan struct{})
	done := make(chan bool)

	go func() {
		done <- q.Drain(context.Background(), func(context.Context, *status.UpdateTask) {
			close(entered)
			<-release
		})
	}()

	<-entered
	assert.True(t, q.Draining())
	assert.False(t, q.Drain(context.Background(), func(context.Context, *status.UpdateTask) {
		t.Error("second drain must not run tasks")
	}))

	close(release)
	assert.True(t, <-done)
	assert.False(t, q.Draining())
}

func TestQueue_DrainPicksUpTasksEnqueuedMeanwhile(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	_, err := q.Enqueue(descriptor("rank", source.KindRankings, 8), status.TriggerScheduled)
	require.NoError(t, err)

	var mu gosync.Mutex
	var order []string
	q.Drain(context.Background(), func(_ context.Context, task *status.UpdateTask) {
		mu.Lock()
		order = append(order, task.SourceID)
		mu.Unlock()

		if task.SourceID == "rank" {
			_, err := q.Enqueue(descriptor("tiers", source.KindTiers, 6), status.TriggerScheduled)
			assert.NoError(t, err)
			_, err = q.Enqueue(descriptor("gm", source.KindGamemaster, 10), status.TriggerScheduled)
			assert.NoError(t, err)
		}
	})

	assert.Equal(t, []string{"rank", "gm", "tiers"}, order)
	assert.Zero(t, q.Len())
}

func TestQueue_DrainStopsOnCancel(t *testing.T) {
	t.Parallel()

	q := NewQueue()
	for _, id := range []string{"great", "ultra", "master"} {
		_, err := q.Enqueue(descriptor(id, source.KindRankings, 8), status.TriggerScheduled)
		require.NoError(t, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	var ran []string
	q.Drain(ctx, func(_ context.Context, task *status.UpdateTask) {
		ran = append(ran, task.SourceID)
		cancel()
	})

	assert.Equal(t, []string{"great"}, ran)
	assert.Equal(t, []string{"ultra", "master"}, sourceIDs(q.Snapshot()))
}
