package sync

import (
	"context"
	"errors"
	"sort"
	gosync "sync"
	"sync/atomic"

	"github.com/google/uuid"
	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

// ErrQueueClosed is returned by Enqueue after Close
var ErrQueueClosed = errors.New("update queue is closed")

// TaskFunc runs one dequeued task
type TaskFunc func(ctx context.Context, task *status.UpdateTask)

// Queue holds pending update tasks
type Queue struct {
	mu     gosync.Mutex
	tasks  []*status.UpdateTask
	closed bool

	draining atomic.Bool

	clock   clock.PassiveClock
	metrics *telemetry.UpdateMetrics
}

// QueueOption configures a Queue
type QueueOption func(*Queue)

// WithQueueClock sets the clock used to stamp EnqueuedAt
func WithQueueClock(c clock.PassiveClock) QueueOption {
	return func(q *Queue) {
		q.clock = c
	}
}

// WithQueueMetrics sets the metrics the queue reports its depth to
func WithQueueMetrics(m *telemetry.UpdateMetrics) QueueOption {
	return func(q *Queue) {
		q.metrics = m
	}
}

// NewQueue creates an empty queue
func NewQueue(opts ...QueueOption) *Queue {
	q := &Queue{clock: clock.RealClock{}}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue adds a pending task for src. The task is placed after every task
// of equal or higher priority. The returned task is a copy.
func (q *Queue) Enqueue(src *source.Descriptor, trigger status.Trigger) (*status.UpdateTask, error) {
	priority := src.Priority
	if priority <= 0 {
		priority = src.Kind.Priority()
	}

	task := &status.UpdateTask{
		ID:         uuid.New(),
		SourceID:   src.ID,
		SourceName: src.Name,
		Kind:       string(src.Kind),
		Priority:   priority,
		Trigger:    trigger,
		Status:     status.TaskStatusPending,
		EnqueuedAt: q.clock.Now().UTC(),
	}

	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil, ErrQueueClosed
	}
	idx := sort.Search(len(q.tasks), func(i int) bool {
		return q.tasks[i].Priority < priority
	})
	q.tasks = append(q.tasks, nil)
	copy(q.tasks[idx+1:], q.tasks[idx:])
	q.tasks[idx] = task
	depth := len(q.tasks)
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(context.Background(), depth)
	return task.Clone(), nil
}

// Dequeue removes and returns the highest priority task
func (q *Queue) Dequeue() (*status.UpdateTask, bool) {
	q.mu.Lock()
	if len(q.tasks) == 0 {
		q.mu.Unlock()
		return nil, false
	}
	task := q.tasks[0]
	q.tasks[0] = nil
	q.tasks = q.tasks[1:]
	depth := len(q.tasks)
	q.mu.Unlock()

	q.metrics.RecordQueueDepth(context.Background(), depth)
	return task, true
}

// Len returns the number of pending tasks
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.tasks)
}

// Snapshot returns copies of the pending tasks in dequeue order
func (q *Queue) Snapshot() []*status.UpdateTask {
	q.mu.Lock()
	defer q.mu.Unlock()

	out := make([]*status.UpdateTask, 0, len(q.tasks))
	for _, t := range q.tasks {
		out = append(out, t.Clone())
	}
	return out
}

// Close rejects further enqueues. Pending tasks can still be drained.
func (q *Queue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.closed = true
}

// Draining reports whether a drain loop is running
func (q *Queue) Draining() bool {
	return q.draining.Load()
}

// Drain runs fn for each task until the queue is empty or ctx is done. It
// returns false without doing anything when another drain is already
// running; that drain picks up tasks enqueued meanwhile.
func (q *Queue) Drain(ctx context.Context, fn TaskFunc) bool {
	if !q.draining.CompareAndSwap(false, true) {
		return false
	}

	for {
		for ctx.Err() == nil {
			task, ok := q.Dequeue()
			if !ok {
				break
			}
			fn(ctx, task)
		}
		q.draining.Store(false)

		// A task enqueued after the last empty Dequeue but before the flag
		// was released found the drain busy. Take it over unless another
		// drain already has.
		if ctx.Err() != nil || q.Len() == 0 {
			return true
		}
		if !q.draining.CompareAndSwap(false, true) {
			return true
		}
	}
}
