// Package sync runs the update pipeline for external sources.
//
// # Components
//
//   - Queue: pending update tasks ordered by priority, FIFO among equal
//     priorities. Enqueue is safe from any goroutine; only one Drain loop runs
//     at a time.
//   - Detector: resolves the current remote version marker of a source and
//     compares it to the marker of the last completed audit record.
//   - Processor: the single worker that drains the queue. Each task is
//     fetched, applied in one store transaction, audited and announced on
//     the event bus before the next task is dequeued.
//
// The coordinator subpackage schedules detection per source and exposes the
// force update and bootstrap entry points.
//
// # Failure handling
//
// A failed resolution during detection is reported as "no change" and
// retried at the next tick. A failed task is recorded as failed and never
// re-enqueued; the source marker only advances on completion.
package sync
