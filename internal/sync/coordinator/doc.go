// Package coordinator schedules change detection for every configured
// source and feeds the update queue.
//
// Each source gets its own goroutine. The first check fires after the
// startup grace delay, later checks at the source interval. A detected
// change enqueues a scheduled task and kicks an asynchronous drain of the
// queue; kicks while a drain is running are absorbed by that drain.
//
// Inactive sources keep their loop running and are skipped at check time,
// so toggling the active flag takes effect at the next tick.
//
// # Bootstrap
//
// Start first checks whether the store holds any species. When it is empty
// every active source is enqueued with the bootstrap trigger and the queue
// is drained synchronously. Ready reports true once this has finished.
//
// # Force update
//
// ForceUpdate enqueues every active source with the manual trigger,
// bypassing change detection, and kicks a drain.
//
// # Shutdown
//
// Stop closes the queue and cancels the coordinator context. Per-source
// loops return, the in-flight fetch is cancelled and Start returns after
// every drain exited. ForceUpdate fails with sync.ErrQueueClosed from then
// on, which the admin API reports as 503.
package coordinator
