// Package events delivers update lifecycle notifications to in-process
// listeners.
package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/pvpmeta/pvpmeta-server/internal/status"
)

// Kind is the type of a lifecycle event
type Kind string

const (
	// UpdateStart is published when the processor starts a task
	UpdateStart Kind = "update_start"

	// UpdateComplete is published when a task completed
	UpdateComplete Kind = "update_complete"

	// UpdateError is published when a task failed
	UpdateError Kind = "update_error"
)

// Kinds lists every event kind
var Kinds = []Kind{UpdateStart, UpdateComplete, UpdateError}

// Event carries a snapshot of the task at publication time
type Event struct {
	Kind Kind
	Task *status.UpdateTask
}

// Listener receives events of the kind it subscribed to. A returned error
// is logged and does not affect other listeners.
type Listener func(ctx context.Context, e Event) error

type subscription struct {
	id       uint64
	listener Listener
}

// Bus dispatches events synchronously to listeners in registration order
type Bus struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[Kind][]subscription
}

// NewBus creates an empty bus
func NewBus() *Bus {
	return &Bus{subs: make(map[Kind][]subscription)}
}

// Subscribe registers l for events of kind and returns a function that
// removes it. Calling the returned function more than once is a no-op.
func (b *Bus) Subscribe(kind Kind, l Listener) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.subs[kind] = append(b.subs[kind], subscription{id: id, listener: l})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()

		subs := b.subs[kind]
		for i, s := range subs {
			if s.id == id {
				b.subs[kind] = append(subs[:i:i], subs[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers a copy of task to every listener of kind
func (b *Bus) Publish(ctx context.Context, kind Kind, task *status.UpdateTask) {
	b.mu.RLock()
	subs := make([]subscription, len(b.subs[kind]))
	copy(subs, b.subs[kind])
	b.mu.RUnlock()

	for _, s := range subs {
		b.deliver(ctx, s, Event{Kind: kind, Task: task.Clone()})
	}
}

// Listeners returns the number of listeners registered for kind
func (b *Bus) Listeners(kind Kind) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[kind])
}

func (*Bus) deliver(ctx context.Context, s subscription, e Event) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "Event listener panicked",
				"event", e.Kind, "task_id", taskID(e.Task), "panic", fmt.Sprint(r))
		}
	}()

	if err := s.listener(ctx, e); err != nil {
		slog.ErrorContext(ctx, "Event listener failed",
			"event", e.Kind, "task_id", taskID(e.Task), "error", err)
	}
}

func taskID(t *status.UpdateTask) string {
	if t == nil {
		return ""
	}
	return t.ID.String()
}
