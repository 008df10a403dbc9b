package coordinator

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"sync/atomic"
	"time"

	"k8s.io/utils/clock"

	"github.com/pvpmeta/pvpmeta-server/internal/config"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	pkgsync "github.com/pvpmeta/pvpmeta-server/internal/sync"
	"github.com/pvpmeta/pvpmeta-server/internal/telemetry"
)

// Coordinator manages background change detection and the update entry
// points for all sources
type Coordinator interface {
	// Start bootstraps an empty store and runs one check loop per source.
	// Blocks until Stop is called or ctx is cancelled.
	Start(ctx context.Context) error

	// Stop cancels all loops and waits for Start to return
	Stop() error

	// ForceUpdate enqueues every active source regardless of detection
	ForceUpdate(ctx context.Context) ([]*status.UpdateTask, error)

	// Ready reports whether startup bootstrap has finished
	Ready() bool
}

// Worker drains the update queue
type Worker interface {
	// Drain processes queued tasks synchronously
	Drain(ctx context.Context) bool

	// Kick starts a drain in the background
	Kick(ctx context.Context)

	// Wait blocks until background drains returned
	Wait()
}

// SpeciesCounter returns the number of stored species
type SpeciesCounter func(ctx context.Context) (int, error)

// defaultCoordinator is the default implementation of Coordinator
type defaultCoordinator struct {
	registry *source.Registry
	queue    *pkgsync.Queue
	detector pkgsync.ChangeDetector
	worker   Worker
	species  SpeciesCounter

	clock        clock.WithTicker
	startupDelay time.Duration

	// Lifecycle management
	mu         gosync.Mutex
	runCtx     context.Context
	cancelFunc context.CancelFunc
	done       chan struct{}
	ready      atomic.Bool

	sourceMetrics *telemetry.SourceMetrics
}

// New creates a new coordinator with injected dependencies
func New(
	registry *source.Registry,
	queue *pkgsync.Queue,
	detector pkgsync.ChangeDetector,
	worker Worker,
	species SpeciesCounter,
	opts ...Option,
) Coordinator {
	c := &defaultCoordinator{
		registry:     registry,
		queue:        queue,
		detector:     detector,
		worker:       worker,
		species:      species,
		clock:        clock.RealClock{},
		startupDelay: config.DefaultStartupDelay,
		done:         make(chan struct{}),
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// Start begins background change detection for all sources
func (c *defaultCoordinator) Start(ctx context.Context) error {
	coordCtx, cancel := context.WithCancel(ctx)
	c.mu.Lock()
	if c.cancelFunc != nil {
		c.mu.Unlock()
		cancel()
		return errors.New("coordinator already started")
	}
	c.runCtx = coordCtx
	c.cancelFunc = cancel
	c.mu.Unlock()

	defer func() {
		close(c.done)
		slog.Info("Update coordinator shut down")
	}()

	sources := c.registry.List()
	c.sourceMetrics.RecordActiveSources(ctx, int64(len(c.registry.Active())))
	slog.Info("Starting update coordinator",
		"source_count", len(sources),
		"startup_delay", c.startupDelay)

	if err := c.bootstrap(coordCtx); err != nil {
		cancel()
		c.closeQueue()
		c.worker.Wait()
		return fmt.Errorf("failed to bootstrap store: %w", err)
	}
	c.ready.Store(true)

	var loops gosync.WaitGroup
	for _, src := range sources {
		loops.Add(1)
		go func(id string, interval time.Duration) {
			defer loops.Done()
			c.runSource(coordCtx, id, interval)
		}(src.ID, checkInterval(src.Interval))
	}

	<-coordCtx.Done()
	slog.Info("Update coordinator stopping")
	c.closeQueue()
	loops.Wait()
	c.worker.Wait()
	return nil
}

// Stop gracefully stops the coordinator
func (c *defaultCoordinator) Stop() error {
	c.mu.Lock()
	cancel := c.cancelFunc
	c.queue.Close()
	c.mu.Unlock()

	if cancel != nil {
		slog.Info("Stopping update coordinator")
		cancel()
		<-c.done
	}
	return nil
}

// Ready reports whether bootstrap has finished
func (c *defaultCoordinator) Ready() bool {
	return c.ready.Load()
}

// ForceUpdate enqueues every active source with the manual trigger. It
// fails with ErrQueueClosed once the coordinator is stopping.
func (c *defaultCoordinator) ForceUpdate(ctx context.Context) ([]*status.UpdateTask, error) {
	// mu orders the kick before the worker.Wait in Start
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.runCtx != nil && c.runCtx.Err() != nil {
		return nil, fmt.Errorf("coordinator stopped: %w", pkgsync.ErrQueueClosed)
	}

	tasks, err := c.enqueueActive(status.TriggerManual)
	if err != nil {
		return tasks, err
	}

	slog.Info("Force update requested", "task_count", len(tasks))
	if len(tasks) > 0 {
		c.worker.Kick(c.drainContext(ctx))
	}
	return tasks, nil
}

// drainContext returns the coordinator context while running. Drains
// kicked from a request must outlive it. Callers hold mu.
func (c *defaultCoordinator) drainContext(ctx context.Context) context.Context {
	if c.runCtx != nil {
		return c.runCtx
	}
	return context.WithoutCancel(ctx)
}

// closeQueue rejects further enqueues. Holding mu means no ForceUpdate is
// between its enqueue and its kick.
func (c *defaultCoordinator) closeQueue() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.queue.Close()
}

func (c *defaultCoordinator) enqueueActive(trigger status.Trigger) ([]*status.UpdateTask, error) {
	active := c.registry.Active()
	tasks := make([]*status.UpdateTask, 0, len(active))
	for _, src := range active {
		task, err := c.queue.Enqueue(src, trigger)
		if err != nil {
			return tasks, fmt.Errorf("failed to enqueue source %s: %w", src.ID, err)
		}
		tasks = append(tasks, task)
	}
	return tasks, nil
}

func (c *defaultCoordinator) bootstrap(ctx context.Context) error {
	n, err := c.species(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		slog.Debug("Store already populated, skipping bootstrap", "species", n)
		return nil
	}

	tasks, err := c.enqueueActive(status.TriggerBootstrap)
	if err != nil {
		return err
	}

	slog.Info("Store is empty, bootstrapping from all active sources", "task_count", len(tasks))
	c.worker.Drain(ctx)
	return nil
}

// runSource waits for the grace delay, then checks the source at every tick
func (c *defaultCoordinator) runSource(ctx context.Context, id string, interval time.Duration) {
	timer := c.clock.NewTimer(c.startupDelay)
	select {
	case <-ctx.Done():
		timer.Stop()
		return
	case <-timer.C():
	}

	c.check(ctx, id)

	ticker := c.clock.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C():
			c.check(ctx, id)
		case <-ctx.Done():
			return
		}
	}
}

func (c *defaultCoordinator) check(ctx context.Context, id string) {
	src, ok := c.registry.Get(id)
	if !ok {
		return
	}
	if !src.Active {
		slog.Debug("Skipping inactive source", "source", id)
		return
	}

	if !c.detector.Detect(ctx, src) {
		return
	}

	task, err := c.queue.Enqueue(src, status.TriggerScheduled)
	if err != nil {
		slog.Error("Failed to enqueue update", "source", id, "error", err)
		return
	}
	slog.Info("Update enqueued", "source", id, "task", task.ID.String(), "priority", task.Priority)
	c.worker.Kick(ctx)
}
