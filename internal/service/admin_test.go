package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/pvpmeta/pvpmeta-server/database"
	"github.com/pvpmeta/pvpmeta-server/internal/audit"
	"github.com/pvpmeta/pvpmeta-server/internal/service"
	"github.com/pvpmeta/pvpmeta-server/internal/source"
	"github.com/pvpmeta/pvpmeta-server/internal/status"
	"github.com/pvpmeta/pvpmeta-server/internal/store"
	"github.com/pvpmeta/pvpmeta-server/internal/store/storetest"
	pkgsync "github.com/pvpmeta/pvpmeta-server/internal/sync"
)

type fakeUpdater struct {
	ready bool
	tasks []*status.UpdateTask
	err   error
}

func (f *fakeUpdater) ForceUpdate(context.Context) ([]*status.UpdateTask, error) {
	return f.tasks, f.err
}

func (f *fakeUpdater) Ready() bool { return f.ready }

type fakeWorker struct {
	current *status.UpdateTask
}

func (f *fakeWorker) Current() (*status.UpdateTask, bool) {
	return f.current, f.current != nil
}

type fixture struct {
	svc      service.AdminService
	store    *store.BunStore
	registry *source.Registry
	queue    *pkgsync.Queue
	updater  *fakeUpdater
	worker   *fakeWorker
	spans    *tracetest.InMemoryExporter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	reg, err := source.NewRegistry(
		&source.Descriptor{ID: "gm", Name: "Gamemaster", Kind: source.KindGamemaster, Priority: 10, Active: true},
		&source.Descriptor{ID: "great", Name: "Great League", Kind: source.KindRankings, Priority: 8, Active: false},
	)
	require.NoError(t, err)

	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := &fixture{
		store:    storetest.New(t),
		registry: reg,
		queue:    pkgsync.NewQueue(),
		updater:  &fakeUpdater{ready: true},
		worker:   &fakeWorker{},
		spans:    exporter,
	}
	f.svc, err = service.New(
		service.WithRegistry(reg),
		service.WithSourceRepository(source.NewRepository(f.store)),
		service.WithAuditLog(audit.NewLog(f.store)),
		service.WithQueue(f.queue),
		service.WithWorker(f.worker),
		service.WithUpdater(f.updater),
		service.WithTracerProvider(tp),
	)
	require.NoError(t, err)
	return f
}

func TestNew_RequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := service.New()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "source registry is required")
}

func TestAdminService_CheckReadiness(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	assert.NoError(t, f.svc.CheckReadiness(context.Background()))

	f.updater.ready = false
	assert.ErrorIs(t, f.svc.CheckReadiness(context.Background()), service.ErrNotReady)
}

func TestAdminService_Sources(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	sources, err := f.svc.ListSources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "gm", sources[0].ID)

	src, err := f.svc.GetSource(ctx, "great")
	require.NoError(t, err)
	assert.False(t, src.Active)

	_, err = f.svc.GetSource(ctx, "ghost")
	assert.ErrorIs(t, err, service.ErrSourceNotFound)

	spans := f.spans.GetSpans()
	require.Len(t, spans, 3)
	assert.Equal(t, "adminService.ListSources", spans[0].Name)
	assert.Equal(t, "adminService.GetSource", spans[1].Name)
}

func TestAdminService_SetSourceActive(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	src, err := f.svc.SetSourceActive(ctx, "great", true)
	require.NoError(t, err)
	assert.True(t, src.Active)

	got, _ := f.registry.Get("great")
	assert.True(t, got.Active)

	var row database.Source
	found, err := f.store.Get(ctx, &row, "SELECT * FROM sources WHERE id = ?", "great")
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, row.Active)

	_, err = f.svc.SetSourceActive(ctx, "ghost", true)
	assert.ErrorIs(t, err, service.ErrSourceNotFound)
}

func TestAdminService_History(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)
	log := audit.NewLog(f.store)

	started := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	for _, id := range []string{"gm", "great", "gm"} {
		task := &status.UpdateTask{
			ID:        uuid.New(),
			SourceID:  id,
			Kind:      "gamemaster",
			Trigger:   status.TriggerScheduled,
			Status:    status.TaskStatusInProgress,
			StartedAt: &started,
		}
		require.NoError(t, log.Begin(ctx, task))
	}

	history, err := f.svc.SourceHistory(ctx, "gm", 10)
	require.NoError(t, err)
	assert.Len(t, history, 2)

	history, err = f.svc.SourceHistory(ctx, "gm", 1)
	require.NoError(t, err)
	assert.Len(t, history, 1)

	_, err = f.svc.SourceHistory(ctx, "ghost", 10)
	assert.ErrorIs(t, err, service.ErrSourceNotFound)

	recent, err := f.svc.RecentUpdates(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	assert.Equal(t, "gm", recent[0].SourceID)
	assert.Equal(t, "great", recent[1].SourceID)
}

func TestAdminService_QueueStatus(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	qs, err := f.svc.QueueStatus(ctx)
	require.NoError(t, err)
	assert.Nil(t, qs.Current)
	assert.Empty(t, qs.Pending)

	src, _ := f.registry.Get("gm")
	_, err = f.queue.Enqueue(src, status.TriggerManual)
	require.NoError(t, err)
	f.worker.current = &status.UpdateTask{SourceID: "great", Status: status.TaskStatusInProgress}

	qs, err = f.svc.QueueStatus(ctx)
	require.NoError(t, err)
	require.NotNil(t, qs.Current)
	assert.Equal(t, "great", qs.Current.SourceID)
	require.Len(t, qs.Pending, 1)
	assert.Equal(t, "gm", qs.Pending[0].SourceID)
}

func TestAdminService_ForceUpdate(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	f := newFixture(t)

	f.updater.tasks = []*status.UpdateTask{{SourceID: "gm", Trigger: status.TriggerManual}}
	tasks, err := f.svc.ForceUpdate(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 1)

	f.updater.err = errors.New("update queue is closed")
	_, err = f.svc.ForceUpdate(ctx)
	require.Error(t, err)

	spans := f.spans.GetSpans()
	require.Len(t, spans, 2)
	assert.Equal(t, "adminService.ForceUpdate", spans[1].Name)
	assert.Equal(t, "Error", spans[1].Status.Code.String())
}
