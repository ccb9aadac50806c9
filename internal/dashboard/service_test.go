package dashboard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/seo-dashboard/internal/clock/system"
	"github.com/JakeFAU/seo-dashboard/internal/export"
	"github.com/JakeFAU/seo-dashboard/internal/hash/sha256"
	"github.com/JakeFAU/seo-dashboard/internal/id/uuid"
	pubmemory "github.com/JakeFAU/seo-dashboard/internal/publisher/memory"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/storage/memory"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

var errUnavailable = errors.New("connection refused")

// brokenStore fails every call.
type brokenStore struct{}

func (brokenStore) FetchRecentSnapshots(context.Context, int) ([]seo.Snapshot, error) {
	return nil, errUnavailable
}

func (brokenStore) FetchPendingTasks(context.Context) ([]seo.Task, error) {
	return nil, errUnavailable
}

func (brokenStore) FetchPagePerformance(context.Context, int) ([]seo.PagePerformance, error) {
	return nil, errUnavailable
}

func (brokenStore) MarkTaskDone(context.Context, int64) error { return errUnavailable }
func (brokenStore) Ping(context.Context) error                { return errUnavailable }
func (brokenStore) Close()                                    {}

// sloppyStore returns done tasks from the pending query, out of order.
type sloppyStore struct {
	*memory.Store
	tasks []seo.Task
}

func (s sloppyStore) FetchPendingTasks(context.Context) ([]seo.Task, error) {
	return s.tasks, nil
}

type failingPublisher struct{}

func (failingPublisher) Publish(context.Context, string, any) (string, error) {
	return "", errors.New("topic not found")
}

type failingExporter struct{}

func (failingExporter) Export(context.Context, any) (export.Result, error) {
	return export.Result{}, errors.New("bucket missing")
}

func newService(t *testing.T, opts Options) *Service {
	t.Helper()
	svc, err := NewService(opts)
	require.NoError(t, err)
	return svc
}

func TestNewServiceRequiresStore(t *testing.T) {
	t.Parallel()

	_, err := NewService(Options{})
	require.Error(t, err)
}

func TestReadsDegradeToEmpty(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	svc := newService(t, Options{Store: brokenStore{}, Logger: zap.New(core)})
	ctx := context.Background()

	require.Empty(t, svc.RecentSnapshots(ctx))
	require.NotNil(t, svc.RecentSnapshots(ctx))
	require.Empty(t, svc.PendingTasks(ctx))
	require.Empty(t, svc.PagePerformance(ctx))

	view := svc.Load(ctx)
	require.True(t, view.Empty)
	require.Empty(t, view.Tasks)
	require.NotZero(t, logs.FilterMessage("failed to fetch snapshots").Len())
	require.NotZero(t, logs.FilterMessage("failed to fetch tasks").Len())
	require.NotZero(t, logs.FilterMessage("failed to fetch page performance").Len())
}

func TestPendingTasksFiltersDone(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s := sloppyStore{Store: memory.NewStore(), tasks: []seo.Task{
		{ID: 1, CreatedAt: base, Status: seo.TaskPending},
		{ID: 2, CreatedAt: base.Add(time.Hour), Status: seo.TaskDone},
		{ID: 3, CreatedAt: base.Add(2 * time.Hour), Status: seo.TaskPending},
	}}
	svc := newService(t, Options{Store: s})

	got := svc.PendingTasks(context.Background())
	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[0].ID)
	require.Equal(t, int64(1), got[1].ID)
}

func TestLoadComputesDeltas(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.AddSnapshot(seo.Snapshot{CreatedAt: base, OverallScore: seo.NewMetric(75), GSCClicks: seo.NewMetric(100)})
	s.AddSnapshot(seo.Snapshot{CreatedAt: base.Add(24 * time.Hour), OverallScore: seo.NewMetric(80), GSCClicks: seo.NewMetric(120)})

	view := newService(t, Options{Store: s}).Load(context.Background())
	require.False(t, view.Empty)
	require.Equal(t, int64(5), view.Deltas.Get(seo.MetricOverallScore))
	require.Equal(t, int64(20), view.Deltas.Get(seo.MetricClicks))
}

func TestLoadRespectsSnapshotLimit(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	for i := 0; i < 5; i++ {
		s.AddSnapshot(seo.Snapshot{OverallScore: seo.NewMetric(float64(i))})
	}
	view := newService(t, Options{Store: s, SnapshotLimit: 3}).Load(context.Background())
	require.Len(t, view.Snapshots, 3)
}

func TestCompleteTaskPublishesEvent(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewStore()
	task := s.AddTask(seo.Task{ID: 7, Name: "Fix canonical tags"})
	s.AddTask(seo.Task{Name: "Add schema markup"})
	pub := pubmemory.New()
	at := time.Date(2024, 5, 3, 10, 0, 0, 0, time.UTC)
	svc := newService(t, Options{Store: s, Publisher: pub, Clock: system.Fixed{At: at}})

	require.NoError(t, svc.CompleteTask(ctx, task.ID))
	for _, pending := range svc.Load(ctx).Tasks {
		require.NotEqual(t, task.ID, pending.ID)
	}

	msgs := pub.Messages()
	require.Len(t, msgs, 1)
	require.Equal(t, TopicTaskCompleted, msgs[0].Topic)
	var event TaskCompleted
	require.NoError(t, pub.Decode(0, &event))
	require.Equal(t, TaskCompleted{TaskID: 7, CompletedAt: at}, event)

	require.NoError(t, svc.CompleteTask(ctx, task.ID), "re-marking is a no-op")
}

func TestCompleteTaskErrors(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc := newService(t, Options{Store: memory.NewStore()})
	err := svc.CompleteTask(ctx, 42)
	require.ErrorIs(t, err, store.ErrNotFound)

	pub := pubmemory.New()
	svc = newService(t, Options{Store: brokenStore{}, Publisher: pub})
	err = svc.CompleteTask(ctx, 1)
	require.ErrorIs(t, err, errUnavailable)
	require.Empty(t, pub.Messages())
}

func TestCompleteTaskIgnoresPublishFailure(t *testing.T) {
	t.Parallel()

	s := memory.NewStore()
	task := s.AddTask(seo.Task{Name: "Fix redirects"})
	core, logs := observer.New(zap.ErrorLevel)
	svc := newService(t, Options{Store: s, Publisher: failingPublisher{}, Logger: zap.New(core)})

	require.NoError(t, svc.CompleteTask(context.Background(), task.ID))
	require.Equal(t, 1, logs.FilterMessage("failed to publish task event").Len())
}

func TestExport(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := memory.NewStore()
	s.AddSnapshot(seo.Snapshot{OverallScore: seo.NewMetric(90)})
	blobs := memory.NewBlobStore()
	exp, err := export.New(blobs, uuid.New(), sha256.New(), system.New(), "reports", nil)
	require.NoError(t, err)

	res, err := newService(t, Options{Store: s, Exporter: exp}).Export(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{res.Path}, blobs.Paths())

	_, err = newService(t, Options{Store: s}).Export(ctx)
	require.ErrorIs(t, err, ErrExportDisabled)

	_, err = newService(t, Options{Store: s, Exporter: failingExporter{}}).Export(ctx)
	require.ErrorContains(t, err, "bucket missing")
}

func TestReady(t *testing.T) {
	t.Parallel()

	require.NoError(t, newService(t, Options{Store: memory.NewStore()}).Ready(context.Background()))
	require.ErrorIs(t, newService(t, Options{Store: brokenStore{}}).Ready(context.Background()), errUnavailable)
}
