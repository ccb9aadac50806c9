package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

func TestStoreSnapshotsNewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	s := NewStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		s.AddSnapshot(seo.Snapshot{CreatedAt: base.Add(time.Duration(i) * time.Hour), OverallScore: seo.NewMetric(float64(70 + i))})
	}

	got, err := s.FetchRecentSnapshots(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(72), got[0].OverallScore.Int())
	require.Equal(t, int64(71), got[1].OverallScore.Int())
}

func TestStoreMarkTaskDone(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewStore()
	task := s.AddTask(seo.Task{ID: 7, Name: "Fix meta descriptions"})
	other := s.AddTask(seo.Task{Name: "Add alt text"})
	require.Equal(t, int64(8), other.ID)

	require.NoError(t, s.MarkTaskDone(ctx, task.ID))
	require.NoError(t, s.MarkTaskDone(ctx, task.ID))

	pending, err := s.FetchPendingTasks(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, other.ID, pending[0].ID)

	require.ErrorIs(t, s.MarkTaskDone(ctx, 404), store.ErrNotFound)
}

func TestStoreHonorsCanceledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s := NewStore()

	_, err := s.FetchPendingTasks(ctx)
	require.ErrorIs(t, err, context.Canceled)
	require.ErrorIs(t, s.Ping(ctx), context.Canceled)
}

func TestStorePagePerformance(t *testing.T) {
	t.Parallel()

	s := NewStore()
	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	s.AddPagePerformance(seo.PagePerformance{Page: "/a", CreatedAt: base})
	s.AddPagePerformance(seo.PagePerformance{Page: "/b", CreatedAt: base.Add(time.Hour)})

	got, err := s.FetchPagePerformance(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "/b", got[0].Page)
}
