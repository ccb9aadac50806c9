package cmd

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/storage/sqlite"
)

func TestSeedSample(t *testing.T) {
	ctx := context.Background()
	s, err := sqlite.Open(ctx, sqlite.Config{Path: sqlite.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	now := time.Date(2024, 5, 14, 9, 30, 0, 0, time.UTC)
	require.NoError(t, seedSample(ctx, s, 5, now))

	snaps, err := s.FetchRecentSnapshots(ctx, 30)
	require.NoError(t, err)
	require.Len(t, snaps, 5)
	assert.Equal(t, time.Date(2024, 5, 14, 0, 0, 0, 0, time.UTC), snaps[0].CreatedAt)
	assert.NotEmpty(t, snaps[0].Analysis)
	assert.Equal(t, int64(1), seo.ComputeDeltas(snaps).Get(seo.MetricOverallScore))

	tasks, err := s.FetchPendingTasks(ctx)
	require.NoError(t, err)
	assert.Len(t, tasks, 3)

	pages, err := s.FetchPagePerformance(ctx, 200)
	require.NoError(t, err)
	assert.Len(t, seo.GroupByPage(pages), 3)
	assert.Len(t, pages, 15)
}

func TestSeedSampleRejectsZeroDays(t *testing.T) {
	s, err := sqlite.Open(context.Background(), sqlite.Config{Path: sqlite.MemoryPath})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.Error(t, seedSample(context.Background(), s, 0, time.Now()))
}

func TestSeedRequiresSQLiteProvider(t *testing.T) {
	t.Setenv("DASHBOARD_STORE_PROVIDER", "memory")

	root := newRootCmd()
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	root.SetArgs([]string{"seed"})

	err := root.ExecuteContext(context.Background())
	require.ErrorContains(t, err, "seed requires store.provider=sqlite")
}

func TestRootHelpListsSubcommands(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"--help"})

	require.NoError(t, root.Execute())
	for _, name := range []string{"serve", "migrate", "export", "seed"} {
		assert.Contains(t, out.String(), name)
	}
}

func TestMigrateHelpNamesDefaultTables(t *testing.T) {
	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"migrate", "--help"})

	require.NoError(t, root.Execute())
	for _, table := range []string{"seo_snapshots", "seo_tasks", "seo_page_performance", "store.tables"} {
		assert.Contains(t, out.String(), table)
	}
}
