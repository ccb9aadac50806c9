package seo

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestTaskStatusTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		from    TaskStatus
		to      TaskStatus
		want    TaskStatus
		wantErr error
	}{
		{name: "complete pending", from: TaskPending, to: TaskDone, want: TaskDone},
		{name: "re-complete is a no-op", from: TaskDone, to: TaskDone, want: TaskDone},
		{name: "reopen is rejected", from: TaskDone, to: TaskPending, want: TaskDone, wantErr: ErrInvalidTransition},
		{name: "unknown target", from: TaskPending, to: "archived", want: TaskPending, wantErr: ErrInvalidTransition},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, err := tt.from.Transition(tt.to)
			require.Equal(t, tt.want, got)
			if tt.wantErr != nil {
				require.True(t, errors.Is(err, tt.wantErr))
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestParsePriority(t *testing.T) {
	t.Parallel()

	cases := map[string]Priority{
		"Høj":    PriorityHigh,
		"high":   PriorityHigh,
		"Medium": PriorityMedium,
		"Lav":    PriorityLow,
		"":       PriorityLow,
		"urgent": PriorityLow,
	}
	for label, want := range cases {
		require.Equalf(t, want, ParsePriority(label), "label %q", label)
	}
	require.Less(t, PriorityHigh.Rank(), PriorityMedium.Rank())
	require.Less(t, PriorityMedium.Rank(), PriorityLow.Rank())
}

func TestGroupByPage(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	rows := []PagePerformance{
		{ID: 4, Page: "/b", CreatedAt: base.Add(48 * time.Hour), Clicks: NewMetric(3)},
		{ID: 3, Page: "/a", CreatedAt: base.Add(24 * time.Hour), Clicks: NewMetric(2)},
		{ID: 2, Page: "/b", CreatedAt: base, Clicks: NewMetric(1)},
		{ID: 1, Page: "/a", CreatedAt: base, Clicks: NullMetric()},
	}

	groups := GroupByPage(rows)

	require.Len(t, groups, 2)
	require.Equal(t, "/a", groups[0].Page)
	require.Equal(t, []int64{1, 3}, pointIDs(groups[0]))
	require.Equal(t, "/b", groups[1].Page)
	require.Equal(t, []int64{2, 4}, pointIDs(groups[1]))
	require.Nil(t, GroupByPage(nil))
}

func TestPendingOnly(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	tasks := []Task{
		{ID: 1, Status: TaskPending, CreatedAt: base},
		{ID: 2, Status: TaskDone, CreatedAt: base.Add(time.Hour)},
		{ID: 3, Status: TaskPending, CreatedAt: base.Add(2 * time.Hour)},
	}

	got := PendingOnly(tasks)

	require.Len(t, got, 2)
	require.Equal(t, int64(3), got[0].ID)
	require.Equal(t, int64(1), got[1].ID)
	for _, task := range got {
		require.NotEqual(t, TaskDone, task.Status)
	}
}

func TestNewestFirst(t *testing.T) {
	t.Parallel()

	base := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	snaps := []Snapshot{
		{ID: 1, CreatedAt: base},
		{ID: 3, CreatedAt: base.Add(2 * time.Hour)},
		{ID: 2, CreatedAt: base.Add(time.Hour)},
	}
	NewestFirst(snaps)
	require.Equal(t, int64(3), snaps[0].ID)
	require.Equal(t, int64(1), snaps[2].ID)
}

func pointIDs(h PageHistory) []int64 {
	ids := make([]int64, 0, len(h.Points))
	for _, p := range h.Points {
		ids = append(ids, p.ID)
	}
	return ids
}
