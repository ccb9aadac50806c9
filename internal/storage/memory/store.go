// Package memory provides in-process implementations of the dashboard store
// and the report blob store, for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// Store is a mutex-guarded store.Store.
type Store struct {
	mu        sync.RWMutex
	nextID    int64
	snapshots []seo.Snapshot
	tasks     []seo.Task
	pages     []seo.PagePerformance
	now       func() time.Time
}

var _ store.Store = (*Store)(nil)

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{now: time.Now}
}

// AddSnapshot stores snap, assigning an id and a timestamp when missing.
func (s *Store) AddSnapshot(snap seo.Snapshot) seo.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap.ID, snap.CreatedAt = s.stamp(snap.ID, snap.CreatedAt)
	s.snapshots = append(s.snapshots, snap)
	return snap
}

// AddTask stores task, defaulting its status to pending.
func (s *Store) AddTask(task seo.Task) seo.Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	task.ID, task.CreatedAt = s.stamp(task.ID, task.CreatedAt)
	if task.Status == "" {
		task.Status = seo.TaskPending
	}
	s.tasks = append(s.tasks, task)
	return task
}

// AddPagePerformance stores a page row.
func (s *Store) AddPagePerformance(row seo.PagePerformance) seo.PagePerformance {
	s.mu.Lock()
	defer s.mu.Unlock()
	row.ID, row.CreatedAt = s.stamp(row.ID, row.CreatedAt)
	s.pages = append(s.pages, row)
	return row
}

func (s *Store) stamp(id int64, created time.Time) (int64, time.Time) {
	if id == 0 {
		s.nextID++
		id = s.nextID
	} else if id > s.nextID {
		s.nextID = id
	}
	if created.IsZero() {
		created = s.now().UTC()
	}
	return id, created
}

// FetchRecentSnapshots returns up to limit snapshots, newest first.
func (s *Store) FetchRecentSnapshots(ctx context.Context, limit int) ([]seo.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = store.DefaultSnapshotLimit
	}
	s.mu.RLock()
	out := append([]seo.Snapshot(nil), s.snapshots...)
	s.mu.RUnlock()

	seo.NewestFirst(out)
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// FetchPendingTasks returns pending tasks, newest first.
func (s *Store) FetchPendingTasks(ctx context.Context) ([]seo.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return seo.PendingOnly(s.tasks), nil
}

// FetchPagePerformance returns up to limit page rows, newest first.
func (s *Store) FetchPagePerformance(ctx context.Context, limit int) ([]seo.PagePerformance, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = store.DefaultPageLimit
	}
	s.mu.RLock()
	out := append([]seo.PagePerformance(nil), s.pages...)
	s.mu.RUnlock()

	sort.SliceStable(out, func(a, b int) bool { return out[a].CreatedAt.After(out[b].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkTaskDone flips the task to done.
func (s *Store) MarkTaskDone(ctx context.Context, id int64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.tasks {
		if s.tasks[i].ID != id {
			continue
		}
		next, err := s.tasks[i].Status.Transition(seo.TaskDone)
		if err != nil {
			return err
		}
		s.tasks[i].Status = next
		return nil
	}
	return store.ErrNotFound
}

// Ping always succeeds.
func (s *Store) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op.
func (s *Store) Close() {}
