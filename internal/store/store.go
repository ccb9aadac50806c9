package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("record not found")

// DefaultSnapshotLimit is how many snapshots the dashboard reads per cycle.
const DefaultSnapshotLimit = 30

// DefaultPageLimit bounds the page performance rows read per cycle.
const DefaultPageLimit = 200

// Default table names.
const (
	DefaultSnapshotsTable = "seo_snapshots"
	DefaultTasksTable     = "seo_tasks"
	DefaultPagesTable     = "seo_page_performance"
)

var validTableName = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Tables names the three tables a backend reads from.
type Tables struct {
	Snapshots string `mapstructure:"snapshots"`
	Tasks     string `mapstructure:"tasks"`
	Pages     string `mapstructure:"pages"`
}

// WithDefaults fills empty table names.
func (t Tables) WithDefaults() Tables {
	if t.Snapshots == "" {
		t.Snapshots = DefaultSnapshotsTable
	}
	if t.Tasks == "" {
		t.Tasks = DefaultTasksTable
	}
	if t.Pages == "" {
		t.Pages = DefaultPagesTable
	}
	return t
}

// Validate fills defaults and rejects names that are not plain SQL
// identifiers, since backends interpolate them into queries and URLs.
func (t Tables) Validate() (Tables, error) {
	t = t.WithDefaults()
	for _, name := range []string{t.Snapshots, t.Tasks, t.Pages} {
		if !validTableName.MatchString(name) {
			return Tables{}, fmt.Errorf("invalid table name %q", name)
		}
	}
	return t, nil
}

// Store is the external data store the dashboard is a client of.
type Store interface {
	// FetchRecentSnapshots returns at most limit snapshots, newest first.
	FetchRecentSnapshots(ctx context.Context, limit int) ([]seo.Snapshot, error)
	// FetchPendingTasks returns tasks with status pending, newest first.
	FetchPendingTasks(ctx context.Context) ([]seo.Task, error)
	// FetchPagePerformance returns at most limit page rows, newest first.
	FetchPagePerformance(ctx context.Context, limit int) ([]seo.PagePerformance, error)
	// MarkTaskDone sets one task's status to done. It returns ErrNotFound
	// when no task has the id. Marking a done task again succeeds.
	MarkTaskDone(ctx context.Context, id int64) error
	// Ping checks connectivity.
	Ping(ctx context.Context) error
	// Close releases the client.
	Close()
}
