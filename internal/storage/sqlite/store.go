// Package sqlite is an embedded dashboard store backed by modernc.org/sqlite.
// It creates its tables on open, which makes it the zero-infrastructure
// backend for local runs and demos.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // registers the "sqlite" driver

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Timestamps are stored as fixed-width UTC text so ORDER BY created_at
// sorts chronologically.
const tsLayout = "2006-01-02T15:04:05.000000000Z"

// Config controls where the database lives.
type Config struct {
	Path        string
	Tables      store.Tables
	BusyTimeout time.Duration
}

// Store implements store.Store over database/sql.
type Store struct {
	db     *sql.DB
	tables store.Tables
}

var _ store.Store = (*Store)(nil)

// Open opens (and if needed creates) the database at cfg.Path, applies
// pragmas and bootstraps the schema.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	path := cfg.Path
	if path == "" {
		return nil, fmt.Errorf("sqlite.path is required")
	}
	tables, err := cfg.Tables.Validate()
	if err != nil {
		return nil, err
	}
	if path != MemoryPath {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: mkdir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	if path == MemoryPath {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	if err := applyPragmas(ctx, db, path, cfg.BusyTimeout); err != nil {
		_ = db.Close()
		return nil, err
	}
	s := &Store{db: db, tables: tables}
	if err := s.bootstrap(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func applyPragmas(ctx context.Context, db *sql.DB, path string, busy time.Duration) error {
	if busy <= 0 {
		busy = 10 * time.Second
	}
	pragmas := []string{
		"PRAGMA foreign_keys = ON",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busy.Milliseconds()),
		"PRAGMA synchronous = NORMAL",
	}
	if path != MemoryPath {
		pragmas = append(pragmas, "PRAGMA journal_mode = WAL")
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			return fmt.Errorf("sqlite: %s: %w", p, err)
		}
	}
	return nil
}

func (s *Store) bootstrap(ctx context.Context) error {
	const now = `(strftime('%Y-%m-%dT%H:%M:%f000000Z', 'now'))`
	stmts := []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL DEFAULT %s,
	overall_score REAL,
	gsc_clicks REAL,
	gsc_impressions REAL,
	gsc_ctr REAL,
	psi_mobile_score REAL,
	psi_lcp REAL,
	semantisk_analyse TEXT
)`, s.tables.Snapshots, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL DEFAULT %s,
	task_name TEXT NOT NULL DEFAULT '',
	task_type TEXT,
	priority TEXT,
	description_why TEXT,
	description_how TEXT,
	status TEXT NOT NULL DEFAULT 'pending'
)`, s.tables.Tasks, now),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	created_at TEXT NOT NULL DEFAULT %s,
	page_url TEXT NOT NULL,
	clicks REAL,
	impressions REAL,
	ctr REAL,
	position REAL
)`, s.tables.Pages, now),
		fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %[1]s_status_idx ON %[1]s (status, created_at)`, s.tables.Tasks),
	}
	for _, stmt := range stmts {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("sqlite: bootstrap schema: %w", err)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() {
	if s == nil || s.db == nil {
		return
	}
	_ = s.db.Close()
}

// Ping checks the database handle.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return fmt.Errorf("ping sqlite: %w", err)
	}
	return nil
}

// FetchRecentSnapshots returns up to limit snapshots, newest first.
func (s *Store) FetchRecentSnapshots(ctx context.Context, limit int) ([]seo.Snapshot, error) {
	if limit <= 0 {
		limit = store.DefaultSnapshotLimit
	}
	query := fmt.Sprintf(`SELECT id, created_at, overall_score, gsc_clicks, gsc_impressions,
	gsc_ctr, psi_mobile_score, psi_lcp, COALESCE(semantisk_analyse, '')
FROM %s ORDER BY created_at DESC, id DESC LIMIT ?`, s.tables.Snapshots)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []seo.Snapshot
	for rows.Next() {
		var (
			snap                                      seo.Snapshot
			created                                   string
			score, clicks, impressions, ctr, mob, lcp sql.NullFloat64
		)
		if err := rows.Scan(&snap.ID, &created, &score, &clicks, &impressions, &ctr, &mob, &lcp, &snap.Analysis); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		if snap.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		snap.OverallScore = metric(score)
		snap.GSCClicks = metric(clicks)
		snap.GSCImpressions = metric(impressions)
		snap.GSCCTR = metric(ctr)
		snap.PSIMobileScore = metric(mob)
		snap.PSILCP = metric(lcp)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// FetchPendingTasks returns tasks whose status is pending, newest first.
func (s *Store) FetchPendingTasks(ctx context.Context) ([]seo.Task, error) {
	query := fmt.Sprintf(`SELECT id, created_at, task_name, COALESCE(task_type, ''),
	COALESCE(priority, ''), COALESCE(description_why, ''), COALESCE(description_how, ''), status
FROM %s WHERE status = ? ORDER BY created_at DESC, id DESC`, s.tables.Tasks)

	rows, err := s.db.QueryContext(ctx, query, string(seo.TaskPending))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []seo.Task
	for rows.Next() {
		var (
			task                      seo.Task
			created, priority, status string
		)
		if err := rows.Scan(&task.ID, &created, &task.Name, &task.Type, &priority, &task.Why, &task.How, &status); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		if task.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		task.Priority = seo.ParsePriority(priority)
		task.Status = seo.TaskStatus(status)
		out = append(out, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}
	return out, nil
}

// FetchPagePerformance returns up to limit page rows, newest first.
func (s *Store) FetchPagePerformance(ctx context.Context, limit int) ([]seo.PagePerformance, error) {
	if limit <= 0 {
		limit = store.DefaultPageLimit
	}
	query := fmt.Sprintf(`SELECT id, created_at, page_url, clicks, impressions, ctr, position
FROM %s ORDER BY created_at DESC, id DESC LIMIT ?`, s.tables.Pages)

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query page performance: %w", err)
	}
	defer rows.Close()

	var out []seo.PagePerformance
	for rows.Next() {
		var (
			row                                seo.PagePerformance
			created                            string
			clicks, impressions, ctr, position sql.NullFloat64
		)
		if err := rows.Scan(&row.ID, &created, &row.Page, &clicks, &impressions, &ctr, &position); err != nil {
			return nil, fmt.Errorf("scan page performance: %w", err)
		}
		if row.CreatedAt, err = parseTime(created); err != nil {
			return nil, err
		}
		row.Clicks = metric(clicks)
		row.Impressions = metric(impressions)
		row.CTR = metric(ctr)
		row.Position = metric(position)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page performance: %w", err)
	}
	return out, nil
}

// MarkTaskDone sets the task's status to done.
func (s *Store) MarkTaskDone(ctx context.Context, id int64) error {
	query := fmt.Sprintf(`UPDATE %s SET status = ? WHERE id = ?`, s.tables.Tasks)
	res, err := s.db.ExecContext(ctx, query, string(seo.TaskDone), id)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}

// InsertSnapshot stores snap and returns its id. A zero CreatedAt means now.
func (s *Store) InsertSnapshot(ctx context.Context, snap seo.Snapshot) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (created_at, overall_score, gsc_clicks, gsc_impressions,
	gsc_ctr, psi_mobile_score, psi_lcp, semantisk_analyse) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`, s.tables.Snapshots)
	res, err := s.db.ExecContext(ctx, query,
		formatTime(snap.CreatedAt),
		snap.OverallScore.Ptr(),
		snap.GSCClicks.Ptr(),
		snap.GSCImpressions.Ptr(),
		snap.GSCCTR.Ptr(),
		snap.PSIMobileScore.Ptr(),
		snap.PSILCP.Ptr(),
		nullString(snap.Analysis),
	)
	if err != nil {
		return 0, fmt.Errorf("insert snapshot: %w", err)
	}
	return res.LastInsertId()
}

// InsertTask stores task and returns its id. An empty status means pending.
func (s *Store) InsertTask(ctx context.Context, task seo.Task) (int64, error) {
	status := task.Status
	if status == "" {
		status = seo.TaskPending
	}
	query := fmt.Sprintf(`INSERT INTO %s (created_at, task_name, task_type, priority,
	description_why, description_how, status) VALUES (?, ?, ?, ?, ?, ?, ?)`, s.tables.Tasks)
	res, err := s.db.ExecContext(ctx, query,
		formatTime(task.CreatedAt),
		task.Name,
		task.Type,
		string(task.Priority),
		task.Why,
		task.How,
		string(status),
	)
	if err != nil {
		return 0, fmt.Errorf("insert task: %w", err)
	}
	return res.LastInsertId()
}

// InsertPagePerformance stores row and returns its id.
func (s *Store) InsertPagePerformance(ctx context.Context, row seo.PagePerformance) (int64, error) {
	query := fmt.Sprintf(`INSERT INTO %s (created_at, page_url, clicks, impressions, ctr, position)
	VALUES (?, ?, ?, ?, ?, ?)`, s.tables.Pages)
	res, err := s.db.ExecContext(ctx, query,
		formatTime(row.CreatedAt),
		row.Page,
		row.Clicks.Ptr(),
		row.Impressions.Ptr(),
		row.CTR.Ptr(),
		row.Position.Ptr(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert page performance: %w", err)
	}
	return res.LastInsertId()
}

func metric(v sql.NullFloat64) seo.Metric {
	if !v.Valid {
		return seo.NullMetric()
	}
	return seo.NewMetric(v.Float64)
}

func nullString(v string) sql.NullString {
	return sql.NullString{String: v, Valid: v != ""}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(tsLayout)
}

var errBadTimestamp = errors.New("unrecognized created_at")

func parseTime(raw string) (time.Time, error) {
	for _, layout := range []string{tsLayout, time.RFC3339Nano, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: %q", errBadTimestamp, raw)
}
