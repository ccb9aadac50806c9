// Package postgres provides a Postgres-backed dashboard store.
package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// Config controls the Postgres connection pool.
type Config struct {
	DSN             string
	Tables          store.Tables
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
}

// pool is the subset of *pgxpool.Pool used by Store; pgxmock satisfies it too.
type pool interface {
	Query(context.Context, string, ...any) (pgx.Rows, error)
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Ping(context.Context) error
	Close()
}

// Store reads snapshots, tasks and page rows from Postgres.
type Store struct {
	pool   pool
	tables store.Tables
}

var _ store.Store = (*Store)(nil)

// New connects a pool using cfg.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("postgres.dsn is required")
	}
	tables, err := cfg.Tables.Validate()
	if err != nil {
		return nil, err
	}
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("parse postgres dsn: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = cfg.MaxConns
	}
	if cfg.MinConns > 0 {
		poolCfg.MinConns = cfg.MinConns
	}
	if cfg.MaxConnLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.MaxConnLifetime
	}
	p, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	return &Store{pool: p, tables: tables}, nil
}

// NewWithPool constructs a store from an existing pool (primarily for testing).
func NewWithPool(p pool, tables store.Tables) (*Store, error) {
	if p == nil {
		return nil, fmt.Errorf("pool is required")
	}
	validated, err := tables.Validate()
	if err != nil {
		return nil, err
	}
	return &Store{pool: p, tables: validated}, nil
}

// Close releases the underlying pool resources.
func (s *Store) Close() {
	if s == nil || s.pool == nil {
		return
	}
	s.pool.Close()
}

// Ping checks that the database answers.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not configured")
	}
	if err := s.pool.Ping(ctx); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}
	return nil
}

// FetchRecentSnapshots returns up to limit snapshots, newest first.
func (s *Store) FetchRecentSnapshots(ctx context.Context, limit int) ([]seo.Snapshot, error) {
	if limit <= 0 {
		limit = store.DefaultSnapshotLimit
	}
	query := fmt.Sprintf(`
SELECT id, created_at,
	overall_score::float8, gsc_clicks::float8, gsc_impressions::float8,
	gsc_ctr::float8, psi_mobile_score::float8, psi_lcp::float8,
	COALESCE(semantisk_analyse, '')
FROM %s
ORDER BY created_at DESC
LIMIT $1`, s.tables.Snapshots)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	defer rows.Close()

	var out []seo.Snapshot
	for rows.Next() {
		var (
			snap                                      seo.Snapshot
			score, clicks, impressions, ctr, mob, lcp *float64
		)
		if err := rows.Scan(&snap.ID, &snap.CreatedAt, &score, &clicks, &impressions, &ctr, &mob, &lcp, &snap.Analysis); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		snap.OverallScore = seo.MetricFromPtr(score)
		snap.GSCClicks = seo.MetricFromPtr(clicks)
		snap.GSCImpressions = seo.MetricFromPtr(impressions)
		snap.GSCCTR = seo.MetricFromPtr(ctr)
		snap.PSIMobileScore = seo.MetricFromPtr(mob)
		snap.PSILCP = seo.MetricFromPtr(lcp)
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate snapshots: %w", err)
	}
	return out, nil
}

// FetchPendingTasks returns every task whose status is pending, newest first.
func (s *Store) FetchPendingTasks(ctx context.Context) ([]seo.Task, error) {
	query := fmt.Sprintf(`
SELECT id, created_at,
	COALESCE(task_name, ''), COALESCE(task_type, ''), COALESCE(priority, ''),
	COALESCE(description_why, ''), COALESCE(description_how, ''), status
FROM %s
WHERE status = $1
ORDER BY created_at DESC`, s.tables.Tasks)

	rows, err := s.pool.Query(ctx, query, string(seo.TaskPending))
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	var out []seo.Task
	for rows.Next() {
		var (
			task             seo.Task
			priority, status string
		)
		if err := rows.Scan(&task.ID, &task.CreatedAt, &task.Name, &task.Type, &priority, &task.Why, &task.How, &status); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
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
	query := fmt.Sprintf(`
SELECT id, created_at, COALESCE(page_url, ''),
	clicks::float8, impressions::float8, ctr::float8, position::float8
FROM %s
ORDER BY created_at DESC
LIMIT $1`, s.tables.Pages)

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query page performance: %w", err)
	}
	defer rows.Close()

	var out []seo.PagePerformance
	for rows.Next() {
		var (
			row                                seo.PagePerformance
			clicks, impressions, ctr, position *float64
		)
		if err := rows.Scan(&row.ID, &row.CreatedAt, &row.Page, &clicks, &impressions, &ctr, &position); err != nil {
			return nil, fmt.Errorf("scan page performance: %w", err)
		}
		row.Clicks = seo.MetricFromPtr(clicks)
		row.Impressions = seo.MetricFromPtr(impressions)
		row.CTR = seo.MetricFromPtr(ctr)
		row.Position = seo.MetricFromPtr(position)
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate page performance: %w", err)
	}
	return out, nil
}

// MarkTaskDone sets the task's status to done. Re-marking a done task matches
// the row again and succeeds.
func (s *Store) MarkTaskDone(ctx context.Context, id int64) error {
	if s == nil || s.pool == nil {
		return fmt.Errorf("postgres store is not configured")
	}
	query := fmt.Sprintf(`UPDATE %s SET status = $1 WHERE id = $2`, s.tables.Tasks)
	tag, err := s.pool.Exec(ctx, query, string(seo.TaskDone), id)
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return store.ErrNotFound
	}
	return nil
}
