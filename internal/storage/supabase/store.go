// Package supabase reads the dashboard tables through the Supabase REST API.
package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/supabase-community/postgrest-go"
	supa "github.com/supabase-community/supabase-go"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// Config identifies the Supabase project.
type Config struct {
	URL    string
	Key    string
	Schema string
	Tables store.Tables
}

// Store implements store.Store on top of supabase-go.
type Store struct {
	client *supa.Client
	tables store.Tables
}

var _ store.Store = (*Store)(nil)

// New builds a client for cfg. No request is made until the first query.
func New(cfg Config) (*Store, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("supabase.url is required")
	}
	if cfg.Key == "" {
		return nil, fmt.Errorf("supabase.key is required")
	}
	tables, err := cfg.Tables.Validate()
	if err != nil {
		return nil, err
	}
	var opts *supa.ClientOptions
	if cfg.Schema != "" {
		opts = &supa.ClientOptions{Schema: cfg.Schema}
	}
	client, err := supa.NewClient(strings.TrimRight(cfg.URL, "/"), cfg.Key, opts)
	if err != nil {
		return nil, fmt.Errorf("create supabase client: %w", err)
	}
	return &Store{client: client, tables: tables}, nil
}

// Close is a no-op; the REST client holds no pooled resources.
func (s *Store) Close() {}

var newestFirst = &postgrest.OrderOpts{Ascending: false}

// Ping issues a one-row read against the tasks table.
func (s *Store) Ping(ctx context.Context) error {
	_, err := do(ctx, func() ([]byte, error) {
		body, _, err := s.client.From(s.tables.Tasks).Select("id", "", false).Limit(1, "").Execute()
		return body, err
	})
	if err != nil {
		return fmt.Errorf("ping supabase: %w", err)
	}
	return nil
}

// FetchRecentSnapshots returns up to limit snapshots, newest first.
func (s *Store) FetchRecentSnapshots(ctx context.Context, limit int) ([]seo.Snapshot, error) {
	if limit <= 0 {
		limit = store.DefaultSnapshotLimit
	}
	body, err := do(ctx, func() ([]byte, error) {
		body, _, err := s.client.From(s.tables.Snapshots).
			Select("*", "", false).
			Order("created_at", newestFirst).
			Limit(limit, "").
			Execute()
		return body, err
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}
	var rows []snapshotRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode snapshots: %w", err)
	}
	out := make([]seo.Snapshot, 0, len(rows))
	for _, r := range rows {
		out = append(out, seo.Snapshot{
			ID:             r.ID,
			CreatedAt:      r.CreatedAt.Time,
			OverallScore:   r.OverallScore,
			GSCClicks:      r.GSCClicks,
			GSCImpressions: r.GSCImpressions,
			GSCCTR:         r.GSCCTR,
			PSIMobileScore: r.PSIMobileScore,
			PSILCP:         r.PSILCP,
			Analysis:       r.Analysis,
		})
	}
	return out, nil
}

// FetchPendingTasks returns tasks whose status is pending, newest first.
func (s *Store) FetchPendingTasks(ctx context.Context) ([]seo.Task, error) {
	body, err := do(ctx, func() ([]byte, error) {
		body, _, err := s.client.From(s.tables.Tasks).
			Select("*", "", false).
			Eq("status", string(seo.TaskPending)).
			Order("created_at", newestFirst).
			Execute()
		return body, err
	})
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	var rows []taskRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode tasks: %w", err)
	}
	out := make([]seo.Task, 0, len(rows))
	for _, r := range rows {
		out = append(out, seo.Task{
			ID:        r.ID,
			CreatedAt: r.CreatedAt.Time,
			Name:      r.Name,
			Type:      r.Type,
			Priority:  seo.ParsePriority(r.Priority),
			Why:       r.Why,
			How:       r.How,
			Status:    seo.TaskStatus(r.Status),
		})
	}
	return out, nil
}

// FetchPagePerformance returns up to limit page rows, newest first.
func (s *Store) FetchPagePerformance(ctx context.Context, limit int) ([]seo.PagePerformance, error) {
	if limit <= 0 {
		limit = store.DefaultPageLimit
	}
	body, err := do(ctx, func() ([]byte, error) {
		body, _, err := s.client.From(s.tables.Pages).
			Select("*", "", false).
			Order("created_at", newestFirst).
			Limit(limit, "").
			Execute()
		return body, err
	})
	if err != nil {
		return nil, fmt.Errorf("query page performance: %w", err)
	}
	var rows []pageRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("decode page performance: %w", err)
	}
	out := make([]seo.PagePerformance, 0, len(rows))
	for _, r := range rows {
		out = append(out, seo.PagePerformance{
			ID:          r.ID,
			CreatedAt:   r.CreatedAt.Time,
			Page:        r.Page,
			Clicks:      r.Clicks,
			Impressions: r.Impressions,
			CTR:         r.CTR,
			Position:    r.Position,
		})
	}
	return out, nil
}

// MarkTaskDone patches the task's status. PostgREST answers with the updated
// rows; an empty array means no task had the id.
func (s *Store) MarkTaskDone(ctx context.Context, id int64) error {
	body, err := do(ctx, func() ([]byte, error) {
		body, _, err := s.client.From(s.tables.Tasks).
			Update(map[string]string{"status": string(seo.TaskDone)}, "representation", "").
			Eq("id", strconv.FormatInt(id, 10)).
			Execute()
		return body, err
	})
	if err != nil {
		return fmt.Errorf("update task %d: %w", id, err)
	}
	var updated []json.RawMessage
	if err := json.Unmarshal(body, &updated); err != nil {
		return fmt.Errorf("decode update response: %w", err)
	}
	if len(updated) == 0 {
		return store.ErrNotFound
	}
	return nil
}

type result struct {
	body []byte
	err  error
}

// do runs a blocking REST call and gives up when ctx ends first. postgrest-go
// has no context support, so an abandoned call finishes in the background.
func do(ctx context.Context, call func() ([]byte, error)) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	ch := make(chan result, 1)
	go func() {
		body, err := call()
		ch <- result{body: body, err: err}
	}()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		return r.body, r.err
	}
}

type snapshotRow struct {
	ID             int64      `json:"id"`
	CreatedAt      timestamp  `json:"created_at"`
	OverallScore   seo.Metric `json:"overall_score"`
	GSCClicks      seo.Metric `json:"gsc_clicks"`
	GSCImpressions seo.Metric `json:"gsc_impressions"`
	GSCCTR         seo.Metric `json:"gsc_ctr"`
	PSIMobileScore seo.Metric `json:"psi_mobile_score"`
	PSILCP         seo.Metric `json:"psi_lcp"`
	Analysis       string     `json:"semantisk_analyse"`
}

type taskRow struct {
	ID        int64     `json:"id"`
	CreatedAt timestamp `json:"created_at"`
	Name      string    `json:"task_name"`
	Type      string    `json:"task_type"`
	Priority  string    `json:"priority"`
	Why       string    `json:"description_why"`
	How       string    `json:"description_how"`
	Status    string    `json:"status"`
}

type pageRow struct {
	ID          int64      `json:"id"`
	CreatedAt   timestamp  `json:"created_at"`
	Page        string     `json:"page_url"`
	Clicks      seo.Metric `json:"clicks"`
	Impressions seo.Metric `json:"impressions"`
	CTR         seo.Metric `json:"ctr"`
	Position    seo.Metric `json:"position"`
}

// timestamp accepts the layouts PostgREST emits for timestamp and
// timestamptz columns.
type timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02",
}

var errBadTimestamp = errors.New("unrecognized timestamp")

func (t *timestamp) UnmarshalJSON(data []byte) error {
	var raw *string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("created_at: %w", err)
	}
	if raw == nil || *raw == "" {
		t.Time = time.Time{}
		return nil
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, *raw); err == nil {
			t.Time = parsed.UTC()
			return nil
		}
	}
	return fmt.Errorf("created_at %q: %w", *raw, errBadTimestamp)
}
