package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	s, err := New(Config{URL: srv.URL, Key: "anon-key"})
	require.NoError(t, err)
	return s
}

func TestFetchRecentSnapshots(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/rest/v1/seo_snapshots", r.URL.Path)
		require.Equal(t, "created_at.desc.nullslast", r.URL.Query().Get("order"))
		require.Equal(t, "30", r.URL.Query().Get("limit"))
		require.Equal(t, "anon-key", r.Header.Get("apikey"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":2,"created_at":"2024-05-02T08:00:00.123456+00:00","overall_score":80,"gsc_clicks":120,
			 "gsc_impressions":"900","gsc_ctr":0.13,"psi_mobile_score":91,"psi_lcp":3.1,"semantisk_analyse":"stable"},
			{"id":1,"created_at":"2024-05-01T08:00:00","overall_score":null,"gsc_clicks":100,
			 "gsc_impressions":null,"gsc_ctr":null,"psi_mobile_score":null,"psi_lcp":null,"semantisk_analyse":null}
		]`)
	})

	got, err := s.FetchRecentSnapshots(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, int64(2), got[0].ID)
	require.Equal(t, time.Date(2024, 5, 2, 8, 0, 0, 123456000, time.UTC), got[0].CreatedAt)
	require.Equal(t, seo.NewMetric(900), got[0].GSCImpressions)
	require.Equal(t, "stable", got[0].Analysis)
	require.Equal(t, time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC), got[1].CreatedAt)
	require.False(t, got[1].OverallScore.Valid)
	require.Empty(t, got[1].Analysis)

	deltas := seo.ComputeDeltas(got)
	require.Equal(t, int64(80), deltas.Get(seo.MetricOverallScore))
	require.Equal(t, int64(20), deltas.Get(seo.MetricClicks))
}

func TestFetchPendingTasks(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/seo_tasks", r.URL.Path)
		require.Equal(t, "eq.pending", r.URL.Query().Get("status"))
		require.Equal(t, "created_at.desc.nullslast", r.URL.Query().Get("order"))
		_, _ = io.WriteString(w, `[{"id":7,"created_at":"2024-05-02T08:00:00Z","task_name":"Compress images",
			"task_type":"Teknisk","priority":"Høj","description_why":"slow","description_how":"webp","status":"pending"}]`)
	})

	got, err := s.FetchPendingTasks(context.Background())
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, int64(7), got[0].ID)
	require.Equal(t, seo.PriorityHigh, got[0].Priority)
	require.Equal(t, seo.TaskPending, got[0].Status)
	require.Equal(t, "webp", got[0].How)
}

func TestFetchPagePerformance(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/rest/v1/seo_page_performance", r.URL.Path)
		require.Equal(t, "10", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, `[{"id":3,"created_at":"2024-05-02T08:00:00Z","page_url":"/bryllup",
			"clicks":40,"impressions":800,"ctr":0.05,"position":null}]`)
	})

	got, err := s.FetchPagePerformance(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "/bryllup", got[0].Page)
	require.False(t, got[0].Position.Valid)
}

func TestMarkTaskDone(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		reply   string
		wantErr error
	}{
		{name: "row updated", reply: `[{"id":7,"status":"done"}]`},
		{name: "no such task", reply: `[]`, wantErr: store.ErrNotFound},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPatch, r.Method)
				require.Equal(t, "/rest/v1/seo_tasks", r.URL.Path)
				require.Equal(t, "eq.7", r.URL.Query().Get("id"))
				require.Equal(t, "return=representation", r.Header.Get("Prefer"))
				var body map[string]string
				require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
				require.Equal(t, map[string]string{"status": "done"}, body)
				_, _ = io.WriteString(w, tt.reply)
			})

			err := s.MarkTaskDone(context.Background(), 7)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestErrorResponsesSurface(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"code":"PGRST301","message":"JWT expired"}`)
	})

	_, err := s.FetchPendingTasks(context.Background())
	require.ErrorContains(t, err, "JWT expired")

	err = s.MarkTaskDone(context.Background(), 1)
	require.ErrorContains(t, err, "update task 1")
	require.NotErrorIs(t, err, store.ErrNotFound)

	require.Error(t, s.Ping(context.Background()))
}

func TestCanceledContext(t *testing.T) {
	t.Parallel()

	s := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `[]`)
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := s.FetchRecentSnapshots(ctx, 5)
	require.ErrorIs(t, err, context.Canceled)
}

func TestNewValidatesConfig(t *testing.T) {
	t.Parallel()

	_, err := New(Config{Key: "k"})
	require.Error(t, err)
	_, err = New(Config{URL: "https://example.supabase.co"})
	require.Error(t, err)
	_, err = New(Config{
		URL:    "https://example.supabase.co",
		Key:    "k",
		Tables: store.Tables{Tasks: "seo_tasks?select=*"},
	})
	require.ErrorContains(t, err, "invalid table name")
}

func TestTimestampRejectsGarbage(t *testing.T) {
	t.Parallel()

	var ts timestamp
	require.Error(t, json.Unmarshal([]byte(`"yesterday"`), &ts))
	require.NoError(t, json.Unmarshal([]byte(`null`), &ts))
	require.True(t, ts.IsZero())
}
