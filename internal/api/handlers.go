package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/dashboard"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// getDashboard handles GET /v1/dashboard and returns the full View.
func (s *Server) getDashboard(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Load(r.Context()))
}

// listSnapshots handles GET /v1/snapshots?limit=. It returns
// {"snapshots": [...], "deltas": {...}}, newest first, or 400 for a bad limit.
func (s *Server) listSnapshots(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	snaps := s.svc.RecentSnapshots(r.Context())
	deltas := seo.ComputeDeltas(snaps)
	if limit > 0 && len(snaps) > limit {
		snaps = snaps[:limit]
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"snapshots": snaps,
		"deltas":    deltas,
	})
}

// listTasks handles GET /v1/tasks and returns {"tasks": [...]} with only
// pending tasks, newest first.
func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	tasks := s.svc.PendingTasks(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"tasks": tasks})
}

// listPages handles GET /v1/pages and returns {"pages": [...]} grouped by page.
func (s *Server) listPages(w http.ResponseWriter, r *http.Request) {
	pages := seo.GroupByPage(s.svc.PagePerformance(r.Context()))
	if pages == nil {
		pages = []seo.PageHistory{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"pages": pages})
}

// completeTask handles POST /v1/tasks/{task_id}/done. On success it re-fetches
// and returns the fresh View; 400 for malformed ids, 404 when the task does
// not exist, 500 for other write failures.
func (s *Server) completeTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := s.svc.CompleteTask(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "task not found")
			return
		}
		s.logger.Error("complete task failed", zap.Int64("task_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to mark task done")
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Load(r.Context()))
}

// createExport handles POST /v1/exports. It returns 201 with the stored
// report's location, 501 when exports are disabled, or 500.
func (s *Server) createExport(w http.ResponseWriter, r *http.Request) {
	res, err := s.svc.Export(r.Context())
	if err != nil {
		if errors.Is(err, dashboard.ErrExportDisabled) {
			writeError(w, http.StatusNotImplemented, err.Error())
			return
		}
		s.logger.Error("export failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to export report")
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

func parseTaskID(r *http.Request) (int64, error) {
	raw := strings.TrimSpace(chi.URLParam(r, "task_id"))
	if raw == "" {
		return 0, errors.New("task_id is required")
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid task_id")
	}
	return id, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	val, err := strconv.Atoi(raw)
	if err != nil || val <= 0 {
		return 0, errors.New("invalid limit")
	}
	return val, nil
}
