package api

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/dashboard"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	chartWidth  = 320
	chartHeight = 80
)

var dashboardTmpl = template.Must(template.New("dashboard.html").Funcs(template.FuncMap{
	"signed":     signed,
	"deltaClass": deltaClass,
	"polyline":   polyline,
	"latest":     latest,
}).ParseFS(templateFS, "templates/dashboard.html"))

func (s *Server) renderDashboard(w http.ResponseWriter, r *http.Request) {
	view := s.svc.Load(r.Context())
	var buf bytes.Buffer
	if err := dashboardTmpl.Execute(&buf, view); err != nil {
		s.logger.Error("render dashboard failed", zap.Error(err))
		http.Error(w, "failed to render dashboard", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := buf.WriteTo(w); err != nil {
		s.logger.Warn("write dashboard failed", zap.Error(err))
	}
}

// completeTaskForm handles the dashboard's "mark done" button. The 303 makes
// the browser re-fetch the page, which re-reads the store.
func (s *Server) completeTaskForm(w http.ResponseWriter, r *http.Request) {
	id, err := parseTaskID(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := s.svc.CompleteTask(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		s.logger.Error("complete task failed", zap.Int64("task_id", id), zap.Error(err))
		http.Error(w, "failed to mark task done", http.StatusInternalServerError)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func signed(v *int64) string {
	if v == nil {
		return ""
	}
	if *v > 0 {
		return fmt.Sprintf("+%d", *v)
	}
	return fmt.Sprintf("%d", *v)
}

func deltaClass(deltas seo.Deltas, key seo.MetricKey) string {
	switch d := deltas.Get(key); {
	case d > 0:
		return "up"
	case d < 0:
		return "down"
	default:
		return ""
	}
}

func latest(h seo.PageHistory) *seo.PagePerformance {
	if len(h.Points) == 0 {
		return nil
	}
	return &h.Points[len(h.Points)-1]
}

// polyline scales a series into SVG points within the chart box.
func polyline(series dashboard.Series) string {
	n := len(series.Points)
	if n == 0 {
		return ""
	}
	lo, hi := series.Points[0].Value, series.Points[0].Value
	for _, p := range series.Points {
		lo = min(lo, p.Value)
		hi = max(hi, p.Value)
	}
	span := hi - lo
	var sb strings.Builder
	for i, p := range series.Points {
		x := 0.0
		if n > 1 {
			x = float64(i) * chartWidth / float64(n-1)
		}
		y := chartHeight / 2.0
		if span > 0 {
			y = chartHeight - (p.Value-lo)/span*chartHeight
		}
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	return sb.String()
}
