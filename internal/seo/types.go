// Package seo defines the core dashboard types shared across subsystems:
// snapshots, tasks, page performance rows and the KPI arithmetic over them.
package seo

import (
	"errors"
	"sort"
	"strings"
	"time"
)

// ErrInvalidTransition is returned when a task status change is not allowed.
var ErrInvalidTransition = errors.New("invalid task status transition")

// Snapshot is one periodic aggregate measurement of SEO and performance metrics.
type Snapshot struct {
	ID             int64     `json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	OverallScore   Metric    `json:"overall_score"`
	GSCClicks      Metric    `json:"gsc_clicks"`
	GSCImpressions Metric    `json:"gsc_impressions"`
	GSCCTR         Metric    `json:"gsc_ctr"`
	PSIMobileScore Metric    `json:"psi_mobile_score"`
	PSILCP         Metric    `json:"psi_lcp"`
	Analysis       string    `json:"analysis"`
}

// Metric returns the named metric of the snapshot.
func (s Snapshot) Metric(key MetricKey) Metric {
	switch key {
	case MetricOverallScore:
		return s.OverallScore
	case MetricClicks:
		return s.GSCClicks
	case MetricImpressions:
		return s.GSCImpressions
	case MetricCTR:
		return s.GSCCTR
	case MetricMobileScore:
		return s.PSIMobileScore
	case MetricLCP:
		return s.PSILCP
	default:
		return Metric{}
	}
}

// TaskStatus is the lifecycle state of a task.
type TaskStatus string

// Task statuses stored in the status column.
const (
	TaskPending TaskStatus = "pending"
	TaskDone    TaskStatus = "done"
)

// Transition validates a status change. pending->done is the only real
// transition; done->done is accepted as a no-op.
func (s TaskStatus) Transition(to TaskStatus) (TaskStatus, error) {
	switch {
	case s == TaskPending && to == TaskDone:
		return TaskDone, nil
	case s == to && (s == TaskPending || s == TaskDone):
		return s, nil
	default:
		return s, ErrInvalidTransition
	}
}

// Priority tiers a task.
type Priority string

// Priority tiers, highest first.
const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParsePriority maps stored labels (Danish or English) onto a tier.
// Unknown labels fall into the low tier.
func ParsePriority(label string) Priority {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "høj", "hoej", "high":
		return PriorityHigh
	case "medium", "mellem":
		return PriorityMedium
	default:
		return PriorityLow
	}
}

// Rank orders priorities, 0 being the most urgent.
func (p Priority) Rank() int {
	switch p {
	case PriorityHigh:
		return 0
	case PriorityMedium:
		return 1
	default:
		return 2
	}
}

// Task is a recommended remediation item.
type Task struct {
	ID        int64      `json:"id"`
	CreatedAt time.Time  `json:"created_at"`
	Name      string     `json:"task_name"`
	Type      string     `json:"task_type"`
	Priority  Priority   `json:"priority"`
	Why       string     `json:"description_why"`
	How       string     `json:"description_how"`
	Status    TaskStatus `json:"status"`
}

// PagePerformance is one timestamped traffic/ranking record for a page.
type PagePerformance struct {
	ID          int64     `json:"id"`
	CreatedAt   time.Time `json:"created_at"`
	Page        string    `json:"page_url"`
	Clicks      Metric    `json:"clicks"`
	Impressions Metric    `json:"impressions"`
	CTR         Metric    `json:"ctr"`
	Position    Metric    `json:"position"`
}

// PageHistory is the time series of one page, oldest point first.
type PageHistory struct {
	Page   string            `json:"page_url"`
	Points []PagePerformance `json:"points"`
}

// GroupByPage groups rows by page identity. Pages are sorted by name and each
// history is sorted oldest first.
func GroupByPage(rows []PagePerformance) []PageHistory {
	if len(rows) == 0 {
		return nil
	}
	index := make(map[string]int)
	var out []PageHistory
	for _, row := range rows {
		i, ok := index[row.Page]
		if !ok {
			i = len(out)
			index[row.Page] = i
			out = append(out, PageHistory{Page: row.Page})
		}
		out[i].Points = append(out[i].Points, row)
	}
	for i := range out {
		points := out[i].Points
		sort.SliceStable(points, func(a, b int) bool {
			return points[a].CreatedAt.Before(points[b].CreatedAt)
		})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Page < out[b].Page })
	return out
}

// PendingOnly drops non-pending tasks and orders the rest newest first.
func PendingOnly(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if t.Status == TaskPending {
			out = append(out, t)
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		return out[a].CreatedAt.After(out[b].CreatedAt)
	})
	return out
}

// NewestFirst sorts snapshots by creation time, newest first.
func NewestFirst(snapshots []Snapshot) {
	sort.SliceStable(snapshots, func(a, b int) bool {
		return snapshots[a].CreatedAt.After(snapshots[b].CreatedAt)
	})
}
