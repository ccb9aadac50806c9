// Package dashboard is the read/compute/write core behind the presentation.
// Reads degrade to empty data, writes surface their errors.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/export"
	"github.com/JakeFAU/seo-dashboard/internal/metrics"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/store"
	"github.com/JakeFAU/seo-dashboard/internal/telemetry"
)

// TopicTaskCompleted is the event topic published after a task is marked done.
const TopicTaskCompleted = "task.completed"

// ErrExportDisabled is returned by Export when no exporter is configured.
var ErrExportDisabled = errors.New("report export is disabled")

// Publisher delivers task events.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Exporter archives a rendered report.
type Exporter interface {
	Export(ctx context.Context, report any) (export.Result, error)
}

// Clock stamps events.
type Clock interface {
	Now() time.Time
}

// TaskCompleted is the payload of a task.completed event.
type TaskCompleted struct {
	TaskID      int64     `json:"task_id"`
	CompletedAt time.Time `json:"completed_at"`
}

// Options wires a Service. Only Store is required.
type Options struct {
	Store         store.Store
	Policy        *seo.ThresholdPolicy
	SnapshotLimit int
	PageLimit     int
	Publisher     Publisher
	Exporter      Exporter
	Clock         Clock
	Logger        *zap.Logger
}

// Service fetches, computes and writes on behalf of the presentation.
type Service struct {
	store         store.Store
	policy        seo.ThresholdPolicy
	snapshotLimit int
	pageLimit     int
	publisher     Publisher
	exporter      Exporter
	clock         Clock
	logger        *zap.Logger
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// NewService validates opts and fills defaults.
func NewService(opts Options) (*Service, error) {
	if opts.Store == nil {
		return nil, fmt.Errorf("store is required")
	}
	s := &Service{
		store:         opts.Store,
		policy:        seo.DefaultThresholdPolicy(),
		snapshotLimit: opts.SnapshotLimit,
		pageLimit:     opts.PageLimit,
		publisher:     opts.Publisher,
		exporter:      opts.Exporter,
		clock:         opts.Clock,
		logger:        opts.Logger,
	}
	if opts.Policy != nil {
		s.policy = *opts.Policy
	}
	if s.snapshotLimit <= 0 {
		s.snapshotLimit = store.DefaultSnapshotLimit
	}
	if s.pageLimit <= 0 {
		s.pageLimit = store.DefaultPageLimit
	}
	if s.clock == nil {
		s.clock = systemClock{}
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	s.logger = s.logger.Named("dashboard")
	return s, nil
}

// RecentSnapshots returns the newest snapshots, or an empty slice when the
// store cannot be read.
func (s *Service) RecentSnapshots(ctx context.Context) []seo.Snapshot {
	start := time.Now()
	snaps, err := s.store.FetchRecentSnapshots(ctx, s.snapshotLimit)
	metrics.ObserveStoreRead("snapshots", time.Since(start), err != nil)
	if err != nil {
		s.logger.Error("failed to fetch snapshots", zap.Error(err))
		return []seo.Snapshot{}
	}
	if snaps == nil {
		return []seo.Snapshot{}
	}
	return snaps
}

// PendingTasks returns pending tasks newest first, or an empty slice when the
// store cannot be read.
func (s *Service) PendingTasks(ctx context.Context) []seo.Task {
	start := time.Now()
	tasks, err := s.store.FetchPendingTasks(ctx)
	metrics.ObserveStoreRead("tasks", time.Since(start), err != nil)
	if err != nil {
		s.logger.Error("failed to fetch tasks", zap.Error(err))
		return []seo.Task{}
	}
	return seo.PendingOnly(tasks)
}

// PagePerformance returns recent page rows, or an empty slice when the store
// cannot be read.
func (s *Service) PagePerformance(ctx context.Context) []seo.PagePerformance {
	start := time.Now()
	rows, err := s.store.FetchPagePerformance(ctx, s.pageLimit)
	metrics.ObserveStoreRead("pages", time.Since(start), err != nil)
	if err != nil {
		s.logger.Error("failed to fetch page performance", zap.Error(err))
		return []seo.PagePerformance{}
	}
	if rows == nil {
		return []seo.PagePerformance{}
	}
	return rows
}

// Load runs one fetch-and-compute cycle.
func (s *Service) Load(ctx context.Context) View {
	ctx, span := telemetry.Tracer().Start(ctx, "dashboard.Load")
	defer span.End()

	snaps := s.RecentSnapshots(ctx)
	tasks := s.PendingTasks(ctx)
	pages := s.PagePerformance(ctx)

	view := BuildView(snaps, tasks, pages, s.policy)
	if view.Latest != nil {
		metrics.SetLatestOverallScore(view.Latest.OverallScore.Float())
	}
	span.SetAttributes(
		attribute.Int("dashboard.snapshots", len(snaps)),
		attribute.Int("dashboard.pending_tasks", len(tasks)),
		attribute.Int("dashboard.page_rows", len(pages)),
	)
	return view
}

// CompleteTask marks the task done and publishes a task.completed event.
// Callers reload the view afterwards. A failed publish is only logged.
func (s *Service) CompleteTask(ctx context.Context, id int64) error {
	ctx, span := telemetry.Tracer().Start(ctx, "dashboard.CompleteTask")
	defer span.End()
	span.SetAttributes(attribute.Int64("task.id", id))

	if err := s.store.MarkTaskDone(ctx, id); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "mark task done")
		if errors.Is(err, store.ErrNotFound) {
			metrics.ObserveTaskCompletion(metrics.ResultNotFound)
		} else {
			metrics.ObserveTaskCompletion(metrics.ResultError)
		}
		s.logger.Warn("failed to mark task done", zap.Int64("task_id", id), zap.Error(err))
		return fmt.Errorf("mark task %d done: %w", id, err)
	}
	metrics.ObserveTaskCompletion(metrics.ResultSuccess)
	s.logger.Info("task marked done", zap.Int64("task_id", id))

	if s.publisher == nil {
		return nil
	}
	event := TaskCompleted{TaskID: id, CompletedAt: s.clock.Now().UTC()}
	msgID, err := s.publisher.Publish(ctx, TopicTaskCompleted, event)
	if err != nil {
		metrics.ObserveEventPublished(metrics.ResultError)
		s.logger.Error("failed to publish task event", zap.Int64("task_id", id), zap.Error(err))
		return nil
	}
	metrics.ObserveEventPublished(metrics.ResultSuccess)
	s.logger.Debug("task event published", zap.Int64("task_id", id), zap.String("message_id", msgID))
	return nil
}

// Export loads the current view and archives it.
func (s *Service) Export(ctx context.Context) (export.Result, error) {
	if s.exporter == nil {
		return export.Result{}, ErrExportDisabled
	}
	ctx, span := telemetry.Tracer().Start(ctx, "dashboard.Export")
	defer span.End()

	res, err := s.exporter.Export(ctx, s.Load(ctx))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export")
		metrics.ObserveExport(metrics.ResultError)
		return export.Result{}, fmt.Errorf("export dashboard: %w", err)
	}
	metrics.ObserveExport(metrics.ResultSuccess)
	span.SetAttributes(attribute.String("export.uri", res.URI))
	return res, nil
}

// Ready reports whether the store is reachable.
func (s *Service) Ready(ctx context.Context) error {
	return s.store.Ping(ctx)
}
