// Package app initializes and holds long-lived application services, acting as a dependency injection container.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/api"
	"github.com/JakeFAU/seo-dashboard/internal/clock/system"
	"github.com/JakeFAU/seo-dashboard/internal/config"
	"github.com/JakeFAU/seo-dashboard/internal/dashboard"
	"github.com/JakeFAU/seo-dashboard/internal/export"
	"github.com/JakeFAU/seo-dashboard/internal/hash/sha256"
	"github.com/JakeFAU/seo-dashboard/internal/id/uuid"
	"github.com/JakeFAU/seo-dashboard/internal/metrics"
	"github.com/JakeFAU/seo-dashboard/internal/publisher"
	pubmemory "github.com/JakeFAU/seo-dashboard/internal/publisher/memory"
	"github.com/JakeFAU/seo-dashboard/internal/publisher/pubsub"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/storage/gcs"
	"github.com/JakeFAU/seo-dashboard/internal/storage/local"
	"github.com/JakeFAU/seo-dashboard/internal/storage/memory"
	"github.com/JakeFAU/seo-dashboard/internal/storage/postgres"
	"github.com/JakeFAU/seo-dashboard/internal/storage/sqlite"
	"github.com/JakeFAU/seo-dashboard/internal/storage/supabase"
	"github.com/JakeFAU/seo-dashboard/internal/store"
	"github.com/JakeFAU/seo-dashboard/internal/telemetry"
)

// App holds all the shared, long-lived services for the application.
// It is built once at startup and closed on shutdown.
type App struct {
	Config  config.Config
	Logger  *zap.Logger
	Store   store.Store
	Service *dashboard.Service
	Server  *api.Server

	tracer  *sdktrace.TracerProvider
	closers []io.Closer
}

// NewApp creates and initializes a new App from cfg. It fails fast if any
// configured service cannot be initialized and releases what it opened.
func NewApp(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Config: cfg, Logger: logger}
	if err := a.init(ctx, cfg, logger); err != nil {
		if closeErr := a.Close(ctx); closeErr != nil {
			logger.Warn("cleanup after failed init", zap.Error(closeErr))
		}
		return nil, err
	}
	return a, nil
}

func (a *App) init(ctx context.Context, cfg config.Config, logger *zap.Logger) error {
	var err error

	logger.Info("initializing application services")
	metrics.Init()

	a.tracer, err = telemetry.InitTracerProvider(ctx, telemetry.Config{
		ServiceName:  cfg.Telemetry.ServiceName,
		Environment:  cfg.Telemetry.Environment,
		OTLPEndpoint: cfg.Telemetry.OTLPEndpoint,
		Insecure:     cfg.Telemetry.Insecure,
		SampleRatio:  cfg.Telemetry.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}

	a.Store, err = newStore(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}

	exporter, err := a.newExporter(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize export: %w", err)
	}

	pub, err := a.newPublisher(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize events: %w", err)
	}

	policy := seo.NewThresholdPolicy(map[seo.MetricKey]float64{seo.MetricLCP: cfg.KPI.LCPThresholdSeconds})
	opts := dashboard.Options{
		Store:         a.Store,
		Policy:        &policy,
		SnapshotLimit: cfg.Store.SnapshotLimit,
		PageLimit:     cfg.Store.PageLimit,
		Publisher:     pub,
		Clock:         system.New(),
		Logger:        logger,
	}
	if exporter != nil {
		opts.Exporter = exporter
	}
	a.Service, err = dashboard.NewService(opts)
	if err != nil {
		return fmt.Errorf("failed to initialize dashboard: %w", err)
	}
	a.Server = api.NewServer(a.Service, cfg, logger)

	logger.Info("application services initialized",
		zap.String("store", cfg.Store.Provider),
		zap.String("export", cfg.Export.Provider),
		zap.String("events", cfg.Events.Provider),
	)
	return nil
}

func newStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (store.Store, error) {
	tables := cfg.Store.Tables.WithDefaults()
	switch cfg.Store.Provider {
	case config.StorePostgres:
		if cfg.Postgres.MigrateOnStart {
			if err := postgres.MigrateUp(cfg.Postgres.DSN, logger); err != nil {
				return nil, err
			}
		}
		logger.Info("connecting to PostgreSQL")
		pg, err := postgres.New(ctx, postgres.Config{
			DSN:             cfg.Postgres.DSN,
			Tables:          tables,
			MaxConns:        cfg.Postgres.MaxConns,
			MinConns:        cfg.Postgres.MinConns,
			MaxConnLifetime: cfg.Postgres.ConnLifetime(),
		})
		if err != nil {
			return nil, err
		}
		return pg, nil
	case config.StoreSupabase:
		logger.Info("using Supabase store", zap.String("url", cfg.Supabase.URL))
		sb, err := supabase.New(supabase.Config{
			URL:    cfg.Supabase.URL,
			Key:    cfg.Supabase.Key,
			Schema: cfg.Supabase.Schema,
			Tables: tables,
		})
		if err != nil {
			return nil, err
		}
		return sb, nil
	case config.StoreSQLite:
		logger.Info("opening SQLite store", zap.String("path", cfg.SQLite.Path))
		lite, err := sqlite.Open(ctx, sqlite.Config{
			Path:        cfg.SQLite.Path,
			Tables:      tables,
			BusyTimeout: cfg.SQLite.BusyTimeout(),
		})
		if err != nil {
			return nil, err
		}
		return lite, nil
	case config.StoreMemory, "":
		logger.Info("using in-memory store; data is lost on exit")
		return memory.NewStore(), nil
	default:
		return nil, fmt.Errorf("unknown store provider: %s", cfg.Store.Provider)
	}
}

func (a *App) newExporter(ctx context.Context, cfg config.Config, logger *zap.Logger) (*export.Exporter, error) {
	var blobs export.BlobStore
	switch cfg.Export.Provider {
	case config.ProviderNone, "":
		return nil, nil
	case config.ProviderMemory:
		blobs = memory.NewBlobStore()
	case config.ExportLocal:
		ls, err := local.New(local.Config{BaseDir: cfg.Export.LocalDir})
		if err != nil {
			return nil, err
		}
		blobs = ls
	case config.ExportGCS:
		gs, err := gcs.Open(ctx, gcs.Config{
			Bucket:          cfg.Export.GCSBucket,
			CredentialsFile: cfg.Export.GCSCredentialsFile,
			Endpoint:        cfg.Export.GCSEndpoint,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, gs)
		blobs = gs
	default:
		return nil, fmt.Errorf("unknown export provider: %s", cfg.Export.Provider)
	}
	return export.New(blobs, uuid.New(), sha256.New(), system.New(), cfg.Export.Prefix, logger.Named("export"))
}

func (a *App) newPublisher(ctx context.Context, cfg config.Config, logger *zap.Logger) (dashboard.Publisher, error) {
	switch cfg.Events.Provider {
	case config.ProviderNone, "":
		return publisher.Nop{}, nil
	case config.ProviderMemory:
		return pubmemory.New(), nil
	case config.EventsPubSub:
		logger.Info("connecting to GCP Pub/Sub", zap.String("topic", cfg.Events.TopicID))
		p, err := pubsub.New(ctx, pubsub.Config{ProjectID: cfg.Events.ProjectID, TopicID: cfg.Events.TopicID})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, p)
		return p, nil
	default:
		return nil, fmt.Errorf("unknown events provider: %s", cfg.Events.Provider)
	}
}

// Close gracefully shuts down all services in the App container.
func (a *App) Close(ctx context.Context) error {
	a.Logger.Info("shutting down application services")
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	if a.Store != nil {
		a.Store.Close()
		a.Store = nil
	}
	if a.tracer != nil {
		if err := a.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
		a.tracer = nil
	}
	if err := errors.Join(errs...); err != nil {
		a.Logger.Warn("error closing application services", zap.Error(err))
		return err
	}
	return nil
}
