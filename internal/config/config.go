// Package config loads and validates dashboard configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// Store providers.
const (
	StorePostgres = "postgres"
	StoreSupabase = "supabase"
	StoreSQLite   = "sqlite"
	StoreMemory   = "memory"
)

// Export and events providers.
const (
	ProviderNone   = "none"
	ProviderMemory = "memory"
	ExportLocal    = "local"
	ExportGCS      = "gcs"
	EventsPubSub   = "pubsub"
)

// Config captures all service configuration knobs loaded via Viper.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Store     StoreConfig     `mapstructure:"store"`
	Postgres  PostgresConfig  `mapstructure:"postgres"`
	Supabase  SupabaseConfig  `mapstructure:"supabase"`
	SQLite    SQLiteConfig    `mapstructure:"sqlite"`
	KPI       KPIConfig       `mapstructure:"kpi"`
	Export    ExportConfig    `mapstructure:"export"`
	Events    EventsConfig    `mapstructure:"events"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// ServerConfig controls HTTP server behavior.
type ServerConfig struct {
	Port                   int `mapstructure:"port"`
	RequestTimeoutSeconds  int `mapstructure:"request_timeout_seconds"`
	ShutdownTimeoutSeconds int `mapstructure:"shutdown_timeout_seconds"`
}

// AuthConfig defines API authentication toggles.
type AuthConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	APIKey  string `mapstructure:"api_key"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// StoreConfig selects the backend the dashboard reads from.
type StoreConfig struct {
	Provider      string       `mapstructure:"provider"`
	SnapshotLimit int          `mapstructure:"snapshot_limit"`
	PageLimit     int          `mapstructure:"page_limit"`
	Tables        store.Tables `mapstructure:"tables"`
}

// PostgresConfig controls the pgx pool.
type PostgresConfig struct {
	DSN                    string `mapstructure:"dsn"`
	MaxConns               int32  `mapstructure:"max_conns"`
	MinConns               int32  `mapstructure:"min_conns"`
	MaxConnLifetimeMinutes int    `mapstructure:"max_conn_lifetime_minutes"`
	MigrateOnStart         bool   `mapstructure:"migrate_on_start"`
}

// SupabaseConfig points at a Supabase project.
type SupabaseConfig struct {
	URL    string `mapstructure:"url"`
	Key    string `mapstructure:"key"`
	Schema string `mapstructure:"schema"`
}

// SQLiteConfig locates the embedded database.
type SQLiteConfig struct {
	Path               string `mapstructure:"path"`
	BusyTimeoutSeconds int    `mapstructure:"busy_timeout_seconds"`
}

// KPIConfig tunes metric classification.
type KPIConfig struct {
	LCPThresholdSeconds float64 `mapstructure:"lcp_threshold_seconds"`
}

// ExportConfig selects where report exports are written.
type ExportConfig struct {
	Provider           string `mapstructure:"provider"`
	Prefix             string `mapstructure:"prefix"`
	LocalDir           string `mapstructure:"local_dir"`
	GCSBucket          string `mapstructure:"gcs_bucket"`
	GCSCredentialsFile string `mapstructure:"gcs_credentials_file"`
	GCSEndpoint        string `mapstructure:"gcs_endpoint"`
}

// EventsConfig selects the task event publisher.
type EventsConfig struct {
	Provider  string `mapstructure:"provider"`
	ProjectID string `mapstructure:"project_id"`
	TopicID   string `mapstructure:"topic_id"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	ServiceName  string  `mapstructure:"service_name"`
	Environment  string  `mapstructure:"environment"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	Insecure     bool    `mapstructure:"insecure"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from disk/environment.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DASHBOARD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.Store.Provider = strings.ToLower(strings.TrimSpace(cfg.Store.Provider))
	cfg.Export.Provider = strings.ToLower(strings.TrimSpace(cfg.Export.Provider))
	cfg.Events.Provider = strings.ToLower(strings.TrimSpace(cfg.Events.Provider))

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// setDefaults also registers every key AutomaticEnv should resolve on Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 30)
	v.SetDefault("server.shutdown_timeout_seconds", 10)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.api_key", "")
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("store.provider", StoreMemory)
	v.SetDefault("store.snapshot_limit", store.DefaultSnapshotLimit)
	v.SetDefault("store.page_limit", store.DefaultPageLimit)
	v.SetDefault("store.tables.snapshots", store.DefaultSnapshotsTable)
	v.SetDefault("store.tables.tasks", store.DefaultTasksTable)
	v.SetDefault("store.tables.pages", store.DefaultPagesTable)
	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.max_conns", 4)
	v.SetDefault("postgres.min_conns", 0)
	v.SetDefault("postgres.max_conn_lifetime_minutes", 30)
	v.SetDefault("postgres.migrate_on_start", false)
	v.SetDefault("supabase.url", "")
	v.SetDefault("supabase.key", "")
	v.SetDefault("supabase.schema", "public")
	v.SetDefault("sqlite.path", "data/seo.db")
	v.SetDefault("sqlite.busy_timeout_seconds", 5)
	v.SetDefault("kpi.lcp_threshold_seconds", 2.5)
	v.SetDefault("export.provider", ProviderNone)
	v.SetDefault("export.prefix", "reports")
	v.SetDefault("export.local_dir", "data/reports")
	v.SetDefault("export.gcs_bucket", "")
	v.SetDefault("export.gcs_credentials_file", "")
	v.SetDefault("export.gcs_endpoint", "")
	v.SetDefault("events.provider", ProviderNone)
	v.SetDefault("events.project_id", "")
	v.SetDefault("events.topic_id", "seo-task-events")
	v.SetDefault("telemetry.service_name", "seo-dashboard")
	v.SetDefault("telemetry.environment", "development")
	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.insecure", false)
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Server.RequestTimeoutSeconds <= 0 {
		return fmt.Errorf("server.request_timeout_seconds must be > 0")
	}
	if c.Auth.Enabled && c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must be set when auth is enabled")
	}
	if c.Store.SnapshotLimit <= 0 {
		return fmt.Errorf("store.snapshot_limit must be > 0")
	}
	if c.KPI.LCPThresholdSeconds <= 0 {
		return fmt.Errorf("kpi.lcp_threshold_seconds must be > 0")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0,1]")
	}

	switch c.Store.Provider {
	case StorePostgres:
		if c.Postgres.DSN == "" {
			return fmt.Errorf("postgres.dsn must be set for the postgres store")
		}
	case StoreSupabase:
		if c.Supabase.URL == "" || c.Supabase.Key == "" {
			return fmt.Errorf("supabase.url and supabase.key must be set for the supabase store")
		}
	case StoreSQLite:
		if c.SQLite.Path == "" {
			return fmt.Errorf("sqlite.path must be set for the sqlite store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown store.provider %q", c.Store.Provider)
	}

	switch c.Export.Provider {
	case ProviderNone, ProviderMemory:
	case ExportLocal:
		if c.Export.LocalDir == "" {
			return fmt.Errorf("export.local_dir must be set for local exports")
		}
	case ExportGCS:
		if c.Export.GCSBucket == "" {
			return fmt.Errorf("export.gcs_bucket must be set for gcs exports")
		}
	default:
		return fmt.Errorf("unknown export.provider %q", c.Export.Provider)
	}

	switch c.Events.Provider {
	case ProviderNone, ProviderMemory:
	case EventsPubSub:
		if c.Events.ProjectID == "" || c.Events.TopicID == "" {
			return fmt.Errorf("events.project_id and events.topic_id must be set for pubsub events")
		}
	default:
		return fmt.Errorf("unknown events.provider %q", c.Events.Provider)
	}
	return nil
}

// RequestTimeout is the per-request handler budget.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.Server.RequestTimeoutSeconds) * time.Second
}

// ShutdownTimeout bounds graceful shutdown.
func (c Config) ShutdownTimeout() time.Duration {
	return time.Duration(c.Server.ShutdownTimeoutSeconds) * time.Second
}

// ConnLifetime converts postgres.max_conn_lifetime_minutes.
func (c PostgresConfig) ConnLifetime() time.Duration {
	return time.Duration(c.MaxConnLifetimeMinutes) * time.Minute
}

// BusyTimeout converts sqlite.busy_timeout_seconds.
func (c SQLiteConfig) BusyTimeout() time.Duration {
	return time.Duration(c.BusyTimeoutSeconds) * time.Second
}
