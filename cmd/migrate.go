package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/config"
	"github.com/JakeFAU/seo-dashboard/internal/storage/postgres"
	"github.com/JakeFAU/seo-dashboard/internal/store"
)

// newMigrateCmd groups the Postgres schema commands.
func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manages the Postgres schema",
		Long: `Applies or rolls back the embedded golang-migrate migrations against
postgres.dsn. Only meaningful for the postgres store provider.

The migrations create the default tables seo_snapshots, seo_tasks and
seo_page_performance. They do not follow store.tables overrides; create
renamed tables by hand.`,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Applies all pending migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, dsn, err := postgresRuntime(cmd)
			if err != nil {
				return err
			}
			return postgres.MigrateUp(dsn, rt.logger)
		},
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Rolls back migrations",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, dsn, err := postgresRuntime(cmd)
			if err != nil {
				return err
			}
			return postgres.MigrateDown(dsn, steps, rt.logger)
		},
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	cmd.AddCommand(down)

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Prints the applied schema version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, dsn, err := postgresRuntime(cmd)
			if err != nil {
				return err
			}
			version, dirty, err := postgres.MigrationVersion(dsn)
			if err != nil {
				return err
			}
			rt.logger.Info("schema version", zap.Uint("version", version), zap.Bool("dirty", dirty))
			fmt.Fprintf(cmd.OutOrStdout(), "version=%d dirty=%t\n", version, dirty)
			return nil
		},
	})
	return cmd
}

func postgresRuntime(cmd *cobra.Command) (*runtime, string, error) {
	rt, err := resolveRuntime(cmd.Context())
	if err != nil {
		return nil, "", err
	}
	if rt.cfg.Postgres.DSN == "" {
		return nil, "", fmt.Errorf("postgres.dsn must be set (store.provider=%s)", rt.cfg.Store.Provider)
	}
	if rt.cfg.Store.Provider != config.StorePostgres {
		rt.logger.Warn("migrating postgres while another store provider is active",
			zap.String("store", rt.cfg.Store.Provider))
	}
	if tables := rt.cfg.Store.Tables.WithDefaults(); tables != (store.Tables{}).WithDefaults() {
		rt.logger.Warn("store.tables overrides are ignored by migrations",
			zap.String("snapshots", tables.Snapshots),
			zap.String("tasks", tables.Tasks),
			zap.String("pages", tables.Pages),
		)
	}
	return rt, rt.cfg.Postgres.DSN, nil
}
