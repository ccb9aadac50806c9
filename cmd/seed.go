package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/JakeFAU/seo-dashboard/internal/config"
	"github.com/JakeFAU/seo-dashboard/internal/seo"
	"github.com/JakeFAU/seo-dashboard/internal/storage/sqlite"
)

// newSeedCmd creates the 'seed' subcommand, which fills the SQLite store with
// a sample history for local development.
func newSeedCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Writes sample data into the SQLite store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := resolveRuntime(cmd.Context())
			if err != nil {
				return err
			}
			if rt.cfg.Store.Provider != config.StoreSQLite {
				return fmt.Errorf("seed requires store.provider=sqlite, got %q", rt.cfg.Store.Provider)
			}
			s, err := sqlite.Open(cmd.Context(), sqlite.Config{
				Path:        rt.cfg.SQLite.Path,
				Tables:      rt.cfg.Store.Tables,
				BusyTimeout: rt.cfg.SQLite.BusyTimeout(),
			})
			if err != nil {
				return err
			}
			defer s.Close()

			if err := seedSample(cmd.Context(), s, days, time.Now().UTC()); err != nil {
				return err
			}
			rt.logger.Info("sample data written", zap.String("path", rt.cfg.SQLite.Path), zap.Int("days", days))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 14, "number of daily snapshots to write")
	return cmd
}

func seedSample(ctx context.Context, s *sqlite.Store, days int, now time.Time) error {
	if days <= 0 {
		return fmt.Errorf("days must be > 0")
	}
	start := now.Truncate(24*time.Hour).AddDate(0, 0, -days+1)
	for i := 0; i < days; i++ {
		at := start.AddDate(0, 0, i)
		snap := seo.Snapshot{
			CreatedAt:      at,
			OverallScore:   seo.NewMetric(float64(62 + i)),
			GSCClicks:      seo.NewMetric(float64(90 + 7*i)),
			GSCImpressions: seo.NewMetric(float64(2400 + 110*i)),
			GSCCTR:         seo.NewMetric(0.031 + 0.001*float64(i%5)),
			PSIMobileScore: seo.NewMetric(float64(70 + i%20)),
			PSILCP:         seo.NewMetric(3.4 - 0.1*float64(i%12)),
		}
		if i == days-1 {
			snap.Analysis = "Title tags on the main landing pages now match search intent; mobile LCP is still driven by the hero image."
		}
		if _, err := s.InsertSnapshot(ctx, snap); err != nil {
			return err
		}
		for j, page := range []string{"/", "/services", "/contact"} {
			if _, err := s.InsertPagePerformance(ctx, seo.PagePerformance{
				CreatedAt:   at,
				Page:        page,
				Clicks:      seo.NewMetric(float64(30 + 3*i - 10*j)),
				Impressions: seo.NewMetric(float64(800 + 40*i - 200*j)),
				CTR:         seo.NewMetric(0.035 - 0.005*float64(j)),
				Position:    seo.NewMetric(8.5 - 0.2*float64(i%10) + float64(j)),
			}); err != nil {
				return err
			}
		}
	}

	tasks := []seo.Task{
		{Name: "Compress hero image", Type: "performance", Priority: seo.PriorityHigh,
			Why: "The hero image dominates mobile LCP.", How: "Serve WebP at 1280px and preload it."},
		{Name: "Rewrite meta descriptions", Type: "content", Priority: seo.PriorityMedium,
			Why: "Low CTR on pages ranking in the top 5.", How: "Write unique 150 character descriptions with a call to action."},
		{Name: "Add alt text to gallery", Type: "accessibility", Priority: seo.PriorityLow,
			Why: "Image search traffic is missing.", How: "Describe each gallery image in one sentence."},
	}
	for i, task := range tasks {
		task.CreatedAt = now.Add(-time.Duration(i) * time.Hour)
		if _, err := s.InsertTask(ctx, task); err != nil {
			return err
		}
	}
	return nil
}
