package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/storage"
)

func newUsageCmd(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "usage",
		Short: "Show accumulated provider usage and cost",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			db, err := storage.Open(ctx, &cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()

			stats, err := ledger.NewReporter(db).GlobalStats(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Presentations generated: %d\n", stats.Presentations)
			fmt.Fprintf(out, "Total tokens: %d in / %d out\n", stats.Totals.InputTokens, stats.Totals.OutputTokens)
			fmt.Fprintf(out, "Images generated: %d\n", stats.Totals.ImagesGenerated)
			fmt.Fprintf(out, "Total cost: $%.4f\n\n", stats.Totals.CostUSD)

			if len(stats.ByModel) > 0 {
				fmt.Fprintln(out, "By model:")
				for _, m := range stats.ByModel {
					fmt.Fprintf(out, "  %-32s $%.4f (%d calls)\n", m.Model, m.CostUSD, m.Calls)
				}
			}

			if len(stats.Recent) > 0 {
				fmt.Fprintln(out, "\nRecent operations:")
				for _, r := range stats.Recent {
					chapter := ""
					if r.ChapterName != nil {
						chapter = " " + *r.ChapterName
					}
					fmt.Fprintf(out, "  %s %s%s $%.4f\n",
						r.CreatedAt.Format("2006-01-02 15:04"), r.Operation, chapter, r.CostUSD)
				}
			}

			return nil
		},
	}
}
