package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lectern-ai/lectern/internal/config"
	"github.com/lectern-ai/lectern/internal/domain"
	"github.com/lectern-ai/lectern/internal/ledger"
	"github.com/lectern-ai/lectern/internal/observability"
	"github.com/lectern-ai/lectern/internal/pdf"
	"github.com/lectern-ai/lectern/internal/storage"
	"github.com/lectern-ai/lectern/internal/tasks"
)

func newGenerateCmd(cfgPath *string) *cobra.Command {
	var (
		chapterName string
		groupName   string
		userName    string
		skipImages  bool
	)

	cmd := &cobra.Command{
		Use:   "generate <chapter.pdf>",
		Short: "Generate a presentation and study guide from a chapter PDF",
		Example: `  # Generate with defaults
  lectern generate chapter5.pdf --user alice

  # Name the chapter and skip image generation
  lectern generate chapter5.pdf --user alice --chapter KWC05 --skip-images`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pdfPath := args[0]
			if err := pdf.NewValidator().ValidatePDFPath(pdfPath); err != nil {
				return err
			}

			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}

			logger := observability.NewLogger(observability.LogConfig{
				Level:       cfg.Logging.Level,
				Format:      "console",
				ServiceName: "lectern-cli",
			})

			ctx := cmd.Context()
			db, err := storage.Open(ctx, &cfg.Storage)
			if err != nil {
				return err
			}
			defer db.Close()

			recorder := ledger.NewRecorder(db, logger)
			factory := tasks.NewProviderFactory(cfg, db, recorder, logger)
			store := tasks.NewMemoryStore()
			orchestrator := tasks.NewOrchestrator(store, factory, db, 1, cfg.Pipeline.WorkDir, logger)

			taskID, err := orchestrator.Submit(ctx, domain.GenerateRequest{
				PDFPath:     pdfPath,
				PDFFilename: pdfPath,
				ChapterName: chapterName,
				GroupName:   groupName,
				UserName:    userName,
				SkipImages:  skipImages,
			})
			if err != nil {
				return err
			}

			orchestrator.Wait()

			task, err := store.Get(ctx, taskID)
			if err != nil {
				return err
			}
			if task.Status != domain.TaskStatusCompleted {
				return fmt.Errorf("generation failed: %s", task.Error)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Presentation: %s\n", task.PPTXPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Study guide:  %s\n", task.DOCXPath)
			fmt.Fprintf(cmd.OutOrStdout(), "Slides: %d  Cost: $%.4f\n", task.SlidesCount, task.CostUSD)
			return nil
		},
	}

	cmd.Flags().StringVar(&chapterName, "chapter", "", "chapter label used in filenames and slides")
	cmd.Flags().StringVar(&groupName, "group", "", "group label shown on the title slide")
	cmd.Flags().StringVar(&userName, "user", "", "user the generation is attributed to")
	cmd.Flags().BoolVar(&skipImages, "skip-images", false, "skip image generation; chapter figures are still used")
	cmd.MarkFlagRequired("user")

	return cmd
}
