// Package commands implements the Lectern CLI commands.
package commands

import (
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// NewRootCmd builds the CLI command tree.
func NewRootCmd() *cobra.Command {
	var cfgPath string

	cmd := &cobra.Command{
		Use:   "lectern",
		Short: "Turn textbook chapters into presentation decks and study guides",
		Long: `Lectern converts a textbook chapter PDF into a PowerPoint deck and a
Word study guide. It extracts the chapter's text and figures, asks a
text model to structure the presentation, fills the slides with chapter
figures or generated illustrations, and renders the final documents.`,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env if present; the environment may be set by the host.
			_ = godotenv.Load()
		},
	}

	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to a YAML config file")

	cmd.AddCommand(newGenerateCmd(&cfgPath))
	cmd.AddCommand(newUsageCmd(&cfgPath))

	return cmd
}
