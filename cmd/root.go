package cmd

import (
	"os"

	"github.com/joho/godotenv"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/corpuscmd"
	"github.com/spf13/cobra"
)

func NewRootCmd() *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "pubmedcorpus",
		Short: "Build a deduplicated title/abstract corpus from PubMed XML shards",
		Long: `pubmedcorpus turns the PubMed baseline and update files into a single
columnar dataset holding the latest revision of every article.

Revision dates are cataloged across all shards first, so each article is kept
only from the shard carrying its most recent revision.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Load .env file if present (ignore errors)
			_ = godotenv.Load()
			corpuscmd.SetupLogging(os.Stderr, verbose)
		},
	}

	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose logging")

	cmd.AddCommand(corpuscmd.NewRevisionsCmd())
	cmd.AddCommand(corpuscmd.NewArticlesCmd())
	cmd.AddCommand(corpuscmd.NewCombineCmd())
	cmd.AddCommand(corpuscmd.NewRunCmd())
	cmd.AddCommand(corpuscmd.NewInspectCmd())
	cmd.AddCommand(corpuscmd.NewExportCmd())
	cmd.AddCommand(corpuscmd.NewSearchCmd())

	return cmd
}
