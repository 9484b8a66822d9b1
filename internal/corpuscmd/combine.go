package corpuscmd

import (
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
	"github.com/spf13/cobra"
)

// NewCombineCmd creates the combine command with one subcommand per batch kind.
func NewCombineCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "combine",
		Short: "Combine per-shard batches into one dataset",
	}

	cmd.AddCommand(newCombineRevisionsCmd())
	cmd.AddCommand(newCombineArticlesCmd())

	return cmd
}

func newCombineRevisionsCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "revisions BATCH...",
		Short: "Concatenate revision batches into the revision catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := revisions.Combine(cmd.Context(), args, output)
			return err
		},
	}

	cmd.Flags().StringVar(&output, "output", "revisions.parquet", "Path of the combined catalog")
	return cmd
}

func newCombineArticlesCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "articles BATCH...",
		Short: "Concatenate article batches, keeping the first row for each id",
		Long: `Concatenate article batches in argument order. When two batches carry the
same article id (equal latest revision dates in two shards), the row from the
earlier batch is kept.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := articles.Combine(cmd.Context(), args, output)
			if err != nil {
				return fmt.Errorf("failed to combine articles: %w", err)
			}
			if res.Duplicates > 0 {
				slog.Warn("Dropped cross-shard duplicates", "count", res.Duplicates)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&output, "output", "articles.parquet", "Path of the combined dataset")
	return cmd
}
