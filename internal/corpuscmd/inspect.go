package corpuscmd

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
	"github.com/spf13/cobra"
)

// Batch kinds accepted by inspect
const (
	KindRevisions = "revisions"
	KindArticles  = "articles"
)

const previewChars = 300

// NewInspectCmd creates the inspect command
func NewInspectCmd() *cobra.Command {
	var batchPath string
	var kind string
	var limit int

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print rows of a revision or article batch",
		Long: `Print rows from a parquet batch written by the revisions, articles, combine
or run commands. Useful for checking sanitization and revision resolution.`,
		Example: `  # First 5 articles of the combined dataset
  pubmedcorpus inspect --batch output/articles.parquet --limit 5

  # Every catalog row of one shard
  pubmedcorpus inspect --batch output/revisions/pubmed24n0001.parquet --kind revisions --limit 0`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return executeInspect(cmd.Context(), cmd.OutOrStdout(), batchPath, kind, limit)
		},
	}

	cmd.Flags().StringVar(&batchPath, "batch", "", "Path to a parquet batch (required)")
	cmd.Flags().StringVar(&kind, "kind", KindArticles, "Batch kind: revisions or articles")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of rows to print (0 for all)")
	_ = cmd.MarkFlagRequired("batch")

	return cmd
}

func executeInspect(ctx context.Context, w io.Writer, batchPath, kind string, limit int) error {
	switch kind {
	case KindRevisions:
		rows, err := batch.Read[revisions.Row](batchPath)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		return printRows(ctx, w, batchPath, rows, limit, func(row revisions.Row) {
			fmt.Fprintf(w, "ID:       %d\n", row.ID)
			fmt.Fprintf(w, "File:     %s\n", row.File)
			fmt.Fprintf(w, "Revised:  %s\n", row.Date)
		})
	case KindArticles:
		rows, err := batch.Read[articles.Row](batchPath)
		if err != nil {
			return fmt.Errorf("failed to load batch: %w", err)
		}
		return printRows(ctx, w, batchPath, rows, limit, func(row articles.Row) {
			fmt.Fprintf(w, "ID:       %d\n", row.ID)
			fmt.Fprintf(w, "DOI:      %s\n", row.DOI)
			fmt.Fprintf(w, "Date:     %s\n", row.Date)
			fmt.Fprintf(w, "Title:    %s\n", row.Title)
			fmt.Fprintf(w, "Abstract: %s\n", preview(row.Abstract))
		})
	default:
		return fmt.Errorf("unknown batch kind %q (want %s or %s)", kind, KindRevisions, KindArticles)
	}
}

func printRows[T any](ctx context.Context, w io.Writer, batchPath string, rows []T, limit int, show func(T)) error {
	total := len(rows)
	if limit > 0 && limit < total {
		rows = rows[:limit]
	}

	fmt.Fprintf(w, "Loaded %d rows from %s\n", total, batchPath)
	fmt.Fprintln(w, strings.Repeat("=", 80))

	for i, row := range rows {
		select {
		case <-ctx.Done():
			fmt.Fprintln(w, "\nInspection interrupted.")
			return nil
		default:
		}

		fmt.Fprintf(w, "ROW %d/%d\n", i+1, total)
		fmt.Fprintln(w, strings.Repeat("-", 80))
		show(row)
		fmt.Fprintln(w)
	}
	return nil
}

// preview shortens text to previewChars runes.
func preview(text string) string {
	r := []rune(text)
	if len(r) <= previewChars {
		return text
	}
	return fmt.Sprintf("%s [... %d more characters]", string(r[:previewChars]), len(r)-previewChars)
}
