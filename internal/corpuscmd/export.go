package corpuscmd

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/export"
	"github.com/spf13/cobra"
)

// NewExportCmd creates the export command, which loads the combined dataset into SQLite.
func NewExportCmd() *cobra.Command {
	var articlesPath string
	var dbPath string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Load the combined article dataset into a searchable SQLite database",
		Long: `Load articles.parquet into a SQLite database with a full-text index over
titles and abstracts. Existing database contents are replaced.`,
		Example: `  pubmedcorpus export --articles output/articles.parquet --db corpus.db`,
		RunE: func(cmd *cobra.Command, args []string) error {
			rows, err := batch.Read[articles.Row](articlesPath)
			if err != nil {
				return fmt.Errorf("failed to load articles: %w", err)
			}

			db, err := export.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			n, err := db.Load(cmd.Context(), rows)
			if err != nil {
				return fmt.Errorf("failed to export articles: %w", err)
			}
			slog.Info("Exported articles", "rows", n, "db", dbPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&articlesPath, "articles", "", "Path to the combined article dataset (required)")
	cmd.Flags().StringVar(&dbPath, "db", "corpus.db", "Path of the SQLite database")
	_ = cmd.MarkFlagRequired("articles")

	return cmd
}

// NewSearchCmd creates the search command
func NewSearchCmd() *cobra.Command {
	var dbPath string
	var limit int
	var doi bool

	cmd := &cobra.Command{
		Use:   "search QUERY",
		Short: "Full-text search over an exported database",
		Example: `  pubmedcorpus search --db corpus.db "protein folding"
  pubmedcorpus search --db corpus.db --doi 10.1000/xyz123`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := export.Open(dbPath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			query := strings.Join(args, " ")
			w := cmd.OutOrStdout()

			if doi {
				row, ok, err := db.ByDOI(cmd.Context(), strings.ToLower(query))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintf(w, "No article with DOI %s\n", query)
					return nil
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.ID, row.Date, row.DOI, row.Title)
				return nil
			}

			results, err := db.Search(cmd.Context(), query, limit)
			if err != nil {
				return err
			}
			for _, row := range results {
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", row.ID, row.Date, row.DOI, row.Title)
			}
			slog.Debug("Search complete", "query", query, "results", len(results))
			return nil
		},
	}

	cmd.Flags().StringVar(&dbPath, "db", "corpus.db", "Path of the SQLite database")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of results")
	cmd.Flags().BoolVar(&doi, "doi", false, "Look up QUERY as a DOI instead of searching text")

	return cmd
}
