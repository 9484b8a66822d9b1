package corpuscmd

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/config"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/pipeline"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
	"github.com/spf13/cobra"
)

// NewRevisionsCmd creates the revisions command, which catalogs one shard.
func NewRevisionsCmd() *cobra.Command {
	var input string
	var output string

	cmd := &cobra.Command{
		Use:   "revisions",
		Short: "Catalog the revision date of every article in one shard",
		Long: `Read a gzip-compressed PubMed XML shard and write one (id, file, date) row
per article that carries both a PMID and a DateRevised.

An unparseable revision date fails the shard. A shard with no qualifying
articles is an error.`,
		Example: `  pubmedcorpus revisions --input pubmed24n0001.xml.gz --output revisions/pubmed24n0001.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := revisions.ExtractToFile(cmd.Context(), input, output)
			if err != nil {
				return fmt.Errorf("failed to catalog revisions: %w", err)
			}
			slog.Info("Wrote revision batch", "rows", n, "output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to a gzip-compressed PubMed XML shard (required)")
	cmd.Flags().StringVar(&output, "output", "", "Path of the revision batch to write (required)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}

// NewArticlesCmd creates the articles command, which extracts one shard
// against a combined revision catalog.
func NewArticlesCmd() *cobra.Command {
	var input string
	var catalogPath string
	var output string
	var maxTokenLen int

	cmd := &cobra.Command{
		Use:   "articles",
		Short: "Extract the latest revision of each article in one shard",
		Long: `Read a gzip-compressed PubMed XML shard and write one (id, doi, title,
abstract, date) row per article that has a title, an abstract and a PMID and
whose revision is the latest one in the combined revision catalog.

Titles and abstracts are sanitized: tokens longer than --max-token-len are
dropped and underscores are escaped as %5f. A shard with no retainable
articles writes nothing and is not an error.`,
		Example: `  pubmedcorpus articles --input pubmed24n0001.xml.gz \
    --revisions output/revisions.parquet --output articles/pubmed24n0001.parquet`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if maxTokenLen <= 0 {
				return fmt.Errorf("--max-token-len must be positive, got %d", maxTokenLen)
			}

			catalog, err := revisions.LoadIndex(catalogPath)
			if err != nil {
				return err
			}

			extractor, err := articles.NewExtractor(catalog, maxTokenLen)
			if err != nil {
				return err
			}
			catalogHash, err := batch.Fingerprint(catalogPath)
			if err != nil {
				return err
			}

			stats, err := extractor.ExtractToFile(cmd.Context(), input, output,
				batch.Metadata{Key: pipeline.CatalogKey, Value: catalogHash})
			if errors.Is(err, articles.ErrNoArticles) {
				slog.Warn("Skipping shard: no articles found with all needed pieces", "input", input, "seen", stats.Seen)
				return nil
			}
			if err != nil {
				return fmt.Errorf("failed to extract articles: %w", err)
			}

			slog.Info("Wrote article batch",
				"kept", stats.Kept,
				"superseded", stats.Superseded,
				"duplicates", stats.Duplicate,
				"missing_title", stats.MissingTitle,
				"missing_abstract", stats.MissingAbstract,
				"output", output)
			return nil
		},
	}

	cmd.Flags().StringVar(&input, "input", "", "Path to a gzip-compressed PubMed XML shard (required)")
	cmd.Flags().StringVar(&catalogPath, "revisions", "", "Path to the combined revision catalog (required)")
	cmd.Flags().StringVar(&output, "output", "", "Path of the article batch to write (required)")
	cmd.Flags().IntVar(&maxTokenLen, "max-token-len", config.DefaultMaxTokenLen, "Drop title/abstract tokens longer than this many characters")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("revisions")
	_ = cmd.MarkFlagRequired("output")

	return cmd
}
