package corpuscmd

import (
	"fmt"
	"io"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/config"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/pipeline"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/report"
	"github.com/spf13/cobra"
)

// runFlags are the run command's overrides; a flag only applies when it was set.
type runFlags struct {
	configPath  string
	input       string
	glob        string
	output      string
	workers     int
	maxTokenLen int
	resume      bool
}

// NewRunCmd creates the run command, which drives both phases over a directory.
func NewRunCmd() *cobra.Command {
	var flags runFlags

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run revision cataloging and article extraction over a directory of shards",
		Long: `Run the full pipeline over every shard matching the input glob:

  1. catalog revision dates for every shard (in parallel)
  2. combine the revision batches into revisions.parquet
  3. extract the latest revision of each article from every shard (in parallel)
  4. combine the article batches into articles.parquet

A report.yaml summarizing every shard is written to the output directory.

Settings are read from --config (YAML), then PUBMEDCORPUS_* environment
variables (a .env file is honored), then flags.`,
		Example: `  # Process a local baseline mirror with 8 workers
  pubmedcorpus run --input ./baseline --output ./output --workers 8

  # Continue an interrupted run, reusing finished batches
  pubmedcorpus run --config pubmedcorpus.yaml --resume`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := buildConfig(flags, cmd.Flags().Changed)
			if err != nil {
				return err
			}

			rep, err := pipeline.Run(cmd.Context(), cfg)
			if rep != nil {
				printSummary(cmd.OutOrStdout(), rep)
			}
			if err != nil {
				return fmt.Errorf("pipeline failed: %w", err)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&flags.configPath, "config", "", "Path to a YAML config file")
	cmd.Flags().StringVar(&flags.input, "input", "", "Directory containing the XML shards")
	cmd.Flags().StringVar(&flags.glob, "glob", config.DefaultGlob, "Shard file pattern within the input directory")
	cmd.Flags().StringVar(&flags.output, "output", "", "Directory for batches, combined datasets and the report")
	cmd.Flags().IntVar(&flags.workers, "workers", 0, "Number of shards processed concurrently (default: number of CPUs)")
	cmd.Flags().IntVar(&flags.maxTokenLen, "max-token-len", config.DefaultMaxTokenLen, "Drop title/abstract tokens longer than this many characters")
	cmd.Flags().BoolVar(&flags.resume, "resume", false, "Reuse batch files left by a previous run")

	return cmd
}

// buildConfig layers the config file, the environment and the flags that were set.
func buildConfig(flags runFlags, changed func(string) bool) (config.Config, error) {
	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return cfg, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return cfg, err
	}

	if changed("input") {
		cfg.Input.Dir = flags.input
	}
	if changed("glob") {
		cfg.Input.Glob = flags.glob
	}
	if changed("output") {
		cfg.Output.Dir = flags.output
	}
	if changed("workers") {
		cfg.Workers = flags.workers
	}
	if changed("max-token-len") {
		cfg.Tokens.MaxLen = flags.maxTokenLen
	}
	if changed("resume") {
		cfg.Resume = flags.resume
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func printSummary(w io.Writer, rep *report.Report) {
	t := rep.Totals

	fmt.Fprintln(w, "\n========================================")
	fmt.Fprintln(w, "Pipeline Summary")
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "Shards:             %d\n", t.Shards)
	fmt.Fprintf(w, "  Failed:           %d\n", t.Failed)
	fmt.Fprintf(w, "  Empty:            %d\n", t.Empty)
	fmt.Fprintf(w, "  Cached:           %d\n", t.Cached)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Revision Rows:      %d\n", t.RevisionRows)
	fmt.Fprintf(w, "Catalog IDs:        %d\n", t.CatalogIDs)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Articles Seen:      %d\n", t.Articles.Seen)
	fmt.Fprintf(w, "  Missing Title:    %d\n", t.Articles.MissingTitle)
	fmt.Fprintf(w, "  Missing Abstract: %d\n", t.Articles.MissingAbstract)
	fmt.Fprintf(w, "  Invalid ID:       %d\n", t.Articles.InvalidID)
	fmt.Fprintf(w, "  Duplicate:        %d\n", t.Articles.Duplicate)
	fmt.Fprintf(w, "  Superseded:       %d\n", t.Articles.Superseded)
	fmt.Fprintf(w, "  Undated:          %d\n", t.Articles.Undated)
	fmt.Fprintf(w, "  Kept:             %d\n", t.Articles.Kept)
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Combined Rows:      %d\n", t.CombinedRows)
	fmt.Fprintf(w, "Cross-shard Dupes:  %d\n", t.CrossShardDupes)
	fmt.Fprintf(w, "Elapsed:            %s\n", t.Elapsed)
	fmt.Fprintln(w, "========================================")
}
