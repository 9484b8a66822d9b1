// Package pipeline drives the two extraction phases over a directory of shards:
// revision cataloging for every shard, a barrier while the catalog is combined,
// then article extraction for every shard against the complete catalog.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/config"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/report"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
)

// Output file names under the output directory
const (
	RevisionsDir  = "revisions"
	ArticlesDir   = "articles"
	RevisionsFile = "revisions.parquet"
	ArticlesFile  = "articles.parquet"
)

// CatalogKey is the article batch metadata key holding the SHA-256 of the
// revision catalog the batch was extracted against.
const CatalogKey = "pubmedcorpus.catalog_sha256"

// ErrNoShards is returned when the input glob matches nothing.
var ErrNoShards = errors.New("no input shards found")

// Discover returns the shards matching glob under dir, sorted by name.
// The sort order is also the combination order, so it decides which shard
// wins when two shards carry the same article with the same latest revision.
func Discover(dir, glob string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(dir, glob))
	if err != nil {
		return nil, fmt.Errorf("invalid input glob %q: %w", glob, err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w in %s matching %s", ErrNoShards, dir, glob)
	}
	sort.Strings(matches)
	return matches, nil
}

// BatchName maps a shard file name to its batch file name.
func BatchName(shard string) string {
	base := filepath.Base(shard)
	base = strings.TrimSuffix(base, ".gz")
	base = strings.TrimSuffix(base, ".xml")
	return base + ".parquet"
}

// Run executes the whole pipeline and writes report.yaml next to the outputs.
// Every shard of a phase is attempted even when some fail; shard failures stop
// the run at the end of that phase and are returned together with the partial report.
func Run(ctx context.Context, cfg config.Config) (*report.Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	start := time.Now()
	rep := report.New(report.RunConfig{
		InputDir:    cfg.Input.Dir,
		Glob:        cfg.Input.Glob,
		OutputDir:   cfg.Output.Dir,
		MaxTokenLen: cfg.Tokens.MaxLen,
		Workers:     cfg.Workers,
		Resume:      cfg.Resume,
	})

	shards, err := Discover(cfg.Input.Dir, cfg.Input.Glob)
	if err != nil {
		return nil, err
	}

	slog.Info("Starting pipeline", "input", cfg.Input.Dir, "shards", len(shards), "workers", cfg.Workers, "output", cfg.Output.Dir)

	rep.Shards = make([]report.ShardResult, len(shards))
	for i, shard := range shards {
		rep.Shards[i].Name = filepath.Base(shard)
	}

	finish := func(err error) (*report.Report, error) {
		rep.Aggregate()
		rep.Totals.Elapsed = time.Since(start).Round(time.Millisecond).String()
		path, saveErr := rep.Save(cfg.Output.Dir)
		if saveErr != nil {
			slog.Error("Unable to save report", "err", saveErr)
		} else {
			slog.Info("Report saved", "path", path)
		}
		return rep, err
	}

	revisionBatches, err := catalogShards(ctx, cfg, shards, rep.Shards)
	if err != nil {
		return finish(err)
	}

	catalogPath := filepath.Join(cfg.Output.Dir, RevisionsFile)
	if _, err := revisions.Combine(ctx, revisionBatches, catalogPath); err != nil {
		return finish(err)
	}

	catalog, err := revisions.LoadIndex(catalogPath)
	if err != nil {
		return finish(err)
	}
	catalogHash, err := batch.Fingerprint(catalogPath)
	if err != nil {
		return finish(err)
	}
	rep.Totals.CatalogIDs = catalog.Len()
	rep.Totals.CatalogSHA256 = catalogHash
	slog.Info("Revision catalog ready", "ids", catalog.Len(), "sha256", catalogHash)

	articleBatches, err := extractShards(ctx, cfg, catalog, catalogHash, shards, rep.Shards)
	if err != nil {
		return finish(err)
	}

	if len(articleBatches) == 0 {
		slog.Warn("No shard produced any articles; skipping combine")
		return finish(nil)
	}

	combined, err := articles.Combine(ctx, articleBatches, filepath.Join(cfg.Output.Dir, ArticlesFile))
	if err != nil {
		return finish(err)
	}
	rep.Totals.CombinedRows = combined.Rows
	rep.Totals.CrossShardDupes = combined.Duplicates

	slog.Info("Pipeline complete", "articles", combined.Rows, "elapsed", time.Since(start).Round(time.Millisecond))
	return finish(nil)
}

// catalogShards runs the revision phase and returns the batch paths in shard
// order. A failing shard does not stop the others: every shard is attempted and
// marked, and the failures are joined into one error at the barrier.
func catalogShards(ctx context.Context, cfg config.Config, shards []string, results []report.ShardResult) ([]string, error) {
	outputs := make([]string, len(shards))
	errs := make([]error, len(shards))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	for i, shard := range shards {
		output := filepath.Join(cfg.Output.Dir, RevisionsDir, BatchName(shard))
		outputs[i] = output

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := &results[i]

			if cfg.Resume && batch.Exists(output) {
				rows, err := batch.Read[revisions.Row](output)
				if err == nil {
					res.RevisionRows = len(rows)
					res.RevisionStatus = report.StatusCached
					slog.Debug("Reusing revision batch", "file", res.Name)
					return nil
				}
				slog.Warn("Existing revision batch unreadable, rebuilding", "file", res.Name, "err", err)
			}

			n, err := revisions.ExtractToFile(ctx, shard, output)
			if err != nil && ctx.Err() != nil {
				return nil
			}
			if err != nil {
				res.RevisionStatus = report.StatusFailed
				res.Error = err.Error()
				errs[i] = fmt.Errorf("failed to catalog revisions for %s: %w", res.Name, err)
				slog.Error("Unable to catalog revisions", "file", res.Name, "err", err)
				return nil
			}
			res.RevisionRows = n
			res.RevisionStatus = report.StatusOK

			slog.Info("Cataloged revisions", "file", res.Name, "rows", n,
				"progress", fmt.Sprintf("%d/%d", done.Add(1), len(shards)))
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return outputs, nil
}

// extractShards runs the article phase. Shards without retainable articles
// produce no batch and are left out of the returned paths. Each batch records
// the fingerprint of the catalog it was extracted against, and on resume a
// batch is only reused when that fingerprint still matches.
func extractShards(ctx context.Context, cfg config.Config, catalog *revisions.Index, catalogHash string, shards []string, results []report.ShardResult) ([]string, error) {
	extractor, err := articles.NewExtractor(catalog, cfg.Tokens.MaxLen)
	if err != nil {
		return nil, err
	}
	outputs := make([]string, len(shards))
	errs := make([]error, len(shards))
	var done atomic.Int64

	var g errgroup.Group
	g.SetLimit(cfg.Workers)

	for i, shard := range shards {
		output := filepath.Join(cfg.Output.Dir, ArticlesDir, BatchName(shard))

		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			res := &results[i]

			if cfg.Resume && batch.Exists(output) {
				if rows, ok := reusableArticles(output, catalogHash); ok {
					res.Articles = articles.Stats{Kept: len(rows)}
					res.ArticleStatus = report.StatusCached
					outputs[i] = output
					slog.Debug("Reusing article batch", "file", res.Name)
					return nil
				}
			}

			stats, err := extractor.ExtractToFile(ctx, shard, output, batch.Metadata{Key: CatalogKey, Value: catalogHash})
			res.Articles = stats
			if err != nil && ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, articles.ErrNoArticles) {
				// a batch from an earlier catalog must not survive into a later combine
				if rmErr := os.Remove(output); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
					slog.Warn("Unable to remove stale article batch", "file", res.Name, "err", rmErr)
				}
				res.ArticleStatus = report.StatusEmpty
				slog.Warn("Skipping shard: no articles found with all needed pieces", "file", res.Name, "seen", stats.Seen)
				return nil
			}
			if err != nil {
				res.ArticleStatus = report.StatusFailed
				res.Error = err.Error()
				errs[i] = fmt.Errorf("failed to extract articles for %s: %w", res.Name, err)
				slog.Error("Unable to extract articles", "file", res.Name, "err", err)
				return nil
			}
			res.ArticleStatus = report.StatusOK
			outputs[i] = output

			slog.Info("Extracted articles", "file", res.Name, "kept", stats.Kept, "superseded", stats.Superseded,
				"progress", fmt.Sprintf("%d/%d", done.Add(1), len(shards)))
			return nil
		})
	}

	_ = g.Wait()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}

	produced := outputs[:0]
	for _, out := range outputs {
		if out != "" {
			produced = append(produced, out)
		}
	}
	return produced, nil
}

// reusableArticles reads an existing article batch when it was extracted
// against the catalog with fingerprint catalogHash.
func reusableArticles(path, catalogHash string) ([]articles.Row, bool) {
	name := filepath.Base(path)

	hash, ok, err := batch.Lookup(path, CatalogKey)
	if err != nil {
		slog.Warn("Existing article batch unreadable, rebuilding", "file", name, "err", err)
		return nil, false
	}
	if !ok || hash != catalogHash {
		slog.Info("Revision catalog changed since batch was written, re-extracting", "file", name)
		return nil, false
	}

	rows, err := batch.Read[articles.Row](path)
	if err != nil {
		slog.Warn("Existing article batch unreadable, rebuilding", "file", name, "err", err)
		return nil, false
	}
	return rows, true
}
