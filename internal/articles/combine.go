package articles

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
)

// CombineResult summarizes a combine run.
type CombineResult struct {
	Batches    int `yaml:"batches"`
	Rows       int `yaml:"rows"`
	Duplicates int `yaml:"duplicates"`
}

// Combine concatenates article batches in input order and keeps only the
// first row for each PMID. Duplicates can survive per-shard extraction when
// two shards carry instances with the same latest revision date.
func Combine(ctx context.Context, inputs []string, output string) (CombineResult, error) {
	var (
		combined []Row
		result   CombineResult
		seen     = make(map[int64]struct{})
	)

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		if i%100 == 0 && i != 0 {
			slog.Info("Processing article batch", "progress", fmt.Sprintf("%d/%d", i, len(inputs)))
		}

		rows, err := batch.Read[Row](input)
		if err != nil {
			return result, fmt.Errorf("failed to read article batch %s: %w", input, err)
		}

		for _, row := range rows {
			if _, dup := seen[row.ID]; dup {
				result.Duplicates++
				continue
			}
			seen[row.ID] = struct{}{}
			combined = append(combined, row)
		}
		result.Batches++
	}

	if result.Duplicates > 0 {
		slog.Info("Removed duplicate article entries", "count", result.Duplicates)
	}

	if err := batch.Write(output, combined); err != nil {
		return result, fmt.Errorf("failed to write combined articles: %w", err)
	}
	result.Rows = len(combined)

	slog.Info("Combined article batches", "batches", result.Batches, "rows", result.Rows, "output", output)
	return result, nil
}
