// Package revisions catalogs the DateRevised timestamp of every article instance
// in a shard, so the article extractor can tell which instance is the most current.
package revisions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/pubmed"
)

var (
	// ErrMalformedShard means a shard carried a revision date that could not be parsed.
	ErrMalformedShard = errors.New("malformed shard")

	// ErrEmptyShard means no article in the shard had a valid id and revision date.
	ErrEmptyShard = errors.New("no articles found with all required components")
)

// Row is one cataloged article instance.
type Row struct {
	ID   int64  `parquet:"id"`
	File string `parquet:"file"`
	Date string `parquet:"date"`
}

// Extract catalogs every article in the shard at path that has a numeric
// PMID and a DateRevised section.
func Extract(ctx context.Context, path string) ([]Row, error) {
	file := filepath.Base(path)
	var rows []Row

	err := pubmed.Walk(path, func(a *pubmed.Article) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		pmid, ok := a.PMID()
		if !ok {
			return nil
		}

		date, present, err := a.RevisionDate()
		if !present {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%w: %s: article %d: %w", ErrMalformedShard, file, pmid, err)
		}

		rows = append(rows, Row{ID: pmid, File: file, Date: date})
		return nil
	})
	if err != nil {
		return nil, err
	}

	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", file, ErrEmptyShard)
	}

	slog.Debug("Cataloged revisions", "file", file, "rows", len(rows))
	return rows, nil
}

// ExtractToFile catalogs a shard and writes the rows as a batch file.
func ExtractToFile(ctx context.Context, input, output string) (int, error) {
	rows, err := Extract(ctx, input)
	if err != nil {
		return 0, err
	}
	if err := batch.Write(output, rows); err != nil {
		return 0, fmt.Errorf("failed to write revisions for %s: %w", filepath.Base(input), err)
	}
	return len(rows), nil
}

// Combine concatenates catalog batches in input order into a single reference table.
func Combine(ctx context.Context, inputs []string, output string) (int, error) {
	var combined []Row

	for i, input := range inputs {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		if i%100 == 0 && i != 0 {
			slog.Info("Combining revision batches", "progress", fmt.Sprintf("%d/%d", i, len(inputs)))
		}

		rows, err := batch.Read[Row](input)
		if err != nil {
			return 0, fmt.Errorf("failed to read revision batch %s: %w", input, err)
		}
		combined = append(combined, rows...)
	}

	if err := batch.Write(output, combined); err != nil {
		return 0, fmt.Errorf("failed to write combined revisions: %w", err)
	}

	slog.Info("Combined revision batches", "batches", len(inputs), "rows", len(combined), "output", output)
	return len(combined), nil
}
