// Package articles extracts clean article records (id, DOI, title, abstract,
// publication date) from PubMed shards, keeping only the latest revision of each article.
package articles

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/pubmed"
	"github.com/lehigh-university-libraries/pubmedcorpus/internal/revisions"
)

// ErrNoArticles means a shard held no retainable articles. It is a soft
// condition: the shard is skipped and the run continues.
var ErrNoArticles = errors.New("no articles found with all needed pieces")

// ErrInvalidTokenLen is returned for a non-positive maximum token length.
var ErrInvalidTokenLen = errors.New("max token length must be positive")

// Row is one extracted article.
type Row struct {
	ID       int64  `parquet:"id"`
	DOI      string `parquet:"doi"`
	Title    string `parquet:"title"`
	Abstract string `parquet:"abstract"`
	Date     string `parquet:"date"`
}

// Stats counts what happened to each article of a shard.
type Stats struct {
	Seen            int `yaml:"seen"`
	MissingTitle    int `yaml:"missingtitle"`
	MissingAbstract int `yaml:"missingabstract"`
	InvalidID       int `yaml:"invalidid"`
	Duplicate       int `yaml:"duplicate"`
	Superseded      int `yaml:"superseded"`
	Undated         int `yaml:"undated"`
	Kept            int `yaml:"kept"`
}

// Add accumulates other into s.
func (s *Stats) Add(other Stats) {
	s.Seen += other.Seen
	s.MissingTitle += other.MissingTitle
	s.MissingAbstract += other.MissingAbstract
	s.InvalidID += other.InvalidID
	s.Duplicate += other.Duplicate
	s.Superseded += other.Superseded
	s.Undated += other.Undated
	s.Kept += other.Kept
}

// Extractor turns shards into article rows using a revision catalog built from all shards.
type Extractor struct {
	catalog     *revisions.Index
	maxTokenLen int
}

// NewExtractor creates an extractor. A nil catalog treats every article as
// having a single revision.
func NewExtractor(catalog *revisions.Index, maxTokenLen int) (*Extractor, error) {
	if maxTokenLen <= 0 {
		return nil, fmt.Errorf("%w, got %d", ErrInvalidTokenLen, maxTokenLen)
	}
	if catalog == nil {
		catalog = revisions.NewIndex(nil)
	}
	return &Extractor{
		catalog:     catalog,
		maxTokenLen: maxTokenLen,
	}, nil
}

// Extract returns at most one row per PMID for the shard at path, in document order.
// The first retainable instance of a PMID within the shard wins.
func (e *Extractor) Extract(ctx context.Context, path string) ([]Row, Stats, error) {
	var (
		rows  []Row
		stats Stats
		seen  = make(map[int64]struct{})
	)

	err := pubmed.Walk(path, func(a *pubmed.Article) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		stats.Seen++

		row, reason := e.extract(a, seen)
		if reason != "" {
			stats.skip(reason)
			return nil
		}

		if row.Date == "" {
			stats.Undated++
		}
		seen[row.ID] = struct{}{}
		rows = append(rows, row)
		stats.Kept++
		return nil
	})
	if err != nil {
		return nil, stats, err
	}

	if len(rows) == 0 {
		return nil, stats, fmt.Errorf("%s: %w", filepath.Base(path), ErrNoArticles)
	}

	slog.Debug("Extracted articles", "file", filepath.Base(path), "kept", stats.Kept, "seen", stats.Seen)
	return rows, stats, nil
}

type skipReason string

const (
	skipMissingTitle    skipReason = "missingtitle"
	skipMissingAbstract skipReason = "missingabstract"
	skipInvalidID       skipReason = "invalidid"
	skipDuplicate       skipReason = "duplicate"
	skipSuperseded      skipReason = "superseded"
)

func (s *Stats) skip(reason skipReason) {
	switch reason {
	case skipMissingTitle:
		s.MissingTitle++
	case skipMissingAbstract:
		s.MissingAbstract++
	case skipInvalidID:
		s.InvalidID++
	case skipDuplicate:
		s.Duplicate++
	case skipSuperseded:
		s.Superseded++
	}
}

func (e *Extractor) extract(a *pubmed.Article, seen map[int64]struct{}) (Row, skipReason) {
	title := a.TitleText()
	if title == "" {
		return Row{}, skipMissingTitle
	}

	abstract := a.AbstractText()
	if abstract == "" {
		return Row{}, skipMissingAbstract
	}

	pmid, ok := a.PMID()
	if !ok {
		return Row{}, skipInvalidID
	}

	if _, dup := seen[pmid]; dup {
		return Row{}, skipDuplicate
	}

	doi := a.DOI()
	pubDate := a.PublicationDate()

	// The instance's own DateRevised decides, not the cataloged one. A missing
	// or unparseable own date can never match the latest cataloged date.
	if e.catalog.Count(pmid) > 1 {
		own, _, err := a.RevisionDate()
		if err != nil || !e.catalog.IsLatest(pmid, own) {
			return Row{}, skipSuperseded
		}
	}

	title = pubmed.Sanitize(title, e.maxTokenLen)
	if title == "" {
		return Row{}, skipMissingTitle
	}
	abstract = pubmed.Sanitize(abstract, e.maxTokenLen)
	if abstract == "" {
		return Row{}, skipMissingAbstract
	}

	return Row{
		ID:       pmid,
		DOI:      doi,
		Title:    title,
		Abstract: abstract,
		Date:     pubDate,
	}, ""
}

// ExtractToFile extracts a shard and writes its batch, with metadata stored in
// the batch footer. When the shard yields no rows nothing is written and
// ErrNoArticles is returned.
func (e *Extractor) ExtractToFile(ctx context.Context, input, output string, metadata ...batch.Metadata) (Stats, error) {
	rows, stats, err := e.Extract(ctx, input)
	if err != nil {
		return stats, err
	}
	if err := batch.Write(output, rows, metadata...); err != nil {
		return stats, fmt.Errorf("failed to write articles for %s: %w", filepath.Base(input), err)
	}
	return stats, nil
}
