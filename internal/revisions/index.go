package revisions

import (
	"fmt"
	"sort"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
)

// Index maps each PMID to the revision dates cataloged for it across all shards.
// It is built once before extraction and only read afterwards, so concurrent
// lookups need no locking.
type Index struct {
	dates map[int64][]string
}

// NewIndex builds an index from the combined catalog. Dates for an id are kept sorted.
func NewIndex(rows []Row) *Index {
	idx := &Index{dates: make(map[int64][]string)}
	for _, row := range rows {
		idx.dates[row.ID] = append(idx.dates[row.ID], row.Date)
	}
	for _, dates := range idx.dates {
		sort.Strings(dates)
	}
	return idx
}

// LoadIndex reads a combined catalog batch and indexes it.
func LoadIndex(path string) (*Index, error) {
	rows, err := batch.Read[Row](path)
	if err != nil {
		return nil, fmt.Errorf("failed to load revision catalog: %w", err)
	}
	return NewIndex(rows), nil
}

// Len returns the number of distinct ids in the catalog.
func (idx *Index) Len() int {
	return len(idx.dates)
}

// Count returns how many catalog rows exist for id.
func (idx *Index) Count(id int64) int {
	return len(idx.dates[id])
}

// Dates returns the sorted revision dates cataloged for id.
func (idx *Index) Dates(id int64) []string {
	return idx.dates[id]
}

// Latest returns the most recent revision date cataloged for id.
func (idx *Index) Latest(id int64) (string, bool) {
	dates := idx.dates[id]
	if len(dates) == 0 {
		return "", false
	}
	return dates[len(dates)-1], true
}

// IsLatest reports whether an instance revised on date is the current one.
// Ids cataloged zero or one times need no tie-break and always qualify.
func (idx *Index) IsLatest(id int64, date string) bool {
	if idx.Count(id) <= 1 {
		return true
	}
	latest, _ := idx.Latest(id)
	return date == latest
}
