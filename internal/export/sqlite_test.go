package export

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "corpus.db"))
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	rows := []articles.Row{
		{ID: 1, DOI: "10.1000/one", Title: "Machine learning in biology", Abstract: "We apply learning to genomes.", Date: "2020-01-01"},
		{ID: 2, DOI: "", Title: "Protein folding", Abstract: "Structure prediction of proteins.", Date: ""},
		{ID: 3, DOI: "10.1000/three", Title: "Statistical genomics", Abstract: "Methods for genome analysis.", Date: "2019-05-01"},
	}
	if _, err := db.Load(context.Background(), rows); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	return db
}

func TestLoadAndCount(t *testing.T) {
	db := setupTestDB(t)

	n, err := db.Count(context.Background())
	if err != nil {
		t.Fatalf("Count failed: %v", err)
	}
	if n != 3 {
		t.Errorf("Expected 3 articles, got %d", n)
	}

	// reloading replaces instead of appending
	if _, err := db.Load(context.Background(), []articles.Row{{ID: 9, Title: "t", Abstract: "a"}}); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	n, _ = db.Count(context.Background())
	if n != 1 {
		t.Errorf("Expected 1 article after reload, got %d", n)
	}
	results, err := db.Search(context.Background(), "genomes", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("Expected stale FTS entries to be cleared, got %+v", results)
	}
}

func TestSearch(t *testing.T) {
	db := setupTestDB(t)

	results, err := db.Search(context.Background(), "protein*", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 1 || results[0].ID != 2 {
		t.Errorf("Expected article 2, got %+v", results)
	}

	results, err = db.Search(context.Background(), "genome*", 10)
	if err != nil {
		t.Fatalf("Search failed: %v", err)
	}
	if len(results) != 2 {
		t.Errorf("Expected 2 results for genome*, got %d", len(results))
	}
}

func TestByDOI(t *testing.T) {
	db := setupTestDB(t)

	row, ok, err := db.ByDOI(context.Background(), "10.1000/three")
	if err != nil {
		t.Fatalf("ByDOI failed: %v", err)
	}
	if !ok || row.ID != 3 {
		t.Errorf("Expected article 3, got %+v (ok=%v)", row, ok)
	}

	if _, ok, err := db.ByDOI(context.Background(), "10.1000/missing"); err != nil || ok {
		t.Errorf("Expected no match, got ok=%v err=%v", ok, err)
	}
}

func TestSearchErrorsAreWrapped(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.Search(context.Background(), `"unterminated`, 10)
	if err == nil {
		t.Fatal("Expected error for malformed FTS query")
	}
	if !strings.HasPrefix(err.Error(), "failed to search articles: ") {
		t.Errorf("Expected wrapped search error, got %v", err)
	}
}
