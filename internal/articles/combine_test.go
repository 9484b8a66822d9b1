package articles

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/batch"
)

func TestCombineKeepsFirstRowPerID(t *testing.T) {
	tmpDir := t.TempDir()

	first := filepath.Join(tmpDir, "a.parquet")
	second := filepath.Join(tmpDir, "b.parquet")
	if err := batch.Write(first, []Row{
		{ID: 1, Title: "from a", Abstract: "x"},
		{ID: 2, Title: "from a", Abstract: "x"},
	}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := batch.Write(second, []Row{
		{ID: 2, Title: "from b", Abstract: "x"},
		{ID: 3, Title: "from b", Abstract: "x"},
	}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	output := filepath.Join(tmpDir, "articles.parquet")
	result, err := Combine(context.Background(), []string{first, second}, output)
	if err != nil {
		t.Fatalf("Combine failed: %v", err)
	}

	if result.Batches != 2 || result.Rows != 3 || result.Duplicates != 1 {
		t.Errorf("Unexpected result %+v", result)
	}

	rows, err := batch.Read[Row](output)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("Expected 3 rows, got %d", len(rows))
	}
	if rows[1].ID != 2 || rows[1].Title != "from a" {
		t.Errorf("Expected first-wins row for id 2, got %+v", rows[1])
	}
}

func TestCombineMissingInput(t *testing.T) {
	tmpDir := t.TempDir()
	_, err := Combine(context.Background(), []string{filepath.Join(tmpDir, "missing.parquet")}, filepath.Join(tmpDir, "out.parquet"))
	if err == nil {
		t.Error("Expected error for missing input batch, got nil")
	}
}
