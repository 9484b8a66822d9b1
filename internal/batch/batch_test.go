package batch

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
)

type testRow struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

func TestWriteRead(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "nested", "rows.parquet")

	rows := make([]testRow, 0, 3000)
	for i := 0; i < 3000; i++ {
		rows = append(rows, testRow{ID: int64(i + 1), Name: string(rune('a' + i%26))})
	}

	if err := Write(path, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if !Exists(path) {
		t.Fatalf("Expected %s to exist", path)
	}

	got, err := Read[testRow](path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != len(rows) {
		t.Fatalf("Expected %d rows, got %d", len(rows), len(got))
	}
	for i := range rows {
		if got[i] != rows[i] {
			t.Fatalf("Row %d: expected %+v, got %+v", i, rows[i], got[i])
		}
	}
}

func TestWriteEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.parquet")

	if err := Write[testRow](path, nil); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	got, err := Read[testRow](path)
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Expected 0 rows, got %d", len(got))
	}
}

func TestWriteIsDeterministic(t *testing.T) {
	tmpDir := t.TempDir()
	rows := []testRow{{ID: 7, Name: "seven"}, {ID: 3, Name: "three"}}

	first := filepath.Join(tmpDir, "first.parquet")
	second := filepath.Join(tmpDir, "second.parquet")
	if err := Write(first, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(second, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	a, _ := os.ReadFile(first)
	b, _ := os.ReadFile(second)
	if !bytes.Equal(a, b) {
		t.Error("Expected identical bytes for identical batches")
	}
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	tmpDir := t.TempDir()
	if err := Write(filepath.Join(tmpDir, "rows.parquet"), []testRow{{ID: 1, Name: "one"}}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	entries, err := os.ReadDir(tmpDir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected only the batch file, got %d entries", len(entries))
	}
}

func TestReadNonExistentFile(t *testing.T) {
	if _, err := Read[testRow]("/nonexistent/path/file.parquet"); err == nil {
		t.Error("Expected error for non-existent file, got nil")
	}
}

func TestReadNotParquet(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus.parquet")
	if err := os.WriteFile(path, []byte("not a parquet file"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	if _, err := Read[testRow](path); err == nil {
		t.Error("Expected error for invalid parquet, got nil")
	}
}

func TestWriteMetadata(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.parquet")

	if err := Write(path, []testRow{{ID: 1, Name: "a"}}, Metadata{Key: "catalog_sha256", Value: "abc123"}); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	value, ok, err := Lookup(path, "catalog_sha256")
	if err != nil {
		t.Fatalf("Lookup failed: %v", err)
	}
	if !ok || value != "abc123" {
		t.Errorf("Expected abc123, got %q (ok=%v)", value, ok)
	}

	if _, ok, err := Lookup(path, "missing"); err != nil || ok {
		t.Errorf("Expected missing key, got ok=%v err=%v", ok, err)
	}

	if _, _, err := Lookup(filepath.Join(t.TempDir(), "nope.parquet"), "catalog_sha256"); err == nil {
		t.Error("Expected error for nonexistent file")
	}
}

func TestFingerprint(t *testing.T) {
	tmpDir := t.TempDir()
	first := filepath.Join(tmpDir, "first.parquet")
	second := filepath.Join(tmpDir, "second.parquet")
	third := filepath.Join(tmpDir, "third.parquet")

	rows := []testRow{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}}
	if err := Write(first, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(second, rows); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	if err := Write(third, append(rows, testRow{ID: 3, Name: "c"})); err != nil {
		t.Fatalf("Write failed: %v", err)
	}

	a, err := Fingerprint(first)
	if err != nil {
		t.Fatalf("Fingerprint failed: %v", err)
	}
	b, _ := Fingerprint(second)
	c, _ := Fingerprint(third)

	if len(a) != 64 {
		t.Errorf("Expected 64 hex characters, got %d", len(a))
	}
	if a != b {
		t.Errorf("Expected equal fingerprints for identical batches, got %s and %s", a, b)
	}
	if a == c {
		t.Error("Expected different fingerprints for different batches")
	}
}
