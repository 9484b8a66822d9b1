// Package batch reads and writes the columnar batch files exchanged between pipeline stages.
package batch

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/parquet-go/parquet-go"
)

// readBatchSize is the number of rows pulled from the parquet reader per call
const readBatchSize = 1024

// Metadata is a key/value pair stored in the parquet footer of a batch.
type Metadata struct {
	Key   string
	Value string
}

// Write stores rows as a zstd-compressed parquet file. The file is written to
// a temporary name and renamed into place, so readers never observe a partial batch.
func Write[T any](path string, rows []T, metadata ...Metadata) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("failed to create batch file: %w", err)
	}
	defer os.Remove(tmp.Name())

	options := []parquet.WriterOption{parquet.Compression(&parquet.Zstd)}
	for _, m := range metadata {
		options = append(options, parquet.KeyValueMetadata(m.Key, m.Value))
	}

	writer := parquet.NewGenericWriter[T](tmp, options...)
	if _, err := writer.Write(rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write rows: %w", err)
	}
	if err := writer.Close(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to finalize parquet: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close batch file: %w", err)
	}

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move batch into place: %w", err)
	}

	slog.Debug("Wrote batch", "path", path, "rows", len(rows))
	return nil
}

func open(path string) (*os.File, *parquet.File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open parquet file: %w", err)
	}

	info, err := file.Stat()
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to stat file: %w", err)
	}

	pf, err := parquet.OpenFile(file, info.Size())
	if err != nil {
		file.Close()
		return nil, nil, fmt.Errorf("failed to open parquet: %w", err)
	}
	return file, pf, nil
}

// Read loads every row of a parquet batch file.
func Read[T any](path string) ([]T, error) {
	file, pf, err := open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	slog.Debug("Parquet file opened", "path", path, "num_rows", pf.NumRows(), "num_row_groups", len(pf.RowGroups()))

	reader := parquet.NewGenericReader[T](pf)
	defer reader.Close()

	records := make([]T, 0, pf.NumRows())
	rows := make([]T, readBatchSize)

	for {
		n, err := reader.Read(rows)
		records = append(records, rows[:n]...)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read rows from %s: %w", path, err)
		}
	}

	return records, nil
}

// Lookup returns the footer metadata value stored under key.
func Lookup(path, key string) (string, bool, error) {
	file, pf, err := open(path)
	if err != nil {
		return "", false, err
	}
	defer file.Close()

	value, ok := pf.Lookup(key)
	return value, ok, nil
}

// Fingerprint returns the hex SHA-256 of the file at path.
func Fingerprint(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer file.Close()

	h := sha256.New()
	if _, err := io.Copy(h, file); err != nil {
		return "", fmt.Errorf("failed to hash %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Exists reports whether a batch file is already present at path.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
