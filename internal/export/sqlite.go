// Package export loads the combined article dataset into a SQLite database
// with a full-text index over titles and abstracts.
package export

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lehigh-university-libraries/pubmedcorpus/internal/articles"
	_ "modernc.org/sqlite"
)

// DB wraps a SQLite database connection.
type DB struct {
	db *sql.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &DB{db: db}, nil
}

// Close closes the database connection.
func (d *DB) Close() error {
	return d.db.Close()
}

func createSchema(db *sql.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS articles (
			id INTEGER PRIMARY KEY,
			doi TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT NOT NULL,
			date TEXT NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_articles_doi ON articles(doi) WHERE doi != '';

		CREATE VIRTUAL TABLE IF NOT EXISTS articles_fts USING fts5(
			title,
			abstract,
			content='articles',
			content_rowid='id'
		);
	`

	_, err := db.Exec(schema)
	return err
}

// Load replaces the database contents with rows inside a single transaction.
func (d *DB) Load(ctx context.Context, rows []articles.Row) (int, error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM articles"); err != nil {
		return 0, fmt.Errorf("failed to clear articles table: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO articles_fts(articles_fts) VALUES('delete-all')"); err != nil {
		return 0, fmt.Errorf("failed to clear articles_fts table: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO articles (id, doi, title, abstract, date) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare articles insert: %w", err)
	}
	defer stmt.Close()

	ftsStmt, err := tx.PrepareContext(ctx, `INSERT INTO articles_fts (rowid, title, abstract) VALUES (?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare fts insert: %w", err)
	}
	defer ftsStmt.Close()

	for _, row := range rows {
		if _, err := stmt.ExecContext(ctx, row.ID, row.DOI, row.Title, row.Abstract, row.Date); err != nil {
			return 0, fmt.Errorf("failed to insert article %d: %w", row.ID, err)
		}
		if _, err := ftsStmt.ExecContext(ctx, row.ID, row.Title, row.Abstract); err != nil {
			return 0, fmt.Errorf("failed to index article %d: %w", row.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit: %w", err)
	}
	return len(rows), nil
}

// Count returns the number of stored articles.
func (d *DB) Count(ctx context.Context) (int, error) {
	var n int
	if err := d.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM articles").Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count articles: %w", err)
	}
	return n, nil
}

// Search runs an FTS5 match query over titles and abstracts, best matches first.
func (d *DB) Search(ctx context.Context, query string, limit int) ([]articles.Row, error) {
	rows, err := d.db.QueryContext(ctx, `
		SELECT a.id, a.doi, a.title, a.abstract, a.date
		FROM articles_fts f
		JOIN articles a ON a.id = f.rowid
		WHERE articles_fts MATCH ?
		ORDER BY bm25(articles_fts), a.id
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search articles: %w", err)
	}
	defer rows.Close()

	var results []articles.Row
	for rows.Next() {
		var r articles.Row
		if err := rows.Scan(&r.ID, &r.DOI, &r.Title, &r.Abstract, &r.Date); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// ByDOI looks up an article by its lower-cased DOI.
func (d *DB) ByDOI(ctx context.Context, doi string) (articles.Row, bool, error) {
	var r articles.Row
	err := d.db.QueryRowContext(ctx,
		"SELECT id, doi, title, abstract, date FROM articles WHERE doi = ?", doi,
	).Scan(&r.ID, &r.DOI, &r.Title, &r.Abstract, &r.Date)
	if err == sql.ErrNoRows {
		return r, false, nil
	}
	if err != nil {
		return r, false, fmt.Errorf("failed to look up doi: %w", err)
	}
	return r, true, nil
}
