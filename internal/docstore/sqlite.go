// Package docstore owns document metadata: id, title, source locator
// and pipeline status. The indexing pipeline reads locators and titles
// and writes status transitions; everything else is CRUD.
package docstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"lexindex/internal/domain"
)

// ErrNotFound is returned when a document id does not exist.
var ErrNotFound = errors.New("document not found")

const schema = `
CREATE TABLE IF NOT EXISTS documents (
	id             TEXT PRIMARY KEY,
	title          TEXT NOT NULL,
	source_locator TEXT NOT NULL,
	status         TEXT NOT NULL,
	updated_at     TEXT NOT NULL
);`

// SQLiteStore persists documents in a local SQLite database.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (and if needed creates) the database at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open document store: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init document store schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error { return s.db.Close() }

// Create inserts a document. An empty status defaults to Pending.
func (s *SQLiteStore) Create(ctx context.Context, doc domain.Document) error {
	if doc.Status == "" {
		doc.Status = domain.StatusPending
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO documents (id, title, source_locator, status, updated_at) VALUES (?, ?, ?, ?, ?)`,
		doc.ID, doc.Title, doc.SourceLocator, string(doc.Status), now())
	if err != nil {
		return fmt.Errorf("create document %s: %w", doc.ID, err)
	}
	return nil
}

// Get returns the document with the given id.
func (s *SQLiteStore) Get(ctx context.Context, id string) (domain.Document, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, source_locator, status FROM documents WHERE id = ?`, id)
	var doc domain.Document
	var status string
	if err := row.Scan(&doc.ID, &doc.Title, &doc.SourceLocator, &status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Document{}, ErrNotFound
		}
		return domain.Document{}, fmt.Errorf("get document %s: %w", id, err)
	}
	doc.Status = domain.Status(status)
	return doc, nil
}

// List returns all documents ordered by id.
func (s *SQLiteStore) List(ctx context.Context) ([]domain.Document, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, source_locator, status FROM documents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var docs []domain.Document
	for rows.Next() {
		var doc domain.Document
		var status string
		if err := rows.Scan(&doc.ID, &doc.Title, &doc.SourceLocator, &status); err != nil {
			return nil, err
		}
		doc.Status = domain.Status(status)
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// Delete removes the document record. Deleting an unknown id succeeds.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete document %s: %w", id, err)
	}
	return nil
}

// UpdateStatus sets the pipeline status of a document.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, status domain.Status) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE documents SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), now(), id)
	if err != nil {
		return fmt.Errorf("update status of %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSourceLocator returns the source locator of a document.
func (s *SQLiteStore) GetSourceLocator(ctx context.Context, id string) (string, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	return doc.SourceLocator, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
