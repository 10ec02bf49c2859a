// ABOUTME: Document persistence for SQLiteStore plus the shared top-level merge rule
// ABOUTME: Documents are JSON objects stored as text and addressed by path

package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

const timeLayout = time.RFC3339Nano

// GetDocument retrieves a document by path.
// Returns ErrNotFound if the document doesn't exist.
func (s *SQLiteStore) GetDocument(ctx context.Context, path string) (*Document, error) {
	query := `
		SELECT path, data, version, created_at, updated_at
		FROM documents
		WHERE path = ?
	`

	return scanDocument(s.db.QueryRowContext(ctx, query, path))
}

// PutDocument replaces the document at path.
func (s *SQLiteStore) PutDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error) {
	if err := checkObject(data); err != nil {
		return nil, err
	}

	s.docMu.Lock()
	defer s.docMu.Unlock()

	return s.upsertDocument(ctx, path, data)
}

// MergeDocument applies the top-level fields of data over the stored document.
func (s *SQLiteStore) MergeDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error) {
	if err := checkObject(data); err != nil {
		return nil, err
	}

	s.docMu.Lock()
	defer s.docMu.Unlock()

	merged := data
	existing, err := s.GetDocument(ctx, path)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, err
	default:
		merged, err = MergeFields(existing.Data, data)
		if err != nil {
			return nil, err
		}
	}

	return s.upsertDocument(ctx, path, merged)
}

func (s *SQLiteStore) upsertDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error) {
	now := time.Now().UTC().Format(timeLayout)

	query := `
		INSERT INTO documents (path, data, version, created_at, updated_at)
		VALUES (?, ?, 1, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			data = excluded.data,
			version = documents.version + 1,
			updated_at = excluded.updated_at
		RETURNING path, data, version, created_at, updated_at
	`

	doc, err := scanDocument(s.db.QueryRowContext(ctx, query, path, string(data), now, now))
	if err != nil {
		return nil, fmt.Errorf("writing document %s: %w", path, err)
	}

	s.logger.Debug("wrote document", "path", path, "version", doc.Version, "bytes", len(data))
	return doc, nil
}

// DeleteDocument removes the document at path.
// Returns ErrNotFound if the document doesn't exist.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, path string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM documents WHERE path = ?`, path)
	if err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	s.logger.Debug("deleted document", "path", path)
	return nil
}

// ListDocuments returns all documents whose path begins with prefix.
func (s *SQLiteStore) ListDocuments(ctx context.Context, prefix string) ([]*Document, error) {
	query := `
		SELECT path, data, version, created_at, updated_at
		FROM documents
		WHERE substr(path, 1, ?) = ?
		ORDER BY path ASC
	`

	rows, err := s.db.QueryContext(ctx, query, len(prefix), prefix)
	if err != nil {
		return nil, fmt.Errorf("querying documents: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var docs []*Document
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}

	return docs, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*Document, error) {
	var doc Document
	var data, createdAtStr, updatedAtStr string

	err := row.Scan(&doc.Path, &data, &doc.Version, &createdAtStr, &updatedAtStr)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Data = json.RawMessage(data)

	doc.CreatedAt, err = time.Parse(timeLayout, createdAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}

	doc.UpdatedAt, err = time.Parse(timeLayout, updatedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &doc, nil
}

// MergeFields overlays the top-level fields of patch onto base. Nested
// objects are replaced, not merged.
func MergeFields(base, patch json.RawMessage) (json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(base, &fields); err != nil {
		return nil, fmt.Errorf("decoding stored document: %w", err)
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}

	var overlay map[string]json.RawMessage
	if err := json.Unmarshal(patch, &overlay); err != nil {
		return nil, fmt.Errorf("decoding merge payload: %w", err)
	}

	for k, v := range overlay {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encoding merged document: %w", err)
	}
	return merged, nil
}

func checkObject(data json.RawMessage) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' || !json.Valid(trimmed) {
		return ErrInvalidDocument
	}
	return nil
}

// HasPathPrefix reports whether path lies at or beneath prefix on segment boundaries.
func HasPathPrefix(path, prefix string) bool {
	prefix = strings.TrimSuffix(prefix, "/")
	return path == prefix || strings.HasPrefix(path, prefix+"/")
}
