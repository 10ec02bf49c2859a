// ABOUTME: RemoteDocumentClient contract: handles, documents, error taxonomy
// ABOUTME: Implemented in-process by Local and over the network by HTTPClient

package remote

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound means no document exists at the handle. It is a normal
	// result that callers use to seed defaults.
	ErrNotFound = errors.New("document not found")

	// ErrTransientIO wraps network, timeout, and storage failures that may
	// succeed on a later attempt.
	ErrTransientIO = errors.New("transient I/O failure")

	// ErrPermissionDenied means the caller may not access the handle.
	ErrPermissionDenied = errors.New("permission denied")
)

// Document is a JSON-compatible object tree.
type Document = map[string]any

// Unsubscribe deregisters a listener. Safe to call more than once.
type Unsubscribe func()

// ChangeFunc receives the current document, or exists=false when the
// document is absent or was deleted.
type ChangeFunc func(doc Document, exists bool)

// Client reads, writes, and watches single documents.
type Client interface {
	// FetchOnce returns ErrNotFound when the document does not exist.
	FetchOnce(ctx context.Context, h Handle) (Document, error)

	// Subscribe calls onChange once with the current state and again after
	// every change, including the caller's own writes. Calls are sequential.
	// The subscription ends when the returned Unsubscribe is called or ctx
	// is done.
	Subscribe(ctx context.Context, h Handle, onChange ChangeFunc) (Unsubscribe, error)

	// Replace overwrites the whole document.
	Replace(ctx context.Context, h Handle, doc Document) error

	// Merge overwrites the top-level fields present in partial and keeps the rest.
	Merge(ctx context.Context, h Handle, partial Document) error
}

// Snapshot is the wire form of a document state, used by the watch stream
// and the REST API.
type Snapshot struct {
	Path    string          `json:"path"`
	Exists  bool            `json:"exists"`
	Version int64           `json:"version,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// Decode converts the snapshot payload to a Document.
func (s Snapshot) Decode() (Document, error) {
	if !s.Exists || len(s.Data) == 0 {
		return nil, nil
	}
	var doc Document
	if err := json.Unmarshal(s.Data, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}
