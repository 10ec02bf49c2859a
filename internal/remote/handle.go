// ABOUTME: Document handles: a collection path plus a document id
// ABOUTME: Handles render to and parse from slash-separated store paths

package remote

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// ErrInvalidHandle is returned for malformed paths or handles.
var ErrInvalidHandle = errors.New("invalid document handle")

// Handle addresses one document: an ordered collection path and a document id.
// Collection alternates collection and document names, ending with a collection,
// e.g. ["users", "u1", "calendar"] with ID "2024-5".
type Handle struct {
	Collection []string
	ID         string
}

// NewHandle builds a handle from path segments; the last segment is the id.
func NewHandle(segments ...string) Handle {
	if len(segments) == 0 {
		return Handle{}
	}
	return Handle{
		Collection: slices.Clone(segments[:len(segments)-1]),
		ID:         segments[len(segments)-1],
	}
}

// ParsePath parses a slash-separated path into a Handle.
func ParsePath(path string) (Handle, error) {
	h := NewHandle(strings.Split(strings.Trim(path, "/"), "/")...)
	if err := h.Validate(); err != nil {
		return Handle{}, err
	}
	return h, nil
}

// Validate checks that every segment is non-empty and that the handle names
// a document rather than a collection.
func (h Handle) Validate() error {
	if len(h.Collection)%2 != 1 {
		return fmt.Errorf("%w: %q does not name a document", ErrInvalidHandle, h.Path())
	}
	for _, seg := range append(slices.Clone(h.Collection), h.ID) {
		if seg == "" || seg == "." || seg == ".." || strings.Contains(seg, "/") {
			return fmt.Errorf("%w: bad segment in %q", ErrInvalidHandle, h.Path())
		}
	}
	return nil
}

// Path renders the handle as "collection/.../id".
func (h Handle) Path() string {
	if len(h.Collection) == 0 {
		return h.ID
	}
	return strings.Join(h.Collection, "/") + "/" + h.ID
}

// Equal reports whether two handles address the same document.
func (h Handle) Equal(o Handle) bool {
	return h.ID == o.ID && slices.Equal(h.Collection, o.Collection)
}

func (h Handle) String() string { return h.Path() }

// OwnedBy reports whether the document lives in userID's namespace, i.e. its
// second path segment is the user id ("notes/{uid}", "users/{uid}/goals/data").
func (h Handle) OwnedBy(userID string) bool {
	if userID == "" {
		return false
	}
	segs := append(slices.Clone(h.Collection), h.ID)
	return len(segs) >= 2 && segs[1] == userID
}
