// ABOUTME: Mock Store implementation for testing
// ABOUTME: Allows tests to run without SQLite and to inject storage failures

package store

import (
	"context"
	"encoding/json"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"
)

// MockStore is an in-memory Store implementation for testing.
type MockStore struct {
	mu        sync.RWMutex
	documents map[string]*Document      // keyed by path
	users     map[string]*User          // keyed by user ID
	sessions  map[string]*Session       // keyed by session ID
	resets    map[string]*PasswordReset // keyed by token hash
	audit     []AuditEntry              // append order
	failWith  error
}

var _ Store = (*MockStore)(nil)

// NewMockStore creates a new MockStore.
func NewMockStore() *MockStore {
	return &MockStore{
		documents: make(map[string]*Document),
		users:     make(map[string]*User),
		sessions:  make(map[string]*Session),
		resets:    make(map[string]*PasswordReset),
	}
}

// FailWith makes every document operation return err until called with nil.
func (m *MockStore) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

func copyDocument(d *Document) *Document {
	c := *d
	c.Data = slices.Clone(d.Data)
	return &c
}

// GetDocument retrieves a document by path.
func (m *MockStore) GetDocument(ctx context.Context, path string) (*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	d, ok := m.documents[path]
	if !ok {
		return nil, ErrNotFound
	}
	return copyDocument(d), nil
}

// PutDocument replaces a document.
func (m *MockStore) PutDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error) {
	if err := checkObject(data); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}
	return m.writeLocked(path, data), nil
}

// MergeDocument overlays top-level fields onto a document.
func (m *MockStore) MergeDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error) {
	if err := checkObject(data); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.failWith != nil {
		return nil, m.failWith
	}

	merged := data
	if existing, ok := m.documents[path]; ok {
		var err error
		merged, err = MergeFields(existing.Data, data)
		if err != nil {
			return nil, err
		}
	}
	return m.writeLocked(path, merged), nil
}

func (m *MockStore) writeLocked(path string, data json.RawMessage) *Document {
	now := time.Now().UTC()
	d, ok := m.documents[path]
	if !ok {
		d = &Document{Path: path, CreatedAt: now}
		m.documents[path] = d
	}
	d.Data = slices.Clone(data)
	d.Version++
	d.UpdatedAt = now
	return copyDocument(d)
}

// DeleteDocument removes a document.
func (m *MockStore) DeleteDocument(ctx context.Context, path string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.documents[path]; !ok {
		return ErrNotFound
	}
	delete(m.documents, path)
	return nil
}

// ListDocuments returns documents whose path begins with prefix.
func (m *MockStore) ListDocuments(ctx context.Context, prefix string) ([]*Document, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var docs []*Document
	for p, d := range m.documents {
		if strings.HasPrefix(p, prefix) {
			docs = append(docs, copyDocument(d))
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].Path < docs[j].Path })
	return docs, nil
}

// CreateUser stores a new user.
func (m *MockStore) CreateUser(ctx context.Context, user *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := NormalizeEmail(user.Email)
	for _, u := range m.users {
		if u.Email == email {
			return ErrEmailExists
		}
	}

	u := *user
	u.Email = email
	m.users[u.ID] = &u
	return nil
}

// GetUser retrieves a user by ID.
func (m *MockStore) GetUser(ctx context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *u
	return &c, nil
}

// GetUserByEmail retrieves a user by email.
func (m *MockStore) GetUserByEmail(ctx context.Context, email string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = NormalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			c := *u
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

// UpdateUserPassword updates a user's password hash.
func (m *MockStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return ErrNotFound
	}
	u.PasswordHash = passwordHash
	return nil
}

// CreateSession stores a session.
func (m *MockStore) CreateSession(ctx context.Context, session *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := *session
	m.sessions[s.ID] = &s
	return nil
}

// GetSession retrieves a non-expired session.
func (m *MockStore) GetSession(ctx context.Context, id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[id]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, ErrNotFound
	}
	c := *s
	return &c, nil
}

// DeleteSession deletes a session.
func (m *MockStore) DeleteSession(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}

// DeleteUserSessions deletes all sessions for a user.
func (m *MockStore) DeleteUserSessions(ctx context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// DeleteExpiredSessions removes expired sessions.
func (m *MockStore) DeleteExpiredSessions(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
		}
	}
	return nil
}

// CreatePasswordReset stores a reset grant.
func (m *MockStore) CreatePasswordReset(ctx context.Context, reset *PasswordReset) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r := *reset
	m.resets[r.TokenHash] = &r
	return nil
}

// ConsumePasswordReset marks a reset grant as used.
func (m *MockStore) ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*PasswordReset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.resets[tokenHash]
	if !ok {
		return nil, ErrNotFound
	}
	if r.UsedAt != nil {
		return nil, ErrResetTokenUsed
	}
	if !now.Before(r.ExpiresAt) {
		return nil, ErrResetTokenExpired
	}

	used := now.UTC()
	r.UsedAt = &used
	c := *r
	return &c, nil
}

// AppendAuditLog appends an activity entry.
func (m *MockStore) AppendAuditLog(ctx context.Context, e *AuditEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	prepareAuditEntry(e)
	c := *e
	c.Timestamp = c.Timestamp.UTC().Truncate(time.Second)
	m.audit = append(m.audit, c)
	return nil
}

// ListAuditLog returns the user's entries matching f, newest first.
func (m *MockStore) ListAuditLog(ctx context.Context, f AuditFilter) ([]AuditEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := []AuditEntry{}
	for _, e := range m.audit {
		switch {
		case e.UserID != f.UserID,
			f.Since != nil && e.Timestamp.Before(f.Since.UTC().Truncate(time.Second)),
			f.Until != nil && e.Timestamp.After(f.Until.UTC().Truncate(time.Second)),
			f.Action != nil && e.Action != *f.Action:
			continue
		}
		entries = append(entries, e)
	}
	// Stable sort keeps append order among equal timestamps; reversing
	// afterwards puts the latest insert first.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Timestamp.Before(entries[j].Timestamp) })
	slices.Reverse(entries)

	if limit := normalizeAuditLimit(f.Limit); len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Close is a no-op for MockStore.
func (m *MockStore) Close() error {
	return nil
}
