// ABOUTME: Behavioural contract shared by SQLiteStore and MockStore
// ABOUTME: Both implementations run the same document and account scenarios

package store

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runStoreContract(t *testing.T, newStore func(t *testing.T) Store) {
	t.Run("get missing document", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetDocument(t.Context(), "habitTrackers/nobody")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("put then get", func(t *testing.T) {
		s := newStore(t)
		doc, err := s.PutDocument(t.Context(), "habitTrackers/u1", json.RawMessage(`{"habits":[]}`))
		require.NoError(t, err)
		assert.Equal(t, int64(1), doc.Version)

		got, err := s.GetDocument(t.Context(), "habitTrackers/u1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"habits":[]}`, string(got.Data))
		assert.Equal(t, "habitTrackers/u1", got.Path)
	})

	t.Run("put replaces whole document", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PutDocument(t.Context(), "d/1", json.RawMessage(`{"a":1,"b":2}`))
		require.NoError(t, err)
		doc, err := s.PutDocument(t.Context(), "d/1", json.RawMessage(`{"a":3}`))
		require.NoError(t, err)
		assert.Equal(t, int64(2), doc.Version)
		assert.JSONEq(t, `{"a":3}`, string(doc.Data))
	})

	t.Run("merge preserves absent fields", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PutDocument(t.Context(), "d/1", json.RawMessage(`{"a":1,"b":{"x":1,"y":2}}`))
		require.NoError(t, err)

		doc, err := s.MergeDocument(t.Context(), "d/1", json.RawMessage(`{"b":{"x":9},"c":true}`))
		require.NoError(t, err)
		// top-level only: b is replaced wholesale
		assert.JSONEq(t, `{"a":1,"b":{"x":9},"c":true}`, string(doc.Data))
	})

	t.Run("merge creates missing document", func(t *testing.T) {
		s := newStore(t)
		doc, err := s.MergeDocument(t.Context(), "users/u1/calendar/2024-5", json.RawMessage(`{"tasks":{}}`))
		require.NoError(t, err)
		assert.JSONEq(t, `{"tasks":{}}`, string(doc.Data))
	})

	t.Run("rejects non-object data", func(t *testing.T) {
		s := newStore(t)
		_, err := s.PutDocument(t.Context(), "d/1", json.RawMessage(`[1,2]`))
		assert.ErrorIs(t, err, ErrInvalidDocument)
		_, err = s.MergeDocument(t.Context(), "d/1", json.RawMessage(`not json`))
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("delete and list", func(t *testing.T) {
		s := newStore(t)
		for _, p := range []string{"users/u1/goals/data", "users/u1/tasks/data", "users/u2/goals/data"} {
			_, err := s.PutDocument(t.Context(), p, json.RawMessage(`{}`))
			require.NoError(t, err)
		}

		docs, err := s.ListDocuments(t.Context(), "users/u1/")
		require.NoError(t, err)
		require.Len(t, docs, 2)
		assert.Equal(t, "users/u1/goals/data", docs[0].Path)
		assert.Equal(t, "users/u1/tasks/data", docs[1].Path)

		require.NoError(t, s.DeleteDocument(t.Context(), "users/u1/goals/data"))
		assert.ErrorIs(t, s.DeleteDocument(t.Context(), "users/u1/goals/data"), ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		s := newStore(t)
		user := &User{ID: "u1", Email: "Ada@Example.com ", Name: "Ada", PasswordHash: "h", CreatedAt: time.Now()}
		require.NoError(t, s.CreateUser(t.Context(), user))

		dup := &User{ID: "u2", Email: "ada@example.com", Name: "Other", PasswordHash: "h", CreatedAt: time.Now()}
		assert.ErrorIs(t, s.CreateUser(t.Context(), dup), ErrEmailExists)

		got, err := s.GetUserByEmail(t.Context(), "ADA@example.com")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.ID)
		assert.Equal(t, "ada@example.com", got.Email)

		require.NoError(t, s.UpdateUserPassword(t.Context(), "u1", "h2"))
		got, err = s.GetUser(t.Context(), "u1")
		require.NoError(t, err)
		assert.Equal(t, "h2", got.PasswordHash)

		assert.ErrorIs(t, s.UpdateUserPassword(t.Context(), "missing", "x"), ErrNotFound)
		_, err = s.GetUser(t.Context(), "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("sessions", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateUser(t.Context(), &User{ID: "u1", Email: "a@b.c", Name: "A", PasswordHash: "h", CreatedAt: time.Now()}))

		now := time.Now()
		require.NoError(t, s.CreateSession(t.Context(), &Session{ID: "s1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))
		require.NoError(t, s.CreateSession(t.Context(), &Session{ID: "s2", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(-time.Hour)}))

		got, err := s.GetSession(t.Context(), "s1")
		require.NoError(t, err)
		assert.Equal(t, "u1", got.UserID)

		_, err = s.GetSession(t.Context(), "s2")
		assert.ErrorIs(t, err, ErrNotFound, "expired session must not be returned")

		require.NoError(t, s.DeleteExpiredSessions(t.Context()))
		require.NoError(t, s.DeleteUserSessions(t.Context(), "u1"))
		_, err = s.GetSession(t.Context(), "s1")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("password resets are single use", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateUser(t.Context(), &User{ID: "u1", Email: "a@b.c", Name: "A", PasswordHash: "h", CreatedAt: time.Now()}))

		now := time.Now()
		require.NoError(t, s.CreatePasswordReset(t.Context(), &PasswordReset{
			TokenHash: "hash1", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))

		reset, err := s.ConsumePasswordReset(t.Context(), "hash1", now)
		require.NoError(t, err)
		assert.Equal(t, "u1", reset.UserID)
		require.NotNil(t, reset.UsedAt)

		_, err = s.ConsumePasswordReset(t.Context(), "hash1", now)
		assert.ErrorIs(t, err, ErrResetTokenUsed)

		_, err = s.ConsumePasswordReset(t.Context(), "unknown", now)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("expired password reset", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.CreateUser(t.Context(), &User{ID: "u1", Email: "a@b.c", Name: "A", PasswordHash: "h", CreatedAt: time.Now()}))

		now := time.Now()
		require.NoError(t, s.CreatePasswordReset(t.Context(), &PasswordReset{
			TokenHash: "hash2", UserID: "u1", CreatedAt: now, ExpiresAt: now.Add(time.Hour),
		}))

		_, err := s.ConsumePasswordReset(t.Context(), "hash2", now.Add(2*time.Hour))
		assert.ErrorIs(t, err, ErrResetTokenExpired)
	})
}

func TestMergeFields(t *testing.T) {
	merged, err := MergeFields(json.RawMessage(`{"a":1,"b":2}`), json.RawMessage(`{"b":3}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"a":1,"b":3}`, string(merged))

	merged, err = MergeFields(json.RawMessage(`null`), json.RawMessage(`{"b":3}`))
	require.NoError(t, err)
	assert.JSONEq(t, `{"b":3}`, string(merged))
}

func TestHasPathPrefix(t *testing.T) {
	assert.True(t, HasPathPrefix("users/u1/goals/data", "users/u1"))
	assert.True(t, HasPathPrefix("users/u1", "users/u1/"))
	assert.False(t, HasPathPrefix("users/u10/goals/data", "users/u1"))
}
