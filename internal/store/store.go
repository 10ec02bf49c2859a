// ABOUTME: Store interfaces and data types for levelup persistence
// ABOUTME: Defines Document, User, Session, PasswordReset, AuditEntry and the Store interface

package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrEmailExists is returned when trying to create a user with an email already in use
var ErrEmailExists = errors.New("email already exists")

// ErrResetTokenUsed is returned when a password reset token was already consumed
var ErrResetTokenUsed = errors.New("reset token already used")

// ErrResetTokenExpired is returned when a password reset token is past its expiry
var ErrResetTokenExpired = errors.New("reset token expired")

// ErrInvalidDocument is returned when document data is not a JSON object
var ErrInvalidDocument = errors.New("document must be a JSON object")

// Document is one addressable JSON object, keyed by its slash-separated path
// (for example "habitTrackers/u1" or "users/u1/calendar/2024-5").
type Document struct {
	Path      string
	Data      json.RawMessage
	Version   int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

// User is a registered account
type User struct {
	ID           string
	Email        string
	Name         string
	PasswordHash string
	CreatedAt    time.Time
}

// Session is an issued sign-in; deleting it revokes the bearer token carrying its ID
type Session struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
}

// PasswordReset is a single-use reset grant. Only the token hash is stored.
type PasswordReset struct {
	TokenHash string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	UsedAt    *time.Time
}

// DocumentStore persists JSON documents by path
type DocumentStore interface {
	// GetDocument returns ErrNotFound when no document exists at path.
	GetDocument(ctx context.Context, path string) (*Document, error)

	// PutDocument overwrites the whole document, creating it if absent.
	PutDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error)

	// MergeDocument overwrites only the top-level fields present in data,
	// preserving the rest. Creates the document if absent.
	MergeDocument(ctx context.Context, path string, data json.RawMessage) (*Document, error)

	DeleteDocument(ctx context.Context, path string) error

	// ListDocuments returns documents whose path starts with prefix, ordered by path.
	ListDocuments(ctx context.Context, prefix string) ([]*Document, error)
}

// UserStore persists accounts, sessions, and password resets
type UserStore interface {
	CreateUser(ctx context.Context, user *User) error
	GetUser(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	CreateSession(ctx context.Context, session *Session) error
	// GetSession returns ErrNotFound for unknown or expired sessions.
	GetSession(ctx context.Context, id string) (*Session, error)
	DeleteSession(ctx context.Context, id string) error
	DeleteUserSessions(ctx context.Context, userID string) error
	DeleteExpiredSessions(ctx context.Context) error

	CreatePasswordReset(ctx context.Context, reset *PasswordReset) error
	// ConsumePasswordReset marks the reset used and returns it. Fails with
	// ErrNotFound, ErrResetTokenUsed or ErrResetTokenExpired.
	ConsumePasswordReset(ctx context.Context, tokenHash string, now time.Time) (*PasswordReset, error)
}

// Store combines all persistence concerns
type Store interface {
	DocumentStore
	UserStore
	AuditStore
	Close() error
}
