// Package store provides persistent storage for levelup using SQLite.
//
// # Architecture
//
// The store package splits persistence into three interfaces:
//
//   - DocumentStore: JSON documents addressed by slash-separated paths
//   - UserStore: accounts, sessions, and password reset grants
//   - AuditStore: the per-user account activity log
//
// SQLiteStore implements all of them in a single struct. MockStore is an in-memory
// implementation used by tests in other packages.
//
// # Documents
//
// A document is a JSON object stored as text under its path, for example:
//
//	habitTrackers/{uid}
//	journals/{uid}
//	users/{uid}/goals/data
//	users/{uid}/calendar/{year}-{month}
//
// PutDocument replaces the object. MergeDocument overwrites only the
// top-level fields it carries and keeps the others, which is what lets a
// feature write its whole state while fields added out of band survive.
// Each write bumps the document version.
//
// # Database Configuration
//
// SQLite is configured with:
//
//   - WAL mode for concurrent reads
//   - A busy timeout so concurrent writers wait instead of failing
//   - Foreign keys so sessions and resets go away with their user
//
// Schema migrations run on startup and are idempotent.
//
// # Error Handling
//
//   - ErrNotFound: document, user, session, or reset does not exist
//   - ErrEmailExists: sign-up with a registered email
//   - ErrResetTokenUsed, ErrResetTokenExpired: reset grant no longer valid
//   - ErrInvalidDocument: data is not a JSON object
package store
