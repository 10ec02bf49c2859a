// Package auth is the identity provider for levelup.
//
// # Accounts
//
// Users sign up with a name, email and password. Passwords are stored as
// bcrypt hashes. Email addresses are normalized to lower case.
//
// # Sessions
//
// Signing in creates a session row and returns an HS256 JWT carrying the
// user id in "sub" and the session id in "sid". A token is only accepted
// while its session exists, so signing out revokes it immediately.
//
// # Password Reset
//
// RequestPasswordReset issues a single-use token, stored hashed, and hands
// it to a ResetNotifier. Requests are throttled per email address, and the
// call succeeds the same way whether or not the account exists.
//
// # Identity Events
//
// Subscribe delivers identity transitions (signed in, signed out) so that
// per-user workspaces can be mounted and torn down.
//
// # HTTP Middleware
//
// Middleware authenticates Bearer tokens and stores the Identity in the
// request context for FromContext.
package auth
