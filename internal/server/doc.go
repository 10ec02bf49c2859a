// Package server wires the levelup server together and serves its HTTP API.
//
// # Components
//
// A Server owns the sqlite store, the in-process document client
// (remote.Local), the identity provider and the workspace manager. The
// manager follows the provider's identity events so a user's workspace is
// closed when they sign out.
//
// # HTTP API
//
// Accounts (no authentication):
//
//	POST /api/auth/signup          {name, email, password} -> 201 Session
//	POST /api/auth/signin          {email, password} -> Session
//	POST /api/auth/signout         Bearer token -> 204
//	POST /api/auth/reset           {email} -> 202
//	POST /api/auth/reset/confirm   {token, password} -> 204
//
// Account (Bearer token):
//
//	GET /api/me                    the caller's Identity
//	GET /api/me/activity?limit=n   sign-ins, sign-outs and resets, newest first
//
// Documents (Bearer token, owner-scoped paths only):
//
//	GET   /api/docs/{path...}        remote.Snapshot, 404 when absent
//	PUT   /api/docs/{path...}        replace with a JSON object
//	PATCH /api/docs/{path...}        merge top-level fields
//	GET   /api/docs/watch?path=...   WebSocket of remote.Snapshot frames
//
// Features (Bearer token, served from the caller's workspace):
//
//	GET  /api/features                      dashboard overview
//	GET  /api/features/{feature}            state and sync status
//	POST /api/features/{feature}/{op}       apply an operation
//	POST /api/features/{feature}/retry      reload a failed feature
//	POST /api/features/calendar/navigate    {delta} or {year, month}
//
// A document path is owned by a user when its second segment is their
// user id, e.g. "notes/{uid}" or "users/{uid}/goals/data".
package server
