// Package remote defines the document client used by feature stores and
// provides two implementations of it.
//
// # Contract
//
// A Client addresses one logical document through a Handle (collection path
// plus document id) and offers four operations:
//
//   - FetchOnce: point-in-time read; ErrNotFound when absent
//   - Subscribe: current state, then every change, until Unsubscribe
//   - Replace: whole-document overwrite
//   - Merge: top-level field overwrite, other fields preserved
//
// Failures are classified as ErrTransientIO (retryable: network, timeout,
// storage) or ErrPermissionDenied. No ordering is promised between two
// in-flight writes to the same handle beyond "last successful write wins".
//
// # Implementations
//
// Local runs in the server process on top of store.DocumentStore. Every
// successful write publishes the new document through a Broadcaster, so
// subscribers (including the writer's own) see it. Each operation is bounded
// by an op timeout that turns a hang into ErrTransientIO.
//
// HTTPClient talks to the server's /api/docs endpoints with a bearer token and
// watches documents over a WebSocket stream of Snapshot frames.
package remote
