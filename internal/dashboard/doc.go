// Package dashboard mounts the feature modules of signed-in users.
//
// # Workspace
//
// A Workspace holds one instance of every feature module for a single
// user. Mount loads them concurrently; a feature whose load fails is left
// Failed while the others become Ready, so one broken document never takes
// the whole dashboard down.
//
//	ws, err := dashboard.NewWorkspace(identity, client, opts)
//	_ = ws.Mount(ctx)
//	_, err = ws.Apply("habits", "add", json.RawMessage(`{"name":"Read"}`))
//
// Close flushes pending edits and tears every module down.
//
// # Manager
//
// The Manager maps user ids to workspaces, mounting lazily on Acquire. Run
// consumes identity events from the auth provider to close a workspace when
// its user signs out, and evicts workspaces left idle past the configured
// timeout.
package dashboard
