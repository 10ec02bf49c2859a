// Package synced binds a feature's in-memory state to one remote document
// with debounced, coalesced, cancel-safe persistence.
//
// # Lifecycle
//
//	Unloaded -> Loading -> Ready -> TornDown
//	              |
//	              +-> Failed -> (Retry) -> Loading
//
// Saving is not a state of its own; it is a flag observed through Status
// while a write is in flight.
//
// # Loading
//
// Load fetches the document once. A missing document is created from the
// configured default with Replace. A found document is decoded with missing
// fields back-filled, so documents written by older versions still load.
// A transient failure is retried once; after that the store is Failed and
// stays that way until Retry.
//
// # Persisting
//
// Mutate applies the updater synchronously and restarts a countdown of the
// debounce window. When the countdown elapses a single write carries the
// state as it is at that moment, so N quick mutations produce one write
// holding the result of the last one. The first write to a document that
// could not be seeded uses Replace; every later write is a whole-state Merge.
//
// Only one write per store is in flight. A countdown that elapses during a
// write marks the store dirty and the latest state is written right after.
// A failed write keeps local state (there is no rollback), is reported in
// Status.SaveError, and is retried implicitly by the next write.
//
// # Invalidation
//
// Every Bind to a new handle, Unbind, and Teardown advances an epoch. Timers,
// save completions, and subscription callbacks carry the epoch they started
// under and do nothing when it is no longer current, so a save started for
// one handle can never affect the state or document of another.
//
// # Live mode
//
// With Config.Live the store subscribes after loading and adopts remote
// changes only while no local change is pending or in flight. Its own write
// echoes are recognised by comparing canonical JSON and ignored. Concurrent
// edits from two sessions resolve as last write wins.
package synced
