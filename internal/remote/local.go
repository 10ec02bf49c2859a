// ABOUTME: In-process Client backed by a store.DocumentStore and a Broadcaster
// ABOUTME: Bounds every operation with a timeout and maps failures onto the remote error taxonomy

package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/store"
)

// DefaultOpTimeout bounds a single read or write.
const DefaultOpTimeout = 15 * time.Second

// Local is a Client over a DocumentStore in the same process.
type Local struct {
	docs      store.DocumentStore
	hub       *Broadcaster
	opTimeout time.Duration
	logger    *slog.Logger
}

var _ Client = (*Local)(nil)

// LocalOption configures a Local client.
type LocalOption func(*Local)

// WithOpTimeout sets the per-operation timeout. Zero disables it.
func WithOpTimeout(d time.Duration) LocalOption {
	return func(l *Local) { l.opTimeout = d }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) LocalOption {
	return func(l *Local) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithBroadcaster shares a broadcaster between clients over the same store.
func WithBroadcaster(b *Broadcaster) LocalOption {
	return func(l *Local) { l.hub = b }
}

// NewLocal creates a Local client.
func NewLocal(docs store.DocumentStore, opts ...LocalOption) *Local {
	l := &Local{
		docs:      docs,
		opTimeout: DefaultOpTimeout,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.hub == nil {
		l.hub = NewBroadcaster(l.logger)
	}
	l.logger = l.logger.With("component", "remote.local")
	return l
}

// Broadcaster exposes the change fan-out so other writers can publish.
func (l *Local) Broadcaster() *Broadcaster {
	return l.hub
}

func (l *Local) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if l.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, l.opTimeout)
}

// FetchOnce reads the document at h.
func (l *Local) FetchOnce(ctx context.Context, h Handle) (Document, error) {
	snap, err := l.Get(ctx, h)
	if err != nil {
		return nil, err
	}
	if !snap.Exists {
		return nil, ErrNotFound
	}
	doc, err := snap.Decode()
	if err != nil {
		return nil, fmt.Errorf("decoding %s: %w", h, err)
	}
	return doc, nil
}

// Get reads the document at h as a Snapshot. A missing document is a
// snapshot with Exists=false, not an error.
func (l *Local) Get(ctx context.Context, h Handle) (Snapshot, error) {
	if err := h.Validate(); err != nil {
		return Snapshot{}, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	d, err := l.docs.GetDocument(ctx, h.Path())
	if errors.Is(err, store.ErrNotFound) {
		return Snapshot{Path: h.Path()}, nil
	}
	if err != nil {
		return Snapshot{}, classify("fetch", h, err)
	}
	return snapshotOf(d), nil
}

// Replace overwrites the document at h.
func (l *Local) Replace(ctx context.Context, h Handle, doc Document) error {
	return l.write(ctx, "replace", h, doc, l.docs.PutDocument)
}

// Merge overlays partial's top-level fields onto the document at h.
func (l *Local) Merge(ctx context.Context, h Handle, partial Document) error {
	return l.write(ctx, "merge", h, partial, l.docs.MergeDocument)
}

// ReplaceRaw overwrites the document with a pre-encoded JSON object.
func (l *Local) ReplaceRaw(ctx context.Context, h Handle, data json.RawMessage) (Snapshot, error) {
	return l.writeRaw(ctx, "replace", h, data, l.docs.PutDocument)
}

// MergeRaw overlays a pre-encoded JSON object.
func (l *Local) MergeRaw(ctx context.Context, h Handle, data json.RawMessage) (Snapshot, error) {
	return l.writeRaw(ctx, "merge", h, data, l.docs.MergeDocument)
}

type writeFunc func(ctx context.Context, path string, data json.RawMessage) (*store.Document, error)

func (l *Local) write(ctx context.Context, op string, h Handle, doc Document, fn writeFunc) error {
	if doc == nil {
		doc = Document{}
	}
	data, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", h, err)
	}
	_, err = l.writeRaw(ctx, op, h, data, fn)
	return err
}

func (l *Local) writeRaw(ctx context.Context, op string, h Handle, data json.RawMessage, fn writeFunc) (Snapshot, error) {
	if err := h.Validate(); err != nil {
		return Snapshot{}, err
	}

	ctx, cancel := l.withTimeout(ctx)
	defer cancel()

	d, err := fn(ctx, h.Path(), data)
	if err != nil {
		return Snapshot{}, classify(op, h, err)
	}

	snap := snapshotOf(d)
	l.hub.Publish(snap)
	return snap, nil
}

// Subscribe watches h. The initial state is delivered from a fetch made after
// the watcher is registered, so no change between the two is missed.
func (l *Local) Subscribe(ctx context.Context, h Handle, onChange ChangeFunc) (Unsubscribe, error) {
	if err := h.Validate(); err != nil {
		return nil, err
	}

	subCtx, cancel := context.WithCancel(ctx)
	ch, _ := l.hub.Subscribe(subCtx, h.Path())

	initial, err := l.Get(subCtx, h)
	if err != nil {
		cancel()
		return nil, err
	}

	go func() {
		lastVersion := l.deliver(h, initial, onChange, 0)
		for {
			select {
			case <-subCtx.Done():
				return
			case snap, ok := <-ch:
				if !ok {
					return
				}
				if snap.Exists && snap.Version <= lastVersion {
					continue
				}
				lastVersion = l.deliver(h, snap, onChange, lastVersion)
			}
		}
	}()

	var once sync.Once
	return func() { once.Do(cancel) }, nil
}

func (l *Local) deliver(h Handle, snap Snapshot, onChange ChangeFunc, lastVersion int64) int64 {
	doc, err := snap.Decode()
	if err != nil {
		l.logger.Warn("dropping undecodable snapshot", "path", h.Path(), "error", err)
		return lastVersion
	}
	onChange(doc, snap.Exists)
	if snap.Exists {
		return snap.Version
	}
	return lastVersion
}

func snapshotOf(d *store.Document) Snapshot {
	return Snapshot{
		Path:    d.Path,
		Exists:  true,
		Version: d.Version,
		Data:    d.Data,
	}
}

// classify maps storage failures to the remote taxonomy. Caller cancellation
// passes through unchanged.
func classify(op string, h Handle, err error) error {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return ErrNotFound
	case errors.Is(err, store.ErrInvalidDocument):
		return fmt.Errorf("%s %s: %w", op, h, err)
	case errors.Is(err, context.Canceled):
		return err
	default:
		return fmt.Errorf("%s %s: %w: %w", op, h, ErrTransientIO, err)
	}
}
