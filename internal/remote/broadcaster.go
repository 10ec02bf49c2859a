// ABOUTME: In-memory fan-out of document changes keyed by document path
// ABOUTME: Each write publishes the new full document to every watcher of that path

package remote

import (
	"context"
	"log/slog"
	"sync"

	"github.com/google/uuid"
)

const (
	// subscriberBufferSize is the channel buffer for each watcher.
	subscriberBufferSize = 64
)

// Broadcaster provides in-memory pub/sub for document snapshots.
type Broadcaster struct {
	mu          sync.RWMutex
	subscribers map[string]map[string]chan Snapshot // path -> subID -> ch
	closed      bool
	logger      *slog.Logger
}

// NewBroadcaster creates a broadcaster. Pass nil logger for default.
func NewBroadcaster(logger *slog.Logger) *Broadcaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Broadcaster{
		subscribers: make(map[string]map[string]chan Snapshot),
		logger:      logger.With("component", "broadcaster"),
	}
}

// Subscribe registers a watcher for the given document path. Returns a
// channel of snapshots and a subscription ID. The subscription is cleaned
// up automatically when ctx is cancelled.
func (b *Broadcaster) Subscribe(ctx context.Context, path string) (<-chan Snapshot, string) {
	subID := uuid.New().String()
	ch := make(chan Snapshot, subscriberBufferSize)

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		close(ch)
		return ch, subID
	}
	if _, ok := b.subscribers[path]; !ok {
		b.subscribers[path] = make(map[string]chan Snapshot)
	}
	b.subscribers[path][subID] = ch
	b.mu.Unlock()

	b.logger.Debug("subscriber added", "path", path, "sub_id", subID)

	go func() {
		<-ctx.Done()
		b.Unsubscribe(path, subID)
	}()

	return ch, subID
}

// Publish sends a snapshot to all watchers of its path. Non-blocking: when
// a watcher's buffer is full its oldest pending snapshot is discarded, since
// every snapshot carries the whole document.
func (b *Broadcaster) Publish(snap Snapshot) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for subID, ch := range b.subscribers[snap.Path] {
		select {
		case ch <- snap:
			continue
		default:
		}

		select {
		case <-ch:
		default:
		}
		select {
		case ch <- snap:
		default:
		}
		b.logger.Debug("coalesced snapshot for slow subscriber", "path", snap.Path, "sub_id", subID)
	}
}

// Subscribers returns the number of watchers on path.
func (b *Broadcaster) Subscribers(path string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subscribers[path])
}

// Unsubscribe removes a subscription and closes its channel.
func (b *Broadcaster) Unsubscribe(path, subID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs, ok := b.subscribers[path]
	if !ok {
		return
	}

	ch, exists := subs[subID]
	if !exists {
		return
	}

	delete(subs, subID)
	close(ch)

	if len(subs) == 0 {
		delete(b.subscribers, path)
	}

	b.logger.Debug("subscriber removed", "path", path, "sub_id", subID)
}

// Close shuts down the broadcaster and closes all subscriber channels.
func (b *Broadcaster) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	for path, subs := range b.subscribers {
		for subID, ch := range subs {
			close(ch)
			delete(subs, subID)
		}
		delete(b.subscribers, path)
	}
	b.closed = true

	b.logger.Debug("broadcaster closed")
}
