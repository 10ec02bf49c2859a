// ABOUTME: Identity transition events fanned out to in-process subscribers
// ABOUTME: Slow subscribers drop events rather than blocking sign-in or sign-out

package auth

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

const eventBufferSize = 16

// EventType names an identity transition.
type EventType string

const (
	EventSignedIn  EventType = "signed_in"
	EventSignedOut EventType = "signed_out"
)

// Event is one identity transition. SessionID is empty when every session
// of the user was revoked at once.
type Event struct {
	Type      EventType
	Identity  Identity
	SessionID string
	At        time.Time
}

type eventHub struct {
	mu     sync.Mutex
	subs   map[chan Event]struct{}
	closed bool
	logger *slog.Logger
}

func newEventHub(logger *slog.Logger) *eventHub {
	return &eventHub{subs: make(map[chan Event]struct{}), logger: logger}
}

func (h *eventHub) subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, eventBufferSize)

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		close(ch)
		return ch
	}
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		defer h.mu.Unlock()
		if _, ok := h.subs[ch]; ok {
			delete(h.subs, ch)
			close(ch)
		}
	}()
	return ch
}

func (h *eventHub) publish(ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.subs {
		select {
		case ch <- ev:
		default:
			h.logger.Warn("dropping identity event for slow subscriber",
				"type", ev.Type, "uid", ev.Identity.UserID)
		}
	}
}

func (h *eventHub) close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return
	}
	h.closed = true
	for ch := range h.subs {
		close(ch)
	}
	h.subs = nil
}
