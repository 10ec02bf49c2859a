// ABOUTME: WebSocket endpoint streaming document snapshots to subscribers
// ABOUTME: Sends the current state on connect, then one frame per change

package server

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

const (
	watchWriteWait  = 10 * time.Second
	watchPingPeriod = 30 * time.Second
	watchPongWait   = watchPingPeriod + watchWriteWait
	watchBuffer     = 16
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 64 * 1024,
}

// handleWatch upgrades GET /api/docs/watch?path=... to a WebSocket that
// carries remote.Snapshot frames.
func (s *Server) handleWatch(w http.ResponseWriter, r *http.Request) {
	h, ok := s.ownedHandle(w, r, r.URL.Query().Get("path"))
	if !ok {
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Debug("watch upgrade failed", "path", h.Path(), "error", err)
		return
	}
	defer conn.Close()

	frames := make(chan remote.Snapshot, watchBuffer)
	lagged := make(chan struct{})
	ctx := r.Context()

	unsub, err := s.docs.Subscribe(ctx, h, func(doc remote.Document, exists bool) {
		snap := remote.Snapshot{Path: h.Path(), Exists: exists}
		if exists {
			data, err := json.Marshal(doc)
			if err != nil {
				s.logger.Warn("dropping unencodable document", "path", h.Path(), "error", err)
				return
			}
			snap.Data = data
		}
		select {
		case frames <- snap:
		default:
			// A watcher this far behind resubscribes to catch up.
			select {
			case <-lagged:
			default:
				close(lagged)
			}
		}
	})
	if err != nil {
		s.logger.Warn("watch subscribe failed", "path", h.Path(), "error", err)
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseInternalServerErr, "subscribe failed"),
			time.Now().Add(watchWriteWait))
		return
	}
	defer unsub()

	// The reader only drains control frames and notices the peer leaving.
	gone := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(watchPongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(watchPongWait))
	})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	s.logger.Debug("watch started", "path", h.Path())
	defer s.logger.Debug("watch ended", "path", h.Path())

	ping := time.NewTicker(watchPingPeriod)
	defer ping.Stop()

	for {
		select {
		case snap := <-frames:
			_ = conn.SetWriteDeadline(time.Now().Add(watchWriteWait))
			if err := conn.WriteJSON(snap); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(watchWriteWait)); err != nil {
				return
			}
		case <-lagged:
			s.logger.Warn("closing lagging watcher", "path", h.Path())
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseTryAgainLater, "lagging"),
				time.Now().Add(watchWriteWait))
			return
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
				time.Now().Add(watchWriteWait))
			return
		case <-ctx.Done():
			return
		}
	}
}
