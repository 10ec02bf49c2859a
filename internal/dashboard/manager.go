// ABOUTME: Manager tracks the mounted workspace of every active user
// ABOUTME: Mounts lazily, closes on sign-out and evicts idle workspaces

package dashboard

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/issambenlahbib/levelupmy-life/internal/auth"
	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/features"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

// DefaultIdleTimeout is how long an unused workspace stays mounted.
const DefaultIdleTimeout = 30 * time.Minute

// MountTimeout bounds the initial load of a workspace.
const MountTimeout = 2 * time.Minute

// entry is a workspace that may still be mounting.
type entry struct {
	ws    *Workspace
	ready chan struct{}
}

// Manager coordinates the workspaces of all signed-in users.
type Manager struct {
	client      remote.Client
	opts        features.Options
	idleTimeout time.Duration
	clock       clock.Clock
	logger      *slog.Logger

	mu         sync.Mutex
	workspaces map[string]*entry
	closed     bool
}

// NewManager creates a Manager whose workspaces talk to client.
func NewManager(client remote.Client, opts features.Options, idleTimeout time.Duration) *Manager {
	if idleTimeout <= 0 {
		idleTimeout = DefaultIdleTimeout
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		client:      client,
		opts:        opts,
		idleTimeout: idleTimeout,
		clock:       clk,
		logger:      logger.With("component", "dashboard"),
		workspaces:  make(map[string]*entry),
	}
}

// Acquire returns the workspace of id, mounting it on first use. Concurrent
// callers for the same user share one mount.
func (m *Manager) Acquire(ctx context.Context, id auth.Identity) (*Workspace, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}

	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil, ErrClosed
	}
	if e, ok := m.workspaces[id.UserID]; ok {
		m.mu.Unlock()
		select {
		case <-e.ready:
			return e.ws, nil
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	ws, err := NewWorkspace(id, m.client, m.opts)
	if err != nil {
		m.mu.Unlock()
		return nil, err
	}
	e := &entry{ws: ws, ready: make(chan struct{})}
	m.workspaces[id.UserID] = e
	total := len(m.workspaces)
	m.mu.Unlock()

	// The workspace is shared, so its mount must not end with the request
	// that happened to start it. Failed features are reported through the
	// overview, not here.
	mountCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), MountTimeout)
	err = ws.Mount(mountCtx)
	cancel()
	if err != nil {
		m.logger.Warn("workspace mounted with failures", "uid", id.UserID, "error", err)
	}
	close(e.ready)

	m.logger.Info("workspace acquired", "uid", id.UserID, "total_workspaces", total)
	return ws, nil
}

// Lookup returns the workspace of uid if one is mounted.
func (m *Manager) Lookup(uid string) (*Workspace, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.workspaces[uid]
	if !ok {
		return nil, false
	}
	return e.ws, true
}

// Len returns the number of mounted workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}

// Release closes and forgets the workspace of uid, if any.
func (m *Manager) Release(ctx context.Context, uid string) error {
	m.mu.Lock()
	e, ok := m.workspaces[uid]
	if ok {
		delete(m.workspaces, uid)
	}
	m.mu.Unlock()
	if !ok {
		return nil
	}

	<-e.ready
	m.logger.Info("workspace released", "uid", uid)
	return e.ws.Close(ctx)
}

// EvictIdle releases every workspace unused for longer than the idle
// timeout and returns how many were released.
func (m *Manager) EvictIdle(ctx context.Context) int {
	cutoff := m.clock.Now().Add(-m.idleTimeout)

	m.mu.Lock()
	var idle []string
	for uid, e := range m.workspaces {
		select {
		case <-e.ready:
		default:
			continue
		}
		if e.ws.IdleSince().Before(cutoff) {
			idle = append(idle, uid)
		}
	}
	m.mu.Unlock()

	for _, uid := range idle {
		if err := m.Release(ctx, uid); err != nil {
			m.logger.Warn("closing idle workspace failed", "uid", uid, "error", err)
		}
	}
	if len(idle) > 0 {
		m.logger.Debug("evicted idle workspaces", "count", len(idle))
	}
	return len(idle)
}

// Run closes workspaces on sign-out events and evicts idle ones until ctx
// is done or events is closed.
func (m *Manager) Run(ctx context.Context, events <-chan auth.Event) {
	ticker := time.NewTicker(m.idleTimeout / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			m.handleEvent(ctx, ev)
		case <-ticker.C:
			m.EvictIdle(ctx)
		}
	}
}

func (m *Manager) handleEvent(ctx context.Context, ev auth.Event) {
	if ev.Type != auth.EventSignedOut {
		return
	}
	if err := m.Release(ctx, ev.Identity.UserID); err != nil {
		m.logger.Warn("closing workspace on sign-out failed", "uid", ev.Identity.UserID, "error", err)
	}
}

// Close releases every workspace. Acquire fails afterwards.
func (m *Manager) Close(ctx context.Context) error {
	m.mu.Lock()
	m.closed = true
	uids := make([]string, 0, len(m.workspaces))
	for uid := range m.workspaces {
		uids = append(uids, uid)
	}
	m.mu.Unlock()

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, uid := range uids {
		g.Go(func() error {
			if err := m.Release(ctx, uid); err != nil {
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}
