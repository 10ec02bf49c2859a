// ABOUTME: Workspace is the set of mounted feature modules for one user
// ABOUTME: Loads modules concurrently with per-feature failure isolation

package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/issambenlahbib/levelupmy-life/internal/auth"
	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/features"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

var (
	// ErrUnknownFeature is returned for a feature name no module answers to.
	ErrUnknownFeature = errors.New("unknown feature")

	// ErrClosed is returned by operations on a closed workspace.
	ErrClosed = errors.New("workspace closed")

	// ErrUnauthenticated is returned when mounting for an identity that is
	// not signed in.
	ErrUnauthenticated = errors.New("identity is not authenticated")
)

// Workspace owns every feature module of one user.
type Workspace struct {
	identity auth.Identity
	set      *features.Set
	clock    clock.Clock
	logger   *slog.Logger

	mu       sync.Mutex
	lastUsed time.Time
	closed   bool
}

// NewWorkspace creates unmounted modules for id.
func NewWorkspace(id auth.Identity, client remote.Client, opts features.Options) (*Workspace, error) {
	if !id.Authenticated() {
		return nil, ErrUnauthenticated
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.Real()
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Workspace{
		identity: id,
		set:      features.NewSet(client, opts),
		clock:    clk,
		logger:   logger.With("component", "workspace", "uid", id.UserID),
		lastUsed: clk.Now(),
	}, nil
}

// Identity returns the user the workspace belongs to.
func (w *Workspace) Identity() auth.Identity { return w.identity }

// Features returns the underlying modules.
func (w *Workspace) Features() *features.Set { return w.set }

// Mount binds and loads every module concurrently. Failed loads leave their
// module Failed; the joined error names each one. Siblings are unaffected.
func (w *Workspace) Mount(ctx context.Context) error {
	if err := w.use(); err != nil {
		return err
	}
	scope := synced.Scope{UserID: w.identity.UserID}

	var (
		mu     sync.Mutex
		failed []error
	)
	var g errgroup.Group
	for _, m := range w.set.Modules() {
		g.Go(func() error {
			if err := m.Bind(ctx, scope); err != nil {
				w.logger.Warn("feature failed to load", "feature", m.Feature(), "error", err)
				mu.Lock()
				failed = append(failed, fmt.Errorf("%s: %w", m.Feature(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	w.logger.Info("workspace mounted", "features", len(w.set.Modules()), "failed", len(failed))
	return errors.Join(failed...)
}

// Module returns the named feature module.
func (w *Workspace) Module(feature string) (features.Module, error) {
	if err := w.use(); err != nil {
		return nil, err
	}
	m, ok := w.set.Module(feature)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFeature, feature)
	}
	return m, nil
}

// Apply runs a named mutation on a feature.
func (w *Workspace) Apply(feature, op string, args json.RawMessage) (any, error) {
	m, err := w.Module(feature)
	if err != nil {
		return nil, err
	}
	return m.Apply(op, args)
}

// Retry reloads a feature whose load failed.
func (w *Workspace) Retry(ctx context.Context, feature string) error {
	m, err := w.Module(feature)
	if err != nil {
		return err
	}
	return m.Retry(ctx)
}

// NavigateMonth saves the calendar and moves it delta months.
func (w *Workspace) NavigateMonth(ctx context.Context, delta int) error {
	if err := w.use(); err != nil {
		return err
	}
	return w.set.Calendar.Navigate(ctx, delta)
}

// SetMonth saves the calendar and shows the given month.
func (w *Workspace) SetMonth(ctx context.Context, year int, month time.Month) error {
	if err := w.use(); err != nil {
		return err
	}
	return w.set.Calendar.SetMonth(ctx, year, month)
}

// Overview summarizes the status of every module.
func (w *Workspace) Overview() Overview {
	statuses := make([]synced.Status, 0, len(w.set.Modules()))
	for _, m := range w.set.Modules() {
		statuses = append(statuses, m.Status())
	}
	return summarize(w.identity.UserID, statuses)
}

// Flush writes every module's pending edits now.
func (w *Workspace) Flush(ctx context.Context) error {
	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	for _, m := range w.set.Modules() {
		g.Go(func() error {
			if err := m.Flush(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Errorf("%s: %w", m.Feature(), err))
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Close flushes pending edits and tears every module down. Later calls
// are no-ops.
func (w *Workspace) Close(ctx context.Context) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	err := w.Flush(ctx)
	if err != nil {
		w.logger.Warn("flush on close failed", "error", err)
	}
	for _, m := range w.set.Modules() {
		m.Teardown()
	}
	w.logger.Info("workspace closed")
	return err
}

// IdleSince returns when the workspace was last used.
func (w *Workspace) IdleSince() time.Time {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastUsed
}

// use records activity, failing once the workspace is closed.
func (w *Workspace) use() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	w.lastUsed = w.clock.Now()
	return nil
}
