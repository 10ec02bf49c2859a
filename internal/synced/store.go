// ABOUTME: Store[T] binds a feature's in-memory state to one remote document
// ABOUTME: Mutations apply immediately and persist after a debounce window; stale completions are ignored

package synced

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
)

// DefaultDebounceWindow is the quiet period after the last mutation before a write.
const DefaultDebounceWindow = time.Second

// Scope identifies whose data, and which period of it, a store is bound to.
type Scope struct {
	UserID string
	// Period narrows the document for features partitioned by time,
	// e.g. "2024-5" for the calendar. Empty for everything else.
	Period string
}

// Config describes one feature's document.
type Config[T any] struct {
	// Feature names the store in logs and status.
	Feature string

	// HandleFor derives the document handle from the scope.
	HandleFor func(Scope) remote.Handle

	// Default returns a fresh starting value, used when no document exists.
	Default func() T

	// Backfill fills fields missing from older stored documents. Optional.
	Backfill func(*T)

	// AfterLoad transforms freshly loaded state. When it reports a change,
	// the result is persisted on the next save cycle. Optional.
	AfterLoad func(v T, now time.Time) (T, bool)

	// Live keeps a subscription open and adopts remote changes while no
	// local change is unsaved.
	Live bool

	DebounceWindow time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

// Store owns the local state of one feature for one scope.
//
// Mutators passed to Mutate must return a new value rather than modify
// their argument in place, since Snapshot hands out the current value.
type Store[T any] struct {
	client remote.Client
	cfg    Config[T]
	clock  clock.Clock
	logger *slog.Logger

	mu     sync.Mutex
	state  State
	scope  Scope
	handle remote.Handle
	bound  bool
	value  T

	// epoch advances whenever the handle is invalidated; work started
	// under an older epoch is discarded on completion.
	epoch uint64

	exists        bool // the document is known to exist remotely
	pending       bool // local changes not yet written
	saving        bool
	dirty         bool // a save was requested while one was in flight
	saveDone      chan struct{}
	timer         clock.Timer
	lastPersisted []byte // canonical JSON of the last known remote state

	lastSaved time.Time
	loadErr   error
	saveErr   error
	unsub     remote.Unsubscribe
}

// New creates an unbound Store.
func New[T any](client remote.Client, cfg Config[T]) *Store[T] {
	if cfg.DebounceWindow <= 0 {
		cfg.DebounceWindow = DefaultDebounceWindow
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store[T]{
		client: client,
		cfg:    cfg,
		clock:  cfg.Clock,
		logger: cfg.Logger.With("component", "synced", "feature", cfg.Feature),
	}
}

// Feature returns the configured feature name.
func (s *Store[T]) Feature() string {
	return s.cfg.Feature
}

// Bind points the store at scope and loads it. Any pending timer, in-flight
// save, and subscription for the previous handle are invalidated first.
// Binding to the current handle while ready is a no-op.
func (s *Store[T]) Bind(ctx context.Context, scope Scope) error {
	h := s.cfg.HandleFor(scope)

	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return ErrTornDown
	}
	if s.bound && s.handle.Equal(h) && (s.state == StateReady || s.state == StateLoading) {
		s.mu.Unlock()
		return nil
	}
	unsub := s.invalidateLocked()
	s.scope = scope
	s.handle = h
	s.bound = true
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}

	s.logger.Debug("bound", "path", h.Path())
	return s.Load(ctx)
}

// Unbind discards local state and returns to Unloaded without writing.
func (s *Store[T]) Unbind() {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	unsub := s.invalidateLocked()
	s.bound = false
	s.scope = Scope{}
	s.handle = remote.Handle{}
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
}

// invalidateLocked cancels the timer, orphans in-flight work, and resets the
// per-handle state. The caller runs the returned unsubscribe outside the lock.
func (s *Store[T]) invalidateLocked() remote.Unsubscribe {
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++

	var zero T
	s.value = zero
	s.state = StateUnloaded
	s.exists = false
	s.pending = false
	s.saving = false
	s.dirty = false
	s.saveDone = nil
	s.lastPersisted = nil
	s.lastSaved = time.Time{}
	s.loadErr = nil
	s.saveErr = nil

	unsub := s.unsub
	s.unsub = nil
	return unsub
}

// Load fetches the document and seeds local state. A missing document is
// created from the default value. A transient failure is retried once and
// then leaves the store Failed until Retry.
func (s *Store[T]) Load(ctx context.Context) error {
	s.mu.Lock()
	switch {
	case s.state == StateTornDown:
		s.mu.Unlock()
		return ErrTornDown
	case !s.bound:
		s.mu.Unlock()
		return ErrUnbound
	case s.state == StateReady:
		s.mu.Unlock()
		return nil
	case s.state == StateLoading:
		s.mu.Unlock()
		return ErrLoadInProgress
	}
	s.state = StateLoading
	s.loadErr = nil
	ep := s.epoch
	h := s.handle
	s.mu.Unlock()

	value, exists, canon, err := s.fetch(ctx, h)
	if err != nil {
		s.mu.Lock()
		if s.epoch == ep {
			s.state = StateFailed
			s.loadErr = err
		}
		s.mu.Unlock()
		s.logger.Warn("load failed", "path", h.Path(), "error", err)
		return err
	}

	changed := false
	if s.cfg.AfterLoad != nil {
		value, changed = s.cfg.AfterLoad(value, s.clock.Now())
	}

	s.mu.Lock()
	if s.epoch != ep {
		s.mu.Unlock()
		return nil
	}
	s.value = value
	s.state = StateReady
	s.exists = exists
	s.lastPersisted = canon
	if !exists {
		s.mu.Unlock()
		s.seed(ctx, ep, h)
	} else {
		if changed {
			s.scheduleLocked()
		}
		s.mu.Unlock()
	}

	s.logger.Debug("loaded", "path", h.Path(), "found", exists)

	if s.cfg.Live {
		return s.subscribe(ctx, ep, h)
	}
	return nil
}

// seed writes the default value to a missing document. It runs as an
// in-flight save of epoch ep, so an invalidation before it starts skips the
// write and one during it orphans the completion.
func (s *Store[T]) seed(ctx context.Context, ep uint64, h remote.Handle) {
	s.mu.Lock()
	if s.epoch != ep || s.state != StateReady || s.saving {
		s.mu.Unlock()
		return
	}
	doc, err := encode(s.value)
	if err != nil {
		s.saveErr = err
		s.pending = true
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.pending = false
	s.saving = true
	done := make(chan struct{})
	s.saveDone = done
	s.mu.Unlock()

	err = s.client.Replace(ctx, h, doc)

	s.mu.Lock()
	close(done)
	if s.epoch != ep {
		s.mu.Unlock()
		s.logger.Debug("discarding stale seed completion", "path", h.Path())
		return
	}
	s.saving = false
	s.saveDone = nil
	again := s.dirty
	s.dirty = false
	if err != nil {
		s.saveErr = err
		s.pending = true
	} else {
		s.exists = true
		s.lastPersisted = canonical(doc)
	}
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("seeding default document failed", "path", h.Path(), "error", err)
	}
	if again {
		_ = s.persist(ctx, ep)
	}
}

// Retry reloads a store whose load failed.
func (s *Store[T]) Retry(ctx context.Context) error {
	s.mu.Lock()
	if s.state == StateFailed {
		s.state = StateUnloaded
	}
	s.mu.Unlock()
	return s.Load(ctx)
}

func (s *Store[T]) fetch(ctx context.Context, h remote.Handle) (T, bool, []byte, error) {
	var zero T

	doc, err := s.client.FetchOnce(ctx, h)
	if errors.Is(err, remote.ErrTransientIO) {
		s.logger.Debug("retrying fetch", "path", h.Path(), "error", err)
		doc, err = s.client.FetchOnce(ctx, h)
	}

	switch {
	case errors.Is(err, remote.ErrNotFound):
		return s.cfg.Default(), false, nil, nil
	case err != nil:
		return zero, false, nil, err
	}

	value, err := s.decode(doc)
	if err != nil {
		return zero, false, nil, err
	}
	return value, true, canonical(doc), nil
}

func (s *Store[T]) subscribe(ctx context.Context, ep uint64, h remote.Handle) error {
	unsub, err := s.client.Subscribe(context.WithoutCancel(ctx), h, func(doc remote.Document, exists bool) {
		s.adoptRemote(ep, doc, exists)
	})
	if err != nil {
		s.logger.Warn("subscribe failed", "path", h.Path(), "error", err)
		return nil
	}

	s.mu.Lock()
	if s.epoch != ep {
		s.mu.Unlock()
		unsub()
		return nil
	}
	s.unsub = unsub
	s.mu.Unlock()
	return nil
}

// adoptRemote applies an external change when no local change is unsaved.
// Echoes of the store's own writes are recognised and ignored.
func (s *Store[T]) adoptRemote(ep uint64, doc remote.Document, exists bool) {
	if !exists {
		return
	}
	canon := canonical(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.epoch != ep || s.state != StateReady {
		return
	}
	if bytes.Equal(canon, s.lastPersisted) {
		return
	}
	if s.pending || s.saving {
		return
	}

	value, err := s.decode(doc)
	if err != nil {
		s.logger.Warn("ignoring undecodable remote change", "path", s.handle.Path(), "error", err)
		return
	}
	s.value = value
	s.exists = true
	s.lastPersisted = canon
	s.logger.Debug("adopted remote change", "path", s.handle.Path())
}

// Mutate applies fn to the local state and schedules a persist.
func (s *Store[T]) Mutate(fn func(T) T) error {
	return s.TryMutate(func(v T) (T, error) { return fn(v), nil })
}

// TryMutate is Mutate for updaters that can reject the change. On error the
// state is left untouched and nothing is scheduled.
func (s *Store[T]) TryMutate(fn func(T) (T, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateTornDown:
		return ErrTornDown
	case StateReady:
	default:
		return ErrNotReady
	}

	next, err := fn(s.value)
	if err != nil {
		return err
	}
	s.value = next
	s.scheduleLocked()
	return nil
}

// scheduleLocked restarts the debounce countdown.
func (s *Store[T]) scheduleLocked() {
	s.pending = true
	if s.timer != nil {
		s.timer.Stop()
	}
	ep := s.epoch
	s.timer = s.clock.AfterFunc(s.cfg.DebounceWindow, func() {
		_ = s.persist(context.Background(), ep)
	})
}

// persist writes the current state if anything is unsaved. When a save is
// already in flight it only marks the store dirty; the in-flight save then
// writes the latest state once it completes.
func (s *Store[T]) persist(ctx context.Context, ep uint64) error {
	for {
		s.mu.Lock()
		if s.epoch != ep || s.state != StateReady {
			s.mu.Unlock()
			return nil
		}
		if s.saving {
			s.dirty = true
			s.mu.Unlock()
			return nil
		}
		if !s.pending {
			s.mu.Unlock()
			return nil
		}
		if s.timer != nil {
			s.timer.Stop()
			s.timer = nil
		}

		doc, err := encode(s.value)
		if err != nil {
			s.saveErr = err
			s.mu.Unlock()
			return err
		}
		h := s.handle
		replace := !s.exists
		s.pending = false
		s.saving = true
		done := make(chan struct{})
		s.saveDone = done
		s.mu.Unlock()

		if replace {
			err = s.client.Replace(ctx, h, doc)
		} else {
			err = s.client.Merge(ctx, h, doc)
		}

		s.mu.Lock()
		close(done)
		if s.epoch != ep {
			s.mu.Unlock()
			s.logger.Debug("discarding stale save completion", "path", h.Path())
			return nil
		}
		s.saving = false
		s.saveDone = nil
		again := s.dirty
		s.dirty = false
		if err != nil {
			s.saveErr = err
			s.pending = true
		} else {
			s.saveErr = nil
			s.exists = true
			s.lastSaved = s.clock.Now()
			s.lastPersisted = canonical(doc)
		}
		s.mu.Unlock()

		if err != nil {
			s.logger.Warn("save failed", "path", h.Path(), "error", err)
		} else {
			s.logger.Debug("saved", "path", h.Path(), "replace", replace)
		}

		if !again {
			return err
		}
	}
}

// Flush writes any unsaved state now instead of waiting for the debounce
// window, waiting for an in-flight save first. Used before navigation and
// sign-out.
func (s *Store[T]) Flush(ctx context.Context) error {
	for {
		s.mu.Lock()
		if s.state != StateReady {
			s.mu.Unlock()
			return nil
		}
		ep := s.epoch
		if s.saving {
			done := s.saveDone
			s.mu.Unlock()
			select {
			case <-done:
				continue
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		if !s.pending {
			s.mu.Unlock()
			return nil
		}
		s.mu.Unlock()

		if err := s.persist(ctx, ep); err != nil {
			return err
		}
	}
}

// Teardown cancels the pending timer and subscription and orphans any
// in-flight save. Every later operation is a no-op returning ErrTornDown.
func (s *Store[T]) Teardown() {
	s.mu.Lock()
	if s.state == StateTornDown {
		s.mu.Unlock()
		return
	}
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.epoch++
	s.state = StateTornDown
	s.saving = false
	s.saveDone = nil
	unsub := s.unsub
	s.unsub = nil
	s.mu.Unlock()

	if unsub != nil {
		unsub()
	}
	s.logger.Debug("torn down")
}

// Snapshot returns the current value and status.
func (s *Store[T]) Snapshot() (T, Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.statusLocked()
}

// Value returns the current value.
func (s *Store[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}

// Status returns the current status.
func (s *Store[T]) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.statusLocked()
}

func (s *Store[T]) statusLocked() Status {
	st := Status{
		Feature:   s.cfg.Feature,
		State:     s.state,
		Saving:    s.saving,
		Pending:   s.pending,
		LastSaved: s.lastSaved,
		LoadError: s.loadErr,
		SaveError: s.saveErr,
	}
	if s.bound {
		st.Path = s.handle.Path()
	}
	return st
}

// Scope returns the bound scope.
func (s *Store[T]) Scope() Scope {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.scope
}

// Handle returns the bound document handle.
func (s *Store[T]) Handle() remote.Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.handle
}

func (s *Store[T]) decode(doc remote.Document) (T, error) {
	var v T
	data, err := json.Marshal(doc)
	if err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if err := json.Unmarshal(data, &v); err != nil {
		return v, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	if s.cfg.Backfill != nil {
		s.cfg.Backfill(&v)
	}
	return v, nil
}

// encode converts a value to the plain document tree sent to the client.
func encode[T any](v T) (remote.Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	var doc remote.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("encoding state: %w", err)
	}
	if doc == nil {
		doc = remote.Document{}
	}
	return doc, nil
}

// canonical renders a document with sorted keys for equality checks.
func canonical(doc remote.Document) []byte {
	data, err := json.Marshal(doc)
	if err != nil {
		return nil
	}
	return data
}
