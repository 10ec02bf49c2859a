// ABOUTME: Shared plumbing for feature modules: options, ids, errors and the Module contract
// ABOUTME: Each feature is a thin configuration of synced.Store plus its mutation vocabulary

package features

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/issambenlahbib/levelupmy-life/internal/clock"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// Errors returned by feature mutations.
var (
	ErrEmptyName       = errors.New("name must not be blank")
	ErrNotFound        = errors.New("item not found")
	ErrInvalidArgument = errors.New("invalid argument")
	ErrUnknownOp       = errors.New("unknown operation")
)

// Module is the surface every feature exposes to the dashboard and server.
type Module interface {
	Feature() string
	Bind(ctx context.Context, scope synced.Scope) error
	Unbind()
	Load(ctx context.Context) error
	Retry(ctx context.Context) error
	Flush(ctx context.Context) error
	Teardown()
	Status() synced.Status

	// State returns the current value for display.
	State() any

	// Apply runs a named mutation with JSON arguments.
	Apply(op string, args json.RawMessage) (any, error)
}

// Options carries the settings shared by every feature store.
type Options struct {
	DebounceWindow time.Duration
	Clock          clock.Clock
	Logger         *slog.Logger
}

func (o Options) now() time.Time {
	if o.Clock == nil {
		return time.Now()
	}
	return o.Clock.Now()
}

func configure[T any](o Options, cfg synced.Config[T]) synced.Config[T] {
	cfg.DebounceWindow = o.DebounceWindow
	cfg.Clock = o.Clock
	cfg.Logger = o.Logger
	return cfg
}

// userDoc is the handle shape users/{uid}/{name}/data.
func userDoc(name string) func(synced.Scope) remote.Handle {
	return func(s synced.Scope) remote.Handle {
		return remote.NewHandle("users", s.UserID, name, "data")
	}
}

// rootDoc is the handle shape {collection}/{uid}.
func rootDoc(collection string) func(synced.Scope) remote.Handle {
	return func(s synced.Scope) remote.Handle {
		return remote.NewHandle(collection, s.UserID)
	}
}

func newID() string {
	return ulid.Make().String()
}

func requireName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyName
	}
	return name, nil
}

func notFound(kind, id string) error {
	return fmt.Errorf("%s %q: %w", kind, id, ErrNotFound)
}

// update replaces the first element matching id with fn's result.
func update[E any](items []E, idOf func(E) string, id, kind string, fn func(E) (E, error)) ([]E, error) {
	for i, it := range items {
		if idOf(it) != id {
			continue
		}
		next, err := fn(it)
		if err != nil {
			return nil, err
		}
		out := make([]E, len(items))
		copy(out, items)
		out[i] = next
		return out, nil
	}
	return nil, notFound(kind, id)
}

// remove drops the element matching id.
func remove[E any](items []E, idOf func(E) string, id, kind string) ([]E, error) {
	out := make([]E, 0, len(items))
	for _, it := range items {
		if idOf(it) != id {
			out = append(out, it)
		}
	}
	if len(out) == len(items) {
		return nil, notFound(kind, id)
	}
	return out, nil
}

// orEmpty returns s, or an empty non-nil slice when s is nil.
func orEmpty[E any](s []E) []E {
	if s == nil {
		return []E{}
	}
	return s
}

type opFunc func(args json.RawMessage) (any, error)

func op[A any](fn func(A) (any, error)) opFunc {
	return func(raw json.RawMessage) (any, error) {
		var args A
		if len(raw) > 0 && string(raw) != "null" {
			if err := json.Unmarshal(raw, &args); err != nil {
				return nil, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
			}
		}
		return fn(args)
	}
}

func dispatch(ops map[string]opFunc, name string, raw json.RawMessage) (any, error) {
	fn, ok := ops[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownOp, name)
	}
	return fn(raw)
}

func created(id string, err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]string{"id": id}, nil
}

func done(err error) (any, error) {
	if err != nil {
		return nil, err
	}
	return map[string]bool{"ok": true}, nil
}

// appended returns s with e added, never sharing s's backing array.
func appended[E any](s []E, e E) []E {
	return append(s[:len(s):len(s)], e)
}

func (o Options) logger() *slog.Logger {
	if o.Logger == nil {
		return slog.Default()
	}
	return o.Logger
}
