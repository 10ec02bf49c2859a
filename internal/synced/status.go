// ABOUTME: Lifecycle states and the observable sync status of a Store
// ABOUTME: Status is what the UI layer renders: loading, saving, last saved, failures

package synced

import (
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrTornDown is returned by every operation after Teardown.
	ErrTornDown = errors.New("store torn down")

	// ErrNotReady is returned by mutations before a successful load.
	ErrNotReady = errors.New("store not loaded")

	// ErrLoadInProgress is returned when Load is called while loading.
	ErrLoadInProgress = errors.New("load already in progress")

	// ErrUnbound is returned when loading a store that has no scope.
	ErrUnbound = errors.New("store has no scope")

	// ErrDecode wraps documents whose stored fields have the wrong shape.
	ErrDecode = errors.New("decoding stored document")
)

// State is the lifecycle position of a Store.
type State int

const (
	StateUnloaded State = iota
	StateLoading
	StateReady
	StateFailed
	StateTornDown
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	case StateTornDown:
		return "torndown"
	default:
		return "unknown"
	}
}

// Phase is the coarse indicator shown to users.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseSaving  Phase = "saving"
)

// Status is a point-in-time view of a Store.
type Status struct {
	Feature   string
	Path      string
	State     State
	Saving    bool
	Pending   bool
	LastSaved time.Time
	LoadError error
	SaveError error
}

// Phase reduces the status to idle, loading, or saving.
func (s Status) Phase() Phase {
	switch {
	case s.State == StateLoading:
		return PhaseLoading
	case s.Saving:
		return PhaseSaving
	default:
		return PhaseIdle
	}
}

// MarshalJSON renders errors as strings and omits unset times.
func (s Status) MarshalJSON() ([]byte, error) {
	out := struct {
		Feature   string     `json:"feature"`
		Path      string     `json:"path,omitempty"`
		State     string     `json:"state"`
		Phase     Phase      `json:"phase"`
		Pending   bool       `json:"pending"`
		LastSaved *time.Time `json:"lastSaved,omitempty"`
		LoadError string     `json:"loadError,omitempty"`
		SaveError string     `json:"saveError,omitempty"`
	}{
		Feature: s.Feature,
		Path:    s.Path,
		State:   s.State.String(),
		Phase:   s.Phase(),
		Pending: s.Pending,
	}
	if !s.LastSaved.IsZero() {
		t := s.LastSaved
		out.LastSaved = &t
	}
	if s.LoadError != nil {
		out.LoadError = s.LoadError.Error()
	}
	if s.SaveError != nil {
		out.SaveError = s.SaveError.Error()
	}
	return json.Marshal(out)
}
