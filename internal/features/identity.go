// ABOUTME: Identity board: personal affirmations and collected quotes
// ABOUTME: Both lists share one document and the same add/update/delete vocabulary

package features

import (
	"encoding/json"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureIdentity names the identity board.
const FeatureIdentity = "identity"

// Statement is an affirmation or a quote.
type Statement struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"createdAt"`
}

// IdentityState is the stored identity board document.
type IdentityState struct {
	Affirmations []Statement `json:"affirmations"`
	Quotes       []Statement `json:"quotes"`
}

// IdentityConfig returns the store configuration for the identity board.
func IdentityConfig() synced.Config[IdentityState] {
	return synced.Config[IdentityState]{
		Feature:   FeatureIdentity,
		HandleFor: userDoc("identity"),
		Default: func() IdentityState {
			return IdentityState{Affirmations: []Statement{}, Quotes: []Statement{}}
		},
		Backfill: func(s *IdentityState) {
			s.Affirmations = orEmpty(s.Affirmations)
			s.Quotes = orEmpty(s.Quotes)
		},
	}
}

// Identity is the identity board module.
type Identity struct {
	*synced.Store[IdentityState]
	opts Options
}

var _ Module = (*Identity)(nil)

// NewIdentity creates an unbound identity board.
func NewIdentity(client remote.Client, opts Options) *Identity {
	return &Identity{Store: synced.New(client, configure(opts, IdentityConfig())), opts: opts}
}

type statementList func(*IdentityState) *[]Statement

func affirmations(s *IdentityState) *[]Statement { return &s.Affirmations }
func quotes(s *IdentityState) *[]Statement       { return &s.Quotes }

func (b *Identity) addTo(list statementList, text string) (string, error) {
	text, err := requireName(text)
	if err != nil {
		return "", err
	}
	st := Statement{ID: newID(), Text: text, CreatedAt: b.opts.now().UTC()}
	err = b.Mutate(func(s IdentityState) IdentityState {
		l := list(&s)
		*l = appended(*l, st)
		return s
	})
	return st.ID, err
}

func (b *Identity) updateIn(list statementList, id, text string) error {
	text, err := requireName(text)
	if err != nil {
		return err
	}
	return b.TryMutate(func(s IdentityState) (IdentityState, error) {
		l := list(&s)
		next, err := update(*l, statementID, id, "statement", func(st Statement) (Statement, error) {
			st.Text = text
			return st, nil
		})
		if err != nil {
			return s, err
		}
		*l = next
		return s, nil
	})
}

func (b *Identity) deleteFrom(list statementList, id string) error {
	return b.TryMutate(func(s IdentityState) (IdentityState, error) {
		l := list(&s)
		next, err := remove(*l, statementID, id, "statement")
		if err != nil {
			return s, err
		}
		*l = next
		return s, nil
	})
}

// AddAffirmation adds an affirmation and returns its id.
func (b *Identity) AddAffirmation(text string) (string, error) { return b.addTo(affirmations, text) }

// UpdateAffirmation rewrites an affirmation.
func (b *Identity) UpdateAffirmation(id, text string) error { return b.updateIn(affirmations, id, text) }

// DeleteAffirmation removes an affirmation.
func (b *Identity) DeleteAffirmation(id string) error { return b.deleteFrom(affirmations, id) }

// AddQuote adds a quote and returns its id.
func (b *Identity) AddQuote(text string) (string, error) { return b.addTo(quotes, text) }

// UpdateQuote rewrites a quote.
func (b *Identity) UpdateQuote(id, text string) error { return b.updateIn(quotes, id, text) }

// DeleteQuote removes a quote.
func (b *Identity) DeleteQuote(id string) error { return b.deleteFrom(quotes, id) }

func statementID(s Statement) string { return s.ID }

// State implements Module.
func (b *Identity) State() any { return b.Value() }

// Apply implements Module.
func (b *Identity) Apply(name string, args json.RawMessage) (any, error) {
	type arg struct{ ID, Text string }
	return dispatch(map[string]opFunc{
		"addAffirmation":    op(func(a arg) (any, error) { return created(b.AddAffirmation(a.Text)) }),
		"updateAffirmation": op(func(a arg) (any, error) { return done(b.UpdateAffirmation(a.ID, a.Text)) }),
		"deleteAffirmation": op(func(a arg) (any, error) { return done(b.DeleteAffirmation(a.ID)) }),
		"addQuote":          op(func(a arg) (any, error) { return created(b.AddQuote(a.Text)) }),
		"updateQuote":       op(func(a arg) (any, error) { return done(b.UpdateQuote(a.ID, a.Text)) }),
		"deleteQuote":       op(func(a arg) (any, error) { return done(b.DeleteQuote(a.ID)) }),
	}, name, args)
}
