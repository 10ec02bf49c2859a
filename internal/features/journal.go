// ABOUTME: Daily journal: morning wins, gratitude and reflections keyed by ISO date
// ABOUTME: Reading a day with no entry yields an empty entry without writing one

package features

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureJournal names the journal.
const FeatureJournal = "journal"

// DateLayout is the ISO date used for journal and calendar keys.
const DateLayout = "2006-01-02"

// Win is one morning win.
type Win struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// JournalEntry is one day of the journal.
type JournalEntry struct {
	Date        string `json:"date"`
	MorningWins []Win  `json:"morningWins"`
	Gratitude   string `json:"gratitude"`
	Reflections string `json:"reflections"`
}

// JournalState is the stored journal document.
type JournalState struct {
	Entries map[string]JournalEntry `json:"entries"`
}

// JournalConfig returns the store configuration for the journal.
func JournalConfig() synced.Config[JournalState] {
	return synced.Config[JournalState]{
		Feature:   FeatureJournal,
		HandleFor: rootDoc("journals"),
		Default:   func() JournalState { return JournalState{Entries: map[string]JournalEntry{}} },
		Backfill: func(s *JournalState) {
			if s.Entries == nil {
				s.Entries = map[string]JournalEntry{}
			}
			for k, e := range s.Entries {
				if e.MorningWins == nil || e.Date == "" {
					e.MorningWins = orEmpty(e.MorningWins)
					if e.Date == "" {
						e.Date = k
					}
					s.Entries[k] = e
				}
			}
		},
	}
}

// Journal is the journal module.
type Journal struct {
	*synced.Store[JournalState]
}

var _ Module = (*Journal)(nil)

// NewJournal creates an unbound journal.
func NewJournal(client remote.Client, opts Options) *Journal {
	return &Journal{Store: synced.New(client, configure(opts, JournalConfig()))}
}

// DateKey formats t as a journal key.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

func checkDate(date string) error {
	if _, err := time.Parse(DateLayout, date); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalidArgument, date)
	}
	return nil
}

func emptyEntry(date string) JournalEntry {
	return JournalEntry{Date: date, MorningWins: []Win{}}
}

// Entry returns the entry for date, or an empty one.
func (j *Journal) Entry(date string) JournalEntry {
	if e, ok := j.Value().Entries[date]; ok {
		return e
	}
	return emptyEntry(date)
}

// AddWin appends a morning win and returns its id.
func (j *Journal) AddWin(date, text string) (string, error) {
	text, err := requireName(text)
	if err != nil {
		return "", err
	}
	id := newID()
	err = j.edit(date, func(e JournalEntry) (JournalEntry, error) {
		e.MorningWins = appended(e.MorningWins, Win{ID: id, Text: text})
		return e, nil
	})
	return id, err
}

// ToggleWin flips a win's completed flag.
func (j *Journal) ToggleWin(date, id string) error {
	return j.edit(date, func(e JournalEntry) (JournalEntry, error) {
		wins, err := update(e.MorningWins, winID, id, "win", func(w Win) (Win, error) {
			w.Completed = !w.Completed
			return w, nil
		})
		if err != nil {
			return e, err
		}
		e.MorningWins = wins
		return e, nil
	})
}

// DeleteWin removes a win.
func (j *Journal) DeleteWin(date, id string) error {
	return j.edit(date, func(e JournalEntry) (JournalEntry, error) {
		wins, err := remove(e.MorningWins, winID, id, "win")
		if err != nil {
			return e, err
		}
		e.MorningWins = wins
		return e, nil
	})
}

// SetGratitude replaces the gratitude text.
func (j *Journal) SetGratitude(date, text string) error {
	return j.edit(date, func(e JournalEntry) (JournalEntry, error) {
		e.Gratitude = text
		return e, nil
	})
}

// SetReflections replaces the reflections text.
func (j *Journal) SetReflections(date, text string) error {
	return j.edit(date, func(e JournalEntry) (JournalEntry, error) {
		e.Reflections = text
		return e, nil
	})
}

func (j *Journal) edit(date string, fn func(JournalEntry) (JournalEntry, error)) error {
	if err := checkDate(date); err != nil {
		return err
	}
	return j.TryMutate(func(s JournalState) (JournalState, error) {
		e, ok := s.Entries[date]
		if !ok {
			e = emptyEntry(date)
		}
		e, err := fn(e)
		if err != nil {
			return s, err
		}
		entries := maps.Clone(s.Entries)
		if entries == nil {
			entries = map[string]JournalEntry{}
		}
		entries[date] = e
		s.Entries = entries
		return s, nil
	})
}

func winID(w Win) string { return w.ID }

// State implements Module.
func (j *Journal) State() any { return j.Value() }

// Apply implements Module.
func (j *Journal) Apply(name string, args json.RawMessage) (any, error) {
	type dated struct{ Date, ID, Text string }
	return dispatch(map[string]opFunc{
		"addWin":         op(func(a dated) (any, error) { return created(j.AddWin(a.Date, a.Text)) }),
		"toggleWin":      op(func(a dated) (any, error) { return done(j.ToggleWin(a.Date, a.ID)) }),
		"deleteWin":      op(func(a dated) (any, error) { return done(j.DeleteWin(a.Date, a.ID)) }),
		"setGratitude":   op(func(a dated) (any, error) { return done(j.SetGratitude(a.Date, a.Text)) }),
		"setReflections": op(func(a dated) (any, error) { return done(j.SetReflections(a.Date, a.Text)) }),
	}, name, args)
}
