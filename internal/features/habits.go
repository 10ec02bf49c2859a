// ABOUTME: Habit tracker: named habits with per-day completion flags
// ABOUTME: Day keys are unpadded year-month-day strings such as 2024-6-15

package features

import (
	"encoding/json"
	"fmt"
	"maps"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureHabits names the habit tracker.
const FeatureHabits = "habits"

// Habit is one tracked habit.
type Habit struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Completions map[string]bool `json:"completions"`
}

// HabitsState is the stored habit tracker document.
type HabitsState struct {
	Habits []Habit `json:"habits"`
}

// HabitsConfig returns the store configuration for habits.
func HabitsConfig() synced.Config[HabitsState] {
	return synced.Config[HabitsState]{
		Feature:   FeatureHabits,
		HandleFor: rootDoc("habitTrackers"),
		Default:   func() HabitsState { return HabitsState{Habits: []Habit{}} },
		Backfill: func(s *HabitsState) {
			s.Habits = orEmpty(s.Habits)
			for i := range s.Habits {
				if s.Habits[i].Completions == nil {
					s.Habits[i].Completions = map[string]bool{}
				}
			}
		},
	}
}

// Habits is the habit tracker module.
type Habits struct {
	*synced.Store[HabitsState]
}

var _ Module = (*Habits)(nil)

// NewHabits creates an unbound habit tracker.
func NewHabits(client remote.Client, opts Options) *Habits {
	return &Habits{Store: synced.New(client, configure(opts, HabitsConfig()))}
}

// Add creates a habit and returns its id.
func (h *Habits) Add(name string) (string, error) {
	name, err := requireName(name)
	if err != nil {
		return "", err
	}
	id := newID()
	err = h.Mutate(func(s HabitsState) HabitsState {
		s.Habits = appended(s.Habits, Habit{ID: id, Name: name, Completions: map[string]bool{}})
		return s
	})
	return id, err
}

// Rename changes a habit's name.
func (h *Habits) Rename(id, name string) error {
	name, err := requireName(name)
	if err != nil {
		return err
	}
	return h.edit(id, func(hb Habit) (Habit, error) {
		hb.Name = name
		return hb, nil
	})
}

// Delete removes a habit.
func (h *Habits) Delete(id string) error {
	return h.TryMutate(func(s HabitsState) (HabitsState, error) {
		habits, err := remove(s.Habits, habitID, id, "habit")
		if err != nil {
			return s, err
		}
		s.Habits = habits
		return s, nil
	})
}

// Toggle flips the completion flag for one day.
func (h *Habits) Toggle(id, dayKey string) error {
	if dayKey == "" {
		return fmt.Errorf("%w: empty day key", ErrInvalidArgument)
	}
	return h.edit(id, func(hb Habit) (Habit, error) {
		c := maps.Clone(hb.Completions)
		if c == nil {
			c = map[string]bool{}
		}
		c[dayKey] = !c[dayKey]
		hb.Completions = c
		return hb, nil
	})
}

func (h *Habits) edit(id string, fn func(Habit) (Habit, error)) error {
	return h.TryMutate(func(s HabitsState) (HabitsState, error) {
		habits, err := update(s.Habits, habitID, id, "habit", fn)
		if err != nil {
			return s, err
		}
		s.Habits = habits
		return s, nil
	})
}

func habitID(h Habit) string { return h.ID }

// State implements Module.
func (h *Habits) State() any { return h.Value() }

// Apply implements Module.
func (h *Habits) Apply(name string, args json.RawMessage) (any, error) {
	return dispatch(map[string]opFunc{
		"add": op(func(a struct{ Name string }) (any, error) { return created(h.Add(a.Name)) }),
		"rename": op(func(a struct{ ID, Name string }) (any, error) {
			return done(h.Rename(a.ID, a.Name))
		}),
		"delete": op(func(a struct{ ID string }) (any, error) { return done(h.Delete(a.ID)) }),
		"toggle": op(func(a struct{ ID, Day string }) (any, error) {
			return done(h.Toggle(a.ID, a.Day))
		}),
	}, name, args)
}

// DayKey formats a calendar day the way habit completions are keyed.
func DayKey(year int, month time.Month, day int) string {
	return fmt.Sprintf("%d-%d-%d", year, int(month), day)
}

// DaysIn returns the number of days in a month.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// WeekCount returns how many seven-day pages a month spans.
func WeekCount(year int, month time.Month) int {
	return (DaysIn(year, month) + 6) / 7
}

// WeekDays returns the day numbers on page week (zero-based) of a month.
func WeekDays(year int, month time.Month, week int) []int {
	n := DaysIn(year, month)
	start := week*7 + 1
	if week < 0 || start > n {
		return nil
	}
	end := min(start+6, n)
	days := make([]int, 0, end-start+1)
	for d := start; d <= end; d++ {
		days = append(days, d)
	}
	return days
}
