// ABOUTME: Goals board: goals grouped into fixed time-horizon columns
// ABOUTME: Moving a goal between columns only changes its category

package features

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureGoals names the goals board.
const FeatureGoals = "goals"

// GoalCategories are the board columns in display order.
var GoalCategories = []string{"Weekly", "Monthly", "6 Months", "1 Year", "3 Years", "10 Years"}

// GoalColors is the goal palette. The first entry is the default.
var GoalColors = []string{
	"#1E3A8A", "#065F46", "#7B341E", "#701A75", "#450A0A", "#374151",
	"#0F172A", "#422006", "#0066FF", "#00FF66", "#FF6600", "#6600FF",
}

// Goal is one goal card.
type Goal struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Color       string    `json:"color"`
	CreatedAt   time.Time `json:"createdAt"`
}

// GoalInput holds the editable goal fields.
type GoalInput struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Category    string `json:"category"`
	Color       string `json:"color"`
}

// GoalsState is the stored goals document.
type GoalsState struct {
	Goals []Goal `json:"goals"`
}

// GoalsConfig returns the store configuration for goals.
func GoalsConfig() synced.Config[GoalsState] {
	return synced.Config[GoalsState]{
		Feature:   FeatureGoals,
		HandleFor: userDoc("goals"),
		Default:   func() GoalsState { return GoalsState{Goals: []Goal{}} },
		Backfill: func(s *GoalsState) {
			s.Goals = orEmpty(s.Goals)
			for i := range s.Goals {
				if s.Goals[i].Color == "" {
					s.Goals[i].Color = GoalColors[0]
				}
				if s.Goals[i].Category == "" {
					s.Goals[i].Category = GoalCategories[0]
				}
			}
		},
	}
}

// Goals is the goals module.
type Goals struct {
	*synced.Store[GoalsState]
	opts Options
}

var _ Module = (*Goals)(nil)

// NewGoals creates an unbound goals board.
func NewGoals(client remote.Client, opts Options) *Goals {
	return &Goals{Store: synced.New(client, configure(opts, GoalsConfig())), opts: opts}
}

func (in GoalInput) normalize() (GoalInput, error) {
	title, err := requireName(in.Title)
	if err != nil {
		return in, err
	}
	in.Title = title
	if in.Category == "" {
		in.Category = GoalCategories[0]
	}
	if !slices.Contains(GoalCategories, in.Category) {
		return in, fmt.Errorf("%w: category %q", ErrInvalidArgument, in.Category)
	}
	if in.Color == "" {
		in.Color = GoalColors[0]
	}
	return in, nil
}

// Add creates a goal and returns its id.
func (g *Goals) Add(in GoalInput) (string, error) {
	in, err := in.normalize()
	if err != nil {
		return "", err
	}
	goal := Goal{
		ID:          newID(),
		Title:       in.Title,
		Description: in.Description,
		Category:    in.Category,
		Color:       in.Color,
		CreatedAt:   g.opts.now().UTC(),
	}
	err = g.Mutate(func(s GoalsState) GoalsState {
		s.Goals = appended(s.Goals, goal)
		return s
	})
	return goal.ID, err
}

// Update replaces a goal's editable fields.
func (g *Goals) Update(id string, in GoalInput) error {
	in, err := in.normalize()
	if err != nil {
		return err
	}
	return g.edit(id, func(goal Goal) Goal {
		goal.Title = in.Title
		goal.Description = in.Description
		goal.Category = in.Category
		goal.Color = in.Color
		return goal
	})
}

// Move puts a goal into another column.
func (g *Goals) Move(id, category string) error {
	if !slices.Contains(GoalCategories, category) {
		return fmt.Errorf("%w: category %q", ErrInvalidArgument, category)
	}
	return g.edit(id, func(goal Goal) Goal {
		goal.Category = category
		return goal
	})
}

// Delete removes a goal.
func (g *Goals) Delete(id string) error {
	return g.TryMutate(func(s GoalsState) (GoalsState, error) {
		goals, err := remove(s.Goals, goalID, id, "goal")
		if err != nil {
			return s, err
		}
		s.Goals = goals
		return s, nil
	})
}

// ByCategory returns the goals in one column, in insertion order.
func (g *Goals) ByCategory(category string) []Goal {
	var out []Goal
	for _, goal := range g.Value().Goals {
		if goal.Category == category {
			out = append(out, goal)
		}
	}
	return out
}

func (g *Goals) edit(id string, fn func(Goal) Goal) error {
	return g.TryMutate(func(s GoalsState) (GoalsState, error) {
		goals, err := update(s.Goals, goalID, id, "goal", func(goal Goal) (Goal, error) {
			return fn(goal), nil
		})
		if err != nil {
			return s, err
		}
		s.Goals = goals
		return s, nil
	})
}

func goalID(g Goal) string { return g.ID }

// State implements Module.
func (g *Goals) State() any { return g.Value() }

// Apply implements Module.
func (g *Goals) Apply(name string, args json.RawMessage) (any, error) {
	type withID struct {
		ID string `json:"id"`
		GoalInput
	}
	return dispatch(map[string]opFunc{
		"add":    op(func(a GoalInput) (any, error) { return created(g.Add(a)) }),
		"update": op(func(a withID) (any, error) { return done(g.Update(a.ID, a.GoalInput)) }),
		"move": op(func(a struct{ ID, Category string }) (any, error) {
			return done(g.Move(a.ID, a.Category))
		}),
		"delete": op(func(a struct{ ID string }) (any, error) { return done(g.Delete(a.ID)) }),
	}, name, args)
}
