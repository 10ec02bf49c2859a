// ABOUTME: Set bundles one instance of every feature module for a single user
// ABOUTME: Modules are listed in dashboard display order

package features

import "github.com/issambenlahbib/levelupmy-life/internal/remote"

// Set holds every feature module.
type Set struct {
	Habits      *Habits
	Journal     *Journal
	Goals       *Goals
	Calendar    *Calendar
	Identity    *Identity
	LifeWheel   *LifeWheel
	Kanban      *Kanban
	Notes       *Notes
	Tables      *Tables
	VisionBoard *VisionBoard
}

// NewSet creates unbound modules sharing client and opts.
func NewSet(client remote.Client, opts Options) *Set {
	return &Set{
		Habits:      NewHabits(client, opts),
		Journal:     NewJournal(client, opts),
		Goals:       NewGoals(client, opts),
		Calendar:    NewCalendar(client, opts),
		Identity:    NewIdentity(client, opts),
		LifeWheel:   NewLifeWheel(client, opts),
		Kanban:      NewKanban(client, opts),
		Notes:       NewNotes(client, opts),
		Tables:      NewTables(client, opts),
		VisionBoard: NewVisionBoard(client, opts),
	}
}

// Modules returns every module.
func (s *Set) Modules() []Module {
	return []Module{
		s.Habits, s.Journal, s.Goals, s.Calendar, s.Identity,
		s.LifeWheel, s.Kanban, s.Notes, s.Tables, s.VisionBoard,
	}
}

// Module looks a module up by feature name.
func (s *Set) Module(feature string) (Module, bool) {
	for _, m := range s.Modules() {
		if m.Feature() == feature {
			return m, true
		}
	}
	return nil, false
}

// Names lists the feature names in display order.
func Names() []string {
	return []string{
		FeatureHabits, FeatureJournal, FeatureGoals, FeatureCalendar, FeatureIdentity,
		FeatureLifeWheel, FeatureKanban, FeatureNotes, FeatureTables, FeatureVisionBoard,
	}
}
