// ABOUTME: Wheel of life: eight scored life areas with notes and a checklist each
// ABOUTME: Also holds the pure geometry used to draw the wheel

package features

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureLifeWheel names the wheel of life.
const FeatureLifeWheel = "lifewheel"

// Score bounds and the value ResetScores restores.
const (
	MinScore     = 1
	MaxScore     = 10
	DefaultScore = 5
)

// LifeWheelColors is the area palette.
var LifeWheelColors = []string{
	"#8B0000", "#000080", "#006400", "#8B4513", "#4B0082", "#2F4F4F",
	"#800080", "#B8860B", "#556B2F", "#8B008B", "#483D8B", "#2E8B57",
	"#A0522D", "#191970", "#800000", "#008B8B", "#9932CC", "#8FBC8F",
	"#CD853F", "#4682B4", "#D2691E", "#708090",
}

// ChecklistItem is one action item under a life area.
type ChecklistItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// AreaDetails holds an area's notes and checklist.
type AreaDetails struct {
	Notes     string          `json:"notes"`
	Checklist []ChecklistItem `json:"checklist"`
}

// LifeArea is one slice of the wheel.
type LifeArea struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	Score   int          `json:"score"`
	Color   string       `json:"color"`
	Details *AreaDetails `json:"details"`
}

// LifeWheelState is the stored wheel document.
type LifeWheelState struct {
	Areas []LifeArea `json:"areas"`
}

// DefaultLifeAreas returns the starting eight areas.
func DefaultLifeAreas() []LifeArea {
	seed := []struct{ id, name string }{
		{"career", "Career & Work"},
		{"finance", "Finance"},
		{"health", "Health & Fitness"},
		{"family", "Family & Relationships"},
		{"social", "Social Life"},
		{"personal", "Personal Growth"},
		{"fun", "Fun & Recreation"},
		{"environment", "Physical Environment"},
	}
	areas := make([]LifeArea, len(seed))
	for i, s := range seed {
		areas[i] = LifeArea{
			ID:      s.id,
			Name:    s.name,
			Score:   DefaultScore,
			Color:   LifeWheelColors[i],
			Details: &AreaDetails{Checklist: []ChecklistItem{}},
		}
	}
	return areas
}

// LifeWheelConfig returns the store configuration for the wheel.
func LifeWheelConfig() synced.Config[LifeWheelState] {
	return synced.Config[LifeWheelState]{
		Feature:   FeatureLifeWheel,
		HandleFor: userDoc("lifeWheel"),
		Default:   func() LifeWheelState { return LifeWheelState{Areas: DefaultLifeAreas()} },
		Backfill: func(s *LifeWheelState) {
			if s.Areas == nil {
				s.Areas = DefaultLifeAreas()
			}
			for i := range s.Areas {
				if s.Areas[i].Details == nil {
					s.Areas[i].Details = &AreaDetails{}
				}
				s.Areas[i].Details.Checklist = orEmpty(s.Areas[i].Details.Checklist)
			}
		},
	}
}

// LifeWheel is the wheel of life module.
type LifeWheel struct {
	*synced.Store[LifeWheelState]
}

var _ Module = (*LifeWheel)(nil)

// NewLifeWheel creates an unbound wheel.
func NewLifeWheel(client remote.Client, opts Options) *LifeWheel {
	return &LifeWheel{Store: synced.New(client, configure(opts, LifeWheelConfig()))}
}

// SetScore sets an area's score.
func (w *LifeWheel) SetScore(id string, score int) error {
	if score < MinScore || score > MaxScore {
		return fmt.Errorf("%w: score %d outside %d-%d", ErrInvalidArgument, score, MinScore, MaxScore)
	}
	return w.edit(id, func(a LifeArea) (LifeArea, error) {
		a.Score = score
		return a, nil
	})
}

// SetColor sets an area's color.
func (w *LifeWheel) SetColor(id, color string) error {
	if color == "" {
		return fmt.Errorf("%w: empty color", ErrInvalidArgument)
	}
	return w.edit(id, func(a LifeArea) (LifeArea, error) {
		a.Color = color
		return a, nil
	})
}

// SetNotes replaces an area's notes.
func (w *LifeWheel) SetNotes(id, notes string) error {
	return w.editDetails(id, func(d AreaDetails) (AreaDetails, error) {
		d.Notes = notes
		return d, nil
	})
}

// AddChecklistItem adds an action item to an area and returns its id.
func (w *LifeWheel) AddChecklistItem(areaID, text string) (string, error) {
	text, err := requireName(text)
	if err != nil {
		return "", err
	}
	id := newID()
	err = w.editDetails(areaID, func(d AreaDetails) (AreaDetails, error) {
		d.Checklist = appended(d.Checklist, ChecklistItem{ID: id, Text: text})
		return d, nil
	})
	return id, err
}

// ToggleChecklistItem flips an action item.
func (w *LifeWheel) ToggleChecklistItem(areaID, itemID string) error {
	return w.editDetails(areaID, func(d AreaDetails) (AreaDetails, error) {
		list, err := update(d.Checklist, checklistID, itemID, "checklist item", func(c ChecklistItem) (ChecklistItem, error) {
			c.Completed = !c.Completed
			return c, nil
		})
		d.Checklist = list
		return d, err
	})
}

// DeleteChecklistItem removes an action item.
func (w *LifeWheel) DeleteChecklistItem(areaID, itemID string) error {
	return w.editDetails(areaID, func(d AreaDetails) (AreaDetails, error) {
		list, err := remove(d.Checklist, checklistID, itemID, "checklist item")
		d.Checklist = list
		return d, err
	})
}

// ResetScores puts every area back to the default score.
func (w *LifeWheel) ResetScores() error {
	return w.Mutate(func(s LifeWheelState) LifeWheelState {
		areas := make([]LifeArea, len(s.Areas))
		for i, a := range s.Areas {
			a.Score = DefaultScore
			areas[i] = a
		}
		s.Areas = areas
		return s
	})
}

func (w *LifeWheel) edit(id string, fn func(LifeArea) (LifeArea, error)) error {
	return w.TryMutate(func(s LifeWheelState) (LifeWheelState, error) {
		areas, err := update(s.Areas, lifeAreaID, id, "life area", fn)
		if err != nil {
			return s, err
		}
		s.Areas = areas
		return s, nil
	})
}

func (w *LifeWheel) editDetails(id string, fn func(AreaDetails) (AreaDetails, error)) error {
	return w.edit(id, func(a LifeArea) (LifeArea, error) {
		var d AreaDetails
		if a.Details != nil {
			d = *a.Details
		}
		d, err := fn(d)
		if err != nil {
			return a, err
		}
		d.Checklist = orEmpty(d.Checklist)
		a.Details = &d
		return a, nil
	})
}

func lifeAreaID(a LifeArea) string     { return a.ID }
func checklistID(c ChecklistItem) string { return c.ID }

// State implements Module.
func (w *LifeWheel) State() any { return w.Value() }

// Apply implements Module.
func (w *LifeWheel) Apply(name string, args json.RawMessage) (any, error) {
	type arg struct {
		ID     string `json:"id"`
		ItemID string `json:"itemId"`
		Score  int    `json:"score"`
		Color  string `json:"color"`
		Text   string `json:"text"`
	}
	return dispatch(map[string]opFunc{
		"setScore": op(func(a arg) (any, error) { return done(w.SetScore(a.ID, a.Score)) }),
		"setColor": op(func(a arg) (any, error) { return done(w.SetColor(a.ID, a.Color)) }),
		"setNotes": op(func(a arg) (any, error) { return done(w.SetNotes(a.ID, a.Text)) }),
		"addChecklistItem": op(func(a arg) (any, error) {
			return created(w.AddChecklistItem(a.ID, a.Text))
		}),
		"toggleChecklistItem": op(func(a arg) (any, error) {
			return done(w.ToggleChecklistItem(a.ID, a.ItemID))
		}),
		"deleteChecklistItem": op(func(a arg) (any, error) {
			return done(w.DeleteChecklistItem(a.ID, a.ItemID))
		}),
		"resetScores": op(func(struct{}) (any, error) { return done(w.ResetScores()) }),
	}, name, args)
}

// Wheel drawing constants, in SVG user units.
const (
	WheelCenter      = 300.0
	WheelInnerRadius = 50.0
	WheelOuterRadius = 250.0
	WheelLabelRadius = 280.0
)

// SegmentRadius is the outer radius of an area drawn with score.
func SegmentRadius(score int) float64 {
	return WheelInnerRadius + float64(score)/MaxScore*(WheelOuterRadius-WheelInnerRadius)
}

func segmentAngles(index, count int) (start, end, step float64) {
	step = 2 * math.Pi / float64(count)
	start = float64(index)*step - math.Pi/2
	return start, start + step, step
}

// WheelSegmentPath returns the SVG path of area index out of count.
func WheelSegmentPath(score, index, count int) string {
	r := SegmentRadius(score)
	start, end, step := segmentAngles(index, count)
	large := 0
	if step > math.Pi {
		large = 1
	}
	pt := func(radius, angle float64) string {
		return num(WheelCenter+radius*math.Cos(angle)) + " " + num(WheelCenter+radius*math.Sin(angle))
	}
	return fmt.Sprintf("M %s L %s A %s %s 0 %d 1 %s L %s A %s %s 0 %d 0 %s Z",
		pt(WheelInnerRadius, start), pt(r, start),
		num(r), num(r), large, pt(r, end),
		pt(WheelInnerRadius, end),
		num(WheelInnerRadius), num(WheelInnerRadius), large, pt(WheelInnerRadius, start))
}

// LabelPosition returns where area index's label sits and its angle in radians.
func LabelPosition(index, count int) (x, y, angle float64) {
	start, _, step := segmentAngles(index, count)
	angle = start + step/2
	return WheelCenter + WheelLabelRadius*math.Cos(angle), WheelCenter + WheelLabelRadius*math.Sin(angle), angle
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
