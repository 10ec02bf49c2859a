// ABOUTME: Calendar planner: hour-block tasks stored in one document per viewed month
// ABOUTME: Navigating months rebinds the store to the new month's document

package features

import (
	"context"
	"encoding/json"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// FeatureCalendar names the calendar.
const FeatureCalendar = "calendar"

// CalendarColors is the task palette. The first entry is the default.
var CalendarColors = []string{
	"#1E3A8A", "#065F46", "#7B341E", "#701A75", "#450A0A", "#374151", "#0F172A", "#422006",
}

// CalendarTask is one block on the day planner.
type CalendarTask struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	StartHour int    `json:"startHour"`
	Duration  int    `json:"duration"`
	Date      string `json:"date"`
	Color     string `json:"color"`
	Visible   bool   `json:"visible"`
}

// CalendarState is one month's stored document.
type CalendarState struct {
	Tasks map[string][]CalendarTask `json:"tasks"`
}

// MonthKey returns the period key for the month containing t. Months are
// zero-based, so June 2024 is "2024-5".
func MonthKey(t time.Time) string {
	return PeriodKey(t.Year(), t.Month())
}

// PeriodKey is MonthKey for an explicit year and month.
func PeriodKey(year int, month time.Month) string {
	return fmt.Sprintf("%d-%d", year, int(month)-1)
}

// ParsePeriod is the inverse of PeriodKey.
func ParsePeriod(key string) (int, time.Month, error) {
	y, m, ok := strings.Cut(key, "-")
	if !ok {
		return 0, 0, fmt.Errorf("%w: period %q", ErrInvalidArgument, key)
	}
	year, err := strconv.Atoi(y)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: period %q", ErrInvalidArgument, key)
	}
	month, err := strconv.Atoi(m)
	if err != nil || month < 0 || month > 11 {
		return 0, 0, fmt.Errorf("%w: period %q", ErrInvalidArgument, key)
	}
	return year, time.Month(month + 1), nil
}

// MonthGrid returns the cells of a month view starting on Sunday. Leading
// blanks before the first day are zero.
func MonthGrid(year int, month time.Month) []int {
	lead := int(time.Date(year, month, 1, 0, 0, 0, 0, time.UTC).Weekday())
	n := DaysIn(year, month)
	cells := make([]int, lead, lead+n)
	for d := 1; d <= n; d++ {
		cells = append(cells, d)
	}
	return cells
}

// CalendarConfig returns the store configuration for the calendar.
func CalendarConfig() synced.Config[CalendarState] {
	return synced.Config[CalendarState]{
		Feature: FeatureCalendar,
		HandleFor: func(s synced.Scope) remote.Handle {
			return remote.NewHandle("users", s.UserID, "calendar", s.Period)
		},
		Default: func() CalendarState { return CalendarState{Tasks: map[string][]CalendarTask{}} },
		Backfill: func(s *CalendarState) {
			if s.Tasks == nil {
				s.Tasks = map[string][]CalendarTask{}
			}
		},
		Live: true,
	}
}

// Calendar is the calendar module.
type Calendar struct {
	*synced.Store[CalendarState]
	opts Options
}

var _ Module = (*Calendar)(nil)

// NewCalendar creates an unbound calendar.
func NewCalendar(client remote.Client, opts Options) *Calendar {
	return &Calendar{Store: synced.New(client, configure(opts, CalendarConfig())), opts: opts}
}

// Bind binds the calendar, defaulting an empty period to the current month.
func (c *Calendar) Bind(ctx context.Context, scope synced.Scope) error {
	if scope.Period == "" {
		scope.Period = MonthKey(c.opts.now())
	}
	if _, _, err := ParsePeriod(scope.Period); err != nil {
		return err
	}
	return c.Store.Bind(ctx, scope)
}

// Month returns the month currently bound.
func (c *Calendar) Month() (int, time.Month) {
	year, month, err := ParsePeriod(c.Scope().Period)
	if err != nil {
		now := c.opts.now()
		return now.Year(), now.Month()
	}
	return year, month
}

// SetMonth saves pending edits and switches to another month.
func (c *Calendar) SetMonth(ctx context.Context, year int, month time.Month) error {
	if err := c.Flush(ctx); err != nil {
		c.opts.logger().Warn("flush before month change failed", "error", err)
	}
	scope := c.Scope()
	scope.Period = PeriodKey(year, month)
	return c.Bind(ctx, scope)
}

// Navigate moves delta months from the current one.
func (c *Calendar) Navigate(ctx context.Context, delta int) error {
	year, month := c.Month()
	t := time.Date(year, month+time.Month(delta), 1, 0, 0, 0, 0, time.UTC)
	return c.SetMonth(ctx, t.Year(), t.Month())
}

// TaskInput holds the fields of a new task.
type TaskInput struct {
	Date      string `json:"date"`
	Title     string `json:"title"`
	StartHour int    `json:"startHour"`
	Duration  int    `json:"duration"`
	Color     string `json:"color"`
}

// AddTask schedules a task and returns its id.
func (c *Calendar) AddTask(in TaskInput) (string, error) {
	title, err := requireName(in.Title)
	if err != nil {
		return "", err
	}
	if err := checkDate(in.Date); err != nil {
		return "", err
	}
	if in.StartHour < 0 || in.StartHour > 23 {
		return "", fmt.Errorf("%w: start hour %d", ErrInvalidArgument, in.StartHour)
	}
	if in.Duration < 1 {
		return "", fmt.Errorf("%w: duration %d", ErrInvalidArgument, in.Duration)
	}
	if in.Color == "" {
		in.Color = CalendarColors[0]
	}
	task := CalendarTask{
		ID:        newID(),
		Title:     title,
		StartHour: in.StartHour,
		Duration:  in.Duration,
		Date:      in.Date,
		Color:     in.Color,
		Visible:   true,
	}
	err = c.Mutate(func(s CalendarState) CalendarState {
		tasks := maps.Clone(s.Tasks)
		if tasks == nil {
			tasks = map[string][]CalendarTask{}
		}
		tasks[in.Date] = appended(tasks[in.Date], task)
		s.Tasks = tasks
		return s
	})
	return task.ID, err
}

// DeleteTask removes a task from a day.
func (c *Calendar) DeleteTask(date, id string) error {
	return c.editDay(date, func(day []CalendarTask) ([]CalendarTask, error) {
		return remove(day, calendarTaskID, id, "task")
	})
}

// ToggleVisibility shows or hides a task on the planner.
func (c *Calendar) ToggleVisibility(date, id string) error {
	return c.editDay(date, func(day []CalendarTask) ([]CalendarTask, error) {
		return update(day, calendarTaskID, id, "task", func(t CalendarTask) (CalendarTask, error) {
			t.Visible = !t.Visible
			return t, nil
		})
	})
}

// TasksFor returns every task on date.
func (c *Calendar) TasksFor(date string) []CalendarTask {
	return c.Value().Tasks[date]
}

// VisibleTasksFor returns the visible tasks on date.
func (c *Calendar) VisibleTasksFor(date string) []CalendarTask {
	var out []CalendarTask
	for _, t := range c.TasksFor(date) {
		if t.Visible {
			out = append(out, t)
		}
	}
	return out
}

func (c *Calendar) editDay(date string, fn func([]CalendarTask) ([]CalendarTask, error)) error {
	return c.TryMutate(func(s CalendarState) (CalendarState, error) {
		day, err := fn(s.Tasks[date])
		if err != nil {
			return s, err
		}
		tasks := maps.Clone(s.Tasks)
		tasks[date] = day
		s.Tasks = tasks
		return s, nil
	})
}

func calendarTaskID(t CalendarTask) string { return t.ID }

// State implements Module.
func (c *Calendar) State() any {
	year, month := c.Month()
	return struct {
		Year  int `json:"year"`
		Month int `json:"month"`
		CalendarState
	}{year, int(month), c.Value()}
}

// Apply implements Module.
func (c *Calendar) Apply(name string, args json.RawMessage) (any, error) {
	type dated struct{ Date, ID string }
	return dispatch(map[string]opFunc{
		"addTask":          op(func(a TaskInput) (any, error) { return created(c.AddTask(a)) }),
		"deleteTask":       op(func(a dated) (any, error) { return done(c.DeleteTask(a.Date, a.ID)) }),
		"toggleVisibility": op(func(a dated) (any, error) { return done(c.ToggleVisibility(a.Date, a.ID)) }),
	}, name, args)
}
