// ABOUTME: Feature commands: habits and the kanban board, driven through the sync core
// ABOUTME: Each invocation binds the feature over HTTP, applies one change and flushes it

package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/issambenlahbib/levelupmy-life/internal/features"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// withFeature binds a fresh module for the signed-in user, runs fn and
// flushes whatever fn changed before tearing the module down.
func withFeature[M features.Module](cmd *cobra.Command, o *RootOptions, newModule func(remote.Client, features.Options) M, fn func(M) error) error {
	cfg, client, err := o.documents()
	if err != nil {
		return err
	}
	m := newModule(client, features.Options{
		DebounceWindow: time.Second,
		Logger:         slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn})),
	})
	defer m.Teardown()

	ctx := cmd.Context()
	if err := m.Bind(ctx, synced.Scope{UserID: cfg.UserID}); err != nil {
		return explain(err)
	}
	if err := fn(m); err != nil {
		return err
	}
	return explain(m.Flush(ctx))
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printCreated(w io.Writer, kind, id string) {
	color.New(color.FgGreen).Fprintf(w, "✓ Added %s %s\n", kind, id)
}

func printDone(w io.Writer, msg string) {
	color.New(color.FgGreen).Fprintf(w, "✓ %s\n", msg)
}

// NewHabitsCommand creates the habits command group.
func NewHabitsCommand(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "habits",
		Short: "Track daily habits",
	}

	run := func(fn func(cmd *cobra.Command, h *features.Habits) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, _ []string) error {
			return withFeature(cmd, o, features.NewHabits, func(h *features.Habits) error { return fn(cmd, h) })
		}
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List habits with the last seven days",
		Args:  cobra.NoArgs,
		RunE: run(func(cmd *cobra.Command, h *features.Habits) error {
			if o.Format == "json" {
				return printJSON(cmd.OutOrStdout(), h.Value())
			}
			printHabits(cmd.OutOrStdout(), h.Value(), time.Now())
			return nil
		}),
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "add <name>",
		Short: "Start tracking a habit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(cmd *cobra.Command, h *features.Habits) error {
				id, err := h.Add(strings.Join(args, " "))
				if err != nil {
					return err
				}
				printCreated(cmd.OutOrStdout(), "habit", id)
				return nil
			})(cmd, args)
		},
	})

	var date string
	toggle := &cobra.Command{
		Use:   "toggle <id>",
		Short: "Mark a habit done or not done for a day",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			day, err := dayKeyFor(date, time.Now())
			if err != nil {
				return err
			}
			return run(func(cmd *cobra.Command, h *features.Habits) error {
				if err := h.Toggle(args[0], day); err != nil {
					return err
				}
				printDone(cmd.OutOrStdout(), "Toggled "+day)
				return nil
			})(cmd, args)
		},
	}
	toggle.Flags().StringVar(&date, "date", "", "day as YYYY-MM-DD (default today)")
	cmd.AddCommand(toggle)

	cmd.AddCommand(&cobra.Command{
		Use:   "delete <id>",
		Short: "Stop tracking a habit",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(func(cmd *cobra.Command, h *features.Habits) error {
				if err := h.Delete(args[0]); err != nil {
					return err
				}
				printDone(cmd.OutOrStdout(), "Deleted habit "+args[0])
				return nil
			})(cmd, args)
		},
	})

	return cmd
}

// dayKeyFor converts a YYYY-MM-DD date, or today when empty, to a
// completion key.
func dayKeyFor(date string, now time.Time) (string, error) {
	t := now
	if date != "" {
		var err error
		t, err = time.Parse(features.DateLayout, date)
		if err != nil {
			return "", fmt.Errorf("invalid --date %q: want YYYY-MM-DD", date)
		}
	}
	return features.DayKey(t.Year(), t.Month(), t.Day()), nil
}

func printHabits(w io.Writer, s features.HabitsState, now time.Time) {
	if len(s.Habits) == 0 {
		fmt.Fprintln(w, "No habits yet. Add one with `levelup habits add <name>`.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprint(tw, "ID\tNAME")
	for i := 6; i >= 0; i-- {
		fmt.Fprintf(tw, "\t%s", now.AddDate(0, 0, -i).Format("Mon")[:2])
	}
	fmt.Fprintln(tw)
	for _, h := range s.Habits {
		fmt.Fprintf(tw, "%s\t%s", h.ID, h.Name)
		for i := 6; i >= 0; i-- {
			d := now.AddDate(0, 0, -i)
			mark := "·"
			if h.Completions[features.DayKey(d.Year(), d.Month(), d.Day())] {
				mark = "✓"
			}
			fmt.Fprintf(tw, "\t%s", mark)
		}
		fmt.Fprintln(tw)
	}
	_ = tw.Flush()
}

// NewKanbanCommand creates the kanban command group.
func NewKanbanCommand(o *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "kanban",
		Short: "Manage the kanban board",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "Show the board by column",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeature(cmd, o, features.NewKanban, func(k *features.Kanban) error {
				if o.Format == "json" {
					return printJSON(cmd.OutOrStdout(), k.Value())
				}
				printBoard(cmd.OutOrStdout(), k)
				return nil
			})
		},
	})

	var description string
	add := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a task to the todo column",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withFeature(cmd, o, features.NewKanban, func(k *features.Kanban) error {
				id, err := k.Add(features.KanbanInput{Title: strings.Join(args, " "), Description: description})
				if err != nil {
					return err
				}
				printCreated(cmd.OutOrStdout(), "task", id)
				return nil
			})
		},
	}
	add.Flags().StringVar(&description, "description", "", "task description")
	cmd.AddCommand(add)

	cmd.AddCommand(&cobra.Command{
		Use:   "move <id> <todo|inprogress|completed>",
		Short: "Move a task to another column",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			status := features.TaskStatus(args[1])
			if !status.Valid() {
				return fmt.Errorf("unknown column %q: want todo, inprogress or completed", args[1])
			}
			return withFeature(cmd, o, features.NewKanban, func(k *features.Kanban) error {
				if err := k.Move(args[0], status); err != nil {
					return err
				}
				printDone(cmd.OutOrStdout(), fmt.Sprintf("Moved %s to %s", args[0], status))
				return nil
			})
		},
	})

	return cmd
}

func printBoard(w io.Writer, k *features.Kanban) {
	columns := []struct {
		status features.TaskStatus
		title  string
		color  *color.Color
	}{
		{features.StatusTodo, "TODO", color.New(color.FgYellow)},
		{features.StatusInProgress, "IN PROGRESS", color.New(color.FgCyan)},
		{features.StatusCompleted, "COMPLETED", color.New(color.FgGreen)},
	}
	for _, col := range columns {
		tasks := k.Column(col.status)
		col.color.Fprintf(w, "%s (%d)\n", col.title, len(tasks))
		for _, t := range tasks {
			fmt.Fprintf(w, "  %s  %s\n", t.ID, t.Title)
		}
	}
}
