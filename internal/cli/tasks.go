package cli

import (
	"fmt"
	"strings"
	"time"

	"taskflow/internal/model"
	"taskflow/internal/view"

	"github.com/spf13/cobra"
)

func newTasksCmd(app *App) *cobra.Command {
	var listID int64
	var all bool
	cmd := &cobra.Command{
		Use:   "tasks",
		Short: "List tasks of the active space grouped by list",
		RunE: func(cmd *cobra.Command, args []string) error {
			if all {
				ctl, err := app.controller(cmd.Context())
				if err != nil {
					return err
				}
				st := ctl.State()
				Tasks(app.Out, st.AllTasks, NamesOf(st.Employees))
				return nil
			}
			ctl, sp, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			var filter *int64
			if listID > 0 {
				filter = &listID
			}
			ctl.SetListFilter(filter)
			st := ctl.State()
			Lists(app.Out, view.Lists(ctl.VisibleTasks(), st.Lists[sp.ID], filter), NamesOf(st.Employees))
			return nil
		},
	}
	cmd.Flags().Int64Var(&listID, "list", 0, "only this list")
	cmd.Flags().BoolVar(&all, "all", false, "tasks across all your spaces")
	return cmd
}

func newBoardCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "board",
		Short: "Show the active space as a board",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			Board(app.Out, view.Board(ctl.VisibleTasks()), NamesOf(ctl.State().Employees), today(), app.width())
			return nil
		},
	}
}

func newCalendarCmd(app *App) *cobra.Command {
	var month string
	var monday bool
	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Show tasks by due date for a month",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("monday") {
				if prefs, err := app.sess.GetPreferences(cmd.Context()); err == nil {
					monday = prefs.WeekStartsMonday
				}
			}
			at := time.Now()
			if month != "" {
				if at, err = time.Parse("2006-01", month); err != nil {
					return fmt.Errorf("month must look like 2025-03: %w", err)
				}
			}
			m := view.Calendar(ctl.VisibleTasks(), at.Year(), at.Month(), monday)
			Calendar(app.Out, m, today(), monday)
			return nil
		},
	}
	cmd.Flags().StringVar(&month, "month", "", "month as YYYY-MM (default: current)")
	cmd.Flags().BoolVar(&monday, "monday", false, "weeks start on Monday (default: your preference)")
	return cmd
}

func newGanttCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "gantt",
		Short: "Show tasks on a timeline from creation to due date",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, _, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			Gantt(app.Out, view.Gantt(ctl.VisibleTasks(), today()), app.width()/2)
			return nil
		},
	}
}

func newOverviewCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "overview",
		Short: "Summarize workload in the active space",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sp, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			s, err := app.sess.GetOverview(cmd.Context(), sp.ID)
			if err != nil {
				return err
			}
			Overview(app.Out, *s)
			return nil
		},
	}
}

func newShowCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show one task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			st := ctl.State()
			t, ok := findTask(st.AllTasks, id)
			if !ok {
				return model.NotFoundError{Kind: "task", ID: args[0]}
			}
			Task(app.Out, t, NamesOf(st.Employees), time.Now())
			return nil
		},
	}
}

// taskFlags binds the editable task fields. Only flags the user set end up in the patch.
type taskFlags struct {
	title, description, due, priority, status string
	assignee, list, blockedBy                 int64
	tags, subtasks                            []string
}

func (f *taskFlags) bind(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.title, "title", "", "title")
	fl.StringVarP(&f.description, "description", "d", "", "description")
	fl.StringVar(&f.due, "due", "", "due date YYYY-MM-DD")
	fl.StringVarP(&f.priority, "priority", "p", "", "low, medium, high or urgent")
	fl.StringVar(&f.status, "status", "", "todo, in_progress or done")
	fl.Int64Var(&f.assignee, "assignee", 0, "assignee user id (0 clears)")
	fl.Int64Var(&f.list, "list", 0, "list id (0 clears)")
	fl.Int64Var(&f.blockedBy, "blocked-by", 0, "blocking task id (0 clears)")
	fl.StringSliceVar(&f.tags, "tag", nil, "tags (repeatable)")
	fl.StringSliceVar(&f.subtasks, "subtask", nil, "subtask titles, replacing existing ones")
}

func optionalID(cmd *cobra.Command, name string, v int64) model.Nullable[int64] {
	if !cmd.Flags().Changed(name) {
		return model.Nullable[int64]{}
	}
	if v == 0 {
		return model.Null[int64]()
	}
	return model.Some(v)
}

func (f *taskFlags) patch(cmd *cobra.Command) (model.TaskPatch, error) {
	var p model.TaskPatch
	changed := cmd.Flags().Changed
	if changed("title") {
		p.Title = &f.title
	}
	if changed("description") {
		p.Description = &f.description
	}
	if changed("due") {
		d, err := model.ParseDate(f.due)
		if err != nil {
			return p, err
		}
		p.DueDate = &d
	}
	if changed("priority") {
		pr, err := model.ParsePriority(f.priority)
		if err != nil {
			return p, err
		}
		p.Priority = &pr
	}
	if changed("status") {
		st, err := model.ParseStatus(f.status)
		if err != nil {
			return p, err
		}
		p.Status = &st
	}
	p.AssigneeID = optionalID(cmd, "assignee", f.assignee)
	p.ListID = optionalID(cmd, "list", f.list)
	p.BlockedByID = optionalID(cmd, "blocked-by", f.blockedBy)
	if changed("tag") {
		p.Tags = &f.tags
	}
	if changed("subtask") {
		subs := make([]model.Subtask, len(f.subtasks))
		for i, s := range f.subtasks {
			subs[i] = model.Subtask{Title: s}
		}
		p.Subtasks = &subs
	}
	return p, nil
}

func newAddCmd(app *App) *cobra.Command {
	var f taskFlags
	cmd := &cobra.Command{
		Use:   "add TITLE",
		Short: "Create a task in the active space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.patch(cmd)
			if err != nil {
				return err
			}
			title := strings.Join(args, " ")
			p.Title = &title
			ctl, _, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			t, err := ctl.CreateTask(cmd.Context(), p)
			if err != nil {
				return app.report(ctl, err)
			}
			fmt.Fprintf(app.Out, "created #%d %s\n", t.ID, t.Title)
			return app.report(ctl, nil)
		},
	}
	f.bind(cmd)
	return cmd
}

func newEditCmd(app *App) *cobra.Command {
	var f taskFlags
	var force bool
	cmd := &cobra.Command{
		Use:   "edit ID",
		Short: "Change fields of a task; unset flags are left alone",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := f.patch(cmd)
			if err != nil {
				return err
			}
			p.ID = &id
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			if !force {
				if t, ok := findTask(ctl.State().AllTasks, id); ok {
					p.Version = &t.Version
				}
			}
			t, err := ctl.UpdateTask(cmd.Context(), p)
			if err != nil {
				return app.report(ctl, err)
			}
			fmt.Fprintf(app.Out, "updated #%d (v%d)\n", t.ID, t.Version)
			return app.report(ctl, nil)
		},
	}
	f.bind(cmd)
	cmd.Flags().BoolVar(&force, "force", false, "skip the concurrent edit check")
	return cmd
}

func newStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status ID STATUS",
		Short: "Move a task to todo, in_progress or done",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := model.ParseStatus(args[1])
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			t, err := ctl.UpdateStatus(cmd.Context(), id, status)
			if err != nil {
				return app.report(ctl, err)
			}
			fmt.Fprintf(app.Out, "#%d is %s\n", t.ID, t.Status.Label())
			return app.report(ctl, nil)
		},
	}
}

func newRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rm ID",
		Short: "Delete a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			if err := ctl.DeleteTask(cmd.Context(), id); err != nil {
				return app.report(ctl, err)
			}
			fmt.Fprintf(app.Out, "deleted #%d\n", id)
			return nil
		},
	}
}

func newTimerCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "timer ID",
		Short: "Start or stop the timer on a task",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			t, err := ctl.ToggleTimer(cmd.Context(), id)
			if err != nil {
				return app.report(ctl, err)
			}
			if t.TimerRunning() {
				fmt.Fprintf(app.Out, "timer started on #%d\n", t.ID)
			} else {
				fmt.Fprintf(app.Out, "timer stopped on #%d, total %s\n", t.ID, t.TotalLogged().Round(time.Second))
			}
			return nil
		},
	}
}

func newCommentCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "comment ID TEXT",
		Short: "Comment on a task",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := ctl.AddComment(cmd.Context(), id, strings.Join(args[1:], " ")); err != nil {
				return app.report(ctl, err)
			}
			fmt.Fprintln(app.Out, "comment added")
			return nil
		},
	}
}

func newStaleCmd(app *App) *cobra.Command {
	var olderThan time.Duration
	var stop bool
	cmd := &cobra.Command{
		Use:   "stale",
		Short: "List running timers older than a threshold",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			stale := ctl.StaleTimers(time.Now(), olderThan)
			if len(stale) == 0 {
				fmt.Fprintln(app.Out, "no stale timers")
				return nil
			}
			for _, t := range stale {
				fmt.Fprintf(app.Out, "#%d %s running since %s\n", t.ID, t.Title, t.TimerStartTime.Local().Format(time.DateTime))
				if stop {
					if _, err := ctl.ToggleTimer(cmd.Context(), t.ID); err != nil {
						return app.report(ctl, err)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 12*time.Hour, "age threshold")
	cmd.Flags().BoolVar(&stop, "stop", false, "stop the stale timers")
	return cmd
}
