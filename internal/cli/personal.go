package cli

import (
	"context"
	"fmt"
	"strings"
	"time"

	"taskflow/internal/config"
	"taskflow/internal/model"
	"taskflow/internal/personal"

	"github.com/spf13/cobra"
)

// withDaily opens the daily store, runs fn and drains pending pushes before returning.
func (a *App) withDaily(ctx context.Context, fn func(*personal.DailyTasks) error) error {
	s, err := a.session(ctx)
	if err != nil {
		return err
	}
	d := personal.NewDailyTasks(s, a.cache(), fmt.Sprintf("daily-%d", s.User().ID))
	var syncErr error
	d.OnError = func(err error) { syncErr = err }
	if err := d.Load(ctx); err != nil {
		fmt.Fprintf(a.Out, "! offline, showing cached list: %v\n", err)
	}
	runErr := fn(d)
	closeErr := d.Close()
	if runErr != nil {
		return runErr
	}
	if closeErr != nil {
		return closeErr
	}
	return syncErr
}

func newDailyCmd(app *App) *cobra.Command {
	show := func(cmd *cobra.Command, args []string) error {
		return app.withDaily(cmd.Context(), func(d *personal.DailyTasks) error {
			Daily(app.Out, d.Items())
			return nil
		})
	}
	cmd := &cobra.Command{Use: "daily", Short: "Your personal daily list", RunE: show}

	var priority string
	add := &cobra.Command{
		Use:  "add TEXT",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var p model.Priority
			if priority != "" {
				var err error
				if p, err = model.ParsePriority(priority); err != nil {
					return err
				}
			}
			return app.withDaily(cmd.Context(), func(d *personal.DailyTasks) error {
				_, err := d.Add(strings.Join(args, " "), p)
				return err
			})
		},
	}
	add.Flags().StringVarP(&priority, "priority", "p", "", "priority")

	setStatus := func(use string, status model.Status) *cobra.Command {
		return &cobra.Command{
			Use:  use + " ID",
			Args: cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				id, err := parseID(args[0])
				if err != nil {
					return err
				}
				return app.withDaily(cmd.Context(), func(d *personal.DailyTasks) error { return d.SetStatus(id, status) })
			},
		}
	}
	prio := &cobra.Command{
		Use:  "priority ID PRIORITY",
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			p, err := model.ParsePriority(args[1])
			if err != nil {
				return err
			}
			return app.withDaily(cmd.Context(), func(d *personal.DailyTasks) error { return d.SetPriority(id, p) })
		},
	}
	rm := &cobra.Command{
		Use:  "rm ID",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return app.withDaily(cmd.Context(), func(d *personal.DailyTasks) error { return d.Delete(id) })
		},
	}
	cmd.AddCommand(add, setStatus("done", model.StatusDone), setStatus("start", model.StatusInProgress),
		setStatus("reopen", model.StatusTodo), prio, rm)
	return cmd
}

// scratchpadDebounce is the saved --debounce value, or the config default.
func (a *App) scratchpadDebounce() time.Duration {
	if a.state.ScratchpadDebounce > 0 {
		return a.state.ScratchpadDebounce
	}
	return config.Default().Sync.ScratchpadDebounce
}

func newScratchCmd(app *App) *cobra.Command {
	var appendText bool
	var debounce time.Duration
	cmd := &cobra.Command{
		Use:   "scratch [TEXT]",
		Short: "Show or replace your scratchpad",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("debounce") {
				if debounce <= 0 {
					return fmt.Errorf("debounce must be positive, got %s", debounce)
				}
				app.state.ScratchpadDebounce = debounce
			}
			pad := personal.NewScratchpad(s, app.cache(), fmt.Sprintf("scratchpad-%d", s.User().ID), app.scratchpadDebounce())
			if err := pad.Load(cmd.Context()); err != nil {
				fmt.Fprintf(app.Out, "! offline, showing cached note: %v\n", err)
			}
			if len(args) == 0 {
				fmt.Fprintln(app.Out, pad.Text())
				return nil
			}
			text := strings.Join(args, " ")
			if appendText && pad.Text() != "" {
				text = pad.Text() + "\n" + text
			}
			if err := pad.Set(text); err != nil {
				return err
			}
			return pad.Close()
		},
	}
	cmd.Flags().BoolVarP(&appendText, "append", "a", false, "append a line instead of replacing")
	cmd.Flags().DurationVar(&debounce, "debounce", 0, "quiet period before a save is pushed; remembered for later runs")
	return cmd
}
