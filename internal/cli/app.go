package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"taskflow/internal/client"
	"taskflow/internal/model"
	"taskflow/internal/personal"
	"taskflow/internal/workspace"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

const defaultServer = "http://localhost:9871"

// State is what the CLI remembers between invocations.
type State struct {
	Server string `yaml:"server"`
	Token  string `yaml:"token,omitempty"`
	Path   string `yaml:"path,omitempty"`
	Width  int    `yaml:"width,omitempty"`
	// ScratchpadDebounce overrides the server config default when set.
	ScratchpadDebounce time.Duration `yaml:"scratchpad_debounce,omitempty"`
}

type App struct {
	Home   string
	Server string
	Out    io.Writer

	state State
	sess  *client.Session
}

func NewRootCmd() *cobra.Command {
	app := &App{Out: os.Stdout}

	cmd := &cobra.Command{
		Use:          "taskflow",
		Short:        "TaskFlow command-line client",
		SilenceUsage: true,
		Example: strings.TrimSpace(`
  # Sign in and pick a space
  taskflow login --email ann@example.com
  taskflow use marketing-team

  # Work the board
  taskflow board
  taskflow add "Q3 Report" --priority urgent --due 2025-03-01
  taskflow status 12 done
`),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			app.Out = cmd.OutOrStdout()
			return app.loadState()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if app.sess != nil && app.sess.Token() != "" {
				app.state.Token = app.sess.Token()
			}
			return app.saveState()
		},
	}
	cmd.PersistentFlags().StringVar(&app.Home, "home", os.Getenv("TASKFLOW_HOME"), "client data dir (default: user config dir)")
	cmd.PersistentFlags().StringVar(&app.Server, "server", "", "API base URL (default: last used or "+defaultServer+")")

	cmd.AddCommand(
		newLoginCmd(app), newRegisterCmd(app), newLogoutCmd(app), newWhoamiCmd(app), newPrefsCmd(app),
		newSpacesCmd(app), newJoinCmd(app), newUseCmd(app), newMembersCmd(app),
		newTasksCmd(app), newBoardCmd(app), newCalendarCmd(app), newGanttCmd(app), newOverviewCmd(app),
		newShowCmd(app), newAddCmd(app), newEditCmd(app), newStatusCmd(app), newRmCmd(app),
		newTimerCmd(app), newCommentCmd(app), newStaleCmd(app),
		newDailyCmd(app), newScratchCmd(app),
		newNotificationsCmd(app), newAICmd(app),
	)
	return cmd
}

func (a *App) home() (string, error) {
	if a.Home != "" {
		return a.Home, nil
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "taskflow"), nil
}

func (a *App) statePath() (string, error) {
	home, err := a.home()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, "session.yaml"), nil
}

func (a *App) loadState() error {
	path, err := a.statePath()
	if err != nil {
		return err
	}
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, &a.state); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
	}
	if a.Server != "" {
		a.state.Server = a.Server
	}
	if a.state.Server == "" {
		a.state.Server = defaultServer
	}
	return nil
}

func (a *App) saveState() error {
	path, err := a.statePath()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(a.state)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// session resumes the stored login.
func (a *App) session(ctx context.Context) (*client.Session, error) {
	if a.sess != nil {
		return a.sess, nil
	}
	if a.state.Token == "" {
		return nil, errors.New("not signed in; run taskflow login")
	}
	s, err := client.Resume(ctx, a.state.Server, a.state.Token)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			a.state.Token = ""
			return nil, errors.New("session expired; run taskflow login")
		}
		return nil, err
	}
	a.sess = s
	return s, nil
}

// controller loads the workspace and restores the last route.
func (a *App) controller(ctx context.Context) (*workspace.Controller, error) {
	s, err := a.session(ctx)
	if err != nil {
		return nil, err
	}
	ctl := workspace.New(s, s.User())
	if err := ctl.Init(ctx); err != nil {
		return nil, err
	}
	if a.state.Path != "" {
		if _, err := ctl.Navigate(ctx, a.state.Path); err != nil {
			return nil, err
		}
	}
	return ctl, nil
}

// activeSpace is like controller but fails when no space is selected.
func (a *App) activeSpace(ctx context.Context) (*workspace.Controller, *model.Space, error) {
	ctl, err := a.controller(ctx)
	if err != nil {
		return nil, nil, err
	}
	sp := ctl.ActiveSpace()
	if sp == nil {
		return nil, nil, errors.New("no space selected; run taskflow use <space>")
	}
	return ctl, sp, nil
}

func (a *App) cache() personal.Cache {
	home, err := a.home()
	if err == nil {
		if c, err := personal.NewFileCache(filepath.Join(home, "cache")); err == nil {
			return c
		}
	}
	return personal.NewMemoryCache()
}

func (a *App) width() int {
	if a.state.Width > 0 {
		return a.state.Width
	}
	if cols, err := strconv.Atoi(os.Getenv("COLUMNS")); err == nil && cols > 0 {
		return cols
	}
	return 120
}

// report prints queued toasts and returns err unchanged.
func (a *App) report(ctl *workspace.Controller, err error) error {
	for _, t := range ctl.Toasts() {
		prefix := "!"
		if t.Kind == workspace.ToastInfo {
			prefix = "i"
		}
		fmt.Fprintf(a.Out, "%s %s\n", prefix, t.Message)
	}
	return err
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid id %q", s)
	}
	return id, nil
}

func findTask(tasks []model.Task, id int64) (model.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return model.Task{}, false
}

func today() model.Date { return model.DateOf(time.Now()) }
