package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"taskflow/internal/client"
	"taskflow/internal/model"
	"taskflow/internal/workspace"

	"github.com/spf13/cobra"
)

func prompt(label string) (string, error) {
	fmt.Fprint(os.Stderr, label+": ")
	line, err := bufio.NewReader(os.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func newLoginCmd(app *App) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and remember the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if email == "" {
				if email, err = prompt("email"); err != nil {
					return err
				}
			}
			if password == "" {
				if password = os.Getenv("TASKFLOW_PASSWORD"); password == "" {
					if password, err = prompt("password"); err != nil {
						return err
					}
				}
			}
			s, err := client.Login(cmd.Context(), app.state.Server, email, password)
			if err != nil {
				return err
			}
			app.sess = s
			app.state.Token = s.Token()
			fmt.Fprintf(app.Out, "signed in as %s\n", s.User().DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "password (or TASKFLOW_PASSWORD)")
	return cmd
}

func newRegisterCmd(app *App) *cobra.Command {
	var req model.RegisterRequest
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.Password == "" {
				req.Password = os.Getenv("TASKFLOW_PASSWORD")
			}
			s, err := client.Register(cmd.Context(), app.state.Server, req)
			if err != nil {
				return err
			}
			app.sess = s
			app.state.Token = s.Token()
			fmt.Fprintf(app.Out, "welcome, %s\n", s.User().DisplayName)
			return nil
		},
	}
	cmd.Flags().StringVar(&req.Email, "email", "", "account email")
	cmd.Flags().StringVar(&req.Password, "password", "", "password (or TASKFLOW_PASSWORD)")
	cmd.Flags().StringVar(&req.DisplayName, "name", "", "display name")
	cmd.Flags().StringVar(&req.FullName, "full-name", "", "full name")
	cmd.MarkFlagRequired("email")
	cmd.MarkFlagRequired("name")
	return cmd
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the session",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err == nil {
				err = s.Logout(cmd.Context())
			}
			app.sess = nil
			app.state.Token = ""
			app.state.Path = ""
			if err != nil {
				fmt.Fprintf(app.Out, "signed out locally (%v)\n", err)
				return nil
			}
			fmt.Fprintln(app.Out, "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			u := s.User()
			role := ""
			if u.IsSuperAdmin {
				role = " (super-admin)"
			}
			fmt.Fprintf(app.Out, "%s <%s>%s on %s\n", u.DisplayName, u.Email, role, app.state.Server)
			return nil
		},
	}
}

func newPrefsCmd(app *App) *cobra.Command {
	var theme, defaultView string
	var monday bool
	cmd := &cobra.Command{
		Use:   "prefs",
		Short: "Show or change your preferences",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			p, err := s.GetPreferences(cmd.Context())
			if err != nil {
				return err
			}
			fl := cmd.Flags()
			if fl.Changed("theme") || fl.Changed("default-view") || fl.Changed("monday") {
				if fl.Changed("theme") {
					p.Theme = theme
				}
				if fl.Changed("default-view") {
					if _, ok := workspace.ViewForSegment(defaultView); !ok {
						return fmt.Errorf("unknown view %q", defaultView)
					}
					p.DefaultView = defaultView
				}
				if fl.Changed("monday") {
					p.WeekStartsMonday = monday
				}
				if p, err = s.SavePreferences(cmd.Context(), *p); err != nil {
					return err
				}
			}
			fmt.Fprintf(app.Out, "theme %s, default view %s, weeks start on %s\n",
				p.Theme, p.DefaultView, map[bool]string{true: "Monday", false: "Sunday"}[p.WeekStartsMonday])
			return nil
		},
	}
	cmd.Flags().StringVar(&theme, "theme", "", "light, dark or system")
	cmd.Flags().StringVar(&defaultView, "default-view", "", "view opened by use: board, list, calendar, gantt, ...")
	cmd.Flags().BoolVar(&monday, "monday", false, "weeks start on Monday")
	return cmd
}
