package cli

import (
	"errors"
	"fmt"
	"strings"

	"taskflow/internal/model"
	"taskflow/internal/view"
	"taskflow/internal/workspace"

	"github.com/spf13/cobra"
)

func newSpacesCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "spaces",
		Short: "List your spaces",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			st := ctl.State()
			Spaces(app.Out, st.Spaces, st.Route.SpaceID)
			return nil
		},
	}

	var req model.CreateSpaceRequest
	create := &cobra.Command{
		Use:   "create NAME",
		Short: "Create a space and switch to it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			req.Name = args[0]
			sp, err := ctl.CreateSpace(cmd.Context(), req)
			if err != nil {
				return app.report(ctl, err)
			}
			app.state.Path = workspace.Route{SpaceID: sp.ID, View: workspace.ViewBoard}.Path(ctl.State().Spaces)
			fmt.Fprintf(app.Out, "created %s, join code %s\n", sp.Name, sp.JoinCode)
			return app.report(ctl, nil)
		},
	}
	create.Flags().StringVar(&req.Description, "description", "", "space description")
	create.Flags().StringVar(&req.Theme, "theme", "", "space theme")

	leave := &cobra.Command{
		Use:   "leave SPACE",
		Short: "Leave a space",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			r := workspace.ParseRoute("/"+args[0], ctl.State().Spaces)
			if r.SpaceID == 0 {
				return fmt.Errorf("unknown space %q", args[0])
			}
			if err := app.sess.LeaveSpace(cmd.Context(), r.SpaceID); err != nil {
				return err
			}
			if ctl.State().Route.SpaceID == r.SpaceID {
				app.state.Path = ""
			}
			fmt.Fprintln(app.Out, "left space")
			return nil
		},
	}
	cmd.AddCommand(create, leave)
	return cmd
}

func newJoinCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "join CODE",
		Short: "Join a space by its code",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			sp, err := ctl.JoinSpace(cmd.Context(), args[0])
			if errors.Is(err, model.ErrAlreadyMember) {
				return app.report(ctl, nil)
			}
			if err != nil {
				return app.report(ctl, err)
			}
			app.state.Path = workspace.Route{SpaceID: sp.ID, View: workspace.ViewBoard}.Path(ctl.State().Spaces)
			return app.report(ctl, nil)
		},
	}
}

func newUseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "use [SPACE[/VIEW]]",
		Short: "Select the active space by slug or id; no argument returns home",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := app.controller(cmd.Context())
			if err != nil {
				return err
			}
			path := "/"
			if len(args) == 1 {
				path = "/" + args[0]
				if !strings.Contains(args[0], "/") {
					if prefs, err := app.sess.GetPreferences(cmd.Context()); err == nil && prefs.DefaultView != "" {
						path += "/" + prefs.DefaultView
					}
				}
			}
			route, err := ctl.Navigate(cmd.Context(), path)
			if err != nil {
				return app.report(ctl, err)
			}
			if len(args) == 1 && route.SpaceID == 0 {
				if _, isView := workspace.ViewForSegment(strings.Split(args[0], "/")[0]); !isView {
					return fmt.Errorf("unknown space %q", args[0])
				}
			}
			app.state.Path = ctl.Path()
			if sp := ctl.ActiveSpace(); sp != nil {
				fmt.Fprintf(app.Out, "using %s as %s (%s)\n", sp.Name, ctl.Role(sp.ID), app.state.Path)
			} else {
				fmt.Fprintf(app.Out, "at %s\n", app.state.Path)
			}
			return nil
		},
	}
}

func newMembersCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "members",
		Short: "Show the active space's member directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, sp, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			st := ctl.State()
			Members(app.Out, view.Directory(st.Employees, st.Memberships, sp))
			return nil
		},
	}
}
