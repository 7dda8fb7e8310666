package cli

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"taskflow/internal/model"

	"github.com/spf13/cobra"
)

func newNotificationsCmd(app *App) *cobra.Command {
	var watch, unread bool
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"inbox"},
		Short:   "List notifications, or follow new ones with --watch",
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			if watch {
				ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer stop()
				fmt.Fprintln(app.Out, "watching, ctrl-c to stop")
				return s.WatchNotifications(ctx, func(n model.Notification) { Notification(app.Out, n) })
			}
			list, err := s.Notifications(cmd.Context(), unread)
			if err != nil {
				return err
			}
			for _, n := range list {
				Notification(app.Out, n)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "stream new notifications")
	cmd.Flags().BoolVar(&unread, "unread", false, "only unread")

	cmd.AddCommand(&cobra.Command{
		Use:   "read ID",
		Short: "Mark a notification read",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			s, err := app.session(cmd.Context())
			if err != nil {
				return err
			}
			return s.MarkRead(cmd.Context(), id)
		},
	})
	return cmd
}

func newAICmd(app *App) *cobra.Command {
	cmd := &cobra.Command{Use: "ai", Short: "AI helpers"}

	var create bool
	generate := &cobra.Command{
		Use:   "generate GOAL",
		Short: "Break a goal into tasks, optionally creating them in the active space",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := model.GenerateTasksRequest{Prompt: strings.Join(args, " "), Create: create}
			if create {
				_, sp, err := app.activeSpace(cmd.Context())
				if err != nil {
					return err
				}
				req.SpaceID = sp.ID
			} else if _, err := app.session(cmd.Context()); err != nil {
				return err
			}
			resp, err := app.sess.GenerateTasks(cmd.Context(), req)
			if err != nil {
				return err
			}
			for _, d := range resp.Drafts {
				fmt.Fprintf(app.Out, "- %s [%s] due in %dd\n", d.Title, d.Priority, d.DueInDays)
				for _, s := range d.Subtasks {
					fmt.Fprintf(app.Out, "    · %s\n", s)
				}
			}
			if len(resp.Created) > 0 {
				fmt.Fprintf(app.Out, "created %d tasks\n", len(resp.Created))
			}
			return nil
		},
	}
	generate.Flags().BoolVar(&create, "create", false, "create the tasks in the active space")

	summarize := &cobra.Command{
		Use:   "summarize",
		Short: "Summarize the active space",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, sp, err := app.activeSpace(cmd.Context())
			if err != nil {
				return err
			}
			text, err := app.sess.Summarize(cmd.Context(), sp.ID)
			if err != nil {
				return err
			}
			fmt.Fprintln(app.Out, text)
			return nil
		},
	}
	cmd.AddCommand(generate, summarize)
	return cmd
}
