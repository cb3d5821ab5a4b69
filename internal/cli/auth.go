package cli

import (
	"fmt"

	"github.com/dukerupert/listkeep/internal/tui"
	"github.com/spf13/cobra"
)

func newLoginCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Sign in through your browser",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			res := app.identity().SignIn(cmd.Context())
			switch {
			case res.Err != nil:
				return res.Err
			case res.Cancelled:
				tui.Muted(app.Out, "sign-in cancelled")
				return nil
			}
			tui.OK(app.Out, fmt.Sprintf("signed in as %s", displayName(res.User.Name, res.User.ID)))
			return nil
		},
	}
}

func newLogoutCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the saved session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := app.identity().SignOut(cmd.Context()); err != nil {
				return fmt.Errorf("sign out: %w", err)
			}
			tui.OK(app.Out, "signed out")
			return nil
		},
	}
}

func newWhoamiCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			u := app.identity().CurrentUser()
			if u == nil {
				tui.Muted(app.Out, "not signed in")
				return nil
			}
			lines := []string{
				"User:   " + displayName(u.Name, u.ID),
				"ID:     " + u.ID,
				"Server: " + app.Config.ServerURL,
			}
			if u.AvatarURL != "" {
				lines = append(lines, "Avatar: "+u.AvatarURL)
			}
			tui.Panel(app.Out, lines)
			return nil
		},
	}
}

func displayName(name, id string) string {
	if name == "" {
		return id
	}
	return name
}
