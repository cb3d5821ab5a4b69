package cli

import (
	"github.com/dukerupert/listkeep/internal/tui"
	"github.com/dukerupert/listkeep/internal/viewstate"
	"github.com/spf13/cobra"
)

func newWatchCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Live, interactive todo list",
		Long: `watch opens a full-screen todo list that updates as soon as anything
changes on the server, including edits from other devices.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, creds, err := app.session()
			if err != nil {
				return err
			}
			list := viewstate.NewTodoList(client.Todos(), app.Logger)
			defer list.Close()
			return tui.Run(list, creds.User.ID)
		},
	}
}
