// Package cli is the lk command tree.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dukerupert/listkeep/internal/config"
	"github.com/dukerupert/listkeep/internal/identity"
	"github.com/dukerupert/listkeep/internal/logging"
	"github.com/dukerupert/listkeep/internal/remote"
	"github.com/dukerupert/listkeep/internal/tui"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

var errNotSignedIn = errors.New("not signed in; run `lk login` first")

// App carries what every command needs. Zero-valued fields fall back to the
// process environment.
type App struct {
	Config *config.ClientConfig
	Out    io.Writer
	Err    io.Writer
	Logger *slog.Logger
	// Prompt shows the sign-in URL to the user.
	Prompt func(loginURL string)
	// Remote configures the server client.
	Remote remote.Options
}

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// NewRootCmd builds the lk command tree around app.
func NewRootCmd(app *App) *cobra.Command {
	if app.Config == nil {
		app.Config = config.LoadClient()
	}
	if app.Out == nil {
		app.Out = os.Stdout
	}
	if app.Err == nil {
		app.Err = os.Stderr
	}
	if app.Prompt == nil {
		app.Prompt = func(u string) {
			fmt.Fprintln(app.Out, "Open this URL in your browser to sign in:")
			fmt.Fprintln(app.Out, "  "+u)
		}
	}

	var verbose bool
	root := &cobra.Command{
		Use:   "lk",
		Short: "listkeep - todos and journal from your terminal",
		Long: `lk keeps your todo list and journal on a listkeep server.

Sign in once with "lk login", then use "lk todo", "lk journal" or the
live "lk watch" view.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if app.Logger == nil {
				level := app.Config.LogLevel
				if verbose {
					level = "debug"
				}
				app.Logger = logging.New(app.Err, level, "text")
			}
			info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
			cmd.SetContext(context.WithValue(cmd.Context(), commandContextKey{}, info))
			app.Logger.Debug("command start",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
			)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
			if !ok {
				return
			}
			app.Logger.Debug("command end",
				"command", cmd.CommandPath(),
				"correlation_id", info.correlationID.String(),
				"duration_ms", time.Since(info.startedAt).Milliseconds(),
			)
		},
	}
	root.SetOut(app.Out)
	root.SetErr(app.Err)
	root.PersistentFlags().StringVar(&app.Config.ServerURL, "server", app.Config.ServerURL, "listkeep server URL")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newLoginCmd(app),
		newLogoutCmd(app),
		newWhoamiCmd(app),
		newTodoCmd(app),
		newJournalCmd(app),
		newWatchCmd(app),
	)
	return root
}

// Execute runs lk with the process arguments and exits non-zero on failure.
func Execute(ctx context.Context) {
	app := &App{}
	if err := NewRootCmd(app).ExecuteContext(ctx); err != nil {
		tui.Fail(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func (a *App) identity() *identity.LoopbackProvider {
	return identity.NewLoopbackProvider(a.Config.ServerURL,
		identity.NewCredentialStore(a.Config.CredentialsPath), a.Prompt, a.Logger)
}

// session returns a server client for the signed-in user.
func (a *App) session() (*remote.Client, *identity.Credentials, error) {
	creds := a.identity().Credentials()
	if creds == nil {
		return nil, nil, errNotSignedIn
	}
	return remote.New(a.Config.ServerURL, creds.Token, a.Logger, a.Remote), creds, nil
}

// describe turns client errors into something worth showing a person.
func describe(op string, err error) error {
	var apiErr *remote.APIError
	switch {
	case errors.As(err, &apiErr) && apiErr.Status == 401:
		return fmt.Errorf("%s: session expired; run `lk login` again", op)
	case errors.Is(err, remote.ErrUnavailable):
		return fmt.Errorf("%s: server unavailable, try again shortly", op)
	}
	return fmt.Errorf("%s: %w", op, err)
}
