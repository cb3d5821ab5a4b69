package cli

import (
	"fmt"
	"strings"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/tui"
	"github.com/spf13/cobra"
)

func newJournalCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "journal",
		Aliases: []string{"j"},
		Short:   "Write and read journal entries",
	}
	cmd.AddCommand(
		newJournalAddCmd(app),
		newJournalListCmd(app),
		newJournalEditCmd(app),
		newJournalRmCmd(app),
	)
	return cmd
}

func newJournalAddCmd(app *App) *cobra.Command {
	var content, mood string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Write a journal entry",
		Example: `  lk journal add "Monday" --content "Long day, good coffee" --mood 😴`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			client, creds, err := app.session()
			if err != nil {
				return err
			}
			id, err := client.Journals().Create(cmd.Context(), creds.User.ID, title, content, mood)
			if err != nil {
				return describe("add journal entry", err)
			}
			tui.OK(app.Out, fmt.Sprintf("saved %s %s", shortID(id), title))
			return nil
		},
	}
	cmd.Flags().StringVar(&content, "content", "", "entry text")
	cmd.Flags().StringVar(&mood, "mood", "", "mood emoji (default "+model.DefaultMood+")")
	return cmd
}

func newJournalListCmd(app *App) *cobra.Command {
	var search, mood string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List journal entries, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if mood != "" && !model.IsMood(mood) {
				return fmt.Errorf("unknown mood %q (one of %s)", mood, strings.Join(model.Moods, " "))
			}
			client, _, err := app.session()
			if err != nil {
				return err
			}
			entries, err := client.Journals().List(cmd.Context())
			if err != nil {
				return describe("list journal", err)
			}
			entries = model.FilterJournal(entries, search, mood)
			if len(entries) == 0 {
				tui.Muted(app.Out, "no journal entries")
				return nil
			}
			for _, e := range entries {
				fmt.Fprintln(app.Out, formatJournal(e))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&search, "search", "s", "", "only entries whose title contains this text")
	cmd.Flags().StringVarP(&mood, "mood", "m", "", "only entries with this mood ("+strings.Join(model.Moods, " ")+")")
	return cmd
}

func newJournalEditCmd(app *App) *cobra.Command {
	var title, content, mood string
	cmd := &cobra.Command{
		Use:   "edit <id>",
		Short: "Change a journal entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, creds, err := app.session()
			if err != nil {
				return err
			}
			journals := client.Journals()
			entries, err := journals.List(cmd.Context())
			if err != nil {
				return describe("list journal", err)
			}
			e, err := resolve(entries, args[0], func(e model.JournalEntry) string { return e.ID })
			if err != nil {
				return err
			}

			// flags left unset keep the entry's current value
			if cmd.Flags().Changed("title") {
				e.Title = strings.TrimSpace(title)
			}
			if cmd.Flags().Changed("content") {
				e.Content = content
			}
			if cmd.Flags().Changed("mood") {
				e.Mood = mood
			}
			if e.Title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			if err := journals.Update(cmd.Context(), creds.User.ID, e.ID, e.Title, e.Content, e.Mood); err != nil {
				return describe("update journal entry", err)
			}
			tui.OK(app.Out, "updated "+e.Title)
			return nil
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "new title")
	cmd.Flags().StringVar(&content, "content", "", "new text")
	cmd.Flags().StringVar(&mood, "mood", "", "new mood emoji")
	return cmd
}

func newJournalRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a journal entry",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, creds, err := app.session()
			if err != nil {
				return err
			}
			journals := client.Journals()
			entries, err := journals.List(cmd.Context())
			if err != nil {
				return describe("list journal", err)
			}
			e, err := resolve(entries, args[0], func(e model.JournalEntry) string { return e.ID })
			if err != nil {
				return err
			}
			if err := journals.Delete(cmd.Context(), creds.User.ID, e.ID); err != nil {
				return describe("delete journal entry", err)
			}
			tui.OK(app.Out, "deleted "+e.Title)
			return nil
		},
	}
}

func formatJournal(e model.JournalEntry) string {
	head := fmt.Sprintf("%s %s  %s  %s", e.Mood, shortID(e.ID), e.Title, model.FormatJournalDate(e.CreatedAt))
	if e.Content == "" {
		return head
	}
	return head + "\n    " + strings.ReplaceAll(e.Content, "\n", "\n    ")
}
