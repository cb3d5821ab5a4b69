package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/remote"
	"github.com/dukerupert/listkeep/internal/tui"
	"github.com/spf13/cobra"
)

const shortIDLen = 8

func newTodoCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "todo",
		Aliases: []string{"t"},
		Short:   "Manage todos",
	}
	cmd.AddCommand(
		newTodoAddCmd(app),
		newTodoListCmd(app),
		newTodoToggleCmd(app),
		newTodoRenameCmd(app),
		newTodoPriorityCmd(app),
		newTodoCategoryCmd(app),
		newTodoRmCmd(app),
		newTodoStatsCmd(app),
	)
	return cmd
}

func newTodoAddCmd(app *App) *cobra.Command {
	var priority, category string
	cmd := &cobra.Command{
		Use:   "add <title>",
		Short: "Add a todo",
		Example: `  lk todo add "Buy milk"
  lk todo add "Finish report" --priority high --category work`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			p, err := parsePriority(priority)
			if err != nil {
				return err
			}
			c, err := parseCategory(category)
			if err != nil {
				return err
			}

			client, creds, err := app.session()
			if err != nil {
				return err
			}
			id, err := client.Todos().Create(cmd.Context(), creds.User.ID, title, p, c)
			if err != nil {
				return describe("add todo", err)
			}
			tui.OK(app.Out, fmt.Sprintf("added %s %s", shortID(id), title))
			return nil
		},
	}
	cmd.Flags().StringVarP(&priority, "priority", "p", "medium", "low, medium or high")
	cmd.Flags().StringVarP(&category, "category", "c", "other", "work, study, hobby or other")
	return cmd
}

func newTodoListCmd(app *App) *cobra.Command {
	var filter, search string
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List todos, newest first",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := model.ParseFilter(filter)
			if err != nil {
				return err
			}
			client, _, err := app.session()
			if err != nil {
				return err
			}
			items, err := client.Todos().List(cmd.Context())
			if err != nil {
				return describe("list todos", err)
			}

			visible := model.FilterItems(items, search, f)
			if len(visible) == 0 {
				tui.Muted(app.Out, "no todos")
				return nil
			}
			for _, it := range visible {
				fmt.Fprintln(app.Out, formatTodo(it))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&filter, "filter", "f", "all", "all, active or a category")
	cmd.Flags().StringVarP(&search, "search", "s", "", "only titles containing this text")
	return cmd
}

func newTodoToggleCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "toggle <id>",
		Short: "Flip a todo between done and not done",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTodo(cmd.Context(), app, args[0], func(todos *remote.Todos, userID string, it model.Item) error {
				done := !it.Completed
				err := todos.UpdateField(cmd.Context(), userID, it.ID, model.FieldCompleted, done)
				if err != nil {
					// rows written before completed existed only accept a merge
					if mergeErr := todos.MergeField(cmd.Context(), userID, it.ID, model.FieldCompleted, done); mergeErr != nil {
						return describe("toggle todo", err)
					}
				}
				state := "not done"
				if done {
					state = "done"
				}
				tui.OK(app.Out, fmt.Sprintf("%s marked %s", it.Title, state))
				return nil
			})
		},
	}
}

func newTodoRenameCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <id> <title>",
		Short: "Change a todo's title",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args[1:], " "))
			if title == "" {
				return fmt.Errorf("title cannot be empty")
			}
			return setTodoField(cmd.Context(), app, args[0], model.FieldTitle, title)
		},
	}
}

func newTodoPriorityCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:       "priority <id> <low|medium|high>",
		Short:     "Set a todo's priority",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{"low", "medium", "high"},
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := parsePriority(args[1])
			if err != nil {
				return err
			}
			return setTodoField(cmd.Context(), app, args[0], model.FieldPriority, string(p))
		},
	}
}

func newTodoCategoryCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "category <id> <work|study|hobby|other>",
		Short: "Set a todo's category",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := parseCategory(args[1])
			if err != nil {
				return err
			}
			return setTodoField(cmd.Context(), app, args[0], model.FieldCategory, string(c))
		},
	}
}

func newTodoRmCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a todo",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withTodo(cmd.Context(), app, args[0], func(todos *remote.Todos, userID string, it model.Item) error {
				if err := todos.Delete(cmd.Context(), userID, it.ID); err != nil {
					return describe("delete todo", err)
				}
				tui.OK(app.Out, "deleted "+it.Title)
				return nil
			})
		},
	}
}

func newTodoStatsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show completion progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := app.session()
			if err != nil {
				return err
			}
			s, err := client.Todos().Statistics(cmd.Context())
			if err != nil {
				return describe("todo statistics", err)
			}
			tui.Panel(app.Out, []string{
				fmt.Sprintf("Total:     %d", s.Total),
				fmt.Sprintf("Completed: %d", s.Completed),
				fmt.Sprintf("Pending:   %d", s.Total-s.Completed),
				tui.ProgressBar(s.Completed, s.Total, 28),
			})
			return nil
		},
	}
}

func setTodoField(ctx context.Context, app *App, ref, field string, value any) error {
	return withTodo(ctx, app, ref, func(todos *remote.Todos, userID string, it model.Item) error {
		if err := todos.UpdateField(ctx, userID, it.ID, field, value); err != nil {
			return describe("update todo", err)
		}
		tui.OK(app.Out, fmt.Sprintf("updated %s %s", shortID(it.ID), field))
		return nil
	})
}

// withTodo resolves ref against the user's todos and runs fn on the match.
func withTodo(ctx context.Context, app *App, ref string, fn func(*remote.Todos, string, model.Item) error) error {
	client, creds, err := app.session()
	if err != nil {
		return err
	}
	todos := client.Todos()
	items, err := todos.List(ctx)
	if err != nil {
		return describe("list todos", err)
	}
	it, err := resolve(items, ref, func(it model.Item) string { return it.ID })
	if err != nil {
		return err
	}
	return fn(todos, creds.User.ID, it)
}

// resolve finds the one element whose id equals ref or starts with it.
func resolve[T any](all []T, ref string, id func(T) string) (T, error) {
	var zero T
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return zero, fmt.Errorf("an id is required")
	}
	var matches []T
	for _, v := range all {
		switch {
		case id(v) == ref:
			return v, nil
		case strings.HasPrefix(id(v), ref):
			matches = append(matches, v)
		}
	}
	switch len(matches) {
	case 0:
		return zero, fmt.Errorf("nothing matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return zero, fmt.Errorf("%q matches %d entries; use more of the id", ref, len(matches))
	}
}

func parsePriority(s string) (model.Priority, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, p := range model.Priorities {
		if string(p) == v {
			return p, nil
		}
	}
	return "", fmt.Errorf("unknown priority %q (want low, medium or high)", s)
}

func parseCategory(s string) (model.Category, error) {
	v := strings.ToUpper(strings.TrimSpace(s))
	for _, c := range model.Categories {
		if string(c) == v {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q (want work, study, hobby or other)", s)
}

func shortID(id string) string {
	if len(id) > shortIDLen {
		return id[:shortIDLen]
	}
	return id
}

func formatTodo(it model.Item) string {
	box := "☐"
	if it.Completed {
		box = "☑"
	}
	return fmt.Sprintf("%s %s  %s  [%s] %s", box, shortID(it.ID), it.Title,
		strings.ToLower(string(it.Priority)), strings.ToLower(string(it.Category)))
}
