package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/Makepad-fr/tarefas/internal/export"
	"github.com/Makepad-fr/tarefas/internal/tui"
	"github.com/Makepad-fr/tarefas/internal/ui"
	"github.com/spf13/cobra"
)

func newAddCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "add <title...>",
		Short:   "Add a task (title can be multiple words)",
		Example: `  tarefas add "Buy milk"`,
		Args:    minArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			title := strings.TrimSpace(strings.Join(args, " "))
			if title == "" {
				return usagef("add: empty title")
			}
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			task, eff := s.store.Add(title)
			s.await(eff)
			ui.OK(fmt.Sprintf("added #%d", task.ID))
			return nil
		},
	}
}

func newListCmd(g *globals) *cobra.Command {
	var plain, md bool
	cmd := &cobra.Command{
		Use:     "ls",
		Aliases: []string{"list"},
		Short:   "List tasks (interactive when attached to a terminal)",
		Args:    exactArgs(0),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := g.open(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			tasks := s.store.Tasks()
			switch {
			case md:
				out, err := export.Render(export.Markdown(tasks), 80, g.cfg.NoColor || !isTerminal())
				if err != nil {
					return err
				}
				fmt.Fprint(ui.Stdout, out)
			case plain || !isTerminal():
				lines := append([]string{ui.Header(len(tasks)), ""}, ui.TaskLines(tasks)...)
				fmt.Fprintln(ui.Stdout, ui.Panel(lines))
			default:
				if err := tui.Run(s.store); err != nil {
					return fmt.Errorf("tui: %w", err)
				}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the list instead of opening the interactive view")
	cmd.Flags().BoolVar(&md, "md", false, "render the list as markdown")
	return cmd
}

func newEditCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "edit <id> <title...>",
		Short:   "Replace a task's title",
		Example: `  tarefas edit 1718000000000 "Buy milk and eggs"`,
		Args:    minArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.mutate(cmd.Context(), id, "updated", func(s *session) (bool, func()) {
				ok, eff := s.store.Edit(id, strings.Join(args[1:], " "))
				return ok, func() { s.await(eff) }
			})
		},
	}
}

func newRemoveCmd(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:     "rm <id>",
		Aliases: []string{"delete"},
		Short:   "Delete a task",
		Args:    exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			return g.mutate(cmd.Context(), id, "removed", func(s *session) (bool, func()) {
				ok, eff := s.store.Delete(id)
				return ok, func() { s.await(eff) }
			})
		},
	}
}

// mutate runs an id-addressed change and reports a missing id as a usage error.
func (g *globals) mutate(ctx context.Context, id int64, verb string, fn func(*session) (bool, func())) error {
	s, err := g.open(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	found, wait := fn(s)
	if !found {
		return &exitError{
			code: 2,
			msg:  fmt.Sprintf("no task with id %d", id),
			hint: "Hint: run `tarefas ls --plain` to see task ids",
		}
	}
	wait()
	ui.OK(fmt.Sprintf("%s #%d", verb, id))
	return nil
}

// parseID accepts 123 or #123, as printed by ls.
func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(s, "#"), 10, 64)
	if err != nil {
		return 0, usagef("not a task id: %s", s)
	}
	return id, nil
}
