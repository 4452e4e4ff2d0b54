package ui

import (
	"fmt"
	"strings"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/charmbracelet/lipgloss"
)

// Panel draws a framed box using the current theme.
func Panel(lines []string) string {
	t := Current()
	box := lipgloss.NewStyle().
		Border(t.Border).
		BorderForeground(t.BorderColor).
		Padding(0, 1)
	return box.Render(strings.Join(lines, "\n"))
}

// Header is the title line with the task count.
func Header(n int) string {
	t := Current()
	return fmt.Sprintf("%s  %s %d", t.Title.Render("Tarefas"), t.Accent.Render("Total"), n)
}

// TaskLines renders one numbered line per task, titles capped at 80 columns.
func TaskLines(tasks []model.Task) []string {
	t := Current()
	if len(tasks) == 0 {
		return []string{t.Muted.Render("no tasks")}
	}
	out := make([]string, 0, len(tasks))
	for i, task := range tasks {
		idx := fmt.Sprintf("%2d.", i+1)
		title := Truncate(task.Title, 80)
		if title == "" {
			title = t.Muted.Render("(untitled)")
		}
		out = append(out, fmt.Sprintf("%s %s %s %s",
			t.Muted.Render(idx), t.Accent.Render(t.Bullet), title, t.Muted.Render(fmt.Sprintf("#%d", task.ID))))
	}
	return out
}

// Truncate shortens s to max runes, ending in "...".
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max || max < 4 {
		return s
	}
	return string(r[:max-3]) + "..."
}
