// Package tui is the interactive task list. It holds no task state of its
// own: every change goes through the store and the list is re-read after it.
package tui

import (
	"fmt"
	"io"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/Makepad-fr/tarefas/internal/state"
	"github.com/Makepad-fr/tarefas/internal/ui"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// TaskStore is what the list needs from the state store.
type TaskStore interface {
	Tasks() []model.Task
	Add(title string) (model.Task, *state.Effects)
	Edit(id int64, title string) (bool, *state.Effects)
	Delete(id int64) (bool, *state.Effects)
}

// listItem adapts model.Task to bubbles/list.Item
type listItem struct {
	ID   int64
	Text string
}

func (i listItem) Title() string       { return i.Text }
func (i listItem) Description() string { return "" }
func (i listItem) FilterValue() string { return i.Text }

type Model struct {
	list  list.Model
	store TaskStore

	ti textinput.Model // shared by add and edit

	adding  bool
	editing bool
	editID  int64 // row in edit mode

	width, height int
}

// Custom delegate to control how items render (single line)
type itemDelegate struct{}

func (d itemDelegate) Height() int                               { return 1 }
func (d itemDelegate) Spacing() int                              { return 0 }
func (d itemDelegate) Update(msg tea.Msg, m *list.Model) tea.Cmd { return nil }
func (d itemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	it, _ := item.(listItem)
	t := ui.Current()

	text := ui.Truncate(it.Text, 80)
	if text == "" {
		text = t.Muted.Render("(untitled)")
	}
	line := fmt.Sprintf("%s %s", t.Accent.Render(t.Bullet), text)
	prefix := "  "
	if index == m.Index() {
		prefix = t.Selected.Render(t.Cursor)
	}
	fmt.Fprintln(w, prefix+line)
}

var (
	addBind    = key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add"))
	editBind   = key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit"))
	deleteBind = key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete"))
)

// New builds the list model over store.
func New(store TaskStore) Model {
	l := list.New(nil, itemDelegate{}, 0, 0)
	l.SetShowHelp(true)
	l.SetShowPagination(true)
	l.SetShowStatusBar(true)
	l.SetFilteringEnabled(true)
	l.Styles.Title = ui.Current().Title
	l.Styles.HelpStyle = ui.Current().Muted
	l.Styles.PaginationStyle = ui.Current().Muted
	l.FilterInput.Prompt = "/ "
	l.SetStatusBarItemName("task", "tasks")
	l.AdditionalShortHelpKeys = func() []key.Binding { return []key.Binding{addBind, editBind, deleteBind} }
	l.AdditionalFullHelpKeys = func() []key.Binding { return []key.Binding{addBind, editBind, deleteBind} }

	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 200

	m := Model{list: l, store: store, ti: ti, width: 80, height: 24}
	m.refresh()
	return m
}

// Run starts the program on the alternate screen and blocks until quit.
func Run(store TaskStore) error {
	_, err := tea.NewProgram(New(store), tea.WithAltScreen()).Run()
	return err
}

// refresh re-reads the store, keeping the cursor in range.
func (m *Model) refresh() {
	tasks := m.store.Tasks()
	items := make([]list.Item, 0, len(tasks))
	for _, t := range tasks {
		items = append(items, listItem{ID: t.ID, Text: t.Title})
	}
	idx := m.list.Index()
	m.list.SetItems(items)
	if idx >= len(items) {
		idx = len(items) - 1
	}
	if idx >= 0 {
		m.list.Select(idx)
	}
	m.list.Title = ui.Header(len(tasks))
}

func (m Model) selected() (listItem, bool) {
	it, ok := m.list.SelectedItem().(listItem)
	return it, ok
}

// Update and View implement Bubble Tea's Model.
func (m Model) Init() tea.Cmd { return nil }

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		m.width, m.height = ws.Width, ws.Height
		m.list.SetSize(ws.Width-4, ws.Height-4)
	}

	if m.adding || m.editing {
		return m.updateForm(msg)
	}

	switch msg := msg.(type) {
	case tea.KeyMsg:
		// while filtering, keys belong to the filter input
		if m.list.FilterState() == list.Filtering {
			break
		}
		switch msg.String() {
		case "q", "esc":
			return m, tea.Quit
		case "a":
			m.adding = true
			m.ti.SetValue("")
			m.ti.Placeholder = "New task title..."
			return m, m.ti.Focus()
		case "e":
			if it, ok := m.selected(); ok {
				m.editing = true
				m.editID = it.ID
				m.ti.SetValue(it.Text)
				m.ti.CursorEnd()
				m.ti.Placeholder = "Edit task title..."
				return m, m.ti.Focus()
			}
			return m, nil
		case "d":
			if it, ok := m.selected(); ok {
				m.store.Delete(it.ID)
				m.refresh()
			}
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

func (m Model) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok {
		switch k.String() {
		case "enter":
			// saved as typed; the store takes any title, empty included
			title := m.ti.Value()
			if m.adding {
				m.store.Add(title)
			} else {
				m.store.Edit(m.editID, title)
			}
			m.closeForm()
			m.refresh()
			return m, nil
		case "esc":
			m.closeForm()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.ti, cmd = m.ti.Update(msg)
	return m, cmd
}

func (m *Model) closeForm() {
	m.adding, m.editing = false, false
	m.editID = 0
	m.ti.SetValue("")
	m.ti.Blur()
}

func (m Model) View() string {
	listHeight := m.height - 4
	if m.adding || m.editing {
		listHeight = m.height - 7
	}
	m.list.SetSize(m.width-4, listHeight)

	content := m.list.View()
	if m.adding || m.editing {
		title := "Add task"
		if m.editing {
			title = "Edit task"
		}
		content += "\n" + ui.Panel([]string{title, m.ti.View()})
	}
	return ui.Panel([]string{content})
}
