// Package tui is the interactive terminal view over a todo list.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/dukerupert/listkeep/internal/model"
	"github.com/dukerupert/listkeep/internal/viewstate"
)

type mode int

const (
	modeList mode = iota
	modeSearch
	modeAdd
	modeRename
)

// changedMsg is delivered whenever the view state reports a change.
type changedMsg struct{}

type keyMap struct {
	Up, Down, Search, Filter, Toggle, Add, Rename, Priority, Category, Delete, Quit key.Binding
}

var keys = keyMap{
	Up:       key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down:     key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
	Search:   key.NewBinding(key.WithKeys("/"), key.WithHelp("/", "search")),
	Filter:   key.NewBinding(key.WithKeys("f"), key.WithHelp("f", "filter")),
	Toggle:   key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "toggle")),
	Add:      key.NewBinding(key.WithKeys("a"), key.WithHelp("a", "add")),
	Rename:   key.NewBinding(key.WithKeys("e"), key.WithHelp("e", "edit")),
	Priority: key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "priority")),
	Category: key.NewBinding(key.WithKeys("c"), key.WithHelp("c", "category")),
	Delete:   key.NewBinding(key.WithKeys("d"), key.WithHelp("d", "delete")),
	Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
}

// Model renders a viewstate.TodoList and turns key presses into list
// operations. It never edits items itself; every change comes back as a
// new snapshot.
type Model struct {
	list   *viewstate.TodoList
	userID string

	state  viewstate.TodoState
	cursor int

	mode     mode
	input    textinput.Model
	inputErr string
	bar      progress.Model
	width    int
}

func New(list *viewstate.TodoList, userID string) Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 500

	m := Model{
		list:   list,
		userID: userID,
		input:  ti,
		bar:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(30)),
		width:  80,
	}
	m.refresh()
	return m
}

// Run observes userID on list and runs the interactive view until the
// user quits.
func Run(list *viewstate.TodoList, userID string) error {
	list.Observe(userID)
	_, err := tea.NewProgram(New(list, userID), tea.WithAltScreen()).Run()
	return err
}

func (m Model) Init() tea.Cmd {
	return m.waitForChange()
}

func (m Model) waitForChange() tea.Cmd {
	ch := m.list.Changes()
	return func() tea.Msg {
		<-ch
		return changedMsg{}
	}
}

func (m *Model) refresh() {
	m.state = m.list.State()
	if m.cursor >= len(m.state.Visible) {
		m.cursor = len(m.state.Visible) - 1
	}
	if m.cursor < 0 {
		m.cursor = 0
	}
}

func (m Model) selected() (model.Item, bool) {
	if m.cursor < 0 || m.cursor >= len(m.state.Visible) {
		return model.Item{}, false
	}
	return m.state.Visible[m.cursor], true
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.bar.Width = max(10, min(40, msg.Width-24))
		return m, nil
	case changedMsg:
		m.refresh()
		return m, m.waitForChange()
	case tea.KeyMsg:
		if m.mode != modeList {
			return m.updateInput(msg)
		}
		return m.updateList(msg)
	}
	return m, nil
}

func (m Model) updateList(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}
	case key.Matches(msg, keys.Down):
		if m.cursor < len(m.state.Visible)-1 {
			m.cursor++
		}
	case msg.Type == tea.KeyEsc:
		m.list.SetSearchQuery("")
		m.refresh()
	case key.Matches(msg, keys.Search):
		return m.startInput(modeSearch, m.state.Query, "search titles")
	case key.Matches(msg, keys.Filter):
		m.list.SetFilter(nextFilter(m.state.Filter))
		m.refresh()
	case key.Matches(msg, keys.Add):
		return m.startInput(modeAdd, "", "new todo title")
	case key.Matches(msg, keys.Rename):
		if it, ok := m.selected(); ok {
			return m.startInput(modeRename, it.Title, "edit title")
		}
	case key.Matches(msg, keys.Toggle):
		if it, ok := m.selected(); ok {
			m.list.Toggle(m.userID, it.ID, !it.Completed)
		}
	case key.Matches(msg, keys.Priority):
		if it, ok := m.selected(); ok {
			m.list.UpdatePriority(m.userID, it.ID, cycle(model.Priorities, it.Priority))
		}
	case key.Matches(msg, keys.Category):
		if it, ok := m.selected(); ok {
			m.list.UpdateCategory(m.userID, it.ID, cycle(model.Categories, it.Category))
		}
	case key.Matches(msg, keys.Delete):
		if it, ok := m.selected(); ok {
			m.list.Delete(m.userID, it.ID)
		}
	}
	return m, nil
}

func (m Model) startInput(md mode, value, placeholder string) (tea.Model, tea.Cmd) {
	m.mode = md
	m.inputErr = ""
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	return m, m.input.Focus()
}

func (m Model) endInput() Model {
	m.mode = modeList
	m.inputErr = ""
	m.input.SetValue("")
	m.input.Blur()
	return m
}

func (m Model) updateInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit
	case tea.KeyEsc:
		if m.mode == modeSearch {
			m.list.SetSearchQuery("")
			m.refresh()
		}
		return m.endInput(), nil
	case tea.KeyEnter:
		return m.submitInput()
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if m.mode == modeSearch {
		m.list.SetSearchQuery(m.input.Value())
		m.refresh()
	}
	return m, cmd
}

func (m Model) submitInput() (tea.Model, tea.Cmd) {
	value := strings.TrimSpace(m.input.Value())
	switch m.mode {
	case modeSearch:
		return m.endInput(), nil
	case modeAdd:
		if value == "" {
			m.inputErr = "Title cannot be empty"
			return m, nil
		}
		m.list.Add(m.userID, value, model.PriorityMedium, model.CategoryOther)
	case modeRename:
		if value == "" {
			m.inputErr = "Title cannot be empty"
			return m, nil
		}
		if it, ok := m.selected(); ok && it.Title != value {
			m.list.UpdateTitle(m.userID, it.ID, value)
		}
	}
	return m.endInput(), nil
}

func nextFilter(cur model.Filter) model.Filter {
	all := model.Filters()
	for i, f := range all {
		if f == cur {
			return all[(i+1)%len(all)]
		}
	}
	return all[0]
}

func cycle[T comparable](values []T, cur T) T {
	for i, v := range values {
		if v == cur {
			return values[(i+1)%len(values)]
		}
	}
	return values[0]
}

func (m Model) View() string {
	var b strings.Builder
	s := m.state

	header := fmt.Sprintf("%s   %s %d  %s %d  %s %d",
		titleStyle.Render("Todos"),
		successStyle.Render("✔"), s.Stats.Completed,
		pendingStyle.Render("•"), s.Stats.Total-s.Stats.Completed,
		accentStyle.Render("Total"), s.Stats.Total,
	)
	b.WriteString(header + "\n")
	b.WriteString(m.bar.ViewAs(s.Stats.Progress))
	b.WriteString(fmt.Sprintf(" %d/%d\n", s.Stats.Completed, s.Stats.Total))

	status := "filter: " + s.Filter.String()
	if s.Query != "" {
		status += "  search: " + s.Query
	}
	if s.Phase != viewstate.Active {
		status += "  " + s.Phase.String()
	}
	b.WriteString(mutedStyle.Render(status) + "\n\n")

	if len(s.Visible) == 0 {
		b.WriteString(mutedStyle.Render("Nothing here. Press a to add a todo.") + "\n")
	}
	for i, it := range s.Visible {
		b.WriteString(m.renderItem(it, i == m.cursor) + "\n")
	}

	if s.WriteError != nil {
		b.WriteString("\n" + errorStyle.Render(s.WriteError.Error()) + "\n")
	}

	if m.mode != modeList {
		b.WriteString("\n" + m.inputView())
	}

	b.WriteString("\n" + helpStyle.Render(helpLine()))
	return panelString(b.String())
}

func (m Model) renderItem(it model.Item, selected bool) string {
	box := mutedStyle.Render(boxUnchecked)
	title := it.Title
	if it.Completed {
		box = successStyle.Render(boxChecked)
		title = doneStyle.Render(title)
	}
	badge := priorityStyles[string(it.Priority)].Render(strings.ToLower(string(it.Priority)))
	line := fmt.Sprintf("%s %s %s %s", box, title, badge, mutedStyle.Render(strings.ToLower(string(it.Category))))

	prefix := "  "
	if selected {
		prefix = selectedStyle.Render(">") + " "
	}
	return prefix + line
}

func (m Model) inputView() string {
	titles := map[mode]string{modeSearch: "Search", modeAdd: "Add todo", modeRename: "Edit title"}
	title := titles[m.mode]
	if m.inputErr != "" {
		title += ": " + errorStyle.Render(m.inputErr)
	}
	bar := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(lipgloss.Color("8")).Padding(0, 1)
	return bar.Render(title + "\n" + m.input.View())
}

func helpLine() string {
	bindings := []key.Binding{keys.Search, keys.Filter, keys.Toggle, keys.Add, keys.Rename,
		keys.Priority, keys.Category, keys.Delete, keys.Quit}
	parts := make([]string, 0, len(bindings))
	for _, kb := range bindings {
		h := kb.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, " • ")
}
