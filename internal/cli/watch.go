package cli

import (
	"fmt"
	"strings"

	"aitasks/backend"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

// TasksMsg carries a fresh task list from the subscription.
type TasksMsg []backend.Task

// feedClosedMsg is sent once the update channel is closed.
type feedClosedMsg struct{}

// WatchModel is the bubbletea model behind `aitasks watch`. It renders the
// latest task list received on updates until the user quits.
type WatchModel struct {
	updates <-chan []backend.Task
	spinner spinner.Model
	opts    DisplayOptions
	caller  string

	tasks    []backend.Task
	received bool
	closed   bool
	quitting bool
}

// NewWatchModel creates a watch model reading from updates.
func NewWatchModel(caller string, updates <-chan []backend.Task, opts DisplayOptions) WatchModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = titleStyle
	return WatchModel{
		updates: updates,
		spinner: s,
		opts:    opts,
		caller:  caller,
	}
}

// waitForTasks blocks on the next update.
func waitForTasks(updates <-chan []backend.Task) tea.Cmd {
	return func() tea.Msg {
		tasks, ok := <-updates
		if !ok {
			return feedClosedMsg{}
		}
		return TasksMsg(tasks)
	}
}

func (m WatchModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, waitForTasks(m.updates))
}

func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.quitting = true
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.opts.Width = msg.Width
		return m, nil

	case TasksMsg:
		m.tasks = []backend.Task(msg)
		m.received = true
		return m, waitForTasks(m.updates)

	case feedClosedMsg:
		m.closed = true
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(fmt.Sprintf("Watching tasks of %s", m.caller)) + "\n\n")

	switch {
	case !m.received && !m.closed:
		b.WriteString(m.spinner.View() + " Waiting for tasks...\n")
	default:
		b.WriteString(RenderTasks("Tasks", m.tasks, m.opts))
	}

	if m.closed {
		b.WriteString(warnStyle.Render("Live updates stopped") + "\n")
	}
	b.WriteString("\n" + dimStyle.Render("q: quit") + "\n")
	return b.String()
}

// Tasks returns the most recently received list.
func (m WatchModel) Tasks() []backend.Task {
	return m.tasks
}
