package command

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/theme"
)

// CommandMsg is emitted when the user executes a command such as
// "status in_progress" or "refresh".
type CommandMsg struct {
	Name string
	Arg  string
}

// Parse splits palette input into a lower-cased command name and its
// argument. It returns false for blank input.
func Parse(input string) (CommandMsg, bool) {
	input = strings.TrimSpace(input)
	if input == "" {
		return CommandMsg{}, false
	}
	name, arg, _ := strings.Cut(input, " ")
	return CommandMsg{
		Name: strings.ToLower(name),
		Arg:  strings.TrimSpace(arg),
	}, true
}

// Model is the command palette view.
type Model struct {
	input  textinput.Model
	width  int
	height int
}

// New creates a new command palette model.
func New(width, height int) Model {
	ti := textinput.New()
	ti.Placeholder = "status <s> | priority <p> | sort <key> [desc] | search <q> | clear | refresh | read | new | users | quit"
	ti.Prompt = ": "
	ti.Width = width - 6

	return Model{
		input:  ti,
		width:  width,
		height: height,
	}
}

// Update handles messages for the command palette.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if k, ok := msg.(tea.KeyMsg); ok && k.String() == "enter" {
		parsed, ok := Parse(m.input.Value())
		m.input.Reset()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg { return parsed }
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View renders the command palette.
func (m Model) View() string {
	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render("Command Palette"),
		m.input.View(),
	)

	return theme.DetailPanelStyle.
		Width(m.width - 4).
		Render(content)
}

// SetSize updates the command palette dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.input.Width = width - 6
}

// Focus gives keyboard focus to the text input.
func (m *Model) Focus() tea.Cmd {
	return m.input.Focus()
}
