package detail

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/attachment"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/theme"
	"github.com/nhle/task-tracker/internal/tracker"
)

// BackMsg signals the parent to navigate back to the list view.
type BackMsg struct{}

// DetailLoadedMsg carries the loaded task.
type DetailLoadedMsg struct {
	Detail *tracker.TaskDetail
	Err    error
}

// ToggleItemMsg asks the parent to flip a checklist item.
type ToggleItemMsg struct {
	ItemID string
}

// ToggledMsg reports the outcome of a checklist toggle.
type ToggledMsg struct {
	Result tracker.ToggleResult
	Err    error
}

// StatusChangeMsg asks the parent to set the task status.
type StatusChangeMsg struct {
	TaskID string
	Status model.TaskStatus
}

// EditRequestMsg and DeleteRequestMsg ask the parent to edit or delete the
// displayed task.
type (
	EditRequestMsg   struct{ Detail tracker.TaskDetail }
	DeleteRequestMsg struct{ TaskID string }
)

// Model is the task detail view component.
type Model struct {
	task     *tracker.TaskDetail
	cursor   int
	viewport viewport.Model
	bar      progress.Model
	keys     *keys.KeyMap
	admin    bool
	width    int
	height   int
	loading  bool
}

// New creates a new detail view model.
func New(keys *keys.KeyMap, width, height int) Model {
	vp := viewport.New(width, height-2)
	vp.Style = lipgloss.NewStyle()

	bar := progress.New(progress.WithDefaultGradient(), progress.WithoutPercentage())
	bar.Width = 30

	return Model{
		viewport: vp,
		bar:      bar,
		keys:     keys,
		width:    width,
		height:   height,
	}
}

// SetAdmin enables the edit and delete keys.
func (m *Model) SetAdmin(admin bool) {
	m.admin = admin
}

// Update handles messages for the detail view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DetailLoadedMsg:
		m.loading = false
		if msg.Err != nil {
			m.task = nil
			return m, nil
		}
		m.SetTask(msg.Detail)
		return m, nil

	case ToggledMsg:
		if msg.Err == nil {
			m.applyToggle(msg.Result)
		}
		return m, nil

	case tea.KeyMsg:
		if m.task == nil {
			if key.Matches(msg, m.keys.Back) {
				return m, func() tea.Msg { return BackMsg{} }
			}
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.Back):
			return m, func() tea.Msg { return BackMsg{} }

		case key.Matches(msg, m.keys.Down):
			if m.cursor < len(m.task.Checklist)-1 {
				m.cursor++
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Up):
			if m.cursor > 0 {
				m.cursor--
				m.refresh()
			}
			return m, nil

		case key.Matches(msg, m.keys.Toggle):
			if len(m.task.Checklist) == 0 {
				return m, nil
			}
			id := m.task.Checklist[m.cursor].ID
			return m, func() tea.Msg { return ToggleItemMsg{ItemID: id} }

		case key.Matches(msg, m.keys.CycleStatus):
			id, next := m.task.Task.ID, NextStatus(m.task.Task.Status)
			return m, func() tea.Msg { return StatusChangeMsg{TaskID: id, Status: next} }

		case key.Matches(msg, m.keys.Edit):
			if m.admin {
				d := *m.task
				return m, func() tea.Msg { return EditRequestMsg{Detail: d} }
			}
			return m, nil

		case key.Matches(msg, m.keys.Delete):
			if m.admin {
				id := m.task.Task.ID
				return m, func() tea.Msg { return DeleteRequestMsg{TaskID: id} }
			}
			return m, nil
		}
	}

	// Delegate to viewport for scrolling (pgup/pgdn)
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

// NextStatus returns the status after s in the pending → in progress →
// completed cycle.
func NextStatus(s model.TaskStatus) model.TaskStatus {
	for i, st := range model.Statuses {
		if st == s {
			return model.Statuses[(i+1)%len(model.Statuses)]
		}
	}
	return model.StatusPending
}

// applyToggle updates the displayed item and task after a toggle.
func (m *Model) applyToggle(r tracker.ToggleResult) {
	if m.task == nil || m.task.Task.ID != r.TaskID {
		return
	}
	for i := range m.task.Checklist {
		if m.task.Checklist[i].ID == r.ItemID {
			m.task.Checklist[i].Completed = r.Completed
		}
	}
	m.task.Task.Status = r.Status
	m.task.Progress = r.Progress
	m.refresh()
}

// View renders the detail view.
func (m Model) View() string {
	center := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.loading {
		return center.Render("Loading task details...")
	}
	if m.task == nil {
		return center.Render("Task not available")
	}
	return m.viewport.View()
}

// renderContent builds the full detail content string for the viewport.
func (m Model) renderContent() string {
	if m.task == nil {
		return ""
	}

	t := m.task.Task
	var sections []string

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, titleStyle.Render(t.Title))

	badgeLine := lipgloss.JoinHorizontal(lipgloss.Top,
		theme.StatusStyle(t.Status).Render(t.Status.Label()),
		"  ",
		theme.PriorityStyle(t.Priority).Render(t.Priority.Label()),
	)
	sections = append(sections, badgeLine, "")

	metaStyle := lipgloss.NewStyle().Foreground(theme.ColorGray)
	valStyle := lipgloss.NewStyle().Foreground(theme.ColorWhite)
	meta := func(label, value string) {
		sections = append(sections, fmt.Sprintf("%s %s",
			metaStyle.Render(fmt.Sprintf("%-11s", label+":")), valStyle.Render(value)))
	}

	meta("Due", t.DueDate.Format("2006-01-02"))
	meta("Created", t.CreatedAt.Local().Format("2006-01-02 15:04"))
	meta("Updated", t.UpdatedAt.Local().Format("2006-01-02 15:04"))
	if len(m.task.Assignees) > 0 {
		names := make([]string, len(m.task.Assignees))
		for i, u := range m.task.Assignees {
			names[i] = u.FullName
		}
		meta("Assignees", strings.Join(names, ", "))
	} else {
		meta("Assignees", "none")
	}
	if t.HasAttachment() {
		meta("Attachment", attachment.DisplayName(t.Attachment))
	}

	sepStyle := lipgloss.NewStyle().Foreground(theme.ColorSubtle)
	separator := sepStyle.Render(strings.Repeat("─", max(min(m.width-4, 80), 0)))
	sections = append(sections, "", separator, "")

	headStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite)
	sections = append(sections, headStyle.Render("Description"), t.Description)

	sections = append(sections, "", separator, "")
	sections = append(sections, headStyle.Render(fmt.Sprintf("Checklist %d%%", m.task.Progress)))
	if len(m.task.Checklist) == 0 {
		sections = append(sections, theme.HelpStyle.Render("No checklist items"))
	} else {
		sections = append(sections, m.bar.ViewAs(float64(m.task.Progress)/100))
		for i, item := range m.task.Checklist {
			box := "[ ]"
			text := item.Description
			if item.Completed {
				box = "[x]"
				text = theme.DimmedStyle.Render(text)
			}
			line := box + " " + text
			if i == m.cursor {
				line = theme.SelectedItemStyle.Render(line)
			} else {
				line = theme.ListItemStyle.Render(line)
			}
			sections = append(sections, line)
		}
	}

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m *Model) refresh() {
	m.viewport.SetContent(m.renderContent())
}

// SetTask replaces the displayed task and resets the cursor.
func (m *Model) SetTask(d *tracker.TaskDetail) {
	m.task = d
	m.loading = false
	if d != nil && m.cursor >= len(d.Checklist) {
		m.cursor = 0
	}
	m.refresh()
	m.viewport.GotoTop()
}

// TaskID returns the id of the displayed task, or "".
func (m Model) TaskID() string {
	if m.task == nil {
		return ""
	}
	return m.task.Task.ID
}

// SetLoading sets the loading state.
func (m *Model) SetLoading(loading bool) {
	m.loading = loading
}

// SetSize updates the detail view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = width
	m.viewport.Height = height - 2
	m.bar.Width = min(max(width-10, 10), 40)
	m.refresh()
}
