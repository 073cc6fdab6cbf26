package tasklist

import (
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/status"
	"github.com/nhle/task-tracker/internal/theme"
)

// now is replaced in tests.
var now = time.Now

// TaskItem wraps a model.Task so it can be used in a bubbles/list.
type TaskItem struct {
	Task model.Task
}

// FilterValue returns the string used for fuzzy filtering.
func (i TaskItem) FilterValue() string { return i.Task.Title }

// Title returns the task title for the list.
func (i TaskItem) Title() string { return i.Task.Title }

// Description returns a short summary line for the list.
func (i TaskItem) Description() string {
	return fmt.Sprintf("%s | %s | due %s",
		i.Task.Status.Label(), i.Task.Priority.Label(), i.Task.DueDate.Format("2006-01-02"))
}

// ItemDelegate implements list.ItemDelegate for rendering task rows.
type ItemDelegate struct{}

// Height returns the number of lines each item takes.
func (d ItemDelegate) Height() int { return 1 }

// Spacing returns the number of blank lines between items.
func (d ItemDelegate) Spacing() int { return 0 }

// Update handles per-item messages (unused).
func (d ItemDelegate) Update(_ tea.Msg, _ *list.Model) tea.Cmd {
	return nil
}

// Render draws a single task row.
func (d ItemDelegate) Render(w io.Writer, m list.Model, index int, item list.Item) {
	ti, ok := item.(TaskItem)
	if !ok {
		return
	}
	fmt.Fprint(w, renderRow(ti.Task, index == m.Index(), now()))
}

// renderRow formats one task: glyph, status, priority, title, checklist
// progress, due date, and an overdue flag.
func renderRow(t model.Task, selected bool, at time.Time) string {
	prefix := "○"
	switch t.Status {
	case model.StatusCompleted:
		prefix = "✓"
	case model.StatusInProgress:
		prefix = "◐"
	}

	statusBadge := theme.StatusStyle(t.Status).Render(t.Status.Label())
	priBadge := theme.PriorityStyle(t.Priority).Render(priorityLabel(t.Priority))

	progress := ""
	if t.ChecklistTotal > 0 {
		progress = lipgloss.NewStyle().
			Foreground(theme.ColorGray).
			Render(fmt.Sprintf(" [%d/%d %d%%]",
				t.ChecklistDone, t.ChecklistTotal,
				status.Progress(t.ChecklistDone, t.ChecklistTotal)))
	}

	due := theme.DueDateStyle.Render(" " + t.DueDate.Format("Jan 02"))

	overdue := ""
	if t.IsOverdue(at) {
		overdue = theme.OverdueStyle.Render(" OVERDUE")
	}

	attachment := ""
	if t.HasAttachment() {
		attachment = " 📎"
	}

	line := fmt.Sprintf("%s %s %s %s%s%s%s%s",
		prefix, statusBadge, priBadge, t.Title, attachment, progress, due, overdue)

	if t.Status == model.StatusCompleted {
		line = theme.DimmedStyle.Render(line)
	}
	if selected {
		return theme.SelectedItemStyle.Render(line)
	}
	return theme.ListItemStyle.Render(line)
}

// priorityLabel returns a short label for the given priority.
func priorityLabel(p model.Priority) string {
	switch p {
	case model.PriorityHigh:
		return "HI"
	case model.PriorityMedium:
		return "MD"
	case model.PriorityLow:
		return "LO"
	default:
		return "??"
	}
}
