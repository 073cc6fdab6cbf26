package tasklist

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/dashboard"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/theme"
	"github.com/nhle/task-tracker/internal/tracker"
)

// Source is the part of tracker.Service the list reads from.
type Source interface {
	ListVisibleTasks(ctx context.Context, caller access.Caller, opts tracker.ListOptions) ([]model.Task, error)
	Dashboard(ctx context.Context, caller access.Caller) (dashboard.Summary, error)
}

// TasksLoadedMsg carries the visible tasks and the dashboard counts.
type TasksLoadedMsg struct {
	Tasks   []model.Task
	Summary dashboard.Summary
	Err     error
}

// SelectedTaskMsg is sent when a user opens a task.
type SelectedTaskMsg struct {
	TaskID string
}

// sortModes defines the sort keys cycled by Tab. The empty key selects the
// role default.
var sortModes = []string{
	"",
	"due_date",
	"created_at",
	"updated_at",
	"priority",
	"title",
	"status",
}

// Model is the main task list view component.
type Model struct {
	list        list.Model
	src         Source
	caller      access.Caller
	keys        *keys.KeyMap
	opts        tracker.ListOptions
	summary     dashboard.Summary
	sortIndex   int
	searchMode  bool
	searchInput textinput.Model
	width       int
	height      int
}

// New creates a new task list model.
func New(src Source, k *keys.KeyMap, width, height int) Model {
	l := list.New([]list.Item{}, ItemDelegate{}, width, height-headerLines)
	l.Title = "Tasks"
	l.SetShowStatusBar(true)
	l.SetShowHelp(false)
	l.SetFilteringEnabled(false)
	l.Styles.Title = theme.HeaderStyle

	si := textinput.New()
	si.Placeholder = "search title and description..."
	si.Prompt = "/ "
	si.Width = width - 4

	return Model{
		list:        l,
		src:         src,
		keys:        k,
		searchInput: si,
		width:       width,
		height:      height,
	}
}

// headerLines is the height of the dashboard strip above the list.
const headerLines = 2

// SetCaller sets whose tasks are listed and resets filters.
func (m *Model) SetCaller(c access.Caller) {
	m.caller = c
	m.opts = tracker.ListOptions{}
	m.sortIndex = 0
	if c.IsAdmin() {
		m.list.Title = "All Tasks"
	} else {
		m.list.Title = "My Tasks"
	}
}

// Update handles messages for the task list view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case TasksLoadedMsg:
		if msg.Err != nil {
			return m, nil
		}
		m.summary = msg.Summary
		items := make([]list.Item, len(msg.Tasks))
		for i, task := range msg.Tasks {
			items[i] = TaskItem{Task: task}
		}
		return m, m.list.SetItems(items)

	case tea.KeyMsg:
		if m.searchMode {
			return m.handleSearchKeys(msg)
		}
		return m.handleNormalKeys(msg)
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// handleSearchKeys processes key input while in search mode.
func (m Model) handleSearchKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.searchMode = false
		m.opts.Query = strings.TrimSpace(m.searchInput.Value())
		return m, m.LoadTasks()

	case "esc":
		m.searchMode = false
		m.searchInput.Reset()
		m.opts.Query = ""
		return m, m.LoadTasks()
	}

	var cmd tea.Cmd
	m.searchInput, cmd = m.searchInput.Update(msg)
	return m, cmd
}

// handleNormalKeys processes key input in normal (non-search) mode.
func (m Model) handleNormalKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Select):
		task, ok := m.SelectedTask()
		if !ok {
			return m, nil
		}
		return m, func() tea.Msg {
			return SelectedTaskMsg{TaskID: task.ID}
		}

	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchInput.Reset()
		return m, m.searchInput.Focus()

	case key.Matches(msg, m.keys.FilterStatus):
		m.opts.Status = nextStatus(m.opts.Status)
		return m, m.LoadTasks()

	case key.Matches(msg, m.keys.FilterPriority):
		m.opts.Priority = nextPriority(m.opts.Priority)
		return m, m.LoadTasks()

	case key.Matches(msg, m.keys.ClearFilters):
		return m, m.ClearFilters()

	case key.Matches(msg, m.keys.CycleSort):
		m.sortIndex = (m.sortIndex + 1) % len(sortModes)
		m.opts.SortBy = sortModes[m.sortIndex]
		m.opts.SortDesc = m.opts.SortBy != "title"
		return m, m.LoadTasks()
	}

	var cmd tea.Cmd
	m.list, cmd = m.list.Update(msg)
	return m, cmd
}

// nextStatus cycles "" → pending → in_progress → completed → "".
func nextStatus(cur model.TaskStatus) model.TaskStatus {
	if cur == "" {
		return model.Statuses[0]
	}
	for i, s := range model.Statuses {
		if s == cur && i+1 < len(model.Statuses) {
			return model.Statuses[i+1]
		}
	}
	return ""
}

func nextPriority(cur model.Priority) model.Priority {
	if cur == "" {
		return model.Priorities[0]
	}
	for i, p := range model.Priorities {
		if p == cur && i+1 < len(model.Priorities) {
			return model.Priorities[i+1]
		}
	}
	return ""
}

// SetStatusFilter filters by status; an empty value clears it.
func (m *Model) SetStatusFilter(s model.TaskStatus) tea.Cmd {
	m.opts.Status = s
	return m.LoadTasks()
}

// SetPriorityFilter filters by priority; an empty value clears it.
func (m *Model) SetPriorityFilter(p model.Priority) tea.Cmd {
	m.opts.Priority = p
	return m.LoadTasks()
}

// SetSort orders the list by key.
func (m *Model) SetSort(key string, desc bool) tea.Cmd {
	m.opts.SortBy = key
	m.opts.SortDesc = desc
	return m.LoadTasks()
}

// SetQuery filters by a title or description substring.
func (m *Model) SetQuery(q string) tea.Cmd {
	m.opts.Query = q
	return m.LoadTasks()
}

// ClearFilters drops every filter and restores the default order.
func (m *Model) ClearFilters() tea.Cmd {
	m.opts = tracker.ListOptions{}
	m.sortIndex = 0
	m.searchInput.Reset()
	return m.LoadTasks()
}

// FilterSummary describes the active filters, or "" when there are none.
func (m Model) FilterSummary() string {
	var parts []string
	if m.opts.Status != "" {
		parts = append(parts, "status="+string(m.opts.Status))
	}
	if m.opts.Priority != "" {
		parts = append(parts, "priority="+string(m.opts.Priority))
	}
	if m.opts.Query != "" {
		parts = append(parts, fmt.Sprintf("search=%q", m.opts.Query))
	}
	if m.opts.SortBy != "" {
		parts = append(parts, "sort="+m.opts.SortBy)
	}
	return strings.Join(parts, " ")
}

// SelectedTask returns the highlighted task.
func (m Model) SelectedTask() (model.Task, bool) {
	item, ok := m.list.SelectedItem().(TaskItem)
	if !ok {
		return model.Task{}, false
	}
	return item.Task, true
}

// Searching reports whether the search input has focus.
func (m Model) Searching() bool {
	return m.searchMode
}

// View renders the dashboard strip and the task list.
func (m Model) View() string {
	header := m.renderSummary()

	if m.searchMode {
		searchBar := lipgloss.NewStyle().
			Foreground(theme.ColorWhite).
			Padding(0, 1).
			Render(m.searchInput.View())
		return lipgloss.JoinVertical(lipgloss.Left, header, searchBar, m.list.View())
	}

	if len(m.list.Items()) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, m.renderEmptyState())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, m.list.View())
}

// renderSummary draws the dashboard counts.
func (m Model) renderSummary() string {
	s := m.summary
	label := lipgloss.NewStyle().Foreground(theme.ColorGray)

	line := lipgloss.JoinHorizontal(lipgloss.Top,
		label.Render(fmt.Sprintf(" %d tasks ", s.Total)),
		theme.StatusStyle(model.StatusPending).Render(fmt.Sprintf("%d pending", s.ByStatus.Pending)),
		theme.StatusStyle(model.StatusInProgress).Render(fmt.Sprintf("%d in progress", s.ByStatus.InProgress)),
		theme.StatusStyle(model.StatusCompleted).Render(fmt.Sprintf("%d completed", s.ByStatus.Completed)),
		label.Render("  │  "),
		theme.PriorityStyle(model.PriorityHigh).Render(fmt.Sprintf("%d high ", s.ByPriority.High)),
		theme.PriorityStyle(model.PriorityMedium).Render(fmt.Sprintf("%d medium ", s.ByPriority.Medium)),
		theme.PriorityStyle(model.PriorityLow).Render(fmt.Sprintf("%d low", s.ByPriority.Low)),
	)
	return line + "\n"
}

// renderEmptyState shows guidance text when no tasks are available.
func (m Model) renderEmptyState() string {
	style := lipgloss.NewStyle().
		Width(m.width).
		Height(m.height-headerLines).
		Align(lipgloss.Center, lipgloss.Center).
		Foreground(theme.ColorGray)

	if m.FilterSummary() != "" {
		return style.Render("No matching tasks.\nPress 3 to clear filters.")
	}
	if m.caller.IsAdmin() {
		return style.Render("No tasks yet.\n\nPress n to create one.")
	}
	return style.Render("Nothing is assigned to you.")
}

// LoadTasks returns a tea.Cmd that queries the tracker with the current
// options.
func (m Model) LoadTasks() tea.Cmd {
	src, caller, opts := m.src, m.caller, m.opts
	return func() tea.Msg {
		ctx := context.Background()
		tasks, err := src.ListVisibleTasks(ctx, caller, opts)
		if err != nil {
			return TasksLoadedMsg{Err: err}
		}
		summary, err := src.Dashboard(ctx, caller)
		if err != nil {
			return TasksLoadedMsg{Err: err}
		}
		return TasksLoadedMsg{Tasks: tasks, Summary: summary}
	}
}

// SetSize updates the list dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.list.SetSize(width, height-headerLines)
	m.searchInput.Width = width - 4
}
