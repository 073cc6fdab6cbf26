package taskform

import (
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/theme"
	"github.com/nhle/task-tracker/internal/tracker"
)

const dateLayout = "2006-01-02"

// SubmitMsg is dispatched when the form is completed. TaskID is empty for
// a new task. AttachmentPath names a local file to upload, if any.
type SubmitMsg struct {
	TaskID         string
	Input          tracker.TaskInput
	AttachmentPath string
}

// CancelMsg is dispatched when the user aborts the form.
type CancelMsg struct{}

// formBindings holds field values on the heap so that huh's Value()
// pointers remain valid across Bubble Tea model copies.
type formBindings struct {
	title          string
	description    string
	priority       model.Priority
	dueDate        string
	checklist      string
	assigneeIDs    []string
	attachmentPath string
}

// Model is the Bubble Tea model for the task create/edit form.
type Model struct {
	form   *huh.Form
	fb     *formBindings
	editID string
	users  []model.User
	now    func() time.Time
	width  int
	height int
}

// New creates a new task form model.
func New(width, height int) Model {
	return Model{
		fb:     &formBindings{},
		now:    time.Now,
		width:  width,
		height: height,
	}
}

// SetUsers sets the accounts offered as assignees.
func (m *Model) SetUsers(users []model.User) {
	m.users = users
}

// StartCreate initializes the form for a new task due tomorrow.
func (m *Model) StartCreate() tea.Cmd {
	m.editID = ""
	*m.fb = formBindings{
		priority: model.PriorityLow,
		dueDate:  m.now().AddDate(0, 0, 1).Format(dateLayout),
	}
	m.form = m.build()
	return m.form.Init()
}

// StartEdit initializes the form from an existing task.
func (m *Model) StartEdit(d tracker.TaskDetail) tea.Cmd {
	m.editID = d.Task.ID

	items := make([]string, len(d.Checklist))
	for i, it := range d.Checklist {
		items[i] = it.Description
	}
	*m.fb = formBindings{
		title:       d.Task.Title,
		description: d.Task.Description,
		priority:    d.Task.Priority,
		dueDate:     d.Task.DueDate.Format(dateLayout),
		checklist:   strings.Join(items, "\n"),
		assigneeIDs: append([]string(nil), d.Task.AssigneeIDs...),
	}
	m.form = m.build()
	return m.form.Init()
}

// Update handles messages for the task form.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	switch m.form.State {
	case huh.StateCompleted:
		m.form = nil
		return m, m.submit()
	case huh.StateAborted:
		m.form = nil
		return m, func() tea.Msg { return CancelMsg{} }
	}
	return m, cmd
}

// View renders the task form.
func (m Model) View() string {
	if m.form == nil {
		return ""
	}

	titleText := "New Task"
	if m.editID != "" {
		titleText = "Edit Task"
	}

	titleStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(theme.ColorWhite).
		MarginBottom(1)

	return lipgloss.NewStyle().
		Padding(1, 2).
		Render(titleStyle.Render(titleText) + "\n" + m.form.View())
}

// SetSize updates the form dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m *Model) build() *huh.Form {
	priorities := make([]huh.Option[model.Priority], len(model.Priorities))
	for i, p := range model.Priorities {
		priorities[i] = huh.NewOption(p.Label(), p)
	}

	fields := []huh.Field{
		huh.NewInput().
			Title("Title").
			Placeholder("What needs to be done?").
			CharLimit(model.MaxTitleLength).
			Value(&m.fb.title).
			Validate(validateTitle),
		huh.NewText().
			Title("Description").
			Value(&m.fb.description).
			Validate(validateRequired("Description")),
		huh.NewSelect[model.Priority]().
			Title("Priority").
			Options(priorities...).
			Value(&m.fb.priority),
		huh.NewInput().
			Title("Due Date").
			Placeholder("YYYY-MM-DD").
			Value(&m.fb.dueDate).
			Validate(validateDate),
		huh.NewText().
			Title("Checklist").
			Description("One item per line. Editing replaces the whole checklist.").
			Value(&m.fb.checklist),
	}

	if len(m.users) > 0 {
		opts := make([]huh.Option[string], len(m.users))
		for i, u := range m.users {
			opts[i] = huh.NewOption(fmt.Sprintf("%s <%s>", u.FullName, u.Email), u.ID)
		}
		fields = append(fields, huh.NewMultiSelect[string]().
			Title("Assignees").
			Options(opts...).
			Value(&m.fb.assigneeIDs))
	}

	attachTitle := "Attachment"
	if m.editID != "" {
		attachTitle = "Replace Attachment"
	}
	fields = append(fields, huh.NewInput().
		Title(attachTitle).
		Placeholder("path to a local file (optional)").
		Value(&m.fb.attachmentPath))

	return huh.NewForm(
		huh.NewGroup(fields...),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) submit() tea.Cmd {
	due, _ := time.Parse(dateLayout, strings.TrimSpace(m.fb.dueDate))

	var checklist []string
	for _, line := range strings.Split(m.fb.checklist, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			checklist = append(checklist, line)
		}
	}

	out := SubmitMsg{
		TaskID: m.editID,
		Input: tracker.TaskInput{
			Title:       strings.TrimSpace(m.fb.title),
			Description: strings.TrimSpace(m.fb.description),
			DueDate:     due,
			Priority:    m.fb.priority,
			Checklist:   checklist,
			AssigneeIDs: append([]string(nil), m.fb.assigneeIDs...),
		},
		AttachmentPath: strings.TrimSpace(m.fb.attachmentPath),
	}
	return func() tea.Msg { return out }
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateTitle(s string) error {
	if err := validateRequired("Title")(s); err != nil {
		return err
	}
	if utf8.RuneCountInString(strings.TrimSpace(s)) > model.MaxTitleLength {
		return fmt.Errorf("title must be at most %d characters", model.MaxTitleLength)
	}
	return nil
}

func validateDate(s string) error {
	if _, err := time.Parse(dateLayout, strings.TrimSpace(s)); err != nil {
		return fmt.Errorf("invalid date format, use YYYY-MM-DD")
	}
	return nil
}
