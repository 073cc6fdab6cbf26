package usermgr

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/theme"
	"github.com/nhle/task-tracker/internal/tracker"
)

// Directory is the subset of the tracker service the user manager needs.
type Directory interface {
	ListUsers(ctx context.Context, caller access.Caller) ([]model.User, error)
	CreateUser(ctx context.Context, caller access.Caller, in tracker.UserInput) (string, error)
	EditUser(ctx context.Context, caller access.Caller, id string, in tracker.ProfileInput) error
	DeleteUser(ctx context.Context, caller access.Caller, id string) error
}

// CloseMsg signals the parent to close the user manager.
type CloseMsg struct{}

// ChangedMsg signals that accounts were created, edited, or deleted.
type ChangedMsg struct{}

type mode int

const (
	modeList mode = iota
	modeForm
	modeConfirmDelete
)

type formBindings struct {
	fullName string
	email    string
	password string
	confirm  bool
}

// UsersLoadedMsg carries the account list.
type UsersLoadedMsg struct {
	Users []model.User
	Err   error
}

type userSavedMsg struct{ err error }
type userDeletedMsg struct{ err error }

// Model is the Bubble Tea model for account management.
type Model struct {
	mode        mode
	dir         Directory
	caller      access.Caller
	keys        *keys.KeyMap
	users       []model.User
	selectedIdx int
	editingID   string
	form        *huh.Form
	confirmForm *huh.Form
	fb          *formBindings
	statusMsg   string
	width       int
	height      int
}

// New creates a user manager acting as caller.
func New(dir Directory, caller access.Caller, k *keys.KeyMap, width, height int) Model {
	return Model{
		mode:   modeList,
		dir:    dir,
		caller: caller,
		keys:   k,
		fb:     &formBindings{},
		width:  width, height: height,
	}
}

// Init loads the accounts.
func (m Model) Init() tea.Cmd {
	return m.loadUsers()
}

// Editing reports whether a form is open, so the parent can stop handling
// global keys.
func (m Model) Editing() bool {
	return m.mode != modeList
}

// Update handles messages.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case UsersLoadedMsg:
		if msg.Err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.Err)
			return m, nil
		}
		m.users = msg.Users
		if m.selectedIdx >= len(m.users) && m.selectedIdx > 0 {
			m.selectedIdx = len(m.users) - 1
		}
		return m, nil

	case userSavedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "User saved"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadUsers(), func() tea.Msg { return ChangedMsg{} })

	case userDeletedMsg:
		if msg.err != nil {
			m.statusMsg = fmt.Sprintf("Error: %v", msg.err)
		} else {
			m.statusMsg = "User deleted"
		}
		m.mode = modeList
		return m, tea.Batch(m.loadUsers(), func() tea.Msg { return ChangedMsg{} })

	case tea.KeyMsg:
		switch m.mode {
		case modeList:
			return m.handleListKey(msg)
		case modeForm:
			return m.updateForm(msg)
		case modeConfirmDelete:
			return m.updateConfirm(msg)
		}
		return m, nil
	}

	switch m.mode {
	case modeForm:
		return m.updateForm(msg)
	case modeConfirmDelete:
		return m.updateConfirm(msg)
	}
	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Back):
		return m, func() tea.Msg { return CloseMsg{} }

	case key.Matches(msg, m.keys.Down):
		if len(m.users) > 0 {
			m.selectedIdx = (m.selectedIdx + 1) % len(m.users)
		}
		return m, nil

	case key.Matches(msg, m.keys.Up):
		if len(m.users) > 0 {
			m.selectedIdx--
			if m.selectedIdx < 0 {
				m.selectedIdx = len(m.users) - 1
			}
		}
		return m, nil

	case key.Matches(msg, m.keys.New):
		m.editingID = ""
		*m.fb = formBindings{}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Edit):
		if len(m.users) == 0 {
			return m, nil
		}
		u := m.users[m.selectedIdx]
		m.editingID = u.ID
		*m.fb = formBindings{fullName: u.FullName, email: u.Email}
		m.form = m.buildForm()
		m.mode = modeForm
		return m, m.form.Init()

	case key.Matches(msg, m.keys.Delete):
		if len(m.users) == 0 {
			return m, nil
		}
		if m.users[m.selectedIdx].ID == m.caller.UserID {
			m.statusMsg = "You cannot delete your own account"
			return m, nil
		}
		m.fb.confirm = false
		m.confirmForm = m.buildConfirmForm()
		m.mode = modeConfirmDelete
		return m, m.confirmForm.Init()
	}
	return m, nil
}

func (m Model) buildForm() *huh.Form {
	creating := m.editingID == ""
	passwordHint := "Leave blank to keep the current password"
	if creating {
		passwordHint = "At least 6 characters"
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Full name").
				Value(&m.fb.fullName).
				Validate(required("full name")),
			huh.NewInput().
				Title("Email").
				Placeholder("name@example.com").
				Value(&m.fb.email).
				Validate(required("email")),
			huh.NewInput().
				Title("Password").
				Description(passwordHint).
				EchoMode(huh.EchoModePassword).
				Value(&m.fb.password).
				Validate(func(s string) error {
					if creating && s == "" {
						return fmt.Errorf("password is required")
					}
					return nil
				}),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func required(field string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", field)
		}
		return nil
	}
}

func (m Model) buildConfirmForm() *huh.Form {
	name := ""
	if m.selectedIdx < len(m.users) {
		name = m.users[m.selectedIdx].FullName
	}
	return huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete user %q?", name)).
				Description("Their task assignments and notices are removed.").
				Affirmative("Yes, delete").
				Negative("Cancel").
				Value(&m.fb.confirm),
		),
	).WithWidth(m.formWidth()).WithHeight(m.formHeight())
}

func (m Model) updateForm(msg tea.Msg) (Model, tea.Cmd) {
	if m.form == nil {
		return m, nil
	}
	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}
	switch m.form.State {
	case huh.StateCompleted:
		return m, m.saveUser()
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

func (m Model) updateConfirm(msg tea.Msg) (Model, tea.Cmd) {
	if m.confirmForm == nil {
		return m, nil
	}
	mdl, cmd := m.confirmForm.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.confirmForm = f
	}
	switch m.confirmForm.State {
	case huh.StateCompleted:
		if m.fb.confirm {
			return m, m.deleteUser(m.users[m.selectedIdx].ID)
		}
		m.mode = modeList
		return m, nil
	case huh.StateAborted:
		m.mode = modeList
		return m, nil
	}
	return m, cmd
}

// View renders the user manager.
func (m Model) View() string {
	switch m.mode {
	case modeForm:
		return m.viewForm(m.form)
	case modeConfirmDelete:
		return m.viewForm(m.confirmForm)
	default:
		return m.viewList()
	}
}

func (m Model) viewList() string {
	var b strings.Builder

	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).MarginBottom(1)
	b.WriteString(titleStyle.Render("Users"))
	b.WriteString("\n\n")

	if len(m.users) == 0 {
		b.WriteString(theme.DimmedStyle.Italic(true).Render("No users yet. Press 'n' to create one."))
	}
	for i, u := range m.users {
		label := fmt.Sprintf("%-24s %-32s %s", u.FullName, u.Email, theme.RoleStyle(u.Role).Render(string(u.Role)))
		if u.ID == m.caller.UserID {
			label += " (you)"
		}
		if i == m.selectedIdx {
			b.WriteString(theme.SelectedItemStyle.Render(label))
		} else {
			b.WriteString(theme.ListItemStyle.Render(label))
		}
		b.WriteString("\n")
	}

	if m.statusMsg != "" {
		b.WriteString("\n")
		b.WriteString(lipgloss.NewStyle().Foreground(theme.ColorYellow).Italic(true).Render(m.statusMsg))
	}

	b.WriteString("\n\n")
	b.WriteString(theme.DimmedStyle.Render("n new | e edit | d delete | esc back"))

	return lipgloss.NewStyle().Padding(1, 2).Width(m.width).Height(m.height).Render(b.String())
}

func (m Model) viewForm(f *huh.Form) string {
	if f == nil {
		return ""
	}
	title := "New user"
	if m.editingID != "" {
		title = "Edit user"
	}
	header := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorWhite).Render(title)
	return lipgloss.NewStyle().Padding(1, 2).Render(header + "\n\n" + f.View())
}

// SetSize updates dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	return min(max(m.width-4, 40), 100)
}

func (m Model) formHeight() int {
	return max(m.height-4, 10)
}

func (m Model) loadUsers() tea.Cmd {
	dir, caller := m.dir, m.caller
	return func() tea.Msg {
		users, err := dir.ListUsers(context.Background(), caller)
		return UsersLoadedMsg{Users: users, Err: err}
	}
}

func (m Model) saveUser() tea.Cmd {
	dir, caller := m.dir, m.caller
	fb := *m.fb
	editID := m.editingID
	return func() tea.Msg {
		ctx := context.Background()
		if editID == "" {
			_, err := dir.CreateUser(ctx, caller, tracker.UserInput{
				FullName: fb.fullName, Email: fb.email, Password: fb.password,
			})
			return userSavedMsg{err: err}
		}
		err := dir.EditUser(ctx, caller, editID, tracker.ProfileInput{
			FullName: fb.fullName, Email: fb.email, Password: fb.password,
		})
		return userSavedMsg{err: err}
	}
}

func (m Model) deleteUser(id string) tea.Cmd {
	dir, caller := m.dir, m.caller
	return func() tea.Msg {
		return userDeletedMsg{err: dir.DeleteUser(context.Background(), caller, id)}
	}
}
