// Package app is the root Bubble Tea model of the console. It routes
// messages between views and runs every operation through tracker.Service
// as the signed-in caller.
package app

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/auth"
	"github.com/nhle/task-tracker/internal/keys"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
	"github.com/nhle/task-tracker/internal/ui"
	"github.com/nhle/task-tracker/internal/ui/command"
	"github.com/nhle/task-tracker/internal/ui/detail"
	helpview "github.com/nhle/task-tracker/internal/ui/help"
	"github.com/nhle/task-tracker/internal/ui/login"
	"github.com/nhle/task-tracker/internal/ui/taskform"
	"github.com/nhle/task-tracker/internal/ui/tasklist"
	"github.com/nhle/task-tracker/internal/ui/usermgr"
)

// noticePollInterval is how often the unread notice count is refreshed.
const noticePollInterval = 30 * time.Second

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewList
	ViewDetail
	ViewHelp
	ViewCommand
	ViewTaskForm
	ViewUsers
)

// Model is the root Bubble Tea model that manages view routing and
// layout.
type Model struct {
	currentView  ViewState
	previousView ViewState
	layout       ui.Layout
	svc          *tracker.Service
	localFS      afero.Fs
	log          *logrus.Entry
	keys         *keys.KeyMap

	caller access.Caller
	user   *model.User

	loginView   login.Model
	taskList    tasklist.Model
	detail      detail.Model
	helpView    helpview.Model
	commandView command.Model
	formView    taskform.Model
	usersView   usermgr.Model

	ready       bool
	unreadCount int
	errMessage  string
	note        string
}

// New creates the root model. localFS is where attachment paths typed
// into the task form are read from.
func New(svc *tracker.Service, localFS afero.Fs, log *logrus.Entry) Model {
	k := keys.DefaultKeyMap()
	return Model{
		currentView: ViewLogin,
		svc:         svc,
		localFS:     localFS,
		log:         log,
		keys:        k,
		loginView:   login.New(80, 24),
		taskList:    tasklist.New(svc, k, 80, 24),
		detail:      detail.New(k, 80, 24),
		helpView:    helpview.New(k, 80, 24),
		commandView: command.New(80, 24),
		formView:    taskform.New(80, 24),
	}
}

// Init shows the sign-in form.
func (m Model) Init() tea.Cmd {
	return m.loginView.Start("")
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.layout = ui.NewLayout(msg.Width, msg.Height)
		m.ready = true
		w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
		m.loginView.SetSize(w, h)
		m.taskList.SetSize(w, h)
		m.detail.SetSize(w, h)
		m.helpView.SetSize(w, h)
		m.commandView.SetSize(w, h)
		m.formView.SetSize(w, h)
		m.usersView.SetSize(w, h)
		// Forward to active view so huh forms can calculate their layout.
		return m.updateActiveView(msg)

	case login.SubmitMsg:
		return m, m.authenticate(msg.Email, msg.Password)

	case login.CancelMsg:
		return m, tea.Quit

	case authResultMsg:
		if msg.err != nil {
			text := "Sign-in failed"
			if errors.Is(msg.err, auth.ErrInvalidCredentials) {
				text = "Invalid email or password"
			}
			return m, m.loginView.Start(text)
		}
		m.signIn(msg.caller, msg.user)
		return m, tea.Batch(m.taskList.LoadTasks(), m.fetchUnreadCount(), pollNotices())

	case pollNoticesMsg:
		if !m.caller.Authenticated() {
			return m, nil
		}
		return m, tea.Batch(m.fetchUnreadCount(), pollNotices())

	case unreadCountMsg:
		m.unreadCount = msg.count
		return m, nil

	case tasklist.TasksLoadedMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		var cmd tea.Cmd
		m.taskList, cmd = m.taskList.Update(msg)
		return m, cmd

	case tasklist.SelectedTaskMsg:
		m.previousView = m.currentView
		m.currentView = ViewDetail
		m.detail.SetLoading(true)
		return m, m.loadTaskDetail(msg.TaskID)

	case detail.DetailLoadedMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.BackMsg:
		m.currentView = ViewList
		return m, m.taskList.LoadTasks()

	case detail.ToggleItemMsg:
		return m, m.toggleItem(msg.ItemID)

	case detail.ToggledMsg:
		if msg.Err != nil {
			m.setError(msg.Err)
		}
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd

	case detail.StatusChangeMsg:
		return m, m.setStatus(msg.TaskID, msg.Status)

	case detail.EditRequestMsg:
		m.previousView = m.currentView
		m.currentView = ViewTaskForm
		return m, m.loadUsers(&msg.Detail)

	case detail.DeleteRequestMsg:
		return m, m.deleteTask(msg.TaskID)

	case formUsersMsg:
		if msg.err != nil {
			m.setError(msg.err)
		}
		m.formView.SetUsers(msg.users)
		if msg.edit != nil {
			return m, m.formView.StartEdit(*msg.edit)
		}
		return m, m.formView.StartCreate()

	case taskform.SubmitMsg:
		m.currentView = m.previousView
		return m, m.saveTask(msg)

	case taskform.CancelMsg:
		m.currentView = m.previousView
		return m, nil

	case taskSavedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setNote(msg.note)
		if m.currentView == ViewDetail && msg.taskID != "" {
			return m, tea.Batch(m.loadTaskDetail(msg.taskID), m.taskList.LoadTasks())
		}
		return m, m.taskList.LoadTasks()

	case taskDeletedMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.setNote("Task deleted")
		m.currentView = ViewList
		return m, m.taskList.LoadTasks()

	case noticesReadMsg:
		if msg.err != nil {
			m.setError(msg.err)
			return m, nil
		}
		m.unreadCount = 0
		m.setNote("Notices marked read")
		return m, nil

	case usermgr.CloseMsg:
		m.currentView = ViewList
		return m, m.taskList.LoadTasks()

	case usermgr.ChangedMsg:
		m.log.WithField("user_id", m.caller.UserID).Info("accounts changed from console")
		return m, nil

	case command.CommandMsg:
		m.currentView = m.previousView
		return m, m.executeCommand(msg)

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		if m.currentView == ViewCommand && msg.String() == "esc" {
			m.currentView = m.previousView
			return m, nil
		}
		if m.capturesInput() {
			break
		}
		m.errMessage, m.note = "", ""

		switch msg.String() {
		case "q":
			if m.currentView == ViewList {
				return m, tea.Quit
			}

		case "?":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}
			m.previousView = m.currentView
			m.currentView = ViewHelp
			return m, nil

		case ":":
			m.previousView = m.currentView
			m.currentView = ViewCommand
			return m, m.commandView.Focus()

		case "esc":
			if m.currentView == ViewHelp {
				m.currentView = m.previousView
				return m, nil
			}

		case "r":
			if m.currentView == ViewList {
				return m, tea.Batch(m.taskList.LoadTasks(), m.fetchUnreadCount())
			}

		case "m":
			if m.currentView == ViewList {
				return m, m.markNoticesRead()
			}

		case "n":
			if m.currentView == ViewList && m.caller.IsAdmin() {
				m.previousView = m.currentView
				m.currentView = ViewTaskForm
				return m, m.loadUsers(nil)
			}

		case "e":
			if m.currentView == ViewList && m.caller.IsAdmin() {
				if t, ok := m.taskList.SelectedTask(); ok {
					m.previousView = m.currentView
					m.currentView = ViewTaskForm
					return m, m.loadForEdit(t.ID)
				}
			}

		case "d":
			if m.currentView == ViewList && m.caller.IsAdmin() {
				if t, ok := m.taskList.SelectedTask(); ok {
					return m, m.deleteTask(t.ID)
				}
			}

		case "u":
			if m.currentView == ViewList && m.caller.IsAdmin() {
				m.previousView = m.currentView
				return m, m.openUsers()
			}
		}
	}

	return m.updateActiveView(msg)
}

// capturesInput reports whether keystrokes belong to a text field.
func (m Model) capturesInput() bool {
	switch m.currentView {
	case ViewLogin, ViewTaskForm, ViewCommand:
		return true
	case ViewList:
		return m.taskList.Searching()
	case ViewUsers:
		return m.usersView.Editing()
	}
	return false
}

// signIn records the caller and configures role-dependent views.
func (m *Model) signIn(c access.Caller, u *model.User) {
	m.caller = c
	m.user = u
	m.currentView = ViewList
	m.taskList.SetCaller(c)
	m.detail.SetAdmin(c.IsAdmin())
	m.helpView.SetAdmin(c.IsAdmin())
	m.log.WithField("user_id", c.UserID).Info("console sign-in")
}

// openUsers switches to the account manager.
func (m *Model) openUsers() tea.Cmd {
	w, h := m.layout.ContentWidth(), m.layout.ContentHeight()
	m.usersView = usermgr.New(m.svc, m.caller, m.keys, w, h)
	m.currentView = ViewUsers
	return m.usersView.Init()
}

func (m *Model) setError(err error) {
	m.note = ""
	m.errMessage = describe(err)
	m.log.WithError(err).Warn("console operation failed")
}

func (m *Model) setNote(note string) {
	m.errMessage = ""
	m.note = note
}

// describe turns a tracker error into a status bar message.
func describe(err error) string {
	var verr *tracker.ValidationError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.Is(err, tracker.ErrForbidden):
		return "Not allowed"
	case errors.Is(err, tracker.ErrNotFound):
		return "Not found"
	case errors.Is(err, tracker.ErrStorage):
		return "Attachment storage failed"
	default:
		return "Error: " + err.Error()
	}
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewList:
		m.taskList, cmd = m.taskList.Update(msg)
	case ViewDetail:
		m.detail, cmd = m.detail.Update(msg)
	case ViewHelp:
		m.helpView, cmd = m.helpView.Update(msg)
	case ViewCommand:
		m.commandView, cmd = m.commandView.Update(msg)
	case ViewTaskForm:
		m.formView, cmd = m.formView.Update(msg)
	case ViewUsers:
		m.usersView, cmd = m.usersView.Update(msg)
	}

	return m, cmd
}

// View renders the full terminal UI using the layout manager.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	title := "Task Tracker"
	if m.unreadCount > 0 {
		title = fmt.Sprintf("Task Tracker [%d new]", m.unreadCount)
	}
	header := m.layout.RenderHeader(title, m.identity())

	var status string
	if m.errMessage != "" {
		status = m.layout.RenderError(m.errMessage)
	} else {
		status = m.layout.RenderStatusBar(m.keyHints())
	}

	return m.layout.RenderWithFrame(header, m.renderContent(), status)
}

// identity returns the signed-in user's name and role.
func (m Model) identity() string {
	if m.user == nil {
		return "signed out"
	}
	return fmt.Sprintf("%s (%s)", m.user.FullName, m.user.Role)
}

// renderContent returns the rendered string for the current active view.
func (m Model) renderContent() string {
	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewList:
		return m.taskList.View()
	case ViewDetail:
		return m.detail.View()
	case ViewHelp:
		return m.helpView.View()
	case ViewCommand:
		return m.commandView.View()
	case ViewTaskForm:
		return m.formView.View()
	case ViewUsers:
		return m.usersView.View()
	default:
		return ""
	}
}

// keyHints returns keyboard shortcut hints for the status bar.
func (m Model) keyHints() string {
	if m.note != "" {
		return m.note
	}

	switch m.currentView {
	case ViewLogin:
		return "enter submit | ctrl+c quit"
	case ViewHelp:
		return "? close help | esc back"
	case ViewCommand:
		return "enter execute | esc back"
	case ViewDetail:
		if m.caller.IsAdmin() {
			return "esc back | j/k move | space toggle | s status | e edit | d delete"
		}
		return "esc back | j/k move | space toggle | s status"
	case ViewTaskForm:
		return "enter next | esc cancel"
	case ViewUsers:
		return "n new | e edit | d delete | esc back"
	default:
		if summary := m.taskList.FilterSummary(); summary != "" {
			return summary + " | 3 clear"
		}
		if m.caller.IsAdmin() {
			return "q quit | ? help | n new | e edit | d delete | u users | / search | 1 status | 2 priority | tab sort"
		}
		return "q quit | ? help | / search | 1 status | 2 priority | tab sort | m mark read"
	}
}

// executeCommand handles a command from the command palette.
func (m *Model) executeCommand(c command.CommandMsg) tea.Cmd {
	switch c.Name {
	case "refresh":
		return m.taskList.LoadTasks()
	case "quit", "q":
		return tea.Quit
	case "new":
		if !m.caller.IsAdmin() {
			m.errMessage = "Not allowed"
			return nil
		}
		m.previousView = ViewList
		m.currentView = ViewTaskForm
		return m.loadUsers(nil)
	case "status":
		st := model.TaskStatus(c.Arg)
		if st != "" && !st.Valid() {
			m.errMessage = "Unknown status " + c.Arg
			return nil
		}
		return m.taskList.SetStatusFilter(st)
	case "priority":
		p := model.Priority(c.Arg)
		if p != "" && !p.Valid() {
			m.errMessage = "Unknown priority " + c.Arg
			return nil
		}
		return m.taskList.SetPriorityFilter(p)
	case "sort":
		key, dir, _ := cutSpace(c.Arg)
		return m.taskList.SetSort(key, dir == "desc")
	case "search":
		return m.taskList.SetQuery(c.Arg)
	case "clear":
		return m.taskList.ClearFilters()
	case "read":
		return m.markNoticesRead()
	case "users":
		if !m.caller.IsAdmin() {
			m.errMessage = "Not allowed"
			return nil
		}
		return m.openUsers()
	default:
		m.errMessage = "Unknown command " + c.Name
		return nil
	}
}
