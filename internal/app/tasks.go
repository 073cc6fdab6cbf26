package app

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/nhle/task-tracker/internal/access"
	"github.com/nhle/task-tracker/internal/model"
	"github.com/nhle/task-tracker/internal/tracker"
	"github.com/nhle/task-tracker/internal/ui/detail"
	"github.com/nhle/task-tracker/internal/ui/taskform"
)

// authResultMsg is sent after a sign-in attempt.
type authResultMsg struct {
	caller access.Caller
	user   *model.User
	err    error
}

// unreadCountMsg carries the number of unread notices to the header.
type unreadCountMsg struct {
	count int
}

// pollNoticesMsg triggers a periodic unread count refresh.
type pollNoticesMsg struct{}

// formUsersMsg carries assignee options for the task form. edit is nil
// when creating.
type formUsersMsg struct {
	users []model.User
	edit  *tracker.TaskDetail
	err   error
}

// taskSavedMsg is sent after a create, edit, or status change.
type taskSavedMsg struct {
	taskID string
	note   string
	err    error
}

// taskDeletedMsg is sent after a task is deleted.
type taskDeletedMsg struct{ err error }

// noticesReadMsg is sent after notices are marked read.
type noticesReadMsg struct{ err error }

func pollNotices() tea.Cmd {
	return tea.Tick(noticePollInterval, func(time.Time) tea.Msg { return pollNoticesMsg{} })
}

// authenticate checks credentials and loads the signed-in account.
func (m Model) authenticate(email, password string) tea.Cmd {
	svc := m.svc
	return func() tea.Msg {
		ctx := context.Background()
		caller, err := svc.Authenticate(ctx, email, password)
		if err != nil {
			return authResultMsg{err: err}
		}
		user, err := svc.GetUser(ctx, caller, caller.UserID)
		if err != nil {
			return authResultMsg{err: err}
		}
		return authResultMsg{caller: caller, user: user}
	}
}

// fetchUnreadCount returns a tea.Cmd that counts the caller's unread
// notices.
func (m Model) fetchUnreadCount() tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		notices, err := svc.UnreadNotices(context.Background(), caller)
		if err != nil {
			return unreadCountMsg{count: 0}
		}
		return unreadCountMsg{count: len(notices)}
	}
}

func (m Model) markNoticesRead() tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		return noticesReadMsg{err: svc.MarkNoticesRead(context.Background(), caller)}
	}
}

// loadTaskDetail returns a command that loads a task with its checklist
// and assignees.
func (m Model) loadTaskDetail(taskID string) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		d, err := svc.GetTask(context.Background(), caller, taskID)
		return detail.DetailLoadedMsg{Detail: d, Err: err}
	}
}

// loadForEdit loads a task and then the assignee options.
func (m Model) loadForEdit(taskID string) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		ctx := context.Background()
		d, err := svc.GetTask(ctx, caller, taskID)
		if err != nil {
			return taskSavedMsg{err: err}
		}
		users, err := svc.ListUsers(ctx, caller)
		return formUsersMsg{users: users, edit: d, err: err}
	}
}

// loadUsers fetches the assignee options for the task form.
func (m Model) loadUsers(edit *tracker.TaskDetail) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		users, err := svc.ListUsers(context.Background(), caller)
		return formUsersMsg{users: users, edit: edit, err: err}
	}
}

func (m Model) toggleItem(itemID string) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		res, err := svc.ToggleChecklistItem(context.Background(), caller, itemID)
		if err != nil {
			return detail.ToggledMsg{Err: err}
		}
		return detail.ToggledMsg{Result: *res}
	}
}

func (m Model) setStatus(taskID string, st model.TaskStatus) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		err := svc.UpdateTaskStatus(context.Background(), caller, taskID, st)
		return taskSavedMsg{taskID: taskID, note: "Status set to " + st.Label(), err: err}
	}
}

// saveTask creates or edits a task, reading the attachment from the local
// filesystem when a path was given.
func (m Model) saveTask(msg taskform.SubmitMsg) tea.Cmd {
	svc, caller, fs := m.svc, m.caller, m.localFS
	return func() tea.Msg {
		ctx := context.Background()
		in := msg.Input

		if msg.AttachmentPath != "" {
			f, err := fs.Open(msg.AttachmentPath)
			if err != nil {
				return taskSavedMsg{err: fmt.Errorf("opening attachment: %w", err)}
			}
			defer f.Close()
			in.Attachment = &tracker.Upload{Name: filepath.Base(msg.AttachmentPath), Content: f}
		}

		if msg.TaskID == "" {
			id, err := svc.CreateTask(ctx, caller, in)
			return taskSavedMsg{taskID: id, note: "Task created", err: err}
		}
		err := svc.EditTask(ctx, caller, msg.TaskID, in)
		return taskSavedMsg{taskID: msg.TaskID, note: "Task updated", err: err}
	}
}

func (m Model) deleteTask(taskID string) tea.Cmd {
	svc, caller := m.svc, m.caller
	return func() tea.Msg {
		return taskDeletedMsg{err: svc.DeleteTask(context.Background(), caller, taskID)}
	}
}

// cutSpace splits s at the first run of spaces.
func cutSpace(s string) (before, after string, found bool) {
	before, after, found = strings.Cut(strings.TrimSpace(s), " ")
	return before, strings.TrimSpace(after), found
}
